package driven

import (
	"context"

	"github.com/ericfisherdev/mexcbridge/internal/domain/model"
)

// TradeStore defines the driven port for trade history persistence.
type TradeStore interface {
	// Insert writes a new trade record. Records are never updated.
	Insert(ctx context.Context, trade model.TradeRecord) error

	// ListRecent returns up to limit trades for the user, newest first.
	ListRecent(ctx context.Context, userID string, limit int) ([]model.TradeRecord, error)
}
