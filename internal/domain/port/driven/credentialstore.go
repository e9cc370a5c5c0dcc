package driven

import (
	"context"

	"github.com/ericfisherdev/mexcbridge/internal/domain/model"
)

// CredentialStore defines the driven port for encrypted credential persistence.
// It only ever sees ciphertext; encryption happens in the application layer
// through a CredentialCipher before a record reaches the store.
type CredentialStore interface {
	// Upsert atomically replaces the user's record (both ciphertext/nonce
	// pairs, label, active flag) and returns the stored row.
	Upsert(ctx context.Context, rec model.CredentialRecord) (model.CredentialRecord, error)

	// GetActive returns the user's active record, or model.ErrNotConnected if
	// none exists or the record has been deactivated.
	GetActive(ctx context.Context, userID string) (*model.CredentialRecord, error)

	// GetStatus reads the public projection. It never touches ciphertext
	// columns. A missing record yields Connected=false and no error.
	GetStatus(ctx context.Context, userID string) (model.CredentialStatus, error)

	// Deactivate marks the user's record inactive while retaining its ciphertext.
	Deactivate(ctx context.Context, userID string) error
}
