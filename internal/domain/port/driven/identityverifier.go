package driven

import (
	"context"

	"github.com/ericfisherdev/mexcbridge/internal/domain/model"
)

// IdentityVerifier defines the driven port to the identity provider that
// issued the caller's bearer token.
type IdentityVerifier interface {
	// Verify validates token and returns the identity it was issued to.
	Verify(ctx context.Context, token string) (model.UserIdentity, error)
}
