package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/ericfisherdev/mexcbridge/internal/domain/model"
	"github.com/ericfisherdev/mexcbridge/internal/domain/port/driven"
)

const bearerPrefix = "Bearer "

// AccessGate resolves the caller's identity from an Authorization header. It
// is the first step of every privileged operation.
type AccessGate struct {
	verifier driven.IdentityVerifier
}

// NewAccessGate creates an AccessGate backed by the given identity verifier.
func NewAccessGate(verifier driven.IdentityVerifier) *AccessGate {
	return &AccessGate{verifier: verifier}
}

// Authenticate validates a "Bearer <token>" header. Every failure, whatever
// its cause, is reported as model.ErrUnauthorized.
func (g *AccessGate) Authenticate(ctx context.Context, authorization string) (model.UserIdentity, error) {
	if len(authorization) <= len(bearerPrefix) || !strings.EqualFold(authorization[:len(bearerPrefix)], bearerPrefix) {
		return model.UserIdentity{}, model.ErrUnauthorized
	}

	token := strings.TrimSpace(authorization[len(bearerPrefix):])
	if token == "" {
		return model.UserIdentity{}, model.ErrUnauthorized
	}

	identity, err := g.verifier.Verify(ctx, token)
	if err != nil {
		return model.UserIdentity{}, fmt.Errorf("%w: %w", model.ErrUnauthorized, err)
	}
	if identity.UserID == "" {
		return model.UserIdentity{}, model.ErrUnauthorized
	}

	return identity, nil
}
