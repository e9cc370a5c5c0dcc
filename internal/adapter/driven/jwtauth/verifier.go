// Package jwtauth verifies HS256 identity tokens issued by the upstream
// identity provider.
package jwtauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ericfisherdev/mexcbridge/internal/domain/model"
	"github.com/ericfisherdev/mexcbridge/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.IdentityVerifier = (*Verifier)(nil)

// ErrEmptySecret is returned by NewVerifier when no signing secret is configured.
var ErrEmptySecret = errors.New("jwt signing secret is empty")

// Claims is the token payload the verifier understands. Subject carries the
// user ID; Email is optional.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Options narrows which tokens are accepted. Zero values disable the check.
type Options struct {
	Issuer   string
	Audience string
	Leeway   time.Duration
}

// Verifier implements driven.IdentityVerifier.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewVerifier creates a Verifier that accepts only HS256 tokens signed with
// secret and carrying an expiry.
func NewVerifier(secret []byte, opts Options) (*Verifier, error) {
	return newVerifier(secret, opts, nil)
}

func newVerifier(secret []byte, opts Options, now func() time.Time) (*Verifier, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if opts.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(opts.Issuer))
	}
	if opts.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(opts.Audience))
	}
	if opts.Leeway > 0 {
		parserOpts = append(parserOpts, jwt.WithLeeway(opts.Leeway))
	}
	if now != nil {
		parserOpts = append(parserOpts, jwt.WithTimeFunc(now))
	}

	key := make([]byte, len(secret))
	copy(key, secret)

	return &Verifier{secret: key, parser: jwt.NewParser(parserOpts...)}, nil
}

// Verify parses and validates token. Every failure wraps model.ErrUnauthorized.
func (v *Verifier) Verify(ctx context.Context, token string) (model.UserIdentity, error) {
	if err := ctx.Err(); err != nil {
		return model.UserIdentity{}, err
	}
	if strings.TrimSpace(token) == "" {
		return model.UserIdentity{}, fmt.Errorf("empty token: %w", model.ErrUnauthorized)
	}

	var claims Claims
	parsed, err := v.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return model.UserIdentity{}, fmt.Errorf("verify token: %w: %w", model.ErrUnauthorized, err)
	}
	if !parsed.Valid {
		return model.UserIdentity{}, fmt.Errorf("verify token: %w", model.ErrUnauthorized)
	}

	userID := strings.TrimSpace(claims.Subject)
	if userID == "" {
		return model.UserIdentity{}, fmt.Errorf("token has no subject: %w", model.ErrUnauthorized)
	}

	return model.UserIdentity{UserID: userID, Email: claims.Email}, nil
}
