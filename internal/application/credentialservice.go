package application

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/ericfisherdev/mexcbridge/internal/domain/model"
	"github.com/ericfisherdev/mexcbridge/internal/domain/port/driven"
)

// maxLabelLength bounds the user-supplied connection label, in runes.
const maxLabelLength = 64

// CredentialService stores, reads and removes a user's exchange credentials.
// Plaintext is encrypted here, so the store only ever sees ciphertext.
type CredentialService struct {
	store     driven.CredentialStore
	cipher    driven.CredentialCipher
	sanitizer *bluemonday.Policy
	logger    *slog.Logger
}

// NewCredentialService creates a CredentialService with the required dependencies.
func NewCredentialService(store driven.CredentialStore, cipher driven.CredentialCipher, logger *slog.Logger) *CredentialService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CredentialService{
		store:     store,
		cipher:    cipher,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger,
	}
}

// Connect encrypts apiKey and apiSecret independently and replaces any record
// the user already has. Missing inputs are rejected before anything is written.
func (s *CredentialService) Connect(ctx context.Context, userID, apiKey, apiSecret, label string) (model.CredentialRecord, error) {
	if userID == "" {
		return model.CredentialRecord{}, model.ErrUnauthorized
	}

	apiKey = strings.TrimSpace(apiKey)
	apiSecret = strings.TrimSpace(apiSecret)
	switch {
	case apiKey == "":
		return model.CredentialRecord{}, model.NewValidationError("apiKey", "is required")
	case apiSecret == "":
		return model.CredentialRecord{}, model.NewValidationError("apiSecret", "is required")
	}

	// The strict policy entity-escapes the text it keeps; store it as typed.
	label = strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(label)))
	if utf8.RuneCountInString(label) > maxLabelLength {
		return model.CredentialRecord{}, model.NewValidationError("label", fmt.Sprintf("must be at most %d characters", maxLabelLength))
	}

	keyCT, keyNonce, err := s.cipher.Encrypt(apiKey)
	if err != nil {
		return model.CredentialRecord{}, fmt.Errorf("encrypt api key: %w", err)
	}
	secretCT, secretNonce, err := s.cipher.Encrypt(apiSecret)
	if err != nil {
		return model.CredentialRecord{}, fmt.Errorf("encrypt api secret: %w", err)
	}

	saved, err := s.store.Upsert(ctx, model.CredentialRecord{
		UserID:              userID,
		APIKeyCiphertext:    keyCT,
		APIKeyNonce:         keyNonce,
		APISecretCiphertext: secretCT,
		APISecretNonce:      secretNonce,
		Label:               label,
	})
	if err != nil {
		return model.CredentialRecord{}, persistenceError("save credentials", err)
	}

	s.logger.InfoContext(ctx, "exchange credentials saved", "user_id", userID)
	return saved, nil
}

// Status reports whether the user has an active connection. It never reads
// or decrypts ciphertext.
func (s *CredentialService) Status(ctx context.Context, userID string) (model.CredentialStatus, error) {
	status, err := s.store.GetStatus(ctx, userID)
	if err != nil {
		return model.CredentialStatus{}, persistenceError("read credential status", err)
	}
	return status, nil
}

// Keys returns the user's decrypted credentials. It returns
// model.ErrNotConnected when there is no active record and model.ErrIntegrity
// when either ciphertext fails authentication.
func (s *CredentialService) Keys(ctx context.Context, userID string) (model.APICredentials, error) {
	return loadCredentials(ctx, s.store, s.cipher, userID)
}

// Disconnect deactivates the user's credentials. Disconnecting a user with no
// record succeeds.
func (s *CredentialService) Disconnect(ctx context.Context, userID string) error {
	if err := s.store.Deactivate(ctx, userID); err != nil {
		return persistenceError("deactivate credentials", err)
	}
	s.logger.InfoContext(ctx, "exchange credentials deactivated", "user_id", userID)
	return nil
}

// loadCredentials fetches and opens the user's active credential record.
func loadCredentials(ctx context.Context, store driven.CredentialStore, cipher driven.CredentialCipher, userID string) (model.APICredentials, error) {
	rec, err := store.GetActive(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotConnected) {
			return model.APICredentials{}, model.ErrNotConnected
		}
		return model.APICredentials{}, persistenceError("load credentials", err)
	}

	apiKey, err := cipher.Decrypt(rec.APIKeyCiphertext, rec.APIKeyNonce)
	if err != nil {
		return model.APICredentials{}, fmt.Errorf("decrypt api key: %w", err)
	}
	apiSecret, err := cipher.Decrypt(rec.APISecretCiphertext, rec.APISecretNonce)
	if err != nil {
		return model.APICredentials{}, fmt.Errorf("decrypt api secret: %w", err)
	}

	return model.APICredentials{APIKey: apiKey, APISecret: apiSecret}, nil
}

func persistenceError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, model.ErrPersistence, err)
}
