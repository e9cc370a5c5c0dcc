package model

import "time"

// CredentialRecord is the persisted, encrypted form of a user's exchange API
// credentials. Exactly one record exists per UserID. Plaintext key and secret
// never appear here; each ciphertext travels with the nonce it was sealed with.
type CredentialRecord struct {
	UserID              string
	APIKeyCiphertext    []byte
	APIKeyNonce         []byte
	APISecretCiphertext []byte
	APISecretNonce      []byte
	Label               string
	IsActive            bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// CredentialStatus is the public-safe projection of a CredentialRecord. It
// answers only whether a connection is configured.
type CredentialStatus struct {
	Connected bool
	UpdatedAt *time.Time
}

// APICredentials holds decrypted exchange credentials. Values of this type
// live only for the duration of a request and must never be logged or stored.
type APICredentials struct {
	APIKey    string
	APISecret string
}
