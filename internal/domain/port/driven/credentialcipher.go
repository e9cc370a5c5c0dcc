package driven

// CredentialCipher seals and opens single credential strings with an AEAD.
// Implementations hold an immutable master key and are safe for concurrent use.
type CredentialCipher interface {
	// Encrypt seals plaintext under a freshly generated nonce.
	Encrypt(plaintext string) (ciphertext, nonce []byte, err error)

	// Decrypt opens a ciphertext/nonce pair. Any authentication failure or a
	// malformed pair returns an error wrapping model.ErrIntegrity.
	Decrypt(ciphertext, nonce []byte) (string, error)
}
