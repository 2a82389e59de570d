package crypto

import "errors"

var (
	// ErrEmptyPassword is returned when key derivation is attempted with an
	// empty master password.
	ErrEmptyPassword = errors.New("empty master password")

	// ErrInvalidSalt is returned when a salt is not exactly SaltLength bytes.
	ErrInvalidSalt = errors.New("salt must be exactly 32 bytes")

	// ErrInvalidKeyLength is returned when a symmetric key is not exactly
	// 32 bytes.
	ErrInvalidKeyLength = errors.New("key must be exactly 32 bytes")

	// ErrDecryption is returned when an AEAD open fails: wrong key,
	// tampered ciphertext, or tampered IV. The cause is deliberately not
	// distinguished.
	ErrDecryption = errors.New("decryption failed")

	// ErrInvalidPublicKey is returned when a public key blob fails
	// validation before any RSA operation is attempted.
	ErrInvalidPublicKey = errors.New("invalid RSA public key")

	// ErrInvalidPrivateKey is returned when a private key blob cannot be
	// parsed as a PKCS#8 RSA key.
	ErrInvalidPrivateKey = errors.New("invalid RSA private key")

	// ErrRotationFailed is returned when wrapping the fresh group key for
	// any member fails; the rotation is aborted as a whole.
	ErrRotationFailed = errors.New("group key rotation failed")
)
