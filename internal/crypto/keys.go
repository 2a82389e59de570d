package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// SaltLength is the fixed length of key-derivation salts.
	SaltLength = 32

	// KeyLength is the length of each derived key half.
	KeyLength = 32

	// kdfIterations is the PBKDF2-SHA256 iteration count. High enough to
	// be password-hashing-grade; changing it invalidates every stored
	// authHash, so it is a constant, not configuration.
	kdfIterations = 100_000

	// kdfOutputLength is the total KDF output: two independent 32-byte keys.
	kdfOutputLength = 2 * KeyLength
)

// KeyPair is the ephemeral result of one KDF invocation. It lives only in
// client memory: AuthKey is hashed before transmission, EncKey never leaves
// the process at all.
type KeyPair struct {
	AuthKey []byte
	EncKey  []byte
}

// Equal compares two key pairs in constant time.
func (p KeyPair) Equal(other KeyPair) bool {
	return subtle.ConstantTimeCompare(p.AuthKey, other.AuthKey) == 1 &&
		subtle.ConstantTimeCompare(p.EncKey, other.EncKey) == 1
}

// keyService is the concrete implementation of [KeyService].
type keyService struct {
	iterations int
}

// NewKeyService constructs a [KeyService] with the production PBKDF2
// parameters (SHA-256, 100 000 iterations, 512-bit output).
func NewKeyService() KeyService {
	return &keyService{iterations: kdfIterations}
}

// GenerateSalt implements [KeyService]. It reads 32 random bytes from the
// OS CSPRNG. A short read fails loudly rather than returning a truncated
// salt.
func (k *keyService) GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// DeriveKeys implements [KeyService]. It stretches password and salt into
// 64 bytes of PBKDF2-SHA256 output and splits the result in half: the first
// 32 bytes become the authentication key, the second 32 the encryption key.
// The halves are independent outputs of one KDF run, so knowledge of the
// authentication key (or its hash) gives no purchase on the encryption key.
func (k *keyService) DeriveKeys(password string, salt []byte) (KeyPair, error) {
	if password == "" {
		return KeyPair{}, ErrEmptyPassword
	}
	if len(salt) != SaltLength {
		return KeyPair{}, ErrInvalidSalt
	}

	derived := pbkdf2.Key([]byte(password), salt, k.iterations, kdfOutputLength, sha256.New)

	return KeyPair{
		AuthKey: derived[:KeyLength],
		EncKey:  derived[KeyLength:],
	}, nil
}

// HashAuthKey implements [KeyService]. It computes SHA-256 over the raw
// authentication key. This digest is the only credential material that ever
// crosses the network; the server applies bcrypt on top before persisting.
func (k *keyService) HashAuthKey(authKey []byte) []byte {
	sum := sha256.Sum256(authKey)
	return sum[:]
}
