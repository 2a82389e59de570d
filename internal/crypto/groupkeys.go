package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/google/uuid"
)

const (
	// rsaKeyBits is the RSA modulus size for member keypairs.
	rsaKeyBits = 2048

	// minPublicKeyDERLength is the smallest plausible SPKI encoding of an
	// RSA-2048 public key. Shorter blobs are rejected before any RSA call.
	minPublicKeyDERLength = 260
)

// GroupMemberKey names one group member and the public key a rotated group
// key must be wrapped under.
type GroupMemberKey struct {
	UserID    uuid.UUID
	PublicKey string
}

// UserKeyPair is a freshly generated RSA-2048 keypair, encoded as base64
// DER blobs: SPKI for the public half, PKCS#8 for the private half.
type UserKeyPair struct {
	PublicKey  string
	PrivateKey string
}

// GroupKeySet is the outcome of a rotation: the fresh plaintext group key
// (transient, for the caller's immediate re-encryption work) and one
// wrapped copy per member.
type GroupKeySet struct {
	GroupKey    []byte
	WrappedKeys map[uuid.UUID]string
}

// groupKeyService is the concrete implementation of [GroupKeyService].
type groupKeyService struct{}

// NewGroupKeyService constructs a [GroupKeyService] using RSA-2048 with
// OAEP/SHA-256 padding.
func NewGroupKeyService() GroupKeyService {
	return &groupKeyService{}
}

// GenerateGroupKey implements [GroupKeyService].
func (g *groupKeyService) GenerateGroupKey() ([]byte, error) {
	key := make([]byte, KeyLength)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// GenerateUserKeyPair implements [GroupKeyService].
func (g *groupKeyService) GenerateUserKeyPair() (UserKeyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return UserKeyPair{}, fmt.Errorf("generate rsa key: %w", err)
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return UserKeyPair{}, fmt.Errorf("marshal public key: %w", err)
	}
	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return UserKeyPair{}, fmt.Errorf("marshal private key: %w", err)
	}

	return UserKeyPair{
		PublicKey:  base64.StdEncoding.EncodeToString(pubDER),
		PrivateKey: base64.StdEncoding.EncodeToString(privDER),
	}, nil
}

// EncryptGroupKeyForUser implements [GroupKeyService].
func (g *groupKeyService) EncryptGroupKeyForUser(groupKey []byte, publicKeyB64 string) (string, error) {
	if !g.ValidateGroupKey(groupKey) {
		return "", ErrInvalidKeyLength
	}

	pub, err := parsePublicKey(publicKeyB64)
	if err != nil {
		return "", err
	}

	wrapped, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, groupKey, nil)
	if err != nil {
		return "", fmt.Errorf("wrap group key: %w", err)
	}

	return base64.StdEncoding.EncodeToString(wrapped), nil
}

// DecryptGroupKeyForUser implements [GroupKeyService].
func (g *groupKeyService) DecryptGroupKeyForUser(wrappedKeyB64, privateKeyB64 string) ([]byte, error) {
	privDER, err := base64.StdEncoding.DecodeString(privateKeyB64)
	if err != nil {
		return nil, ErrInvalidPrivateKey
	}
	parsed, err := x509.ParsePKCS8PrivateKey(privDER)
	if err != nil {
		return nil, ErrInvalidPrivateKey
	}
	priv, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, ErrInvalidPrivateKey
	}

	wrapped, err := base64.StdEncoding.DecodeString(wrappedKeyB64)
	if err != nil {
		return nil, fmt.Errorf("decode wrapped key: %w", err)
	}

	groupKey, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, wrapped, nil)
	if err != nil {
		return nil, fmt.Errorf("unwrap group key: %w", err)
	}

	return groupKey, nil
}

// RotateGroupKey implements [GroupKeyService]. The wrap loop validates every
// member key up front and aborts on the first failure, so either every
// member receives the new key or nobody does.
func (g *groupKeyService) RotateGroupKey(members []GroupMemberKey) (GroupKeySet, error) {
	if len(members) == 0 {
		return GroupKeySet{}, fmt.Errorf("%w: no members to wrap for", ErrRotationFailed)
	}

	for _, m := range members {
		if !g.ValidatePublicKey(m.PublicKey) {
			return GroupKeySet{}, fmt.Errorf("%w: member %s: %w", ErrRotationFailed, m.UserID, ErrInvalidPublicKey)
		}
	}

	groupKey, err := g.GenerateGroupKey()
	if err != nil {
		return GroupKeySet{}, fmt.Errorf("%w: %w", ErrRotationFailed, err)
	}

	wrapped := make(map[uuid.UUID]string, len(members))
	for _, m := range members {
		wrappedKey, err := g.EncryptGroupKeyForUser(groupKey, m.PublicKey)
		if err != nil {
			return GroupKeySet{}, fmt.Errorf("%w: member %s: %w", ErrRotationFailed, m.UserID, err)
		}
		wrapped[m.UserID] = wrappedKey
	}

	return GroupKeySet{GroupKey: groupKey, WrappedKeys: wrapped}, nil
}

// ValidateGroupKey implements [GroupKeyService].
func (g *groupKeyService) ValidateGroupKey(groupKey []byte) bool {
	return len(groupKey) == KeyLength
}

// ValidatePublicKey implements [GroupKeyService].
func (g *groupKeyService) ValidatePublicKey(publicKeyB64 string) bool {
	der, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil {
		return false
	}
	return len(der) >= minPublicKeyDERLength
}

func parsePublicKey(publicKeyB64 string) (*rsa.PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil {
		return nil, ErrInvalidPublicKey
	}
	if len(der) < minPublicKeyDERLength {
		return nil, ErrInvalidPublicKey
	}

	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, ErrInvalidPublicKey
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, ErrInvalidPublicKey
	}

	return pub, nil
}
