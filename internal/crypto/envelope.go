package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// ivLength is the AES-GCM IV size in bytes. 16 rather than the GCM default
// of 12 to stay compatible with envelopes produced by existing clients.
const ivLength = 16

// Envelope is one sealed payload: ciphertext (with the GCM tag appended)
// and the IV used to produce it, both base64 for transport and storage.
type Envelope struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
}

// envelopeService is the concrete implementation of [EnvelopeService].
type envelopeService struct{}

// NewEnvelopeService constructs an AES-256-GCM [EnvelopeService].
func NewEnvelopeService() EnvelopeService {
	return &envelopeService{}
}

// Encrypt implements [EnvelopeService]. Every call draws a fresh random IV
// from the OS CSPRNG; the IV is never derived from the plaintext or reused,
// since IV reuse under one GCM key destroys its guarantees.
func (e *envelopeService) Encrypt(plaintext, encKey []byte) (Envelope, error) {
	if len(encKey) != KeyLength {
		return Envelope{}, ErrInvalidKeyLength
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return Envelope{}, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivLength)
	if err != nil {
		return Envelope{}, fmt.Errorf("create gcm: %w", err)
	}

	iv := make([]byte, ivLength)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return Envelope{}, fmt.Errorf("generate iv: %w", err)
	}

	ciphertext := gcm.Seal(nil, iv, plaintext, nil)

	return Envelope{
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		IV:         base64.StdEncoding.EncodeToString(iv),
	}, nil
}

// Decrypt implements [EnvelopeService]. It decodes both fields, rebuilds the
// cipher, and opens the envelope. Any authentication-tag mismatch (wrong
// key, flipped ciphertext bit, flipped IV bit) surfaces as [ErrDecryption];
// corrupted plaintext is never returned silently.
func (e *envelopeService) Decrypt(ciphertextB64, ivB64 string, encKey []byte) ([]byte, error) {
	if len(encKey) != KeyLength {
		return nil, ErrInvalidKeyLength
	}

	ciphertext, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}
	iv, err := base64.StdEncoding.DecodeString(ivB64)
	if err != nil {
		return nil, fmt.Errorf("decode iv: %w", err)
	}
	if len(iv) != ivLength {
		return nil, ErrDecryption
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivLength)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}

	plaintext, err := gcm.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryption
	}

	return plaintext, nil
}
