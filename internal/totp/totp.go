// Package totp implements time-based one-time passwords for the second
// authentication factor, plus the single-use backup codes handed out at
// enrollment.
package totp

import (
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
)

const (
	// secretLength is the raw entropy behind a shared secret, in bytes.
	secretLength = 32

	// period is the code rotation interval in seconds.
	period = 30

	// skew is how many adjacent periods are accepted around "now".
	skew = 1

	backupCodeCount    = 10
	backupCodeGroupLen = 4
)

// backupCodeAlphabet omits characters that read ambiguously (0/O, 1/I/L).
const backupCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

var codeFormat = regexp.MustCompile(`^\d{6}$`)

// ErrNoSecret is returned when a code is checked against an empty secret.
var ErrNoSecret = errors.New("totp: no shared secret")

// Service issues and verifies TOTP codes. Codes are 6 digits, SHA-1,
// rotating every 30 seconds, which is what authenticator apps expect by
// default.
type Service struct {
	issuer     string
	bcryptCost int
}

// NewService returns a Service whose provisioning URIs carry the given
// issuer label and whose backup code hashes use the given bcrypt cost.
func NewService(issuer string, bcryptCost int) *Service {
	return &Service{issuer: issuer, bcryptCost: bcryptCost}
}

// GenerateSecret produces a fresh base32 shared secret.
func (s *Service) GenerateSecret() (string, error) {
	raw := make([]byte, secretLength)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate totp secret: %w", err)
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw), nil
}

// ProvisioningURI renders the otpauth:// URL an authenticator app scans
// from a QR code.
func (s *Service) ProvisioningURI(account, secret string) string {
	label := url.PathEscape(s.issuer + ":" + account)
	params := url.Values{}
	params.Set("secret", secret)
	params.Set("issuer", s.issuer)
	params.Set("algorithm", "SHA1")
	params.Set("digits", "6")
	params.Set("period", "30")
	return "otpauth://totp/" + label + "?" + params.Encode()
}

// Code computes the code valid at the given instant. Used by the client
// and by tests; the server side only ever verifies.
func (s *Service) Code(secret string, at time.Time) (string, error) {
	if secret == "" {
		return "", ErrNoSecret
	}
	code, err := totp.GenerateCodeCustom(secret, at, validateOpts())
	if err != nil {
		return "", fmt.Errorf("generate totp code: %w", err)
	}
	return code, nil
}

// Verify reports whether code is valid for secret at the given instant,
// accepting one period of clock drift in either direction.
func (s *Service) Verify(secret, code string, at time.Time) bool {
	if secret == "" || !s.IsValidFormat(code) {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, at, validateOpts())
	return err == nil && ok
}

// IsValidFormat reports whether code looks like a TOTP code at all.
// Callers use it to tell a malformed code apart from a wrong one.
func (s *Service) IsValidFormat(code string) bool {
	return codeFormat.MatchString(code)
}

// GenerateBackupCodes produces the single-use recovery codes shown once
// at enrollment, formatted XXXX-XXXX.
func (s *Service) GenerateBackupCodes() ([]string, error) {
	codes := make([]string, 0, backupCodeCount)
	for i := 0; i < backupCodeCount; i++ {
		left, err := randomGroup()
		if err != nil {
			return nil, err
		}
		right, err := randomGroup()
		if err != nil {
			return nil, err
		}
		codes = append(codes, left+"-"+right)
	}
	return codes, nil
}

// HashBackupCodes bcrypt-hashes codes for storage. Plaintext codes are
// never persisted.
func (s *Service) HashBackupCodes(codes []string) ([]string, error) {
	hashes := make([]string, 0, len(codes))
	for _, code := range codes {
		hash, err := bcrypt.GenerateFromPassword([]byte(code), s.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash backup code: %w", err)
		}
		hashes = append(hashes, string(hash))
	}
	return hashes, nil
}

// VerifyBackupCode checks code against the stored hashes and returns the
// index of the matching hash, so the caller can burn it.
func (s *Service) VerifyBackupCode(hashes []string, code string) (int, bool) {
	for i, hash := range hashes {
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil {
			return i, true
		}
	}
	return -1, false
}

func validateOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    period,
		Skew:      skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

func randomGroup() (string, error) {
	buf := make([]byte, backupCodeGroupLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate backup code: %w", err)
	}
	out := make([]byte, backupCodeGroupLen)
	for i, b := range buf {
		out[i] = backupCodeAlphabet[int(b)%len(backupCodeAlphabet)]
	}
	return string(out), nil
}
