package client

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/logon-vault/logon-server/internal/adapter"
	"github.com/logon-vault/logon-server/internal/crypto"
	"github.com/logon-vault/logon-server/internal/logger"
	"github.com/logon-vault/logon-server/models"
)

// ErrNotLoggedIn is returned by session operations that need the encryption
// key before a login has derived one.
var ErrNotLoggedIn = errors.New("not logged in")

// recoveryCodeLength is the byte length of the random recovery code handed
// to the user at registration.
const recoveryCodeLength = 32

// Registration is the outcome of a successful registration: the account
// summary plus the recovery code. The code is shown exactly once and is the
// only way back into the account after a forgotten password.
type Registration struct {
	User         models.UserSummary
	RecoveryCode string
}

// Session drives the zero-knowledge authentication flows against the server
// and holds the encryption key of the active login.
type Session struct {
	server    adapter.ServerAdapter
	keys      crypto.KeyService
	envelopes crypto.EnvelopeService
	groups    crypto.GroupKeyService
	logger    *logger.Logger

	encKey []byte
}

// NewSession constructs a Session on top of the given server adapter.
func NewSession(server adapter.ServerAdapter, logger *logger.Logger) *Session {
	return &Session{
		server:    server,
		keys:      crypto.NewKeyService(),
		envelopes: crypto.NewEnvelopeService(),
		groups:    crypto.NewGroupKeyService(),
		logger:    logger,
	}
}

// Register creates an account. The password is stretched locally; the server
// sees only the one-way auth hash, the public salt, and the equivalent pair
// for the freshly generated recovery code.
func (s *Session) Register(ctx context.Context, email, username, password string) (Registration, error) {
	salt, err := s.keys.GenerateSalt()
	if err != nil {
		return Registration{}, fmt.Errorf("generating salt: %w", err)
	}

	pair, err := s.keys.DeriveKeys(password, salt)
	if err != nil {
		return Registration{}, fmt.Errorf("deriving keys: %w", err)
	}

	recoveryCode, err := generateRecoveryCode()
	if err != nil {
		return Registration{}, fmt.Errorf("generating recovery code: %w", err)
	}
	recoverySalt, err := s.keys.GenerateSalt()
	if err != nil {
		return Registration{}, fmt.Errorf("generating recovery salt: %w", err)
	}
	recoveryPair, err := s.keys.DeriveKeys(recoveryCode, recoverySalt)
	if err != nil {
		return Registration{}, fmt.Errorf("deriving recovery keys: %w", err)
	}

	user, err := s.server.Register(ctx, models.RegisterRequest{
		Email:            email,
		Username:         username,
		AuthHash:         base64.StdEncoding.EncodeToString(s.keys.HashAuthKey(pair.AuthKey)),
		Salt:             base64.StdEncoding.EncodeToString(salt),
		RecoveryCodeHash: base64.StdEncoding.EncodeToString(s.keys.HashAuthKey(recoveryPair.AuthKey)),
		RecoveryCodeSalt: base64.StdEncoding.EncodeToString(recoverySalt),
	})
	if err != nil {
		return Registration{}, err
	}

	return Registration{User: user, RecoveryCode: recoveryCode}, nil
}

// Login fetches the account's salt, derives the key pair locally, and runs
// the password step. On a full session the encryption key is retained for
// Seal and Open; a two-factor prompt keeps it pending until VerifyTwoFactor.
func (s *Session) Login(ctx context.Context, identifier, password, twoFactorCode string) (models.LoginResponse, error) {
	saltResp, err := s.server.RequestSalt(ctx, identifier)
	if err != nil {
		return models.LoginResponse{}, err
	}

	salt, err := base64.StdEncoding.DecodeString(saltResp.Salt)
	if err != nil {
		return models.LoginResponse{}, fmt.Errorf("decoding salt: %w", err)
	}

	pair, err := s.keys.DeriveKeys(password, salt)
	if err != nil {
		return models.LoginResponse{}, fmt.Errorf("deriving keys: %w", err)
	}

	resp, err := s.server.Login(ctx, models.LoginRequest{
		Identifier:    identifier,
		AuthHash:      base64.StdEncoding.EncodeToString(s.keys.HashAuthKey(pair.AuthKey)),
		TwoFactorCode: twoFactorCode,
	})
	if err != nil {
		return models.LoginResponse{}, err
	}

	if resp.Success {
		s.encKey = pair.EncKey
	} else if resp.RequiresTwoFactor {
		// The password checked out; keep the key so the verify step can
		// open the session without re-deriving.
		s.encKey = pair.EncKey
	}

	return resp, nil
}

// VerifyTwoFactor finishes a login the password step left pending.
func (s *Session) VerifyTwoFactor(ctx context.Context, email, code string) (models.LoginResponse, error) {
	return s.server.VerifyTwoFactor(ctx, models.Verify2FARequest{
		Email:         email,
		TwoFactorCode: code,
	})
}

// Recover replaces the whole credential set using the recovery code. A new
// password means a new salt, a new auth hash, and a fresh recovery pair;
// secrets sealed under the old encryption key must be re-sealed separately.
func (s *Session) Recover(ctx context.Context, email, recoveryCode, newPassword string) (string, error) {
	saltResp, err := s.server.RequestSalt(ctx, email)
	if err != nil {
		return "", err
	}

	// The salt endpoint serves the recovery salt alongside the login
	// salt (a decoy for unknown emails), so the recovery hash can be
	// recomputed without revealing whether the account exists.
	recoverySalt, err := base64.StdEncoding.DecodeString(saltResp.RecoverySalt)
	if err != nil {
		return "", fmt.Errorf("decoding recovery salt: %w", err)
	}
	recoveryPair, err := s.keys.DeriveKeys(recoveryCode, recoverySalt)
	if err != nil {
		return "", fmt.Errorf("deriving recovery keys: %w", err)
	}

	newSalt, err := s.keys.GenerateSalt()
	if err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	newPair, err := s.keys.DeriveKeys(newPassword, newSalt)
	if err != nil {
		return "", fmt.Errorf("deriving keys: %w", err)
	}

	newRecoveryCode, err := generateRecoveryCode()
	if err != nil {
		return "", fmt.Errorf("generating recovery code: %w", err)
	}
	newRecoverySalt, err := s.keys.GenerateSalt()
	if err != nil {
		return "", fmt.Errorf("generating recovery salt: %w", err)
	}
	newRecoveryPair, err := s.keys.DeriveKeys(newRecoveryCode, newRecoverySalt)
	if err != nil {
		return "", fmt.Errorf("deriving recovery keys: %w", err)
	}

	err = s.server.Recover(ctx, models.RecoverRequest{
		Email:               email,
		RecoveryCodeHash:    base64.StdEncoding.EncodeToString(s.keys.HashAuthKey(recoveryPair.AuthKey)),
		NewAuthHash:         base64.StdEncoding.EncodeToString(s.keys.HashAuthKey(newPair.AuthKey)),
		NewSalt:             base64.StdEncoding.EncodeToString(newSalt),
		NewRecoveryCodeHash: base64.StdEncoding.EncodeToString(s.keys.HashAuthKey(newRecoveryPair.AuthKey)),
		NewRecoveryCodeSalt: base64.StdEncoding.EncodeToString(newRecoverySalt),
	})
	if err != nil {
		return "", err
	}

	return newRecoveryCode, nil
}

// Seal encrypts a secret under the session's encryption key. The server only
// ever sees the resulting envelope.
func (s *Session) Seal(plaintext []byte) (crypto.Envelope, error) {
	if s.encKey == nil {
		return crypto.Envelope{}, ErrNotLoggedIn
	}
	return s.envelopes.Encrypt(plaintext, s.encKey)
}

// Open decrypts an envelope sealed under the session's encryption key.
func (s *Session) Open(envelope crypto.Envelope) ([]byte, error) {
	if s.encKey == nil {
		return nil, ErrNotLoggedIn
	}
	return s.envelopes.Decrypt(envelope.Ciphertext, envelope.IV, s.encKey)
}

// GenerateKeyPair produces a fresh RSA keypair for group membership. The
// private half stays with the caller; only the public half is registered
// with groups.
func (s *Session) GenerateKeyPair() (crypto.UserKeyPair, error) {
	return s.groups.GenerateUserKeyPair()
}

// UnwrapGroupKey fetches the caller's wrapped copy of a group's current key
// and unwraps it with the supplied private key.
func (s *Session) UnwrapGroupKey(ctx context.Context, groupID uuid.UUID, privateKeyB64 string) ([]byte, int, error) {
	wrapped, err := s.server.GroupMemberKey(ctx, groupID)
	if err != nil {
		return nil, 0, err
	}

	groupKey, err := s.groups.DecryptGroupKeyForUser(wrapped.WrappedKey, privateKeyB64)
	if err != nil {
		return nil, 0, fmt.Errorf("unwrapping group key: %w", err)
	}

	return groupKey, wrapped.KeyVersion, nil
}

// Logout tells the server the session is over and wipes the encryption
// key. The server call is advisory; the key is wiped even when it fails.
func (s *Session) Logout(ctx context.Context) {
	if err := s.server.Logout(ctx); err != nil && !errors.Is(err, adapter.ErrNoSession) {
		s.logger.Warn().Err(err).Msg("server logout failed")
	}

	for i := range s.encKey {
		s.encKey[i] = 0
	}
	s.encKey = nil
}

func generateRecoveryCode() (string, error) {
	code := make([]byte, recoveryCodeLength)
	if _, err := io.ReadFull(rand.Reader, code); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(code), nil
}
