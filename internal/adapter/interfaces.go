// Package adapter provides transport-layer abstractions for communicating
// with the logon server.
//
// The primary abstraction is [ServerAdapter], which decouples the client's
// session logic from the underlying protocol. The package ships an HTTP/REST
// implementation ([NewHTTPServerAdapter]).
//
// Error values defined in errors.go are mapped from HTTP status codes by
// mapHTTPError so that callers can use [errors.Is] for transport-agnostic
// error handling (e.g. [ErrConflict] for 409, [ErrUnauthorized] for 401).
package adapter

import (
	"context"

	"github.com/google/uuid"

	"github.com/logon-vault/logon-server/models"
)

// ServerAdapter defines transport-agnostic communication with the logon
// server. Implementations are responsible for serialisation, authentication
// header management, and mapping transport-level errors to the sentinel
// values defined in this package.
type ServerAdapter interface {
	// SetTokens stores the token pair that authenticates all subsequent
	// requests. It should be called immediately after a successful Login,
	// VerifyTwoFactor, or Refresh.
	SetTokens(tokens models.TokenPair)

	// Tokens returns the token pair currently stored in the adapter. The
	// zero value means no session is open.
	Tokens() models.TokenPair

	// Register creates an account from pre-derived credentials. The request
	// carries only the one-way auth hash and the public salt; the password
	// itself never leaves the caller.
	Register(ctx context.Context, req models.RegisterRequest) (models.UserSummary, error)

	// RequestSalt fetches the key-derivation salt answer for an email.
	// The server answers for every well-formed email, so the result's
	// Exists flag is the only account-existence signal.
	RequestSalt(ctx context.Context, email string) (models.SaltResponse, error)

	// Login runs the password step. If the account has a second factor the
	// response asks for a code instead of opening a session. On a full
	// session the returned tokens are stored via SetTokens.
	Login(ctx context.Context, req models.LoginRequest) (models.LoginResponse, error)

	// VerifyTwoFactor finishes a login that the password step left pending.
	// On success the returned tokens are stored via SetTokens.
	VerifyTwoFactor(ctx context.Context, req models.Verify2FARequest) (models.LoginResponse, error)

	// Refresh exchanges the stored refresh token for a fresh pair and
	// stores it.
	Refresh(ctx context.Context) (models.TokenPair, error)

	// Logout tells the server the session is over and drops the stored
	// token pair. The server call is advisory; the tokens are cleared
	// even when it fails.
	Logout(ctx context.Context) error

	// Recover replaces the account's credential set after proving
	// possession of the recovery code.
	Recover(ctx context.Context, req models.RecoverRequest) error

	// SetupTwoFactor starts two-factor enrollment for the authenticated
	// user. The response carries the provisioning URI and the plaintext
	// backup codes exactly once.
	SetupTwoFactor(ctx context.Context) (models.TwoFactorSetup, error)

	// EnableTwoFactor confirms enrollment with a code from the
	// authenticator.
	EnableTwoFactor(ctx context.Context, code string) error

	// RotateGroupKey asks the server to issue the next key version for a
	// group, wrapped for every supplied member.
	RotateGroupKey(ctx context.Context, groupID uuid.UUID, req models.RotateGroupKeyRequest) (models.GroupKeyRotation, error)

	// GroupMemberKey fetches the caller's wrapped copy of the group's
	// current key.
	GroupMemberKey(ctx context.Context, groupID uuid.UUID) (models.WrappedGroupKey, error)
}
