package service

//go:generate mockgen -source=interfaces.go -destination=../mock/service_mock.go -package=mock

import (
	"context"

	"github.com/google/uuid"
	"github.com/logon-vault/logon-server/models"
)

// AuthService drives the authentication state machine: registration, the
// two-step login (password, then optional second factor), token refresh,
// account recovery, and second-factor enrollment.
type AuthService interface {
	Register(ctx context.Context, req models.RegisterRequest) (models.User, error)
	Login(ctx context.Context, req models.LoginRequest) (models.LoginResponse, error)
	VerifyTwoFactor(ctx context.Context, req models.Verify2FARequest) (models.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	Recover(ctx context.Context, req models.RecoverRequest) error
	SetupTwoFactor(ctx context.Context, userID uuid.UUID) (models.TwoFactorSetup, error)
	EnableTwoFactor(ctx context.Context, userID uuid.UUID, code string) error

	// SweepExpired drops pending logins whose second-factor window has
	// closed and reports how many were removed.
	SweepExpired() int
}

// TokenService issues and validates the signed token pairs backing
// authenticated sessions. Access and refresh tokens use distinct secrets
// and carry a type claim, so neither can stand in for the other.
type TokenService interface {
	IssuePair(ctx context.Context, user models.User) (models.TokenPair, error)
	ParseAccessToken(ctx context.Context, tokenString string) (*models.TokenClaims, error)
	ParseRefreshToken(ctx context.Context, tokenString string) (*models.TokenClaims, error)
}

// SaltService answers salt lookups identically for known and unknown
// identifiers, so the endpoint cannot be used to enumerate accounts.
type SaltService interface {
	SaltForIdentifier(ctx context.Context, identifier string) (models.SaltResponse, error)

	// SweepExpired drops cached salt responses past their TTL and reports
	// how many were removed.
	SweepExpired() int
}

// GroupKeyService rotates group keys and serves each member their wrapped
// copy. The fresh key exists only transiently during rotation; storage only
// ever sees copies wrapped under member public keys.
type GroupKeyService interface {
	RotateKey(ctx context.Context, groupID uuid.UUID, members []models.GroupMember) (models.GroupKeyRotation, error)
	MemberKey(ctx context.Context, groupID, userID uuid.UUID) (models.WrappedGroupKey, error)
}
