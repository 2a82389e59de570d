package models

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token type values carried in the "type" claim. Access and refresh tokens
// are signed with distinct secrets, but the claim keeps them apart even if
// the secrets were ever misconfigured to the same value.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenClaims is the claim set embedded in every issued token. Access tokens
// carry the subject's email for convenience; refresh tokens carry only the
// subject ID to minimise the blast radius of a leaked refresh token.
type TokenClaims struct {
	jwt.RegisteredClaims

	// TokenType distinguishes access from refresh tokens ("access"/"refresh").
	TokenType string `json:"type"`

	// Email is present on access tokens only.
	Email string `json:"email,omitempty"`
}

// UserID parses the subject claim as a user UUID.
func (c *TokenClaims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// TokenPair is the issued access/refresh token pair returned to a client
// after successful authentication.
type TokenPair struct {
	// AccessToken is the short-lived signed token (header.payload.signature).
	AccessToken string `json:"accessToken"`

	// RefreshToken is the long-lived signed token accepted only by the
	// refresh operation.
	RefreshToken string `json:"refreshToken"`

	// ExpiresIn is the access-token lifetime in seconds.
	ExpiresIn int64 `json:"expiresIn"`

	// TokenType is the authorization scheme, always "Bearer".
	TokenType string `json:"tokenType"`
}
