package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/logon-vault/logon-server/internal/config"
	"github.com/logon-vault/logon-server/internal/logger"
	"github.com/logon-vault/logon-server/models"
)

// tokenService is the concrete implementation of TokenService. It signs
// HMAC-SHA256 token pairs: a short-lived access token carrying the user's
// email and a long-lived refresh token carrying only the subject ID. The
// two tokens use distinct secrets, so a leaked refresh secret cannot mint
// access tokens and vice versa.
type tokenService struct {
	// accessSecret signs and verifies access tokens.
	accessSecret string

	// refreshSecret signs and verifies refresh tokens.
	refreshSecret string

	// issuer is the "iss" claim embedded in every issued token.
	// Tokens whose issuer does not match this value are rejected during parsing.
	issuer string

	// audience is the "aud" claim embedded in every issued token.
	audience string

	// accessTTL and refreshTTL control the lifetimes of newly issued tokens.
	accessTTL  time.Duration
	refreshTTL time.Duration

	// logger is the structured logger used for diagnostic and error output.
	logger *logger.Logger
}

// NewTokenService constructs a TokenService from the auth configuration.
//
// The returned service is safe for concurrent use; all state is read-only
// after construction.
func NewTokenService(cfg config.Auth, logger *logger.Logger) TokenService {
	return &tokenService{
		accessSecret:  cfg.AccessTokenSecret,
		refreshSecret: cfg.RefreshTokenSecret,
		issuer:        cfg.TokenIssuer,
		audience:      cfg.TokenAudience,
		accessTTL:     cfg.AccessTokenTTL,
		refreshTTL:    cfg.RefreshTokenTTL,
		logger:        logger,
	}
}

// IssuePair signs a fresh access/refresh token pair for the given user.
func (t *tokenService) IssuePair(ctx context.Context, user models.User) (models.TokenPair, error) {
	log := logger.FromContext(ctx)

	accessToken, err := t.sign(user, models.TokenTypeAccess, t.accessTTL, t.accessSecret)
	if err != nil {
		log.Err(err).Str("func", "*tokenService.IssuePair").Msg("signing access token failed")
		return models.TokenPair{}, fmt.Errorf("%w: %w", ErrTokenCreationFailed, err)
	}

	refreshToken, err := t.sign(user, models.TokenTypeRefresh, t.refreshTTL, t.refreshSecret)
	if err != nil {
		log.Err(err).Str("func", "*tokenService.IssuePair").Msg("signing refresh token failed")
		return models.TokenPair{}, fmt.Errorf("%w: %w", ErrTokenCreationFailed, err)
	}

	return models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(t.accessTTL.Seconds()),
		TokenType:    "Bearer",
	}, nil
}

// ParseAccessToken validates a raw access token string.
//
// Signature, issuer, audience, expiry, and the type claim are all checked.
// Any failure is normalised to ErrTokenIsExpiredOrInvalid so that callers
// do not need to inspect low-level JWT errors.
func (t *tokenService) ParseAccessToken(ctx context.Context, tokenString string) (*models.TokenClaims, error) {
	return t.parse(ctx, tokenString, models.TokenTypeAccess, t.accessSecret)
}

// ParseRefreshToken validates a raw refresh token string. An access token
// presented here fails the type check even before the signature check can
// reject it.
func (t *tokenService) ParseRefreshToken(ctx context.Context, tokenString string) (*models.TokenClaims, error) {
	return t.parse(ctx, tokenString, models.TokenTypeRefresh, t.refreshSecret)
}

func (t *tokenService) sign(user models.User, tokenType string, ttl time.Duration, secret string) (string, error) {
	if t.issuer == "" || ttl == 0 || secret == "" {
		return "", fmt.Errorf("invalid params for generating %s token", tokenType)
	}

	now := time.Now()
	claims := &models.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Audience:  jwt.ClaimStrings{t.audience},
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		TokenType: tokenType,
	}
	if tokenType == models.TokenTypeAccess {
		claims.Email = user.Email
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func (t *tokenService) parse(ctx context.Context, tokenString, wantType, secret string) (*models.TokenClaims, error) {
	log := logger.FromContext(ctx)

	claims := &models.TokenClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithAudience(t.audience),
	)
	if err != nil {
		// Callers see one generic error, but the concrete failure is
		// worth keeping in the logs.
		log.Debug().Str("token_type", wantType).Str("reason", rejectionReason(err)).Msg("token rejected")
		return nil, ErrTokenIsExpiredOrInvalid
	}

	if claims.TokenType != wantType {
		log.Debug().Str("token_type", wantType).Str("reason", "wrong type claim").Msg("token rejected")
		return nil, ErrTokenIsExpiredOrInvalid
	}
	if claims.Subject == "" {
		log.Debug().Str("token_type", wantType).Str("reason", "missing subject").Msg("token rejected")
		return nil, ErrTokenIsExpiredOrInvalid
	}

	return claims, nil
}

// rejectionReason names the jwt failure subtype for the logs.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "invalid signature"
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return "wrong issuer"
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return "wrong audience"
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return "not valid yet"
	default:
		return err.Error()
	}
}
