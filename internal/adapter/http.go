package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/logon-vault/logon-server/internal/config"
	"github.com/logon-vault/logon-server/internal/logger"
	"github.com/logon-vault/logon-server/models"
)

type httpServerAdapter struct {
	client *resty.Client

	mu     sync.RWMutex
	tokens models.TokenPair

	logger *logger.Logger
}

// NewHTTPServerAdapter constructs an HTTP/REST implementation of
// [ServerAdapter]. It normalises and validates the base URL from
// cfg.ServerAddress and configures the underlying client with the resolved
// base URL and request timeout.
//
// Returns an error if cfg.ServerAddress is empty or cannot be parsed as a
// valid URL.
func NewHTTPServerAdapter(cfg config.Client, logger *logger.Logger) (ServerAdapter, error) {
	baseURL, err := normalizeBaseURL(cfg.ServerAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid server address: %w", err)
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(cfg.RequestTimeout)

	return &httpServerAdapter{client: client, logger: logger}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

// SetTokens implements [ServerAdapter].
func (h *httpServerAdapter) SetTokens(tokens models.TokenPair) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tokens = tokens
}

// Tokens implements [ServerAdapter].
func (h *httpServerAdapter) Tokens() models.TokenPair {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.tokens
}

// Register implements [ServerAdapter]. It POSTs the pre-derived credentials
// to POST /api/auth/register and returns the created account summary.
func (h *httpServerAdapter) Register(ctx context.Context, req models.RegisterRequest) (models.UserSummary, error) {
	var summary models.UserSummary

	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&summary).
		Post("/api/auth/register")
	if err != nil {
		return models.UserSummary{}, fmt.Errorf("register request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.UserSummary{}, err
	}

	return summary, nil
}

// RequestSalt implements [ServerAdapter]. It POSTs the email to
// POST /api/auth/salt. The answer is well-formed for every email; decoys are
// indistinguishable from real salts by shape.
func (h *httpServerAdapter) RequestSalt(ctx context.Context, email string) (models.SaltResponse, error) {
	var salt models.SaltResponse

	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(models.SaltRequest{Email: email}).
		SetResult(&salt).
		Post("/api/auth/salt")
	if err != nil {
		return models.SaltResponse{}, fmt.Errorf("salt request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.SaltResponse{}, err
	}

	return salt, nil
}

// Login implements [ServerAdapter]. It POSTs the pre-computed auth hash to
// POST /api/auth/login. When the response carries a full session the token
// pair is stored via SetTokens; a two-factor prompt leaves the stored
// tokens untouched.
func (h *httpServerAdapter) Login(ctx context.Context, req models.LoginRequest) (models.LoginResponse, error) {
	var loginResp models.LoginResponse

	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&loginResp).
		Post("/api/auth/login")
	if err != nil {
		return models.LoginResponse{}, fmt.Errorf("login request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.LoginResponse{}, err
	}

	if loginResp.Success && loginResp.Tokens != nil {
		h.SetTokens(*loginResp.Tokens)
	}

	return loginResp, nil
}

// VerifyTwoFactor implements [ServerAdapter]. It POSTs the code to
// POST /api/auth/verify-2fa and stores the returned token pair.
func (h *httpServerAdapter) VerifyTwoFactor(ctx context.Context, req models.Verify2FARequest) (models.LoginResponse, error) {
	var loginResp models.LoginResponse

	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&loginResp).
		Post("/api/auth/verify-2fa")
	if err != nil {
		return models.LoginResponse{}, fmt.Errorf("verify two-factor request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.LoginResponse{}, err
	}

	if loginResp.Success && loginResp.Tokens != nil {
		h.SetTokens(*loginResp.Tokens)
	}

	return loginResp, nil
}

// Refresh implements [ServerAdapter]. It exchanges the stored refresh token
// via POST /api/auth/refresh and stores the fresh pair.
func (h *httpServerAdapter) Refresh(ctx context.Context) (models.TokenPair, error) {
	current := h.Tokens()
	if current.RefreshToken == "" {
		return models.TokenPair{}, ErrNoSession
	}

	var refreshResp models.RefreshResponse

	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(models.RefreshRequest{RefreshToken: current.RefreshToken}).
		SetResult(&refreshResp).
		Post("/api/auth/refresh")
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("refresh request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.TokenPair{}, err
	}
	if refreshResp.Tokens == nil {
		return models.TokenPair{}, fmt.Errorf("refresh response carried no tokens")
	}

	h.SetTokens(*refreshResp.Tokens)
	return *refreshResp.Tokens, nil
}

// Logout implements [ServerAdapter]. It POSTs to POST /api/auth/logout with
// the stored access token, then drops the token pair regardless of the
// outcome. Without a stored session it returns [ErrNoSession].
func (h *httpServerAdapter) Logout(ctx context.Context) error {
	if h.Tokens().AccessToken == "" {
		return ErrNoSession
	}
	defer h.SetTokens(models.TokenPair{})

	resp, err := h.authedRequest(ctx).Post("/api/auth/logout")
	if err != nil {
		return fmt.Errorf("logout request: %w", err)
	}

	return mapHTTPError(resp)
}

// Recover implements [ServerAdapter]. It POSTs the replacement credential
// set to POST /api/auth/recover.
func (h *httpServerAdapter) Recover(ctx context.Context, req models.RecoverRequest) error {
	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post("/api/auth/recover")
	if err != nil {
		return fmt.Errorf("recover request: %w", err)
	}

	return mapHTTPError(resp)
}

// SetupTwoFactor implements [ServerAdapter]. Requires an open session.
func (h *httpServerAdapter) SetupTwoFactor(ctx context.Context) (models.TwoFactorSetup, error) {
	var setup models.TwoFactorSetup

	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetResult(&setup).
		Post("/api/auth/2fa/setup")
	if err != nil {
		return models.TwoFactorSetup{}, fmt.Errorf("two-factor setup request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.TwoFactorSetup{}, err
	}

	return setup, nil
}

// EnableTwoFactor implements [ServerAdapter]. Requires an open session.
func (h *httpServerAdapter) EnableTwoFactor(ctx context.Context, code string) error {
	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(models.EnableTwoFactorRequest{Code: code}).
		Post("/api/auth/2fa/enable")
	if err != nil {
		return fmt.Errorf("two-factor enable request: %w", err)
	}

	return mapHTTPError(resp)
}

// RotateGroupKey implements [ServerAdapter]. It POSTs the member key list to
// POST /api/groups/{id}/rotate-key. Returns [ErrConflict] (wrapped) when a
// concurrent rotation won the version race.
func (h *httpServerAdapter) RotateGroupKey(ctx context.Context, groupID uuid.UUID, req models.RotateGroupKeyRequest) (models.GroupKeyRotation, error) {
	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post("/api/groups/" + groupID.String() + "/rotate-key")
	if err != nil {
		return models.GroupKeyRotation{}, fmt.Errorf("rotate group key request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.GroupKeyRotation{}, err
	}

	var rotateResp models.RotateGroupKeyResponse
	if err = json.Unmarshal(resp.Body(), &rotateResp); err != nil {
		return models.GroupKeyRotation{}, fmt.Errorf("decode rotation response: %w", err)
	}
	if rotateResp.Rotation == nil {
		return models.GroupKeyRotation{}, fmt.Errorf("rotation response carried no rotation")
	}

	return *rotateResp.Rotation, nil
}

// GroupMemberKey implements [ServerAdapter]. It GETs the caller's wrapped
// copy of the current group key from GET /api/groups/{id}/key.
func (h *httpServerAdapter) GroupMemberKey(ctx context.Context, groupID uuid.UUID) (models.WrappedGroupKey, error) {
	var wrapped models.WrappedGroupKey

	resp, err := h.authedRequest(ctx).
		SetResult(&wrapped).
		Get("/api/groups/" + groupID.String() + "/key")
	if err != nil {
		return models.WrappedGroupKey{}, fmt.Errorf("group member key request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.WrappedGroupKey{}, err
	}

	return wrapped, nil
}

func (h *httpServerAdapter) authedRequest(ctx context.Context) *resty.Request {
	req := h.client.R().SetContext(ctx)
	if tokens := h.Tokens(); tokens.AccessToken != "" {
		req.SetHeader("Authorization", "Bearer "+tokens.AccessToken)
	}
	return req
}
