package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/logon-vault/logon-server/internal/logger"
	"github.com/logon-vault/logon-server/internal/mock"
	"github.com/logon-vault/logon-server/internal/service"
	"github.com/logon-vault/logon-server/internal/store"
	"github.com/logon-vault/logon-server/models"
)

// ─────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────

type serviceMocks struct {
	auth      *mock.MockAuthService
	tokens    *mock.MockTokenService
	salts     *mock.MockSaltService
	groupKeys *mock.MockGroupKeyService
}

// newTestRouter builds the full router on top of mocked services, so tests
// exercise routing and middleware exactly as production requests do.
func newTestRouter(t *testing.T) (*chi.Mux, *serviceMocks) {
	t.Helper()

	ctrl := gomock.NewController(t)
	m := &serviceMocks{
		auth:      mock.NewMockAuthService(ctrl),
		tokens:    mock.NewMockTokenService(ctrl),
		salts:     mock.NewMockSaltService(ctrl),
		groupKeys: mock.NewMockGroupKeyService(ctrl),
	}

	h := NewHandler(&service.Services{
		AuthService:     m.auth,
		TokenService:    m.tokens,
		SaltService:     m.salts,
		GroupKeyService: m.groupKeys,
	}, logger.Nop())

	return h.Init(), m
}

// doJSON performs a request with a JSON-encoded body against the router.
func doJSON(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// authorizeRequest arranges for the auth middleware to accept the token
// "valid-access-token" as userID.
func authorizeRequest(m *serviceMocks, userID uuid.UUID) {
	claims := &models.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID.String()},
		TokenType:        models.TokenTypeAccess,
	}
	m.tokens.EXPECT().
		ParseAccessToken(gomock.Any(), "valid-access-token").
		Return(claims, nil)
}

// doAuthedJSON is doJSON with a valid bearer token attached.
func doAuthedJSON(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer valid-access-token")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// ─────────────────────────────────────────────
// POST /api/auth/register
// ─────────────────────────────────────────────

func TestHandler_Register_Success(t *testing.T) {
	router, m := newTestRouter(t)

	req := models.RegisterRequest{
		Email:            "user@example.com",
		Username:         "user",
		AuthHash:         "auth-hash",
		Salt:             "c2FsdA==",
		RecoveryCodeHash: "recovery-hash",
		RecoveryCodeSalt: "cmVjb3Zlcnk=",
	}
	userID := uuid.New()
	m.auth.EXPECT().
		Register(gomock.Any(), req).
		Return(models.User{
			ID:        userID,
			Email:     req.Email,
			Username:  req.Username,
			IsActive:  true,
			CreatedAt: time.Now(),
		}, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/auth/register", req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var summary models.UserSummary
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&summary))
	assert.Equal(t, userID, summary.ID)
	assert.Equal(t, "user@example.com", summary.Email)
	assert.True(t, summary.IsActive)
	assert.False(t, summary.TwoFactorEnabled)
}

func TestHandler_Register_InvalidJSON(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Register_InvalidData(t *testing.T) {
	router, m := newTestRouter(t)

	m.auth.EXPECT().
		Register(gomock.Any(), gomock.Any()).
		Return(models.User{}, service.ErrInvalidDataProvided)

	rec := doJSON(t, router, http.MethodPost, "/api/auth/register", models.RegisterRequest{Email: "bad"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Register_DuplicateEmail(t *testing.T) {
	router, m := newTestRouter(t)

	m.auth.EXPECT().
		Register(gomock.Any(), gomock.Any()).
		Return(models.User{}, store.ErrEmailAlreadyExists)

	rec := doJSON(t, router, http.MethodPost, "/api/auth/register", models.RegisterRequest{Email: "user@example.com"})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "email already exists")
}

func TestHandler_Register_DuplicateUsername(t *testing.T) {
	router, m := newTestRouter(t)

	m.auth.EXPECT().
		Register(gomock.Any(), gomock.Any()).
		Return(models.User{}, store.ErrUsernameAlreadyExists)

	rec := doJSON(t, router, http.MethodPost, "/api/auth/register", models.RegisterRequest{Username: "user"})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "username already exists")
}

// ─────────────────────────────────────────────
// POST /api/auth/salt
// ─────────────────────────────────────────────

func TestHandler_Salt_Success(t *testing.T) {
	router, m := newTestRouter(t)

	m.salts.EXPECT().
		SaltForIdentifier(gomock.Any(), "user@example.com").
		Return(models.SaltResponse{Salt: "c2FsdA==", RecoverySalt: "cmVjb3Zlcnk=", Exists: true}, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/auth/salt", models.SaltRequest{Email: "user@example.com"})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.SaltResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "c2FsdA==", resp.Salt)
	assert.Equal(t, "cmVjb3Zlcnk=", resp.RecoverySalt)
	assert.True(t, resp.Exists)
}

func TestHandler_Salt_UnknownIdentifierStillOK(t *testing.T) {
	router, m := newTestRouter(t)

	m.salts.EXPECT().
		SaltForIdentifier(gomock.Any(), "ghost@example.com").
		Return(models.SaltResponse{Salt: "ZGVjb3k=", RecoverySalt: "ZGVjb3ky", Exists: false}, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/auth/salt", models.SaltRequest{Email: "ghost@example.com"})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.SaltResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.Exists)
	assert.NotEmpty(t, resp.Salt)
}

// ─────────────────────────────────────────────
// POST /api/auth/login
// ─────────────────────────────────────────────

func TestHandler_Login_Success(t *testing.T) {
	router, m := newTestRouter(t)

	req := models.LoginRequest{Identifier: "user@example.com", AuthHash: "auth-hash"}
	m.auth.EXPECT().
		Login(gomock.Any(), req).
		Return(models.LoginResponse{
			Success: true,
			User:    &models.UserSummary{Email: "user@example.com"},
			Tokens:  &models.TokenPair{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer"},
		}, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/auth/login", req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.LoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Tokens)
	assert.Equal(t, "access", resp.Tokens.AccessToken)
}

func TestHandler_Login_TwoFactorRequired(t *testing.T) {
	router, m := newTestRouter(t)

	m.auth.EXPECT().
		Login(gomock.Any(), gomock.Any()).
		Return(models.LoginResponse{RequiresTwoFactor: true, Message: "two-factor code required"}, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/auth/login",
		models.LoginRequest{Identifier: "user@example.com", AuthHash: "auth-hash"})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.LoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.Success)
	assert.True(t, resp.RequiresTwoFactor)
	assert.Nil(t, resp.Tokens)
}

func TestHandler_Login_InvalidCredentials(t *testing.T) {
	router, m := newTestRouter(t)

	m.auth.EXPECT().
		Login(gomock.Any(), gomock.Any()).
		Return(models.LoginResponse{}, service.ErrInvalidCredentials)

	rec := doJSON(t, router, http.MethodPost, "/api/auth/login",
		models.LoginRequest{Identifier: "user@example.com", AuthHash: "wrong"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid credentials")
}

func TestHandler_Login_AccountLocked(t *testing.T) {
	router, m := newTestRouter(t)

	m.auth.EXPECT().
		Login(gomock.Any(), gomock.Any()).
		Return(models.LoginResponse{
			Message:           "account is temporarily locked",
			RetryAfterMinutes: 15,
		}, service.ErrAccountLocked)

	rec := doJSON(t, router, http.MethodPost, "/api/auth/login",
		models.LoginRequest{Identifier: "user@example.com", AuthHash: "auth-hash"})

	require.Equal(t, http.StatusLocked, rec.Code)
	assert.Equal(t, "900", rec.Header().Get("Retry-After"))

	var resp models.LoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 15, resp.RetryAfterMinutes)
}

// ─────────────────────────────────────────────
// POST /api/auth/verify-2fa
// ─────────────────────────────────────────────

func TestHandler_VerifyTwoFactor_Success(t *testing.T) {
	router, m := newTestRouter(t)

	req := models.Verify2FARequest{Email: "user@example.com", TwoFactorCode: "123456"}
	m.auth.EXPECT().
		VerifyTwoFactor(gomock.Any(), req).
		Return(models.LoginResponse{
			Success: true,
			Tokens:  &models.TokenPair{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer"},
		}, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/auth/verify-2fa", req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.LoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Tokens)
}

func TestHandler_VerifyTwoFactor_NotPending(t *testing.T) {
	router, m := newTestRouter(t)

	m.auth.EXPECT().
		VerifyTwoFactor(gomock.Any(), gomock.Any()).
		Return(models.LoginResponse{}, service.ErrTwoFactorNotPending)

	rec := doJSON(t, router, http.MethodPost, "/api/auth/verify-2fa",
		models.Verify2FARequest{Email: "user@example.com", TwoFactorCode: "123456"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "no pending two-factor login")
}

func TestHandler_VerifyTwoFactor_WrongCode(t *testing.T) {
	router, m := newTestRouter(t)

	m.auth.EXPECT().
		VerifyTwoFactor(gomock.Any(), gomock.Any()).
		Return(models.LoginResponse{}, service.ErrInvalidTwoFactorCode)

	rec := doJSON(t, router, http.MethodPost, "/api/auth/verify-2fa",
		models.Verify2FARequest{Email: "user@example.com", TwoFactorCode: "000000"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid two-factor code")
}

// ─────────────────────────────────────────────
// POST /api/auth/refresh
// ─────────────────────────────────────────────

func TestHandler_Refresh_Success(t *testing.T) {
	router, m := newTestRouter(t)

	m.auth.EXPECT().
		Refresh(gomock.Any(), "old-refresh-token").
		Return(models.TokenPair{AccessToken: "new-access", RefreshToken: "new-refresh", TokenType: "Bearer"}, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/auth/refresh",
		models.RefreshRequest{RefreshToken: "old-refresh-token"})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.RefreshResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Tokens)
	assert.Equal(t, "new-access", resp.Tokens.AccessToken)
	assert.Equal(t, "new-refresh", resp.Tokens.RefreshToken)
}

func TestHandler_Refresh_InvalidToken(t *testing.T) {
	router, m := newTestRouter(t)

	m.auth.EXPECT().
		Refresh(gomock.Any(), "expired").
		Return(models.TokenPair{}, service.ErrTokenIsExpiredOrInvalid)

	rec := doJSON(t, router, http.MethodPost, "/api/auth/refresh",
		models.RefreshRequest{RefreshToken: "expired"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// ─────────────────────────────────────────────
// POST /api/auth/recover
// ─────────────────────────────────────────────

func TestHandler_Recover_Success(t *testing.T) {
	router, m := newTestRouter(t)

	req := models.RecoverRequest{
		Email:               "user@example.com",
		RecoveryCodeHash:    "recovery-hash",
		NewAuthHash:         "new-auth-hash",
		NewSalt:             "bmV3LXNhbHQ=",
		NewRecoveryCodeHash: "new-recovery-hash",
		NewRecoveryCodeSalt: "bmV3LXJlY292ZXJ5",
	}
	m.auth.EXPECT().Recover(gomock.Any(), req).Return(nil)

	rec := doJSON(t, router, http.MethodPost, "/api/auth/recover", req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestHandler_Recover_Failed(t *testing.T) {
	router, m := newTestRouter(t)

	m.auth.EXPECT().
		Recover(gomock.Any(), gomock.Any()).
		Return(service.ErrRecoveryFailed)

	rec := doJSON(t, router, http.MethodPost, "/api/auth/recover",
		models.RecoverRequest{Email: "user@example.com", RecoveryCodeHash: "wrong"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "recovery failed")
}

// ─────────────────────────────────────────────
// POST /api/auth/logout
// ─────────────────────────────────────────────

func TestHandler_Logout_Success(t *testing.T) {
	router, m := newTestRouter(t)

	userID := uuid.New()
	authorizeRequest(m, userID)

	m.auth.EXPECT().Logout(gomock.Any(), userID).Return(nil)

	rec := doAuthedJSON(t, router, http.MethodPost, "/api/auth/logout", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.StatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
}

func TestHandler_Logout_WithoutToken(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/auth/logout", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_Recover_InvalidData(t *testing.T) {
	router, m := newTestRouter(t)

	m.auth.EXPECT().
		Recover(gomock.Any(), gomock.Any()).
		Return(service.ErrInvalidDataProvided)

	rec := doJSON(t, router, http.MethodPost, "/api/auth/recover", models.RecoverRequest{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
