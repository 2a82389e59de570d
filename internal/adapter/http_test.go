package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logon-vault/logon-server/internal/config"
	"github.com/logon-vault/logon-server/internal/logger"
	"github.com/logon-vault/logon-server/models"
)

// newTestAdapter creates an httpServerAdapter pointed at the test server.
func newTestAdapter(t *testing.T, serverURL string) *httpServerAdapter {
	t.Helper()

	cfg := config.Client{ServerAddress: serverURL, RequestTimeout: 5 * time.Second}
	a, err := NewHTTPServerAdapter(cfg, logger.Nop())
	require.NoError(t, err)
	return a.(*httpServerAdapter)
}

// ── NewHTTPServerAdapter ────────────────────────────────────────────────────

func TestNewHTTPServerAdapter_EmptyAddress(t *testing.T) {
	_, err := NewHTTPServerAdapter(config.Client{ServerAddress: "   "}, logger.Nop())
	require.Error(t, err)
}

func TestNewHTTPServerAdapter_SchemelessAddress(t *testing.T) {
	a, err := NewHTTPServerAdapter(config.Client{ServerAddress: "localhost:8080"}, logger.Nop())
	require.NoError(t, err)
	require.NotNil(t, a)
}

// ── Register ────────────────────────────────────────────────────────────────

func TestAdapter_Register_Success(t *testing.T) {
	userID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/register", r.URL.Path)

		var req models.RegisterRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "alice@example.com", req.Email)
		assert.NotEmpty(t, req.AuthHash)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(models.UserSummary{ID: userID, Email: req.Email, IsActive: true})
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	got, err := a.Register(context.Background(), models.RegisterRequest{
		Email:    "alice@example.com",
		AuthHash: "auth-hash",
	})

	require.NoError(t, err)
	assert.Equal(t, userID, got.ID)
	assert.Equal(t, "alice@example.com", got.Email)
}

func TestAdapter_Register_Conflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte("email already exists"))
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	_, err := a.Register(context.Background(), models.RegisterRequest{Email: "alice@example.com"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)
}

// ── RequestSalt ─────────────────────────────────────────────────────────────

func TestAdapter_RequestSalt_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/salt", r.URL.Path)

		var req models.SaltRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "alice@example.com", req.Email)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(models.SaltResponse{Salt: "c2FsdA==", RecoverySalt: "cg==", Exists: true})
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	got, err := a.RequestSalt(context.Background(), "alice@example.com")

	require.NoError(t, err)
	assert.Equal(t, "c2FsdA==", got.Salt)
	assert.Equal(t, "cg==", got.RecoverySalt)
}

func TestAdapter_RequestSalt_TooManyRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("too many requests"))
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	_, err := a.RequestSalt(context.Background(), "alice@example.com")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTooManyRequests)
}

// ── Login ───────────────────────────────────────────────────────────────────

func TestAdapter_Login_StoresTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(models.LoginResponse{
			Success: true,
			Tokens:  &models.TokenPair{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer"},
		})
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	got, err := a.Login(context.Background(), models.LoginRequest{Identifier: "alice@example.com", AuthHash: "hash"})

	require.NoError(t, err)
	assert.True(t, got.Success)
	assert.Equal(t, "access", a.Tokens().AccessToken)
	assert.Equal(t, "refresh", a.Tokens().RefreshToken)
}

func TestAdapter_Login_TwoFactorPromptKeepsTokensEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(models.LoginResponse{RequiresTwoFactor: true})
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	got, err := a.Login(context.Background(), models.LoginRequest{Identifier: "alice@example.com", AuthHash: "hash"})

	require.NoError(t, err)
	assert.True(t, got.RequiresTwoFactor)
	assert.Empty(t, a.Tokens().AccessToken)
}

func TestAdapter_Login_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("invalid credentials"))
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	_, err := a.Login(context.Background(), models.LoginRequest{Identifier: "alice@example.com", AuthHash: "bad"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAdapter_Login_AccountLocked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "900")
		w.WriteHeader(http.StatusLocked)
		_, _ = w.Write([]byte(`{"retryAfter":15}`))
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	_, err := a.Login(context.Background(), models.LoginRequest{Identifier: "alice@example.com", AuthHash: "hash"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAccountLocked)
}

// ── VerifyTwoFactor ─────────────────────────────────────────────────────────

func TestAdapter_VerifyTwoFactor_StoresTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/verify-2fa", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(models.LoginResponse{
			Success: true,
			Tokens:  &models.TokenPair{AccessToken: "access-2fa", RefreshToken: "refresh-2fa", TokenType: "Bearer"},
		})
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	got, err := a.VerifyTwoFactor(context.Background(), models.Verify2FARequest{Email: "alice@example.com", TwoFactorCode: "123456"})

	require.NoError(t, err)
	assert.True(t, got.Success)
	assert.Equal(t, "access-2fa", a.Tokens().AccessToken)
}

// ── Refresh ─────────────────────────────────────────────────────────────────

func TestAdapter_Refresh_WithoutSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected without a stored refresh token")
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	_, err := a.Refresh(context.Background())

	assert.ErrorIs(t, err, ErrNoSession)
}

func TestAdapter_Refresh_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/refresh", r.URL.Path)

		var req models.RefreshRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "old-refresh", req.RefreshToken)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(models.RefreshResponse{
			Success: true,
			Tokens:  &models.TokenPair{AccessToken: "new-access", RefreshToken: "new-refresh", TokenType: "Bearer"},
		})
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	a.SetTokens(models.TokenPair{AccessToken: "old-access", RefreshToken: "old-refresh"})

	got, err := a.Refresh(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "new-access", got.AccessToken)
	assert.Equal(t, "new-refresh", a.Tokens().RefreshToken)
}

func TestAdapter_Refresh_Expired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("invalid or expired refresh token"))
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	a.SetTokens(models.TokenPair{RefreshToken: "expired"})

	_, err := a.Refresh(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

// ── Logout ──────────────────────────────────────────────────────────────────

func TestAdapter_Logout_ClearsTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/logout", r.URL.Path)
		assert.Equal(t, "Bearer access-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(models.StatusResponse{Success: true})
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	a.SetTokens(models.TokenPair{AccessToken: "access-token", RefreshToken: "refresh-token"})

	require.NoError(t, a.Logout(context.Background()))
	assert.Empty(t, a.Tokens().AccessToken)
	assert.Empty(t, a.Tokens().RefreshToken)
}

func TestAdapter_Logout_WithoutSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected without a stored session")
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)

	assert.ErrorIs(t, a.Logout(context.Background()), ErrNoSession)
}

// ── Authenticated requests ──────────────────────────────────────────────────

func TestAdapter_SetupTwoFactor_SendsBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/2fa/setup", r.URL.Path)
		assert.Equal(t, "Bearer access-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(models.TwoFactorSetup{ManualEntryKey: "JBSWY3DPEHPK3PXP"})
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	a.SetTokens(models.TokenPair{AccessToken: "access-token"})

	setup, err := a.SetupTwoFactor(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", setup.ManualEntryKey)
}

// ── Group keys ──────────────────────────────────────────────────────────────

func TestAdapter_RotateGroupKey_Success(t *testing.T) {
	groupID := uuid.New()
	memberID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/groups/"+groupID.String()+"/rotate-key", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(models.RotateGroupKeyResponse{
			Success: true,
			Rotation: &models.GroupKeyRotation{
				GroupID:    groupID,
				KeyVersion: 4,
				WrappedKeys: []models.WrappedGroupKey{
					{GroupID: groupID, UserID: memberID, WrappedKey: "wrapped", KeyVersion: 4},
				},
			},
		})
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	a.SetTokens(models.TokenPair{AccessToken: "access-token"})

	rotation, err := a.RotateGroupKey(context.Background(), groupID, models.RotateGroupKeyRequest{
		Members: []models.GroupMember{{UserID: memberID, PublicKey: "pk"}},
	})

	require.NoError(t, err)
	assert.Equal(t, 4, rotation.KeyVersion)
	require.Len(t, rotation.WrappedKeys, 1)
}

func TestAdapter_RotateGroupKey_Conflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte("group key was rotated concurrently"))
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	a.SetTokens(models.TokenPair{AccessToken: "access-token"})

	_, err := a.RotateGroupKey(context.Background(), uuid.New(), models.RotateGroupKeyRequest{})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestAdapter_GroupMemberKey_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("no key for this group and member"))
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	a.SetTokens(models.TokenPair{AccessToken: "access-token"})

	_, err := a.GroupMemberKey(context.Background(), uuid.New())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}
