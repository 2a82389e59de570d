package http

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/logon-vault/logon-server/internal/service"
	"github.com/logon-vault/logon-server/models"
)

// ─────────────────────────────────────────────
// POST /api/auth/2fa/setup
// ─────────────────────────────────────────────

func TestHandler_SetupTwoFactor_Success(t *testing.T) {
	router, m := newTestRouter(t)

	userID := uuid.New()
	authorizeRequest(m, userID)

	m.auth.EXPECT().
		SetupTwoFactor(gomock.Any(), userID).
		Return(models.TwoFactorSetup{
			QRCodeURI:      "otpauth://totp/logon-vault:user@example.com?secret=JBSWY3DPEHPK3PXP",
			ManualEntryKey: "JBSWY3DPEHPK3PXP",
			BackupCodes:    []string{"AAAA-AAAA", "BBBB-BBBB"},
		}, nil)

	rec := doAuthedJSON(t, router, http.MethodPost, "/api/auth/2fa/setup", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var setup models.TwoFactorSetup
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&setup))
	assert.Contains(t, setup.QRCodeURI, "otpauth://totp/")
	assert.Equal(t, "JBSWY3DPEHPK3PXP", setup.ManualEntryKey)
	assert.Len(t, setup.BackupCodes, 2)
}

func TestHandler_SetupTwoFactor_AlreadyEnabled(t *testing.T) {
	router, m := newTestRouter(t)

	userID := uuid.New()
	authorizeRequest(m, userID)

	m.auth.EXPECT().
		SetupTwoFactor(gomock.Any(), userID).
		Return(models.TwoFactorSetup{}, service.ErrTwoFactorAlreadyEnabled)

	rec := doAuthedJSON(t, router, http.MethodPost, "/api/auth/2fa/setup", nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already enabled")
}

// ─────────────────────────────────────────────
// POST /api/auth/2fa/enable
// ─────────────────────────────────────────────

func TestHandler_EnableTwoFactor_Success(t *testing.T) {
	router, m := newTestRouter(t)

	userID := uuid.New()
	authorizeRequest(m, userID)

	m.auth.EXPECT().
		EnableTwoFactor(gomock.Any(), userID, "123456").
		Return(nil)

	rec := doAuthedJSON(t, router, http.MethodPost, "/api/auth/2fa/enable",
		models.EnableTwoFactorRequest{Code: "123456"})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.StatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
}

func TestHandler_EnableTwoFactor_WrongCode(t *testing.T) {
	router, m := newTestRouter(t)

	userID := uuid.New()
	authorizeRequest(m, userID)

	m.auth.EXPECT().
		EnableTwoFactor(gomock.Any(), userID, "000000").
		Return(service.ErrInvalidTwoFactorCode)

	rec := doAuthedJSON(t, router, http.MethodPost, "/api/auth/2fa/enable",
		models.EnableTwoFactorRequest{Code: "000000"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_EnableTwoFactor_SetupNotStarted(t *testing.T) {
	router, m := newTestRouter(t)

	userID := uuid.New()
	authorizeRequest(m, userID)

	m.auth.EXPECT().
		EnableTwoFactor(gomock.Any(), userID, "123456").
		Return(service.ErrInvalidDataProvided)

	rec := doAuthedJSON(t, router, http.MethodPost, "/api/auth/2fa/enable",
		models.EnableTwoFactorRequest{Code: "123456"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "setup has not been started")
}
