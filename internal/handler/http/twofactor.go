package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/logon-vault/logon-server/internal/logger"
	"github.com/logon-vault/logon-server/internal/service"
	"github.com/logon-vault/logon-server/internal/utils"
	"github.com/logon-vault/logon-server/models"
)

// setupTwoFactor starts two-factor enrollment for the authenticated user.
// The response carries the provisioning URI and the plaintext backup codes
// exactly once; the factor stays disabled until enableTwoFactor confirms
// a working authenticator.
func (h *Handler) setupTwoFactor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		log.Error().Msg("no user id in request context")
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	setup, err := h.services.AuthService.SetupTwoFactor(ctx, userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTwoFactorAlreadyEnabled):
			log.Err(err).Msg("two-factor already enabled")
			http.Error(w, "two-factor authentication is already enabled", http.StatusConflict)
		default:
			log.Err(err).Msg("unexpected error occurred during two-factor setup")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	utils.WriteJSON(w, setup, http.StatusOK)
}

func (h *Handler) enableTwoFactor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		log.Error().Msg("no user id in request context")
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req models.EnableTwoFactorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}

	if err := h.services.AuthService.EnableTwoFactor(ctx, userID, req.Code); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidDataProvided):
			http.Error(w, "two-factor setup has not been started", http.StatusBadRequest)
		case errors.Is(err, service.ErrTwoFactorAlreadyEnabled):
			http.Error(w, "two-factor authentication is already enabled", http.StatusConflict)
		case errors.Is(err, service.ErrInvalidTwoFactorCode):
			log.Err(err).Msg("invalid two-factor code")
			http.Error(w, "invalid two-factor code", http.StatusUnauthorized)
		default:
			log.Err(err).Msg("unexpected error occurred enabling two-factor")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	utils.WriteJSON(w, models.StatusResponse{Success: true, Message: "two-factor authentication enabled"}, http.StatusOK)
}
