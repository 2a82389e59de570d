package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/logon-vault/logon-server/internal/logger"
	"github.com/logon-vault/logon-server/internal/service"
	"github.com/logon-vault/logon-server/internal/store"
	"github.com/logon-vault/logon-server/internal/utils"
	"github.com/logon-vault/logon-server/models"
)

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}

	registeredUser, err := h.services.AuthService.Register(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidDataProvided):
			log.Err(err).Msg("invalid registration data provided")
			http.Error(w, "invalid registration data provided", http.StatusBadRequest)
		case errors.Is(err, store.ErrEmailAlreadyExists):
			log.Err(err).Msg("email already exists")
			http.Error(w, "email already exists", http.StatusConflict)
		case errors.Is(err, store.ErrUsernameAlreadyExists):
			log.Err(err).Msg("username already exists")
			http.Error(w, "username already exists", http.StatusConflict)
		default:
			log.Err(err).Msg("unexpected error occurred during user registration")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	utils.WriteJSON(w, registeredUser.Summary(), http.StatusCreated)
}

// salt answers with HTTP 200 for every well-formed request. Unknown
// identifiers receive a stable decoy, so the status code and the response
// shape reveal nothing about account existence.
func (h *Handler) salt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	var req models.SaltRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}

	resp, err := h.services.SaltService.SaltForIdentifier(ctx, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidDataProvided):
			http.Error(w, "identifier is required", http.StatusBadRequest)
		default:
			log.Err(err).Msg("unexpected error occurred during salt lookup")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	utils.WriteJSON(w, resp, http.StatusOK)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}

	resp, err := h.services.AuthService.Login(ctx, req)
	if err != nil {
		h.writeLoginError(w, r, resp, err)
		return
	}

	utils.WriteJSON(w, resp, http.StatusOK)
}

func (h *Handler) verifyTwoFactor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	var req models.Verify2FARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}

	resp, err := h.services.AuthService.VerifyTwoFactor(ctx, req)
	if err != nil {
		h.writeLoginError(w, r, resp, err)
		return
	}

	utils.WriteJSON(w, resp, http.StatusOK)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	var req models.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}

	tokens, err := h.services.AuthService.Refresh(ctx, req.RefreshToken)
	if err != nil {
		log.Err(err).Msg("token refresh failed")
		http.Error(w, "invalid or expired refresh token", statusFromError(err))
		return
	}

	utils.WriteJSON(w, models.RefreshResponse{Success: true, Tokens: &tokens}, http.StatusOK)
}

func (h *Handler) recover(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	var req models.RecoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}

	if err := h.services.AuthService.Recover(ctx, req); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidDataProvided):
			http.Error(w, "invalid recovery data provided", http.StatusBadRequest)
		case errors.Is(err, service.ErrRecoveryFailed):
			// Unknown emails and wrong codes answer identically.
			log.Err(err).Msg("recovery rejected")
			http.Error(w, "recovery failed", http.StatusUnauthorized)
		default:
			log.Err(err).Msg("unexpected error occurred during account recovery")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// logout acknowledges the end of a session. Tokens are stateless, so the
// operation is advisory; it never fails once the caller is authenticated.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		log.Error().Msg("no user id in request context")
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	if err := h.services.AuthService.Logout(ctx, userID); err != nil {
		log.Err(err).Msg("unexpected error occurred during logout")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, models.StatusResponse{Success: true, Message: "logged out"}, http.StatusOK)
}

// writeLoginError translates the outcome of a failed login step into a
// response. Locked accounts keep their partially filled response body so
// the client learns the remaining cooldown.
func (h *Handler) writeLoginError(w http.ResponseWriter, r *http.Request, resp models.LoginResponse, err error) {
	log := logger.FromRequest(r)

	switch {
	case errors.Is(err, service.ErrAccountLocked):
		log.Err(err).Int("retry_after_minutes", resp.RetryAfterMinutes).Msg("account is locked")
		w.Header().Set("Retry-After", strconv.Itoa(resp.RetryAfterMinutes*60))
		utils.WriteJSON(w, resp, http.StatusLocked)
	case errors.Is(err, service.ErrInvalidCredentials):
		log.Err(err).Msg("invalid credentials")
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
	case errors.Is(err, service.ErrInvalidTwoFactorCode):
		log.Err(err).Msg("invalid two-factor code")
		http.Error(w, "invalid two-factor code", http.StatusUnauthorized)
	case errors.Is(err, service.ErrTwoFactorNotPending):
		log.Err(err).Msg("no pending two-factor login")
		http.Error(w, "no pending two-factor login", http.StatusUnauthorized)
	case errors.Is(err, service.ErrInvalidDataProvided):
		http.Error(w, "invalid data provided", http.StatusBadRequest)
	default:
		log.Err(err).Msg("unexpected error occurred during login")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
