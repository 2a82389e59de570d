package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/logon-vault/logon-server/internal/logger"
	"github.com/logon-vault/logon-server/internal/service"
	"github.com/logon-vault/logon-server/internal/store"
	"github.com/logon-vault/logon-server/internal/utils"
	"github.com/logon-vault/logon-server/models"
)

func (h *Handler) rotateGroupKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	groupID, err := uuid.Parse(chi.URLParam(r, "groupID"))
	if err != nil {
		http.Error(w, "invalid group id", http.StatusBadRequest)
		return
	}

	var req models.RotateGroupKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}

	rotation, err := h.services.GroupKeyService.RotateKey(ctx, groupID, req.Members)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidDataProvided):
			log.Err(err).Msg("invalid rotation request")
			http.Error(w, "invalid rotation request", http.StatusBadRequest)
		case errors.Is(err, store.ErrStaleRotation):
			// Another rotation won the version race; the caller must re-read
			// the member list and retry.
			log.Err(err).Str("group_id", groupID.String()).Msg("stale rotation")
			http.Error(w, "group key was rotated concurrently", http.StatusConflict)
		default:
			log.Err(err).Msg("unexpected error occurred during group key rotation")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	utils.WriteJSON(w, models.RotateGroupKeyResponse{Success: true, Rotation: &rotation}, http.StatusOK)
}

// groupMemberKey returns the caller's own wrapped copy of the group's
// current key. Members can never fetch another member's copy.
func (h *Handler) groupMemberKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		log.Error().Msg("no user id in request context")
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	groupID, err := uuid.Parse(chi.URLParam(r, "groupID"))
	if err != nil {
		http.Error(w, "invalid group id", http.StatusBadRequest)
		return
	}

	wrappedKey, err := h.services.GroupKeyService.MemberKey(ctx, groupID, userID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrGroupKeyNotFound):
			http.Error(w, "no key for this group and member", http.StatusNotFound)
		default:
			log.Err(err).Msg("unexpected error occurred fetching group key")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	utils.WriteJSON(w, wrappedKey, http.StatusOK)
}
