package http

import (
	"errors"
	"net/http"

	"github.com/logon-vault/logon-server/internal/service"
	"github.com/logon-vault/logon-server/internal/store"
)

var errorStatusMap = map[error]int{
	service.ErrInvalidDataProvided:     http.StatusBadRequest,
	service.ErrInvalidCredentials:      http.StatusUnauthorized,
	service.ErrInvalidTwoFactorCode:    http.StatusUnauthorized,
	service.ErrTwoFactorNotPending:     http.StatusUnauthorized,
	service.ErrTokenIsExpiredOrInvalid: http.StatusUnauthorized,
	service.ErrRecoveryFailed:          http.StatusUnauthorized,
	service.ErrAccountLocked:           http.StatusLocked,
	service.ErrTwoFactorAlreadyEnabled: http.StatusConflict,
	service.ErrTokenCreationFailed:     http.StatusInternalServerError,

	store.ErrEmailAlreadyExists:    http.StatusConflict,
	store.ErrUsernameAlreadyExists: http.StatusConflict,
	store.ErrUserNotFound:          http.StatusNotFound,
	store.ErrGroupKeyNotFound:      http.StatusNotFound,
	store.ErrStaleRotation:         http.StatusConflict,

	store.ErrBuildingSQLQuery:     http.StatusInternalServerError,
	store.ErrExecutingQuery:       http.StatusInternalServerError,
	store.ErrBeginningTransaction: http.StatusInternalServerError,
	store.ErrCommitingTransaction: http.StatusInternalServerError,
	store.ErrExecutingStatement:   http.StatusInternalServerError,
	store.ErrScanningRow:          http.StatusInternalServerError,
	store.ErrScanningRows:         http.StatusInternalServerError,
}

func statusFromError(err error) int {
	for target, status := range errorStatusMap {
		if errors.Is(err, target) {
			return status
		}
	}
	return http.StatusInternalServerError
}
