package adapter

import "errors"

// Sentinel errors mapped from server responses. Callers match them with
// [errors.Is] instead of inspecting HTTP status codes.
var (
	ErrBadRequest          = errors.New("bad request")
	ErrUnauthorized        = errors.New("client unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrAccountLocked       = errors.New("account locked")
	ErrTooManyRequests     = errors.New("too many requests")
	ErrInternalServerError = errors.New("internal server error")

	// ErrNoSession is returned by operations that need a stored token pair
	// before any login has happened.
	ErrNoSession = errors.New("no open session")
)
