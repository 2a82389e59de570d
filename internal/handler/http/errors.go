package http

import "errors"

// Errors the bearer-token extraction in the auth middleware can produce.
// All of them translate to a 401 without touching the service layer.
var (
	ErrEmptyAuthorizationHeader   = errors.New("empty `Authorization` header")
	ErrInvalidAuthorizationHeader = errors.New("invalid `Authorization` header")
	ErrEmptyToken                 = errors.New("empty token in `Authorization` header")
)
