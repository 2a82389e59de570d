package service

import "errors"

var (
	ErrInvalidDataProvided = errors.New("invalid data provided")

	// ErrInvalidCredentials covers every credential failure on login:
	// unknown identifier, wrong password, and disabled account all surface
	// identically so responses cannot be used to probe for accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountLocked is returned while the lockout cooldown is running.
	ErrAccountLocked = errors.New("account is temporarily locked")

	// ErrInvalidTwoFactorCode is returned for a wrong or malformed second
	// factor, and for a verify step without a pending password-checked login.
	ErrInvalidTwoFactorCode = errors.New("invalid two-factor code")

	// ErrTwoFactorNotPending is returned when a verify step arrives without
	// a preceding password-valid login inside the pending window.
	ErrTwoFactorNotPending = errors.New("no pending two-factor login")

	// ErrTwoFactorAlreadyEnabled is returned when setup is requested while
	// the second factor is already active.
	ErrTwoFactorAlreadyEnabled = errors.New("two-factor authentication is already enabled")

	ErrTokenCreationFailed     = errors.New("token creation failed")
	ErrTokenIsExpiredOrInvalid = errors.New("token is expired or invalid")

	// ErrRecoveryFailed covers every recovery failure: unknown email and
	// wrong recovery code surface identically.
	ErrRecoveryFailed = errors.New("account recovery failed")
)
