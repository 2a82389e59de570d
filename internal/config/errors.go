package config

import "errors"

var (
	// ErrMissingTokenSecrets is returned when either token signing secret
	// is absent from all configuration sources.
	ErrMissingTokenSecrets = errors.New("access and refresh token secrets are required")

	// ErrSharedTokenSecret is returned when access and refresh tokens would
	// be signed with the same secret.
	ErrSharedTokenSecret = errors.New("access and refresh token secrets must differ")

	// ErrInvalidStorageConfigs is returned when no database DSN is configured.
	ErrInvalidStorageConfigs = errors.New("database DSN is required")

	// ErrInvalidLockoutPolicy is returned when the lockout threshold or
	// cooldown is non-positive.
	ErrInvalidLockoutPolicy = errors.New("invalid account lockout policy")
)
