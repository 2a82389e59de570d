package config

// validate checks that the final merged [StructuredConfig] satisfies all
// application invariants before it is used at startup.
//
// Token secrets must be present and distinct: access and refresh tokens are
// signed in separate domains, so sharing one secret would collapse the
// type-isolation guarantee down to the "type" claim alone.
func (cfg *StructuredConfig) validate() error {
	if cfg.Auth.AccessTokenSecret == "" || cfg.Auth.RefreshTokenSecret == "" {
		return ErrMissingTokenSecrets
	}

	if cfg.Auth.AccessTokenSecret == cfg.Auth.RefreshTokenSecret {
		return ErrSharedTokenSecret
	}

	if cfg.Storage.DB.DSN == "" {
		return ErrInvalidStorageConfigs
	}

	if cfg.Auth.LockoutThreshold < 1 || cfg.Auth.LockoutCooldown <= 0 {
		return ErrInvalidLockoutPolicy
	}

	return nil
}
