package service

import (
	"github.com/logon-vault/logon-server/internal/config"
	"github.com/logon-vault/logon-server/internal/crypto"
	"github.com/logon-vault/logon-server/internal/logger"
	"github.com/logon-vault/logon-server/internal/store"
	"github.com/logon-vault/logon-server/internal/totp"
	"github.com/logon-vault/logon-server/internal/workers"
)

type Services struct {
	AuthService     AuthService
	TokenService    TokenService
	SaltService     SaltService
	GroupKeyService GroupKeyService

	// Workers holds the background sweepers that evict expired entries
	// from the pending-login and salt caches. The server starts them
	// before accepting traffic and stops them on shutdown.
	Workers *workers.Workers
}

func NewServices(repositories *store.Repositories, cfg config.StructuredConfig, logger *logger.Logger) *Services {
	keyService := crypto.NewKeyService()
	groupCrypto := crypto.NewGroupKeyService()
	twoFactor := totp.NewService(cfg.Auth.TOTPIssuer, cfg.Auth.BcryptCost)
	tokenService := NewTokenService(cfg.Auth, logger)

	authService := NewAuthService(repositories.UserRepository, tokenService, twoFactor, cfg.Auth, logger)
	saltService := NewSaltService(repositories.UserRepository, keyService, cfg.Auth, logger)

	return &Services{
		AuthService:     authService,
		TokenService:    tokenService,
		SaltService:     saltService,
		GroupKeyService: NewGroupKeyService(repositories.GroupKeyRepository, groupCrypto, logger),
		Workers: workers.New(
			workers.NewSweeper("pending-logins", pendingLoginTTL, authService.SweepExpired, logger),
			workers.NewSweeper("salt-cache", cfg.Auth.SaltCacheTTL, saltService.SweepExpired, logger),
		),
	}
}
