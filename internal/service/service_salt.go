package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/logon-vault/logon-server/internal/cache"
	"github.com/logon-vault/logon-server/internal/config"
	"github.com/logon-vault/logon-server/internal/crypto"
	"github.com/logon-vault/logon-server/internal/guard"
	"github.com/logon-vault/logon-server/internal/logger"
	"github.com/logon-vault/logon-server/internal/store"
	"github.com/logon-vault/logon-server/models"
)

// saltEntry is one cached salt answer together with how many times it has
// been served inside the current window.
type saltEntry struct {
	response models.SaltResponse
	requests int
}

// saltService is the concrete implementation of SaltService.
//
// Every identifier, known or not, gets a stable salt answer: real salts
// come from storage, unknown identifiers get a random decoy that stays
// constant for the cache window. Repeated lookups therefore cannot tell
// the two apart by watching the salt change.
type saltService struct {
	userRepository store.UserRepository
	keyService     crypto.KeyService
	cache          *cache.TTLCache[saltEntry]
	guard          *guard.ConcurrencyGuard
	requestCap     int
	logger         *logger.Logger
}

// NewSaltService constructs a SaltService with its own TTL cache sized
// from cfg.
func NewSaltService(userRepository store.UserRepository, keyService crypto.KeyService, cfg config.Auth, logger *logger.Logger) SaltService {
	return &saltService{
		userRepository: userRepository,
		keyService:     keyService,
		cache:          cache.New[saltEntry](cfg.SaltCacheTTL, cfg.SaltCacheSize, nil),
		guard:          guard.New(),
		requestCap:     cfg.SaltRequestCap,
		logger:         logger,
	}
}

// SaltForIdentifier returns the salt answer for one identifier. Concurrent
// lookups for the same identifier collapse into one storage round trip, so
// a burst of misses cannot mint conflicting decoys.
func (s *saltService) SaltForIdentifier(ctx context.Context, identifier string) (models.SaltResponse, error) {
	log := logger.FromContext(ctx)

	key := strings.ToLower(strings.TrimSpace(identifier))
	if key == "" {
		return models.SaltResponse{}, ErrInvalidDataProvided
	}

	v, _, err := s.guard.Do(ctx, "salt:"+key, func() (any, error) {
		return s.lookup(ctx, key)
	})
	if err != nil {
		log.Err(err).Str("func", "*saltService.SaltForIdentifier").Msg("salt lookup failed")
		return models.SaltResponse{}, err
	}

	return v.(models.SaltResponse), nil
}

// SweepExpired drops cached responses whose TTL has run out.
func (s *saltService) SweepExpired() int {
	return s.cache.Sweep()
}

// lookup serves from the cache while the entry is alive and under the
// per-window request cap. Past the cap the cached answer is abandoned and
// the identifier is resolved afresh, which restarts the window with a new
// TTL and counter. Hits bump the counter in place so they never extend the
// entry's lifetime.
func (s *saltService) lookup(ctx context.Context, key string) (models.SaltResponse, error) {
	if entry, ok := s.cache.Get(key); ok && entry.requests < s.requestCap {
		entry.requests++
		s.cache.Update(key, entry)
		return entry.response, nil
	}

	response, err := s.resolve(ctx, key)
	if err != nil {
		return models.SaltResponse{}, err
	}

	s.cache.Put(key, saltEntry{response: response, requests: 1})
	return response, nil
}

// resolve produces the uncached answer: the stored salt for a known
// identifier, a fresh decoy of identical length otherwise.
func (s *saltService) resolve(ctx context.Context, key string) (models.SaltResponse, error) {
	user, err := s.userRepository.FindUserByIdentifier(ctx, key)
	switch {
	case err == nil:
		return models.SaltResponse{
			Salt:         base64.StdEncoding.EncodeToString(user.Salt),
			RecoverySalt: base64.StdEncoding.EncodeToString(user.RecoveryCodeSalt),
			Exists:       true,
		}, nil

	case errors.Is(err, store.ErrUserNotFound):
		decoy, err := s.keyService.GenerateSalt()
		if err != nil {
			return models.SaltResponse{}, fmt.Errorf("generating decoy salt failed: %w", err)
		}
		recoveryDecoy, err := s.keyService.GenerateSalt()
		if err != nil {
			return models.SaltResponse{}, fmt.Errorf("generating decoy salt failed: %w", err)
		}
		return models.SaltResponse{
			Salt:         base64.StdEncoding.EncodeToString(decoy),
			RecoverySalt: base64.StdEncoding.EncodeToString(recoveryDecoy),
			Exists:       false,
		}, nil

	default:
		return models.SaltResponse{}, fmt.Errorf("user search by identifier failed: %w", err)
	}
}
