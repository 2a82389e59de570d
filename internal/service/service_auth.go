package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/logon-vault/logon-server/internal/cache"
	"github.com/logon-vault/logon-server/internal/config"
	"github.com/logon-vault/logon-server/internal/crypto"
	"github.com/logon-vault/logon-server/internal/guard"
	"github.com/logon-vault/logon-server/internal/logger"
	"github.com/logon-vault/logon-server/internal/store"
	"github.com/logon-vault/logon-server/models"
)

const (
	// pendingLoginTTL bounds how long a password-checked login waits for
	// its second factor.
	pendingLoginTTL = 5 * time.Minute

	pendingLoginCacheSize = 1000
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// TwoFactorProvider is the second-factor surface the auth service needs:
// TOTP codes plus the single-use backup codes. Satisfied by *totp.Service.
type TwoFactorProvider interface {
	GenerateSecret() (string, error)
	ProvisioningURI(account, secret string) string
	Verify(secret, code string, at time.Time) bool
	IsValidFormat(code string) bool
	GenerateBackupCodes() ([]string, error)
	HashBackupCodes(codes []string) ([]string, error)
	VerifyBackupCode(hashes []string, code string) (int, bool)
}

// authService is the concrete implementation of AuthService.
//
// The server side of authentication never sees a password: clients derive
// keys locally and send only an authentication hash, which is bcrypted
// again before storage. authService owns the surrounding state machine,
// including lockout counters, the pending-second-factor window, and
// account recovery.
type authService struct {
	// userRepository is the data-access layer used to create and look up users.
	userRepository store.UserRepository

	// tokenService signs the session token pairs handed out on success.
	tokenService TokenService

	// twoFactor verifies TOTP and backup codes.
	twoFactor TwoFactorProvider

	// pendingLogins holds password-checked logins awaiting their second
	// factor, keyed by lower-cased email.
	pendingLogins *cache.TTLCache[uuid.UUID]

	// refreshGuard collapses concurrent refreshes for the same user into
	// one token issuance.
	refreshGuard *guard.ConcurrencyGuard

	// bcryptCost is the work factor applied to incoming hashes before
	// persistence.
	bcryptCost int

	// lockoutThreshold and lockoutCooldown parameterise the failed-login
	// lockout.
	lockoutThreshold int
	lockoutCooldown  time.Duration

	// logger is the structured logger used for diagnostic and error output.
	logger *logger.Logger
}

// NewAuthService constructs an AuthService wired to the given repository
// and collaborators, with security parameters from cfg.
//
// The returned service is safe for concurrent use.
func NewAuthService(userRepository store.UserRepository, tokenService TokenService, twoFactor TwoFactorProvider, cfg config.Auth, logger *logger.Logger) AuthService {
	return &authService{
		userRepository:   userRepository,
		tokenService:     tokenService,
		twoFactor:        twoFactor,
		pendingLogins:    cache.New[uuid.UUID](pendingLoginTTL, pendingLoginCacheSize, nil),
		refreshGuard:     guard.New(),
		bcryptCost:       cfg.BcryptCost,
		lockoutThreshold: cfg.LockoutThreshold,
		lockoutCooldown:  cfg.LockoutCooldown,
		logger:           logger,
	}
}

// Register creates a new account from a client-prepared credential set.
//
// The client has already derived its keys: the request carries the
// authentication hash, the public salt, and the recovery pair. The server
// only validates shapes and bcrypts the hashes before persistence.
//
// Returns the persisted user or:
//   - ErrInvalidDataProvided for a malformed email, hash, or salt.
//   - store.ErrEmailAlreadyExists / store.ErrUsernameAlreadyExists when
//     the identifier is taken.
func (a *authService) Register(ctx context.Context, req models.RegisterRequest) (models.User, error) {
	log := logger.FromContext(ctx)

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !emailPattern.MatchString(email) || req.AuthHash == "" {
		log.Error().Str("email", email).Msg("invalid registration data provided")
		return models.User{}, ErrInvalidDataProvided
	}
	if req.Username != "" && (len(req.Username) < 3 || len(req.Username) > 50) {
		return models.User{}, ErrInvalidDataProvided
	}

	salt, err := decodeSalt(req.Salt)
	if err != nil {
		return models.User{}, ErrInvalidDataProvided
	}

	authHash, err := bcrypt.GenerateFromPassword([]byte(req.AuthHash), a.bcryptCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hashing auth hash failed: %w", err)
	}

	user := models.User{
		Email:    email,
		Username: req.Username,
		AuthHash: string(authHash),
		Salt:     salt,
		IsActive: true,
	}

	if req.RecoveryCodeHash != "" {
		recoveryHash, err := bcrypt.GenerateFromPassword([]byte(req.RecoveryCodeHash), a.bcryptCost)
		if err != nil {
			return models.User{}, fmt.Errorf("hashing recovery hash failed: %w", err)
		}
		recoverySalt, err := decodeSalt(req.RecoveryCodeSalt)
		if err != nil {
			return models.User{}, ErrInvalidDataProvided
		}
		user.RecoveryCodeHash = string(recoveryHash)
		user.RecoveryCodeSalt = recoverySalt
	}

	registeredUser, err := a.userRepository.CreateUser(ctx, user)
	if err != nil {
		log.Err(err).Str("email", email).Msg("user creation ended with error")
		return models.User{}, fmt.Errorf("user creation ended with error: %w", err)
	}

	return registeredUser, nil
}

// Login runs the password step of authentication and, where enabled, the
// second factor.
//
// Outcomes:
//   - Wrong identifier, wrong hash, or disabled account → ErrInvalidCredentials,
//     after bumping the failure counter for known accounts.
//   - Locked account → ErrAccountLocked with the remaining cooldown in the
//     response.
//   - Password valid, second factor enabled, no code supplied → a pending
//     login is parked and the response asks for the code.
//   - Password valid and second factor satisfied (or disabled) → a full
//     session with a fresh token pair.
func (a *authService) Login(ctx context.Context, req models.LoginRequest) (models.LoginResponse, error) {
	log := logger.FromContext(ctx)

	identifier := strings.ToLower(strings.TrimSpace(req.Identifier))
	if identifier == "" || req.AuthHash == "" {
		return models.LoginResponse{}, ErrInvalidDataProvided
	}

	user, err := a.userRepository.FindUserByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return models.LoginResponse{}, ErrInvalidCredentials
		}
		log.Err(err).Str("func", "*authService.Login").Msg("user search by identifier failed")
		return models.LoginResponse{}, fmt.Errorf("user search by identifier failed: %w", err)
	}

	if !user.IsActive {
		return models.LoginResponse{}, ErrInvalidCredentials
	}

	now := time.Now()
	if user.Locked(now) {
		return lockedResponse(user.LockedUntil, now), ErrAccountLocked
	}

	if bcrypt.CompareHashAndPassword([]byte(user.AuthHash), []byte(req.AuthHash)) != nil {
		return a.registerFailure(ctx, user.ID, now)
	}

	if user.TOTPEnabled {
		if req.TwoFactorCode == "" {
			a.pendingLogins.Put(user.Email, user.ID)
			return models.LoginResponse{
				RequiresTwoFactor: true,
				Message:           "two-factor authentication required",
			}, nil
		}

		ok, err := a.checkSecondFactor(ctx, &user, req.TwoFactorCode, now)
		if err != nil {
			return models.LoginResponse{}, err
		}
		if !ok {
			// The password already checked out; a wrong code must not
			// feed the password lockout counter.
			return models.LoginResponse{}, ErrInvalidTwoFactorCode
		}
	}

	return a.openSession(ctx, user)
}

// VerifyTwoFactor finishes a login parked by the password step. The pending
// window is keyed by email and expires after a few minutes; a verify call
// without a pending entry fails regardless of the code.
func (a *authService) VerifyTwoFactor(ctx context.Context, req models.Verify2FARequest) (models.LoginResponse, error) {
	log := logger.FromContext(ctx)

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.TwoFactorCode == "" {
		return models.LoginResponse{}, ErrInvalidDataProvided
	}

	userID, ok := a.pendingLogins.Get(email)
	if !ok {
		return models.LoginResponse{}, ErrTwoFactorNotPending
	}

	user, err := a.userRepository.FindUserByID(ctx, userID)
	if err != nil {
		log.Err(err).Str("func", "*authService.VerifyTwoFactor").Msg("user search by id failed")
		return models.LoginResponse{}, ErrInvalidCredentials
	}

	now := time.Now()
	if user.Locked(now) {
		return lockedResponse(user.LockedUntil, now), ErrAccountLocked
	}

	codeOK, err := a.checkSecondFactor(ctx, &user, req.TwoFactorCode, now)
	if err != nil {
		return models.LoginResponse{}, err
	}
	if !codeOK {
		// Wrong codes leave the password lockout counter alone; the
		// pending login stays parked so the user can retry.
		return models.LoginResponse{}, ErrInvalidTwoFactorCode
	}

	a.pendingLogins.Delete(email)
	return a.openSession(ctx, user)
}

// SweepExpired drops pending logins whose second-factor window has closed.
func (a *authService) SweepExpired() int {
	return a.pendingLogins.Sweep()
}

// Refresh exchanges a valid refresh token for a fresh pair. Concurrent
// refreshes for the same user collapse into one issuance, so a client
// retrying an in-flight refresh cannot race itself.
func (a *authService) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	log := logger.FromContext(ctx)

	claims, err := a.tokenService.ParseRefreshToken(ctx, refreshToken)
	if err != nil {
		return models.TokenPair{}, err
	}

	userID, err := claims.UserID()
	if err != nil {
		return models.TokenPair{}, ErrTokenIsExpiredOrInvalid
	}

	v, _, err := a.refreshGuard.Do(ctx, "refresh:"+userID.String(), func() (any, error) {
		user, err := a.userRepository.FindUserByID(ctx, userID)
		if err != nil {
			log.Err(err).Str("func", "*authService.Refresh").Msg("user search by id failed")
			return nil, ErrTokenIsExpiredOrInvalid
		}
		if !user.IsActive {
			return nil, ErrTokenIsExpiredOrInvalid
		}
		return a.tokenService.IssuePair(ctx, user)
	})
	if err != nil {
		return models.TokenPair{}, err
	}

	return v.(models.TokenPair), nil
}

// Logout ends a session on the client's behalf. Tokens are stateless and
// expire on their own, so there is no server-side state to revoke; the
// call is advisory and never fails. It also drops any pending second-factor
// login for the user so a parked password check cannot be finished later.
func (a *authService) Logout(ctx context.Context, userID uuid.UUID) error {
	log := logger.FromContext(ctx)

	if user, err := a.userRepository.FindUserByID(ctx, userID); err == nil {
		a.pendingLogins.Delete(user.Email)
	}

	log.Info().Str("user_id", userID.String()).Msg("user logged out")
	return nil
}

// Recover replaces an account's whole credential set after the client
// proves possession of the recovery code. Unknown emails and wrong codes
// fail identically.
func (a *authService) Recover(ctx context.Context, req models.RecoverRequest) error {
	log := logger.FromContext(ctx)

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.RecoveryCodeHash == "" || req.NewAuthHash == "" {
		return ErrInvalidDataProvided
	}

	newSalt, err := decodeSalt(req.NewSalt)
	if err != nil {
		return ErrInvalidDataProvided
	}
	newRecoverySalt, err := decodeSalt(req.NewRecoveryCodeSalt)
	if err != nil {
		return ErrInvalidDataProvided
	}

	user, err := a.userRepository.FindUserByIdentifier(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return ErrRecoveryFailed
		}
		log.Err(err).Str("func", "*authService.Recover").Msg("user search by email failed")
		return fmt.Errorf("user search by email failed: %w", err)
	}

	if user.RecoveryCodeHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(user.RecoveryCodeHash), []byte(req.RecoveryCodeHash)) != nil {
		return ErrRecoveryFailed
	}

	newAuthHash, err := bcrypt.GenerateFromPassword([]byte(req.NewAuthHash), a.bcryptCost)
	if err != nil {
		return fmt.Errorf("hashing auth hash failed: %w", err)
	}
	newRecoveryHash, err := bcrypt.GenerateFromPassword([]byte(req.NewRecoveryCodeHash), a.bcryptCost)
	if err != nil {
		return fmt.Errorf("hashing recovery hash failed: %w", err)
	}

	creds := models.Credentials{
		AuthHash:         string(newAuthHash),
		Salt:             newSalt,
		RecoveryCodeHash: string(newRecoveryHash),
		RecoveryCodeSalt: newRecoverySalt,
	}
	if err := a.userRepository.ReplaceCredentials(ctx, user.ID, creds); err != nil {
		log.Err(err).Str("func", "*authService.Recover").Msg("replacing credentials failed")
		return fmt.Errorf("replacing credentials failed: %w", err)
	}

	return nil
}

// SetupTwoFactor generates the second-factor enrollment material: a fresh
// shared secret, its provisioning URI, and the single-use backup codes.
// The plaintext codes appear in the response exactly once; only their
// hashes persist. Nothing is active until EnableTwoFactor confirms a code.
func (a *authService) SetupTwoFactor(ctx context.Context, userID uuid.UUID) (models.TwoFactorSetup, error) {
	log := logger.FromContext(ctx)

	user, err := a.userRepository.FindUserByID(ctx, userID)
	if err != nil {
		return models.TwoFactorSetup{}, fmt.Errorf("user search by id failed: %w", err)
	}
	if user.TOTPEnabled {
		return models.TwoFactorSetup{}, ErrTwoFactorAlreadyEnabled
	}

	secret, err := a.twoFactor.GenerateSecret()
	if err != nil {
		return models.TwoFactorSetup{}, fmt.Errorf("generating totp secret failed: %w", err)
	}

	backupCodes, err := a.twoFactor.GenerateBackupCodes()
	if err != nil {
		return models.TwoFactorSetup{}, fmt.Errorf("generating backup codes failed: %w", err)
	}
	backupHashes, err := a.twoFactor.HashBackupCodes(backupCodes)
	if err != nil {
		return models.TwoFactorSetup{}, fmt.Errorf("hashing backup codes failed: %w", err)
	}

	if err := a.userRepository.SaveTOTPSecret(ctx, userID, secret, backupHashes); err != nil {
		log.Err(err).Str("func", "*authService.SetupTwoFactor").Msg("saving totp secret failed")
		return models.TwoFactorSetup{}, fmt.Errorf("saving totp secret failed: %w", err)
	}

	return models.TwoFactorSetup{
		QRCodeURI:      a.twoFactor.ProvisioningURI(user.Email, secret),
		ManualEntryKey: secret,
		BackupCodes:    backupCodes,
	}, nil
}

// EnableTwoFactor activates the pending secret once the user proves their
// authenticator produces matching codes.
func (a *authService) EnableTwoFactor(ctx context.Context, userID uuid.UUID, code string) error {
	log := logger.FromContext(ctx)

	user, err := a.userRepository.FindUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("user search by id failed: %w", err)
	}
	if user.TOTPSecret == "" {
		return ErrInvalidDataProvided
	}
	if user.TOTPEnabled {
		return ErrTwoFactorAlreadyEnabled
	}

	if !a.twoFactor.Verify(user.TOTPSecret, code, time.Now()) {
		return ErrInvalidTwoFactorCode
	}

	if err := a.userRepository.EnableTOTP(ctx, userID); err != nil {
		log.Err(err).Str("func", "*authService.EnableTwoFactor").Msg("enabling totp failed")
		return fmt.Errorf("enabling totp failed: %w", err)
	}

	return nil
}

// checkSecondFactor accepts either a live TOTP code or an unused backup
// code. A matching backup code is burned before the check reports success.
func (a *authService) checkSecondFactor(ctx context.Context, user *models.User, code string, now time.Time) (bool, error) {
	if a.twoFactor.IsValidFormat(code) {
		return a.twoFactor.Verify(user.TOTPSecret, code, now), nil
	}

	idx, ok := a.twoFactor.VerifyBackupCode(user.BackupCodeHashes, code)
	if !ok {
		return false, nil
	}

	remaining := slices.Delete(slices.Clone(user.BackupCodeHashes), idx, idx+1)
	if err := a.userRepository.UpdateBackupCodes(ctx, user.ID, remaining); err != nil {
		return false, fmt.Errorf("burning backup code failed: %w", err)
	}
	user.BackupCodeHashes = remaining

	return true, nil
}

// registerFailure bumps the failure counter and translates the outcome
// into a response and sentinel.
func (a *authService) registerFailure(ctx context.Context, userID uuid.UUID, now time.Time) (models.LoginResponse, error) {
	log := logger.FromContext(ctx)

	attempts, lockedUntil, err := a.userRepository.RecordLoginFailure(ctx, userID, a.lockoutThreshold, a.lockoutCooldown)
	if err != nil {
		log.Err(err).Str("func", "*authService.registerFailure").Msg("recording login failure failed")
		return models.LoginResponse{}, fmt.Errorf("recording login failure failed: %w", err)
	}

	if attempts >= a.lockoutThreshold && lockedUntil.After(now) {
		return lockedResponse(lockedUntil, now), ErrAccountLocked
	}

	return models.LoginResponse{}, ErrInvalidCredentials
}

// openSession finalises a successful authentication: the failure counter
// resets and a fresh token pair is issued.
func (a *authService) openSession(ctx context.Context, user models.User) (models.LoginResponse, error) {
	log := logger.FromContext(ctx)

	if err := a.userRepository.RecordLoginSuccess(ctx, user.ID); err != nil {
		log.Err(err).Str("func", "*authService.openSession").Msg("recording login success failed")
		return models.LoginResponse{}, fmt.Errorf("recording login success failed: %w", err)
	}

	tokens, err := a.tokenService.IssuePair(ctx, user)
	if err != nil {
		return models.LoginResponse{}, err
	}

	summary := user.Summary()
	return models.LoginResponse{
		Success: true,
		User:    &summary,
		Tokens:  &tokens,
	}, nil
}

func lockedResponse(lockedUntil, now time.Time) models.LoginResponse {
	minutes := int(lockedUntil.Sub(now).Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return models.LoginResponse{
		Message:           "account is temporarily locked",
		RetryAfterMinutes: minutes,
	}
}

func decodeSalt(saltB64 string) ([]byte, error) {
	salt, err := base64.StdEncoding.DecodeString(saltB64)
	if err != nil {
		return nil, err
	}
	if len(salt) != crypto.SaltLength {
		return nil, fmt.Errorf("salt must be %d bytes", crypto.SaltLength)
	}
	return salt, nil
}
