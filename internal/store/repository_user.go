package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/logon-vault/logon-server/internal/logger"
	"github.com/logon-vault/logon-server/models"
)

// userRepository is the PostgreSQL-backed implementation of [UserRepository].
// It handles credential record creation, lookup, and the lockout counters
// against the "users" table.
//
// All methods obtain a context-scoped logger via [logger.FromContext] for
// structured, request-level tracing of database interactions.
type userRepository struct {
	logger *logger.Logger
	db     *DB
}

// NewUserRepository constructs a [UserRepository] backed by the provided
// database connection and logger.
func NewUserRepository(db *DB, logger *logger.Logger) UserRepository {
	logger.Debug().Msg("creating user repository")
	return &userRepository{
		db:     db,
		logger: logger,
	}
}

// CreateUser persists a new credential record and returns the fully
// populated [models.User] with server-assigned fields (ID, CreatedAt).
//
// Error handling:
//   - PostgreSQL unique_violation (23505) → [ErrEmailAlreadyExists] or
//     [ErrUsernameAlreadyExists], depending on the violated constraint.
//   - Any other driver-level error → wrapped as "unexpected DB error".
//   - Scan failure → returned directly.
func (r *userRepository) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	log := logger.FromContext(ctx)

	backupCodes, err := json.Marshal(user.BackupCodeHashes)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	query, args, err := insertUserQuery(user, backupCodes)
	if err != nil {
		log.Err(err).Str("func", "*userRepository.CreateUser").Msg("error building insert query")
		return models.User{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	row := r.db.QueryRowContext(ctx, query, args...)

	// create user in db
	if err := row.Err(); err != nil {
		log.Err(err).Str("func", "*userRepository.CreateUser").Msg("error: row is nil")

		switch postgresError(err) {
		case pgerrcode.UniqueViolation:
			return models.User{}, uniqueViolationError(err)
		default:
			return models.User{}, fmt.Errorf("unexpected DB error: %w", err)
		}
	}

	// scan saved user from db
	created, err := scanUser(row)
	if err != nil {
		if postgresError(err) == pgerrcode.UniqueViolation {
			return models.User{}, uniqueViolationError(err)
		}
		log.Err(err).Str("func", "*userRepository.CreateUser").Msg("error: scanning error")
		return models.User{}, err
	}

	return created, nil
}

// FindUserByIdentifier retrieves the credential record whose email or
// username matches the given identifier.
//
// Error handling:
//   - Empty result set → [ErrUserNotFound].
//   - Transient driver errors are retried per the connection's classifier.
func (r *userRepository) FindUserByIdentifier(ctx context.Context, identifier string) (models.User, error) {
	log := logger.FromContext(ctx)

	query, args, err := findUserByIdentifierQuery(identifier)
	if err != nil {
		log.Err(err).Str("func", "*userRepository.FindUserByIdentifier").Msg("error building select query")
		return models.User{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return r.findOne(ctx, query, args)
}

// FindUserByID retrieves the credential record with the given primary key.
func (r *userRepository) FindUserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	log := logger.FromContext(ctx)

	query, args, err := findUserByIDQuery(id)
	if err != nil {
		log.Err(err).Str("func", "*userRepository.FindUserByID").Msg("error building select query")
		return models.User{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return r.findOne(ctx, query, args)
}

// RecordLoginFailure bumps the consecutive failure counter and, when it
// reaches threshold, sets the lock expiry, all in one UPDATE so concurrent
// failures cannot race past the threshold.
func (r *userRepository) RecordLoginFailure(ctx context.Context, id uuid.UUID, threshold int, cooldown time.Duration) (int, time.Time, error) {
	log := logger.FromContext(ctx)

	var (
		attempts    int
		lockedUntil sql.NullTime
	)
	err := withRetry(ctx, r.db.errorClassificator, func() error {
		row := r.db.QueryRowContext(ctx, recordLoginFailure, id, threshold, lockExpiry(time.Now(), cooldown))
		return row.Scan(&attempts, &lockedUntil)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, time.Time{}, ErrUserNotFound
		}
		log.Err(err).Str("func", "*userRepository.RecordLoginFailure").Msg("error recording login failure")
		return 0, time.Time{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	return attempts, lockedUntil.Time, nil
}

// RecordLoginSuccess clears the failure counter and lock and stamps the
// login time.
func (r *userRepository) RecordLoginSuccess(ctx context.Context, id uuid.UUID) error {
	query, args, err := recordLoginSuccessQuery(id)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	return r.execOne(ctx, "*userRepository.RecordLoginSuccess", query, args)
}

// SaveTOTPSecret stores a pending second-factor secret and its backup code
// hashes without activating them.
func (r *userRepository) SaveTOTPSecret(ctx context.Context, id uuid.UUID, secret string, backupCodeHashes []string) error {
	encoded, err := json.Marshal(backupCodeHashes)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	query, args, err := saveTOTPSecretQuery(id, secret, encoded)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	return r.execOne(ctx, "*userRepository.SaveTOTPSecret", query, args)
}

// EnableTOTP activates the stored secret. The statement matches only rows
// that already hold a secret, so enabling without a prior setup reports
// [ErrUserNotFound].
func (r *userRepository) EnableTOTP(ctx context.Context, id uuid.UUID) error {
	query, args, err := enableTOTPQuery(id)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	return r.execOne(ctx, "*userRepository.EnableTOTP", query, args)
}

// UpdateBackupCodes replaces the stored backup code hashes.
func (r *userRepository) UpdateBackupCodes(ctx context.Context, id uuid.UUID, backupCodeHashes []string) error {
	encoded, err := json.Marshal(backupCodeHashes)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	query, args, err := updateBackupCodesQuery(id, encoded)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	return r.execOne(ctx, "*userRepository.UpdateBackupCodes", query, args)
}

// ReplaceCredentials swaps in the recovered credential set and clears
// lockout state so the user can log in immediately.
func (r *userRepository) ReplaceCredentials(ctx context.Context, id uuid.UUID, creds models.Credentials) error {
	query, args, err := replaceCredentialsQuery(id, creds)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	return r.execOne(ctx, "*userRepository.ReplaceCredentials", query, args)
}

func (r *userRepository) findOne(ctx context.Context, query string, args []any) (models.User, error) {
	log := logger.FromContext(ctx)

	var found models.User
	err := withRetry(ctx, r.db.errorClassificator, func() error {
		var scanErr error
		found, scanErr = scanUser(r.db.QueryRowContext(ctx, query, args...))
		return scanErr
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		log.Err(err).Str("func", "*userRepository.findOne").Msg("error querying user")
		return models.User{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	return found, nil
}

func (r *userRepository) execOne(ctx context.Context, caller, query string, args []any) error {
	log := logger.FromContext(ctx)

	err := withRetry(ctx, r.db.errorClassificator, func() error {
		res, execErr := r.db.ExecContext(ctx, query, args...)
		if execErr != nil {
			return execErr
		}
		affected, execErr := res.RowsAffected()
		if execErr != nil {
			return execErr
		}
		if affected == 0 {
			return ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrUserNotFound
		}
		log.Err(err).Str("func", caller).Msg("error executing statement")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanUser reads one row in userColumns order.
func scanUser(row rowScanner) (models.User, error) {
	var (
		user        models.User
		backupCodes []byte
		lockedUntil sql.NullTime
		lastLogin   sql.NullTime
	)

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.AuthHash,
		&user.Salt,
		&user.RecoveryCodeHash,
		&user.RecoveryCodeSalt,
		&user.TOTPSecret,
		&user.TOTPEnabled,
		&backupCodes,
		&user.FailedLoginAttempts,
		&lockedUntil,
		&lastLogin,
		&user.IsActive,
		&user.CreatedAt,
	)
	if err != nil {
		return models.User{}, err
	}

	if lockedUntil.Valid {
		user.LockedUntil = lockedUntil.Time
	}
	if lastLogin.Valid {
		user.LastLoginAt = lastLogin.Time
	}
	if len(backupCodes) > 0 {
		if err := json.Unmarshal(backupCodes, &user.BackupCodeHashes); err != nil {
			return models.User{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
	}

	return user, nil
}

// uniqueViolationError maps a 23505 to the sentinel matching the violated
// constraint.
func uniqueViolationError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.Contains(pgErr.ConstraintName, "username") {
		return ErrUsernameAlreadyExists
	}
	return ErrEmailAlreadyExists
}
