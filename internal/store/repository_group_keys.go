package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/logon-vault/logon-server/internal/logger"
	"github.com/logon-vault/logon-server/models"
)

// groupKeyRepository is the PostgreSQL-backed implementation of
// [GroupKeyRepository] against the "group_keys" table.
type groupKeyRepository struct {
	logger *logger.Logger
	db     *DB
}

// NewGroupKeyRepository constructs a [GroupKeyRepository] backed by the
// provided database connection and logger.
func NewGroupKeyRepository(db *DB, logger *logger.Logger) GroupKeyRepository {
	logger.Debug().Msg("creating group key repository")
	return &groupKeyRepository{
		db:     db,
		logger: logger,
	}
}

// SaveRotation installs a new key version for the group inside a single
// transaction. The submitted version must be exactly one past the current
// one; anything else means another rotation landed first and the whole
// batch is rejected with [ErrStaleRotation]. Prior versions are removed
// once the new set is in place.
func (r *groupKeyRepository) SaveRotation(ctx context.Context, rotation models.GroupKeyRotation) error {
	log := logger.FromContext(ctx)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).Str("func", "*groupKeyRepository.SaveRotation").Msg("error beginning transaction")
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	query, args, err := currentKeyVersionQuery(rotation.GroupID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var current int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&current); err != nil {
		log.Err(err).Str("func", "*groupKeyRepository.SaveRotation").Msg("error reading current key version")
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	if rotation.KeyVersion != current+1 {
		return fmt.Errorf("%w: have version %d, got %d", ErrStaleRotation, current, rotation.KeyVersion)
	}

	for _, key := range rotation.WrappedKeys {
		key.GroupID = rotation.GroupID
		key.KeyVersion = rotation.KeyVersion

		query, args, err := insertWrappedKeyQuery(key)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			log.Err(err).Str("func", "*groupKeyRepository.SaveRotation").Msg("error inserting wrapped key")
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
	}

	query, args, err = expireOldKeysQuery(rotation.GroupID, rotation.KeyVersion)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).Str("func", "*groupKeyRepository.SaveRotation").Msg("error expiring old key versions")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if err := tx.Commit(); err != nil {
		log.Err(err).Str("func", "*groupKeyRepository.SaveRotation").Msg("error committing transaction")
		return fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
	}

	return nil
}

// GetWrappedKey returns the member's copy of the group's current key.
func (r *groupKeyRepository) GetWrappedKey(ctx context.Context, groupID, userID uuid.UUID) (models.WrappedGroupKey, error) {
	log := logger.FromContext(ctx)

	query, args, err := getWrappedKeyQuery(groupID, userID)
	if err != nil {
		return models.WrappedGroupKey{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var key models.WrappedGroupKey
	err = withRetry(ctx, r.db.errorClassificator, func() error {
		row := r.db.QueryRowContext(ctx, query, args...)
		return row.Scan(&key.GroupID, &key.UserID, &key.WrappedKey, &key.KeyVersion, &key.CreatedAt)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.WrappedGroupKey{}, ErrGroupKeyNotFound
		}
		log.Err(err).Str("func", "*groupKeyRepository.GetWrappedKey").Msg("error querying wrapped key")
		return models.WrappedGroupKey{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	return key, nil
}

// CurrentKeyVersion returns the group's active key version, zero when the
// group has no keys yet.
func (r *groupKeyRepository) CurrentKeyVersion(ctx context.Context, groupID uuid.UUID) (int, error) {
	log := logger.FromContext(ctx)

	query, args, err := currentKeyVersionQuery(groupID)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var version int
	err = withRetry(ctx, r.db.errorClassificator, func() error {
		return r.db.QueryRowContext(ctx, query, args...).Scan(&version)
	})
	if err != nil {
		log.Err(err).Str("func", "*groupKeyRepository.CurrentKeyVersion").Msg("error querying key version")
		return 0, fmt.Errorf("unexpected DB error: %w", err)
	}

	return version, nil
}
