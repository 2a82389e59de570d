package store

import (
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/logon-vault/logon-server/models"
)

// psql builds queries with $1-style placeholders for the pgx driver.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// userColumns is the canonical column order every user SELECT and
// RETURNING clause uses, matching scanUser.
var userColumns = []string{
	"id",
	"email",
	"username",
	"auth_hash",
	"salt",
	"recovery_code_hash",
	"recovery_code_salt",
	"totp_secret",
	"totp_enabled",
	"backup_code_hashes",
	"failed_login_attempts",
	"locked_until",
	"last_login_at",
	"is_active",
	"created_at",
}

var groupKeyColumns = []string{
	"group_id",
	"user_id",
	"wrapped_key",
	"key_version",
	"created_at",
}

// recordLoginFailure bumps the counter and sets the lock in one statement,
// so concurrent failed attempts cannot race each other past the threshold.
// $3 carries the precomputed lock expiry.
const recordLoginFailure = `UPDATE users
	SET failed_login_attempts = failed_login_attempts + 1,
	    locked_until = CASE
	        WHEN failed_login_attempts + 1 >= $2 THEN $3
	        ELSE locked_until
	    END
	WHERE id = $1
	RETURNING failed_login_attempts, locked_until;`

func insertUserQuery(user models.User, backupCodes []byte) (string, []any, error) {
	return psql.Insert("users").
		Columns("email", "username", "auth_hash", "salt",
			"recovery_code_hash", "recovery_code_salt", "backup_code_hashes").
		Values(user.Email, user.Username, user.AuthHash, user.Salt,
			user.RecoveryCodeHash, user.RecoveryCodeSalt, backupCodes).
		Suffix("RETURNING " + joinColumns(userColumns)).
		ToSql()
}

func findUserByIdentifierQuery(identifier string) (string, []any, error) {
	return psql.Select(userColumns...).
		From("users").
		Where(sq.Or{
			sq.Eq{"email": identifier},
			sq.Eq{"username": identifier},
		}).
		Limit(1).
		ToSql()
}

func findUserByIDQuery(id uuid.UUID) (string, []any, error) {
	return psql.Select(userColumns...).
		From("users").
		Where(sq.Eq{"id": id}).
		ToSql()
}

func recordLoginSuccessQuery(id uuid.UUID) (string, []any, error) {
	return psql.Update("users").
		Set("failed_login_attempts", 0).
		Set("locked_until", nil).
		Set("last_login_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ToSql()
}

func saveTOTPSecretQuery(id uuid.UUID, secret string, backupCodes []byte) (string, []any, error) {
	return psql.Update("users").
		Set("totp_secret", secret).
		Set("totp_enabled", false).
		Set("backup_code_hashes", backupCodes).
		Where(sq.Eq{"id": id}).
		ToSql()
}

func enableTOTPQuery(id uuid.UUID) (string, []any, error) {
	return psql.Update("users").
		Set("totp_enabled", true).
		Where(sq.Eq{"id": id}).
		Where(sq.NotEq{"totp_secret": ""}).
		ToSql()
}

func updateBackupCodesQuery(id uuid.UUID, backupCodes []byte) (string, []any, error) {
	return psql.Update("users").
		Set("backup_code_hashes", backupCodes).
		Where(sq.Eq{"id": id}).
		ToSql()
}

func replaceCredentialsQuery(id uuid.UUID, creds models.Credentials) (string, []any, error) {
	return psql.Update("users").
		Set("auth_hash", creds.AuthHash).
		Set("salt", creds.Salt).
		Set("recovery_code_hash", creds.RecoveryCodeHash).
		Set("recovery_code_salt", creds.RecoveryCodeSalt).
		Set("failed_login_attempts", 0).
		Set("locked_until", nil).
		Where(sq.Eq{"id": id}).
		ToSql()
}

func insertWrappedKeyQuery(key models.WrappedGroupKey) (string, []any, error) {
	return psql.Insert("group_keys").
		Columns("group_id", "user_id", "wrapped_key", "key_version").
		Values(key.GroupID, key.UserID, key.WrappedKey, key.KeyVersion).
		ToSql()
}

func getWrappedKeyQuery(groupID, userID uuid.UUID) (string, []any, error) {
	return psql.Select(groupKeyColumns...).
		From("group_keys").
		Where(sq.Eq{"group_id": groupID, "user_id": userID}).
		OrderBy("key_version DESC").
		Limit(1).
		ToSql()
}

func currentKeyVersionQuery(groupID uuid.UUID) (string, []any, error) {
	return psql.Select("COALESCE(MAX(key_version), 0)").
		From("group_keys").
		Where(sq.Eq{"group_id": groupID}).
		ToSql()
}

func expireOldKeysQuery(groupID uuid.UUID, newVersion int) (string, []any, error) {
	return psql.Delete("group_keys").
		Where(sq.Eq{"group_id": groupID}).
		Where(sq.Lt{"key_version": newVersion}).
		ToSql()
}

func joinColumns(cols []string) string {
	out := cols[0]
	for _, c := range cols[1:] {
		out += ", " + c
	}
	return out
}

// lockExpiry computes the moment a lock set now should end.
func lockExpiry(now time.Time, cooldown time.Duration) time.Time {
	return now.Add(cooldown).UTC()
}
