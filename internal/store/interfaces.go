package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/logon-vault/logon-server/models"
)

// UserRepository persists credential records. Implementations return the
// sentinel errors in errors.go for well-known failure conditions.
type UserRepository interface {
	// CreateUser inserts a new account and returns it with server-assigned
	// fields populated (ID, CreatedAt).
	CreateUser(ctx context.Context, user models.User) (models.User, error)

	// FindUserByIdentifier looks an account up by email or username.
	FindUserByIdentifier(ctx context.Context, identifier string) (models.User, error)

	// FindUserByID looks an account up by its primary key.
	FindUserByID(ctx context.Context, id uuid.UUID) (models.User, error)

	// RecordLoginFailure bumps the consecutive failure counter in a single
	// statement and locks the account for cooldown once the counter reaches
	// threshold. It returns the post-update counter and lock expiry.
	RecordLoginFailure(ctx context.Context, id uuid.UUID, threshold int, cooldown time.Duration) (int, time.Time, error)

	// RecordLoginSuccess clears the failure counter and lock and stamps the
	// login time.
	RecordLoginSuccess(ctx context.Context, id uuid.UUID) error

	// SaveTOTPSecret stores a pending second-factor secret and the hashed
	// backup codes issued alongside it, without activating either.
	SaveTOTPSecret(ctx context.Context, id uuid.UUID, secret string, backupCodeHashes []string) error

	// EnableTOTP activates the stored secret. It fails when no secret was
	// ever stored.
	EnableTOTP(ctx context.Context, id uuid.UUID) error

	// UpdateBackupCodes replaces the stored backup code hashes, used to burn
	// a consumed code.
	UpdateBackupCodes(ctx context.Context, id uuid.UUID, backupCodeHashes []string) error

	// ReplaceCredentials swaps in a new auth hash, salt, and recovery
	// credential set during account recovery and clears any lockout state.
	ReplaceCredentials(ctx context.Context, id uuid.UUID, creds models.Credentials) error
}

// GroupKeyRepository persists wrapped group keys. The server only ever
// stores ciphertext wrapped under member public keys.
type GroupKeyRepository interface {
	// SaveRotation atomically replaces a group's wrapped keys with the next
	// version. Returns ErrStaleRotation when the submitted version is not
	// current+1.
	SaveRotation(ctx context.Context, rotation models.GroupKeyRotation) error

	// GetWrappedKey returns the member's copy of the group's current key.
	GetWrappedKey(ctx context.Context, groupID, userID uuid.UUID) (models.WrappedGroupKey, error)

	// CurrentKeyVersion returns the group's active key version, zero when
	// the group has no keys yet.
	CurrentKeyVersion(ctx context.Context, groupID uuid.UUID) (int, error)
}
