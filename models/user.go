package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the server-side authoritative credential record for one account.
// The server never holds plaintext passwords or encryption keys: AuthHash is
// a bcrypt digest of the client-supplied authentication hash, and Salt is
// public key-derivation input. Sensitive fields are excluded from JSON.
type User struct {
	// ID is the stable opaque identifier of the account.
	ID uuid.UUID `json:"id"`

	// Email is the unique login identifier, stored lower-cased.
	Email string `json:"email"`

	// Username is an optional display name (3-50 characters when present).
	Username string `json:"username,omitempty"`

	// AuthHash is the bcrypt digest of the client's authentication hash.
	// Never exposed; comparison happens via bcrypt only.
	AuthHash string `json:"-"`

	// Salt is the 32-byte key-derivation salt generated once at
	// registration. It is public but immutable.
	Salt []byte `json:"-"`

	// RecoveryCodeHash is the bcrypt digest of the client's recovery hash.
	RecoveryCodeHash string `json:"-"`

	// RecoveryCodeSalt is the salt the client used to derive the recovery
	// hash. Stored so the client can reproduce it during account recovery.
	RecoveryCodeSalt []byte `json:"-"`

	// TOTPSecret is the base32 second-factor secret. Non-empty while 2FA is
	// enabled or pending activation, empty otherwise.
	TOTPSecret string `json:"-"`

	// TOTPEnabled reports whether the second factor has been activated by a
	// successful enable step. A stored secret alone grants nothing.
	TOTPEnabled bool `json:"twoFactorEnabled"`

	// BackupCodeHashes holds bcrypt digests of the one-time recovery codes
	// issued during 2FA setup.
	BackupCodeHashes []string `json:"-"`

	// FailedLoginAttempts counts consecutive failed credential checks.
	FailedLoginAttempts int `json:"-"`

	// LockedUntil is set when the failure counter crosses the lockout
	// threshold. Zero when the account is not locked.
	LockedUntil time.Time `json:"-"`

	// LastLoginAt records the most recent successful authentication.
	LastLoginAt time.Time `json:"lastLoginAt,omitzero"`

	// IsActive is false for soft-disabled accounts. Disabled accounts are
	// never hard-deleted and reject all logins.
	IsActive bool `json:"isActive"`

	// CreatedAt is the registration timestamp.
	CreatedAt time.Time `json:"createdAt"`
}

// TableName returns the database table backing the User model.
func (u User) TableName() string {
	return "users"
}

// Locked reports whether the account is locked out at the given instant.
func (u User) Locked(now time.Time) bool {
	return !u.LockedUntil.IsZero() && u.LockedUntil.After(now)
}

// Summary returns the public projection of the account, safe to return from
// registration and login responses.
func (u User) Summary() UserSummary {
	return UserSummary{
		ID:               u.ID,
		Email:            u.Email,
		Username:         u.Username,
		TwoFactorEnabled: u.TOTPEnabled,
		IsActive:         u.IsActive,
		CreatedAt:        u.CreatedAt,
	}
}

// Credentials is the replaceable part of an account's credential set. Used
// during account recovery, which swaps the whole set atomically.
type Credentials struct {
	AuthHash         string
	Salt             []byte
	RecoveryCodeHash string
	RecoveryCodeSalt []byte
}

// UserSummary is the client-facing projection of a credential record. It
// carries no salts, hashes, or second-factor material.
type UserSummary struct {
	ID               uuid.UUID `json:"id"`
	Email            string    `json:"email"`
	Username         string    `json:"username,omitempty"`
	TwoFactorEnabled bool      `json:"twoFactorEnabled"`
	IsActive         bool      `json:"isActive"`
	CreatedAt        time.Time `json:"createdAt"`
}
