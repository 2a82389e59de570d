package models

// Request and response bodies for the authentication API. Binary fields
// (salts, IVs, wrapped keys) are base64 strings at this boundary and raw
// bytes everywhere below it.

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Email            string `json:"email"`
	Username         string `json:"username,omitempty"`
	AuthHash         string `json:"authHash"`
	Salt             string `json:"salt"`
	RecoveryCodeHash string `json:"recoveryCodeHash"`
	RecoveryCodeSalt string `json:"recoveryCodeSalt"`
}

// SaltRequest is the body of POST /api/auth/salt.
type SaltRequest struct {
	Email string `json:"email"`
}

// SaltResponse always answers 200. For unknown emails both salts are decoys
// of identical length and Exists is false; the response shape never reveals
// account existence on its own. Salts are public inputs to the slow KDF and
// are useless without the password or recovery code.
type SaltResponse struct {
	Salt         string `json:"salt"`
	RecoverySalt string `json:"recoverySalt"`
	Exists       bool   `json:"exists"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Identifier    string `json:"identifier"`
	AuthHash      string `json:"authHash"`
	TwoFactorCode string `json:"twoFactorCode,omitempty"`
}

// LoginResponse covers both outcomes of a password-valid login: a full
// session, or the distinguished two-factor prompt.
type LoginResponse struct {
	Success           bool         `json:"success"`
	RequiresTwoFactor bool         `json:"requiresTwoFactor,omitempty"`
	User              *UserSummary `json:"user,omitempty"`
	Tokens            *TokenPair   `json:"tokens,omitempty"`
	Message           string       `json:"message,omitempty"`
	RetryAfterMinutes int          `json:"retryAfter,omitempty"`
}

// Verify2FARequest is the body of POST /api/auth/verify-2fa.
type Verify2FARequest struct {
	Email         string `json:"email"`
	TwoFactorCode string `json:"twoFactorCode"`
}

// RefreshRequest is the body of POST /api/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshResponse is the body returned by a successful token refresh.
type RefreshResponse struct {
	Success bool       `json:"success"`
	Tokens  *TokenPair `json:"tokens"`
}

// RecoverRequest is the body of POST /api/auth/recover. The client proves
// possession of the recovery code, then replaces the whole credential set.
type RecoverRequest struct {
	Email               string `json:"email"`
	RecoveryCodeHash    string `json:"recoveryCodeHash"`
	NewAuthHash         string `json:"newAuthHash"`
	NewSalt             string `json:"newSalt"`
	NewRecoveryCodeHash string `json:"newRecoveryCodeHash"`
	NewRecoveryCodeSalt string `json:"newRecoveryCodeSalt"`
}

// TwoFactorSetup is returned once by POST /api/auth/2fa/setup. Backup codes
// appear here in plaintext exactly once; only their bcrypt digests persist.
type TwoFactorSetup struct {
	QRCodeURI      string   `json:"qrCodeUri"`
	ManualEntryKey string   `json:"manualEntryKey"`
	BackupCodes    []string `json:"backupCodes"`
}

// EnableTwoFactorRequest is the body of POST /api/auth/2fa/enable.
type EnableTwoFactorRequest struct {
	Code string `json:"code"`
}

// RotateGroupKeyRequest is the body of POST /api/groups/{id}/rotate-key.
// It names every active member together with the RSA public key the fresh
// group key must be wrapped under. Rotation is all-or-nothing: one bad
// member key aborts the whole operation.
type RotateGroupKeyRequest struct {
	Members []GroupMember `json:"members"`
}

// RotateGroupKeyResponse returns the persisted wrapped-key set for the new
// key version. The plaintext group key is never part of the response.
type RotateGroupKeyResponse struct {
	Success  bool              `json:"success"`
	Rotation *GroupKeyRotation `json:"rotation"`
}

// StatusResponse is the minimal success/message envelope.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse is the client-facing error envelope. Authentication failures
// always carry the same generic message regardless of internal cause.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
