package models

import (
	"time"

	"github.com/google/uuid"
)

// GroupMember pairs a member identity with the RSA public key used to wrap
// group keys for that member. The public key is a base64 SPKI blob.
type GroupMember struct {
	UserID    uuid.UUID `json:"userId"`
	PublicKey string    `json:"publicKey"`
}

// WrappedGroupKey is one member's copy of a group's symmetric key, encrypted
// with that member's RSA public key. The server stores only this wrapped
// form and can never recover the group key itself.
type WrappedGroupKey struct {
	GroupID    uuid.UUID `json:"groupId"`
	UserID     uuid.UUID `json:"userId"`
	WrappedKey string    `json:"wrappedKey"`
	KeyVersion int       `json:"keyVersion"`
	CreatedAt  time.Time `json:"createdAt"`
}

// GroupKeyRotation is the result of rotating a group key: a fresh key version
// and one wrapped entry per active member. The plaintext key never appears
// here; the rotating service wipes it as soon as the wrapped copies exist,
// and members recover it only by unwrapping their entry locally.
type GroupKeyRotation struct {
	GroupID     uuid.UUID         `json:"groupId"`
	KeyVersion  int               `json:"keyVersion"`
	WrappedKeys []WrappedGroupKey `json:"wrappedKeys"`
}
