package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/logon-vault/logon-server/internal/crypto"
	"github.com/logon-vault/logon-server/internal/logger"
	"github.com/logon-vault/logon-server/internal/store"
	"github.com/logon-vault/logon-server/models"
)

// groupKeyService is the concrete implementation of GroupKeyService.
//
// Rotation is all-or-nothing: the fresh group key is generated, wrapped
// under every member's public key, and persisted as one batch. The
// plaintext key lives only inside the rotation call and is wiped before
// the result leaves it.
type groupKeyService struct {
	groupKeyRepository store.GroupKeyRepository
	groupCrypto        crypto.GroupKeyService
	logger             *logger.Logger
}

// NewGroupKeyService constructs a GroupKeyService wired to the given
// repository and crypto backend.
func NewGroupKeyService(groupKeyRepository store.GroupKeyRepository, groupCrypto crypto.GroupKeyService, logger *logger.Logger) GroupKeyService {
	return &groupKeyService{
		groupKeyRepository: groupKeyRepository,
		groupCrypto:        groupCrypto,
		logger:             logger,
	}
}

// RotateKey issues the next key version for a group.
//
// Every member public key is validated before any cryptography happens;
// one bad key fails the whole rotation and the previous version stays
// active. A concurrent rotation losing the version race surfaces as
// store.ErrStaleRotation.
func (g *groupKeyService) RotateKey(ctx context.Context, groupID uuid.UUID, members []models.GroupMember) (models.GroupKeyRotation, error) {
	log := logger.FromContext(ctx)

	if groupID == uuid.Nil || len(members) == 0 {
		return models.GroupKeyRotation{}, ErrInvalidDataProvided
	}

	memberKeys := make([]crypto.GroupMemberKey, 0, len(members))
	for _, m := range members {
		if m.UserID == uuid.Nil || !g.groupCrypto.ValidatePublicKey(m.PublicKey) {
			return models.GroupKeyRotation{}, fmt.Errorf("%w: member %s", ErrInvalidDataProvided, m.UserID)
		}
		memberKeys = append(memberKeys, crypto.GroupMemberKey{UserID: m.UserID, PublicKey: m.PublicKey})
	}

	set, err := g.groupCrypto.RotateGroupKey(memberKeys)
	if err != nil {
		log.Err(err).Str("func", "*groupKeyService.RotateKey").Msg("group key rotation failed")
		return models.GroupKeyRotation{}, fmt.Errorf("group key rotation failed: %w", err)
	}
	// The plaintext key has served its purpose once the wrapped copies exist.
	wipe(set.GroupKey)

	current, err := g.groupKeyRepository.CurrentKeyVersion(ctx, groupID)
	if err != nil {
		return models.GroupKeyRotation{}, fmt.Errorf("reading current key version failed: %w", err)
	}

	rotation := models.GroupKeyRotation{
		GroupID:     groupID,
		KeyVersion:  current + 1,
		WrappedKeys: make([]models.WrappedGroupKey, 0, len(set.WrappedKeys)),
	}
	for _, m := range members {
		rotation.WrappedKeys = append(rotation.WrappedKeys, models.WrappedGroupKey{
			GroupID:    groupID,
			UserID:     m.UserID,
			WrappedKey: set.WrappedKeys[m.UserID],
			KeyVersion: rotation.KeyVersion,
		})
	}

	if err := g.groupKeyRepository.SaveRotation(ctx, rotation); err != nil {
		if errors.Is(err, store.ErrStaleRotation) {
			return models.GroupKeyRotation{}, err
		}
		log.Err(err).Str("func", "*groupKeyService.RotateKey").Msg("persisting rotation failed")
		return models.GroupKeyRotation{}, fmt.Errorf("persisting rotation failed: %w", err)
	}

	return rotation, nil
}

// MemberKey returns the member's wrapped copy of the group's current key.
func (g *groupKeyService) MemberKey(ctx context.Context, groupID, userID uuid.UUID) (models.WrappedGroupKey, error) {
	if groupID == uuid.Nil || userID == uuid.Nil {
		return models.WrappedGroupKey{}, ErrInvalidDataProvided
	}

	return g.groupKeyRepository.GetWrappedKey(ctx, groupID, userID)
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
