package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logon-vault/logon-server/internal/crypto"
	"github.com/logon-vault/logon-server/internal/logger"
	"github.com/logon-vault/logon-server/internal/store"
	"github.com/logon-vault/logon-server/models"
)

// ─────────────────────────────────────────────
// Mock: store.GroupKeyRepository
// ─────────────────────────────────────────────

type mockGroupKeyRepository struct {
	saveRotationFn      func(ctx context.Context, rotation models.GroupKeyRotation) error
	getWrappedKeyFn     func(ctx context.Context, groupID, userID uuid.UUID) (models.WrappedGroupKey, error)
	currentKeyVersionFn func(ctx context.Context, groupID uuid.UUID) (int, error)
}

func (m *mockGroupKeyRepository) SaveRotation(ctx context.Context, rotation models.GroupKeyRotation) error {
	if m.saveRotationFn != nil {
		return m.saveRotationFn(ctx, rotation)
	}
	return nil
}

func (m *mockGroupKeyRepository) GetWrappedKey(ctx context.Context, groupID, userID uuid.UUID) (models.WrappedGroupKey, error) {
	if m.getWrappedKeyFn != nil {
		return m.getWrappedKeyFn(ctx, groupID, userID)
	}
	return models.WrappedGroupKey{}, store.ErrGroupKeyNotFound
}

func (m *mockGroupKeyRepository) CurrentKeyVersion(ctx context.Context, groupID uuid.UUID) (int, error) {
	if m.currentKeyVersionFn != nil {
		return m.currentKeyVersionFn(ctx, groupID)
	}
	return 0, nil
}

// ─────────────────────────────────────────────
// RotateKey
// ─────────────────────────────────────────────

func TestRotateKey_WrapsForEveryMember(t *testing.T) {
	groupCrypto := crypto.NewGroupKeyService()

	alice, err := groupCrypto.GenerateUserKeyPair()
	require.NoError(t, err)
	bob, err := groupCrypto.GenerateUserKeyPair()
	require.NoError(t, err)

	members := []models.GroupMember{
		{UserID: uuid.New(), PublicKey: alice.PublicKey},
		{UserID: uuid.New(), PublicKey: bob.PublicKey},
	}

	groupID := uuid.New()
	var saved models.GroupKeyRotation
	repo := &mockGroupKeyRepository{
		currentKeyVersionFn: func(ctx context.Context, id uuid.UUID) (int, error) {
			assert.Equal(t, groupID, id)
			return 2, nil
		},
		saveRotationFn: func(ctx context.Context, rotation models.GroupKeyRotation) error {
			saved = rotation
			return nil
		},
	}
	svc := NewGroupKeyService(repo, groupCrypto, logger.Nop())

	rotation, err := svc.RotateKey(context.Background(), groupID, members)
	require.NoError(t, err)

	assert.Equal(t, 3, rotation.KeyVersion)
	require.Len(t, rotation.WrappedKeys, 2)
	assert.Equal(t, saved, rotation)

	// Each member can unwrap their copy, and both copies hide the same key.
	aliceKey, err := groupCrypto.DecryptGroupKeyForUser(rotation.WrappedKeys[0].WrappedKey, alice.PrivateKey)
	require.NoError(t, err)
	bobKey, err := groupCrypto.DecryptGroupKeyForUser(rotation.WrappedKeys[1].WrappedKey, bob.PrivateKey)
	require.NoError(t, err)

	assert.Len(t, aliceKey, crypto.KeyLength)
	assert.Equal(t, aliceKey, bobKey)
}

func TestRotateKey_RejectsBadMemberKey(t *testing.T) {
	groupCrypto := crypto.NewGroupKeyService()

	alice, err := groupCrypto.GenerateUserKeyPair()
	require.NoError(t, err)

	members := []models.GroupMember{
		{UserID: uuid.New(), PublicKey: alice.PublicKey},
		{UserID: uuid.New(), PublicKey: "not a key"},
	}

	repo := &mockGroupKeyRepository{
		saveRotationFn: func(ctx context.Context, rotation models.GroupKeyRotation) error {
			t.Fatal("nothing must be persisted when a member key is invalid")
			return nil
		},
	}
	svc := NewGroupKeyService(repo, groupCrypto, logger.Nop())

	_, err = svc.RotateKey(context.Background(), uuid.New(), members)
	assert.ErrorIs(t, err, ErrInvalidDataProvided)
}

func TestRotateKey_RejectsEmptyInput(t *testing.T) {
	svc := NewGroupKeyService(&mockGroupKeyRepository{}, crypto.NewGroupKeyService(), logger.Nop())

	_, err := svc.RotateKey(context.Background(), uuid.Nil, nil)
	assert.ErrorIs(t, err, ErrInvalidDataProvided)

	_, err = svc.RotateKey(context.Background(), uuid.New(), nil)
	assert.ErrorIs(t, err, ErrInvalidDataProvided)
}

func TestRotateKey_StaleVersionSurfaces(t *testing.T) {
	groupCrypto := crypto.NewGroupKeyService()

	alice, err := groupCrypto.GenerateUserKeyPair()
	require.NoError(t, err)

	repo := &mockGroupKeyRepository{
		saveRotationFn: func(ctx context.Context, rotation models.GroupKeyRotation) error {
			return store.ErrStaleRotation
		},
	}
	svc := NewGroupKeyService(repo, groupCrypto, logger.Nop())

	_, err = svc.RotateKey(context.Background(), uuid.New(), []models.GroupMember{
		{UserID: uuid.New(), PublicKey: alice.PublicKey},
	})
	assert.ErrorIs(t, err, store.ErrStaleRotation)
}

// ─────────────────────────────────────────────
// MemberKey
// ─────────────────────────────────────────────

func TestMemberKey(t *testing.T) {
	groupID, userID := uuid.New(), uuid.New()
	want := models.WrappedGroupKey{
		GroupID:    groupID,
		UserID:     userID,
		WrappedKey: "wrapped",
		KeyVersion: 4,
	}
	repo := &mockGroupKeyRepository{
		getWrappedKeyFn: func(ctx context.Context, g, u uuid.UUID) (models.WrappedGroupKey, error) {
			assert.Equal(t, groupID, g)
			assert.Equal(t, userID, u)
			return want, nil
		},
	}
	svc := NewGroupKeyService(repo, crypto.NewGroupKeyService(), logger.Nop())

	got, err := svc.MemberKey(context.Background(), groupID, userID)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestMemberKey_UnknownGroup(t *testing.T) {
	svc := NewGroupKeyService(&mockGroupKeyRepository{}, crypto.NewGroupKeyService(), logger.Nop())

	_, err := svc.MemberKey(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, store.ErrGroupKeyNotFound)
}

func TestMemberKey_RejectsNilIDs(t *testing.T) {
	svc := NewGroupKeyService(&mockGroupKeyRepository{}, crypto.NewGroupKeyService(), logger.Nop())

	_, err := svc.MemberKey(context.Background(), uuid.Nil, uuid.New())
	assert.ErrorIs(t, err, ErrInvalidDataProvided)

	_, err = svc.MemberKey(context.Background(), uuid.New(), uuid.Nil)
	assert.ErrorIs(t, err, ErrInvalidDataProvided)
}
