package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/travelos/crm/internal/events"
	apperrors "github.com/travelos/crm/pkg/util"
)

func newTestSessionService(store *fakeSessionStore, dispatcher *recordingDispatcher) *SessionService {
	return NewSessionService(store, dispatcher, zap.NewNop(), 7*24*time.Hour)
}

func TestSessionService_CreateStoresOnlyHash(t *testing.T) {
	store := newFakeSessionStore()
	svc := newTestSessionService(store, &recordingDispatcher{})

	raw, err := svc.Create(context.Background(), "u1", nil, nil)
	require.NoError(t, err)
	assert.Len(t, raw, refreshTokenBytes*2) // hex-encoded

	_, rawStored := store.byHash[raw]
	assert.False(t, rawStored, "raw token must never be persisted")

	session, err := store.GetByTokenHash(context.Background(), hashToken(raw))
	require.NoError(t, err)
	assert.Equal(t, "u1", session.UserID)
	assert.False(t, session.Revoked)
	assert.NotEmpty(t, session.FamilyID)
}

func TestSessionService_RotateIsSingleUse(t *testing.T) {
	store := newFakeSessionStore()
	dispatcher := &recordingDispatcher{}
	svc := newTestSessionService(store, dispatcher)
	ctx := context.Background()

	t0, err := svc.Create(ctx, "u1", nil, nil)
	require.NoError(t, err)

	first, err := svc.Rotate(ctx, t0)
	require.NoError(t, err)
	assert.Equal(t, "u1", first.UserID)
	assert.NotEqual(t, t0, first.RawToken)

	// Presenting the consumed token again is theft: the whole family dies.
	_, err = svc.Rotate(ctx, t0)
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "SESSION_COMPROMISED", domainErr.Code)

	// Including the newest descendant.
	_, err = svc.Rotate(ctx, first.RawToken)
	require.Error(t, err)
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "SESSION_COMPROMISED", domainErr.Code)

	assert.Contains(t, dispatcher.typesSeen(), events.EventSessionCompromised)
}

func TestSessionService_RotateKeepsFamily(t *testing.T) {
	store := newFakeSessionStore()
	svc := newTestSessionService(store, &recordingDispatcher{})
	ctx := context.Background()

	t0, err := svc.Create(ctx, "u1", nil, nil)
	require.NoError(t, err)
	original, err := store.GetByTokenHash(ctx, hashToken(t0))
	require.NoError(t, err)

	result, err := svc.Rotate(ctx, t0)
	require.NoError(t, err)
	successor, err := store.GetByTokenHash(ctx, hashToken(result.RawToken))
	require.NoError(t, err)

	assert.Equal(t, original.FamilyID, successor.FamilyID)
	assert.Equal(t, 1, store.activeInFamily(original.FamilyID), "at most one live token per family")
}

func TestSessionService_RotateUnknownToken(t *testing.T) {
	svc := newTestSessionService(newFakeSessionStore(), &recordingDispatcher{})

	_, err := svc.Rotate(context.Background(), "never-issued")
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "INVALID_SESSION", domainErr.Code)
}

func TestSessionService_RotateExpiredToken(t *testing.T) {
	store := newFakeSessionStore()
	svc := newTestSessionService(store, &recordingDispatcher{})
	ctx := context.Background()

	raw, err := svc.Create(ctx, "u1", nil, nil)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }

	_, err = svc.Rotate(ctx, raw)
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "INVALID_SESSION", domainErr.Code)
}

func TestSessionService_ConcurrentRotationLosesAsTheft(t *testing.T) {
	store := newFakeSessionStore()
	svc := newTestSessionService(store, &recordingDispatcher{})
	ctx := context.Background()

	raw, err := svc.Create(ctx, "u1", nil, nil)
	require.NoError(t, err)
	session, err := store.GetByTokenHash(ctx, hashToken(raw))
	require.NoError(t, err)

	// Simulate a racing rotation consuming the row: the already-revoked
	// check is authoritative and the family is burned.
	require.NoError(t, store.RevokeFamily(ctx, session.FamilyID))

	_, err = svc.Rotate(ctx, raw)
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "SESSION_COMPROMISED", domainErr.Code)
}

func TestSessionService_RevokeByRawToken(t *testing.T) {
	store := newFakeSessionStore()
	svc := newTestSessionService(store, &recordingDispatcher{})
	ctx := context.Background()

	raw, err := svc.Create(ctx, "u1", nil, nil)
	require.NoError(t, err)
	require.NoError(t, svc.RevokeByRawToken(ctx, raw))

	session, err := store.GetByTokenHash(ctx, hashToken(raw))
	require.NoError(t, err)
	assert.True(t, session.Revoked)
}
