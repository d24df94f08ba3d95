package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionkit/core/anonymous"
	"github.com/dmitrymomot/sessionkit/core/session"
	"github.com/dmitrymomot/sessionkit/core/token"
	"github.com/dmitrymomot/sessionkit/store/memory"
)

const testSecret = "test-secret-key-of-sufficient-length-0123"

// mockStore implements session.Store for error-path tests.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetSession(ctx context.Context, handle uuid.UUID) (*session.Record, error) {
	args := m.Called(ctx, handle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Record), args.Error(1)
}

func (m *mockStore) GetSessions(ctx context.Context, userID uuid.UUID) ([]session.Record, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]session.Record), args.Error(1)
}

func (m *mockStore) CreateSession(ctx context.Context, rec *session.Record) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *mockStore) UpdateSession(ctx context.Context, handle uuid.UUID, update session.Update) (*session.Record, error) {
	args := m.Called(ctx, handle, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Record), args.Error(1)
}

func (m *mockStore) DeleteSession(ctx context.Context, handle uuid.UUID) (*session.Record, error) {
	args := m.Called(ctx, handle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Record), args.Error(1)
}

// Helpers

func newManager(t *testing.T, store session.Store, opts ...session.Option) *session.Manager {
	t.Helper()

	anon, err := anonymous.New(testSecret)
	require.NoError(t, err)

	mgr, err := session.New(store, anon, opts...)
	require.NoError(t, err)
	return mgr
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("requires a store", func(t *testing.T) {
		t.Parallel()

		anon, err := anonymous.New(testSecret)
		require.NoError(t, err)

		_, err = session.New(nil, anon)
		require.Error(t, err)
	})

	t.Run("requires an anonymous token manager", func(t *testing.T) {
		t.Parallel()

		_, err := session.New(memory.New(), nil)
		require.Error(t, err)
	})

	t.Run("defaults to 30 day expiry", func(t *testing.T) {
		t.Parallel()

		mgr := newManager(t, memory.New())
		assert.Equal(t, 43200*time.Minute, mgr.Expiry())
	})
}

func TestManager_Create(t *testing.T) {
	t.Parallel()

	t.Run("persists the token hash, never the raw token", func(t *testing.T) {
		t.Parallel()

		store := memory.New()
		mgr := newManager(t, store)
		userID := uuid.New()

		issued, err := mgr.Create(context.Background(), session.PublicData{
			UserID: userID,
			Roles:  []string{"user"},
		}, nil)
		require.NoError(t, err)

		rec, err := store.GetSession(context.Background(), issued.Handle)
		require.NoError(t, err)
		assert.Equal(t, token.Hash(issued.RawToken), rec.TokenHash)
		assert.NotContains(t, rec.TokenHash, issued.RawToken)
		assert.NotEqual(t, issued.RawToken, issued.CSRFToken)
		assert.Equal(t, userID, rec.UserID)
	})

	t.Run("sets expiry to now plus configured lifetime", func(t *testing.T) {
		t.Parallel()

		store := memory.New()
		mgr := newManager(t, store)

		issued, err := mgr.Create(context.Background(), session.PublicData{UserID: uuid.New()}, nil)
		require.NoError(t, err)

		expected := time.Now().Add(session.DefaultExpiry)
		assert.WithinDuration(t, expected, issued.Record.ExpiresAt, 5*time.Second)
	})

	t.Run("does not revoke sibling sessions", func(t *testing.T) {
		t.Parallel()

		store := memory.New()
		mgr := newManager(t, store)
		userID := uuid.New()

		first, err := mgr.Create(context.Background(), session.PublicData{UserID: userID}, nil)
		require.NoError(t, err)
		_, err = mgr.Create(context.Background(), session.PublicData{UserID: userID}, nil)
		require.NoError(t, err)

		recs, err := store.GetSessions(context.Background(), userID)
		require.NoError(t, err)
		assert.Len(t, recs, 2)

		_, err = store.GetSession(context.Background(), first.Handle)
		require.NoError(t, err)
	})

	t.Run("retries with a fresh handle on conflict", func(t *testing.T) {
		t.Parallel()

		store := &mockStore{}
		mgr := newManager(t, store)

		store.On("CreateSession", mock.Anything, mock.Anything).Return(session.ErrConflict).Once()
		store.On("CreateSession", mock.Anything, mock.Anything).Return(nil).Once()

		issued, err := mgr.Create(context.Background(), session.PublicData{UserID: uuid.New()}, nil)
		require.NoError(t, err)
		require.NotNil(t, issued)
		store.AssertExpectations(t)
	})

	t.Run("gives up after bounded conflict retries", func(t *testing.T) {
		t.Parallel()

		store := &mockStore{}
		mgr := newManager(t, store)

		store.On("CreateSession", mock.Anything, mock.Anything).Return(session.ErrConflict)

		_, err := mgr.Create(context.Background(), session.PublicData{UserID: uuid.New()}, nil)
		require.ErrorIs(t, err, session.ErrConflict)
	})
}

func TestManager_Resolve(t *testing.T) {
	t.Parallel()

	t.Run("resolves a valid opaque credential", func(t *testing.T) {
		t.Parallel()

		store := memory.New()
		mgr := newManager(t, store)
		userID := uuid.New()

		issued, err := mgr.Create(context.Background(), session.PublicData{
			UserID: userID,
			Roles:  []string{"user"},
		}, nil)
		require.NoError(t, err)

		sc, err := mgr.Resolve(context.Background(), issued.Credential)
		require.NoError(t, err)
		assert.True(t, sc.IsAuthenticated())
		assert.Equal(t, userID, sc.UserID())
		assert.Equal(t, issued.Handle, sc.Handle())
		assert.Equal(t, issued.CSRFToken, sc.CSRFToken())
	})

	t.Run("slides expiry forward on successful verification", func(t *testing.T) {
		t.Parallel()

		store := memory.New()
		mgr := newManager(t, store, session.WithExpiry(time.Hour))

		issued, err := mgr.Create(context.Background(), session.PublicData{UserID: uuid.New()}, nil)
		require.NoError(t, err)

		// Age the record artificially.
		earlier := time.Now().Add(10 * time.Minute)
		_, err = store.UpdateSession(context.Background(), issued.Handle, session.Update{ExpiresAt: &earlier})
		require.NoError(t, err)

		_, err = mgr.Resolve(context.Background(), issued.Credential)
		require.NoError(t, err)

		rec, err := store.GetSession(context.Background(), issued.Handle)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(time.Hour), rec.ExpiresAt, 5*time.Second)
		assert.True(t, rec.ExpiresAt.After(earlier))
	})

	t.Run("treats an expired record as anonymous and never refreshes it", func(t *testing.T) {
		t.Parallel()

		store := memory.New()
		mgr := newManager(t, store)

		issued, err := mgr.Create(context.Background(), session.PublicData{UserID: uuid.New()}, nil)
		require.NoError(t, err)

		expired := time.Now().Add(-time.Minute)
		_, err = store.UpdateSession(context.Background(), issued.Handle, session.Update{ExpiresAt: &expired})
		require.NoError(t, err)

		sc, err := mgr.Resolve(context.Background(), issued.Credential)
		require.NoError(t, err)
		assert.False(t, sc.IsAuthenticated())
		require.ErrorIs(t, sc.Authorize(), session.ErrAuthentication)

		rec, err := store.GetSession(context.Background(), issued.Handle)
		require.NoError(t, err)
		assert.Equal(t, expired.Unix(), rec.ExpiresAt.Unix())
	})

	t.Run("downgrades a token hash mismatch to anonymous", func(t *testing.T) {
		t.Parallel()

		store := memory.New()
		mgr := newManager(t, store)

		issued, err := mgr.Create(context.Background(), session.PublicData{UserID: uuid.New()}, nil)
		require.NoError(t, err)

		forged := issued.Handle.String() + ":AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
		sc, err := mgr.Resolve(context.Background(), forged)
		require.NoError(t, err)
		assert.False(t, sc.IsAuthenticated())
	})

	t.Run("downgrades an unknown handle to anonymous", func(t *testing.T) {
		t.Parallel()

		mgr := newManager(t, memory.New())

		sc, err := mgr.Resolve(context.Background(), uuid.NewString()+":AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
		require.NoError(t, err)
		assert.False(t, sc.IsAuthenticated())
	})

	t.Run("synthesizes a fresh anonymous session without credentials", func(t *testing.T) {
		t.Parallel()

		store := memory.New()
		mgr := newManager(t, store)

		sc, err := mgr.Resolve(context.Background(), "")
		require.NoError(t, err)
		assert.False(t, sc.IsAuthenticated())
		assert.Equal(t, uuid.Nil, sc.UserID())
		assert.Empty(t, sc.Roles())
		assert.Zero(t, store.Len(), "anonymous resolution must not create records")

		cred, ok := sc.PendingCredential()
		require.True(t, ok)
		assert.NotEmpty(t, cred)
		csrf, ok := sc.PendingCSRF()
		require.True(t, ok)
		assert.Equal(t, sc.CSRFToken(), csrf)
	})

	t.Run("restores public data from a valid anonymous token", func(t *testing.T) {
		t.Parallel()

		store := memory.New()
		mgr := newManager(t, store)

		first, err := mgr.Resolve(context.Background(), "")
		require.NoError(t, err)
		require.NoError(t, first.SetPublicData(context.Background(), session.PublicData{
			Extra: map[string]any{"theme": "dark"},
		}))

		second, err := mgr.Resolve(context.Background(), first.Credential())
		require.NoError(t, err)
		assert.Equal(t, "dark", second.PublicData().Extra["theme"])
		assert.Equal(t, first.CSRFToken(), second.CSRFToken())
		assert.Zero(t, store.Len())
	})

	t.Run("downgrades garbage credentials to anonymous", func(t *testing.T) {
		t.Parallel()

		mgr := newManager(t, memory.New())

		sc, err := mgr.Resolve(context.Background(), "complete-garbage")
		require.NoError(t, err)
		assert.False(t, sc.IsAuthenticated())
	})

	t.Run("resolves a revocation race to anonymous", func(t *testing.T) {
		t.Parallel()

		store := &mockStore{}
		mgr := newManager(t, store)

		handle := uuid.New()
		raw := "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
		rec := &session.Record{
			Handle:    handle,
			UserID:    uuid.New(),
			TokenHash: token.Hash(raw),
			ExpiresAt: time.Now().Add(time.Hour),
		}

		store.On("GetSession", mock.Anything, handle).Return(rec, nil)
		// The record is deleted between lookup and sliding refresh.
		store.On("UpdateSession", mock.Anything, handle, mock.Anything).Return(nil, session.ErrNotFound)

		sc, err := mgr.Resolve(context.Background(), handle.String()+":"+raw)
		require.NoError(t, err)
		assert.False(t, sc.IsAuthenticated())
		require.ErrorIs(t, sc.Authorize(), session.ErrAuthentication)
	})
}

func TestManager_Revoke(t *testing.T) {
	t.Parallel()

	t.Run("removes exactly the given record", func(t *testing.T) {
		t.Parallel()

		store := memory.New()
		mgr := newManager(t, store)
		userID := uuid.New()

		first, err := mgr.Create(context.Background(), session.PublicData{UserID: userID}, nil)
		require.NoError(t, err)
		second, err := mgr.Create(context.Background(), session.PublicData{UserID: userID}, nil)
		require.NoError(t, err)

		require.NoError(t, mgr.Revoke(context.Background(), first.Handle))

		_, err = store.GetSession(context.Background(), first.Handle)
		require.ErrorIs(t, err, session.ErrNotFound)
		_, err = store.GetSession(context.Background(), second.Handle)
		require.NoError(t, err)
	})

	t.Run("is idempotent", func(t *testing.T) {
		t.Parallel()

		store := memory.New()
		mgr := newManager(t, store)

		issued, err := mgr.Create(context.Background(), session.PublicData{UserID: uuid.New()}, nil)
		require.NoError(t, err)

		require.NoError(t, mgr.Revoke(context.Background(), issued.Handle))
		require.NoError(t, mgr.Revoke(context.Background(), issued.Handle))
	})

	t.Run("verification after revoke yields the anonymous path", func(t *testing.T) {
		t.Parallel()

		store := memory.New()
		mgr := newManager(t, store)

		issued, err := mgr.Create(context.Background(), session.PublicData{UserID: uuid.New()}, nil)
		require.NoError(t, err)
		require.NoError(t, mgr.Revoke(context.Background(), issued.Handle))

		sc, err := mgr.Resolve(context.Background(), issued.Credential)
		require.NoError(t, err)
		require.ErrorIs(t, sc.Authorize(), session.ErrAuthentication)
	})
}

func TestManager_RevokeAll(t *testing.T) {
	t.Parallel()

	t.Run("removes every record of the user and nobody else's", func(t *testing.T) {
		t.Parallel()

		store := memory.New()
		mgr := newManager(t, store)
		victim := uuid.New()
		bystander := uuid.New()

		_, err := mgr.Create(context.Background(), session.PublicData{UserID: victim}, nil)
		require.NoError(t, err)
		_, err = mgr.Create(context.Background(), session.PublicData{UserID: victim}, nil)
		require.NoError(t, err)
		other, err := mgr.Create(context.Background(), session.PublicData{UserID: bystander}, nil)
		require.NoError(t, err)

		require.NoError(t, mgr.RevokeAll(context.Background(), victim))

		recs, err := store.GetSessions(context.Background(), victim)
		require.NoError(t, err)
		assert.Empty(t, recs)

		_, err = store.GetSession(context.Background(), other.Handle)
		require.NoError(t, err)
	})
}
