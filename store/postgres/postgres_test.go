package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionkit/core/session"
	"github.com/dmitrymomot/sessionkit/store/postgres"
)

// newTestStore connects to the database named by POSTGRES_TEST_URL and
// applies migrations. Tests are skipped when the variable is unset so the
// suite stays runnable without a database.
func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()

	dsn := os.Getenv("POSTGRES_TEST_URL")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_URL not set; skipping postgres store tests")
	}

	ctx := context.Background()
	pool, err := postgres.Connect(ctx, postgres.Config{
		ConnectionString: dsn,
		RetryAttempts:    1,
	})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.Migrate(ctx, pool))
	return postgres.New(pool)
}

func testRecord(userID uuid.UUID) *session.Record {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &session.Record{
		Handle:    uuid.New(),
		UserID:    userID,
		TokenHash: "hash-" + uuid.NewString(),
		CSRFToken: "csrf-" + uuid.NewString(),
		ExpiresAt: now.Add(time.Hour),
		Public: session.PublicData{
			UserID: userID,
			Roles:  []string{"user"},
			Extra:  map[string]any{"theme": "dark"},
		},
		Private:   map[string]any{"mfa": "pending"},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestPostgresStore_CRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	userID := uuid.New()

	rec := testRecord(userID)
	require.NoError(t, store.CreateSession(ctx, rec))

	t.Run("get returns the persisted record", func(t *testing.T) {
		got, err := store.GetSession(ctx, rec.Handle)
		require.NoError(t, err)
		assert.Equal(t, rec.TokenHash, got.TokenHash)
		assert.Equal(t, rec.CSRFToken, got.CSRFToken)
		assert.Equal(t, []string{"user"}, got.Public.Roles)
		assert.Equal(t, "dark", got.Public.Extra["theme"])
		assert.Equal(t, "pending", got.Private["mfa"])
		assert.WithinDuration(t, rec.ExpiresAt, got.ExpiresAt, time.Millisecond)
	})

	t.Run("duplicate handle returns ErrConflict", func(t *testing.T) {
		dup := testRecord(userID)
		dup.Handle = rec.Handle
		require.ErrorIs(t, store.CreateSession(ctx, dup), session.ErrConflict)
	})

	t.Run("unknown handle returns ErrNotFound", func(t *testing.T) {
		_, err := store.GetSession(ctx, uuid.New())
		require.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("partial update touches only the given fields", func(t *testing.T) {
		newExpiry := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Microsecond)
		updated, err := store.UpdateSession(ctx, rec.Handle, session.Update{
			ExpiresAt: &newExpiry,
			Private:   map[string]any{"mfa": "done"},
		})
		require.NoError(t, err)
		assert.WithinDuration(t, newExpiry, updated.ExpiresAt, time.Millisecond)
		assert.Equal(t, "done", updated.Private["mfa"])
		assert.Equal(t, rec.TokenHash, updated.TokenHash)
		assert.Equal(t, "dark", updated.Public.Extra["theme"])
	})

	t.Run("update of missing handle returns ErrNotFound", func(t *testing.T) {
		exp := time.Now()
		_, err := store.UpdateSession(ctx, uuid.New(), session.Update{ExpiresAt: &exp})
		require.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("sessions list is user scoped and ordered", func(t *testing.T) {
		second := testRecord(userID)
		second.CreatedAt = rec.CreatedAt.Add(time.Minute)
		require.NoError(t, store.CreateSession(ctx, second))

		other := testRecord(uuid.New())
		require.NoError(t, store.CreateSession(ctx, other))

		recs, err := store.GetSessions(ctx, userID)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, rec.Handle, recs[0].Handle)
		assert.Equal(t, second.Handle, recs[1].Handle)
	})

	t.Run("delete returns the record and is not repeatable", func(t *testing.T) {
		deleted, err := store.DeleteSession(ctx, rec.Handle)
		require.NoError(t, err)
		assert.Equal(t, rec.Handle, deleted.Handle)

		_, err = store.DeleteSession(ctx, rec.Handle)
		require.ErrorIs(t, err, session.ErrNotFound)
	})
}
