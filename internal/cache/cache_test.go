package cache

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotmail/gotmail-go/internal/api"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(":memory:", slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func testAccount() *api.Account {
	return &api.Account{
		ID:          "u1",
		PhoneNumber: "+15550001",
		FirstName:   "Ada",
		Email:       "ada@example.com",
	}
}

func TestLoadSnapshot_Empty(t *testing.T) {
	store := newTestStore(t)

	_, err := store.LoadSnapshot(context.Background())
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestSaveAndLoadSnapshot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	profile := &api.UserProfile{Bio: "hi", Birthdate: "1990-01-01"}
	require.NoError(t, store.SaveSnapshot(ctx, testAccount(), profile))

	snap, err := store.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", snap.Account.ID)
	assert.Equal(t, "Ada", snap.Account.FirstName)
	require.NotNil(t, snap.Profile)
	assert.Equal(t, "hi", snap.Profile.Bio)
	assert.False(t, snap.CachedAt.IsZero())
}

func TestSaveSnapshot_NilProfilePreservesPrevious(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSnapshot(ctx, testAccount(), &api.UserProfile{Bio: "keep me"}))

	// Account-only refresh, e.g. after login.
	account := testAccount()
	account.FirstName = "Ada2"
	require.NoError(t, store.SaveSnapshot(ctx, account, nil))

	snap, err := store.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ada2", snap.Account.FirstName)
	require.NotNil(t, snap.Profile, "profile must survive an account-only update")
	assert.Equal(t, "keep me", snap.Profile.Bio)
}

func TestSaveSnapshot_ReplacesProfile(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSnapshot(ctx, testAccount(), &api.UserProfile{Bio: "old"}))
	require.NoError(t, store.SaveSnapshot(ctx, testAccount(), &api.UserProfile{Bio: "new"}))

	snap, err := store.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", snap.Profile.Bio)
}

func TestSaveSnapshot_NilAccountRejected(t *testing.T) {
	store := newTestStore(t)

	assert.Error(t, store.SaveSnapshot(context.Background(), nil, nil))
}

func TestClear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSnapshot(ctx, testAccount(), nil))
	require.NoError(t, store.Clear(ctx))

	_, err := store.LoadSnapshot(ctx)
	assert.ErrorIs(t, err, ErrNoSnapshot)

	require.NoError(t, store.Clear(ctx), "clearing an empty cache is fine")
}

func TestOpen_CreatesFileAndSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	store, err := Open(path, slog.Default())
	require.NoError(t, err)
	require.NoError(t, store.SaveSnapshot(ctx, testAccount(), nil))
	require.NoError(t, store.Close())

	reopened, err := Open(path, slog.Default())
	require.NoError(t, err)
	defer reopened.Close()

	snap, err := reopened.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", snap.Account.ID)
}
