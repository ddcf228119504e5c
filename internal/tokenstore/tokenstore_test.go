package tokenstore

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	return New(filepath.Join(t.TempDir(), "token.json"), slog.Default())
}

func TestSaveLoadRemove(t *testing.T) {
	store := newTestStore(t)

	assert.Empty(t, store.Load(), "fresh store holds no token")

	require.NoError(t, store.Save("tok123", map[string]string{"device_id": "dev-1"}))
	assert.Equal(t, "tok123", store.Load())
	assert.Equal(t, map[string]string{"device_id": "dev-1"}, store.Meta())

	require.NoError(t, store.Remove())
	assert.Empty(t, store.Load())
}

func TestSave_Overwrites(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save("first", nil))
	require.NoError(t, store.Save("second", nil))
	assert.Equal(t, "second", store.Load())
}

func TestRemove_AbsentIsNotAnError(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Remove())
	require.NoError(t, store.Remove())
}

func TestLoad_CorruptFileTreatedAsLoggedOut(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, os.MkdirAll(filepath.Dir(store.Path()), 0o700))
	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0o600))

	assert.Empty(t, store.Load())
	assert.Nil(t, store.Meta())
}

func TestSave_FilePermissions(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save("tok", nil))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FilePerms), info.Mode().Perm())
}

func TestSave_CreatesMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "token.json")
	store := New(path, slog.Default())

	require.NoError(t, store.Save("tok", nil))
	assert.Equal(t, "tok", store.Load())
}
