package tokenstore

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// waitFor polls the channel with a deadline generous enough for slow CI
// filesystems.
func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()

	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watch callback")
	}
}

func TestWatch_FiresOnExternalRemove(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "token.json"), slog.Default())
	require.NoError(t, store.Save("tok", nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fired := make(chan struct{}, 8)
	require.NoError(t, store.Watch(ctx, func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	}))

	require.NoError(t, store.Remove())
	waitFor(t, fired)
}

func TestWatch_FiresOnExternalRewrite(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "token.json"), slog.Default())
	require.NoError(t, store.Save("tok", nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fired := make(chan struct{}, 8)
	require.NoError(t, store.Watch(ctx, func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	}))

	// Another process rotating the token writes through the same
	// atomic-rename path.
	require.NoError(t, store.Save("rotated", nil))
	waitFor(t, fired)
}

func TestWatch_StopsOnCancel(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "token.json"), slog.Default())
	require.NoError(t, store.Save("tok", nil))

	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, store.Watch(ctx, func() {}))
	cancel()

	// The watcher shuts down asynchronously; nothing to assert beyond
	// not leaking a panic. Give the loop a beat to exit.
	time.Sleep(50 * time.Millisecond)
}
