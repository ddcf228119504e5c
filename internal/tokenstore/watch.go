package tokenstore

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch observes the token file for external changes and invokes fn each
// time another process rewrites or removes it (e.g. a logout from a
// second client sharing the device). The watch runs until ctx is
// canceled. Watching the parent directory rather than the file itself
// survives the atomic rename performed by Save.
func (s *Store) Watch(ctx context.Context, fn func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	go s.watchLoop(ctx, watcher, fn)

	return nil
}

// watchLoop is the select loop for Watch. Only events touching the token
// file path are relevant; temp-file churn from atomic saves is ignored.
func (s *Store) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, fn func()) {
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			if event.Name != s.path {
				continue
			}

			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) ||
				event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				s.logger.Debug("token file changed externally",
					slog.String("op", event.Op.String()),
				)

				fn()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}

			s.logger.Warn("token watcher error", slog.String("error", err.Error()))
		}
	}
}
