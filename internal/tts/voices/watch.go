package voices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrNothingToWatch is returned when none of the voice directories exist.
var ErrNothingToWatch = errors.New("no voice directory could be watched")

const voiceDirOps = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename

// Watch refreshes the selector whenever files change in any of dirs, which
// is how an engine signals that its voice list changed. Bursts of events are
// coalesced. Watching stops when ctx is done.
func (s *Selector) Watch(ctx context.Context, dirs ...string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating fsnotify watcher: %w", err)
	}

	watched := 0
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			s.logger.Debug("not watching voice dir", "dir", dir, "error", err)
			continue
		}
		s.logger.Info("fsnotify watching dir", "dir", dir)
		watched++
	}
	if watched == 0 {
		_ = watcher.Close()
		return ErrNothingToWatch
	}

	go s.watch(ctx, watcher)
	return nil
}

func (s *Selector) watch(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close() //nolint:errcheck

	timer := time.NewTimer(s.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&voiceDirOps == 0 {
				continue
			}
			s.logger.Debug("fsnotify event", "file", event.Name, "event", event.Op)
			timer.Reset(s.debounce)

		case <-timer.C:
			if err := s.Refresh(ctx); err != nil {
				s.logger.Warn("voice refresh failed", "error", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Debug("fsnotify error", "error", err)
		}
	}
}
