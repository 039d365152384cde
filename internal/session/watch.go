package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/oakwood-commons/crmx/pkg/logger"
)

// Watch emits the reloaded session whenever the session file is replaced,
// including by another process. The channel closes when ctx is done.
func (s *Store) Watch(ctx context.Context) (<-chan Session, error) {
	if err := os.MkdirAll(s.dir, dirMode); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating session watcher: %w", err)
	}
	// Watch the directory: atomic renames replace the file's inode.
	if err := watcher.Add(s.dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", s.dir, err)
	}

	out := make(chan Session, 1)
	go func() {
		defer close(out)
		defer watcher.Close()
		lgr := logger.FromContext(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != FileName {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				sess, err := s.Load()
				if err != nil {
					lgr.Error(err, "reloading session")
					continue
				}
				select {
				case out <- sess:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				lgr.Error(err, "session watcher")
			}
		}
	}()
	return out, nil
}
