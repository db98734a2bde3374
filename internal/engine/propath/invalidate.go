package propath

import (
	"context"
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// InvalidateOnChange watches the propath directories and clears the lookup
// cache whenever a file appears, disappears or is renamed in one of them.
// The returned function stops watching and waits for the loop to exit.
func (l *Locator) InvalidateOnChange(ctx context.Context) (func(), error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	watched := 0
	dirs := l.Directories()
	if l.base != "" {
		dirs = append(append([]string(nil), dirs...), l.base)
	}
	for _, dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			slog.Debug("propath directory not watched", "path", dir, "error", err)
			continue
		}
		watched++
	}
	slog.Debug("watching propath for changes", "directories", watched)

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer fsw.Close()
		for {
			select {
			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					l.Invalidate()
				}
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				slog.Warn("propath watcher error", "error", err)
			case <-ctx.Done():
				return
			}
		}
	}()

	return func() {
		cancel()
		wg.Wait()
	}, nil
}
