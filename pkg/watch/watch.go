// Package watch re-runs a file each time it is saved.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sunfmin/mcp-code-runner/pkg/logger"
)

// DefaultDebounce collapses the burst of events editors emit per save.
const DefaultDebounce = 300 * time.Millisecond

// Watcher calls OnChange after file is written or recreated.
type Watcher struct {
	file     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onChange func(ctx context.Context, file string)

	mu    sync.Mutex
	timer *time.Timer
	wg    sync.WaitGroup
}

// New watches file. The directory is watched rather than the file so that
// editors which save by rename keep triggering events.
func New(file string, debounce time.Duration, onChange func(ctx context.Context, file string)) (*Watcher, error) {
	absPath, err := filepath.Abs(file)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(absPath)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(absPath), err)
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		file:     absPath,
		watcher:  fw,
		debounce: debounce,
		onChange: onChange,
	}, nil
}

// Run blocks until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	logger.Info("Watching file", "file", w.file)
	defer w.drain()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.file {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				logger.Debug("File changed", "file", w.file, "op", event.Op.String())
				w.schedule(ctx)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error", "error", err)
		}
	}
}

func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil && w.timer.Stop() {
		w.wg.Done()
	}
	w.wg.Add(1)
	w.timer = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()
		if ctx.Err() != nil {
			return
		}
		w.onChange(ctx, w.file)
	})
}

// drain cancels a pending run and waits for one already in progress.
func (w *Watcher) drain() {
	w.mu.Lock()
	if w.timer != nil && w.timer.Stop() {
		w.wg.Done()
	}
	w.timer = nil
	w.mu.Unlock()

	w.wg.Wait()
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
