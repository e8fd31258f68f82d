// Package watch reports changes to the sounds directory so loaded assets can
// be refreshed without restarting.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zjrosen/soundcheck/internal/log"
)

// DefaultDebounce is the quiet period used when Config.Debounce is zero.
const DefaultDebounce = 500 * time.Millisecond

// ChangeFunc receives the base names of files changed during one burst.
type ChangeFunc func(names []string)

// Config configures a Watcher.
type Config struct {
	// Dir is the directory to watch. Required.
	Dir string

	// Debounce is how long the directory must stay quiet before OnChange fires.
	Debounce time.Duration

	// OnChange is called from the watcher goroutine after each burst of changes.
	OnChange ChangeFunc
}

// Watcher debounces filesystem events for one directory.
type Watcher struct {
	dir      string
	debounce time.Duration
	onChange ChangeFunc

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

// New creates a Watcher. Call Start to begin watching.
func New(cfg Config) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, errors.New("watch: directory is required")
	}
	if cfg.OnChange == nil {
		return nil, errors.New("watch: change callback is required")
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{dir: cfg.Dir, debounce: debounce, onChange: cfg.OnChange}, nil
}

// Start begins watching. It returns an error if the directory cannot be watched.
// Starting an already started watcher is a no-op.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done != nil || w.stopped {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	w.fsw = fsw
	w.cancel = cancel
	w.done = make(chan struct{})
	done := w.done

	log.SafeGo("watch.loop", func() {
		defer close(done)
		w.loop(loopCtx, fsw)
	})
	log.Info(log.CatWatch, "Watching sounds directory", "dir", w.dir, "debounce", w.debounce)
	return nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	pending := make(map[string]struct{})
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) &&
				!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			log.Debug(log.CatWatch, "File event", "op", ev.Op.String(), "name", ev.Name)
			pending[filepath.Base(ev.Name)] = struct{}{}
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			log.ErrorErr(log.CatWatch, "Watcher error", err, "dir", w.dir)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			names := make([]string, 0, len(pending))
			for n := range pending {
				names = append(names, n)
			}
			slices.Sort(names)
			clear(pending)
			w.onChange(names)
		}
	}
}

// Stop ends watching and waits for the loop to exit. It is safe to call
// Stop multiple times or before Start.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	cancel, fsw, done := w.cancel, w.fsw, w.done
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	_ = fsw.Close()
}
