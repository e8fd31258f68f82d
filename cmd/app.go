package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/zjrosen/soundcheck/internal/backend/beepaudio"
	"github.com/zjrosen/soundcheck/internal/catalog"
	"github.com/zjrosen/soundcheck/internal/config"
	"github.com/zjrosen/soundcheck/internal/log"
	"github.com/zjrosen/soundcheck/internal/soundboard"
	"github.com/zjrosen/soundcheck/internal/watch"
)

// app wires a soundboard to the audio backend and, optionally, a watcher
// that reloads everything when the sounds directory changes.
type app struct {
	board   *soundboard.Orchestrator
	backend *beepaudio.Backend
	watcher *watch.Watcher
}

func loadCatalog(c config.Config) (*catalog.Catalog, error) {
	if c.Catalog == "" {
		return catalog.Default(), nil
	}
	cat, err := catalog.Load(c.Catalog)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	return cat, nil
}

func newApp(ctx context.Context, c config.Config) (*app, error) {
	cat, err := loadCatalog(c)
	if err != nil {
		return nil, err
	}

	root, err := beepaudio.ResourceRoot(c.SoundsDir)
	if err != nil {
		return nil, err
	}

	be, err := beepaudio.New(beepaudio.Options{
		Fs:         root,
		Enabled:    c.Audio.Enabled,
		SampleRate: c.Audio.SampleRate,
		BufferSize: c.Audio.Buffer(),
	})
	if err != nil {
		return nil, fmt.Errorf("opening audio: %w", err)
	}

	board, err := soundboard.New(soundboard.Config{
		Catalog:     cat,
		Backend:     be,
		LogCapacity: c.LogCapacity,
		Strict:      c.Strict,
	})
	if err != nil {
		_ = be.Close()
		return nil, err
	}

	a := &app{board: board, backend: be}

	if c.Watch.Enabled {
		w, err := watch.New(watch.Config{
			Dir:      c.SoundsDir,
			Debounce: c.Watch.Debounce,
			OnChange: a.soundsChanged,
		})
		if err == nil {
			err = w.Start(ctx)
		}
		if err != nil {
			_ = board.Shutdown()
			return nil, fmt.Errorf("watching sounds: %w", err)
		}
		a.watcher = w
	}

	log.Debug(log.CatCLI, "Soundboard ready", "assets", cat.Len(), "audio", c.Audio.Enabled)
	return a, nil
}

// soundsChanged drops cached name resolutions and reloads every asset.
func (a *app) soundsChanged(names []string) {
	log.Info(log.CatWatch, "Sounds changed, reloading", "files", names)
	a.backend.Invalidate()
	if err := a.board.ReloadAll(); err != nil && !errors.Is(err, soundboard.ErrAlreadyShutdown) {
		log.ErrorErr(log.CatWatch, "Reload after change failed", err)
	}
}

// Close stops watching and releases every sound.
func (a *app) Close() error {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	return a.board.Shutdown()
}
