package soundboard

import (
	"context"
	"fmt"
	"math"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/soundcheck/internal/backend"
	"github.com/zjrosen/soundcheck/internal/catalog"
	"github.com/zjrosen/soundcheck/internal/diag"
	"github.com/zjrosen/soundcheck/internal/log"
)

// Controller drives playback of loaded assets.
type Controller struct {
	*core

	// musicMu serializes music starts so at most one music asset plays.
	musicMu sync.Mutex
}

// Play starts a loaded asset, restarting it if it is already playing.
// Starting a music asset first stops every other playing music asset.
func (c *Controller) Play(key string) error {
	r, err := c.store.get(key)
	if err != nil {
		return err
	}
	music := r.desc.Category == catalog.Music

	_, span := c.tracer.Start(context.Background(), "soundboard.play",
		trace.WithAttributes(
			attribute.String("asset.key", key),
			attribute.String("asset.category", r.desc.Category.String()),
		))
	defer span.End()

	if music {
		c.musicMu.Lock()
		defer c.musicMu.Unlock()
		// An asset that cannot play must leave the current track alone.
		if r.view().LoadState == Loaded {
			c.stopOtherMusic(r)
		}
	}

	r.mu.Lock()
	if r.state != Loaded {
		r.mu.Unlock()
		c.diag.Append(fmt.Sprintf("Cannot play %s: Sound not loaded", r.desc.DisplayName), diag.Error)
		span.SetStatus(codes.Error, ErrNotReady.Error())
		return fmt.Errorf("%w: %s", ErrNotReady, key)
	}

	h := r.handle
	if r.playback.Playing {
		c.backend.Stop(h)
	}

	c.diag.Append(fmt.Sprintf("Playing %s...", r.desc.DisplayName), diag.Info)
	r.playback.Playing = true
	r.playGen++
	gen := r.playGen

	c.backend.SetVolume(h, r.playback.Volume)
	if music {
		c.backend.SetLoopCount(h, backend.LoopForever)
		c.diag.Append(fmt.Sprintf("Enabled looping for %s", r.desc.DisplayName), diag.Info)
	} else {
		c.backend.SetLoopCount(h, backend.LoopOnce)
	}
	c.backend.Play(h, func(success bool) {
		c.complete(r, gen, success)
	})
	v := r.viewLocked()
	r.mu.Unlock()

	c.changed(v)
	return nil
}

// stopOtherMusic stops every playing music asset except r. Caller holds musicMu.
func (c *Controller) stopOtherMusic(r *record) {
	for _, other := range c.store.all() {
		if other == r || other.desc.Category != catalog.Music {
			continue
		}
		if v := other.view(); v.LoadState == Loaded && v.Playback.Playing {
			c.stop(other, true)
		}
	}
}

// complete handles the backend's completion callback for one play.
func (c *Controller) complete(r *record, gen uint64, success bool) {
	r.mu.Lock()
	if r.playGen != gen || !r.playback.Playing {
		r.mu.Unlock()
		log.Debug(log.CatPlayback, "Ignoring superseded completion", "key", r.desc.Key, "gen", gen)
		return
	}
	r.playback.Playing = false
	v := r.viewLocked()
	r.mu.Unlock()

	name := r.desc.DisplayName
	if success {
		c.diag.Append(fmt.Sprintf("%s finished playing successfully", name), diag.Success)
		c.changed(v)
		return
	}

	c.diag.Append(fmt.Sprintf("%s playback failed!", name), diag.Error)
	c.changed(v)
	c.publish(Event{
		Kind:    PlaybackFailed,
		Key:     r.desc.Key,
		Asset:   v,
		Message: fmt.Sprintf("Failed to play %s", name),
	})
}

// Stop halts a loaded asset and resets its loop count. It is a no-op for
// assets that are not loaded.
func (c *Controller) Stop(key string) error {
	r, err := c.store.get(key)
	if err != nil {
		return err
	}
	c.stop(r, false)
	return nil
}

// stop halts r if it is loaded. With onlyPlaying set, an idle asset is left
// untouched; the state is re-checked under the record lock either way.
func (c *Controller) stop(r *record, onlyPlaying bool) bool {
	r.mu.Lock()
	if r.state != Loaded || (onlyPlaying && !r.playback.Playing) {
		r.mu.Unlock()
		return false
	}
	c.backend.Stop(r.handle)
	c.backend.SetLoopCount(r.handle, backend.LoopOnce)
	r.playback.Playing = false
	r.playGen++
	v := r.viewLocked()
	r.mu.Unlock()

	c.diag.Append(fmt.Sprintf("Stopped %s", r.desc.Key), diag.Info)
	c.changed(v)
	return true
}

// SetVolume changes a loaded asset's volume, live if it is playing.
// Volumes outside [0, 1] are rejected; unloaded assets are ignored.
func (c *Controller) SetVolume(key string, volume float64) error {
	if math.IsNaN(volume) || volume < 0 || volume > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidVolume, volume)
	}
	r, err := c.store.get(key)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.state != Loaded {
		r.mu.Unlock()
		return nil
	}
	c.backend.SetVolume(r.handle, volume)
	r.playback.Volume = volume
	v := r.viewLocked()
	r.mu.Unlock()

	c.diag.Append(fmt.Sprintf("Set %s volume to %.0f%%", key, volume*100), diag.Info)
	c.changed(v)
	return nil
}

// StopAll stops every playing asset and logs one summary warning.
func (c *Controller) StopAll() {
	stopped := 0
	for _, r := range c.store.all() {
		if v := r.view(); v.LoadState == Loaded && v.Playback.Playing {
			if c.stop(r, true) {
				stopped++
			}
		}
	}
	log.Debug(log.CatPlayback, "Stop all", "stopped", stopped)
	c.diag.Append("Stopped all sounds", diag.Warning)
}
