package soundboard

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/soundcheck/internal/backend"
	"github.com/zjrosen/soundcheck/internal/diag"
	"github.com/zjrosen/soundcheck/internal/log"
	"github.com/zjrosen/soundcheck/internal/pubsub"
)

// core holds the collaborators shared by Loader and Controller.
type core struct {
	backend backend.Backend
	diag    *diag.Log
	store   *store
	events  *pubsub.Broker[Event]
	tracer  trace.Tracer
}

func (c *core) publish(ev Event) {
	c.events.Publish(pubsub.UpdatedEvent, ev)
}

func (c *core) changed(v AssetView) {
	c.publish(Event{Kind: AssetChanged, Key: v.Descriptor.Key, Asset: v})
}

// Loader drives the per-asset load state machine.
type Loader struct {
	*core
	strict bool
}

// Load requests the asset from the backend. It is legal only from NotLoaded
// and issues exactly one backend load.
func (l *Loader) Load(key string) error {
	r, err := l.store.get(key)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.state != NotLoaded {
		state := r.state
		r.mu.Unlock()
		return fmt.Errorf("%w: load %s from %s", ErrInvalidTransition, key, state)
	}
	r.state = Loading
	r.loadGen++
	gen := r.loadGen
	v := r.viewLocked()
	r.mu.Unlock()

	name := r.desc.ResourceName
	l.diag.Append(fmt.Sprintf("Attempting to load: %s", name), diag.Info)
	l.changed(v)
	l.request(r, gen, name, false)
	return nil
}

// RetryWithFallback makes the single fallback attempt for an asset in
// LoadError, using the resource name without its extension.
func (l *Loader) RetryWithFallback(key string) error {
	r, err := l.store.get(key)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.state != LoadError {
		state := r.state
		r.mu.Unlock()
		return fmt.Errorf("%w: retry %s from %s", ErrInvalidTransition, key, state)
	}
	r.state = Loading
	r.loadGen++
	gen := r.loadGen
	v := r.viewLocked()
	r.mu.Unlock()

	l.diag.Append(fmt.Sprintf("Trying alternative load for %s (without extension)", r.desc.ResourceName), diag.Warning)
	l.changed(v)
	l.request(r, gen, fallbackName(r.desc.ResourceName), true)
	return nil
}

func (l *Loader) request(r *record, gen uint64, name string, fallback bool) {
	_, span := l.tracer.Start(context.Background(), "soundboard.load",
		trace.WithAttributes(
			attribute.String("asset.key", r.desc.Key),
			attribute.String("asset.resource", name),
			attribute.Bool("asset.fallback", fallback),
		))

	log.Debug(log.CatLoader, "Backend load requested", "key", r.desc.Key, "name", name, "fallback", fallback)
	l.backend.LoadByName(name, func(h backend.Handle, err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		l.complete(r, gen, fallback, h, err)
	})
}

// complete applies a backend load result. Results for a superseded
// generation release their handle and change nothing.
func (l *Loader) complete(r *record, gen uint64, fallback bool, h backend.Handle, err error) {
	file := r.desc.ResourceName

	r.mu.Lock()
	if r.loadGen != gen || r.state != Loading {
		r.mu.Unlock()
		log.Debug(log.CatLoader, "Discarding stale load result", "key", r.desc.Key, "gen", gen)
		if h != nil {
			l.backend.Release(h)
		}
		return
	}

	if err != nil {
		if fallback {
			r.state = LoadFailed
		} else {
			r.state = LoadError
		}
		v := r.viewLocked()
		r.mu.Unlock()

		if fallback {
			l.diag.Append(fmt.Sprintf("Alternative load also failed for %s: %v", file, err), diag.Error)
			l.changed(v)
			return
		}
		l.diag.Append(fmt.Sprintf("Failed to load %s: %v", file, err), diag.Error)
		l.changed(v)
		if rerr := l.RetryWithFallback(r.desc.Key); rerr != nil {
			// Released between the failure and the retry.
			log.Debug(log.CatLoader, "Fallback skipped", "key", r.desc.Key, "reason", rerr)
		}
		return
	}

	r.state = Loaded
	r.handle = h
	r.playback = defaultPlayback()
	r.duration = h.Duration()
	r.channels = h.Channels()
	v := r.viewLocked()
	r.mu.Unlock()

	secs := v.Duration.Seconds()
	if fallback {
		l.diag.Append(fmt.Sprintf("Alternative load succeeded for %s (Duration: %.2fs)", file, secs), diag.Success)
	} else {
		l.diag.Append(fmt.Sprintf("Successfully loaded %s (Duration: %.2fs)", file, secs), diag.Success)
	}
	l.diag.Append(fmt.Sprintf("%s: channels=%d, volume=%g", r.desc.DisplayName, v.Channels, v.Playback.Volume), diag.Info)
	l.changed(v)
}

// Release frees the asset's handle and returns it to NotLoaded. Releasing
// while a load is in flight is a programming error: it returns
// ErrReleaseWhileLoading, and panics in strict mode.
func (l *Loader) Release(key string) error {
	r, err := l.store.get(key)
	if err != nil {
		return err
	}

	_, err = l.release(r)
	if errors.Is(err, ErrReleaseWhileLoading) && l.strict {
		panic(err)
	}
	return err
}

// release resets r unless it is loading. It reports whether anything changed.
func (l *Loader) release(r *record) (bool, error) {
	r.mu.Lock()
	switch r.state {
	case Loading:
		r.mu.Unlock()
		return false, fmt.Errorf("%w: %s", ErrReleaseWhileLoading, r.desc.Key)
	case NotLoaded:
		r.mu.Unlock()
		return false, nil
	}
	if h := r.resetLocked(); h != nil {
		l.backend.Stop(h)
		l.backend.Release(h)
	}
	v := r.viewLocked()
	r.mu.Unlock()

	log.Debug(log.CatLoader, "Released asset", "key", r.desc.Key)
	l.changed(v)
	return true, nil
}

// fallbackName strips the extension from a resource name.
func fallbackName(name string) string {
	return strings.TrimSuffix(name, path.Ext(name))
}
