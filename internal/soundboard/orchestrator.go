// Package soundboard manages the lifecycle of catalog assets: asynchronous
// loading with a fallback retry, playback with music exclusivity and live
// volume, and a diagnostic log of every transition.
//
// The Orchestrator is the only type a presentation layer needs. Commands
// return immediately; results arrive as state changes and log entries, which
// callers observe through Snapshot, Logs and Subscribe.
package soundboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/soundcheck/internal/backend"
	"github.com/zjrosen/soundcheck/internal/catalog"
	"github.com/zjrosen/soundcheck/internal/diag"
	"github.com/zjrosen/soundcheck/internal/log"
	"github.com/zjrosen/soundcheck/internal/pubsub"
	"github.com/zjrosen/soundcheck/internal/tracing"
)

// settlePollInterval bounds how long AwaitSettled can miss a change when the
// event buffer overflows.
const settlePollInterval = 100 * time.Millisecond

// Config configures an Orchestrator.
type Config struct {
	// Catalog lists the managed assets. Required.
	Catalog *catalog.Catalog

	// Backend performs decoding and playback. Required.
	Backend backend.Backend

	// LogCapacity bounds the diagnostic log. Non-positive uses diag.DefaultCapacity.
	LogCapacity int

	// Strict makes releasing a loading asset panic instead of returning an error.
	Strict bool

	// Tracer records load and play spans. Defaults to the global soundcheck tracer.
	Tracer trace.Tracer

	// Clock stamps diagnostic entries (for testing).
	// If nil, uses time.Now().
	Clock diag.Clock

	// EventBuffer sizes each subscriber channel. Zero uses the broker default.
	EventBuffer int
}

// Orchestrator composes the loader, playback controller and diagnostic log.
type Orchestrator struct {
	core   *core
	loader *Loader
	player *Controller

	mu       sync.Mutex
	shutdown bool
}

// New creates an Orchestrator with every asset NotLoaded.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("soundboard: catalog is required")
	}
	if cfg.Backend == nil {
		return nil, errors.New("soundboard: backend is required")
	}

	tracer := cfg.Tracer
	if tracer == nil {
		tracer = tracing.Tracer()
	}

	var events *pubsub.Broker[Event]
	if cfg.EventBuffer > 0 {
		events = pubsub.NewBrokerWithBuffer[Event](cfg.EventBuffer)
	} else {
		events = pubsub.NewBroker[Event]()
	}

	opts := []diag.Option{
		diag.WithOnAppend(func(e diag.Entry) {
			events.Publish(pubsub.CreatedEvent, Event{Kind: LogAppended, Entry: e})
		}),
	}
	if cfg.Clock != nil {
		opts = append(opts, diag.WithClock(cfg.Clock))
	}

	c := &core{
		backend: cfg.Backend,
		diag:    diag.New(cfg.LogCapacity, opts...),
		store:   newStore(cfg.Catalog),
		events:  events,
		tracer:  tracer,
	}

	return &Orchestrator{
		core:   c,
		loader: &Loader{core: c, strict: cfg.Strict},
		player: &Controller{core: c},
	}, nil
}

// Loader exposes the load state machine.
func (o *Orchestrator) Loader() *Loader { return o.loader }

// Controller exposes the playback controller.
func (o *Orchestrator) Controller() *Controller { return o.player }

func (o *Orchestrator) checkOpen() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.shutdown {
		return ErrAlreadyShutdown
	}
	return nil
}

// LoadAll starts loading every NotLoaded asset and returns without waiting.
func (o *Orchestrator) LoadAll() error {
	if err := o.checkOpen(); err != nil {
		return err
	}
	o.core.diag.Append("Loading all sound files...", diag.Info)
	for _, r := range o.core.store.all() {
		if err := o.loader.Load(r.desc.Key); err != nil && !errors.Is(err, ErrInvalidTransition) {
			return err
		}
	}
	return nil
}

// Load starts loading one asset.
func (o *Orchestrator) Load(key string) error {
	if err := o.checkOpen(); err != nil {
		return err
	}
	return o.loader.Load(key)
}

// ReloadAll releases and reloads every asset. Assets with a load still in
// flight are skipped with a warning.
func (o *Orchestrator) ReloadAll() error {
	if err := o.checkOpen(); err != nil {
		return err
	}
	o.core.diag.Append("Reloading all sounds...", diag.Warning)
	for _, r := range o.core.store.all() {
		o.reload(r)
	}
	return nil
}

// Reload releases and reloads one asset.
func (o *Orchestrator) Reload(key string) error {
	if err := o.checkOpen(); err != nil {
		return err
	}
	r, err := o.core.store.get(key)
	if err != nil {
		return err
	}
	if !o.reload(r) {
		return fmt.Errorf("%w: %s", ErrReleaseWhileLoading, key)
	}
	return nil
}

func (o *Orchestrator) reload(r *record) bool {
	if _, err := o.loader.release(r); err != nil {
		o.core.diag.Append(fmt.Sprintf("Skipping reload of %s: still loading", r.desc.Key), diag.Warning)
		return false
	}
	if err := o.loader.Load(r.desc.Key); err != nil {
		// A concurrent Load already moved it out of NotLoaded.
		log.Debug(log.CatLoader, "Reload load skipped", "key", r.desc.Key, "reason", err)
	}
	return true
}

// Play starts an asset.
func (o *Orchestrator) Play(key string) error {
	if err := o.checkOpen(); err != nil {
		return err
	}
	return o.player.Play(key)
}

// Stop stops an asset.
func (o *Orchestrator) Stop(key string) error {
	if err := o.checkOpen(); err != nil {
		return err
	}
	return o.player.Stop(key)
}

// SetVolume sets an asset's volume in [0, 1].
func (o *Orchestrator) SetVolume(key string, volume float64) error {
	if err := o.checkOpen(); err != nil {
		return err
	}
	return o.player.SetVolume(key, volume)
}

// StopAll stops every playing asset.
func (o *Orchestrator) StopAll() error {
	if err := o.checkOpen(); err != nil {
		return err
	}
	o.player.StopAll()
	return nil
}

// Shutdown releases every handle and closes the backend. It runs once;
// later calls return ErrAlreadyShutdown.
func (o *Orchestrator) Shutdown() error {
	o.mu.Lock()
	if o.shutdown {
		o.mu.Unlock()
		return ErrAlreadyShutdown
	}
	o.shutdown = true
	o.mu.Unlock()

	o.core.diag.Append("Cleaning up sounds...", diag.Info)
	released := 0
	for _, r := range o.core.store.all() {
		r.mu.Lock()
		// Teardown bypasses the release precondition: bumping the load
		// generation makes any in-flight load release its own handle.
		if h := r.resetLocked(); h != nil {
			o.core.backend.Stop(h)
			o.core.backend.Release(h)
			released++
		}
		r.mu.Unlock()
	}
	log.Info(log.CatLoader, "Soundboard shut down", "released", released)

	err := o.core.backend.Close()
	o.core.events.Close()
	if err != nil {
		return fmt.Errorf("close backend: %w", err)
	}
	return nil
}

// Snapshot returns every asset's state in catalog order.
func (o *Orchestrator) Snapshot() []AssetView {
	return o.core.store.snapshot()
}

// Asset returns one asset's state.
func (o *Orchestrator) Asset(key string) (AssetView, bool) {
	r, err := o.core.store.get(key)
	if err != nil {
		return AssetView{}, false
	}
	return r.view(), true
}

// Logs returns diagnostic entries containing query, newest first.
func (o *Orchestrator) Logs(query string) []diag.Entry {
	return o.core.diag.Query(query)
}

// ClearLogs empties the diagnostic log.
func (o *Orchestrator) ClearLogs() {
	o.core.diag.Clear()
	o.core.publish(Event{Kind: LogsCleared})
}

// Subscribe returns a channel of soundboard events, closed when ctx is done
// or the orchestrator shuts down.
func (o *Orchestrator) Subscribe(ctx context.Context) <-chan pubsub.Event[Event] {
	return o.core.events.Subscribe(ctx)
}

// Summary returns the number of loaded assets and the catalog size.
func (o *Orchestrator) Summary() (loaded, total int) {
	views := o.Snapshot()
	for _, v := range views {
		if v.LoadState == Loaded {
			loaded++
		}
	}
	return loaded, len(views)
}

// Settled reports whether no asset has load work pending.
func (o *Orchestrator) Settled() bool {
	for _, v := range o.Snapshot() {
		if !v.LoadState.Settled() {
			return false
		}
	}
	return true
}

// AwaitSettled blocks until no asset is Loading or in LoadError, or ctx is done.
func (o *Orchestrator) AwaitSettled(ctx context.Context) error {
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	events := o.Subscribe(subCtx)

	ticker := time.NewTicker(settlePollInterval)
	defer ticker.Stop()

	for {
		if o.Settled() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-events:
			if !ok {
				events = nil
			}
		case <-ticker.C:
		}
	}
}
