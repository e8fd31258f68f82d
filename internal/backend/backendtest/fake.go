// Package backendtest provides a scriptable in-memory audio backend for tests.
package backendtest

import (
	"sync"
	"time"

	"github.com/zjrosen/soundcheck/internal/backend"
)

// Operation names recorded in the call log.
const (
	OpLoad      = "load"
	OpPlay      = "play"
	OpStop      = "stop"
	OpVolume    = "volume"
	OpLoopCount = "loop"
	OpRelease   = "release"
	OpClose     = "close"
)

// Default handle properties.
const (
	DefaultDuration = 1500 * time.Millisecond
	DefaultChannels = 2
)

// Call records one backend invocation.
type Call struct {
	Op   string
	Name string
	Arg  any
}

// Handle is the fake's backend.Handle.
type Handle struct {
	name     string
	id       int
	duration time.Duration
	channels int
}

func (h *Handle) Name() string            { return h.name }
func (h *Handle) Duration() time.Duration { return h.duration }
func (h *Handle) Channels() int           { return h.channels }

type pendingLoad struct {
	name string
	done func(backend.Handle, error)
}

// Fake implements backend.Backend. Loads complete on a separate goroutine
// unless HoldLoads is set, in which case tests release them with CompleteLoad.
type Fake struct {
	mu sync.Mutex

	calls    []Call
	failures map[string]error
	hold     bool
	pending  []pendingLoad
	nextID   int
	playing  map[*Handle]func(bool)
	loops    map[string]int
	volumes  map[string]float64
	released map[*Handle]bool
	closed   bool

	duration time.Duration
	channels int
}

// New creates a fake whose loads succeed.
func New() *Fake {
	return &Fake{
		failures: make(map[string]error),
		playing:  make(map[*Handle]func(bool)),
		loops:    make(map[string]int),
		volumes:  make(map[string]float64),
		released: make(map[*Handle]bool),
		duration: DefaultDuration,
		channels: DefaultChannels,
	}
}

// FailLoad makes every load of name fail with err.
func (f *Fake) FailLoad(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[name] = err
}

// ClearFailure undoes FailLoad for name.
func (f *Fake) ClearFailure(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.failures, name)
}

// HoldLoads queues loads until CompleteLoad is called.
func (f *Fake) HoldLoads() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hold = true
}

// PendingLoads returns the names of held loads in request order.
func (f *Fake) PendingLoads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, len(f.pending))
	for i, p := range f.pending {
		names[i] = p.name
	}
	return names
}

// CompleteLoad finishes the oldest held load of name on the calling goroutine.
// It reports whether a held load was found.
func (f *Fake) CompleteLoad(name string) bool {
	f.mu.Lock()
	idx := -1
	for i, p := range f.pending {
		if p.name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		f.mu.Unlock()
		return false
	}
	p := f.pending[idx]
	f.pending = append(f.pending[:idx], f.pending[idx+1:]...)
	h, err := f.resultLocked(name)
	f.mu.Unlock()

	deliver(p.done, h, err)
	return true
}

// LoadByName implements backend.Loader.
func (f *Fake) LoadByName(name string, done func(backend.Handle, error)) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Op: OpLoad, Name: name})
	if f.hold {
		f.pending = append(f.pending, pendingLoad{name: name, done: done})
		f.mu.Unlock()
		return
	}
	h, err := f.resultLocked(name)
	f.mu.Unlock()

	go deliver(done, h, err)
}

func (f *Fake) resultLocked(name string) (*Handle, error) {
	if err, ok := f.failures[name]; ok {
		return nil, err
	}
	f.nextID++
	return &Handle{name: name, id: f.nextID, duration: f.duration, channels: f.channels}, nil
}

func deliver(done func(backend.Handle, error), h *Handle, err error) {
	if err != nil {
		done(nil, err)
		return
	}
	done(h, nil)
}

// Play implements backend.Player.
func (f *Fake) Play(h backend.Handle, onComplete func(bool)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fh := h.(*Handle)
	f.calls = append(f.calls, Call{Op: OpPlay, Name: fh.name})
	f.playing[fh] = onComplete
}

// Stop implements backend.Player.
func (f *Fake) Stop(h backend.Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fh := h.(*Handle)
	f.calls = append(f.calls, Call{Op: OpStop, Name: fh.name})
	delete(f.playing, fh)
}

// SetVolume implements backend.Player.
func (f *Fake) SetVolume(h backend.Handle, volume float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: OpVolume, Name: h.Name(), Arg: volume})
	f.volumes[h.Name()] = volume
}

// SetLoopCount implements backend.Player.
func (f *Fake) SetLoopCount(h backend.Handle, count int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: OpLoopCount, Name: h.Name(), Arg: count})
	f.loops[h.Name()] = count
}

// Release implements backend.Backend.
func (f *Fake) Release(h backend.Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fh := h.(*Handle)
	f.calls = append(f.calls, Call{Op: OpRelease, Name: fh.name})
	f.released[fh] = true
	delete(f.playing, fh)
}

// Close implements backend.Backend.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: OpClose})
	f.closed = true
	return nil
}

// FinishPlay completes the active playback of name on the calling goroutine,
// as the engine would when a sound ends. It reports whether name was playing.
func (f *Fake) FinishPlay(name string, success bool) bool {
	f.mu.Lock()
	var cb func(bool)
	for h, fn := range f.playing {
		if h.name == name {
			cb = fn
			delete(f.playing, h)
			break
		}
	}
	f.mu.Unlock()

	if cb == nil {
		return false
	}
	cb(success)
	return true
}

// IsPlaying reports whether any handle named name has an active voice.
func (f *Fake) IsPlaying(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for h := range f.playing {
		if h.name == name {
			return true
		}
	}
	return false
}

// Calls returns a copy of the call log.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount returns how many times op was invoked for name.
// An empty name counts every invocation of op.
func (f *Fake) CallCount(op, name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Op == op && (name == "" || c.Name == name) {
			n++
		}
	}
	return n
}

// LoopCount returns the last loop count set for name.
func (f *Fake) LoopCount(name string) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.loops[name]
	return n, ok
}

// Volume returns the last volume set for name.
func (f *Fake) Volume(name string) (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.volumes[name]
	return v, ok
}

// ReleasedCount returns how many distinct handles have been released.
func (f *Fake) ReleasedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.released)
}

// Closed reports whether Close was called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

var _ backend.Backend = (*Fake)(nil)
