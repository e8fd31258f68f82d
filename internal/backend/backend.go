// Package backend defines the boundary between soundcheck and the platform
// audio engine.
//
// Every completion is delivered asynchronously through a callback, never
// inline from the call that started the work. Callers may therefore invoke
// backend methods while holding their own locks.
package backend

import (
	"errors"
	"fmt"
	"time"
)

// Loop counts accepted by SetLoopCount.
const (
	// LoopOnce plays the sound a single time.
	LoopOnce = 0
	// LoopForever repeats the sound until stopped.
	LoopForever = -1
)

var (
	// ErrResourceNotFound indicates no bundled resource matches the name.
	ErrResourceNotFound = errors.New("resource not found")

	// ErrUnsupportedFormat indicates the resource has no known decoder.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrReleased indicates a handle was used after Release.
	ErrReleased = errors.New("handle released")
)

// DecodeError wraps a decoder failure for a named resource.
type DecodeError struct {
	Name string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Name, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Handle is an opaque reference to decoded audio owned by a backend.
type Handle interface {
	Name() string
	Duration() time.Duration
	Channels() int
}

// Loader resolves and decodes bundled resources.
type Loader interface {
	// LoadByName starts loading the named resource. Exactly one of handle or
	// err passed to done is non-nil.
	LoadByName(name string, done func(Handle, error))
}

// Player controls playback of loaded handles.
type Player interface {
	// Play starts the handle from the beginning, restarting it if it is
	// already playing. onComplete fires once when playback ends on its own,
	// with success=false when the engine reports a failure. It does not fire
	// after Stop.
	Play(h Handle, onComplete func(success bool))
	Stop(h Handle)
	SetVolume(h Handle, volume float64)
	SetLoopCount(h Handle, count int)
}

// Backend is the full audio engine contract.
type Backend interface {
	Loader
	Player

	// Release frees the handle. Releasing twice is a no-op.
	Release(h Handle)
	Close() error
}
