// Package beepaudio implements backend.Backend on top of gopxl/beep.
//
// Resources are resolved against an afero.Fs, decoded fully into memory and
// mixed through the beep speaker. With the speaker disabled the backend still
// decodes and reports natural completion on a timer, which keeps headless
// environments and tests deterministic.
package beepaudio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
	gocache "github.com/patrickmn/go-cache"
	"github.com/spf13/afero"

	"github.com/zjrosen/soundcheck/internal/backend"
	"github.com/zjrosen/soundcheck/internal/log"
)

// Defaults applied by New.
const (
	DefaultSampleRate = beep.SampleRate(44100)
	DefaultBufferSize = 100 * time.Millisecond
	DefaultCacheTTL   = 5 * time.Minute

	resampleQuality = 4
)

// supportedExts are probed in order when a name has no extension.
var supportedExts = []string{".wav", ".mp3"}

var errClosed = errors.New("audio backend closed")

// Options configures a Backend.
type Options struct {
	// Fs is the resource root. Required.
	Fs afero.Fs
	// Enabled opens the system speaker. When false playback is simulated.
	Enabled bool
	// SampleRate is the mixer rate every resource is resampled to.
	SampleRate int
	// BufferSize is the speaker buffer length.
	BufferSize time.Duration
	// CacheTTL bounds how long a name resolution is remembered.
	CacheTTL time.Duration
}

// sample is the concrete backend.Handle.
type sample struct {
	name     string
	buf      *beep.Buffer
	channels int
	duration time.Duration

	// Guarded by Backend.mu.
	volume   float64
	loops    int
	released bool
	voice    *voice
	gen      int
}

func (s *sample) Name() string            { return s.name }
func (s *sample) Duration() time.Duration { return s.duration }
func (s *sample) Channels() int           { return s.channels }

// voice is one active playback of a sample.
type voice struct {
	ctrl  *beep.Ctrl
	vol   *effects.Volume
	timer *time.Timer
}

// Backend plays decoded samples through the beep speaker.
type Backend struct {
	fs         afero.Fs
	enabled    bool
	sampleRate beep.SampleRate
	resolved   *gocache.Cache

	mu     sync.Mutex
	live   map[*sample]struct{}
	closed bool
}

// New creates a backend. When opts.Enabled is set the speaker is initialized.
func New(opts Options) (*Backend, error) {
	if opts.Fs == nil {
		return nil, errors.New("beepaudio: resource filesystem is required")
	}
	sr := DefaultSampleRate
	if opts.SampleRate > 0 {
		sr = beep.SampleRate(opts.SampleRate)
	}
	bufSize := opts.BufferSize
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	if opts.Enabled {
		if err := speaker.Init(sr, sr.N(bufSize)); err != nil {
			return nil, fmt.Errorf("init speaker: %w", err)
		}
		log.Debug(log.CatBackend, "Speaker initialized", "sample_rate", int(sr), "buffer", bufSize)
	}

	return &Backend{
		fs:         opts.Fs,
		enabled:    opts.Enabled,
		sampleRate: sr,
		resolved:   gocache.New(ttl, 2*ttl),
		live:       make(map[*sample]struct{}),
	}, nil
}

// LoadByName implements backend.Loader. Decoding runs on its own goroutine.
func (b *Backend) LoadByName(name string, done func(backend.Handle, error)) {
	log.SafeGo("beepaudio.load", func() {
		s, err := b.load(name)
		if err != nil {
			done(nil, err)
			return
		}
		done(s, nil)
	})
}

func (b *Backend) load(name string) (*sample, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, errClosed
	}

	p, err := b.resolve(name)
	if err != nil {
		return nil, err
	}

	s, err := b.decode(name, p)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errClosed
	}
	b.live[s] = struct{}{}
	log.Debug(log.CatBackend, "Decoded resource", "name", name, "path", p, "duration", s.duration)
	return s, nil
}

// resolve maps a resource name to a path in the resource root. Names with an
// extension must match exactly; bare names probe the supported extensions.
func (b *Backend) resolve(name string) (string, error) {
	if cached, ok := b.resolved.Get(name); ok {
		return cached.(string), nil
	}

	var candidates []string
	if path.Ext(name) != "" {
		candidates = []string{name}
	} else {
		for _, ext := range supportedExts {
			candidates = append(candidates, name+ext)
		}
	}

	for _, c := range candidates {
		ok, err := afero.Exists(b.fs, c)
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", c, err)
		}
		if ok {
			b.resolved.Set(name, c, gocache.DefaultExpiration)
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %s", backend.ErrResourceNotFound, name)
}

func (b *Backend) decode(name, p string) (*sample, error) {
	f, err := b.fs.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	defer func() { _ = f.Close() }()

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch strings.ToLower(path.Ext(p)) {
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".mp3":
		streamer, format, err = mp3.Decode(io.NopCloser(f))
	default:
		return nil, fmt.Errorf("%w: %s", backend.ErrUnsupportedFormat, p)
	}
	if err != nil {
		return nil, &backend.DecodeError{Name: name, Err: err}
	}

	var src beep.Streamer = streamer
	if format.SampleRate != b.sampleRate {
		src = beep.Resample(resampleQuality, format.SampleRate, b.sampleRate, streamer)
	}

	buf := beep.NewBuffer(beep.Format{SampleRate: b.sampleRate, NumChannels: 2, Precision: 2})
	buf.Append(src)
	if err := streamer.Err(); err != nil {
		return nil, &backend.DecodeError{Name: name, Err: err}
	}

	return &sample{
		name:     name,
		buf:      buf,
		channels: format.NumChannels,
		duration: b.sampleRate.D(buf.Len()),
		volume:   1,
	}, nil
}

// Play implements backend.Player.
func (b *Backend) Play(h backend.Handle, onComplete func(bool)) {
	s := h.(*sample)

	b.mu.Lock()
	defer b.mu.Unlock()

	if s.released || b.closed {
		log.Warn(log.CatBackend, "Play on released handle", "name", s.name)
		log.SafeGo("beepaudio.complete", func() { onComplete(false) })
		return
	}

	b.stopLocked(s)
	s.gen++
	gen := s.gen
	finish := func(ok bool) {
		b.finish(s, gen, onComplete, ok)
	}

	v := &voice{}
	if b.enabled {
		count := s.loops + 1
		if s.loops < 0 {
			count = -1
		}
		v.vol = &effects.Volume{Base: 2}
		applyVolume(v.vol, s.volume)
		v.vol.Streamer = beep.Loop(count, s.buf.Streamer(0, s.buf.Len()))
		v.ctrl = &beep.Ctrl{Streamer: beep.Seq(v.vol, beep.Callback(func() {
			// Runs under the speaker lock.
			log.SafeGo("beepaudio.complete", func() { finish(true) })
		}))}
		speaker.Play(v.ctrl)
	} else if s.loops >= 0 {
		v.timer = time.AfterFunc(s.duration*time.Duration(s.loops+1), func() { finish(true) })
	}
	s.voice = v
}

func (b *Backend) finish(s *sample, gen int, onComplete func(bool), ok bool) {
	b.mu.Lock()
	if s.gen != gen || s.voice == nil {
		b.mu.Unlock()
		return
	}
	s.voice = nil
	b.mu.Unlock()

	onComplete(ok)
}

// Stop implements backend.Player. A stopped voice never reports completion.
func (b *Backend) Stop(h backend.Handle) {
	s := h.(*sample)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopLocked(s)
}

func (b *Backend) stopLocked(s *sample) {
	if s.voice == nil {
		return
	}
	s.gen++
	if s.voice.timer != nil {
		s.voice.timer.Stop()
	}
	if s.voice.ctrl != nil {
		speaker.Lock()
		s.voice.ctrl.Streamer = nil
		speaker.Unlock()
	}
	s.voice = nil
}

// SetVolume implements backend.Player. It adjusts an active voice in place.
func (b *Backend) SetVolume(h backend.Handle, volume float64) {
	s := h.(*sample)
	b.mu.Lock()
	defer b.mu.Unlock()

	s.volume = volume
	if s.voice != nil && s.voice.vol != nil {
		speaker.Lock()
		applyVolume(s.voice.vol, volume)
		speaker.Unlock()
	}
}

// SetLoopCount implements backend.Player. The count applies to the next Play.
func (b *Backend) SetLoopCount(h backend.Handle, count int) {
	s := h.(*sample)
	b.mu.Lock()
	defer b.mu.Unlock()
	s.loops = count
}

// Release implements backend.Backend.
func (b *Backend) Release(h backend.Handle) {
	s := h.(*sample)
	b.mu.Lock()
	defer b.mu.Unlock()

	if s.released {
		return
	}
	b.stopLocked(s)
	s.released = true
	s.buf = nil
	delete(b.live, s)
}

// Invalidate forgets cached name resolutions, for when the resource root changes.
func (b *Backend) Invalidate() {
	b.resolved.Flush()
	log.Debug(log.CatBackend, "Resolution cache flushed")
}

// Close stops every voice and refuses further loads. Close is idempotent.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for s := range b.live {
		b.stopLocked(s)
	}
	if b.enabled {
		speaker.Clear()
	}
	return nil
}

// applyVolume maps a linear gain in [0,1] onto a base-2 Volume effect.
func applyVolume(v *effects.Volume, linear float64) {
	if linear <= 0 {
		v.Silent = true
		v.Volume = 0
		return
	}
	v.Silent = false
	v.Volume = math.Log2(linear)
}

var _ backend.Backend = (*Backend)(nil)
