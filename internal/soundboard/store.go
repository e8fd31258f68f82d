package soundboard

import (
	"fmt"
	"sync"
	"time"

	"github.com/zjrosen/soundcheck/internal/backend"
	"github.com/zjrosen/soundcheck/internal/catalog"
)

// record is the mutable state of one asset. Every field below mu is guarded by it.
type record struct {
	desc catalog.AssetDescriptor

	mu       sync.Mutex
	state    LoadState
	handle   backend.Handle
	playback PlaybackState
	duration time.Duration
	channels int

	// Completions carrying an older generation are stale and ignored.
	loadGen uint64
	playGen uint64
}

func (r *record) viewLocked() AssetView {
	return AssetView{
		Descriptor: r.desc,
		LoadState:  r.state,
		Playback:   r.playback,
		Duration:   r.duration,
		Channels:   r.channels,
	}
}

func (r *record) view() AssetView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewLocked()
}

// resetLocked returns the record to NotLoaded and hands back the handle, if any.
func (r *record) resetLocked() backend.Handle {
	h := r.handle
	r.handle = nil
	r.state = NotLoaded
	r.playback = defaultPlayback()
	r.duration = 0
	r.channels = 0
	r.loadGen++
	r.playGen++
	return h
}

// store owns one record per catalog entry. The key set never changes.
type store struct {
	order []*record
	byKey map[string]*record
}

func newStore(c *catalog.Catalog) *store {
	s := &store{byKey: make(map[string]*record, c.Len())}
	for _, d := range c.ListAll() {
		r := &record{desc: d, playback: defaultPlayback()}
		s.order = append(s.order, r)
		s.byKey[d.Key] = r
	}
	return s
}

func (s *store) get(key string) (*record, error) {
	r, ok := s.byKey[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAsset, key)
	}
	return r, nil
}

func (s *store) all() []*record {
	return s.order
}

// snapshot copies every record's state, each read under its own lock.
func (s *store) snapshot() []AssetView {
	views := make([]AssetView, len(s.order))
	for i, r := range s.order {
		views[i] = r.view()
	}
	return views
}
