package soundboard

import (
	"time"

	"github.com/zjrosen/soundcheck/internal/catalog"
	"github.com/zjrosen/soundcheck/internal/diag"
)

// DefaultVolume is the volume assigned on every successful load.
const DefaultVolume = 1.0

// LoadState is the load lifecycle of one asset.
//
//	NotLoaded -> Loading -> Loaded
//	Loading -> LoadError -> Loading (fallback) -> Loaded | LoadFailed
//	Loaded | LoadError | LoadFailed -> NotLoaded (release)
type LoadState int

const (
	NotLoaded LoadState = iota
	Loading
	Loaded
	LoadError
	LoadFailed
)

// String returns the lowercase state name.
func (s LoadState) String() string {
	switch s {
	case NotLoaded:
		return "not_loaded"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case LoadError:
		return "error"
	case LoadFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Settled reports whether no load work is pending for this state.
func (s LoadState) Settled() bool {
	return s != Loading && s != LoadError
}

// PlaybackState is meaningful only while the asset is Loaded.
type PlaybackState struct {
	Playing bool
	Volume  float64
}

func defaultPlayback() PlaybackState {
	return PlaybackState{Volume: DefaultVolume}
}

// AssetView is a point-in-time copy of one asset's state.
type AssetView struct {
	Descriptor catalog.AssetDescriptor
	LoadState  LoadState
	Playback   PlaybackState
	Duration   time.Duration
	Channels   int
}

// EventKind names a soundboard notification.
type EventKind string

const (
	// AssetChanged fires after any load or playback state change.
	AssetChanged EventKind = "asset_changed"
	// PlaybackFailed fires when the backend reports a failed playback.
	PlaybackFailed EventKind = "playback_failed"
	// LogsCleared fires after the diagnostic log is cleared.
	LogsCleared EventKind = "logs_cleared"
	// LogAppended fires for every new diagnostic log entry.
	LogAppended EventKind = "log_appended"
)

// Event is published to subscribers.
type Event struct {
	Kind    EventKind
	Key     string
	Asset   AssetView  // set for asset events
	Entry   diag.Entry // set for LogAppended
	Message string     // user-facing text for PlaybackFailed
}
