package soundboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zjrosen/soundcheck/internal/backend"
	"github.com/zjrosen/soundcheck/internal/backend/backendtest"
	"github.com/zjrosen/soundcheck/internal/catalog"
	"github.com/zjrosen/soundcheck/internal/diag"
)

func singleAsset(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(catalog.AssetDescriptor{
		Key: "x", ResourceName: "x.mp3", DisplayName: "Sound X", Category: catalog.Effect,
	})
	require.NoError(t, err)
	return c
}

func TestLoad_Success(t *testing.T) {
	o, fake := newHarness(t, singleAsset(t))
	loadAndSettle(t, o)

	v := asset(t, o, "x")
	require.Equal(t, Loaded, v.LoadState)
	require.Equal(t, PlaybackState{Playing: false, Volume: DefaultVolume}, v.Playback)
	require.Equal(t, backendtest.DefaultDuration, v.Duration)
	require.Equal(t, backendtest.DefaultChannels, v.Channels)
	require.Equal(t, 1, fake.CallCount(backendtest.OpLoad, "x.mp3"))

	require.Equal(t, []logLine{
		{"Attempting to load: x.mp3", diag.Info},
		{"Successfully loaded x.mp3 (Duration: 1.50s)", diag.Success},
		{"Sound X: channels=2, volume=1", diag.Info},
	}, logLines(o, "x"))
}

func TestLoad_FallbackSucceeds(t *testing.T) {
	o, fake := newHarness(t, singleAsset(t))
	fake.FailLoad("x.mp3", backend.ErrResourceNotFound)
	loadAndSettle(t, o)

	require.Equal(t, Loaded, asset(t, o, "x").LoadState)
	require.Equal(t, 1, fake.CallCount(backendtest.OpLoad, "x.mp3"))
	require.Equal(t, 1, fake.CallCount(backendtest.OpLoad, "x"))

	require.Equal(t, []logLine{
		{"Attempting to load: x.mp3", diag.Info},
		{"Failed to load x.mp3: resource not found", diag.Error},
		{"Trying alternative load for x.mp3 (without extension)", diag.Warning},
		{"Alternative load succeeded for x.mp3 (Duration: 1.50s)", diag.Success},
		{"Sound X: channels=2, volume=1", diag.Info},
	}, logLines(o, "x"))
}

func TestLoad_FallbackFails(t *testing.T) {
	o, fake := newHarness(t, singleAsset(t))
	fake.FailLoad("x.mp3", errors.New("boom"))
	fake.FailLoad("x", errors.New("still boom"))
	loadAndSettle(t, o)

	require.Equal(t, LoadFailed, asset(t, o, "x").LoadState)
	require.Equal(t, 2, fake.CallCount(backendtest.OpLoad, ""), "exactly one retry")

	lines := logLines(o, "alternative load also failed")
	require.Equal(t, []logLine{
		{"Alternative load also failed for x.mp3: still boom", diag.Error},
	}, lines)

	err := o.Play("x")
	require.ErrorIs(t, err, ErrNotReady)
	require.Zero(t, fake.CallCount(backendtest.OpPlay, ""))
}

func TestLoad_TransitionsObservedInOrder(t *testing.T) {
	o, fake := newHarness(t, singleAsset(t))
	fake.HoldLoads()
	fake.FailLoad("x.mp3", errors.New("boom"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := o.Subscribe(ctx)

	require.NoError(t, o.Load("x"))
	require.True(t, fake.CompleteLoad("x.mp3"))
	require.Equal(t, []string{"x"}, fake.PendingLoads())
	require.True(t, fake.CompleteLoad("x"))

	var states []LoadState
	timeout := time.After(time.Second)
	for len(states) < 4 {
		select {
		case ev := <-events:
			if ev.Payload.Kind == AssetChanged {
				states = append(states, ev.Payload.Asset.LoadState)
			}
		case <-timeout:
			t.Fatalf("only observed %v", states)
		}
	}
	require.Equal(t, []LoadState{Loading, LoadError, Loading, Loaded}, states)
}

func TestLoad_OnlyFromNotLoaded(t *testing.T) {
	o, fake := newHarness(t, singleAsset(t))
	fake.HoldLoads()

	require.NoError(t, o.Load("x"))
	require.Equal(t, Loading, asset(t, o, "x").LoadState)

	err := o.Load("x")
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.Equal(t, 1, fake.CallCount(backendtest.OpLoad, ""))

	fake.CompleteLoad("x.mp3")
	require.Equal(t, Loaded, asset(t, o, "x").LoadState)
	require.ErrorIs(t, o.Load("x"), ErrInvalidTransition)
}

func TestLoad_UnknownAsset(t *testing.T) {
	o, _ := newHarness(t, singleAsset(t))
	require.ErrorIs(t, o.Load("nope"), ErrUnknownAsset)
}

func TestRetryWithFallback_OnlyFromLoadError(t *testing.T) {
	o, _ := newHarness(t, singleAsset(t))
	require.ErrorIs(t, o.Loader().RetryWithFallback("x"), ErrInvalidTransition)

	loadAndSettle(t, o)
	require.ErrorIs(t, o.Loader().RetryWithFallback("x"), ErrInvalidTransition)
}

func TestRelease_ResetsLoadedAsset(t *testing.T) {
	o, fake := newHarness(t, singleAsset(t))
	loadAndSettle(t, o)
	require.NoError(t, o.SetVolume("x", 0.3))
	require.NoError(t, o.Play("x"))

	require.NoError(t, o.Loader().Release("x"))

	v := asset(t, o, "x")
	require.Equal(t, NotLoaded, v.LoadState)
	require.Equal(t, PlaybackState{Volume: DefaultVolume}, v.Playback)
	require.Zero(t, v.Duration)
	require.Equal(t, 1, fake.ReleasedCount())
	require.False(t, fake.IsPlaying("x.mp3"))

	// Release from NotLoaded is a no-op.
	require.NoError(t, o.Loader().Release("x"))
	require.Equal(t, 1, fake.ReleasedCount())
}

func TestRelease_FromLoadFailedAllowsReload(t *testing.T) {
	o, fake := newHarness(t, singleAsset(t))
	fake.FailLoad("x.mp3", errors.New("boom"))
	fake.FailLoad("x", errors.New("boom"))
	loadAndSettle(t, o)
	require.Equal(t, LoadFailed, asset(t, o, "x").LoadState)

	require.NoError(t, o.Loader().Release("x"))
	require.Equal(t, NotLoaded, asset(t, o, "x").LoadState)

	fake.ClearFailure("x.mp3")
	loadAndSettle(t, o)
	require.Equal(t, Loaded, asset(t, o, "x").LoadState)
}

func TestRelease_WhileLoading(t *testing.T) {
	t.Run("returns error", func(t *testing.T) {
		o, fake := newHarness(t, singleAsset(t), func(c *Config) { c.Strict = false })
		fake.HoldLoads()
		require.NoError(t, o.Load("x"))

		err := o.Loader().Release("x")
		require.ErrorIs(t, err, ErrReleaseWhileLoading)
		require.Equal(t, Loading, asset(t, o, "x").LoadState)
	})

	t.Run("panics when strict", func(t *testing.T) {
		o, fake := newHarness(t, singleAsset(t))
		fake.HoldLoads()
		require.NoError(t, o.Load("x"))

		require.Panics(t, func() { _ = o.Loader().Release("x") })
	})
}

func TestLoad_StaleCompletionReleasesHandle(t *testing.T) {
	o, fake := newHarness(t, singleAsset(t))
	fake.HoldLoads()
	require.NoError(t, o.Load("x"))

	require.NoError(t, o.Shutdown())
	require.True(t, fake.CompleteLoad("x.mp3"))

	require.Equal(t, NotLoaded, asset(t, o, "x").LoadState)
	require.Equal(t, 1, fake.ReleasedCount(), "late handle handed back to the backend")
}

func TestLoad_RecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	o, fake := newHarness(t, singleAsset(t), func(c *Config) { c.Tracer = tp.Tracer("test") })
	fake.FailLoad("x.mp3", errors.New("boom"))
	loadAndSettle(t, o)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	for _, s := range spans {
		require.Equal(t, "soundboard.load", s.Name())
	}
	require.Len(t, spans[0].Events(), 1, "primary failure recorded as span error")
}

func TestFallbackName(t *testing.T) {
	require.Equal(t, "menumusic", fallbackName("menumusic.mp3"))
	require.Equal(t, "menumusic", fallbackName("menumusic"))
	require.Equal(t, "archive.tar", fallbackName("archive.tar.gz"))
}
