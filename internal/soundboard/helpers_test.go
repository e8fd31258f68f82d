package soundboard

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/soundcheck/internal/backend/backendtest"
	"github.com/zjrosen/soundcheck/internal/catalog"
	"github.com/zjrosen/soundcheck/internal/diag"
)

// testCatalog has two music tracks and one effect.
func testCatalog(t testing.TB) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(
		catalog.AssetDescriptor{Key: "a", ResourceName: "a.mp3", DisplayName: "Track A", Category: catalog.Music},
		catalog.AssetDescriptor{Key: "b", ResourceName: "b.mp3", DisplayName: "Track B", Category: catalog.Music},
		catalog.AssetDescriptor{Key: "c", ResourceName: "c.mp3", DisplayName: "Click", Category: catalog.Effect},
	)
	require.NoError(t, err)
	return c
}

func newHarness(t testing.TB, cat *catalog.Catalog, mutate ...func(*Config)) (*Orchestrator, *backendtest.Fake) {
	t.Helper()
	fake := backendtest.New()
	cfg := Config{Catalog: cat, Backend: fake, Strict: true}
	for _, fn := range mutate {
		fn(&cfg)
	}
	o, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = o.Shutdown() })
	return o, fake
}

func loadAndSettle(t testing.TB, o *Orchestrator) {
	t.Helper()
	require.NoError(t, o.LoadAll())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, o.AwaitSettled(ctx))
}

func asset(t testing.TB, o *Orchestrator, key string) AssetView {
	t.Helper()
	v, ok := o.Asset(key)
	require.True(t, ok, "unknown asset %s", key)
	return v
}

// chronological returns entries oldest first.
func chronological(entries []diag.Entry) []diag.Entry {
	out := slices.Clone(entries)
	slices.Reverse(out)
	return out
}

type logLine struct {
	Message  string
	Severity diag.Severity
}

func logLines(o *Orchestrator, query string) []logLine {
	entries := chronological(o.Logs(query))
	out := make([]logLine, len(entries))
	for i, e := range entries {
		out[i] = logLine{Message: e.Message, Severity: e.Severity}
	}
	return out
}
