package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefault_MatchesBundledAssets(t *testing.T) {
	c := Default()

	require.Equal(t, 6, c.Len())
	require.Equal(t,
		[]string{"buttonpress", "correct", "incorrect", "streak", "menumusic", "gamemusic"},
		c.Keys())

	music := c.FilterByCategory(Music)
	require.Len(t, music, 2)
	require.Equal(t, "menumusic", music[0].Key)
	require.Equal(t, "gamemusic", music[1].Key)

	effects := c.FilterByCategory(Effect)
	require.Len(t, effects, 4)
	require.Equal(t, "Button Press", effects[0].DisplayName)
	require.Equal(t, "buttonpress.wav", effects[0].ResourceName)
}

func TestNew_RejectsDuplicateKeys(t *testing.T) {
	_, err := New(
		AssetDescriptor{Key: "a", ResourceName: "a.wav"},
		AssetDescriptor{Key: "a", ResourceName: "b.wav"},
	)
	require.ErrorIs(t, err, ErrDuplicateKey)
}

func TestNew_RejectsMissingFields(t *testing.T) {
	_, err := New(AssetDescriptor{ResourceName: "a.wav"})
	require.ErrorIs(t, err, ErrEmptyKey)

	_, err = New(AssetDescriptor{Key: "a"})
	require.ErrorIs(t, err, ErrEmptyResource)

	_, err = New(AssetDescriptor{Key: "a", ResourceName: "a.wav", Category: Category(7)})
	require.ErrorIs(t, err, ErrUnknownCategory)
}

func TestNew_DefaultsDisplayNameToKey(t *testing.T) {
	c, err := New(AssetDescriptor{Key: "beep", ResourceName: "beep.wav"})
	require.NoError(t, err)

	d, ok := c.Lookup("beep")
	require.True(t, ok)
	require.Equal(t, "beep", d.DisplayName)
}

func TestListAll_ReturnsCopy(t *testing.T) {
	c := Default()
	all := c.ListAll()
	all[0].Key = "mutated"

	require.Equal(t, "buttonpress", c.ListAll()[0].Key)
}

func TestLookup_Unknown(t *testing.T) {
	_, ok := Default().Lookup("missing")
	require.False(t, ok)
}

func TestParse_UnknownCategory(t *testing.T) {
	_, err := Parse([]byte(`
assets:
  - key: x
    file: x.wav
    type: ambient
`))
	require.ErrorIs(t, err, ErrUnknownCategory)
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory(" Music ")
	require.NoError(t, err)
	require.Equal(t, Music, c)
	require.Equal(t, "music", c.String())

	c, err = ParseCategory("effect")
	require.NoError(t, err)
	require.Equal(t, Effect, c)

	_, err = ParseCategory("")
	require.ErrorIs(t, err, ErrUnknownCategory)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	err := os.WriteFile(path, []byte(`
assets:
  - key: chime
    file: chime.mp3
    name: Chime
    type: effect
  - key: theme
    file: theme.mp3
    type: music
`), 0o644)
	require.NoError(t, err)

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"chime", "theme"}, c.Keys())

	theme, ok := c.Lookup("theme")
	require.True(t, ok)
	require.Equal(t, Music, theme.Category)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
