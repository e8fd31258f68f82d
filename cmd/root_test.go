package cmd

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/soundcheck/internal/config"
	"github.com/zjrosen/soundcheck/internal/sound"
)

// resetFlags restores every flag to its default so commands can be executed
// repeatedly within one test binary.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the root command with args in an isolated working directory
// and returns everything written to stdout and stderr.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	resetFlags(rootCmd)
	cfg = config.Config{}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := Execute()
	return out.String(), err
}

// writeSounds copies the named bundled sounds into a new directory.
func writeSounds(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		data, err := fs.ReadFile(sound.Bundle(), name)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	}
	return dir
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRoot_Help(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)
	for _, sub := range []string{"catalog", "check", "play", "console", "config"} {
		require.Contains(t, out, sub)
	}
}

func TestRoot_MissingConfigFile(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "catalog")
	require.Error(t, err)
	require.Contains(t, err.Error(), "reading config")
}

func TestRoot_InvalidConfig(t *testing.T) {
	path := writeFile(t, "soundcheck.yaml", "audio:\n  sample_rate: 0\n")
	_, err := execute(t, "--config", path, "catalog")
	require.Error(t, err)
	require.Contains(t, err.Error(), "audio.sample_rate")
}

func TestRoot_FlagsOverrideConfig(t *testing.T) {
	path := writeFile(t, "soundcheck.yaml", "log_capacity: 12\nsounds_dir: /from/file\n")
	out, err := execute(t, "--config", path, "--sounds-dir", "/from/flag", "--silent", "config", "show")
	require.NoError(t, err)
	require.Contains(t, out, "sounds_dir: /from/flag")
	require.Contains(t, out, "log_capacity: 12")
	require.Contains(t, out, "audio:\n  enabled: false", "--silent disables audio")
}
