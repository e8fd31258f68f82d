package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zjrosen/soundcheck/internal/config"
)

var (
	configInitPath  string
	configInitForce bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the soundcheck configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented default config file",
	Args:  cobra.NoArgs,
	// A broken existing config must not stop us from writing a fresh one.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE:              runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

func init() {
	configInitCmd.Flags().StringVar(&configInitPath, "path", "", "where to write the file (default "+config.DefaultConfigPath()+")")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path := configInitPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	if _, err := os.Stat(path); err == nil && !configInitForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.WriteDefaultConfig(path); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

// shownConfig mirrors config.Config with yaml tags for display.
type shownConfig struct {
	SoundsDir   string `yaml:"sounds_dir"`
	Catalog     string `yaml:"catalog"`
	LogCapacity int    `yaml:"log_capacity"`
	Strict      bool   `yaml:"strict"`
	Audio       struct {
		Enabled    bool `yaml:"enabled"`
		SampleRate int  `yaml:"sample_rate"`
		BufferMS   int  `yaml:"buffer_ms"`
	} `yaml:"audio"`
	Watch struct {
		Enabled  bool   `yaml:"enabled"`
		Debounce string `yaml:"debounce"`
	} `yaml:"watch"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		File   struct {
			Enabled bool   `yaml:"enabled"`
			Path    string `yaml:"path"`
		} `yaml:"file"`
	} `yaml:"logging"`
	Tracing struct {
		Enabled  bool   `yaml:"enabled"`
		Exporter string `yaml:"exporter"`
		Endpoint string `yaml:"endpoint"`
	} `yaml:"tracing"`
}

func showConfig(c config.Config) shownConfig {
	var s shownConfig
	s.SoundsDir = c.SoundsDir
	s.Catalog = c.Catalog
	s.LogCapacity = c.LogCapacity
	s.Strict = c.Strict
	s.Audio.Enabled = c.Audio.Enabled
	s.Audio.SampleRate = c.Audio.SampleRate
	s.Audio.BufferMS = c.Audio.BufferMS
	s.Watch.Enabled = c.Watch.Enabled
	s.Watch.Debounce = c.Watch.Debounce.String()
	s.Logging.Level = c.Logging.Level
	s.Logging.Format = c.Logging.Format
	s.Logging.File.Enabled = c.Logging.File.Enabled
	s.Logging.File.Path = c.Logging.File.Path
	s.Tracing.Enabled = c.Tracing.Enabled
	s.Tracing.Exporter = c.Tracing.Exporter
	s.Tracing.Endpoint = c.Tracing.Endpoint
	return s
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(showConfig(cfg)); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return enc.Close()
}
