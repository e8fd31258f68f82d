// Package config provides configuration types and defaults for soundcheck.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. SOUNDCHECK_AUDIO_ENABLED.
const EnvPrefix = "SOUNDCHECK"

// Config holds all configuration options for soundcheck.
type Config struct {
	SoundsDir   string        `mapstructure:"sounds_dir"`   // empty uses the embedded bundle
	Catalog     string        `mapstructure:"catalog"`      // optional manifest path
	LogCapacity int           `mapstructure:"log_capacity"` // diagnostic log entries kept
	Strict      bool          `mapstructure:"strict"`
	Audio       AudioConfig   `mapstructure:"audio"`
	Watch       WatchConfig   `mapstructure:"watch"`
	Logging     LoggingConfig `mapstructure:"logging"`
	Tracing     TracingConfig `mapstructure:"tracing"`
}

// AudioConfig configures the speaker.
type AudioConfig struct {
	// Enabled opens the system audio device. When false playback is simulated.
	Enabled    bool `mapstructure:"enabled"`
	SampleRate int  `mapstructure:"sample_rate"`
	BufferMS   int  `mapstructure:"buffer_ms"`
}

// Buffer returns the speaker buffer length.
func (a AudioConfig) Buffer() time.Duration {
	return time.Duration(a.BufferMS) * time.Millisecond
}

// WatchConfig configures reloading when the sounds directory changes.
type WatchConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// LoggingConfig configures the process log.
type LoggingConfig struct {
	Level  string        `mapstructure:"level"`  // debug, info, warn, error
	Format string        `mapstructure:"format"` // text or json
	File   LogFileConfig `mapstructure:"file"`
}

// LogFileConfig configures the optional rotating log file.
type LogFileConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Exporter string `mapstructure:"exporter"` // stdout or otlp
	Endpoint string `mapstructure:"endpoint"`
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		LogCapacity: 100,
		Audio: AudioConfig{
			Enabled:    true,
			SampleRate: 44100,
			BufferMS:   100,
		},
		Watch: WatchConfig{
			Enabled:  false,
			Debounce: 500 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
			File: LogFileConfig{
				Enabled:    false,
				Path:       DefaultLogPath(),
				MaxSizeMB:  10,
				MaxBackups: 3,
				MaxAgeDays: 28,
			},
		},
		Tracing: TracingConfig{
			Enabled:  false,
			Exporter: "stdout",
			Endpoint: "localhost:4317",
		},
	}
}

// SetDefaults registers every key with its default so environment
// variables and flags can override keys absent from the config file.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("sounds_dir", d.SoundsDir)
	v.SetDefault("catalog", d.Catalog)
	v.SetDefault("log_capacity", d.LogCapacity)
	v.SetDefault("strict", d.Strict)
	v.SetDefault("audio.enabled", d.Audio.Enabled)
	v.SetDefault("audio.sample_rate", d.Audio.SampleRate)
	v.SetDefault("audio.buffer_ms", d.Audio.BufferMS)
	v.SetDefault("watch.enabled", d.Watch.Enabled)
	v.SetDefault("watch.debounce", d.Watch.Debounce)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file.enabled", d.Logging.File.Enabled)
	v.SetDefault("logging.file.path", d.Logging.File.Path)
	v.SetDefault("logging.file.max_size_mb", d.Logging.File.MaxSizeMB)
	v.SetDefault("logging.file.max_backups", d.Logging.File.MaxBackups)
	v.SetDefault("logging.file.max_age_days", d.Logging.File.MaxAgeDays)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.endpoint", d.Tracing.Endpoint)
}

// Load reads configuration into v and returns the validated result.
// With an empty configFile the default locations are searched and a missing
// file is not an error.
func Load(v *viper.Viper, configFile string) (Config, error) {
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("soundcheck")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir := DefaultConfigDir(); dir != "" {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.Audio.SampleRate <= 0 || c.Audio.SampleRate > 192000 {
		return fmt.Errorf("audio.sample_rate: %d out of range (1-192000)", c.Audio.SampleRate)
	}
	if c.Audio.BufferMS <= 0 {
		return fmt.Errorf("audio.buffer_ms: must be positive, got %d", c.Audio.BufferMS)
	}
	if c.Watch.Enabled && c.SoundsDir == "" {
		return errors.New("watch.enabled: requires sounds_dir (the embedded bundle cannot change)")
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce: must not be negative, got %s", c.Watch.Debounce)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unknown level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format: must be text or json, got %q", c.Logging.Format)
	}
	if c.Logging.File.Enabled && c.Logging.File.Path == "" {
		return errors.New("logging.file.path: required when logging.file.enabled is set")
	}

	if c.Tracing.Enabled {
		switch c.Tracing.Exporter {
		case "stdout", "otlp":
		default:
			return fmt.Errorf("tracing.exporter: must be stdout or otlp, got %q", c.Tracing.Exporter)
		}
	}
	return nil
}

// DefaultConfigDir returns the per-user configuration directory, or "" if
// it cannot be determined.
func DefaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "soundcheck")
}

// DefaultConfigPath returns the path `soundcheck config init` writes to.
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return "soundcheck.yaml"
	}
	return filepath.Join(dir, "soundcheck.yaml")
}

// DefaultLogPath returns the default location of the rotating log file.
func DefaultLogPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "soundcheck", "soundcheck.log")
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# Soundcheck Configuration

# Directory of sound files. Leave unset to use the sounds built into the binary.
# sounds_dir: /path/to/sounds

# Optional catalog manifest replacing the built-in asset list.
# catalog: /path/to/catalog.yaml
#
# Manifest format:
#   assets:
#     - key: correct        # unique identifier
#       file: correct.wav   # resource name inside sounds_dir
#       name: Correct Answer
#       type: effect        # effect or music

# Number of diagnostic log entries kept (newest first)
log_capacity: 100

# Panic on programming errors such as releasing a sound while it loads
strict: false

# Audio output
audio:
  enabled: true       # false simulates playback without an audio device
  sample_rate: 44100
  buffer_ms: 100

# Reload sounds when files in sounds_dir change
watch:
  enabled: false
  debounce: 500ms

# Process log (the diagnostic log is always kept in memory)
logging:
  level: warn         # debug, info, warn, error
  format: text        # text or json
  file:
    enabled: false
    # path: ~/.cache/soundcheck/soundcheck.log
    max_size_mb: 10
    max_backups: 3
    max_age_days: 28

# OpenTelemetry spans for loads and playback
tracing:
  enabled: false
  exporter: stdout    # stdout or otlp
  endpoint: localhost:4317
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
