// Package cmd implements the soundcheck command line.
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/soundcheck/internal/config"
	"github.com/zjrosen/soundcheck/internal/log"
	"github.com/zjrosen/soundcheck/internal/tracing"
)

// annotationTUI marks commands that own the terminal; they keep the process
// log off stderr.
const annotationTUI = "soundcheck/tui"

var (
	version = "dev"
	cfgFile string
	cfg     config.Config

	logCloser     io.Closer
	traceShutdown tracing.ShutdownFunc
)

// flagKeys maps persistent flags onto config keys.
var flagKeys = map[string]string{
	"sounds-dir": "sounds_dir",
	"catalog":    "catalog",
	"log-level":  "logging.level",
	"strict":     "strict",
}

var rootCmd = &cobra.Command{
	Use:   "soundcheck",
	Short: "Load, play and inspect a catalog of sound assets",
	Long: `Soundcheck manages a catalog of sound effects and music tracks.

Sounds load asynchronously with a fallback retry, music tracks play one at a
time, and every transition is recorded in a diagnostic log.`,
	Version:      version,
	SilenceUsage: true,
}

// Execute runs the root command, then flushes spans and closes the log file
// whether or not the command succeeded.
func Execute() error {
	err := rootCmd.Execute()
	if cerr := teardown(context.Background()); err == nil {
		err = cerr
	}
	return err
}

func init() {
	// Assigned here rather than in the literal: initConfig refers to rootCmd.
	rootCmd.PersistentPreRunE = initConfig

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (default ./soundcheck.yaml or "+config.DefaultConfigPath()+")")
	flags.String("sounds-dir", "", "directory of sound files (default: sounds built into the binary)")
	flags.String("catalog", "", "catalog manifest replacing the built-in asset list")
	flags.Bool("silent", false, "simulate playback without opening an audio device")
	flags.String("log-level", "", "process log level: debug, info, warn, error")
	flags.Bool("strict", false, "panic when a sound is released while it loads")
}

func initConfig(cmd *cobra.Command, _ []string) error {
	v := viper.New()
	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			return fmt.Errorf("binding --%s: %w", flag, err)
		}
	}

	loaded, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	if silent, _ := rootCmd.PersistentFlags().GetBool("silent"); silent {
		loaded.Audio.Enabled = false
	}
	cfg = loaded

	var file *log.FileOptions
	if cfg.Logging.File.Enabled {
		file = &log.FileOptions{
			Path:       cfg.Logging.File.Path,
			MaxSizeMB:  cfg.Logging.File.MaxSizeMB,
			MaxBackups: cfg.Logging.File.MaxBackups,
			MaxAgeDays: cfg.Logging.File.MaxAgeDays,
		}
	}
	out := cmd.ErrOrStderr()
	if _, tui := cmd.Annotations[annotationTUI]; tui {
		out = io.Discard
	}

	logCloser, err = log.Setup(log.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: out,
		File:   file,
	})
	if err != nil {
		return err
	}
	log.Debug(log.CatConfig, "Configuration loaded", "file", v.ConfigFileUsed(), "sounds_dir", cfg.SoundsDir)

	traceShutdown, err = tracing.Setup(cmd.Context(), tracing.Options{
		Enabled:     cfg.Tracing.Enabled,
		Exporter:    cfg.Tracing.Exporter,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: "soundcheck",
		Writer:      out,
	})
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	return nil
}

func teardown(ctx context.Context) error {
	if traceShutdown != nil {
		if err := traceShutdown(ctx); err != nil {
			log.ErrorErr(log.CatTrace, "Flushing spans failed", err)
		}
		traceShutdown = nil
	}
	// Late records from background goroutines must not reach a closed writer.
	log.SetLogger(nil)
	if logCloser != nil {
		err := logCloser.Close()
		logCloser = nil
		return err
	}
	return nil
}
