package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/zjrosen/soundcheck/internal/log"
	"github.com/zjrosen/soundcheck/internal/pubsub"
	"github.com/zjrosen/soundcheck/internal/soundboard"
)

var (
	playVolume  float64
	playFor     time.Duration
	playTimeout time.Duration
)

var playCmd = &cobra.Command{
	Use:   "play KEY...",
	Short: "Play one or more sounds",
	Long: `Load the named sounds and play them. The command returns once every
effect has finished. Music loops until --for elapses or the command is
interrupted.`,
	Example: `  soundcheck play correct
  soundcheck play menumusic --for 10s --volume 0.5`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlay,
}

func init() {
	playCmd.Flags().Float64Var(&playVolume, "volume", soundboard.DefaultVolume, "playback volume (0.0 to 1.0)")
	playCmd.Flags().DurationVar(&playFor, "for", 0, "stop after this long (0 waits for effects to finish)")
	playCmd.Flags().DurationVar(&playTimeout, "timeout", 10*time.Second, "how long to wait for sounds to load")
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, keys []string) error {
	if playVolume < 0 || playVolume > 1 {
		return fmt.Errorf("volume must be between 0.0 and 1.0, got %g", playVolume)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	// Subscribe before playing so no completion is missed.
	events := a.board.Subscribe(ctx)

	if err := loadKeys(ctx, a.board, keys); err != nil {
		return err
	}

	for _, key := range keys {
		if err := a.board.SetVolume(key, playVolume); err != nil {
			return err
		}
		if err := a.board.Play(key); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Playing %s\n", key)
	}

	if playFor > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, playFor)
		defer cancel()
	}
	err = waitForPlayback(ctx, a.board, events, keys)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return a.board.StopAll()
	}
	return err
}

// loadKeys loads the named assets and waits until each is Loaded.
func loadKeys(ctx context.Context, board *soundboard.Orchestrator, keys []string) error {
	for _, key := range keys {
		if err := board.Load(key); err != nil && !errors.Is(err, soundboard.ErrInvalidTransition) {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, playTimeout)
	defer cancel()
	if err := board.AwaitSettled(ctx); err != nil {
		return fmt.Errorf("waiting for sounds to load: %w", err)
	}

	for _, key := range keys {
		v, _ := board.Asset(key)
		if v.LoadState != soundboard.Loaded {
			return fmt.Errorf("%s could not be loaded (%s)", key, v.LoadState)
		}
	}
	return nil
}

// waitForPlayback blocks until none of keys is playing, a playback fails,
// or ctx is done. The ticker covers events dropped by a full subscriber buffer.
func waitForPlayback(ctx context.Context, board *soundboard.Orchestrator, events <-chan pubsub.Event[soundboard.Event], keys []string) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		playing := false
		for _, key := range keys {
			if v, ok := board.Asset(key); ok && v.Playback.Playing {
				playing = true
				break
			}
		}
		if !playing {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Payload.Kind == soundboard.PlaybackFailed {
				log.Warn(log.CatCLI, "Playback failed", "key", ev.Payload.Key)
				return errors.New(ev.Payload.Message)
			}
		}
	}
}
