package cmd

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/zjrosen/soundcheck/internal/log"
	"github.com/zjrosen/soundcheck/internal/soundboard"
	"github.com/zjrosen/soundcheck/internal/ui/styles"
)

var (
	checkTimeout time.Duration
	checkLogs    bool
	checkQuery   string
)

// errLoadFailures is returned by check when any sound ends in LoadFailed.
var errLoadFailures = errors.New("some sounds failed to load")

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Load every sound and report the result",
	Long: `Load every sound in the catalog, wait for all loads to settle and print
the status of each one. Exits non-zero when any sound could not be loaded.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 10*time.Second, "how long to wait for loads to settle")
	checkCmd.Flags().BoolVar(&checkLogs, "logs", false, "print the diagnostic log")
	checkCmd.Flags().StringVarP(&checkQuery, "query", "q", "", "only print log entries containing this text (implies --logs)")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if err := a.board.LoadAll(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
	defer cancel()
	if err := a.board.AwaitSettled(ctx); err != nil {
		log.Warn(log.CatCLI, "Loads did not settle", "timeout", checkTimeout)
		return fmt.Errorf("waiting for sounds to load: %w", err)
	}

	out := cmd.OutOrStdout()
	views := a.board.Snapshot()
	keyWidth := 0
	for _, v := range views {
		keyWidth = max(keyWidth, len(v.Descriptor.Key))
	}
	for _, v := range views {
		_, _ = fmt.Fprintln(out, styles.RenderAssetRow(v, keyWidth))
	}

	loaded, total := a.board.Summary()
	_, _ = fmt.Fprintf(out, "\nCurrent sounds loaded: %d/%d\n", loaded, total)

	if checkLogs || checkQuery != "" {
		_, _ = fmt.Fprintln(out)
		entries := a.board.Logs(checkQuery)
		slices.Reverse(entries)
		for _, e := range entries {
			_, _ = fmt.Fprintln(out, styles.RenderEntry(e))
		}
	}

	for _, v := range views {
		if v.LoadState == soundboard.LoadFailed {
			return fmt.Errorf("%w: %d of %d loaded", errLoadFailures, loaded, total)
		}
	}
	return nil
}
