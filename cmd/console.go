package cmd

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/zjrosen/soundcheck/internal/log"
	"github.com/zjrosen/soundcheck/internal/ui/console"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Open the interactive soundboard",
	Long: `Open a full-screen soundboard. Every sound starts loading immediately;
select a sound to play, stop, reload or change its volume while the
diagnostic log updates live.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationTUI: "true"},
	RunE:        runConsole,
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}

func runConsole(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	events := a.board.Subscribe(ctx)
	if err := a.board.LoadAll(); err != nil {
		return err
	}

	p := tea.NewProgram(
		console.New(a.board, events),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running console: %w", err)
	}
	log.Debug(log.CatCLI, "Console closed")
	return nil
}
