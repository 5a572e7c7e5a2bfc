package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/gaamiranda/Claude-Checker/internal/poller"
	"github.com/gaamiranda/Claude-Checker/internal/tui"
)

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch usage continuously",
		Long: `Poll both providers on an interval and show a live dashboard.

In a terminal this renders an interactive view (r to refresh, q to quit).
When piped, each state change is written as a JSON line instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromCmd(cmd)
			if err != nil {
				return err
			}

			hist, err := app.OpenHistory()
			if err != nil {
				return err
			}
			defer hist.Close()

			pollers := app.Pollers(hist)
			interval := app.Config.PollInterval
			runner := poller.NewRunner(interval, app.Config.CredentialsFile, app.Trace, pollers...)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go func() { _ = runner.Run(ctx) }()

			if !app.IsInteractive() {
				return streamUpdates(ctx, app.Output.WriteJSONLine, runner)
			}

			// Seed cards with last recorded snapshots so the dashboard is
			// not blank before the first poll lands.
			initial := make([]poller.PollState, 0, len(pollers))
			for _, p := range pollers {
				st := p.State()
				var last poller.UsageSnapshot
				if at, found, err := hist.Latest(p.Provider(), &last); err == nil && found {
					st.Snapshot = &last
					st.LastUpdated = at
				}
				initial = append(initial, st)
			}

			model := tui.NewWatchModel(runner.Updates(), runner, interval, initial)
			_, err = tea.NewProgram(model, tea.WithContext(ctx)).Run()
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("watch: %w", err)
			}
			return nil
		},
	}
}

// streamUpdates writes every completed poll as a JSON line until ctx ends.
func streamUpdates(ctx context.Context, write func(any) error, runner *poller.Runner) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case u := <-runner.Updates():
			if u.State.Loading {
				continue
			}
			line := map[string]any{
				"provider": u.Provider,
				"at":       time.Now().UTC().Format(time.RFC3339),
			}
			if u.State.LastError != nil {
				line["error"] = u.State.LastError.Message
				line["code"] = u.State.LastError.Code
			}
			if u.State.Snapshot != nil {
				line["snapshot"] = u.State.Snapshot
			}
			if err := write(line); err != nil {
				return err
			}
		}
	}
}
