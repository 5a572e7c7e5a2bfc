package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gaamiranda/Claude-Checker/internal/output"
	"github.com/gaamiranda/Claude-Checker/internal/poller"
)

// historyEntry is one row of the history command output.
type historyEntry struct {
	At       time.Time             `json:"at"`
	Snapshot *poller.UsageSnapshot `json:"snapshot"`
}

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	var provider string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded usage snapshots",
		Long:  "List recent usage snapshots recorded by status and watch, newest first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromCmd(cmd)
			if err != nil {
				return err
			}

			if provider != poller.ProviderClaude && provider != poller.ProviderCursor {
				return output.ErrUsage(fmt.Sprintf("Unknown provider %q (use %s or %s)", provider, poller.ProviderClaude, poller.ProviderCursor))
			}
			if limit <= 0 {
				return output.ErrUsage("--limit must be positive")
			}

			hist, err := app.OpenHistory()
			if err != nil {
				return err
			}
			defer hist.Close()

			raw, err := hist.Recent(provider, limit)
			if err != nil {
				return err
			}

			entries := make([]historyEntry, 0, len(raw))
			for _, e := range raw {
				var snap poller.UsageSnapshot
				if err := json.Unmarshal(e.Payload, &snap); err != nil {
					continue // skip rows from older layouts
				}
				entries = append(entries, historyEntry{At: e.At, Snapshot: &snap})
			}

			summary := fmt.Sprintf("%d snapshots for %s", len(entries), provider)
			if len(entries) == 0 {
				summary = fmt.Sprintf("No snapshots recorded for %s yet", provider)
			}
			return app.OK(entries, output.WithSummary(summary))
		},
	}

	cmd.Flags().StringVarP(&provider, "provider", "p", poller.ProviderClaude, "Provider (claude or cursor)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum snapshots to show")

	return cmd
}
