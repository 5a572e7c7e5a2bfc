package commands

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/gaamiranda/Claude-Checker/internal/output"
	"github.com/gaamiranda/Claude-Checker/internal/poller"
)

// providerStatus is the per-provider slice of the status payload.
type providerStatus struct {
	Snapshot *poller.UsageSnapshot `json:"snapshot,omitempty"`
	Stale    bool                  `json:"stale,omitempty"`
	Error    string                `json:"error,omitempty"`
	Code     string                `json:"code,omitempty"`
	Hint     string                `json:"hint,omitempty"`
}

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Fetch current usage once",
		Long: `Poll both providers once and print the result.

A provider that fails falls back to its last recorded snapshot, marked
stale. The command fails only when every provider fails and nothing is
on record.`,
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

			var wg sync.WaitGroup
			for _, p := range pollers {
				wg.Add(1)
				go func(p poller.Poller) {
					defer wg.Done()
					p.Poll(cmd.Context())
				}(p)
			}
			wg.Wait()

			result := make(map[string]providerStatus, len(pollers))
			okCount := 0
			var firstErr error
			for _, p := range pollers {
				st := p.State()
				ps := providerStatus{Snapshot: st.Snapshot}
				if st.LastError != nil {
					ps.Error = st.LastError.Message
					ps.Code = st.LastError.Code
					ps.Hint = st.LastError.Hint
					if firstErr == nil {
						firstErr = st.LastError
					}
					// Fall back to the last recorded snapshot.
					var last poller.UsageSnapshot
					if _, found, herr := hist.Latest(p.Provider(), &last); herr == nil && found {
						ps.Snapshot = &last
						ps.Stale = true
					}
				} else {
					okCount++
				}
				result[p.Provider()] = ps
			}

			if okCount == 0 {
				return firstErr
			}

			summary := summarize(result)
			return app.OK(result, output.WithSummary(summary))
		},
	}
}

func summarize(result map[string]providerStatus) string {
	line := func(provider, label string) string {
		ps, ok := result[provider]
		if !ok {
			return ""
		}
		if ps.Snapshot == nil {
			if ps.Error != "" {
				return fmt.Sprintf("%s: %s", label, ps.Error)
			}
			return fmt.Sprintf("%s: no data", label)
		}
		s := label + ":"
		if ps.Snapshot.Session != nil {
			s += fmt.Sprintf(" session %.0f%%", ps.Snapshot.Session.Percent)
		}
		if ps.Snapshot.Weekly != nil {
			s += fmt.Sprintf(" weekly %.0f%%", ps.Snapshot.Weekly.Percent)
		}
		if ps.Snapshot.Model != nil {
			s += fmt.Sprintf(" model %.0f%%", ps.Snapshot.Model.Percent)
		}
		if ps.Stale {
			s += " (stale)"
		}
		return s
	}

	summary := line(poller.ProviderClaude, "Claude")
	if cursorLine := line(poller.ProviderCursor, "Cursor"); cursorLine != "" {
		if summary != "" {
			summary += " | "
		}
		summary += cursorLine
	}
	return summary
}
