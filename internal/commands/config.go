package commands

import (
	"github.com/spf13/cobra"

	"github.com/gaamiranda/Claude-Checker/internal/config"
	"github.com/gaamiranda/Claude-Checker/internal/output"
)

// NewConfigCmd creates the config command.
func NewConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show resolved configuration",
		Long: `Show the resolved configuration and where each value came from.

Values are layered: defaults, then the global config file, then
CLAUDE_CHECKER_* environment variables, then flags.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromCmd(cmd)
			if err != nil {
				return err
			}

			cfg := app.Config
			cookie := ""
			if cfg.CursorCookie != "" {
				cookie = "(set)"
			}

			return app.OK(map[string]any{
				"claude_base_url":  cfg.ClaudeBaseURL,
				"token_url":        cfg.TokenURL,
				"cursor_base_url":  cfg.CursorBaseURL,
				"poll_interval":    cfg.PollInterval.String(),
				"credentials_file": cfg.CredentialsFile,
				"cursor_cookie":    cookie,
				"cache_dir":        cfg.CacheDir,
				"format":           cfg.Format,
				"config_dir":       config.GlobalConfigDir(),
				"sources":          cfg.Sources,
			}, output.WithSummary("Configuration resolved from "+config.GlobalConfigDir()))
		},
	}
}
