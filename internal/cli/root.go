// Package cli wires the cobra command tree.
package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gaamiranda/Claude-Checker/internal/appctx"
	"github.com/gaamiranda/Claude-Checker/internal/commands"
	"github.com/gaamiranda/Claude-Checker/internal/config"
	"github.com/gaamiranda/Claude-Checker/internal/output"
	"github.com/gaamiranda/Claude-Checker/internal/version"
)

// NewRootCmd creates the root cobra command.
func NewRootCmd() *cobra.Command {
	var flags appctx.GlobalFlags

	cmd := &cobra.Command{
		Use:           "claude-checker",
		Short:         "Usage monitor for Claude and Cursor",
		Long:          "claude-checker polls Claude's OAuth usage API and Cursor's dashboard, keeping credentials fresh along the way.",
		Version:       version.Full(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" {
				return nil
			}

			cfg, err := config.Load(config.FlagOverrides{
				Interval:        flags.Interval,
				CacheDir:        flags.CacheDir,
				CredentialsFile: flags.CredentialsFile,
				Format:          flags.Format,
			})
			if err != nil {
				return err
			}

			app := appctx.NewApp(cfg)
			app.Flags = flags
			app.ApplyFlags()

			cmd.SetContext(appctx.WithApp(cmd.Context(), app))
			return nil
		},
	}

	cmd.Flags().SetInterspersed(true)
	cmd.PersistentFlags().SetInterspersed(true)

	// Output format flags
	cmd.PersistentFlags().BoolVarP(&flags.JSON, "json", "j", false, "Output as JSON")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Output data only, no envelope")

	// Behavior flags
	cmd.PersistentFlags().CountVarP(&flags.Verbose, "verbose", "v", "Verbose output (-v for cycles, -vv for requests)")
	cmd.PersistentFlags().BoolVar(&flags.Stats, "stats", false, "Show session statistics")
	cmd.PersistentFlags().DurationVar(&flags.Interval, "interval", 0, "Poll interval for watch (e.g. 2m)")
	cmd.PersistentFlags().StringVar(&flags.CacheDir, "cache-dir", "", "Cache directory")
	cmd.PersistentFlags().StringVar(&flags.CredentialsFile, "credentials-file", "", "Fallback Claude credentials file")
	cmd.PersistentFlags().StringVar(&flags.Format, "format", "", "Output format (auto, json, text, quiet)")

	return cmd
}

// Execute runs the root command.
func Execute() {
	cmd := NewRootCmd()

	cmd.AddCommand(commands.NewStatusCmd())
	cmd.AddCommand(commands.NewWatchCmd())
	cmd.AddCommand(commands.NewAuthCmd())
	cmd.AddCommand(commands.NewCursorCmd())
	cmd.AddCommand(commands.NewHistoryCmd())
	cmd.AddCommand(commands.NewConfigCmd())

	executedCmd, err := cmd.ExecuteC()
	if err == nil {
		return
	}

	err = transformCobraError(err)
	apiErr := output.AsError(err)

	if app := appctx.FromContext(executedCmd.Context()); app != nil {
		_ = app.Err(err)
		os.Exit(apiErr.ExitCode())
	}

	// App not available (failure during setup): fall back to a bare writer.
	pf := cmd.PersistentFlags()
	format := output.FormatAuto
	if quiet, _ := pf.GetBool("quiet"); quiet {
		format = output.FormatQuiet
	} else if jsonFlag, _ := pf.GetBool("json"); jsonFlag {
		format = output.FormatJSON
	}

	writer := output.New(output.Options{
		Format: format,
		Writer: os.Stdout,
	})
	_ = writer.Err(err)

	os.Exit(apiErr.ExitCode())
}

// transformCobraError maps cobra's flag and argument errors onto usage
// errors so they exit with the usage code.
func transformCobraError(err error) error {
	msg := err.Error()

	if strings.HasPrefix(msg, "flag needs an argument: ") {
		flag := strings.TrimPrefix(msg, "flag needs an argument: ")
		return output.ErrUsage(flag + " requires a value")
	}

	if strings.HasPrefix(msg, "unknown flag: ") {
		flag := strings.TrimPrefix(msg, "unknown flag: ")
		return output.ErrUsage("Unknown option: " + flag)
	}

	if strings.HasPrefix(msg, "unknown command ") {
		return output.ErrUsage(msg)
	}

	if strings.Contains(msg, "invalid argument") || strings.Contains(msg, "accepts at most") {
		return output.ErrUsage(msg)
	}

	return err
}
