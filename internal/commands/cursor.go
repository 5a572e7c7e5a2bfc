package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gaamiranda/Claude-Checker/internal/output"
)

// NewCursorCmd creates the cursor command group.
func NewCursorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cursor",
		Short: "Manage the Cursor session token",
		Long:  "Store, verify, and clear the Cursor session cookie used for polling.",
	}

	cmd.AddCommand(
		newCursorSetTokenCmd(),
		newCursorClearTokenCmd(),
		newCursorStatusCmd(),
	)

	return cmd
}

func newCursorSetTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-token [token]",
		Short: "Store the Cursor session cookie",
		Long: `Store the Cursor session cookie for usage polling.

The cookie is taken from the argument, or prompted for without echo when
run in a terminal, or read from stdin when piped:

  claude-checker cursor set-token
  pbpaste | claude-checker cursor set-token

Copy the Cookie header value from a logged-in cursor.com browser session.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromCmd(cmd)
			if err != nil {
				return err
			}

			var token string
			switch {
			case len(args) == 1:
				token = args[0]
			case term.IsTerminal(int(os.Stdin.Fd())):
				fmt.Fprint(os.Stderr, "Session cookie: ")
				raw, err := term.ReadPassword(int(os.Stdin.Fd()))
				fmt.Fprintln(os.Stderr)
				if err != nil {
					return fmt.Errorf("reading token: %w", err)
				}
				token = string(raw)
			default:
				scanner := bufio.NewScanner(os.Stdin)
				scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
				if scanner.Scan() {
					token = scanner.Text()
				}
				if err := scanner.Err(); err != nil {
					return fmt.Errorf("reading token: %w", err)
				}
			}

			token = strings.TrimSpace(token)
			if token == "" {
				return output.ErrUsage("Session token required")
			}

			if err := app.CursorTokens.Set(token); err != nil {
				return err
			}

			// Verify by fetching the account identity. A failure here is a
			// warning; the token is stored either way.
			result := map[string]string{"status": "stored"}
			summary := "Session token stored"
			if id, err := app.NewCursorClient(token).FetchIdentity(cmd.Context()); err == nil && id.Email != "" {
				result["email"] = id.Email
				summary = fmt.Sprintf("Session token stored for %s", id.Email)
			} else if err != nil {
				fmt.Fprintf(os.Stderr, "warning: could not verify token: %v\n", err)
			}

			return app.OK(result, output.WithSummary(summary))
		},
	}
}

func newCursorClearTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-token",
		Short: "Remove the stored session cookie",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromCmd(cmd)
			if err != nil {
				return err
			}

			if err := app.CursorTokens.Clear(); err != nil {
				return err
			}

			return app.OK(map[string]string{
				"status": "cleared",
			}, output.WithSummary("Session token cleared"))
		},
	}
}

func newCursorStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session token status",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromCmd(cmd)
			if err != nil {
				return err
			}

			cookie := app.CursorCookie()
			if cookie == "" {
				return app.OK(map[string]any{
					"configured": false,
				}, output.WithSummary("No session token configured"))
			}

			status := map[string]any{"configured": true}
			summary := "Session token configured"
			if id, err := app.NewCursorClient(cookie).FetchIdentity(cmd.Context()); err == nil && id.Email != "" {
				status["email"] = id.Email
				status["valid"] = true
				summary = fmt.Sprintf("Session token valid for %s", id.Email)
			} else if err != nil {
				status["valid"] = false
				status["error"] = output.AsError(err).Message
				summary = "Session token configured but not verified"
			}

			return app.OK(status, output.WithSummary(summary))
		},
	}
}
