// Package commands implements the CLI commands.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gaamiranda/Claude-Checker/internal/appctx"
)

// appFromCmd returns the App stored in the command context.
func appFromCmd(cmd *cobra.Command) (*appctx.App, error) {
	app := appctx.FromContext(cmd.Context())
	if app == nil {
		return nil, fmt.Errorf("app not initialized")
	}
	return app, nil
}
