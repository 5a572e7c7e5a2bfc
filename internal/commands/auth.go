package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gaamiranda/Claude-Checker/internal/output"
)

// NewAuthCmd creates the auth command group.
func NewAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage Claude credentials",
		Long:  "Inspect, refresh, and clear the cached Claude OAuth credential.",
	}

	cmd.AddCommand(
		newAuthStatusCmd(),
		newAuthRefreshCmd(),
		newAuthLogoutCmd(),
	)

	return cmd
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show credential status",
		Long:  "Display whether a Claude credential is available and when it expires.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromCmd(cmd)
			if err != nil {
				return err
			}

			rec, err := app.Creds.Get()
			if err != nil {
				if output.AsError(err).Code == output.CodeCredentialNotFound {
					return app.OK(map[string]any{
						"authenticated": false,
					}, output.WithSummary("No Claude credentials found"))
				}
				return err
			}

			status := map[string]any{
				"authenticated":     true,
				"has_refresh_token": rec.HasRefreshToken(),
				"expired":           rec.IsExpired(),
			}
			if rec.ExpiresAt > 0 {
				status["expires_in"] = rec.ExpiresIn().Round(time.Second).String()
			}
			if rec.SubscriptionType != "" {
				status["subscription"] = rec.SubscriptionType
			}
			if rec.RateLimitTier != "" {
				status["rate_limit_tier"] = rec.RateLimitTier
			}
			if len(rec.Scopes) > 0 {
				status["scopes"] = rec.Scopes
			}

			summary := "Authenticated"
			if rec.IsExpired() {
				summary = "Authenticated (token expired"
				if rec.HasRefreshToken() {
					summary += ", refreshable"
				}
				summary += ")"
			} else if rec.ExpiresAt > 0 {
				summary = fmt.Sprintf("Authenticated (expires in %s)", rec.ExpiresIn().Round(time.Second))
			}

			return app.OK(status, output.WithSummary(summary))
		},
	}
}

func newAuthRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the access token",
		Long:  "Force a refresh of the Claude OAuth access token and cache the result.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromCmd(cmd)
			if err != nil {
				return err
			}

			rec, err := app.Creds.Get()
			if err != nil {
				return err
			}

			refreshed, err := app.Refresher.Refresh(cmd.Context(), rec)
			if err != nil {
				if output.AsError(err).RequiresReauth() {
					app.Creds.Invalidate()
				}
				return err
			}
			if err := app.Creds.CacheRefreshed(refreshed); err != nil {
				return err
			}

			return app.OK(map[string]any{
				"status":     "refreshed",
				"expires_in": refreshed.ExpiresIn().Round(time.Second).String(),
			}, output.WithSummary("Token refreshed successfully"))
		},
	}
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear cached credentials",
		Long: `Clear this tool's cached copies of the Claude credential.

The credential held by the Claude app itself is left alone; the next poll
re-reads it from the keychain or credentials file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFromCmd(cmd)
			if err != nil {
				return err
			}

			app.Creds.Invalidate()

			return app.OK(map[string]string{
				"status": "cleared",
			}, output.WithSummary("Cached credentials cleared"))
		},
	}
}
