// Package appctx provides application context helpers.
package appctx

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gaamiranda/Claude-Checker/internal/anthropic"
	"github.com/gaamiranda/Claude-Checker/internal/auth"
	"github.com/gaamiranda/Claude-Checker/internal/config"
	"github.com/gaamiranda/Claude-Checker/internal/cursor"
	"github.com/gaamiranda/Claude-Checker/internal/history"
	"github.com/gaamiranda/Claude-Checker/internal/observability"
	"github.com/gaamiranda/Claude-Checker/internal/output"
	"github.com/gaamiranda/Claude-Checker/internal/poller"
)

// contextKey is a private type for context keys.
type contextKey string

const appKey contextKey = "app"

// App holds the shared application context for all commands.
type App struct {
	Config       *config.Config
	Creds        *auth.Store
	Refresher    *auth.Refresher
	ClaudeClient *anthropic.Client
	CursorTokens *cursor.TokenStore
	Output       *output.Writer

	// Observability
	Collector *observability.SessionCollector
	Trace     *observability.TraceWriter // nil unless verbose

	// Flags holds the global flag values
	Flags GlobalFlags
}

// GlobalFlags holds values for global CLI flags.
type GlobalFlags struct {
	// Output format flags
	JSON  bool
	Quiet bool

	// Behavior flags
	Verbose         int
	Stats           bool
	Interval        time.Duration
	CacheDir        string
	CredentialsFile string
	Format          string
}

// NewApp creates a new App with the given configuration.
func NewApp(cfg *config.Config) *App {
	creds := auth.NewStore(cfg.CacheDir, cfg.CredentialsFile)
	refresher := auth.NewRefresher(cfg.TokenURL, &http.Client{Timeout: 30 * time.Second})
	claudeClient := anthropic.NewClient(config.NormalizeBaseURL(cfg.ClaudeBaseURL), nil)
	cursorTokens := cursor.NewTokenStore(cfg.CacheDir)

	format := output.FormatAuto
	switch cfg.Format {
	case "json":
		format = output.FormatJSON
	case "quiet":
		format = output.FormatQuiet
	case "text":
		format = output.FormatText
	}

	return &App{
		Config:       cfg,
		Creds:        creds,
		Refresher:    refresher,
		ClaudeClient: claudeClient,
		CursorTokens: cursorTokens,
		Collector:    observability.NewSessionCollector(),
		Output: output.New(output.Options{
			Format: format,
			Writer: os.Stdout,
		}),
	}
}

// ApplyFlags applies global flag values to the app configuration.
func (a *App) ApplyFlags() {
	if a.Flags.Quiet {
		a.Output = output.New(output.Options{
			Format: output.FormatQuiet,
			Writer: os.Stdout,
		})
	} else if a.Flags.JSON {
		a.Output = output.New(output.Options{
			Format: output.FormatJSON,
			Writer: os.Stdout,
		})
	}

	verbose := a.Flags.Verbose
	if os.Getenv("CLAUDE_CHECKER_DEBUG") != "" {
		verbose = 2
	}
	if verbose > 0 {
		a.Trace = observability.NewTraceWriter()
	}

	a.ClaudeClient.Collector = a.Collector
	if verbose > 1 {
		a.ClaudeClient.Trace = a.Trace
	}
}

// CursorCookie returns the session cookie to use: config/env override
// first, then the token store.
func (a *App) CursorCookie() string {
	if c := strings.TrimSpace(a.Config.CursorCookie); c != "" {
		return c
	}
	return a.CursorTokens.Get()
}

// NewCursorClient builds a Cursor client for the given cookie, wired to
// the app's observability.
func (a *App) NewCursorClient(cookie string) *cursor.Client {
	c := cursor.NewClient(config.NormalizeBaseURL(a.Config.CursorBaseURL), cookie, nil)
	c.Collector = a.Collector
	if a.Flags.Verbose > 1 {
		c.Trace = a.Trace
	}
	return c
}

// OpenHistory opens the snapshot history database under the cache dir.
func (a *App) OpenHistory() (*history.Store, error) {
	if err := os.MkdirAll(a.Config.CacheDir, 0700); err != nil {
		return nil, err
	}
	return history.Open(a.Config.CacheDir)
}

// Pollers builds the provider pollers. hist may be nil when the caller
// does not want snapshots recorded.
func (a *App) Pollers(hist *history.Store) []poller.Poller {
	var rec interface {
		Append(provider string, v any) error
	}
	if hist != nil {
		rec = hist
	}

	claude := poller.NewClaudePoller(a.Creds, a.Refresher, a.ClaudeClient, a.Trace, a.Collector, rec)
	cur := poller.NewCursorPoller(
		a.CursorCookie,
		func(cookie string) poller.CursorAPI { return a.NewCursorClient(cookie) },
		a.Trace, a.Collector, rec,
	)
	return []poller.Poller{claude, cur}
}

// OK outputs a success response, appending stats when --stats is set.
func (a *App) OK(data any, opts ...output.ResponseOption) error {
	if a.Flags.Stats && a.Collector != nil {
		opts = append(opts, output.WithMeta("stats", a.Collector.Summary()))
	}
	return a.Output.OK(data, opts...)
}

// Err outputs an error response, printing stats to stderr if --stats is set.
func (a *App) Err(err error) error {
	if outputErr := a.Output.Err(err); outputErr != nil {
		return outputErr
	}
	if a.Flags.Stats && a.Collector != nil && !a.Flags.Quiet {
		s := a.Collector.Summary()
		fmt.Fprintf(os.Stderr, "\nStats: %d polls, %d requests, %d retries, %d refreshes, %d failed\n",
			s.TotalPolls, s.TotalRequests, s.TotalRetries, s.TokenRefreshes, s.FailedPolls)
	}
	return nil
}

// IsInteractive returns true if the terminal supports interactive TUI.
func (a *App) IsInteractive() bool {
	if a.Flags.JSON || a.Flags.Quiet {
		return false
	}
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// WithApp stores the app in the context.
func WithApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appKey, app)
}

// FromContext retrieves the app from the context.
func FromContext(ctx context.Context) *App {
	app, _ := ctx.Value(appKey).(*App)
	return app
}
