package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "https://api.anthropic.com", cfg.ClaudeBaseURL)
	assert.Equal(t, "https://console.anthropic.com/v1/oauth/token", cfg.TokenURL)
	assert.Equal(t, "https://cursor.com", cfg.CursorBaseURL)
	assert.Equal(t, 5*time.Minute, cfg.PollInterval)
	assert.Contains(t, cfg.CredentialsFile, filepath.Join(".claude", ".credentials.json"))
	assert.Equal(t, "auto", cfg.Format)
}

func TestLoadFromJSONFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"claude_base_url": "https://claude.example.com",
		"poll_interval": "90s",
		"format": "json"
	}`), 0600))

	cfg := Default()
	loadFromFile(cfg, path, SourceGlobal)

	assert.Equal(t, "https://claude.example.com", cfg.ClaudeBaseURL)
	assert.Equal(t, 90*time.Second, cfg.PollInterval)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, string(SourceGlobal), cfg.Sources["claude_base_url"])
	assert.Equal(t, string(SourceGlobal), cfg.Sources["poll_interval"])
}

func TestLoadFromYAMLFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"cursor_base_url: https://cursor.example.com\npoll_interval: 10m\n"), 0600))

	cfg := Default()
	loadFromFile(cfg, path, SourceGlobal)

	assert.Equal(t, "https://cursor.example.com", cfg.CursorBaseURL)
	assert.Equal(t, 10*time.Minute, cfg.PollInterval)
}

func TestLoadIgnoresMalformedFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	cfg := Default()
	loadFromFile(cfg, path, SourceGlobal)

	// Defaults untouched
	assert.Equal(t, "https://api.anthropic.com", cfg.ClaudeBaseURL)
}

func TestLoadIgnoresInvalidInterval(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"poll_interval": "soon"}`), 0600))

	cfg := Default()
	loadFromFile(cfg, path, SourceGlobal)

	assert.Equal(t, 5*time.Minute, cfg.PollInterval)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CLAUDE_CHECKER_CLAUDE_BASE_URL", "https://env.example.com")
	t.Setenv("CLAUDE_CHECKER_INTERVAL", "2m")
	t.Setenv("CLAUDE_CHECKER_CURSOR_COOKIE", "WorkosCursorSessionToken=abc")

	cfg := Default()
	LoadFromEnv(cfg)

	assert.Equal(t, "https://env.example.com", cfg.ClaudeBaseURL)
	assert.Equal(t, 2*time.Minute, cfg.PollInterval)
	assert.Equal(t, "WorkosCursorSessionToken=abc", cfg.CursorCookie)
	assert.Equal(t, string(SourceEnv), cfg.Sources["claude_base_url"])
}

func TestApplyOverrides(t *testing.T) {
	cfg := Default()
	ApplyOverrides(cfg, FlagOverrides{
		Interval: time.Minute,
		CacheDir: "/tmp/cc-cache",
		Format:   "quiet",
	})

	assert.Equal(t, time.Minute, cfg.PollInterval)
	assert.Equal(t, "/tmp/cc-cache", cfg.CacheDir)
	assert.Equal(t, "quiet", cfg.Format)
	assert.Equal(t, string(SourceFlag), cfg.Sources["poll_interval"])
}

func TestFlagBeatsEnv(t *testing.T) {
	t.Setenv("CLAUDE_CHECKER_INTERVAL", "2m")

	cfg := Default()
	LoadFromEnv(cfg)
	ApplyOverrides(cfg, FlagOverrides{Interval: 30 * time.Second})

	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, string(SourceFlag), cfg.Sources["poll_interval"])
}

func TestNormalizeBaseURL(t *testing.T) {
	assert.Equal(t, "https://x.example.com", NormalizeBaseURL("https://x.example.com/"))
	assert.Equal(t, "https://x.example.com", NormalizeBaseURL("https://x.example.com"))
}
