// Package config provides layered configuration loading.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the resolved configuration.
type Config struct {
	// Endpoints
	ClaudeBaseURL string `json:"claude_base_url" yaml:"claude_base_url"`
	TokenURL      string `json:"token_url" yaml:"token_url"`
	CursorBaseURL string `json:"cursor_base_url" yaml:"cursor_base_url"`

	// Polling
	PollInterval time.Duration `json:"-" yaml:"-"`

	// Credential sources
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
	CursorCookie    string `json:"cursor_cookie" yaml:"cursor_cookie"`

	// Cache settings
	CacheDir string `json:"cache_dir" yaml:"cache_dir"`

	// Output settings
	Format string `json:"format" yaml:"format"`

	// Sources tracks where each value came from (for debugging).
	Sources map[string]string `json:"-" yaml:"-"`
}

// Source indicates where a config value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceGlobal  Source = "global"
	SourceEnv     Source = "env"
	SourceFlag    Source = "flag"
)

// FlagOverrides holds command-line flag values.
type FlagOverrides struct {
	Interval        time.Duration
	CacheDir        string
	CredentialsFile string
	Format          string
}

// Default returns the default configuration.
func Default() *Config {
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		home, _ := os.UserHomeDir()
		cacheDir = filepath.Join(home, ".cache")
	}

	home, _ := os.UserHomeDir()

	return &Config{
		ClaudeBaseURL:   "https://api.anthropic.com",
		TokenURL:        "https://console.anthropic.com/v1/oauth/token",
		CursorBaseURL:   "https://cursor.com",
		PollInterval:    5 * time.Minute,
		CredentialsFile: filepath.Join(home, ".claude", ".credentials.json"),
		CacheDir:        filepath.Join(cacheDir, "claude-checker"),
		Format:          "auto",
		Sources:         make(map[string]string),
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence: flags > env > global file > defaults
func Load(overrides FlagOverrides) (*Config, error) {
	cfg := Default()

	if path := globalConfigPath(); path != "" {
		loadFromFile(cfg, path, SourceGlobal)
	}

	LoadFromEnv(cfg)
	ApplyOverrides(cfg, overrides)

	return cfg, nil
}

// fileConfig mirrors Config for file decoding; PollInterval is expressed
// as a duration string ("5m", "90s").
type fileConfig struct {
	ClaudeBaseURL   string `json:"claude_base_url" yaml:"claude_base_url"`
	TokenURL        string `json:"token_url" yaml:"token_url"`
	CursorBaseURL   string `json:"cursor_base_url" yaml:"cursor_base_url"`
	PollInterval    string `json:"poll_interval" yaml:"poll_interval"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
	CursorCookie    string `json:"cursor_cookie" yaml:"cursor_cookie"`
	CacheDir        string `json:"cache_dir" yaml:"cache_dir"`
	Format          string `json:"format" yaml:"format"`
}

func loadFromFile(cfg *Config, path string, source Source) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: Path is from trusted config locations
	if err != nil {
		return // File doesn't exist, skip
	}

	var fileCfg fileConfig
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		err = yaml.Unmarshal(data, &fileCfg)
	} else {
		err = json.Unmarshal(data, &fileCfg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: skipping malformed config at %s: %v\n", path, err)
		return
	}

	set := func(key string, dst *string, v string) {
		if v != "" {
			*dst = v
			cfg.Sources[key] = string(source)
		}
	}
	set("claude_base_url", &cfg.ClaudeBaseURL, fileCfg.ClaudeBaseURL)
	set("token_url", &cfg.TokenURL, fileCfg.TokenURL)
	set("cursor_base_url", &cfg.CursorBaseURL, fileCfg.CursorBaseURL)
	set("credentials_file", &cfg.CredentialsFile, fileCfg.CredentialsFile)
	set("cursor_cookie", &cfg.CursorCookie, fileCfg.CursorCookie)
	set("cache_dir", &cfg.CacheDir, fileCfg.CacheDir)
	set("format", &cfg.Format, fileCfg.Format)

	if fileCfg.PollInterval != "" {
		if d, err := time.ParseDuration(fileCfg.PollInterval); err == nil && d > 0 {
			cfg.PollInterval = d
			cfg.Sources["poll_interval"] = string(source)
		} else {
			fmt.Fprintf(os.Stderr, "warning: ignoring invalid poll_interval %q in %s\n", fileCfg.PollInterval, path)
		}
	}
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv(cfg *Config) {
	set := func(key, env string, dst *string) {
		if v := os.Getenv(env); v != "" {
			*dst = v
			cfg.Sources[key] = string(SourceEnv)
		}
	}
	set("claude_base_url", "CLAUDE_CHECKER_CLAUDE_BASE_URL", &cfg.ClaudeBaseURL)
	set("token_url", "CLAUDE_CHECKER_TOKEN_URL", &cfg.TokenURL)
	set("cursor_base_url", "CLAUDE_CHECKER_CURSOR_BASE_URL", &cfg.CursorBaseURL)
	set("credentials_file", "CLAUDE_CHECKER_CREDENTIALS_FILE", &cfg.CredentialsFile)
	set("cursor_cookie", "CLAUDE_CHECKER_CURSOR_COOKIE", &cfg.CursorCookie)
	set("cache_dir", "CLAUDE_CHECKER_CACHE_DIR", &cfg.CacheDir)
	set("format", "CLAUDE_CHECKER_FORMAT", &cfg.Format)

	if v := os.Getenv("CLAUDE_CHECKER_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.PollInterval = d
			cfg.Sources["poll_interval"] = string(SourceEnv)
		}
	}
}

// ApplyOverrides applies non-empty flag overrides to cfg.
func ApplyOverrides(cfg *Config, o FlagOverrides) {
	if o.Interval > 0 {
		cfg.PollInterval = o.Interval
		cfg.Sources["poll_interval"] = string(SourceFlag)
	}
	if o.CacheDir != "" {
		cfg.CacheDir = o.CacheDir
		cfg.Sources["cache_dir"] = string(SourceFlag)
	}
	if o.CredentialsFile != "" {
		cfg.CredentialsFile = o.CredentialsFile
		cfg.Sources["credentials_file"] = string(SourceFlag)
	}
	if o.Format != "" {
		cfg.Format = o.Format
		cfg.Sources["format"] = string(SourceFlag)
	}
}

// globalConfigPath returns the first config file that exists, preferring
// JSON over YAML when both are present.
func globalConfigPath() string {
	dir := GlobalConfigDir()
	for _, name := range []string{"config.json", "config.yaml", "config.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// GlobalConfigDir returns the global config directory path.
func GlobalConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "claude-checker")
}

// NormalizeBaseURL ensures consistent URL format (no trailing slash).
func NormalizeBaseURL(url string) string {
	return strings.TrimSuffix(url, "/")
}
