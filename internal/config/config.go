// Package config loads pagewarden configuration from environment
// variables, optionally seeded from a .env file.
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all environment-based configuration for pagewarden.
type Config struct {
	// Facebook app credentials. AppSecret is optional: without it the
	// guardian runs degraded refreshes (no long-lived exchange, page
	// token re-derived from the existing user token).
	AppID     string `env:"PW_APP_ID"`
	AppSecret string `env:"PW_APP_SECRET"`

	// PageName selects which managed page to moderate when the account
	// administers more than one. Empty means the first page returned by
	// the API, which is only deterministic for single-page accounts.
	PageName string `env:"PW_PAGE_NAME" envDefault:""`

	// RulesFile is the path to the YAML keyword rule file.
	RulesFile string `env:"PW_RULES_FILE" envDefault:"rules.yaml"`

	// StatePath overrides the default state database location
	// (~/.pagewarden/state.db). Mainly for tests and containers.
	StatePath string `env:"PW_STATE_PATH" envDefault:""`

	// Sweep intervals for the two scheduler loops.
	CommentSweepInterval time.Duration `env:"PW_COMMENT_SWEEP_INTERVAL" envDefault:"5m"`
	PostSweepInterval    time.Duration `env:"PW_POST_SWEEP_INTERVAL" envDefault:"1m"`

	// ReplyCooldown is the pause inserted between consecutive replies to
	// stay under the Graph API's publish rate limits.
	ReplyCooldown time.Duration `env:"PW_REPLY_COOLDOWN" envDefault:"800ms"`

	// PostWindow bounds how far back the comment sweep looks for posts.
	PostWindow int `env:"PW_POST_WINDOW" envDefault:"25"`

	// ValidityBuffer is how long before expiry a session counts as
	// expiring. A token with exactly this much lifetime left is already
	// due for refresh.
	ValidityBuffer time.Duration `env:"PW_VALIDITY_BUFFER" envDefault:"24h"`

	// DefaultTokenTTL is the assumed lifetime for tokens whose expiry
	// the upstream reports as unknown or indefinite.
	DefaultTokenTTL time.Duration `env:"PW_DEFAULT_TOKEN_TTL" envDefault:"1440h"`

	// Environment controls log format.
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
}

// warnInsecureEnvFile checks whether the .env file (if present) has
// overly permissive permissions. On Unix systems, group or world
// readable files risk exposing the app secret to other users.
func warnInsecureEnvFile() {
	if runtime.GOOS == "windows" {
		return
	}

	info, err := os.Stat(".env")
	if err != nil {
		return // file does not exist, nothing to check
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		log.Printf("WARNING: .env file has insecure permissions %04o; recommended 0600", mode)
	}
}

// Load reads configuration from environment variables.
// It first attempts to load a .env file if present, then parses env vars.
func Load() (*Config, error) {
	_ = godotenv.Load()

	warnInsecureEnvFile()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	// Resolve the rules file to an absolute path at startup so the
	// fsnotify watcher and error messages agree on one spelling.
	absRules, err := filepath.Abs(cfg.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("resolving rules file to absolute path: %w", err)
	}

	cfg.RulesFile = absRules

	return cfg, nil
}

func (c *Config) validate() error {
	if c.AppSecret != "" && c.AppID == "" {
		return fmt.Errorf("PW_APP_ID is required when PW_APP_SECRET is set")
	}

	if c.CommentSweepInterval <= 0 {
		return fmt.Errorf("PW_COMMENT_SWEEP_INTERVAL must be positive")
	}

	if c.PostSweepInterval <= 0 {
		return fmt.Errorf("PW_POST_SWEEP_INTERVAL must be positive")
	}

	if c.ReplyCooldown < 0 {
		return fmt.Errorf("PW_REPLY_COOLDOWN must not be negative")
	}

	if c.ValidityBuffer <= 0 {
		return fmt.Errorf("PW_VALIDITY_BUFFER must be positive")
	}

	if c.DefaultTokenTTL <= 0 {
		return fmt.Errorf("PW_DEFAULT_TOKEN_TTL must be positive")
	}

	if c.PostWindow <= 0 {
		return fmt.Errorf("PW_POST_WINDOW must be positive")
	}

	return nil
}

// DefaultStatePath returns the default state database location:
// ~/.pagewarden/state.db
func DefaultStatePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}

	return filepath.Join(home, ".pagewarden", "state.db"), nil
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
