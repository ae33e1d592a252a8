// Package config provides centralized configuration management for the
// dashboard, loaded from environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Environment variable names recognized by LoadFromEnv.
const (
	APIKeyEnv      = "LINEAR_API_KEY"
	APIEndpointEnv = "LINEAR_API_ENDPOINT"
	ProfileEnv     = "LINDASH_PROFILE"
	PageSizeEnv    = "LINDASH_PAGE_SIZE"
	CacheTTLEnv    = "LINDASH_CACHE_TTL"
	TimeoutEnv     = "LINDASH_TIMEOUT"
	LogFileEnv     = "LINDASH_LOG_FILE"
	LogLevelEnv    = "LINDASH_LOG_LEVEL"
)

// Defaults applied when the corresponding variable is unset.
const (
	DefaultPageSize     = 20
	DefaultOverlayLimit = 10
	DefaultCacheTTL     = 5 * time.Minute
	DefaultTimeout      = 30 * time.Second
	DefaultLogLevel     = "warning"
	DefaultProfile      = "default"
)

// Config holds all runtime settings for the dashboard.
type Config struct {
	// APIKey is a personal API key. Optional when a stored session exists
	// for the selected profile.
	APIKey string
	// APIEndpoint overrides the GraphQL endpoint (defaults inside linearapi).
	APIEndpoint string
	// Profile selects the stored auth session to use.
	Profile string
	// PageSize is the number of issues requested per page.
	PageSize int
	// OverlayLimit is the number of rows fetched for the projects and
	// cycles overlays.
	OverlayLimit int
	// CacheTTL bounds the staleness of cached teams/states/projects.
	CacheTTL time.Duration
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration
	// LogFile is the diagnostics destination; empty disables logging.
	LogFile string
	// LogLevel is one of debug, info, warning, error.
	LogLevel string
}

// LoadFromEnv reads configuration from the environment and applies defaults.
func LoadFromEnv() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault(PageSizeEnv, DefaultPageSize)
	v.SetDefault(CacheTTLEnv, DefaultCacheTTL.String())
	v.SetDefault(TimeoutEnv, DefaultTimeout.String())
	v.SetDefault(LogLevelEnv, DefaultLogLevel)
	v.SetDefault(ProfileEnv, DefaultProfile)
	v.SetDefault(LogFileEnv, defaultLogFile())

	cfg := Config{
		APIKey:       v.GetString(APIKeyEnv),
		APIEndpoint:  v.GetString(APIEndpointEnv),
		Profile:      v.GetString(ProfileEnv),
		PageSize:     v.GetInt(PageSizeEnv),
		OverlayLimit: DefaultOverlayLimit,
		LogFile:      v.GetString(LogFileEnv),
		LogLevel:     v.GetString(LogLevelEnv),
	}

	ttl, err := time.ParseDuration(v.GetString(CacheTTLEnv))
	if err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", CacheTTLEnv, err)
	}
	cfg.CacheTTL = ttl

	timeout, err := time.ParseDuration(v.GetString(TimeoutEnv))
	if err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", TimeoutEnv, err)
	}
	cfg.Timeout = timeout

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.PageSize <= 0 || c.PageSize > 200 {
		return fmt.Errorf("%s must be between 1 and 200, got %d", PageSizeEnv, c.PageSize)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("%s must not be negative", CacheTTLEnv)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%s must be positive", TimeoutEnv)
	}
	switch c.LogLevel {
	case "debug", "info", "warning", "error":
	default:
		return fmt.Errorf("%s must be one of debug, info, warning, error", LogLevelEnv)
	}
	return nil
}

func defaultLogFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "lindash", "lindash.log")
}
