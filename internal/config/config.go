// Package config loads and persists carsub configuration from
// .carsub/config.json. A project-local .carsub directory is preferred; a
// home-level ~/.carsub is the fallback.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SchedulerConfig holds rate-limit and timing-window policy. All values are
// evaluated in Config.Timezone - submission cadence is a business policy
// independent of host locale.
type SchedulerConfig struct {
	WeeklyLimit int `json:"weekly_limit"`
	DailyLimit  int `json:"daily_limit"`
	WindowStart int `json:"window_start_hour"` // inclusive, 0-23
	WindowEnd   int `json:"window_end_hour"`   // exclusive, may wrap midnight
	MinDelayMs  int `json:"min_delay_ms"`
	MaxDelayMs  int `json:"max_delay_ms"`
}

// CampaignConfig holds the multi-week rollout policy.
type CampaignConfig struct {
	PerWeekQuota int `json:"per_week_quota"`
	TotalWeeks   int `json:"total_weeks"`
}

// ClassifierConfig holds tunable relevance policy values.
type ClassifierConfig struct {
	// FallbackDRThreshold gates the pass/fail decision when the oracle is
	// unreachable. Tunable policy, not an inherent law.
	FallbackDRThreshold int `json:"fallback_dr_threshold"`
}

// BrowserConfig holds browser automation settings.
type BrowserConfig struct {
	Bin                 string `json:"bin,omitempty"`
	Headless            bool   `json:"headless"`
	ViewportWidth       int    `json:"viewport_width"`
	ViewportHeight      int    `json:"viewport_height"`
	NavigationTimeoutMs int    `json:"navigation_timeout_ms"`
}

// OracleConfig holds LLM oracle settings.
type OracleConfig struct {
	APIKey    string `json:"api_key,omitempty"`
	Model     string `json:"model"`
	TimeoutMs int    `json:"timeout_ms"`
}

// LoggingConfig mirrors what the logging package reads from config.json.
type LoggingConfig struct {
	DebugMode  bool            `json:"debug_mode"`
	Categories map[string]bool `json:"categories,omitempty"`
	Level      string          `json:"level,omitempty"`
	JSONFormat bool            `json:"json_format,omitempty"`
}

// Config is the top-level carsub configuration.
type Config struct {
	Timezone        string           `json:"timezone"`
	LedgerPath      string           `json:"ledger_path"`
	DirectoriesPath string           `json:"directories_path"`
	ProfilePath     string           `json:"profile_path"`
	MaxFormSteps    int              `json:"max_form_steps"`
	Scheduler       SchedulerConfig  `json:"scheduler"`
	Campaign        CampaignConfig   `json:"campaign"`
	Classifier      ClassifierConfig `json:"classifier"`
	Browser         BrowserConfig    `json:"browser"`
	Oracle          OracleConfig     `json:"oracle"`
	Logging         LoggingConfig    `json:"logging"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Timezone:        "America/Chicago",
		LedgerPath:      filepath.Join(".carsub", "ledger.db"),
		DirectoriesPath: "directories.yaml",
		ProfilePath:     filepath.Join(".carsub", "profile.json"),
		MaxFormSteps:    4,
		Scheduler: SchedulerConfig{
			WeeklyLimit: 15,
			DailyLimit:  3,
			WindowStart: 21,
			WindowEnd:   2,
			MinDelayMs:  180000,
			MaxDelayMs:  600000,
		},
		Campaign: CampaignConfig{
			PerWeekQuota: 15,
			TotalWeeks:   30,
		},
		Classifier: ClassifierConfig{
			FallbackDRThreshold: 20,
		},
		Browser: BrowserConfig{
			Headless:            true,
			ViewportWidth:       1366,
			ViewportHeight:      900,
			NavigationTimeoutMs: 45000,
		},
		Oracle: OracleConfig{
			Model:     "gemini-2.0-flash",
			TimeoutMs: 60000,
		},
	}
}

// Location resolves the configured civil timezone via the platform tzdata.
// DST transitions come from the zone rules, never hand-computed offsets.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// NavigationTimeout returns the browser navigation timeout.
func (c BrowserConfig) NavigationTimeout() time.Duration {
	if c.NavigationTimeoutMs <= 0 {
		return 45 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}

// Timeout returns the per-call oracle timeout.
func (c OracleConfig) Timeout() time.Duration {
	if c.TimeoutMs <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// ResolveAPIKey returns the oracle API key, preferring the environment over
// the config file so keys stay out of checked-in JSON.
func (c OracleConfig) ResolveAPIKey() string {
	for _, env := range []string{"CARSUB_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"} {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	return c.APIKey
}

// ConfigDir returns the directory where config is stored
func ConfigDir() (string, error) {
	// Prefer project-local .carsub directory if present or creatable
	if cwd, err := os.Getwd(); err == nil {
		localDir := filepath.Join(cwd, ".carsub")
		if stat, err := os.Stat(localDir); (err == nil && stat.IsDir()) || os.IsNotExist(err) {
			return localDir, nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".carsub"), nil
}

// ConfigFile returns the full path to the config file
func ConfigFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the configuration from disk. A missing file yields defaults.
func Load() (Config, error) {
	path, err := ConfigFile()
	if err != nil {
		return DefaultConfig(), err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return DefaultConfig(), err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to disk
func Save(cfg Config) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	path, err := ConfigFile()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
