package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Catalog contains configuration for the upstream catalog API.
type Catalog struct {
	BaseURL            string `toml:"base_url"`
	PartnerID          string `toml:"partner_id"`
	SigningSecret      string `toml:"signing_secret"`
	TokenACL           string `toml:"token_acl"`
	TokenWindowSeconds int    `toml:"token_window_seconds"`
	CountryCode        string `toml:"country_code"`
	PlatformCode       string `toml:"platform_code"`
	RegionCode         string `toml:"region_code"`
	ClientCode         string `toml:"client_code"`
	RequestTimeout     int    `toml:"request_timeout"`
}

// Sync contains tuning for the synchronization engine.
type Sync struct {
	PageSize             int    `toml:"page_size"`
	MaxOffset            int    `toml:"max_offset"`
	RequestDelaySeconds  int    `toml:"request_delay_seconds"`
	CooldownSeconds      int    `toml:"cooldown_seconds"`
	LookbackHours        int    `toml:"lookback_hours"`
	ReconcileWeekday     string `toml:"reconcile_weekday"`
	PartitionOldestYear  int    `toml:"partition_oldest_year"`
	PartitionSingleYears int    `toml:"partition_single_years"`
}

// Reference contains configuration for the reference catalog API.
type Reference struct {
	BaseURL           string `toml:"base_url"`
	APIKey            string `toml:"api_key"`
	RateBudget        int    `toml:"rate_budget"`
	RateWindowSeconds int    `toml:"rate_window_seconds"`
	Concurrency       int    `toml:"concurrency"`
	TopCandidates     int    `toml:"top_candidates"`
	RequestTimeout    int    `toml:"request_timeout"`
}

// Review contains configuration for the match review workflow.
type Review struct {
	ConfidenceCeiling int `toml:"confidence_ceiling"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for reelsync.
//
// Sections by subsystem:
//   - Paths: data and log directories
//   - Catalog: upstream catalog API connection and credential signing
//   - Sync: pagination, partitioning, and cadence tuning
//   - Reference: reference catalog API connection and rate budget
//   - Review: match review thresholds
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Catalog   Catalog   `toml:"catalog"`
	Sync      Sync      `toml:"sync"`
	Reference Reference `toml:"reference"`
	Review    Review    `toml:"review"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reelsync/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reelsync.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories required for store and log output.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
