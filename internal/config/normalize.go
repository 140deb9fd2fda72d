package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCatalog()
	c.normalizeSync()
	c.normalizeReference()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCatalog() {
	c.Catalog.BaseURL = strings.TrimRight(strings.TrimSpace(c.Catalog.BaseURL), "/")
	if c.Catalog.BaseURL == "" {
		c.Catalog.BaseURL = defaultCatalogBaseURL
	}
	c.Catalog.PartnerID = strings.TrimSpace(c.Catalog.PartnerID)
	if c.Catalog.PartnerID == "" {
		if value, ok := os.LookupEnv("REELSYNC_PARTNER_ID"); ok {
			c.Catalog.PartnerID = strings.TrimSpace(value)
		}
	}
	c.Catalog.SigningSecret = strings.TrimSpace(c.Catalog.SigningSecret)
	if c.Catalog.SigningSecret == "" {
		if value, ok := os.LookupEnv("REELSYNC_SIGNING_SECRET"); ok {
			c.Catalog.SigningSecret = strings.TrimSpace(value)
		}
	}
	if strings.TrimSpace(c.Catalog.TokenACL) == "" {
		c.Catalog.TokenACL = defaultTokenACL
	}
	if c.Catalog.TokenWindowSeconds <= 0 {
		c.Catalog.TokenWindowSeconds = defaultTokenWindow
	}
	if c.Catalog.RequestTimeout <= 0 {
		c.Catalog.RequestTimeout = defaultCatalogTimeout
	}
}

func (c *Config) normalizeSync() {
	if c.Sync.PageSize <= 0 {
		c.Sync.PageSize = defaultPageSize
	}
	if c.Sync.MaxOffset <= 0 {
		c.Sync.MaxOffset = defaultMaxOffset
	}
	if c.Sync.CooldownSeconds <= 0 {
		c.Sync.CooldownSeconds = defaultCooldownSeconds
	}
	if c.Sync.LookbackHours <= 0 {
		c.Sync.LookbackHours = defaultLookbackHours
	}
	c.Sync.ReconcileWeekday = strings.ToLower(strings.TrimSpace(c.Sync.ReconcileWeekday))
	if c.Sync.ReconcileWeekday == "" {
		c.Sync.ReconcileWeekday = defaultReconcileWeekday
	}
	if c.Sync.PartitionOldestYear <= 0 {
		c.Sync.PartitionOldestYear = defaultPartitionOldest
	}
	if c.Sync.PartitionSingleYears <= 0 {
		c.Sync.PartitionSingleYears = defaultPartitionSingles
	}
}

func (c *Config) normalizeReference() {
	c.Reference.BaseURL = strings.TrimRight(strings.TrimSpace(c.Reference.BaseURL), "/")
	if c.Reference.BaseURL == "" {
		c.Reference.BaseURL = defaultReferenceBaseURL
	}
	c.Reference.APIKey = strings.TrimSpace(c.Reference.APIKey)
	if c.Reference.APIKey == "" {
		if value, ok := os.LookupEnv("TMDB_API_KEY"); ok {
			c.Reference.APIKey = strings.TrimSpace(value)
		}
	}
	if c.Reference.RateBudget <= 0 {
		c.Reference.RateBudget = defaultRateBudget
	}
	if c.Reference.RateWindowSeconds <= 0 {
		c.Reference.RateWindowSeconds = defaultRateWindowSeconds
	}
	if c.Reference.Concurrency <= 0 {
		c.Reference.Concurrency = defaultConcurrency
	}
	if c.Reference.TopCandidates <= 0 {
		c.Reference.TopCandidates = defaultTopCandidates
	}
	if c.Reference.RequestTimeout <= 0 {
		c.Reference.RequestTimeout = defaultReferenceTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Review.ConfidenceCeiling <= 0 {
		c.Review.ConfidenceCeiling = defaultConfidenceCeiling
	}
}
