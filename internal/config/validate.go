package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateReference(); err != nil {
		return err
	}
	if err := c.validateReview(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCatalog() error {
	if strings.TrimSpace(c.Catalog.BaseURL) == "" {
		return errors.New("catalog.base_url must be set")
	}
	if strings.TrimSpace(c.Catalog.PartnerID) == "" {
		return errors.New("catalog.partner_id must be set")
	}
	if strings.TrimSpace(c.Catalog.SigningSecret) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/reelsync/config.toml"
		}
		return fmt.Errorf("catalog.signing_secret is required. Set REELSYNC_SIGNING_SECRET env var or edit %s (create with 'reelsync config init')", defaultPath)
	}
	if c.Catalog.TokenWindowSeconds <= 0 {
		return errors.New("catalog.token_window_seconds must be positive")
	}
	if c.Catalog.RequestTimeout <= 0 {
		return errors.New("catalog.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateSync() error {
	if err := ensurePositiveMap(map[string]int{
		"sync.page_size":        c.Sync.PageSize,
		"sync.max_offset":       c.Sync.MaxOffset,
		"sync.cooldown_seconds": c.Sync.CooldownSeconds,
		"sync.lookback_hours":   c.Sync.LookbackHours,
	}); err != nil {
		return err
	}
	if c.Sync.RequestDelaySeconds < 0 {
		return errors.New("sync.request_delay_seconds must be >= 0")
	}
	if c.Sync.PageSize > c.Sync.MaxOffset {
		return errors.New("sync.page_size must not exceed sync.max_offset")
	}
	if _, err := ParseWeekday(c.Sync.ReconcileWeekday); err != nil {
		return fmt.Errorf("sync.reconcile_weekday: %w", err)
	}
	if c.Sync.PartitionOldestYear < 1900 {
		return errors.New("sync.partition_oldest_year must be 1900 or later")
	}
	if c.Sync.PartitionSingleYears < c.Sync.PartitionOldestYear {
		return errors.New("sync.partition_single_years must not predate sync.partition_oldest_year")
	}
	return nil
}

func (c *Config) validateReference() error {
	if strings.TrimSpace(c.Reference.BaseURL) == "" {
		return errors.New("reference.base_url must be set")
	}
	if strings.TrimSpace(c.Reference.APIKey) == "" {
		return errors.New("reference.api_key is required (create config with 'reelsync config init')")
	}
	return ensurePositiveMap(map[string]int{
		"reference.rate_budget":         c.Reference.RateBudget,
		"reference.rate_window_seconds": c.Reference.RateWindowSeconds,
		"reference.concurrency":         c.Reference.Concurrency,
		"reference.top_candidates":      c.Reference.TopCandidates,
		"reference.request_timeout":     c.Reference.RequestTimeout,
	})
}

func (c *Config) validateReview() error {
	if c.Review.ConfidenceCeiling < 0 || c.Review.ConfidenceCeiling > 100 {
		return errors.New("review.confidence_ceiling must be between 0 and 100")
	}
	return nil
}

// ParseWeekday converts a lowercase weekday name into a time.Weekday.
func ParseWeekday(value string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "sunday":
		return time.Sunday, nil
	case "monday":
		return time.Monday, nil
	case "tuesday":
		return time.Tuesday, nil
	case "wednesday":
		return time.Wednesday, nil
	case "thursday":
		return time.Thursday, nil
	case "friday":
		return time.Friday, nil
	case "saturday":
		return time.Saturday, nil
	default:
		return time.Sunday, fmt.Errorf("unknown weekday %q", value)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
