// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"reelsync/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories and
// placeholder secrets per test. It applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Catalog.PartnerID = "test-partner"
	cfg.Catalog.SigningSecret = "deadbeef"
	cfg.Reference.APIKey = "test-key"
	cfg.Sync.RequestDelaySeconds = 0
	cfg.Sync.CooldownSeconds = 1

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithCatalogBaseURL points the catalog client at a test server.
func WithCatalogBaseURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Catalog.BaseURL = url
	}
}

// WithReferenceBaseURL points the reference client at a test server.
func WithReferenceBaseURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Reference.BaseURL = url
	}
}

// WithSyncTuning shrinks pagination bounds for fast sync tests.
func WithSyncTuning(pageSize, maxOffset int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Sync.PageSize = pageSize
		cfg.Sync.MaxOffset = maxOffset
	}
}
