package config

const (
	defaultDataDir             = "~/.local/share/reelsync"
	defaultLogDir              = "~/.local/share/reelsync/logs"
	defaultCatalogBaseURL      = "https://pp-catalog-api.hotstar.com"
	defaultTokenACL            = "/*"
	defaultTokenWindow         = 2000
	defaultCountryCode         = "in"
	defaultPlatformCode        = "ANDROID"
	defaultRegionCode          = "DL"
	defaultClientCode          = "pt"
	defaultCatalogTimeout      = 30
	defaultPageSize            = 1000
	defaultMaxOffset           = 10000
	defaultRequestDelaySeconds = 1
	defaultCooldownSeconds     = 60
	defaultLookbackHours       = 24
	defaultReconcileWeekday    = "monday"
	defaultPartitionOldest     = 1990
	defaultPartitionSingles    = 2016
	defaultReferenceBaseURL    = "https://api.themoviedb.org/3"
	defaultRateBudget          = 40
	defaultRateWindowSeconds   = 10
	defaultConcurrency         = 10
	defaultTopCandidates       = 5
	defaultReferenceTimeout    = 30
	defaultConfidenceCeiling   = 90
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Catalog: Catalog{
			BaseURL:            defaultCatalogBaseURL,
			TokenACL:           defaultTokenACL,
			TokenWindowSeconds: defaultTokenWindow,
			CountryCode:        defaultCountryCode,
			PlatformCode:       defaultPlatformCode,
			RegionCode:         defaultRegionCode,
			ClientCode:         defaultClientCode,
			RequestTimeout:     defaultCatalogTimeout,
		},
		Sync: Sync{
			PageSize:             defaultPageSize,
			MaxOffset:            defaultMaxOffset,
			RequestDelaySeconds:  defaultRequestDelaySeconds,
			CooldownSeconds:      defaultCooldownSeconds,
			LookbackHours:        defaultLookbackHours,
			ReconcileWeekday:     defaultReconcileWeekday,
			PartitionOldestYear:  defaultPartitionOldest,
			PartitionSingleYears: defaultPartitionSingles,
		},
		Reference: Reference{
			BaseURL:           defaultReferenceBaseURL,
			RateBudget:        defaultRateBudget,
			RateWindowSeconds: defaultRateWindowSeconds,
			Concurrency:       defaultConcurrency,
			TopCandidates:     defaultTopCandidates,
			RequestTimeout:    defaultReferenceTimeout,
		},
		Review: Review{
			ConfidenceCeiling: defaultConfidenceCeiling,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
