// Package config loads, validates, and normalizes reelsync configuration.
//
// Configuration is read from a TOML file (default ~/.config/reelsync/config.toml,
// falling back to ./reelsync.toml). Secrets may be overridden from the
// environment: REELSYNC_SIGNING_SECRET, REELSYNC_PARTNER_ID, and TMDB_API_KEY.
// All tunables carry documented defaults so a minimal config only needs the
// partner identity and the two API secrets.
package config
