// Package store persists the mirrored catalog in SQLite.
//
// It owns four tables: catalog_items (one row per upstream content id,
// soft-deleted only), sync_log (one row per engine run), match_records
// (at most one per item), and access_credentials. All writes go through
// busy-retry helpers so concurrent readers never surface SQLITE_BUSY to
// callers.
package store
