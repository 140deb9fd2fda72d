package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const itemColumns = `content_id, kind, title, description, year, duration_secs,
	language, languages, genres, cast_names, directors, producers, keywords,
	images, locators, trailers, start_date, update_date, raw_payload,
	is_deleted, created_at, last_synced_at`

// UpsertItem inserts the item if its content id is unseen, otherwise
// updates every mutable descriptive field and stamps last_synced_at.
// Creation metadata is never touched on update. An upserted item is
// always active again, so re-syncing a soft-deleted id revives it.
// Returns true when a new row was created.
func (s *Store) UpsertItem(ctx context.Context, item *Item) (bool, error) {
	if item == nil || item.ContentID == "" {
		return false, errors.New("upsert item: content id required")
	}

	now := timestamp(time.Now())
	kind := item.Kind
	if kind == "" {
		kind = KindMovie
	}

	_, err := s.execWithRetry(ctx, `
		INSERT INTO catalog_items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT (content_id) DO UPDATE SET
			kind = excluded.kind,
			title = excluded.title,
			description = excluded.description,
			year = excluded.year,
			duration_secs = excluded.duration_secs,
			language = excluded.language,
			languages = excluded.languages,
			genres = excluded.genres,
			cast_names = excluded.cast_names,
			directors = excluded.directors,
			producers = excluded.producers,
			keywords = excluded.keywords,
			images = excluded.images,
			locators = excluded.locators,
			trailers = excluded.trailers,
			start_date = excluded.start_date,
			update_date = excluded.update_date,
			raw_payload = excluded.raw_payload,
			is_deleted = 0,
			last_synced_at = excluded.last_synced_at`,
		item.ContentID,
		string(kind),
		item.Title,
		item.Description,
		nullableInt(item.Year),
		nullableInt(item.DurationSecs),
		item.Language,
		marshalStrings(item.Languages),
		marshalStrings(item.Genres),
		marshalStrings(item.CastNames),
		marshalStrings(item.Directors),
		marshalStrings(item.Producers),
		marshalStrings(item.Keywords),
		marshalStrings(item.Images),
		marshalStrings(item.Locators),
		marshalStrings(item.Trailers),
		nullableTimestamp(item.StartDate),
		nullableTimestamp(item.UpdateDate),
		item.RawPayload,
		now,
		now,
	)
	if err != nil {
		return false, fmt.Errorf("upsert item %s: %w", item.ContentID, err)
	}

	// SQLite reports one affected row for both branches; distinguish by
	// whether created_at still equals last_synced_at after this write.
	var created, synced string
	err = s.db.QueryRowContext(ensureContext(ctx),
		"SELECT created_at, last_synced_at FROM catalog_items WHERE content_id = ?",
		item.ContentID,
	).Scan(&created, &synced)
	if err != nil {
		return false, fmt.Errorf("upsert item %s: %w", item.ContentID, err)
	}
	return created == synced, nil
}

// GetItem fetches a single item by content id.
func (s *Store) GetItem(ctx context.Context, contentID string) (*Item, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		"SELECT "+itemColumns+" FROM catalog_items WHERE content_id = ?", contentID)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return item, err
}

// ActiveContentIDs returns every content id not flagged as deleted.
func (s *Store) ActiveContentIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT content_id FROM catalog_items WHERE is_deleted = 0 ORDER BY content_id")
	if err != nil {
		return nil, fmt.Errorf("query active ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkDeleted flags the given content ids as logically deleted. Rows are
// retained; nothing is purged. Returns the number of rows flagged.
func (s *Store) MarkDeleted(ctx context.Context, contentIDs []string) (int, error) {
	if len(contentIDs) == 0 {
		return 0, nil
	}

	now := timestamp(time.Now())
	total := 0
	for _, id := range contentIDs {
		res, err := s.execWithRetry(ctx,
			"UPDATE catalog_items SET is_deleted = 1, last_synced_at = ? WHERE content_id = ? AND is_deleted = 0",
			now, id)
		if err != nil {
			return total, fmt.Errorf("mark deleted %s: %w", id, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return total, err
		}
		total += int(affected)
	}
	return total, nil
}

// UnmatchedItems returns active items that have no match record yet,
// ordered by content id for stable batching.
func (s *Store) UnmatchedItems(ctx context.Context, limit, offset int) ([]*Item, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), `
		SELECT `+itemColumns+` FROM catalog_items
		WHERE is_deleted = 0
		  AND content_id NOT IN (SELECT content_id FROM match_records)
		ORDER BY content_id
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query unmatched items: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

// MatchedItems returns active items whose match record came from
// automated resolution, for re-resolution passes. Manual records are
// excluded.
func (s *Store) MatchedItems(ctx context.Context, limit, offset int) ([]*Item, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), `
		SELECT `+itemColumns+` FROM catalog_items
		WHERE is_deleted = 0
		  AND content_id IN (
			SELECT content_id FROM match_records WHERE source NOT LIKE 'manual-%'
		  )
		ORDER BY content_id
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query matched items: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

// ItemCounts summarizes the catalog table.
type ItemCounts struct {
	Total   int
	Active  int
	Deleted int
	Matched int
}

// CountItems reports aggregate catalog counts for the status command.
func (s *Store) CountItems(ctx context.Context) (ItemCounts, error) {
	var counts ItemCounts
	err := s.db.QueryRowContext(ensureContext(ctx), `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN is_deleted = 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN is_deleted = 1 THEN 1 ELSE 0 END), 0)
		FROM catalog_items`).Scan(&counts.Total, &counts.Active, &counts.Deleted)
	if err != nil {
		return counts, fmt.Errorf("count items: %w", err)
	}
	err = s.db.QueryRowContext(ensureContext(ctx),
		"SELECT COUNT(*) FROM match_records").Scan(&counts.Matched)
	if err != nil {
		return counts, fmt.Errorf("count matches: %w", err)
	}
	return counts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var (
		item         Item
		kind         string
		year         sql.NullInt64
		duration     sql.NullInt64
		languages    string
		genres       string
		castNames    string
		directors    string
		producers    string
		keywords     string
		images       string
		locators     string
		trailers     string
		startDate    sql.NullString
		updateDate   sql.NullString
		createdAt    string
		lastSyncedAt string
	)

	err := row.Scan(
		&item.ContentID, &kind, &item.Title, &item.Description, &year, &duration,
		&item.Language, &languages, &genres, &castNames, &directors, &producers,
		&keywords, &images, &locators, &trailers, &startDate, &updateDate,
		&item.RawPayload, &item.IsDeleted, &createdAt, &lastSyncedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Kind = Kind(kind)
	item.Year = int(year.Int64)
	item.DurationSecs = int(duration.Int64)

	for _, field := range []struct {
		dst *[]string
		src string
	}{
		{&item.Languages, languages},
		{&item.Genres, genres},
		{&item.CastNames, castNames},
		{&item.Directors, directors},
		{&item.Producers, producers},
		{&item.Keywords, keywords},
		{&item.Images, images},
		{&item.Locators, locators},
		{&item.Trailers, trailers},
	} {
		values, err := unmarshalStrings(field.src)
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", item.ContentID, err)
		}
		*field.dst = values
	}

	if item.StartDate, err = parseNullableTimestamp(startDate); err != nil {
		return nil, err
	}
	if item.UpdateDate, err = parseNullableTimestamp(updateDate); err != nil {
		return nil, err
	}
	if item.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, err
	}
	if item.LastSyncedAt, err = parseTimestamp(lastSyncedAt); err != nil {
		return nil, err
	}

	return &item, nil
}

func collectItems(rows *sql.Rows) ([]*Item, error) {
	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func marshalStrings(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func unmarshalStrings(data string) ([]string, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil, fmt.Errorf("decode string list: %w", err)
	}
	return values, nil
}

func nullableInt(value int) any {
	if value == 0 {
		return nil
	}
	return value
}
