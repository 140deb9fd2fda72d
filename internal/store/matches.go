package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const matchColumns = `content_id, external_id, reference_id, confidence,
	source, needs_review, rationale, created_at, updated_at`

// SaveMatch writes a match record for an item, one active record per
// content id. Automated sources never overwrite a manual record; such a
// write fails with ErrManualMatch. Manual sources always win.
func (s *Store) SaveMatch(ctx context.Context, rec *MatchRecord) error {
	if rec == nil || rec.ContentID == "" {
		return errors.New("save match: content id required")
	}
	if rec.Source == "" {
		return errors.New("save match: source required")
	}

	existing, err := s.GetMatch(ctx, rec.ContentID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if existing != nil && existing.Source.Manual() && !rec.Source.Manual() {
		return fmt.Errorf("%w: %s is %s", ErrManualMatch, rec.ContentID, existing.Source)
	}

	now := timestamp(time.Now())
	rationale := rec.Rationale
	if rationale == "" {
		rationale = "{}"
	}

	_, err = s.execWithRetry(ctx, `
		INSERT INTO match_records (`+matchColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (content_id) DO UPDATE SET
			external_id = excluded.external_id,
			reference_id = excluded.reference_id,
			confidence = excluded.confidence,
			source = excluded.source,
			needs_review = excluded.needs_review,
			rationale = excluded.rationale,
			updated_at = excluded.updated_at`,
		rec.ContentID,
		nullableString(rec.ExternalID),
		nullableInt64(rec.ReferenceID),
		rec.Confidence,
		string(rec.Source),
		rec.NeedsReview,
		rationale,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("save match %s: %w", rec.ContentID, err)
	}
	return nil
}

// GetMatch fetches the match record for a content id.
func (s *Store) GetMatch(ctx context.Context, contentID string) (*MatchRecord, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		"SELECT "+matchColumns+" FROM match_records WHERE content_id = ?", contentID)
	rec, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// ReviewEntry pairs a pending match record with the catalog item it
// belongs to, for the review workflow.
type ReviewEntry struct {
	Item  *Item
	Match *MatchRecord
}

// PendingReview lists records flagged for review joined with their
// items, ordered by content id.
func (s *Store) PendingReview(ctx context.Context, limit int) ([]ReviewEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), `
		SELECT content_id FROM match_records
		WHERE needs_review = 1
		ORDER BY content_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending review: %w", err)
	}
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	entries := make([]ReviewEntry, 0, len(ids))
	for _, id := range ids {
		item, err := s.GetItem(ctx, id)
		if err != nil {
			return nil, err
		}
		match, err := s.GetMatch(ctx, id)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ReviewEntry{Item: item, Match: match})
	}
	return entries, nil
}

// MatchStats aggregates match record counts for the stats command.
type MatchStats struct {
	Total         int
	NeedsReview   int
	BySource      map[MatchSource]int
	ByConfidence  map[int]int
	AvgConfidence float64
}

// MatchSummary computes aggregate counts over all match records.
func (s *Store) MatchSummary(ctx context.Context) (*MatchStats, error) {
	stats := &MatchStats{
		BySource:     make(map[MatchSource]int),
		ByConfidence: make(map[int]int),
	}

	err := s.db.QueryRowContext(ensureContext(ctx), `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN needs_review = 1 THEN 1 ELSE 0 END), 0),
		       COALESCE(AVG(confidence), 0)
		FROM match_records`).Scan(&stats.Total, &stats.NeedsReview, &stats.AvgConfidence)
	if err != nil {
		return nil, fmt.Errorf("match summary: %w", err)
	}

	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT source, COUNT(*) FROM match_records GROUP BY source")
	if err != nil {
		return nil, fmt.Errorf("match summary by source: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return nil, err
		}
		stats.BySource[MatchSource(source)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	confRows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT confidence, COUNT(*) FROM match_records GROUP BY confidence")
	if err != nil {
		return nil, fmt.Errorf("match summary by confidence: %w", err)
	}
	defer confRows.Close()
	for confRows.Next() {
		var confidence, count int
		if err := confRows.Scan(&confidence, &count); err != nil {
			return nil, err
		}
		stats.ByConfidence[confidence] = count
	}
	return stats, confRows.Err()
}

func scanMatch(row rowScanner) (*MatchRecord, error) {
	var (
		rec         MatchRecord
		externalID  sql.NullString
		referenceID sql.NullInt64
		source      string
		createdAt   string
		updatedAt   string
	)

	err := row.Scan(
		&rec.ContentID, &externalID, &referenceID, &rec.Confidence,
		&source, &rec.NeedsReview, &rec.Rationale, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.ExternalID = externalID.String
	rec.ReferenceID = referenceID.Int64
	rec.Source = MatchSource(source)

	if rec.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, err
	}

	return &rec, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt64(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}
