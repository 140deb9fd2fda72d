package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const runColumns = `id, run_id, sync_type, status, started_at, completed_at,
	from_watermark, to_watermark, items_fetched, items_added, items_updated,
	items_deleted, api_requests, errors`

// StartRun opens a new sync_log row in the running state.
func (s *Store) StartRun(ctx context.Context, syncType SyncType) (*SyncRun, error) {
	runID := uuid.NewString()
	started := time.Now().UTC()

	res, err := s.execWithRetry(ctx, `
		INSERT INTO sync_log (run_id, sync_type, status, started_at)
		VALUES (?, ?, ?, ?)`,
		runID, string(syncType), string(RunRunning), timestamp(started))
	if err != nil {
		return nil, fmt.Errorf("start %s run: %w", syncType, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("start %s run: %w", syncType, err)
	}

	return &SyncRun{
		ID:        id,
		RunID:     runID,
		SyncType:  syncType,
		Status:    RunRunning,
		StartedAt: started,
	}, nil
}

// PatchRun applies a partial update to an open run. Counter fields are
// added to the stored values and errors are appended, so batch-level
// progress can be committed incrementally. Patching a closed run fails
// with ErrRunClosed.
func (s *Store) PatchRun(ctx context.Context, id int64, patch RunPatch) error {
	current, err := s.GetRun(ctx, id)
	if err != nil {
		return err
	}
	if current.Status != RunRunning {
		return fmt.Errorf("%w: run %d is %s", ErrRunClosed, id, current.Status)
	}

	status := current.Status
	if patch.Status != nil {
		status = *patch.Status
	}
	completedAt := current.CompletedAt
	if patch.CompletedAt != nil {
		completedAt = patch.CompletedAt
	}
	fromWatermark := current.FromWatermark
	if patch.FromWatermark != nil {
		fromWatermark = patch.FromWatermark
	}
	toWatermark := current.ToWatermark
	if patch.ToWatermark != nil {
		toWatermark = patch.ToWatermark
	}

	errorsList := current.Errors
	if len(patch.Errors) > 0 {
		errorsList = append(append([]string{}, errorsList...), patch.Errors...)
	}
	errorsJSON, err := json.Marshal(errorsList)
	if err != nil {
		return fmt.Errorf("encode run errors: %w", err)
	}

	_, err = s.execWithRetry(ctx, `
		UPDATE sync_log SET
			status = ?,
			completed_at = ?,
			from_watermark = ?,
			to_watermark = ?,
			items_fetched = items_fetched + ?,
			items_added = items_added + ?,
			items_updated = items_updated + ?,
			items_deleted = items_deleted + ?,
			api_requests = api_requests + ?,
			errors = ?
		WHERE id = ?`,
		string(status),
		nullableTimestamp(completedAt),
		nullableTimestamp(fromWatermark),
		nullableTimestamp(toWatermark),
		patch.ItemsFetched,
		patch.ItemsAdded,
		patch.ItemsUpdated,
		patch.ItemsDeleted,
		patch.APIRequests,
		string(errorsJSON),
		id,
	)
	if err != nil {
		return fmt.Errorf("patch run %d: %w", id, err)
	}
	return nil
}

// CompleteRun closes a run as completed, stamping completion time.
func (s *Store) CompleteRun(ctx context.Context, id int64, patch RunPatch) error {
	status := RunCompleted
	now := time.Now().UTC()
	patch.Status = &status
	patch.CompletedAt = &now
	return s.PatchRun(ctx, id, patch)
}

// FailRun closes a run as failed, recording the terminal error.
func (s *Store) FailRun(ctx context.Context, id int64, runErr error, patch RunPatch) error {
	status := RunFailed
	now := time.Now().UTC()
	patch.Status = &status
	patch.CompletedAt = &now
	if runErr != nil {
		patch.Errors = append(patch.Errors, runErr.Error())
	}
	return s.PatchRun(ctx, id, patch)
}

// GetRun fetches a single sync run by row id.
func (s *Store) GetRun(ctx context.Context, id int64) (*SyncRun, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		"SELECT "+runColumns+" FROM sync_log WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

// Watermark returns the latest to_watermark across successfully
// completed runs. The boolean is false when no completed run carries a
// watermark, in which case callers fall back to a fixed lookback.
func (s *Store) Watermark(ctx context.Context) (time.Time, bool, error) {
	var value sql.NullString
	err := s.db.QueryRowContext(ensureContext(ctx), `
		SELECT MAX(to_watermark) FROM sync_log
		WHERE status = ? AND to_watermark IS NOT NULL`,
		string(RunCompleted)).Scan(&value)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query watermark: %w", err)
	}
	if !value.Valid || value.String == "" {
		return time.Time{}, false, nil
	}
	parsed, err := parseTimestamp(value.String)
	if err != nil {
		return time.Time{}, false, err
	}
	return parsed, true, nil
}

// LastCompletedRun returns the most recent completed run of the given
// type, or ErrNotFound.
func (s *Store) LastCompletedRun(ctx context.Context, syncType SyncType) (*SyncRun, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `
		SELECT `+runColumns+` FROM sync_log
		WHERE sync_type = ? AND status = ?
		ORDER BY started_at DESC LIMIT 1`,
		string(syncType), string(RunCompleted))
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

// RecentRuns lists the newest runs first, for the status command.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]*SyncRun, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT "+runColumns+" FROM sync_log ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query recent runs: %w", err)
	}
	defer rows.Close()

	var runs []*SyncRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// StuckRuns lists rows still in the running state, which after a crash
// indicate a run that never closed.
func (s *Store) StuckRuns(ctx context.Context) ([]*SyncRun, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT "+runColumns+" FROM sync_log WHERE status = ? ORDER BY id", string(RunRunning))
	if err != nil {
		return nil, fmt.Errorf("query stuck runs: %w", err)
	}
	defer rows.Close()

	var runs []*SyncRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanRun(row rowScanner) (*SyncRun, error) {
	var (
		run           SyncRun
		syncType      string
		status        string
		startedAt     string
		completedAt   sql.NullString
		fromWatermark sql.NullString
		toWatermark   sql.NullString
		errorsJSON    string
	)

	err := row.Scan(
		&run.ID, &run.RunID, &syncType, &status, &startedAt, &completedAt,
		&fromWatermark, &toWatermark, &run.ItemsFetched, &run.ItemsAdded,
		&run.ItemsUpdated, &run.ItemsDeleted, &run.APIRequests, &errorsJSON,
	)
	if err != nil {
		return nil, err
	}

	run.SyncType = SyncType(syncType)
	run.Status = RunStatus(status)

	if run.StartedAt, err = parseTimestamp(startedAt); err != nil {
		return nil, err
	}
	if run.CompletedAt, err = parseNullableTimestamp(completedAt); err != nil {
		return nil, err
	}
	if run.FromWatermark, err = parseNullableTimestamp(fromWatermark); err != nil {
		return nil, err
	}
	if run.ToWatermark, err = parseNullableTimestamp(toWatermark); err != nil {
		return nil, err
	}
	if errorsJSON != "" && errorsJSON != "[]" {
		if err := json.Unmarshal([]byte(errorsJSON), &run.Errors); err != nil {
			return nil, fmt.Errorf("decode run errors: %w", err)
		}
	}

	return &run, nil
}
