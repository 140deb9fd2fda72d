// Package syncer implements the catalog synchronization engine.
//
// Bootstrap walks the unfiltered feed up to the pagination ceiling,
// then repeats offset pagination inside a ladder of year bands to reach
// items the ceiling hides. Incremental fetches everything updated since
// the last successful watermark. The weekly reconcile pass re-fetches
// active ids within the ceiling and soft-deletes stored ids the feed no
// longer returns.
//
// Progress commits per batch: a crash mid-run leaves idempotent,
// partially applied state and a log entry stuck in running.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"reelsync/internal/catalog"
	"reelsync/internal/config"
	"reelsync/internal/logging"
	"reelsync/internal/store"
)

// PageFetcher is the slice of the catalog client the engine depends on.
type PageFetcher interface {
	FetchPage(ctx context.Context, query catalog.PageQuery) (*catalog.Page, error)
}

// Engine orchestrates sync runs against the entity store.
type Engine struct {
	store  *store.Store
	client PageFetcher
	cfg    config.Sync
	logger *slog.Logger
	now    func() time.Time
}

// New builds a sync engine. The logger may be nil.
func New(st *store.Store, client PageFetcher, cfg *config.Config, logger *slog.Logger) *Engine {
	return &Engine{
		store:  st,
		client: client,
		cfg:    cfg.Sync,
		logger: logging.WithComponent(logger, "syncer"),
		now:    time.Now,
	}
}

// WithClock overrides the engine's time source. Intended for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Bootstrap performs a full two-phase sync. Phase 1 pages the
// unfiltered feed up to the ceiling; phase 2 repeats pagination inside
// each year band of the partition ladder.
func (e *Engine) Bootstrap(ctx context.Context) (*store.SyncRun, error) {
	run, err := e.store.StartRun(ctx, store.SyncBootstrap)
	if err != nil {
		return nil, err
	}
	started := e.now().UTC()
	e.logger.Info("bootstrap started", logging.String(logging.FieldRunID, run.RunID))

	if err := e.paginate(ctx, run.ID, nil, ""); err != nil {
		return e.fail(ctx, run, err)
	}

	for _, b := range yearBands(started, e.cfg) {
		e.logger.Info("bootstrap partition", logging.String("band", b.String()))
		if err := e.paginate(ctx, run.ID, b.window(), catalog.WindowStartDate); err != nil {
			return e.fail(ctx, run, err)
		}
	}

	if err := e.store.CompleteRun(ctx, run.ID, store.RunPatch{ToWatermark: &started}); err != nil {
		return nil, err
	}
	return e.finish(ctx, run)
}

// Incremental fetches items updated since the last successful
// watermark, falling back to the configured lookback when no completed
// run exists.
func (e *Engine) Incremental(ctx context.Context) (*store.SyncRun, error) {
	run, err := e.store.StartRun(ctx, store.SyncIncremental)
	if err != nil {
		return nil, err
	}

	nowTime := e.now().UTC()
	from, ok, err := e.store.Watermark(ctx)
	if err != nil {
		return e.fail(ctx, run, err)
	}
	if !ok {
		from = nowTime.Add(-time.Duration(e.cfg.LookbackHours) * time.Hour)
	}

	e.logger.Info("incremental started",
		logging.String(logging.FieldRunID, run.RunID),
		logging.String("from", from.Format(time.RFC3339)))

	if err := e.store.PatchRun(ctx, run.ID, store.RunPatch{FromWatermark: &from}); err != nil {
		return nil, err
	}

	window := &catalog.Window{From: from, To: nowTime}
	if err := e.paginate(ctx, run.ID, window, catalog.WindowUpdateDate); err != nil {
		return e.fail(ctx, run, err)
	}

	if err := e.store.CompleteRun(ctx, run.ID, store.RunPatch{ToWatermark: &nowTime}); err != nil {
		return nil, err
	}
	return e.finish(ctx, run)
}

// Reconcile re-fetches all currently observable active ids and flags
// stored active ids missing from the feed as deleted. Detection is
// bounded by the pagination ceiling; ids beyond it stay untouched.
func (e *Engine) Reconcile(ctx context.Context) (*store.SyncRun, error) {
	run, err := e.store.StartRun(ctx, store.SyncReconcile)
	if err != nil {
		return nil, err
	}
	e.logger.Info("reconcile started", logging.String(logging.FieldRunID, run.RunID))

	fetched := make(map[string]struct{})
	offset := 0
	requests := 0
	for offset+e.cfg.PageSize <= e.cfg.MaxOffset {
		page, err := e.fetchWithCooldown(ctx, catalog.PageQuery{Offset: offset, Size: e.cfg.PageSize})
		requests++
		if err != nil {
			return e.fail(ctx, run, err)
		}
		for _, item := range page.Items {
			fetched[item.ContentID] = struct{}{}
		}
		if page.Exhausted(e.cfg.PageSize) {
			break
		}
		offset += e.cfg.PageSize
		if err := e.pause(ctx, time.Duration(e.cfg.RequestDelaySeconds)*time.Second); err != nil {
			return e.fail(ctx, run, err)
		}
	}

	stored, err := e.store.ActiveContentIDs(ctx)
	if err != nil {
		return e.fail(ctx, run, err)
	}

	var missing []string
	for _, id := range stored {
		if _, ok := fetched[id]; !ok {
			missing = append(missing, id)
		}
	}

	deleted, err := e.store.MarkDeleted(ctx, missing)
	if err != nil {
		return e.fail(ctx, run, err)
	}

	e.logger.Info("reconcile finished",
		logging.Int("stored_active", len(stored)),
		logging.Int("feed_active", len(fetched)),
		logging.Int("deleted", deleted))

	patch := store.RunPatch{
		ItemsFetched: len(fetched),
		ItemsDeleted: deleted,
		APIRequests:  requests,
	}
	if err := e.store.CompleteRun(ctx, run.ID, patch); err != nil {
		return nil, err
	}
	return e.finish(ctx, run)
}

// ReconcileDue reports whether the weekly reconcile pass should run:
// the configured weekday matches and no reconcile completed today.
func (e *Engine) ReconcileDue(ctx context.Context) (bool, error) {
	weekday, err := config.ParseWeekday(e.cfg.ReconcileWeekday)
	if err != nil {
		return false, err
	}
	today := e.now().UTC()
	if today.Weekday() != weekday {
		return false, nil
	}

	last, err := e.store.LastCompletedRun(ctx, store.SyncReconcile)
	if errors.Is(err, store.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	y1, m1, d1 := last.StartedAt.UTC().Date()
	y2, m2, d2 := today.Date()
	return !(y1 == y2 && m1 == m2 && d1 == d2), nil
}

// paginate walks one partition with offset pagination, upserting every
// item and committing counters per batch. A transient batch failure is
// recorded, waits out the cooldown, and resumes at the next offset
// rather than retrying the same request. Auth rejections abort the run.
func (e *Engine) paginate(ctx context.Context, runID int64, window *catalog.Window, field catalog.WindowField) error {
	offset := 0
	for offset+e.cfg.PageSize <= e.cfg.MaxOffset {
		page, err := e.client.FetchPage(ctx, catalog.PageQuery{
			Offset: offset,
			Size:   e.cfg.PageSize,
			Window: window,
			Field:  field,
		})
		if err != nil {
			if !catalog.IsTransient(err) {
				return err
			}
			e.logger.Warn("batch failed, cooling down",
				logging.Int("offset", offset),
				logging.Error(err))
			patch := store.RunPatch{
				APIRequests: 1,
				Errors:      []string{fmt.Sprintf("offset %d: %v", offset, err)},
			}
			if err := e.store.PatchRun(ctx, runID, patch); err != nil {
				return err
			}
			if err := e.pause(ctx, time.Duration(e.cfg.CooldownSeconds)*time.Second); err != nil {
				return err
			}
			offset += e.cfg.PageSize
			continue
		}

		added, updated, itemErrs := e.applyPage(ctx, page)
		patch := store.RunPatch{
			ItemsFetched: len(page.Items),
			ItemsAdded:   added,
			ItemsUpdated: updated,
			APIRequests:  1,
			Errors:       itemErrs,
		}
		if err := e.store.PatchRun(ctx, runID, patch); err != nil {
			return err
		}

		if page.Exhausted(e.cfg.PageSize) {
			return nil
		}
		offset += e.cfg.PageSize
		if err := e.pause(ctx, time.Duration(e.cfg.RequestDelaySeconds)*time.Second); err != nil {
			return err
		}
	}
	return nil
}

// applyPage upserts every item of a page. Per-item failures are
// recorded and do not abort the batch.
func (e *Engine) applyPage(ctx context.Context, page *catalog.Page) (added, updated int, itemErrs []string) {
	for i := range page.Items {
		item := convertItem(&page.Items[i])
		created, err := e.store.UpsertItem(ctx, item)
		if err != nil {
			itemErrs = append(itemErrs, fmt.Sprintf("item %s: %v", item.ContentID, err))
			continue
		}
		if created {
			added++
		} else {
			updated++
		}
	}
	return added, updated, itemErrs
}

func (e *Engine) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) fail(ctx context.Context, run *store.SyncRun, cause error) (*store.SyncRun, error) {
	e.logger.Error("run failed",
		logging.String(logging.FieldRunID, run.RunID),
		logging.String(logging.FieldSyncType, string(run.SyncType)),
		logging.Error(cause))
	if err := e.store.FailRun(ctx, run.ID, cause, store.RunPatch{}); err != nil {
		return nil, errors.Join(cause, err)
	}
	closed, err := e.store.GetRun(ctx, run.ID)
	if err != nil {
		return nil, errors.Join(cause, err)
	}
	return closed, cause
}

func (e *Engine) finish(ctx context.Context, run *store.SyncRun) (*store.SyncRun, error) {
	closed, err := e.store.GetRun(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	e.logger.Info("run completed",
		logging.String(logging.FieldRunID, closed.RunID),
		logging.String(logging.FieldSyncType, string(closed.SyncType)),
		logging.Int("fetched", closed.ItemsFetched),
		logging.Int("added", closed.ItemsAdded),
		logging.Int("updated", closed.ItemsUpdated),
		logging.Int("deleted", closed.ItemsDeleted),
		logging.Int("errors", len(closed.Errors)))
	return closed, nil
}

// convertItem maps a feed item onto the persisted shape.
func convertItem(src *catalog.Item) *store.Item {
	item := &store.Item{
		ContentID:    src.ContentID,
		Kind:         store.ParseKind(src.ContentType),
		Title:        src.Title,
		Description:  src.Description,
		Year:         src.Year,
		DurationSecs: src.Duration,
		Languages:    src.Languages,
		Genres:       src.Genres,
		CastNames:    src.Actors,
		Directors:    src.Directors,
		Producers:    src.Producers,
		Keywords:     src.Keywords,
		Images:       src.Images,
		Locators:     src.Locators,
		Trailers:     src.Trailers,
		RawPayload:   string(src.Raw),
	}
	if len(src.Languages) > 0 {
		item.Language = src.Languages[0]
	}
	if src.StartDate > 0 {
		start := time.UnixMilli(src.StartDate).UTC()
		item.StartDate = &start
	}
	if src.UpdateDate > 0 {
		update := time.UnixMilli(src.UpdateDate).UTC()
		item.UpdateDate = &update
	}
	return item
}
