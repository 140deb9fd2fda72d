// Package matcher resolves catalog items against the reference catalog
// and scores candidate matches.
//
// Resolution searches by title with year and language hints, widens the
// query when nothing comes back, then scores the top candidates on
// title similarity, year, runtime, cast, and director overlap. The
// winning raw score maps to a discrete confidence tier; anything below
// the review ceiling is flagged for human review.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"reelsync/internal/config"
	"reelsync/internal/logging"
	"reelsync/internal/store"
	"reelsync/internal/tmdb"
)

// languageHints maps feed language names to reference catalog search
// locales. Unknown languages search without a locale filter.
var languageHints = map[string]string{
	"hindi":     "hi-IN",
	"tamil":     "ta-IN",
	"telugu":    "te-IN",
	"malayalam": "ml-IN",
	"kannada":   "kn-IN",
	"bengali":   "bn-IN",
	"marathi":   "mr-IN",
	"punjabi":   "pa-IN",
	"english":   "en-US",
}

// Resolver matches catalog items to reference catalog entries.
type Resolver struct {
	store   *store.Store
	api     tmdb.API
	cfg     config.Reference
	ceiling int
	logger  *slog.Logger
}

// NewResolver builds a resolver. The logger may be nil.
func NewResolver(st *store.Store, api tmdb.API, cfg *config.Config, logger *slog.Logger) *Resolver {
	return &Resolver{
		store:   st,
		api:     api,
		cfg:     cfg.Reference,
		ceiling: cfg.Review.ConfidenceCeiling,
		logger:  logging.WithComponent(logger, "matcher"),
	}
}

// Resolve computes a fresh match record for one item. It does not
// persist anything; persistence and the manual-record guard belong to
// the batch layer.
func (r *Resolver) Resolve(ctx context.Context, item *store.Item) (*store.MatchRecord, error) {
	results, err := r.search(ctx, item)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return &store.MatchRecord{
			ContentID:   item.ContentID,
			Source:      store.SourceNoResults,
			NeedsReview: true,
			Rationale:   "{}",
		}, nil
	}

	if len(results) > r.cfg.TopCandidates {
		results = results[:r.cfg.TopCandidates]
	}

	var (
		winner    *Candidate
		best      Breakdown
		bestScore = 0
	)
	for _, result := range results {
		candidate := Candidate{Result: result}
		detail, err := r.api.MovieDetails(ctx, result.ID)
		if err != nil {
			r.logger.Warn("candidate detail fetch failed",
				logging.String(logging.FieldContentID, item.ContentID),
				logging.Int64("reference_id", result.ID),
				logging.Error(err))
		} else {
			candidate.Detail = detail
		}

		breakdown := Score(item, candidate)
		// Strict comparison keeps the first-seen candidate on ties,
		// preserving search rank order.
		if breakdown.Raw > bestScore {
			bestScore = breakdown.Raw
			best = breakdown
			c := candidate
			winner = &c
		}
	}

	if winner == nil {
		return &store.MatchRecord{
			ContentID:   item.ContentID,
			Source:      store.SourceNoMatch,
			ExternalID:  store.NoMatchSentinel,
			NeedsReview: true,
			Rationale:   "{}",
		}, nil
	}

	confidence := Confidence(bestScore)
	source := store.SourceAPILow
	if confidence >= r.ceiling {
		source = store.SourceAPIHigh
	}

	record := &store.MatchRecord{
		ContentID:   item.ContentID,
		ReferenceID: winner.Result.ID,
		Confidence:  confidence,
		Source:      source,
		NeedsReview: confidence < r.ceiling,
		Rationale:   best.JSON(),
	}
	if winner.Detail != nil {
		record.ExternalID = winner.Detail.ImdbID()
	}
	if record.ExternalID == "" {
		id, err := r.api.GetExternalID(ctx, winner.Result.ID)
		if err != nil {
			r.logger.Warn("external id fetch failed",
				logging.String(logging.FieldContentID, item.ContentID),
				logging.Int64("reference_id", winner.Result.ID),
				logging.Error(err))
		} else {
			record.ExternalID = id
		}
	}
	// A match that names no reference record cannot be trusted
	// unattended, whatever its score.
	if record.ExternalID == "" {
		record.NeedsReview = true
	}
	return record, nil
}

// search walks the widening query ladder: title with year and language,
// then year dropped, then title alone.
func (r *Resolver) search(ctx context.Context, item *store.Item) ([]tmdb.Result, error) {
	hint := languageHints[normalizeName(item.Language)]

	attempts := []tmdb.SearchOptions{
		{Year: item.Year, Language: hint},
		{Language: hint},
		{},
	}

	var lastErr error
	seen := make(map[string]struct{}, len(attempts))
	for _, opts := range attempts {
		key := fmt.Sprintf("%d|%s", opts.Year, opts.Language)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		resp, err := r.api.SearchMovie(ctx, item.Title, opts)
		if err != nil {
			lastErr = err
			continue
		}
		if len(resp.Results) > 0 {
			return resp.Results, nil
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("resolve %s: %w", item.ContentID, lastErr)
	}
	return nil, nil
}

// BatchOptions tunes a resolution pass.
type BatchOptions struct {
	Limit   int
	Offset  int
	DryRun  bool
	Rematch bool
}

// Summary aggregates the outcome of a resolution pass.
type Summary struct {
	Processed     int
	Saved         int
	High          int
	Low           int
	NoResults     int
	NoMatch       int
	SkippedManual int
	Failed        int
}

// ResolveBatch resolves unmatched items (and, with Rematch, previously
// auto-matched items) through a fixed-size worker pool. Each worker
// persists its record as soon as it is computed, so an interrupted pass
// keeps all completed work. Manual records are never overwritten.
func (r *Resolver) ResolveBatch(ctx context.Context, opts BatchOptions) (*Summary, error) {
	items, err := r.store.UnmatchedItems(ctx, opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	if opts.Rematch {
		matched, err := r.store.MatchedItems(ctx, opts.Limit, opts.Offset)
		if err != nil {
			return nil, err
		}
		items = append(items, matched...)
	}

	summary := &Summary{}
	if len(items) == 0 {
		return summary, nil
	}

	workers := r.cfg.Concurrency
	if workers <= 0 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		queue = make(chan *store.Item)
	)

	worker := func() {
		defer wg.Done()
		for item := range queue {
			record, err := r.Resolve(ctx, item)

			mu.Lock()
			summary.Processed++
			switch {
			case err != nil:
				summary.Failed++
				mu.Unlock()
				r.logger.Warn("resolution failed",
					logging.String(logging.FieldContentID, item.ContentID),
					logging.Error(err))
				continue
			default:
				summary.count(record)
				mu.Unlock()
			}

			if opts.DryRun {
				continue
			}
			saveErr := r.store.SaveMatch(ctx, record)
			mu.Lock()
			switch {
			case errors.Is(saveErr, store.ErrManualMatch):
				summary.SkippedManual++
			case saveErr != nil:
				summary.Failed++
			default:
				summary.Saved++
			}
			mu.Unlock()
			if saveErr != nil && !errors.Is(saveErr, store.ErrManualMatch) {
				r.logger.Warn("persist match failed",
					logging.String(logging.FieldContentID, item.ContentID),
					logging.Error(saveErr))
			}
		}
	}

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go worker()
	}

feed:
	for _, item := range items {
		select {
		case queue <- item:
		case <-ctx.Done():
			break feed
		}
	}
	close(queue)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

func (s *Summary) count(record *store.MatchRecord) {
	switch record.Source {
	case store.SourceAPIHigh:
		s.High++
	case store.SourceAPILow:
		s.Low++
	case store.SourceNoResults:
		s.NoResults++
	case store.SourceNoMatch:
		s.NoMatch++
	}
}
