// Package review implements the manual review workflow for low
// confidence match records. Reviewer decisions always win: every
// transition here writes a manual source, which the automated resolver
// refuses to overwrite.
package review

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"reelsync/internal/config"
	"reelsync/internal/logging"
	"reelsync/internal/store"
)

var externalIDPattern = regexp.MustCompile(`^tt\d{7,}$`)

// ValidExternalID reports whether id is a well-formed reference
// external id: "tt" followed by at least seven digits.
func ValidExternalID(id string) bool {
	return externalIDPattern.MatchString(id)
}

// Reviewer applies review decisions to match records.
type Reviewer struct {
	store  *store.Store
	cfg    config.Review
	logger *slog.Logger
}

// New builds a reviewer. The logger may be nil.
func New(st *store.Store, cfg *config.Config, logger *slog.Logger) *Reviewer {
	return &Reviewer{
		store:  st,
		cfg:    cfg.Review,
		logger: logging.WithComponent(logger, "review"),
	}
}

// Pending lists records flagged for review. A positive maxConfidence
// keeps only records strictly below it.
func (r *Reviewer) Pending(ctx context.Context, limit, maxConfidence int) ([]store.ReviewEntry, error) {
	entries, err := r.store.PendingReview(ctx, limit)
	if err != nil {
		return nil, err
	}
	if maxConfidence <= 0 {
		return entries, nil
	}
	filtered := entries[:0]
	for _, entry := range entries {
		if entry.Match.Confidence < maxConfidence {
			filtered = append(filtered, entry)
		}
	}
	return filtered, nil
}

// Accept confirms the suggested candidate. The record must already
// carry a well-formed external id.
func (r *Reviewer) Accept(ctx context.Context, rec *store.MatchRecord) error {
	if !ValidExternalID(rec.ExternalID) {
		return fmt.Errorf("accept %s: suggestion %q is not a usable external id", rec.ContentID, rec.ExternalID)
	}
	return r.apply(ctx, rec, rec.ExternalID, rec.ReferenceID, store.SourceManualAccepted)
}

// Reject marks the item as having no reference entry.
func (r *Reviewer) Reject(ctx context.Context, rec *store.MatchRecord) error {
	return r.apply(ctx, rec, store.NoMatchSentinel, 0, store.SourceManualRejected)
}

// ManualEntry replaces the suggestion with an id supplied by the
// reviewer during an interactive session.
func (r *Reviewer) ManualEntry(ctx context.Context, rec *store.MatchRecord, externalID string) error {
	if !ValidExternalID(externalID) {
		return fmt.Errorf("manual entry %s: %q is not a usable external id", rec.ContentID, externalID)
	}
	return r.apply(ctx, rec, externalID, rec.ReferenceID, store.SourceManualEntry)
}

// Confirm records an id confirmed through a CSV import.
func (r *Reviewer) Confirm(ctx context.Context, rec *store.MatchRecord, externalID string) error {
	if !ValidExternalID(externalID) {
		return fmt.Errorf("confirm %s: %q is not a usable external id", rec.ContentID, externalID)
	}
	return r.apply(ctx, rec, externalID, rec.ReferenceID, store.SourceManualConfirmed)
}

// Stats aggregates match record counts for the stats view.
func (r *Reviewer) Stats(ctx context.Context) (*store.MatchStats, error) {
	return r.store.MatchSummary(ctx)
}

func (r *Reviewer) apply(ctx context.Context, rec *store.MatchRecord, externalID string, referenceID int64, source store.MatchSource) error {
	updated := *rec
	updated.ExternalID = externalID
	updated.ReferenceID = referenceID
	updated.Source = source
	updated.NeedsReview = false
	if source == store.SourceManualRejected {
		updated.Confidence = 0
	} else {
		updated.Confidence = 100
	}

	if err := r.store.SaveMatch(ctx, &updated); err != nil {
		return err
	}
	*rec = updated

	r.logger.Info("match reviewed",
		logging.String(logging.FieldContentID, rec.ContentID),
		logging.String("source", string(source)),
		logging.String("external_id", externalID))
	return nil
}
