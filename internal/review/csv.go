package review

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var csvHeader = []string{
	"content_id", "title", "year", "duration_min", "language",
	"suggested_external_id", "confidence", "reference_title",
	"confirmed_external_id", "action",
}

// Export writes the pending review queue as CSV and returns the number
// of rows written. The confirmed_external_id and action columns are
// left empty for the reviewer to fill in.
func (r *Reviewer) Export(ctx context.Context, w io.Writer, limit, maxConfidence int) (int, error) {
	entries, err := r.Pending(ctx, limit, maxConfidence)
	if err != nil {
		return 0, err
	}

	out := csv.NewWriter(w)
	if err := out.Write(csvHeader); err != nil {
		return 0, fmt.Errorf("write csv header: %w", err)
	}
	for _, entry := range entries {
		row := []string{
			entry.Item.ContentID,
			entry.Item.Title,
			strconv.Itoa(entry.Item.Year),
			strconv.Itoa(entry.Item.DurationSecs / 60),
			entry.Item.Language,
			entry.Match.ExternalID,
			strconv.Itoa(entry.Match.Confidence),
			referenceTitle(entry.Match.Rationale),
			"",
			"",
		}
		if err := out.Write(row); err != nil {
			return 0, fmt.Errorf("write csv row %s: %w", entry.Item.ContentID, err)
		}
	}
	out.Flush()
	return len(entries), out.Error()
}

// ImportSummary reports the outcome of a CSV import.
type ImportSummary struct {
	Rows     int
	Updated  int
	Rejected int
	Skipped  int
	Errors   []string
}

// Import applies reviewer decisions from a CSV produced by Export.
// Rows with an empty or "skip" action are left untouched. Row-level
// failures are collected in the summary and do not abort the import.
func (r *Reviewer) Import(ctx context.Context, reader io.Reader) (*ImportSummary, error) {
	in := csv.NewReader(reader)
	in.FieldsPerRecord = len(csvHeader)

	header, err := in.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i, col := range csvHeader {
		if i >= len(header) || strings.TrimSpace(header[i]) != col {
			return nil, fmt.Errorf("unexpected csv header, want columns %s", strings.Join(csvHeader, ","))
		}
	}

	summary := &ImportSummary{}
	for line := 2; ; line++ {
		row, err := in.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		summary.Rows++
		if err := r.importRow(ctx, row, summary); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("line %d: %v", line, err))
		}
	}
	return summary, nil
}

func (r *Reviewer) importRow(ctx context.Context, row []string, summary *ImportSummary) error {
	contentID := strings.TrimSpace(row[0])
	confirmed := strings.TrimSpace(row[8])
	action := strings.ToLower(strings.TrimSpace(row[9]))

	if action == "" || action == "skip" {
		summary.Skipped++
		return nil
	}
	if contentID == "" {
		return errors.New("missing content id")
	}

	rec, err := r.store.GetMatch(ctx, contentID)
	if err != nil {
		return fmt.Errorf("%s: %w", contentID, err)
	}

	switch action {
	case "accept":
		if err := r.Accept(ctx, rec); err != nil {
			return err
		}
		summary.Updated++
	case "confirm":
		if confirmed == "" {
			return fmt.Errorf("%s: confirm requires confirmed_external_id", contentID)
		}
		if err := r.Confirm(ctx, rec, confirmed); err != nil {
			return err
		}
		summary.Updated++
	case "reject":
		if err := r.Reject(ctx, rec); err != nil {
			return err
		}
		summary.Rejected++
	default:
		return fmt.Errorf("%s: unknown action %q", contentID, action)
	}
	return nil
}

// referenceTitle pulls the winning candidate's title out of the stored
// signal breakdown.
func referenceTitle(rationale string) string {
	if rationale == "" {
		return ""
	}
	var detail struct {
		ReferenceTitle string `json:"reference_title"`
	}
	if err := json.Unmarshal([]byte(rationale), &detail); err != nil {
		return ""
	}
	return detail.ReferenceTitle
}
