package review

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"reelsync/internal/store"
	"reelsync/internal/testsupport"
)

func seedPending(t *testing.T, st *store.Store, contentID, title, suggestion string, confidence int) *store.MatchRecord {
	t.Helper()

	testsupport.SeedItem(t, st, contentID, title, 2009)
	rec := &store.MatchRecord{
		ContentID:   contentID,
		ExternalID:  suggestion,
		ReferenceID: 20453,
		Confidence:  confidence,
		Source:      store.SourceAPILow,
		NeedsReview: true,
		Rationale:   `{"raw":` + "80" + `,"reference_title":"` + title + `"}`,
	}
	if err := st.SaveMatch(context.Background(), rec); err != nil {
		t.Fatalf("SaveMatch failed: %v", err)
	}
	return rec
}

func TestValidExternalID(t *testing.T) {
	valid := []string{"tt1187043", "tt0000001", "tt12345678"}
	for _, id := range valid {
		if !ValidExternalID(id) {
			t.Fatalf("%q must be valid", id)
		}
	}
	invalid := []string{"", "tt123456", "1187043", "TT1187043", store.NoMatchSentinel, "tt118704x"}
	for _, id := range invalid {
		if ValidExternalID(id) {
			t.Fatalf("%q must be invalid", id)
		}
	}
}

func TestAcceptPromotesSuggestion(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	reviewer := New(st, cfg, nil)
	ctx := context.Background()

	rec := seedPending(t, st, "1770000001", "3 Idiots", "tt1187043", 80)
	if err := reviewer.Accept(ctx, rec); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	saved, err := st.GetMatch(ctx, rec.ContentID)
	if err != nil {
		t.Fatalf("GetMatch failed: %v", err)
	}
	if saved.Confidence != 100 || saved.Source != store.SourceManualAccepted {
		t.Fatalf("unexpected record after accept: %+v", saved)
	}
	if saved.NeedsReview {
		t.Fatal("accepted record must leave the review queue")
	}
	if saved.ExternalID != "tt1187043" {
		t.Fatalf("accept must keep the suggestion, got %q", saved.ExternalID)
	}
}

func TestAcceptRejectsMalformedSuggestion(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	reviewer := New(st, cfg, nil)
	ctx := context.Background()

	rec := seedPending(t, st, "1770000002", "Unknown", "", 40)
	if err := reviewer.Accept(ctx, rec); err == nil {
		t.Fatal("accept without a usable suggestion must fail")
	}

	saved, err := st.GetMatch(ctx, rec.ContentID)
	if err != nil {
		t.Fatalf("GetMatch failed: %v", err)
	}
	if saved.Source != store.SourceAPILow || !saved.NeedsReview {
		t.Fatalf("failed accept must not change the record: %+v", saved)
	}
}

func TestRejectWritesSentinel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	reviewer := New(st, cfg, nil)
	ctx := context.Background()

	rec := seedPending(t, st, "1770000003", "Obscure Movie", "tt9999999", 60)
	if err := reviewer.Reject(ctx, rec); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}

	saved, err := st.GetMatch(ctx, rec.ContentID)
	if err != nil {
		t.Fatalf("GetMatch failed: %v", err)
	}
	if saved.ExternalID != store.NoMatchSentinel || saved.Confidence != 0 {
		t.Fatalf("unexpected record after reject: %+v", saved)
	}
	if saved.Source != store.SourceManualRejected || saved.NeedsReview {
		t.Fatalf("unexpected record after reject: %+v", saved)
	}
	if saved.ReferenceID != 0 {
		t.Fatalf("reject must clear the reference id, got %d", saved.ReferenceID)
	}
}

func TestManualEntryValidatesID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	reviewer := New(st, cfg, nil)
	ctx := context.Background()

	rec := seedPending(t, st, "1770000004", "Misfiled Movie", "tt1111111", 55)
	if err := reviewer.ManualEntry(ctx, rec, "garbage"); err == nil {
		t.Fatal("manual entry with malformed id must fail")
	}
	if err := reviewer.ManualEntry(ctx, rec, "tt7654321"); err != nil {
		t.Fatalf("ManualEntry failed: %v", err)
	}

	saved, err := st.GetMatch(ctx, rec.ContentID)
	if err != nil {
		t.Fatalf("GetMatch failed: %v", err)
	}
	if saved.ExternalID != "tt7654321" || saved.Confidence != 100 || saved.Source != store.SourceManualEntry {
		t.Fatalf("unexpected record after manual entry: %+v", saved)
	}
}

func TestPendingFiltersByConfidence(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	reviewer := New(st, cfg, nil)
	ctx := context.Background()

	seedPending(t, st, "1770000005", "Borderline", "tt1000001", 80)
	seedPending(t, st, "1770000006", "Weak", "tt1000002", 40)

	all, err := reviewer.Pending(ctx, 0, 0)
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 pending entries, got %d", len(all))
	}

	weak, err := reviewer.Pending(ctx, 0, 80)
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if len(weak) != 1 || weak[0].Item.ContentID != "1770000006" {
		t.Fatalf("expected only the sub-80 entry, got %+v", weak)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	reviewer := New(st, cfg, nil)
	ctx := context.Background()

	seedPending(t, st, "1770000010", "First Movie", "tt1000010", 70)
	seedPending(t, st, "1770000011", "Second Movie", "", 30)
	seedPending(t, st, "1770000012", "Third Movie", "tt1000012", 60)

	var buf bytes.Buffer
	rows, err := reviewer.Export(ctx, &buf, 0, 0)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if rows != 3 {
		t.Fatalf("expected 3 exported rows, got %d", rows)
	}

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatalf("exported csv unreadable: %v", err)
	}
	if got := strings.Join(records[0], ","); got != strings.Join(csvHeader, ",") {
		t.Fatalf("unexpected header %q", got)
	}
	if records[1][0] != "1770000010" || records[1][5] != "tt1000010" || records[1][7] != "First Movie" {
		t.Fatalf("unexpected first row: %v", records[1])
	}

	// Reviewer decisions: accept the first, confirm the second with a
	// supplied id, leave the third untouched.
	records[1][9] = "accept"
	records[2][8] = "tt2000011"
	records[2][9] = "confirm"

	var edited bytes.Buffer
	if err := csv.NewWriter(&edited).WriteAll(records); err != nil {
		t.Fatalf("rewrite csv: %v", err)
	}

	summary, err := reviewer.Import(ctx, &edited)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if summary.Rows != 3 || summary.Updated != 2 || summary.Skipped != 1 || len(summary.Errors) != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	accepted, err := st.GetMatch(ctx, "1770000010")
	if err != nil {
		t.Fatalf("GetMatch failed: %v", err)
	}
	if accepted.Source != store.SourceManualAccepted || accepted.ExternalID != "tt1000010" {
		t.Fatalf("unexpected accepted record: %+v", accepted)
	}

	confirmed, err := st.GetMatch(ctx, "1770000011")
	if err != nil {
		t.Fatalf("GetMatch failed: %v", err)
	}
	if confirmed.Source != store.SourceManualConfirmed || confirmed.ExternalID != "tt2000011" {
		t.Fatalf("unexpected confirmed record: %+v", confirmed)
	}

	untouched, err := st.GetMatch(ctx, "1770000012")
	if err != nil {
		t.Fatalf("GetMatch failed: %v", err)
	}
	if !untouched.NeedsReview || untouched.Source != store.SourceAPILow {
		t.Fatalf("skipped record must stay pending: %+v", untouched)
	}
}

func TestImportCollectsRowErrors(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	reviewer := New(st, cfg, nil)
	ctx := context.Background()

	seedPending(t, st, "1770000020", "Fourth Movie", "tt1000020", 70)

	input := strings.Join(csvHeader, ",") + "\n" +
		"1770000020,Fourth Movie,2009,0,,tt1000020,70,,,confirm\n" +
		"1770000020,Fourth Movie,2009,0,,tt1000020,70,,,frobnicate\n" +
		"1770000099,Ghost Movie,2009,0,,,0,,,reject\n"

	summary, err := reviewer.Import(ctx, strings.NewReader(input))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if summary.Rows != 3 || summary.Updated != 0 || summary.Rejected != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(summary.Errors) != 3 {
		t.Fatalf("expected 3 row errors, got %v", summary.Errors)
	}

	rec, err := st.GetMatch(ctx, "1770000020")
	if err != nil {
		t.Fatalf("GetMatch failed: %v", err)
	}
	if !rec.NeedsReview {
		t.Fatalf("failed rows must not change the record: %+v", rec)
	}
}

func TestImportRejectsWrongHeader(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	reviewer := New(st, cfg, nil)

	if _, err := reviewer.Import(context.Background(), strings.NewReader("id,name\n")); err == nil {
		t.Fatal("import with a foreign header must fail")
	}
}

func TestInteractiveSession(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	reviewer := New(st, cfg, nil)
	ctx := context.Background()

	seedPending(t, st, "1770000030", "Accept Me", "tt1000030", 80)
	seedPending(t, st, "1770000031", "Lookup Then Reject", "tt1000031", 50)
	seedPending(t, st, "1770000032", "Type Me In", "", 20)
	seedPending(t, st, "1770000033", "Never Reached", "tt1000033", 10)

	var out bytes.Buffer
	input := "y\no\nn\nm\ntt7000032\nq\n"
	session := NewSession(reviewer, strings.NewReader(input), &out)

	var opened []string
	session.openLink = func(link string) error {
		opened = append(opened, link)
		return nil
	}

	summary, err := session.Run(ctx, 0, 0)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Accepted != 1 || summary.Rejected != 1 || summary.Manual != 1 || summary.Reviewed != 3 {
		t.Fatalf("unexpected session summary: %+v", summary)
	}
	if len(opened) != 1 || !strings.Contains(opened[0], "Lookup+Then+Reject") {
		t.Fatalf("expected one lookup for the second record, got %v", opened)
	}

	rejected, err := st.GetMatch(ctx, "1770000031")
	if err != nil {
		t.Fatalf("GetMatch failed: %v", err)
	}
	if rejected.ExternalID != store.NoMatchSentinel {
		t.Fatalf("unexpected record after session: %+v", rejected)
	}

	manual, err := st.GetMatch(ctx, "1770000032")
	if err != nil {
		t.Fatalf("GetMatch failed: %v", err)
	}
	if manual.ExternalID != "tt7000032" || manual.Source != store.SourceManualEntry {
		t.Fatalf("unexpected record after session: %+v", manual)
	}

	quit, err := st.GetMatch(ctx, "1770000033")
	if err != nil {
		t.Fatalf("GetMatch failed: %v", err)
	}
	if !quit.NeedsReview {
		t.Fatalf("quit must leave later records pending: %+v", quit)
	}
}

func TestSessionEmptyQueue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	reviewer := New(st, cfg, nil)

	var out bytes.Buffer
	session := NewSession(reviewer, strings.NewReader(""), &out)
	summary, err := session.Run(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Reviewed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if !strings.Contains(out.String(), "Nothing pending") {
		t.Fatalf("expected empty-queue notice, got %q", out.String())
	}
}
