package matcher

import (
	"testing"

	"reelsync/internal/store"
	"reelsync/internal/tmdb"
)

func TestNormalizeTitle(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "Sholay", "sholay"},
		{"strips punctuation", "Mr. India!", "mr india"},
		{"collapses whitespace", "  Dil   Chahta  Hai ", "dil chahta hai"},
		{"strips noise suffix", "3 Idiots Hindi", "3 idiots"},
		{"strips stacked suffixes", "Lagaan Hindi Dubbed HD", "lagaan"},
		{"keeps noise word alone", "Hindi", "hindi"},
		{"strips diacritics", "Amélie", "amelie"},
		{"keeps inner noise word", "Hindi Medium", "hindi medium"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeTitle(tc.input); got != tc.want {
				t.Fatalf("NormalizeTitle(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestSimilarity(t *testing.T) {
	if got := Similarity("sholay", "sholay"); got != 1 {
		t.Fatalf("identical strings should score 1, got %f", got)
	}
	if got := Similarity("", ""); got != 1 {
		t.Fatalf("two empty strings should score 1, got %f", got)
	}
	if got := Similarity("sholay", ""); got != 0 {
		t.Fatalf("empty side should score 0, got %f", got)
	}
	near := Similarity("dil chahta hai", "dil chahta hain")
	far := Similarity("dil chahta hai", "kabhi khushi kabhie gham")
	if near <= far {
		t.Fatalf("expected closer title to score higher: near=%f far=%f", near, far)
	}
	if near < 0.9 {
		t.Fatalf("expected one-rune difference to stay high, got %f", near)
	}
	if a, b := Similarity("lagaan", "swades"), Similarity("swades", "lagaan"); a != b {
		t.Fatalf("similarity should be symmetric: %f vs %f", a, b)
	}
}

func TestScoreYearTiers(t *testing.T) {
	cases := []struct {
		item, candidate, want int
	}{
		{2009, 2009, 25},
		{2009, 2010, 15},
		{2009, 2008, 15},
		{2009, 2011, 5},
		{2009, 2012, 0},
		{0, 2009, 0},
		{2009, 0, 0},
	}
	for _, tc := range cases {
		if got := scoreYear(tc.item, tc.candidate); got != tc.want {
			t.Fatalf("scoreYear(%d, %d) = %d, want %d", tc.item, tc.candidate, got, tc.want)
		}
	}
}

func TestScoreRuntimeTiers(t *testing.T) {
	cases := []struct {
		durationSecs, runtimeMin, want int
	}{
		{10200, 170, 10}, // 170 min exact
		{10200, 168, 10}, // 2 min off
		{10200, 163, 5},  // 7 min off
		{10200, 150, 0},  // 20 min off
		{0, 170, 0},
		{10200, 0, 0},
	}
	for _, tc := range cases {
		if got := scoreRuntime(tc.durationSecs, tc.runtimeMin); got != tc.want {
			t.Fatalf("scoreRuntime(%d, %d) = %d, want %d", tc.durationSecs, tc.runtimeMin, got, tc.want)
		}
	}
}

func TestScoreCastCapsReferenceList(t *testing.T) {
	reference := make([]tmdb.CastMember, 0, 12)
	for i := 0; i < 12; i++ {
		reference = append(reference, tmdb.CastMember{Name: "Extra Person", Order: i})
	}
	reference[11].Name = "Aamir Khan"

	// The matching name sits past the top-10 cap, so no overlap counts.
	if got := scoreCast([]string{"Aamir Khan"}, reference); got != 0 {
		t.Fatalf("expected capped cast to score 0, got %d", got)
	}

	reference[0].Name = "Aamir Khan"
	if got := scoreCast([]string{"aamir khan"}, reference); got != castOne {
		t.Fatalf("expected case-insensitive single overlap, got %d", got)
	}
}

func TestScoreCastOverlapTiers(t *testing.T) {
	reference := []tmdb.CastMember{
		{Name: "Aamir Khan"}, {Name: "R. Madhavan"}, {Name: "Sharman Joshi"}, {Name: "Kareena Kapoor"},
	}
	itemCast := []string{"Aamir Khan", "R. Madhavan", "Sharman Joshi"}
	if got := scoreCast(itemCast, reference); got != castThree {
		t.Fatalf("expected 3+ overlap tier, got %d", got)
	}
	if got := scoreCast(itemCast[:2], reference); got != castTwo {
		t.Fatalf("expected 2 overlap tier, got %d", got)
	}
}

func TestConfidenceTierMapping(t *testing.T) {
	cases := []struct{ raw, want int }{
		{100, 100},
		{85, 100},
		{84, 95},
		{70, 95},
		{69, 90},
		{55, 90},
		{54, 80},
		{40, 80},
		{39, 39},
		{10, 10},
		{0, 0},
	}
	for _, tc := range cases {
		if got := Confidence(tc.raw); got != tc.want {
			t.Fatalf("Confidence(%d) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}

func TestScoreCompositeBreakdown(t *testing.T) {
	item := &store.Item{
		ContentID:    "1770001234",
		Title:        "3 Idiots Hindi",
		Year:         2009,
		DurationSecs: 10220,
		CastNames:    []string{"Aamir Khan", "R. Madhavan", "Sharman Joshi"},
		Directors:    []string{"Rajkumar Hirani"},
	}
	candidate := Candidate{
		Result: tmdb.Result{
			ID:            20453,
			Title:         "3 Idiots",
			OriginalTitle: "3 Idiots",
			ReleaseDate:   "2009-12-23",
		},
		Detail: &tmdb.Movie{
			Runtime: 170,
			Credits: tmdb.Credits{
				Cast: []tmdb.CastMember{
					{Name: "Aamir Khan"}, {Name: "R. Madhavan"}, {Name: "Sharman Joshi"},
				},
				Crew: []tmdb.CrewMember{{Name: "Rajkumar Hirani", Job: "Director"}},
			},
			ExternalIDs: tmdb.ExternalIDs{IMDBID: "tt1187043"},
		},
	}

	breakdown := Score(item, candidate)
	if breakdown.Title != 40 {
		t.Fatalf("expected full title score after suffix strip, got %d", breakdown.Title)
	}
	if breakdown.Year != 25 || breakdown.Runtime != 10 || breakdown.Cast != 15 || breakdown.Director != 10 {
		t.Fatalf("unexpected breakdown: %+v", breakdown)
	}
	if breakdown.Raw != 100 {
		t.Fatalf("expected raw 100, got %d", breakdown.Raw)
	}
	if Confidence(breakdown.Raw) != 100 {
		t.Fatalf("expected top tier confidence")
	}
}

func TestScoreWithoutDetailSkipsDetailSignals(t *testing.T) {
	item := &store.Item{
		Title:        "Sholay",
		Year:         1975,
		DurationSecs: 11000,
		CastNames:    []string{"Amitabh Bachchan"},
	}
	breakdown := Score(item, Candidate{Result: tmdb.Result{Title: "Sholay", ReleaseDate: "1975-08-15"}})
	if breakdown.Runtime != 0 || breakdown.Cast != 0 || breakdown.Director != 0 {
		t.Fatalf("detail signals should be zero without detail: %+v", breakdown)
	}
	if breakdown.Title != 40 || breakdown.Year != 25 {
		t.Fatalf("unexpected breakdown: %+v", breakdown)
	}
}
