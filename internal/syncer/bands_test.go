package syncer

import (
	"testing"
	"time"

	"reelsync/internal/config"
)

func TestYearBandsLadder(t *testing.T) {
	cfg := config.Default().Sync
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	bands := yearBands(now, cfg)

	want := []band{
		{2025, 2026},
		{2024, 2024}, {2023, 2023}, {2022, 2022}, {2021, 2021}, {2020, 2020},
		{2019, 2019}, {2018, 2018}, {2017, 2017}, {2016, 2016},
		{2010, 2015},
		{2000, 2009},
		{1990, 1999},
	}
	if len(bands) != len(want) {
		t.Fatalf("expected %d bands, got %d: %v", len(want), len(bands), bands)
	}
	for i, b := range bands {
		if b != want[i] {
			t.Fatalf("band %d = %v, want %v", i, b, want[i])
		}
	}
}

func TestYearBandsAreDisjointAndCoverLadder(t *testing.T) {
	cfg := config.Default().Sync
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	covered := map[int]int{}
	for _, b := range yearBands(now, cfg) {
		if b.FromYear > b.ToYear {
			t.Fatalf("inverted band %v", b)
		}
		for year := b.FromYear; year <= b.ToYear; year++ {
			covered[year]++
		}
	}
	for year := cfg.PartitionOldestYear; year <= now.Year(); year++ {
		if covered[year] != 1 {
			t.Fatalf("year %d covered %d times", year, covered[year])
		}
	}
}

func TestBandWindowIsClosedInterval(t *testing.T) {
	b := band{FromYear: 2016, ToYear: 2016}
	w := b.window()
	if !w.From.Equal(time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected window start %v", w.From)
	}
	if !w.To.Before(time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("window must end before the next year, got %v", w.To)
	}
	if w.To.Year() != 2016 {
		t.Fatalf("window end must stay inside the band, got %v", w.To)
	}
}

func TestBandString(t *testing.T) {
	if got := (band{2016, 2016}).String(); got != "2016" {
		t.Fatalf("single-year band string = %q", got)
	}
	if got := (band{2010, 2015}).String(); got != "2010-2015" {
		t.Fatalf("multi-year band string = %q", got)
	}
}
