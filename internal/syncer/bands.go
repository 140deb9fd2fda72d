package syncer

import (
	"fmt"
	"time"

	"reelsync/internal/catalog"
	"reelsync/internal/config"
)

// band is one closed year interval of the bootstrap partition ladder.
type band struct {
	FromYear int
	ToYear   int
}

func (b band) String() string {
	if b.FromYear == b.ToYear {
		return fmt.Sprintf("%d", b.FromYear)
	}
	return fmt.Sprintf("%d-%d", b.FromYear, b.ToYear)
}

// window converts the band into a closed availability-date interval.
func (b band) window() *catalog.Window {
	from := time.Date(b.FromYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(b.ToYear+1, time.January, 1, 0, 0, 0, 0, time.UTC).Add(-time.Millisecond)
	return &catalog.Window{From: from, To: to}
}

// yearBands builds the partition ladder, newest first: a two-year band
// for the current and previous year, single years down to the singles
// threshold, then decade-aligned bands down to the oldest year. Narrow
// recent bands keep each partition under the pagination ceiling where
// most of the feed lives; older decades are sparse enough to share one.
func yearBands(now time.Time, cfg config.Sync) []band {
	current := now.UTC().Year()
	singles := cfg.PartitionSingleYears
	oldest := cfg.PartitionOldestYear

	bands := []band{{FromYear: current - 1, ToYear: current}}

	for year := current - 2; year >= singles; year-- {
		bands = append(bands, band{FromYear: year, ToYear: year})
	}

	for decade := (singles - 1) / 10 * 10; decade >= oldest-9; decade -= 10 {
		hi := decade + 9
		if hi >= singles {
			hi = singles - 1
		}
		lo := decade
		if lo < oldest {
			lo = oldest
		}
		if hi < lo {
			continue
		}
		bands = append(bands, band{FromYear: lo, ToYear: hi})
	}

	return bands
}
