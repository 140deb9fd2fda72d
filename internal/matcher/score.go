package matcher

import (
	"encoding/json"

	"reelsync/internal/store"
	"reelsync/internal/tmdb"
)

// Signal weights of the composite score.
const (
	titleWeight    = 40
	yearExact      = 25
	yearOffByOne   = 15
	yearOffByTwo   = 5
	runtimeClose   = 10
	runtimeNear    = 5
	castThree      = 15
	castTwo        = 10
	castOne        = 5
	directorWeight = 10
)

// Confidence tier boundaries: a raw score at or above the bound maps to
// the paired confidence value.
var confidenceTiers = []struct {
	rawBound   int
	confidence int
}{
	{85, 100},
	{70, 95},
	{55, 90},
	{40, 80},
}

// castCap limits how many credited reference cast members participate
// in overlap scoring.
const castCap = 10

// Breakdown is the per-signal audit trail persisted with every match
// record.
type Breakdown struct {
	Title    int `json:"title"`
	Year     int `json:"year"`
	Runtime  int `json:"runtime"`
	Cast     int `json:"cast"`
	Director int `json:"director"`
	Raw      int `json:"raw"`

	ReferenceTitle string `json:"reference_title,omitempty"`
	ReferenceYear  int    `json:"reference_year,omitempty"`
}

// JSON renders the breakdown for storage.
func (b Breakdown) JSON() string {
	data, err := json.Marshal(b)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// Candidate pairs a search result with its optional extended detail.
type Candidate struct {
	Result tmdb.Result
	Detail *tmdb.Movie
}

// Score computes the composite breakdown for one candidate against a
// catalog item. Runtime and cast signals are only scored when the
// detail payload is present and both sides carry the data.
func Score(item *store.Item, candidate Candidate) Breakdown {
	breakdown := Breakdown{
		ReferenceTitle: candidate.Result.Title,
		ReferenceYear:  candidate.Result.Year(),
	}

	breakdown.Title = scoreTitle(item.Title, candidate)
	breakdown.Year = scoreYear(item.Year, candidate.Result.Year())

	if candidate.Detail != nil {
		breakdown.Runtime = scoreRuntime(item.DurationSecs, candidate.Detail.Runtime)
		breakdown.Cast = scoreCast(item.CastNames, candidate.Detail.Credits.Cast)
		breakdown.Director = scoreDirector(item.Directors, candidate.Detail.Credits.Directors())
	}

	breakdown.Raw = breakdown.Title + breakdown.Year + breakdown.Runtime +
		breakdown.Cast + breakdown.Director
	return breakdown
}

// Confidence maps a raw composite score onto its discrete tier. Scores
// below every tier bound pass through unchanged.
func Confidence(raw int) int {
	for _, tier := range confidenceTiers {
		if raw >= tier.rawBound {
			return tier.confidence
		}
	}
	return raw
}

func scoreTitle(itemTitle string, candidate Candidate) int {
	normalized := NormalizeTitle(itemTitle)
	if normalized == "" {
		return 0
	}

	best := Similarity(normalized, NormalizeTitle(candidate.Result.Title))
	if alt := Similarity(normalized, NormalizeTitle(candidate.Result.OriginalTitle)); alt > best {
		best = alt
	}
	return int(best * titleWeight)
}

func scoreYear(itemYear, candidateYear int) int {
	if itemYear == 0 || candidateYear == 0 {
		return 0
	}
	diff := itemYear - candidateYear
	if diff < 0 {
		diff = -diff
	}
	switch diff {
	case 0:
		return yearExact
	case 1:
		return yearOffByOne
	case 2:
		return yearOffByTwo
	default:
		return 0
	}
}

// scoreRuntime compares the item duration (seconds) against the
// reference runtime (minutes). Both must be known.
func scoreRuntime(durationSecs, runtimeMin int) int {
	if durationSecs <= 0 || runtimeMin <= 0 {
		return 0
	}
	itemMinutes := durationSecs / 60
	diff := itemMinutes - runtimeMin
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff <= 3:
		return runtimeClose
	case diff <= 10:
		return runtimeNear
	default:
		return 0
	}
}

func scoreCast(itemCast []string, referenceCast []tmdb.CastMember) int {
	if len(itemCast) == 0 || len(referenceCast) == 0 {
		return 0
	}

	capped := referenceCast
	if len(capped) > castCap {
		capped = capped[:castCap]
	}
	names := make([]string, 0, len(capped))
	for _, member := range capped {
		names = append(names, member.Name)
	}

	switch overlap := nameOverlap(itemCast, names); {
	case overlap >= 3:
		return castThree
	case overlap == 2:
		return castTwo
	case overlap == 1:
		return castOne
	default:
		return 0
	}
}

func scoreDirector(itemDirectors, referenceDirectors []string) int {
	if nameOverlap(itemDirectors, referenceDirectors) > 0 {
		return directorWeight
	}
	return 0
}
