package store

import (
	"strings"
	"time"
)

// Kind classifies a catalog item.
type Kind string

const (
	KindMovie Kind = "movie"
	KindShow  Kind = "show"
	KindSport Kind = "sport"
)

// ParseKind normalizes an upstream content type into a Kind. Unknown
// values fall back to movie, the dominant feed type.
func ParseKind(value string) Kind {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "show", "series", "tv":
		return KindShow
	case "sport", "sports", "match", "clips":
		return KindSport
	default:
		return KindMovie
	}
}

// SyncType identifies the kind of sync run.
type SyncType string

const (
	SyncBootstrap   SyncType = "bootstrap"
	SyncIncremental SyncType = "incremental"
	SyncReconcile   SyncType = "weekly-reconcile"
)

// RunStatus is the lifecycle state of a sync run. Transitions are
// running to completed or running to failed, terminal once set.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// MatchSource records how a match record was produced.
type MatchSource string

const (
	SourceAPIHigh         MatchSource = "api-high"
	SourceAPILow          MatchSource = "api-low"
	SourceNoResults       MatchSource = "no-results"
	SourceNoMatch         MatchSource = "no-match"
	SourceManualAccepted  MatchSource = "manual-accepted"
	SourceManualConfirmed MatchSource = "manual-confirmed"
	SourceManualEntry     MatchSource = "manual-entry"
	SourceManualRejected  MatchSource = "manual-rejected"
)

// Manual reports whether the source records a reviewer action. Manual
// records are never overwritten by automated resolution.
func (s MatchSource) Manual() bool {
	return strings.HasPrefix(string(s), "manual-")
}

// NoMatchSentinel is stored as the external id when a reviewer or the
// resolver concludes no reference entry exists.
const NoMatchSentinel = "NO_MATCH"

// Item is a catalog entry persisted in SQLite.
type Item struct {
	ContentID    string
	Kind         Kind
	Title        string
	Description  string
	Year         int
	DurationSecs int
	Language     string
	Languages    []string
	Genres       []string
	CastNames    []string
	Directors    []string
	Producers    []string
	Keywords     []string
	Images       []string
	Locators     []string
	Trailers     []string
	StartDate    *time.Time
	UpdateDate   *time.Time
	RawPayload   string
	IsDeleted    bool
	CreatedAt    time.Time
	LastSyncedAt time.Time
}

// SyncRun is one row of the sync_log table.
type SyncRun struct {
	ID            int64
	RunID         string
	SyncType      SyncType
	Status        RunStatus
	StartedAt     time.Time
	CompletedAt   *time.Time
	FromWatermark *time.Time
	ToWatermark   *time.Time
	ItemsFetched  int
	ItemsAdded    int
	ItemsUpdated  int
	ItemsDeleted  int
	APIRequests   int
	Errors        []string
}

// Duration returns the wall-clock length of the run, or zero while it
// is still open.
func (r *SyncRun) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// RunPatch is a partial update applied to an open sync run. Nil fields
// are left untouched; counter fields are deltas added to the stored
// values.
type RunPatch struct {
	Status        *RunStatus
	CompletedAt   *time.Time
	FromWatermark *time.Time
	ToWatermark   *time.Time
	ItemsFetched  int
	ItemsAdded    int
	ItemsUpdated  int
	ItemsDeleted  int
	APIRequests   int
	Errors        []string
}

// MatchRecord links a catalog item to a reference catalog entry.
type MatchRecord struct {
	ContentID   string
	ExternalID  string
	ReferenceID int64
	Confidence  int
	Source      MatchSource
	NeedsReview bool
	Rationale   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Credential is a persisted access credential row.
type Credential struct {
	ID        int64
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Active    bool
}
