package event

import (
	"time"
)

// Record is the canonical unit produced by normalization. Raw source fields
// come in as an untyped map (see Builder.Build), everything below is the
// validated form that storage, clustering and binning operate on.

type DuplicateReason string

const (
	DuplicateNone            DuplicateReason = ""
	DuplicateSameTitle       DuplicateReason = "same_title"
	DuplicateEditDistance    DuplicateReason = "edit_distance"
	DuplicateImageSimilarity DuplicateReason = "image_similarity"
)

type Record struct {
	Title       string
	Link        string // identity key, unique within a source
	Price       string
	Description string
	Image       string // remote URL
	Source      string

	Location    string
	Categories  []string
	TextContent string
	HTMLContent string

	InitDateRaw any
	EndDateRaw  any

	InitDate *time.Time // canonical; nil iff IsValid == false
	EndDate  *time.Time // falls back to InitDate when the source end date is unusable

	InitDateISO   string
	EndDateISO    string
	InitDateHuman string
	EndDateHuman  string

	ScrapedAt time.Time

	IsValid bool

	// Extra carries source fields the core does not interpret.
	Extra map[string]any

	// Clustering state, rebuilt from scratch on every publish run.
	IsDuplicated    bool
	DuplicateReason DuplicateReason
	Score           float64
	LocalImagePath  string
}

// DayBucket holds the surviving records for one calendar day of the
// display window.
type DayBucket struct {
	Index  int
	Date   time.Time // start of day
	Label  string    // "Today", "Tomorrow", or weekday + day-of-month
	Events []*Record
}
