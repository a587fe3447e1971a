// Package models defines data structures for the scraper.
package models

import "time"

// Review represents one review extracted from a listing's review panel.
// Rating is 1-5; zero means the rating was absent from the markup.
type Review struct {
	ReviewID       string    `csv:"review_id" json:"review_id"`
	ReviewerName   string    `csv:"reviewer_name" json:"reviewer_name"`
	Rating         int       `csv:"rating" json:"rating,omitempty"`
	ReviewText     string    `csv:"review_text" json:"review_text"`
	RelativeTime   string    `csv:"relative_time" json:"relative_time"`
	RawFingerprint string    `csv:"raw_fingerprint" json:"raw_fingerprint"`
	ScrapedAt      time.Time `csv:"scraped_at" json:"scraped_at"`
}

// HasRating reports whether the review carried a star rating.
func (r *Review) HasRating() bool {
	return r != nil && r.Rating >= 1 && r.Rating <= 5
}

// RawItem is a driver-owned snapshot of one list element. ID holds the
// platform identifier when the driver could read one.
type RawItem struct {
	ID   string
	HTML string
}

// Phase names a ScrollController state.
type Phase string

const (
	PhaseInit       Phase = "init"
	PhaseLoading    Phase = "loading"
	PhaseExtracting Phase = "extracting"
	PhaseDeciding   Phase = "deciding"
	PhaseStalled    Phase = "stalled"
	PhaseDone       Phase = "done"
)

// ScrollState is the controller's per-session loop state.
type ScrollState struct {
	Phase                 Phase
	ItemsSeen             int
	ConsecutiveStallCount int
	LastItemCount         int
	Terminal              bool
}

// Session status values persisted in the progress sidecar.
const (
	StatusRunning       = "running"
	StatusDone          = "done"
	StatusTargetReached = "target_reached"
	StatusCancelled     = "cancelled"
	StatusPartial       = "partial"
)

// SessionProgress is checkpointed next to the output so a resumed run
// knows how far extraction got.
type SessionProgress struct {
	ListingURL           string    `json:"listing_url"`
	PlaceID              string    `json:"place_id,omitempty"`
	TotalExtracted       int       `json:"total_extracted"`
	TotalDeduplicatedOut int       `json:"total_deduplicated_out"`
	ExtractionErrors     int       `json:"extraction_errors"`
	ScrollRounds         int       `json:"scroll_rounds"`
	StartedAt            time.Time `json:"started_at"`
	LastCheckpointAt     time.Time `json:"last_checkpoint_at"`
	Status               string    `json:"status"`
	Error                string    `json:"error,omitempty"`
}

// Finished reports whether the session ended without a driver failure.
func (p SessionProgress) Finished() bool {
	return p.Status == StatusDone || p.Status == StatusTargetReached
}

// SessionResult holds the overall result of one listing scrape.
type SessionResult struct {
	Progress  SessionProgress
	StartTime time.Time
	EndTime   time.Time
	Retries   int
	Err       error
}

// Outcome returns the terminal status of the session.
func (r *SessionResult) Outcome() string {
	if r == nil {
		return StatusPartial
	}
	return r.Progress.Status
}
