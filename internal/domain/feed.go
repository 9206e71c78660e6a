package domain

import "time"

// SchemaVersion is bumped whenever a document payload changes shape.
const SchemaVersion = 1

// FeedName identifies one published summary document.
type FeedName string

const (
	FeedCountsByPhase FeedName = "counts_by_phase"
	FeedPhaseStatus   FeedName = "phase_status"
	FeedUpcoming      FeedName = "upcoming_12m"
	FeedSponsorTop    FeedName = "sponsor_pipeline_top50"
)

// Non-JSON artifacts published alongside the feeds.
const (
	ChartArtifact = "counts_by_phase.html"
	IndexArtifact = "index.html"
)

// Feeds returns the closed catalog in publication order.
func Feeds() []FeedName {
	return []FeedName{FeedCountsByPhase, FeedPhaseStatus, FeedUpcoming, FeedSponsorTop}
}

// ArtifactName maps a feed to its stable published filename.
func (f FeedName) ArtifactName() string {
	return string(f) + ".json"
}

// ArtifactNames lists every filename a complete snapshot must contain.
func ArtifactNames() []string {
	names := make([]string, 0, len(Feeds())+2)
	for _, feed := range Feeds() {
		names = append(names, feed.ArtifactName())
	}
	return append(names, ChartArtifact, IndexArtifact)
}

// Meta is the envelope shared by every document produced in one run.
type Meta struct {
	AsOfUTC       time.Time `json:"as_of_utc"`
	SchemaVersion int       `json:"schema_version"`
}

// PhaseCount is one row of the counts_by_phase feed.
type PhaseCount struct {
	Phase string `json:"phase"`
	Count int    `json:"count"`
}

// PhaseStatusCount is one row of the phase_status feed.
type PhaseStatusCount struct {
	Phase  string `json:"phase"`
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// UpcomingTrial is one row of the upcoming_12m feed.
type UpcomingTrial struct {
	NCTID             string `json:"nct_id"`
	Title             string `json:"title"`
	Phase             string `json:"phase"`
	Status            string `json:"status"`
	PrimaryCompletion Date   `json:"primary_completion_date"`
	LeadSponsor       string `json:"lead_sponsor"`
	Enrollment        *int   `json:"enrollment,omitempty"`
}

// SponsorPipeline is one row of the sponsor_pipeline_top50 feed.
// MedianEnrollment is absent when no trial in the group carries a usable
// enrollment value.
type SponsorPipeline struct {
	Sponsor           string   `json:"sponsor"`
	StudyCount        int      `json:"study_count"`
	MedianEnrollment  *float64 `json:"median_enrollment,omitempty"`
	SoonestCompletion *Date    `json:"soonest_completion,omitempty"`
}

// SummaryDocument is the unit of publication for one feed.
type SummaryDocument struct {
	Name     FeedName
	Meta     Meta
	Rows     any
	RowCount int
}

// Artifact is a serialized document ready for staging.
type Artifact struct {
	Name string
	Data []byte
}

// RawPhaseCount is a query row grouped by the raw phase spelling; the shaper
// merges spellings into canonical buckets.
type RawPhaseCount struct {
	Phase *string
	Count int
}

// RawPhaseStatusCount is a query row grouped by raw (phase, status).
type RawPhaseStatusCount struct {
	Phase  *string
	Status *string
	Count  int
}

// TrialRecord is a per-trial query row feeding the upcoming and sponsor
// pipelines. All fields except NCTID are nullable at the source.
type TrialRecord struct {
	NCTID             string
	Title             *string
	Phase             *string
	Status            *string
	LeadSponsor       *string
	Enrollment        *int
	PrimaryCompletion *time.Time
}

// UpcomingWindow computes the half-open completion-date window
// [asOf, asOf+months) shared by every feed of a run.
func UpcomingWindow(asOf time.Time, months int) (lower, upper time.Time) {
	lower = time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	return lower, lower.AddDate(0, months, 0)
}
