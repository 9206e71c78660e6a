package ports

import (
	"context"
	"time"

	"TrialFeeds/internal/domain"
)

// SourceOpener acquires a read-only session to the trials database.
// One session is opened per run and closed on every exit path.
type SourceOpener interface {
	Open(ctx context.Context) (TrialSource, error)
}

// TrialSource runs the fixed analytical queries for one snapshot. No method
// issues writes; every query executes inside a read-only transaction.
type TrialSource interface {
	PhaseCounts(ctx context.Context) ([]domain.RawPhaseCount, error)
	PhaseStatusCounts(ctx context.Context) ([]domain.RawPhaseStatusCount, error)
	UpcomingTrials(ctx context.Context, asOf time.Time, horizonMonths int) ([]domain.TrialRecord, error)
	SponsorTrials(ctx context.Context) ([]domain.TrialRecord, error)
	Close()
}

// ArtifactWriter serializes shaped documents into publishable artifacts.
type ArtifactWriter interface {
	Document(doc domain.SummaryDocument) (domain.Artifact, error)
	Chart(rows []domain.PhaseCount, meta domain.Meta) (domain.Artifact, error)
	Index(meta domain.Meta, entries []string) (domain.Artifact, error)
}

// Publisher stages run artifacts and atomically promotes them as one set.
type Publisher interface {
	Stage(ctx context.Context, runID string, artifacts []domain.Artifact) error
	Validate(ctx context.Context, runID string, want []string) error
	Promote(ctx context.Context, runID string) error
	Discard(runID string)
}

// Notifier delivers run reports to an operator channel.
type Notifier interface {
	PublishReport(ctx context.Context, report string) error
}

// Scheduler controls when pipeline runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
