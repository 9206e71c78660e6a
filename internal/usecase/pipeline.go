package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"TrialFeeds/internal/catalog"
	"TrialFeeds/internal/domain"
	"TrialFeeds/internal/ports"
)

// State tracks a run through the publish discipline. Promotion is the single
// irreversible step; every earlier failure is terminal and harmless.
type State string

const (
	StateStaging   State = "STAGING"
	StateValidated State = "VALIDATED"
	StatePromoted  State = "PROMOTED"
	StateFailed    State = "FAILED"
)

// PipelineDeps wires all driven adapters into the run orchestration.
type PipelineDeps struct {
	Opener    ports.SourceOpener
	Catalog   *catalog.Registry
	Writer    ports.ArtifactWriter
	Publisher ports.Publisher
	Notifier  ports.Notifier
	Logger    *slog.Logger
	Clock     func() time.Time
}

// Pipeline implements one aggregation-and-publish run: open a read-only
// session, build every catalog feed against a single as-of date, serialize,
// stage, validate, and atomically promote.
type Pipeline struct {
	opener    ports.SourceOpener
	catalog   *catalog.Registry
	writer    ports.ArtifactWriter
	publisher ports.Publisher
	notifier  ports.Notifier
	logger    *slog.Logger
	clock     func() time.Time

	lastState State
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Pipeline{
		opener:    deps.Opener,
		catalog:   deps.Catalog,
		writer:    deps.Writer,
		publisher: deps.Publisher,
		notifier:  deps.Notifier,
		logger:    deps.Logger,
		clock:     clock,
	}
}

// LastState reports the terminal state of the most recent run.
func (p *Pipeline) LastState() State {
	return p.lastState
}

// Run executes one complete snapshot. asOfOverride pins the as-of date for
// reproducible re-runs; when nil the date derives from the run timestamp.
// Whatever fails, the previously promoted snapshot stays intact.
func (p *Pipeline) Run(ctx context.Context, asOfOverride *time.Time) error {
	runID := uuid.NewString()
	started := p.clock()

	asOfUTC := started.UTC().Truncate(time.Second)
	asOfDate := domain.NewDate(asOfUTC)
	if asOfOverride != nil {
		asOfDate = domain.NewDate(asOfOverride.UTC())
	}
	meta := domain.Meta{AsOfUTC: asOfUTC, SchemaVersion: domain.SchemaVersion}

	logger := p.logger.With("run_id", runID, "as_of", asOfDate.String())
	logger.Info("run started")

	err := p.run(ctx, runID, asOfDate.Time, meta, logger)
	elapsed := p.clock().Sub(started)
	if err != nil {
		p.lastState = StateFailed
		p.publisher.Discard(runID)
		logger.Error("run failed", "state", StateFailed, "elapsed", elapsed, "error", err)
		p.notify(ctx, fmt.Sprintf("trialfeeds run %s FAILED after %s: %v", runID, elapsed.Round(time.Second), err))
		return err
	}

	p.lastState = StatePromoted
	logger.Info("run promoted", "elapsed", elapsed)
	p.notify(ctx, fmt.Sprintf("trialfeeds run %s promoted snapshot as of %s in %s", runID, asOfDate, elapsed.Round(time.Second)))
	return nil
}

func (p *Pipeline) run(ctx context.Context, runID string, asOf time.Time, meta domain.Meta, logger *slog.Logger) error {
	src, err := p.opener.Open(ctx)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	p.lastState = StateStaging

	var artifacts []domain.Artifact
	var phaseRows []domain.PhaseCount

	for _, feed := range domain.Feeds() {
		builder, err := p.catalog.Resolve(feed)
		if err != nil {
			return fmt.Errorf("resolve feed: %w", err)
		}

		doc, err := builder.Build(ctx, src, asOf, meta)
		if err != nil {
			return fmt.Errorf("build %s: %w", feed, err)
		}
		logger.Debug("feed built", "feed", feed, "rows", doc.RowCount)

		art, err := p.writer.Document(doc)
		if err != nil {
			return fmt.Errorf("serialize %s: %w", feed, err)
		}
		artifacts = append(artifacts, art)

		if feed == domain.FeedCountsByPhase {
			phaseRows, _ = doc.Rows.([]domain.PhaseCount)
		}
	}

	chart, err := p.writer.Chart(phaseRows, meta)
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	artifacts = append(artifacts, chart)

	index, err := p.writer.Index(meta, append(feedArtifactNames(), domain.ChartArtifact))
	if err != nil {
		return fmt.Errorf("render index: %w", err)
	}
	artifacts = append(artifacts, index)

	if err := p.publisher.Stage(ctx, runID, artifacts); err != nil {
		return err
	}

	if err := p.publisher.Validate(ctx, runID, domain.ArtifactNames()); err != nil {
		return err
	}
	p.lastState = StateValidated

	return p.publisher.Promote(ctx, runID)
}

func (p *Pipeline) notify(ctx context.Context, report string) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.PublishReport(ctx, report); err != nil {
		p.logger.Warn("run report not delivered", "error", err)
	}
}

func feedArtifactNames() []string {
	names := make([]string, 0, len(domain.Feeds()))
	for _, feed := range domain.Feeds() {
		names = append(names, feed.ArtifactName())
	}
	return names
}
