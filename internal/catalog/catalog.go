package catalog

import (
	"context"
	"fmt"
	"time"

	"TrialFeeds/internal/aggregate"
	"TrialFeeds/internal/domain"
	"TrialFeeds/internal/ports"
)

// Builder produces the summary document for one feed. Implementations are
// parameterized only by the run's as-of date; query shape never varies.
type Builder interface {
	Name() domain.FeedName
	Build(ctx context.Context, src ports.TrialSource, asOf time.Time, meta domain.Meta) (domain.SummaryDocument, error)
}

// Registry keeps the closed mapping from feed names to their builders.
type Registry struct {
	builders map[domain.FeedName]Builder
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: map[domain.FeedName]Builder{}}
}

// Register adds or replaces a feed builder.
func (r *Registry) Register(b Builder) {
	if r.builders == nil {
		r.builders = map[domain.FeedName]Builder{}
	}
	r.builders[b.Name()] = b
}

// Resolve returns a builder by feed name or an error if it is absent.
func (r *Registry) Resolve(name domain.FeedName) (Builder, error) {
	if b, ok := r.builders[name]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("feed %s is not registered", name)
}

// Default returns the full fixed catalog.
func Default(shaper *aggregate.Shaper, horizonMonths int) *Registry {
	r := NewRegistry()
	r.Register(phaseCounts{shaper})
	r.Register(phaseStatus{shaper})
	r.Register(upcoming{shaper: shaper, horizonMonths: horizonMonths})
	r.Register(sponsorPipeline{shaper})
	return r
}

type phaseCounts struct {
	shaper *aggregate.Shaper
}

func (phaseCounts) Name() domain.FeedName { return domain.FeedCountsByPhase }

func (b phaseCounts) Build(ctx context.Context, src ports.TrialSource, _ time.Time, meta domain.Meta) (domain.SummaryDocument, error) {
	raw, err := src.PhaseCounts(ctx)
	if err != nil {
		return domain.SummaryDocument{}, err
	}
	rows := b.shaper.PhaseCounts(raw)
	return document(domain.FeedCountsByPhase, meta, rows, len(rows)), nil
}

type phaseStatus struct {
	shaper *aggregate.Shaper
}

func (phaseStatus) Name() domain.FeedName { return domain.FeedPhaseStatus }

func (b phaseStatus) Build(ctx context.Context, src ports.TrialSource, _ time.Time, meta domain.Meta) (domain.SummaryDocument, error) {
	raw, err := src.PhaseStatusCounts(ctx)
	if err != nil {
		return domain.SummaryDocument{}, err
	}
	rows := b.shaper.PhaseStatusCounts(raw)
	return document(domain.FeedPhaseStatus, meta, rows, len(rows)), nil
}

type upcoming struct {
	shaper        *aggregate.Shaper
	horizonMonths int
}

func (upcoming) Name() domain.FeedName { return domain.FeedUpcoming }

func (b upcoming) Build(ctx context.Context, src ports.TrialSource, asOf time.Time, meta domain.Meta) (domain.SummaryDocument, error) {
	records, err := src.UpcomingTrials(ctx, asOf, b.horizonMonths)
	if err != nil {
		return domain.SummaryDocument{}, err
	}
	rows := b.shaper.UpcomingTrials(records)
	return document(domain.FeedUpcoming, meta, rows, len(rows)), nil
}

type sponsorPipeline struct {
	shaper *aggregate.Shaper
}

func (sponsorPipeline) Name() domain.FeedName { return domain.FeedSponsorTop }

func (b sponsorPipeline) Build(ctx context.Context, src ports.TrialSource, _ time.Time, meta domain.Meta) (domain.SummaryDocument, error) {
	records, err := src.SponsorTrials(ctx)
	if err != nil {
		return domain.SummaryDocument{}, err
	}
	rows := b.shaper.SponsorPipeline(records)
	return document(domain.FeedSponsorTop, meta, rows, len(rows)), nil
}

func document(name domain.FeedName, meta domain.Meta, rows any, count int) domain.SummaryDocument {
	return domain.SummaryDocument{Name: name, Meta: meta, Rows: rows, RowCount: count}
}
