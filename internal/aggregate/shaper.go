package aggregate

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"TrialFeeds/internal/domain"
)

// Shaper turns raw query rows into canonical, deterministically ordered
// aggregate rows. Per-row data anomalies are recovered locally: unmappable
// grouping keys land in the Unknown bucket and out-of-range numerics are
// logged and excluded from numeric aggregates only, so a dirty row never
// aborts a run and totals always reconcile.
type Shaper struct {
	logger      *slog.Logger
	topSponsors int
	titleMaxLen int
}

// NewShaper wires warning output and ranking/truncation limits.
func NewShaper(logger *slog.Logger, topSponsors, titleMaxLen int) *Shaper {
	return &Shaper{
		logger:      logger.With("component", "shaper"),
		topSponsors: topSponsors,
		titleMaxLen: titleMaxLen,
	}
}

// PhaseCounts merges raw phase spellings into canonical buckets. The sum of
// the output counts equals the sum of the input counts.
func (s *Shaper) PhaseCounts(raw []domain.RawPhaseCount) []domain.PhaseCount {
	merged := map[string]int{}
	for _, row := range raw {
		merged[domain.CanonicalPhase(row.Phase)] += row.Count
	}

	out := make([]domain.PhaseCount, 0, len(merged))
	for phase, count := range merged {
		out = append(out, domain.PhaseCount{Phase: phase, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		return domain.PhaseRank(out[i].Phase) < domain.PhaseRank(out[j].Phase)
	})
	return out
}

// PhaseStatusCounts merges raw (phase, status) pairs into canonical buckets,
// ordered by phase rank then status lifecycle rank then status name.
func (s *Shaper) PhaseStatusCounts(raw []domain.RawPhaseStatusCount) []domain.PhaseStatusCount {
	type key struct{ phase, status string }
	merged := map[key]int{}
	for _, row := range raw {
		k := key{
			phase:  domain.CanonicalPhase(row.Phase),
			status: domain.CanonicalStatus(row.Status),
		}
		merged[k] += row.Count
	}

	out := make([]domain.PhaseStatusCount, 0, len(merged))
	for k, count := range merged {
		out = append(out, domain.PhaseStatusCount{Phase: k.phase, Status: k.status, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if pr := domain.PhaseRank(a.Phase) - domain.PhaseRank(b.Phase); pr != 0 {
			return pr < 0
		}
		if sr := domain.StatusRank(a.Status) - domain.StatusRank(b.Status); sr != 0 {
			return sr < 0
		}
		return a.Status < b.Status
	})
	return out
}

// UpcomingTrials normalizes per-trial records into feed rows ordered by
// completion date then NCT id. Records without a completion date cannot be
// placed in the window and are dropped with a warning; a negative enrollment
// clears the field for that row only.
func (s *Shaper) UpcomingTrials(records []domain.TrialRecord) []domain.UpcomingTrial {
	out := make([]domain.UpcomingTrial, 0, len(records))
	for _, rec := range records {
		if rec.PrimaryCompletion == nil {
			s.warn("trial without primary completion date in window feed", "nct_id", rec.NCTID)
			continue
		}

		trial := domain.UpcomingTrial{
			NCTID:             rec.NCTID,
			Title:             s.truncateTitle(rec.Title),
			Phase:             domain.CanonicalPhase(rec.Phase),
			Status:            domain.CanonicalStatus(rec.Status),
			PrimaryCompletion: domain.NewDate(*rec.PrimaryCompletion),
			LeadSponsor:       sponsorName(rec.LeadSponsor),
			Enrollment:        s.validEnrollment(rec),
		}
		out = append(out, trial)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].PrimaryCompletion.Equal(out[j].PrimaryCompletion.Time) {
			return out[i].PrimaryCompletion.Before(out[j].PrimaryCompletion.Time)
		}
		return out[i].NCTID < out[j].NCTID
	})
	return out
}

// InWindow reports whether a completion date falls inside the half-open run
// window [asOf, asOf+months).
func InWindow(completion, asOf time.Time, months int) bool {
	lower, upper := domain.UpcomingWindow(asOf, months)
	return !completion.Before(lower) && completion.Before(upper)
}

// SponsorPipeline groups trials by lead sponsor, ranks by study count
// descending with sponsor name ascending as the tie-break, and truncates to
// the configured top N. Median enrollment is computed over valid values only
// and omitted when a group has none.
func (s *Shaper) SponsorPipeline(records []domain.TrialRecord) []domain.SponsorPipeline {
	type group struct {
		display     string
		count       int
		enrollments []int
		soonest     *time.Time
	}

	groups := map[string]*group{}
	for _, rec := range records {
		display := sponsorName(rec.LeadSponsor)
		key := strings.ToLower(display)

		g, ok := groups[key]
		if !ok {
			g = &group{display: display}
			groups[key] = g
		}
		g.count++

		if v := s.validEnrollment(rec); v != nil {
			g.enrollments = append(g.enrollments, *v)
		}
		if rec.PrimaryCompletion != nil {
			if g.soonest == nil || rec.PrimaryCompletion.Before(*g.soonest) {
				t := *rec.PrimaryCompletion
				g.soonest = &t
			}
		}
	}

	out := make([]domain.SponsorPipeline, 0, len(groups))
	for _, g := range groups {
		row := domain.SponsorPipeline{
			Sponsor:    g.display,
			StudyCount: g.count,
		}
		if len(g.enrollments) > 0 {
			m := median(g.enrollments)
			row.MedianEnrollment = &m
		}
		if g.soonest != nil {
			d := domain.NewDate(*g.soonest)
			row.SoonestCompletion = &d
		}
		out = append(out, row)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].StudyCount != out[j].StudyCount {
			return out[i].StudyCount > out[j].StudyCount
		}
		return out[i].Sponsor < out[j].Sponsor
	})

	if s.topSponsors > 0 && len(out) > s.topSponsors {
		out = out[:s.topSponsors]
	}
	return out
}

// validEnrollment returns the enrollment value or nil when it is absent or
// out of range. Negative counts are a known AACT data-quality anomaly.
func (s *Shaper) validEnrollment(rec domain.TrialRecord) *int {
	if rec.Enrollment == nil {
		return nil
	}
	if *rec.Enrollment < 0 {
		s.warn("negative enrollment excluded", "nct_id", rec.NCTID, "enrollment", *rec.Enrollment)
		return nil
	}
	v := *rec.Enrollment
	return &v
}

func (s *Shaper) truncateTitle(title *string) string {
	if title == nil {
		return ""
	}
	t := strings.TrimSpace(*title)
	if s.titleMaxLen > 0 {
		if runes := []rune(t); len(runes) > s.titleMaxLen {
			return string(runes[:s.titleMaxLen])
		}
	}
	return t
}

func (s *Shaper) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

func sponsorName(name *string) string {
	if name == nil {
		return domain.UnknownGroup
	}
	trimmed := strings.TrimSpace(*name)
	if trimmed == "" {
		return domain.UnknownGroup
	}
	return trimmed
}

// median of a non-empty slice; even-length inputs average the middle pair.
func median(values []int) float64 {
	sorted := make([]int, len(values))
	copy(sorted, values)
	sort.Ints(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return float64(sorted[mid])
	}
	return float64(sorted[mid-1]+sorted[mid]) / 2
}
