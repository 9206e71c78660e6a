package aggregate

import (
	"testing"
	"time"

	"TrialFeeds/internal/domain"
	"TrialFeeds/internal/logging"
)

func newTestShaper() *Shaper {
	return NewShaper(logging.New("error", "text"), 50, 120)
}

func strPtr(s string) *string { return &s }

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func TestPhaseCountsSentinelAndTotal(t *testing.T) {
	t.Parallel()

	// Three trials: two Phase 1 (different raw spellings), one null phase.
	raw := []domain.RawPhaseCount{
		{Phase: strPtr("Phase 1"), Count: 1},
		{Phase: strPtr("PHASE1"), Count: 1},
		{Phase: nil, Count: 1},
	}

	rows := newTestShaper().PhaseCounts(raw)

	if len(rows) != 2 {
		t.Fatalf("expected 2 buckets, got %d: %v", len(rows), rows)
	}
	if rows[0].Phase != "Phase 1" || rows[0].Count != 2 {
		t.Fatalf("unexpected first bucket: %+v", rows[0])
	}
	if rows[1].Phase != "Unknown" || rows[1].Count != 1 {
		t.Fatalf("unexpected sentinel bucket: %+v", rows[1])
	}

	total := 0
	for _, row := range rows {
		total += row.Count
	}
	if total != 3 {
		t.Fatalf("counts must sum to eligible rows: got %d, want 3", total)
	}
}

func TestPhaseCountsOrdering(t *testing.T) {
	t.Parallel()

	raw := []domain.RawPhaseCount{
		{Phase: nil, Count: 5},
		{Phase: strPtr("PHASE3"), Count: 7},
		{Phase: strPtr("EARLY_PHASE1"), Count: 2},
	}

	rows := newTestShaper().PhaseCounts(raw)

	want := []string{"Early Phase 1", "Phase 3", "Unknown"}
	for i, phase := range want {
		if rows[i].Phase != phase {
			t.Fatalf("row %d = %q, want %q", i, rows[i].Phase, phase)
		}
	}
}

func TestPhaseStatusMerge(t *testing.T) {
	t.Parallel()

	raw := []domain.RawPhaseStatusCount{
		{Phase: strPtr("PHASE2"), Status: strPtr("RECRUITING"), Count: 3},
		{Phase: strPtr("Phase 2"), Status: strPtr("Recruiting"), Count: 2},
		{Phase: strPtr("PHASE2"), Status: nil, Count: 1},
	}

	rows := newTestShaper().PhaseStatusCounts(raw)

	if len(rows) != 2 {
		t.Fatalf("expected 2 cells, got %d: %v", len(rows), rows)
	}
	if rows[0].Phase != "Phase 2" || rows[0].Status != "Recruiting" || rows[0].Count != 5 {
		t.Fatalf("spellings not merged: %+v", rows[0])
	}
	if rows[1].Status != "Unknown" || rows[1].Count != 1 {
		t.Fatalf("null status not bucketed: %+v", rows[1])
	}
}

func TestUpcomingTrialsShaping(t *testing.T) {
	t.Parallel()

	later := time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)
	sooner := time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)

	records := []domain.TrialRecord{
		{
			NCTID:             "NCT002",
			Title:             strPtr("  Second study  "),
			Phase:             strPtr("PHASE2"),
			Status:            strPtr("RECRUITING"),
			LeadSponsor:       nil,
			Enrollment:        intPtr(-5),
			PrimaryCompletion: timePtr(later),
		},
		{
			NCTID:             "NCT001",
			Title:             strPtr("First study"),
			Phase:             strPtr("Phase 1"),
			Status:            strPtr("Recruiting"),
			LeadSponsor:       strPtr("Acme Pharma"),
			Enrollment:        intPtr(100),
			PrimaryCompletion: timePtr(sooner),
		},
		{
			NCTID: "NCT003", // no completion date: cannot be windowed
		},
	}

	rows := newTestShaper().UpcomingTrials(records)

	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].NCTID != "NCT001" || rows[1].NCTID != "NCT002" {
		t.Fatalf("not ordered by completion date: %v", rows)
	}
	if rows[0].Title != "First study" || rows[1].Title != "Second study" {
		t.Fatalf("titles not trimmed: %v", rows)
	}
	if rows[1].LeadSponsor != "Unknown" {
		t.Fatalf("null sponsor should bucket to Unknown, got %q", rows[1].LeadSponsor)
	}
	if rows[1].Enrollment != nil {
		t.Fatalf("negative enrollment must be cleared, got %d", *rows[1].Enrollment)
	}
	if rows[0].Enrollment == nil || *rows[0].Enrollment != 100 {
		t.Fatalf("valid enrollment lost: %v", rows[0].Enrollment)
	}
}

func TestUpcomingTitleTruncation(t *testing.T) {
	t.Parallel()

	long := make([]rune, 200)
	for i := range long {
		long[i] = 'x'
	}
	title := string(long)
	completion := time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)

	rows := newTestShaper().UpcomingTrials([]domain.TrialRecord{
		{NCTID: "NCT001", Title: &title, PrimaryCompletion: timePtr(completion)},
	})

	if len(rows[0].Title) != 120 {
		t.Fatalf("expected title capped at 120 runes, got %d", len(rows[0].Title))
	}
}

func TestInWindowBoundaries(t *testing.T) {
	t.Parallel()

	asOf := time.Date(2026, time.August, 31, 0, 0, 0, 0, time.UTC)
	upper := asOf.AddDate(0, 12, 0)

	if !InWindow(asOf, asOf, 12) {
		t.Fatalf("lower bound must be inclusive")
	}
	if InWindow(upper, asOf, 12) {
		t.Fatalf("upper bound must be exclusive")
	}
	if InWindow(asOf.AddDate(0, 0, -1), asOf, 12) {
		t.Fatalf("day before as-of must be outside the window")
	}
	if !InWindow(upper.AddDate(0, 0, -1), asOf, 12) {
		t.Fatalf("day before the upper bound must be inside the window")
	}
}

func TestSponsorPipelineRanking(t *testing.T) {
	t.Parallel()

	var records []domain.TrialRecord
	addTrials := func(sponsor string, n int) {
		for i := 0; i < n; i++ {
			records = append(records, domain.TrialRecord{
				NCTID:       "NCT",
				LeadSponsor: strPtr(sponsor),
			})
		}
	}
	addTrials("Beta Biotech", 3)
	addTrials("Acme Pharma", 3)
	addTrials("Zeta Labs", 5)

	rows := newTestShaper().SponsorPipeline(records)

	if len(rows) != 3 {
		t.Fatalf("expected 3 sponsors, got %d", len(rows))
	}
	if rows[0].Sponsor != "Zeta Labs" || rows[0].StudyCount != 5 {
		t.Fatalf("expected Zeta Labs first: %+v", rows[0])
	}
	// Tie on 3 studies: name ascending.
	if rows[1].Sponsor != "Acme Pharma" || rows[2].Sponsor != "Beta Biotech" {
		t.Fatalf("tie-break by name failed: %v", rows)
	}
}

func TestSponsorPipelineTopN(t *testing.T) {
	t.Parallel()

	shaper := NewShaper(logging.New("error", "text"), 2, 120)

	records := []domain.TrialRecord{
		{NCTID: "1", LeadSponsor: strPtr("A")},
		{NCTID: "2", LeadSponsor: strPtr("B")},
		{NCTID: "3", LeadSponsor: strPtr("C")},
	}

	rows := shaper.SponsorPipeline(records)
	if len(rows) != 2 {
		t.Fatalf("expected truncation to top 2, got %d", len(rows))
	}

	// Fewer sponsors than the cap: no padding.
	rows = shaper.SponsorPipeline(records[:1])
	if len(rows) != 1 {
		t.Fatalf("expected 1 sponsor without padding, got %d", len(rows))
	}
}

func TestSponsorPipelineMedian(t *testing.T) {
	t.Parallel()

	completion := time.Date(2027, time.January, 10, 0, 0, 0, 0, time.UTC)
	earlier := time.Date(2026, time.November, 2, 0, 0, 0, 0, time.UTC)

	records := []domain.TrialRecord{
		{NCTID: "1", LeadSponsor: strPtr("Acme"), Enrollment: intPtr(10), PrimaryCompletion: timePtr(completion)},
		{NCTID: "2", LeadSponsor: strPtr("Acme"), Enrollment: intPtr(30), PrimaryCompletion: timePtr(earlier)},
		{NCTID: "3", LeadSponsor: strPtr("Acme"), Enrollment: intPtr(20)},
		{NCTID: "4", LeadSponsor: strPtr("Acme"), Enrollment: nil},
		{NCTID: "5", LeadSponsor: strPtr("Acme"), Enrollment: intPtr(-1)},
		{NCTID: "6", LeadSponsor: strPtr("NullCo")},
	}

	rows := newTestShaper().SponsorPipeline(records)

	acme := rows[0]
	if acme.Sponsor != "Acme" || acme.StudyCount != 5 {
		t.Fatalf("unexpected group: %+v", acme)
	}
	// Median over {10, 20, 30}: nulls and the negative value excluded.
	if acme.MedianEnrollment == nil || *acme.MedianEnrollment != 20 {
		t.Fatalf("unexpected median: %v", acme.MedianEnrollment)
	}
	if acme.SoonestCompletion == nil || !acme.SoonestCompletion.Equal(earlier) {
		t.Fatalf("unexpected soonest completion: %v", acme.SoonestCompletion)
	}

	nullco := rows[1]
	if nullco.MedianEnrollment != nil {
		t.Fatalf("all-null group must omit the median, got %v", *nullco.MedianEnrollment)
	}
	if nullco.SoonestCompletion != nil {
		t.Fatalf("all-null group must omit soonest completion")
	}
}

func TestSponsorPipelineEvenMedian(t *testing.T) {
	t.Parallel()

	records := []domain.TrialRecord{
		{NCTID: "1", LeadSponsor: strPtr("Acme"), Enrollment: intPtr(10)},
		{NCTID: "2", LeadSponsor: strPtr("Acme"), Enrollment: intPtr(20)},
	}

	rows := newTestShaper().SponsorPipeline(records)
	if rows[0].MedianEnrollment == nil || *rows[0].MedianEnrollment != 15 {
		t.Fatalf("even-length median should average the middle pair: %v", rows[0].MedianEnrollment)
	}
}

func TestSponsorGroupingCaseNormalized(t *testing.T) {
	t.Parallel()

	records := []domain.TrialRecord{
		{NCTID: "1", LeadSponsor: strPtr("Acme Pharma")},
		{NCTID: "2", LeadSponsor: strPtr("ACME PHARMA")},
		{NCTID: "3", LeadSponsor: strPtr(" Acme Pharma ")},
	}

	rows := newTestShaper().SponsorPipeline(records)
	if len(rows) != 1 {
		t.Fatalf("case variants must group together, got %d groups", len(rows))
	}
	if rows[0].StudyCount != 3 {
		t.Fatalf("expected 3 studies in merged group, got %d", rows[0].StudyCount)
	}
}
