package domain

import (
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func TestCanonicalPhase(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  *string
		want string
	}{
		{nil, "Unknown"},
		{strPtr(""), "Unknown"},
		{strPtr("  "), "Unknown"},
		{strPtr("Phase 1"), "Phase 1"},
		{strPtr("PHASE1"), "Phase 1"},
		{strPtr("phase_1"), "Phase 1"},
		{strPtr("Phase 1/Phase 2"), "Phase 1/2"},
		{strPtr("PHASE1_PHASE2"), "Phase 1/2"},
		{strPtr("PHASE2/PHASE3"), "Phase 2/3"},
		{strPtr("EARLY_PHASE1"), "Early Phase 1"},
		{strPtr("early phase 1"), "Early Phase 1"},
		{strPtr("NA"), "Not Applicable"},
		{strPtr("Not Applicable"), "Not Applicable"},
		{strPtr("Phase 5"), "Unknown"},
		{strPtr("garbage"), "Unknown"},
	}

	for _, tc := range cases {
		got := CanonicalPhase(tc.raw)
		if got != tc.want {
			raw := "<nil>"
			if tc.raw != nil {
				raw = *tc.raw
			}
			t.Fatalf("CanonicalPhase(%q) = %q, want %q", raw, got, tc.want)
		}
	}
}

func TestPhaseRankOrdering(t *testing.T) {
	t.Parallel()

	order := PhaseOrder()
	for i := 1; i < len(order); i++ {
		if PhaseRank(order[i-1]) >= PhaseRank(order[i]) {
			t.Fatalf("phase order not strictly increasing at %q", order[i])
		}
	}

	if PhaseRank("Unknown") != len(order)-1 {
		t.Fatalf("Unknown must rank last, got %d", PhaseRank("Unknown"))
	}
}

func TestCanonicalStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  *string
		want string
	}{
		{nil, "Unknown"},
		{strPtr(""), "Unknown"},
		{strPtr("RECRUITING"), "Recruiting"},
		{strPtr("Recruiting"), "Recruiting"},
		{strPtr("ACTIVE_NOT_RECRUITING"), "Active, not recruiting"},
		{strPtr("Active, not recruiting"), "Active, not recruiting"},
		{strPtr("ENROLLING_BY_INVITATION"), "Enrolling by invitation"},
		{strPtr("Unknown status"), "Unknown"},
		{strPtr("Some Future Status"), "Some Future Status"},
	}

	for _, tc := range cases {
		if got := CanonicalStatus(tc.raw); got != tc.want {
			t.Fatalf("CanonicalStatus(%v) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestUpcomingWindowBounds(t *testing.T) {
	t.Parallel()

	asOf := time.Date(2026, time.March, 15, 13, 45, 0, 0, time.UTC)
	lower, upper := UpcomingWindow(asOf, 12)

	if !lower.Equal(time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("lower bound not truncated to day: %v", lower)
	}
	if !upper.Equal(time.Date(2027, time.March, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("upper bound not 12 months out: %v", upper)
	}

	// Half-open semantics: lower in, upper out.
	if lower.Before(lower) || !lower.Before(upper) {
		t.Fatalf("window [%v, %v) is degenerate", lower, upper)
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	t.Parallel()

	d := NewDate(time.Date(2026, time.August, 31, 17, 0, 0, 0, time.UTC))
	raw, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal date: %v", err)
	}
	if string(raw) != `"2026-08-31"` {
		t.Fatalf("unexpected date encoding: %s", raw)
	}

	var back Date
	if err := back.UnmarshalJSON(raw); err != nil {
		t.Fatalf("unmarshal date: %v", err)
	}
	if !back.Equal(d.Time) {
		t.Fatalf("round trip mismatch: %v != %v", back, d)
	}
}

func TestArtifactNames(t *testing.T) {
	t.Parallel()

	names := ArtifactNames()
	want := []string{
		"counts_by_phase.json",
		"phase_status.json",
		"upcoming_12m.json",
		"sponsor_pipeline_top50.json",
		"counts_by_phase.html",
		"index.html",
	}
	if len(names) != len(want) {
		t.Fatalf("expected %d artifact names, got %d", len(want), len(names))
	}
	for i, name := range want {
		if names[i] != name {
			t.Fatalf("artifact %d = %q, want %q", i, names[i], name)
		}
	}
}
