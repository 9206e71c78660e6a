package domain

import "strings"

// UnknownGroup is the sentinel bucket for null or unmappable grouping keys.
// Rows land here instead of being dropped so feed totals stay reconcilable.
const UnknownGroup = "Unknown"

// Canonical phase labels in presentation order. Unknown sorts last.
var phaseOrder = []string{
	"Early Phase 1",
	"Phase 1",
	"Phase 1/2",
	"Phase 2",
	"Phase 2/3",
	"Phase 3",
	"Phase 4",
	"Not Applicable",
	UnknownGroup,
}

// phaseAliases maps every raw AACT spelling (legacy and API v2 enum) to its
// canonical label. Keys are upper-cased trimmed forms.
var phaseAliases = map[string]string{
	"EARLY PHASE 1":   "Early Phase 1",
	"EARLY_PHASE1":    "Early Phase 1",
	"EARLY_PHASE_1":   "Early Phase 1",
	"PHASE 1":         "Phase 1",
	"PHASE1":          "Phase 1",
	"PHASE_1":         "Phase 1",
	"PHASE 1/PHASE 2": "Phase 1/2",
	"PHASE1/PHASE2":   "Phase 1/2",
	"PHASE1_PHASE2":   "Phase 1/2",
	"PHASE1_2":        "Phase 1/2",
	"PHASE_1_2":       "Phase 1/2",
	"PHASE 2":         "Phase 2",
	"PHASE2":          "Phase 2",
	"PHASE_2":         "Phase 2",
	"PHASE 2/PHASE 3": "Phase 2/3",
	"PHASE2/PHASE3":   "Phase 2/3",
	"PHASE2_PHASE3":   "Phase 2/3",
	"PHASE2_3":        "Phase 2/3",
	"PHASE_2_3":       "Phase 2/3",
	"PHASE 3":         "Phase 3",
	"PHASE3":          "Phase 3",
	"PHASE_3":         "Phase 3",
	"PHASE 4":         "Phase 4",
	"PHASE4":          "Phase 4",
	"PHASE_4":         "Phase 4",
	"NA":              "Not Applicable",
	"NOT_APPLICABLE":  "Not Applicable",
	"NOT APPLICABLE":  "Not Applicable",
}

// CanonicalPhase maps a raw phase value to its canonical label. Null, empty,
// and unrecognized values land in the Unknown bucket.
func CanonicalPhase(raw *string) string {
	if raw == nil {
		return UnknownGroup
	}
	key := strings.ToUpper(strings.TrimSpace(*raw))
	if key == "" {
		return UnknownGroup
	}
	if canonical, ok := phaseAliases[key]; ok {
		return canonical
	}
	return UnknownGroup
}

// PhaseOrder returns the canonical presentation ordering.
func PhaseOrder() []string {
	out := make([]string, len(phaseOrder))
	copy(out, phaseOrder)
	return out
}

// PhaseRank positions a canonical phase for deterministic sorting.
func PhaseRank(phase string) int {
	for i, p := range phaseOrder {
		if p == phase {
			return i
		}
	}
	return len(phaseOrder)
}

// Status labels ordered by trial lifecycle; Unknown sorts last.
var statusOrder = []string{
	"Not yet recruiting",
	"Recruiting",
	"Enrolling by invitation",
	"Active, not recruiting",
	"Suspended",
	"Completed",
	"Terminated",
	"Withdrawn",
	UnknownGroup,
}

var statusAliases = map[string]string{
	"NOT_YET_RECRUITING":      "Not yet recruiting",
	"NOT YET RECRUITING":      "Not yet recruiting",
	"RECRUITING":              "Recruiting",
	"ENROLLING_BY_INVITATION": "Enrolling by invitation",
	"ENROLLING BY INVITATION": "Enrolling by invitation",
	"ACTIVE_NOT_RECRUITING":   "Active, not recruiting",
	"ACTIVE, NOT RECRUITING":  "Active, not recruiting",
	"SUSPENDED":               "Suspended",
	"COMPLETED":               "Completed",
	"TERMINATED":              "Terminated",
	"WITHDRAWN":               "Withdrawn",
	"UNKNOWN":                 UnknownGroup,
	"UNKNOWN STATUS":          UnknownGroup,
}

// CanonicalStatus maps a raw overall_status value to its display label.
// Unrecognized spellings are kept trimmed rather than bucketed; only null and
// empty collapse to Unknown.
func CanonicalStatus(raw *string) string {
	if raw == nil {
		return UnknownGroup
	}
	trimmed := strings.TrimSpace(*raw)
	if trimmed == "" {
		return UnknownGroup
	}
	if canonical, ok := statusAliases[strings.ToUpper(trimmed)]; ok {
		return canonical
	}
	return trimmed
}

// StatusRank positions a status for deterministic sorting; spellings outside
// the lifecycle ordering sort between Withdrawn and Unknown by name.
func StatusRank(status string) int {
	for i, s := range statusOrder {
		if s == status {
			return i
		}
	}
	return len(statusOrder) - 1
}

// ActiveStatusSpellings lists every raw spelling of the statuses that count
// as active for the upcoming-completions window. Both AACT generations are
// included so the filter survives source schema migrations.
func ActiveStatusSpellings() []string {
	return []string{
		"Recruiting", "RECRUITING",
		"Active, not recruiting", "ACTIVE_NOT_RECRUITING",
		"Enrolling by invitation", "ENROLLING_BY_INVITATION",
	}
}
