package postgres

import (
	"time"

	sq "github.com/Masterminds/squirrel"

	"TrialFeeds/internal/domain"
)

// All catalog queries are assembled structurally; no query text is ever
// concatenated from input. The only run-dependent parameter is as_of_date.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func phaseCountsQuery(interventionalOnly bool) sq.SelectBuilder {
	b := psql.Select("phase", "count(*)").
		From("ctgov.studies").
		GroupBy("phase")
	return withStudyType(b, interventionalOnly)
}

func phaseStatusQuery(interventionalOnly bool) sq.SelectBuilder {
	b := psql.Select("phase", "overall_status", "count(*)").
		From("ctgov.studies").
		GroupBy("phase", "overall_status")
	return withStudyType(b, interventionalOnly)
}

func upcomingQuery(asOf time.Time, horizonMonths int, interventionalOnly bool) sq.SelectBuilder {
	lower, upper := domain.UpcomingWindow(asOf, horizonMonths)

	b := psql.Select(
		"s.nct_id",
		"s.brief_title",
		"s.phase",
		"s.overall_status",
		"sp.name",
		"s.enrollment",
		"s.primary_completion_date",
	).
		From("ctgov.studies s").
		LeftJoin("ctgov.sponsors sp ON sp.nct_id = s.nct_id AND sp.lead_or_collaborator = 'lead'").
		Where(sq.GtOrEq{"s.primary_completion_date": lower}).
		Where(sq.Lt{"s.primary_completion_date": upper}).
		Where(sq.Eq{"s.overall_status": domain.ActiveStatusSpellings()}).
		OrderBy("s.primary_completion_date", "s.nct_id")
	return withStudyType(b, interventionalOnly, "s.study_type")
}

func sponsorTrialsQuery(interventionalOnly bool) sq.SelectBuilder {
	b := psql.Select(
		"s.nct_id",
		"sp.name",
		"s.enrollment",
		"s.primary_completion_date",
	).
		From("ctgov.studies s").
		Join("ctgov.sponsors sp ON sp.nct_id = s.nct_id AND sp.lead_or_collaborator = 'lead'").
		OrderBy("s.nct_id")
	return withStudyType(b, interventionalOnly, "s.study_type")
}

func withStudyType(b sq.SelectBuilder, interventionalOnly bool, column ...string) sq.SelectBuilder {
	if !interventionalOnly {
		return b
	}
	col := "study_type"
	if len(column) > 0 {
		col = column[0]
	}
	return b.Where(sq.Eq{col: "INTERVENTIONAL"})
}
