package postgres

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhaseCountsQuery(t *testing.T) {
	t.Parallel()

	sql, args, err := phaseCountsQuery(false).ToSql()
	require.NoError(t, err)

	assert.Equal(t, "SELECT phase, count(*) FROM ctgov.studies GROUP BY phase", sql)
	assert.Empty(t, args)
}

func TestPhaseStatusQueryInterventionalOnly(t *testing.T) {
	t.Parallel()

	sql, args, err := phaseStatusQuery(true).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "study_type = $1")
	require.Len(t, args, 1)
	assert.Equal(t, "INTERVENTIONAL", args[0])
}

func TestUpcomingQueryWindowParams(t *testing.T) {
	t.Parallel()

	asOf := time.Date(2026, time.August, 31, 10, 30, 0, 0, time.UTC)
	sql, args, err := upcomingQuery(asOf, 12, false).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "s.primary_completion_date >= $1")
	assert.Contains(t, sql, "s.primary_completion_date < $2")
	assert.Contains(t, sql, "lead_or_collaborator = 'lead'")
	assert.Contains(t, sql, "ORDER BY s.primary_completion_date, s.nct_id")

	require.GreaterOrEqual(t, len(args), 2)
	lower, ok := args[0].(time.Time)
	require.True(t, ok)
	upper, ok := args[1].(time.Time)
	require.True(t, ok)

	assert.Equal(t, time.Date(2026, time.August, 31, 0, 0, 0, 0, time.UTC), lower)
	assert.Equal(t, time.Date(2027, time.August, 31, 0, 0, 0, 0, time.UTC), upper)

	// Active-status filter is parameterized, never inlined.
	for _, arg := range args[2:] {
		_, isString := arg.(string)
		assert.True(t, isString)
	}
	assert.NotContains(t, sql, "RECRUITING")
}

func TestSponsorTrialsQuery(t *testing.T) {
	t.Parallel()

	sql, _, err := sponsorTrialsQuery(false).ToSql()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sql, "SELECT s.nct_id, sp.name"))
	assert.Contains(t, sql, "JOIN ctgov.sponsors sp")
	assert.Contains(t, sql, "ORDER BY s.nct_id")
}
