package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsDateEligible(t *testing.T) {
	today := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		candidate string
		lead      int
		want      bool
	}{
		{name: "exactly at lead", candidate: "2026-03-06", lead: 5, want: true},
		{name: "one day early", candidate: "2026-03-05", lead: 5, want: false},
		{name: "well ahead", candidate: "2026-04-20", lead: 5, want: true},
		{name: "zero lead allows today", candidate: "2026-03-01", lead: 0, want: true},
		{name: "past date", candidate: "2026-02-27", lead: 0, want: false},
		{name: "unparseable", candidate: "03/06/2026", lead: 5, want: false},
		{name: "impossible day", candidate: "2026-02-30", lead: 0, want: false},
		{name: "empty", candidate: "", lead: 0, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsDateEligible(tc.candidate, tc.lead, today))
		})
	}
}

func TestIsDateEligible_IgnoresTimeOfDay(t *testing.T) {
	lateEvening := time.Date(2026, time.March, 1, 23, 59, 0, 0, time.UTC)
	assert.True(t, IsDateEligible("2026-03-06", 5, lateEvening))

	// calendar day is taken in the clock's own location
	colombo := time.FixedZone("UTC+5:30", 5*3600+1800)
	earlyLocal := time.Date(2026, time.March, 2, 1, 0, 0, 0, colombo)
	assert.False(t, IsDateEligible("2026-03-06", 5, earlyLocal))
	assert.True(t, IsDateEligible("2026-03-07", 5, earlyLocal))
}

func TestEarliestEligibleDate(t *testing.T) {
	today := time.Date(2026, time.February, 26, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-03-03", EarliestEligibleDate(5, today))
	assert.Equal(t, "2026-02-26", EarliestEligibleDate(0, today))
}

func TestIsInSameWeekAsAnyPending(t *testing.T) {
	cases := []struct {
		name      string
		candidate string
		pending   []string
		want      bool
	}{
		{name: "no pending", candidate: "2026-03-04", pending: nil, want: true},
		{name: "same week", candidate: "2026-03-04", pending: []string{"2026-03-02"}, want: true},
		{name: "sunday closes the week", candidate: "2026-03-08", pending: []string{"2026-03-02"}, want: true},
		{name: "following monday", candidate: "2026-03-09", pending: []string{"2026-03-02"}, want: false},
		{name: "matches any entry", candidate: "2026-03-10", pending: []string{"2026-03-02", "2026-03-11"}, want: true},
		{name: "same week number other year", candidate: "2027-03-03", pending: []string{"2026-03-04"}, want: false},
		{name: "year boundary splits a monday week", candidate: "2027-01-01", pending: []string{"2026-12-29"}, want: false},
		{name: "last week of the year", candidate: "2026-12-31", pending: []string{"2026-12-28"}, want: true},
		{name: "bad candidate", candidate: "nope", pending: []string{"2026-03-02"}, want: false},
		{name: "bad pending entries skipped", candidate: "2026-03-04", pending: []string{"garbage", "2026-03-03"}, want: true},
		{name: "only bad pending entries", candidate: "2026-03-04", pending: []string{"garbage"}, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsInSameWeekAsAnyPending(tc.candidate, tc.pending))
		})
	}
}

func TestWeekOfYear(t *testing.T) {
	cases := []struct {
		date string
		year int
		week int
	}{
		{date: "2026-01-01", year: 2026, week: 1}, // Thursday
		{date: "2026-01-04", year: 2026, week: 1}, // Sunday
		{date: "2026-01-05", year: 2026, week: 2}, // Monday
		{date: "2026-03-02", year: 2026, week: 10},
		{date: "2026-03-09", year: 2026, week: 11},
		{date: "2026-12-29", year: 2026, week: 53},
		{date: "2027-01-01", year: 2027, week: 1}, // Friday
		{date: "2024-01-01", year: 2024, week: 1}, // Monday
		{date: "2024-01-07", year: 2024, week: 1},
		{date: "2024-01-08", year: 2024, week: 2},
		{date: "2023-01-01", year: 2023, week: 1}, // Sunday
		{date: "2023-01-02", year: 2023, week: 2},
	}
	for _, tc := range cases {
		date, ok := ParseDate(tc.date)
		require.True(t, ok, tc.date)
		year, week := weekOfYear(date)
		assert.Equal(t, tc.year, year, tc.date)
		assert.Equal(t, tc.week, week, tc.date)
	}
}

func TestConflictRule(t *testing.T) {
	rule, err := ParseConflictRule("same_week")
	require.NoError(t, err)
	assert.Equal(t, ConflictSameWeek, rule)
	assert.True(t, rule.Allows("2026-03-04", []string{"2026-03-02"}))
	assert.False(t, rule.Allows("2026-03-09", []string{"2026-03-02"}))

	rule, err = ParseConflictRule("single_pending")
	require.NoError(t, err)
	assert.True(t, rule.Allows("2026-03-04", nil))
	assert.False(t, rule.Allows("2026-03-04", []string{"2026-03-02"}))

	_, err = ParseConflictRule("weekly")
	assert.Error(t, err)
}
