// Package scheduling holds the booking rules: date eligibility, weekly
// conflict detection, specialist selection and the appointment lifecycle.
// Everything here is pure; callers supply the clock and the data.
package scheduling

import (
	"fmt"
	"time"
)

// DateLayout is the wire format of appointment dates.
const DateLayout = "2006-01-02"

// ParseDate parses a calendar date in DateLayout.
func ParseDate(val string) (time.Time, bool) {
	parsed, err := time.Parse(DateLayout, val)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// IsDateEligible reports whether candidate falls on or after today plus
// minimumLeadDays. Only the calendar day of today is considered. An
// unparseable candidate is never eligible.
func IsDateEligible(candidate string, minimumLeadDays int, today time.Time) bool {
	date, ok := ParseDate(candidate)
	if !ok {
		return false
	}
	return !date.Before(earliestDate(minimumLeadDays, today))
}

// EarliestEligibleDate formats the first date IsDateEligible accepts.
func EarliestEligibleDate(minimumLeadDays int, today time.Time) string {
	return earliestDate(minimumLeadDays, today).Format(DateLayout)
}

func earliestDate(minimumLeadDays int, today time.Time) time.Time {
	return calendarDay(today).AddDate(0, 0, minimumLeadDays)
}

// IsInSameWeekAsAnyPending reports whether candidate shares week number and
// year with one of the pending dates. Weeks start on Monday and week 1 is the
// week containing January 1. An empty pending list never conflicts.
func IsInSameWeekAsAnyPending(candidate string, pendingDates []string) bool {
	if len(pendingDates) == 0 {
		return true
	}
	date, ok := ParseDate(candidate)
	if !ok {
		return false
	}
	year, week := weekOfYear(date)
	for _, raw := range pendingDates {
		pending, ok := ParseDate(raw)
		if !ok {
			continue
		}
		pendingYear, pendingWeek := weekOfYear(pending)
		if pendingYear == year && pendingWeek == week {
			return true
		}
	}
	return false
}

// ConflictRule selects how existing pending appointments restrict a new booking.
type ConflictRule string

const (
	// ConflictSameWeek allows extra bookings only inside the week of a pending one.
	ConflictSameWeek ConflictRule = "same_week"
	// ConflictSinglePending allows at most one pending appointment per customer.
	ConflictSinglePending ConflictRule = "single_pending"
)

// ParseConflictRule validates a configured rule name.
func ParseConflictRule(val string) (ConflictRule, error) {
	switch ConflictRule(val) {
	case ConflictSameWeek, ConflictSinglePending:
		return ConflictRule(val), nil
	default:
		return "", fmt.Errorf("unknown conflict rule %q", val)
	}
}

// Allows reports whether candidate may be booked given the customer's pending dates.
func (r ConflictRule) Allows(candidate string, pendingDates []string) bool {
	switch r {
	case ConflictSinglePending:
		return len(pendingDates) == 0
	case ConflictSameWeek:
		return IsInSameWeekAsAnyPending(candidate, pendingDates)
	default:
		return false
	}
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func weekOfYear(t time.Time) (int, int) {
	jan1 := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	// days between the Monday that starts week 1 and January 1
	offset := (int(jan1.Weekday()) + 6) % 7
	return t.Year(), (t.YearDay()-1+offset)/7 + 1
}
