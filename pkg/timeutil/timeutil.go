// Package timeutil provides day-granularity time utilities for the progression
// engine. Streaks and daily challenges compare dates with the time component
// stripped, always in UTC, so that "one day" means one calendar day regardless
// of the server timezone.
// No external dependencies - uses only standard library.
package timeutil

import (
	"time"
)

// DateLayout is the canonical date format used for challenge dates and
// streak bookkeeping.
const DateLayout = "2006-01-02"

// Now returns the current time in UTC.
func Now() time.Time {
	return time.Now().UTC()
}

// Today returns the start of the current day (00:00:00 UTC).
func Today() time.Time {
	return StartOfDay(Now())
}

// StartOfDay returns the start of the day (00:00:00) in UTC.
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the end of the day (23:59:59.999999999) in UTC.
func EndOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 23, 59, 59, 999999999, time.UTC)
}

// Date creates a UTC time at midnight for the given date.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// IsSameDay checks if two times fall on the same UTC calendar day.
func IsSameDay(t1, t2 time.Time) bool {
	u1, u2 := t1.UTC(), t2.UTC()
	return u1.Year() == u2.Year() &&
		u1.Month() == u2.Month() &&
		u1.Day() == u2.Day()
}

// IsToday checks if the given time is today in UTC.
func IsToday(t time.Time) bool {
	return IsSameDay(t, Now())
}

// IsYesterday checks if the given time was yesterday in UTC.
func IsYesterday(t time.Time) bool {
	return IsSameDay(t, Now().AddDate(0, 0, -1))
}

// DayDiff returns the number of whole calendar days from earlier to later.
// Both times are truncated to day boundaries first, so 23:59 -> 00:01 the
// next day still counts as one day. Negative when later precedes earlier.
func DayDiff(earlier, later time.Time) int {
	e := StartOfDay(earlier)
	l := StartOfDay(later)
	return int(l.Sub(e).Hours() / 24)
}

// IsConsecutiveDay checks if t2 is exactly one calendar day after t1.
func IsConsecutiveDay(t1, t2 time.Time) bool {
	return DayDiff(t1, t2) == 1
}

// DaysSince returns the number of whole calendar days since the given time.
func DaysSince(t time.Time) int {
	return DayDiff(t, Now())
}

// FormatDate formats a time as a date string (YYYY-MM-DD) in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD date string into a UTC midnight time.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, time.UTC)
}
