// Package analytics derives progress views from workout history. Every
// function here is pure and safe for concurrent use.
package analytics

import "time"

// StartOfDay truncates t to local midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AddDays moves t by n calendar days and truncates to midnight. Calendar
// arithmetic keeps DST transitions from shifting the result off midnight.
func AddDays(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+n, 0, 0, 0, 0, t.Location())
}

type calendarDay struct {
	year int
	day  int
}

func dayOf(t time.Time, loc *time.Location) calendarDay {
	t = t.In(loc)
	return calendarDay{year: t.Year(), day: t.YearDay()}
}
