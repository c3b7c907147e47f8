package analytics

import (
	"time"

	"github.com/claude/nextrep/internal/models"
)

// Streak counts consecutive days of adherence ending today, walking backward
// one calendar day at a time:
//
//   - a day with a completed session adds one,
//   - a scheduled day without a session ends the streak, unless it is today,
//   - a day no plan is scheduled on is a rest day and is skipped.
//
// Scheduled days are the union over all records. The walk has no fixed
// length; it stops at the earliest completed day since nothing before it can
// add to the count.
func Streak(records []models.Workout, today time.Time) int {
	loc := today.Location()
	scheduled := make(map[models.Weekday]bool)
	completed := make(map[calendarDay]bool)
	var earliest time.Time
	for _, w := range records {
		for _, d := range w.ScheduledDays {
			scheduled[d] = true
		}
		if !w.IsSession() {
			continue
		}
		at := StartOfDay(w.CompletedAt.In(loc))
		completed[dayOf(at, loc)] = true
		if earliest.IsZero() || at.Before(earliest) {
			earliest = at
		}
	}
	if len(completed) == 0 {
		return 0
	}

	start := StartOfDay(today)
	streak := 0
	for i := 0; ; i++ {
		day := AddDays(start, -i)
		if day.Before(earliest) {
			break
		}
		if completed[dayOf(day, loc)] {
			streak++
			continue
		}
		if scheduled[models.WeekdayOf(day.Weekday())] && i > 0 {
			break
		}
	}
	return streak
}
