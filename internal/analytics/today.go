package analytics

import (
	"time"

	"github.com/claude/nextrep/internal/models"
)

// PlanForToday returns the first plan scheduled on now's weekday.
func PlanForToday(records []models.Workout, now time.Time) (models.Workout, bool) {
	day := models.WeekdayOf(now.Weekday())
	for _, w := range records {
		if w.IsPlan() && w.CheckIntegrity() == nil && w.ScheduledOn(day) {
			return w, true
		}
	}
	return models.Workout{}, false
}
