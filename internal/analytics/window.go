package analytics

import (
	"time"

	"github.com/claude/nextrep/internal/models"
)

// BestVolumeInWindow returns the largest single-set volume of the named
// exercise among completed records whose completion time lies in
// [start, end]. Only sets with both weight and reps entered count. It
// returns 0 when nothing matches.
func BestVolumeInWindow(exerciseName string, history []models.Workout, start, end time.Time) float64 {
	var (
		best  float64
		found bool
	)
	for _, w := range history {
		if !inWindow(w, start, end) {
			continue
		}
		for _, ex := range w.Exercises {
			if ex.Name != exerciseName {
				continue
			}
			for _, s := range ex.Sets {
				if !s.Eligible() {
					continue
				}
				if v := s.Volume(); !found || v > best {
					best, found = v, true
				}
			}
		}
	}
	return best
}

func inWindow(w models.Workout, start, end time.Time) bool {
	if !w.IsSession() {
		return false
	}
	at := *w.CompletedAt
	return !at.Before(start) && !at.After(end)
}
