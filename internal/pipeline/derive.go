package pipeline

import (
	"time"

	"github.com/claude/nextrep/internal/analytics"
	"github.com/claude/nextrep/internal/models"
)

// Views is everything derived from one snapshot.
type Views struct {
	Plans  []models.Workout         `json:"plans"`
	Streak int                      `json:"streak"`
	Cards  []analytics.ProgressCard `json:"cards"`
	Weekly []analytics.ChartPoint   `json:"weekly"`
}

// State pairs a snapshot with the views derived from it.
type State struct {
	Records []models.Workout `json:"-"`
	// Day is the local midnight of the day the views were derived for.
	Day time.Time `json:"-"`
	Views
}

// Derive recomputes every view from records. Records that fail
// CheckIntegrity are left out. It is pure and deterministic for a given
// records and now.
func Derive(records []models.Workout, now time.Time) Views {
	valid := records
	if len(Violations(records)) > 0 {
		valid = make([]models.Workout, 0, len(records))
		for _, w := range records {
			if w.CheckIntegrity() == nil {
				valid = append(valid, w)
			}
		}
	}

	plans := make([]models.Workout, 0, len(valid))
	for _, w := range valid {
		if w.IsPlan() {
			plans = append(plans, w)
		}
	}
	return Views{
		Plans:  plans,
		Streak: analytics.Streak(valid, now),
		Cards:  analytics.ComparisonCards(valid, now),
		Weekly: analytics.WeeklyChart(valid, now),
	}
}

// Violations returns the integrity error of every inconsistent record.
func Violations(records []models.Workout) []error {
	var errs []error
	for _, w := range records {
		if err := w.CheckIntegrity(); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
