package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/claude/nextrep/internal/models"
)

// workoutRow is the column layout shared by the SQL stores. Scheduled days
// and exercises are JSON documents.
type workoutRow struct {
	ID             string
	Name           string
	DayDescription string
	ScheduledDays  string
	Exercises      string
	Completed      bool
	TotalScore     float64
	CompletedAt    *time.Time
}

func encodeWorkout(w models.Workout) (workoutRow, error) {
	days := w.ScheduledDays
	if days == nil {
		days = []models.Weekday{}
	}
	daysJSON, err := json.Marshal(days)
	if err != nil {
		return workoutRow{}, fmt.Errorf("encoding scheduled days of %s: %w", w.ID, err)
	}
	exercises := w.Exercises
	if exercises == nil {
		exercises = []models.Exercise{}
	}
	exJSON, err := json.Marshal(exercises)
	if err != nil {
		return workoutRow{}, fmt.Errorf("encoding exercises of %s: %w", w.ID, err)
	}
	return workoutRow{
		ID:             w.ID,
		Name:           w.Name,
		DayDescription: w.DayDescription,
		ScheduledDays:  string(daysJSON),
		Exercises:      string(exJSON),
		Completed:      w.Completed,
		TotalScore:     w.TotalScore,
		CompletedAt:    w.CompletedAt,
	}, nil
}

func decodeWorkout(r workoutRow) (models.Workout, error) {
	w := models.Workout{
		ID:             r.ID,
		Name:           r.Name,
		DayDescription: r.DayDescription,
		Completed:      r.Completed,
		TotalScore:     r.TotalScore,
		CompletedAt:    r.CompletedAt,
	}
	if r.ScheduledDays != "" {
		if err := json.Unmarshal([]byte(r.ScheduledDays), &w.ScheduledDays); err != nil {
			return models.Workout{}, fmt.Errorf("decoding scheduled days of %s: %w", r.ID, err)
		}
	}
	if r.Exercises != "" {
		if err := json.Unmarshal([]byte(r.Exercises), &w.Exercises); err != nil {
			return models.Workout{}, fmt.Errorf("decoding exercises of %s: %w", r.ID, err)
		}
	}
	return w, nil
}
