package models

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// ErrIntegrity marks a record whose completed flag disagrees with its completion timestamp.
var ErrIntegrity = errors.New("workout record integrity violation")

// SetKind distinguishes warmup sets from working sets.
type SetKind string

const (
	SetWarmup  SetKind = "WARMUP"
	SetWorking SetKind = "WORKING"
)

// ExerciseKind selects which inputs a set of this exercise expects.
type ExerciseKind string

const (
	KindRepsAndWeight ExerciseKind = "REPS_AND_WEIGHT"
	KindTime          ExerciseKind = "TIME"
)

// Set is a single planned or performed set. Inputs are kept as the raw text
// the user typed; see ParseWeight and ParseReps.
type Set struct {
	ID          string  `json:"id"`
	Number      int     `json:"number"`
	Kind        SetKind `json:"kind"`
	TargetReps  string  `json:"target_reps"`
	TargetRIR   string  `json:"target_rir"`
	WeightInput string  `json:"weight_input"`
	RepsInput   string  `json:"reps_input"`
	TimeInput   string  `json:"time_input"`
	Completed   bool    `json:"completed"`
}

// Weight returns the parsed weight input.
func (s Set) Weight() float64 {
	return ParseWeight(s.WeightInput)
}

// Reps returns the parsed reps input.
func (s Set) Reps() int {
	return ParseReps(s.RepsInput)
}

// Volume is weight × reps, 0 when either input is missing or invalid.
func (s Set) Volume() float64 {
	return s.Weight() * float64(s.Reps())
}

// Eligible reports whether the set takes part in best-volume aggregation:
// both weight and reps must have been entered. A typed "0" counts, a blank
// input does not. The Completed flag is not considered.
func (s Set) Eligible() bool {
	return !isBlank(s.WeightInput) && !isBlank(s.RepsInput)
}

// Exercise is one exercise of a workout, identified across history by Name.
type Exercise struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Kind      ExerciseKind `json:"kind"`
	Sets      []Set        `json:"sets"`
	Completed bool         `json:"completed"`

	// Defaults used when generating fresh sets for this exercise.
	DefaultSeries string `json:"default_series"`
	DefaultReps   string `json:"default_reps"`
	DefaultRIR    string `json:"default_rir"`
	Tempo         string `json:"tempo"`
	Rest          string `json:"rest"`
}

// Workout is either a plan template (not completed) or a frozen session.
type Workout struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	DayDescription string     `json:"day_description"`
	ScheduledDays  []Weekday  `json:"scheduled_days"`
	Exercises      []Exercise `json:"exercises"`
	Completed      bool       `json:"completed"`
	TotalScore     float64    `json:"total_score"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// IsSession reports whether w is a completed session usable by the analytics.
// Records that violate the completion invariant are never sessions.
func (w Workout) IsSession() bool {
	return w.Completed && w.CompletedAt != nil
}

// IsPlan reports whether w is a plan template.
func (w Workout) IsPlan() bool {
	return !w.Completed
}

// ScheduledOn reports whether the plan recurs on the given weekday.
func (w Workout) ScheduledOn(day Weekday) bool {
	return slices.Contains(w.ScheduledDays, day)
}

// CheckIntegrity verifies that completed and CompletedAt agree.
func (w Workout) CheckIntegrity() error {
	switch {
	case w.Completed && w.CompletedAt == nil:
		return fmt.Errorf("%w: %s is completed without a timestamp", ErrIntegrity, w.ID)
	case !w.Completed && w.CompletedAt != nil:
		return fmt.Errorf("%w: %s has a timestamp but is not completed", ErrIntegrity, w.ID)
	}
	return nil
}

// Clone returns a deep copy of w sharing no slices or pointers with it.
func (w Workout) Clone() Workout {
	c := w
	c.ScheduledDays = slices.Clone(w.ScheduledDays)
	if w.CompletedAt != nil {
		t := *w.CompletedAt
		c.CompletedAt = &t
	}
	if w.Exercises != nil {
		c.Exercises = make([]Exercise, len(w.Exercises))
		for i, ex := range w.Exercises {
			ex.Sets = slices.Clone(ex.Sets)
			c.Exercises[i] = ex
		}
	}
	return c
}
