package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a workout, exercise or set id is unknown.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyCompleted is returned when finishing a frozen session.
	ErrAlreadyCompleted = errors.New("workout already completed")
	// ErrExercisesIncomplete is returned when finishing a workout with open exercises.
	ErrExercisesIncomplete = errors.New("not all exercises are completed")
)

// SetInput is a partial update of a set; nil fields are left unchanged.
type SetInput struct {
	Weight    *string `json:"weight,omitempty"`
	Reps      *string `json:"reps,omitempty"`
	Time      *string `json:"time,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

func (in SetInput) apply(s Set) Set {
	if in.Weight != nil {
		s.WeightInput = *in.Weight
	}
	if in.Reps != nil {
		s.RepsInput = *in.Reps
	}
	if in.Time != nil {
		s.TimeInput = *in.Time
	}
	if in.Completed != nil {
		s.Completed = *in.Completed
	}
	return s
}

// WithSetInput returns a copy of w with one set updated. w is not modified.
func (w Workout) WithSetInput(exerciseID, setID string, in SetInput) (Workout, error) {
	return w.withExercise(exerciseID, func(ex Exercise) (Exercise, error) {
		for i, s := range ex.Sets {
			if s.ID != setID {
				continue
			}
			sets := make([]Set, len(ex.Sets))
			copy(sets, ex.Sets)
			sets[i] = in.apply(s)
			ex.Sets = sets
			return ex, nil
		}
		return ex, fmt.Errorf("set %s: %w", setID, ErrNotFound)
	})
}

// WithExerciseToggled returns a copy of w with the exercise's completed flag
// flipped. Marking an exercise completed requires ValidateExercise to pass.
func (w Workout) WithExerciseToggled(exerciseID string) (Workout, error) {
	return w.withExercise(exerciseID, func(ex Exercise) (Exercise, error) {
		if !ex.Completed {
			if err := ValidateExercise(ex); err != nil {
				return ex, err
			}
		}
		ex.Completed = !ex.Completed
		return ex, nil
	})
}

func (w Workout) withExercise(exerciseID string, fn func(Exercise) (Exercise, error)) (Workout, error) {
	for i, ex := range w.Exercises {
		if ex.ID != exerciseID {
			continue
		}
		updated, err := fn(ex)
		if err != nil {
			return w, err
		}
		out := w.Clone()
		out.Exercises[i] = updated
		return out, nil
	}
	return w, fmt.Errorf("exercise %s: %w", exerciseID, ErrNotFound)
}

// ReadyToFinish checks that w can transition to completed.
func (w Workout) ReadyToFinish() error {
	if w.Completed {
		return ErrAlreadyCompleted
	}
	var open []string
	for _, ex := range w.Exercises {
		if !ex.Completed {
			open = append(open, ex.Name)
		}
	}
	if len(open) > 0 {
		return fmt.Errorf("%w: %v", ErrExercisesIncomplete, open)
	}
	for _, ex := range w.Exercises {
		if err := ValidateExercise(ex); err != nil {
			return err
		}
	}
	return nil
}

// Complete returns the frozen session for w under a new id.
func (w Workout) Complete(id string, at time.Time, score float64) Workout {
	s := w.Clone()
	s.ID = id
	s.Completed = true
	s.TotalScore = score
	s.CompletedAt = &at
	return s
}

// Reset returns w with every input blanked and every completion flag cleared,
// ready for the next scheduled day.
func (w Workout) Reset() Workout {
	out := w.Clone()
	out.Completed = false
	out.TotalScore = 0
	out.CompletedAt = nil
	for i := range out.Exercises {
		ex := &out.Exercises[i]
		ex.Completed = false
		for j := range ex.Sets {
			s := &ex.Sets[j]
			s.WeightInput = ""
			s.RepsInput = ""
			s.TimeInput = ""
			s.Completed = false
		}
	}
	return out
}
