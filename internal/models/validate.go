package models

import "fmt"

// ValidationError reports input that blocks a transition. Exercise names the
// offending exercise and is empty for plan-level problems.
type ValidationError struct {
	Exercise string
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.Exercise == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Exercise, e.Reason)
}

// ValidateExercise checks that every set of ex has the inputs its kind needs.
func ValidateExercise(ex Exercise) error {
	for _, s := range ex.Sets {
		if ex.Kind == KindTime {
			if isBlank(s.TimeInput) {
				return &ValidationError{Exercise: ex.Name, Reason: "fill in the time for every set"}
			}
			continue
		}
		if isBlank(s.WeightInput) || isBlank(s.RepsInput) {
			return &ValidationError{Exercise: ex.Name, Reason: "fill in weight and reps for every set"}
		}
	}
	return nil
}
