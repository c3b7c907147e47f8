package models

import (
	"strings"

	"github.com/google/uuid"
)

// PlanDraft is the plan editor's input. ID is empty for a new plan.
type PlanDraft struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Days      []Weekday       `json:"days"`
	Exercises []ExerciseDraft `json:"exercises"`
}

// ExerciseDraft describes one exercise of a plan and how to generate its sets.
type ExerciseDraft struct {
	ID     string       `json:"id,omitempty"`
	Name   string       `json:"name"`
	Kind   ExerciseKind `json:"kind,omitempty"`
	Series string       `json:"series"`
	Reps   string       `json:"reps"`
	RIR    string       `json:"rir"`
	Tempo  string       `json:"tempo,omitempty"`
	Rest   string       `json:"rest,omitempty"`
}

// NewID returns a fresh random record id.
func NewID() string {
	return uuid.NewString()
}

// BuildPlan turns a draft into a plan template with freshly generated sets.
// A blank or unparsable series count generates a single set.
func BuildPlan(d PlanDraft) (Workout, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return Workout{}, &ValidationError{Reason: "plan name is required"}
	}

	days := NormalizeDays(d.Days)
	w := Workout{
		ID:             d.ID,
		Name:           name,
		DayDescription: DescribeDays(days),
		ScheduledDays:  days,
		Exercises:      make([]Exercise, 0, len(d.Exercises)),
	}
	if w.ID == "" {
		w.ID = NewID()
	}

	for _, ed := range d.Exercises {
		exName := strings.TrimSpace(ed.Name)
		if exName == "" {
			return Workout{}, &ValidationError{Reason: "exercise name is required"}
		}
		ex := Exercise{
			ID:            ed.ID,
			Name:          exName,
			Kind:          ed.Kind,
			DefaultSeries: ed.Series,
			DefaultReps:   ed.Reps,
			DefaultRIR:    ed.RIR,
			Tempo:         ed.Tempo,
			Rest:          ed.Rest,
		}
		if ex.ID == "" {
			ex.ID = NewID()
		}
		if ex.Kind == "" {
			ex.Kind = KindRepsAndWeight
		}

		count := ParseReps(ed.Series)
		if count < 1 {
			count = 1
		}
		ex.Sets = make([]Set, 0, count)
		for i := 1; i <= count; i++ {
			ex.Sets = append(ex.Sets, Set{
				ID:         NewID(),
				Number:     i,
				Kind:       SetWorking,
				TargetReps: ed.Reps,
				TargetRIR:  ed.RIR,
			})
		}
		w.Exercises = append(w.Exercises, ex)
	}
	return w, nil
}
