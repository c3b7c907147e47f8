package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func samplePlan() Workout {
	return Workout{
		ID:            "w1",
		Name:          "Training A",
		ScheduledDays: []Weekday{Monday, Thursday},
		Exercises: []Exercise{
			{
				ID:   "e1",
				Name: "Bench Press",
				Kind: KindRepsAndWeight,
				Sets: []Set{
					{ID: "s1", Number: 1, Kind: SetWorking},
					{ID: "s2", Number: 2, Kind: SetWorking},
				},
			},
			{
				ID:   "e2",
				Name: "Plank",
				Kind: KindTime,
				Sets: []Set{{ID: "s3", Number: 1, Kind: SetWorking}},
			},
		},
	}
}

func ptr[T any](v T) *T { return &v }

// TestCheckIntegrity verifies both directions of the completed/timestamp invariant.
func TestCheckIntegrity(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		w       Workout
		wantErr bool
	}{
		{"plan", Workout{ID: "a"}, false},
		{"session", Workout{ID: "b", Completed: true, CompletedAt: &now}, false},
		{"completed without time", Workout{ID: "c", Completed: true}, true},
		{"time without completed", Workout{ID: "d", CompletedAt: &now}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.w.CheckIntegrity()
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckIntegrity() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrIntegrity) {
				t.Errorf("error %v does not wrap ErrIntegrity", err)
			}
			if tt.wantErr && tt.w.IsSession() {
				t.Error("an inconsistent record must not count as a session")
			}
		})
	}
}

// TestWithSetInputCopyOnWrite verifies that editing a set rebuilds the
// aggregate and leaves the original value untouched.
func TestWithSetInputCopyOnWrite(t *testing.T) {
	orig := samplePlan()
	updated, err := orig.WithSetInput("e1", "s2", SetInput{Weight: ptr("80"), Reps: ptr("8")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := updated.Exercises[0].Sets[1]; got.WeightInput != "80" || got.RepsInput != "8" {
		t.Errorf("updated set = %+v", got)
	}
	if got := orig.Exercises[0].Sets[1]; got.WeightInput != "" || got.RepsInput != "" {
		t.Errorf("original set was mutated: %+v", got)
	}
	if updated.Exercises[0].Sets[0] != orig.Exercises[0].Sets[0] {
		t.Error("untouched set changed")
	}

	// Partial update keeps the other inputs.
	again, err := updated.WithSetInput("e1", "s2", SetInput{Completed: ptr(true)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s := again.Exercises[0].Sets[1]; s.WeightInput != "80" || !s.Completed {
		t.Errorf("partial update lost inputs: %+v", s)
	}
}

// TestWithSetInputNotFound verifies unknown exercise and set ids.
func TestWithSetInputNotFound(t *testing.T) {
	w := samplePlan()
	if _, err := w.WithSetInput("nope", "s1", SetInput{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown exercise: err = %v, want ErrNotFound", err)
	}
	if _, err := w.WithSetInput("e1", "nope", SetInput{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown set: err = %v, want ErrNotFound", err)
	}
}

// TestWithExerciseToggledValidation verifies that completing an exercise
// requires its inputs and that un-completing never does.
func TestWithExerciseToggledValidation(t *testing.T) {
	w := samplePlan()

	_, err := w.WithExerciseToggled("e1")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if verr.Exercise != "Bench Press" {
		t.Errorf("exercise = %q, want Bench Press", verr.Exercise)
	}

	w, _ = w.WithSetInput("e1", "s1", SetInput{Weight: ptr("60"), Reps: ptr("10")})
	w, _ = w.WithSetInput("e1", "s2", SetInput{Weight: ptr("0"), Reps: ptr("10")})
	done, err := w.WithExerciseToggled("e1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !done.Exercises[0].Completed {
		t.Error("exercise should be completed")
	}

	// Clearing an input afterwards does not block un-completing.
	done, _ = done.WithSetInput("e1", "s1", SetInput{Weight: ptr("")})
	undone, err := done.WithExerciseToggled("e1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if undone.Exercises[0].Completed {
		t.Error("exercise should be open again")
	}
}

// TestValidateTimeExercise verifies that TIME exercises need only the time input.
func TestValidateTimeExercise(t *testing.T) {
	ex := samplePlan().Exercises[1]
	if err := ValidateExercise(ex); err == nil {
		t.Fatal("expected validation error for blank time")
	}
	ex.Sets[0].TimeInput = "60"
	if err := ValidateExercise(ex); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// TestFinishLifecycle verifies ReadyToFinish, Complete and Reset together.
func TestFinishLifecycle(t *testing.T) {
	w := samplePlan()
	if err := w.ReadyToFinish(); !errors.Is(err, ErrExercisesIncomplete) {
		t.Fatalf("err = %v, want ErrExercisesIncomplete", err)
	}

	w, _ = w.WithSetInput("e1", "s1", SetInput{Weight: ptr("100"), Reps: ptr("5")})
	w, _ = w.WithSetInput("e1", "s2", SetInput{Weight: ptr("100"), Reps: ptr("5")})
	w, _ = w.WithSetInput("e2", "s3", SetInput{Time: ptr("45")})
	w, _ = w.WithExerciseToggled("e1")
	w, _ = w.WithExerciseToggled("e2")
	if err := w.ReadyToFinish(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	at := time.Date(2024, 3, 4, 18, 0, 0, 0, time.UTC)
	session := w.Complete("session-1", at, 1000)
	if !session.IsSession() || session.ID != "session-1" || session.TotalScore != 1000 {
		t.Errorf("session = %+v", session)
	}
	if err := session.CheckIntegrity(); err != nil {
		t.Errorf("session integrity: %v", err)
	}
	if err := session.ReadyToFinish(); !errors.Is(err, ErrAlreadyCompleted) {
		t.Errorf("err = %v, want ErrAlreadyCompleted", err)
	}

	fresh := w.Reset()
	if fresh.ID != w.ID || fresh.Completed || fresh.CompletedAt != nil {
		t.Errorf("reset template = %+v", fresh)
	}
	for _, ex := range fresh.Exercises {
		if ex.Completed {
			t.Errorf("exercise %s still completed", ex.Name)
		}
		for _, s := range ex.Sets {
			if s.WeightInput != "" || s.RepsInput != "" || s.TimeInput != "" || s.Completed {
				t.Errorf("set %s not blank: %+v", s.ID, s)
			}
		}
	}
	// The session keeps the performed values.
	if session.Exercises[0].Sets[0].WeightInput != "100" {
		t.Error("reset leaked into the session")
	}
}

// TestBuildPlan verifies set generation from exercise defaults.
func TestBuildPlan(t *testing.T) {
	w, err := BuildPlan(PlanDraft{
		Name: "  Push ",
		Days: []Weekday{Friday, Monday, Monday},
		Exercises: []ExerciseDraft{
			{Name: "Bench Press", Series: "3", Reps: "8-10", RIR: "2"},
			{Name: "Plank", Kind: KindTime, Series: ""},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.ID == "" || w.Name != "Push" || w.Completed {
		t.Errorf("plan = %+v", w)
	}
	if w.DayDescription != "Monday, Friday" {
		t.Errorf("day description = %q", w.DayDescription)
	}
	if len(w.ScheduledDays) != 2 {
		t.Errorf("scheduled days = %v, want de-duplicated", w.ScheduledDays)
	}
	if n := len(w.Exercises[0].Sets); n != 3 {
		t.Fatalf("bench sets = %d, want 3", n)
	}
	if s := w.Exercises[0].Sets[2]; s.Number != 3 || s.TargetReps != "8-10" || s.TargetRIR != "2" {
		t.Errorf("third set = %+v", s)
	}
	if w.Exercises[0].Kind != KindRepsAndWeight {
		t.Errorf("default kind = %q", w.Exercises[0].Kind)
	}
	if n := len(w.Exercises[1].Sets); n != 1 {
		t.Errorf("plank sets = %d, want 1 for blank series", n)
	}
}

// TestBuildPlanValidation verifies that blank names are rejected.
func TestBuildPlanValidation(t *testing.T) {
	var verr *ValidationError
	if _, err := BuildPlan(PlanDraft{Name: " "}); !errors.As(err, &verr) {
		t.Errorf("blank plan name: err = %v", err)
	}
	if _, err := BuildPlan(PlanDraft{Name: "A", Exercises: []ExerciseDraft{{Name: ""}}}); !errors.As(err, &verr) {
		t.Errorf("blank exercise name: err = %v", err)
	}
}

// TestWeekdayJSON verifies weekdays travel by name.
func TestWeekdayJSON(t *testing.T) {
	data, err := json.Marshal([]Weekday{Monday, Sunday})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `["MONDAY","SUNDAY"]` {
		t.Errorf("marshal = %s", data)
	}

	var days []Weekday
	if err := json.Unmarshal([]byte(`["wed","Friday"]`), &days); err != nil {
		t.Fatal(err)
	}
	if len(days) != 2 || days[0] != Wednesday || days[1] != Friday {
		t.Errorf("unmarshal = %v", days)
	}

	if err := json.Unmarshal([]byte(`["Someday"]`), &days); err == nil {
		t.Error("expected error for unknown weekday")
	}
}

// TestWeekdayOf verifies the mapping from time.Weekday, Sunday included.
func TestWeekdayOf(t *testing.T) {
	if WeekdayOf(time.Sunday) != Sunday || WeekdayOf(time.Monday) != Monday || WeekdayOf(time.Saturday) != Saturday {
		t.Error("weekday mapping is off")
	}
	if Thursday.Short() != "Thu" {
		t.Errorf("Short() = %q", Thursday.Short())
	}
}
