package pipeline

import (
	"context"
	"fmt"

	"github.com/claude/nextrep/internal/analytics"
	"github.com/claude/nextrep/internal/models"
)

// Session is a workout together with its comparison against history.
type Session struct {
	Workout   models.Workout                 `json:"workout"`
	Exercises []analytics.ExerciseComparison `json:"exercises"`
}

// AddOrUpdatePlan builds a plan from d and stores it. A draft whose ID names
// an existing plan replaces it; completed sessions cannot be edited.
func (p *Pipeline) AddOrUpdatePlan(ctx context.Context, d models.PlanDraft) (models.Workout, error) {
	p.actionMu.Lock()
	defer p.actionMu.Unlock()

	w, err := p.addOrUpdatePlan(ctx, d)
	return w, p.observe("add_or_update_plan", err)
}

func (p *Pipeline) addOrUpdatePlan(ctx context.Context, d models.PlanDraft) (models.Workout, error) {
	w, err := models.BuildPlan(d)
	if err != nil {
		return models.Workout{}, err
	}
	if d.ID != "" {
		records, err := p.snapshot(ctx)
		if err != nil {
			return models.Workout{}, err
		}
		if existing, ok := find(records, d.ID); ok && existing.Completed {
			return models.Workout{}, fmt.Errorf("editing %s: %w", d.ID, models.ErrAlreadyCompleted)
		}
	}
	if err := p.store.Upsert(ctx, w); err != nil {
		return models.Workout{}, fmt.Errorf("saving plan %s: %w", w.Name, err)
	}
	p.log.Info("plan saved", "id", w.ID, "name", w.Name, "exercises", len(w.Exercises))
	return w, nil
}

// RemovePlan deletes the record with the given id.
func (p *Pipeline) RemovePlan(ctx context.Context, id string) error {
	p.actionMu.Lock()
	defer p.actionMu.Unlock()

	err := p.withRecord(ctx, id, func(w models.Workout) error {
		if err := p.store.Delete(ctx, w); err != nil {
			return fmt.Errorf("removing %s: %w", id, err)
		}
		p.log.Info("plan removed", "id", id, "name", w.Name)
		return nil
	})
	return p.observe("remove_plan", err)
}

// UpdateSetInput applies a partial update to one set of a plan.
func (p *Pipeline) UpdateSetInput(ctx context.Context, workoutID, exerciseID, setID string, in models.SetInput) error {
	p.actionMu.Lock()
	defer p.actionMu.Unlock()

	err := p.withRecord(ctx, workoutID, func(w models.Workout) error {
		if w.Completed {
			return fmt.Errorf("editing %s: %w", workoutID, models.ErrAlreadyCompleted)
		}
		updated, err := w.WithSetInput(exerciseID, setID, in)
		if err != nil {
			return err
		}
		return p.store.Upsert(ctx, updated)
	})
	return p.observe("update_set_input", err)
}

// ToggleExerciseCompletion flips an exercise's completed flag. Completing
// requires every set of the exercise to be filled in.
func (p *Pipeline) ToggleExerciseCompletion(ctx context.Context, workoutID, exerciseID string) error {
	p.actionMu.Lock()
	defer p.actionMu.Unlock()

	err := p.withRecord(ctx, workoutID, func(w models.Workout) error {
		if w.Completed {
			return fmt.Errorf("editing %s: %w", workoutID, models.ErrAlreadyCompleted)
		}
		updated, err := w.WithExerciseToggled(exerciseID)
		if err != nil {
			return err
		}
		return p.store.Upsert(ctx, updated)
	})
	return p.observe("toggle_exercise", err)
}

// FinishWorkout stores a scored, completed copy of the plan and resets the
// plan for its next scheduled day. It returns the completed session.
func (p *Pipeline) FinishWorkout(ctx context.Context, workoutID string) (models.Workout, error) {
	p.actionMu.Lock()
	defer p.actionMu.Unlock()

	var session models.Workout
	err := p.withRecord(ctx, workoutID, func(w models.Workout) error {
		if err := w.ReadyToFinish(); err != nil {
			return err
		}
		session = w.Complete(models.NewID(), p.clock(), p.strategy.Score(w))
		if err := p.store.Upsert(ctx, session); err != nil {
			return fmt.Errorf("saving session: %w", err)
		}
		if err := p.store.Upsert(ctx, w.Reset()); err != nil {
			return fmt.Errorf("resetting plan: %w", err)
		}
		p.log.Info("workout finished", "plan", w.Name, "session", session.ID, "score", session.TotalScore)
		return nil
	})
	return session, p.observe("finish_workout", err)
}

// Bootstrap stores the given plans when the store holds no records at all.
// It reports how many plans were created.
func (p *Pipeline) Bootstrap(ctx context.Context, drafts []models.PlanDraft) (int, error) {
	if len(drafts) == 0 {
		return 0, nil
	}
	p.actionMu.Lock()
	defer p.actionMu.Unlock()

	records, err := p.snapshot(ctx)
	if err != nil {
		return 0, err
	}
	if len(records) > 0 {
		return 0, nil
	}
	for i, d := range drafts {
		if _, err := p.addOrUpdatePlan(ctx, d); err != nil {
			return i, fmt.Errorf("bootstrapping plan %q: %w", d.Name, err)
		}
	}
	return len(drafts), nil
}

// Summary compares every exercise of one record with the history.
func (p *Pipeline) Summary(ctx context.Context, workoutID string) (Session, error) {
	records, err := p.snapshot(ctx)
	if err != nil {
		return Session{}, err
	}
	w, ok := find(records, workoutID)
	if !ok {
		return Session{}, fmt.Errorf("workout %s: %w", workoutID, models.ErrNotFound)
	}
	return Session{
		Workout:   w,
		Exercises: analytics.SessionSummary(w, records, p.clock()),
	}, nil
}

func (p *Pipeline) withRecord(ctx context.Context, id string, fn func(models.Workout) error) error {
	records, err := p.snapshot(ctx)
	if err != nil {
		return err
	}
	w, ok := find(records, id)
	if !ok {
		return fmt.Errorf("workout %s: %w", id, models.ErrNotFound)
	}
	return fn(w)
}

// snapshot reads the current collection straight from the store so that
// writes never build on an outdated view.
func (p *Pipeline) snapshot(ctx context.Context) ([]models.Workout, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch, err := p.store.ObserveAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading workouts: %w", err)
	}
	select {
	case records, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("reading workouts: feed closed")
		}
		return records, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("reading workouts: %w", ctx.Err())
	}
}

func (p *Pipeline) observe(action string, err error) error {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		p.log.Debug("action failed", "action", action, "error", err)
	}
	p.metrics.CounterActions.WithLabelValues(action, outcome).Inc()
	return err
}

func find(records []models.Workout, id string) (models.Workout, bool) {
	for _, w := range records {
		if w.ID == id {
			return w, true
		}
	}
	return models.Workout{}, false
}
