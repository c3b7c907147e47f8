package pipeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/claude/nextrep/internal/metrics"
	"github.com/claude/nextrep/internal/models"
	"github.com/claude/nextrep/internal/pipeline"
	"github.com/claude/nextrep/internal/scoring"
	"github.com/claude/nextrep/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storeSnapshot(t *testing.T, s storage.Store) []models.Workout {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := s.ObserveAll(ctx)
	require.NoError(t, err)
	return receive(t, ch)
}

func strPtr(s string) *string { return &s }

func trainingA() models.PlanDraft {
	return models.PlanDraft{
		Name: "Training A",
		Days: []models.Weekday{models.Monday, models.Thursday},
		Exercises: []models.ExerciseDraft{
			{Name: "Bench Press", Series: "2", Reps: "5", RIR: "1"},
			{Name: "Plank", Kind: models.KindTime, Series: "1"},
		},
	}
}

func TestActions_FinishWorkoutLifecycle(t *testing.T) {
	store := storage.NewMemoryStore()
	p := newPipeline(t, store)
	ctx := context.Background()

	plan, err := p.AddOrUpdatePlan(ctx, trainingA())
	require.NoError(t, err)
	require.Len(t, plan.Exercises, 2)
	bench, plank := plan.Exercises[0], plan.Exercises[1]
	require.Len(t, bench.Sets, 2)

	for _, s := range bench.Sets {
		require.NoError(t, p.UpdateSetInput(ctx, plan.ID, bench.ID, s.ID, models.SetInput{
			Weight: strPtr("100"),
			Reps:   strPtr("5"),
		}))
	}

	err = p.ToggleExerciseCompletion(ctx, plan.ID, plank.ID)
	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr), "err = %v", err)
	assert.Equal(t, "Plank", verr.Exercise)

	require.NoError(t, p.ToggleExerciseCompletion(ctx, plan.ID, bench.ID))
	_, err = p.FinishWorkout(ctx, plan.ID)
	require.ErrorIs(t, err, models.ErrExercisesIncomplete)

	require.NoError(t, p.UpdateSetInput(ctx, plan.ID, plank.ID, plank.Sets[0].ID, models.SetInput{Time: strPtr("60")}))
	require.NoError(t, p.ToggleExerciseCompletion(ctx, plan.ID, plank.ID))

	session, err := p.FinishWorkout(ctx, plan.ID)
	require.NoError(t, err)
	assert.NotEqual(t, plan.ID, session.ID)
	assert.True(t, session.IsSession())
	assert.Equal(t, 1000.0, session.TotalScore)
	assert.True(t, session.CompletedAt.Equal(thursday))

	records := storeSnapshot(t, store)
	require.Len(t, records, 2)
	reset := records[0]
	assert.Equal(t, plan.ID, reset.ID)
	assert.False(t, reset.Completed)
	assert.Empty(t, reset.Exercises[0].Sets[0].WeightInput)
	assert.False(t, reset.Exercises[0].Completed)
	assert.Equal(t, "100", records[1].Exercises[0].Sets[1].WeightInput)

	_, err = p.FinishWorkout(ctx, session.ID)
	require.ErrorIs(t, err, models.ErrAlreadyCompleted)
	err = p.UpdateSetInput(ctx, session.ID, bench.ID, bench.Sets[0].ID, models.SetInput{Weight: strPtr("1")})
	require.ErrorIs(t, err, models.ErrAlreadyCompleted)

	assert.Eventually(t, func() bool {
		st, err := p.Current(ctx)
		return err == nil && st.Streak == 1 && len(st.Plans) == 1 && len(st.Cards) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestActions_FeelingStrategy(t *testing.T) {
	store := storage.NewMemoryStore()
	p := pipeline.New(store, scoring.Feeling,
		pipeline.WithClock(fixedClock),
		pipeline.WithLogger(quietLogger()),
		pipeline.WithMetrics(metrics.NewTestManager()),
		pipeline.WithIdleGrace(0),
	)
	t.Cleanup(p.Close)
	ctx := context.Background()

	plan, err := p.AddOrUpdatePlan(ctx, models.PlanDraft{
		Name:      "Single",
		Exercises: []models.ExerciseDraft{{Name: "Squat", Series: "1"}},
	})
	require.NoError(t, err)
	ex := plan.Exercises[0]
	require.NoError(t, p.UpdateSetInput(ctx, plan.ID, ex.ID, ex.Sets[0].ID, models.SetInput{Weight: strPtr("100"), Reps: strPtr("5")}))
	require.NoError(t, p.ToggleExerciseCompletion(ctx, plan.ID, ex.ID))

	session, err := p.FinishWorkout(ctx, plan.ID)
	require.NoError(t, err)
	assert.InDelta(t, 600.0, session.TotalScore, 1e-9)
}

func TestActions_NotFound(t *testing.T) {
	p := newPipeline(t, storage.NewMemoryStore(planRecord("p1", "A")))
	ctx := context.Background()

	require.ErrorIs(t, p.RemovePlan(ctx, "nope"), models.ErrNotFound)
	require.ErrorIs(t, p.UpdateSetInput(ctx, "nope", "e", "s", models.SetInput{}), models.ErrNotFound)
	require.ErrorIs(t, p.ToggleExerciseCompletion(ctx, "p1", "missing-exercise"), models.ErrNotFound)
	_, err := p.FinishWorkout(ctx, "nope")
	require.ErrorIs(t, err, models.ErrNotFound)
	_, err = p.Summary(ctx, "nope")
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestActions_RemovePlan(t *testing.T) {
	store := storage.NewMemoryStore(planRecord("p1", "A"), planRecord("p2", "B"))
	p := newPipeline(t, store)

	require.NoError(t, p.RemovePlan(context.Background(), "p1"))
	records := storeSnapshot(t, store)
	require.Len(t, records, 1)
	assert.Equal(t, "p2", records[0].ID)
}

func TestActions_AddOrUpdatePlan(t *testing.T) {
	at := thursday.Add(-time.Hour)
	store := storage.NewMemoryStore(
		planRecord("p1", "A", models.Monday),
		sessionRecord("s1", "A", at, 10),
	)
	p := newPipeline(t, store)
	ctx := context.Background()

	updated, err := p.AddOrUpdatePlan(ctx, models.PlanDraft{ID: "p1", Name: "A2", Days: []models.Weekday{models.Friday}})
	require.NoError(t, err)
	assert.Equal(t, "p1", updated.ID)
	assert.Equal(t, "Friday", updated.DayDescription)

	records := storeSnapshot(t, store)
	require.Len(t, records, 2)
	assert.Equal(t, "A2", records[0].Name)

	_, err = p.AddOrUpdatePlan(ctx, models.PlanDraft{ID: "s1", Name: "A"})
	require.ErrorIs(t, err, models.ErrAlreadyCompleted)

	_, err = p.AddOrUpdatePlan(ctx, models.PlanDraft{Name: "  "})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestActions_Bootstrap(t *testing.T) {
	store := storage.NewMemoryStore()
	p := newPipeline(t, store)
	ctx := context.Background()

	n, err := p.Bootstrap(ctx, []models.PlanDraft{trainingA()})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = p.Bootstrap(ctx, []models.PlanDraft{trainingA()})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Len(t, storeSnapshot(t, store), 1)
}

func TestActions_Summary(t *testing.T) {
	today := thursday.Add(-2 * time.Hour)
	lastWeek := thursday.AddDate(0, 0, -5)
	done := sessionRecord("s2", "A", today, 500)
	done.Exercises = []models.Exercise{{Name: "Bench", Sets: []models.Set{{WeightInput: "100", RepsInput: "5"}}}}
	older := sessionRecord("s1", "A", lastWeek, 400)
	older.Exercises = []models.Exercise{{Name: "Bench", Sets: []models.Set{{WeightInput: "80", RepsInput: "5"}}}}

	p := newPipeline(t, storage.NewMemoryStore(older, done))
	sum, err := p.Summary(context.Background(), "s2")
	require.NoError(t, err)
	assert.Equal(t, "s2", sum.Workout.ID)
	require.Len(t, sum.Exercises, 1)
	assert.Equal(t, 500.0, sum.Exercises[0].Today)
	assert.Equal(t, 400.0, sum.Exercises[0].WeekAgo)
}
