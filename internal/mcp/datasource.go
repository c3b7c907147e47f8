package mcp

import (
	"context"
	"time"

	"github.com/claude/nextrep/internal/analytics"
	"github.com/claude/nextrep/internal/models"
	"github.com/claude/nextrep/internal/pipeline"
)

// DataSource abstracts where the MCP tools read from. Local serves an
// in-process pipeline; HTTPClient calls a remote NextRep REST API.
type DataSource interface {
	Plans(ctx context.Context) ([]models.Workout, error)
	Streak(ctx context.Context) (int, error)
	Cards(ctx context.Context) ([]analytics.ProgressCard, error)
	Weekly(ctx context.Context) ([]analytics.ChartPoint, error)
	// Today returns nil on a rest day.
	Today(ctx context.Context) (*models.Workout, error)
	Summary(ctx context.Context, workoutID string) (*pipeline.Session, error)
	BestVolume(ctx context.Context, exercise string, start, end time.Time) (float64, error)
}

// Compile-time checks.
var (
	_ DataSource = (*Local)(nil)
	_ DataSource = (*HTTPClient)(nil)
)

// Local reads from a pipeline in the same process.
type Local struct {
	pipe *pipeline.Pipeline
}

// NewLocal returns a DataSource backed by pipe.
func NewLocal(pipe *pipeline.Pipeline) *Local {
	return &Local{pipe: pipe}
}

func (l *Local) Plans(ctx context.Context) ([]models.Workout, error) {
	st, err := l.pipe.Current(ctx)
	return st.Plans, err
}

func (l *Local) Streak(ctx context.Context) (int, error) {
	st, err := l.pipe.Current(ctx)
	return st.Streak, err
}

func (l *Local) Cards(ctx context.Context) ([]analytics.ProgressCard, error) {
	st, err := l.pipe.Current(ctx)
	return st.Cards, err
}

func (l *Local) Weekly(ctx context.Context) ([]analytics.ChartPoint, error) {
	st, err := l.pipe.Current(ctx)
	return st.Weekly, err
}

func (l *Local) Today(ctx context.Context) (*models.Workout, error) {
	st, err := l.pipe.Current(ctx)
	if err != nil {
		return nil, err
	}
	plan, ok := analytics.PlanForToday(st.Records, l.pipe.Now())
	if !ok {
		return nil, nil
	}
	return &plan, nil
}

func (l *Local) Summary(ctx context.Context, workoutID string) (*pipeline.Session, error) {
	s, err := l.pipe.Summary(ctx, workoutID)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (l *Local) BestVolume(ctx context.Context, exercise string, start, end time.Time) (float64, error) {
	st, err := l.pipe.Current(ctx)
	if err != nil {
		return 0, err
	}
	return analytics.BestVolumeInWindow(exercise, st.Records, start, end), nil
}
