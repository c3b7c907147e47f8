package alpha

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/claude/nextrep/internal/ingest"
	"github.com/claude/nextrep/internal/models"
	"github.com/claude/nextrep/internal/scoring"
	"github.com/claude/nextrep/internal/storage"
	"github.com/google/uuid"
)

// importNamespace seeds the deterministic ids of imported records.
var importNamespace = uuid.MustParse("6f2d0c1e-5b7a-4c39-9d51-0e8a4f7b2c63")

// Provider imports Alpha Progression CSV exports as completed sessions.
type Provider struct {
	store    storage.Store
	strategy scoring.Strategy
	loc      *time.Location
	log      *slog.Logger
}

// NewProvider creates a new Alpha Progression import provider. Session times
// in the export are interpreted in loc.
func NewProvider(store storage.Store, strategy scoring.Strategy, loc *time.Location, log *slog.Logger) *Provider {
	return &Provider{store: store, strategy: strategy, loc: loc, log: log}
}

// Ingest parses a CSV export and upserts one completed workout per session.
// Record ids derive from session name and time, so importing the same export
// twice leaves the store unchanged.
func (p *Provider) Ingest(ctx context.Context, r io.Reader) (*ingest.Result, error) {
	sessions, err := Parse(r, p.loc)
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}

	result := &ingest.Result{SessionsReceived: len(sessions)}
	for _, s := range sessions {
		result.ExercisesReceived += len(s.Exercises)
		for _, ex := range s.Exercises {
			for _, set := range ex.Sets {
				result.SetsReceived++
				if set.IsWarmup {
					result.WarmupSets++
				}
			}
		}

		if len(s.Exercises) == 0 {
			result.SessionsSkipped++
			p.log.Warn("skipping empty session", "name", s.Name, "date", s.Date)
			continue
		}
		w := p.Convert(s)
		if err := p.store.Upsert(ctx, w); err != nil {
			return result, fmt.Errorf("storing session %q on %s: %w", s.Name, s.Date.Format("2006-01-02"), err)
		}
		result.SessionsImported++
	}

	p.log.Info("alpha import finished",
		"sessions", result.SessionsImported,
		"skipped", result.SessionsSkipped,
		"sets", result.SetsReceived,
	)
	return result, nil
}

// Convert turns a parsed session into a completed, scored workout.
func (p *Provider) Convert(s Session) models.Workout {
	id := uuid.NewSHA1(importNamespace, []byte(s.Name+"|"+s.Date.UTC().Format(time.RFC3339)))
	completedAt := s.Date

	w := models.Workout{
		ID:             id.String(),
		Name:           s.Name,
		DayDescription: s.Duration,
		Exercises:      make([]models.Exercise, 0, len(s.Exercises)),
		Completed:      true,
		CompletedAt:    &completedAt,
	}
	for _, ex := range s.Exercises {
		exID := uuid.NewSHA1(id, []byte("exercise|"+strconv.Itoa(ex.Number)))
		out := models.Exercise{
			ID:          exID.String(),
			Name:        ex.Name,
			Kind:        models.KindRepsAndWeight,
			Completed:   true,
			DefaultReps: ex.TargetReps,
			Sets:        make([]models.Set, 0, len(ex.Sets)),
		}
		working := 0
		for i, set := range ex.Sets {
			kind := models.SetWarmup
			if !set.IsWarmup {
				kind = models.SetWorking
				working++
			}
			out.Sets = append(out.Sets, models.Set{
				ID:          uuid.NewSHA1(exID, []byte("set|"+strconv.Itoa(i))).String(),
				Number:      set.Number,
				Kind:        kind,
				TargetReps:  ex.TargetReps,
				TargetRIR:   set.RIR,
				WeightInput: set.Weight,
				RepsInput:   set.Reps,
				Completed:   true,
			})
		}
		out.DefaultSeries = strconv.Itoa(working)
		w.Exercises = append(w.Exercises, out)
	}
	w.TotalScore = p.strategy.Score(w)
	return w
}
