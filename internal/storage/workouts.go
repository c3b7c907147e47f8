package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/nextrep/internal/models"
)

// notifyChannel is raised by the workouts_changed trigger after every write.
const notifyChannel = "workouts_changed"

// ObserveAll implements Store. The table is re-read first so rows written by
// other processes while nobody was listening are included.
func (db *DB) ObserveAll(ctx context.Context) (<-chan []models.Workout, error) {
	if err := db.refresh(ctx); err != nil {
		return nil, err
	}
	return db.feed.observe(ctx)
}

// Upsert implements Store.
func (db *DB) Upsert(ctx context.Context, w models.Workout) error {
	row, err := encodeWorkout(w)
	if err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	_, err = db.Pool.Exec(ctx,
		`INSERT INTO workouts (id, name, day_description, scheduled_days, exercises,
		 completed, total_score, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET
		 name = EXCLUDED.name, day_description = EXCLUDED.day_description,
		 scheduled_days = EXCLUDED.scheduled_days, exercises = EXCLUDED.exercises,
		 completed = EXCLUDED.completed, total_score = EXCLUDED.total_score,
		 completed_at = EXCLUDED.completed_at, updated_at = NOW()`,
		row.ID, row.Name, row.DayDescription, row.ScheduledDays, row.Exercises,
		row.Completed, row.TotalScore, row.CompletedAt)
	if err != nil {
		return fmt.Errorf("upserting workout %s: %w", w.ID, err)
	}
	return db.reload(ctx)
}

// Delete implements Store.
func (db *DB) Delete(ctx context.Context, w models.Workout) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	tag, err := db.Pool.Exec(ctx, `DELETE FROM workouts WHERE id = $1`, w.ID)
	if err != nil {
		return fmt.Errorf("deleting workout %s: %w", w.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deleting workout %s: %w", w.ID, models.ErrNotFound)
	}
	return db.reload(ctx)
}

// watch keeps a LISTEN connection open and reloads on every notification.
// A lost connection is retried after retryDelay.
func (db *DB) watch(ctx context.Context) {
	for {
		err := db.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		db.log.Warn("listening for workout changes", "error", err, "retry_in", db.retryDelay.String())

		t := time.NewTimer(db.retryDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

func (db *DB) listen(ctx context.Context) error {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring listen connection: %w", err)
	}
	defer func() {
		// The connection goes back to the pool; it must not keep listening.
		_, _ = conn.Exec(context.Background(), "UNLISTEN *")
		conn.Release()
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return fmt.Errorf("listening on %s: %w", notifyChannel, err)
	}
	// Writes committed before LISTEN took effect.
	if err := db.refresh(ctx); err != nil {
		return err
	}
	for {
		if _, err := conn.Conn().WaitForNotification(ctx); err != nil {
			return fmt.Errorf("waiting for notification: %w", err)
		}
		if err := db.refresh(ctx); err != nil {
			return err
		}
	}
}

// refresh reloads the table and publishes it only if it changed. Own writes
// notify too and have already been published by then.
func (db *DB) refresh(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	records, err := db.load(ctx)
	if err != nil {
		return err
	}
	if db.feed.publishChanged(records) {
		db.log.Debug("workout changes picked up", "records", len(records))
	}
	return nil
}

// reload reads every row and publishes the snapshot. Callers hold db.mu,
// except during New.
func (db *DB) reload(ctx context.Context) error {
	records, err := db.load(ctx)
	if err != nil {
		return err
	}
	db.feed.publish(records)
	return nil
}

// load reads every row in insertion order.
func (db *DB) load(ctx context.Context) ([]models.Workout, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, name, day_description, scheduled_days::text, exercises::text,
		 completed, total_score, completed_at
		 FROM workouts ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	var records []models.Workout
	for rows.Next() {
		var r workoutRow
		if err := rows.Scan(&r.ID, &r.Name, &r.DayDescription, &r.ScheduledDays, &r.Exercises,
			&r.Completed, &r.TotalScore, &r.CompletedAt); err != nil {
			return nil, fmt.Errorf("scanning workout: %w", err)
		}
		w, err := decodeWorkout(r)
		if err != nil {
			return nil, err
		}
		records = append(records, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading workouts: %w", err)
	}
	return records, nil
}
