package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/claude/nextrep/internal/models"

	_ "modernc.org/sqlite"
)

// LocalDB is a single-file SQLite store. While observed it polls the
// database so that commits from other processes, such as nextrep-import,
// reach its observers.
type LocalDB struct {
	db           *sql.DB
	log          *slog.Logger
	pollInterval time.Duration
	watcher      *watcher

	mu sync.Mutex
	// version is PRAGMA data_version as of the last reload.
	version int64
	feed    feed
}

// OpenLocalDB opens (or creates) the SQLite database at path.
func OpenLocalDB(ctx context.Context, path string, opts ...Option) (*LocalDB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data dir %s: %w", dir, err)
		}
	}

	// Writers in other processes wait for the lock instead of failing.
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// One writer; readers share the connection.
	db.SetMaxOpenConns(1)

	_, err = db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS workouts (
		id              TEXT PRIMARY KEY,
		name            TEXT NOT NULL,
		day_description TEXT NOT NULL DEFAULT '',
		scheduled_days  TEXT NOT NULL DEFAULT '[]',
		exercises       TEXT NOT NULL DEFAULT '[]',
		completed       INTEGER NOT NULL DEFAULT 0,
		total_score     REAL NOT NULL DEFAULT 0,
		completed_at    INTEGER
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating workouts table: %w", err)
	}

	o := buildOptions(opts)
	l := &LocalDB{db: db, log: o.log, pollInterval: o.pollInterval, feed: newFeed()}
	if err := l.reload(ctx); err != nil {
		db.Close()
		return nil, err
	}
	l.watcher = newWatcher(l.watch)
	l.feed.runWhileObserved(l.watcher)
	return l, nil
}

// Close stops change detection and closes the database.
func (l *LocalDB) Close() error {
	l.watcher.close()
	return l.db.Close()
}

// ObserveAll implements Store. It re-reads the table first so a new observer
// starts from what other processes wrote before the poller was running.
func (l *LocalDB) ObserveAll(ctx context.Context) (<-chan []models.Workout, error) {
	l.mu.Lock()
	records, err := l.load(ctx)
	if err == nil {
		l.feed.publishChanged(records)
	}
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return l.feed.observe(ctx)
}

// Upsert implements Store.
func (l *LocalDB) Upsert(ctx context.Context, w models.Workout) error {
	row, err := encodeWorkout(w)
	if err != nil {
		return err
	}
	var completedAt sql.NullInt64
	if row.CompletedAt != nil {
		completedAt = sql.NullInt64{Int64: row.CompletedAt.UnixMilli(), Valid: true}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = l.db.ExecContext(ctx,
		`INSERT INTO workouts (id, name, day_description, scheduled_days, exercises,
		 completed, total_score, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		 name = excluded.name, day_description = excluded.day_description,
		 scheduled_days = excluded.scheduled_days, exercises = excluded.exercises,
		 completed = excluded.completed, total_score = excluded.total_score,
		 completed_at = excluded.completed_at`,
		row.ID, row.Name, row.DayDescription, row.ScheduledDays, row.Exercises,
		row.Completed, row.TotalScore, completedAt)
	if err != nil {
		return fmt.Errorf("upserting workout %s: %w", w.ID, err)
	}
	return l.reload(ctx)
}

// Delete implements Store.
func (l *LocalDB) Delete(ctx context.Context, w models.Workout) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	res, err := l.db.ExecContext(ctx, `DELETE FROM workouts WHERE id = ?`, w.ID)
	if err != nil {
		return fmt.Errorf("deleting workout %s: %w", w.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("deleting workout %s: %w", w.ID, models.ErrNotFound)
	}
	return l.reload(ctx)
}

// watch reloads the table whenever another connection has committed.
// data_version does not move for commits made on this handle's own
// connection; those reload directly.
func (l *LocalDB) watch(ctx context.Context) {
	t := time.NewTicker(l.pollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		if err := l.poll(ctx); err != nil && ctx.Err() == nil {
			l.log.Warn("polling sqlite store for external changes", "error", err)
		}
	}
}

func (l *LocalDB) poll(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var version int64
	if err := l.db.QueryRowContext(ctx, `PRAGMA data_version`).Scan(&version); err != nil {
		return fmt.Errorf("reading data_version: %w", err)
	}
	if version == l.version {
		return nil
	}
	records, err := l.load(ctx)
	if err != nil {
		return err
	}
	if l.feed.publishChanged(records) {
		l.log.Debug("external workout changes picked up", "records", len(records))
	}
	return nil
}

// reload reads every row and publishes the snapshot. Callers hold l.mu,
// except during open.
func (l *LocalDB) reload(ctx context.Context) error {
	records, err := l.load(ctx)
	if err != nil {
		return err
	}
	l.feed.publish(records)
	return nil
}

// load records data_version and reads every row in insertion order.
func (l *LocalDB) load(ctx context.Context) ([]models.Workout, error) {
	if err := l.db.QueryRowContext(ctx, `PRAGMA data_version`).Scan(&l.version); err != nil {
		return nil, fmt.Errorf("reading data_version: %w", err)
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT id, name, day_description, scheduled_days, exercises,
		 completed, total_score, completed_at
		 FROM workouts ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	var records []models.Workout
	for rows.Next() {
		var (
			r           workoutRow
			completedAt sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.DayDescription, &r.ScheduledDays, &r.Exercises,
			&r.Completed, &r.TotalScore, &completedAt); err != nil {
			return nil, fmt.Errorf("scanning workout: %w", err)
		}
		if completedAt.Valid {
			t := time.UnixMilli(completedAt.Int64).UTC()
			r.CompletedAt = &t
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
