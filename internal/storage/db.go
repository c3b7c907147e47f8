package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps a pgxpool.Pool and implements Store on PostgreSQL. While observed
// it listens on the workouts_changed channel so that writes from other
// processes reach its observers.
type DB struct {
	Pool *pgxpool.Pool

	log        *slog.Logger
	retryDelay time.Duration
	watcher    *watcher

	mu   sync.Mutex
	feed feed
}

// New creates a new DB with a connection pool and loads the initial snapshot.
func New(ctx context.Context, dsn string, opts ...Option) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	o := buildOptions(opts)
	db := &DB{Pool: pool, log: o.log, retryDelay: o.pollInterval, feed: newFeed()}
	if err := db.reload(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	db.watcher = newWatcher(db.watch)
	db.feed.runWhileObserved(db.watcher)
	return db, nil
}

// Close stops the change listener and closes the connection pool.
func (db *DB) Close() {
	db.watcher.close()
	db.Pool.Close()
}

// RunMigrations applies all pending embedded migrations.
func RunMigrations(dsn string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("opening embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}
