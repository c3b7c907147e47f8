package storage

import (
	"context"
	"fmt"
	"log/slog"
)

// Open connects the store selected by driver ("memory", "sqlite" or
// "postgres"). path is the SQLite file, dsn the PostgreSQL connection
// string; PostgreSQL migrations are applied first. The returned func
// releases the store.
func Open(ctx context.Context, driver, path, dsn string, log *slog.Logger) (Store, func(), error) {
	switch driver {
	case "memory":
		log.Warn("using in-memory store, records are lost on exit")
		return NewMemoryStore(), func() {}, nil

	case "sqlite":
		l, err := OpenLocalDB(ctx, path, WithLogger(log))
		if err != nil {
			return nil, nil, err
		}
		log.Info("sqlite store opened", "path", path)
		return l, func() {
			if err := l.Close(); err != nil {
				log.Error("closing sqlite store", "error", err)
			}
		}, nil

	case "postgres":
		if err := RunMigrations(dsn); err != nil {
			return nil, nil, fmt.Errorf("migrating: %w", err)
		}
		log.Info("migrations applied")
		db, err := New(ctx, dsn, WithLogger(log))
		if err != nil {
			return nil, nil, err
		}
		log.Info("database connected")
		return db, db.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", driver)
}
