package storage

import (
	"context"
	"log/slog"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/claude/nextrep/internal/live"
	"github.com/claude/nextrep/internal/models"
)

// Store persists workout records and publishes the full collection after
// every change.
type Store interface {
	// ObserveAll returns a channel that receives the current collection and
	// every later one. It is closed when ctx is done.
	ObserveAll(ctx context.Context) (<-chan []models.Workout, error)
	// Upsert inserts w or replaces the record with the same ID.
	Upsert(ctx context.Context, w models.Workout) error
	// Delete removes the record with w's ID.
	Delete(ctx context.Context, w models.Workout) error
}

// DefaultPollInterval is how often a SQLite store checks for commits made by
// other connections while it is observed. PostgreSQL waits this long before
// listening again after a lost connection.
const DefaultPollInterval = time.Second

// Option configures the SQL stores.
type Option func(*options)

type options struct {
	log          *slog.Logger
	pollInterval time.Duration
}

// WithLogger sets the logger for background change detection.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) { o.pollInterval = d }
}

func buildOptions(opts []Option) options {
	o := options{log: slog.Default(), pollInterval: DefaultPollInterval}
	for _, opt := range opts {
		opt(&o)
	}
	if o.pollInterval <= 0 {
		o.pollInterval = DefaultPollInterval
	}
	return o
}

// feed fans snapshots out to observers. Snapshots are shared between
// observers and must not be modified.
type feed struct {
	value *live.Value[[]models.Workout]
}

func newFeed() feed {
	return feed{value: live.New[[]models.Workout]()}
}

func (f feed) publish(records []models.Workout) {
	if records == nil {
		records = []models.Workout{}
	}
	f.value.Publish(slices.Clip(records))
}

// publishChanged publishes records unless they equal the latest snapshot.
func (f feed) publishChanged(records []models.Workout) bool {
	if records == nil {
		records = []models.Workout{}
	}
	if prev, ok := f.value.Load(); ok && reflect.DeepEqual(prev, records) {
		return false
	}
	f.publish(records)
	return true
}

func (f feed) observe(ctx context.Context) (<-chan []models.Workout, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.value.Subscribe(ctx), nil
}

// runWhileObserved runs w whenever the feed has at least one observer.
func (f feed) runWhileObserved(w *watcher) {
	f.value.NotifyActivity(w.start, w.stop)
}

// watcher runs one background loop at a time and stops it on demand.
type watcher struct {
	run func(ctx context.Context)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
}

func newWatcher(run func(ctx context.Context)) *watcher {
	return &watcher{run: run}
}

func (w *watcher) start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil || w.closed {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	w.cancel, w.done = cancel, done
	go func() {
		defer close(done)
		w.run(ctx)
	}()
}

// stop cancels the loop and waits for it to return.
func (w *watcher) stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// close stops the loop for good.
func (w *watcher) close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.stop()
}
