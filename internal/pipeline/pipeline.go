// Package pipeline keeps the derived progress views in step with the
// workout store and exposes the operations that change it.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/nextrep/internal/analytics"
	"github.com/claude/nextrep/internal/live"
	"github.com/claude/nextrep/internal/metrics"
	"github.com/claude/nextrep/internal/models"
	"github.com/claude/nextrep/internal/scoring"
	"github.com/claude/nextrep/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// DefaultIdleGrace is how long the store subscription outlives the last observer.
	DefaultIdleGrace = 5 * time.Second
	// DefaultRetryInterval is the delay between failed store subscriptions.
	DefaultRetryInterval = 5 * time.Second
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock sets the source of "now". The location of the returned time
// decides calendar days.
func WithClock(clock func() time.Time) Option {
	return func(p *Pipeline) { p.clock = clock }
}

// WithLogger sets the logger. It defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithMetrics sets the metrics manager. Without it metrics go to a private registry.
func WithMetrics(m *metrics.Manager) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithIdleGrace sets how long the store subscription outlives the last
// observer. Zero tears it down immediately.
func WithIdleGrace(d time.Duration) Option {
	return func(p *Pipeline) { p.idleGrace = d }
}

// WithRetryInterval sets the delay between failed store subscriptions.
func WithRetryInterval(d time.Duration) Option {
	return func(p *Pipeline) { p.retryInterval = d }
}

func withDerive(fn func([]models.Workout, time.Time) Views) Option {
	return func(p *Pipeline) { p.derive = fn }
}

// Pipeline subscribes to the store while any output is observed and
// recomputes every view on each snapshot.
type Pipeline struct {
	store         storage.Store
	strategy      scoring.Strategy
	log           *slog.Logger
	metrics       *metrics.Manager
	clock         func() time.Time
	derive        func([]models.Workout, time.Time) Views
	idleGrace     time.Duration
	retryInterval time.Duration

	plans  *live.Value[[]models.Workout]
	streak *live.Value[int]
	cards  *live.Value[[]analytics.ProgressCard]
	weekly *live.Value[[]analytics.ChartPoint]
	state  *live.Value[State]

	mu       sync.Mutex
	active   int
	gen      uint64
	cancel   context.CancelFunc
	lastDone chan struct{}
	idle     *time.Timer
	closed   bool
	wg       sync.WaitGroup

	// actionMu serializes read-modify-write operations on the store.
	actionMu sync.Mutex
}

// New creates a pipeline over store. Nothing runs until an output is observed.
func New(store storage.Store, strategy scoring.Strategy, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:         store,
		strategy:      strategy,
		log:           slog.Default(),
		clock:         time.Now,
		derive:        Derive,
		idleGrace:     DefaultIdleGrace,
		retryInterval: DefaultRetryInterval,
		plans:         live.New[[]models.Workout](),
		streak:        live.New[int](),
		cards:         live.New[[]analytics.ProgressCard](),
		weekly:        live.New[[]analytics.ChartPoint](),
		state:         live.New[State](),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.metrics == nil {
		p.metrics = metrics.NewManager("nextrep", "pipeline", prometheus.NewRegistry())
	}
	if p.strategy == nil {
		p.strategy = scoring.Volume
	}

	p.plans.NotifyActivity(p.acquire, p.release)
	p.streak.NotifyActivity(p.acquire, p.release)
	p.cards.NotifyActivity(p.acquire, p.release)
	p.weekly.NotifyActivity(p.acquire, p.release)
	p.state.NotifyActivity(p.acquire, p.release)
	return p
}

// Plans publishes the uncompleted records.
func (p *Pipeline) Plans() live.Observable[[]models.Workout] { return p.plans }

// Streak publishes the adherence streak in days.
func (p *Pipeline) Streak() live.Observable[int] { return p.streak }

// Cards publishes one comparison card per plan name.
func (p *Pipeline) Cards() live.Observable[[]analytics.ProgressCard] { return p.cards }

// Weekly publishes the seven-day chart.
func (p *Pipeline) Weekly() live.Observable[[]analytics.ChartPoint] { return p.weekly }

// Current returns the latest snapshot and its views, starting the store
// subscription for the duration of the call if nothing else holds it. Views
// derived on an earlier calendar day are derived again for today.
func (p *Pipeline) Current(ctx context.Context) (State, error) {
	st, err := p.state.Await(ctx)
	if err != nil {
		return State{}, fmt.Errorf("waiting for derived views: %w", err)
	}
	now := p.clock()
	if today := analytics.StartOfDay(now); !st.Day.Equal(today) {
		if views, ok := p.recompute(st.Records, now); ok {
			st.Views, st.Day = views, today
		}
	}
	return st, nil
}

// Now returns the pipeline clock's current time.
func (p *Pipeline) Now() time.Time {
	return p.clock()
}

// Close stops the store subscription and waits for it to finish. Outputs
// keep their subscribers but receive nothing further.
func (p *Pipeline) Close() {
	p.mu.Lock()
	p.closed = true
	if p.idle != nil {
		p.idle.Stop()
		p.idle = nil
	}
	p.stopLocked()
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pipeline) acquire() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active++
	p.metrics.GaugeActiveOutputs.Set(float64(p.active))
	if p.idle != nil {
		p.idle.Stop()
		p.idle = nil
	}
	if p.cancel != nil || p.closed {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.gen++
	p.cancel = cancel
	prev := p.lastDone
	done := make(chan struct{})
	p.lastDone = done

	p.wg.Add(1)
	go p.run(ctx, p.gen, prev, done)
}

func (p *Pipeline) release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active--
	p.metrics.GaugeActiveOutputs.Set(float64(p.active))
	if p.active > 0 || p.cancel == nil {
		return
	}
	if p.idleGrace <= 0 {
		p.stopLocked()
		return
	}
	gen := p.gen
	p.idle = time.AfterFunc(p.idleGrace, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.active == 0 && p.gen == gen {
			p.stopLocked()
		}
	})
}

// stopLocked cancels the running subscription and forgets the derived
// values so that the next observer waits for a fresh snapshot.
func (p *Pipeline) stopLocked() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	p.cancel = nil
	p.gen++
	p.log.Debug("store subscription released")

	p.plans.Reset()
	p.streak.Reset()
	p.cards.Reset()
	p.weekly.Reset()
	p.state.Reset()
}

func (p *Pipeline) run(ctx context.Context, gen uint64, prev, done chan struct{}) {
	defer p.wg.Done()
	defer close(done)
	if prev != nil {
		<-prev
	}
	p.log.Debug("store subscription started")

	for {
		ch, err := p.store.ObserveAll(ctx)
		if err == nil {
			p.consume(ctx, gen, ch)
		}
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = fmt.Errorf("store feed closed")
		}
		p.log.Error("observing workout store", "error", err, "retry_in", p.retryInterval.String())
		p.metrics.CounterStoreErrors.Inc()

		t := time.NewTimer(p.retryInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// consume recomputes the views for every snapshot on ch, and for the last
// snapshot again at every local midnight. A snapshot that arrives while the
// previous one is being derived supersedes it; the older result is never
// published.
func (p *Pipeline) consume(ctx context.Context, gen uint64, ch <-chan []models.Workout) {
	var (
		records  []models.Workout
		midnight *time.Timer
		rollover <-chan time.Time
	)
	defer func() {
		if midnight != nil {
			midnight.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-ch:
			if !ok {
				return
			}
			records = r
			p.metrics.CounterSnapshots.Inc()
		case <-rollover:
			p.metrics.CounterDayRollovers.Inc()
			p.log.Debug("calendar day changed, deriving views again")
		}

		for {
			now := p.clock()
			views, derived := p.recompute(records, now)

			select {
			case newer, ok := <-ch:
				if !ok {
					return
				}
				p.metrics.CounterSnapshots.Inc()
				p.metrics.CounterSuperseded.Inc()
				records = newer
				continue
			default:
			}

			if derived {
				p.publish(gen, records, now, views)
			}
			break
		}

		if midnight == nil {
			midnight = time.NewTimer(p.untilNextDay())
			rollover = midnight.C
		} else {
			midnight.Reset(p.untilNextDay())
		}
	}
}

// untilNextDay is the time left until the clock reaches the next local midnight.
func (p *Pipeline) untilNextDay() time.Duration {
	now := p.clock()
	return analytics.AddDays(analytics.StartOfDay(now), 1).Sub(now)
}

// recompute runs the derivation, keeping a panic from taking the pipeline down.
func (p *Pipeline) recompute(records []models.Workout, now time.Time) (views Views, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.metrics.CounterDerivePanics.Inc()
			p.log.Error("deriving views", "panic", r, "records", len(records))
			ok = false
		}
	}()

	for _, err := range Violations(records) {
		p.metrics.CounterIntegrityViolations.Inc()
		p.log.Warn("skipping inconsistent workout record", "error", err)
	}

	start := time.Now()
	views = p.derive(records, now)
	p.metrics.HistRecomputeDuration.Observe(time.Since(start).Seconds())
	p.metrics.CounterRecomputes.Inc()
	return views, true
}

func (p *Pipeline) publish(gen uint64, records []models.Workout, now time.Time, v Views) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gen != gen {
		return
	}
	p.plans.Publish(v.Plans)
	p.streak.Publish(v.Streak)
	p.cards.Publish(v.Cards)
	p.weekly.Publish(v.Weekly)
	p.state.Publish(State{Records: records, Day: analytics.StartOfDay(now), Views: v})

	p.metrics.GaugeRecords.Set(float64(len(records)))
	p.metrics.GaugeStreak.Set(float64(v.Streak))
}
