package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterSnapshots           prometheus.Counter
	CounterRecomputes          prometheus.Counter
	CounterSuperseded          prometheus.Counter
	CounterStoreErrors         prometheus.Counter
	CounterIntegrityViolations prometheus.Counter
	CounterDerivePanics        prometheus.Counter
	CounterDayRollovers        prometheus.Counter
	CounterActions             *prometheus.CounterVec

	// gauges
	GaugeActiveOutputs prometheus.Gauge
	GaugeRecords       prometheus.Gauge
	GaugeStreak        prometheus.Gauge

	// histograms
	HistRecomputeDuration prometheus.Histogram
}

func NewTestManager() *Manager {
	return NewManager("nextrep", "test", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("nextrep", "test", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterSnapshots := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "snapshots_received",
		Help:      "The total number of store snapshots received",
	})
	counterRecomputes := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "recomputes",
		Help:      "The total number of derived view recomputations",
	})
	counterSuperseded := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "recomputes_superseded",
		Help:      "Recomputations discarded because a newer snapshot arrived",
	})
	counterStoreErrors := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "store_errors",
		Help:      "The total number of failed store subscriptions",
	})
	counterIntegrity := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "integrity_violations",
		Help:      "Records skipped because completed and completed_at disagree",
	})
	counterPanics := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "derive_panics",
		Help:      "The total number of recovered derivation panics",
	})
	counterRollovers := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "day_rollovers",
		Help:      "Recomputations triggered by the calendar day changing",
	})
	counterActions := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "actions",
		Help:      "Mutating operations by name and outcome",
	}, []string{"action", "outcome"})

	gaugeActive := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "active_outputs",
		Help:      "Derived outputs with at least one subscriber",
	})
	gaugeRecords := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "records",
		Help:      "Records in the latest snapshot",
	})
	gaugeStreak := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "streak_days",
		Help:      "Current adherence streak in days",
	})

	histRecompute := factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Buckets: []float64{
				0.00001, 0.00005, 0.0001, 0.0005, 0.001,
				0.005, 0.01, 0.05, 0.1, 0.5, 1,
			},
			Name: "recompute_duration_seconds",
			Help: "Duration of a full derived view recomputation in seconds",
		},
	)

	return &Manager{
		CounterSnapshots:           counterSnapshots,
		CounterRecomputes:          counterRecomputes,
		CounterSuperseded:          counterSuperseded,
		CounterStoreErrors:         counterStoreErrors,
		CounterIntegrityViolations: counterIntegrity,
		CounterDerivePanics:        counterPanics,
		CounterDayRollovers:        counterRollovers,
		CounterActions:             counterActions,
		GaugeActiveOutputs:         gaugeActive,
		GaugeRecords:               gaugeRecords,
		GaugeStreak:                gaugeStreak,
		HistRecomputeDuration:      histRecompute,
	}
}
