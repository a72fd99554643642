package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FeedLoads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "likers_feed_loads_total",
		Help: "Number of likers feed loads",
	})

	FeedLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "likers_feed_load_duration_seconds",
		Help:    "Duration of likers feed loads and refills",
		Buckets: prometheus.DefBuckets,
	})

	ReconciledChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "likers_reconciled_changes_total",
		Help: "Ledger changes applied to open feeds",
	}, []string{"kind"})

	MatchesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matches_created_total",
		Help: "Mutual matches committed",
	})

	MatchCommitFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "match_commit_failures_total",
		Help: "Like-back or pass commits that failed and were rolled back",
	}, []string{"path"})

	DuplicateActivations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "match_duplicate_activations_total",
		Help: "Like-back or pass requests on an event that was already consumed",
	})

	OpenSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "likers_open_sessions",
		Help: "Likers feed sessions currently open",
	})
)
