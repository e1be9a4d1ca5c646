package tasks

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var candidatesEvaluated = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "market_candidates_evaluated_total",
	Help: "Number of candidates evaluated, by verdict",
}, []string{"verdict"})

var sourceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "market_source_failures_total",
	Help: "Number of source fetches that failed, by source and stage",
}, []string{"source", "stage"})

var candidateOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "market_candidate_outcomes_total",
	Help: "Number of accepted candidates by what happened to them",
}, []string{"outcome"})

var listingsExpired = promauto.NewCounter(prometheus.CounterOpts{
	Name: "market_listings_expired_total",
	Help: "Number of listings removed by the expiration sweep",
})

var digestUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "market_digest_updates_total",
	Help: "Number of digest updates, by action",
}, []string{"action"})

var taskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "market_task_duration_seconds",
	Help:    "Duration of task executions",
	Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
}, []string{"type", "status"})

var lanesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "market_lane_skipped_total",
	Help: "Number of cycles skipped because the lane was still busy",
}, []string{"lane"})
