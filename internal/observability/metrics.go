package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// NOTE: All metrics are defined globally here and registered on the default
// registry. Every binary exposes the full set, some of them at zero.

// namespace defines the global prefix for all metrics (e.g., recommender_...).
const namespace = "recommender"

// lowLatencyBuckets is used for in-process work (cache lookups, rule evaluation).
// Standard buckets start at 5ms, which is too coarse for a cache hit.
var lowLatencyBuckets = []float64{.0005, .001, .002, .005, .010, .025, .050, .100, .250, .500}

var (
	// -------------------------------------------------------------------------
	// HTTP API
	// -------------------------------------------------------------------------

	// APIReqDuration measures the latency of HTTP requests.
	// Metric: recommender_api_http_handling_seconds
	APIReqDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "http_handling_seconds",
		Help:      "Time taken to handle HTTP requests",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	// APIReqTotal counts the total number of HTTP requests.
	// Metric: recommender_api_http_requests_total
	APIReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests",
	}, []string{"method", "path", "code"})

	// -------------------------------------------------------------------------
	// RULE EVALUATION
	// -------------------------------------------------------------------------

	// EvaluationDuration measures one full Recommend call (load + evaluate + fire).
	EvaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "evaluation_seconds",
		Help:      "Time taken to evaluate every rule for one user",
		Buckets:   lowLatencyBuckets,
	})

	// EvaluationsTotal counts Recommend calls by outcome (ok, error).
	EvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "evaluations_total",
		Help:      "Total recommendation evaluations",
	}, []string{"status"})

	// RulesSkippedTotal counts rules dropped from a result because of bad stored data.
	// reason: invalid_arguments, invalid_product_id
	RulesSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "rules_skipped_total",
		Help:      "Total rules skipped during evaluation due to invalid stored data",
	}, []string{"reason"})

	// -------------------------------------------------------------------------
	// FIRE COUNTER
	// -------------------------------------------------------------------------

	// RuleFiresTotal counts fire increments by outcome (success, fail, missing).
	RuleFiresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "stats",
		Name:      "rule_fires_total",
		Help:      "Total rule fire increments attempted",
	}, []string{"status"})

	// -------------------------------------------------------------------------
	// KNOWLEDGE STORE (otter caches)
	// -------------------------------------------------------------------------

	// KnowledgeCacheHits counts lookups served from memory, per cache space.
	// space: exists, count, sum
	KnowledgeCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "knowledge",
		Name:      "cache_hits_total",
		Help:      "Total aggregate cache hits",
	}, []string{"space"})

	KnowledgeCacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "knowledge",
		Name:      "cache_misses_total",
		Help:      "Total aggregate cache misses",
	}, []string{"space"})

	// KnowledgeCacheItems reports the current entry count, per cache space.
	// Otter tracks item count, not byte size.
	KnowledgeCacheItems = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "knowledge",
		Name:      "cache_items_count",
		Help:      "Current number of entries in the aggregate cache",
	}, []string{"space"})

	// KnowledgeCacheEvictions tracks entries removed by the size bound or TTL.
	KnowledgeCacheEvictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "knowledge",
		Name:      "cache_evictions_total",
		Help:      "Total aggregate cache evictions",
	}, []string{"space"})

	// KnowledgeFlushes counts flush-all operations by origin (local, remote).
	KnowledgeFlushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "knowledge",
		Name:      "flushes_total",
		Help:      "Total aggregate cache flushes",
	}, []string{"origin"})

	// -------------------------------------------------------------------------
	// LEDGER
	// -------------------------------------------------------------------------

	// LedgerQueryDuration measures the latency of ledger aggregate queries.
	LedgerQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "query_seconds",
		Help:      "Time taken by ledger aggregate queries",
		Buckets:   prometheus.DefBuckets,
	}, []string{"query"})

	LedgerQueryErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "query_errors_total",
		Help:      "Total failed ledger aggregate queries",
	}, []string{"query"})

	// -------------------------------------------------------------------------
	// RULES DATABASE (pgxpool)
	// -------------------------------------------------------------------------

	// DBPoolConnections reports pool connections by state (max, total, idle, in_use).
	DBPoolConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "database",
		Name:      "pool_connections",
		Help:      "Connections in the rules database pool by state",
	}, []string{"state"})

	// pgxpool exposes cumulative totals, so these are updated by delta.
	DBPoolAcquireCount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "database",
		Name:      "pool_acquire_count_total",
		Help:      "Total successful connection acquisitions",
	})

	DBPoolAcquireDuration = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "database",
		Name:      "pool_acquire_duration_seconds_total",
		Help:      "Cumulative time spent acquiring connections",
	})

	DBPoolWaitCount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "database",
		Name:      "pool_wait_count_total",
		Help:      "Total acquisitions that had to wait for a connection",
	})

	// -------------------------------------------------------------------------
	// CACHE FLUSH BUS (Redis Pub/Sub)
	// -------------------------------------------------------------------------

	// FlushBusMessages counts flush events by direction (published, received) and status.
	FlushBusMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "flushbus",
		Name:      "messages_total",
		Help:      "Total cache flush events exchanged over Redis",
	}, []string{"direction", "status"})
)
