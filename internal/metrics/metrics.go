package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Quote metrics
	QuoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_engine_quote_requests_total",
			Help: "Total number of resolved quote requests by kind and final state",
		},
		[]string{"kind", "state"},
	)

	QuoteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quote_engine_quote_duration_seconds",
			Help:    "Time from first evaluation to terminal state",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		},
		[]string{"kind"},
	)

	// Strategy metrics
	StrategyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quote_engine_strategy_duration_seconds",
			Help:    "Strategy evaluation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8},
		},
		[]string{"strategy"},
	)

	StrategyOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_engine_strategy_outcomes_total",
			Help: "Strategy results by outcome (just, nothing, fail, timeout)",
		},
		[]string{"strategy", "outcome"},
	)

	TierFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_engine_tier_fallbacks_total",
			Help: "Number of times the selector moved past a tier, by reason",
		},
		[]string{"reason"},
	)

	CrossChainPatterns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_engine_crosschain_patterns_total",
			Help: "Cross-chain requests by classified pattern",
		},
		[]string{"pattern"},
	)

	// Pool metrics
	PoolCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quote_engine_pool_cache_hits_total",
		Help: "Total number of candidate pool cache hits",
	})

	PoolCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quote_engine_pool_cache_misses_total",
		Help: "Total number of candidate pool cache misses",
	})

	PoolSourceWins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_engine_pool_source_wins_total",
			Help: "Which pool source answered a fetch (remote, local)",
		},
		[]string{"source"},
	)

	PoolFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_engine_pool_fetch_errors_total",
			Help: "Pool fetch failures by source",
		},
		[]string{"source"},
	)

	PoolsFetched = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "quote_engine_pools_fetched",
		Help:    "Number of candidate pools returned per fetch",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
	})

	// Engine caches
	QueryCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quote_engine_query_cache_hits_total",
		Help: "Total number of memoized query builder hits",
	})

	QueryCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quote_engine_query_cache_misses_total",
		Help: "Total number of memoized query builder misses",
	})

	PlaceholderHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quote_engine_placeholder_hits_total",
		Help: "Pending results served with a placeholder order",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quote_engine_active_sessions",
		Help: "Number of quote sessions with an evaluation in flight",
	})

	// State machines and bridge tracking
	FSMTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_engine_fsm_transitions_total",
			Help: "State machine transitions",
		},
		[]string{"machine", "from", "to"},
	)

	BridgeStatusPolls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_engine_bridge_status_polls_total",
			Help: "Bridge status polls by reduced status",
		},
		[]string{"status"},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_engine_events_published_total",
			Help: "Order status events published by result",
		},
		[]string{"result"},
	)

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_engine_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quote_engine_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	WebsocketStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quote_engine_websocket_streams",
		Help: "Open quote stream connections",
	})
)
