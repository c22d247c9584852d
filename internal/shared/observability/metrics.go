package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	CompileDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "execdoc_compile_duration_seconds",
		Help:    "Time spent compiling a node.",
		Buckets: prometheus.DefBuckets,
	}, []string{"node_type"})

	ExecuteDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "execdoc_execute_duration_seconds",
		Help:    "Time spent executing a node.",
		Buckets: prometheus.DefBuckets,
	}, []string{"node_type"})

	StatementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "execdoc_statements_total",
		Help: "Total number of statements run, by execution primitive.",
	}, []string{"kind"})

	FragmentErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "execdoc_fragment_errors_total",
		Help: "Total number of errors attached to fragments.",
	}, []string{"error_type"})

	RPCRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "execdoc_rpc_requests_total",
		Help: "Total number of RPC requests handled.",
	}, []string{"method", "status"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "execdoc_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)
