// Package metrics exposes Prometheus metrics for the lifecycle manager on a
// dedicated listener, separate from the ops API.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the manager's instrumentation.
type Metrics struct {
	// MigrationRuns counts migration attempts.
	// Labels: kind (data|node-key), status (success|error|dry-run)
	MigrationRuns *prometheus.CounterVec

	// RPCCalls counts node RPC operations issued through the ops surface.
	// Labels: operation, status (success|error)
	RPCCalls *prometheus.CounterVec

	// OperationDuration measures operator action latency in seconds.
	// Labels: operation
	OperationDuration *prometheus.HistogramVec
}

// New registers the manager's metrics with the default registry.
func New(namespace string) *Metrics {
	return &Metrics{
		MigrationRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "migration_runs_total",
			Help:      "Migration runs by kind and status.",
		}, []string{"kind", "status"}),
		RPCCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_calls_total",
			Help:      "Node RPC calls by operation and status.",
		}, []string{"operation", "status"}),
		OperationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Operator action latency.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"operation"}),
	}
}

// Server serves the /metrics endpoint.
type Server struct {
	srv *http.Server
}

// NewServer creates the metrics listener.
func NewServer(addr string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

func (s *Server) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
