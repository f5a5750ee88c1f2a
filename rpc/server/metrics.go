package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/ValentinKolb/dShare/rpc/common"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

var MetricsLogger = logger.GetLogger("metrics")

// nodeMetrics holds the metrics of one node in its own set, so several nodes
// in one process do not share counters
type nodeMetrics struct {
	set *metrics.Set

	connections  *metrics.Counter
	syncAttempts *metrics.Counter
	syncRequests *metrics.Counter
}

func newNodeMetrics(n *Node) *nodeMetrics {
	set := metrics.NewSet()
	m := &nodeMetrics{
		set:          set,
		connections:  set.NewCounter("dshare_connections_total"),
		syncAttempts: set.NewCounter("dshare_sync_attempts_total"),
		syncRequests: set.NewCounter("dshare_sync_requests_total"),
	}

	set.NewGauge("dshare_connections_active", func() float64 {
		return float64(n.conns.Size())
	})
	set.NewGauge("dshare_pool_active_jobs", func() float64 {
		return float64(n.pool.Active())
	})
	set.NewGauge("dshare_pool_pending_jobs", func() float64 {
		return float64(n.pool.Pending())
	})
	for _, status := range []common.PeerStatus{common.PeerUnknown, common.PeerAcknowledged, common.PeerRestricted, common.PeerUnavailable} {
		set.NewGauge(fmt.Sprintf(`dshare_peers{status=%q}`, status), func() float64 {
			return float64(n.peers.count(status))
		})
	}

	return m
}

// observeRequest records the outcome and duration of a dispatched command
func (m *nodeMetrics) observeRequest(command string, err error, start time.Time) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.set.GetOrCreateCounter(fmt.Sprintf(`dshare_requests_total{command=%q,result=%q}`, command, result)).Inc()
	m.set.GetOrCreateHistogram(fmt.Sprintf(`dshare_request_duration_seconds{command=%q}`, command)).UpdateDuration(start)
}

// WritePrometheus writes the node and process metrics in Prometheus text format
func (m *nodeMetrics) WritePrometheus(w io.Writer) {
	m.set.WritePrometheus(w)
	metrics.WriteProcessMetrics(w)
}

// metricsServer serves the metrics of a node over HTTP at /metrics
type metricsServer struct {
	srv      *http.Server
	listener net.Listener
}

func startMetricsServer(endpoint string, m *nodeMetrics) (*metricsServer, error) {
	listener, err := net.Listen("tcp", endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to bind metrics endpoint %s: %w", endpoint, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		m.WritePrometheus(w)
	})

	s := &metricsServer{
		srv:      &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		listener: listener,
	}

	go func() {
		if err := s.srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			MetricsLogger.Errorf("metrics server stopped: %v", err)
		}
	}()

	MetricsLogger.Infof("serving metrics on http://%s/metrics", listener.Addr())
	return s, nil
}

// Addr returns the address the metrics server listens on
func (s *metricsServer) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *metricsServer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
