// Package metrics exposes the queue manager's counters on an internal
// Prometheus endpoint, grounded on the teacher's and jordigilh-kubernaut's
// shared use of github.com/prometheus/client_golang for exactly this
// "counters behind /metrics" shape.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vzanotti/gappsd-go/internal/logging"
)

var (
	Dispatched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gappsd",
		Name:      "jobs_dispatched_total",
		Help:      "Number of jobs dispatched, by priority class.",
	}, []string{"class"})

	TransientWindowDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "gappsd",
		Name:      "transient_error_window_depth",
		Help:      "Current number of transient/credential errors within the sliding window.",
	})

	OverflowWarnings = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gappsd",
		Name:      "queue_overflow_warnings_total",
		Help:      "Number of adaptive-throttling overflow warnings emitted, by priority class.",
	}, []string{"class"})
)

func init() {
	prometheus.MustRegister(Dispatched, TransientWindowDepth, OverflowWarnings)
}

// Serve blocks forever serving /metrics on port.
func Serve(port int, log *logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	addr := fmt.Sprintf(":%d", port)
	log.Infow("metrics endpoint listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Errorw("metrics endpoint stopped", "error", err)
	}
}
