// Package metrics provides Prometheus instrumentation for the spot engine.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gridmarket/spot-engine/internal/model"
)

var (
	// ClearingsTotal counts clearing runs, partitioned by outcome
	// ("traded" or "no_trade").
	ClearingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spot_clearings_total",
		Help: "Total number of clearing runs",
	}, []string{"outcome"})

	// ClearingDuration tracks how long one sort/clear/allocate pass takes.
	ClearingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "spot_clearing_duration_seconds",
		Help:    "Clearing computation latency in seconds",
		Buckets: []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05},
	})

	// ClearingPrice is the last clearing price per scenario ($/MWh).
	ClearingPrice = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "spot_clearing_price",
		Help: "Last market clearing price per scenario",
	}, []string{"scenario"})

	// ClearedVolume is the last cleared volume per scenario (MW).
	ClearedVolume = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "spot_cleared_volume",
		Help: "Last cleared volume per scenario",
	}, []string{"scenario"})

	// MarketSurplus is the last total surplus per scenario.
	MarketSurplus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "spot_market_surplus",
		Help: "Last total market surplus per scenario",
	}, []string{"scenario"})

	// ActiveScenarios tracks the number of stored scenarios.
	ActiveScenarios = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "spot_active_scenarios",
		Help: "Number of stored scenarios",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "spot_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// ParticipantRejections counts participants refused by validation.
	ParticipantRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spot_participant_rejections_total",
		Help: "Participants rejected by input validation",
	}, []string{"reason"})

	// EventsPublished counts clearing events per sink ("ws", "kafka") and
	// status ("ok", "error", "dropped").
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spot_events_published_total",
		Help: "Clearing events handed to publishers",
	}, []string{"sink", "status"})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spot_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "spot_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// ObserveClearing records one clearing run for a scenario. scenarioID may
// be empty for stateless evaluations, in which case the per-scenario
// gauges are left alone.
func ObserveClearing(scenarioID string, r model.ClearingResult, elapsed time.Duration) {
	ClearingDuration.Observe(elapsed.Seconds())
	outcome := "no_trade"
	if r.Traded() {
		outcome = "traded"
	}
	ClearingsTotal.WithLabelValues(outcome).Inc()

	if scenarioID == "" {
		return
	}
	ClearingPrice.WithLabelValues(scenarioID).Set(r.ClearingPrice.InexactFloat64())
	ClearedVolume.WithLabelValues(scenarioID).Set(r.ClearedVolume.InexactFloat64())
	MarketSurplus.WithLabelValues(scenarioID).Set(r.MarketSurplus.InexactFloat64())
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Route pattern keeps the path label low-cardinality.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
