// Package metrics holds the Prometheus collectors for HTTP traffic, tool
// commands and open designs.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	commands     *prometheus.CounterVec
	commandTime  *prometheus.HistogramVec
	openDesigns  prometheus.Gauge
	exports      *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"path", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "canvas_commands_total",
			Help: "Tool commands by name and outcome",
		}, []string{"tool", "success"}),
		commandTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "canvas_command_duration_seconds",
			Help:    "Duration of tool commands",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"tool"}),
		openDesigns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "canvas_open_designs",
			Help: "Designs currently open in the workspace",
		}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "canvas_exports_total",
			Help: "Exports by format",
		}, []string{"format"}),
	}
	m.registry.MustRegister(m.httpRequests, m.httpDuration, m.commands, m.commandTime, m.openDesigns, m.exports)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCommand matches the agent router's observer signature.
func (m *Metrics) ObserveCommand(tool string, success bool, elapsed time.Duration) {
	m.commands.WithLabelValues(tool, strconv.FormatBool(success)).Inc()
	m.commandTime.WithLabelValues(tool).Observe(elapsed.Seconds())
}

func (m *Metrics) SetOpenDesigns(n int) { m.openDesigns.Set(float64(n)) }

func (m *Metrics) CountExport(format string) { m.exports.WithLabelValues(format).Inc() }

// Middleware records request counts and latency, labelled by route template
// so ids in paths do not explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}
		m.httpRequests.WithLabelValues(path, r.Method, strconv.Itoa(ww.statusCode)).Inc()
		m.httpDuration.WithLabelValues(path, r.Method).Observe(time.Since(start).Seconds())
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
