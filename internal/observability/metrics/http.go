package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	searchStrategyTotal *prometheus.CounterVec
	searchResults       *prometheus.HistogramVec
	searchDuration      *prometheus.HistogramVec
	chatStreamsTotal    *prometheus.CounterVec
	chatStreamDuration  *prometheus.HistogramVec
	chatDatasheets      *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hca",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hca",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "hca",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	searchStrategyTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hca",
			Subsystem: "search",
			Name:      "strategy_total",
			Help:      "Total retrieval strategy executions by outcome.",
		},
		[]string{"service", "strategy", "outcome"},
	)
	searchResults := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hca",
			Subsystem: "search",
			Name:      "results",
			Help:      "Distribution of ranked results per search.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 30},
		},
		[]string{"service"},
	)
	searchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hca",
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Hybrid search duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	chatStreamsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hca",
			Subsystem: "chat",
			Name:      "streams_total",
			Help:      "Total chat streams by outcome.",
		},
		[]string{"service", "outcome"},
	)
	chatStreamDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hca",
			Subsystem: "chat",
			Name:      "stream_duration_seconds",
			Help:      "Chat stream duration from request to done event.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
		},
		[]string{"service"},
	)
	chatDatasheets := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hca",
			Subsystem: "chat",
			Name:      "cited_datasheets",
			Help:      "Distribution of cited datasheets per completed stream.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		searchStrategyTotal,
		searchResults,
		searchDuration,
		chatStreamsTotal,
		chatStreamDuration,
		chatDatasheets,
	)

	return &HTTPServerMetrics{
		registry:            registry,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		searchStrategyTotal: searchStrategyTotal,
		searchResults:       searchResults,
		searchDuration:      searchDuration,
		chatStreamsTotal:    chatStreamsTotal,
		chatStreamDuration:  chatStreamDuration,
		chatDatasheets:      chatDatasheets,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

// SearchObserver adapts the metrics registry to the search engine's observer
// contract.
type SearchObserver struct {
	metrics *HTTPServerMetrics
	service string
}

func (m *HTTPServerMetrics) SearchObserver(service string) *SearchObserver {
	return &SearchObserver{metrics: m, service: service}
}

func (o *SearchObserver) StrategyOutcome(strategy string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	o.metrics.searchStrategyTotal.WithLabelValues(o.service, strategy, outcome).Inc()
}

func (o *SearchObserver) SearchCompleted(resultCount int, duration time.Duration) {
	o.metrics.searchResults.WithLabelValues(o.service).Observe(float64(resultCount))
	o.metrics.searchDuration.WithLabelValues(o.service).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RecordChatStream(service, outcome string, duration time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.chatStreamsTotal.WithLabelValues(service, outcome).Inc()
	m.chatStreamDuration.WithLabelValues(service).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RecordCitedDatasheets(service string, count int) {
	m.chatDatasheets.WithLabelValues(service).Observe(float64(count))
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
