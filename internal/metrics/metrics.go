package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vbonduro/loteamento/internal/domain"
)

// Metrics groups the Prometheus collectors of one process. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry                *prometheus.Registry
	httpRequests            *prometheus.CounterVec
	httpRequestDuration     *prometheus.HistogramVec
	registryRequests        *prometheus.CounterVec
	registryRequestDuration *prometheus.HistogramVec
	lots                    *prometheus.GaugeVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "loteamento",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests served",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "loteamento",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	registryRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "loteamento",
		Name:      "registry_requests_total",
		Help:      "Count of requests issued to the plot registry",
	}, []string{"op", "status"})

	registryRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "loteamento",
		Name:      "registry_request_duration_seconds",
		Help:      "Duration of requests issued to the plot registry",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})

	lots := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "loteamento",
		Name:      "lots",
		Help:      "Lots by sale status as of the last rendered plot map",
	}, []string{"status"})

	registry.MustRegister(
		httpRequests,
		httpRequestDuration,
		registryRequests,
		registryRequestDuration,
		lots,
	)

	return &Metrics{
		registry:                registry,
		httpRequests:            httpRequests,
		httpRequestDuration:     httpRequestDuration,
		registryRequests:        registryRequests,
		registryRequestDuration: registryRequestDuration,
		lots:                    lots,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// ObserveRegistryRequest records one registry call. A zero status means the
// request failed before a response arrived.
func (m *Metrics) ObserveRegistryRequest(op string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := "error"
	if status != 0 {
		code = strconv.Itoa(status)
	}
	m.registryRequests.WithLabelValues(op, code).Inc()
	m.registryRequestDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// SetLotCounts publishes the lot totals. total is exported under the "total"
// status label.
func (m *Metrics) SetLotCounts(total int, byStatus map[domain.Status]int) {
	if m == nil {
		return
	}
	m.lots.WithLabelValues("total").Set(float64(total))
	for _, s := range domain.Statuses {
		m.lots.WithLabelValues(string(s)).Set(float64(byStatus[s]))
	}
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
