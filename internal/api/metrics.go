package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	requests  *prometheus.CounterVec
	items     prometheus.Counter
	failures  prometheus.Counter
	inference prometheus.Histogram
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "finsent",
				Name:      "classify_requests_total",
				Help:      "Classify requests by response status code.",
			},
			[]string{"code"},
		),
		items: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "finsent",
				Name:      "classify_items_total",
				Help:      "Texts submitted for classification.",
			},
		),
		failures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "finsent",
				Name:      "inference_failures_total",
				Help:      "Classification calls answered with an error payload.",
			},
		),
		inference: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "finsent",
				Name:      "inference_duration_seconds",
				Help:      "Time spent in the inference pipeline per request.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
			},
		),
	}
	m.registry.MustRegister(
		m.requests,
		m.items,
		m.failures,
		m.inference,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) observeRequest(status int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(strconv.Itoa(status)).Inc()
}

func (m *Metrics) observeInference(items int, elapsed time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.items.Add(float64(items))
	m.inference.Observe(elapsed.Seconds())
	if failed {
		m.failures.Inc()
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) handle(c *echo.Context) error {
	m.Handler().ServeHTTP(c.Response(), c.Request())
	return nil
}
