package metrics

import (
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the server's Prometheus collectors.
type Metrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge
	reportsTotal     *prometheus.CounterVec
	attachmentBytes  prometheus.Histogram
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		requestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "endpoint"},
		),
		requestsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),
		reportsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reports_upserted_total",
				Help: "Report writes by whether they created a new report",
			},
			[]string{"created"},
		),
		attachmentBytes: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "attachment_size_bytes",
				Help:    "Size of stored attachments",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
			},
		),
	}
}

func (m *Metrics) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		start := time.Now()
		m.requestsInFlight.Inc()

		endpoint := "unknown"
		if op := ctx.Operation(); op != nil && op.Path != "" {
			endpoint = op.Path
		}

		next(ctx)

		m.requestsInFlight.Dec()
		m.requestsTotal.WithLabelValues(ctx.Method(), endpoint, strconv.Itoa(ctx.Status())).Inc()
		m.requestDuration.WithLabelValues(ctx.Method(), endpoint).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) ReportUpserted(created bool) {
	m.reportsTotal.WithLabelValues(strconv.FormatBool(created)).Inc()
}

func (m *Metrics) AttachmentStored(size int) {
	m.attachmentBytes.Observe(float64(size))
}
