package interceptors

import (
	"errors"
	"strconv"

	"github.com/abdul-hamid-achik/qxhr/packages/xhr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records Prometheus metrics for requests passing through its
// interceptor. It is safe for concurrent use.
type Metrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec
	errorsTotal      *prometheus.CounterVec

	timing timing
}

// NewMetrics registers the request metrics on registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	return &Metrics{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "qxhr_requests_total",
				Help: "Total number of completed HTTP requests",
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "qxhr_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestsInFlight: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "qxhr_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
			[]string{"method", "endpoint"},
		),
		errorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "qxhr_errors_total",
				Help: "Total number of failed requests by kind",
			},
			[]string{"type", "method", "endpoint"},
		),
	}
}

// Interceptor returns the interceptor feeding m.
func (m *Metrics) Interceptor() xhr.Interceptor {
	return xhr.Interceptor{
		Request: func(c *xhr.Config) (*xhr.Config, error) {
			m.timing.start(c)
			m.requestsInFlight.WithLabelValues(c.Method, endpoint(c.URL)).Inc()
			return c, nil
		},
		Response: func(r *xhr.Response) (*xhr.Response, error) {
			m.observe(r, "")
			return r, nil
		},
		ResponseError: func(err error) (*xhr.Response, error) {
			if r := xhr.ResponseOf(err); r != nil {
				m.observe(r, errorType(err))
				return nil, err
			}
			method, ep := "", ""
			if c := xhr.ConfigOf(err); c != nil {
				method, ep = c.Method, endpoint(c.URL)
				if m.timing.forget(err) {
					m.requestsInFlight.WithLabelValues(method, ep).Dec()
				}
			}
			m.errorsTotal.WithLabelValues(errorType(err), method, ep).Inc()
			return nil, err
		},
	}
}

func (m *Metrics) observe(r *xhr.Response, errType string) {
	if r.Config == nil {
		return
	}
	method, ep := r.Config.Method, endpoint(r.Config.URL)

	d, ok := m.timing.stop(r.Config)
	if !ok {
		return
	}
	m.requestsInFlight.WithLabelValues(method, ep).Dec()

	status := strconv.Itoa(r.Status)
	m.requestsTotal.WithLabelValues(method, status, ep).Inc()
	m.requestDuration.WithLabelValues(method, status, ep).Observe(d.Seconds())
	if errType != "" {
		m.errorsTotal.WithLabelValues(errType, method, ep).Inc()
	}
}

func errorType(err error) string {
	var schemaErr *SchemaError
	if errors.As(err, &schemaErr) {
		return "schema"
	}
	re, ok := xhr.AsResponseError(err)
	switch {
	case !ok:
		return "interceptor"
	case re.TimedOut:
		return "timeout"
	case re.Response == nil || re.Response.Status == 0:
		return "network"
	default:
		return "status"
	}
}
