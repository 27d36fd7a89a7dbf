package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nerrad567/sensor-registry/internal/sensor"
)

// metricsNamespace prefixes every exported metric.
const metricsNamespace = "sensord"

// metrics holds the Prometheus collectors for one server.
// Each server owns its registry so several can coexist in one process.
type metrics struct {
	registry *prometheus.Registry

	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	events        *prometheus.CounterVec
	eventsDropped prometheus.Counter
	publishErrors prometheus.Counter
}

// newMetrics registers collectors for HTTP traffic, registry events and
// live gauges read from the registry and hub at scrape time.
func newMetrics(reg *sensor.Registry, hub *Hub) *metrics {
	r := prometheus.NewRegistry()
	r.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(r)

	m := &metrics{
		registry: r,
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"method", "route"},
		),
		events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "sensor_events_total",
				Help:      "Registry changes by event type",
			},
			[]string{"type"},
		),
		eventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "events_dropped_total",
			Help:      "Events dropped because the dispatch queue was full",
		}),
		publishErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "mqtt_publish_errors_total",
			Help:      "Failed MQTT event publishes",
		}),
	}

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "sensors_registered",
		Help:      "Number of sensors currently registered",
	}, func() float64 { return float64(reg.Count()) })

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "sensors_online",
		Help:      "Number of registered sensors with status online",
	}, func() float64 { return float64(reg.CountByStatus()[sensor.StatusOnline]) })

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "websocket_clients",
		Help:      "Connected WebSocket clients",
	}, func() float64 { return float64(hub.ClientCount()) })

	return m
}

func (m *metrics) observeRequest(method, route, status string, elapsed time.Duration) {
	m.requests.WithLabelValues(method, route, status).Inc()
	m.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *metrics) recordEvent(typ sensor.EventType) {
	m.events.WithLabelValues(string(typ)).Inc()
}
