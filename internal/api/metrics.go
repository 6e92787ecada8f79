package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// pageMetrics — метрики страниц на собственном registry, чтобы несколько
// Admin в одном процессе не конфликтовали при регистрации.
type pageMetrics struct {
	registry        *prometheus.Registry
	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	activeRequests  *prometheus.GaugeVec
}

func newPageMetrics(name string) *pageMetrics {
	m := &pageMetrics{
		registry: prometheus.NewRegistry(),
		requestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: name + "_page_requests_total",
				Help: "Total number of page requests",
			},
			[]string{"page", "method", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    name + "_page_duration_seconds",
				Help:    "Duration of page renders in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"page", "method"},
		),
		activeRequests: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: name + "_page_active_requests",
				Help: "Number of page requests in flight",
			},
			[]string{"page"},
		),
	}
	m.registry.MustRegister(m.requestCounter, m.requestDuration, m.activeRequests)
	return m
}

// observe отмечает начало запроса; возвращённая функция фиксирует статус и длительность.
func (m *pageMetrics) observe(page, method string) func(status int) {
	start := time.Now()
	m.activeRequests.WithLabelValues(page).Inc()
	return func(status int) {
		m.activeRequests.WithLabelValues(page).Dec()
		m.requestCounter.WithLabelValues(page, method, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(page, method).Observe(time.Since(start).Seconds())
	}
}

func (m *pageMetrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
