package observability

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/sirwalterjones/threads-backend/internal/platform/logger"
)

type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	aggregateOps       *prometheus.HistogramVec
	aggregateConflicts *prometheus.CounterVec
	aggregateRetries   *prometheus.CounterVec

	tagSyncOutcomes *prometheus.CounterVec
	tagsPerPost     prometheus.Histogram

	pgStats *prometheus.GaugeVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	v := strings.TrimSpace(os.Getenv("METRICS_ENABLED"))
	if v == "" {
		return false
	}
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	v := strings.TrimSpace(os.Getenv("METRICS_SCRAPE_INTERVAL_SECONDS"))
	if v == "" {
		return 10 * time.Second
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 10 * time.Second
	}
	return time.Duration(n) * time.Second
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		m := &Metrics{
			registry: reg,
			apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "tb_api_requests_total",
				Help: "Total API requests by method/route/status.",
			}, []string{"method", "route", "status"}),
			apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "tb_api_request_duration_seconds",
				Help:    "API request latency in seconds by method/route/status.",
				Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			}, []string{"method", "route", "status"}),
			apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "tb_api_inflight_requests",
				Help: "In-flight API requests.",
			}),
			aggregateOps: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "tb_aggregate_operation_duration_seconds",
				Help:    "Aggregate write operation duration in seconds by operation/status.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			}, []string{"operation", "status"}),
			aggregateConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "tb_aggregate_conflict_total",
				Help: "Aggregate write conflicts by operation.",
			}, []string{"operation"}),
			aggregateRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "tb_aggregate_retryable_total",
				Help: "Aggregate writes surfacing retryable failures by operation.",
			}, []string{"operation"}),
			tagSyncOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "tb_tag_sync_outcome_total",
				Help: "Tag sync outcomes by trigger/outcome.",
			}, []string{"trigger", "outcome"}),
			tagsPerPost: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "tb_post_tag_count",
				Help:    "Tags on a post after a sync touched it.",
				Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
			}),
			pgStats: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "tb_postgres_stats",
				Help: "Postgres connection pool stats.",
			}, []string{"metric"}),
		}
		reg.MustRegister(
			m.apiRequests,
			m.apiLatency,
			m.apiInflight,
			m.aggregateOps,
			m.aggregateConflicts,
			m.aggregateRetries,
			m.tagSyncOutcomes,
			m.tagsPerPost,
			m.pgStats,
		)
		instance = m
		if log != nil {
			log.Info("Observability metrics enabled")
		}
	})
	return instance
}

// Handler serves the registry in Prometheus exposition format. A nil receiver
// answers 503 so the route can be mounted unconditionally.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route, status).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveAggregateOperation(operation, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if operation == "" {
		operation = "unknown"
	}
	if status == "" {
		status = "unknown"
	}
	m.aggregateOps.WithLabelValues(operation, status).Observe(dur.Seconds())
}

func (m *Metrics) IncAggregateConflict(operation string) {
	if m == nil {
		return
	}
	if operation == "" {
		operation = "unknown"
	}
	m.aggregateConflicts.WithLabelValues(operation).Inc()
}

func (m *Metrics) IncAggregateRetry(operation string) {
	if m == nil {
		return
	}
	if operation == "" {
		operation = "unknown"
	}
	m.aggregateRetries.WithLabelValues(operation).Inc()
}

func (m *Metrics) IncTagSyncOutcome(trigger, outcome string) {
	if m == nil {
		return
	}
	trigger = strings.TrimSpace(trigger)
	if trigger == "" {
		trigger = "unknown"
	}
	outcome = strings.TrimSpace(outcome)
	if outcome == "" {
		outcome = "unknown"
	}
	m.tagSyncOutcomes.WithLabelValues(trigger, outcome).Inc()
}

func (m *Metrics) ObservePostTagCount(n int) {
	if m == nil || n < 0 {
		return
	}
	m.tagsPerPost.Observe(float64(n))
}

func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: postgres stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.pgStats.WithLabelValues("open_connections").Set(float64(stats.OpenConnections))
				m.pgStats.WithLabelValues("in_use").Set(float64(stats.InUse))
				m.pgStats.WithLabelValues("idle").Set(float64(stats.Idle))
				m.pgStats.WithLabelValues("wait_count").Set(float64(stats.WaitCount))
				m.pgStats.WithLabelValues("wait_duration_seconds").Set(stats.WaitDuration.Seconds())
				m.pgStats.WithLabelValues("max_open_connections").Set(float64(stats.MaxOpenConnections))
			}
		}
	}()
}
