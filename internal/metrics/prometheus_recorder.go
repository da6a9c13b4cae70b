package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	operations   *prom.CounterVec
	materialized *prom.CounterVec
	passDuration prom.Histogram
	trackedUsers prom.Gauge
}

// NewPrometheusRecorder constructs the collectors and registers them on reg
// together with the Go and process collectors. A nil reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		operations: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "daytrack",
			Name:      "operations_total",
			Help:      "Tracker operations by name and result",
		}, []string{"operation", "result"}),
		materialized: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "daytrack",
			Name:      "materialized_days_total",
			Help:      "Default levels written into empty days by the scheduled pass",
		}, []string{"metric"}),
		passDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "daytrack",
			Name:      "materialization_pass_duration_seconds",
			Help:      "Duration of a full materialization pass over all users",
			Buckets:   prom.DefBuckets,
		}),
		trackedUsers: prom.NewGauge(prom.GaugeOpts{
			Namespace: "daytrack",
			Name:      "tracked_users",
			Help:      "Users covered by the last materialization pass",
		}),
	}
	reg.MustRegister(pr.operations, pr.materialized, pr.passDuration, pr.trackedUsers)
	reg.MustRegister(promcollect.NewGoCollector(), promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}))
	return pr
}

func (p *PrometheusRecorder) IncOperation(op string, result ResultLabel) {
	if p == nil {
		return
	}
	p.operations.WithLabelValues(op, string(result)).Inc()
}

func (p *PrometheusRecorder) IncMaterialized(metric string) {
	if p == nil {
		return
	}
	p.materialized.WithLabelValues(metric).Inc()
}

func (p *PrometheusRecorder) ObservePassDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.passDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) SetTrackedUsers(n int) {
	if p == nil {
		return
	}
	p.trackedUsers.Set(float64(n))
}

// HTTPHandler returns an http.Handler that serves metrics for the provided registry.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
