package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "aiops"

// Metrics holds the pipeline collectors. All methods are safe on a nil
// receiver so components can run without metrics.
type Metrics struct {
	Registry      *prometheus.Registry
	tasksTotal    *prometheus.CounterVec
	stepsTotal    *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		tasksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "tasks_total",
			Help:      "Tasks processed, labeled by outcome.",
		}, []string{"outcome"}),
		stepsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "steps_total",
			Help:      "Plan steps executed, labeled by tool and status.",
		}, []string{"tool", "status"}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages (plan, execute, verify).",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
	}
}

func (m *Metrics) ObserveTask(outcome string) {
	if m == nil {
		return
	}
	m.tasksTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveStep(tool, status string) {
	if m == nil {
		return
	}
	m.stepsTotal.WithLabelValues(tool, status).Inc()
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}
