package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"musicosa/internal/flowgate"
)

const metricsNamespace = "musicosa"

// Metrics collects run counters on a private registry. The registry is
// exported once at the end of the run as a node exporter textfile.
type Metrics struct {
	registry *prometheus.Registry

	stageDuration  *prometheus.GaugeVec
	stageRuns      *prometheus.CounterVec
	gateDecisions  *prometheus.CounterVec
	items          *prometheus.CounterVec
	recordsWritten *prometheus.CounterVec
	lastRun        prometheus.Gauge
}

// NewMetrics registers the pipeline metrics on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	auto := promauto.With(registry)
	return &Metrics{
		registry: registry,
		stageDuration: auto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "stage",
			Name:      "duration_seconds",
			Help:      "Wall time of the last run of each stage, operator prompts included",
		}, []string{"stage"}),
		stageRuns: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "stage",
			Name:      "runs_total",
			Help:      "Stage runs by outcome",
		}, []string{"stage", "outcome"}),
		gateDecisions: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "gate",
			Name:      "decisions_total",
			Help:      "Operator decisions taken at gates",
		}, []string{"step", "control"}),
		items: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "stage",
			Name:      "items_total",
			Help:      "Per item results of the media stages",
		}, []string{"stage", "result"}),
		recordsWritten: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "store",
			Name:      "records_committed_total",
			Help:      "Records written by stage checkpoints",
		}, []string{"stage"}),
		lastRun: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// DecisionHook adapts the metrics to flowgate.WithDecisionHook.
func (m *Metrics) DecisionHook() func(step string, choice flowgate.Control) {
	return func(step string, choice flowgate.Control) {
		if m == nil {
			return
		}
		m.gateDecisions.WithLabelValues(step, string(choice)).Inc()
	}
}

func (m *Metrics) observeStage(stage int, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := strconv.Itoa(stage)
	m.stageDuration.WithLabelValues(label).Set(elapsed.Seconds())
	m.stageRuns.WithLabelValues(label, outcome).Inc()
}

func (m *Metrics) addItems(stage int, result string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.items.WithLabelValues(strconv.Itoa(stage), result).Add(float64(n))
}

func (m *Metrics) addCommitted(stage int, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.recordsWritten.WithLabelValues(strconv.Itoa(stage)).Add(float64(n))
}

// WriteTextfile stamps the run end and writes the registry to path.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	m.lastRun.SetToCurrentTime()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
