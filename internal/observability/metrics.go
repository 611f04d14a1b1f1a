package observability

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	memoryOpDuration *prometheus.HistogramVec
	memoryRecords    *prometheus.GaugeVec

	completionTotal    *prometheus.CounterVec
	completionDuration *prometheus.HistogramVec

	taskRunTotal    *prometheus.CounterVec
	taskRunDuration *prometheus.HistogramVec

	curationTotal *prometheus.CounterVec
	successRate   *prometheus.GaugeVec
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			memoryOpDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "memory_operation_duration_seconds",
					Help:    "Memory bank operation duration in seconds by bank and operation.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"bank", "op"},
			),
			memoryRecords: prometheus.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "memory_records",
					Help: "Records currently held by each memory bank.",
				},
				[]string{"bank"},
			),
			completionTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "completion_calls_total",
					Help: "Total text-completion calls by stage and status.",
				},
				[]string{"stage", "status"},
			),
			completionDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "completion_duration_seconds",
					Help:    "Text-completion latency in seconds by stage.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"stage"},
			),
			taskRunTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "task_runs_total",
					Help: "Total orchestrated task runs by strategy and status.",
				},
				[]string{"strategy", "status"},
			),
			taskRunDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "task_run_duration_seconds",
					Help:    "Task run duration in seconds by strategy.",
					Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
				},
				[]string{"strategy"},
			),
			curationTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "curation_results_total",
					Help: "Trajectory curation outcomes.",
				},
				[]string{"outcome"},
			),
			successRate: prometheus.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "bench_success_rate",
					Help: "Benchmark success rate in percent by run and split.",
				},
				[]string{"run", "split"},
			),
		}

		prometheus.MustRegister(
			m.memoryOpDuration,
			m.memoryRecords,
			m.completionTotal,
			m.completionDuration,
			m.taskRunTotal,
			m.taskRunDuration,
			m.curationTotal,
			m.successRate,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

// WriteTextfile dumps the default registry in the text exposition format.
func WriteTextfile(path string) error {
	EnsureRegistered()
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

func RecordMemoryOp(bank, op string, duration time.Duration) {
	m := getMetrics()
	m.memoryOpDuration.WithLabelValues(bank, op).Observe(duration.Seconds())
}

func SetMemoryRecords(bank string, total int) {
	m := getMetrics()
	m.memoryRecords.WithLabelValues(bank).Set(float64(total))
}

func RecordCompletion(stage string, duration time.Duration, success bool) {
	m := getMetrics()
	m.completionTotal.WithLabelValues(stage, status(success)).Inc()
	m.completionDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

func RecordTaskRun(strategy string, duration time.Duration, success bool) {
	m := getMetrics()
	m.taskRunTotal.WithLabelValues(strategy, status(success)).Inc()
	m.taskRunDuration.WithLabelValues(strategy).Observe(duration.Seconds())
}

// RecordCuration counts a curation outcome: parsed, rejected, failed or skipped.
func RecordCuration(outcome string) {
	m := getMetrics()
	m.curationTotal.WithLabelValues(outcome).Inc()
}

func SetSuccessRate(run, split string, percent float64) {
	m := getMetrics()
	m.successRate.WithLabelValues(run, split).Set(percent)
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
