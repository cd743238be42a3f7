package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	commitTotal     *prometheus.CounterVec
	commitDuration  prometheus.Histogram
	commitConflicts prometheus.Counter

	activeSessions       prometheus.Gauge
	sessionLoadDuration  prometheus.Histogram
	statePersistDuration prometheus.Histogram
	cacheEvictionsTotal  prometheus.Counter

	batchDuration prometheus.Histogram
	taskTotal     *prometheus.CounterVec
	taskDuration  *prometheus.HistogramVec
	tasksInflight prometheus.Gauge
	taskRetries   *prometheus.CounterVec
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter

	toolExecutionTotal    *prometheus.CounterVec
	toolExecutionDuration *prometheus.HistogramVec
	toolErrorsTotal       *prometheus.CounterVec

	stageTotal    *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			commitTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "state_commit_total",
					Help: "Total state commits by outcome.",
				},
				[]string{"outcome"},
			),
			commitDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "state_commit_duration_seconds",
					Help:    "Merge-and-persist duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			commitConflicts: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "state_commit_conflicts_total",
					Help: "Commits that timed out waiting for the session lock.",
				},
			),
			activeSessions: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "active_sessions",
					Help: "Sessions currently held in memory.",
				},
			),
			sessionLoadDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "session_load_duration_seconds",
					Help:    "Session state load duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			statePersistDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "state_persist_duration_seconds",
					Help:    "State store write duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			cacheEvictionsTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "session_cache_evictions_total",
					Help: "Idle session entries evicted from memory.",
				},
			),
			batchDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "task_batch_duration_seconds",
					Help:    "Task batch execution duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			taskTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "task_total",
					Help: "Total executed tasks by tool and status.",
				},
				[]string{"tool", "status"},
			),
			taskDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "task_duration_seconds",
					Help:    "Task execution duration in seconds by tool.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"tool"},
			),
			tasksInflight: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "tasks_inflight",
					Help: "Tasks currently being executed.",
				},
			),
			taskRetries: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "task_retries_total",
					Help: "Task execution retries by tool.",
				},
				[]string{"tool"},
			),
			cacheHits: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "task_cache_hits_total",
					Help: "Task results served from cache.",
				},
			),
			cacheMisses: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "task_cache_misses_total",
					Help: "Task executions that missed the cache.",
				},
			),
			toolExecutionTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tool_execution_total",
					Help: "Total tool executions by tool and status.",
				},
				[]string{"tool", "status"},
			),
			toolExecutionDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "tool_execution_duration_seconds",
					Help:    "Tool execution duration in seconds by tool.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"tool"},
			),
			toolErrorsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tool_errors_total",
					Help: "Total tool execution errors by tool.",
				},
				[]string{"tool"},
			),
			stageTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "orchestrator_stage_total",
					Help: "Orchestrator stage executions by stage and status.",
				},
				[]string{"stage", "status"},
			),
			stageDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "orchestrator_stage_duration_seconds",
					Help:    "Orchestrator stage duration in seconds by stage.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"stage"},
			),
		}

		prometheus.MustRegister(
			m.commitTotal,
			m.commitDuration,
			m.commitConflicts,
			m.activeSessions,
			m.sessionLoadDuration,
			m.statePersistDuration,
			m.cacheEvictionsTotal,
			m.batchDuration,
			m.taskTotal,
			m.taskDuration,
			m.tasksInflight,
			m.taskRetries,
			m.cacheHits,
			m.cacheMisses,
			m.toolExecutionTotal,
			m.toolExecutionDuration,
			m.toolErrorsTotal,
			m.stageTotal,
			m.stageDuration,
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

// RecordCommit records one commit attempt. Outcome is one of applied, noop,
// rejected, conflict, persist_failed.
func RecordCommit(outcome string, duration time.Duration) {
	m := getMetrics()
	m.commitTotal.WithLabelValues(outcome).Inc()
	m.commitDuration.Observe(duration.Seconds())
}

func RecordCommitConflict() {
	m := getMetrics()
	m.commitConflicts.Inc()
}

func SetActiveSessions(count int) {
	m := getMetrics()
	m.activeSessions.Set(float64(count))
}

func RecordSessionLoad(duration time.Duration) {
	m := getMetrics()
	m.sessionLoadDuration.Observe(duration.Seconds())
}

func RecordStatePersist(duration time.Duration) {
	m := getMetrics()
	m.statePersistDuration.Observe(duration.Seconds())
}

func RecordCacheEviction() {
	m := getMetrics()
	m.cacheEvictionsTotal.Inc()
}

func RecordBatch(duration time.Duration) {
	m := getMetrics()
	m.batchDuration.Observe(duration.Seconds())
}

func RecordTaskCompletion(tool string, duration time.Duration, success, cached bool) {
	m := getMetrics()
	status := "failed"
	if success {
		status = "done"
	}
	m.taskTotal.WithLabelValues(tool, status).Inc()
	m.taskDuration.WithLabelValues(tool).Observe(duration.Seconds())
	if cached {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

func TaskStarted() {
	m := getMetrics()
	m.tasksInflight.Inc()
}

func TaskFinished() {
	m := getMetrics()
	m.tasksInflight.Dec()
}

func RecordTaskRetry(tool string) {
	m := getMetrics()
	m.taskRetries.WithLabelValues(tool).Inc()
}

func RecordToolExecution(tool string, duration time.Duration, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.toolExecutionTotal.WithLabelValues(tool, status).Inc()
	m.toolExecutionDuration.WithLabelValues(tool).Observe(duration.Seconds())
	if !success {
		m.toolErrorsTotal.WithLabelValues(tool).Inc()
	}
}

func RecordStage(stage string, duration time.Duration, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.stageTotal.WithLabelValues(stage, status).Inc()
	m.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}
