// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)

var (
	ResearchTurns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_turns_total",
			Help: "Conversation turns by path taken (researched, skipped, no_queries)",
		},
		[]string{"path"},
	)

	SummarizeCalls = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "research_summarize_calls_total",
			Help: "Chunk summarization calls issued",
		},
	)

	ChunkTokens = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "research_chunk_tokens",
			Help:    "Token count of each flushed chunk buffer",
			Buckets: []float64{500, 2000, 5000, 10000, 20000, 30000, 60000},
		},
	)

	QueryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_query_failures_total",
			Help: "Queries that produced the failure sentinel, by reason",
		},
		[]string{"reason"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "research_stage_duration_seconds",
			Help:    "Duration of each turn stage",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"stage"},
	)
)
