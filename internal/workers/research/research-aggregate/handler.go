// internal/workers/research/research-aggregate/handler.go
package researchaggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "github.com/ai-asa/chat-websearch/internal/common/errors"
	"github.com/ai-asa/chat-websearch/internal/common/metrics"
	"github.com/ai-asa/chat-websearch/internal/common/observability"
	"github.com/ai-asa/chat-websearch/internal/models"
	"github.com/ai-asa/chat-websearch/internal/research/orchestrator"
	"github.com/ai-asa/chat-websearch/pkg/registry"
)

const (
	TaskType = "research-aggregate"
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Deps struct {
	Researcher orchestrator.Researcher
	Registry   *registry.ActivityRegistry
	Obs        *observability.Observability
}

type Handler struct {
	config     *Config
	researcher orchestrator.Researcher
	activity   *registry.Activity
	obs        *observability.Observability
	errors     *apperrors.ErrorHandler
	logger     Logger
}

func NewHandler(config *Config, deps Deps, log Logger) (*Handler, error) {
	if deps.Researcher == nil {
		return nil, fmt.Errorf("%s: researcher is required", TaskType)
	}
	if deps.Registry == nil {
		deps.Registry = registry.Default()
	}
	activity, ok := deps.Registry.Find(TaskType)
	if !ok {
		return nil, fmt.Errorf("%s: activity not registered", TaskType)
	}

	log = log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config:     config,
		researcher: deps.Researcher,
		activity:   activity,
		obs:        deps.Obs,
		errors:     apperrors.NewErrorHandler(log),
		logger:     log,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.GetKey(),
		"workflowKey": job.GetProcessInstanceKey(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parseInput(job)
	if err != nil {
		h.failJob(ctx, client, job, err, start)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.failJob(ctx, client, job, err, start)
		return
	}

	h.completeJob(ctx, client, job, output, start)
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, apperrors.NewInvalidJobVariablesError(err.Error())
	}
	result, err := h.activity.ValidateInput(variables)
	if err != nil {
		return nil, apperrors.NewInvalidJobVariablesError(err.Error())
	}
	if !result.Valid {
		return nil, apperrors.NewInvalidJobVariablesError(result.Error())
	}

	var input Input
	if err := json.Unmarshal([]byte(job.GetVariables()), &input); err != nil {
		return nil, apperrors.NewInvalidJobVariablesError(err.Error())
	}
	return &input, nil
}

// Execute researches every query. Per-query failures come back as the failure summary,
// so the job itself only fails on bad input.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	queries := make([]string, 0, len(input.Queries))
	for _, q := range input.Queries {
		if q = strings.TrimSpace(q); q != "" {
			queries = append(queries, q)
		}
	}
	if h.config.MaxQueries > 0 && len(queries) > h.config.MaxQueries {
		h.logger.Warn("dropping queries over the per-job limit", map[string]interface{}{
			"queries": len(queries),
			"limit":   h.config.MaxQueries,
		})
		queries = queries[:h.config.MaxQueries]
	}

	output := &Output{ResearchResults: []models.ResearchResult{}}
	if len(queries) == 0 {
		return output, nil
	}

	output.ResearchResults = h.researcher.Run(ctx, queries)
	for _, r := range output.ResearchResults {
		if r.Summary == models.FailureSummary {
			output.FailedQueries++
		}
	}

	h.logger.Info("research completed", map[string]interface{}{
		"queries": len(queries),
		"failed":  output.FailedQueries,
	})
	return output, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output, start time.Time) {
	cmd, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		h.failJob(ctx, client, job, err, start)
		return
	}

	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.obs.RecordJobProcessed(ctx, "completed")
	h.obs.RecordJobDuration(ctx, time.Since(start), "completed")
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error, start time.Time) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.FromError(err).Code)).Inc()
	outcome := h.errors.HandleJobError(ctx, client, job, err)
	h.obs.RecordJobProcessed(ctx, string(outcome))
	h.obs.RecordJobDuration(ctx, time.Since(start), string(outcome))
}
