// internal/workers/research/icebreak-briefing/handler.go
package icebreakbriefing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "github.com/ai-asa/chat-websearch/internal/common/errors"
	"github.com/ai-asa/chat-websearch/internal/common/metrics"
	"github.com/ai-asa/chat-websearch/internal/common/observability"
	"github.com/ai-asa/chat-websearch/internal/research/icebreak"
	"github.com/ai-asa/chat-websearch/pkg/registry"
)

const (
	TaskType = "icebreak-briefing"
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Deps struct {
	Briefer  *icebreak.Briefer
	Registry *registry.ActivityRegistry
	Obs      *observability.Observability
}

type Handler struct {
	config   *Config
	briefer  *icebreak.Briefer
	activity *registry.Activity
	obs      *observability.Observability
	errors   *apperrors.ErrorHandler
	logger   Logger
}

func NewHandler(config *Config, deps Deps, log Logger) (*Handler, error) {
	if deps.Briefer == nil {
		return nil, fmt.Errorf("%s: briefer is required", TaskType)
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
		config:   config,
		briefer:  deps.Briefer,
		activity: activity,
		obs:      deps.Obs,
		errors:   apperrors.NewErrorHandler(log),
		logger:   log,
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	briefing, err := h.briefer.Brief(ctx, input.CustomerInput)
	if err != nil {
		return nil, classify(err)
	}

	h.logger.Info("briefing prepared", map[string]interface{}{
		"briefingId": briefing.ID.String(),
		"topics":     len(briefing.Suggestions.Topics),
	})
	return &Output{Briefing: briefing}, nil
}

// classify keeps generation outages retryable; any other stage failure is a business error.
func classify(err error) error {
	if errors.Is(err, apperrors.ErrGenerationUnavailable) {
		return err
	}
	var stageErr *icebreak.StageError
	if errors.As(err, &stageErr) {
		return apperrors.NewBriefingFailedError(stageErr.Stage, stageErr.Err)
	}
	return apperrors.NewBriefingFailedError("unknown", err)
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
