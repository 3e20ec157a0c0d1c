// internal/workers/research/research-turn/handler.go
package researchturn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "github.com/ai-asa/chat-websearch/internal/common/errors"
	"github.com/ai-asa/chat-websearch/internal/common/metrics"
	"github.com/ai-asa/chat-websearch/internal/common/observability"
	"github.com/ai-asa/chat-websearch/internal/display"
	"github.com/ai-asa/chat-websearch/internal/models"
	"github.com/ai-asa/chat-websearch/internal/research/orchestrator"
	"github.com/ai-asa/chat-websearch/pkg/registry"
)

const (
	TaskType = "research-turn"
)

var (
	ErrEmptyUtterance = errors.New("EMPTY_UTTERANCE")
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Deps are shared by every job; the orchestrator is forked per job with the job's history.
type Deps struct {
	Orchestrator *orchestrator.Orchestrator
	Registry     *registry.ActivityRegistry
	Obs          *observability.Observability
}

type Handler struct {
	config       *Config
	orchestrator *orchestrator.Orchestrator
	activity     *registry.Activity
	obs          *observability.Observability
	errors       *apperrors.ErrorHandler
	logger       Logger
}

func NewHandler(config *Config, deps Deps, log Logger) (*Handler, error) {
	if deps.Orchestrator == nil {
		return nil, fmt.Errorf("%s: orchestrator is required", TaskType)
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
		config:       config,
		orchestrator: deps.Orchestrator,
		activity:     activity,
		obs:          deps.Obs,
		errors:       apperrors.NewErrorHandler(log),
		logger:       log,
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

// Execute runs one turn against the supplied history. Pipeline failures never fail the job;
// they surface as notices and a fallback reply.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.Utterance) == "" {
		return nil, apperrors.NewInvalidJobVariablesError(ErrEmptyUtterance.Error())
	}

	rec := &display.Recorder{}
	history := models.NewHistory(input.History...)
	turn, err := h.orchestrator.Fork(history, rec).RunTurn(ctx, input.Utterance)
	if err != nil {
		return nil, err
	}

	output := &Output{
		Turn:    turn,
		Notices: rec.Texts("notice"),
		History: history.Turns(),
	}
	if reasoning := rec.Texts("reasoning"); len(reasoning) > 0 {
		output.Reasoning = reasoning[0]
	}

	h.logger.Info("turn completed", map[string]interface{}{
		"usedResearch": turn.UsedResearch,
		"results":      len(turn.ResearchResults),
		"notices":      len(output.Notices),
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
	h.logger.Info("job completed", map[string]interface{}{"jobKey": job.GetKey()})
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error, start time.Time) {
	code := apperrors.FromError(err).Code
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(code)).Inc()
	outcome := h.errors.HandleJobError(ctx, client, job, err)
	h.obs.RecordJobProcessed(ctx, string(outcome))
	h.obs.RecordJobDuration(ctx, time.Since(start), string(outcome))
}
