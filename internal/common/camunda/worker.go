// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/ai-asa/chat-websearch/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"
)

// JobHandler completes or fails the job it is given.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// JobHandlerFunc adapts a plain function to JobHandler.
type JobHandlerFunc func(client worker.JobClient, job entities.Job)

func (f JobHandlerFunc) Handle(client worker.JobClient, job entities.Job) {
	f(client, job)
}

// PanicFunc is told about a job whose handler panicked.
type PanicFunc func(client worker.JobClient, job entities.Job, err error)

// Recover wraps handler so a panic is turned into an error for onPanic instead of
// killing the job worker goroutine.
func Recover(handler JobHandler, onPanic PanicFunc) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		defer func() {
			if r := recover(); r != nil {
				onPanic(client, job, fmt.Errorf("handler panic: %v", r))
			}
		}()
		handler.Handle(client, job)
	}
}

type zapErrorLogger struct{ l *zap.Logger }

func (z zapErrorLogger) Error(msg string, fields map[string]interface{}) {
	zf := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}
	z.l.Error(msg, zf...)
}

type WorkerOptions struct {
	TaskType      string
	MaxJobsActive int
	Timeout       time.Duration
}

type CamundaWorker struct {
	worker   worker.JobWorker
	logger   *zap.Logger
	taskType string
}

// NewWorker opens a job worker for opts.TaskType. A panicking handler fails its job
// through ErrorHandler.
func NewWorker(client zbc.Client, opts WorkerOptions, handler JobHandler, logger *zap.Logger) *CamundaWorker {
	errHandler := apperrors.NewErrorHandler(zapErrorLogger{l: logger})
	onPanic := func(jc worker.JobClient, job entities.Job, err error) {
		logger.Error("Handler panicked", zap.Error(err), zap.Int64("jobKey", job.GetKey()))
		errHandler.HandleJobError(context.Background(), jc, job, err)
	}

	step := client.NewJobWorker().
		JobType(opts.TaskType).
		Handler(Recover(handler, onPanic))
	if opts.MaxJobsActive > 0 {
		step = step.MaxJobsActive(opts.MaxJobsActive)
	}
	if opts.Timeout > 0 {
		step = step.Timeout(opts.Timeout)
	}

	w := &CamundaWorker{
		worker:   step.Open(),
		logger:   logger,
		taskType: opts.TaskType,
	}
	logger.Info("worker started",
		zap.String("taskType", opts.TaskType),
		zap.Int("maxJobsActive", opts.MaxJobsActive),
		zap.Duration("timeout", opts.Timeout),
	)
	return w
}

// Stop closes the job worker; the shared zbc client is closed by its owner.
func (w *CamundaWorker) Stop() {
	w.logger.Info("stopping worker", zap.String("taskType", w.taskType))
	w.worker.Close()
	w.worker.AwaitClose()
}
