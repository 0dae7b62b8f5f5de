// internal/common/camunda/worker.go
package camunda

import (
	"time"

	"childcare-registration/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

type WorkerOptions struct {
	MaxJobsActive int
	Timeout       time.Duration
}

// JobWorker is an open Zeebe job subscription for one task type.
type JobWorker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

func NewWorker(client zbc.Client, taskType string, opts WorkerOptions, handler worker.JobHandler, log logger.Logger) *JobWorker {
	if opts.MaxJobsActive <= 0 {
		opts.MaxJobsActive = 5
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	jobWorker := client.NewJobWorker().
		JobType(taskType).
		Handler(handler).
		MaxJobsActive(opts.MaxJobsActive).
		Timeout(opts.Timeout).
		Open()

	log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": opts.MaxJobsActive,
		"timeout":       opts.Timeout.String(),
	})

	return &JobWorker{
		worker:   jobWorker,
		logger:   log,
		taskType: taskType,
	}
}

func (w *JobWorker) Close() {
	w.logger.Info("stopping worker", map[string]interface{}{"taskType": w.taskType})
	w.worker.Close()
	w.worker.AwaitClose()
}
