// internal/workers/notification/send-submission-notice/handler.go
package sendsubmissionnotice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"childcare-registration/internal/common/logger"
	"childcare-registration/internal/common/metrics"
	"childcare-registration/internal/repository"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "send-submission-notice"
)

var ErrApplicationNotFound = errors.New("APPLICATION_NOT_FOUND")

// Handler re-sends the notice for an application from a BPMN task.
type Handler struct {
	config   *Config
	store    repository.Store
	notifier *Notifier
	logger   logger.Logger
}

func NewHandler(config *Config, store repository.Store, notifier *Notifier, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		store:    store,
		notifier: notifier,
		logger:   log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		errorCode := ErrNotificationSendFailed.Error()
		if errors.Is(err, ErrApplicationNotFound) {
			errorCode = ErrApplicationNotFound.Error()
		}
		h.failJob(client, job, errorCode, err.Error())
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	id, err := uuid.Parse(strings.TrimSpace(input.ApplicationID))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrApplicationNotFound, input.ApplicationID)
	}

	agg, err := h.store.Load(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrApplicationNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load application: %v", ErrNotificationSendFailed, err)
	}

	out, err := h.notifier.Notify(ctx, agg)
	if err != nil {
		metrics.RegistrationOperations.WithLabelValues(TaskType, metrics.OutcomeError).Inc()
		return nil, err
	}
	metrics.RegistrationOperations.WithLabelValues(TaskType, metrics.OutcomeSuccess).Inc()
	return out, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
	})
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, errorCode).Inc()

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(errorCode).
		ErrorMessage(errorMessage).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
