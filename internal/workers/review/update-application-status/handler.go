// internal/workers/review/update-application-status/handler.go
package updateapplicationstatus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "childcare-registration/internal/common/errors"
	"childcare-registration/internal/common/logger"
	"childcare-registration/internal/common/metrics"
	"childcare-registration/internal/repository"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "update-application-status"
)

// Invalidator drops derived views after a status change.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

type Handler struct {
	config       *Config
	store        repository.Store
	invalidator  Invalidator
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

// NewHandler builds the review status worker. invalidator may be nil.
func NewHandler(config *Config, store repository.Store, invalidator Invalidator, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		store:        store,
		invalidator:  invalidator,
		errorHandler: apperrors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, apperrors.NewInvalidPayloadError(err.Error()))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

// execute moves the application forward in the review lifecycle. Errors are
// StandardErrors so the job boundary can pick retry or BPMN error.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	start := time.Now()
	defer func() {
		metrics.RegistrationOperationDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}()

	id, err := uuid.Parse(strings.TrimSpace(input.ApplicationID))
	if err != nil {
		return nil, apperrors.NewApplicationNotFoundError(input.ApplicationID)
	}

	app, err := h.store.UpdateStatus(ctx, id, input.Status)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		metrics.RegistrationOperations.WithLabelValues(TaskType, metrics.OutcomeInvalid).Inc()
		return nil, apperrors.NewApplicationNotFoundError(id.String())
	case errors.Is(err, repository.ErrInvalidTransition):
		metrics.RegistrationOperations.WithLabelValues(TaskType, metrics.OutcomeInvalid).Inc()
		return nil, apperrors.NewInvalidStatusTransitionError(h.currentStatus(ctx, id), string(input.Status))
	case err != nil:
		metrics.RegistrationOperations.WithLabelValues(TaskType, metrics.OutcomeError).Inc()
		return nil, apperrors.NewPersistenceFailedError(err)
	}

	metrics.RegistrationOperations.WithLabelValues(TaskType, metrics.OutcomeSuccess).Inc()
	h.logger.Info("application status updated", map[string]interface{}{
		"applicationId": app.ID.String(),
		"status":        string(app.Status),
	})

	if h.invalidator != nil {
		if err := h.invalidator.Invalidate(ctx); err != nil {
			h.logger.Warn("dashboard invalidation failed", map[string]interface{}{"error": err.Error()})
		}
	}

	return &Output{
		ApplicationID:     app.ID.String(),
		ApplicationNumber: app.ApplicationNumber,
		Status:            app.Status,
		UpdatedAt:         app.UpdatedAt,
	}, nil
}

func (h *Handler) currentStatus(ctx context.Context, id uuid.UUID) string {
	agg, err := h.store.Load(ctx, id)
	if err != nil || agg.Application == nil {
		return "unknown"
	}
	return string(agg.Application.Status)
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, apperrors.NewInternalError(fmt.Errorf("build complete command: %w", err)))
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
