// internal/workers/registration/submit-application/handler.go
package submitapplication

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"childcare-registration/internal/common/logger"
	"childcare-registration/internal/common/metrics"
	"childcare-registration/internal/common/validation"
	"childcare-registration/internal/models"
	"childcare-registration/internal/repository"
	validatesections "childcare-registration/internal/workers/registration/validate-sections"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "submit-application"
)

var (
	ErrValidationFailed  = errors.New("VALIDATION_FAILED")
	ErrApplicationLocked = errors.New("APPLICATION_LOCKED")
	ErrPersistenceFailed = errors.New("PERSISTENCE_FAILED")
)

type Handler struct {
	config    *Config
	store     repository.Store
	validator *validatesections.Validator
	hooks     []Hook
	logger    logger.Logger
}

func NewHandler(config *Config, store repository.Store, validator *validatesections.Validator, hooks []Hook, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		store:     store,
		validator: validator,
		hooks:     hooks,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
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
		errorCode := ErrPersistenceFailed.Error()
		if errors.Is(err, ErrApplicationLocked) {
			errorCode = ErrApplicationLocked.Error()
		}
		h.failJob(client, job, errorCode, err.Error())
		return
	}
	if !output.Submitted {
		h.failJob(client, job, ErrValidationFailed.Error(), fmt.Sprintf("%d field errors", len(output.Errors)))
		return
	}

	h.completeJob(client, job, output)
}

// execute validates every entity strictly. Any error leaves the store
// untouched; otherwise the whole aggregate is written and moved to
// SUBMITTED in one transaction, and the hooks run afterwards.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	start := time.Now()
	defer func() {
		metrics.RegistrationOperationDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}()

	result := h.validator.Validate(validation.ModeSubmit, &input.Payload)
	if !result.Valid() {
		metrics.RegistrationOperations.WithLabelValues(TaskType, metrics.OutcomeInvalid).Inc()
		return &Output{
			ApplicationID: strings.TrimSpace(input.ApplicationID),
			Submitted:     false,
			Errors:        result.Errors,
		}, nil
	}

	cs := result.Changeset
	cs.Status = models.StatusSubmitted
	cs.Section = h.validator.SectionCount()

	id := parseApplicationID(input.ApplicationID)
	app, err := h.store.Save(ctx, id, cs)
	if errors.Is(err, repository.ErrNotFound) {
		h.logger.Info("application not found, submitting as new", map[string]interface{}{"applicationId": id.String()})
		app, err = h.store.Save(ctx, uuid.Nil, cs)
	}
	switch {
	case errors.Is(err, repository.ErrLocked):
		metrics.RegistrationOperations.WithLabelValues(TaskType, metrics.OutcomeLocked).Inc()
		return nil, fmt.Errorf("%w: %v", ErrApplicationLocked, err)
	case err != nil:
		metrics.RegistrationOperations.WithLabelValues(TaskType, metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	metrics.RegistrationOperations.WithLabelValues(TaskType, metrics.OutcomeSuccess).Inc()
	h.logger.Info("application submitted", map[string]interface{}{
		"applicationId":     app.ID.String(),
		"applicationNumber": app.ApplicationNumber,
	})

	h.runHooks(ctx, app.ID)

	return &Output{
		ApplicationID:     app.ID.String(),
		ApplicationNumber: app.ApplicationNumber,
		Status:            app.Status,
		Submitted:         true,
	}, nil
}

func (h *Handler) runHooks(ctx context.Context, id uuid.UUID) {
	if len(h.hooks) == 0 {
		return
	}
	agg, err := h.store.Load(ctx, id)
	if err != nil {
		h.logger.Warn("skipping post-submit hooks, reload failed", map[string]interface{}{
			"applicationId": id.String(),
			"error":         err.Error(),
		})
		return
	}

	for _, hook := range h.hooks {
		hookCtx, cancel := context.WithTimeout(ctx, h.config.HookTimeout)
		err := hook.AfterSubmit(hookCtx, agg)
		cancel()
		if err != nil {
			h.logger.Warn("post-submit hook failed", map[string]interface{}{
				"hook":          hook.Name(),
				"applicationId": id.String(),
				"error":         err.Error(),
			})
			continue
		}
		h.logger.Debug("post-submit hook done", map[string]interface{}{"hook": hook.Name()})
	}
}

func parseApplicationID(raw string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil
	}
	return id
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
