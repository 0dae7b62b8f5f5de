// internal/workers/registration/save-draft/handler.go
package savedraft

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
	TaskType = "save-draft"
)

var (
	ErrApplicationLocked = errors.New("APPLICATION_LOCKED")
	ErrPersistenceFailed = errors.New("PERSISTENCE_FAILED")
)

// Invalidator drops the cached dashboard when a new application appears.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

type Handler struct {
	config      *Config
	store       repository.Store
	validator   *validatesections.Validator
	invalidator Invalidator
	logger      logger.Logger
}

// NewHandler builds the draft worker. invalidator may be nil.
func NewHandler(config *Config, store repository.Store, validator *validatesections.Validator, invalidator Invalidator, log logger.Logger) *Handler {
	return &Handler{
		config:      config,
		store:       store,
		validator:   validator,
		invalidator: invalidator,
		logger:      log.WithFields(map[string]interface{}{"taskType": TaskType}),
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

	h.completeJob(client, job, output)
}

// execute persists every entity and item that passes draft validation and
// reports the rest. It creates the application on first save.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	start := time.Now()
	defer func() {
		metrics.RegistrationOperationDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}()

	result := h.validator.Validate(validation.ModeDraft, &input.Payload)

	id := parseApplicationID(input.ApplicationID)
	created := id == uuid.Nil
	app, err := h.store.Save(ctx, id, result.Changeset)
	if errors.Is(err, repository.ErrNotFound) {
		h.logger.Info("application not found, creating a new one", map[string]interface{}{"applicationId": id.String()})
		created = true
		app, err = h.store.Save(ctx, uuid.Nil, result.Changeset)
	}
	switch {
	case errors.Is(err, repository.ErrLocked):
		metrics.RegistrationOperations.WithLabelValues(TaskType, metrics.OutcomeLocked).Inc()
		return nil, fmt.Errorf("%w: %v", ErrApplicationLocked, err)
	case err != nil:
		metrics.RegistrationOperations.WithLabelValues(TaskType, metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	outcome := metrics.OutcomeSuccess
	if !result.Valid() {
		outcome = metrics.OutcomeInvalid
		h.logger.Info("draft saved with invalid sections", map[string]interface{}{
			"applicationId": app.ID.String(),
			"errorCount":    len(result.Errors),
		})
	}
	metrics.RegistrationOperations.WithLabelValues(TaskType, outcome).Inc()

	if created && h.invalidator != nil {
		if err := h.invalidator.Invalidate(ctx); err != nil {
			h.logger.Warn("dashboard invalidation failed", map[string]interface{}{"error": err.Error()})
		}
	}

	return &Output{
		ApplicationID:        app.ID.String(),
		ApplicationNumber:    app.ApplicationNumber,
		Status:               app.Status,
		LastSectionCompleted: app.LastSectionCompleted,
		NextSection:          nextSection(input.Payload, h.validator.SectionCount()),
		Complete:             result.Valid(),
		Sections:             result.Sections,
		Errors:               result.Errors,
	}, nil
}

func parseApplicationID(raw string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil
	}
	return id
}

// nextSection is where the applicant continues after saving; save_and_exit stays put.
func nextSection(p models.Payload, count int) int {
	if p.Action != models.ActionSaveAndContinue {
		return p.Section
	}
	if p.Section >= count {
		return count
	}
	return p.Section + 1
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
