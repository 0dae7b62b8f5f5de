// internal/workers/registration/resume-application/handler.go
package resumeapplication

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"childcare-registration/internal/common/logger"
	"childcare-registration/internal/common/metrics"
	"childcare-registration/internal/models"
	"childcare-registration/internal/repository"
	"childcare-registration/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "resume-application"
)

var (
	ErrLoadFailed = errors.New("PERSISTENCE_FAILED")
)

type Handler struct {
	config   *Config
	store    repository.Store
	registry *registry.SectionRegistry
	logger   logger.Logger
}

func NewHandler(config *Config, store repository.Store, reg *registry.SectionRegistry, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		store:    store,
		registry: reg,
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
		h.failJob(client, job, ErrLoadFailed.Error(), err.Error())
		return
	}

	h.completeJob(client, job, output)
}

// execute never reports a missing application: an absent, malformed or
// unknown id starts a new one.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	start := time.Now()
	defer func() {
		metrics.RegistrationOperationDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}()

	raw := strings.TrimSpace(input.ApplicationID)
	if raw == "" {
		return h.fresh(), nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		h.logger.Debug("ignoring malformed application id", map[string]interface{}{"applicationId": raw})
		return h.fresh(), nil
	}

	agg, err := h.store.Load(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		h.logger.Info("application not found, starting a new one", map[string]interface{}{"applicationId": id.String()})
		return h.fresh(), nil
	}
	if err != nil {
		metrics.RegistrationOperations.WithLabelValues(TaskType, metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}

	metrics.RegistrationOperations.WithLabelValues(TaskType, metrics.OutcomeSuccess).Inc()
	return &Output{
		Application: agg.Application,
		Resumed:     true,
		Sections:    h.progress(agg.Application.LastSectionCompleted),
		Data:        agg,
	}, nil
}

func (h *Handler) fresh() *Output {
	metrics.RegistrationOperations.WithLabelValues(TaskType, metrics.OutcomeSuccess).Inc()
	return &Output{
		Resumed:  false,
		Sections: h.progress(0),
		Data:     models.NewAggregate(),
	}
}

func (h *Handler) progress(lastCompleted int) []SectionProgress {
	out := make([]SectionProgress, 0, h.registry.Count())
	for _, s := range h.registry.Sections {
		out = append(out, SectionProgress{
			Index:     s.Index,
			Key:       s.Key,
			Title:     s.Title,
			Completed: s.Index <= lastCompleted,
		})
	}
	return out
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
