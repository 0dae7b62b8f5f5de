// internal/workers/dashboard/build-dashboard/handler.go
package builddashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"childcare-registration/internal/common/logger"
	"childcare-registration/internal/common/metrics"
	"childcare-registration/internal/repository"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const (
	TaskType = "build-dashboard"
)

var (
	ErrInvalidStatus = errors.New("INVALID_STATUS")
	ErrQueryFailed   = errors.New("DASHBOARD_QUERY_FAILED")
)

type Handler struct {
	config  *Config
	store   repository.Store
	cache   *Cache
	builder *Builder
	logger  logger.Logger
}

// NewHandler builds the dashboard handler. cache may be nil.
func NewHandler(config *Config, store repository.Store, cache *Cache, clock clockwork.Clock, log logger.Logger) *Handler {
	return &Handler{
		config:  config,
		store:   store,
		cache:   cache,
		builder: NewBuilder(config.RiskThresholdDays, clock),
		logger:  log.WithFields(map[string]interface{}{"taskType": TaskType}),
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
		errorCode := ErrQueryFailed.Error()
		if errors.Is(err, ErrInvalidStatus) {
			errorCode = ErrInvalidStatus.Error()
		}
		h.failJob(client, job, errorCode, err.Error())
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	start := time.Now()
	defer func() {
		metrics.RegistrationOperationDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}()

	if input.Status != "" && !input.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, input.Status)
	}

	cacheable := input.unfiltered() && h.cache != nil
	if cacheable {
		dash, err := h.cache.Get(ctx)
		if err != nil {
			h.logger.Warn("dashboard cache read failed", map[string]interface{}{"error": err.Error()})
		}
		if dash != nil {
			return &Output{Dashboard: dash, Cached: true}, nil
		}
	}

	aggs, err := h.store.List(ctx, repository.Filter{
		IDs:    parseIDs(input.ApplicationIDs),
		Status: input.Status,
	})
	if err != nil {
		metrics.RegistrationOperations.WithLabelValues(TaskType, metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}

	dash := h.builder.Build(aggs)
	metrics.RegistrationOperations.WithLabelValues(TaskType, metrics.OutcomeSuccess).Inc()

	if input.unfiltered() {
		for status, n := range dash.Summary.ByStatus {
			metrics.ApplicationsByStatus.WithLabelValues(string(status)).Set(float64(n))
		}
	}
	if cacheable {
		if err := h.cache.Set(ctx, dash); err != nil {
			h.logger.Warn("dashboard cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}

	h.logger.Debug("dashboard built", map[string]interface{}{
		"applications": dash.Summary.TotalApps,
		"highRisk":     dash.Summary.HighRisk,
	})
	return &Output{Dashboard: dash}, nil
}

// parseIDs keeps nil as nil. Malformed ids cannot match anything and are dropped.
func parseIDs(raw []string) []uuid.UUID {
	if raw == nil {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(strings.TrimSpace(s))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
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
