// internal/workers/dashboard/search-applications/handler.go
package searchapplications

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
)

const (
	TaskType = "search-applications"
)

var (
	ErrSearchFailed  = errors.New("SEARCH_QUERY_FAILED")
	ErrSearchTimeout = errors.New("SEARCH_TIMEOUT")
)

type Handler struct {
	config *Config
	index  *Index
	store  repository.Store
	logger logger.Logger
}

// NewHandler wires the search worker. With a nil index every query is
// answered by the store.
func NewHandler(config *Config, index *Index, store repository.Store, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		index:  index,
		store:  store,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
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
		errorCode := ErrSearchFailed.Error()
		if errors.Is(err, ErrSearchTimeout) {
			errorCode = ErrSearchTimeout.Error()
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

	query := strings.TrimSpace(input.Query)
	if query == "" {
		return &Output{ApplicationIDs: []string{}, Source: SourceStore}, nil
	}

	if h.index != nil {
		ids, err := h.index.Search(ctx, query, h.config.MaxResults)
		if err == nil {
			metrics.RegistrationOperations.WithLabelValues(TaskType, metrics.OutcomeSuccess).Inc()
			return newOutput(ids, SourceElasticsearch), nil
		}
		if ctx.Err() == context.DeadlineExceeded {
			metrics.RegistrationOperations.WithLabelValues(TaskType, metrics.OutcomeError).Inc()
			return nil, ErrSearchTimeout
		}
		h.logger.Warn("elasticsearch search failed, falling back to store", map[string]interface{}{
			"error": err.Error(),
		})
	}

	ids, err := h.store.Search(ctx, query)
	if err != nil {
		metrics.RegistrationOperations.WithLabelValues(TaskType, metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	if len(ids) > h.config.MaxResults {
		ids = ids[:h.config.MaxResults]
	}
	metrics.RegistrationOperations.WithLabelValues(TaskType, metrics.OutcomeSuccess).Inc()
	return newOutput(ids, SourceStore), nil
}

func newOutput(ids []uuid.UUID, source string) *Output {
	out := &Output{ApplicationIDs: make([]string, len(ids)), Total: len(ids), Source: source}
	for i, id := range ids {
		out.ApplicationIDs[i] = id.String()
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
