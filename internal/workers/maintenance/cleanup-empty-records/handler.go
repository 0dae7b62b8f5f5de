// internal/workers/maintenance/cleanup-empty-records/handler.go
package cleanupemptyrecords

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"childcare-registration/internal/common/logger"
	"childcare-registration/internal/common/metrics"
	"childcare-registration/internal/repository"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "cleanup-empty-records"
)

var ErrCleanupFailed = errors.New("CLEANUP_FAILED")

type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Handler removes default-valued one-to-one rows left behind by draft saves.
type Handler struct {
	config      *Config
	store       repository.Store
	invalidator Invalidator
	logger      logger.Logger
}

// NewHandler builds the cleanup worker. invalidator may be nil.
func NewHandler(config *Config, store repository.Store, invalidator Invalidator, log logger.Logger) *Handler {
	return &Handler{
		config:      config,
		store:       store,
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
		h.failJob(client, job, ErrCleanupFailed.Error(), err.Error())
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	start := time.Now()
	defer func() {
		metrics.RegistrationOperationDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}()

	report, err := h.store.DeleteEmptyChildren(ctx, input.DryRun)
	if err != nil {
		metrics.RegistrationOperations.WithLabelValues(TaskType, metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("%w: %v", ErrCleanupFailed, err)
	}
	metrics.RegistrationOperations.WithLabelValues(TaskType, metrics.OutcomeSuccess).Inc()

	tables := make([]string, 0, len(report.ByTable))
	for table := range report.ByTable {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	verb := "deleted"
	if report.DryRun {
		verb = "would delete"
	}
	for _, table := range tables {
		n := report.ByTable[table]
		if !report.DryRun {
			metrics.CleanupDeletedRows.WithLabelValues(table).Add(float64(n))
		}
		h.logger.Info(fmt.Sprintf("%s %d empty %s rows", verb, n, table), map[string]interface{}{
			"table":  table,
			"rows":   n,
			"dryRun": report.DryRun,
		})
	}

	if !report.DryRun && report.Total() > 0 && h.invalidator != nil {
		if err := h.invalidator.Invalidate(ctx); err != nil {
			h.logger.Warn("dashboard invalidation failed", map[string]interface{}{"error": err.Error()})
		}
	}

	return &Output{
		DryRun:  report.DryRun,
		ByTable: report.ByTable,
		Total:   report.Total(),
	}, nil
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
