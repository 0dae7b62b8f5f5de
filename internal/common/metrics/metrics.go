// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeInvalid = "invalid"
	OutcomeLocked  = "locked"
	OutcomeError   = "error"
)

var (
	RegistrationOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registration_operations_total",
			Help: "Registration operations by name and outcome",
		},
		[]string{"operation", "outcome"},
	)

	RegistrationOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "registration_operation_duration_seconds",
			Help:    "Duration of registration operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	ValidationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registration_validation_errors_total",
			Help: "Field validation errors by entity and mode",
		},
		[]string{"entity", "mode"},
	)

	ApplicationsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "registration_applications",
			Help: "Applications per status as of the last dashboard build",
		},
		[]string{"status"},
	)

	DashboardCacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_cache_requests_total",
			Help: "Dashboard cache lookups by result",
		},
		[]string{"result"},
	)

	CleanupDeletedRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cleanup_deleted_rows_total",
			Help: "Default-valued child rows removed by the cleanup job",
		},
		[]string{"table"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)
)
