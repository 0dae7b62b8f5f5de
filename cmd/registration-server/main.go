// cmd/registration-server/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"childcare-registration/internal/api"
	"childcare-registration/internal/common/auth"
	awsclient "childcare-registration/internal/common/aws"
	"childcare-registration/internal/common/camunda"
	"childcare-registration/internal/common/config"
	"childcare-registration/internal/common/database"
	"childcare-registration/internal/common/logger"
	"childcare-registration/internal/common/observability"
	"childcare-registration/internal/repository"
	builddashboard "childcare-registration/internal/workers/dashboard/build-dashboard"
	searchapplications "childcare-registration/internal/workers/dashboard/search-applications"
	cleanupemptyrecords "childcare-registration/internal/workers/maintenance/cleanup-empty-records"
	sendsubmissionnotice "childcare-registration/internal/workers/notification/send-submission-notice"
	resumeapplication "childcare-registration/internal/workers/registration/resume-application"
	savedraft "childcare-registration/internal/workers/registration/save-draft"
	submitapplication "childcare-registration/internal/workers/registration/submit-application"
	validatesections "childcare-registration/internal/workers/registration/validate-sections"
	updateapplicationstatus "childcare-registration/internal/workers/review/update-application-status"
	"childcare-registration/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console")
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting registration server...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs, err := observability.New(cfg.App.Name, nil)
	if err != nil {
		zapLog.Warn("request metrics disabled", zap.Error(err))
	}
	defer obs.Shutdown()

	ctx := context.Background()
	clock := clockwork.NewRealClock()
	readyChecks := map[string]api.ReadyCheck{}

	sections, err := registry.LoadRegistry(cfg.Registry.SectionsPath)
	if err != nil {
		zapLog.Fatal("section registry invalid", zap.Error(err))
	}

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	readyChecks["postgres"] = pg.Ping

	if cfg.Database.Postgres.MigrateOnStart {
		version, err := pg.Migrate()
		if err != nil {
			zapLog.Fatal("migrations failed", zap.Error(err))
		}
		zapLog.Info("schema migrated", zap.Uint("version", version))
	}

	store := repository.NewPostgresStore(pg.DB, clock)

	// --- Redis (dashboard cache) ---
	var dashboardCache *builddashboard.Cache
	if cfg.Database.Redis.Enabled {
		var rc *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			rc, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rc.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rc.Close()
		readyChecks["redis"] = rc.Ping
		dashboardCache = builddashboard.NewCache(rc.Client, cfg.Dashboard.CacheKey, cfg.Dashboard.GetCacheTTL())
	}

	// --- Elasticsearch (applicant search) ---
	var searchIndex *searchapplications.Index
	if cfg.Database.Elasticsearch.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			if err := esClient.Ping(ctx); err != nil {
				return err
			}
			return esClient.EnsureIndex(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		readyChecks["elasticsearch"] = esClient.Ping
		searchIndex = searchapplications.NewIndex(esClient.Client, esClient.Index)
	}

	// --- AWS SES/SNS (submission notices) ---
	var notifier *sendsubmissionnotice.Notifier
	if cfg.Notifications.Enabled() {
		awsCfg, err := awsclient.LoadConfig(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("aws config failed", zap.Error(err))
		}
		noticeCfg := sendsubmissionnotice.LoadConfig()
		noticeCfg.EmailEnabled = cfg.Notifications.Email.Enabled
		noticeCfg.EventsEnabled = cfg.Notifications.Events.Enabled
		if cfg.Notifications.Email.FromEmail != "" {
			noticeCfg.FromEmail = cfg.Notifications.Email.FromEmail
		}
		noticeCfg.TopicARN = cfg.Notifications.Events.TopicARN
		notifier = sendsubmissionnotice.NewNotifier(noticeCfg,
			awsclient.NewSESClient(awsCfg), awsclient.NewSNSClient(awsCfg), clock, log)
	}

	// --- Zeebe (review process) ---
	var zeebe *camunda.Client
	if cfg.Camunda.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
				GatewayAddress:         cfg.Camunda.BrokerAddress,
				UsePlaintextConnection: true,
				ConnectionTimeout:      10 * time.Second,
				RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
				ReviewProcessID:        cfg.Camunda.ReviewProcessID,
			})
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		readyChecks["zeebe"] = zeebe.HealthCheck
	}

	// Post-submit hooks run after the submission has committed.
	var hooks []submitapplication.Hook
	if dashboardCache != nil {
		hooks = append(hooks, dashboardCache)
	}
	if searchIndex != nil {
		hooks = append(hooks, searchIndex)
	}
	if zeebe != nil {
		hooks = append(hooks, submitapplication.NewReviewHook(zeebe))
	} else if notifier != nil {
		// With Zeebe the review process sends the notice itself.
		hooks = append(hooks, notifier)
	}

	validator := validatesections.NewValidator(validatesections.LoadConfig(), sections, clock)

	dashboardCfg := builddashboard.LoadConfig()
	dashboardCfg.RiskThresholdDays = cfg.Dashboard.RiskThresholdDays
	dashboardCfg.CacheTTL = cfg.Dashboard.GetCacheTTL()
	dashboardCfg.CacheKey = cfg.Dashboard.CacheKey

	searchCfg := searchapplications.LoadConfig()
	searchCfg.Index = cfg.Database.Elasticsearch.Index

	// A nil *Cache must not become a non-nil interface.
	var invalidator updateapplicationstatus.Invalidator
	if dashboardCache != nil {
		invalidator = dashboardCache
	}

	resumeHandler := resumeapplication.NewHandler(resumeapplication.LoadConfig(), store, sections, log)
	saveHandler := savedraft.NewHandler(savedraft.LoadConfig(), store, validator, invalidator, log)
	submitHandler := submitapplication.NewHandler(submitapplication.LoadConfig(), store, validator, hooks, log)
	dashboardHandler := builddashboard.NewHandler(dashboardCfg, store, dashboardCache, clock, log)
	searchHandler := searchapplications.NewHandler(searchCfg, searchIndex, store, log)

	var workers []*camunda.JobWorker
	if zeebe != nil {
		handlers := map[string]func(worker.JobClient, entities.Job){
			validatesections.TaskType:        validatesections.NewHandler(validatesections.LoadConfig(), validator, log).Handle,
			resumeapplication.TaskType:       resumeHandler.Handle,
			savedraft.TaskType:               saveHandler.Handle,
			submitapplication.TaskType:       submitHandler.Handle,
			builddashboard.TaskType:          dashboardHandler.Handle,
			searchapplications.TaskType:      searchHandler.Handle,
			updateapplicationstatus.TaskType: updateapplicationstatus.NewHandler(updateapplicationstatus.LoadConfig(), store, invalidator, log).Handle,
			cleanupemptyrecords.TaskType:     cleanupemptyrecords.NewHandler(cleanupemptyrecords.LoadConfig(), store, invalidator, log).Handle,
		}
		if notifier != nil {
			noticeHandler := sendsubmissionnotice.NewHandler(sendsubmissionnotice.LoadConfig(), store, notifier, log)
			handlers[sendsubmissionnotice.TaskType] = noticeHandler.Handle
		}

		for taskType, handle := range handlers {
			wcfg := config.GetWorkerConfig(cfg, taskType)
			if !wcfg.Enabled {
				zapLog.Info("worker disabled", zap.String("taskType", taskType))
				continue
			}
			workers = append(workers, camunda.NewWorker(zeebe.GetClient(), taskType, camunda.WorkerOptions{
				MaxJobsActive: wcfg.MaxJobsActive,
				Timeout:       config.GetDuration(wcfg.Timeout),
			}, handle, log))
		}
		zapLog.Info("workers registered", zap.Int("count", len(workers)))
	}

	var tokens api.TokenValidator
	if cfg.Auth.Keycloak.Enabled {
		tokens = auth.NewKeycloakClient(
			cfg.Auth.Keycloak.URL,
			cfg.Auth.Keycloak.Realm,
			cfg.Auth.Keycloak.ClientID,
			cfg.Auth.Keycloak.ClientSecret,
			config.GetDuration(cfg.Auth.Keycloak.Timeout),
		)
	} else {
		zapLog.Warn("keycloak disabled, dashboard is unauthenticated")
	}

	server := api.NewServer(api.Deps{
		Config:        cfg.HTTP,
		Resume:        resumeHandler,
		SaveDraft:     saveHandler,
		Submit:        submitHandler,
		Dashboard:     dashboardHandler,
		Search:        searchHandler,
		Auth:          tokens,
		RequiredRole:  cfg.Auth.Keycloak.RequiredRole,
		Observability: obs,
		ReadyChecks:   readyChecks,
		Logger:        log,
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigCh:
		zapLog.Info("Shutdown signal received, stopping...")
	case err := <-serverErr:
		if err != nil {
			zapLog.Error("http server failed", zap.Error(err))
		}
	}

	if err := server.Shutdown(context.Background()); err != nil {
		zapLog.Error("http server shutdown failed", zap.Error(err))
	}
	for _, w := range workers {
		w.Close()
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}

	zapLog.Info("Registration server stopped gracefully")
}
