package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	extractionapp "github.com/arqcashflow/backend/internal/application/extraction"
	importapp "github.com/arqcashflow/backend/internal/application/import"
	"github.com/arqcashflow/backend/internal/infrastructure/ai"
	"github.com/arqcashflow/backend/internal/infrastructure/auth"
	"github.com/arqcashflow/backend/internal/infrastructure/cache"
	"github.com/arqcashflow/backend/internal/infrastructure/config"
	"github.com/arqcashflow/backend/internal/infrastructure/event"
	sheetimport "github.com/arqcashflow/backend/internal/infrastructure/import"
	"github.com/arqcashflow/backend/internal/infrastructure/logger"
	"github.com/arqcashflow/backend/internal/infrastructure/persistence"
	"github.com/arqcashflow/backend/internal/infrastructure/storage"
	"github.com/arqcashflow/backend/internal/infrastructure/telemetry"
	"github.com/arqcashflow/backend/internal/interfaces/http/handler"
	"github.com/arqcashflow/backend/internal/interfaces/http/middleware"
	"github.com/arqcashflow/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const auditBufferSize = 1024

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	logCfg := logger.FromAppConfig(cfg.Log)
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	telCfg := telemetry.FromAppConfig(cfg.Telemetry)

	tp, err := telemetry.NewTracerProvider(ctx, telCfg, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	mp, err := telemetry.NewMeterProvider(ctx, telCfg, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	lp, err := telemetry.NewLoggerProvider(ctx, telCfg, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize log export", zap.Error(err))
	}

	log, err := logger.New(logCfg, lp.Core(logger.ParseLevel(cfg.Log.Level)))
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting import service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", telemetry.Version),
	)

	meter := mp.Meter(telemetry.TracerName)

	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := instrumentDatabase(cfg, db, meter, log); err != nil {
		log.Fatal("Failed to instrument database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	repos := db.Repositories()

	importMetrics, err := telemetry.NewImportMetrics(telemetry.ImportMetricsConfig{Meter: meter, Logger: log})
	if err != nil {
		log.Fatal("Failed to create import metrics", zap.Error(err))
	}

	progress, err := cache.NewProgressStoreFactory(cfg.Redis, cfg.Import.ProgressTTL,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	).CreateStore()
	if err != nil {
		log.Fatal("Failed to create progress store", zap.Error(err))
	}
	defer func() { _ = progress.Close() }()

	archive, err := storage.NewArchive(&cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to create source archive", zap.Error(err))
	}
	if s3Archive, ok := archive.(*storage.S3Archive); ok && cfg.Storage.CreateBucket {
		bucketCtx, cancel := context.WithTimeout(ctx, cfg.Import.ArchiveTimeout)
		err := s3Archive.EnsureBucket(bucketCtx)
		cancel()
		if err != nil {
			log.Fatal("Failed to prepare archive bucket", zap.Error(err), zap.String("bucket", s3Archive.Bucket()))
		}
	}

	aiService, err := ai.New(ctx, ai.Config{
		Enabled:        cfg.AI.Enabled,
		Provider:       cfg.AI.Provider,
		VisionProvider: cfg.AI.VisionProvider,
		OpenAIAPIKey:   cfg.AI.OpenAIAPIKey,
		OpenAIModel:    cfg.AI.OpenAIModel,
		OpenAIBaseURL:  cfg.AI.OpenAIBaseURL,
		GeminiAPIKey:   cfg.AI.GeminiAPIKey,
		GeminiModel:    cfg.AI.GeminiModel,
		Timeout:        cfg.AI.Timeout,
		MaxRetries:     cfg.AI.MaxRetries,
	}, importMetrics, log)
	if err != nil {
		log.Fatal("Failed to create AI client", zap.Error(err))
	}
	orchestratorCfg := extractionapp.Config{
		AIEnabled:      cfg.AI.Enabled,
		ChunkRows:      cfg.AI.ChunkRows,
		MaxConcurrency: cfg.AI.MaxConcurrency,
		MinConfidence:  cfg.AI.MinConfidence,
	}
	var orchestrator *extractionapp.Orchestrator
	if aiService != nil {
		defer func() { _ = aiService.Close() }()
		orchestrator = extractionapp.NewOrchestrator(sheetimport.NewProcessor(log), aiService, orchestratorCfg, log)
	} else {
		orchestrator = extractionapp.NewOrchestrator(sheetimport.NewProcessor(log), nil, orchestratorCfg, log)
	}

	audit := event.NewZapAuditSink(ctx, log.Named("audit"), auditBufferSize)
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := audit.Stop(stopCtx); err != nil {
			log.Warn("Audit sink did not drain", zap.Error(err), zap.Int64("dropped", audit.Dropped()))
		}
	}()

	committer := importapp.NewCommitService(
		repos.Contracts,
		repos.Receivables,
		repos.Expenses,
		importapp.CommitConfig{
			Dedup: importapp.DedupPolicy{
				Threshold:      cfg.Import.DedupThreshold,
				ValueTolerance: cfg.Import.ValueTolerance,
			},
			LinkThreshold: cfg.Import.LinkThreshold,
		},
		importMetrics,
		log,
	)
	importService := importapp.NewImportService(importapp.ImportServiceDeps{
		Extractor: orchestrator,
		Committer: committer,
		History:   importapp.NewImportHistoryService(repos.ImportHistory),
		Progress:  progress,
		Archive:   archive,
		Audit:     audit,
		Metrics:   importMetrics,
		Logger:    log,
	}, importapp.ImportServiceConfig{
		MaxFileSize:    cfg.Import.MaxFileSize,
		MaxBatchFiles:  cfg.Import.MaxBatchFiles,
		ArchiveTimeout: cfg.Import.ArchiveTimeout,
	})

	authCfg := middleware.AuthConfig{AllowHeaderAuth: cfg.JWT.AllowHeaderAuth}
	if cfg.JWT.Secret != "" {
		authCfg.Verifier = auth.NewTokenVerifier(cfg.JWT)
	}

	runCtx, stopLimiter := context.WithCancel(ctx)
	defer stopLimiter()
	var limiter *middleware.RateLimiter
	if cfg.Import.RateLimit > 0 {
		limiter = middleware.NewRateLimiter(cfg.Import.RateLimit, cfg.Import.RateWindow)
		go limiter.Run(runCtx)
	}

	engine, err := router.New(router.Config{
		Logger:         log,
		HTTP:           cfg.HTTP,
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: tp.IsEnabled(),
		Meter:          meter,
		Auth:           authCfg,
		RateLimiter:    limiter,
		Health: handler.NewHealthHandler(telemetry.Version, map[string]handler.HealthCheck{
			"database": func(ctx context.Context) error { return db.DB.WithContext(ctx).Exec("SELECT 1").Error },
		}),
		Registrars: []router.RouteRegistrar{
			handler.NewImportHandler(importService, cfg.Import.MaxFileSize),
		},
	})
	if err != nil {
		log.Fatal("Failed to build router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	shutdownTelemetry(shutdownCtx, log, tp, mp, lp)

	log.Info("Server exited gracefully")
}

func instrumentDatabase(cfg *config.Config, db *persistence.Database, meter metric.Meter, log *zap.Logger) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	dbMetrics, err := telemetry.NewDBMetrics(meter, sqlDB)
	if err != nil {
		return err
	}
	return telemetry.NewDBInstrumentation(telemetry.DBConfig{
		Tracing:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
	}, dbMetrics, log).Register(db.DB)
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// Log export goes last so the shutdown of the other providers is still shipped.
func shutdownTelemetry(ctx context.Context, log *zap.Logger, providers ...shutdowner) {
	for _, p := range providers {
		if err := p.Shutdown(ctx); err != nil {
			log.Warn("Telemetry shutdown failed", zap.Error(err))
		}
	}
}
