package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"

	_ "github.com/nisalrtu/digibrand-cms-sub002/docs" // Swagger docs
	"github.com/nisalrtu/digibrand-cms-sub002/internal/config"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/database"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/handlers"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/jobs"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/repository"
	"github.com/nisalrtu/digibrand-cms-sub002/internal/services"
	"github.com/nisalrtu/digibrand-cms-sub002/pkg/logger"
)

// @title Invoice Ledger API
// @version 1.0
// @description Records payments against client invoices and keeps paid amount, balance and status consistent.

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Setup(cfg.Environment, cfg.LogLevel)

	// Initialize Sentry (GlitchTip) when DSN is configured
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			logger.Error("Sentry initialization failed", "error", err)
		} else {
			logger.Info("Sentry initialized")
		}
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := handlers.SetupValidator(); err != nil {
		logger.Error("Failed to set up request validator", "error", err)
		os.Exit(1)
	}

	db, err := database.Connect(cfg.DatabaseURL, cfg.IsProduction())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to database")

	if cfg.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Error("Failed to migrate database", "error", err)
			os.Exit(1)
		}
		logger.Info("Database migrated")
	}

	repos := repository.NewRepositories(db)

	worker := jobs.NewWorker(cfg.WorkerCount)
	logger.Info("Started background worker", "goroutines", cfg.WorkerCount)

	svcs := services.NewServices(repos, worker, cfg)

	scheduleJobs(worker, svcs, cfg)

	router := handlers.NewRouter(handlers.NewHandlers(svcs), cfg)

	// WriteTimeout leaves room past REQUEST_TIMEOUT for the error response
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Drains queued audit entries before the database closes
	worker.Shutdown()
	logger.Info("Background worker stopped")

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	if cfg.SentryDSN != "" {
		sentry.Flush(5 * time.Second)
	}

	logger.Info("Server exited gracefully")
}

func scheduleJobs(worker *jobs.Worker, svcs *services.Services, cfg *config.Config) {
	if cfg.ReconcileInterval <= 0 {
		logger.Info("Reconciliation sweep disabled")
		return
	}

	worker.ScheduleEvery(cfg.ReconcileInterval, func(ctx context.Context) error {
		logger.Info("[Job] Reconciling invoices...")
		summary, err := svcs.Reconciliation.Sweep(ctx)
		if err != nil {
			return err
		}
		logger.Info("[Job] Reconciliation finished",
			"checked", summary.Checked,
			"drifted", summary.Drifted,
			"duration", summary.Duration,
		)
		return nil
	})

	logger.Info("Scheduled recurring jobs", "reconcile_interval", cfg.ReconcileInterval)
}
