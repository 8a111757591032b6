package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/jobpal/jobpal-server/internal/application/service"
	appworkflow "github.com/jobpal/jobpal-server/internal/application/workflow"
	"github.com/jobpal/jobpal-server/internal/auth"
	"github.com/jobpal/jobpal-server/internal/config"
	"github.com/jobpal/jobpal-server/internal/infrastructure/external/openai"
	"github.com/jobpal/jobpal-server/internal/infrastructure/external/zipcloud"
	"github.com/jobpal/jobpal-server/internal/infrastructure/persistence/repository"
	"github.com/jobpal/jobpal-server/internal/infrastructure/persistence/sqlite"
	"github.com/jobpal/jobpal-server/internal/infrastructure/worker"
	httpadapter "github.com/jobpal/jobpal-server/internal/interfaces/http"
	"github.com/jobpal/jobpal-server/pkg/database"
	"github.com/jobpal/jobpal-server/pkg/utils"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting JobPal server", zap.Int("port", cfg.Server.Port))

	sqlDB, err := database.Open(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer sqlDB.Close()

	migrator := database.NewMigrator(sqlDB, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	db := sqlite.NewDB(sqlDB, logger)

	// Repositories
	jobRepo := repository.NewJobSearchRepository(sqlDB, logger)
	examReportRepo := repository.NewExamReportRepository(sqlDB, logger)
	certificateRepo := repository.NewCertificateRepository(sqlDB, logger)
	postalRateRepo := repository.NewPostalRateRepository(sqlDB, logger)
	notificationRepo := repository.NewNotificationRepository(sqlDB, logger)
	userRepo := repository.NewUserRepository(sqlDB, logger)
	historyRepo := repository.NewHistoryRepository(sqlDB, logger)

	// External adapters
	predictor := openai.NewPredictor(
		cfg.OpenAI.APIKey,
		cfg.OpenAI.Model,
		cfg.OpenAI.Temperature,
		logger,
	)
	addressLookup := zipcloud.NewClient(logger)

	// Auth
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	attempts := auth.NewAttemptTracker(cfg.Auth.MaxAttempts, cfg.Auth.LockoutWindow)

	sugar := &sugaredLogger{logger.Sugar()}

	// Services
	authService := service.NewAuthService(userRepo, tokens, attempts, sugar)
	jobService := service.NewJobSearchService(
		jobRepo, examReportRepo, userRepo, notificationRepo, historyRepo,
		db, predictor, sugar,
	)
	certificateService := service.NewCertificateService(
		certificateRepo, postalRateRepo, userRepo, notificationRepo, historyRepo,
		db, sugar,
	)
	notificationService := service.NewNotificationService(notificationRepo, sugar)
	exportService := service.NewExportService(jobRepo, userRepo, sugar)

	// Transition engine
	engine := appworkflow.NewEngine(
		jobRepo, certificateRepo, userRepo, notificationRepo, historyRepo, db,
	)

	// Background workers
	manager := worker.NewManager(logger)
	manager.Register(worker.NewReNotifyWorker(
		worker.ReNotifyConfig{
			SweepInterval: cfg.Batch.SweepInterval,
			StaleAfter:    cfg.Batch.StaleAfter,
		},
		jobRepo, certificateRepo, notificationRepo, logger,
	))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := manager.StartAll(ctx); err != nil {
		logger.Fatal("Failed to start workers", zap.Error(err))
	}

	// HTTP server
	if err := httpadapter.RegisterValidations(); err != nil {
		logger.Fatal("Failed to register validators", zap.Error(err))
	}

	server := httpadapter.NewServer(
		httpadapter.ServerConfig{
			Host:         cfg.Server.Host,
			Port:         cfg.Server.Port,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		authService,
		jobService,
		certificateService,
		notificationService,
		exportService,
		engine,
		addressLookup,
		tokens,
		sugar,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("Shutting down server...")
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	}

	cancel()

	if err := server.Stop(); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := manager.StopAll(); err != nil {
		logger.Error("Worker shutdown incomplete", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}

// sugaredLogger adapts zap's sugared logger to the keysAndValues logging
// interface the application layer expects.
type sugaredLogger struct {
	s *zap.SugaredLogger
}

func (l *sugaredLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Infow(msg, keysAndValues...)
}

func (l *sugaredLogger) Error(msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, keysAndValues...)
}
