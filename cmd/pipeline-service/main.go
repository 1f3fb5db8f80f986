package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/jobdigest/jobdigest/internal/catalog"
	"github.com/jobdigest/jobdigest/internal/config"
	"github.com/jobdigest/jobdigest/internal/ingest"
	"github.com/jobdigest/jobdigest/internal/linkcheck"
	"github.com/jobdigest/jobdigest/internal/notify"
	"github.com/jobdigest/jobdigest/internal/scheduler"
	"github.com/jobdigest/jobdigest/internal/source"
	"github.com/jobdigest/jobdigest/shared/logger"
	"github.com/jobdigest/jobdigest/shared/postgresql"
	"github.com/jobdigest/jobdigest/shared/rabbitmq"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("PIPELINE_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/pipeline-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidatePipelineConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting pipeline service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	dbClient, err := initPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	appLogger.Info("Database connection established")

	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}

	appLogger.Info("RabbitMQ connection established")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		appLogger.Warn("Redis unreachable, pacing and run locks degraded",
			slog.String("error", err.Error()),
		)
	}

	db := dbClient.GetDB()
	jobStore := catalog.NewJobStore(db)
	ledger := catalog.NewNotificationLedger(db)
	prefStore := catalog.NewPreferenceStore(db)
	runLog := catalog.NewRunLog(db)

	adapters := buildAdapters(&cfg.Sources, appLogger.Logger)
	limiter := source.NewLimiter(rdb, cfg.Sources.RequestDelay)
	aggregator := source.NewAggregator(
		adapters,
		limiter,
		appLogger.Logger,
		cfg.Sources.MaxConcurrent,
		cfg.Sources.RetryAttempts,
		cfg.Sources.RetryBackoff,
	)

	engine := ingest.NewEngine(jobStore, appLogger.Logger)

	monitor := linkcheck.NewMonitor(
		jobStore,
		linkcheck.NewHTTPProber(cfg.LinkCheck.ProbeTimeout),
		appLogger.Logger,
		cfg.LinkCheck.BatchSize,
		cfg.LinkCheck.Staleness,
		cfg.LinkCheck.ProbeConcurrency,
		cfg.LinkCheck.BrokenBeforeRemove,
	)

	dispatcher := notify.NewDispatcher(
		ledger,
		prefStore,
		jobStore,
		notify.NewQueueGateway(rabbitClient),
		appLogger.Logger,
		cfg.Notify.OutboundConcurrency,
		cfg.Notify.InterSendDelay,
		cfg.Notify.SendTimeout,
		cfg.Notify.RetryAttempts,
		cfg.Notify.RetryBackoff,
		cfg.Notify.OnDemandLimit,
	)

	sched := scheduler.New(
		scheduler.Config{
			ScrapeSpec:   cfg.Scheduler.ScrapeSpec,
			SweepSpec:    cfg.Scheduler.SweepSpec,
			DueCheckSpec: cfg.Scheduler.DueCheckSpec,
			RunLockTTL:   cfg.Scheduler.RunLockTTL,
			MaxQueries:   cfg.Sources.MaxQueriesPerRun,
		},
		prefStore,
		aggregator,
		engine,
		monitor,
		jobStore,
		dispatcher,
		runLog,
		rdb,
		appLogger.Logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	appLogger.Info("Pipeline service started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	appLogger.Info("Received signal, shutting down gracefully",
		slog.String("signal", sig.String()),
	)

	cancel()
	sched.Stop()

	if dbClient != nil {
		dbClient.Close()
	}
	if rabbitClient != nil {
		rabbitClient.Close()
	}
	rdb.Close()

	appLogger.Info("Pipeline service shutdown complete")
	return nil
}

// buildAdapters registers the sources that have what they need to run.
// Adzuna needs credentials; the remote boards are keyless.
func buildAdapters(cfg *config.SourcesConfig, logger *slog.Logger) []source.Adapter {
	var adapters []source.Adapter

	if cfg.Adzuna.AppID != "" && cfg.Adzuna.AppKey != "" {
		adapters = append(adapters, source.NewAdzunaAdapter(
			cfg.Adzuna.AppID, cfg.Adzuna.AppKey, cfg.Adzuna.Country, cfg.FetchTimeout,
		))
	} else {
		logger.Warn("Adzuna credentials missing, adapter disabled")
	}

	adapters = append(adapters,
		source.NewRemoteOKAdapter(cfg.FetchTimeout),
		source.NewRemotiveAdapter(cfg.FetchTimeout),
	)
	return adapters
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:           cfg.Host,
		Port:           cfg.Port,
		User:           cfg.User,
		Password:       cfg.Password,
		VHost:          cfg.VHost,
		ExchangeName:   cfg.Exchange,
		ExchangeType:   cfg.ExchangeType,
		QueueName:      cfg.Queue,
		RoutingKey:     cfg.RoutingKey,
		RetryAttempts:  cfg.RetryAttempts,
		RetryInterval:  cfg.RetryInterval,
		Heartbeat:      cfg.Heartbeat,
		ConfirmTimeout: cfg.ConfirmTimeout,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}
