// Command worker consumes encode jobs from kafka and publishes their
// latent vectors.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/turtacn/SeqQuant/internal/app"
	"github.com/turtacn/SeqQuant/internal/config"
	"github.com/turtacn/SeqQuant/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/SeqQuant/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/SeqQuant/internal/interfaces/http"
	"github.com/turtacn/SeqQuant/internal/interfaces/http/handlers"
	"github.com/turtacn/SeqQuant/internal/interfaces/worker"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (environment and defaults only when empty)")
	concurrency := flag.Int("workers", 0, "concurrent jobs (overrides worker.concurrency)")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: could not load .env file: %v\n", err)
	}

	cfg, err := config.LoadOrEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *concurrency > 0 {
		cfg.Worker.Concurrency = *concurrency
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)
	defer logger.Sync()

	logger.Info("starting SeqQuant worker",
		logging.String("version", version),
		logging.String("request_topic", cfg.Kafka.RequestTopic),
		logging.Int("concurrency", cfg.Worker.Concurrency))

	if err := run(cfg, logger); err != nil {
		logger.Error("worker exited with error", logging.Err(err))
		os.Exit(1)
	}
	logger.Info("SeqQuant worker stopped")
}

func run(cfg *config.Config, logger logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	components, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	if err := components.Ready(ctx); err != nil {
		logger.Warn("encoders not ready at startup", logging.Err(err))
	}

	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers: cfg.Kafka.Brokers,
		Acks:    "all",
	}, logger)
	if err != nil {
		return err
	}
	defer producer.Close()

	handlerCfg := worker.HandlerConfig{
		Encoder:     components.Service,
		Publisher:   producer,
		ResultTopic: cfg.Kafka.ResultTopic,
		JobTimeout:  cfg.Worker.JobTimeout,
		Logger:      logger,
	}
	if components.Metrics != nil {
		handlerCfg.Metrics = components.Metrics
	}
	handler, err := worker.NewEncodeHandler(handlerCfg)
	if err != nil {
		return err
	}

	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:         cfg.Kafka.Brokers,
		GroupID:         cfg.Kafka.GroupID,
		Topic:           cfg.Kafka.RequestTopic,
		AutoOffsetReset: cfg.Kafka.AutoOffsetReset,
		BatchSize:       cfg.Kafka.BatchSize,
		Concurrency:     cfg.Worker.Concurrency,
		RetryConfig: kafka.RetryConfig{
			MaxRetries:      cfg.Worker.MaxRetries,
			DeadLetterTopic: cfg.Kafka.DLQTopic,
		},
	}, producer, logger)
	if err != nil {
		return err
	}
	consumer.Subscribe(handler.Handle)

	health := startHealthServer(cfg, components, consumer, logger)

	if err := consumer.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	logger.Info("shutdown signal received, draining in-flight jobs")

	if err := consumer.Close(); err != nil {
		logger.Warn("consumer close failed", logging.Err(err))
	}
	stats := consumer.Stats()
	logger.Info("consumer drained",
		logging.Int64("processed", stats.Processed),
		logging.Int64("failed", stats.Failed),
		logging.Int64("dead_lettered", stats.DeadLettered))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return health.Stop(shutdownCtx)
}

// startHealthServer serves liveness, readiness and metrics on the worker's
// health port.
func startHealthServer(cfg *config.Config, components *app.Components, consumer *kafka.Consumer, logger logging.Logger) *httpserver.Server {
	checks := components.Checks()
	checks["consumer"] = consumer.Healthy
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)
	checkers := make([]handlers.HealthChecker, 0, len(names))
	for _, name := range names {
		checkers = append(checkers, handlers.CheckFunc{CheckName: name, Fn: checks[name]})
	}

	routerCfg := httpserver.RouterConfig{
		HealthHandler: handlers.NewHealthHandler(version, checkers...),
		Logger:        logger,
	}
	if components.Metrics != nil {
		routerCfg.Metrics = components.Metrics
		routerCfg.MetricsHandler = components.Collector.Handler()
		routerCfg.MetricsPath = cfg.Metrics.Path
	}

	serverCfg := cfg.Server
	serverCfg.Port = cfg.Worker.HealthPort
	srv := httpserver.NewServer(serverCfg, httpserver.NewRouter(routerCfg), logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("health server failed", logging.Err(err))
		}
	}()
	return srv
}
