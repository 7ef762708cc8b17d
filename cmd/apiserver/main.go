// Command apiserver serves the SeqQuant HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/turtacn/SeqQuant/internal/app"
	"github.com/turtacn/SeqQuant/internal/config"
	"github.com/turtacn/SeqQuant/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/SeqQuant/internal/interfaces/http"
	"github.com/turtacn/SeqQuant/internal/interfaces/http/handlers"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (environment and defaults only when empty)")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: could not load .env file: %v\n", err)
	}

	cfg, err := config.LoadOrEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)
	defer logger.Sync()

	logger.Info("starting SeqQuant API server",
		logging.String("version", version),
		logging.String("commit", commit),
		logging.String("addr", cfg.Server.Addr()))

	if err := run(cfg, logger); err != nil {
		logger.Error("API server exited with error", logging.Err(err))
		os.Exit(1)
	}
	logger.Info("SeqQuant API server stopped")
}

func run(cfg *config.Config, logger logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	components, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	// Load both encoders up front. A failure leaves the server up with
	// /readyz reporting the encoder as unhealthy.
	if err := components.Ready(ctx); err != nil {
		logger.Warn("encoders not ready at startup", logging.Err(err))
	}

	encodeHandler := handlers.NewEncodeHandler(handlers.EncodeHandlerConfig{
		Service:                components.Service,
		Logger:                 logger,
		MaxSequencesPerRequest: cfg.Server.MaxSequencesPerRequest,
		MaxBodySize:            cfg.Server.MaxBodySize,
	})
	healthHandler := handlers.NewHealthHandler(version, healthCheckers(components.Checks())...)

	routerCfg := httpserver.RouterConfig{
		EncodeHandler:  encodeHandler,
		HealthHandler:  healthHandler,
		Logger:         logger,
		RateLimit:      cfg.RateLimit,
		CORSOrigins:    cfg.Server.CORSAllowedOrigins,
		TrustedProxies: cfg.Server.TrustedProxies,
	}
	if components.Metrics != nil {
		routerCfg.Metrics = components.Metrics
		routerCfg.MetricsHandler = components.Collector.Handler()
		routerCfg.MetricsPath = cfg.Metrics.Path
	}
	srv := httpserver.NewServer(cfg.Server, httpserver.NewRouter(routerCfg), logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// healthCheckers turns named probes into readiness checkers in name order.
func healthCheckers(checks map[string]func(context.Context) error) []handlers.HealthChecker {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]handlers.HealthChecker, 0, len(names))
	for _, name := range names {
		out = append(out, handlers.CheckFunc{CheckName: name, Fn: checks[name]})
	}
	return out
}
