package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/expense-requirement/internal/config"
	"github.com/garyjia/expense-requirement/internal/container"
	"github.com/garyjia/expense-requirement/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML configuration")
	envFile := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(cfg.LoggerConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting requirement lifecycle engine",
		zap.String("database_driver", cfg.Database.Driver),
		zap.String("lock_backend", cfg.Lock.Backend),
		zap.Duration("export_interval", cfg.Export.Interval))

	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		logger.Fatal("Failed to create container", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := c.Start(ctx); err != nil {
		logger.Fatal("Failed to start container", zap.Error(err))
	}

	health := c.Health()
	logger.Info("Engine ready", zap.Bool("healthy", health.Overall))

	<-ctx.Done()
	logger.Info("Shutting down")

	done := make(chan error, 1)
	go func() { done <- c.Close() }()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("Shutdown finished with errors", zap.Error(err))
			os.Exit(1)
		}
	case <-time.After(30 * time.Second):
		logger.Error("Shutdown timed out")
		os.Exit(1)
	}
}
