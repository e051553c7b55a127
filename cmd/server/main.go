package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/NathIMN/Lumiere-sub005/internal/config"
	"github.com/NathIMN/Lumiere-sub005/internal/container"
	httpapi "github.com/NathIMN/Lumiere-sub005/internal/interfaces/http"
	"github.com/NathIMN/Lumiere-sub005/pkg/utils"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
		Service:    "claims",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("Claim service stopped with error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting claim service",
		zap.String("database_driver", cfg.Database.Driver),
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.Int("port", cfg.Server.Port))

	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}
	if err := c.Start(ctx); err != nil {
		return fmt.Errorf("failed to start container: %w", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("Failed to close container", zap.Error(err))
		}
	}()

	services := c.Services()
	server := httpapi.NewServer(httpapi.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MaxUploadBytes:  cfg.Storage.MaxUploadBytes,
	}, httpapi.Services{
		Engine:        c.Engine(),
		Claims:        services.Claims,
		Questionnaire: services.Questionnaire,
		Statistics:    services.Statistics,
		Workbook:      services.Workbook,
	}, func(ctx context.Context) (bool, interface{}) {
		status := c.Health(ctx)
		return status.Overall, status.Components
	}, c.KVLogger())

	// Blocks until SIGINT/SIGTERM, then drains in-flight requests
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	logger.Info("Claim service stopped")
	return nil
}
