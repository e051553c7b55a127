package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/NathIMN/Lumiere-sub005/internal/application/dispatcher"
	"github.com/NathIMN/Lumiere-sub005/internal/application/port"
	"github.com/NathIMN/Lumiere-sub005/internal/application/workflow"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/questionnaire"
)

// healthTimeout bounds each component check
const healthTimeout = 2 * time.Second

// Container manages all application dependencies and lifecycle.
// Start initializes components in dependency order and Close tears them
// down in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	persistence *PersistenceBundle
	storage     *StorageBundle
	catalog     *questionnaire.Catalog
	dispatcher  dispatcher.Dispatcher
	engine      workflow.Engine
	services    *ServiceBundle

	mu     sync.RWMutex
	ready  atomic.Bool
	closed atomic.Bool
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components:
// 1. Claim store
// 2. Document store
// 3. Questionnaire catalog
// 4. Directory seeding
// 5. Event dispatcher and workflow engine
// 6. Application services
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization",
		zap.String("database_driver", c.config.Database.Driver),
		zap.String("storage_driver", c.config.Storage.Driver))

	persistence, err := ProvidePersistence(ctx, c.config, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize claim store: %w", err)
	}
	c.persistence = persistence
	c.logger.Info("Claim store initialized")

	storage, err := ProvideStorage(ctx, &c.config.Storage, c.logger)
	if err != nil {
		c.closePersistence()
		return fmt.Errorf("failed to initialize document store: %w", err)
	}
	c.storage = storage
	c.logger.Info("Document store initialized")

	catalog, err := ProvideCatalog(&c.config.Questionnaire, c.logger)
	if err != nil {
		c.closePersistence()
		return err
	}
	c.catalog = catalog

	if path := c.config.Directory.SeedPath; path != "" {
		if _, err := SeedDirectory(ctx, c.persistence.Actors, path, c.logger); err != nil {
			c.closePersistence()
			return fmt.Errorf("failed to seed directory: %w", err)
		}
	}

	c.dispatcher = ProvideDispatcher(c.logger)
	c.engine = ProvideEngine(c.persistence, c.catalog, c.dispatcher, &c.config.Workflow, c.logger)
	c.logger.Info("Dispatcher and workflow engine initialized")

	c.services = ProvideServices(c.engine, c.persistence, c.storage, c.catalog, c.config.Storage.MaxUploadBytes, c.logger)
	c.logger.Info("Application services initialized")

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")
	var errs []error

	// Let in-flight event handlers finish before the store goes away
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
	}

	if err := c.closePersistence(); err != nil {
		c.logger.Error("Failed to close claim store", zap.Error(err))
		errs = append(errs, fmt.Errorf("close claim store: %w", err))
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

func (c *Container) closePersistence() error {
	if c.persistence == nil || c.persistence.close == nil {
		return nil
	}
	err := c.persistence.close()
	c.persistence.close = nil
	return err
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health pings the claim store and the document store.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	check := func(name string, checker port.HealthChecker) {
		if checker == nil {
			status.Components[name] = ComponentHealth{Healthy: false, Message: "not initialized"}
			status.Overall = false
			return
		}
		pingCtx, cancel := context.WithTimeout(ctx, healthTimeout)
		defer cancel()
		if err := checker.Ping(pingCtx); err != nil {
			status.Components[name] = ComponentHealth{Healthy: false, Message: fmt.Sprintf("ping failed: %v", err)}
			status.Overall = false
			return
		}
		status.Components[name] = ComponentHealth{Healthy: true}
	}

	var claimStore, documentStore port.HealthChecker
	if c.persistence != nil {
		claimStore = c.persistence.Checker
	}
	if c.storage != nil {
		documentStore = c.storage.Checker
	}
	check("claim_store", claimStore)
	check("document_store", documentStore)

	if c.dispatcher != nil {
		status.Components["dispatcher"] = ComponentHealth{Healthy: true}
	} else {
		status.Components["dispatcher"] = ComponentHealth{Healthy: false, Message: "not initialized"}
		status.Overall = false
	}

	return status
}

// Getters for accessing container components

// Persistence returns the claim store bundle.
func (c *Container) Persistence() *PersistenceBundle {
	return c.persistence
}

// Storage returns the document store bundle.
func (c *Container) Storage() *StorageBundle {
	return c.storage
}

// Catalog returns the questionnaire catalog.
func (c *Container) Catalog() *questionnaire.Catalog {
	return c.catalog
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Engine returns the workflow engine.
func (c *Container) Engine() workflow.Engine {
	return c.engine
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// KVLogger is the minimal key/value logger of the application and HTTP layers.
type KVLogger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// KVLogger returns the container's logger as a KVLogger.
func (c *Container) KVLogger() KVLogger {
	return &zapLoggerAdapter{logger: c.logger}
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}

// zapLoggerAdapter adapts zap.Logger to the minimal Logger interfaces.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
