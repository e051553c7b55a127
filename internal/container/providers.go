package container

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/NathIMN/Lumiere-sub005/internal/application/dispatcher"
	"github.com/NathIMN/Lumiere-sub005/internal/application/port"
	"github.com/NathIMN/Lumiere-sub005/internal/application/service"
	"github.com/NathIMN/Lumiere-sub005/internal/application/workflow"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/entity"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/event"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/questionnaire"
	"github.com/NathIMN/Lumiere-sub005/internal/infrastructure/export"
	"github.com/NathIMN/Lumiere-sub005/internal/infrastructure/persistence/dynamo"
	"github.com/NathIMN/Lumiere-sub005/internal/infrastructure/persistence/memory"
	"github.com/NathIMN/Lumiere-sub005/internal/infrastructure/persistence/repository"
	"github.com/NathIMN/Lumiere-sub005/internal/infrastructure/persistence/sqlite"
	"github.com/NathIMN/Lumiere-sub005/internal/infrastructure/storage"
	"github.com/NathIMN/Lumiere-sub005/pkg/awsutil"
	"github.com/NathIMN/Lumiere-sub005/pkg/database"
	"github.com/NathIMN/Lumiere-sub005/pkg/utils"
)

// PersistenceBundle holds the claim store of the selected driver.
type PersistenceBundle struct {
	Claims    port.ClaimRepository
	History   port.HistoryRepository
	Actors    port.ActorRegistry
	TxManager port.TransactionManager
	Checker   port.HealthChecker

	// close releases the backend; nil when there is nothing to release
	close func() error
}

// StorageBundle holds the document store.
type StorageBundle struct {
	Documents port.DocumentStore
	Checker   port.HealthChecker
}

// ProvidePersistence opens the configured backend. The sqlite driver also
// runs pending migrations.
func ProvidePersistence(ctx context.Context, cfg *Config, logger *zap.Logger) (*PersistenceBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	switch cfg.Database.Driver {
	case DriverSQLite:
		return provideSQLite(&cfg.Database, logger)
	case DriverDynamoDB:
		return provideDynamo(ctx, &cfg.DynamoDB, logger)
	case DriverMemory:
		store := memory.NewStore(logger)
		return &PersistenceBundle{
			Claims:    store.Claims(),
			History:   store.History(),
			Actors:    store.Actors(),
			TxManager: store,
			Checker:   store,
		}, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func provideSQLite(cfg *DatabaseConfig, logger *zap.Logger) (*PersistenceBundle, error) {
	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MigrationsDir != "" {
		if _, err := database.NewMigrator(db, logger).RunMigrations(cfg.MigrationsDir); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return &PersistenceBundle{
		Claims:    repository.NewClaimRepository(db.DB, logger),
		History:   repository.NewHistoryRepository(db.DB, logger),
		Actors:    repository.NewActorRepository(db.DB, logger),
		TxManager: sqlite.NewTxManager(db.DB, logger),
		Checker:   db,
		close:     db.Close,
	}, nil
}

func provideDynamo(ctx context.Context, cfg *DynamoDBConfig, logger *zap.Logger) (*PersistenceBundle, error) {
	awsCfg, err := awsutil.Load(ctx, cfg.AWS)
	if err != nil {
		return nil, err
	}
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if ep := cfg.AWS.EndpointOverride(); ep != nil {
			o.BaseEndpoint = ep
		}
	})

	table := dynamo.NewTable(client, cfg.Table, logger)
	if cfg.CreateTable {
		if err := table.EnsureTable(ctx); err != nil {
			return nil, err
		}
	}

	return &PersistenceBundle{
		Claims:    dynamo.NewClaimRepository(table),
		History:   dynamo.NewHistoryRepository(table),
		Actors:    dynamo.NewActorRepository(table),
		TxManager: table,
		Checker:   table,
	}, nil
}

// ProvideStorage creates the configured document store.
func ProvideStorage(ctx context.Context, cfg *StorageConfig, logger *zap.Logger) (*StorageBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	switch cfg.Driver {
	case StorageLocal:
		store, err := storage.NewLocalDocumentStore(cfg.BaseDir, logger)
		if err != nil {
			return nil, err
		}
		return &StorageBundle{Documents: store, Checker: store}, nil
	case StorageS3:
		awsCfg, err := awsutil.Load(ctx, cfg.AWS)
		if err != nil {
			return nil, err
		}
		store := storage.NewS3DocumentStore(storage.NewS3Client(awsCfg, cfg.AWS), cfg.Bucket, cfg.Prefix, logger)
		return &StorageBundle{Documents: store, Checker: store}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// ProvideCatalog returns the built-in questionnaire catalog, with the
// configured file registered and activated on top.
func ProvideCatalog(cfg *QuestionnaireConfig, logger *zap.Logger) (*questionnaire.Catalog, error) {
	catalog := questionnaire.NewDefaultCatalog()
	if cfg == nil || cfg.CatalogPath == "" {
		return catalog, nil
	}

	version, err := catalog.LoadFile(cfg.CatalogPath, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load questionnaire catalog: %w", err)
	}
	logger.Info("Questionnaire loaded",
		zap.String("path", cfg.CatalogPath),
		zap.String("version", version))
	return catalog, nil
}

// directorySeed is the layout of the actor seed file
type directorySeed struct {
	Actors []entity.Actor `yaml:"actors"`
}

// SeedDirectory upserts the actors listed in the YAML file at path and
// returns how many were written.
func SeedDirectory(ctx context.Context, registry port.ActorRegistry, path string, logger *zap.Logger) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read directory seed: %w", err)
	}

	var seed directorySeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return 0, fmt.Errorf("failed to parse directory seed: %w", err)
	}

	for i := range seed.Actors {
		actor := seed.Actors[i]
		actor.ID = strings.TrimSpace(actor.ID)
		if actor.ID == "" {
			return i, fmt.Errorf("actor %d: id is required", i)
		}
		if !actor.Role.IsValid() {
			return i, fmt.Errorf("actor %s: unknown role %q", actor.ID, actor.Role)
		}
		if actor.Email != "" {
			if err := utils.ValidateEmail(actor.Email); err != nil {
				return i, fmt.Errorf("actor %s: %w", actor.ID, err)
			}
		}
		if err := registry.Upsert(ctx, &actor); err != nil {
			return i, fmt.Errorf("failed to seed actor %s: %w", actor.ID, err)
		}
	}

	logger.Info("Directory seeded", zap.String("path", path), zap.Int("actors", len(seed.Actors)))
	return len(seed.Actors), nil
}

// ProvideDispatcher creates the event dispatcher with a subscriber that
// logs every claim event.
func ProvideDispatcher(logger *zap.Logger) dispatcher.Dispatcher {
	disp := dispatcher.NewDispatcher(dispatcher.WithLogger(&zapLoggerAdapter{logger: logger}))
	disp.SubscribeNamed(dispatcher.AllEvents, "event_log", func(ctx context.Context, evt *event.Event) error {
		logger.Info("Claim event",
			zap.String("event_id", evt.ID),
			zap.String("type", evt.Type.String()),
			zap.String("claim_id", evt.ClaimID),
			zap.String("actor_id", evt.ActorID),
			zap.Any("payload", evt.Payload))
		return nil
	})
	return disp
}

// ProvideEngine creates the workflow engine over the persistence bundle.
func ProvideEngine(p *PersistenceBundle, catalog *questionnaire.Catalog, disp dispatcher.Dispatcher, cfg *WorkflowConfig, logger *zap.Logger) workflow.Engine {
	return workflow.NewEngine(
		p.Claims,
		p.History,
		p.Actors,
		p.TxManager,
		catalog,
		workflow.WithDispatcher(disp),
		workflow.WithLogger(&zapLoggerAdapter{logger: logger}),
		workflow.WithPersistenceTimeout(cfg.PersistenceTimeout),
	)
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Claims        service.ClaimService
	Questionnaire service.QuestionnaireService
	Statistics    service.StatisticsService
	Workbook      *export.StatisticsWorkbook
}

// ProvideServices creates the application services.
func ProvideServices(engine workflow.Engine, p *PersistenceBundle, s *StorageBundle, catalog *questionnaire.Catalog, maxUploadBytes int64, logger *zap.Logger) *ServiceBundle {
	adapter := &zapLoggerAdapter{logger: logger}
	return &ServiceBundle{
		Claims:        service.NewClaimService(engine, p.Claims, p.History, s.Documents, maxUploadBytes, adapter),
		Questionnaire: service.NewQuestionnaireService(engine, catalog, adapter),
		Statistics:    service.NewStatisticsService(engine, p.Claims, adapter),
		Workbook:      export.NewStatisticsWorkbook(logger),
	}
}
