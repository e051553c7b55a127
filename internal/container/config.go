// Package container provides dependency injection and lifecycle management
// for the claim service.
package container

import (
	"fmt"
	"time"

	"github.com/NathIMN/Lumiere-sub005/pkg/awsutil"
)

// Database drivers
const (
	DriverSQLite   = "sqlite"
	DriverDynamoDB = "dynamodb"
	DriverMemory   = "memory"
)

// Storage drivers
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Config holds all configuration for the Container.
type Config struct {
	Database      DatabaseConfig
	DynamoDB      DynamoDBConfig
	Storage       StorageConfig
	Questionnaire QuestionnaireConfig
	Directory     DirectoryConfig
	Workflow      WorkflowConfig
	Server        ServerConfig
}

// DatabaseConfig holds claim store settings.
type DatabaseConfig struct {
	// Driver selects the backend: sqlite, dynamodb or memory
	Driver string

	// Path to SQLite database file
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	BusyTimeout     time.Duration

	// MigrationsDir is the path to migration files
	MigrationsDir string
}

// DynamoDBConfig holds the DynamoDB backend settings.
type DynamoDBConfig struct {
	Table string

	// CreateTable creates the table on start when it is missing
	CreateTable bool

	AWS awsutil.Config
}

// StorageConfig holds document storage settings.
type StorageConfig struct {
	// Driver selects local or s3
	Driver string

	// BaseDir is the root of the local store
	BaseDir string

	Bucket string
	Prefix string
	AWS    awsutil.Config

	// MaxUploadBytes caps a single document; zero disables the check
	MaxUploadBytes int64
}

// QuestionnaireConfig holds the catalog source.
type QuestionnaireConfig struct {
	// CatalogPath is an optional YAML questionnaire activated over the default
	CatalogPath string
}

// DirectoryConfig holds the actor seed source.
type DirectoryConfig struct {
	SeedPath string
}

// WorkflowConfig holds engine settings.
type WorkflowConfig struct {
	PersistenceTimeout time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          DriverSQLite,
			Path:            "data/claims.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			BusyTimeout:     5 * time.Second,
			MigrationsDir:   "migrations",
		},
		DynamoDB: DynamoDBConfig{
			Table: "claims",
		},
		Storage: StorageConfig{
			Driver:         StorageLocal,
			BaseDir:        "data/documents",
			MaxUploadBytes: 10 << 20,
		},
		Workflow: WorkflowConfig{
			PersistenceTimeout: 5 * time.Second,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required")
		}
	case DriverDynamoDB:
		if c.DynamoDB.Table == "" {
			return fmt.Errorf("dynamodb.table is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	switch c.Storage.Driver {
	case StorageLocal:
		if c.Storage.BaseDir == "" {
			return fmt.Errorf("storage.base_dir is required")
		}
	case StorageS3:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	return nil
}
