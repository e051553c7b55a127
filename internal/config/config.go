package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	DynamoDB      DynamoDBConfig      `mapstructure:"dynamodb"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Questionnaire QuestionnaireConfig `mapstructure:"questionnaire"`
	Directory     DirectoryConfig     `mapstructure:"directory"`
	Workflow      WorkflowConfig      `mapstructure:"workflow"`
	Logger        LoggerConfig        `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// DynamoDBConfig holds the single-table DynamoDB backend configuration
type DynamoDBConfig struct {
	Table           string `mapstructure:"table"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	CreateTable     bool   `mapstructure:"create_table"`
}

// StorageConfig holds document storage configuration
type StorageConfig struct {
	Driver          string `mapstructure:"driver"`
	BaseDir         string `mapstructure:"base_dir"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	MaxUploadBytes  int64  `mapstructure:"max_upload_bytes"`
}

// QuestionnaireConfig points at an optional catalog file
type QuestionnaireConfig struct {
	CatalogPath string `mapstructure:"catalog_path"`
}

// DirectoryConfig points at the actor seed file
type DirectoryConfig struct {
	SeedPath string `mapstructure:"seed_path"`
}

// WorkflowConfig holds engine settings
type WorkflowConfig struct {
	PersistenceTimeout time.Duration `mapstructure:"persistence_timeout"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file, .env and environment variables.
// An empty configPath uses defaults and the environment only.
func Load(configPath string) (*Config, error) {
	// A missing .env is fine
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvVars(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/claims.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.busy_timeout", 5*time.Second)
	v.SetDefault("database.migrations_dir", "migrations")

	// DynamoDB defaults
	v.SetDefault("dynamodb.table", "claims")
	v.SetDefault("dynamodb.region", "us-east-1")

	// Storage defaults
	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.base_dir", "data/documents")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.max_upload_bytes", 10<<20)

	// Workflow defaults
	v.SetDefault("workflow.persistence_timeout", 5*time.Second)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds credentials and endpoints to their conventional names
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("dynamodb.access_key_id", "AWS_ACCESS_KEY_ID")
	_ = v.BindEnv("dynamodb.secret_access_key", "AWS_SECRET_ACCESS_KEY")
	_ = v.BindEnv("dynamodb.endpoint", "DYNAMODB_ENDPOINT")
	_ = v.BindEnv("storage.access_key_id", "AWS_ACCESS_KEY_ID")
	_ = v.BindEnv("storage.secret_access_key", "AWS_SECRET_ACCESS_KEY")
	_ = v.BindEnv("storage.endpoint", "S3_ENDPOINT")
	_ = v.BindEnv("storage.bucket", "DOCUMENTS_BUCKET")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case "dynamodb":
		if c.DynamoDB.Table == "" {
			return fmt.Errorf("dynamodb.table is required for the dynamodb driver")
		}
	case "memory":
	default:
		return fmt.Errorf("database.driver must be sqlite, dynamodb or memory, got %q", c.Database.Driver)
	}

	switch c.Storage.Driver {
	case "local":
		if c.Storage.BaseDir == "" {
			return fmt.Errorf("storage.base_dir is required for the local driver")
		}
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("storage.driver must be local or s3, got %q", c.Storage.Driver)
	}

	if c.Storage.MaxUploadBytes < 0 {
		return fmt.Errorf("storage.max_upload_bytes must not be negative")
	}
	if c.Workflow.PersistenceTimeout < 0 {
		return fmt.Errorf("workflow.persistence_timeout must not be negative")
	}

	return nil
}
