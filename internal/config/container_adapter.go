package config

import (
	"github.com/NathIMN/Lumiere-sub005/internal/container"
	"github.com/NathIMN/Lumiere-sub005/pkg/awsutil"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Driver:          c.Database.Driver,
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			BusyTimeout:     c.Database.BusyTimeout,
			MigrationsDir:   c.Database.MigrationsDir,
		},
		DynamoDB: container.DynamoDBConfig{
			Table:       c.DynamoDB.Table,
			CreateTable: c.DynamoDB.CreateTable,
			AWS: awsutil.Config{
				Region:          c.DynamoDB.Region,
				Endpoint:        c.DynamoDB.Endpoint,
				AccessKeyID:     c.DynamoDB.AccessKeyID,
				SecretAccessKey: c.DynamoDB.SecretAccessKey,
			},
		},
		Storage: container.StorageConfig{
			Driver:         c.Storage.Driver,
			BaseDir:        c.Storage.BaseDir,
			Bucket:         c.Storage.Bucket,
			Prefix:         c.Storage.Prefix,
			MaxUploadBytes: c.Storage.MaxUploadBytes,
			AWS: awsutil.Config{
				Region:          c.Storage.Region,
				Endpoint:        c.Storage.Endpoint,
				AccessKeyID:     c.Storage.AccessKeyID,
				SecretAccessKey: c.Storage.SecretAccessKey,
			},
		},
		Questionnaire: container.QuestionnaireConfig{
			CatalogPath: c.Questionnaire.CatalogPath,
		},
		Directory: container.DirectoryConfig{
			SeedPath: c.Directory.SeedPath,
		},
		Workflow: container.WorkflowConfig{
			PersistenceTimeout: c.Workflow.PersistenceTimeout,
		},
		Server: container.ServerConfig{
			Host:            c.Server.Host,
			Port:            c.Server.Port,
			ReadTimeout:     c.Server.ReadTimeout,
			WriteTimeout:    c.Server.WriteTimeout,
			ShutdownTimeout: c.Server.ShutdownTimeout,
		},
	}
}
