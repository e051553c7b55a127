package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_DefaultsAndFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
database:
  driver: memory
storage:
  driver: local
  base_dir: /tmp/docs
  max_upload_bytes: 2048
workflow:
  persistence_timeout: 2s
directory:
  seed_path: configs/actors.yaml
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, int64(2048), cfg.Storage.MaxUploadBytes)
	assert.Equal(t, 2*time.Second, cfg.Workflow.PersistenceTimeout)
	assert.Equal(t, "configs/actors.yaml", cfg.Directory.SeedPath)
	assert.Equal(t, "json", cfg.Logger.Format)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("DOCUMENTS_BUCKET", "claim-docs")
	t.Setenv("STORAGE_DRIVER", "s3")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "s3", cfg.Storage.Driver)
	assert.Equal(t, "claim-docs", cfg.Storage.Bucket)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 8080},
			Database: DatabaseConfig{Driver: "sqlite", Path: "x.db"},
			DynamoDB: DynamoDBConfig{Table: "claims"},
			Storage:  StorageConfig{Driver: "local", BaseDir: "docs"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "postgres" }, "database.driver"},
		{"sqlite without path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"dynamodb without table", func(c *Config) { c.Database.Driver = "dynamodb"; c.DynamoDB.Table = "" }, "dynamodb.table"},
		{"s3 without bucket", func(c *Config) { c.Storage.Driver = "s3" }, "storage.bucket"},
		{"negative upload limit", func(c *Config) { c.Storage.MaxUploadBytes = -1 }, "max_upload_bytes"},
		{"negative timeout", func(c *Config) { c.Workflow.PersistenceTimeout = -time.Second }, "persistence_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestToContainerConfig(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{Driver: "dynamodb"},
		DynamoDB: DynamoDBConfig{Table: "claims", Endpoint: "http://localhost:8000", Region: "eu-west-1"},
		Storage:  StorageConfig{Driver: "s3", Bucket: "docs", Endpoint: "http://localhost:4566"},
		Workflow: WorkflowConfig{PersistenceTimeout: time.Second},
	}

	cc := cfg.ToContainerConfig()
	assert.Equal(t, "dynamodb", cc.Database.Driver)
	assert.Equal(t, "claims", cc.DynamoDB.Table)
	assert.Equal(t, "http://localhost:8000", cc.DynamoDB.AWS.Endpoint)
	assert.Equal(t, "eu-west-1", cc.DynamoDB.AWS.Region)
	assert.Equal(t, "docs", cc.Storage.Bucket)
	assert.Equal(t, time.Second, cc.Workflow.PersistenceTimeout)
}
