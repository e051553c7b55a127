package awsutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_StaticCredentials(t *testing.T) {
	cfg, err := Load(context.Background(), Config{
		Region:          "eu-west-1",
		AccessKeyID:     "test",
		SecretAccessKey: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", cfg.Region)

	creds, err := cfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test", creds.AccessKeyID)
}

func TestEndpointOverride(t *testing.T) {
	assert.Nil(t, Config{}.EndpointOverride())

	ep := Config{Endpoint: "http://localhost:4566"}.EndpointOverride()
	require.NotNil(t, ep)
	assert.Equal(t, "http://localhost:4566", *ep)
}
