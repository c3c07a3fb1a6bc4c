package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, c.Backend, BackendDrive)
	assert.Equal(t, c.RootFolderName, "LingoDocs")
	assert.Equal(t, c.StoreBaseURL, "http://127.0.0.1:8480")
	assert.Equal(t, c.TokenEndpoint, "http://127.0.0.1:8480/oauth/token")
	assert.Equal(t, c.ServiceAccountEmail, "docstore@service.local")
	assert.Equal(t, c.ServiceSecret, "secretKey")
	assert.Equal(t, c.S3Bucket, "docstore")
	assert.Equal(t, c.S3Region, "us-east-1")
	assert.Equal(t, c.S3Endpoint, "http://127.0.0.1:9000/")
	assert.Equal(t, c.RetryMaxRetries, 5)
	assert.Equal(t, c.RetryInitialDelay, 1*time.Second)
	assert.Equal(t, c.RetryBackoffFactor, 2.0)
	assert.Equal(t, c.RetryMaxDelay, 16*time.Second)
	assert.Equal(t, c.MaxInFlight, 4)
	assert.Equal(t, c.ReapSchedule, "0 * * * *")
	assert.Equal(t, c.MetricsAddr, ":9190")
	assert.Equal(t, c.LogLevel, "info")
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	c := LoadConfig()

	require.NotNil(t, c, "LoadConfig must not return nil")

	assert.Equal(t, c.Backend, BackendDrive)
	assert.Equal(t, c.RootFolderName, "LingoDocs")
	assert.Equal(t, c.RetryMaxRetries, 5)
	assert.Equal(t, c.RetryInitialDelay, 1*time.Second)
	assert.Equal(t, c.RetryBackoffFactor, 2.0)
	assert.Equal(t, c.ReapSchedule, "0 * * * *")
}

func TestParseEnv_Overlays(t *testing.T) {
	t.Setenv("DOCSTORE_BACKEND", "s3")
	t.Setenv("DOCSTORE_RETRY_MAX_RETRIES", "2")
	t.Setenv("DOCSTORE_RETRY_INITIAL_DELAY", "250ms")
	t.Setenv("DOCSTORE_RETRY_BACKOFF_FACTOR", "3.5")
	t.Setenv("DOCSTORE_MAX_IN_FLIGHT", "8")

	var c Config
	c.LoadDefaults()
	parseEnv(&c)

	assert.Equal(t, "s3", c.Backend)
	assert.Equal(t, 2, c.RetryMaxRetries)
	assert.Equal(t, 250*time.Millisecond, c.RetryInitialDelay)
	assert.Equal(t, 3.5, c.RetryBackoffFactor)
	assert.Equal(t, 8, c.MaxInFlight)
}

func TestParseEnv_IgnoresEmptyAndInvalid(t *testing.T) {
	t.Setenv("DOCSTORE_BACKEND", "")
	t.Setenv("DOCSTORE_RETRY_MAX_RETRIES", "not-a-number")

	var c Config
	c.LoadDefaults()
	parseEnv(&c)

	assert.Equal(t, BackendDrive, c.Backend)
	assert.Equal(t, 5, c.RetryMaxRetries)
}
