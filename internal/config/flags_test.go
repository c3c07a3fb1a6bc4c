package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	os.Args = []string{"cmd",
		"-k", "s3", "-f", "Translations",
		"-u", "http://store:8480", "-t", "http://store:8480/oauth/token",
		"-e", "svc@docstore.local", "-s", "topsecret",
		"-r", "3", "-i", "250", "-x", "4000",
		"-w", "8", "-m", ":9999", "-l", "debug",
	}

	config := &Config{}
	config.LoadDefaults()
	require.NotPanics(t, func() { parseFlags(config) })

	assert.Equal(t, "s3", config.Backend)
	assert.Equal(t, "Translations", config.RootFolderName)
	assert.Equal(t, "http://store:8480", config.StoreBaseURL)
	assert.Equal(t, "http://store:8480/oauth/token", config.TokenEndpoint)
	assert.Equal(t, "svc@docstore.local", config.ServiceAccountEmail)
	assert.Equal(t, "topsecret", config.ServiceSecret)
	assert.Equal(t, 3, config.RetryMaxRetries)
	assert.Equal(t, 250*time.Millisecond, config.RetryInitialDelay)
	assert.Equal(t, 4*time.Second, config.RetryMaxDelay)
	assert.Equal(t, 8, config.MaxInFlight)
	assert.Equal(t, ":9999", config.MetricsAddr)
	assert.Equal(t, "debug", config.LogLevel)
}

func TestParseFlags_DelaysKeepDefaultsWhenAbsent(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	os.Args = []string{"cmd", "-k", "memory"}

	config := &Config{}
	config.LoadDefaults()
	require.NotPanics(t, func() { parseFlags(config) })

	assert.Equal(t, "memory", config.Backend)
	// the millisecond round trip must not distort the defaults
	assert.Equal(t, 1*time.Second, config.RetryInitialDelay)
	assert.Equal(t, 16*time.Second, config.RetryMaxDelay)
}

func TestParseFlags_UnknownFlagsAreFilteredOut(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	os.Args = []string{"cmd", "-z", "junk", "-k", "drive"}

	config := &Config{}
	config.LoadDefaults()
	require.NotPanics(t, func() { parseFlags(config) })
	assert.Equal(t, "drive", config.Backend)
}
