package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config fields from environment variables. A .env file in
// the working directory is loaded first if present; variables already set in
// the process environment win over the file.
func parseEnv(config *Config) {
	_ = godotenv.Load()

	getString("DOCSTORE_BACKEND", &config.Backend)
	getString("DOCSTORE_ROOT_FOLDER", &config.RootFolderName)

	getString("DOCSTORE_STORE_BASE_URL", &config.StoreBaseURL)
	getString("DOCSTORE_TOKEN_ENDPOINT", &config.TokenEndpoint)
	getString("DOCSTORE_SERVICE_ACCOUNT_EMAIL", &config.ServiceAccountEmail)
	getString("DOCSTORE_SERVICE_SECRET", &config.ServiceSecret)

	getString("DOCSTORE_S3_ENDPOINT", &config.S3Endpoint)
	getString("DOCSTORE_S3_BUCKET", &config.S3Bucket)
	getString("DOCSTORE_S3_REGION", &config.S3Region)
	getString("DOCSTORE_S3_ACCESS_KEY", &config.S3AccessKey)
	getString("DOCSTORE_S3_SECRET_KEY", &config.S3SecretKey)

	getInt("DOCSTORE_RETRY_MAX_RETRIES", &config.RetryMaxRetries)
	getDuration("DOCSTORE_RETRY_INITIAL_DELAY", &config.RetryInitialDelay)
	getFloat("DOCSTORE_RETRY_BACKOFF_FACTOR", &config.RetryBackoffFactor)
	getDuration("DOCSTORE_RETRY_MAX_DELAY", &config.RetryMaxDelay)

	getInt("DOCSTORE_MAX_IN_FLIGHT", &config.MaxInFlight)
	getString("DOCSTORE_REAP_SCHEDULE", &config.ReapSchedule)
	getString("DOCSTORE_METRICS_ADDR", &config.MetricsAddr)
	getString("DOCSTORE_LOG_LEVEL", &config.LogLevel)
}

func getString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func getInt(key string, dst *int) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func getFloat(key string, dst *float64) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = parsed
		}
	}
}

func getDuration(key string, dst *time.Duration) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst = parsed
		}
	}
}
