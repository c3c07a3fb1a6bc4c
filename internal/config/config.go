// Package config handles configuration for the docstore service,
// including defaults, environment overlay, JSON overlay, and command-line
// flags.
package config

import "time"

// Backend identifiers accepted in Config.Backend.
const (
	BackendDrive  = "drive"
	BackendS3     = "s3"
	BackendMemory = "memory"
)

// Config holds runtime settings for the docstore service.
//
// Fields:
//   - Backend: remote-store backend ("drive", "s3" or "memory").
//   - RootFolderName: name of the top-level folder all customer trees live under.
//   - StoreBaseURL / TokenEndpoint: remote store API and its token exchange URL.
//   - ServiceAccountEmail / ServiceSecret: service identity used to sign the
//     token assertion (HS256). Do not use test defaults in prod.
//   - S3Endpoint / S3Bucket / S3Region / S3AccessKey / S3SecretKey: settings
//     for the S3-compatible backend.
//   - RetryMaxRetries / RetryInitialDelay / RetryBackoffFactor / RetryMaxDelay:
//     the transport retry policy shared by all remote operations.
//   - MaxInFlight: process-wide cap on concurrent remote-store calls.
//   - ReapSchedule: cron expression driving the trash reap job.
//   - MetricsAddr: bind address for the metrics/diagnostics HTTP listener.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	Backend        string
	RootFolderName string

	StoreBaseURL        string
	TokenEndpoint       string
	ServiceAccountEmail string
	ServiceSecret       string

	S3Endpoint  string
	S3Bucket    string
	S3Region    string
	S3AccessKey string
	S3SecretKey string

	RetryMaxRetries    int
	RetryInitialDelay  time.Duration
	RetryBackoffFactor float64
	RetryMaxDelay      time.Duration

	MaxInFlight  int
	ReapSchedule string
	MetricsAddr  string
	LogLevel     string
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.Backend = BackendDrive
	c.RootFolderName = "LingoDocs"
	c.StoreBaseURL = "http://127.0.0.1:8480"
	c.TokenEndpoint = "http://127.0.0.1:8480/oauth/token"
	c.ServiceAccountEmail = "docstore@service.local"
	c.ServiceSecret = "secretKey"
	c.S3Endpoint = "http://127.0.0.1:9000/"
	c.S3Bucket = "docstore"
	c.S3Region = "us-east-1"
	c.S3AccessKey = "admin"
	c.S3SecretKey = "secretpassword"
	c.RetryMaxRetries = 5
	c.RetryInitialDelay = 1 * time.Second
	c.RetryBackoffFactor = 2.0
	c.RetryMaxDelay = 16 * time.Second
	c.MaxInFlight = 4
	c.ReapSchedule = "0 * * * *"
	c.MetricsAddr = ":9190"
	c.LogLevel = "info"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from the environment (including an optional .env file), an optional JSON
// file and finally command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
