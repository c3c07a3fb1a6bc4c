package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/lingodocs/docstore/internal/flagx"
	"github.com/lingodocs/docstore/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "1s" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. After unmarshalling, its fields are copied into the
// runtime Config struct which uses time.Duration.
type JsonConfig struct {
	Backend        string `json:"backend"`
	RootFolderName string `json:"root_folder_name"`

	StoreBaseURL        string `json:"store_base_url"`
	TokenEndpoint       string `json:"token_endpoint"`
	ServiceAccountEmail string `json:"service_account_email"`
	ServiceSecret       string `json:"service_secret"`

	S3Endpoint  string `json:"s3_endpoint"`
	S3Bucket    string `json:"s3_bucket"`
	S3Region    string `json:"s3_region"`
	S3AccessKey string `json:"s3_access_key"`
	S3SecretKey string `json:"s3_secret_key"`

	RetryMaxRetries    int            `json:"retry_max_retries"`
	RetryInitialDelay  timex.Duration `json:"retry_initial_delay"`
	RetryBackoffFactor float64        `json:"retry_backoff_factor"`
	RetryMaxDelay      timex.Duration `json:"retry_max_delay"`

	MaxInFlight  int    `json:"max_in_flight"`
	ReapSchedule string `json:"reap_schedule"`
	MetricsAddr  string `json:"metrics_addr"`
	LogLevel     string `json:"log_level"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The JSON file path is taken from the -c or -config command-line flags.
// If neither is set, no JSON file is loaded. If the file cannot be read or
// contains invalid JSON, the function panics: a broken config file is a
// startup-stopping condition.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	if c.Backend != "" {
		config.Backend = c.Backend
	}
	if c.RootFolderName != "" {
		config.RootFolderName = c.RootFolderName
	}
	if c.StoreBaseURL != "" {
		config.StoreBaseURL = c.StoreBaseURL
	}
	if c.TokenEndpoint != "" {
		config.TokenEndpoint = c.TokenEndpoint
	}
	if c.ServiceAccountEmail != "" {
		config.ServiceAccountEmail = c.ServiceAccountEmail
	}
	if c.ServiceSecret != "" {
		config.ServiceSecret = c.ServiceSecret
	}
	if c.S3Endpoint != "" {
		config.S3Endpoint = c.S3Endpoint
	}
	if c.S3Bucket != "" {
		config.S3Bucket = c.S3Bucket
	}
	if c.S3Region != "" {
		config.S3Region = c.S3Region
	}
	if c.S3AccessKey != "" {
		config.S3AccessKey = c.S3AccessKey
	}
	if c.S3SecretKey != "" {
		config.S3SecretKey = c.S3SecretKey
	}
	if c.RetryMaxRetries != 0 {
		config.RetryMaxRetries = c.RetryMaxRetries
	}
	if c.RetryInitialDelay.Duration != 0 {
		config.RetryInitialDelay = time.Duration(c.RetryInitialDelay.Duration)
	}
	if c.RetryBackoffFactor != 0 {
		config.RetryBackoffFactor = c.RetryBackoffFactor
	}
	if c.RetryMaxDelay.Duration != 0 {
		config.RetryMaxDelay = time.Duration(c.RetryMaxDelay.Duration)
	}
	if c.MaxInFlight != 0 {
		config.MaxInFlight = c.MaxInFlight
	}
	if c.ReapSchedule != "" {
		config.ReapSchedule = c.ReapSchedule
	}
	if c.MetricsAddr != "" {
		config.MetricsAddr = c.MetricsAddr
	}
	if c.LogLevel != "" {
		config.LogLevel = c.LogLevel
	}
}
