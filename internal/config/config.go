package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the process configuration loaded from environment variables.
type Config struct {
	// BridgeURL, together with CredentialFile, initializes the session at start-up.
	BridgeURL string
	// CredentialFile is the path of the user/password properties file.
	CredentialFile string
	// Timezone is the IANA zone zoned date/time values are rendered in.
	// Empty keeps each value's own zone.
	Timezone string
	// ConnectTimeout is handed to the database driver's dialer.
	ConnectTimeout time.Duration
	// LogFormat selects the slog handler: "json" or "text".
	LogFormat string
	// StorageType determines where to save exports: "local" or "s3".
	StorageType string
	// LocalStoragePath is the directory for local exports.
	LocalStoragePath string
	// AWSRegion is the AWS region for S3 uploads.
	AWSRegion string
	// S3Bucket is the target S3 bucket name.
	S3Bucket string
	// S3Endpoint is an optional custom endpoint (for non-AWS S3 providers like MinIO).
	S3Endpoint string
	// S3PathStyle enables path-style addressing (required for some S3 providers).
	S3PathStyle bool
	// ExportCompression enables gzip compression for exports.
	ExportCompression bool
}

func Load() *Config {
	return &Config{
		BridgeURL:         getEnv("BRIDGE_URL", ""),
		CredentialFile:    getEnv("BRIDGE_CREDENTIALS", ""),
		Timezone:          getEnv("BRIDGE_TIMEZONE", ""),
		ConnectTimeout:    getEnvDuration("DB_CONNECT_TIMEOUT", 0),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
		StorageType:       getEnv("STORAGE_TYPE", "local"),
		LocalStoragePath:  getEnv("LOCAL_STORAGE_PATH", "./exports"),
		AWSRegion:         getEnv("AWS_REGION", "us-east-1"),
		S3Bucket:          getEnv("S3_BUCKET", ""),
		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3PathStyle:       getEnvBool("S3_PATH_STYLE", false),
		ExportCompression: getEnvBool("EXPORT_COMPRESSION", false),
	}
}

// Location resolves Timezone. It returns nil when no zone is configured.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return nil, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid BRIDGE_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// AutoInitialize reports whether both the URL and the credential file are set.
func (c *Config) AutoInitialize() bool {
	return c.BridgeURL != "" && c.CredentialFile != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
