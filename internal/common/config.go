package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Index    IndexConfig
	Detector DetectorConfig
	Queue    QueueConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr            string
	BaseURL         string
	ShutdownTimeout time.Duration
}

// StorageConfig holds blob storage configuration
type StorageConfig struct {
	Backend       string // "s3" or "local"
	Bucket        string
	Prefix        string
	LocalDir      string
	SigningSecret string
	PresignTTL    time.Duration
}

// IndexConfig holds job lookup index configuration
type IndexConfig struct {
	Driver string // "sqlite" or "postgres"
	Path   string
	DSN    string
}

// DetectorConfig holds inference service configuration
type DetectorConfig struct {
	Endpoint     string
	ModelVersion string
	MaxAttempts  int
	BaseDelay    time.Duration
	Timeout      time.Duration
}

// QueueConfig holds async detect-run configuration
type QueueConfig struct {
	Workers        int
	Size           int
	ProcessTimeout time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            getEnv("HTTP_ADDR", ":8080"),
			BaseURL:         getEnv("BASE_URL", "http://localhost:8080"),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Storage: StorageConfig{
			Backend:       getEnv("STORAGE_BACKEND", "local"),
			Bucket:        getEnv("STORAGE_BUCKET", ""),
			Prefix:        getEnv("STORAGE_PREFIX", ""),
			LocalDir:      getEnv("STORAGE_DIR", "./data/blobs"),
			SigningSecret: getEnv("UPLOAD_SIGNING_SECRET", ""),
			PresignTTL:    getEnvAsDuration("PRESIGN_TTL", 5*time.Minute),
		},
		Index: IndexConfig{
			Driver: getEnv("INDEX_DRIVER", "sqlite"),
			Path:   getEnv("INDEX_PATH", "./data/index.db"),
			DSN:    getEnv("DATABASE_URL", ""),
		},
		Detector: DetectorConfig{
			Endpoint:     getEnv("DETECTOR_ENDPOINT", ""),
			ModelVersion: getEnv("MODEL_VERSION", "1.0.0"),
			MaxAttempts:  getEnvAsInt("DETECTOR_MAX_ATTEMPTS", 3),
			BaseDelay:    getEnvAsDuration("DETECTOR_BASE_DELAY", time.Second),
			Timeout:      getEnvAsDuration("DETECTOR_TIMEOUT", 30*time.Second),
		},
		Queue: QueueConfig{
			Workers:        getEnvAsInt("QUEUE_WORKERS", 2),
			Size:           getEnvAsInt("QUEUE_SIZE", 16),
			ProcessTimeout: getEnvAsDuration("PROCESS_TIMEOUT", 5*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "s3":
		if c.Storage.Bucket == "" {
			return NewAppError("CONFIG_ERROR", "STORAGE_BUCKET is required for the s3 backend", ErrInvalidInput)
		}
	case "local":
		if c.Storage.SigningSecret == "" {
			return NewAppError("CONFIG_ERROR", "UPLOAD_SIGNING_SECRET is required for the local backend", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", "STORAGE_BACKEND must be s3 or local", ErrInvalidInput)
	}

	switch c.Index.Driver {
	case "sqlite":
		if c.Index.Path == "" {
			return NewAppError("CONFIG_ERROR", "INDEX_PATH is required for the sqlite driver", ErrInvalidInput)
		}
	case "postgres":
		if c.Index.DSN == "" {
			return NewAppError("CONFIG_ERROR", "DATABASE_URL is required for the postgres driver", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", "INDEX_DRIVER must be sqlite or postgres", ErrInvalidInput)
	}

	if c.Detector.Endpoint == "" {
		return NewAppError("CONFIG_ERROR", "DETECTOR_ENDPOINT is required", ErrInvalidInput)
	}
	if c.Detector.MaxAttempts < 1 {
		return NewAppError("CONFIG_ERROR", "DETECTOR_MAX_ATTEMPTS must be at least 1", ErrInvalidInput)
	}
	return nil
}
