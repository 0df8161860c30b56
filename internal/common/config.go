package common

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	LLM      LLMConfig
	Blob     BlobConfig
	Import   ImportConfig
	Log      LogConfig
}

// DatabaseConfig holds database-related configuration. An empty DSN selects SQLite.
type DatabaseConfig struct {
	DSN             string
	SQLitePath      string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// ServerConfig holds catalogd listener addresses
type ServerConfig struct {
	MetricsAddr string
	GRPCAddr    string
}

// LLMConfig holds column-inference configuration
type LLMConfig struct {
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
}

// BlobConfig selects and configures the image store
type BlobConfig struct {
	Driver          string // s3 or dir
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PublicURL       string
	Dir             string
}

// ImportConfig tunes the pipeline and the import queue
type ImportConfig struct {
	MappingStrategy string
	InferTimeout    time.Duration
	ImageKeyPrefix  string
	ImageColumn     int
	NearbyImages    bool
	VerifyImages    bool
	WatchDir        string
	Workers         int
	QueueSize       int
	Timeout         time.Duration
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", ""),
			SQLitePath:      getEnv("DB_SQLITE_PATH", "file:catalog.db"),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
			GRPCAddr:    getEnv("GRPC_ADDR", ":8081"),
		},
		LLM: LLMConfig{
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Temperature: getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 45*time.Second),
		},
		Blob: BlobConfig{
			Driver:          strings.ToLower(getEnv("BLOB_DRIVER", "dir")),
			Bucket:          getEnv("S3_BUCKET", ""),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			PublicURL:       getEnv("BLOB_PUBLIC_URL", ""),
			Dir:             getEnv("BLOB_DIR", "./tmp/images"),
		},
		Import: ImportConfig{
			MappingStrategy: strings.ToLower(getEnv("MAPPING_STRATEGY", "auto")),
			InferTimeout:    getEnvAsDuration("INFER_TIMEOUT", 20*time.Second),
			ImageKeyPrefix:  getEnv("IMAGE_KEY_PREFIX", "catalog"),
			ImageColumn:     getEnvAsInt("IMAGE_COLUMN", 0),
			NearbyImages:    getEnvAsBool("IMAGE_NEARBY", false),
			VerifyImages:    getEnvAsBool("IMAGE_VERIFY", false),
			WatchDir:        getEnv("WATCH_DIR", ""),
			Workers:         getEnvAsInt("IMPORT_WORKERS", 2),
			QueueSize:       getEnvAsInt("IMPORT_QUEUE_SIZE", 64),
			Timeout:         getEnvAsDuration("IMPORT_TIMEOUT", 10*time.Minute),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
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

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
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

var mappingStrategies = map[string]struct{}{"auto": {}, "fixed": {}, "heuristic": {}, "inferred": {}}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var problems []string
	if c.Database.DSN == "" && c.Database.SQLitePath == "" {
		problems = append(problems, "DB_URL or DB_SQLITE_PATH is required")
	}
	switch c.Blob.Driver {
	case "s3":
		if c.Blob.Bucket == "" {
			problems = append(problems, "S3_BUCKET is required when BLOB_DRIVER=s3")
		}
	case "dir":
		if c.Blob.Dir == "" {
			problems = append(problems, "BLOB_DIR is required when BLOB_DRIVER=dir")
		}
	default:
		problems = append(problems, "BLOB_DRIVER must be s3 or dir")
	}
	if _, ok := mappingStrategies[c.Import.MappingStrategy]; !ok {
		problems = append(problems, "MAPPING_STRATEGY must be auto, fixed, heuristic or inferred")
	}
	if c.Import.MappingStrategy == "inferred" && c.LLM.APIKey == "" {
		problems = append(problems, "OPENAI_API_KEY is required when MAPPING_STRATEGY=inferred")
	}
	if c.Import.ImageColumn < 0 {
		problems = append(problems, "IMAGE_COLUMN must not be negative")
	}
	if c.Import.Workers < 1 {
		problems = append(problems, "IMPORT_WORKERS must be at least 1")
	}
	if len(problems) == 0 {
		return nil
	}
	return NewAppError(CodeConfig, strings.Join(problems, "; "), ErrInvalidInput)
}

// InferenceEnabled reports whether column inference can be attempted.
func (c *Config) InferenceEnabled() bool {
	return c.LLM.APIKey != "" && c.Import.MappingStrategy != "fixed" && c.Import.MappingStrategy != "heuristic"
}

// IsConfigError reports whether err came from Validate.
func IsConfigError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == CodeConfig
}
