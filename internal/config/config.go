package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database struct {
		Driver   string
		Host     string
		Port     int
		User     string
		Password string
		Name     string
		Path     string
	}

	Upload struct {
		Root         string
		PublicPrefix string
		MaxSize      int64
	}

	Download struct {
		Timeout    time.Duration
		MaxRetries int
		RetryDelay time.Duration
		UserAgent  string
	}

	Log struct {
		Level  string
		Format string
	}
}

const (
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	config := &Config{}

	// Database
	config.Database.Driver = getEnv("DB_DRIVER", DriverMySQL)
	config.Database.Host = getEnv("DB_HOST", "127.0.0.1")
	config.Database.Port = getEnvInt("DB_PORT", 3306)
	config.Database.User = getEnv("DB_USER", "root")
	config.Database.Password = getEnv("DB_PASSWORD", "")
	config.Database.Name = getEnv("DB_NAME", "softeng")
	config.Database.Path = getEnv("DB_PATH", "./data/softeng.db")

	// Upload
	config.Upload.Root = getEnv("UPLOAD_ROOT", "./uploads/images")
	config.Upload.PublicPrefix = getEnv("UPLOAD_PUBLIC_PREFIX", "/uploads/images")
	config.Upload.MaxSize = getEnvInt64("UPLOAD_MAX_SIZE", 5*1024*1024) // 5MB default

	// Download
	config.Download.Timeout = getEnvDuration("DOWNLOAD_TIMEOUT", 30*time.Second)
	config.Download.MaxRetries = getEnvInt("DOWNLOAD_MAX_RETRIES", 3)
	config.Download.RetryDelay = getEnvDuration("DOWNLOAD_RETRY_DELAY", 2*time.Second)
	config.Download.UserAgent = getEnv("DOWNLOAD_USER_AGENT", defaultUserAgent)

	// Logging
	config.Log.Level = getEnv("LOG_LEVEL", "info")
	config.Log.Format = getEnv("LOG_FORMAT", "text")

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the limits the tools rely on.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMySQL, DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Upload.Root == "" {
		return errors.New("upload root must not be empty")
	}
	if c.Upload.MaxSize <= 0 {
		return fmt.Errorf("upload max size must be positive, got %d", c.Upload.MaxSize)
	}
	if c.Download.Timeout <= 0 {
		return fmt.Errorf("download timeout must be positive, got %s", c.Download.Timeout)
	}
	if c.Download.MaxRetries < 1 {
		return fmt.Errorf("download max retries must be at least 1, got %d", c.Download.MaxRetries)
	}
	if c.Download.RetryDelay <= 0 {
		return fmt.Errorf("download retry delay must be positive, got %s", c.Download.RetryDelay)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go duration strings ("30s") or plain seconds ("30").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
