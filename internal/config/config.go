package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Addr        string
	DatabaseURL string
	AutoMigrate bool

	EnableMetrics bool
	EnableSwagger bool

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64

	TouchOnProjectUpdate bool
	TouchOnTaskDelete    bool
	CascadeProjectDelete bool
}

// LoadDotEnv loads variables from .env files into the environment without
// overriding ones already set. Missing files are ignored.
func LoadDotEnv(filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}
	for _, name := range filenames {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

func Load() *Config {
	config := &Config{
		Environment:          getEnv("ENVIRONMENT", "development"),
		Addr:                 getEnv("ADDR", ":8080"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		AutoMigrate:          getBool("AUTO_MIGRATE", true),
		EnableMetrics:        getBool("ENABLE_METRICS", false),
		EnableSwagger:        getBool("ENABLE_SWAGGER", false),
		RequestTimeout:       getDuration("REQUEST_TIMEOUT", 5*time.Second),
		ShutdownTimeout:      getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxBodyBytes:         1 << 20, // 1 MiB
		TouchOnProjectUpdate: getBool("TOUCH_ON_PROJECT_UPDATE", true),
		TouchOnTaskDelete:    getBool("TOUCH_ON_TASK_DELETE", false),
		CascadeProjectDelete: getBool("CASCADE_PROJECT_DELETE", false),
	}

	if s := os.Getenv("MAX_BODY_BYTES"); s != "" {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			config.MaxBodyBytes = n
		}
	}

	return config
}

var knownSchemes = []string{"postgres://", "postgresql://", "sqlite://", "sqlite3://", "file:"}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if !hasKnownScheme(c.DatabaseURL) {
		return fmt.Errorf("DATABASE_URL has an unsupported scheme (want one of %s)", strings.Join(knownSchemes, ", "))
	}
	if c.Addr == "" {
		return errors.New("ADDR cannot be empty")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT must be positive")
	}
	if c.MaxBodyBytes <= 0 {
		return errors.New("MAX_BODY_BYTES must be positive")
	}
	if c.IsProduction() && strings.Contains(c.DatabaseURL, ":memory:") {
		return errors.New("in-memory database is not allowed in production")
	}
	return nil
}

func LoadAndValidate() (*Config, error) {
	cfg := Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func hasKnownScheme(url string) bool {
	if url == ":memory:" {
		return true
	}
	for _, s := range knownSchemes {
		if strings.HasPrefix(url, s) {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
