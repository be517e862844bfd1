// Package config handles configuration loading and management
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	GodboltURL   string
	APITimeout   time.Duration
	BuildTimeout time.Duration
	RunTimeout   time.Duration
	RequestDelay time.Duration
	ResultsDir   string
	Language     string
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// It's okay if the file doesn't exist
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := &Config{
		GodboltURL: getEnv("GODBOLT_URL", "https://godbolt.org/api/compiler"),
		ResultsDir: getEnv("RESULTS_DIR", "results"),
		Language:   getEnv("LANGUAGE", "c"),
	}

	apiTimeout, err := strconv.Atoi(getEnv("GODBOLT_TIMEOUT", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid GODBOLT_TIMEOUT: %w", err)
	}
	cfg.APITimeout = time.Duration(apiTimeout) * time.Second

	buildTimeout, err := strconv.Atoi(getEnv("LOCAL_BUILD_TIMEOUT", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOCAL_BUILD_TIMEOUT: %w", err)
	}
	cfg.BuildTimeout = time.Duration(buildTimeout) * time.Second

	runTimeout, err := strconv.Atoi(getEnv("LOCAL_RUN_TIMEOUT", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOCAL_RUN_TIMEOUT: %w", err)
	}
	cfg.RunTimeout = time.Duration(runTimeout) * time.Second

	// Delay between remote calls, in seconds (fractional values allowed)
	delay, err := strconv.ParseFloat(getEnv("REQUEST_DELAY", "0.5"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid REQUEST_DELAY: %w", err)
	}
	cfg.RequestDelay = time.Duration(delay * float64(time.Second))

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) String() string {
	return fmt.Sprintf(`Current Configuration:
======================
Godbolt API URL:       %s
API Timeout:           %s
Local Build Timeout:   %s
Local Run Timeout:     %s
Request Delay:         %s
Results Directory:     %s
Language:              %s`,
		c.GodboltURL,
		c.APITimeout,
		c.BuildTimeout,
		c.RunTimeout,
		c.RequestDelay,
		c.ResultsDir,
		c.Language,
	)
}
