// internal/config/config.go
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the settings of the library server.
type Config struct {
	LibraryName        string
	HTTPAddr           string
	SeedFile           string
	OTLPEndpoint       string
	ServiceName        string
	LoginRatePerMinute int
	LoginBurst         int
	LogLevel           slog.Level
}

// Load reads an optional .env file, then the environment.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}

	rate, err := intEnv("LOGIN_RATE_PER_MINUTE", 5)
	if err != nil {
		return nil, err
	}
	burst, err := intEnv("LOGIN_BURST", 5)
	if err != nil {
		return nil, err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	return &Config{
		LibraryName:        getEnv("LIBRARY_NAME", "My Library"),
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		SeedFile:           getEnv("SEED_FILE", ""),
		OTLPEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:        getEnv("OTEL_SERVICE_NAME", "librarium"),
		LoginRatePerMinute: rate,
		LoginBurst:         burst,
		LogLevel:           level,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && strings.TrimSpace(value) != "" {
		return value
	}
	return defaultValue
}

func intEnv(key string, defaultValue int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", key, v)
	}
	return n, nil
}
