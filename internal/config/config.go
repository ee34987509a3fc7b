// Package config reads formstep settings from the environment and .env
// files.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables.
const (
	EnvDB           = "FORMSTEP_DB"
	EnvHTTPAddr     = "FORMSTEP_HTTP_ADDR"
	EnvKafkaBrokers = "FORMSTEP_KAFKA_BROKERS"
	EnvKafkaTopic   = "FORMSTEP_KAFKA_TOPIC"
	EnvPublicURL    = "FORMSTEP_PUBLIC_URL"
	EnvLogLevel     = "FORMSTEP_LOG_LEVEL"
	EnvFiles        = "FORMSTEP_ENV_FILES"
)

// Defaults.
const (
	DefaultDB         = "formstep.db"
	DefaultHTTPAddr   = ":8080"
	DefaultKafkaTopic = "formstep-submissions"
	DefaultPublicURL  = "http://localhost:8080"
)

// Config holds process-wide settings.
type Config struct {
	DBPath       string
	HTTPAddr     string
	KafkaBrokers []string // empty disables the Kafka sink
	KafkaTopic   string
	PublicURL    string
	LogLevel     slog.Level
}

// KafkaEnabled reports whether submissions should be published to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads .env files, then FORMSTEP_* variables with fallbacks.
//
// Values from .env and the files listed in FORMSTEP_ENV_FILES (comma
// separated) override the process environment. Missing files are skipped.
func Load() (*Config, error) {
	loadEnvFiles()

	level, err := parseLevel(getEnv(EnvLogLevel, "info"))
	if err != nil {
		return nil, err
	}

	return &Config{
		DBPath:       getEnv(EnvDB, DefaultDB),
		HTTPAddr:     getEnv(EnvHTTPAddr, DefaultHTTPAddr),
		KafkaBrokers: splitList(os.Getenv(EnvKafkaBrokers)),
		KafkaTopic:   getEnv(EnvKafkaTopic, DefaultKafkaTopic),
		PublicURL:    strings.TrimRight(getEnv(EnvPublicURL, DefaultPublicURL), "/"),
		LogLevel:     level,
	}, nil
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func loadEnvFiles() {
	files := []string{".env"}
	files = append(files, splitList(os.Getenv(EnvFiles))...)

	seen := make(map[string]bool, len(files))
	for _, file := range files {
		if seen[file] {
			continue
		}
		seen[file] = true

		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Overload(file); err != nil {
			slog.Warn("config: failed to load env file", "file", file, "error", err)
		}
	}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("config: %s: %w", EnvLogLevel, err)
	}
	return level, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
