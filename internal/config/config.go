package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/dkessler/cratekeeper/internal/constants"
)

// Config holds all application configuration
type Config struct {
	Port          string
	DBPath        string
	DiscogsURL    string
	DiscogsToken  string
	DiscogsKey    string
	DiscogsSecret string
	LogLevel      string
	LogFormat     string
}

// Load loads configuration from environment variables with defaults.
// A .env file in the working directory is honored but never overrides
// variables already present in the environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:          getEnv("PORT", constants.DefaultPort),
		DBPath:        getEnv("DB_PATH", constants.DefaultDBPath),
		DiscogsURL:    getEnv("DISCOGS_URL", constants.DefaultDiscogsURL),
		DiscogsToken:  getEnv("DISCOGS_TOKEN", ""),
		DiscogsKey:    getEnv("DISCOGS_KEY", ""),
		DiscogsSecret: getEnv("DISCOGS_SECRET", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "text"),
	}
}

// Validate validates the configuration and returns detailed errors
func (c *Config) Validate() error {
	var errors []string

	if c.Port == "" {
		errors = append(errors, "PORT cannot be empty")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("PORT must be a valid number, got: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("PORT must be between 1 and 65535, got: %d", port))
		}
	}

	if c.DBPath == "" {
		errors = append(errors, "DB_PATH cannot be empty")
	}

	if c.DiscogsURL == "" {
		errors = append(errors, "DISCOGS_URL cannot be empty")
	} else {
		if _, err := url.Parse(c.DiscogsURL); err != nil {
			errors = append(errors, fmt.Sprintf("DISCOGS_URL is not a valid URL: %s", c.DiscogsURL))
		}
	}

	if (c.DiscogsKey == "") != (c.DiscogsSecret == "") {
		errors = append(errors, "DISCOGS_KEY and DISCOGS_SECRET must be set together")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: debug, info, warn, error, got: %s", c.LogLevel))
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.LogFormat] {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: text, json, got: %s", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
