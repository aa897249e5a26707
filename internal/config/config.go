// Package config handles CLI configuration loading and validation from
// environment variables and an optional YAML profile, providing a type-safe
// configuration structure.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the fetch CLI configuration. Values come from environment
// variables, optionally overridden by a YAML profile file.
type Config struct {
	// Request defaults
	Method       string        `yaml:"method"`        // Default request method
	Timeout      time.Duration `yaml:"timeout"`       // Request and body deadline (0 = disabled)
	MaxRedirects int           `yaml:"max_redirects"` // Redirect hop limit
	MaxBodySize  int64         `yaml:"max_body_size"` // Response body cap in bytes (0 = unbounded)
	Compress     bool          `yaml:"compress"`      // Transparent response decompression
	UserAgent    string        `yaml:"user_agent"`    // Overrides the default User-Agent when set

	// Logging
	LogLevel  string `yaml:"log_level"`  // Log level (debug, info, warn, error)
	LogFormat string `yaml:"log_format"` // Log format (json, console)
	LogFile   string `yaml:"log_file"`   // Path to log file (empty for stdout)
}

// New creates a configuration with values from environment variables,
// applying defaults where variables are not set.
func New() (*Config, error) {
	config := &Config{
		Method:       getEnvString("FETCH_METHOD", "GET"),
		Timeout:      getEnvDuration("FETCH_TIMEOUT", 0),
		MaxRedirects: getEnvInt("FETCH_MAX_REDIRECTS", 20),
		MaxBodySize:  getEnvInt64("FETCH_MAX_BODY_SIZE", 0),
		Compress:     getEnvBool("FETCH_COMPRESS", true),
		UserAgent:    getEnvString("FETCH_USER_AGENT", ""),

		LogLevel:  getEnvString("LOG_LEVEL", "info"),
		LogFormat: getEnvString("LOG_FORMAT", "console"),
		LogFile:   getEnvString("LOG_FILE", ""),
	}

	if config.MaxRedirects < 0 {
		return nil, fmt.Errorf("FETCH_MAX_REDIRECTS must not be negative")
	}
	if config.MaxBodySize < 0 {
		return nil, fmt.Errorf("FETCH_MAX_BODY_SIZE must not be negative")
	}
	return config, nil
}

// LoadFromFile loads a YAML profile on top of the environment-derived
// configuration. Only keys present in the file override.
func LoadFromFile(path string) (*Config, error) {
	config, err := New()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("could not parse config file %s: %w", path, err)
	}
	if config.MaxRedirects < 0 {
		return nil, fmt.Errorf("max_redirects must not be negative in %s", path)
	}
	if config.MaxBodySize < 0 {
		return nil, fmt.Errorf("max_body_size must not be negative in %s", path)
	}
	return config, nil
}

// getEnvString retrieves a string value from an environment variable,
// falling back to the provided default value if the variable is not set.
func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvBool retrieves a boolean value from an environment variable,
// falling back to the provided default value if the variable is not set
// or cannot be parsed as a boolean.
func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		parsedValue, err := strconv.ParseBool(value)
		if err == nil {
			return parsedValue
		}
	}
	return defaultValue
}

// getEnvInt retrieves an integer value from an environment variable,
// falling back to the provided default value if the variable is not set
// or cannot be parsed as an integer.
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		parsedValue, err := strconv.Atoi(value)
		if err == nil {
			return parsedValue
		}
	}
	return defaultValue
}

// getEnvInt64 retrieves a 64-bit integer value from an environment variable,
// falling back to the provided default value if the variable is not set
// or cannot be parsed as a 64-bit integer.
func getEnvInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		parsedValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return parsedValue
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration value from an environment variable,
// falling back to the provided default value if the variable is not set
// or cannot be parsed as a duration. Bare integers are treated as
// milliseconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if parsedValue, err := time.ParseDuration(value); err == nil {
			return parsedValue
		}
		if ms, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}
