// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ynoir/obit-microscopy-core-technology/internal/domain"
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Store   StoreConfig
	Dropbox DropboxConfig
	Server  ServerConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
	File  string // Optional: also write JSON logs to this file
}

// StoreConfig holds repository storage configuration.
type StoreConfig struct {
	// Path holds the badger database (Path/db) and the managed storage
	// that registered files are moved into (Path/storage).
	Path string
}

// DropboxConfig holds dropbox configuration.
type DropboxConfig struct {
	Path           string        // Watched dropbox root
	Incoming       string        // Register this folder once and exit
	DryRun         bool          // Validate without persisting or moving files
	MarkerPrefix   string        // Marker file prefix (default: .MARKER_is_finished_)
	SettleDelay    time.Duration // Time a marker must stay unchanged (default: 1s)
	ExperimentType string        // Experiment type code for new experiments
	SampleType     string        // Sample type code for new samples
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Enabled        bool          // Serve the inspection API (default: true)
	Port           string        // Server port (default: 8080)
	ReadTimeout    time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout   time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout    time.Duration // HTTP idle timeout (default: 60s)
	AllowedOrigins []string      // CORS origins; empty disables CORS
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig(args []string) (*Config, error) {
	fs := flag.NewFlagSet("dropbox", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	logFile := fs.String("log-file", "", "Also write JSON logs to this file")
	storePath := fs.String("store-path", "", "Path for the database and managed storage")

	// Dropbox flags
	dropboxPath := fs.String("dropbox-path", "", "Dropbox root to watch for markers")
	incoming := fs.String("incoming", "", "Register this incoming folder once and exit")
	dryRun := fs.String("dry-run", "", "Validate registrations without persisting (default: false)")
	markerPrefix := fs.String("marker-prefix", "", "Marker file prefix (default: .MARKER_is_finished_)")
	settleDelay := fs.String("settle-delay", "", "Time a marker must stay unchanged (default: 1s)")
	experimentType := fs.String("experiment-type", "", "Experiment type code (default: MICROSCOPY_EXPERIMENT)")
	sampleType := fs.String("sample-type", "", "Sample type code (default: MICROSCOPY_SAMPLE_TYPE)")

	// Server flags
	serverEnabled := fs.String("server-enabled", "", "Serve the inspection API (default: true)")
	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	allowedOrigins := fs.String("cors-allowed-origins", "", "Comma-separated CORS origins")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	// Build config with proper precedence.
	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
			File:  getConfigValue(*logFile, "LOG_FILE", ""),
		},
		Store: StoreConfig{
			Path: getConfigValue(*storePath, "STORE_PATH", ""),
		},
		Dropbox: DropboxConfig{
			Path:           getConfigValue(*dropboxPath, "DROPBOX_PATH", ""),
			Incoming:       getConfigValue(*incoming, "INCOMING_PATH", ""),
			DryRun:         getBoolConfigValue(*dryRun, "DRY_RUN", false),
			MarkerPrefix:   getConfigValue(*markerPrefix, "MARKER_PREFIX", ".MARKER_is_finished_"),
			ExperimentType: getConfigValue(*experimentType, "EXPERIMENT_TYPE", domain.ExperimentTypeMicroscopy),
			SampleType:     getConfigValue(*sampleType, "SAMPLE_TYPE", domain.SampleTypeMicroscopy),
		},
		Server: ServerConfig{
			Enabled:        getBoolConfigValue(*serverEnabled, "SERVER_ENABLED", true),
			Port:           getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			AllowedOrigins: splitList(getConfigValue(*allowedOrigins, "CORS_ALLOWED_ORIGINS", "")),
		},
	}

	durations := []struct {
		name   string
		value  string
		target *time.Duration
	}{
		{"settle delay", getConfigValue(*settleDelay, "SETTLE_DELAY", "1s"), &cfg.Dropbox.SettleDelay},
		{"read timeout", getConfigValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s"), &cfg.Server.ReadTimeout},
		{"write timeout", getConfigValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"), &cfg.Server.WriteTimeout},
		{"idle timeout", getConfigValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"), &cfg.Server.IdleTimeout},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.name, d.value, err)
		}
		*d.target = parsed
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// OneShot reports whether a single incoming folder is registered instead of
// watching the dropbox.
func (c *Config) OneShot() bool {
	return c.Dropbox.Incoming != ""
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Store.Path == "" {
		return errors.New("store path cannot be empty after expansion")
	}

	if c.Dropbox.Path == "" && c.Dropbox.Incoming == "" {
		return errors.New("DROPBOX_PATH or INCOMING_PATH is required")
	}

	if c.Dropbox.MarkerPrefix == "" {
		return errors.New("MARKER_PREFIX cannot be empty")
	}

	if c.Dropbox.ExperimentType == "" || c.Dropbox.SampleType == "" {
		return errors.New("EXPERIMENT_TYPE and SAMPLE_TYPE cannot be empty")
	}

	if c.Server.Enabled && c.Server.Port == "" {
		return errors.New("SERVER_PORT is required when the server is enabled")
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandPaths expands the store, dropbox, incoming and log paths. The store
// defaults to ~/ObitDropbox/store; the others may stay empty.
func (c *Config) expandPaths() error {
	defaultStore := ""
	if c.Store.Path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		defaultStore = filepath.Join(homeDir, "ObitDropbox", "store")
	}

	targets := []struct {
		path        *string
		defaultPath string
	}{
		{&c.Store.Path, defaultStore},
		{&c.Dropbox.Path, ""},
		{&c.Dropbox.Incoming, ""},
		{&c.Logger.File, ""},
	}
	for _, t := range targets {
		expanded, err := expandPath(*t.path, t.defaultPath)
		if err != nil {
			return err
		}
		*t.path = expanded
	}
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// splitList splits a comma-separated value, dropping empty entries.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present.
		value = strings.Trim(value, `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
