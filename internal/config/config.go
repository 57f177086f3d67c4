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

	"github.com/bakesight/bakesight-server/internal/validation"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Data     DataConfig
	Server   ServerConfig
	Import   ImportConfig
	Forecast ForecastConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `validate:"required,oneof=development staging production"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds data storage configuration.
type DataConfig struct {
	// BasePath is the directory holding the SQLite database and the
	// search index.
	BasePath string
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Name         string
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
}

// ImportConfig holds sales export ingestion configuration.
type ImportConfig struct {
	// InboxPath is a directory watched for dropped export files.
	// Empty disables the watcher; uploads via the API always work.
	InboxPath string
	// UploadsPerMinute rate-limits import uploads per client.
	UploadsPerMinute int
	// CanonRulesPath points at a rules file mapping raw-name patterns to
	// canonical item names, consulted before fuzzy matching. Optional.
	CanonRulesPath string
}

// ForecastConfig holds the forecasting tunables. Defaults come from
// several seasons of production use at the pilot bakery; override with
// care.
type ForecastConfig struct {
	// Decay is the per-week weight decay for the weekday baseline.
	Decay float64 `validate:"gt=0,lte=1"`
	// Window is how many recent same-weekday instances feed the baseline.
	Window int `validate:"gte=1"`
	// MinWeekdaySamples is the minimum same-weekday instances before the
	// baseline falls back to the item-wide mean.
	MinWeekdaySamples int
	// Alpha is the default blend weight given to the model prediction.
	Alpha float64 `validate:"gte=0,lte=1"`
	// MinBatch floors every positive forecast at the smallest batch a
	// bake makes sense for.
	MinBatch int `validate:"gte=0"`
	// AlertThreshold flags forecasts further than this many standard
	// deviations from the trailing same-weekday mean.
	AlertThreshold float64
	// CoefTemp and CoefRain scale the weather adjustment per 10 units
	// of deviation from the neutral anchors.
	CoefTemp float64
	CoefRain float64
	// ClampMin and ClampMax bound the composed adjustment multiplier.
	ClampMin float64 `validate:"gt=0"`
	ClampMax float64 `validate:"gtefield=ClampMin"`
	// LookbackWeeks bounds how much history feeds baselines and training.
	LookbackWeeks int
	// MinTrainSamples gates per-item model training.
	MinTrainSamples int
	// CVErrorCeiling marks models above this MAPE as low-confidence.
	CVErrorCeiling float64
	// FuzzyThreshold and FuzzyMargin control alias resolution: a fuzzy
	// match must score at least FuzzyThreshold, and beat the runner-up
	// by more than FuzzyMargin to be accepted automatically.
	FuzzyThreshold float64 `validate:"gte=0,lte=1"`
	FuzzyMargin    float64
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	// Define command-line flags.
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := flag.String("data-path", "", "Base path for data storage")
	serverName := flag.String("server-name", "", "Name for the server")

	// Server flags
	serverPort := flag.String("port", "", "Server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	// Import flags
	importInbox := flag.String("import-inbox", "", "Directory watched for dropped export files")
	canonRules := flag.String("canon-rules", "", "Path to item canonicalization rules file")

	// Forecast flags
	decay := flag.String("decay", "", "Baseline recency decay per week (default: 0.5)")
	alpha := flag.String("alpha", "", "Model blend weight (default: 0.3)")
	minBatch := flag.String("min-batch", "", "Minimum production batch size (default: 6)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	// Parse flags but don't exit on error - we want to handle it gracefully.
	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	// Build config with proper precedence.
	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},

		Server: ServerConfig{
			Name: getConfigValue(*serverName, "SERVER_NAME", "BakeSight Server"),
			Port: getConfigValue(*serverPort, "SERVER_PORT", "8080"),
		},

		Import: ImportConfig{
			InboxPath:        getConfigValue(*importInbox, "IMPORT_INBOX", ""),
			UploadsPerMinute: getIntConfigValue("", "IMPORT_UPLOADS_PER_MINUTE", 10),
			CanonRulesPath:   getConfigValue(*canonRules, "IMPORT_CANON_RULES", ""),
		},

		Forecast: ForecastConfig{
			Decay:             getFloatConfigValue(*decay, "FORECAST_DECAY", 0.5),
			Window:            getIntConfigValue("", "FORECAST_WINDOW", 8),
			MinWeekdaySamples: getIntConfigValue("", "FORECAST_MIN_WEEKDAY_SAMPLES", 2),
			Alpha:             getFloatConfigValue(*alpha, "FORECAST_ALPHA", 0.3),
			MinBatch:          getIntConfigValue(*minBatch, "FORECAST_MIN_BATCH", 6),
			AlertThreshold:    getFloatConfigValue("", "FORECAST_ALERT_THRESHOLD", 1.5),
			CoefTemp:          getFloatConfigValue("", "FORECAST_COEF_TEMP", 0.15),
			CoefRain:          getFloatConfigValue("", "FORECAST_COEF_RAIN", 0.10),
			ClampMin:          getFloatConfigValue("", "FORECAST_CLAMP_MIN", 0.5),
			ClampMax:          getFloatConfigValue("", "FORECAST_CLAMP_MAX", 1.5),
			LookbackWeeks:     getIntConfigValue("", "FORECAST_LOOKBACK_WEEKS", 26),
			MinTrainSamples:   getIntConfigValue("", "FORECAST_MIN_TRAIN_SAMPLES", 20),
			CVErrorCeiling:    getFloatConfigValue("", "FORECAST_CV_ERROR_CEILING", 0.6),
			FuzzyThreshold:    getFloatConfigValue("", "RESOLVER_FUZZY_THRESHOLD", 0.82),
			FuzzyMargin:       getFloatConfigValue("", "RESOLVER_FUZZY_MARGIN", 0.05),
		},
	}

	// Parse server timeouts.
	readTimeoutStr := getConfigValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s")
	readTimeoutDuration, err := time.ParseDuration(readTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid read timeout %q: %w", readTimeoutStr, err)
	}
	cfg.Server.ReadTimeout = readTimeoutDuration

	writeTimeoutStr := getConfigValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s")
	writeTimeoutDuration, err := time.ParseDuration(writeTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid write timeout %q: %w", writeTimeoutStr, err)
	}
	cfg.Server.WriteTimeout = writeTimeoutDuration

	idleTimeoutStr := getConfigValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s")
	idleTimeoutDuration, err := time.ParseDuration(idleTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid idle timeout %q: %w", idleTimeoutStr, err)
	}
	cfg.Server.IdleTimeout = idleTimeoutDuration

	// Expand and validate paths.
	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}
	if err := cfg.expandInboxPath(); err != nil {
		return nil, fmt.Errorf("invalid import inbox path: %w", err)
	}
	if err := cfg.expandCanonRulesPath(); err != nil {
		return nil, fmt.Errorf("invalid canon rules path: %w", err)
	}

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks the struct tags across the whole config tree.
var validate = validation.New()

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if err := validate.Validate(c); err != nil {
		return err
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

	if c.Data.BasePath == "" {
		return errors.New("data base path cannot be empty after expansion")
	}

	return nil
}

// Validate checks the forecasting tunables are internally consistent.
func (f *ForecastConfig) Validate() error {
	return validate.Validate(f)
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

// expandDataPath expands ~ and makes the path absolute.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "BakeSight", "data")

	expanded, err := expandPath(c.Data.BasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Data.BasePath = expanded
	return nil
}

// expandInboxPath expands ~ and makes the path absolute.
// If empty, leaves it empty: the drop-folder watcher stays disabled.
func (c *Config) expandInboxPath() error {
	if c.Import.InboxPath == "" {
		return nil
	}

	expanded, err := expandPath(c.Import.InboxPath, "")
	if err != nil {
		return err
	}
	c.Import.InboxPath = expanded
	return nil
}

// expandCanonRulesPath expands ~ and makes the path absolute.
// If empty, no rules file is loaded.
func (c *Config) expandCanonRulesPath() error {
	if c.Import.CanonRulesPath == "" {
		return nil
	}

	expanded, err := expandPath(c.Import.CanonRulesPath, "")
	if err != nil {
		return err
	}
	c.Import.CanonRulesPath = expanded
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

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float64 from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result float64
	if _, err := fmt.Sscanf(strValue, "%g", &result); err != nil {
		return defaultValue
	}
	return result
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
