package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validForecast returns forecasting tunables that pass validation.
func validForecast() ForecastConfig {
	return ForecastConfig{
		Decay:             0.5,
		Window:            8,
		MinWeekdaySamples: 2,
		Alpha:             0.3,
		MinBatch:          6,
		AlertThreshold:    1.5,
		CoefTemp:          0.15,
		CoefRain:          0.10,
		ClampMin:          0.5,
		ClampMax:          1.5,
		LookbackWeeks:     26,
		MinTrainSamples:   20,
		CVErrorCeiling:    0.6,
		FuzzyThreshold:    0.82,
		FuzzyMargin:       0.05,
	}
}

func validConfig() *Config {
	return &Config{
		App:      AppConfig{Environment: "development"},
		Logger:   LoggerConfig{Level: "info"},
		Data:     DataConfig{BasePath: "/some/path"},
		Forecast: validForecast(),
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_AllLogLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"DEBUG", true},  // case insensitive
		{"trace", false}, // not supported
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logger.Level = tt.level

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_EmptyDataPath(t *testing.T) {
	cfg := validConfig()
	cfg.Data.BasePath = ""

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "data base path cannot be empty")
}

func TestForecastConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ForecastConfig)
		valid  bool
	}{
		{"defaults", func(*ForecastConfig) {}, true},
		{"decay zero", func(f *ForecastConfig) { f.Decay = 0 }, false},
		{"decay above one", func(f *ForecastConfig) { f.Decay = 1.1 }, false},
		{"window zero", func(f *ForecastConfig) { f.Window = 0 }, false},
		{"alpha negative", func(f *ForecastConfig) { f.Alpha = -0.1 }, false},
		{"alpha one", func(f *ForecastConfig) { f.Alpha = 1 }, true},
		{"negative min batch", func(f *ForecastConfig) { f.MinBatch = -1 }, false},
		{"inverted clamp", func(f *ForecastConfig) { f.ClampMin = 2; f.ClampMax = 1 }, false},
		{"fuzzy threshold above one", func(f *ForecastConfig) { f.FuzzyThreshold = 1.2 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validForecast()
			tt.mutate(&f)

			err := f.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestExpandDataPath_EmptyUsesDefault(t *testing.T) {
	cfg := &Config{}

	err := cfg.expandDataPath()
	require.NoError(t, err)

	homeDir, _ := os.UserHomeDir() //nolint:errcheck // Test setup
	expected := filepath.Join(homeDir, "BakeSight", "data")
	assert.Equal(t, expected, cfg.Data.BasePath)
}

func TestExpandDataPath_TildeExpansion(t *testing.T) {
	cfg := &Config{Data: DataConfig{BasePath: "~/my-data"}}

	err := cfg.expandDataPath()
	require.NoError(t, err)

	homeDir, _ := os.UserHomeDir() //nolint:errcheck // Test setup
	assert.Equal(t, filepath.Join(homeDir, "my-data"), cfg.Data.BasePath)
}

func TestExpandDataPath_AbsolutePath(t *testing.T) {
	cfg := &Config{Data: DataConfig{BasePath: "/absolute/path/to/data"}}

	err := cfg.expandDataPath()
	require.NoError(t, err)

	assert.Equal(t, "/absolute/path/to/data", cfg.Data.BasePath)
}

func TestExpandInboxPath_EmptyStaysEmpty(t *testing.T) {
	cfg := &Config{}

	err := cfg.expandInboxPath()
	require.NoError(t, err)

	assert.Empty(t, cfg.Import.InboxPath)
}

func TestGetConfigValue_Precedence(t *testing.T) {
	// Test flag value takes priority.
	result := getConfigValue("flag-value", "ENV_KEY", "default-value")
	assert.Equal(t, "flag-value", result)

	// Test env var when flag is empty.
	os.Setenv("TEST_ENV_KEY", "env-value") //nolint:errcheck // Test setup
	defer os.Unsetenv("TEST_ENV_KEY")      //nolint:errcheck // Test cleanup

	result = getConfigValue("", "TEST_ENV_KEY", "env-value")
	assert.Equal(t, "env-value", result)

	// Test default when both are empty.
	result = getConfigValue("", "NONEXISTENT_KEY", "default-value")
	assert.Equal(t, "default-value", result)
}

func TestGetFloatConfigValue(t *testing.T) {
	os.Setenv("TEST_FLOAT_KEY", "0.75") //nolint:errcheck // Test setup
	defer os.Unsetenv("TEST_FLOAT_KEY") //nolint:errcheck // Test cleanup

	assert.Equal(t, 0.75, getFloatConfigValue("", "TEST_FLOAT_KEY", 0.5))
	assert.Equal(t, 0.5, getFloatConfigValue("", "NONEXISTENT_KEY", 0.5))

	os.Setenv("TEST_FLOAT_BAD", "not-a-number") //nolint:errcheck // Test setup
	defer os.Unsetenv("TEST_FLOAT_BAD")         //nolint:errcheck // Test cleanup
	assert.Equal(t, 0.5, getFloatConfigValue("", "TEST_FLOAT_BAD", 0.5))
}

func TestLoadEnvFile_ValidFile(t *testing.T) {
	// Create temp .env file.
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	content := `# Test env file
ENV=staging
LOG_LEVEL=debug
DATA_PATH=/test/path
# Comment line
QUOTED_VALUE="some value"
SINGLE_QUOTED='another value'
`
	err := os.WriteFile(envFile, []byte(content), 0o644)
	require.NoError(t, err)

	// Clear any existing env vars.
	keys := []string{"ENV", "LOG_LEVEL", "DATA_PATH", "QUOTED_VALUE", "SINGLE_QUOTED"}
	for _, k := range keys {
		os.Unsetenv(k) //nolint:errcheck // Test cleanup
	}
	defer func() {
		for _, k := range keys {
			os.Unsetenv(k) //nolint:errcheck // Test cleanup
		}
	}()

	// Load the file.
	err = loadEnvFile(envFile)
	require.NoError(t, err)

	// Verify values were loaded.
	assert.Equal(t, "staging", os.Getenv("ENV"))
	assert.Equal(t, "debug", os.Getenv("LOG_LEVEL"))
	assert.Equal(t, "/test/path", os.Getenv("DATA_PATH"))
	assert.Equal(t, "some value", os.Getenv("QUOTED_VALUE"))
	assert.Equal(t, "another value", os.Getenv("SINGLE_QUOTED"))
}

func TestLoadEnvFile_InvalidFormat(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	content := `VALID_KEY=valid_value
INVALID LINE WITHOUT EQUALS
ANOTHER_VALID=value
`
	err := os.WriteFile(envFile, []byte(content), 0o644)
	require.NoError(t, err)

	err = loadEnvFile(envFile)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestLoadEnvFile_NonExistentFile(t *testing.T) {
	err := loadEnvFile("/nonexistent/file/.env")
	assert.Error(t, err)
}

func TestLoadEnvFile_ExistingEnvVarsNotOverwritten(t *testing.T) {
	// Set env var first.
	os.Setenv("TEST_VAR", "original-value") //nolint:errcheck // Test setup
	defer os.Unsetenv("TEST_VAR")           //nolint:errcheck // Test cleanup

	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	err := os.WriteFile(envFile, []byte(`TEST_VAR=new-value`), 0o644)
	require.NoError(t, err)

	err = loadEnvFile(envFile)
	require.NoError(t, err)

	// Original value should be preserved.
	assert.Equal(t, "original-value", os.Getenv("TEST_VAR"))
}

func TestLoadEnvFile_Whitespace(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	content := `  KEY_WITH_SPACES  =  value with spaces  `
	err := os.WriteFile(envFile, []byte(content), 0o644)
	require.NoError(t, err)

	os.Unsetenv("KEY_WITH_SPACES")       //nolint:errcheck // Test cleanup
	defer os.Unsetenv("KEY_WITH_SPACES") //nolint:errcheck // Test cleanup

	err = loadEnvFile(envFile)
	require.NoError(t, err)

	// Whitespace should be trimmed.
	assert.Equal(t, "value with spaces", os.Getenv("KEY_WITH_SPACES"))
}
