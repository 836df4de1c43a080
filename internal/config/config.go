package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gradtrends/internal/derive"
	"gradtrends/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Data     DataConfig
	Filter   FilterConfig
	Database DatabaseConfig
	Server   ServerConfig
}

// DataConfig holds input and output locations
type DataConfig struct {
	Dir         string
	SourcesFile string // YAML source catalogue; empty means the built-in one
	OutputFile  string
}

// FilterConfig holds the thresholds the analysis views and derived metrics use
type FilterConfig struct {
	AcceptanceMinObs int
	FinAidMinObs     int
	FinAidRatioMax   float64
	FinAidMode       derive.FinAidMode
}

// DatabaseConfig holds database connection settings. Persistence is optional.
type DatabaseConfig struct {
	URL            string
	MaxOpenConns   int
	ConnectTimeout time.Duration
}

// Enabled reports whether a database is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{}

	config.Data = *loadDataConfig()

	filterConfig, err := loadFilterConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load filter configuration")
	}
	config.Filter = *filterConfig

	config.Database = *loadDatabaseConfig()
	config.Server = *loadServerConfig()

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadDataConfig() *DataConfig {
	return &DataConfig{
		Dir:         getEnvOrDefault("DATA_DIR", "datasets"),
		SourcesFile: getEnvOrDefault("SOURCES_FILE", ""),
		OutputFile:  getEnvOrDefault("OUTPUT_FILE", "tidy.xlsx"),
	}
}

func loadFilterConfig() (*FilterConfig, error) {
	mode, err := derive.ParseFinAidMode(os.Getenv("FIN_AID_MODE"))
	if err != nil {
		return nil, errors.ConfigInvalid(err.Error())
	}
	return &FilterConfig{
		AcceptanceMinObs: getEnvIntOrDefault("ACCEPTANCE_MIN_OBS", 15),
		FinAidMinObs:     getEnvIntOrDefault("FIN_AID_MIN_OBS", 7),
		FinAidRatioMax:   getEnvFloatOrDefault("FIN_AID_RATIO_MAX", 100),
		FinAidMode:       mode,
	}, nil
}

func loadDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		URL:            getEnvOrDefault("DATABASE_URL", ""),
		MaxOpenConns:   getEnvIntOrDefault("DB_MAX_OPEN_CONNS", 5),
		ConnectTimeout: getEnvDurationOrDefault("DB_CONNECT_TIMEOUT", 5*time.Second),
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:         getEnvOrDefault("PORT", "8080"),
		ReadTimeout:  getEnvDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
		WriteTimeout: getEnvDurationOrDefault("SERVER_WRITE_TIMEOUT", 30*time.Second),
	}
}

func validateConfig(config *Config) error {
	if config.Filter.AcceptanceMinObs < 0 || config.Filter.FinAidMinObs < 0 {
		return errors.ConfigInvalid("minimum observation thresholds must be >= 0")
	}
	if config.Filter.FinAidRatioMax <= 0 {
		return errors.ConfigInvalid(fmt.Sprintf("FIN_AID_RATIO_MAX must be positive, got %v", config.Filter.FinAidRatioMax))
	}
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT is required")
	}
	return nil
}

// RatioRule returns the fin_aid_ratio bound.
func (c *Config) RatioRule() derive.RatioRule {
	return derive.RatioRule{Max: c.Filter.FinAidRatioMax}
}

// Formulas returns the derived metrics for this configuration.
func (c *Config) Formulas() []derive.Formula {
	return derive.Standard(c.Filter.FinAidMode, c.RatioRule())
}

// Resolve joins a source file name onto the data directory unless it is
// already absolute.
func (c *Config) Resolve(file string) string {
	if file == "" || filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(c.Data.Dir, file)
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
