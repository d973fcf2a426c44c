// Package config handles configuration loading for BRIS.
// It supports YAML config files, a local .env file and BRIS_* environment
// variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	API        APIConfig        `mapstructure:"api"        yaml:"api"`
	Backend    BackendConfig    `mapstructure:"backend"    yaml:"backend"`
	Regulation RegulationConfig `mapstructure:"regulation" yaml:"regulation"`
	Web        WebConfig        `mapstructure:"web"        yaml:"web"`
	Logging    LoggingConfig    `mapstructure:"logging"    yaml:"logging"`

	// Source is the config file that was read, empty when running on defaults.
	Source string `mapstructure:"-" yaml:"-"`
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Host               string   `mapstructure:"host"                  yaml:"host"`
	Port               int      `mapstructure:"port"                  yaml:"port"`
	CORSOrigins        []string `mapstructure:"cors_origins"          yaml:"cors_origins"`
	RateLimitPerMinute int      `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"` // chat requests
	AdminToken         string   `mapstructure:"admin_token"           yaml:"admin_token"`
	RequestTimeoutSec  int      `mapstructure:"request_timeout_sec"   yaml:"request_timeout_sec"`
}

// BackendConfig points at the external knowledge (RAG) backend.
type BackendConfig struct {
	URL        string `mapstructure:"url"         yaml:"url"`
	APIKey     string `mapstructure:"api_key"     yaml:"api_key"`
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec"`
	CacheTTL   int    `mapstructure:"cache_ttl"   yaml:"cache_ttl"` // seconds
}

// RegulationConfig holds the regulatory thresholds used by the calculators.
// All values are fractions.
type RegulationConfig struct {
	LeverageMinimum          float64 `mapstructure:"leverage_minimum"          yaml:"leverage_minimum"`
	LCRMinimum               float64 `mapstructure:"lcr_minimum"               yaml:"lcr_minimum"`
	NSFRMinimum              float64 `mapstructure:"nsfr_minimum"              yaml:"nsfr_minimum"`
	MRELRWARequirement       float64 `mapstructure:"mrel_rwa_requirement"      yaml:"mrel_rwa_requirement"`
	MRELLEMRequirement       float64 `mapstructure:"mrel_lem_requirement"      yaml:"mrel_lem_requirement"`
	SubordinationRequirement float64 `mapstructure:"subordination_requirement" yaml:"subordination_requirement"`
	IRRBBOutlierThreshold    float64 `mapstructure:"irrbb_outlier_threshold"   yaml:"irrbb_outlier_threshold"`
	STSFloor                 float64 `mapstructure:"sts_floor"                 yaml:"sts_floor"`
	NonSTSFloor              float64 `mapstructure:"non_sts_floor"             yaml:"non_sts_floor"`
	CapitalRatio             float64 `mapstructure:"capital_ratio"             yaml:"capital_ratio"`
	KSAMultiplier            float64 `mapstructure:"ksa_multiplier"            yaml:"ksa_multiplier"`
	LargeExposureLimit       float64 `mapstructure:"large_exposure_limit"      yaml:"large_exposure_limit"`
	GSIBExposureLimit        float64 `mapstructure:"gsib_exposure_limit"       yaml:"gsib_exposure_limit"`
}

// WebConfig holds frontend configuration.
type WebConfig struct {
	URL string `mapstructure:"url" yaml:"url"` // e.g., "http://localhost:3000"
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

const envPrefix = "BRIS"

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.bris/config.yaml (home directory)
//  3. /etc/bris/config.yaml (system)
//
// A .env file in the working directory is loaded first. Environment variables
// override config file values.
// Format: BRIS_<SECTION>_<KEY>, e.g., BRIS_BACKEND_API_KEY
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".bris"))
	v.AddConfigPath("/etc/bris")

	// Config file is optional; defaults + env vars are enough to run.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.Source = v.ConfigFileUsed()

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// loadDotEnv loads KEY=VALUE pairs into the environment without overriding
// variables that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("error loading %s: %w", path, err)
	}
	return nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8000)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("api.rate_limit_per_minute", 30)
	v.SetDefault("api.admin_token", "")
	v.SetDefault("api.request_timeout_sec", 120)

	// Knowledge backend defaults
	v.SetDefault("backend.url", "http://localhost:8001")
	v.SetDefault("backend.api_key", "")
	v.SetDefault("backend.timeout_sec", 60)
	v.SetDefault("backend.cache_ttl", 300) // 5 minutes

	// Regulation defaults (Basel III / CRR)
	v.SetDefault("regulation.leverage_minimum", 0.03)
	v.SetDefault("regulation.lcr_minimum", 1.0)
	v.SetDefault("regulation.nsfr_minimum", 1.0)
	v.SetDefault("regulation.mrel_rwa_requirement", 0.18)
	v.SetDefault("regulation.mrel_lem_requirement", 0.0675)
	v.SetDefault("regulation.subordination_requirement", 0.135)
	v.SetDefault("regulation.irrbb_outlier_threshold", 0.15)
	v.SetDefault("regulation.sts_floor", 0.10)
	v.SetDefault("regulation.non_sts_floor", 0.15)
	v.SetDefault("regulation.capital_ratio", 0.08)
	v.SetDefault("regulation.ksa_multiplier", 1.5)
	v.SetDefault("regulation.large_exposure_limit", 0.25)
	v.SetDefault("regulation.gsib_exposure_limit", 0.10)

	// Web defaults
	v.SetDefault("web.url", "http://localhost:3000")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("BRIS_BACKEND_API_KEY"); key != "" {
		cfg.Backend.APIKey = key
	}
	if token := os.Getenv("BRIS_API_ADMIN_TOKEN"); token != "" {
		cfg.API.AdminToken = token
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
