package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/catalogops/oclcrecon/internal/alma"
	"github.com/catalogops/oclcrecon/pkg/errors"
)

// Default configuration values.
const (
	DefaultBatchSize   = alma.MaxRecordsPerRead
	DefaultRetryWait   = 3 * time.Second
	DefaultQuotaBudget = 100000
	DefaultQuotaFloor  = 500
)

// Config holds the application configuration loaded from config files,
// environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool

	// Config file
	ConfigFile string

	// Alma BIBs API
	AlmaBaseURL   string
	AlmaAPIKey    string
	AlmaBatchSize int
	AlmaRetryWait time.Duration

	// WorldCat Metadata API
	WorldCatKey          string
	WorldCatSecret       string
	WorldCatTokenURL     string
	WorldCatAPIURL       string
	WorldCatSearchAPIURL string
	WorldCatRetryWait    time.Duration
	InstitutionSymbol    string
	PrincipalID          string

	// Shared daily request budget
	QuotaBudget int
	QuotaFloor  int

	// CredentialFile caches the WorldCat bearer token between runs.
	CredentialFile string

	// Logging configuration
	LogLevel  string
	LogFormat string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables
// 3. .env files
// 4. Config file (~/.oclcrecon.yaml)
// 5. Defaults
func LoadConfig() (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	setDefaults()

	// Try to read config file if it exists
	configFile := viper.GetString("config")
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.AddConfigPath(".")
			viper.SetConfigType("yaml")
			viper.SetConfigName(".oclcrecon")
		}
	}

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()

	config := &Config{
		Verbose: viper.GetBool("verbose"),
		Quiet:   viper.GetBool("quiet"),

		ConfigFile: viper.ConfigFileUsed(),

		AlmaBaseURL:   viper.GetString("alma_api_url"),
		AlmaAPIKey:    viper.GetString("alma_api_key"),
		AlmaBatchSize: viper.GetInt("alma_batch_size"),
		AlmaRetryWait: viper.GetDuration("alma_retry_wait"),

		WorldCatKey:          viper.GetString("worldcat_api_key"),
		WorldCatSecret:       viper.GetString("worldcat_api_secret"),
		WorldCatTokenURL:     viper.GetString("worldcat_token_url"),
		WorldCatAPIURL:       viper.GetString("worldcat_api_url"),
		WorldCatSearchAPIURL: viper.GetString("worldcat_search_api_url"),
		WorldCatRetryWait:    viper.GetDuration("worldcat_retry_wait"),
		InstitutionSymbol:    viper.GetString("worldcat_institution_symbol"),
		PrincipalID:          viper.GetString("worldcat_principal_id"),

		QuotaBudget: viper.GetInt("quota_budget"),
		QuotaFloor:  viper.GetInt("quota_floor"),

		CredentialFile: viper.GetString("credential_file"),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
	}

	if config.CredentialFile == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			config.CredentialFile = home + "/.oclcrecon-credentials.yaml"
		}
	}

	return config, nil
}

// setDefaults registers the default values with viper so unset keys resolve
// sensibly.
func setDefaults() {
	viper.SetDefault("alma_batch_size", DefaultBatchSize)
	viper.SetDefault("alma_retry_wait", DefaultRetryWait)
	viper.SetDefault("worldcat_retry_wait", DefaultRetryWait)
	viper.SetDefault("quota_budget", DefaultQuotaBudget)
	viper.SetDefault("quota_floor", DefaultQuotaFloor)
}

// ValidateAlma checks that the Alma client can be constructed.
func (c *Config) ValidateAlma() error {
	if c.AlmaBaseURL == "" {
		return &errors.ConfigError{Key: "alma_api_url", Message: "Alma API base URL is required"}
	}
	if c.AlmaAPIKey == "" {
		return &errors.ConfigError{Key: "alma_api_key", Message: "Alma API key is required"}
	}
	return nil
}

// ValidateWorldCat checks that the WorldCat client can be constructed.
func (c *Config) ValidateWorldCat() error {
	if c.WorldCatKey == "" {
		return &errors.ConfigError{Key: "worldcat_api_key", Message: "WorldCat API key is required"}
	}
	if c.WorldCatSecret == "" {
		return &errors.ConfigError{Key: "worldcat_api_secret", Message: "WorldCat API secret is required"}
	}
	if c.InstitutionSymbol == "" {
		return &errors.ConfigError{Key: "worldcat_institution_symbol", Message: "OCLC institution symbol is required"}
	}
	return nil
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags so flag values take
// precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet bool, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}

// getEnvOrDefault returns the environment variable value or the default if
// not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
