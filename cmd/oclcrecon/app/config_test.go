package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalogops/oclcrecon/pkg/errors"
)

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, DefaultBatchSize, config.AlmaBatchSize)
	assert.Equal(t, DefaultRetryWait, config.AlmaRetryWait)
	assert.Equal(t, DefaultRetryWait, config.WorldCatRetryWait)
	assert.Equal(t, DefaultQuotaBudget, config.QuotaBudget)
	assert.Equal(t, DefaultQuotaFloor, config.QuotaFloor)
	assert.NotEmpty(t, config.CredentialFile)
	assert.Equal(t, "info", config.LogLevel)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("ALMA_API_URL", "https://api-eu.hosted.exlibrisgroup.com")
	t.Setenv("ALMA_API_KEY", "k")
	t.Setenv("ALMA_BATCH_SIZE", "25")
	t.Setenv("WORLDCAT_INSTITUTION_SYMBOL", "OCPSB")
	t.Setenv("QUOTA_FLOOR", "2000")

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://api-eu.hosted.exlibrisgroup.com", config.AlmaBaseURL)
	assert.Equal(t, "k", config.AlmaAPIKey)
	assert.Equal(t, 25, config.AlmaBatchSize)
	assert.Equal(t, "OCPSB", config.InstitutionSymbol)
	assert.Equal(t, 2000, config.QuotaFloor)
}

func TestValidateAlma(t *testing.T) {
	config := &Config{}
	err := config.ValidateAlma()
	require.Error(t, err)
	var cfgErr *errors.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "alma_api_url", cfgErr.Key)

	config.AlmaBaseURL = "https://api-na.hosted.exlibrisgroup.com"
	err = config.ValidateAlma()
	require.Error(t, err)
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "alma_api_key", cfgErr.Key)

	config.AlmaAPIKey = "k"
	assert.NoError(t, config.ValidateAlma())
}

func TestValidateWorldCat(t *testing.T) {
	config := &Config{WorldCatKey: "k", WorldCatSecret: "s"}
	err := config.ValidateWorldCat()
	require.Error(t, err)
	var cfgErr *errors.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "worldcat_institution_symbol", cfgErr.Key)

	config.InstitutionSymbol = "OCPSB"
	assert.NoError(t, config.ValidateWorldCat())
}

func TestUpdateFromFlags(t *testing.T) {
	config := &Config{LogLevel: "info"}

	config.UpdateFromFlags(true, false, "")
	assert.True(t, config.Verbose)
	assert.Equal(t, "info", config.LogLevel)

	config.UpdateFromFlags(false, true, "trace")
	assert.True(t, config.Quiet)
	assert.Equal(t, "trace", config.LogLevel)
}

func TestDetermineLogLevel(t *testing.T) {
	assert.Equal(t, "debug", determineLogLevel(&Config{Verbose: true}))
	assert.Equal(t, "warn", determineLogLevel(&Config{Quiet: true}))
	assert.Equal(t, "warn", determineLogLevel(&Config{Verbose: true, Quiet: true}))
	assert.Equal(t, "error", determineLogLevel(&Config{LogLevel: "error"}))
	assert.Equal(t, "info", determineLogLevel(&Config{LogLevel: "nonsense"}))
	assert.Equal(t, "info", determineLogLevel(&Config{}))
}

func TestRetryWaitFromEnv(t *testing.T) {
	t.Setenv("WORLDCAT_RETRY_WAIT", "10s")

	config, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, config.WorldCatRetryWait)
}
