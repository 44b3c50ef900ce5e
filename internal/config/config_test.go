package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/rl24-transmission/internal/config"
	"github.com/ginjaninja78/rl24-transmission/internal/schema"
	"github.com/ginjaninja78/rl24-transmission/internal/types"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// clearEnv blanks the overrides so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		config.EnvPreparerNumber, config.EnvTaxYear, config.EnvSequenceNumber,
		config.EnvOutputDir, config.EnvLogLevel, config.EnvSchemaFile,
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

const sampleConfig = `
transmitter:
  preparer_number: NP000123
  tax_year: 2024
  sequence_number: 3
issuer:
  enterprise_number: "1234567890"
  name_line1: CPE Les Petits Pas
  address:
    line1: 10 rue des Érables
    city: Québec
    postal_code: G1R 2B5
directories:
  output: /tmp/rl24-out
input:
  delimiter: ";"
processing:
  archive_input: false
log_level: debug
`

// =============================================================================
// LOADING
// =============================================================================

func TestLoadConfig_File(t *testing.T) {
	// GIVEN: A configuration file with most sections set
	clearEnv(t)
	path := writeConfig(t, sampleConfig)

	// WHEN: Loading it
	cfg, err := config.LoadConfig(path)

	// THEN: File values win over defaults, unset values get defaults
	require.NoError(t, err)
	assert.Equal(t, "NP000123", cfg.Transmitter.PreparerNumber)
	assert.Equal(t, "O", cfg.Transmitter.TransmissionType)
	assert.Equal(t, "/tmp/rl24-out", cfg.Directories.Output)
	assert.Equal(t, "./input_archive", cfg.Directories.InputArchive)
	assert.Equal(t, ";", cfg.Input.Delimiter)
	assert.Equal(t, 4, cfg.Processing.MaxConcurrency)
	assert.True(t, cfg.Processing.ShouldValidate())
	assert.False(t, cfg.Processing.ShouldArchive())
	assert.Equal(t, schema.DefaultProvince, cfg.Issuer.Address.Province)

	meta := cfg.Metadata()
	assert.Equal(t, types.TransmissionOriginal, meta.Type)
	assert.Equal(t, 2024, meta.TaxYear)
	assert.Equal(t, 3, meta.SequenceNumber)
	assert.Equal(t, "CPE Les Petits Pas", cfg.IssuerInfo().NameLine1)
}

func TestDefault(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Default()

	require.NoError(t, err)
	assert.Equal(t, "./output", cfg.Directories.Output)
	assert.Equal(t, "./logs", cfg.Directories.Logs)
	assert.Equal(t, ",", cfg.Input.Delimiter)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, schema.DefaultCountry, cfg.Issuer.Address.Country)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	clearEnv(t)

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))

	assert.Error(t, err)
}

func TestLoadConfig_BadYAML(t *testing.T) {
	clearEnv(t)

	_, err := config.LoadConfig(writeConfig(t, "transmitter: [unclosed"))

	assert.ErrorContains(t, err, "failed to parse config file")
}

// =============================================================================
// ENVIRONMENT
// =============================================================================

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	// GIVEN: A file and overriding environment variables
	clearEnv(t)
	t.Setenv(config.EnvTaxYear, "2023")
	t.Setenv(config.EnvPreparerNumber, " NP999999 ")
	t.Setenv(config.EnvOutputDir, "/srv/rl24")

	// WHEN: Loading
	cfg, err := config.LoadConfig(writeConfig(t, sampleConfig))

	// THEN: The environment wins
	require.NoError(t, err)
	assert.Equal(t, 2023, cfg.Transmitter.TaxYear)
	assert.Equal(t, "NP999999", cfg.Transmitter.PreparerNumber)
	assert.Equal(t, "/srv/rl24", cfg.Directories.Output)
	assert.Equal(t, 3, cfg.Transmitter.SequenceNumber)
}

func TestLoadConfig_BadEnvironmentInteger(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvSequenceNumber, "seven")

	_, err := config.LoadConfig("")

	assert.ErrorContains(t, err, config.EnvSequenceNumber)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestLoadConfig_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"log level", "log_level: loud", "log_level"},
		{"delimiter", "input:\n  delimiter: ';;'", "input.delimiter"},
		{"preparer number", "transmitter:\n  preparer_number: XY12", "transmitter.preparer_number"},
		{"transmission type", "transmitter:\n  transmission_type: Z", "transmitter.transmission_type"},
		{"schema file", "schema_file: /nonexistent/rl24.xsd", "schema_file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)

			_, err := config.LoadConfig(writeConfig(t, tt.body))

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
