// =============================================================================
// RL-24 Transmission - Configuration Module
// =============================================================================
//
// This module loads the filing configuration: who transmits, who issues the
// slips, where files go, and how the pipeline behaves.
//
// CONFIGURATION SOURCES (later wins):
//   1. Defaults (applyDefaults)
//   2. The YAML file (config.yaml)
//   3. A .env file in the working directory, if present
//   4. Process environment variables (RL24_*)
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/rl24-transmission/internal/schema"
	"github.com/ginjaninja78/rl24-transmission/internal/types"
)

// Environment variables that override the file.
const (
	EnvPreparerNumber = "RL24_PREPARER_NUMBER"
	EnvTaxYear        = "RL24_TAX_YEAR"
	EnvSequenceNumber = "RL24_SEQUENCE_NUMBER"
	EnvOutputDir      = "RL24_OUTPUT_DIR"
	EnvLogLevel       = "RL24_LOG_LEVEL"
	EnvSchemaFile     = "RL24_SCHEMA_FILE"
)

// =============================================================================
// CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the application configuration.
type Config struct {
	// =========================================================================
	// FILING IDENTITY
	// =========================================================================

	Transmitter TransmitterConfig `yaml:"transmitter"`
	Software    SoftwareConfig    `yaml:"software"`
	Issuer      types.Issuer      `yaml:"issuer"`

	// =========================================================================
	// FILES
	// =========================================================================

	Directories DirectoriesConfig `yaml:"directories"`

	// Input controls how slip records are read from CSV and XLSX files.
	Input InputConfig `yaml:"input"`

	// SchemaFile is an optional XSD handed to xmllint after generation and
	// during validation. Empty disables the schema phase.
	SchemaFile string `yaml:"schema_file"`

	// =========================================================================
	// RUNTIME
	// =========================================================================

	Processing ProcessingConfig `yaml:"processing"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`
}

// TransmitterConfig identifies the preparer and the batch.
type TransmitterConfig struct {
	// PreparerNumber is "NP" + 6 digits; 6 bare digits are accepted.
	PreparerNumber string `yaml:"preparer_number"`

	// TransmissionType is O (original), M (modified) or A (cancellation).
	// Default: "O"
	TransmissionType string `yaml:"transmission_type"`

	TaxYear int `yaml:"tax_year"`

	// SequenceNumber must be unique per preparer per year.
	SequenceNumber int `yaml:"sequence_number"`

	CertificationNumber string `yaml:"certification_number"`
}

// SoftwareConfig names the software declared in the header.
type SoftwareConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// DirectoriesConfig holds the file locations.
type DirectoriesConfig struct {
	// Output receives the generated transmissions.
	// Default: "./output"
	Output string `yaml:"output"`

	// InputArchive receives input files after a successful run.
	// Default: "./input_archive"
	InputArchive string `yaml:"input_archive"`

	// Logs receives the findings log of each run.
	// Default: "./logs"
	Logs string `yaml:"logs"`
}

// InputConfig holds the loader settings.
type InputConfig struct {
	// Delimiter separates CSV fields. Common values: ",", ";", "|", "\t"
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// Sheet is the XLSX sheet holding the records. Empty means the first sheet.
	Sheet string `yaml:"sheet"`
}

// ProcessingConfig controls the pipeline.
type ProcessingConfig struct {
	// ValidateAfterGenerate re-validates every generated file before writing it.
	// Default: true
	ValidateAfterGenerate *bool `yaml:"validate_after_generate"`

	// ArchiveInput moves the input file to the archive directory after success.
	// Default: true
	ArchiveInput *bool `yaml:"archive_input"`

	// MaxConcurrency bounds how many files `validate` checks at once.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`
}

// ShouldValidate reports whether generated files are re-validated.
func (p ProcessingConfig) ShouldValidate() bool {
	return p.ValidateAfterGenerate == nil || *p.ValidateAfterGenerate
}

// ShouldArchive reports whether input files are archived.
func (p ProcessingConfig) ShouldArchive() bool {
	return p.ArchiveInput == nil || *p.ArchiveInput
}

// =============================================================================
// CONVERSION TO CORE TYPES
// =============================================================================

// Metadata returns the transmission metadata described by the configuration.
func (c *Config) Metadata() types.TransmissionMetadata {
	return types.TransmissionMetadata{
		PreparerNumber:      c.Transmitter.PreparerNumber,
		Type:                types.TransmissionType(c.Transmitter.TransmissionType),
		TaxYear:             c.Transmitter.TaxYear,
		SequenceNumber:      c.Transmitter.SequenceNumber,
		CertificationNumber: c.Transmitter.CertificationNumber,
		SoftwareName:        c.Software.Name,
		SoftwareVersion:     c.Software.Version,
	}
}

// IssuerInfo returns the filing organization.
func (c *Config) IssuerInfo() types.Issuer {
	return c.Issuer
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadConfig loads the configuration from a YAML file, then applies the
// environment overrides.
//
// PARAMETERS:
//   - configPath: The path to the configuration file. Empty means defaults only.
//
// RETURNS:
//   - A pointer to the Config struct.
//   - An error if the file cannot be read or parsed, or is invalid.
func LoadConfig(configPath string) (*Config, error) {
	var config Config

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// A missing .env file is not an error.
	_ = godotenv.Load()

	if err := applyEnv(&config); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	applyDefaults(&config)

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns the defaults plus the environment overrides.
func Default() (*Config, error) {
	return LoadConfig("")
}

// applyEnv overrides the file values with the RL24_* variables.
func applyEnv(config *Config) error {
	config.Transmitter.PreparerNumber = getEnv(EnvPreparerNumber, config.Transmitter.PreparerNumber)
	config.Directories.Output = getEnv(EnvOutputDir, config.Directories.Output)
	config.LogLevel = getEnv(EnvLogLevel, config.LogLevel)
	config.SchemaFile = getEnv(EnvSchemaFile, config.SchemaFile)

	var err error
	if config.Transmitter.TaxYear, err = getEnvAsInt(EnvTaxYear, config.Transmitter.TaxYear); err != nil {
		return err
	}
	if config.Transmitter.SequenceNumber, err = getEnvAsInt(EnvSequenceNumber, config.Transmitter.SequenceNumber); err != nil {
		return err
	}
	return nil
}

// applyDefaults sets default values for any unset configuration options.
func applyDefaults(config *Config) {
	if config.Transmitter.TransmissionType == "" {
		config.Transmitter.TransmissionType = string(types.TransmissionOriginal)
	}
	if config.Directories.Output == "" {
		config.Directories.Output = "./output"
	}
	if config.Directories.InputArchive == "" {
		config.Directories.InputArchive = "./input_archive"
	}
	if config.Directories.Logs == "" {
		config.Directories.Logs = "./logs"
	}
	if config.Input.Delimiter == "" {
		config.Input.Delimiter = ","
	}
	if config.Processing.MaxConcurrency <= 0 {
		config.Processing.MaxConcurrency = 4
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.Issuer.Address.Province == "" {
		config.Issuer.Address.Province = schema.DefaultProvince
	}
	if config.Issuer.Address.Country == "" {
		config.Issuer.Address.Country = schema.DefaultCountry
	}
}

// validate checks the values the file can get wrong before any run. The
// filing rules themselves are enforced by the generator.
func validate(config *Config) error {
	var errs []error

	switch strings.ToLower(config.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level %q must be debug, info, warn or error", config.LogLevel))
	}

	if len([]rune(config.Input.Delimiter)) != 1 {
		errs = append(errs, fmt.Errorf("input.delimiter %q must be a single character", config.Input.Delimiter))
	}

	if config.Transmitter.PreparerNumber != "" && schema.NormalizePreparerNumber(config.Transmitter.PreparerNumber) == "" {
		errs = append(errs, fmt.Errorf("transmitter.preparer_number %q must be %s followed by %d digits",
			config.Transmitter.PreparerNumber, schema.PreparerPrefix, schema.PreparerDigits))
	}

	if !schema.IsTransmissionType(strings.ToUpper(config.Transmitter.TransmissionType)) {
		errs = append(errs, fmt.Errorf("transmitter.transmission_type %q must be O, M or A", config.Transmitter.TransmissionType))
	}

	if config.SchemaFile != "" {
		if _, err := os.Stat(config.SchemaFile); err != nil {
			errs = append(errs, fmt.Errorf("schema_file: %w", err))
		}
	}

	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback, fmt.Errorf("%s=%q is not an integer", key, value)
	}
	return parsed, nil
}
