package converter_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/rl24-transmission/internal/config"
	"github.com/ginjaninja78/rl24-transmission/internal/converter"
	"github.com/ginjaninja78/rl24-transmission/internal/report"
	"github.com/ginjaninja78/rl24-transmission/internal/types"
	"github.com/ginjaninja78/rl24-transmission/internal/validation"
	"github.com/ginjaninja78/rl24-transmission/internal/xmlwriter"
	"github.com/ginjaninja78/rl24-transmission/pkg/utils"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const validCSV = "Recipient Last,Recipient First,SIN,Child Last,Child First,Days,Box 11,Box 12,Box 13\n" +
	"Tremblay,Marie,046 454 286,Tremblay,Léa,180,4500,4500,500\n" +
	"Gagnon,Paul,,Gagnon,Noah,200,\"5 000,50\",\"5 000,50\",0\n"

func fixedClock() time.Time {
	return time.Date(2025, time.February, 15, 0, 0, 0, 0, time.UTC)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	return &config.Config{
		Transmitter: config.TransmitterConfig{
			PreparerNumber:   "NP000123",
			TransmissionType: "O",
			TaxYear:          2024,
			SequenceNumber:   1,
		},
		Issuer: types.Issuer{
			EnterpriseNumber: "1234567890",
			NameLine1:        "CPE Les Petits Pas",
			Address:          types.Address{Line1: "10 rue des Érables", City: "Québec", PostalCode: "G1R 2B5"},
		},
		Directories: config.DirectoriesConfig{
			Output:       filepath.Join(root, "output"),
			InputArchive: filepath.Join(root, "archive"),
			Logs:         filepath.Join(root, "logs"),
		},
		Input:    config.InputConfig{Delimiter: ","},
		LogLevel: "info",
	}
}

func newConverter(cfg *config.Config, opts ...converter.Option) *converter.Converter {
	opts = append([]converter.Option{
		converter.WithGenerator(xmlwriter.NewGenerator(xmlwriter.WithClock(fixedClock))),
		converter.WithValidator(validation.NewValidator(validation.WithClock(fixedClock))),
	}, opts...)
	return converter.New(cfg, nil, opts...)
}

func writeInput(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

// =============================================================================
// SUCCESSFUL RUNS
// =============================================================================

func TestRun_WritesTransmission(t *testing.T) {
	// GIVEN: A valid CSV export
	cfg := testConfig(t)
	input := writeInput(t, "slips.csv", validCSV)

	// WHEN: Running the pipeline
	result := newConverter(cfg).Run(input)

	// THEN: The transmission is written under its mandated name and the input is archived
	require.NoError(t, result.Error)
	assert.True(t, result.Success)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "24000123001.xml", result.Filename)
	assert.Equal(t, filepath.Join(cfg.Directories.Output, "24000123001.xml"), result.OutputPath)
	assert.Equal(t, 2, result.Summary.SlipCount)
	assert.Equal(t, 380, result.Summary.TotalDays)
	assert.Equal(t, "9500.50", result.Summary.TotalPaid.StringFixed(2))
	assert.True(t, result.Report.IsClean(), result.Report.Format())
	assert.Empty(t, result.LogPath)

	data, err := os.ReadFile(result.OutputPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<Box11>5000.50</Box11>")

	assert.False(t, utils.FileExists(input))
	assert.True(t, utils.FileExists(filepath.Join(cfg.Directories.InputArchive, "slips.csv")))
}

func TestRun_WarningsAreLogged(t *testing.T) {
	cfg := testConfig(t)
	input := writeInput(t, "slips.csv",
		"Recipient Last,Recipient First,Child Last,Child First,Days,Box 12,Box 13,Box 14\n"+
			"Roy,Anne,Roy,Emma,20,1000,100,500\n")

	result := newConverter(cfg).Run(input)

	require.NoError(t, result.Error)
	assert.True(t, result.Report.HasWarnings())
	require.NotEmpty(t, result.LogPath)
	assert.True(t, utils.FileExists(result.LogPath))
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	cfg := testConfig(t)
	input := writeInput(t, "slips.csv", validCSV)

	result := newConverter(cfg, converter.WithDryRun(true)).Run(input)

	require.NoError(t, result.Error)
	assert.Equal(t, "24000123001.xml", result.Filename)
	assert.Empty(t, result.OutputPath)
	assert.True(t, utils.FileExists(input))
	assert.False(t, utils.FileExists(cfg.Directories.Output))
}

func TestRun_KeepsInputWhenArchivingIsOff(t *testing.T) {
	cfg := testConfig(t)
	off := false
	cfg.Processing.ArchiveInput = &off
	input := writeInput(t, "slips.csv", validCSV)

	result := newConverter(cfg).Run(input)

	require.NoError(t, result.Error)
	assert.True(t, utils.FileExists(input))
}

// =============================================================================
// FAILED RUNS
// =============================================================================

func TestRun_UnsupportedInput(t *testing.T) {
	result := newConverter(testConfig(t)).Run(writeInput(t, "slips.pdf", "%PDF"))

	assert.False(t, result.Success)
	assert.True(t, errors.Is(result.Error, converter.ErrUnsupportedInput))
}

func TestRun_GenerationFailureWritesFindingsLog(t *testing.T) {
	// GIVEN: A record without a child first name
	cfg := testConfig(t)
	input := writeInput(t, "slips.csv",
		"Recipient Last,Recipient First,Child Last,Child First,Days\n"+
			"Roy,Anne,Roy,,20\n")

	// WHEN: Running the pipeline
	result := newConverter(cfg).Run(input)

	// THEN: Nothing is filed, the findings are logged, the input stays put
	require.True(t, errors.Is(result.Error, report.ErrGenerationFailed))
	assert.Empty(t, result.OutputPath)
	assert.Equal(t, 1, result.Report.Count(report.KindMissingElement))
	require.NotEmpty(t, result.LogPath)

	log, err := os.ReadFile(result.LogPath)
	require.NoError(t, err)
	assert.Contains(t, string(log), "MissingElement")
	assert.True(t, utils.FileExists(input))
}

func TestRun_SelfValidationFailure(t *testing.T) {
	cfg := testConfig(t)
	rejectAll := validation.SchemaCheckerFunc(func([]byte) []error {
		return []error{errors.New("element Slip: not expected")}
	})
	v := validation.NewValidator(validation.WithClock(fixedClock), validation.WithSchemaChecker(rejectAll))

	result := newConverter(cfg, converter.WithValidator(v)).Run(writeInput(t, "slips.csv", validCSV))

	assert.True(t, errors.Is(result.Error, converter.ErrSelfValidation))
	assert.Equal(t, 1, result.Report.Count(report.KindSchemaInvalid))
	assert.False(t, utils.FileExists(filepath.Join(cfg.Directories.Output, "24000123001.xml")))
}

func TestRun_RefusesToOverwrite(t *testing.T) {
	// GIVEN: A transmission already written with the same sequence number
	cfg := testConfig(t)
	first := newConverter(cfg).Run(writeInput(t, "first.csv", validCSV))
	require.NoError(t, first.Error)

	// WHEN: Running again without changing the sequence
	second := newConverter(cfg).Run(writeInput(t, "second.csv", validCSV))

	// THEN: The existing file is kept
	assert.True(t, errors.Is(second.Error, utils.ErrOutputExists))
	assert.False(t, second.Success)
}

// =============================================================================
// RECORD LOADING
// =============================================================================

func TestLoadRecords_CSVWithSemicolons(t *testing.T) {
	body := strings.ReplaceAll("Recipient Last,Recipient First,Child Last,Child First,Days\nRoy,Anne,Roy,Emma,20\n", ",", ";")
	path := writeInput(t, "slips.txt", body)

	records, err := converter.LoadRecords(path, config.InputConfig{Delimiter: ";"})

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Emma", records[0].Child.FirstName)
	assert.Equal(t, 2, records[0].SourceRow)
}

func TestLoadRecords_UnsupportedExtension(t *testing.T) {
	_, err := converter.LoadRecords("slips.json", config.InputConfig{})

	assert.True(t, errors.Is(err, converter.ErrUnsupportedInput))
}
