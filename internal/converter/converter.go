// =============================================================================
// RL-24 Transmission - Converter Module
// =============================================================================
//
// This module orchestrates the pipeline for a single input file, from the
// slip records export to a transmission ready to file.
//
// CONVERSION PIPELINE:
//   1. Load the records (CSV or XLSX, chosen by extension)
//   2. Map the rows onto slip records
//   3. Generate the transmission
//   4. Re-validate the generated text (optional, with the XSD when configured)
//   5. Write the transmission into the output directory
//   6. Write the findings log, when there are findings
//   7. Archive the input file
//
// A dry run stops after step 4 and writes nothing.
//
// CONCURRENCY:
//   A Converter holds no per-run state. Run may be called from several
//   goroutines at once for different inputs.
//
// =============================================================================

package converter

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/rl24-transmission/internal/config"
	"github.com/ginjaninja78/rl24-transmission/internal/csvparser"
	"github.com/ginjaninja78/rl24-transmission/internal/report"
	"github.com/ginjaninja78/rl24-transmission/internal/slip"
	"github.com/ginjaninja78/rl24-transmission/internal/types"
	"github.com/ginjaninja78/rl24-transmission/internal/validation"
	"github.com/ginjaninja78/rl24-transmission/internal/xlsxparser"
	"github.com/ginjaninja78/rl24-transmission/internal/xmlwriter"
	"github.com/ginjaninja78/rl24-transmission/pkg/utils"
)

// ErrUnsupportedInput is returned for input files that are neither CSV nor XLSX.
var ErrUnsupportedInput = errors.New("unsupported input file")

// ErrSelfValidation is returned when the generated transmission fails its own
// validation.
var ErrSelfValidation = errors.New("generated transmission failed validation")

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of processing a single file.
type Result struct {
	// RunID identifies the run in logs and in the findings log name.
	RunID string

	// InputPath is the path to the input file that was processed.
	InputPath string

	// OutputPath is the path to the written transmission.
	// This is empty if processing failed or for a dry run.
	OutputPath string

	// Filename is the mandated transmission filename.
	Filename string

	// LogPath is the findings log, empty when none was written.
	LogPath string

	// Summary holds the totals of the generated transmission.
	Summary types.SummaryTotals

	// Report holds every finding of the run.
	Report *report.Report

	// Success indicates whether the processing was successful.
	Success bool

	// Error contains the error if processing failed.
	Error error

	// Elapsed is the time taken to process the file.
	Elapsed time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter runs the pipeline with one configuration.
type Converter struct {
	cfg       *config.Config
	logger    *slog.Logger
	files     *utils.FileManager
	generator *xmlwriter.Generator
	validator *validation.Validator
	dryRun    bool
}

// Option customizes a Converter.
type Option func(*Converter)

// WithDryRun makes Run skip every write.
func WithDryRun(dryRun bool) Option {
	return func(c *Converter) { c.dryRun = dryRun }
}

// WithGenerator replaces the default generator.
func WithGenerator(g *xmlwriter.Generator) Option {
	return func(c *Converter) { c.generator = g }
}

// WithValidator replaces the validator used for self-validation.
func WithValidator(v *validation.Validator) Option {
	return func(c *Converter) { c.validator = v }
}

// =============================================================================
// CONSTRUCTOR
// =============================================================================

// New creates a new Converter.
//
// PARAMETERS:
//   - cfg: The loaded configuration.
//   - logger: The structured logger. Nil discards.
//   - opts: Optional overrides.
//
// RETURNS:
//   - A new Converter instance.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Converter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var validatorOpts []validation.Option
	if cfg.SchemaFile != "" {
		validatorOpts = append(validatorOpts, validation.WithSchemaChecker(validation.NewXMLLintChecker(cfg.SchemaFile)))
	}

	c := &Converter{
		cfg:       cfg,
		logger:    logger,
		files:     utils.NewFileManager(cfg.Directories.Output, cfg.Directories.InputArchive, cfg.Directories.Logs),
		generator: xmlwriter.NewGenerator(),
		validator: validation.NewValidator(validatorOpts...),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the pipeline for one input file.
//
// PARAMETERS:
//   - inputPath: The CSV or XLSX file holding the slip records.
//
// RETURNS:
//   - A Result describing the outcome. Run never panics on bad input; every
//     failure is reported through Result.Error and Result.Report.
func (c *Converter) Run(inputPath string) Result {
	startTime := time.Now()
	result := Result{
		RunID:     uuid.NewString(),
		InputPath: inputPath,
		Report:    report.New(),
	}
	log := c.logger.With("run", result.RunID, "input", filepath.Base(inputPath))

	finish := func(err error) Result {
		result.Error = err
		result.Success = err == nil
		result.Elapsed = time.Since(startTime)
		if err != nil {
			log.Error("conversion failed", "error", err, "findings", result.Report.Summary())
			c.writeFindingsLog(log, &result)
		}
		return result
	}

	log.Info("processing file")

	// =========================================================================
	// STEP 1-2: LOAD AND MAP RECORDS
	// =========================================================================

	records, err := LoadRecords(inputPath, c.cfg.Input)
	if err != nil {
		return finish(err)
	}
	log.Debug("loaded records", "count", len(records))

	// =========================================================================
	// STEP 3: GENERATE
	// =========================================================================

	generated, err := c.generator.Generate(c.cfg.Metadata(), c.cfg.IssuerInfo(), records)
	if err != nil {
		result.Report.Add(report.FindingsOf(err)...)
		return finish(err)
	}
	result.Report.Merge(generated.Report)
	result.Filename = generated.Filename
	result.Summary = generated.Summary

	for i := range generated.Slips {
		log.Debug("built " + slip.Describe(&generated.Slips[i]))
	}
	log.Info("generated transmission",
		"filename", generated.Filename,
		"slips", generated.Summary.SlipCount,
		"bytes", len(generated.XML),
		"warnings", len(generated.Report.Warnings()))

	// =========================================================================
	// STEP 4: SELF-VALIDATION
	// =========================================================================

	if c.cfg.Processing.ShouldValidate() {
		check := c.validator.ValidateBytes(generated.XML)
		result.Report.Merge(check)
		if check.HasErrors() {
			return finish(fmt.Errorf("%w: %s", ErrSelfValidation, check.Summary()))
		}
		log.Debug("self-validation passed", "findings", check.Summary())
	}

	if c.dryRun {
		log.Info("dry run, nothing written")
		return finish(nil)
	}

	// =========================================================================
	// STEP 5: WRITE OUTPUT FILE
	// =========================================================================

	if err := c.files.EnsureDirectories(); err != nil {
		return finish(err)
	}

	outputPath, err := c.files.WriteOutput(generated.Filename, generated.XML)
	if err != nil {
		return finish(fmt.Errorf("failed to write output: %w", err))
	}
	result.OutputPath = outputPath
	log.Info("wrote transmission", "path", outputPath)

	// =========================================================================
	// STEP 6-7: FINDINGS LOG AND ARCHIVAL
	// =========================================================================

	c.writeFindingsLog(log, &result)

	if c.cfg.Processing.ShouldArchive() {
		// A failed archive does not invalidate the transmission.
		if archived, err := c.files.ArchiveInputFile(inputPath); err != nil {
			log.Warn("failed to archive input", "error", err)
		} else {
			log.Debug("archived input", "path", archived)
		}
	}

	return finish(nil)
}

// writeFindingsLog records the run's findings next to the outputs.
func (c *Converter) writeFindingsLog(log *slog.Logger, result *Result) {
	if c.dryRun || result.Report.IsClean() {
		return
	}
	if err := c.files.EnsureDirectories(); err != nil {
		log.Warn("cannot write findings log", "error", err)
		return
	}
	path, err := c.files.WriteReportLog(result.RunID, result.InputPath, result.Report)
	if err != nil {
		log.Warn("cannot write findings log", "error", err)
		return
	}
	result.LogPath = path
}

// =============================================================================
// RECORD LOADING
// =============================================================================

// LoadRecords reads the slip records of a CSV or XLSX file.
//
// PARAMETERS:
//   - path: The input file. The extension selects the loader.
//   - settings: The loader settings (delimiter, sheet).
//
// RETURNS:
//   - The records, in file order.
//   - ErrUnsupportedInput, a loader error, or an error wrapping ErrInvalidRows.
func LoadRecords(path string, settings config.InputConfig) ([]types.SlipRecord, error) {
	var rows []types.SourceRow

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		data, err := csvparser.Parse(path, settings)
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSV: %w", err)
		}
		rows = data.Rows
	case ".xlsx", ".xlsm":
		data, err := xlsxparser.Parse(path, settings.Sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to parse workbook: %w", err)
		}
		rows = data.Rows
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedInput, filepath.Base(path))
	}

	return RowsToRecords(rows)
}
