// =============================================================================
// RL-24 Transmission - Validate Command
// =============================================================================
//
// This file defines the 'validate' command, which checks transmission files
// before they are filed.
//
// COMMAND USAGE:
//   rl24 validate FILE|DIR... [flags]
//
// FLAGS:
//   --schema : XSD handed to xmllint (overrides schema_file)
//   --json   : Print the reports as JSON
//
// A directory argument stands for every .xml file it contains. Files are
// checked concurrently, at most processing.max_concurrency at a time, and
// reported in argument order. The command fails when any file has errors.
//
// =============================================================================

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/rl24-transmission/internal/report"
	"github.com/ginjaninja78/rl24-transmission/internal/validation"
	"github.com/ginjaninja78/rl24-transmission/pkg/utils"
)

var (
	schemaPath string
	jsonOutput bool
)

// errInvalidTransmissions is returned when at least one file has errors.
var errInvalidTransmissions = errors.New("one or more transmissions are invalid")

var validateCmd = &cobra.Command{
	Use:   "validate FILE|DIR...",
	Short: "Check transmission files",
	Long: `The validate command checks each transmission for well-formedness, the
required structure, field formats, business rules and summary totals, and
prints every finding. With --schema (or schema_file) each file is also
checked against the XSD by xmllint.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&schemaPath, "schema", "", "XSD file checked with xmllint")
	validateCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the reports as JSON")
}

// fileReport pairs a file with its findings.
type fileReport struct {
	File   string         `json:"file"`
	Valid  bool           `json:"valid"`
	Report *report.Report `json:"report"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	files, err := expandArgs(args)
	if err != nil {
		return err
	}

	xsd := cfg.SchemaFile
	if schemaPath != "" {
		xsd = schemaPath
	}
	var opts []validation.Option
	if xsd != "" {
		opts = append(opts, validation.WithSchemaChecker(validation.NewXMLLintChecker(xsd)))
	}
	validator := validation.NewValidator(opts...)

	// =========================================================================
	// VALIDATE CONCURRENTLY
	// =========================================================================

	results := make([]fileReport, len(files))
	sem := make(chan struct{}, cfg.Processing.MaxConcurrency)
	var wg sync.WaitGroup

	for i, file := range files {
		wg.Add(1)
		go func(i int, file string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			rep := validator.ValidateFile(file)
			log.Debug("validated", "file", file, "result", rep.Summary())
			results[i] = fileReport{File: file, Valid: !rep.HasErrors(), Report: rep}
		}(i, file)
	}
	wg.Wait()

	// =========================================================================
	// REPORT
	// =========================================================================

	out := cmd.OutOrStdout()
	invalid := 0
	for _, r := range results {
		if !r.Valid {
			invalid++
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			mark := "✓"
			if !r.Valid {
				mark = "✗"
			}
			fmt.Fprintf(out, "%s %s: %s\n", mark, r.File, r.Report.Summary())
			if !r.Report.IsClean() {
				for _, f := range r.Report.Findings {
					fmt.Fprintf(out, "    %s\n", f.String())
				}
			}
		}
		fmt.Fprintf(out, "\n%d file(s) checked, %d invalid\n", len(results), invalid)
	}

	if invalid > 0 {
		return errInvalidTransmissions
	}
	return nil
}

// expandArgs replaces directory arguments with the .xml files they hold.
func expandArgs(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			// Missing files are reported by the validator.
			files = append(files, arg)
			continue
		}
		found, err := utils.DiscoverFiles(arg, ".xml")
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no transmission files found")
	}
	return files, nil
}
