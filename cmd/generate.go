// =============================================================================
// RL-24 Transmission - Generate Command
// =============================================================================
//
// This file defines the 'generate' command, which runs the conversion
// pipeline on one slip records export.
//
// COMMAND USAGE:
//   rl24 generate --input FILE [flags]
//
// FLAGS:
//   --input        : The CSV or XLSX export to convert (required)
//   --dry-run      : Generate and validate, but write nothing
//   --no-validate  : Skip re-validating the generated transmission
//   --sequence     : Override transmitter.sequence_number
//   --tax-year     : Override transmitter.tax_year
//
// PROCESSING PIPELINE:
//   1. Load configuration
//   2. Load and map the records
//   3. Generate the transmission
//   4. Re-validate it
//   5. Write it, write the findings log, archive the input
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/rl24-transmission/internal/converter"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	inputPath   string
	dryRun      bool
	noValidate  bool
	sequenceArg int
	taxYearArg  int
)

// =============================================================================
// GENERATE COMMAND DEFINITION
// =============================================================================

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Build a transmission from a slip records export",
	Long: `The generate command reads slip records from a CSV or XLSX export, builds
the RL-24 transmission for the configured preparer and issuer, checks it,
and writes it to the output directory under its mandated filename.

On success:
  - The transmission is written to the output directory
  - Warnings, if any, are written to a findings log
  - The input file is moved to the input archive

On error:
  - Nothing is written to the output directory
  - Every finding is printed and written to a findings log
  - The input file stays where it is`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runGenerate(cmd)
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&inputPath, "input", "i", "", "CSV or XLSX file holding the slip records")
	generateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Generate and validate without writing any file")
	generateCmd.Flags().BoolVar(&noValidate, "no-validate", false, "Skip re-validating the generated transmission")
	generateCmd.Flags().IntVar(&sequenceArg, "sequence", 0, "Override the transmission sequence number")
	generateCmd.Flags().IntVar(&taxYearArg, "tax-year", 0, "Override the tax year")

	generateCmd.MarkFlagRequired("input")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runGenerate(cmd *cobra.Command) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	if sequenceArg != 0 {
		cfg.Transmitter.SequenceNumber = sequenceArg
	}
	if taxYearArg != 0 {
		cfg.Transmitter.TaxYear = taxYearArg
	}
	if noValidate {
		off := false
		cfg.Processing.ValidateAfterGenerate = &off
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== RL-24 Transmission ===")

	result := converter.New(cfg, log, converter.WithDryRun(dryRun)).Run(inputPath)

	if !result.Report.IsClean() {
		fmt.Fprintln(out)
		fmt.Fprint(out, result.Report.Format())
	}

	fmt.Fprintln(out, "\n=== Generation Complete ===")
	fmt.Fprintf(out, "Input:           %s\n", result.InputPath)
	if result.Filename != "" {
		fmt.Fprintf(out, "Filename:        %s\n", result.Filename)
		fmt.Fprintf(out, "Slips:           %d\n", result.Summary.SlipCount)
		fmt.Fprintf(out, "Total days:      %d\n", result.Summary.TotalDays)
		fmt.Fprintf(out, "Total Box 11:    %s\n", result.Summary.TotalPaid.StringFixed(2))
		fmt.Fprintf(out, "Total Box 12:    %s\n", result.Summary.TotalEligible.StringFixed(2))
		fmt.Fprintf(out, "Total Box 13:    %s\n", result.Summary.TotalContribution.StringFixed(2))
		fmt.Fprintf(out, "Total Box 14:    %s\n", result.Summary.TotalNet.StringFixed(2))
	}
	if result.OutputPath != "" {
		fmt.Fprintf(out, "Written to:      %s\n", result.OutputPath)
	}
	if result.LogPath != "" {
		fmt.Fprintf(out, "Findings log:    %s\n", result.LogPath)
	}
	if dryRun {
		fmt.Fprintln(out, "Dry run:         nothing written")
	}
	fmt.Fprintf(out, "Findings:        %s\n", result.Report.Summary())
	fmt.Fprintf(out, "Time elapsed:    %s\n", result.Elapsed)

	if !result.Success {
		return result.Error
	}
	return nil
}
