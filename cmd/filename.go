package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/rl24-transmission/internal/schema"
)

var (
	filenameYear     int
	filenamePreparer string
	filenameSequence int
)

// filenameCmd prints the filename a transmission must be filed under.
// Values not given on the command line come from the configuration.
var filenameCmd = &cobra.Command{
	Use:   "filename",
	Short: "Print the mandated transmission filename",
	Example: `  rl24 filename --year 2024 --preparer NP000123 --sequence 7
  24000123007.xml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		year := cfg.Transmitter.TaxYear
		if cmd.Flags().Changed("year") {
			year = filenameYear
		}
		preparer := cfg.Transmitter.PreparerNumber
		if cmd.Flags().Changed("preparer") {
			preparer = filenamePreparer
		}
		sequence := cfg.Transmitter.SequenceNumber
		if cmd.Flags().Changed("sequence") {
			sequence = filenameSequence
		}

		if preparer == "" {
			return fmt.Errorf("a preparer number is required (--preparer or transmitter.preparer_number)")
		}

		fmt.Fprintln(cmd.OutOrStdout(), schema.GenerateFilename(year, preparer, sequence))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(filenameCmd)

	filenameCmd.Flags().IntVar(&filenameYear, "year", 0, "Tax year")
	filenameCmd.Flags().StringVar(&filenamePreparer, "preparer", "", "Preparer number (NP + 6 digits)")
	filenameCmd.Flags().IntVar(&filenameSequence, "sequence", 0, "Sequence number (1..999)")
}
