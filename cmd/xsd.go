package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/rl24-transmission/internal/xmlwriter"
)

var xsdOutput string

// xsdCmd prints the XSD describing the layout the generator writes. The
// output can be handed back to `validate --schema`.
var xsdCmd = &cobra.Command{
	Use:   "xsd",
	Short: "Print the XSD describing the transmission layout",
	RunE: func(cmd *cobra.Command, args []string) error {
		data := xmlwriter.GenerateXSD()

		if xsdOutput == "" {
			_, err := cmd.OutOrStdout().Write(data)
			return err
		}
		if err := os.WriteFile(xsdOutput, data, 0644); err != nil {
			return fmt.Errorf("failed to write XSD: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "XSD written to %s\n", xsdOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(xsdCmd)

	xsdCmd.Flags().StringVarP(&xsdOutput, "output", "o", "", "Write the XSD to this file instead of stdout")
}
