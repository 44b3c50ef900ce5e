// =============================================================================
// RL-24 Transmission - Version Command
// =============================================================================
//
// COMMAND USAGE:
//   rl24 version
//
// OUTPUT:
//   RL-24 Transmission
//   Version:    1.0.0
//   Build Date: 2024-01-01
//   Software:   rl24-transmission 1.0
//   Go Version: go1.24.0
//
// =============================================================================

package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/rl24-transmission/internal/xmlwriter"
)

// These variables are set at build time using ldflags:
//   go build -ldflags "-X 'github.com/ginjaninja78/rl24-transmission/cmd.Version=1.0.0'"

// Version is the application version.
var Version = "1.0.0"

// BuildDate is the date the application was built.
var BuildDate = "unknown"

// versionCmd represents the 'version' command.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the application version",
	Long:  `Display the application version, build date, the software declared in transmissions, and the Go runtime version.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "RL-24 Transmission")
		fmt.Fprintf(out, "Version:    %s\n", Version)
		fmt.Fprintf(out, "Build Date: %s\n", BuildDate)
		fmt.Fprintf(out, "Software:   %s %s\n", xmlwriter.DefaultSoftwareName, xmlwriter.DefaultSoftwareVersion)
		fmt.Fprintf(out, "Go Version: %s\n", runtime.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
