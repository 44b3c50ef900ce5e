// =============================================================================
// RL-24 Transmission - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command
// is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (rl24)
//   ├── generateCmd (rl24 generate)
//   ├── validateCmd (rl24 validate)
//   ├── filenameCmd (rl24 filename)
//   ├── xsdCmd      (rl24 xsd)
//   ├── serveCmd    (rl24 serve)
//   └── versionCmd  (rl24 version)
//
// CONFIGURATION:
//   --config names the YAML file. Without it, ./config.yaml is used when it
//   exists; otherwise the defaults plus the RL24_* environment apply.
//
// =============================================================================

package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/rl24-transmission/internal/config"
	"github.com/ginjaninja78/rl24-transmission/internal/logger"
	"github.com/ginjaninja78/rl24-transmission/pkg/utils"
)

const defaultConfigFile = "config.yaml"

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "rl24",
	Short: "RL-24 Transmission - build and check childcare expense slip filings",
	Long: `rl24 produces the XML transmission a childcare provider files for the
RL-24 slips (childcare expenses) of a tax year, and checks transmissions
before they are sent.

Key Features:
  - Slip records from CSV or XLSX exports
  - Every problem reported at once, with slip and field
  - Summary totals derived from the slips
  - Validation of generated or received files, with an optional XSD
  - HTTP API for other systems

Example Usage:
  rl24 generate --input slips.csv          # Build and write a transmission
  rl24 validate 24000123001.xml            # Check a transmission
  rl24 filename --year 2024 --preparer NP000123 --sequence 1`,

	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the CLI. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"Path to the configuration file (default ./config.yaml when present)",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// loadConfig resolves the configuration file and builds the logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	path := cfgFile
	if path == "" && utils.FileExists(defaultConfigFile) {
		path = defaultConfigFile
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, nil, err
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	log := logger.New(level)
	if path != "" {
		log.Debug("loaded configuration", "path", path)
	}
	return cfg, log, nil
}
