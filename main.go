// =============================================================================
// RL-24 Transmission - Main Entry Point
// =============================================================================
//
// USAGE:
//   rl24 generate    - Build a transmission from a CSV or XLSX export
//   rl24 validate    - Check one or more transmission files
//   rl24 filename    - Print the mandated transmission filename
//   rl24 xsd         - Print the XSD describing the transmission layout
//   rl24 serve       - Run the HTTP API
//   rl24 version     - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Core logic (types, schema, slip, xmlwriter, validation,
//                      loaders, converter, api, config, logger)
//   - pkg/           : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/rl24-transmission/cmd"
)

func main() {
	cmd.Execute()
}
