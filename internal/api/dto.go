package api

import (
	"github.com/ginjaninja78/rl24-transmission/internal/report"
	"github.com/ginjaninja78/rl24-transmission/internal/types"
)

// =============================================================================
// REQUESTS
// =============================================================================

// GenerateRequest is the body of POST /api/generate.
type GenerateRequest struct {
	Metadata types.TransmissionMetadata `json:"metadata"`
	Issuer   types.Issuer               `json:"issuer"`
	Records  []types.SlipRecord         `json:"records"`
}

// =============================================================================
// RESPONSES
// =============================================================================

// GenerateResponse is returned when a transmission was produced.
type GenerateResponse struct {
	Filename string              `json:"filename"`
	Summary  types.SummaryTotals `json:"summary"`
	XML      string              `json:"xml"`
	Findings report.Findings     `json:"findings"`
}

// FindingsResponse is returned when generation was refused.
type FindingsResponse struct {
	Error    string          `json:"error"`
	Findings report.Findings `json:"findings"`
}

// ValidateResponse is the outcome of POST /api/validate.
type ValidateResponse struct {
	// Valid is true when the transmission may be filed.
	Valid    bool            `json:"valid"`
	Summary  string          `json:"summary"`
	Findings report.Findings `json:"findings"`
}

// FilenameResponse is the outcome of GET /api/filename.
type FilenameResponse struct {
	Filename string `json:"filename"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}
