/*
handlers.go - HTTP handlers for the transmission service

PURPOSE:
  Exposes generation and validation over HTTP so other systems can file
  RL-24 slips without going through the CLI. Handlers decode the request,
  delegate to the generator or the validator, and serialize the outcome.

ENDPOINTS:
  GET  /health          Liveness probe
  POST /api/generate    JSON batch -> transmission text + findings
  POST /api/validate    Transmission text -> findings
  GET  /api/filename    Mandated filename for year/preparer/sequence

ERROR HANDLING:
  - 400: Malformed JSON or query parameters
  - 413: Body over the file size ceiling
  - 422: Generation refused; the findings explain why
  - 500: Anything unexpected
  Validation findings are never an HTTP error: /api/validate answers 200
  with valid=false.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ginjaninja78/rl24-transmission/internal/report"
	"github.com/ginjaninja78/rl24-transmission/internal/schema"
	"github.com/ginjaninja78/rl24-transmission/internal/validation"
	"github.com/ginjaninja78/rl24-transmission/internal/xmlwriter"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Generator *xmlwriter.Generator
	Validator *validation.Validator
	Logger    *slog.Logger

	// MaxBodyBytes caps request bodies. Default: the transmission size limit.
	MaxBodyBytes int64
}

// NewHandler creates a handler around a generator and a validator.
func NewHandler(generator *xmlwriter.Generator, validator *validation.Validator, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		Generator:    generator,
		Validator:    validator,
		Logger:       logger,
		MaxBodyBytes: schema.MaxFileSize,
	}
}

// =============================================================================
// HEALTH
// =============================================================================

// Health answers the liveness probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// GENERATION
// =============================================================================

// Generate builds a transmission from a JSON batch.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBodyBytes)

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if isTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large", err)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	result, err := h.Generator.Generate(req.Metadata, req.Issuer, req.Records)
	if err != nil {
		if errors.Is(err, report.ErrGenerationFailed) {
			h.Logger.Info("generation refused", "records", len(req.Records), "error", err)
			writeJSON(w, http.StatusUnprocessableEntity, FindingsResponse{
				Error:    err.Error(),
				Findings: nonNil(report.FindingsOf(err)),
			})
			return
		}
		writeError(w, http.StatusInternalServerError, "generation failed", err)
		return
	}

	h.Logger.Info("generated transmission",
		"filename", result.Filename,
		"slips", result.Summary.SlipCount,
		"bytes", len(result.XML))

	writeJSON(w, http.StatusOK, GenerateResponse{
		Filename: result.Filename,
		Summary:  result.Summary,
		XML:      string(result.XML),
		Findings: nonNil(result.Report.Findings),
	})
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the transmission text carried by the body.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBodyBytes)

	data, err := io.ReadAll(r.Body)
	if err != nil {
		if isTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large", err)
			return
		}
		writeError(w, http.StatusBadRequest, "cannot read request body", err)
		return
	}

	rep := h.Validator.ValidateBytes(data)
	h.Logger.Info("validated transmission", "bytes", len(data), "result", rep.Summary())

	writeJSON(w, http.StatusOK, ValidateResponse{
		Valid:    !rep.HasErrors(),
		Summary:  rep.Summary(),
		Findings: nonNil(rep.Findings),
	})
}

// =============================================================================
// FILENAME
// =============================================================================

// Filename derives the transmission filename from query parameters
// year, preparer and sequence.
func (h *Handler) Filename(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	year, err := strconv.Atoi(q.Get("year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "year must be an integer", err)
		return
	}
	sequence, err := strconv.Atoi(q.Get("sequence"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "sequence must be an integer", err)
		return
	}
	preparer := q.Get("preparer")
	if preparer == "" {
		writeError(w, http.StatusBadRequest, "preparer is required", nil)
		return
	}

	writeJSON(w, http.StatusOK, FilenameResponse{
		Filename: schema.GenerateFilename(year, preparer, sequence),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func isTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}

// nonNil keeps empty finding lists as [] in JSON.
func nonNil(fs report.Findings) report.Findings {
	if fs == nil {
		return report.Findings{}
	}
	return fs
}
