// =============================================================================
// RL-24 Transmission - Findings and Reports
// =============================================================================
//
// Every stage of the pipeline communicates problems through findings instead
// of returning on the first failure:
//   - the slip builder returns the findings of one record
//   - the generator merges them and adds batch-level findings
//   - the validator accumulates findings over all of its phases
//
// A finding is either an Error (the transmission must not be filed) or a
// Warning (advisory, surfaced to the operator).
//
// =============================================================================

package report

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// TAXONOMY
// =============================================================================

// Kind classifies a finding.
type Kind string

const (
	KindXMLMalformed    Kind = "XmlMalformed"
	KindMissingElement  Kind = "MissingElement"
	KindInvalidValue    Kind = "InvalidValue"
	KindInvalidFormat   Kind = "InvalidFormat"
	KindBusinessRule    Kind = "BusinessRule"
	KindSchemaInvalid   Kind = "SchemaInvalid"
	KindFileConstraint  Kind = "FileConstraint"
	KindSummaryMismatch Kind = "SummaryMismatch"
)

// Severity tells whether a finding blocks filing.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// =============================================================================
// FINDING
// =============================================================================

// Finding is a single validation or generation outcome.
type Finding struct {
	Kind     Kind     `json:"kind"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`

	// Field is the element or input field the finding is about.
	Field string `json:"field,omitempty"`

	// SlipIndex is the 1-based slip position. Zero means transmission level.
	SlipIndex int `json:"slip_index,omitempty"`

	// Line and Column locate parser findings in the source text.
	Line   int `json:"line,omitempty"`
	Column int `json:"column,omitempty"`
}

// Errorf builds an Error finding.
func Errorf(kind Kind, field string, format string, args ...any) Finding {
	return Finding{
		Kind:     kind,
		Severity: SeverityError,
		Field:    field,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Warnf builds a Warning finding.
func Warnf(kind Kind, field string, format string, args ...any) Finding {
	return Finding{
		Kind:     kind,
		Severity: SeverityWarning,
		Field:    field,
		Message:  fmt.Sprintf(format, args...),
	}
}

// InSlip scopes the finding to a slip.
func (f Finding) InSlip(index int) Finding {
	f.SlipIndex = index
	return f
}

// At attaches a source position.
func (f Finding) At(line, column int) Finding {
	f.Line = line
	f.Column = column
	return f
}

// IsError reports whether the finding blocks filing.
func (f Finding) IsError() bool {
	return f.Severity == SeverityError
}

// String renders the finding on one line.
func (f Finding) String() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(strings.ToUpper(string(f.Severity)))
	b.WriteString("] ")
	b.WriteString(string(f.Kind))
	if f.SlipIndex > 0 {
		fmt.Fprintf(&b, " slip %d", f.SlipIndex)
	}
	if f.Field != "" {
		fmt.Fprintf(&b, " %s", f.Field)
	}
	if f.Line > 0 {
		fmt.Fprintf(&b, " (line %d, column %d)", f.Line, f.Column)
	}
	b.WriteString(": ")
	b.WriteString(f.Message)
	return b.String()
}

// Findings is an ordered list of findings.
type Findings []Finding

// HasErrors reports whether any finding is an Error.
func (fs Findings) HasErrors() bool {
	for _, f := range fs {
		if f.IsError() {
			return true
		}
	}
	return false
}

// =============================================================================
// REPORT
// =============================================================================

// Report accumulates findings in the order they were produced.
// The zero value is ready to use.
type Report struct {
	Findings Findings `json:"findings"`
}

// New creates an empty report.
func New() *Report {
	return &Report{Findings: Findings{}}
}

// Add appends findings.
func (r *Report) Add(findings ...Finding) {
	r.Findings = append(r.Findings, findings...)
}

// Merge appends every finding of another report.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	r.Findings = append(r.Findings, other.Findings...)
}

// HasErrors reports whether the transmission must not be filed.
func (r *Report) HasErrors() bool {
	return r.Findings.HasErrors()
}

// HasWarnings reports whether any advisory finding exists.
func (r *Report) HasWarnings() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityWarning {
			return true
		}
	}
	return false
}

// IsClean reports whether the report has no findings at all.
func (r *Report) IsClean() bool {
	return len(r.Findings) == 0
}

// Errors returns the Error findings.
func (r *Report) Errors() Findings {
	return r.filter(func(f Finding) bool { return f.Severity == SeverityError })
}

// Warnings returns the Warning findings.
func (r *Report) Warnings() Findings {
	return r.filter(func(f Finding) bool { return f.Severity == SeverityWarning })
}

// OfKind returns the findings of one kind, any severity.
func (r *Report) OfKind(kind Kind) Findings {
	return r.filter(func(f Finding) bool { return f.Kind == kind })
}

// Count returns how many findings of kind the report holds.
func (r *Report) Count(kind Kind) int {
	return len(r.OfKind(kind))
}

// ForSlip returns the findings scoped to one slip.
func (r *Report) ForSlip(index int) Findings {
	return r.filter(func(f Finding) bool { return f.SlipIndex == index })
}

func (r *Report) filter(keep func(Finding) bool) Findings {
	out := Findings{}
	for _, f := range r.Findings {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}

// Summary renders the error and warning counts on one line.
func (r *Report) Summary() string {
	return fmt.Sprintf("%d error(s), %d warning(s)", len(r.Errors()), len(r.Warnings()))
}

// Format renders the report for display or logging.
func (r *Report) Format() string {
	if r.IsClean() {
		return "No findings."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s:\n\n", r.Summary())
	for i, f := range r.Findings {
		fmt.Fprintf(&b, "%d. %s\n", i+1, f.String())
	}
	return b.String()
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrGenerationFailed is returned (wrapped) when generation produced no file.
var ErrGenerationFailed = errors.New("transmission generation failed")

// FindingsError carries the findings that aborted an operation.
type FindingsError struct {
	Findings Findings
}

func (e *FindingsError) Error() string {
	errs := 0
	first := ""
	for _, f := range e.Findings {
		if f.IsError() {
			if errs == 0 {
				first = f.String()
			}
			errs++
		}
	}
	if errs == 0 {
		return ErrGenerationFailed.Error()
	}
	if errs == 1 {
		return fmt.Sprintf("%s: %s", ErrGenerationFailed, first)
	}
	return fmt.Sprintf("%s: %s (and %d more)", ErrGenerationFailed, first, errs-1)
}

func (e *FindingsError) Unwrap() error {
	return ErrGenerationFailed
}

// FindingsOf extracts the findings carried by err, if any.
func FindingsOf(err error) Findings {
	var fe *FindingsError
	if errors.As(err, &fe) {
		return fe.Findings
	}
	return nil
}
