// =============================================================================
// RL-24 Transmission - Validation Engine
// =============================================================================
//
// The validator re-reads a transmission, generated here or received from
// elsewhere, and reports every defect it can find in one pass.
//
// VALIDATION STRATEGY:
//   Validation runs in fixed phases. Each phase runs against whatever
//   structure is present, even when an earlier phase failed:
//   1. Well-formedness: parser problems, with line and column
//   2. External schema check (optional, pluggable)
//   3. Structure: required containers
//   4. Fields: formats, code lists and ranges, scoped per slip
//   5. Business rules: date order, Box 14, references, summary reconciliation
//
// ERROR HANDLING:
//   - Nothing here panics or returns an error for bad input
//   - Every problem is a finding in the returned report
//   - Per-slip findings carry the 1-based slip position
//
// =============================================================================

package validation

import (
	"os"
	"time"

	"github.com/ginjaninja78/rl24-transmission/internal/report"
	"github.com/ginjaninja78/rl24-transmission/internal/schema"
)

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator checks transmissions. It holds no state between calls and is
// safe for concurrent use.
type Validator struct {
	checker  SchemaChecker
	now      func() time.Time
	maxBytes int64
}

// Option customizes a Validator.
type Option func(*Validator)

// WithSchemaChecker enables the external schema phase.
func WithSchemaChecker(checker SchemaChecker) Option {
	return func(v *Validator) { v.checker = checker }
}

// WithClock sets the clock used for the tax year window.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// WithMaxBytes overrides the file size ceiling.
func WithMaxBytes(n int64) Option {
	return func(v *Validator) { v.maxBytes = n }
}

// NewValidator creates a validator with the filing defaults.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{
		now:      time.Now,
		maxBytes: schema.MaxFileSize,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// =============================================================================
// ENTRY POINTS
// =============================================================================

// ValidateText validates a transmission held in a string.
func (v *Validator) ValidateText(text string) *report.Report {
	return v.ValidateBytes([]byte(text))
}

// ValidateBytes validates a transmission held in memory.
func (v *Validator) ValidateBytes(data []byte) *report.Report {
	rep := report.New()
	if int64(len(data)) > v.maxBytes {
		rep.Add(report.Errorf(report.KindFileConstraint, "",
			"transmission is %d bytes, over the %d byte limit", len(data), v.maxBytes))
	}
	rep.Merge(v.Validate(Parse(data)))
	return rep
}

// ValidateFile validates the transmission stored at path. A missing,
// unreadable or oversized file is reported as a FileConstraint error.
func (v *Validator) ValidateFile(path string) *report.Report {
	rep := report.New()

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		rep.Add(report.Errorf(report.KindFileConstraint, "", "file not found: %s", path))
		return rep
	case err != nil:
		rep.Add(report.Errorf(report.KindFileConstraint, "", "cannot read %s: %v", path, err))
		return rep
	case info.IsDir():
		rep.Add(report.Errorf(report.KindFileConstraint, "", "%s is a directory", path))
		return rep
	case info.Size() > v.maxBytes:
		rep.Add(report.Errorf(report.KindFileConstraint, "",
			"%s is %d bytes, over the %d byte limit", path, info.Size(), v.maxBytes))
		return rep
	}

	data, err := os.ReadFile(path)
	if err != nil {
		rep.Add(report.Errorf(report.KindFileConstraint, "", "cannot read %s: %v", path, err))
		return rep
	}

	return v.ValidateBytes(data)
}

// Validate runs every phase against an already parsed document.
//
// PARAMETERS:
//   - doc: The result of Parse. Its parser findings open the report.
//
// RETURNS:
//   - The report. Filing is allowed iff it has no errors.
func (v *Validator) Validate(doc *Document) *report.Report {
	rep := report.New()

	// Phase 1: well-formedness.
	rep.Add(doc.Findings...)
	if doc.Root != nil && doc.Root.Space != schema.Namespace {
		rep.Add(report.Warnf(report.KindXMLMalformed, schema.ElemTransmission,
			"root namespace is %q, expected %q", doc.Root.Space, schema.Namespace).
			At(doc.Root.Line, doc.Root.Column))
	}

	// Phase 2: external schema. Skipped for documents the parser rejected.
	if v.checker != nil && doc.WellFormed() {
		for _, err := range v.checker.Check(doc.Raw) {
			rep.Add(report.Errorf(report.KindSchemaInvalid, "", "%v", err))
		}
	}

	c := &ruleSet{rep: rep, now: v.now()}

	// Phase 3: structure.
	c.checkStructure(doc.Root)

	// Phase 4: fields.
	c.checkTransmitter(doc.Root.Find(schema.ElemHeader, schema.ElemTransmitter))
	c.checkIssuer(doc.Root.Find(schema.ElemGroup, schema.ElemIssuer))
	slips := c.checkSlips(doc.Root.Child(schema.ElemGroup).All(schema.ElemSlip))
	summary := c.checkSummary(doc.Root.Find(schema.ElemGroup, schema.ElemSummary))

	// Phase 5: business rules.
	c.checkSlipRules(slips)
	c.checkReconciliation(slips, summary)

	return rep
}
