package validation_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/rl24-transmission/internal/report"
	"github.com/ginjaninja78/rl24-transmission/internal/types"
	"github.com/ginjaninja78/rl24-transmission/internal/validation"
	"github.com/ginjaninja78/rl24-transmission/internal/xmlwriter"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func fixedClock() time.Time {
	return time.Date(2025, time.February, 15, 0, 0, 0, 0, time.UTC)
}

func newValidator(opts ...validation.Option) *validation.Validator {
	return validation.NewValidator(append([]validation.Option{validation.WithClock(fixedClock)}, opts...)...)
}

func slipRecord(last, first, sin string, days int, eligible, contribution string) types.SlipRecord {
	return types.SlipRecord{
		Recipient: types.Recipient{
			IdentityNumber: sin,
			LastName:       last,
			FirstName:      "Parent",
			Address:        types.Address{Line1: "123 rue Principale", City: "Montréal", PostalCode: "H2X1Y4"},
		},
		Child:                  types.Child{LastName: last, FirstName: first, BirthDate: "2019-05-14"},
		Days:                   days,
		AmountPaid:             decimal.RequireFromString(eligible),
		EligibleAmount:         decimal.RequireFromString(eligible),
		GovernmentContribution: decimal.RequireFromString(contribution),
	}
}

// generate builds a transmission with the generator so the tests start from
// a document known to be valid.
func generate(t *testing.T, records ...types.SlipRecord) string {
	t.Helper()
	if len(records) == 0 {
		records = []types.SlipRecord{slipRecord("Tremblay", "Léa", "046454286", 180, "4500", "500")}
	}
	meta := types.TransmissionMetadata{PreparerNumber: "NP000123", TaxYear: 2024, SequenceNumber: 1}
	iss := types.Issuer{
		EnterpriseNumber: "1234567890",
		NameLine1:        "CPE Les Petits Pas",
		Address:          types.Address{Line1: "10 rue des Érables", City: "Québec", PostalCode: "G1R2B5"},
	}

	result, err := xmlwriter.NewGenerator(xmlwriter.WithClock(fixedClock)).Generate(meta, iss, records)
	require.NoError(t, err)
	return string(result.XML)
}

// mutate replaces the first occurrence of old, failing when it is absent.
func mutate(t *testing.T, doc, old, replacement string) string {
	t.Helper()
	require.Contains(t, doc, old)
	return strings.Replace(doc, old, replacement, 1)
}

// countOf counts the findings of one kind and severity.
func countOf(rep *report.Report, kind report.Kind, severity report.Severity) int {
	n := 0
	for _, f := range rep.OfKind(kind) {
		if f.Severity == severity {
			n++
		}
	}
	return n
}

func hasFinding(rep *report.Report, kind report.Kind, severity report.Severity, field string) bool {
	for _, f := range rep.Findings {
		if f.Kind == kind && f.Severity == severity && f.Field == field {
			return true
		}
	}
	return false
}

// =============================================================================
// ROUND TRIP
// =============================================================================

func TestValidate_GeneratedTransmissionIsClean(t *testing.T) {
	// GIVEN: A transmission produced by the generator
	doc := generate(t,
		slipRecord("Tremblay", "Léa", "046454286", 180, "4500", "500"),
		slipRecord("Gagnon", "Noah", "", 200, "5000.50", "0"),
	)

	// WHEN: Validating it
	rep := newValidator().ValidateText(doc)

	// THEN: There is nothing to report
	assert.True(t, rep.IsClean(), rep.Format())
}

func TestValidate_GeneratedTextWithNonXMLCharactersIsClean(t *testing.T) {
	// GIVEN: Names carrying runes XML 1.0 cannot hold
	doc := generate(t, slipRecord("Roy\uFFFE", "Emma\uFFFF", "046454286", 20, "1000", "0"))

	// WHEN: Validating the generated text
	rep := newValidator().ValidateText(doc)

	// THEN: The runes were dropped and the document is well-formed and clean
	assert.True(t, rep.IsClean(), rep.Format())
	assert.Contains(t, doc, "<Last>Roy</Last>")
	assert.Contains(t, doc, "<First>Emma</First>")
}

// =============================================================================
// WELL-FORMEDNESS
// =============================================================================

func TestValidate_MalformedDocument(t *testing.T) {
	doc := generate(t)
	truncated := doc[:strings.Index(doc, "<Summary>")]

	rep := newValidator().ValidateText(truncated)

	require.True(t, rep.HasErrors())
	malformed := rep.OfKind(report.KindXMLMalformed)
	require.NotEmpty(t, malformed)
	assert.Greater(t, malformed[0].Line, 0)
}

func TestValidate_EmptyInput(t *testing.T) {
	rep := newValidator().ValidateText("")

	assert.True(t, rep.HasErrors())
	assert.Equal(t, 1, rep.Count(report.KindXMLMalformed))
}

func TestValidate_NamespaceMismatchWarns(t *testing.T) {
	doc := mutate(t, generate(t), `xmlns="http://www.mrq.gouv.qc.ca/T5"`, `xmlns="urn:other"`)

	rep := newValidator().ValidateText(doc)

	assert.False(t, rep.HasErrors(), rep.Format())
	assert.True(t, hasFinding(rep, report.KindXMLMalformed, report.SeverityWarning, "Transmission"))
}

// =============================================================================
// STRUCTURE AND FIELDS
// =============================================================================

func TestValidate_MissingBox10(t *testing.T) {
	// GIVEN: A slip without Box 10
	doc := mutate(t, generate(t), "<Box10>180</Box10>", "")

	// WHEN: Validating
	rep := newValidator().ValidateText(doc)

	// THEN: The missing element is reported for slip 1, and the day total is
	// not reconciled against an incomplete slip
	assert.True(t, hasFinding(rep, report.KindMissingElement, report.SeverityError, "Box10"))
	assert.Zero(t, rep.Count(report.KindSummaryMismatch))
}

func TestValidate_MissingGroupStillChecksHeader(t *testing.T) {
	doc := generate(t)
	start := strings.Index(doc, "<Group>")
	end := strings.Index(doc, "</Group>") + len("</Group>")
	doc = doc[:start] + doc[end:]
	doc = mutate(t, doc, "<TransmissionType>O</TransmissionType>", "<TransmissionType>Z</TransmissionType>")

	rep := newValidator().ValidateText(doc)

	assert.True(t, hasFinding(rep, report.KindMissingElement, report.SeverityError, "Group"))
	assert.True(t, hasFinding(rep, report.KindInvalidValue, report.SeverityError, "TransmissionType"))
}

func TestValidate_IdentityNumberChecksum(t *testing.T) {
	doc := generate(t, slipRecord("Tremblay", "Léa", "046454287", 180, "4500", "500"))

	rep := newValidator().ValidateText(doc)

	assert.True(t, hasFinding(rep, report.KindInvalidFormat, report.SeverityError, "IdentityNumber"))
}

func TestValidate_ShortIdentityNumber(t *testing.T) {
	doc := mutate(t, generate(t), "<IdentityNumber>046454286</IdentityNumber>", "<IdentityNumber>46454286</IdentityNumber>")

	rep := newValidator().ValidateText(doc)

	assert.True(t, hasFinding(rep, report.KindInvalidFormat, report.SeverityError, "IdentityNumber"))
}

func TestValidate_BadAmountFormat(t *testing.T) {
	doc := mutate(t, generate(t), "<Box11>4500.00</Box11>", "<Box11>4,500.00</Box11>")

	rep := newValidator().ValidateText(doc)

	assert.True(t, hasFinding(rep, report.KindInvalidFormat, report.SeverityError, "Box11"))
	assert.Zero(t, rep.Count(report.KindSummaryMismatch), "Box 11 total is not reconciled")
}

func TestValidate_TaxYearWindow(t *testing.T) {
	doc := mutate(t, generate(t), "<TaxYear>2024</TaxYear>", "<TaxYear>1999</TaxYear>")

	rep := newValidator().ValidateText(doc)

	assert.True(t, hasFinding(rep, report.KindInvalidValue, report.SeverityError, "TaxYear"))
}

func TestValidate_SequenceNumberRange(t *testing.T) {
	doc := mutate(t, generate(t), "<SequenceNumber>1</SequenceNumber>", "<SequenceNumber>1000</SequenceNumber>")

	rep := newValidator().ValidateText(doc)

	assert.True(t, hasFinding(rep, report.KindInvalidValue, report.SeverityError, "SequenceNumber"))
}

func TestValidate_PostalCodeFormat(t *testing.T) {
	doc := mutate(t, generate(t), "<PostalCode>H2X1Y4</PostalCode>", "<PostalCode>12345</PostalCode>")

	rep := newValidator().ValidateText(doc)

	assert.True(t, hasFinding(rep, report.KindInvalidFormat, report.SeverityError, "Recipient/Address/PostalCode"))
}

// =============================================================================
// BUSINESS RULES
// =============================================================================

func TestValidate_ServicePeriodOrder(t *testing.T) {
	doc := generate(t)
	doc = mutate(t, doc, "<Start>2024-01-01</Start>", "<Start>2024-12-31</Start>")
	doc = mutate(t, doc, "<End>2024-12-31</End>", "<End>2024-01-01</End>")

	rep := newValidator().ValidateText(doc)

	assert.True(t, hasFinding(rep, report.KindBusinessRule, report.SeverityError, "ServicePeriod"))
}

func TestValidate_Box14MismatchIsWarning(t *testing.T) {
	// GIVEN: Box 14 edited away from Box 12 - Box 13
	doc := mutate(t, generate(t), "<Box14>4000.00</Box14>", "<Box14>3000.00</Box14>")

	// WHEN: Validating
	rep := newValidator().ValidateText(doc)

	// THEN: Both the slip rule and the Box 14 total warn; nothing blocks filing
	assert.False(t, rep.HasErrors(), rep.Format())
	assert.True(t, hasFinding(rep, report.KindBusinessRule, report.SeverityWarning, "Box14"))
	assert.Equal(t, 1, countOf(rep, report.KindBusinessRule, report.SeverityWarning))
	assert.True(t, hasFinding(rep, report.KindSummaryMismatch, report.SeverityWarning, "Summary/TotalBox14"))
}

func TestValidate_Box14WithinToleranceIsClean(t *testing.T) {
	// GIVEN: eligible 100.00, contribution 20.00, net 80.00
	doc := generate(t, slipRecord("Tremblay", "Léa", "046454286", 10, "100", "20"))
	require.Contains(t, doc, "<Box14>80.00</Box14>")

	// WHEN: Validating, then validating again with net 75.00
	clean := newValidator().ValidateText(doc)
	changed := newValidator().ValidateText(mutate(t, doc, "<Box14>80.00</Box14>", "<Box14>75.00</Box14>"))

	// THEN: Only the changed document carries exactly one Box 14 warning
	assert.Zero(t, clean.Count(report.KindBusinessRule))
	assert.Equal(t, 1, countOf(changed, report.KindBusinessRule, report.SeverityWarning))
	assert.Zero(t, countOf(changed, report.KindBusinessRule, report.SeverityError))
}

func TestValidate_TotalDaysMismatchIsError(t *testing.T) {
	// GIVEN: Two slips of 10 and 5 days, with the declared total edited to 16
	doc := generate(t,
		slipRecord("Tremblay", "Léa", "046454286", 10, "50", "0"),
		slipRecord("Gagnon", "Noah", "", 5, "25", "0"),
	)
	doc = mutate(t, doc, "<TotalDays>15</TotalDays>", "<TotalDays>16</TotalDays>")

	// WHEN: Validating
	rep := newValidator().ValidateText(doc)

	// THEN: Exactly one SummaryMismatch error, and it is the only error
	assert.True(t, hasFinding(rep, report.KindSummaryMismatch, report.SeverityError, "Summary/TotalDays"))
	assert.Equal(t, 1, countOf(rep, report.KindSummaryMismatch, report.SeverityError))
	assert.Len(t, rep.Errors(), 1)
}

func TestValidate_TotalSlipsMismatchIsError(t *testing.T) {
	doc := mutate(t, generate(t), "<TotalSlips>1</TotalSlips>", "<TotalSlips>2</TotalSlips>")

	rep := newValidator().ValidateText(doc)

	assert.True(t, hasFinding(rep, report.KindSummaryMismatch, report.SeverityError, "Summary/TotalSlips"))
}

func TestValidate_MoneyTotalWithinTolerance(t *testing.T) {
	doc := mutate(t, generate(t), "<TotalBox11>4500.00</TotalBox11>", "<TotalBox11>4500.01</TotalBox11>")

	rep := newValidator().ValidateText(doc)

	assert.True(t, rep.IsClean(), rep.Format())
}

func TestValidate_DuplicateSlipNumbers(t *testing.T) {
	doc := generate(t,
		slipRecord("Tremblay", "Léa", "046454286", 180, "4500", "500"),
		slipRecord("Gagnon", "Noah", "", 200, "5000", "0"),
	)
	doc = mutate(t, doc, "<SlipNumber>2</SlipNumber>", "<SlipNumber>1</SlipNumber>")

	rep := newValidator().ValidateText(doc)

	require.True(t, hasFinding(rep, report.KindBusinessRule, report.SeverityError, "SlipNumber"))
	assert.Equal(t, 2, rep.OfKind(report.KindBusinessRule)[0].SlipIndex)
}

func TestValidate_AmendedSlipNeedsReference(t *testing.T) {
	doc := mutate(t, generate(t), "<TypeCode>O</TypeCode>", "<TypeCode>A</TypeCode>")

	rep := newValidator().ValidateText(doc)

	assert.True(t, hasFinding(rep, report.KindBusinessRule, report.SeverityError, "OriginalSlipNumber"))
}

func TestValidate_CancelledSlipWithAmountsWarns(t *testing.T) {
	doc := mutate(t, generate(t), "<TypeCode>O</TypeCode>",
		"<TypeCode>D</TypeCode><OriginalSlipNumber>77</OriginalSlipNumber>")

	rep := newValidator().ValidateText(doc)

	assert.False(t, rep.HasErrors(), rep.Format())
	assert.True(t, hasFinding(rep, report.KindBusinessRule, report.SeverityWarning, "Slip"))
}

// =============================================================================
// EXTERNAL SCHEMA CHECK
// =============================================================================

func TestValidate_SchemaCheckerFindings(t *testing.T) {
	checker := validation.SchemaCheckerFunc(func(doc []byte) []error {
		return []error{errors.New("element Foo: not expected"), errors.New("element Bar: missing")}
	})

	rep := newValidator(validation.WithSchemaChecker(checker)).ValidateText(generate(t))

	assert.Equal(t, 2, rep.Count(report.KindSchemaInvalid))
}

func TestValidate_SchemaCheckerSkippedWhenMalformed(t *testing.T) {
	called := false
	checker := validation.SchemaCheckerFunc(func(doc []byte) []error {
		called = true
		return nil
	})

	newValidator(validation.WithSchemaChecker(checker)).ValidateText("<Transmission>")

	assert.False(t, called)
}

// =============================================================================
// FILE CONSTRAINTS
// =============================================================================

func TestValidate_TooManySlips(t *testing.T) {
	// GIVEN: A transmission whose single slip is repeated to 1001 slips
	doc := generate(t)
	start := strings.Index(doc, "<Slip>")
	end := strings.Index(doc, "</Slip>") + len("</Slip>")
	require.Greater(t, start, 0)
	doc = doc[:end] + strings.Repeat(doc[start:end], 1000) + doc[end:]
	require.Equal(t, 1001, strings.Count(doc, "<Slip>"))

	// WHEN: Validating
	rep := newValidator().ValidateText(doc)

	// THEN: The slip limit is reported once, as an error
	assert.Equal(t, 1, countOf(rep, report.KindFileConstraint, report.SeverityError))
	assert.True(t, hasFinding(rep, report.KindFileConstraint, report.SeverityError, "Group/Slip"))
}

func TestValidate_ExactlyTheSlipLimit(t *testing.T) {
	doc := generate(t)
	start := strings.Index(doc, "<Slip>")
	end := strings.Index(doc, "</Slip>") + len("</Slip>")
	doc = doc[:end] + strings.Repeat(doc[start:end], 999) + doc[end:]

	rep := newValidator().ValidateText(doc)

	assert.Zero(t, rep.Count(report.KindFileConstraint))
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "24000123001.xml")
	require.NoError(t, os.WriteFile(path, []byte(generate(t)), 0644))

	t.Run("valid file", func(t *testing.T) {
		rep := newValidator().ValidateFile(path)
		assert.True(t, rep.IsClean(), rep.Format())
	})

	t.Run("missing file", func(t *testing.T) {
		rep := newValidator().ValidateFile(filepath.Join(dir, "nope.xml"))
		assert.Equal(t, 1, rep.Count(report.KindFileConstraint))
	})

	t.Run("directory", func(t *testing.T) {
		rep := newValidator().ValidateFile(dir)
		assert.Equal(t, 1, rep.Count(report.KindFileConstraint))
	})

	t.Run("over the size limit", func(t *testing.T) {
		rep := newValidator(validation.WithMaxBytes(100)).ValidateFile(path)
		assert.Equal(t, 1, rep.Count(report.KindFileConstraint))
	})
}

func TestValidateBytes_OverSizeStillValidates(t *testing.T) {
	rep := newValidator(validation.WithMaxBytes(100)).ValidateText(generate(t))

	assert.Equal(t, 1, rep.Count(report.KindFileConstraint))
	assert.Len(t, rep.Findings, 1)
}
