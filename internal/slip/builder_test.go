package slip_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/rl24-transmission/internal/report"
	"github.com/ginjaninja78/rl24-transmission/internal/slip"
	"github.com/ginjaninja78/rl24-transmission/internal/types"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func validRecord() types.SlipRecord {
	return types.SlipRecord{
		Recipient: types.Recipient{
			IdentityNumber: "046 454 286",
			LastName:       "Tremblay",
			FirstName:      "Marie",
			Address: types.Address{
				Line1:      "123 rue Principale",
				City:       "Montréal",
				PostalCode: "h2x 1y4",
			},
		},
		Child: types.Child{
			LastName:  "Tremblay",
			FirstName: "Léa",
			BirthDate: "2019/05/14",
		},
		Days:                   180,
		AmountPaid:             dec("4500"),
		EligibleAmount:         dec("4500"),
		GovernmentContribution: dec("500"),
	}
}

func findingFor(fs report.Findings, field string) (report.Finding, bool) {
	for _, f := range fs {
		if f.Field == field {
			return f, true
		}
	}
	return report.Finding{}, false
}

// =============================================================================
// DEFAULTS
// =============================================================================

func TestBuild_AppliesDefaults(t *testing.T) {
	// GIVEN: A record with no type, no service period and no Box 14
	b := slip.NewBuilder(2024)

	// WHEN: Building it as slip 1
	s, findings := b.Build(validRecord(), 1)

	// THEN: Defaults are applied and nothing is reported
	require.NotNil(t, s)
	assert.Empty(t, findings)
	assert.Equal(t, 1, s.Number)
	assert.Equal(t, types.SlipOriginal, s.Type)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), s.ServiceStart)
	assert.Equal(t, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), s.ServiceEnd)
	assert.True(t, s.NetEligible.Equal(dec("4000")), "Box 14 derived as Box 12 - Box 13")
	assert.Equal(t, "046454286", s.Recipient.IdentityNumber)
	assert.Equal(t, "H2X1Y4", s.Recipient.Address.PostalCode)
	assert.Equal(t, "QC", s.Recipient.Address.Province)
	assert.Equal(t, "2019-05-14", s.Child.BirthDate)
}

// =============================================================================
// REQUIRED FIELDS
// =============================================================================

func TestBuild_ReportsEveryMissingField(t *testing.T) {
	// GIVEN: A record without names
	record := validRecord()
	record.Recipient.LastName = ""
	record.Child.FirstName = "  "

	// WHEN: Building it
	s, findings := slip.NewBuilder(2024).Build(record, 4)

	// THEN: No slip, and both missing fields are reported for slip 4
	assert.Nil(t, s)
	require.Len(t, findings, 2)
	for _, f := range findings {
		assert.Equal(t, report.KindMissingElement, f.Kind)
		assert.Equal(t, report.SeverityError, f.Severity)
		assert.Equal(t, 4, f.SlipIndex)
	}
}

func TestBuild_StartAfterEndIsError(t *testing.T) {
	record := validRecord()
	record.ServiceStart = "2024-09-01"
	record.ServiceEnd = "2024-06-30"

	s, findings := slip.NewBuilder(2024).Build(record, 1)

	assert.Nil(t, s)
	f, ok := findingFor(findings, "ServicePeriod")
	require.True(t, ok)
	assert.Equal(t, report.KindBusinessRule, f.Kind)
}

func TestBuild_DaysOutOfRange(t *testing.T) {
	record := validRecord()
	record.Days = 400

	s, findings := slip.NewBuilder(2024).Build(record, 1)

	assert.Nil(t, s)
	f, ok := findingFor(findings, "Box10")
	require.True(t, ok)
	assert.Equal(t, report.KindInvalidValue, f.Kind)
}

func TestBuild_BadBirthDate(t *testing.T) {
	record := validRecord()
	record.Child.BirthDate = "sometime"

	s, findings := slip.NewBuilder(2024).Build(record, 1)

	assert.Nil(t, s)
	assert.True(t, findings.HasErrors())
}

// =============================================================================
// ADVISORY FINDINGS
// =============================================================================

func TestBuild_ShortIdentityNumberIsOmitted(t *testing.T) {
	record := validRecord()
	record.Recipient.IdentityNumber = "46454286"

	s, findings := slip.NewBuilder(2024).Build(record, 1)

	require.NotNil(t, s)
	assert.Empty(t, s.Recipient.IdentityNumber)
	f, ok := findingFor(findings, "IdentityNumber")
	require.True(t, ok)
	assert.Equal(t, report.SeverityWarning, f.Severity)
}

func TestBuild_Box14MismatchIsWarning(t *testing.T) {
	// GIVEN: A supplied Box 14 that does not equal Box 12 - Box 13
	record := validRecord()
	record.NetEligible = decimal.NewNullDecimal(dec("3000"))

	// WHEN: Building it
	s, findings := slip.NewBuilder(2024).Build(record, 1)

	// THEN: The caller's value is kept and a warning explains the gap
	require.NotNil(t, s)
	assert.True(t, s.NetEligible.Equal(dec("3000")))
	f, ok := findingFor(findings, "Box14")
	require.True(t, ok)
	assert.Equal(t, report.KindBusinessRule, f.Kind)
	assert.Equal(t, report.SeverityWarning, f.Severity)
}

func TestBuild_AmountsAreClamped(t *testing.T) {
	record := validRecord()
	record.AmountPaid = dec("-5")

	s, findings := slip.NewBuilder(2024).Build(record, 1)

	require.NotNil(t, s)
	assert.True(t, s.AmountPaid.IsZero())
	f, ok := findingFor(findings, "Box11")
	require.True(t, ok)
	assert.Equal(t, report.SeverityWarning, f.Severity)
}

func TestBuild_AmendedWithoutReferenceWarns(t *testing.T) {
	record := validRecord()
	record.Type = "a"

	s, findings := slip.NewBuilder(2024).Build(record, 1)

	require.NotNil(t, s)
	assert.Equal(t, types.SlipAmended, s.Type)
	f, ok := findingFor(findings, "OriginalSlipNumber")
	require.True(t, ok)
	assert.Equal(t, report.SeverityWarning, f.Severity)
}

func TestBuild_CancelledSlipCarriesZeros(t *testing.T) {
	record := validRecord()
	record.Type = types.SlipCancelled
	record.OriginalSlipNumber = "1001"

	s, findings := slip.NewBuilder(2024).Build(record, 1)

	require.NotNil(t, s)
	assert.Empty(t, findings)
	assert.Equal(t, 0, s.Days)
	assert.True(t, s.AmountPaid.IsZero())
	assert.True(t, s.NetEligible.IsZero())
	assert.Equal(t, "1001", s.OriginalSlipNumber)
}

func TestBuild_UnknownTypeIsError(t *testing.T) {
	record := validRecord()
	record.Type = "X"

	s, findings := slip.NewBuilder(2024).Build(record, 1)

	assert.Nil(t, s)
	f, ok := findingFor(findings, "TypeCode")
	require.True(t, ok)
	assert.Equal(t, report.KindInvalidValue, f.Kind)
}

func TestDescribe(t *testing.T) {
	s, _ := slip.NewBuilder(2024).Build(validRecord(), 3)
	require.NotNil(t, s)
	assert.Equal(t, "slip 3 (O, Léa Tremblay)", slip.Describe(s))
}
