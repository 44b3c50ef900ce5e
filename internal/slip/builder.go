// =============================================================================
// RL-24 Transmission - Slip Builder
// =============================================================================
//
// The builder turns one caller-supplied SlipRecord into one Slip ready to be
// serialized. It:
//   1. Applies defaults (slip type, service period)
//   2. Checks the required fields, collecting every missing one
//   3. Cleans and truncates text fields
//   4. Applies the amended/cancelled rules
//   5. Checks the Box 14 relationship (advisory only)
//
// The builder is permissive: anything a reviewer can still confirm is a
// warning. Only records that cannot be serialized are rejected.
//
// =============================================================================

package slip

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/rl24-transmission/internal/report"
	"github.com/ginjaninja78/rl24-transmission/internal/schema"
	"github.com/ginjaninja78/rl24-transmission/internal/types"
)

// Builder builds the slips of one tax year.
type Builder struct {
	taxYear int
}

// NewBuilder creates a builder for taxYear. The year drives the default
// service period.
func NewBuilder(taxYear int) *Builder {
	return &Builder{taxYear: taxYear}
}

// Build validates and defaults record and assigns it number.
//
// PARAMETERS:
//   - record: The caller-supplied record.
//   - number: The 1-based slip number assigned by the transmission.
//
// RETURNS:
//   - The built slip, or nil when any Error finding was produced.
//   - Every finding for the record, scoped to number.
func (b *Builder) Build(record types.SlipRecord, number int) (*types.Slip, report.Findings) {
	c := &collector{index: number}

	slip := &types.Slip{Number: number}

	b.buildIdentification(c, record, slip)
	b.buildRecipient(c, record, slip)
	b.buildChild(c, record, slip)
	b.buildServicePeriod(c, record, slip)
	b.buildBoxes(c, record, slip)

	if c.findings.HasErrors() {
		return nil, c.findings
	}
	return slip, c.findings
}

// =============================================================================
// SECTIONS
// =============================================================================

func (b *Builder) buildIdentification(c *collector, record types.SlipRecord, slip *types.Slip) {
	code := strings.ToUpper(strings.TrimSpace(string(record.Type)))
	switch {
	case code == "":
		slip.Type = types.SlipOriginal
	case schema.IsSlipType(code):
		slip.Type = types.SlipType(code)
	default:
		c.errorf(report.KindInvalidValue, schema.ElemTypeCode,
			"unknown slip type %q (expected O, A or D)", record.Type)
	}

	slip.SubCode = schema.CleanText(record.SubCode, schema.MaxSubCodeLength)

	ref := strings.ReplaceAll(strings.TrimSpace(record.OriginalSlipNumber), " ", "")
	if ref != "" && (!schema.IsDigits(ref) || len(ref) > schema.MaxSlipNumberDigits) {
		c.errorf(report.KindInvalidFormat, schema.ElemOriginalSlipNumber,
			"original slip number %q must be 1 to %d digits", record.OriginalSlipNumber, schema.MaxSlipNumberDigits)
		ref = ""
	}
	slip.OriginalSlipNumber = ref

	switch {
	case slip.Type.RequiresReference() && ref == "":
		c.warnf(report.KindBusinessRule, schema.ElemOriginalSlipNumber,
			"%s slip has no original slip number; confirm before filing", schema.SlipTypes[slip.Type])
	case slip.Type == types.SlipOriginal && ref != "":
		c.warnf(report.KindBusinessRule, schema.ElemOriginalSlipNumber,
			"original slip carries a reference to slip %s", ref)
	}
}

func (b *Builder) buildRecipient(c *collector, record types.SlipRecord, slip *types.Slip) {
	r := record.Recipient

	slip.Recipient.LastName = c.required(r.LastName, "Recipient/Name/Last", schema.MaxNameLength)
	slip.Recipient.FirstName = c.required(r.FirstName, "Recipient/Name/First", schema.MaxNameLength)

	if raw := strings.TrimSpace(r.IdentityNumber); raw != "" {
		slip.Recipient.IdentityNumber = schema.FormatGovernmentID(raw)
		if slip.Recipient.IdentityNumber == "" {
			c.warnf(report.KindInvalidFormat, schema.ElemIdentityNumber,
				"identity number is not 9 digits and was omitted")
		}
	}

	slip.Recipient.Address = b.buildAddress(c, r.Address, "Recipient/Address")
}

func (b *Builder) buildChild(c *collector, record types.SlipRecord, slip *types.Slip) {
	slip.Child.LastName = c.required(record.Child.LastName, "Child/Last", schema.MaxNameLength)
	slip.Child.FirstName = c.required(record.Child.FirstName, "Child/First", schema.MaxNameLength)

	if raw := strings.TrimSpace(record.Child.BirthDate); raw != "" {
		dob, err := schema.FormatDate(raw)
		if err != nil {
			c.errorf(report.KindInvalidFormat, "Child/DOB", "%v", err)
			return
		}
		slip.Child.BirthDate = dob
	}
}

func (b *Builder) buildServicePeriod(c *collector, record types.SlipRecord, slip *types.Slip) {
	start, okStart := c.date(record.ServiceStart, time.Date(b.taxYear, time.January, 1, 0, 0, 0, 0, time.UTC), "ServicePeriod/Start")
	end, okEnd := c.date(record.ServiceEnd, time.Date(b.taxYear, time.December, 31, 0, 0, 0, 0, time.UTC), "ServicePeriod/End")
	if !okStart || !okEnd {
		return
	}
	if start.After(end) {
		c.errorf(report.KindBusinessRule, schema.ElemServicePeriod,
			"service period starts %s after it ends %s", start.Format(schema.DateLayout), end.Format(schema.DateLayout))
	}
	slip.ServiceStart = start
	slip.ServiceEnd = end
}

func (b *Builder) buildBoxes(c *collector, record types.SlipRecord, slip *types.Slip) {
	// Cancelled slips carry zeros whatever the caller sent.
	if slip.Type == types.SlipCancelled {
		slip.Days = 0
		slip.AmountPaid = decimal.Zero
		slip.EligibleAmount = decimal.Zero
		slip.GovernmentContribution = decimal.Zero
		slip.NetEligible = decimal.Zero
		return
	}

	if record.Days < schema.MinDays || record.Days > schema.MaxDays {
		c.errorf(report.KindInvalidValue, schema.ElemBox10,
			"days %d outside [%d, %d]", record.Days, schema.MinDays, schema.MaxDays)
	}
	slip.Days = record.Days

	slip.AmountPaid = c.amount(record.AmountPaid, schema.ElemBox11)
	slip.EligibleAmount = c.amount(record.EligibleAmount, schema.ElemBox12)
	slip.GovernmentContribution = c.amount(record.GovernmentContribution, schema.ElemBox13)

	expected := slip.EligibleAmount.Sub(slip.GovernmentContribution)
	if record.NetEligible.Valid {
		slip.NetEligible = c.amount(record.NetEligible.Decimal, schema.ElemBox14)
	} else {
		slip.NetEligible = schema.ClampAmount(expected)
	}

	if !schema.WithinTolerance(slip.NetEligible, expected) {
		c.warnf(report.KindBusinessRule, schema.ElemBox14,
			"net eligible %s differs from eligible %s minus contribution %s",
			schema.FormatAmount(slip.NetEligible),
			schema.FormatAmount(slip.EligibleAmount),
			schema.FormatAmount(slip.GovernmentContribution))
	}
}

func (b *Builder) buildAddress(c *collector, in types.Address, field string) types.Address {
	if in.IsZero() {
		return types.Address{}
	}

	out := types.Address{
		Line1: schema.CleanText(in.Line1, schema.MaxAddressLength),
		Line2: schema.CleanText(in.Line2, schema.MaxAddressLength),
		City:  schema.CleanText(in.City, schema.MaxCityLength),
	}
	if out.Line1 == "" || out.City == "" {
		c.warnf(report.KindMissingElement, field, "address needs a first line and a city; it was omitted")
		return types.Address{}
	}

	out.Province = strings.ToUpper(schema.CleanText(in.Province, 0))
	if out.Province == "" {
		out.Province = schema.DefaultProvince
	} else if !schema.IsValidProvince(out.Province) {
		c.warnf(report.KindInvalidFormat, field+"/Province",
			"province %q is not a two-letter code; %s used", in.Province, schema.DefaultProvince)
		out.Province = schema.DefaultProvince
	}

	if raw := strings.TrimSpace(in.PostalCode); raw != "" {
		out.PostalCode = schema.FormatPostalCode(raw)
		if out.PostalCode == "" {
			c.warnf(report.KindInvalidFormat, field+"/PostalCode", "postal code %q was omitted", raw)
		}
	}

	out.Country = strings.ToUpper(schema.CleanText(in.Country, 3))
	return out
}

// =============================================================================
// COLLECTOR
// =============================================================================

// collector accumulates the findings of one record.
type collector struct {
	index    int
	findings report.Findings
}

func (c *collector) errorf(kind report.Kind, field, format string, args ...any) {
	c.findings = append(c.findings, report.Errorf(kind, field, format, args...).InSlip(c.index))
}

func (c *collector) warnf(kind report.Kind, field, format string, args ...any) {
	c.findings = append(c.findings, report.Warnf(kind, field, format, args...).InSlip(c.index))
}

// required cleans value and records a MissingElement error when it is empty.
func (c *collector) required(value, field string, max int) string {
	cleaned := schema.CleanText(value, max)
	if cleaned == "" {
		c.errorf(report.KindMissingElement, field, "%s is required", field)
	}
	return cleaned
}

// date parses value, falling back to def when value is empty.
func (c *collector) date(value string, def time.Time, field string) (time.Time, bool) {
	if strings.TrimSpace(value) == "" {
		return def, true
	}
	t, err := schema.ParseDate(value)
	if err != nil {
		c.errorf(report.KindInvalidFormat, field, "%v", err)
		return time.Time{}, false
	}
	return t, true
}

// amount clamps value into the accepted range and warns when it had to.
func (c *collector) amount(value decimal.Decimal, field string) decimal.Decimal {
	clamped := schema.ClampAmount(value)
	if !clamped.Equal(value.Round(schema.AmountDecimalPlaces)) {
		c.warnf(report.KindInvalidValue, field,
			"amount %s outside [0, %s]; %s used", value.String(), schema.MaxAmount.StringFixed(2), schema.FormatAmount(clamped))
	}
	return clamped
}

// Describe returns a short human label for a slip, used in logs.
func Describe(s *types.Slip) string {
	return fmt.Sprintf("slip %d (%s, %s %s)", s.Number, s.Type, s.Child.FirstName, s.Child.LastName)
}
