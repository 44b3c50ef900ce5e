package validation

import (
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/rl24-transmission/internal/report"
	"github.com/ginjaninja78/rl24-transmission/internal/schema"
	"github.com/ginjaninja78/rl24-transmission/internal/types"
)

var (
	slipAmountElems    = [4]string{schema.ElemBox11, schema.ElemBox12, schema.ElemBox13, schema.ElemBox14}
	summaryAmountElems = [4]string{schema.ElemTotalBox11, schema.ElemTotalBox12, schema.ElemTotalBox13, schema.ElemTotalBox14}
)

// slipValues holds what could be read from one Slip element. The has* flags
// are false when the value was missing or already reported as invalid.
type slipValues struct {
	index int

	number    int
	hasNumber bool

	typeCode types.SlipType
	ref      string

	start, end       time.Time
	hasStart, hasEnd bool

	days    int
	hasDays bool

	amounts   [4]decimal.Decimal
	hasAmount [4]bool
}

// summaryValues holds what could be read from the Summary element.
type summaryValues struct {
	present bool

	slips    int
	hasSlips bool

	days    int
	hasDays bool

	totals   [4]decimal.Decimal
	hasTotal [4]bool
}

// ruleSet runs the structural, field and business checks of one validation.
type ruleSet struct {
	rep *report.Report
	now time.Time
}

// =============================================================================
// FINDING HELPERS
// =============================================================================

func (r *ruleSet) errorAt(n *Node, kind report.Kind, field string, slip int, format string, args ...any) {
	f := report.Errorf(kind, field, format, args...).InSlip(slip)
	if n != nil {
		f = f.At(n.Line, n.Column)
	}
	r.rep.Add(f)
}

func (r *ruleSet) warnAt(n *Node, kind report.Kind, field string, slip int, format string, args ...any) {
	f := report.Warnf(kind, field, format, args...).InSlip(slip)
	if n != nil {
		f = f.At(n.Line, n.Column)
	}
	r.rep.Add(f)
}

// require returns the named child of parent, reporting MissingElement when it
// is absent or has no text. field is the path used in the finding.
func (r *ruleSet) require(parent *Node, name, field string, slip int) (*Node, bool) {
	n := parent.Child(name)
	if n == nil {
		r.errorAt(parent, report.KindMissingElement, field, slip, "%s is missing", field)
		return nil, false
	}
	if n.Text == "" {
		r.errorAt(n, report.KindMissingElement, field, slip, "%s is empty", field)
		return n, false
	}
	return n, true
}

// requireContainer reports MissingElement when parent has no name child.
func (r *ruleSet) requireContainer(parent *Node, name, field string, slip int) *Node {
	n := parent.Child(name)
	if n == nil {
		r.errorAt(parent, report.KindMissingElement, field, slip, "%s is missing", field)
	}
	return n
}

func (r *ruleSet) integer(n *Node, field string, slip int) (int, bool) {
	if !schema.IsDigits(n.Text) || len(n.Text) > 9 {
		r.errorAt(n, report.KindInvalidFormat, field, slip, "%s %q is not a non-negative integer", field, n.Text)
		return 0, false
	}
	v, _ := strconv.Atoi(n.Text)
	return v, true
}

// amount parses a monetary value; capped applies the per-box maximum.
func (r *ruleSet) amount(n *Node, field string, slip int, capped bool) (decimal.Decimal, bool) {
	v, err := schema.ParseAmountText(n.Text)
	if err != nil {
		r.errorAt(n, report.KindInvalidFormat, field, slip, "%s %q is not a non-negative amount with at most 2 decimals", field, n.Text)
		return decimal.Zero, false
	}
	if capped && v.GreaterThan(schema.MaxAmount) {
		r.errorAt(n, report.KindInvalidValue, field, slip, "%s %s exceeds %s", field, n.Text, schema.MaxAmount.StringFixed(2))
		return v, false
	}
	return v, true
}

func (r *ruleSet) date(n *Node, field string, slip int) (time.Time, bool) {
	t, err := schema.ParseTransmissionDate(n.Text)
	if err != nil {
		r.errorAt(n, report.KindInvalidFormat, field, slip, "%s %q is not a YYYY-MM-DD date", field, n.Text)
		return time.Time{}, false
	}
	return t, true
}

func (r *ruleSet) maxLength(n *Node, field string, slip, max int) {
	if n != nil && utf8.RuneCountInString(n.Text) > max {
		r.errorAt(n, report.KindInvalidFormat, field, slip, "%s is longer than %d characters", field, max)
	}
}

// =============================================================================
// PHASE 3: STRUCTURE
// =============================================================================

func (r *ruleSet) checkStructure(root *Node) {
	if root == nil {
		return
	}
	if root.Name != schema.ElemTransmission {
		r.errorAt(root, report.KindMissingElement, schema.ElemTransmission, 0,
			"root element is %s, expected %s", root.Name, schema.ElemTransmission)
	}

	if header := r.requireContainer(root, schema.ElemHeader, schema.ElemHeader, 0); header != nil {
		r.requireContainer(header, schema.ElemTransmitter, "Header/Transmitter", 0)
	}

	group := r.requireContainer(root, schema.ElemGroup, schema.ElemGroup, 0)
	if group == nil {
		return
	}
	r.requireContainer(group, schema.ElemIssuer, "Group/Issuer", 0)

	slips := group.All(schema.ElemSlip)
	if len(slips) == 0 {
		r.errorAt(group, report.KindMissingElement, "Group/Slip", 0, "the transmission has no slip")
	}
	if len(slips) > schema.MaxSlips {
		r.errorAt(group, report.KindFileConstraint, "Group/Slip", 0,
			"%d slips exceed the limit of %d per transmission", len(slips), schema.MaxSlips)
	}

	r.requireContainer(group, schema.ElemSummary, "Group/Summary", 0)
}

// =============================================================================
// PHASE 4: FIELDS
// =============================================================================

func (r *ruleSet) checkTransmitter(t *Node) {
	if t == nil {
		return
	}

	if n, ok := r.require(t, schema.ElemTransmitterNumber, schema.ElemTransmitterNumber, 0); ok &&
		!schema.IsValidPreparerNumber(n.Text) {
		r.errorAt(n, report.KindInvalidFormat, schema.ElemTransmitterNumber, 0,
			"transmitter number %q must be %s followed by %d digits", n.Text, schema.PreparerPrefix, schema.PreparerDigits)
	}

	if n, ok := r.require(t, schema.ElemTransmissionType, schema.ElemTransmissionType, 0); ok &&
		!schema.IsTransmissionType(n.Text) {
		r.errorAt(n, report.KindInvalidValue, schema.ElemTransmissionType, 0,
			"unknown transmission type %q (expected O, M or A)", n.Text)
	}

	if n, ok := r.require(t, schema.ElemTaxYear, schema.ElemTaxYear, 0); ok {
		if len(n.Text) != 4 || !schema.IsDigits(n.Text) {
			r.errorAt(n, report.KindInvalidFormat, schema.ElemTaxYear, 0, "tax year %q is not a 4-digit year", n.Text)
		} else {
			year, _ := strconv.Atoi(n.Text)
			minYear, maxYear := schema.TaxYearBounds(r.now)
			if year < minYear || year > maxYear {
				r.errorAt(n, report.KindInvalidValue, schema.ElemTaxYear, 0,
					"tax year %d outside [%d, %d]", year, minYear, maxYear)
			}
		}
	}

	if n, ok := r.require(t, schema.ElemSequenceNumber, schema.ElemSequenceNumber, 0); ok {
		if seq, ok := r.integer(n, schema.ElemSequenceNumber, 0); ok &&
			(seq < schema.MinSequenceNumber || seq > schema.MaxSequenceNumber) {
			r.errorAt(n, report.KindInvalidValue, schema.ElemSequenceNumber, 0,
				"sequence number %d outside [%d, %d]", seq, schema.MinSequenceNumber, schema.MaxSequenceNumber)
		}
	}

	r.maxLength(t.Child(schema.ElemCertificationNumber), schema.ElemCertificationNumber, 0, schema.MaxCertificationNo)

	if n, ok := r.require(t, schema.ElemSoftwareName, schema.ElemSoftwareName, 0); ok {
		r.maxLength(n, schema.ElemSoftwareName, 0, schema.MaxSoftwareLength)
	}
	if n, ok := r.require(t, schema.ElemSoftwareVersion, schema.ElemSoftwareVersion, 0); ok {
		r.maxLength(n, schema.ElemSoftwareVersion, 0, schema.MaxSoftwareLength)
	}
}

func (r *ruleSet) checkIssuer(issuer *Node) {
	if issuer == nil {
		return
	}

	if n, ok := r.require(issuer, schema.ElemEnterpriseNumber, schema.ElemEnterpriseNumber, 0); ok &&
		!schema.IsValidEnterpriseNumber(n.Text) {
		r.errorAt(n, report.KindInvalidFormat, schema.ElemEnterpriseNumber, 0,
			"enterprise number %q must be %d digits", n.Text, schema.EnterpriseDigits)
	}

	if name := r.requireContainer(issuer, schema.ElemIssuerName, schema.ElemIssuerName, 0); name != nil {
		if n, ok := r.require(name, schema.ElemLine1, "IssuerName/Line1", 0); ok {
			r.maxLength(n, "IssuerName/Line1", 0, schema.MaxAddressLength)
		}
		r.maxLength(name.Child(schema.ElemLine2), "IssuerName/Line2", 0, schema.MaxAddressLength)
	}

	if addr := r.requireContainer(issuer, schema.ElemIssuerAddress, schema.ElemIssuerAddress, 0); addr != nil {
		r.checkAddress(addr, schema.ElemIssuerAddress, 0)
		r.require(addr, schema.ElemCountry, "IssuerAddress/Country", 0)
	}
}

// checkAddress checks Line1, Line2, City, Province and PostalCode.
func (r *ruleSet) checkAddress(addr *Node, field string, slip int) {
	if n, ok := r.require(addr, schema.ElemLine1, field+"/Line1", slip); ok {
		r.maxLength(n, field+"/Line1", slip, schema.MaxAddressLength)
	}
	r.maxLength(addr.Child(schema.ElemLine2), field+"/Line2", slip, schema.MaxAddressLength)

	if n, ok := r.require(addr, schema.ElemCity, field+"/City", slip); ok {
		r.maxLength(n, field+"/City", slip, schema.MaxCityLength)
	}

	if n, ok := r.require(addr, schema.ElemProvince, field+"/Province", slip); ok && !schema.IsValidProvince(n.Text) {
		r.errorAt(n, report.KindInvalidFormat, field+"/Province", slip, "province %q is not a two-letter code", n.Text)
	}

	if n := addr.Child(schema.ElemPostalCode); n != nil && !schema.IsValidPostalCode(n.Text) {
		r.errorAt(n, report.KindInvalidFormat, field+"/PostalCode", slip, "postal code %q is not a Canadian postal code", n.Text)
	}
}

// checkSlips checks every slip and returns the values read from them.
func (r *ruleSet) checkSlips(nodes []*Node) []slipValues {
	out := make([]slipValues, 0, len(nodes))
	for i, n := range nodes {
		out = append(out, r.checkSlip(n, i+1))
	}
	return out
}

func (r *ruleSet) checkSlip(s *Node, idx int) slipValues {
	sv := slipValues{index: idx}

	if ident := r.requireContainer(s, schema.ElemIdentification, schema.ElemIdentification, idx); ident != nil {
		if n, ok := r.require(ident, schema.ElemSlipNumber, schema.ElemSlipNumber, idx); ok {
			if num, ok := r.integer(n, schema.ElemSlipNumber, idx); ok {
				if num == 0 {
					r.errorAt(n, report.KindInvalidValue, schema.ElemSlipNumber, idx, "slip number must be positive")
				} else {
					sv.number, sv.hasNumber = num, true
				}
			}
		}

		if n, ok := r.require(ident, schema.ElemTypeCode, schema.ElemTypeCode, idx); ok {
			if schema.IsSlipType(n.Text) {
				sv.typeCode = types.SlipType(n.Text)
			} else {
				r.errorAt(n, report.KindInvalidValue, schema.ElemTypeCode, idx,
					"unknown slip type %q (expected O, A or D)", n.Text)
			}
		}

		r.maxLength(ident.Child(schema.ElemSubCode), schema.ElemSubCode, idx, schema.MaxSubCodeLength)

		if n := ident.Child(schema.ElemOriginalSlipNumber); n != nil && n.Text != "" {
			sv.ref = n.Text
			if !schema.IsDigits(n.Text) || len(n.Text) > schema.MaxSlipNumberDigits {
				r.errorAt(n, report.KindInvalidFormat, schema.ElemOriginalSlipNumber, idx,
					"original slip number %q must be 1 to %d digits", n.Text, schema.MaxSlipNumberDigits)
			}
		}
	}

	if recipient := r.requireContainer(s, schema.ElemRecipient, schema.ElemRecipient, idx); recipient != nil {
		if n := recipient.Child(schema.ElemIdentityNumber); n != nil {
			r.checkIdentityNumber(n, idx)
		}
		if name := r.requireContainer(recipient, schema.ElemName, "Recipient/Name", idx); name != nil {
			r.checkPersonName(name, "Recipient/Name", idx)
		}
		if addr := recipient.Child(schema.ElemAddress); addr != nil {
			r.checkAddress(addr, "Recipient/Address", idx)
		}
	}

	if child := r.requireContainer(s, schema.ElemChild, schema.ElemChild, idx); child != nil {
		r.checkPersonName(child, schema.ElemChild, idx)
		if n := child.Child(schema.ElemDateOfBirth); n != nil {
			r.date(n, "Child/DOB", idx)
		}
	}

	if period := r.requireContainer(s, schema.ElemServicePeriod, schema.ElemServicePeriod, idx); period != nil {
		if n, ok := r.require(period, schema.ElemStart, "ServicePeriod/Start", idx); ok {
			sv.start, sv.hasStart = r.date(n, "ServicePeriod/Start", idx)
		}
		if n, ok := r.require(period, schema.ElemEnd, "ServicePeriod/End", idx); ok {
			sv.end, sv.hasEnd = r.date(n, "ServicePeriod/End", idx)
		}
	}

	if n, ok := r.require(s, schema.ElemBox10, schema.ElemBox10, idx); ok {
		if days, ok := r.integer(n, schema.ElemBox10, idx); ok {
			if days < schema.MinDays || days > schema.MaxDays {
				r.errorAt(n, report.KindInvalidValue, schema.ElemBox10, idx,
					"days %d outside [%d, %d]", days, schema.MinDays, schema.MaxDays)
			} else {
				sv.days, sv.hasDays = days, true
			}
		}
	}

	for k, elem := range slipAmountElems {
		if n, ok := r.require(s, elem, elem, idx); ok {
			sv.amounts[k], sv.hasAmount[k] = r.amount(n, elem, idx, true)
		}
	}

	return sv
}

// checkIdentityNumber is the authoritative checksum gate for identity numbers.
func (r *ruleSet) checkIdentityNumber(n *Node, idx int) {
	switch {
	case len(n.Text) != schema.IdentityDigits || !schema.IsDigits(n.Text):
		r.errorAt(n, report.KindInvalidFormat, schema.ElemIdentityNumber, idx,
			"identity number %q must be exactly %d digits", n.Text, schema.IdentityDigits)
	case !schema.ValidLuhn(n.Text):
		r.errorAt(n, report.KindInvalidFormat, schema.ElemIdentityNumber, idx,
			"identity number %q fails the mod-10 checksum", n.Text)
	}
}

func (r *ruleSet) checkPersonName(parent *Node, field string, idx int) {
	for _, part := range []string{schema.ElemLast, schema.ElemFirst} {
		path := field + "/" + part
		if n, ok := r.require(parent, part, path, idx); ok {
			r.maxLength(n, path, idx, schema.MaxNameLength)
		}
	}
}

func (r *ruleSet) checkSummary(s *Node) summaryValues {
	sum := summaryValues{present: s != nil}
	if s == nil {
		return sum
	}

	if n, ok := r.require(s, schema.ElemTotalSlips, "Summary/TotalSlips", 0); ok {
		sum.slips, sum.hasSlips = r.integer(n, "Summary/TotalSlips", 0)
	}
	if n, ok := r.require(s, schema.ElemTotalDays, "Summary/TotalDays", 0); ok {
		sum.days, sum.hasDays = r.integer(n, "Summary/TotalDays", 0)
	}

	for k, elem := range summaryAmountElems {
		field := "Summary/" + elem
		var n *Node
		if k < 2 {
			var ok bool
			if n, ok = r.require(s, elem, field, 0); !ok {
				continue
			}
		} else if n = s.Child(elem); n == nil {
			continue
		}
		sum.totals[k], sum.hasTotal[k] = r.amount(n, field, 0, false)
	}

	return sum
}

// =============================================================================
// PHASE 5: BUSINESS RULES
// =============================================================================

func (r *ruleSet) checkSlipRules(slips []slipValues) {
	seen := make(map[int]int, len(slips))

	for _, sv := range slips {
		idx := sv.index

		if sv.hasStart && sv.hasEnd && sv.start.After(sv.end) {
			r.errorAt(nil, report.KindBusinessRule, schema.ElemServicePeriod, idx,
				"service period starts %s after it ends %s",
				sv.start.Format(schema.DateLayout), sv.end.Format(schema.DateLayout))
		}

		if sv.hasAmount[1] && sv.hasAmount[2] && sv.hasAmount[3] {
			expected := sv.amounts[1].Sub(sv.amounts[2])
			if !schema.WithinTolerance(sv.amounts[3], expected) {
				r.warnAt(nil, report.KindBusinessRule, schema.ElemBox14, idx,
					"Box14 %s differs from Box12 %s minus Box13 %s",
					sv.amounts[3].StringFixed(2), sv.amounts[1].StringFixed(2), sv.amounts[2].StringFixed(2))
			}
		}

		switch {
		case sv.typeCode.RequiresReference() && sv.ref == "":
			r.errorAt(nil, report.KindBusinessRule, schema.ElemOriginalSlipNumber, idx,
				"%s slip must reference the original slip number", schema.SlipTypes[sv.typeCode])
		case sv.typeCode == types.SlipOriginal && sv.ref != "":
			r.warnAt(nil, report.KindBusinessRule, schema.ElemOriginalSlipNumber, idx,
				"original slip carries a reference to slip %s", sv.ref)
		}

		if sv.typeCode == types.SlipCancelled && !cancelledIsZero(sv) {
			r.warnAt(nil, report.KindBusinessRule, schema.ElemSlip, idx,
				"cancelled slip carries non-zero boxes")
		}

		if sv.hasNumber {
			if first, dup := seen[sv.number]; dup {
				r.errorAt(nil, report.KindBusinessRule, schema.ElemSlipNumber, idx,
					"slip number %d is already used by slip %d", sv.number, first)
			} else {
				seen[sv.number] = idx
			}
		}
	}
}

func cancelledIsZero(sv slipValues) bool {
	if sv.hasDays && sv.days != 0 {
		return false
	}
	for k := range sv.amounts {
		if sv.hasAmount[k] && !sv.amounts[k].IsZero() {
			return false
		}
	}
	return true
}

// checkReconciliation compares the declared summary with the slips. A
// quantity is only reconciled when every slip value for it could be read.
func (r *ruleSet) checkReconciliation(slips []slipValues, sum summaryValues) {
	if !sum.present {
		return
	}

	if sum.hasSlips && sum.slips != len(slips) {
		r.errorAt(nil, report.KindSummaryMismatch, "Summary/TotalSlips", 0,
			"summary declares %d slips, the transmission has %d", sum.slips, len(slips))
	}

	if sum.hasDays {
		total, complete := 0, true
		for _, sv := range slips {
			if !sv.hasDays {
				complete = false
				break
			}
			total += sv.days
		}
		if complete && total != sum.days {
			r.errorAt(nil, report.KindSummaryMismatch, "Summary/TotalDays", 0,
				"summary declares %d days, the slips add up to %d", sum.days, total)
		}
	}

	for k, elem := range summaryAmountElems {
		if !sum.hasTotal[k] {
			continue
		}
		total, complete := decimal.Zero, true
		for _, sv := range slips {
			if !sv.hasAmount[k] {
				complete = false
				break
			}
			total = total.Add(sv.amounts[k])
		}
		if complete && !schema.WithinTolerance(total, sum.totals[k]) {
			r.warnAt(nil, report.KindSummaryMismatch, "Summary/"+elem, 0,
				"summary declares %s, the slips add up to %s", sum.totals[k].StringFixed(2), total.StringFixed(2))
		}
	}
}
