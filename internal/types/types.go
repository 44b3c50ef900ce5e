// =============================================================================
// RL-24 Transmission - Shared Types
// =============================================================================
//
// This package contains the types shared by the slip builder, the transmission
// generator, the validator and the input loaders. Keeping them here avoids
// import cycles between:
//   - slip
//   - xmlwriter
//   - converter
//   - api
//
// =============================================================================

package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CODES
// =============================================================================

// SlipType identifies the lifecycle state of a slip.
type SlipType string

const (
	SlipOriginal  SlipType = "O"
	SlipAmended   SlipType = "A"
	SlipCancelled SlipType = "D"
)

// RequiresReference reports whether the slip must point at a previously filed slip.
func (t SlipType) RequiresReference() bool {
	return t == SlipAmended || t == SlipCancelled
}

// TransmissionType identifies the kind of transmission being filed.
type TransmissionType string

const (
	TransmissionOriginal     TransmissionType = "O"
	TransmissionModified     TransmissionType = "M"
	TransmissionCancellation TransmissionType = "A"
)

// =============================================================================
// TRANSMISSION-LEVEL INPUT
// =============================================================================

// TransmissionMetadata describes one batch submission.
type TransmissionMetadata struct {
	// PreparerNumber is "NP" followed by 6 digits. Six bare digits are accepted.
	PreparerNumber string `json:"preparer_number" yaml:"preparer_number"`

	// Type defaults to TransmissionOriginal when empty.
	Type TransmissionType `json:"type" yaml:"type"`

	TaxYear int `json:"tax_year" yaml:"tax_year"`

	// SequenceNumber is unique per preparer per year, 1..999.
	SequenceNumber int `json:"sequence_number" yaml:"sequence_number"`

	CertificationNumber string `json:"certification_number,omitempty" yaml:"certification_number"`
	SoftwareName        string `json:"software_name" yaml:"software_name"`
	SoftwareVersion     string `json:"software_version" yaml:"software_version"`
}

// Address is a postal address. Country is only serialized for the issuer.
type Address struct {
	Line1      string `json:"line1" yaml:"line1"`
	Line2      string `json:"line2,omitempty" yaml:"line2"`
	City       string `json:"city" yaml:"city"`
	Province   string `json:"province" yaml:"province"`
	PostalCode string `json:"postal_code,omitempty" yaml:"postal_code"`
	Country    string `json:"country,omitempty" yaml:"country"`
}

// IsZero reports whether no address line was supplied.
func (a Address) IsZero() bool {
	return a.Line1 == "" && a.Line2 == "" && a.City == ""
}

// Issuer is the childcare provider filing the slips.
type Issuer struct {
	// EnterpriseNumber is the 10-digit enterprise registration number.
	EnterpriseNumber string  `json:"enterprise_number" yaml:"enterprise_number"`
	NameLine1        string  `json:"name_line1" yaml:"name_line1"`
	NameLine2        string  `json:"name_line2,omitempty" yaml:"name_line2"`
	Address          Address `json:"address" yaml:"address"`
}

// =============================================================================
// SLIP INPUT
// =============================================================================

// Recipient is the parent who paid the childcare expenses.
type Recipient struct {
	// IdentityNumber is the social insurance number. Optional.
	IdentityNumber string  `json:"identity_number,omitempty"`
	LastName       string  `json:"last_name"`
	FirstName      string  `json:"first_name"`
	Address        Address `json:"address"`
}

// Child is the child who received the care.
type Child struct {
	LastName  string `json:"last_name"`
	FirstName string `json:"first_name"`

	// BirthDate is optional; any layout accepted by schema.ParseDate.
	BirthDate string `json:"birth_date,omitempty"`
}

// SlipRecord is one parent+child+tax-year relationship supplied by a caller.
// Dates are kept as text so loaders can pass cells through unchanged; the
// builder reports the ones that cannot be read as calendar dates.
type SlipRecord struct {
	// Type defaults to SlipOriginal when empty.
	Type SlipType `json:"type,omitempty"`

	// OriginalSlipNumber references the previously filed slip. Required
	// (as a warning) for amended and cancelled slips.
	OriginalSlipNumber string `json:"original_slip_number,omitempty"`

	SubCode string `json:"sub_code,omitempty"`

	Recipient Recipient `json:"recipient"`
	Child     Child     `json:"child"`

	// ServiceStart and ServiceEnd default to the tax year boundaries.
	ServiceStart string `json:"service_start,omitempty"`
	ServiceEnd   string `json:"service_end,omitempty"`

	// Box 10
	Days int `json:"days"`

	// Box 11
	AmountPaid decimal.Decimal `json:"amount_paid"`

	// Box 12
	EligibleAmount decimal.Decimal `json:"eligible_amount"`

	// Box 13
	GovernmentContribution decimal.Decimal `json:"government_contribution"`

	// Box 14. When not valid it is derived as Box 12 - Box 13.
	NetEligible decimal.NullDecimal `json:"net_eligible"`

	// SourceRow is the row the record came from (0 when not loaded from a file).
	SourceRow int `json:"-"`
}

// SourceRow is one data row read by a loader, keyed by column header.
type SourceRow struct {
	// Line is the 1-based line or row number in the source file.
	Line   int
	Values map[string]string
}

// =============================================================================
// SLIP OUTPUT
// =============================================================================

// Slip is the validated, defaulted form of a SlipRecord. Text fields are
// already cleaned and truncated; amounts are already clamped.
type Slip struct {
	// Number is assigned by the transmission, 1-based, in input order.
	Number int

	Type               SlipType
	SubCode            string
	OriginalSlipNumber string

	Recipient Recipient

	// Child.BirthDate holds the formatted date, empty when absent.
	Child Child

	ServiceStart time.Time
	ServiceEnd   time.Time

	Days                   int
	AmountPaid             decimal.Decimal
	EligibleAmount         decimal.Decimal
	GovernmentContribution decimal.Decimal
	NetEligible            decimal.Decimal
}

// =============================================================================
// SUMMARY
// =============================================================================

// SummaryTotals aggregates every slip of a transmission. It is always derived
// from the slips, never authored by a caller.
type SummaryTotals struct {
	SlipCount         int             `json:"slip_count"`
	TotalDays         int             `json:"total_days"`
	TotalPaid         decimal.Decimal `json:"total_box11"`
	TotalEligible     decimal.Decimal `json:"total_box12"`
	TotalContribution decimal.Decimal `json:"total_box13"`
	TotalNet          decimal.Decimal `json:"total_box14"`
}

// Add folds one slip into the totals.
func (s *SummaryTotals) Add(slip Slip) {
	s.SlipCount++
	s.TotalDays += slip.Days
	s.TotalPaid = s.TotalPaid.Add(slip.AmountPaid)
	s.TotalEligible = s.TotalEligible.Add(slip.EligibleAmount)
	s.TotalContribution = s.TotalContribution.Add(slip.GovernmentContribution)
	s.TotalNet = s.TotalNet.Add(slip.NetEligible)
}

// Summarize reduces a slip list into its totals.
func Summarize(slips []Slip) SummaryTotals {
	var totals SummaryTotals
	for _, slip := range slips {
		totals.Add(slip)
	}
	return totals
}
