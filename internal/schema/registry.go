// Package schema is the static registry of the RL-24 transmission format:
// element names, code lists, limits, and the pure formatting helpers the
// generator and the validator share. Nothing here holds state.
package schema

import (
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/rl24-transmission/internal/types"
)

// Namespace is the default namespace of the Transmission root element.
const Namespace = "http://www.mrq.gouv.qc.ca/T5"

// =============================================================================
// ELEMENT NAMES
// =============================================================================

// Element names, in document order.
const (
	ElemTransmission = "Transmission"

	ElemHeader              = "Header"
	ElemTransmitter         = "Transmitter"
	ElemTransmitterNumber   = "TransmitterNumber"
	ElemTransmissionType    = "TransmissionType"
	ElemTaxYear             = "TaxYear"
	ElemSequenceNumber      = "SequenceNumber"
	ElemCertificationNumber = "CertificationNumber"
	ElemSoftwareName        = "SoftwareName"
	ElemSoftwareVersion     = "SoftwareVersion"

	ElemGroup            = "Group"
	ElemIssuer           = "Issuer"
	ElemEnterpriseNumber = "EnterpriseNumber"
	ElemIssuerName       = "IssuerName"
	ElemIssuerAddress    = "IssuerAddress"

	ElemSlip               = "Slip"
	ElemIdentification     = "Identification"
	ElemSlipNumber         = "SlipNumber"
	ElemTypeCode           = "TypeCode"
	ElemSubCode            = "SubCode"
	ElemOriginalSlipNumber = "OriginalSlipNumber"
	ElemRecipient          = "Recipient"
	ElemIdentityNumber     = "IdentityNumber"
	ElemName               = "Name"
	ElemAddress            = "Address"
	ElemChild              = "Child"
	ElemDateOfBirth        = "DOB"
	ElemServicePeriod      = "ServicePeriod"
	ElemStart              = "Start"
	ElemEnd                = "End"
	ElemBox10              = "Box10"
	ElemBox11              = "Box11"
	ElemBox12              = "Box12"
	ElemBox13              = "Box13"
	ElemBox14              = "Box14"

	ElemSummary    = "Summary"
	ElemTotalSlips = "TotalSlips"
	ElemTotalDays  = "TotalDays"
	ElemTotalBox11 = "TotalBox11"
	ElemTotalBox12 = "TotalBox12"
	ElemTotalBox13 = "TotalBox13"
	ElemTotalBox14 = "TotalBox14"

	ElemLine1      = "Line1"
	ElemLine2      = "Line2"
	ElemLast       = "Last"
	ElemFirst      = "First"
	ElemCity       = "City"
	ElemProvince   = "Province"
	ElemPostalCode = "PostalCode"
	ElemCountry    = "Country"
)

// =============================================================================
// CODE LISTS
// =============================================================================

// SlipTypes lists the accepted slip type codes.
var SlipTypes = map[types.SlipType]string{
	types.SlipOriginal:  "Original",
	types.SlipAmended:   "Amended",
	types.SlipCancelled: "Cancelled",
}

// TransmissionTypes lists the accepted transmission type codes.
var TransmissionTypes = map[types.TransmissionType]string{
	types.TransmissionOriginal:     "Original",
	types.TransmissionModified:     "Modified",
	types.TransmissionCancellation: "Cancellation",
}

// IsSlipType reports whether code is a known slip type.
func IsSlipType(code string) bool {
	_, ok := SlipTypes[types.SlipType(code)]
	return ok
}

// IsTransmissionType reports whether code is a known transmission type.
func IsTransmissionType(code string) bool {
	_, ok := TransmissionTypes[types.TransmissionType(code)]
	return ok
}

// =============================================================================
// LIMITS
// =============================================================================

const (
	MaxSlips    = 1000
	MaxFileSize = 300 * 1024 * 1024

	MinDays = 0
	MaxDays = 366

	MinSequenceNumber = 1
	MaxSequenceNumber = 999

	// MinTaxYear is the oldest year accepted; the newest is the current year + 1.
	MinTaxYear = 2000

	MaxNameLength      = 30
	MaxAddressLength   = 60
	MaxCityLength      = 30
	MaxSoftwareLength  = 20
	MaxCertificationNo = 20
	MaxSubCodeLength   = 1

	PreparerPrefix       = "NP"
	PreparerDigits       = 6
	EnterpriseDigits     = 10
	IdentityDigits       = 9
	MaxSlipNumberDigits  = 9
	FileExtension        = ".xml"
	DefaultCountry       = "CAN"
	DefaultProvince      = "QC"
	AmountDecimalPlaces  = 2
	AmountToleranceCents = 1
)

var (
	// MaxAmount is the largest value any monetary box may carry.
	MaxAmount = decimal.RequireFromString("9999999.99")

	// AmountTolerance is the reconciliation tolerance for money comparisons.
	AmountTolerance = decimal.New(AmountToleranceCents, -AmountDecimalPlaces)
)
