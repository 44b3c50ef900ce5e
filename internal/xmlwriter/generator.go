package xmlwriter

import (
	"encoding/xml"
	"strings"
	"time"

	"github.com/ginjaninja78/rl24-transmission/internal/report"
	"github.com/ginjaninja78/rl24-transmission/internal/schema"
	"github.com/ginjaninja78/rl24-transmission/internal/slip"
	"github.com/ginjaninja78/rl24-transmission/internal/types"
)

const (
	// DefaultSoftwareName is declared when the caller names no software.
	DefaultSoftwareName = "rl24-transmission"

	// DefaultSoftwareVersion is declared when the caller gives no version.
	DefaultSoftwareVersion = "1.0"
)

// =============================================================================
// GENERATOR
// =============================================================================

// Generator builds complete transmissions. It holds no state between calls
// and is safe for concurrent use.
type Generator struct {
	now      func() time.Time
	maxBytes int
	options  WriteOptions
}

// Option customizes a Generator.
type Option func(*Generator)

// WithClock sets the clock used for the tax year window.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithMaxBytes overrides the serialized size ceiling.
func WithMaxBytes(n int) Option {
	return func(g *Generator) { g.maxBytes = n }
}

// WithWriteOptions overrides the serialization options.
func WithWriteOptions(options WriteOptions) Option {
	return func(g *Generator) { g.options = options }
}

// NewGenerator creates a generator with the filing defaults.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		now:      time.Now,
		maxBytes: schema.MaxFileSize,
		options:  DefaultWriteOptions(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Result is a successfully generated transmission.
type Result struct {
	XML      []byte
	Filename string
	Summary  types.SummaryTotals
	Slips    []types.Slip

	// Report holds the warnings collected while building. It never holds
	// errors: any error aborts generation.
	Report *report.Report
}

// Generate builds the transmission for one batch.
//
// PARAMETERS:
//   - meta: The transmission-level metadata.
//   - issuer: The filing organization.
//   - records: The slip records, in the order they are numbered.
//
// RETURNS:
//   - The generated transmission.
//   - A *report.FindingsError (wrapping report.ErrGenerationFailed) carrying
//     every collected finding when anything fatal was found.
//
// GENERATION PROCESS:
//  1. Check the metadata, the issuer and the batch size (1 to the slip limit)
//  2. Stop there, before building anything, when any of them failed
//  3. Build every slip, collecting all findings
//  4. Compute the summary from the built slips
//  5. Serialize in the fixed element order
//  6. Enforce the file size ceiling
//  7. Derive the filename
func (g *Generator) Generate(meta types.TransmissionMetadata, issuer types.Issuer, records []types.SlipRecord) (*Result, error) {
	rep := report.New()

	header := g.checkMetadata(rep, meta)
	issuer = g.checkIssuer(rep, issuer)

	switch {
	case len(records) == 0:
		rep.Add(report.Errorf(report.KindFileConstraint, schema.ElemSlip,
			"a transmission needs at least one slip"))
	case len(records) > schema.MaxSlips:
		rep.Add(report.Errorf(report.KindFileConstraint, schema.ElemSlip,
			"%d slips exceed the limit of %d per transmission", len(records), schema.MaxSlips))
	}
	if rep.HasErrors() {
		return nil, &report.FindingsError{Findings: rep.Findings}
	}

	builder := slip.NewBuilder(header.TaxYear)
	slips := make([]types.Slip, 0, len(records))
	for i, record := range records {
		built, findings := builder.Build(record, i+1)
		rep.Add(findings...)
		if built != nil {
			slips = append(slips, *built)
		}
	}
	if rep.HasErrors() {
		return nil, &report.FindingsError{Findings: rep.Findings}
	}

	summary := types.Summarize(slips)

	doc := buildDocument(header, issuer, slips, summary)
	text := Marshal(doc, g.options)

	if len(text) > g.maxBytes {
		rep.Add(report.Errorf(report.KindFileConstraint, "",
			"transmission is %d bytes, over the %d byte limit", len(text), g.maxBytes))
		return nil, &report.FindingsError{Findings: rep.Findings}
	}

	return &Result{
		XML:      text,
		Filename: schema.GenerateFilename(header.TaxYear, header.PreparerNumber, header.SequenceNumber),
		Summary:  summary,
		Slips:    slips,
		Report:   rep,
	}, nil
}

// =============================================================================
// TRANSMISSION-LEVEL CHECKS
// =============================================================================

// checkMetadata validates meta and returns its normalized form.
func (g *Generator) checkMetadata(rep *report.Report, meta types.TransmissionMetadata) types.TransmissionMetadata {
	out := meta

	switch raw := strings.TrimSpace(meta.PreparerNumber); {
	case raw == "":
		rep.Add(report.Errorf(report.KindMissingElement, schema.ElemTransmitterNumber,
			"preparer number is required"))
	default:
		out.PreparerNumber = schema.NormalizePreparerNumber(raw)
		if out.PreparerNumber == "" {
			rep.Add(report.Errorf(report.KindInvalidFormat, schema.ElemTransmitterNumber,
				"preparer number %q must be %s followed by %d digits", raw, schema.PreparerPrefix, schema.PreparerDigits))
		}
	}

	code := strings.ToUpper(strings.TrimSpace(string(meta.Type)))
	switch {
	case code == "":
		out.Type = types.TransmissionOriginal
	case schema.IsTransmissionType(code):
		out.Type = types.TransmissionType(code)
	default:
		rep.Add(report.Errorf(report.KindInvalidValue, schema.ElemTransmissionType,
			"unknown transmission type %q (expected O, M or A)", meta.Type))
	}

	minYear, maxYear := schema.TaxYearBounds(g.now())
	if meta.TaxYear < minYear || meta.TaxYear > maxYear {
		rep.Add(report.Errorf(report.KindInvalidValue, schema.ElemTaxYear,
			"tax year %d outside [%d, %d]", meta.TaxYear, minYear, maxYear))
	}

	if meta.SequenceNumber < schema.MinSequenceNumber || meta.SequenceNumber > schema.MaxSequenceNumber {
		rep.Add(report.Errorf(report.KindInvalidValue, schema.ElemSequenceNumber,
			"sequence number %d outside [%d, %d]", meta.SequenceNumber, schema.MinSequenceNumber, schema.MaxSequenceNumber))
	}

	out.CertificationNumber = schema.CleanText(meta.CertificationNumber, schema.MaxCertificationNo)

	out.SoftwareName = schema.CleanText(meta.SoftwareName, schema.MaxSoftwareLength)
	if out.SoftwareName == "" {
		out.SoftwareName = DefaultSoftwareName
	}
	out.SoftwareVersion = schema.CleanText(meta.SoftwareVersion, schema.MaxSoftwareLength)
	if out.SoftwareVersion == "" {
		out.SoftwareVersion = DefaultSoftwareVersion
	}

	return out
}

// checkIssuer validates issuer and returns its normalized form.
func (g *Generator) checkIssuer(rep *report.Report, issuer types.Issuer) types.Issuer {
	out := types.Issuer{
		EnterpriseNumber: schema.DigitsOnly(issuer.EnterpriseNumber),
		NameLine1:        schema.CleanText(issuer.NameLine1, schema.MaxAddressLength),
		NameLine2:        schema.CleanText(issuer.NameLine2, schema.MaxAddressLength),
	}

	switch {
	case strings.TrimSpace(issuer.EnterpriseNumber) == "":
		rep.Add(report.Errorf(report.KindMissingElement, schema.ElemEnterpriseNumber,
			"enterprise number is required"))
	case !schema.IsValidEnterpriseNumber(out.EnterpriseNumber):
		rep.Add(report.Errorf(report.KindInvalidFormat, schema.ElemEnterpriseNumber,
			"enterprise number %q must be %d digits", issuer.EnterpriseNumber, schema.EnterpriseDigits))
	}

	if out.NameLine1 == "" {
		rep.Add(report.Errorf(report.KindMissingElement, "IssuerName/Line1", "issuer name is required"))
	}

	addr := issuer.Address
	out.Address = types.Address{
		Line1:    schema.CleanText(addr.Line1, schema.MaxAddressLength),
		Line2:    schema.CleanText(addr.Line2, schema.MaxAddressLength),
		City:     schema.CleanText(addr.City, schema.MaxCityLength),
		Province: strings.ToUpper(schema.CleanText(addr.Province, 0)),
		Country:  strings.ToUpper(schema.CleanText(addr.Country, 3)),
	}
	if out.Address.Line1 == "" {
		rep.Add(report.Errorf(report.KindMissingElement, "IssuerAddress/Line1", "issuer address is required"))
	}
	if out.Address.City == "" {
		rep.Add(report.Errorf(report.KindMissingElement, "IssuerAddress/City", "issuer city is required"))
	}
	if out.Address.Province == "" {
		out.Address.Province = schema.DefaultProvince
	} else if !schema.IsValidProvince(out.Address.Province) {
		rep.Add(report.Errorf(report.KindInvalidFormat, "IssuerAddress/Province",
			"province %q is not a two-letter code", addr.Province))
	}
	if out.Address.Country == "" {
		out.Address.Country = schema.DefaultCountry
	}
	if raw := strings.TrimSpace(addr.PostalCode); raw != "" {
		out.Address.PostalCode = schema.FormatPostalCode(raw)
		if out.Address.PostalCode == "" {
			rep.Add(report.Warnf(report.KindInvalidFormat, "IssuerAddress/PostalCode",
				"postal code %q was omitted", raw))
		}
	}

	return out
}

// =============================================================================
// DOCUMENT BUILDING
// =============================================================================

// buildDocument assembles the element tree in the mandated order.
func buildDocument(meta types.TransmissionMetadata, issuer types.Issuer, slips []types.Slip, summary types.SummaryTotals) XMLElement {
	root := newElement(schema.ElemTransmission)
	root.Attributes = []xml.Attr{{Name: xml.Name{Local: "xmlns"}, Value: schema.Namespace}}

	root.add(newElement(schema.ElemHeader, buildTransmitter(meta)))

	group := newElement(schema.ElemGroup, buildIssuer(issuer))
	for _, s := range slips {
		group.add(buildSlip(s))
	}
	group.add(buildSummary(summary))

	root.add(group)
	return root
}

func buildTransmitter(meta types.TransmissionMetadata) XMLElement {
	t := newElement(schema.ElemTransmitter,
		textElement(schema.ElemTransmitterNumber, meta.PreparerNumber),
		textElement(schema.ElemTransmissionType, string(meta.Type)),
		intElement(schema.ElemTaxYear, meta.TaxYear),
		intElement(schema.ElemSequenceNumber, meta.SequenceNumber),
	)
	t.addOptional(schema.ElemCertificationNumber, meta.CertificationNumber)
	t.add(
		textElement(schema.ElemSoftwareName, meta.SoftwareName),
		textElement(schema.ElemSoftwareVersion, meta.SoftwareVersion),
	)
	return t
}

func buildIssuer(issuer types.Issuer) XMLElement {
	name := newElement(schema.ElemIssuerName, textElement(schema.ElemLine1, issuer.NameLine1))
	name.addOptional(schema.ElemLine2, issuer.NameLine2)

	addr := buildAddress(schema.ElemIssuerAddress, issuer.Address)
	addr.add(textElement(schema.ElemCountry, issuer.Address.Country))

	return newElement(schema.ElemIssuer,
		textElement(schema.ElemEnterpriseNumber, issuer.EnterpriseNumber),
		name,
		addr,
	)
}

// buildAddress renders Line1, Line2, City, Province and PostalCode.
func buildAddress(name string, a types.Address) XMLElement {
	addr := newElement(name, textElement(schema.ElemLine1, a.Line1))
	addr.addOptional(schema.ElemLine2, a.Line2)
	addr.add(
		textElement(schema.ElemCity, a.City),
		textElement(schema.ElemProvince, a.Province),
	)
	addr.addOptional(schema.ElemPostalCode, a.PostalCode)
	return addr
}

// buildSlip renders one slip:
//
//	<Slip>
//	  <Identification>...</Identification>
//	  <Recipient>...</Recipient>
//	  <Child>...</Child>
//	  <ServicePeriod>...</ServicePeriod>
//	  <Box10>...</Box10> ... <Box14>...</Box14>
//	</Slip>
func buildSlip(s types.Slip) XMLElement {
	ident := newElement(schema.ElemIdentification,
		intElement(schema.ElemSlipNumber, s.Number),
		textElement(schema.ElemTypeCode, string(s.Type)),
	)
	ident.addOptional(schema.ElemSubCode, s.SubCode)
	ident.addOptional(schema.ElemOriginalSlipNumber, s.OriginalSlipNumber)

	recipient := newElement(schema.ElemRecipient)
	recipient.addOptional(schema.ElemIdentityNumber, s.Recipient.IdentityNumber)
	recipient.add(newElement(schema.ElemName,
		textElement(schema.ElemLast, s.Recipient.LastName),
		textElement(schema.ElemFirst, s.Recipient.FirstName),
	))
	if !s.Recipient.Address.IsZero() {
		recipient.add(buildAddress(schema.ElemAddress, s.Recipient.Address))
	}

	child := newElement(schema.ElemChild,
		textElement(schema.ElemLast, s.Child.LastName),
		textElement(schema.ElemFirst, s.Child.FirstName),
	)
	child.addOptional(schema.ElemDateOfBirth, s.Child.BirthDate)

	period := newElement(schema.ElemServicePeriod,
		textElement(schema.ElemStart, s.ServiceStart.Format(schema.DateLayout)),
		textElement(schema.ElemEnd, s.ServiceEnd.Format(schema.DateLayout)),
	)

	return newElement(schema.ElemSlip,
		ident,
		recipient,
		child,
		period,
		intElement(schema.ElemBox10, s.Days),
		textElement(schema.ElemBox11, schema.FormatAmount(s.AmountPaid)),
		textElement(schema.ElemBox12, schema.FormatAmount(s.EligibleAmount)),
		textElement(schema.ElemBox13, schema.FormatAmount(s.GovernmentContribution)),
		textElement(schema.ElemBox14, schema.FormatAmount(s.NetEligible)),
	)
}

func buildSummary(totals types.SummaryTotals) XMLElement {
	return newElement(schema.ElemSummary,
		intElement(schema.ElemTotalSlips, totals.SlipCount),
		intElement(schema.ElemTotalDays, totals.TotalDays),
		textElement(schema.ElemTotalBox11, totals.TotalPaid.StringFixed(schema.AmountDecimalPlaces)),
		textElement(schema.ElemTotalBox12, totals.TotalEligible.StringFixed(schema.AmountDecimalPlaces)),
		textElement(schema.ElemTotalBox13, totals.TotalContribution.StringFixed(schema.AmountDecimalPlaces)),
		textElement(schema.ElemTotalBox14, totals.TotalNet.StringFixed(schema.AmountDecimalPlaces)),
	)
}
