// =============================================================================
// RL-24 Transmission - Row Transformation
// =============================================================================
//
// This module maps loader rows (CSV or XLSX) onto typed SlipRecords.
//
// COLUMN VOCABULARY:
//   Headers are matched case-insensitively with every non-alphanumeric
//   character ignored, so "Recipient Last", "recipient_last" and
//   "RECIPIENT-LAST" are the same column. Each column also accepts a few
//   aliases (see Columns).
//
// CELL CONVERSIONS:
//   - Amounts: "$", spaces and thousands separators are dropped; a lone comma
//     is read as the decimal separator ("1 234,50" -> 1234.50)
//   - Days: whole numbers from 0 to the yearly maximum, "12.0" accepted
//   - Everything else is passed through as text; the slip builder decides
//
// Every cell that cannot be converted is reported with its row, and a column
// named by two headers is reported once; all of them are returned together.
//
// =============================================================================

package converter

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/rl24-transmission/internal/schema"
	"github.com/ginjaninja78/rl24-transmission/internal/types"
)

// =============================================================================
// COLUMNS
// =============================================================================

// Column names of the record layout.
const (
	ColType                   = "type"
	ColOriginalSlipNumber     = "original_slip_number"
	ColSubCode                = "sub_code"
	ColRecipientSIN           = "recipient_sin"
	ColRecipientLast          = "recipient_last"
	ColRecipientFirst         = "recipient_first"
	ColRecipientAddress1      = "recipient_address1"
	ColRecipientAddress2      = "recipient_address2"
	ColRecipientCity          = "recipient_city"
	ColRecipientProvince      = "recipient_province"
	ColRecipientPostalCode    = "recipient_postal_code"
	ColChildLast              = "child_last"
	ColChildFirst             = "child_first"
	ColChildBirthDate         = "child_birth_date"
	ColServiceStart           = "service_start"
	ColServiceEnd             = "service_end"
	ColDays                   = "days"
	ColAmountPaid             = "amount_paid"
	ColEligibleAmount         = "eligible_amount"
	ColGovernmentContribution = "government_contribution"
	ColNetEligible            = "net_eligible"
)

// Column describes one recognized column.
type Column struct {
	Name     string
	Aliases  []string
	Required bool
}

// Columns is the record layout accepted by RowsToRecords.
var Columns = []Column{
	{Name: ColType, Aliases: []string{"slip_type", "type_code"}},
	{Name: ColOriginalSlipNumber, Aliases: []string{"original_slip", "reference"}},
	{Name: ColSubCode},
	{Name: ColRecipientSIN, Aliases: []string{"sin", "nas", "identity_number"}},
	{Name: ColRecipientLast, Aliases: []string{"parent_last"}, Required: true},
	{Name: ColRecipientFirst, Aliases: []string{"parent_first"}, Required: true},
	{Name: ColRecipientAddress1, Aliases: []string{"address1", "address"}},
	{Name: ColRecipientAddress2, Aliases: []string{"address2"}},
	{Name: ColRecipientCity, Aliases: []string{"city"}},
	{Name: ColRecipientProvince, Aliases: []string{"province"}},
	{Name: ColRecipientPostalCode, Aliases: []string{"postal_code"}},
	{Name: ColChildLast, Required: true},
	{Name: ColChildFirst, Required: true},
	{Name: ColChildBirthDate, Aliases: []string{"child_dob"}},
	{Name: ColServiceStart, Aliases: []string{"start"}},
	{Name: ColServiceEnd, Aliases: []string{"end"}},
	{Name: ColDays, Aliases: []string{"box10"}},
	{Name: ColAmountPaid, Aliases: []string{"box11"}},
	{Name: ColEligibleAmount, Aliases: []string{"box12"}},
	{Name: ColGovernmentContribution, Aliases: []string{"box13"}},
	{Name: ColNetEligible, Aliases: []string{"box14"}},
}

// normalizeHeader lowercases h and drops every non-alphanumeric rune.
func normalizeHeader(h string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(h) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// columnIndex maps every normalized name and alias to its column name.
func columnIndex() map[string]string {
	index := make(map[string]string)
	for _, col := range Columns {
		index[normalizeHeader(col.Name)] = col.Name
		for _, alias := range col.Aliases {
			index[normalizeHeader(alias)] = col.Name
		}
	}
	return index
}

// =============================================================================
// ROW ERRORS
// =============================================================================

// RowError is a cell that could not be converted.
type RowError struct {
	Line   int
	Column string
	Value  string
	Reason string
}

func (e *RowError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("column %s: %s", e.Column, e.Reason)
	}
	return fmt.Sprintf("row %d, column %s: %s (value %q)", e.Line, e.Column, e.Reason, e.Value)
}

// ErrInvalidRows is wrapped by the error RowsToRecords returns.
var ErrInvalidRows = errors.New("input rows cannot be converted")

// =============================================================================
// CONVERSION
// =============================================================================

// RowsToRecords converts loader rows into slip records.
//
// PARAMETERS:
//   - rows: The rows read by csvparser or xlsxparser.
//
// RETURNS:
//   - One record per row, in row order.
//   - An error wrapping ErrInvalidRows and every *RowError, or nil.
func RowsToRecords(rows []types.SourceRow) ([]types.SlipRecord, error) {
	index := columnIndex()
	var errs []error

	if len(rows) > 0 {
		errs = append(errs, duplicateColumns(rows[0].Values, index)...)
		errs = append(errs, missingColumns(rows[0].Values, index)...)
	}

	records := make([]types.SlipRecord, 0, len(rows))
	for _, row := range rows {
		cells := make(map[string]string, len(row.Values))
		for header, value := range row.Values {
			if name, ok := index[normalizeHeader(header)]; ok {
				cells[name] = value
			}
		}

		record, rowErrs := rowToRecord(row.Line, cells)
		errs = append(errs, rowErrs...)
		records = append(records, record)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRows, errors.Join(errs...))
	}
	return records, nil
}

// duplicateColumns reports columns named by more than one header.
func duplicateColumns(values map[string]string, index map[string]string) []error {
	headers := make(map[string][]string)
	for header := range values {
		if name, ok := index[normalizeHeader(header)]; ok {
			headers[name] = append(headers[name], header)
		}
	}

	var errs []error
	for _, col := range Columns {
		found := headers[col.Name]
		if len(found) < 2 {
			continue
		}
		slices.Sort(found)
		errs = append(errs, &RowError{
			Column: col.Name,
			Reason: fmt.Sprintf("headers %q and %q both map to this column", found[0], found[1]),
		})
	}
	return errs
}

// missingColumns reports required columns absent from the header.
func missingColumns(values map[string]string, index map[string]string) []error {
	present := make(map[string]bool)
	for header := range values {
		if name, ok := index[normalizeHeader(header)]; ok {
			present[name] = true
		}
	}

	var errs []error
	for _, col := range Columns {
		if col.Required && !present[col.Name] {
			errs = append(errs, &RowError{Column: col.Name, Reason: "required column is missing"})
		}
	}
	return errs
}

func rowToRecord(line int, cells map[string]string) (types.SlipRecord, []error) {
	var errs []error

	amount := func(col string) decimal.Decimal {
		v, ok, err := parseAmountCell(cells[col])
		if err != nil {
			errs = append(errs, &RowError{Line: line, Column: col, Value: cells[col], Reason: err.Error()})
		}
		if !ok {
			return decimal.Zero
		}
		return v
	}

	record := types.SlipRecord{
		Type:               types.SlipType(strings.ToUpper(strings.TrimSpace(cells[ColType]))),
		OriginalSlipNumber: cells[ColOriginalSlipNumber],
		SubCode:            cells[ColSubCode],
		Recipient: types.Recipient{
			IdentityNumber: cells[ColRecipientSIN],
			LastName:       cells[ColRecipientLast],
			FirstName:      cells[ColRecipientFirst],
			Address: types.Address{
				Line1:      cells[ColRecipientAddress1],
				Line2:      cells[ColRecipientAddress2],
				City:       cells[ColRecipientCity],
				Province:   cells[ColRecipientProvince],
				PostalCode: cells[ColRecipientPostalCode],
			},
		},
		Child: types.Child{
			LastName:  cells[ColChildLast],
			FirstName: cells[ColChildFirst],
			BirthDate: cells[ColChildBirthDate],
		},
		ServiceStart:           cells[ColServiceStart],
		ServiceEnd:             cells[ColServiceEnd],
		AmountPaid:             amount(ColAmountPaid),
		EligibleAmount:         amount(ColEligibleAmount),
		GovernmentContribution: amount(ColGovernmentContribution),
		SourceRow:              line,
	}

	if net, ok, err := parseAmountCell(cells[ColNetEligible]); err != nil {
		errs = append(errs, &RowError{Line: line, Column: ColNetEligible, Value: cells[ColNetEligible], Reason: err.Error()})
	} else if ok {
		record.NetEligible = decimal.NewNullDecimal(net)
	}

	days, err := parseDaysCell(cells[ColDays])
	if err != nil {
		errs = append(errs, &RowError{Line: line, Column: ColDays, Value: cells[ColDays], Reason: err.Error()})
	}
	record.Days = days

	return record, errs
}

// parseAmountCell reads a money cell. ok is false for an empty cell.
func parseAmountCell(raw string) (decimal.Decimal, bool, error) {
	s := strings.Map(func(r rune) rune {
		if r == '$' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
	if s == "" {
		return decimal.Zero, false, nil
	}

	switch {
	case strings.Contains(s, ",") && strings.Contains(s, "."):
		s = strings.ReplaceAll(s, ",", "")
	case strings.Count(s, ",") == 1:
		s = strings.Replace(s, ",", ".", 1)
	}

	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("not an amount")
	}
	return v, true, nil
}

// parseDaysCell reads a day count. An empty cell is zero.
func parseDaysCell(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	v, err := decimal.NewFromString(s)
	if err != nil || !v.IsInteger() {
		return 0, fmt.Errorf("not a whole number of days")
	}
	if v.IsNegative() || v.GreaterThan(decimal.NewFromInt(schema.MaxDays)) {
		return 0, fmt.Errorf("days outside [%d, %d]", schema.MinDays, schema.MaxDays)
	}
	return int(v.IntPart()), nil
}
