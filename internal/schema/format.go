package schema

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// DateLayout is the ISO-8601 calendar date layout used in the transmission.
const DateLayout = "2006-01-02"

// inputDateLayouts are the layouts accepted from callers and loaders.
var inputDateLayouts = []string{
	DateLayout,
	"2006/01/02",
	"20060102",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"Jan 2, 2006",
	"January 2, 2006",
	// excelize renders the built-in short date format as mm-dd-yy.
	"01-02-06",
}

var (
	preparerPattern   = regexp.MustCompile(`^NP\d{6}$`)
	postalCodePattern = regexp.MustCompile(`^[ABCEGHJ-NPRSTVXY]\d[ABCEGHJ-NPRSTV-Z]\d[ABCEGHJ-NPRSTV-Z]\d$`)
	provincePattern   = regexp.MustCompile(`^[A-Z]{2}$`)
	amountPattern     = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)
	integerPattern    = regexp.MustCompile(`^\d+$`)
)

// FormatError is returned when a value cannot be interpreted.
type FormatError struct {
	Field string
	Value string
	Want  string
}

func (e *FormatError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid value %q: expected %s", e.Value, e.Want)
	}
	return fmt.Sprintf("invalid %s %q: expected %s", e.Field, e.Value, e.Want)
}

// =============================================================================
// AMOUNTS
// =============================================================================

// FormatAmount clamps value to [0, MaxAmount] and renders it with exactly two
// decimals and no thousands separator.
func FormatAmount(value decimal.Decimal) string {
	return ClampAmount(value).StringFixed(AmountDecimalPlaces)
}

// ClampAmount bounds value to [0, MaxAmount] and rounds it to cents.
func ClampAmount(value decimal.Decimal) decimal.Decimal {
	if value.IsNegative() {
		return decimal.Zero
	}
	if value.GreaterThan(MaxAmount) {
		return MaxAmount
	}
	return value.Round(AmountDecimalPlaces)
}

// ParseAmountText reads an amount as written in a transmission. Signs,
// separators and more than two decimals are rejected.
func ParseAmountText(text string) (decimal.Decimal, error) {
	text = strings.TrimSpace(text)
	if !amountPattern.MatchString(text) {
		return decimal.Zero, &FormatError{Value: text, Want: "a non-negative amount with at most 2 decimals"}
	}
	return decimal.NewFromString(text)
}

// WithinTolerance reports whether a and b differ by at most AmountTolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(AmountTolerance)
}

// IsDigits reports whether text is a non-empty run of ASCII digits.
func IsDigits(text string) bool {
	return integerPattern.MatchString(text)
}

// =============================================================================
// DATES
// =============================================================================

// ParseDate interprets value as a calendar date using the accepted layouts.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range inputDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, &FormatError{Value: value, Want: "a calendar date (YYYY-MM-DD)"}
}

// FormatDate renders value as YYYY-MM-DD.
func FormatDate(value string) (string, error) {
	t, err := ParseDate(value)
	if err != nil {
		return "", err
	}
	return t.Format(DateLayout), nil
}

// ParseTransmissionDate reads a date written in a transmission; only
// YYYY-MM-DD is accepted there.
func ParseTransmissionDate(text string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(text))
	if err != nil {
		return time.Time{}, &FormatError{Value: text, Want: "YYYY-MM-DD"}
	}
	return t, nil
}

// TaxYearBounds returns the accepted tax year window for the given instant.
func TaxYearBounds(now time.Time) (int, int) {
	return MinTaxYear, now.Year() + 1
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

// DigitsOnly strips every non-digit rune.
func DigitsOnly(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatGovernmentID strips non-digits and returns the 9-digit identity
// number, or "" when the result is not exactly 9 digits (the field is then
// omitted). The checksum is not verified here.
func FormatGovernmentID(raw string) string {
	digits := DigitsOnly(raw)
	if len(digits) != IdentityDigits {
		return ""
	}
	return digits
}

// ValidLuhn reports whether digits passes the mod-10 checksum.
func ValidLuhn(digits string) bool {
	if !IsDigits(digits) {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// IsValidIdentityNumber reports whether text is 9 digits passing mod-10.
func IsValidIdentityNumber(text string) bool {
	return len(text) == IdentityDigits && ValidLuhn(text)
}

// IsValidEnterpriseNumber reports whether digits is exactly 10 digits.
func IsValidEnterpriseNumber(digits string) bool {
	return len(digits) == EnterpriseDigits && IsDigits(digits)
}

// NormalizePreparerNumber returns the canonical "NP" + 6 digits form of raw,
// which may be given with or without the prefix. It returns "" when raw is
// neither form.
func NormalizePreparerNumber(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, PreparerPrefix)
	if len(s) != PreparerDigits || !IsDigits(s) {
		return ""
	}
	return PreparerPrefix + s
}

// IsValidPreparerNumber reports whether s is the canonical preparer identifier.
func IsValidPreparerNumber(s string) bool {
	return preparerPattern.MatchString(s)
}

// FormatPostalCode returns the 6-character Canadian postal code without the
// space, or "" when raw is not a postal code (the field is then omitted).
func FormatPostalCode(raw string) string {
	s := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), " ", ""))
	if !postalCodePattern.MatchString(s) {
		return ""
	}
	return s
}

// IsValidPostalCode reports whether s is a formatted postal code.
func IsValidPostalCode(s string) bool {
	return postalCodePattern.MatchString(s)
}

// IsValidProvince reports whether s is a two-letter province code.
func IsValidProvince(s string) bool {
	return provincePattern.MatchString(s)
}

// =============================================================================
// FILENAME
// =============================================================================

// GenerateFilename builds YY + 6-digit preparer + 3-digit sequence + ".xml".
// Preparer digits are taken from the right and zero-padded; the year and the
// sequence are reduced modulo 100 and 1000. It never fails.
func GenerateFilename(taxYear int, preparerNumber string, sequenceNumber int) string {
	digits := DigitsOnly(preparerNumber)
	if len(digits) > PreparerDigits {
		digits = digits[len(digits)-PreparerDigits:]
	}
	return fmt.Sprintf("%02d%s%03d%s",
		digitsMod(taxYear, 100),
		strings.Repeat("0", PreparerDigits-len(digits))+digits,
		digitsMod(sequenceNumber, 1000),
		FileExtension,
	)
}

// digitsMod reduces n modulo m and drops the sign.
func digitsMod(n, m int) int {
	r := n % m
	if r < 0 {
		r = -r
	}
	return r
}

// =============================================================================
// TEXT
// =============================================================================

// CleanText strips control characters and every rune XML 1.0 cannot carry,
// trims, and truncates to max runes.
func CleanText(raw string, max int) string {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsControl(r) || !IsXMLChar(r) {
			continue
		}
		b.WriteRune(r)
	}
	s := strings.TrimSpace(b.String())
	if max > 0 {
		runes := []rune(s)
		if len(runes) > max {
			s = strings.TrimSpace(string(runes[:max]))
		}
	}
	return s
}

// IsXMLChar reports whether r is allowed by the XML 1.0 Char production.
func IsXMLChar(r rune) bool {
	switch {
	case r == 0x09 || r == 0x0A || r == 0x0D:
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= 0x10FFFF:
		return true
	}
	return false
}
