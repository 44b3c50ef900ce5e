// =============================================================================
// RL-24 Transmission - CSV Parser Module
// =============================================================================
//
// This module reads slip records exported as CSV by the childcare management
// system. It handles:
//   - Different delimiters (comma, semicolon, pipe, tab)
//   - A UTF-8 byte order mark on the first header
//   - Quoted fields, including embedded delimiters and line breaks
//   - Blank lines between records
//
// The first non-empty line is the header row. Every following non-empty
// line becomes one SourceRow keyed by header, numbered by its line in the
// file so the converter can point the operator at the right row.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ginjaninja78/rl24-transmission/internal/config"
	"github.com/ginjaninja78/rl24-transmission/internal/types"
)

const byteOrderMark = "\uFEFF"

// =============================================================================
// CSV DATA STRUCTURE
// =============================================================================

// CSVData represents the parsed CSV file.
type CSVData struct {
	// Headers contains the cleaned column headers, in file order.
	Headers []string

	// Rows contains the data rows, in file order, blank lines skipped.
	Rows []types.SourceRow

	// SourceFile is the path to the source CSV file.
	SourceFile string
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV file and returns the parsed data.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: The input settings (delimiter).
//
// RETURNS:
//   - A pointer to the CSVData struct containing the parsed data.
//   - An error if the file cannot be read or parsed.
func Parse(filePath string, settings config.InputConfig) (*CSVData, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	data, err := ParseReader(bufio.NewReader(file), settings)
	if err != nil {
		return nil, err
	}
	data.SourceFile = filePath
	return data, nil
}

// ParseReader reads CSV text from r.
func ParseReader(r io.Reader, settings config.InputConfig) (*CSVData, error) {
	csvReader := csv.NewReader(r)
	configureReader(csvReader, settings)

	data := &CSVData{Rows: []types.SourceRow{}}

	for {
		record, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}

		if isRowEmpty(record) {
			continue
		}

		if data.Headers == nil {
			data.Headers = cleanHeaders(record)
			continue
		}

		line, _ := csvReader.FieldPos(0)
		data.Rows = append(data.Rows, types.SourceRow{
			Line:   line,
			Values: rowValues(data.Headers, record),
		})
	}

	if data.Headers == nil {
		return nil, fmt.Errorf("CSV file is empty")
	}

	return data, nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.InputConfig) {
	switch settings.Delimiter {
	case "\\t", "\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		if d := []rune(settings.Delimiter); len(d) > 0 {
			reader.Comma = d[0]
		} else {
			reader.Comma = ','
		}
	}

	// Exports from spreadsheets often drop trailing empty cells.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

// cleanHeaders trims headers, strips a byte order mark, and names empty
// columns after their position.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))

	for i, header := range headers {
		if i == 0 {
			header = strings.TrimPrefix(header, byteOrderMark)
		}
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		cleaned[i] = header
	}

	return cleaned
}

// rowValues maps a record onto headers. Missing trailing cells are empty.
func rowValues(headers, record []string) map[string]string {
	values := make(map[string]string, len(headers))
	for i, header := range headers {
		if i < len(record) {
			values[header] = strings.TrimSpace(record[i])
		} else {
			values[header] = ""
		}
	}
	return values
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
