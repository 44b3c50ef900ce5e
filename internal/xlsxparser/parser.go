// =============================================================================
// RL-24 Transmission - XLSX Parser
// =============================================================================
//
// This module reads slip records kept in an Excel workbook. The layout is the
// same as the CSV export: one header row, then one record per row.
//
//   | Recipient Last | Recipient First | Child Last | Child First | Days | Box 11 | ...
//   |----------------|-----------------|------------|-------------|------|--------|
//   | Tremblay       | Marie           | Tremblay   | Léa         | 180  | 4500   |
//
// Sheets whose name starts with "_" are treated as notes and never selected
// by default.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/rl24-transmission/internal/types"
)

// =============================================================================
// SHEET DATA STRUCTURE
// =============================================================================

// SheetData represents the parsed records sheet.
type SheetData struct {
	// Sheet is the name of the sheet that was read.
	Sheet string

	// Headers contains the cleaned column headers, in sheet order.
	Headers []string

	// Rows contains the data rows. Line is the 1-based sheet row number.
	Rows []types.SourceRow

	// SourceFile is the path to the workbook.
	SourceFile string
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads the records sheet of a workbook.
//
// PARAMETERS:
//   - workbookPath: The path to the XLSX file.
//   - sheet: The sheet to read. Empty selects the first data sheet.
//
// RETURNS:
//   - A pointer to the SheetData struct.
//   - An error if the workbook cannot be opened or the sheet does not exist.
func Parse(workbookPath, sheet string) (*SheetData, error) {
	f, err := excelize.OpenFile(workbookPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheetName, err := selectSheet(f, sheet)
	if err != nil {
		return nil, err
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	data := &SheetData{
		Sheet:      sheetName,
		Rows:       []types.SourceRow{},
		SourceFile: workbookPath,
	}

	for i, row := range rows {
		if isRowEmpty(row) {
			continue
		}

		if data.Headers == nil {
			data.Headers = cleanHeaders(row)
			continue
		}

		values := make(map[string]string, len(data.Headers))
		for col, header := range data.Headers {
			if col < len(row) {
				values[header] = strings.TrimSpace(row[col])
			} else {
				values[header] = ""
			}
		}
		data.Rows = append(data.Rows, types.SourceRow{Line: i + 1, Values: values})
	}

	if data.Headers == nil {
		return nil, fmt.Errorf("sheet '%s' is empty", sheetName)
	}

	return data, nil
}

// DataSheets lists the sheets Parse can select, skipping "_" note sheets.
func DataSheets(f *excelize.File) []string {
	var sheets []string
	for _, name := range f.GetSheetList() {
		if strings.HasPrefix(name, "_") {
			continue
		}
		sheets = append(sheets, name)
	}
	return sheets
}

// selectSheet resolves the requested sheet name.
func selectSheet(f *excelize.File, sheet string) (string, error) {
	available := DataSheets(f)

	if sheet == "" {
		if len(available) == 0 {
			return "", fmt.Errorf("workbook has no data sheet")
		}
		return available[0], nil
	}

	for _, name := range f.GetSheetList() {
		if strings.EqualFold(name, sheet) {
			return name, nil
		}
	}
	return "", fmt.Errorf("sheet '%s' not found (available: %s)", sheet, strings.Join(available, ", "))
}

func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		cleaned[i] = header
	}
	return cleaned
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
