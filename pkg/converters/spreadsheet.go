package converters

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// SpreadsheetConverter renders workbook bytes into plain text. Spreadsheets
// bypass AI text extraction entirely: their text is deterministic, and the
// rendered output is fed as extra context into structured extraction.
type SpreadsheetConverter struct{}

func NewSpreadsheetConverter() *SpreadsheetConverter {
	return &SpreadsheetConverter{}
}

// IsSpreadsheetExt reports whether a file extension (with or without the
// leading dot) is handled by this converter.
func IsSpreadsheetExt(ext string) bool {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "xlsx", "xlsm", "xltx", "xltm":
		return true
	}
	return false
}

// Convert renders every sheet as tab-separated rows, one sheet section per
// sheet, preserving row order. Empty trailing cells are kept so column
// positions stay stable.
func (c *SpreadsheetConverter) Convert(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	for i, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}

		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("=== %s ===\n", sheet))
		for _, row := range rows {
			sb.WriteString(strings.Join(row, "\t"))
			sb.WriteString("\n")
		}
	}

	return sb.String(), nil
}
