package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// FieldDelimiter separates columns in the output table.
const FieldDelimiter = ';'

var cellNewlines = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// WriteTable writes a UTF-8 BOM, the header row and one row per record.
// Missing fields are written as empty cells.
func WriteTable(w io.Writer, records []FlatRecord, columns []string) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}

	cw := csv.NewWriter(w)
	cw.Comma = FieldDelimiter
	cw.UseCRLF = true

	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(columns))
	for i, rec := range records {
		for j, col := range columns {
			row[j] = formatCell(col, rec[col])
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush table: %w", err)
	}
	return nil
}

// formatCell applies the per-column output rules to one value.
func formatCell(column, value string) string {
	if value == "" {
		return ""
	}
	if isSizeLike(column) {
		value = strings.TrimSpace(strings.ReplaceAll(value, "?", ""))
	}
	if column == "ROOM_TYPE" || column == "PURPOSE" {
		value = strings.ReplaceAll(value, ", ", Delimiter)
	}
	// \r\n first so a Windows line break becomes a single space.
	return strings.TrimSpace(cellNewlines.Replace(value))
}
