package catalog

import (
	"sort"
	"strings"
)

// excludedColumns never reach the output table.
var excludedColumns = map[string]struct{}{
	"param":                {},
	"param_name":           {},
	"param_unit":           {},
	"delivery-options":     {},
	"delivery_options":     {},
	"delivery_options_xml": {},
	"option_cost":          {},
	"option_days":          {},
	"option_order-before":  {},
	"images":               {},
	"debug_images_found":   {},
	"offers":               {},
}

// importantColumns are kept whenever any record has them, even when every
// value is empty or Undefined.
var importantColumns = map[string]struct{}{
	"Размер":                        {},
	"delivery_options@cost":         {},
	"delivery_options@days":         {},
	"delivery_options@order-before": {},
}

// ProjectColumns computes the sorted output columns from the union of field
// names across records.
func ProjectColumns(records []FlatRecord) []string {
	union := make(map[string]struct{})
	for _, rec := range records {
		for k := range rec {
			union[k] = struct{}{}
		}
	}

	columns := make([]string, 0, len(union))
	for col := range union {
		if _, ok := importantColumns[col]; ok {
			columns = append(columns, col)
			continue
		}
		if _, ok := excludedColumns[col]; ok {
			continue
		}
		if isNumericName(col) || undefinedOnly(records, col) {
			continue
		}
		columns = append(columns, col)
	}
	sort.Strings(columns)
	return columns
}

// undefinedOnly reports whether col carries nothing but blanks and
// Undefined across all records.
func undefinedOnly(records []FlatRecord, col string) bool {
	for _, rec := range records {
		v := rec[col]
		if strings.TrimSpace(v) != "" && v != Undefined {
			return false
		}
	}
	return true
}
