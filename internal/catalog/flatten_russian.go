package catalog

import (
	"math"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

const (
	russianRecordTag = "ЭлементСправочника"
	tablePartTag     = "ТЧ"
	tablePartNameKey = "ИмяТабличнойЧасти"
	tableRowTag      = "ЭлементТЧ"
	materialIDField  = "ID_Материала"
)

// russianFlattener handles accounting exports where each record is an
// ЭлементСправочника with plain children and named table parts (ТЧ).
type russianFlattener struct{}

func (russianFlattener) Dialect() Dialect { return DialectRussian }

// Exports are flattened in a single pass over the document.
func (russianFlattener) Chunked() bool { return false }

func (russianFlattener) Records(root *etree.Element) []*etree.Element {
	return descendantsByTag(root, russianRecordTag)
}

func (russianFlattener) Flatten(el *etree.Element) (FlatRecord, []ExtractionWarning) {
	rec := make(FlatRecord)
	var warnings []ExtractionWarning

	for _, child := range el.ChildElements() {
		if child.Tag == tablePartTag {
			name := child.SelectAttrValue(tablePartNameKey, "UnknownTC")
			if !applyTablePart(rec, name, tableRows(child)) {
				warnings = append(warnings, ExtractionWarning{
					Field:  name,
					Reason: "table part ignored",
				})
			}
			continue
		}
		applyRussianField(rec, child)
	}

	if _, ok := rec[FieldCategoryPath]; !ok {
		rec[FieldCategoryPath] = Undefined
		rec[FieldCategoryID] = Undefined
	}
	if id, ok := rec["ID"]; ok {
		rec["id"] = id
	}
	rec.fill(FieldPictures, strings.Join(harvestImages(el), Delimiter))
	rec.defaults()

	for k, v := range rec {
		if strings.Contains(v, Delimiter) {
			rec[k] = DedupeDelimited(v, Delimiter)
		}
	}

	if id := rec.ID(); id != "" {
		for i := range warnings {
			warnings[i].RecordID = id
		}
	}
	return rec, warnings
}

// tableRows returns the non-empty rows of a table part as column → value.
func tableRows(tc *etree.Element) []map[string]string {
	var rows []map[string]string
	for _, row := range tc.SelectElements(tableRowTag) {
		cells := make(map[string]string)
		for _, c := range row.ChildElements() {
			if t := text(c); t != "" {
				cells[c.Tag] = t
			}
		}
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	}
	return rows
}

// applyTablePart folds one table part into rec. It reports false for table
// parts it does not know.
func applyTablePart(rec FlatRecord, name string, rows []map[string]string) bool {
	switch name {
	case "Остатки":
		if len(rows) > 0 {
			applyStock(rec, rows)
		}
	case "Цены":
		for _, row := range rows {
			kind, value := row["Наименование"], row["Значение"]
			if kind == "" || value == "" {
				continue
			}
			switch {
			case kind == "Цена":
				rec["price"] = value
			case kind == "ЦенаСкидка" && value != "0":
				rec["oldprice"] = rec["price"]
				rec["price"] = value
			}
		}
	case "Материалы":
		names := uniqueColumn(rows, "Наименование")
		if len(names) > 0 {
			rec["материалы"] = strings.Join(names, Delimiter)
		}
		if ids := uniqueColumn(rows, materialIDField); len(ids) > 0 {
			rec[materialIDField] = DedupeDelimited(rec[materialIDField]+Delimiter+strings.Join(ids, Delimiter), Delimiter)
		}
	case "Стили":
		if names := uniqueColumn(rows, "Наименование"); len(names) > 0 {
			rec["стили"] = strings.Join(names, Delimiter)
		}
	case "ГруппыСайта":
		if names := uniqueColumn(rows, "Наименование"); len(names) > 0 {
			rec[FieldCategoryPath] = strings.Join(names, Delimiter)
			rec[FieldCategoryID] = names[0]
		}
	default:
		return false
	}
	return true
}

// applyStock sums warehouse quantities. Non-numeric quantities count as
// zero but are still listed unless they are "0".
func applyStock(rec FlatRecord, rows []map[string]string) {
	var total float64
	var details []string
	for _, row := range rows {
		warehouse := row["СкладНаименование"]
		qty, ok := row["КоличествоОстаток"]
		if !ok {
			qty = "0"
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(qty), 64)
		if err != nil {
			if qty != "0" {
				details = append(details, warehouse+": "+qty)
			}
			continue
		}
		total += n
		if n > 0 {
			details = append(details, warehouse+": "+qty)
		}
	}

	if total > 0 {
		rec[FieldAvailable] = "1"
	} else {
		rec[FieldAvailable] = "0"
	}
	rec["stock_total"] = formatTotal(total)
	rec["stock_details"] = strings.Join(details, Delimiter)
}

// formatTotal renders a float the way the exports' consumers expect:
// integral values keep one decimal ("5.0"), very large or very small
// magnitudes use exponent notation.
func formatTotal(f float64) string {
	abs := math.Abs(f)
	switch {
	case math.IsInf(f, 0) || math.IsNaN(f):
		return strconv.FormatFloat(f, 'g', -1, 64)
	case abs >= 1e16 || (abs != 0 && abs < 1e-4):
		return strconv.FormatFloat(f, 'e', -1, 64)
	case f == math.Trunc(f):
		return strconv.FormatFloat(f, 'f', 1, 64)
	default:
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
}

func uniqueColumn(rows []map[string]string, column string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, row := range rows {
		v := row[column]
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// applyRussianField maps a plain child of the record onto its column.
func applyRussianField(rec FlatRecord, child *etree.Element) {
	value := text(child)
	if value == "" {
		return
	}
	switch child.Tag {
	case "ОписаниеДляСайта", "description":
		rec[FieldDescription] = SanitizeDescription(value)
	case "Наименование":
		rec["name"] = SanitizeName(value)
	case "ПолноеНазваниеСайт":
		rec["full_name"] = SanitizeName(value)
	case "Артикул":
		rec["Артикул"] = value
		rec["vendor"] = value
		rec["vendorCode"] = value
	case "Глубина", "Ширина", "Высота", "Вес":
		rec[strings.ToLower(child.Tag)] = value
	case "Цвет":
		rec["param_Цвет"] = value
	default:
		rec[child.Tag] = value
	}
}
