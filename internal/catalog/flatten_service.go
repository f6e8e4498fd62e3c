package catalog

import (
	"strings"

	"github.com/beevik/etree"
)

const serviceType = "verification_service"

// serviceFlattener handles feeds of <service> elements.
type serviceFlattener struct{}

func (serviceFlattener) Dialect() Dialect { return DialectService }

func (serviceFlattener) Chunked() bool { return false }

// Records returns every descendant service element. A document whose root
// is a lone service element is treated as a single record.
func (serviceFlattener) Records(root *etree.Element) []*etree.Element {
	found := descendantsByTag(root, "service")
	if len(found) == 0 && root.Tag == "service" {
		return []*etree.Element{root}
	}
	return found
}

func (serviceFlattener) Flatten(el *etree.Element) (FlatRecord, []ExtractionWarning) {
	rec := make(FlatRecord)
	for _, a := range el.Attr {
		rec[a.Key] = a.Value
	}
	for _, child := range el.ChildElements() {
		if t := text(child); t != "" {
			rec[child.Tag] = t
		}
		for _, a := range child.Attr {
			rec[child.Tag+"_"+a.Key] = a.Value
		}
	}

	if _, ok := rec[FieldCategoryPath]; !ok {
		rec[FieldCategoryPath] = firstPresent(rec, "Service", "name")
	}
	if _, ok := rec[FieldCategoryID]; !ok {
		rec[FieldCategoryID] = firstPresent(rec, "service", "id", "sid")
	}
	if name, ok := rec["name"]; ok {
		rec["name"] = SanitizeName(name)
	}
	if d, ok := rec[FieldDescription]; ok {
		rec[FieldDescription] = SanitizeDescription(d)
	}
	rec["service_type"] = serviceType
	rec.fill(FieldPictures, strings.Join(harvestImages(el), Delimiter))
	rec.defaults()

	var warnings []ExtractionWarning
	if rec[FieldDescription] == "" {
		warnings = append(warnings, ExtractionWarning{
			RecordID: rec.ID(),
			Field:    FieldDescription,
			Reason:   "no description element",
		})
	}
	return rec, warnings
}

// firstPresent returns the value of the first key present in rec, or def.
func firstPresent(rec FlatRecord, def string, keys ...string) string {
	for _, k := range keys {
		if v, ok := rec[k]; ok {
			return v
		}
	}
	return def
}
