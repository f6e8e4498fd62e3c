package catalog

import (
	"strings"

	"github.com/beevik/etree"
)

// fallbackDescriptionTags are tried in order when the primary description
// tag is missing or empty.
var fallbackDescriptionTags = []string{"desc", "descr", "description_full", "full_description"}

// pass is one extraction rule applied to the record accumulator. Passes run
// in order; a later pass decides for itself whether it may overwrite.
type pass func(el *etree.Element, rec FlatRecord, warn func(field, reason string))

// genericFlattener implements the Offer and Product dialects, which share
// the per-element field model and differ only in configuration.
type genericFlattener struct {
	dialect        Dialect
	recordTag      string
	excluded       map[string]struct{}
	descriptionTag string
	resolve        func(id string) string // nil: categories are not resolved
	params         func(el *etree.Element) FlatRecord
	skip           func(el *etree.Element) bool
	passes         []pass
}

func newOfferFlattener(tree *CategoryTree) *genericFlattener {
	f := &genericFlattener{
		dialect:        DialectOffer,
		recordTag:      "offer",
		excluded:       map[string]struct{}{"param": {}},
		descriptionTag: "description",
		resolve:        tree.Resolve,
		params:         offerParams,
	}
	f.passes = f.defaultPasses()
	return f
}

func newProductFlattener() *genericFlattener {
	f := &genericFlattener{
		dialect:   DialectProduct,
		recordTag: "product",
		excluded: map[string]struct{}{
			"photos":   {},
			"fabric":   {},
			"features": {},
			"options":  {},
		},
		descriptionTag: "name",
		params:         featureParams,
		// A product wrapping offers is a container, not a record.
		skip: func(el *etree.Element) bool {
			return firstDescendant(el, "offer") != nil
		},
	}
	f.passes = f.defaultPasses()
	return f
}

// defaultPasses lists the extraction rules in the order they run: direct
// data first, then the deep scan that only fills gaps, then derived fields.
func (f *genericFlattener) defaultPasses() []pass {
	return []pass{
		attributesPass,
		childrenPass,
		deepScanPass,
		f.categoryPass,
		f.canonicalPass,
		picturesPass,
		f.paramsPass,
		f.descriptionPass,
	}
}

func (f *genericFlattener) Dialect() Dialect { return f.dialect }

func (f *genericFlattener) Chunked() bool { return true }

func (f *genericFlattener) Records(root *etree.Element) []*etree.Element {
	found := root.FindElements(".//" + f.recordTag)
	if f.skip == nil {
		return found
	}
	out := found[:0]
	for _, el := range found {
		if !f.skip(el) {
			out = append(out, el)
		}
	}
	return out
}

func (f *genericFlattener) Flatten(el *etree.Element) (FlatRecord, []ExtractionWarning) {
	rec := make(FlatRecord)
	var warnings []ExtractionWarning
	warn := func(field, reason string) {
		warnings = append(warnings, ExtractionWarning{Field: field, Reason: reason})
	}

	for _, p := range f.passes {
		p(el, rec, warn)
	}
	rec.defaults()

	if id := rec.ID(); id != "" {
		for i := range warnings {
			warnings[i].RecordID = id
		}
	}
	return rec, warnings
}

// attributesPass copies the record element's attributes as attr_{name}.
func attributesPass(el *etree.Element, rec FlatRecord, _ func(string, string)) {
	for _, a := range el.Attr {
		rec["attr_"+a.Key] = a.Value
	}
}

// childrenPass records attributes and text of direct children. Repeated
// tags are merged with Delimiter. Children of <stock> become top-level
// fields.
func childrenPass(el *etree.Element, rec FlatRecord, _ func(string, string)) {
	for _, child := range el.ChildElements() {
		if isImageTag(child.Tag) {
			continue
		}
		for _, a := range child.Attr {
			rec.merge(child.Tag+"_"+a.Key, a.Value)
		}
		if t := text(child); t != "" {
			rec.merge(child.Tag, t)
		}
		if child.Tag == "stock" {
			for _, sc := range child.ChildElements() {
				if t := text(sc); t != "" {
					rec[sc.Tag] = t
				}
				for _, a := range sc.Attr {
					rec[sc.Tag+"_"+a.Key] = a.Value
				}
			}
		}
	}
}

// deepScanPass walks every descendant below the direct children and fills
// fields that are still missing. It never overwrites.
func deepScanPass(el *etree.Element, rec FlatRecord, _ func(string, string)) {
	direct := make(map[*etree.Element]struct{})
	for _, c := range el.ChildElements() {
		direct[c] = struct{}{}
	}
	for _, d := range descendants(el) {
		if _, ok := direct[d]; ok {
			continue
		}
		if isImageTag(d.Tag) {
			continue
		}
		for _, a := range d.Attr {
			rec.fill(d.Tag+"_"+a.Key, a.Value)
		}
		if t := text(d); t != "" {
			rec.fill(d.Tag, t)
		}
	}
}

// categoryPass resolves categoryId into category_path.
func (f *genericFlattener) categoryPass(el *etree.Element, rec FlatRecord, warn func(string, string)) {
	if f.resolve == nil {
		rec[FieldCategoryPath] = Undefined
		rec[FieldCategoryID] = Undefined
		return
	}

	var id string
	if c := el.SelectElement(FieldCategoryID); c != nil && text(c) != "" {
		id = text(c)
	} else if d := firstDescendant(el, FieldCategoryID); d != nil {
		id = text(d)
	}
	if id == "" {
		id = Undefined
		warn(FieldCategoryID, "no categoryId element")
	}

	path := f.resolve(id)
	if path == Undefined && id != Undefined {
		warn(FieldCategoryPath, "category "+id+" is not declared")
	}
	rec[FieldCategoryPath] = path
	rec[FieldCategoryID] = id
}

// canonicalPass derives display values for direct children and writes them
// only where the field has no real value yet.
func (f *genericFlattener) canonicalPass(el *etree.Element, rec FlatRecord, _ func(string, string)) {
	for _, child := range el.ChildElements() {
		tag := child.Tag
		if _, ok := f.excluded[tag]; ok || isImageTag(tag) {
			continue
		}

		val := text(child)
		if isNumericName(tag) {
			val = strings.ReplaceAll(val, ".", ",")
		}
		if tag == "name" {
			val = SanitizeName(val)
		}
		if tag == "Size" && strings.Contains(val, "?") {
			val = strings.TrimSpace(strings.ReplaceAll(val, "?", ""))
		}

		if rec.hasValue(tag) {
			continue
		}
		if _, present := rec[tag]; present && val == "" {
			continue
		}
		rec[tag] = val
	}
}

// picturesPass stores the harvested image URLs.
func picturesPass(el *etree.Element, rec FlatRecord, _ func(string, string)) {
	rec[FieldPictures] = strings.Join(harvestImages(el), Delimiter)
}

// paramsPass overwrites fields with the dialect's merged parameters.
func (f *genericFlattener) paramsPass(el *etree.Element, rec FlatRecord, _ func(string, string)) {
	for k, v := range f.params(el) {
		rec[k] = v
	}
}

// descriptionPass resolves the description from the primary tag or the
// fallback list and sanitizes it.
func (f *genericFlattener) descriptionPass(el *etree.Element, rec FlatRecord, warn func(string, string)) {
	if d := firstDescendant(el, f.descriptionTag); d != nil && strings.TrimSpace(d.Text()) != "" {
		rec[FieldDescription] = SanitizeDescription(d.Text())
		return
	}
	for _, tag := range fallbackDescriptionTags {
		if d := firstDescendant(el, tag); d != nil && strings.TrimSpace(d.Text()) != "" {
			rec[FieldDescription] = SanitizeDescription(d.Text())
			return
		}
	}
	rec[FieldDescription] = ""
	warn(FieldDescription, "no description element")
}
