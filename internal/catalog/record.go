package catalog

import (
	"strings"

	"github.com/beevik/etree"
)

// FlatRecord is one source record reduced to field name → string value.
type FlatRecord map[string]string

// Field names every flattener guarantees.
const (
	FieldAvailable    = "available"
	FieldCategoryPath = "category_path"
	FieldCategoryID   = "categoryId"
	FieldPictures     = "pictures"
	FieldDescription  = "description"
)

// merge adds value to key. A repeated key is joined with Delimiter and
// de-duplicated, so the first occurrence keeps its position.
func (r FlatRecord) merge(key, value string) {
	if existing, ok := r[key]; ok {
		r[key] = DedupeDelimited(existing+Delimiter+value, Delimiter)
		return
	}
	r[key] = value
}

// fill sets key only if it is not present yet.
func (r FlatRecord) fill(key, value string) {
	if _, ok := r[key]; !ok {
		r[key] = value
	}
}

// hasValue reports whether key holds a real value: present, non-empty and
// not the Undefined placeholder.
func (r FlatRecord) hasValue(key string) bool {
	v, ok := r[key]
	return ok && v != "" && v != Undefined
}

// appendComma joins value onto key with ", ".
func (r FlatRecord) appendComma(key, value string) {
	if existing, ok := r[key]; ok {
		r[key] = existing + ", " + value
		return
	}
	r[key] = value
}

// defaults writes the fields every record must carry.
func (r FlatRecord) defaults() {
	r.fill(FieldAvailable, "1")
	r.fill(FieldCategoryPath, Undefined)
	r.fill(FieldCategoryID, Undefined)
	r.fill(FieldPictures, "")
	r.fill(FieldDescription, "")
}

// ID returns the best identifier of the record for logs and warnings.
func (r FlatRecord) ID() string {
	for _, k := range []string{"attr_id", "id", "ID", "sid"} {
		if v := r[k]; v != "" {
			return v
		}
	}
	return ""
}

// text returns the trimmed character data that directly follows the
// element's opening tag.
func text(el *etree.Element) string {
	return strings.TrimSpace(el.Text())
}

// descendants returns every element below el in document order, el excluded.
func descendants(el *etree.Element) []*etree.Element {
	var out []*etree.Element
	var walk func(*etree.Element)
	walk = func(n *etree.Element) {
		for _, c := range n.ChildElements() {
			out = append(out, c)
			walk(c)
		}
	}
	walk(el)
	return out
}

// firstDescendant returns the first element below el with the given tag.
func firstDescendant(el *etree.Element, tag string) *etree.Element {
	var found *etree.Element
	var walk func(*etree.Element) bool
	walk = func(n *etree.Element) bool {
		for _, c := range n.ChildElements() {
			if c.Tag == tag {
				found = c
				return true
			}
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(el)
	return found
}

// descendantsByTag returns every element below el with the given tag.
func descendantsByTag(el *etree.Element, tag string) []*etree.Element {
	var out []*etree.Element
	for _, d := range descendants(el) {
		if d.Tag == tag {
			out = append(out, d)
		}
	}
	return out
}
