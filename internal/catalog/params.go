package catalog

import (
	"strings"
	"unicode"

	"github.com/beevik/etree"
)

// paramNamePrefix marks tags that carry a parameter in their own name, e.g.
// <param_name_Color>red</param_name_Color>.
const paramNamePrefix = "param_name_"

// isSizeLike reports whether a field or parameter name describes a size.
func isSizeLike(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "размер") || strings.Contains(lower, "size")
}

// isNumericName reports whether s is a decimal number with at most one dot,
// the same shape Python's str.replace('.', '', 1).isdigit() accepts.
func isNumericName(s string) bool {
	s = strings.Replace(s, ".", "", 1)
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// cleanParamValue strips "?" placeholders from size-like parameters and
// from values that contain digits next to a stray "?".
func cleanParamValue(key, value string) string {
	if isSizeLike(key) {
		return strings.TrimSpace(strings.ReplaceAll(value, "?", ""))
	}
	if strings.Contains(value, "?") && strings.IndexFunc(value, unicode.IsDigit) >= 0 {
		return strings.TrimSpace(strings.ReplaceAll(value, "?", ""))
	}
	return value
}

// offerParams merges <param name="..."> elements and param_name_* tags.
// Repeated keys are joined with ", ".
func offerParams(el *etree.Element) FlatRecord {
	params := make(FlatRecord)
	for _, p := range descendantsByTag(el, "param") {
		key := strings.TrimSpace(p.SelectAttrValue("name", ""))
		if key == "" || isNumericName(key) {
			continue
		}
		params.appendComma(key, cleanParamValue(key, text(p)))
	}

	for _, d := range descendants(el) {
		if !strings.HasPrefix(d.Tag, paramNamePrefix) {
			continue
		}
		params.appendComma(d.Tag, cleanParamValue(d.Tag, text(d)))
	}
	return params
}

// featureParams merges <feature name="..."> elements found under the first
// <fabric> and the first <features> element into fabric_* and feature_* keys.
func featureParams(el *etree.Element) FlatRecord {
	params := make(FlatRecord)
	groups := []struct {
		tag    string
		prefix string
	}{
		{"fabric", "fabric_"},
		{"features", "feature_"},
	}
	for _, g := range groups {
		container := firstDescendant(el, g.tag)
		if container == nil {
			continue
		}
		for _, f := range descendantsByTag(container, "feature") {
			name := f.SelectAttrValue("name", "")
			if name == "" {
				continue
			}
			params.appendComma(g.prefix+name, text(f))
		}
	}
	return params
}
