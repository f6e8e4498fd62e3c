package catalog

import (
	"encoding/xml"
	"errors"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/beevik/etree"
)

// Document is a parsed feed ready for flattening.
type Document struct {
	Dialect    Dialect
	Root       *etree.Element
	Categories *CategoryTree // nil unless Dialect is DialectOffer

	// ControlCharsRemoved counts characters stripped before parsing.
	ControlCharsRemoved int
	// Repaired is set when the first parse failed and the repair pass
	// produced a parseable document.
	Repaired bool
}

var (
	// catalogRootMarkers rescue text that mentions "error" or "404" but is
	// still a catalog.
	catalogRootMarkers = []string{"<yml_catalog", "<catalog", "<offers", "<products", "<shop", "<корневой"}

	// structuralMarkers must appear at least once for text to be treated as
	// a catalog. Matched against lower-cased text.
	structuralMarkers = []string{
		"<yml_catalog", "<catalog", "<offer", "<product", "<shop",
		"<categor", "<корневой", "<элементсправочника", "<service",
	}

	errorPageWords = []string{"error", "not found", "404"}

	controlChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
)

// Prepare validates text, parses it and selects the dialect. A hint other
// than DialectAuto overrides detection.
func Prepare(text string, hint Dialect) (*Document, error) {
	trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "\ufeff"))
	if trimmed == "" {
		return nil, &InvalidInputError{Reason: "empty file"}
	}

	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "<html") || strings.HasPrefix(lower, "<!doctype html") {
		return nil, &InvalidInputError{Reason: "data contains an HTML page instead of XML"}
	}
	if containsAny(lower, errorPageWords) &&
		!strings.HasPrefix(trimmed, "<?xml") &&
		!containsAny(lower, catalogRootMarkers) {
		return nil, &InvalidInputError{Reason: "data contains an error page"}
	}

	if !strings.HasPrefix(trimmed, "<") {
		return nil, &InvalidInputError{Reason: "data is not an XML document"}
	}
	if !containsAny(strings.ToLower(trimmed), structuralMarkers) {
		return nil, &InvalidInputError{Reason: "XML does not contain any catalog elements"}
	}

	cleaned := controlChars.ReplaceAllString(trimmed, "")
	doc := &Document{
		ControlCharsRemoved: utf8.RuneCountInString(trimmed) - utf8.RuneCountInString(cleaned),
	}

	root, err := parseXML(cleaned, false)
	if err != nil {
		repaired := repairXML(cleaned)
		root, err = parseXML(repaired, true)
		if err != nil {
			return nil, malformed(repaired, err)
		}
		doc.Repaired = true
	}
	doc.Root = root

	doc.Dialect = hint
	if hint == DialectAuto {
		doc.Dialect, err = detectDialect(root)
		if err != nil {
			return nil, err
		}
	}
	if doc.Dialect == DialectOffer {
		doc.Categories = buildCategoryTree(root)
	}
	return doc, nil
}

// parseXML parses text strictly. With htmlEntities set, named HTML
// entities such as &nbsp; are resolved as well.
func parseXML(text string, htmlEntities bool) (*etree.Element, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = passthroughCharsetReader
	if htmlEntities {
		doc.ReadSettings.Entity = xml.HTMLEntity
	}
	if err := doc.ReadFromString(text); err != nil {
		return nil, err
	}
	root := doc.Root()
	if root == nil {
		return nil, errors.New("no root element")
	}
	return root, nil
}

// malformed locates a parse failure. etree reports tag mismatches without
// a position, so the text is replayed through encoding/xml, which checks
// nesting and tracks lines.
func malformed(text string, err error) *MalformedDocumentError {
	dec := xml.NewDecoder(strings.NewReader(text))
	dec.Strict = true
	dec.Entity = xml.HTMLEntity
	dec.CharsetReader = passthroughCharsetReader

	for {
		_, tokErr := dec.Token()
		if tokErr == nil {
			continue
		}
		line, col := dec.InputPos()
		var syntaxErr *xml.SyntaxError
		switch {
		case errors.As(tokErr, &syntaxErr):
			return &MalformedDocumentError{Line: syntaxErr.Line, Column: col, Err: syntaxErr}
		case errors.Is(tokErr, io.EOF):
			// Well formed token stream; only etree's own checks failed.
			return &MalformedDocumentError{Err: err}
		default:
			return &MalformedDocumentError{Line: line, Column: col, Err: tokErr}
		}
	}
}

// detectDialect picks the dialect by the first record marker present, in
// priority order offer, product, ЭлементСправочника, service.
func detectDialect(root *etree.Element) (Dialect, error) {
	switch {
	case firstDescendant(root, "offer") != nil:
		return DialectOffer, nil
	case firstDescendant(root, "product") != nil:
		return DialectProduct, nil
	case firstDescendant(root, russianRecordTag) != nil:
		return DialectRussian, nil
	case firstDescendant(root, "service") != nil || root.Tag == "service":
		return DialectService, nil
	default:
		return DialectAuto, &UnsupportedFormatError{Root: root.Tag}
	}
}

// repairXML escapes bare ampersands and removes characters that XML 1.0
// does not allow.
func repairXML(text string) string {
	return stripInvalidXMLChars(escapeBareAmpersands(text))
}

// escapeBareAmpersands rewrites every & that does not start an entity
// reference of the form &[A-Za-z0-9#]+; as &amp;.
func escapeBareAmpersands(text string) string {
	if !strings.Contains(text, "&") {
		return text
	}
	var b strings.Builder
	b.Grow(len(text) + 64)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '&' {
			b.WriteByte(c)
			continue
		}
		if isEntityRef(text[i+1:]) {
			b.WriteByte(c)
		} else {
			b.WriteString("&amp;")
		}
	}
	return b.String()
}

func isEntityRef(s string) bool {
	n := 0
	for n < len(s) {
		c := s[n]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '#' {
			n++
			continue
		}
		break
	}
	return n > 0 && n < len(s) && s[n] == ';'
}

// stripInvalidXMLChars drops runes outside the XML Char production.
func stripInvalidXMLChars(text string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == 0x09 || r == 0x0A || r == 0x0D:
			return r
		case r >= 0x20 && r <= 0xD7FF:
			return r
		case r >= 0xE000 && r <= 0xFFFD:
			return r
		case r >= 0x10000 && r <= 0x10FFFF:
			return r
		default:
			return -1
		}
	}, text)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
