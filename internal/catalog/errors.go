package catalog

import (
	"encoding/xml"
	"errors"
	"fmt"
)

// Sentinels for errors.Is matching against the typed document errors.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrMalformedDocument = errors.New("malformed document")
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// InvalidInputError is returned when the input is clearly not a catalog
// document: an empty body, an HTML page, an error page or text without any
// catalog marker.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// MalformedDocumentError is returned when the XML cannot be parsed even
// after the repair pass. Line and Column are zero when no position is known.
type MalformedDocumentError struct {
	Line   int
	Column int
	Err    error
}

func (e *MalformedDocumentError) Error() string {
	reason := fmt.Sprint(e.Err)
	var syntaxErr *xml.SyntaxError
	if errors.As(e.Err, &syntaxErr) {
		reason = syntaxErr.Msg
	}
	switch {
	case e.Line > 0 && e.Column > 0:
		return fmt.Sprintf("malformed document: syntax error at line %d, column %d: %s", e.Line, e.Column, reason)
	case e.Line > 0:
		return fmt.Sprintf("malformed document: syntax error at line %d: %s", e.Line, reason)
	}
	return "malformed document: " + reason
}

func (e *MalformedDocumentError) Unwrap() error {
	return e.Err
}

func (e *MalformedDocumentError) Is(target error) bool {
	return target == ErrMalformedDocument
}

// UnsupportedFormatError is returned when the XML is well formed but no
// dialect marker is present.
type UnsupportedFormatError struct {
	Root string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format: no offer, product, ЭлементСправочника or service elements under <%s>", e.Root)
}

func (e *UnsupportedFormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}

// ExtractionWarning reports a per-record anomaly that was recovered by
// substituting a default value. It never aborts a run.
type ExtractionWarning struct {
	Index    int    // Position of the record in the document (0-based)
	RecordID string // Value of the record id when known
	Field    string // Field that fell back to a default
	Reason   string
}

func (w ExtractionWarning) Error() string {
	if w.RecordID != "" {
		return fmt.Sprintf("record %d (id %s): %s: %s", w.Index, w.RecordID, w.Field, w.Reason)
	}
	return fmt.Sprintf("record %d: %s: %s", w.Index, w.Field, w.Reason)
}
