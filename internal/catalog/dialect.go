package catalog

import (
	"fmt"
	"strings"
)

// Dialect identifies one of the recognized catalog document shapes.
type Dialect int

const (
	// DialectAuto asks the dispatcher to sniff the document.
	DialectAuto Dialect = iota
	DialectOffer
	DialectProduct
	DialectRussian
	DialectService
)

// String returns the short name used in hints, logs and config.
func (d Dialect) String() string {
	switch d {
	case DialectAuto:
		return "auto"
	case DialectOffer:
		return "offer"
	case DialectProduct:
		return "product"
	case DialectRussian:
		return "russian"
	case DialectService:
		return "service"
	default:
		return fmt.Sprintf("dialect(%d)", int(d))
	}
}

// ParseDialect converts a hint string to a Dialect.
// Empty input and "auto" both mean auto-detection.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return DialectAuto, nil
	case "offer":
		return DialectOffer, nil
	case "product":
		return DialectProduct, nil
	case "russian":
		return DialectRussian, nil
	case "service":
		return DialectService, nil
	default:
		return DialectAuto, &InvalidInputError{Reason: fmt.Sprintf("unknown dialect %q", s)}
	}
}
