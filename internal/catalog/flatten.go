package catalog

import (
	"fmt"

	"github.com/beevik/etree"
)

// Flattener reduces the record elements of one dialect to FlatRecords.
// Implementations only read shared state and may be used concurrently.
type Flattener interface {
	// Dialect returns the dialect this flattener handles.
	Dialect() Dialect

	// Records selects the record elements below root in document order.
	Records(root *etree.Element) []*etree.Element

	// Flatten converts one record element. Recoverable anomalies are
	// reported as warnings with Index left at zero for the caller to set.
	Flatten(el *etree.Element) (FlatRecord, []ExtractionWarning)

	// Chunked reports whether records may be split into concurrent chunks.
	Chunked() bool
}

// NewFlattener returns the flattener for dialect. tree is consulted only by
// the Offer dialect and may be nil.
func NewFlattener(dialect Dialect, tree *CategoryTree) (Flattener, error) {
	switch dialect {
	case DialectOffer:
		return newOfferFlattener(tree), nil
	case DialectProduct:
		return newProductFlattener(), nil
	case DialectRussian:
		return russianFlattener{}, nil
	case DialectService:
		return serviceFlattener{}, nil
	default:
		return nil, fmt.Errorf("no flattener for dialect %s", dialect)
	}
}
