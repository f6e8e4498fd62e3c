package catalog

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func offerDocument(t testing.TB, n int) *Document {
	t.Helper()
	var b strings.Builder
	b.WriteString(`<yml_catalog><shop><categories><category id="1">Root</category></categories><offers>`)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<offer id="%d"><name>Item %d</name><categoryId>1</categoryId><description>d%d</description></offer>`, i, i, i)
	}
	b.WriteString(`</offers></shop></yml_catalog>`)

	doc, err := Prepare(b.String(), DialectAuto)
	require.NoError(t, err)
	return doc
}

func TestProcessAllPreservesOrder(t *testing.T) {
	doc := offerDocument(t, 257)

	for _, opts := range []Options{
		{ChunkSize: 1, Workers: 8},
		{ChunkSize: 10, Workers: 3},
		{ChunkSize: 1000, Workers: 1},
		{},
	} {
		t.Run(fmt.Sprintf("chunk=%d workers=%d", opts.ChunkSize, opts.Workers), func(t *testing.T) {
			records, warnings, err := ProcessAll(context.Background(), doc, opts)
			require.NoError(t, err)
			assert.Empty(t, warnings)
			require.Len(t, records, 257)
			for i, rec := range records {
				assert.Equal(t, fmt.Sprint(i), rec["attr_id"])
				assert.Equal(t, "Root", rec[FieldCategoryPath])
			}
		})
	}
}

func TestProcessAllEmptyDocument(t *testing.T) {
	doc, err := Prepare(`<catalog><products/></catalog>`, DialectProduct)
	require.NoError(t, err)

	records, warnings, err := ProcessAll(context.Background(), doc, Options{})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Empty(t, warnings)
}

func TestProcessAllCancelled(t *testing.T) {
	doc := offerDocument(t, 50)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := ProcessAll(ctx, doc, Options{ChunkSize: 5})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessAllSinglePassDialects(t *testing.T) {
	doc, err := Prepare(russianFeed, DialectAuto)
	require.NoError(t, err)

	records, warnings, err := ProcessAll(context.Background(), doc, Options{ChunkSize: 1})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Len(t, warnings, 1)
	assert.Equal(t, 0, warnings[0].Index)
}

// panicFlattener fails on elements with a "boom" attribute.
type panicFlattener struct{ Flattener }

func (p panicFlattener) Flatten(el *etree.Element) (FlatRecord, []ExtractionWarning) {
	if el.SelectAttr("boom") != nil {
		panic("bad record")
	}
	return p.Flattener.Flatten(el)
}

func TestFlattenRangeRecoversPanics(t *testing.T) {
	root := parseRoot(t, `<offers><offer id="a"/><offer id="b" boom="1"/><offer id="c"/></offers>`)
	fl := panicFlattener{newOfferFlattener(nil)}

	records, warnings := flattenRange(fl, fl.Records(root), 10)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0]["attr_id"])
	assert.Equal(t, "c", records[1]["attr_id"])

	var skipped []ExtractionWarning
	for _, w := range warnings {
		if strings.HasPrefix(w.Reason, "record skipped") {
			skipped = append(skipped, w)
		}
	}
	require.Len(t, skipped, 1)
	assert.Equal(t, 11, skipped[0].Index)
	assert.Contains(t, skipped[0].Reason, "bad record")
}
