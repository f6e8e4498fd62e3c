package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/beevik/etree"
	"golang.org/x/sync/errgroup"
)

// DefaultChunkSize is the number of records flattened per task.
const DefaultChunkSize = 100

// Options configures ProcessAll.
type Options struct {
	ChunkSize int          // Records per chunk; DefaultChunkSize if <= 0
	Workers   int          // Concurrent chunks; GOMAXPROCS if <= 0
	Logger    *slog.Logger // slog.Default() if nil
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// ProcessAll flattens every record of doc. Chunks run concurrently but the
// returned records keep document order. Records that fail are skipped and
// reported as warnings; only cancellation of ctx aborts the run.
func ProcessAll(ctx context.Context, doc *Document, opts Options) ([]FlatRecord, []ExtractionWarning, error) {
	opts = opts.withDefaults()

	fl, err := NewFlattener(doc.Dialect, doc.Categories)
	if err != nil {
		return nil, nil, err
	}

	elems := fl.Records(doc.Root)
	size := opts.ChunkSize
	if !fl.Chunked() && len(elems) > 0 {
		size = len(elems)
	}

	var chunks [][]int // [start, end) per chunk
	for start := 0; start < len(elems); start += size {
		chunks = append(chunks, []int{start, min(start+size, len(elems))})
	}

	records := make([][]FlatRecord, len(chunks))
	warnings := make([][]ExtractionWarning, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, bounds := range chunks {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records[i], warnings[i] = flattenRange(fl, elems[bounds[0]:bounds[1]], bounds[0])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var (
		outRecords  = make([]FlatRecord, 0, len(elems))
		outWarnings []ExtractionWarning
	)
	for i := range chunks {
		outRecords = append(outRecords, records[i]...)
		outWarnings = append(outWarnings, warnings[i]...)
	}

	for _, w := range outWarnings {
		opts.Logger.Debug("extraction warning",
			"dialect", doc.Dialect.String(),
			"index", w.Index,
			"record_id", w.RecordID,
			"field", w.Field,
			"reason", w.Reason,
		)
	}
	opts.Logger.Debug("records flattened",
		"dialect", doc.Dialect.String(),
		"records", len(outRecords),
		"chunks", len(chunks),
		"warnings", len(outWarnings),
	)
	return outRecords, outWarnings, nil
}

// flattenRange flattens one chunk. offset is the document index of the
// first element.
func flattenRange(fl Flattener, elems []*etree.Element, offset int) ([]FlatRecord, []ExtractionWarning) {
	out := make([]FlatRecord, 0, len(elems))
	var warnings []ExtractionWarning
	for j, el := range elems {
		idx := offset + j
		rec, ws, err := flattenOne(fl, el)
		for _, w := range ws {
			w.Index = idx
			warnings = append(warnings, w)
		}
		if err != nil {
			warnings = append(warnings, ExtractionWarning{
				Index:  idx,
				Field:  el.Tag,
				Reason: "record skipped: " + err.Error(),
			})
			continue
		}
		out = append(out, rec)
	}
	return out, warnings
}

// flattenOne converts a panic inside a flattener into an error so one bad
// record cannot take down the run.
func flattenOne(fl Flattener, el *etree.Element) (rec FlatRecord, ws []ExtractionWarning, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	rec, ws = fl.Flatten(el)
	return rec, ws, nil
}
