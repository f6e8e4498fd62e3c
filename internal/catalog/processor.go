package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// defaultOutputName is used when the source name yields nothing usable.
const defaultOutputName = "catalog"

// ArtifactWriter stores a named artifact atomically and returns its path.
type ArtifactWriter interface {
	Write(name string, fill func(w io.Writer) error) (string, error)
}

// Input is one document to process.
type Input struct {
	Data       []byte
	SourceName string  // URL or file name the data came from
	Hint       Dialect // DialectAuto to detect
}

// Result describes a finished run.
type Result struct {
	RunID    string
	Dialect  Dialect
	Path     string
	FileName string
	Records  int
	Columns  []string
	Warnings []ExtractionWarning
	Encoding string
	Duration time.Duration
}

// Processor runs the full pipeline for one document per call.
type Processor struct {
	store   ArtifactWriter
	limiter *RunLimiter
	opts    Options
}

// NewProcessor builds a processor writing to store. limiter may be nil to
// run without a concurrency cap.
func NewProcessor(store ArtifactWriter, limiter *RunLimiter, opts Options) *Processor {
	return &Processor{
		store:   store,
		limiter: limiter,
		opts:    opts.withDefaults(),
	}
}

// Process decodes, parses, flattens and writes one document. A failed run
// leaves no artifact behind.
func (p *Processor) Process(ctx context.Context, in Input) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := p.opts.Logger.With("run_id", runID, "source", in.SourceName)

	if p.limiter != nil {
		if err := p.limiter.Acquire(ctx); err != nil {
			logger.Warn("run rejected", "error", err)
			return nil, err
		}
		defer p.limiter.Release()
	}

	logger.Info("run started", "bytes", len(in.Data), "hint", in.Hint.String())

	res, err := p.process(ctx, in, logger)
	if err != nil {
		logger.Error("run failed", "error", err, "duration", time.Since(start))
		return nil, err
	}

	res.RunID = runID
	res.Duration = time.Since(start)
	logger.Info("run completed",
		"dialect", res.Dialect.String(),
		"records", res.Records,
		"columns", len(res.Columns),
		"warnings", len(res.Warnings),
		"file", res.FileName,
		"duration", res.Duration,
	)
	return res, nil
}

func (p *Processor) process(ctx context.Context, in Input, logger *slog.Logger) (*Result, error) {
	if len(in.Data) == 0 {
		return nil, &InvalidInputError{Reason: "empty file"}
	}

	raw, err := DecodeDocument(in.Data)
	if err != nil {
		return nil, err
	}
	if raw.Encoding != encodingUTF8 {
		logger.Info("document transcoded", "encoding", raw.Encoding)
	}

	doc, err := Prepare(raw.Text, in.Hint)
	if err != nil {
		return nil, err
	}
	if doc.ControlCharsRemoved > 0 {
		logger.Info("control characters removed", "count", doc.ControlCharsRemoved)
	}
	if doc.Repaired {
		logger.Warn("document parsed after repair")
	}
	logger.Debug("document prepared",
		"dialect", doc.Dialect.String(),
		"root", doc.Root.Tag,
		"categories", doc.Categories.Len(),
	)

	opts := p.opts
	opts.Logger = logger
	records, warnings, err := ProcessAll(ctx, doc, opts)
	if err != nil {
		return nil, err
	}

	columns := ProjectColumns(records)
	name := OutputFileName(in.SourceName)
	out, err := p.store.Write(name, func(w io.Writer) error {
		return WriteTable(w, records, columns)
	})
	if err != nil {
		return nil, fmt.Errorf("write artifact %s: %w", name, err)
	}

	return &Result{
		Dialect:  doc.Dialect,
		Path:     out,
		FileName: name,
		Records:  len(records),
		Columns:  columns,
		Warnings: warnings,
		Encoding: raw.Encoding,
	}, nil
}

// OutputFileName derives the artifact name from the source. URLs use the
// host without "www." and files use the base name without its extension;
// dots and spaces become underscores.
func OutputFileName(source string) string {
	var stem string
	if strings.HasPrefix(source, "http") {
		if u, err := url.Parse(source); err == nil {
			stem = strings.ReplaceAll(u.Host, "www.", "")
			stem = strings.ReplaceAll(stem, ":", "_")
		}
	} else {
		base := path.Base(strings.ReplaceAll(source, `\`, "/"))
		if ext := path.Ext(base); ext != base {
			base = strings.TrimSuffix(base, ext)
		}
		if base != "." && base != "/" {
			stem = strings.ReplaceAll(base, " ", "_")
		}
	}

	stem = strings.ReplaceAll(stem, ".", "_")
	if strings.Trim(stem, "_") == "" {
		stem = defaultOutputName
	}
	return stem + ".csv"
}
