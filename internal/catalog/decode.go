package catalog

// decode.go turns uploaded bytes into UTF-8 text.
//
// Feeds arrive in whatever encoding the exporting system used. The rules,
// in order:
//
//   - a UTF-8 BOM is removed
//   - bytes that are valid UTF-8 are used as is
//   - otherwise the encoding named in the XML prolog is used, if known
//   - otherwise the bytes are read as Windows-1251, the usual encoding of
//     accounting exports
//
// After decoding the text is always UTF-8, so the parser is told to accept
// any declared charset without converting again.

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// ErrDocumentTooLarge is returned by ReadLimited when the input exceeds
// the configured limit.
var ErrDocumentTooLarge = errors.New("file too large")

const (
	encodingUTF8    = "utf-8"
	encodingCP1251  = "windows-1251"
	prologScanLimit = 1024
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var prologEncoding = regexp.MustCompile(`^\s*<\?xml[^>]*?encoding\s*=\s*["']([A-Za-z0-9._:\-]+)["']`)

// RawDocument is the decoded feed text.
type RawDocument struct {
	Text     string
	Encoding string
}

// DecodeDocument converts data to UTF-8 text following the rules above.
func DecodeDocument(data []byte) (RawDocument, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	if utf8.Valid(data) {
		return RawDocument{Text: string(data), Encoding: encodingUTF8}, nil
	}

	if label := declaredEncoding(data); label != "" {
		if enc, name := charset.Lookup(label); enc != nil && name != encodingUTF8 {
			if out, err := enc.NewDecoder().Bytes(data); err == nil {
				return RawDocument{Text: string(out), Encoding: name}, nil
			}
		}
	}

	out, _, err := transform.Bytes(charmap.Windows1251.NewDecoder(), data)
	if err != nil {
		return RawDocument{}, fmt.Errorf("decode as %s: %w", encodingCP1251, err)
	}
	return RawDocument{Text: string(out), Encoding: encodingCP1251}, nil
}

// ReadDocument reads at most limit bytes from r and decodes them. A limit
// of zero or less disables the check.
func ReadDocument(r io.Reader, limit int64) (RawDocument, error) {
	data, err := ReadLimited(r, limit)
	if err != nil {
		return RawDocument{}, err
	}
	return DecodeDocument(data)
}

// ReadLimited reads r to the end with any UTF-8 byte order mark removed,
// failing with ErrDocumentTooLarge once more than limit bytes arrive.
func ReadLimited(r io.Reader, limit int64) ([]byte, error) {
	src := io.Reader(newBOMSkippingReader(r))
	if limit > 0 {
		src = io.LimitReader(src, limit+1)
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrDocumentTooLarge, limit)
	}
	return data, nil
}

// declaredEncoding returns the encoding label from the XML prolog, if any.
func declaredEncoding(data []byte) string {
	head := data
	if len(head) > prologScanLimit {
		head = head[:prologScanLimit]
	}
	m := prologEncoding.FindSubmatch(head)
	if m == nil {
		return ""
	}
	return string(m[1])
}

// passthroughCharsetReader accepts any declared charset. Text handed to the
// parser has already been decoded to UTF-8.
func passthroughCharsetReader(_ string, input io.Reader) (io.Reader, error) {
	return input, nil
}

// bomSkippingReader drops a leading UTF-8 BOM from the wrapped reader.
type bomSkippingReader struct {
	reader  io.Reader
	checked bool
	pending []byte
}

func newBOMSkippingReader(r io.Reader) *bomSkippingReader {
	return &bomSkippingReader{reader: r}
}

// Read implements io.Reader. The first call inspects up to three bytes and
// keeps them if they are not a BOM.
func (r *bomSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true
		var head [3]byte
		n, err := io.ReadFull(r.reader, head[:])
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, err
		}
		if n < 3 || !bytes.Equal(head[:], utf8BOM) {
			r.pending = append(r.pending, head[:n]...)
		}
	}

	if len(r.pending) > 0 {
		n := copy(p, r.pending)
		r.pending = r.pending[n:]
		return n, nil
	}
	return r.reader.Read(p)
}
