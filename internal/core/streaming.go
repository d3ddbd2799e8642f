package core

// streaming.go provides the readers an import stream passes through before
// the row source sees it:
//
//   - a decoding reader that strips a UTF-8 BOM, decodes UTF-16 input
//     announced by a BOM, and replaces invalid UTF-8 with U+FFFD
//   - a counting reader that tracks bytes for progress and enforces the
//     configured size limit
//
// Counting wraps the raw upload so the limit applies to the bytes as sent;
// decoding is applied by the CSV row source only, never to XLSX archives.

import (
	"errors"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrFileTooLarge is returned once a stream exceeds its byte limit.
var ErrFileTooLarge = errors.New("file too large")

// NewDecodingReader returns a reader producing valid UTF-8 without a BOM.
func NewDecodingReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// CountingReader wraps an io.Reader to track bytes read.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
	Total     int64 // If known (0 if unknown)
	Limit     int64 // 0 disables the limit
}

// NewCountingReader creates a counting reader with optional total size.
func NewCountingReader(r io.Reader, total int64) *CountingReader {
	return &CountingReader{reader: r, Total: total}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	if r.Limit > 0 && r.BytesRead > r.Limit {
		return n, ErrFileTooLarge
	}
	return n, err
}

// Progress returns the read progress as a percentage (0-100).
// Returns 0 if total is unknown.
func (r *CountingReader) Progress() int {
	if r.Total <= 0 {
		return 0
	}
	pct := int(r.BytesRead * 100 / r.Total)
	if pct > 100 {
		return 100
	}
	return pct
}
