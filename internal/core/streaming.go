package core

// streaming.go prepares an uploaded report for the parser without buffering
// it whole:
//
//   - CountingReader: counts raw bytes and enforces the upload size limit
//   - a BOM-aware decoder: strips a UTF-8 BOM, transcodes UTF-16 files that
//     carry a BOM, and replaces invalid UTF-8 with U+FFFD
//
// Use WrapForStreaming to apply both in the correct order.

import (
	"errors"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrFileTooLarge is returned once a reader passes its byte limit.
var ErrFileTooLarge = errors.New("file too large")

// CountingReader tracks bytes read from the underlying reader and fails with
// ErrFileTooLarge once more than Limit bytes have been read.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
	Limit     int64 // 0 means no limit
}

// NewCountingReader creates a counting reader with an optional limit.
func NewCountingReader(r io.Reader, limit int64) *CountingReader {
	return &CountingReader{reader: r, Limit: limit}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	if r.Limit > 0 && int64(len(p)) > r.Limit-r.BytesRead+1 {
		// read at most one byte past the limit, enough to detect it
		p = p[:r.Limit-r.BytesRead+1]
	}
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	if r.Limit > 0 && r.BytesRead > r.Limit {
		return n, ErrFileTooLarge
	}
	return n, err
}

// StreamReader yields decoded report text and reports how many raw bytes
// it consumed.
type StreamReader struct {
	io.Reader
	counter *CountingReader
}

// BytesRead returns the number of raw bytes consumed so far.
func (s *StreamReader) BytesRead() int64 {
	return s.counter.BytesRead
}

// WrapForStreaming limits r to limit raw bytes and decodes it to UTF-8.
//
// Counting wraps the raw stream so the limit applies to upload size; the
// decoder runs on top of it.
func WrapForStreaming(r io.Reader, limit int64) *StreamReader {
	counter := NewCountingReader(r, limit)
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	return &StreamReader{
		Reader:  transform.NewReader(counter, decoder),
		counter: counter,
	}
}
