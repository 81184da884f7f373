package core

// reader.go provides io.Reader wrappers used while reading sources.
//
//   - BOMSkippingReader: Removes a leading UTF-8 BOM (0xEF 0xBB 0xBF)
//   - CappedReader: Fails with ErrFileTooLarge once a byte budget is exceeded

import (
	"bytes"
	"fmt"
	"io"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// BOMSkippingReader wraps an io.Reader and skips the UTF-8 BOM if present.
// The UTF-8 BOM is commonly added by Windows programs and spreadsheet exports.
type BOMSkippingReader struct {
	reader     io.Reader
	bomChecked bool
	pending    []byte // bytes read during the BOM check that were not a BOM
}

// NewBOMSkippingReader creates a new BOM-skipping reader.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{reader: r}
}

// Read implements io.Reader. On the first read, it checks for and skips the BOM.
func (r *BOMSkippingReader) Read(p []byte) (int, error) {
	if !r.bomChecked {
		r.bomChecked = true

		var head [3]byte
		n, err := io.ReadFull(r.reader, head[:])
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		if n == 3 && bytes.Equal(head[:], utf8BOM) {
			n = 0
		}
		r.pending = append(r.pending[:0], head[:n]...)
		if err != nil && err != io.EOF {
			return 0, err
		}
		if err == io.EOF && len(r.pending) == 0 {
			return 0, io.EOF
		}
	}

	if len(r.pending) > 0 {
		copied := copy(p, r.pending)
		r.pending = r.pending[copied:]
		return copied, nil
	}

	return r.reader.Read(p)
}

// CappedReader reads at most Limit bytes from R and fails with
// ErrFileTooLarge if the source holds more.
type CappedReader struct {
	R     io.Reader
	Limit int64
	Name  string

	read int64
}

// Read implements io.Reader.
func (c *CappedReader) Read(p []byte) (int, error) {
	if c.Limit <= 0 {
		return c.R.Read(p)
	}
	if c.read > c.Limit {
		return 0, fmt.Errorf("%s: %w (limit %d bytes)", c.Name, ErrFileTooLarge, c.Limit)
	}
	// Allow one byte past the limit so an exact-size source still reaches EOF.
	if max := c.Limit + 1 - c.read; int64(len(p)) > max {
		p = p[:max]
	}
	n, err := c.R.Read(p)
	c.read += int64(n)
	if c.read > c.Limit {
		return n, fmt.Errorf("%s: %w (limit %d bytes)", c.Name, ErrFileTooLarge, c.Limit)
	}
	return n, err
}

// skipBOM drops a leading UTF-8 BOM from an in-memory buffer.
func skipBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, utf8BOM)
}
