package core

// streaming.go prepares raw export bytes for the CSV reader.
//
// Exports saved by Windows tools often start with a UTF-8 BOM, and older
// device software writes Latin-1 bytes into otherwise UTF-8 files. Both would
// corrupt the first header name or the cell text, so the reader here strips
// the BOM and replaces invalid bytes with '?' as data flows through it.

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SanitizingReader strips a leading UTF-8 BOM and replaces invalid UTF-8
// bytes with '?'. Valid multi-byte runes pass through unchanged.
type SanitizingReader struct {
	src     *bufio.Reader
	started bool

	// Replaced counts the invalid bytes rewritten so far.
	Replaced int
}

// NewSanitizingReader wraps r.
func NewSanitizingReader(r io.Reader) *SanitizingReader {
	return &SanitizingReader{src: bufio.NewReader(r)}
}

// Read implements io.Reader.
func (r *SanitizingReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if !r.started {
		r.started = true
		if head, err := r.src.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
			_, _ = r.src.Discard(len(utf8BOM))
		}
	}

	n := 0
	for n < len(p) {
		ru, size, err := r.src.ReadRune()
		if err != nil {
			if n > 0 && err == io.EOF {
				return n, nil
			}
			return n, err
		}

		if ru == utf8.RuneError && size == 1 {
			p[n] = '?'
			n++
			r.Replaced++
			continue
		}

		if n+size > len(p) {
			// Rune does not fit; keep it for the next call.
			_ = r.src.UnreadRune()
			if n == 0 {
				return 0, io.ErrShortBuffer
			}
			break
		}
		n += utf8.EncodeRune(p[n:], ru)
	}
	return n, nil
}
