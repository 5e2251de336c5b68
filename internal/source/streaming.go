package source

// streaming.go wraps input readers to absorb the usual spreadsheet-export
// damage before parsing: a UTF-8 BOM from Windows tools, and byte
// sequences that are not valid UTF-8. Both wrappers work in constant
// memory regardless of file size.

import (
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// skipBOM returns a reader with a leading UTF-8 BOM removed, if present.
func skipBOM(r io.Reader) io.Reader {
	buf := make([]byte, 3)
	n, err := io.ReadFull(r, buf)
	rest := buf[:n]
	if n == 3 && rest[0] == utf8BOM[0] && rest[1] == utf8BOM[1] && rest[2] == utf8BOM[2] {
		rest = nil
	}
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return &errReader{err: err}
	}
	return io.MultiReader(newBytesReader(rest), r)
}

type errReader struct{ err error }

func (e *errReader) Read([]byte) (int, error) { return 0, e.err }

func newBytesReader(b []byte) io.Reader {
	return &byteSliceReader{buf: b}
}

type byteSliceReader struct{ buf []byte }

func (r *byteSliceReader) Read(p []byte) (int, error) {
	if len(r.buf) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

// utf8Sanitizer replaces invalid UTF-8 bytes with '?' on the fly so the
// CSV parser never chokes on a half-encoded export. Incomplete multi-byte
// sequences at a read boundary are carried over to the next read.
type utf8Sanitizer struct {
	reader  io.Reader
	pending []byte
}

func newUTF8Sanitizer(r io.Reader) *utf8Sanitizer {
	return &utf8Sanitizer{reader: r, pending: make([]byte, 0, utf8.UTFMax)}
}

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) < utf8.UTFMax {
		// Too small to hold a rune plus carryover; read one byte at a time.
		return s.readSmall(p)
	}

	offset := copy(p, s.pending)
	s.pending = s.pending[:0]

	n, err := s.reader.Read(p[offset:])
	n += offset
	if n == 0 {
		return 0, err
	}

	atEOF := err == io.EOF
	return s.sanitize(p[:n], atEOF), err
}

func (s *utf8Sanitizer) readSmall(p []byte) (int, error) {
	if len(s.pending) > 0 {
		n := copy(p, s.pending)
		s.pending = s.pending[n:]
		return n, nil
	}
	return s.reader.Read(p)
}

// sanitize rewrites data in place and returns the number of usable bytes.
// Invalid bytes become '?' (one byte, so the buffer never grows).
func (s *utf8Sanitizer) sanitize(data []byte, atEOF bool) int {
	if utf8.Valid(data) {
		if !atEOF {
			if tail := incompleteTail(data); tail > 0 {
				s.pending = append(s.pending, data[len(data)-tail:]...)
				return len(data) - tail
			}
		}
		return len(data)
	}

	write := 0
	for read := 0; read < len(data); {
		r, size := utf8.DecodeRune(data[read:])

		// A lead byte whose sequence runs past the end of this read may
		// complete in the next one; hold it back instead of replacing.
		if !atEOF && runeLen(data[read]) > len(data)-read {
			s.pending = append(s.pending, data[read:]...)
			return write
		}

		if r == utf8.RuneError && size == 1 {
			data[write] = '?'
			write++
			read++
		} else {
			copy(data[write:], data[read:read+size])
			write += size
			read += size
		}
	}
	return write
}

// incompleteTail reports how many trailing bytes could be the start of a
// multi-byte sequence that has not finished arriving.
func incompleteTail(data []byte) int {
	for i := 1; i <= 3 && i <= len(data); i++ {
		b := data[len(data)-i]
		if b >= 0xC0 {
			if runeLen(b) > i {
				return i
			}
			return 0
		}
		if b&0xC0 != 0x80 {
			return 0
		}
	}
	return 0
}

// runeLen returns the expected byte length of a UTF-8 sequence starting
// with b, or 0 for a continuation byte.
func runeLen(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b < 0xC0:
		return 0
	case b < 0xE0:
		return 2
	case b < 0xF0:
		return 3
	default:
		return 4
	}
}
