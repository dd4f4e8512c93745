// Package bitio provides the three small buffer primitives the Coalesced
// and TLK codecs share: a borrowed-slice read cursor, a grow-on-write byte
// buffer, and an LSB-first bit accumulator.
package bitio

import (
	"encoding/binary"
	"fmt"
)

// EOFError reports a read past the end of a Reader's backing slice.
// Every Reader method that consumes bytes returns one when insufficient
// bytes remain, carrying enough detail for a caller to report a precise
// decode failure.
type EOFError struct {
	Cursor, Wanted, Remaining int
}

func (e *EOFError) Error() string {
	return fmt.Sprintf("bitio: unexpected EOF at cursor %d: wanted %d bytes, %d remaining",
		e.Cursor, e.Wanted, e.Remaining)
}

// Reader is a borrowed byte slice plus a read cursor. It never copies or
// owns the slice; ReadBytes/TakeSlice return views into it.
type Reader struct {
	buf    []byte
	cursor int
}

// NewReader wraps buf for sequential, seekable reading.
func NewReader(buf []byte) *Reader { return &Reader{buf: buf} }

// Len returns the length of the backing slice.
func (r *Reader) Len() int { return len(r.buf) }

// Cursor returns the current read position.
func (r *Reader) Cursor() int { return r.cursor }

func (r *Reader) need(n int) error {
	if r.cursor+n > len(r.buf) {
		return &EOFError{Cursor: r.cursor, Wanted: n, Remaining: len(r.buf) - r.cursor}
	}
	return nil
}

// ReadBytes returns a borrowed view of the next n bytes and advances the cursor.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.buf[r.cursor : r.cursor+n]
	r.cursor += n
	return b, nil
}

// ReadU16LE reads a little-endian uint16.
func (r *Reader) ReadU16LE() (uint16, error) {
	b, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadU32LE reads a little-endian uint32.
func (r *Reader) ReadU32LE() (uint32, error) {
	b, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadI32LE reads a little-endian int32.
func (r *Reader) ReadI32LE() (int32, error) {
	v, err := r.ReadU32LE()
	return int32(v), err
}

// Seek moves the cursor to an absolute position. Per the reference
// implementation's behavior, seeking to exactly the buffer length is
// rejected; only positions strictly inside the buffer are valid seek
// targets.
func (r *Reader) Seek(abs int) error {
	if abs < 0 || abs >= len(r.buf) {
		return &EOFError{Cursor: abs, Wanted: 1, Remaining: len(r.buf) - abs}
	}
	r.cursor = abs
	return nil
}

// TakeSlice returns an independent *Reader over the next n bytes and
// advances the parent past them.
func (r *Reader) TakeSlice(n int) (*Reader, error) {
	b, err := r.ReadBytes(n)
	if err != nil {
		return nil, err
	}
	return NewReader(b), nil
}
