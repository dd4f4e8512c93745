package bitio

import "encoding/binary"

// Writer is an owned byte vector with a write cursor and a high-water
// length. Unlike bytes.Buffer, the cursor may be seeked freely, including
// past the current high-water mark, in which case writes zero-fill the
// gap. This is what lets a nested index block be emitted in a single walk:
// allocate and write a child's body as soon as its position is known, then
// seek back and fill in the parent's header row with that position.
type Writer struct {
	buf    []byte
	cursor int
	high   int
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// Len returns the high-water mark: the length the buffer will be
// truncated to on Bytes.
func (w *Writer) Len() int { return w.high }

// Cursor returns the current write position.
func (w *Writer) Cursor() int { return w.cursor }

// Seek moves the write cursor to an absolute position. It never fails:
// positions past the end are filled with zeros on the next write.
func (w *Writer) Seek(abs int) { w.cursor = abs }

func (w *Writer) grow(through int) {
	if through > len(w.buf) {
		w.buf = append(w.buf, make([]byte, through-len(w.buf))...)
	}
}

// WriteBytes writes b at the cursor and advances it.
func (w *Writer) WriteBytes(b []byte) {
	end := w.cursor + len(b)
	w.grow(end)
	copy(w.buf[w.cursor:end], b)
	w.cursor = end
	if w.cursor > w.high {
		w.high = w.cursor
	}
}

// WriteU16LE writes a little-endian uint16.
func (w *Writer) WriteU16LE(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.WriteBytes(b[:])
}

// WriteU32LE writes a little-endian uint32.
func (w *Writer) WriteU32LE(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.WriteBytes(b[:])
}

// WriteI32LE writes a little-endian int32.
func (w *Writer) WriteI32LE(v int32) { w.WriteU32LE(uint32(v)) }

// Bytes finalizes the buffer, truncating it to the high-water mark.
func (w *Writer) Bytes() []byte {
	return w.buf[:w.high]
}
