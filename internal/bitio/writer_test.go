package bitio

import (
	"bytes"
	"testing"
)

func TestWriterSequentialWrites(t *testing.T) {
	w := NewWriter()
	w.WriteU16LE(0x0201)
	w.WriteU32LE(0xFFFF0403)
	w.WriteBytes([]byte("hi"))

	want := []byte{0x01, 0x02, 0x03, 0x04, 0xFF, 0xFF, 'h', 'i'}
	if got := w.Bytes(); !bytes.Equal(got, want) {
		t.Fatalf("Bytes() = %x, want %x", got, want)
	}
}

func TestWriterSeekBackAndForward(t *testing.T) {
	w := NewWriter()
	w.WriteU32LE(0) // placeholder
	w.WriteBytes([]byte("payload"))
	total := w.Len()

	w.Seek(0)
	w.WriteU32LE(uint32(total))

	if w.Len() != total {
		t.Fatalf("seeking back should not change the high-water mark: Len() = %d, want %d", w.Len(), total)
	}
	got := w.Bytes()
	if len(got) != total {
		t.Fatalf("Bytes() length = %d, want %d", len(got), total)
	}
	if string(got[4:]) != "payload" {
		t.Fatalf("payload corrupted: %q", got[4:])
	}
}

func TestWriterSeekPastEndZeroFills(t *testing.T) {
	w := NewWriter()
	w.Seek(4)
	w.WriteBytes([]byte("x"))

	got := w.Bytes()
	want := []byte{0, 0, 0, 0, 'x'}
	if !bytes.Equal(got, want) {
		t.Fatalf("Bytes() = %x, want %x", got, want)
	}
}
