package coalesced

import (
	"errors"
	"fmt"
	"io"

	"github.com/pocketrelay/coalesced/internal/bitio"
	"github.com/pocketrelay/coalesced/internal/huffman"
)

// Error taxonomy. Every condition is distinct and terminal for the
// operation that hit it; none triggers a retry.
var (
	ErrUnknownFileMagic            = errors.New("coalesced: unknown file magic")
	ErrStringTableSizeMismatch     = errors.New("coalesced: string table size mismatch")
	ErrStringTableHashMismatch     = errors.New("coalesced: string table hash mismatch")
	ErrInvalidNameOffset           = errors.New("coalesced: invalid name offset")
	ErrUnknownValueType            = errors.New("coalesced: unknown value type")
	ErrMalformedDecompressionNodes = huffman.ErrMalformedNodes
)

// BitOffsetOverflowError is returned by a Serialize function when a
// value's bit offset into the data block would not fit in the 29 bits
// available alongside its 3-bit tag type. This only happens for
// pathologically large documents.
type BitOffsetOverflowError struct {
	BitOffset int
}

func (e *BitOffsetOverflowError) Error() string {
	return fmt.Sprintf("coalesced: bit offset %d overflows the 29-bit field", e.BitOffset)
}

// UnexpectedEOFError reports a read past the end of the input. It wraps
// io.ErrUnexpectedEOF so callers can test with errors.Is(err,
// io.ErrUnexpectedEOF) as well as extract the fields with errors.As.
type UnexpectedEOFError struct {
	Cursor, Wanted, Remaining int
}

func (e *UnexpectedEOFError) Error() string {
	return fmt.Sprintf("coalesced: unexpected EOF at cursor %d: wanted %d bytes, %d remaining",
		e.Cursor, e.Wanted, e.Remaining)
}

func (e *UnexpectedEOFError) Unwrap() error { return io.ErrUnexpectedEOF }

// wrapEOF converts an internal/bitio.EOFError into the public
// UnexpectedEOFError shape, leaving any other error untouched.
func wrapEOF(err error) error {
	var e *bitio.EOFError
	if errors.As(err, &e) {
		return &UnexpectedEOFError{Cursor: e.Cursor, Wanted: e.Wanted, Remaining: e.Remaining}
	}
	return err
}
