package huffman

import (
	"errors"

	"github.com/pocketrelay/coalesced/internal/bitio"
)

// ErrMalformedNodes is returned when a pair's non-negative slot indexes
// past the end of the table during decode.
var ErrMalformedNodes = errors.New("huffman: malformed decompression nodes")

// Decode walks pairs starting at bit position start in data, emitting
// symbols until either the null terminator is read, maxLength symbols have
// been produced, or the data is exhausted.
//
// The bounds check on a non-leaf slot uses the strict form cur >=
// len(pairs) rather than the off-by-one cur > len(pairs).
func Decode[S Symbol](data []byte, pairs Table, start int, maxLength int) ([]S, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	totalBits := len(data) * 8
	node := len(pairs) - 1
	pos := start
	out := make([]S, 0, min(maxLength, 64))

	for pos < totalBits && len(out) < maxLength {
		var v int32
		if bitio.Bit(data, pos) == 1 {
			v = pairs[node].Right
		} else {
			v = pairs[node].Left
		}

		if v < 0 {
			sym := -1 - v
			if sym == 0 {
				break
			}
			out = append(out, fromI32[S](sym))
			node = len(pairs) - 1
		} else {
			if int(v) >= len(pairs) {
				return nil, ErrMalformedNodes
			}
			node = int(v)
		}
		pos++
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// EncodeString appends the code for each symbol in s, followed by the
// code for the null terminator, to acc.
func EncodeString[S Symbol](acc *bitio.BitAccumulator, codes map[S]Code, s []S) {
	for _, sym := range s {
		appendCode(acc, codes[sym])
	}
	appendCode(acc, codes[0])
}

func appendCode(acc *bitio.BitAccumulator, c Code) {
	for _, b := range c.Bits {
		acc.Append(uint32(b), 1)
	}
}
