// Package huffman implements the canonical Huffman codec shared by the
// Coalesced (8-bit alphabet) and TLK (16-bit alphabet) containers: build a
// tree from a frequency map, flatten it into the wire pair-table format,
// and encode/decode symbol streams against that flattened table directly;
// no tree object is ever reconstructed on the decode side.
//
// The engine is factored as a single generic type over the symbol width
// rather than duplicated per alphabet.
package huffman

// Symbol is the set of alphabets this engine supports: 8-bit bytes for
// Coalesced strings, 16-bit code units for TLK strings. The null value of
// either is the universal end-of-string marker.
type Symbol interface {
	~uint8 | ~uint16
}

// Pair is one entry of the flattened tree: a wire-format (i32, i32) where a
// negative value is a leaf marker (-1-symbol) and a non-negative value is
// an index into the same Table.
type Pair struct {
	Left, Right int32
}

// Table is the flattened pair table. By construction the root is always
// the last entry (Table[len(Table)-1]); Decode relies on this.
type Table []Pair

// Code is a leaf's root-to-leaf bit path, root edge first. Bits[i] is 0 for
// a left edge, 1 for a right edge.
type Code struct {
	Bits []byte
}

func toI32[S Symbol](s S) int32 { return int32(s) }

func fromI32[S Symbol](v int32) S { return S(v) }
