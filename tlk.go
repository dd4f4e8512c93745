package coalesced

import (
	"github.com/pocketrelay/coalesced/internal/bitio"
	"github.com/pocketrelay/coalesced/internal/huffman"
)

const tlkMagic = 0x006B6C54 // "Tlk\x00"

// SerializeTlk encodes doc into the TLK container format: a 28-byte
// header, male and female (id, bit_offset) reference tables, an inverted
// Huffman pair table (root at slot 0), and the shared compressed data
// block.
func SerializeTlk(doc *Tlk) ([]byte, error) {
	freq := collectTlkFrequencies(doc)
	pairs, codes := huffman.BuildUTF16Cached(freq)
	inverted := huffman.Invert(pairs)

	acc := &bitio.BitAccumulator{}
	maleRefs, err := emitTlkRefs(acc, codes, doc.Male)
	if err != nil {
		return nil, err
	}
	femaleRefs, err := emitTlkRefs(acc, codes, doc.Female)
	if err != nil {
		return nil, err
	}
	dataBlock := acc.Finalize()

	out := bitio.NewWriter()
	out.WriteU32LE(tlkMagic)
	out.WriteU32LE(doc.Version)
	out.WriteU32LE(doc.MinVersion)
	out.WriteU32LE(uint32(len(maleRefs)))
	out.WriteU32LE(uint32(len(femaleRefs)))
	out.WriteU32LE(uint32(len(inverted)))
	out.WriteU32LE(uint32(len(dataBlock)))
	for _, ref := range maleRefs {
		out.WriteU32LE(ref.id)
		out.WriteU32LE(ref.bitOffset)
	}
	for _, ref := range femaleRefs {
		out.WriteU32LE(ref.id)
		out.WriteU32LE(ref.bitOffset)
	}
	for _, p := range inverted {
		out.WriteI32LE(p.Left)
		out.WriteI32LE(p.Right)
	}
	out.WriteBytes(dataBlock)
	return out.Bytes(), nil
}

// DeserializeTlk decodes a TLK container.
func DeserializeTlk(data []byte) (*Tlk, error) {
	r := bitio.NewReader(data)

	magic, err := r.ReadU32LE()
	if err != nil {
		return nil, wrapEOF(err)
	}
	if magic != tlkMagic {
		return nil, ErrUnknownFileMagic
	}
	version, err := r.ReadU32LE()
	if err != nil {
		return nil, wrapEOF(err)
	}
	minVersion, err := r.ReadU32LE()
	if err != nil {
		return nil, wrapEOF(err)
	}
	maleCount, err := r.ReadU32LE()
	if err != nil {
		return nil, wrapEOF(err)
	}
	femaleCount, err := r.ReadU32LE()
	if err != nil {
		return nil, wrapEOF(err)
	}
	treeNodeCount, err := r.ReadU32LE()
	if err != nil {
		return nil, wrapEOF(err)
	}
	dataLength, err := r.ReadU32LE()
	if err != nil {
		return nil, wrapEOF(err)
	}

	maleRows, err := readTlkRows(r, maleCount)
	if err != nil {
		return nil, err
	}
	femaleRows, err := readTlkRows(r, femaleCount)
	if err != nil {
		return nil, err
	}

	inverted := make(huffman.Table, treeNodeCount)
	for i := range inverted {
		left, err := r.ReadI32LE()
		if err != nil {
			return nil, wrapEOF(err)
		}
		right, err := r.ReadI32LE()
		if err != nil {
			return nil, wrapEOF(err)
		}
		inverted[i] = huffman.Pair{Left: left, Right: right}
	}
	pairs := huffman.Invert(inverted)

	dataBlock, err := r.ReadBytes(int(dataLength))
	if err != nil {
		return nil, wrapEOF(err)
	}

	male, err := decodeTlkStrings(dataBlock, pairs, maleRows)
	if err != nil {
		return nil, err
	}
	female, err := decodeTlkStrings(dataBlock, pairs, femaleRows)
	if err != nil {
		return nil, err
	}

	return &Tlk{Version: version, MinVersion: minVersion, Male: male, Female: female}, nil
}

type tlkRef struct {
	id        uint32
	bitOffset uint32
}

func emitTlkRefs(acc *bitio.BitAccumulator, codes map[uint16]huffman.Code, strings []TlkString) ([]tlkRef, error) {
	refs := make([]tlkRef, len(strings))
	for i, s := range strings {
		bitOffset := acc.Len()
		if bitOffset > maxBitOffset {
			return nil, &BitOffsetOverflowError{BitOffset: bitOffset}
		}
		huffman.EncodeString(acc, codes, s.Value)
		refs[i] = tlkRef{id: s.ID, bitOffset: uint32(bitOffset)}
	}
	return refs, nil
}

func readTlkRows(r *bitio.Reader, count uint32) ([]tlkRef, error) {
	rows := make([]tlkRef, count)
	for i := range rows {
		id, err := r.ReadU32LE()
		if err != nil {
			return nil, wrapEOF(err)
		}
		off, err := r.ReadU32LE()
		if err != nil {
			return nil, wrapEOF(err)
		}
		rows[i] = tlkRef{id: id, bitOffset: off}
	}
	return rows, nil
}

// maxTlkStringLength bounds a single decode loop independent of any
// length advertised by the container; the format gives no per-string
// upper bound, so termination normally comes from the null symbol alone.
const maxTlkStringLength = 1 << 20

func decodeTlkStrings(data []byte, pairs huffman.Table, refs []tlkRef) ([]TlkString, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	out := make([]TlkString, len(refs))
	for i, ref := range refs {
		symbols, err := huffman.Decode[uint16](data, pairs, int(ref.bitOffset), maxTlkStringLength)
		if err != nil {
			return nil, err
		}
		out[i] = TlkString{ID: ref.id, Value: symbols}
	}
	return out, nil
}

func collectTlkFrequencies(doc *Tlk) map[uint16]int {
	freq := make(map[uint16]int)
	addStrings := func(list []TlkString) {
		for _, s := range list {
			for _, u := range s.Value {
				freq[u]++
			}
			freq[0]++
		}
	}
	addStrings(doc.Male)
	addStrings(doc.Female)
	return freq
}
