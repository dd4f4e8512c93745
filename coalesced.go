package coalesced

import (
	"cmp"
	"encoding/binary"
	"log/slog"
	"slices"

	"github.com/pocketrelay/coalesced/internal/bitio"
	"github.com/pocketrelay/coalesced/internal/crc32mpeg2"
	"github.com/pocketrelay/coalesced/internal/huffman"
)

const (
	coalescedMagic      = 0x666D726D // "mrmf"
	coalescedHeaderSize = 32
	maxBitOffset        = 0x1FFFFFFF // 29 bits: tag type occupies the top 3 bits of the packed u32
)

// SerializeCoalesced encodes doc into the Coalesced container format
// It fails only on an encode-time precondition violation: a value type
// outside 0-4, or a compressed payload too large for the 29-bit
// bit-offset field.
func SerializeCoalesced(doc *Coalesced) ([]byte, error) {
	keys, nameIndex := collectCoalescedKeys(doc)
	stringTable := buildStringTable(keys)

	freq := collectValueFrequencies(doc)
	pairs, codes := huffman.BuildBytesCached(freq)
	slog.Debug("coalesced: huffman table built", "symbols", len(freq), "pairs", len(pairs))
	huffmanBlock := serializeHuffmanTable(pairs)

	acc := &bitio.BitAccumulator{}
	indexBlock, err := emitCoalescedIndex(doc, nameIndex, acc, codes)
	if err != nil {
		return nil, err
	}
	dataBlock := acc.Finalize()

	maxFieldNameLength := 0
	for _, k := range keys {
		maxFieldNameLength = max(maxFieldNameLength, len(k))
	}
	maxValueLength := maxValueTextLength(doc)

	slog.Debug("coalesced: blocks sized",
		"stringTable", len(stringTable), "huffman", len(huffmanBlock),
		"index", len(indexBlock), "data", len(dataBlock))

	out := bitio.NewWriter()
	out.WriteU32LE(coalescedMagic)
	out.WriteU32LE(doc.Version)
	out.WriteU32LE(uint32(maxFieldNameLength))
	out.WriteU32LE(uint32(maxValueLength))
	out.WriteU32LE(uint32(len(stringTable)))
	out.WriteU32LE(uint32(len(huffmanBlock)))
	out.WriteU32LE(uint32(len(indexBlock)))
	out.WriteU32LE(uint32(len(dataBlock)))
	out.WriteBytes(stringTable)
	out.WriteBytes(huffmanBlock)
	out.WriteBytes(indexBlock)
	out.WriteU32LE(uint32(acc.Len()))
	out.WriteBytes(dataBlock)
	return out.Bytes(), nil
}

// DeserializeCoalesced decodes a Coalesced container.
func DeserializeCoalesced(data []byte) (*Coalesced, error) {
	r := bitio.NewReader(data)

	magic, err := r.ReadU32LE()
	if err != nil {
		return nil, wrapEOF(err)
	}
	if magic != coalescedMagic {
		return nil, ErrUnknownFileMagic
	}
	version, err := r.ReadU32LE()
	if err != nil {
		return nil, wrapEOF(err)
	}
	if _, err := r.ReadU32LE(); err != nil { // max_field_name_length: advisory, not re-validated
		return nil, wrapEOF(err)
	}
	maxValueLength, err := r.ReadU32LE()
	if err != nil {
		return nil, wrapEOF(err)
	}
	stringTableSize, err := r.ReadU32LE()
	if err != nil {
		return nil, wrapEOF(err)
	}
	huffmanSize, err := r.ReadU32LE()
	if err != nil {
		return nil, wrapEOF(err)
	}
	indexSize, err := r.ReadU32LE()
	if err != nil {
		return nil, wrapEOF(err)
	}
	dataSize, err := r.ReadU32LE()
	if err != nil {
		return nil, wrapEOF(err)
	}

	stringTableBytes, err := r.ReadBytes(int(stringTableSize))
	if err != nil {
		return nil, wrapEOF(err)
	}
	huffmanR, err := r.TakeSlice(int(huffmanSize))
	if err != nil {
		return nil, wrapEOF(err)
	}
	indexBlock, err := r.ReadBytes(int(indexSize))
	if err != nil {
		return nil, wrapEOF(err)
	}
	totalBits, err := r.ReadU32LE()
	if err != nil {
		return nil, wrapEOF(err)
	}
	dataBlock, err := r.ReadBytes(int(dataSize))
	if err != nil {
		return nil, wrapEOF(err)
	}
	_ = totalBits // the byte length (dataSize) alone bounds decode; see Decode's own loop bound

	keys, err := parseStringTable(stringTableBytes, int(stringTableSize))
	if err != nil {
		return nil, err
	}
	pairs, err := parseHuffmanTable(huffmanR)
	if err != nil {
		return nil, err
	}

	dec := &coalescedDecoder{keys: keys, pairs: pairs, data: dataBlock, maxValueLength: int(maxValueLength)}
	files, err := dec.parseTop(indexBlock)
	if err != nil {
		return nil, err
	}

	return &Coalesced{Version: version, Files: files}, nil
}

// --- string table ---

func collectCoalescedKeys(doc *Coalesced) ([]string, map[string]uint16) {
	set := make(map[string]struct{})
	for _, f := range doc.Files {
		set[f.Path] = struct{}{}
		for _, s := range f.Sections {
			set[s.Name] = struct{}{}
			for _, p := range s.Properties {
				set[p.Name] = struct{}{}
			}
		}
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		if c := cmp.Compare(crc32mpeg2.Checksum([]byte(a)), crc32mpeg2.Checksum([]byte(b))); c != 0 {
			return c
		}
		return cmp.Compare(a, b) // deterministic tie-break on hash collision
	})

	index := make(map[string]uint16, len(keys))
	for i, k := range keys {
		index[k] = uint16(i)
	}
	return keys, index
}

func buildStringTable(keys []string) []byte {
	w := bitio.NewWriter()
	w.WriteU32LE(0) // local_size placeholder
	w.WriteU32LE(uint32(len(keys)))
	indexStart := w.Cursor()

	rowsSize := len(keys) * 8
	w.Seek(indexStart + rowsSize)
	offsets := make([]uint32, len(keys))
	for i, k := range keys {
		offsets[i] = uint32(w.Cursor() - indexStart)
		w.WriteU16LE(uint16(len(k)))
		w.WriteBytes([]byte(k))
	}

	w.Seek(indexStart)
	for i, k := range keys {
		w.WriteU32LE(crc32mpeg2.Checksum([]byte(k)))
		w.WriteU32LE(offsets[i])
	}

	total := w.Len()
	w.Seek(0)
	w.WriteU32LE(uint32(total))
	return w.Bytes()
}

func parseStringTable(block []byte, declaredSize int) ([]string, error) {
	if len(block) < 8 {
		return nil, &UnexpectedEOFError{Cursor: 0, Wanted: 8, Remaining: len(block)}
	}
	localSize := binary.LittleEndian.Uint32(block[0:])
	if int(localSize) != declaredSize {
		return nil, ErrStringTableSizeMismatch
	}
	count := binary.LittleEndian.Uint32(block[4:])

	rowsStart := 8
	rowsEnd := rowsStart + int(count)*8
	if rowsEnd > len(block) {
		return nil, &UnexpectedEOFError{Cursor: rowsStart, Wanted: int(count) * 8, Remaining: len(block) - rowsStart}
	}

	keys := make([]string, count)
	for i := range keys {
		row := block[rowsStart+i*8:]
		hash := binary.LittleEndian.Uint32(row[0:])
		offset := binary.LittleEndian.Uint32(row[4:])

		pos := 8 + int(offset)
		if pos+2 > len(block) {
			return nil, &UnexpectedEOFError{Cursor: pos, Wanted: 2, Remaining: len(block) - pos}
		}
		length := int(binary.LittleEndian.Uint16(block[pos:]))
		start := pos + 2
		end := start + length
		if end > len(block) {
			return nil, &UnexpectedEOFError{Cursor: start, Wanted: length, Remaining: len(block) - start}
		}
		strBytes := block[start:end]
		if crc32mpeg2.Checksum(strBytes) != hash {
			return nil, ErrStringTableHashMismatch
		}
		keys[i] = string(strBytes)
	}
	return keys, nil
}

// --- huffman block ---

func collectValueFrequencies(doc *Coalesced) map[uint8]int {
	freq := make(map[uint8]int)
	for _, f := range doc.Files {
		for _, s := range f.Sections {
			for _, p := range s.Properties {
				for _, v := range p.Values {
					if v.Ty == RemoveProperty {
						continue
					}
					text := ""
					if v.Text != nil {
						text = *v.Text
					}
					for _, b := range []byte(text) {
						freq[b]++
					}
					freq[0]++ // null terminator
				}
			}
		}
	}
	return freq
}

func maxValueTextLength(doc *Coalesced) int {
	maxLen := 0
	for _, f := range doc.Files {
		for _, s := range f.Sections {
			for _, p := range s.Properties {
				for _, v := range p.Values {
					if v.Ty == RemoveProperty || v.Text == nil {
						continue
					}
					maxLen = max(maxLen, len(*v.Text))
				}
			}
		}
	}
	return maxLen
}

func serializeHuffmanTable(pairs huffman.Table) []byte {
	w := bitio.NewWriter()
	w.WriteU16LE(uint16(len(pairs)))
	for _, p := range pairs {
		w.WriteI32LE(p.Left)
		w.WriteI32LE(p.Right)
	}
	return w.Bytes()
}

func parseHuffmanTable(r *bitio.Reader) (huffman.Table, error) {
	count, err := r.ReadU16LE()
	if err != nil {
		return nil, wrapEOF(err)
	}
	pairs := make(huffman.Table, count)
	for i := range pairs {
		left, err := r.ReadI32LE()
		if err != nil {
			return nil, wrapEOF(err)
		}
		right, err := r.ReadI32LE()
		if err != nil {
			return nil, wrapEOF(err)
		}
		pairs[i] = huffman.Pair{Left: left, Right: right}
	}
	return pairs, nil
}

// --- index block (encode) ---

type indexBuilder struct {
	w         *bitio.Writer
	next      int
	acc       *bitio.BitAccumulator
	codes     map[uint8]huffman.Code
	nameIndex map[string]uint16
}

func (ib *indexBuilder) alloc(n int) int {
	pos := ib.next
	ib.next += n
	return pos
}

func emitCoalescedIndex(doc *Coalesced, nameIndex map[string]uint16, acc *bitio.BitAccumulator, codes map[uint8]huffman.Code) ([]byte, error) {
	ib := &indexBuilder{w: bitio.NewWriter(), acc: acc, codes: codes, nameIndex: nameIndex}

	ib.w.WriteU16LE(uint16(len(doc.Files)))
	rowPos := 2
	ib.next = 2 + 6*len(doc.Files)

	for _, f := range doc.Files {
		fileBase := ib.alloc(2 + 6*len(f.Sections))

		ib.w.Seek(rowPos)
		ib.w.WriteU16LE(nameIndex[f.Path])
		ib.w.WriteU32LE(uint32(fileBase))
		rowPos += 6

		if err := ib.emitFile(fileBase, f); err != nil {
			return nil, err
		}
	}
	return ib.w.Bytes(), nil
}

func (ib *indexBuilder) emitFile(fileBase int, f CoalFile) error {
	ib.w.Seek(fileBase)
	ib.w.WriteU16LE(uint16(len(f.Sections)))
	rowPos := fileBase + 2

	for _, sec := range f.Sections {
		secBase := ib.alloc(2 + 6*len(sec.Properties))

		ib.w.Seek(rowPos)
		ib.w.WriteU16LE(ib.nameIndex[sec.Name])
		ib.w.WriteU32LE(uint32(secBase - fileBase))
		rowPos += 6

		if err := ib.emitSection(secBase, sec); err != nil {
			return err
		}
	}
	return nil
}

func (ib *indexBuilder) emitSection(secBase int, sec Section) error {
	ib.w.Seek(secBase)
	ib.w.WriteU16LE(uint16(len(sec.Properties)))
	rowPos := secBase + 2

	for _, p := range sec.Properties {
		propBase := ib.alloc(2 + 4*len(p.Values))

		ib.w.Seek(rowPos)
		ib.w.WriteU16LE(ib.nameIndex[p.Name])
		ib.w.WriteU32LE(uint32(propBase - secBase))
		rowPos += 6

		if err := ib.emitProperty(propBase, p); err != nil {
			return err
		}
	}
	return nil
}

func (ib *indexBuilder) emitProperty(propBase int, p Property) error {
	ib.w.Seek(propBase)
	ib.w.WriteU16LE(uint16(len(p.Values)))

	for _, v := range p.Values {
		if !v.Ty.Valid() {
			return ErrUnknownValueType
		}

		bitOffset := ib.acc.Len()
		if v.Ty != RemoveProperty {
			text := ""
			if v.Text != nil {
				text = *v.Text
			}
			huffman.EncodeString(ib.acc, ib.codes, []byte(text))
		}
		if bitOffset > maxBitOffset {
			return &BitOffsetOverflowError{BitOffset: bitOffset}
		}

		packed := (uint32(v.Ty) << 29) | (uint32(bitOffset) & maxBitOffset)
		ib.w.WriteU32LE(packed)
	}
	return nil
}

// --- index block (decode) ---

type coalescedDecoder struct {
	keys           []string
	pairs          huffman.Table
	data           []byte
	maxValueLength int
}

func (d *coalescedDecoder) nameAt(idx uint16) (string, error) {
	if int(idx) >= len(d.keys) {
		return "", ErrInvalidNameOffset
	}
	return d.keys[idx], nil
}

func (d *coalescedDecoder) parseTop(index []byte) ([]CoalFile, error) {
	r := bitio.NewReader(index)
	fileCount, err := readCount(r)
	if err != nil {
		return nil, err
	}
	if fileCount == 0 {
		return nil, nil
	}

	type row struct {
		nameIdx uint16
		offset  uint32
	}
	rows := make([]row, fileCount)
	for i := range rows {
		ni, err := r.ReadU16LE()
		if err != nil {
			return nil, wrapEOF(err)
		}
		off, err := r.ReadU32LE()
		if err != nil {
			return nil, wrapEOF(err)
		}
		rows[i] = row{ni, off}
	}

	files := make([]CoalFile, fileCount)
	for i, rr := range rows {
		path, err := d.nameAt(rr.nameIdx)
		if err != nil {
			return nil, err
		}
		sections, err := d.parseFile(index, int(rr.offset))
		if err != nil {
			return nil, err
		}
		files[i] = CoalFile{Path: path, Sections: sections}
	}
	return files, nil
}

func (d *coalescedDecoder) parseFile(index []byte, fileBase int) ([]Section, error) {
	r := bitio.NewReader(index)
	if err := seekIfNonempty(r, fileBase); err != nil {
		return nil, err
	}
	secCount, err := readCount(r)
	if err != nil {
		return nil, err
	}
	if secCount == 0 {
		return nil, nil
	}

	type row struct {
		nameIdx uint16
		offset  uint32
	}
	rows := make([]row, secCount)
	for i := range rows {
		ni, err := r.ReadU16LE()
		if err != nil {
			return nil, wrapEOF(err)
		}
		off, err := r.ReadU32LE()
		if err != nil {
			return nil, wrapEOF(err)
		}
		rows[i] = row{ni, off}
	}

	sections := make([]Section, secCount)
	for i, rr := range rows {
		name, err := d.nameAt(rr.nameIdx)
		if err != nil {
			return nil, err
		}
		props, err := d.parseSection(index, fileBase+int(rr.offset))
		if err != nil {
			return nil, err
		}
		sections[i] = Section{Name: name, Properties: props}
	}
	return sections, nil
}

func (d *coalescedDecoder) parseSection(index []byte, secBase int) ([]Property, error) {
	r := bitio.NewReader(index)
	if err := seekIfNonempty(r, secBase); err != nil {
		return nil, err
	}
	propCount, err := readCount(r)
	if err != nil {
		return nil, err
	}
	if propCount == 0 {
		return nil, nil
	}

	type row struct {
		nameIdx uint16
		offset  uint32
	}
	rows := make([]row, propCount)
	for i := range rows {
		ni, err := r.ReadU16LE()
		if err != nil {
			return nil, wrapEOF(err)
		}
		off, err := r.ReadU32LE()
		if err != nil {
			return nil, wrapEOF(err)
		}
		rows[i] = row{ni, off}
	}

	props := make([]Property, propCount)
	for i, rr := range rows {
		name, err := d.nameAt(rr.nameIdx)
		if err != nil {
			return nil, err
		}
		values, err := d.parseProperty(index, secBase+int(rr.offset))
		if err != nil {
			return nil, err
		}
		props[i] = Property{Name: name, Values: values}
	}
	return props, nil
}

func (d *coalescedDecoder) parseProperty(index []byte, propBase int) ([]Value, error) {
	r := bitio.NewReader(index)
	if err := seekIfNonempty(r, propBase); err != nil {
		return nil, err
	}
	valueCount, err := readCount(r)
	if err != nil {
		return nil, err
	}
	if valueCount == 0 {
		return nil, nil
	}

	values := make([]Value, valueCount)
	for i := range values {
		packed, err := r.ReadU32LE()
		if err != nil {
			return nil, wrapEOF(err)
		}
		ty := ValueType(packed >> 29)
		if !ty.Valid() {
			return nil, ErrUnknownValueType
		}
		bitOffset := int(packed & maxBitOffset)

		if ty == RemoveProperty {
			values[i] = Value{Ty: ty}
			continue
		}
		symbols, err := huffman.Decode[uint8](d.data, d.pairs, bitOffset, d.maxValueLength+1)
		if err != nil {
			return nil, err
		}
		text := string(symbols)
		values[i] = Value{Ty: ty, Text: &text}
	}
	return values, nil
}

// readCount reads the u16 child-count header shared by every index level.
func readCount(r *bitio.Reader) (uint16, error) {
	n, err := r.ReadU16LE()
	if err != nil {
		return 0, wrapEOF(err)
	}
	return n, nil
}

// seekIfNonempty moves r to base, reporting an out-of-range base as an
// UnexpectedEOFError. A base of 0 is where a fresh Reader already stands,
// so no seek is made for it. The encoder only ever writes rows whose base
// lies strictly inside the index block.
func seekIfNonempty(r *bitio.Reader, base int) error {
	if base == 0 {
		return nil
	}
	if err := r.Seek(base); err != nil {
		return wrapEOF(err)
	}
	return nil
}
