package coalesced

import (
	"errors"
	"reflect"
	"testing"

	"github.com/pocketrelay/coalesced/internal/crc32mpeg2"
)

func strPtr(s string) *string { return &s }

// S1: a file that doesn't start with the Coalesced magic is rejected.
func TestDeserializeCoalescedRejectsUnknownMagic(t *testing.T) {
	data := make([]byte, 32)
	_, err := DeserializeCoalesced(data)
	if !errors.Is(err, ErrUnknownFileMagic) {
		t.Fatalf("err = %v, want ErrUnknownFileMagic", err)
	}
}

// S2: an empty document round-trips with the exact header field values the
// format implies for a zero-file document.
func TestSerializeCoalescedMinimal(t *testing.T) {
	doc := &Coalesced{Version: 1, Files: []CoalFile{}}

	data, err := SerializeCoalesced(doc)
	if err != nil {
		t.Fatalf("SerializeCoalesced: %v", err)
	}
	if len(data) < coalescedHeaderSize {
		t.Fatalf("output too short: %d bytes", len(data))
	}

	readU32 := func(off int) uint32 {
		return uint32(data[off]) | uint32(data[off+1])<<8 | uint32(data[off+2])<<16 | uint32(data[off+3])<<24
	}
	wantFields := []struct {
		name string
		off  int
		want uint32
	}{
		{"magic", 0, coalescedMagic},
		{"version", 4, 1},
		{"max_field_name_length", 8, 0},
		{"max_value_length", 12, 0},
		{"string_table_size", 16, 8},
		{"huffman_size", 20, 2},
		{"index_size", 24, 2},
		{"data_size", 28, 0},
	}
	for _, f := range wantFields {
		if got := readU32(f.off); got != f.want {
			t.Fatalf("header field %s = %d, want %d", f.name, got, f.want)
		}
	}

	got, err := DeserializeCoalesced(data)
	if err != nil {
		t.Fatalf("DeserializeCoalesced: %v", err)
	}
	if got.Version != 1 || len(got.Files) != 0 {
		t.Fatalf("round trip = %+v, want version 1 with no files", got)
	}
}

// S3: a single property with one value round-trips structurally, and its
// string table holds exactly the three keys, sorted by CRC32 ascending.
func TestSerializeCoalescedSingleProperty(t *testing.T) {
	doc := &Coalesced{
		Version: 1,
		Files: []CoalFile{
			{Path: "a", Sections: []Section{
				{Name: "b", Properties: []Property{
					{Name: "c", Values: []Value{{Ty: New, Text: strPtr("hi")}}},
				}},
			}},
		},
	}

	data, err := SerializeCoalesced(doc)
	if err != nil {
		t.Fatalf("SerializeCoalesced: %v", err)
	}
	got, err := DeserializeCoalesced(data)
	if err != nil {
		t.Fatalf("DeserializeCoalesced: %v", err)
	}
	if FingerprintCoalesced(got) != FingerprintCoalesced(doc) {
		t.Fatalf("fingerprint mismatch before the full structural comparison")
	}
	if !reflect.DeepEqual(got, doc) {
		t.Fatalf("round trip mismatch:\n got  %+v\n want %+v", got, doc)
	}

	keys, _ := collectCoalescedKeys(doc)
	want := map[string]bool{"a": true, "b": true, "c": true}
	if len(keys) != len(want) {
		t.Fatalf("collected keys = %v, want exactly %v", keys, want)
	}
	for _, k := range keys {
		if !want[k] {
			t.Fatalf("unexpected key %q", k)
		}
	}
	for i := 1; i < len(keys); i++ {
		if crc32mpeg2.Checksum([]byte(keys[i-1])) > crc32mpeg2.Checksum([]byte(keys[i])) {
			t.Fatalf("keys not sorted by CRC32 ascending: %v", keys)
		}
	}
}

// S4: a RemoveProperty value round-trips with its tag intact and no text.
func TestSerializeCoalescedRemoveTag(t *testing.T) {
	doc := &Coalesced{
		Version: 1,
		Files: []CoalFile{
			{Path: "a", Sections: []Section{
				{Name: "b", Properties: []Property{
					{Name: "c", Values: []Value{{Ty: RemoveProperty}}},
				}},
			}},
		},
	}

	data, err := SerializeCoalesced(doc)
	if err != nil {
		t.Fatalf("SerializeCoalesced: %v", err)
	}
	got, err := DeserializeCoalesced(data)
	if err != nil {
		t.Fatalf("DeserializeCoalesced: %v", err)
	}
	v := got.Files[0].Sections[0].Properties[0].Values[0]
	if v.Ty != RemoveProperty || v.Text != nil {
		t.Fatalf("value = %+v, want {Ty: RemoveProperty, Text: nil}", v)
	}
}

// S5: flipping a byte in a stored CRC32 hash is detected on decode.
func TestDeserializeCoalescedHashTamper(t *testing.T) {
	doc := &Coalesced{
		Version: 1,
		Files: []CoalFile{
			{Path: "a", Sections: []Section{
				{Name: "b", Properties: []Property{
					{Name: "c", Values: []Value{{Ty: New, Text: strPtr("hi")}}},
				}},
			}},
		},
	}
	data, err := SerializeCoalesced(doc)
	if err != nil {
		t.Fatalf("SerializeCoalesced: %v", err)
	}

	// The string table's first hash word starts right after the 8-byte
	// preamble, immediately after the header.
	hashOffset := coalescedHeaderSize + 8
	data[hashOffset] ^= 0xFF

	_, err = DeserializeCoalesced(data)
	if !errors.Is(err, ErrStringTableHashMismatch) {
		t.Fatalf("err = %v, want ErrStringTableHashMismatch", err)
	}
}

// Invariant 4: decoding a valid file truncated at any prefix length never
// panics.
func TestDeserializeCoalescedTruncatedNeverPanics(t *testing.T) {
	doc := &Coalesced{
		Version: 1,
		Files: []CoalFile{
			{Path: "a", Sections: []Section{
				{Name: "b", Properties: []Property{
					{Name: "c", Values: []Value{{Ty: New, Text: strPtr("hello world")}}},
				}},
			}},
		},
	}
	data, err := SerializeCoalesced(doc)
	if err != nil {
		t.Fatalf("SerializeCoalesced: %v", err)
	}

	for k := 0; k < len(data); k++ {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("DeserializeCoalesced panicked on truncation at %d: %v", k, r)
				}
			}()
			_, _ = DeserializeCoalesced(data[:k])
		}()
	}
}

// Invariant 2: a document whose keys are already unique and whose value
// types are all in range round-trips to an equal document.
func TestSerializeCoalescedRoundTripEquality(t *testing.T) {
	doc := &Coalesced{
		Version: 7,
		Files: []CoalFile{
			{Path: "Engine.ini", Sections: []Section{
				{Name: "Core.System", Properties: []Property{
					{Name: "Paths", Values: []Value{
						{Ty: Add, Text: strPtr("../../Content")},
						{Ty: AddUnique, Text: strPtr("../../Content2")},
						{Ty: RemoveProperty},
					}},
					{Name: "Other", Values: nil},
				}},
				{Name: "Empty.Section", Properties: nil},
			}},
			{Path: "Game.ini", Sections: nil},
		},
	}

	data, err := SerializeCoalesced(doc)
	if err != nil {
		t.Fatalf("SerializeCoalesced: %v", err)
	}
	got, err := DeserializeCoalesced(data)
	if err != nil {
		t.Fatalf("DeserializeCoalesced: %v", err)
	}
	if FingerprintCoalesced(got) != FingerprintCoalesced(doc) {
		t.Fatalf("fingerprint mismatch before the full structural comparison")
	}
	if !reflect.DeepEqual(got, doc) {
		t.Fatalf("round trip mismatch:\n got  %+v\n want %+v", got, doc)
	}
}

func TestSerializeCoalescedRejectsInvalidValueType(t *testing.T) {
	doc := &Coalesced{
		Version: 1,
		Files: []CoalFile{
			{Path: "a", Sections: []Section{
				{Name: "b", Properties: []Property{
					{Name: "c", Values: []Value{{Ty: ValueType(9), Text: strPtr("x")}}},
				}},
			}},
		},
	}
	if _, err := SerializeCoalesced(doc); !errors.Is(err, ErrUnknownValueType) {
		t.Fatalf("err = %v, want ErrUnknownValueType", err)
	}
}
