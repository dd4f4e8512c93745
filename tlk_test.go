package coalesced

import (
	"errors"
	"reflect"
	"testing"
)

// S6: a minimal TLK document with one male entry and no female entries
// round-trips exactly.
func TestSerializeTlkMinimal(t *testing.T) {
	doc := &Tlk{
		Version:    3,
		MinVersion: 3,
		Male:       []TlkString{{ID: 42, Value: []uint16{0x0048, 0x0069}}},
		Female:     nil,
	}

	data, err := SerializeTlk(doc)
	if err != nil {
		t.Fatalf("SerializeTlk: %v", err)
	}
	got, err := DeserializeTlk(data)
	if err != nil {
		t.Fatalf("DeserializeTlk: %v", err)
	}
	if got.Version != doc.Version || got.MinVersion != doc.MinVersion {
		t.Fatalf("version mismatch: got %+v", got)
	}
	if len(got.Female) != 0 {
		t.Fatalf("expected no female entries, got %v", got.Female)
	}
	if !reflect.DeepEqual(got.Male, doc.Male) {
		t.Fatalf("male entries mismatch:\n got  %+v\n want %+v", got.Male, doc.Male)
	}
}

func TestDeserializeTlkRejectsUnknownMagic(t *testing.T) {
	data := make([]byte, 28)
	_, err := DeserializeTlk(data)
	if !errors.Is(err, ErrUnknownFileMagic) {
		t.Fatalf("err = %v, want ErrUnknownFileMagic", err)
	}
}

// Invariant 3: an arbitrary TLK document round-trips to an equal document.
func TestSerializeTlkRoundTrip(t *testing.T) {
	doc := &Tlk{
		Version:    1,
		MinVersion: 1,
		Male: []TlkString{
			{ID: 1, Value: []uint16{'h', 'e', 'l', 'l', 'o'}},
			{ID: 2, Value: nil},
		},
		Female: []TlkString{
			{ID: 1, Value: []uint16{'w', 'o', 'r', 'l', 'd'}},
		},
	}

	data, err := SerializeTlk(doc)
	if err != nil {
		t.Fatalf("SerializeTlk: %v", err)
	}
	got, err := DeserializeTlk(data)
	if err != nil {
		t.Fatalf("DeserializeTlk: %v", err)
	}
	if FingerprintTlk(got) != FingerprintTlk(doc) {
		t.Fatalf("fingerprint mismatch before the full structural comparison")
	}
	if !reflect.DeepEqual(got, doc) {
		t.Fatalf("round trip mismatch:\n got  %+v\n want %+v", got, doc)
	}
}

func TestDeserializeTlkTruncatedNeverPanics(t *testing.T) {
	doc := &Tlk{
		Version:    1,
		MinVersion: 1,
		Male:       []TlkString{{ID: 1, Value: []uint16{'h', 'i', 't', 'h', 'e', 'r', 'e'}}},
	}
	data, err := SerializeTlk(doc)
	if err != nil {
		t.Fatalf("SerializeTlk: %v", err)
	}

	for k := 0; k < len(data); k++ {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("DeserializeTlk panicked on truncation at %d: %v", k, r)
				}
			}()
			_, _ = DeserializeTlk(data[:k])
		}()
	}
}

func TestInsertAndSerializeTlk(t *testing.T) {
	var doc Tlk
	doc.InsertMale(1, []uint16{'a'})
	doc.InsertMale(1, []uint16{'b'})

	data, err := SerializeTlk(&doc)
	if err != nil {
		t.Fatalf("SerializeTlk: %v", err)
	}
	got, err := DeserializeTlk(data)
	if err != nil {
		t.Fatalf("DeserializeTlk: %v", err)
	}
	if len(got.Male) != 1 || got.Male[0].Text() != "b" {
		t.Fatalf("got.Male = %+v, want a single replaced entry", got.Male)
	}
}
