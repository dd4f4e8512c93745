// Package docfingerprint computes a fast, non-wire-format content hash of
// a decoded document. It has nothing to do with the Coalesced string
// table's CRC32, which is a wire-format requirement; this is purely an
// internal convenience for cheaply detecting whether two documents differ
// before paying for a full structural comparison.
package docfingerprint

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/pocketrelay/coalesced/internal/docmodel"
)

// Coalesced returns a content fingerprint of c. Equal documents always
// fingerprint equal; unequal documents fingerprint equal only in the case
// of an (astronomically unlikely) hash collision.
func Coalesced(c *docmodel.Coalesced) uint64 {
	var h xxhash.Digest
	writeU32(&h, c.Version)
	writeU32(&h, uint32(len(c.Files)))
	for _, f := range c.Files {
		writeString(&h, f.Path)
		writeU32(&h, uint32(len(f.Sections)))
		for _, s := range f.Sections {
			writeString(&h, s.Name)
			writeU32(&h, uint32(len(s.Properties)))
			for _, p := range s.Properties {
				writeString(&h, p.Name)
				writeU32(&h, uint32(len(p.Values)))
				for _, v := range p.Values {
					h.Write([]byte{byte(v.Ty)})
					if v.Text == nil {
						h.Write([]byte{0})
					} else {
						h.Write([]byte{1})
						writeString(&h, *v.Text)
					}
				}
			}
		}
	}
	return h.Sum64()
}

// Tlk returns a content fingerprint of t.
func Tlk(t *docmodel.Tlk) uint64 {
	var h xxhash.Digest
	writeU32(&h, t.Version)
	writeU32(&h, t.MinVersion)
	writeStrings(&h, t.Male)
	writeStrings(&h, t.Female)
	return h.Sum64()
}

func writeStrings(h *xxhash.Digest, list []docmodel.TlkString) {
	writeU32(h, uint32(len(list)))
	for _, s := range list {
		writeU32(h, s.ID)
		writeU32(h, uint32(len(s.Value)))
		for _, u := range s.Value {
			var b [2]byte
			binary.LittleEndian.PutUint16(b[:], u)
			h.Write(b[:])
		}
	}
}

func writeU32(h *xxhash.Digest, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	h.Write(b[:])
}

func writeString(h *xxhash.Digest, s string) {
	writeU32(h, uint32(len(s)))
	h.Write([]byte(s))
}
