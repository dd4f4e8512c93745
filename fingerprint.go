package coalesced

import "github.com/pocketrelay/coalesced/internal/docfingerprint"

// FingerprintCoalesced returns a content fingerprint of doc, cheap enough
// to call before a full structural comparison. It has nothing to do with
// the on-disk string table's CRC32, which is a wire-format requirement
// instead of an equality convenience.
func FingerprintCoalesced(doc *Coalesced) uint64 {
	return docfingerprint.Coalesced(doc)
}

// FingerprintTlk returns a content fingerprint of doc.
func FingerprintTlk(doc *Tlk) uint64 {
	return docfingerprint.Tlk(doc)
}
