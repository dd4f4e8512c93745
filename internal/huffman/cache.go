package huffman

import (
	"cmp"
	"encoding/binary"
	"log/slog"
	"slices"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-tinylfu"
)

// Building a canonical tree for a document's byte alphabet is pure
// function of the frequency map, and patch-style Coalesced documents
// frequently reuse the same small property vocabulary across many
// serialize calls. BuildBytesCached/BuildUTF16Cached memoize Build behind
// a bounded admission-counted cache keyed by a fingerprint of the
// frequency map, so repeat encodes of documents sharing an alphabet don't
// repeat the tree construction.
//
// go-tinylfu's cache is not safe for concurrent Get/Add from multiple
// goroutines, so each cache is paired with a mutex guarding both calls as
// one critical section.
const (
	treeCacheSize    = 256
	treeCacheSamples = treeCacheSize * 10
)

type cachedTree[S Symbol] struct {
	pairs Table
	codes map[S]Code
}

// Left as vars with inferred types (rather than spelling out go-tinylfu's
// cache type) so this file only relies on its New/Get/Add surface. Each
// cache is paired with its own mutex, held across the Get-then-Add
// critical section, since go-tinylfu itself serializes nothing.
var (
	byteTreeCache   = tinylfu.New[uint64, *cachedTree[uint8]](treeCacheSize, treeCacheSamples, identityHash)
	byteTreeCacheMu sync.Mutex

	utf16TreeCache   = tinylfu.New[uint64, *cachedTree[uint16]](treeCacheSize, treeCacheSamples, identityHash)
	utf16TreeCacheMu sync.Mutex
)

func identityHash(k uint64) uint64 { return k }

// BuildBytesCached is Build[uint8] with memoization, safe for concurrent
// callers.
func BuildBytesCached(freq map[uint8]int) (Table, map[uint8]Code) {
	key := fingerprint(freq)

	byteTreeCacheMu.Lock()
	defer byteTreeCacheMu.Unlock()

	if got, ok := byteTreeCache.Get(key); ok {
		slog.Debug("huffman: tree cache hit", "key", key, "symbols", len(freq))
		return got.pairs, got.codes
	}

	pairs, codes := Build(freq)
	byteTreeCache.Add(key, &cachedTree[uint8]{pairs: pairs, codes: codes})
	slog.Debug("huffman: tree built", "key", key, "symbols", len(freq), "pairs", len(pairs))
	return pairs, codes
}

// BuildUTF16Cached is Build[uint16] with memoization, safe for concurrent
// callers.
func BuildUTF16Cached(freq map[uint16]int) (Table, map[uint16]Code) {
	key := fingerprint(freq)

	utf16TreeCacheMu.Lock()
	defer utf16TreeCacheMu.Unlock()

	if got, ok := utf16TreeCache.Get(key); ok {
		slog.Debug("huffman: tree cache hit", "key", key, "symbols", len(freq))
		return got.pairs, got.codes
	}

	pairs, codes := Build(freq)
	utf16TreeCache.Add(key, &cachedTree[uint16]{pairs: pairs, codes: codes})
	slog.Debug("huffman: tree built", "key", key, "symbols", len(freq), "pairs", len(pairs))
	return pairs, codes
}

// fingerprint hashes a frequency map's (symbol, count) pairs in sorted key
// order so that equal maps always fingerprint equal regardless of Go's
// randomized map iteration order.
func fingerprint[S Symbol](freq map[S]int) uint64 {
	keys := make([]S, 0, len(freq))
	for k := range freq {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b S) int { return cmp.Compare(a, b) })

	var h xxhash.Digest
	var tmp [8]byte
	for _, k := range keys {
		binary.LittleEndian.PutUint64(tmp[:], uint64(k))
		h.Write(tmp[:])
		binary.LittleEndian.PutUint64(tmp[:], uint64(freq[k]))
		h.Write(tmp[:])
	}
	return h.Sum64()
}
