// Package coalesced decodes and encodes two related binary game-data
// container formats: "Coalesced" (a hierarchical configuration overlay)
// and "TLK" (a localized string table with male/female variants). Both
// share a canonical Huffman codec for their compressed payloads; see
// internal/huffman for that engine and internal/bitio for the buffer
// primitives both container formats are built from.
package coalesced

import "github.com/pocketrelay/coalesced/internal/docmodel"

// Document model. These are plain value types: a decoder
// returns one fully populated and retains no reference to it afterward,
// and an encoder never mutates the one it's given.
type (
	Coalesced = docmodel.Coalesced
	CoalFile  = docmodel.CoalFile
	Section   = docmodel.Section
	Property  = docmodel.Property
	Value     = docmodel.Value
	ValueType = docmodel.ValueType

	Tlk       = docmodel.Tlk
	TlkString = docmodel.TlkString
)

// ValueType codes.
const (
	New            = docmodel.New
	RemoveProperty = docmodel.RemoveProperty
	Add            = docmodel.Add
	AddUnique      = docmodel.AddUnique
	Remove         = docmodel.Remove
)
