// Package docmodel holds the plain data types shared between the
// Coalesced and TLK codecs. These are value types: once a
// decoder returns one, or an encoder is done with one, nothing is
// retained.
package docmodel

// ValueType is the closed tag-type enumeration packed into 3 bits
// alongside a value's bit offset in a Coalesced index entry.
type ValueType uint8

const (
	New            ValueType = 0
	RemoveProperty ValueType = 1
	Add            ValueType = 2
	AddUnique      ValueType = 3
	Remove         ValueType = 4
)

func (t ValueType) Valid() bool { return t <= Remove }

func (t ValueType) String() string {
	switch t {
	case New:
		return "New"
	case RemoveProperty:
		return "RemoveProperty"
	case Add:
		return "Add"
	case AddUnique:
		return "AddUnique"
	case Remove:
		return "Remove"
	default:
		return "ValueType(?)"
	}
}

// Value is one overlay entry. Text is absent exactly when Ty is
// RemoveProperty; for every other tag a decoder always produces a Text
// (possibly empty), and an encoder ignores Text when Ty is
// RemoveProperty.
type Value struct {
	Ty   ValueType
	Text *string
}

// Property is a named list of overlay values.
type Property struct {
	Name   string
	Values []Value
}

// Section is a named list of properties.
type Section struct {
	Name       string
	Properties []Property
}

// CoalFile is one configuration file's section overlay.
type CoalFile struct {
	Path     string
	Sections []Section
}

// Coalesced is the full hierarchical configuration overlay document.
type Coalesced struct {
	Version uint32
	Files   []CoalFile
}
