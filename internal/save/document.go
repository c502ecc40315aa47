package save

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Pair is one key/value entry of a mapping, in stream order.
type Pair struct {
	Key   string
	Value any
}

// Document is an insertion-ordered mapping decoded from a save stream.
// Top-level groups such as Save or SavedEntries appear as nested
// Document values.
type Document struct {
	Version uint32 // set on the root document only
	Pairs   []Pair

	// root marks the stream's outermost mapping, the one that renders
	// the version.
	root bool
}

// Get returns the value for key, scanning in insertion order.
func (d *Document) Get(key string) (any, bool) {
	for _, p := range d.Pairs {
		if p.Key == key {
			return p.Value, true
		}
	}
	return nil, false
}

// Enum is a named enumeration constant.
type Enum string

// Flags is a decoded item-state bitset.
type Flags struct {
	Raw   uint32   `json:"raw"`
	Names []string `json:"names"`
}

func newFlags(raw uint32) Flags {
	f := Flags{Raw: raw}
	if raw&FlagAcquired != 0 {
		f.Names = append(f.Names, "Acquired")
	}
	if raw&FlagEquipped != 0 {
		f.Names = append(f.Names, "Equipped")
	}
	return f
}

// Unsupported marks a value whose type tag is not known. The stream
// cannot be framed past it, so it is always the last decoded value.
type Unsupported struct {
	Tag    uint8 `json:"unsupported_tag"`
	Offset int64 `json:"offset"`
}

// MarshalJSON renders the mapping as a JSON object with keys in
// insertion order. The stock map marshalling would sort them. The root
// document leads with a "$version" key so the format version survives
// into the output artifact.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if d.root {
		fmt.Fprintf(&buf, `"$version":%d`, d.Version)
	}
	for i, p := range d.Pairs {
		if i > 0 || d.root {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(p.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(p.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// EncodeJSON renders a document as indented JSON with a trailing
// newline, ready to write to a file.
func EncodeJSON(d *Document) ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
