package schema

import (
	"fmt"
	"log/slog"
)

// FieldKind identifies the primitive shape of a record field.
type FieldKind int

const (
	KindU8 FieldKind = iota
	KindU16
	KindU32
	KindU64
	KindF32
	KindF64
	KindStr   // u16 length-prefixed UTF-8
	KindBytes // fixed-size byte array; Field.Size holds the width
	KindOffset
	KindTable
	KindCode
)

var kindNames = map[FieldKind]string{
	KindU8:     "u8",
	KindU16:    "u16",
	KindU32:    "u32",
	KindU64:    "u64",
	KindF32:    "f32",
	KindF64:    "f64",
	KindStr:    "str",
	KindBytes:  "bytes",
	KindOffset: "offset",
	KindTable:  "table",
	KindCode:   "code",
}

func (k FieldKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("FieldKind(%d)", int(k))
}

// ParseKind resolves a field kind from its schema-file spelling.
func ParseKind(s string) (FieldKind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown field kind %q", s)
}

// Field describes one field of a record layout.
type Field struct {
	Name string
	Kind FieldKind
	Size int64  // byte width for KindBytes
	Elem uint32 // element type tag for KindOffset and KindTable; 0 means "resolve by the tag found at the target"
}

// Entry describes the layout of one record type tag. Entries are immutable
// once registered.
type Entry struct {
	Tag        uint32
	Name       string
	Fields     []Field
	Container  bool // offset/table fields nest further records
	Executable bool // the record carries an instruction stream, deferred to the script reconstructor
}

// Registry maps record type tags to their layouts. It is built once at
// startup from the compiled-in table plus any user-supplied schema files,
// then sealed. A sealed registry is read-only and safe to share across
// concurrent decode workers without locking; registering into a sealed
// registry is a programmer error and panics.
type Registry struct {
	byTag  map[uint32]*Entry
	byName map[string]*Entry
	sealed bool
}

// New returns an empty, unsealed registry.
func New() *Registry {
	return &Registry{
		byTag:  make(map[uint32]*Entry),
		byName: make(map[string]*Entry),
	}
}

// Builtin returns a sealed registry holding only the compiled-in table.
func Builtin() *Registry {
	r := New()
	registerBuiltin(r)
	r.Seal()
	return r
}

// Register adds an entry. A later registration for an already-known tag
// replaces the earlier one, so user schema files can refine the
// compiled-in table as format knowledge evolves.
func (r *Registry) Register(e Entry) {
	if r.sealed {
		panic("schema: Register called on a sealed registry")
	}
	if e.Name == "" {
		panic(fmt.Sprintf("schema: entry for tag 0x%04x has no name", e.Tag))
	}
	if prev, exists := r.byTag[e.Tag]; exists {
		slog.Debug("Replacing schema entry.", "tag", fmt.Sprintf("0x%04x", e.Tag), "old", prev.Name, "new", e.Name)
		delete(r.byName, prev.Name)
	}
	entry := e
	r.byTag[e.Tag] = &entry
	r.byName[e.Name] = &entry
}

// Seal marks the registry read-only.
func (r *Registry) Seal() { r.sealed = true }

// Lookup resolves a type tag. A miss is expected for tags the accumulated
// format knowledge does not yet cover; callers degrade to a raw node.
func (r *Registry) Lookup(tag uint32) (*Entry, bool) {
	e, ok := r.byTag[tag]
	return e, ok
}

// LookupName resolves an entry by its schema name.
func (r *Registry) LookupName(name string) (*Entry, bool) {
	e, ok := r.byName[name]
	return e, ok
}

// Len reports the number of registered entries.
func (r *Registry) Len() int { return len(r.byTag) }
