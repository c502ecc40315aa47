package container

import (
	"github.com/specialistvlad/gindecomp/internal/script"
)

// NodeKind discriminates the variants of a decoded node.
type NodeKind int

const (
	KindScalar NodeKind = iota
	KindRecord
	KindTable
	KindInstructions // raw opcode stream, not yet reconstructed
	KindStructured   // reconstructed statement tree
	KindRaw          // unknown tag: the undecoded byte range is preserved
	KindError        // the record's own header fields could not be read
)

func (k NodeKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindRecord:
		return "record"
	case KindTable:
		return "table"
	case KindInstructions:
		return "instructions"
	case KindStructured:
		return "structured"
	case KindRaw:
		return "raw"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// FieldValue pairs a schema field name with its decoded node. Order is
// preserved exactly as decoded; it mirrors the original declaration order
// and must survive through serialization for diffability.
type FieldValue struct {
	Name string
	Node *Node
}

// Node is one decoded unit of a section payload. Every node retains its
// payload-relative source offset and length for diagnostics and
// partial-failure reporting.
type Node struct {
	Kind   NodeKind
	Tag    uint32 // record type tag for records and raw nodes
	Name   string // schema name for records
	Offset int64  // payload-relative
	Length int64

	Value  any           // KindScalar: uint64, float64, string or []byte
	Fields []FieldValue  // KindRecord
	Elems  []*Node       // KindTable
	Bytes  []byte        // KindInstructions and KindRaw
	Block  *script.Block // KindStructured
	Err    string        // KindError
}

// ByteRange describes a span of input that was not understood.
type ByteRange struct {
	Section string `json:"section"`
	Start   int64  `json:"start"`
	End     int64  `json:"end"` // exclusive
	Reason  string `json:"reason"`
}

// Section is one decoded section of a container: the raw table entry
// metadata plus the decoded record tree over its payload.
type Section struct {
	Index  int
	Header *SectionHeader
	Root   *Node // table of top-level records; KindError when the payload itself failed
}

// DecodedFile is the result of decoding one .gin container.
type DecodedFile struct {
	Main     *MainHeader
	Path     string // declared in-game path; "" for path-less asset bundles
	Sections []*Section
	Unknown  []ByteRange // byte ranges not understood, across all sections
}

// Partial reports whether any part of the file was not fully understood.
func (f *DecodedFile) Partial() bool {
	if len(f.Unknown) > 0 {
		return true
	}
	for _, s := range f.Sections {
		if s.Root != nil && s.Root.Kind == KindError {
			return true
		}
	}
	return false
}
