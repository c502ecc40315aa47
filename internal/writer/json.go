package writer

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/specialistvlad/gindecomp/internal/container"
	"github.com/specialistvlad/gindecomp/internal/script"
)

// jsonEncoder emits the decoded tree as indented JSON. encoding/json is
// not used for composite values because map-based marshalling re-orders
// keys; field order as decoded is semantically meaningful and must be
// reproducible for diffing between decompiles.
type jsonEncoder struct {
	buf   bytes.Buffer
	depth int
}

func encodeFile(file *container.DecodedFile) []byte {
	e := &jsonEncoder{}
	e.open("{")
	e.key("path")
	e.str(file.Path)
	e.comma()
	e.key("file_id")
	e.str(hex.EncodeToString(file.Main.FileID))
	e.comma()
	e.key("version")
	e.raw(fmt.Sprintf("%d", file.Main.Version))
	e.comma()
	e.key("sections")
	e.open("[")
	for i, sec := range file.Sections {
		if i > 0 {
			e.comma()
		}
		e.open("{")
		e.key("name")
		e.str(sec.Header.Name)
		e.comma()
		e.key("root")
		e.node(sec.Root)
		e.close("}")
	}
	e.close("]")
	e.close("}")
	e.buf.WriteByte('\n')
	return e.buf.Bytes()
}

func (e *jsonEncoder) node(n *container.Node) {
	if n == nil {
		e.raw("null")
		return
	}
	switch n.Kind {
	case container.KindScalar:
		e.scalar(n.Value)
	case container.KindRecord:
		e.open("{")
		e.key("$type")
		e.str(n.Name)
		e.comma()
		e.key("$tag")
		e.str(fmt.Sprintf("0x%04x", n.Tag))
		for _, f := range n.Fields {
			e.comma()
			e.key(f.Name)
			e.node(f.Node)
		}
		e.close("}")
	case container.KindTable:
		e.open("[")
		for i, el := range n.Elems {
			if i > 0 {
				e.comma()
			}
			e.node(el)
		}
		e.close("]")
	case container.KindRaw:
		e.open("{")
		e.key("$type")
		e.str("$raw")
		e.comma()
		e.key("$tag")
		e.str(fmt.Sprintf("0x%04x", n.Tag))
		e.comma()
		e.key("$offset")
		e.raw(fmt.Sprintf("%d", n.Offset))
		e.comma()
		e.key("$length")
		e.raw(fmt.Sprintf("%d", n.Length))
		e.comma()
		e.key("$data")
		e.str(base64.StdEncoding.EncodeToString(n.Bytes))
		e.close("}")
	case container.KindError:
		e.open("{")
		e.key("$type")
		e.str("$error")
		e.comma()
		e.key("$offset")
		e.raw(fmt.Sprintf("%d", n.Offset))
		e.comma()
		e.key("$reason")
		e.str(n.Err)
		e.close("}")
	case container.KindInstructions:
		e.open("{")
		e.key("$type")
		e.str("$code")
		e.comma()
		e.key("$instructions")
		if n.Block != nil {
			e.instructions(n.Block.Instructions)
		} else {
			e.rawInstructions(n.Bytes)
		}
		e.close("}")
	case container.KindStructured:
		e.open("{")
		e.key("$type")
		e.str("$code")
		e.comma()
		e.key("$statements")
		e.statements(n.Block.Statements)
		e.close("}")
	default:
		e.raw("null")
	}
}

func (e *jsonEncoder) scalar(v any) {
	switch x := v.(type) {
	case []byte:
		e.str(base64.StdEncoding.EncodeToString(x))
	default:
		// uint64, float64, string: encoding/json renders these exactly.
		b, err := json.Marshal(x)
		if err != nil {
			e.str(fmt.Sprintf("%v", x))
			return
		}
		e.buf.Write(b)
	}
}

// rawInstructions covers the degraded case where even linear decoding of
// the stream failed and only the bytes remain.
func (e *jsonEncoder) rawInstructions(code []byte) {
	e.str(base64.StdEncoding.EncodeToString(code))
}

func (e *jsonEncoder) instructions(ins []script.Instruction) {
	e.open("[")
	for i, in := range ins {
		if i > 0 {
			e.comma()
		}
		e.str(instrString(in))
	}
	e.close("]")
}

func (e *jsonEncoder) statements(stmts []script.Statement) {
	e.open("[")
	for i, s := range stmts {
		if i > 0 {
			e.comma()
		}
		e.statement(s)
	}
	e.close("]")
}

func (e *jsonEncoder) statement(s script.Statement) {
	switch st := s.(type) {
	case *script.ExprStmt:
		e.str(instrString(st.Instr))
	case *script.RawStmt:
		e.str(instrString(st.Instr))
	case *script.CallStmt:
		e.str(instrString(st.Instr))
	case *script.CondStmt:
		e.open("{")
		e.key("$if")
		e.str(instrString(st.Branch))
		e.comma()
		e.key("$then")
		e.statements(st.Then)
		if st.ElseJump != nil {
			e.comma()
			e.key("$else")
			e.statements(st.Else)
		}
		e.close("}")
	case *script.LoopStmt:
		e.open("{")
		e.key("$loop")
		e.str(instrString(st.Back))
		if len(st.Cond) > 0 {
			e.comma()
			e.key("$cond")
			e.statements(st.Cond)
		}
		if st.Branch != nil {
			e.comma()
			e.key("$exit")
			e.str(instrString(*st.Branch))
		}
		e.comma()
		e.key("$body")
		e.statements(st.Body)
		e.close("}")
	default:
		e.str(fmt.Sprintf("%v", s))
	}
}

func instrString(in script.Instruction) string {
	return fmt.Sprintf("%04x: %s", in.Offset, in.String())
}

func (e *jsonEncoder) open(bracket string) {
	e.buf.WriteString(bracket)
	e.depth++
	e.newline()
}

func (e *jsonEncoder) close(bracket string) {
	e.depth--
	e.newline()
	e.buf.WriteString(bracket)
}

func (e *jsonEncoder) comma() {
	e.buf.WriteString(",")
	e.newline()
}

func (e *jsonEncoder) key(name string) {
	e.str(name)
	e.buf.WriteString(": ")
}

func (e *jsonEncoder) str(s string) {
	b, _ := json.Marshal(s)
	e.buf.Write(b)
}

func (e *jsonEncoder) raw(s string) {
	e.buf.WriteString(s)
}

func (e *jsonEncoder) newline() {
	e.buf.WriteByte('\n')
	for i := 0; i < e.depth; i++ {
		e.buf.WriteString("  ")
	}
}
