package script

import (
	"fmt"

	"github.com/specialistvlad/gindecomp/internal/bincur"
)

// Opcode identifies one virtual-machine instruction.
type Opcode uint8

const (
	OpNop    Opcode = 0x00
	OpPush   Opcode = 0x01 // u32 constant
	OpLoadV  Opcode = 0x02 // u16 slot
	OpStoreV Opcode = 0x03 // u16 slot
	OpCall   Opcode = 0x04 // u16 target, u8 argc
	OpAdd    Opcode = 0x05
	OpSub    Opcode = 0x06
	OpMul    Opcode = 0x07
	OpDiv    Opcode = 0x08
	OpCmpEq  Opcode = 0x09
	OpCmpLt  Opcode = 0x0a
	OpNot    Opcode = 0x0b
	OpJmp    Opcode = 0x10 // u32 byte offset, stream-relative
	OpJz     Opcode = 0x11 // u32 byte offset, stream-relative
	OpJnz    Opcode = 0x12 // u32 byte offset, stream-relative
	OpRet    Opcode = 0x13
)

var opNames = map[Opcode]string{
	OpNop:    "nop",
	OpPush:   "push",
	OpLoadV:  "loadv",
	OpStoreV: "storev",
	OpCall:   "call",
	OpAdd:    "add",
	OpSub:    "sub",
	OpMul:    "mul",
	OpDiv:    "div",
	OpCmpEq:  "cmpeq",
	OpCmpLt:  "cmplt",
	OpNot:    "not",
	OpJmp:    "jmp",
	OpJz:     "jz",
	OpJnz:    "jnz",
	OpRet:    "ret",
}

func (o Opcode) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return fmt.Sprintf("op_%02x", uint8(o))
}

// IsBranch reports whether the opcode transfers control to an explicit
// target offset.
func (o Opcode) IsBranch() bool {
	return o == OpJmp || o == OpJz || o == OpJnz
}

// IsConditional reports whether the opcode is a two-way branch.
func (o Opcode) IsConditional() bool {
	return o == OpJz || o == OpJnz
}

// Instruction is one decoded instruction. Encodings are variable width so
// every instruction records its own byte offset and size within the
// stream; branch operands are byte offsets relative to the stream start,
// never absolute file offsets.
type Instruction struct {
	Index   int
	Offset  int64
	Size    int64
	Op      Opcode
	A       uint32 // first operand: constant, slot, or branch byte offset
	B       uint32 // second operand: call argc
	Unknown bool   // opcode not in the known set; decoded as a 1-byte raw instruction
}

func (in Instruction) String() string {
	switch {
	case in.Unknown:
		return fmt.Sprintf("raw 0x%02x", uint8(in.Op))
	case in.Op == OpCall:
		return fmt.Sprintf("call %d argc=%d", in.A, in.B)
	case in.Op.IsBranch():
		return fmt.Sprintf("%s +0x%x", in.Op, in.A)
	case in.Op == OpPush || in.Op == OpLoadV || in.Op == OpStoreV:
		return fmt.Sprintf("%s %d", in.Op, in.A)
	default:
		return in.Op.String()
	}
}

// DecodeStream linear-scans a raw instruction stream into decoded
// instructions. Unknown opcodes become single-byte raw instructions; a
// truncated trailing operand fails the whole stream since no instruction
// boundary can be recovered past it.
func DecodeStream(data []byte) ([]Instruction, error) {
	c := bincur.New(data)
	var out []Instruction
	for c.Remaining() > 0 {
		start := c.Pos()
		op, err := c.ReadU8()
		if err != nil {
			return nil, err
		}
		in := Instruction{Index: len(out), Offset: start, Op: Opcode(op)}
		switch Opcode(op) {
		case OpNop, OpAdd, OpSub, OpMul, OpDiv, OpCmpEq, OpCmpLt, OpNot, OpRet:
			// no operands
		case OpPush, OpJmp, OpJz, OpJnz:
			v, err := c.ReadU32()
			if err != nil {
				return nil, fmt.Errorf("truncated operand for %s at offset 0x%x: %w", Opcode(op), start, err)
			}
			in.A = v
		case OpLoadV, OpStoreV:
			v, err := c.ReadU16()
			if err != nil {
				return nil, fmt.Errorf("truncated operand for %s at offset 0x%x: %w", Opcode(op), start, err)
			}
			in.A = uint32(v)
		case OpCall:
			target, err := c.ReadU16()
			if err != nil {
				return nil, fmt.Errorf("truncated operand for call at offset 0x%x: %w", start, err)
			}
			argc, err := c.ReadU8()
			if err != nil {
				return nil, fmt.Errorf("truncated operand for call at offset 0x%x: %w", start, err)
			}
			in.A = uint32(target)
			in.B = uint32(argc)
		default:
			in.Unknown = true
		}
		in.Size = c.Pos() - start
		out = append(out, in)
	}
	return out, nil
}
