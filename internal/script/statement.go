package script

// Statement is one node of the reconstructed script tree. The statement
// tree of a block exactly partitions its instruction stream: every decoded
// instruction is consumed by exactly one statement, with no gaps and no
// overlaps. InstructionCount reports how many instructions a statement
// consumed so the partition invariant can be checked mechanically.
type Statement interface {
	InstructionCount() int
}

// ExprStmt wraps a single straight-line instruction.
type ExprStmt struct {
	Instr Instruction
}

func (s *ExprStmt) InstructionCount() int { return 1 }

// CallStmt is a call instruction with its target and argument count.
type CallStmt struct {
	Instr  Instruction
	Target uint32
	Argc   int
}

func (s *CallStmt) InstructionCount() int { return 1 }

// RawStmt holds an instruction that no region could claim: an unknown
// opcode, or a branch whose target falls outside every enclosing region.
type RawStmt struct {
	Instr Instruction
}

func (s *RawStmt) InstructionCount() int { return 1 }

// CondStmt is a reconstructed conditional. Branch is the conditional jump
// that opens the region; ElseJump, when present, is the unconditional jump
// that separates the then-range from the else-range and marks the
// reconvergence point.
type CondStmt struct {
	Branch   Instruction
	Then     []Statement
	ElseJump *Instruction
	Else     []Statement
}

func (s *CondStmt) InstructionCount() int {
	n := 1 + countInstructions(s.Then) + countInstructions(s.Else)
	if s.ElseJump != nil {
		n++
	}
	return n
}

// LoopStmt is a reconstructed loop region bounded by a back-edge. Back is
// the branch at the bottom whose target is the loop header. Branch, when
// present, is the conditional exit test between the condition statements
// and the body.
type LoopStmt struct {
	Cond   []Statement
	Branch *Instruction
	Body   []Statement
	Back   Instruction
}

func (s *LoopStmt) InstructionCount() int {
	n := countInstructions(s.Cond) + countInstructions(s.Body) + 1
	if s.Branch != nil {
		n++
	}
	return n
}

func countInstructions(stmts []Statement) int {
	n := 0
	for _, s := range stmts {
		n += s.InstructionCount()
	}
	return n
}

// Block is a fully reconstructed instruction block: the flat decoded
// instruction sequence plus the structured statement tree over it.
type Block struct {
	Instructions []Instruction
	Statements   []Statement
}
