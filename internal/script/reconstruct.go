package script

import (
	"errors"
	"fmt"
)

// ErrUnstructurable marks an instruction block whose control flow could
// not be reduced to nested regions. Callers degrade to emitting the flat
// instruction list; decoding never hangs on malformed input.
var ErrUnstructurable = errors.New("unstructurable code")

// reductionBudget bounds the total number of region-reduction steps for a
// block. Structural recursion always shrinks index ranges, so well-formed
// input never comes close; the bound is what keeps a pathological file
// merely slow instead of infinite.
func reductionBudget(n int) int { return 4*n + 16 }

// Reconstruct decodes a raw instruction stream, builds its control-flow
// graph and reduces it inner-first into a structured statement tree.
// Loop regions are bounded by back-edges (a branch to an earlier index);
// conditional regions by a forward two-way branch whose paths reconverge.
// Instructions matched by no region remain as raw statements in stream
// order.
func Reconstruct(data []byte) (*Block, error) {
	ins, err := DecodeStream(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnstructurable, err)
	}
	if len(ins) == 0 {
		return &Block{}, nil
	}
	graph, err := BuildGraph(ins)
	if err != nil {
		return nil, err
	}

	r := &reducer{ins: ins, graph: graph, budget: reductionBudget(len(ins))}
	stmts, err := r.structure(0, len(ins)-1)
	if err != nil {
		return nil, err
	}
	if got := countInstructions(stmts); got != len(ins) {
		return nil, fmt.Errorf("%w: statement tree covers %d of %d instructions", ErrUnstructurable, got, len(ins))
	}
	return &Block{Instructions: ins, Statements: stmts}, nil
}

type reducer struct {
	ins    []Instruction
	graph  *Graph
	budget int
}

// structure reduces the index range [lo, hi] into statements. Regions are
// matched at their first instruction and recursed into before the scan
// continues past them, which yields the required inner-first reduction.
func (r *reducer) structure(lo, hi int) ([]Statement, error) {
	var stmts []Statement
	for i := lo; i <= hi; {
		r.budget--
		if r.budget < 0 {
			return nil, fmt.Errorf("%w: reduction budget exhausted in range [%d, %d]", ErrUnstructurable, lo, hi)
		}

		// A back-edge from j to i opens a loop region [i, j]. The
		// farthest such source wins so the outermost loop on this
		// header is reduced first; its interior recursion handles the
		// rest.
		if j := r.lastBackEdgeSource(i, hi); j >= i {
			stmt, err := r.reduceLoop(i, j)
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, stmt)
			i = j + 1
			continue
		}

		in := r.ins[i]
		if in.Op.IsConditional() {
			if f := r.graph.Target(i); f > i && f <= hi+1 {
				stmt, next, err := r.reduceConditional(i, f, hi)
				if err != nil {
					return nil, err
				}
				stmts = append(stmts, stmt)
				i = next
				continue
			}
			// A target escaping the enclosing region: leave the
			// branch unresolved.
			stmts = append(stmts, &RawStmt{Instr: in})
			i++
			continue
		}

		switch {
		case in.Unknown, in.Op == OpJmp:
			// A stray unconditional jump here was not consumed by any
			// loop or conditional region.
			stmts = append(stmts, &RawStmt{Instr: in})
		case in.Op == OpCall:
			stmts = append(stmts, &CallStmt{Instr: in, Target: in.A, Argc: int(in.B)})
		default:
			stmts = append(stmts, &ExprStmt{Instr: in})
		}
		i++
	}
	return stmts, nil
}

// lastBackEdgeSource returns the largest j in [header, hi] whose branch
// targets header, or -1.
func (r *reducer) lastBackEdgeSource(header, hi int) int {
	for j := hi; j >= header; j-- {
		if r.graph.Target(j) == header {
			return j
		}
	}
	return -1
}

// reduceLoop structures the region [header, back] closed by the back-edge
// at index back. A conditional inside the region that targets the first
// index after it is the loop's exit test; everything before it is the
// condition, everything after is the body.
func (r *reducer) reduceLoop(header, back int) (Statement, error) {
	loop := &LoopStmt{Back: r.ins[back]}
	if back == header {
		// Degenerate self-loop: the back-edge is the whole region.
		return loop, nil
	}
	exit := -1
	for c := header; c < back; c++ {
		if r.ins[c].Op.IsConditional() && r.graph.Target(c) == back+1 {
			exit = c
			break
		}
	}
	var err error
	if exit >= 0 {
		branch := r.ins[exit]
		loop.Branch = &branch
		if loop.Cond, err = r.structure(header, exit-1); err != nil {
			return nil, err
		}
		if loop.Body, err = r.structure(exit+1, back-1); err != nil {
			return nil, err
		}
	} else {
		// No explicit exit test: the closing back-edge carries the
		// condition (do-while shape) or the loop is unconditional.
		if loop.Body, err = r.structure(header, back-1); err != nil {
			return nil, err
		}
	}
	return loop, nil
}

// reduceConditional structures the region opened by the conditional branch
// at index i with target f. When the then-range ends in a forward jump,
// its target is the reconvergence point and the instructions between f and
// it form the else-range. The returned next index is the reconvergence
// point, where both paths meet again.
func (r *reducer) reduceConditional(i, f, hi int) (Statement, int, error) {
	cond := &CondStmt{Branch: r.ins[i]}

	last := f - 1
	if last > i && r.ins[last].Op == OpJmp {
		if m := r.graph.Target(last); m > f && m <= hi+1 {
			elseJump := r.ins[last]
			cond.ElseJump = &elseJump
			then, err := r.structure(i+1, last-1)
			if err != nil {
				return nil, 0, err
			}
			els, err := r.structure(f, m-1)
			if err != nil {
				return nil, 0, err
			}
			cond.Then = then
			cond.Else = els
			return cond, m, nil
		}
	}

	then, err := r.structure(i+1, f-1)
	if err != nil {
		return nil, 0, err
	}
	cond.Then = then
	return cond, f, nil
}
