package script

import "fmt"

// Graph is the control-flow graph over a decoded instruction sequence.
// Adjacency is by instruction index, never by pointer, so cyclic flow
// (back-edges) needs no cyclic ownership. Region reduction operates on
// index ranges over this graph.
type Graph struct {
	ins     []Instruction
	succs   [][]int
	targets []int // branch target index per instruction, -1 when not a branch
}

// BackEdge is a branch whose target precedes it in instruction order,
// indicating a loop bounded by [Target, Source].
type BackEdge struct {
	Source int
	Target int
}

// BuildGraph resolves every branch's stream-relative byte offset to an
// instruction index and records successor edges. A branch whose target is
// not an instruction boundary means the stream was mis-decoded or
// corrupted; that is unstructurable by definition.
func BuildGraph(ins []Instruction) (*Graph, error) {
	byOffset := make(map[int64]int, len(ins))
	for i, in := range ins {
		byOffset[in.Offset] = i
	}
	end := int64(0)
	if n := len(ins); n > 0 {
		end = ins[n-1].Offset + ins[n-1].Size
	}

	g := &Graph{
		ins:     ins,
		succs:   make([][]int, len(ins)),
		targets: make([]int, len(ins)),
	}
	for i, in := range ins {
		g.targets[i] = -1
		if !in.Op.IsBranch() {
			if in.Op != OpRet && i+1 < len(ins) {
				g.succs[i] = []int{i + 1}
			}
			continue
		}
		off := int64(in.A)
		var target int
		if off == end {
			// Jumping to the end of the stream is a structured exit.
			target = len(ins)
		} else {
			idx, ok := byOffset[off]
			if !ok {
				return nil, fmt.Errorf("%w: branch at index %d targets byte offset 0x%x, not an instruction boundary", ErrUnstructurable, i, off)
			}
			target = idx
		}
		g.targets[i] = target
		g.succs[i] = []int{target}
		if in.Op.IsConditional() && i+1 < len(ins) {
			g.succs[i] = append(g.succs[i], i+1)
		}
	}
	return g, nil
}

// Target returns the branch target index of instruction i, or -1 when i is
// not a branch. len(instructions) denotes the stream exit.
func (g *Graph) Target(i int) int { return g.targets[i] }

// Succs returns the successor indexes of instruction i.
func (g *Graph) Succs(i int) []int { return g.succs[i] }

// BackEdges enumerates all back-edges in instruction order of their source.
func (g *Graph) BackEdges() []BackEdge {
	var edges []BackEdge
	for i := range g.ins {
		if t := g.targets[i]; t >= 0 && t <= i {
			edges = append(edges, BackEdge{Source: i, Target: t})
		}
	}
	return edges
}
