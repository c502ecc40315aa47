// Package script reconstructs structured control flow from the raw
// instruction streams embedded in executable .gin records. The container
// decoder captures those streams undecoded; this package linear-scans them
// into instructions, resolves branch byte offsets into an instruction-index
// control-flow graph, and reduces back-edge and reconvergence regions
// inner-first into nested loop and conditional statements. This reduction
// dominates the decode time of large script bundles.
package script
