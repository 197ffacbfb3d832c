// Package cfg builds a basic-block control-flow graph over one function's
// flat TAC instruction stream and runs backward liveness analysis over it.
// Grounded on the teacher's rtlgen/cfg.go CFG-builder shape and the
// RegSet/liveness idiom visible in regalloc/interference.go, adapted from a
// node-per-instruction RTL graph to basic blocks over linear TAC.
package cfg

import "github.com/minic32/rv32cc/pkg/tac"

// Kind classifies how control leaves a Block.
type Kind int

const (
	// Continuous falls through into the next block in program order.
	Continuous Kind = iota
	// ByBranch ends in an unconditional jump to Next.
	ByBranch
	// ByCondBranch ends in a conditional jump: Branch if taken, Next
	// (the textually following block) if not.
	ByCondBranch
	// ByReturn ends the function; it has no successors.
	ByReturn
)

// noBlock marks an absent successor.
const noBlock = -1

// Block is a maximal straight-line run of TAC instructions: no label
// appears except possibly as the first instruction, and control only
// leaves at the last instruction.
type Block struct {
	Index  int
	Instrs []tac.Instr
	Kind   Kind

	// Next is the fall-through or unconditionally-jumped-to successor;
	// noBlock if Kind is ByReturn, or if Kind is Continuous and this is
	// the function's last block.
	Next int
	// Branch is the taken-branch successor for ByCondBranch; noBlock
	// otherwise.
	Branch int

	Reachable bool
}

// Successors returns the (0, 1 or 2) blocks control may flow to from b.
func (b *Block) Successors() []int {
	var out []int
	if b.Next != noBlock {
		out = append(out, b.Next)
	}
	if b.Branch != noBlock {
		out = append(out, b.Branch)
	}
	return out
}
