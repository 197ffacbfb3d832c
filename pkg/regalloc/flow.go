// Package regalloc assigns physical RV32I registers to the pseudo-temps
// left behind by instruction selection, spilling to the stack when a
// basic block needs more registers live at once than the machine has.
// Grounded directly on bruteregalloc.py's per-block, no-coalescing
// brute-force allocator (selection happens eagerly by scanning
// allocatableRegs and evicting the first register whose temp is not in
// the block's remaining live set, falling back to round-robin eviction
// when every register is live) and on RiscvSubroutineEmitter's
// prologue/epilogue and frame-offset bookkeeping.
package regalloc

import "github.com/minic32/rv32cc/pkg/riscv"

// Kind classifies how control leaves a Block, mirroring pkg/cfg but
// over the post-selection instruction stream: the allocator must see
// each selected instruction individually (a single TAC op can expand
// into several), so it builds its own basic blocks rather than reusing
// pkg/cfg's TAC-level ones.
type Kind int

const (
	Continuous Kind = iota
	ByBranch
	ByCondBranch
	ByReturn
)

const noBlock = -1

// Block is a maximal straight-line run of selected instructions.
type Block struct {
	Index  int
	Instrs []riscv.Instr
	Kind   Kind

	Next, Branch int
	Reachable    bool

	// LabelName is non-empty if this block begins with a label
	// definition, so the emitter knows to print it before the block.
	LabelName string
}

func (b *Block) successors() []int {
	var out []int
	if b.Next != noBlock {
		out = append(out, b.Next)
	}
	if b.Branch != noBlock {
		out = append(out, b.Branch)
	}
	return out
}

// Flow is the basic-block graph over one function's selected
// instructions.
type Flow struct {
	Blocks []*Block
}

// BuildFlow splits a selected instruction stream into basic blocks and
// links them by branch target.
func BuildFlow(instrs []riscv.Instr) *Flow {
	f := &Flow{}
	if len(instrs) == 0 {
		return f
	}

	isLeader := make(map[int]bool)
	isLeader[0] = true
	for i, instr := range instrs {
		switch instr.(type) {
		case riscv.RiscvLabel:
			isLeader[i] = true
		case riscv.Jump, riscv.CondBranch, riscv.JumpToEpilogue:
			if i+1 < len(instrs) {
				isLeader[i+1] = true
			}
		}
	}
	leaders := sortedKeys(isLeader)

	labelBlock := make(map[string]int)
	for i, start := range leaders {
		end := len(instrs)
		if i+1 < len(leaders) {
			end = leaders[i+1]
		}
		block := &Block{Index: i, Instrs: instrs[start:end], Next: noBlock, Branch: noBlock}
		f.Blocks = append(f.Blocks, block)
		if lbl, ok := block.Instrs[0].(riscv.RiscvLabel); ok {
			block.LabelName = lbl.L.String()
			labelBlock[lbl.L.String()] = i
		}
	}

	for i, block := range f.Blocks {
		last := block.Instrs[len(block.Instrs)-1]
		switch instr := last.(type) {
		case riscv.Jump:
			block.Kind = ByBranch
			block.Next = labelBlock[instr.Target.String()]
		case riscv.CondBranch:
			block.Kind = ByCondBranch
			block.Branch = labelBlock[instr.Target.String()]
			if i+1 < len(f.Blocks) {
				block.Next = i + 1
			}
		case riscv.JumpToEpilogue:
			block.Kind = ByReturn
		default:
			block.Kind = Continuous
			if i+1 < len(f.Blocks) {
				block.Next = i + 1
			}
		}
	}

	f.markReachable()
	return f
}

func (f *Flow) markReachable() {
	if len(f.Blocks) == 0 {
		return
	}
	queue := []int{0}
	f.Blocks[0].Reachable = true
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		for _, succ := range f.Blocks[i].successors() {
			if !f.Blocks[succ].Reachable {
				f.Blocks[succ].Reachable = true
				queue = append(queue, succ)
			}
		}
	}
}

// sortedKeys returns the true keys of m in ascending order via
// insertion sort; leader counts per function are small enough that
// this keeps the package free of a sort import for a handful of ints.
func sortedKeys(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
