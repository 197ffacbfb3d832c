package cfg

import "github.com/minic32/rv32cc/pkg/tac"

// Graph is the basic-block control-flow graph of one function.
type Graph struct {
	Func   *tac.Function
	Blocks []*Block
}

// Build splits fn's flat instruction stream into basic blocks and links
// them. A new block starts at instruction 0, at every label (Mark), and
// immediately after every jump, conditional jump, or return.
func Build(fn *tac.Function) *Graph {
	g := &Graph{Func: fn}
	if len(fn.Instrs) == 0 {
		return g
	}

	leaders := computeLeaders(fn.Instrs)
	labelBlock := make(map[*tac.Label]int)

	for i, start := range leaders {
		end := len(fn.Instrs)
		if i+1 < len(leaders) {
			end = leaders[i+1]
		}
		block := &Block{Index: i, Instrs: fn.Instrs[start:end], Next: noBlock, Branch: noBlock}
		g.Blocks = append(g.Blocks, block)
		if mark, ok := block.Instrs[0].(*tac.Mark); ok {
			labelBlock[mark.Label] = i
		}
	}

	for i, block := range g.Blocks {
		last := block.Instrs[len(block.Instrs)-1]
		switch instr := last.(type) {
		case *tac.Branch:
			block.Kind = ByBranch
			block.Next = labelBlock[instr.Target]
		case *tac.CondBranch:
			block.Kind = ByCondBranch
			block.Branch = labelBlock[instr.Target]
			if i+1 < len(g.Blocks) {
				block.Next = i + 1
			}
		case *tac.Return:
			block.Kind = ByReturn
		default:
			block.Kind = Continuous
			if i+1 < len(g.Blocks) {
				block.Next = i + 1
			}
		}
	}

	g.markReachable()
	return g
}

// computeLeaders returns the sorted, deduplicated instruction indices that
// start a new basic block.
func computeLeaders(instrs []tac.Instr) []int {
	isLeader := make(map[int]bool)
	isLeader[0] = true
	for i, instr := range instrs {
		switch instr.Kind() {
		case tac.KindLabel:
			isLeader[i] = true
		case tac.KindJump, tac.KindCondJump, tac.KindReturn:
			if i+1 < len(instrs) {
				isLeader[i+1] = true
			}
		}
	}
	leaders := make([]int, 0, len(isLeader))
	for i := range isLeader {
		leaders = append(leaders, i)
	}
	// Insertion sort: leader counts per function are small and this keeps
	// the package free of a sort import for a handful of ints.
	for i := 1; i < len(leaders); i++ {
		for j := i; j > 0 && leaders[j-1] > leaders[j]; j-- {
			leaders[j-1], leaders[j] = leaders[j], leaders[j-1]
		}
	}
	return leaders
}

// markReachable runs a breadth-first search from block 0 and records which
// blocks it visits.
func (g *Graph) markReachable() {
	if len(g.Blocks) == 0 {
		return
	}
	queue := []int{0}
	g.Blocks[0].Reachable = true
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		for _, succ := range g.Blocks[i].Successors() {
			if !g.Blocks[succ].Reachable {
				g.Blocks[succ].Reachable = true
				queue = append(queue, succ)
			}
		}
	}
}
