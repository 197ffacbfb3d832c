package regalloc

import "github.com/minic32/rv32cc/pkg/cfg"

// Liveness is the same backward fixed-point result as pkg/cfg.Liveness,
// computed instead over the post-selection instruction stream so the
// allocator sees a register's exact death point even when one TAC
// operation expanded into several selected instructions.
type Liveness struct {
	BlockLiveOut []cfg.RegSet
	InstrLiveIn  [][]cfg.RegSet
	InstrLiveOut [][]cfg.RegSet
}

// Analyze runs liveIn(b) = use(b) U (liveOut(b) \ def(b)) to a fixed
// point, then a second backward pass within each block for
// per-instruction detail.
func Analyze(f *Flow) *Liveness {
	n := len(f.Blocks)
	blockUse := make([]cfg.RegSet, n)
	blockDef := make([]cfg.RegSet, n)
	liveIn := make([]cfg.RegSet, n)
	liveOut := make([]cfg.RegSet, n)

	for i, b := range f.Blocks {
		use, def := cfg.NewRegSet(), cfg.NewRegSet()
		for _, instr := range b.Instrs {
			for _, u := range instr.Srcs() {
				if !def.Contains(u) {
					use.Add(u)
				}
			}
			for _, d := range instr.Dsts() {
				def.Add(d)
			}
		}
		blockUse[i], blockDef[i] = use, def
		liveIn[i], liveOut[i] = cfg.NewRegSet(), cfg.NewRegSet()
	}

	for changed := true; changed; {
		changed = false
		for i := n - 1; i >= 0; i-- {
			newOut := cfg.NewRegSet()
			for _, succ := range f.Blocks[i].successors() {
				newOut = newOut.Union(liveIn[succ])
			}
			newIn := blockUse[i].Copy()
			for t := range newOut {
				if !blockDef[i].Contains(t) {
					newIn.Add(t)
				}
			}
			if !newIn.Equal(liveIn[i]) || !newOut.Equal(liveOut[i]) {
				changed = true
			}
			liveIn[i], liveOut[i] = newIn, newOut
		}
	}

	instrLiveIn := make([][]cfg.RegSet, n)
	instrLiveOut := make([][]cfg.RegSet, n)
	for i, b := range f.Blocks {
		ins := make([]cfg.RegSet, len(b.Instrs))
		outs := make([]cfg.RegSet, len(b.Instrs))
		cur := liveOut[i].Copy()
		for k := len(b.Instrs) - 1; k >= 0; k-- {
			outs[k] = cur.Copy()
			instr := b.Instrs[k]
			next := cur.Copy()
			for _, d := range instr.Dsts() {
				next.Remove(d)
			}
			for _, u := range instr.Srcs() {
				next.Add(u)
			}
			ins[k] = next
			cur = next
		}
		instrLiveIn[i], instrLiveOut[i] = ins, outs
	}

	return &Liveness{BlockLiveOut: liveOut, InstrLiveIn: instrLiveIn, InstrLiveOut: instrLiveOut}
}
