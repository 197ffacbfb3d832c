package cfg

import "github.com/minic32/rv32cc/pkg/tac"

// RegSet is a set of temps, in the map-backed style of the teacher's
// regalloc.RegSet.
type RegSet map[tac.Temp]struct{}

// NewRegSet creates an empty RegSet.
func NewRegSet() RegSet { return make(RegSet) }

func (s RegSet) Add(t tac.Temp)      { s[t] = struct{}{} }
func (s RegSet) Remove(t tac.Temp)   { delete(s, t) }
func (s RegSet) Contains(t tac.Temp) bool {
	_, ok := s[t]
	return ok
}

// Copy returns an independent copy of s.
func (s RegSet) Copy() RegSet {
	out := make(RegSet, len(s))
	for t := range s {
		out[t] = struct{}{}
	}
	return out
}

// Union returns a new set containing every temp in s or other.
func (s RegSet) Union(other RegSet) RegSet {
	out := s.Copy()
	for t := range other {
		out[t] = struct{}{}
	}
	return out
}

// Equal reports whether s and other contain exactly the same temps.
func (s RegSet) Equal(other RegSet) bool {
	if len(s) != len(other) {
		return false
	}
	for t := range s {
		if !other.Contains(t) {
			return false
		}
	}
	return true
}

// Liveness holds the result of backward liveness analysis: live-in/live-out
// sets at block granularity (used to drive the fixed-point iteration) and
// at instruction granularity within each block. pkg/regalloc does not use
// these; it runs its own analysis over the selected instructions.
type Liveness struct {
	BlockLiveIn  []RegSet
	BlockLiveOut []RegSet

	// InstrLiveIn[b][k] / InstrLiveOut[b][k] are the live sets immediately
	// before/after instruction k of block b.
	InstrLiveIn  [][]RegSet
	InstrLiveOut [][]RegSet
}

// Analyze runs the standard iterative backward dataflow fixed point:
// liveIn(b) = use(b) U (liveOut(b) \ def(b)), liveOut(b) = union of
// liveIn(s) over b's successors s.
func Analyze(g *Graph) *Liveness {
	n := len(g.Blocks)
	blockUse := make([]RegSet, n)
	blockDef := make([]RegSet, n)
	liveIn := make([]RegSet, n)
	liveOut := make([]RegSet, n)

	for i, b := range g.Blocks {
		use, def := NewRegSet(), NewRegSet()
		for _, instr := range b.Instrs {
			for _, u := range instr.Uses() {
				if !def.Contains(u) {
					use.Add(u)
				}
			}
			for _, d := range instr.Defs() {
				def.Add(d)
			}
		}
		blockUse[i], blockDef[i] = use, def
		liveIn[i], liveOut[i] = NewRegSet(), NewRegSet()
	}

	for changed := true; changed; {
		changed = false
		for i := n - 1; i >= 0; i-- {
			newOut := NewRegSet()
			for _, succ := range g.Blocks[i].Successors() {
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

	instrLiveIn := make([][]RegSet, n)
	instrLiveOut := make([][]RegSet, n)
	for i, b := range g.Blocks {
		ins := make([]RegSet, len(b.Instrs))
		outs := make([]RegSet, len(b.Instrs))
		cur := liveOut[i].Copy()
		for k := len(b.Instrs) - 1; k >= 0; k-- {
			outs[k] = cur.Copy()
			instr := b.Instrs[k]
			next := cur.Copy()
			for _, d := range instr.Defs() {
				next.Remove(d)
			}
			for _, u := range instr.Uses() {
				next.Add(u)
			}
			ins[k] = next
			cur = next
		}
		instrLiveIn[i], instrLiveOut[i] = ins, outs
	}

	return &Liveness{
		BlockLiveIn:  liveIn,
		BlockLiveOut: liveOut,
		InstrLiveIn:  instrLiveIn,
		InstrLiveOut: instrLiveOut,
	}
}
