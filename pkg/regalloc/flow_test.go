package regalloc

import (
	"testing"

	"github.com/minic32/rv32cc/pkg/selector"
	"github.com/minic32/rv32cc/pkg/tac"
)

// buildIfFlow mirrors the if-statement fixture in pkg/cfg's tests,
// built here over selected instructions rather than raw TAC:
//
//	t0 = param
//	if (t0 == 0) goto skip
//	t1 = 1
//	return t1
//
// skip:
//
//	t2 = 2
//	return t2
func buildIfFlow() *Flow {
	entry := &tac.Label{Kind: tac.LabelFuncEntry, Name: "f"}
	skip := &tac.Label{Kind: tac.LabelBranchTarget, ID: 1}
	fn := &tac.Function{
		Name:   "f",
		Params: []tac.Temp{0},
		Instrs: []tac.Instr{
			&tac.Mark{Label: entry},
			&tac.CondBranch{Op: tac.BranchIfZero, Cond: 0, Target: skip},
			&tac.LoadImm{Dst: 1, Value: 1},
			&tac.Return{Value: 1, HasValue: true},
			&tac.Mark{Label: skip},
			&tac.LoadImm{Dst: 2, Value: 2},
			&tac.Return{Value: 2, HasValue: true},
		},
	}
	return BuildFlow(selector.Select(fn))
}

func TestBuildFlowSplitsBasicBlocks(t *testing.T) {
	f := buildIfFlow()
	if len(f.Blocks) != 3 {
		t.Fatalf("want 3 blocks, got %d", len(f.Blocks))
	}
	if f.Blocks[0].Kind != ByCondBranch {
		t.Fatalf("block 0 kind = %v, want ByCondBranch", f.Blocks[0].Kind)
	}
	if f.Blocks[0].Next != 1 || f.Blocks[0].Branch != 2 {
		t.Fatalf("block 0 successors = next:%d branch:%d, want next:1 branch:2", f.Blocks[0].Next, f.Blocks[0].Branch)
	}
	for _, b := range f.Blocks {
		if !b.Reachable {
			t.Fatalf("block %d unexpectedly unreachable", b.Index)
		}
	}
}

func TestBuildFlowDetectsUnreachableBlock(t *testing.T) {
	entry := &tac.Label{Kind: tac.LabelFuncEntry, Name: "g"}
	fn := &tac.Function{
		Name: "g",
		Instrs: []tac.Instr{
			&tac.Mark{Label: entry},
			&tac.Return{},
			&tac.LoadImm{Dst: 0, Value: 9}, // dead code after an unconditional return
			&tac.Return{},
		},
	}
	f := BuildFlow(selector.Select(fn))
	if len(f.Blocks) != 2 {
		t.Fatalf("want 2 blocks, got %d", len(f.Blocks))
	}
	if f.Blocks[1].Reachable {
		t.Fatal("block after unconditional return should be unreachable")
	}
}

func TestAnalyzeLivenessAcrossBranch(t *testing.T) {
	f := buildIfFlow()
	live := Analyze(f)

	// t0 feeds the CondBranch in block 0, so it is live-in there and
	// dead by the time block 0 ends.
	if !live.InstrLiveIn[0][0].Contains(0) {
		t.Fatal("want t0 live at the start of block 0")
	}
	if live.BlockLiveOut[0].Contains(0) {
		t.Fatal("want t0 dead after block 0")
	}
	// t1 is defined and consumed entirely within block 1: never live-out.
	if live.BlockLiveOut[1].Contains(1) {
		t.Fatal("want t1 dead after block 1")
	}
}

func TestAnalyzeLivenessWithinBlock(t *testing.T) {
	entry := &tac.Label{Kind: tac.LabelFuncEntry, Name: "h"}
	fn := &tac.Function{
		Name: "h",
		Instrs: []tac.Instr{
			&tac.Mark{Label: entry},
			&tac.LoadImm{Dst: 0, Value: 1},
			&tac.LoadImm{Dst: 1, Value: 2},
			&tac.Binary{Op: tac.Add, Dst: 2, Lhs: 0, Rhs: 1},
			&tac.Return{Value: 2, HasValue: true},
		},
	}
	f := BuildFlow(selector.Select(fn))
	live := Analyze(f)
	outs := live.InstrLiveOut[0]
	// Right after "t0 = 1" t0 must still be live, since the Binary two
	// instructions later still consumes it.
	if !outs[1].Contains(0) {
		t.Fatal("want t0 live immediately after its own definition")
	}
	// After the Binary, both of its operands are dead.
	lastBinary := len(outs) - 2 // one instruction before the terminating jump/return
	if outs[lastBinary].Contains(0) || outs[lastBinary].Contains(1) {
		t.Fatal("want t0 and t1 dead after the Binary consumes them")
	}
}
