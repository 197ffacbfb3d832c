package regalloc

import (
	"strings"
	"testing"

	"github.com/minic32/rv32cc/pkg/riscv"
	"github.com/minic32/rv32cc/pkg/selector"
	"github.com/minic32/rv32cc/pkg/tac"
)

func renderedText(result *Result) string {
	var b strings.Builder
	for _, n := range result.Body {
		if n.Label != "" {
			b.WriteString(n.Label + ":\n")
			continue
		}
		b.WriteString(n.Text + "\n")
	}
	return b.String()
}

func TestAllocateBindsParamsToArgRegs(t *testing.T) {
	entry := &tac.Label{Kind: tac.LabelFuncEntry, Name: "f"}
	fn := &tac.Function{
		Name:   "f",
		Params: []tac.Temp{0, 1},
		Instrs: []tac.Instr{
			&tac.Mark{Label: entry},
			&tac.Binary{Op: tac.Add, Dst: 2, Lhs: 0, Rhs: 1},
			&tac.Return{Value: 2, HasValue: true},
		},
	}
	selected := selector.Select(fn)
	result := Allocate(fn, selected, nil)
	out := renderedText(result)
	if !strings.Contains(out, "add") {
		t.Fatalf("expected an add instruction in output:\n%s", out)
	}
	if !strings.Contains(out, "j f_exit") {
		t.Fatalf("expected a jump to the epilogue label in output:\n%s", out)
	}
}

func TestAllocateSpillsUnderRegisterPressure(t *testing.T) {
	entry := &tac.Label{Kind: tac.LabelFuncEntry, Name: "g"}
	instrs := []tac.Instr{&tac.Mark{Label: entry}}
	// More live temps at once than there are allocatable registers,
	// forcing at least one spill.
	n := len(riscv.AllocatableRegs) + 4
	for i := 0; i < n; i++ {
		instrs = append(instrs, &tac.LoadImm{Dst: tac.Temp(i), Value: int32(i)})
	}
	sum := tac.Temp(n)
	instrs = append(instrs, &tac.LoadImm{Dst: sum, Value: 0})
	for i := 0; i < n; i++ {
		instrs = append(instrs, &tac.Binary{Op: tac.Add, Dst: sum, Lhs: sum, Rhs: tac.Temp(i)})
	}
	instrs = append(instrs, &tac.Return{Value: sum, HasValue: true})

	fn := &tac.Function{Name: "g", Instrs: instrs}
	selected := selector.Select(fn)
	result := Allocate(fn, selected, nil)
	out := renderedText(result)
	if !strings.Contains(out, "sw ") {
		t.Fatalf("expected at least one spill store under register pressure:\n%s", out)
	}
	if !strings.Contains(out, "lw ") {
		t.Fatalf("expected at least one spill reload under register pressure:\n%s", out)
	}
}

func TestAllocateSkipsUnreachableBlocks(t *testing.T) {
	entry := &tac.Label{Kind: tac.LabelFuncEntry, Name: "h"}
	fn := &tac.Function{
		Name: "h",
		Instrs: []tac.Instr{
			&tac.Mark{Label: entry},
			&tac.Return{},
			&tac.LoadImm{Dst: 0, Value: 9},
			&tac.Return{},
		},
	}
	selected := selector.Select(fn)
	result := Allocate(fn, selected, nil)
	out := renderedText(result)
	// The reachable void return renders as "li a0, 0"; only the
	// unreachable block loads the value 9.
	if strings.Contains(out, ", 9") {
		t.Fatalf("unreachable block should not be allocated:\n%s", out)
	}
}
