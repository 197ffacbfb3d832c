package asmprog

import (
	"strings"
	"testing"

	"github.com/minic32/rv32cc/pkg/tac"
)

func TestCompileEmitsSectionsAndFunctionFrame(t *testing.T) {
	entry := &tac.Label{Kind: tac.LabelFuncEntry, Name: "main"}
	prog := &tac.Program{
		Globals: []*tac.Global{
			{Name: "counter", HasScalarInit: true, ScalarInit: 7},
		},
		Functions: []*tac.Function{{
			Name: "main",
			Instrs: []tac.Instr{
				&tac.Mark{Label: entry},
				&tac.LoadImm{Dst: 0, Value: 42},
				&tac.Return{Value: 0, HasValue: true},
			},
		}},
	}
	out := Compile(prog)

	for _, want := range []string{".data", "counter:", ".word 7", ".text", ".global main", "main:", "main_exit:", "ret"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, out)
		}
	}
	// The function's own entry label should not be repeated inside the body.
	if strings.Count(out, "main:") != 1 {
		t.Fatalf("expected exactly one \"main:\" label, got:\n%s", out)
	}
}
