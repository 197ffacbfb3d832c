package tac

import (
	"bytes"
	"strings"
	"testing"
)

func TestPrintFunction(t *testing.T) {
	entry := &Label{Kind: LabelFuncEntry, Name: "main"}
	fn := &Function{
		Name:   "main",
		Params: []Temp{0},
		Instrs: []Instr{
			&Mark{Label: entry},
			&LoadImm{Dst: 1, Value: 5},
			&Return{Value: 1, HasValue: true},
		},
	}
	var buf bytes.Buffer
	NewPrinter(&buf).PrintFunction(fn)
	out := buf.String()
	for _, want := range []string{"main(t0) {", "main:", "t1 = 5", "return t1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q, got:\n%s", want, out)
		}
	}
}

func TestPrintGlobals(t *testing.T) {
	prog := &Program{Globals: []*Global{
		{Name: "g", HasScalarInit: true, ScalarInit: 3},
		{Name: "arr", ArrayWords: []int32{1, 2}, ZeroWords: 2},
	}}
	var buf bytes.Buffer
	NewPrinter(&buf).PrintProgram(prog)
	out := buf.String()
	if !strings.Contains(out, "var g = 3") {
		t.Fatalf("missing scalar global, got:\n%s", out)
	}
	if !strings.Contains(out, "var arr") {
		t.Fatalf("missing array global, got:\n%s", out)
	}
}
