package tac

import "fmt"
import "io"

// Printer renders a TAC program as text, used by the `-dtac` debug flag.
type Printer struct {
	w io.Writer
}

// NewPrinter creates a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintProgram prints every global and function in prog.
func (p *Printer) PrintProgram(prog *Program) {
	for _, g := range prog.Globals {
		p.printGlobal(g)
	}
	if len(prog.Globals) > 0 {
		fmt.Fprintln(p.w)
	}
	for i, fn := range prog.Functions {
		p.PrintFunction(fn)
		if i < len(prog.Functions)-1 {
			fmt.Fprintln(p.w)
		}
	}
}

func (p *Printer) printGlobal(g *Global) {
	switch {
	case g.HasScalarInit:
		fmt.Fprintf(p.w, "var %s = %d\n", g.Name, g.ScalarInit)
	case len(g.ArrayWords) > 0 || g.ZeroWords > 0:
		fmt.Fprintf(p.w, "var %s = {%v, zero*%d}\n", g.Name, g.ArrayWords, g.ZeroWords)
	default:
		fmt.Fprintf(p.w, "var %s\n", g.Name)
	}
}

// PrintFunction prints one function's header and flat instruction stream.
func (p *Printer) PrintFunction(fn *Function) {
	fmt.Fprintf(p.w, "%s(", fn.Name)
	for i, t := range fn.Params {
		if i > 0 {
			fmt.Fprint(p.w, ", ")
		}
		fmt.Fprintf(p.w, "t%d", t)
	}
	fmt.Fprintln(p.w, ") {")
	for _, instr := range fn.Instrs {
		if instr.Kind() == KindLabel {
			fmt.Fprintf(p.w, "%v\n", instr)
			continue
		}
		fmt.Fprintf(p.w, "  %v\n", instr)
	}
	fmt.Fprintln(p.w, "}")
}
