// Package asmprog drives instruction selection and register
// allocation over a whole TAC program and renders the result as GNU
// assembler text for RV32I, in the section-header/label/per-function
// style of the teacher's pkg/asm/printer.go, adapted to a single flat
// text target instead of an as/gas-compatible ARM64 object.
package asmprog

import (
	"fmt"
	"strings"

	"github.com/minic32/rv32cc/pkg/regalloc"
	"github.com/minic32/rv32cc/pkg/riscv"
	"github.com/minic32/rv32cc/pkg/selector"
	"github.com/minic32/rv32cc/pkg/tac"
)

// Compile lowers prog all the way to assembly text: instruction
// selection, register allocation and frame layout run per function,
// then everything is rendered through Printer.
func Compile(prog *tac.Program) string {
	var b strings.Builder
	p := &Printer{w: &b}
	p.PrintProgram(prog)
	return b.String()
}

// Printer renders a whole compiled program.
type Printer struct {
	w *strings.Builder
}

// PrintProgram emits the .data section for every global, then the
// .text section with one assembled function per tac.Function.
func (p *Printer) PrintProgram(prog *tac.Program) {
	if len(prog.Globals) > 0 {
		fmt.Fprintf(p.w, ".data\n")
		for _, g := range prog.Globals {
			p.printGlobal(g)
		}
	}
	fmt.Fprintf(p.w, ".text\n")
	fmt.Fprintf(p.w, ".global main\n\n")
	for _, fn := range prog.Functions {
		p.printFunction(fn)
	}
}

func (p *Printer) printGlobal(g *tac.Global) {
	fmt.Fprintf(p.w, ".global %s\n%s:\n", g.Name, g.Name)
	switch {
	case g.HasScalarInit:
		fmt.Fprintf(p.w, "\t.word %d\n", g.ScalarInit)
	case len(g.ArrayWords) > 0 || g.ZeroWords > 0:
		for _, w := range g.ArrayWords {
			fmt.Fprintf(p.w, "\t.word %d\n", w)
		}
		if g.ZeroWords > 0 {
			fmt.Fprintf(p.w, "\t.zero %d\n", g.ZeroWords*4)
		}
	default:
		fmt.Fprintf(p.w, "\t.word 0\n")
	}
	fmt.Fprintf(p.w, "\n")
}

func (p *Printer) printFunction(fn *tac.Function) {
	selected := selector.Select(fn)
	result := regalloc.Allocate(fn, selected, arraySlots(selected))

	fmt.Fprintf(p.w, "%s:\n", fn.Name)
	p.printPrologue(result)
	for _, n := range result.Body {
		p.printNative(n)
	}
	fmt.Fprintf(p.w, "%s:\n", riscv.EpilogueLabel(fn.Name))
	p.printEpilogue(result)
	fmt.Fprintf(p.w, "\tret\n\n")
}

func (p *Printer) printNative(n *riscv.NativeInstr) {
	if n.Label != "" {
		fmt.Fprintf(p.w, "%s:\n", n.Label)
		return
	}
	fmt.Fprintf(p.w, "\t%s\n", n.Text)
}

// printPrologue carves out the frame, saves ra and fp, moves fp to
// the top of this frame, then saves whichever callee-saved registers
// the function actually used — following RiscvSubroutineEmitter's
// emitEnd layout: callee-saved slots first (low offsets), then fp,
// then ra.
func (p *Printer) printPrologue(result *regalloc.Result) {
	n := len(riscv.CalleeSaved)
	fmt.Fprintf(p.w, "\taddi sp, sp, -%d\n", result.FrameSize)
	fmt.Fprintf(p.w, "\tsw ra, %d(sp)\n", 4+4*n)
	fmt.Fprintf(p.w, "\tsw fp, %d(sp)\n", 4*n)
	fmt.Fprintf(p.w, "\taddi fp, sp, %d\n", result.FrameSize)
	for i, reg := range riscv.CalleeSaved {
		if usesReg(result.UsedCallee, reg.Name) {
			fmt.Fprintf(p.w, "\tsw %s, %d(sp)\n", reg.Name, 4*i)
		}
	}
}

func (p *Printer) printEpilogue(result *regalloc.Result) {
	n := len(riscv.CalleeSaved)
	for i, reg := range riscv.CalleeSaved {
		if usesReg(result.UsedCallee, reg.Name) {
			fmt.Fprintf(p.w, "\tlw %s, %d(sp)\n", reg.Name, 4*i)
		}
	}
	fmt.Fprintf(p.w, "\tlw fp, %d(sp)\n", 4*n)
	fmt.Fprintf(p.w, "\tlw ra, %d(sp)\n", 4+4*n)
	fmt.Fprintf(p.w, "\taddi sp, sp, %d\n", result.FrameSize)
}

func usesReg(used []*riscv.Reg, name riscv.MReg) bool {
	for _, r := range used {
		if r.Name == name {
			return true
		}
	}
	return false
}

// arraySlots scans a function's selected instructions for Alloc
// records, so the frame can reserve a contiguous stack region for
// every local array up front.
func arraySlots(selected []riscv.Instr) []regalloc.ArraySlot {
	var out []regalloc.ArraySlot
	for _, instr := range selected {
		if a, ok := instr.(riscv.Alloc); ok {
			out = append(out, regalloc.ArraySlot{Dst: a.Dst, Size: a.Size})
		}
	}
	return out
}
