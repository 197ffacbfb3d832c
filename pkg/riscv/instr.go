package riscv

import (
	"fmt"

	"github.com/minic32/rv32cc/pkg/tac"
)

// SelBinOp is a binary opcode that survives instruction selection: every
// TAC BinaryOp that has no direct RV32I encoding (EQU, NEQ, LEQ, GEQ, AND,
// OR) has already been rewritten into one of these plus a SelUnOp.
type SelBinOp int

const (
	BAdd SelBinOp = iota
	BSub
	BMul
	BDiv
	BRem
	BSlt
	BSgt
	BAnd
	BOr
	BXor
)

var selBinMnemonic = [...]string{
	BAdd: "add", BSub: "sub", BMul: "mul", BDiv: "div", BRem: "rem",
	BSlt: "slt", BSgt: "sgt", BAnd: "and", BOr: "or", BXor: "xor",
}

func (op SelBinOp) String() string { return selBinMnemonic[op] }

// SelUnOp is a unary opcode that survives instruction selection.
type SelUnOp int

const (
	UNeg SelUnOp = iota
	UNot
	USeqz
	USnez
)

var selUnMnemonic = [...]string{UNeg: "neg", UNot: "not", USeqz: "seqz", USnez: "snez"}

func (op SelUnOp) String() string { return selUnMnemonic[op] }

// EpilogueLabel returns the label a function's body jumps to on return,
// before the allocator emits the epilogue proper.
func EpilogueLabel(funcName string) string { return funcName + "_exit" }

// Instr is a selected instruction: the opcode and addressing mode are
// fixed, but operands are still pseudo-temps awaiting a register. Dsts
// and Srcs list those temps in the order the allocator must supply
// physical registers back in to ToNative.
type Instr interface {
	implInstr()
	Dsts() []tac.Temp
	Srcs() []tac.Temp
	// ToNative renders the instruction to its final assembly text once
	// the allocator has chosen a register for every entry returned by
	// Dsts/Srcs, supplied here in the same order.
	ToNative(dstRegs, srcRegs []*Reg) *NativeInstr
}

// NativeInstr is a fully register-allocated instruction: either a plain
// line of assembly text, or a label definition.
type NativeInstr struct {
	Text  string
	Label string // non-empty if this instruction is a label definition
}

func textInstr(format string, args ...interface{}) *NativeInstr {
	return &NativeInstr{Text: fmt.Sprintf(format, args...)}
}

// RiscvLabel marks a branch target.
type RiscvLabel struct{ L *tac.Label }

func (RiscvLabel) implInstr()             {}
func (RiscvLabel) Dsts() []tac.Temp       { return nil }
func (RiscvLabel) Srcs() []tac.Temp       { return nil }
func (i RiscvLabel) ToNative(_, _ []*Reg) *NativeInstr {
	return &NativeInstr{Label: i.L.String()}
}

// Move copies Src into Dst.
type Move struct{ Dst, Src tac.Temp }

func (Move) implInstr()       {}
func (i Move) Dsts() []tac.Temp { return []tac.Temp{i.Dst} }
func (i Move) Srcs() []tac.Temp { return []tac.Temp{i.Src} }
func (i Move) ToNative(dst, src []*Reg) *NativeInstr {
	return textInstr("mv %s, %s", dst[0].Name, src[0].Name)
}

// LoadImm loads a sign-extended 32-bit constant into Dst.
type LoadImm struct {
	Dst   tac.Temp
	Value int32
}

func (LoadImm) implInstr()       {}
func (i LoadImm) Dsts() []tac.Temp { return []tac.Temp{i.Dst} }
func (i LoadImm) Srcs() []tac.Temp { return nil }
func (i LoadImm) ToNative(dst, _ []*Reg) *NativeInstr {
	return textInstr("li %s, %d", dst[0].Name, i.Value)
}

// Unary computes Dst = op(Src).
type Unary struct {
	Op       SelUnOp
	Dst, Src tac.Temp
}

func (Unary) implInstr()       {}
func (i Unary) Dsts() []tac.Temp { return []tac.Temp{i.Dst} }
func (i Unary) Srcs() []tac.Temp { return []tac.Temp{i.Src} }
func (i Unary) ToNative(dst, src []*Reg) *NativeInstr {
	return textInstr("%s %s, %s", i.Op, dst[0].Name, src[0].Name)
}

// Binary computes Dst = Lhs op Rhs.
type Binary struct {
	Op            SelBinOp
	Dst, Lhs, Rhs tac.Temp
}

func (Binary) implInstr()       {}
func (i Binary) Dsts() []tac.Temp { return []tac.Temp{i.Dst} }
func (i Binary) Srcs() []tac.Temp { return []tac.Temp{i.Lhs, i.Rhs} }
func (i Binary) ToNative(dst, src []*Reg) *NativeInstr {
	return textInstr("%s %s, %s, %s", i.Op, dst[0].Name, src[0].Name, src[1].Name)
}

// Jump is an unconditional branch to Target.
type Jump struct{ Target *tac.Label }

func (Jump) implInstr()       {}
func (Jump) Dsts() []tac.Temp { return nil }
func (Jump) Srcs() []tac.Temp { return nil }
func (i Jump) ToNative(_, _ []*Reg) *NativeInstr {
	return textInstr("j %s", i.Target.String())
}

// CondBranch branches to Target if Cond is zero (Zero==true) or
// non-zero (Zero==false).
type CondBranch struct {
	Cond   tac.Temp
	Zero   bool
	Target *tac.Label
}

func (CondBranch) implInstr()       {}
func (i CondBranch) Dsts() []tac.Temp { return nil }
func (i CondBranch) Srcs() []tac.Temp { return []tac.Temp{i.Cond} }
func (i CondBranch) ToNative(_, src []*Reg) *NativeInstr {
	mnemonic := "bnez"
	if i.Zero {
		mnemonic = "beqz"
	}
	return textInstr("%s %s, %s", mnemonic, src[0].Name, i.Target.String())
}

// JumpToEpilogue moves Value (if HasValue) into a0 and jumps to the
// function's epilogue.
type JumpToEpilogue struct {
	FuncName string
	Value    tac.Temp
	HasValue bool
}

func (JumpToEpilogue) implInstr() {}
func (i JumpToEpilogue) Dsts() []tac.Temp {
	return nil
}
func (i JumpToEpilogue) Srcs() []tac.Temp {
	if i.HasValue {
		return []tac.Temp{i.Value}
	}
	return nil
}
func (i JumpToEpilogue) ToNative(_, src []*Reg) *NativeInstr {
	// Both forms go through the allocator's generic path: a valued
	// return moves its source register into a0, a void one loads 0
	// into a0, and either then jumps to the epilogue.
	if i.HasValue {
		return textInstr("mv a0, %s\n\tj %s", src[0].Name, EpilogueLabel(i.FuncName))
	}
	return textInstr("li a0, 0\n\tj %s", EpilogueLabel(i.FuncName))
}

// LoadAddress loads the address of a global symbol into Dst.
type LoadAddress struct {
	Dst    tac.Temp
	Symbol string
}

func (LoadAddress) implInstr()       {}
func (i LoadAddress) Dsts() []tac.Temp { return []tac.Temp{i.Dst} }
func (i LoadAddress) Srcs() []tac.Temp { return nil }
func (i LoadAddress) ToNative(dst, _ []*Reg) *NativeInstr {
	return textInstr("la %s, %s", dst[0].Name, i.Symbol)
}

// Load reads a word from Offset(Base) into Dst.
type Load struct {
	Dst, Base tac.Temp
	Offset    int
}

func (Load) implInstr()       {}
func (i Load) Dsts() []tac.Temp { return []tac.Temp{i.Dst} }
func (i Load) Srcs() []tac.Temp { return []tac.Temp{i.Base} }
func (i Load) ToNative(dst, src []*Reg) *NativeInstr {
	return textInstr("lw %s, %d(%s)", dst[0].Name, i.Offset, src[0].Name)
}

// Store writes Src to Offset(Base).
type Store struct {
	Src, Base tac.Temp
	Offset    int
}

func (Store) implInstr()       {}
func (Store) Dsts() []tac.Temp { return nil }
func (i Store) Srcs() []tac.Temp { return []tac.Temp{i.Src, i.Base} }
func (i Store) ToNative(_, src []*Reg) *NativeInstr {
	return textInstr("sw %s, %d(%s)", src[0].Name, i.Offset, src[1].Name)
}

// Alloc reserves Size bytes of stack space for a local array and loads
// its base address into Dst. It carries no register operands of its
// own; the allocator resolves Dst's register and the array's frame
// offset together, so it bypasses the generic ToNative path (see
// regalloc/alloc.go's handling of riscv.Alloc).
type Alloc struct {
	Dst  tac.Temp
	Size int
}

func (Alloc) implInstr()       {}
func (i Alloc) Dsts() []tac.Temp { return []tac.Temp{i.Dst} }
func (Alloc) Srcs() []tac.Temp { return nil }
func (i Alloc) ToNative(dst, _ []*Reg) *NativeInstr {
	return textInstr("addi %s, sp, 0", dst[0].Name)
}

// Call invokes Target with Args (passed in order, first eight in
// a0-a7, the rest on the stack), leaving the result in Dst if HasDst.
// Like Alloc, it bypasses the generic allocation path: calling
// convention, caller-save spills and the return value all need more
// context than ToNative's uniform signature offers (see
// regalloc/alloc.go's handling of riscv.Call).
type Call struct {
	Dst      tac.Temp
	HasDst   bool
	Target   string
	Args     []tac.Temp
}

func (Call) implInstr()       {}
func (i Call) Dsts() []tac.Temp {
	if i.HasDst {
		return []tac.Temp{i.Dst}
	}
	return nil
}
func (i Call) Srcs() []tac.Temp { return i.Args }
func (i Call) ToNative(_, _ []*Reg) *NativeInstr {
	return textInstr("call %s", i.Target)
}

// SPAdd adjusts the stack pointer by delta (negative to allocate).
type SPAdd struct{ Delta int }

func (SPAdd) implInstr()       {}
func (SPAdd) Dsts() []tac.Temp { return nil }
func (SPAdd) Srcs() []tac.Temp { return nil }
func (i SPAdd) ToNative(_, _ []*Reg) *NativeInstr {
	return textInstr("addi sp, sp, %d", i.Delta)
}

// FPUpdate sets fp = sp + frameSize, run once the frame has been
// carved out, so fp addresses this frame rather than the caller's.
type FPUpdate struct{ FrameSize int }

func (FPUpdate) implInstr()       {}
func (FPUpdate) Dsts() []tac.Temp { return nil }
func (FPUpdate) Srcs() []tac.Temp { return nil }
func (i FPUpdate) ToNative(_, _ []*Reg) *NativeInstr {
	return textInstr("addi fp, sp, %d", i.FrameSize)
}

// RenderStoreWord and RenderLoadWord move a fixed physical register to
// and from a concrete stack offset; the allocator emits these directly
// (spills, parameter reloads, prologue/epilogue saves) rather than
// through the selector/allocation path above.
func RenderStoreWord(src, base *Reg, offset int) *NativeInstr {
	return textInstr("sw %s, %d(%s)", src.Name, offset, base.Name)
}

func RenderLoadWord(dst, base *Reg, offset int) *NativeInstr {
	return textInstr("lw %s, %d(%s)", dst.Name, offset, base.Name)
}

// RenderLabel emits a bare label definition.
func RenderLabel(name string) *NativeInstr { return &NativeInstr{Label: name} }

// RenderAddi emits an immediate add, used by the allocator for array
// base addresses and stack-pointer/frame-pointer adjustments whose
// operands are already physical registers.
func RenderAddi(dst, base *Reg, offset int) *NativeInstr {
	return textInstr("addi %s, %s, %d", dst.Name, base.Name, offset)
}

// RenderCall emits a call to a named function symbol.
func RenderCall(target string) *NativeInstr { return textInstr("call %s", target) }

// RenderRaw emits a pre-formatted assembly line verbatim.
func RenderRaw(format string, args ...interface{}) *NativeInstr { return textInstr(format, args...) }

// Return is the bare `ret` instruction.
type Return struct{}

func (Return) implInstr()       {}
func (Return) Dsts() []tac.Temp { return nil }
func (Return) Srcs() []tac.Temp { return nil }
func (Return) ToNative(_, _ []*Reg) *NativeInstr {
	return textInstr("ret")
}
