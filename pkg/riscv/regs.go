// Package riscv models the RV32I register file and the post-selection,
// pre-allocation instruction records the register allocator consumes.
// Grounded on the physical-register Loc/MReg idiom of the ltl fork
// (other_examples jpshackelford-ralph-cc-go pkg/ltl/ast.go) and on the
// register roster and bookkeeping fields (used/occupied/temp) of the
// original bruteregalloc.py / riscvasmemitter.py.
package riscv

import "github.com/minic32/rv32cc/pkg/tac"

// MReg is a physical RV32I integer register.
type MReg int

const (
	Zero MReg = iota
	RA
	SP
	GP
	TP
	T0
	T1
	T2
	FP // s0
	S1
	A0
	A1
	A2
	A3
	A4
	A5
	A6
	A7
	S2
	S3
	S4
	S5
	S6
	S7
	S8
	S9
	S10
	S11
	T3
	T4
	T5
	T6
)

var regNames = [...]string{
	Zero: "zero", RA: "ra", SP: "sp", GP: "gp", TP: "tp",
	T0: "t0", T1: "t1", T2: "t2", FP: "fp", S1: "s1",
	A0: "a0", A1: "a1", A2: "a2", A3: "a3", A4: "a4", A5: "a5", A6: "a6", A7: "a7",
	S2: "s2", S3: "s3", S4: "s4", S5: "s5", S6: "s6", S7: "s7", S8: "s8", S9: "s9", S10: "s10", S11: "s11",
	T3: "t3", T4: "t4", T5: "t5", T6: "t6",
}

func (r MReg) String() string {
	if int(r) < len(regNames) {
		return regNames[r]
	}
	return "?"
}

// Reg is a physical register plus the allocator's bookkeeping for it
// within the function currently being allocated: whether the function
// ever needs to save/restore it (Used), whether it currently holds a
// live temp (Occupied), and which temp that is (Temp).
type Reg struct {
	Name     MReg
	Used     bool
	Occupied bool
	Temp     tac.Temp
}

func newReg(name MReg) *Reg { return &Reg{Name: name} }

// ArgRegs are the eight argument/return registers, in calling-convention
// order. Only the first eight arguments of a call are passed this way;
// the rest go on the stack.
var ArgRegs = []*Reg{
	newReg(A0), newReg(A1), newReg(A2), newReg(A3),
	newReg(A4), newReg(A5), newReg(A6), newReg(A7),
}

// A0Reg is ArgRegs[0], also the return-value register.
var A0Reg = ArgRegs[0]

// CalleeSaved are the s1-s11 registers: a function that clobbers one
// must save it in its prologue and restore it in its epilogue. s0/fp
// is reserved as the frame pointer and is never allocated.
var CalleeSaved = []*Reg{
	newReg(S1), newReg(S2), newReg(S3), newReg(S4), newReg(S5), newReg(S6),
	newReg(S7), newReg(S8), newReg(S9), newReg(S10), newReg(S11),
}

var tempRegs = []*Reg{newReg(T0), newReg(T1), newReg(T2), newReg(T3), newReg(T4), newReg(T5), newReg(T6)}

// CallerSaveRegs are the registers a callee is free to clobber; a
// caller that needs one of these live across a call must spill it
// itself.
var CallerSaveRegs = append(append([]*Reg{}, tempRegs...), ArgRegs...)

// AllocatableRegs is the full pool the register allocator may hand out,
// temporaries first so short-lived values tend to land there rather
// than in a register the prologue must then save.
var AllocatableRegs = append(append([]*Reg{}, tempRegs...), append(append([]*Reg{}, ArgRegs...), CalleeSaved...)...)

var (
	RAReg = newReg(RA)
	SPReg = newReg(SP)
	FPReg = newReg(FP)
)
