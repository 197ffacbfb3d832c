// Package selector lowers three-address code into RV32I-selected
// instructions still expressed over pseudo-temps. Grounded on the
// teacher's asmgen/transform.go pipeline shape and, operator for
// operator, on the original RiscvInstrSelector in riscvasmemitter.py:
// the comparisons and logical operators with no single RV32I encoding
// (==, !=, <=, >=, ||) are each rewritten here into one arithmetic
// instruction followed by a set-on-condition unary (seqz/snez), and &&
// into two snez normalizations followed by an and.
package selector

import (
	"fmt"

	"github.com/minic32/rv32cc/pkg/compilerr"
	"github.com/minic32/rv32cc/pkg/riscv"
	"github.com/minic32/rv32cc/pkg/tac"
)

// Select lowers one TAC function's flat instruction stream into a flat
// stream of riscv.Instr. Control flow is preserved 1:1 (one TAC label
// or branch becomes exactly one riscv label or branch), so any basic
// block boundary computed over the TAC stream still applies verbatim
// to the selected stream.
func Select(fn *tac.Function) []riscv.Instr {
	s := &selector{funcName: fn.Name, nextTemp: tac.Temp(fn.NumTemps)}
	for _, instr := range fn.Instrs {
		s.visit(instr)
	}
	return s.out
}

type selector struct {
	funcName string
	out      []riscv.Instr
	nextTemp tac.Temp
}

func (s *selector) emit(instrs ...riscv.Instr) { s.out = append(s.out, instrs...) }

// freshTemp allocates a scratch temp beyond any the TAC builder used,
// for a lowering that needs more intermediate values than the
// original instruction's Dst/Lhs/Rhs fields provide room for.
func (s *selector) freshTemp() tac.Temp {
	t := s.nextTemp
	s.nextTemp++
	return t
}

func (s *selector) visit(instr tac.Instr) {
	switch i := instr.(type) {
	case *tac.Mark:
		s.emit(riscv.RiscvLabel{L: i.Label})
	case *tac.Return:
		s.emit(riscv.JumpToEpilogue{FuncName: s.funcName, Value: i.Value, HasValue: i.HasValue})
	case *tac.LoadImm:
		s.emit(riscv.LoadImm{Dst: i.Dst, Value: i.Value})
	case *tac.Assign:
		s.emit(riscv.Move{Dst: i.Dst, Src: i.Src})
	case *tac.Unary:
		s.visitUnary(i)
	case *tac.Binary:
		s.visitBinary(i)
	case *tac.Branch:
		s.emit(riscv.Jump{Target: i.Target})
	case *tac.CondBranch:
		s.emit(riscv.CondBranch{Cond: i.Cond, Zero: i.Op == tac.BranchIfZero, Target: i.Target})
	case *tac.Param:
		// The Call case takes its arguments from tac.Call's own Args; a
		// bare Param emits nothing.
	case *tac.Call:
		s.emit(riscv.Call{Dst: i.Dst, HasDst: i.HasDst, Target: i.Target.String(), Args: i.Args})
	case *tac.LoadSymbol:
		s.emit(riscv.LoadAddress{Dst: i.Dst, Symbol: i.Symbol})
	case *tac.Load:
		s.emit(riscv.Load{Dst: i.Dst, Base: i.Base, Offset: i.Offset})
	case *tac.Store:
		s.emit(riscv.Store{Src: i.Src, Base: i.Base, Offset: i.Offset})
	case *tac.Alloc:
		s.emit(riscv.Alloc{Dst: i.Dst, Size: i.Size})
	default:
		compilerr.Fail(compilerr.ErrInvariant, fmt.Sprintf("unhandled tac instruction %T", instr))
	}
}

func (s *selector) visitUnary(i *tac.Unary) {
	switch i.Op {
	case tac.Neg:
		s.emit(riscv.Unary{Op: riscv.UNeg, Dst: i.Dst, Src: i.Src})
	case tac.Not:
		s.emit(riscv.Unary{Op: riscv.UNot, Dst: i.Dst, Src: i.Src})
	case tac.Seqz:
		s.emit(riscv.Unary{Op: riscv.USeqz, Dst: i.Dst, Src: i.Src})
	default:
		compilerr.Fail(compilerr.ErrInvariant, fmt.Sprintf("unhandled unary op %v", i.Op))
	}
}

func (s *selector) visitBinary(i *tac.Binary) {
	switch i.Op {
	case tac.Add:
		s.emit(riscv.Binary{Op: riscv.BAdd, Dst: i.Dst, Lhs: i.Lhs, Rhs: i.Rhs})
	case tac.Sub:
		s.emit(riscv.Binary{Op: riscv.BSub, Dst: i.Dst, Lhs: i.Lhs, Rhs: i.Rhs})
	case tac.Mul:
		s.emit(riscv.Binary{Op: riscv.BMul, Dst: i.Dst, Lhs: i.Lhs, Rhs: i.Rhs})
	case tac.Div:
		s.emit(riscv.Binary{Op: riscv.BDiv, Dst: i.Dst, Lhs: i.Lhs, Rhs: i.Rhs})
	case tac.Rem:
		s.emit(riscv.Binary{Op: riscv.BRem, Dst: i.Dst, Lhs: i.Lhs, Rhs: i.Rhs})
	case tac.Slt:
		s.emit(riscv.Binary{Op: riscv.BSlt, Dst: i.Dst, Lhs: i.Lhs, Rhs: i.Rhs})
	case tac.Sgt:
		s.emit(riscv.Binary{Op: riscv.BSgt, Dst: i.Dst, Lhs: i.Lhs, Rhs: i.Rhs})
	case tac.Equ:
		s.emit(riscv.Binary{Op: riscv.BSub, Dst: i.Dst, Lhs: i.Lhs, Rhs: i.Rhs})
		s.emit(riscv.Unary{Op: riscv.USeqz, Dst: i.Dst, Src: i.Dst})
	case tac.Neq:
		s.emit(riscv.Binary{Op: riscv.BSub, Dst: i.Dst, Lhs: i.Lhs, Rhs: i.Rhs})
		s.emit(riscv.Unary{Op: riscv.USnez, Dst: i.Dst, Src: i.Dst})
	case tac.Leq:
		s.emit(riscv.Binary{Op: riscv.BSgt, Dst: i.Dst, Lhs: i.Lhs, Rhs: i.Rhs})
		s.emit(riscv.Unary{Op: riscv.USeqz, Dst: i.Dst, Src: i.Dst})
	case tac.Geq:
		s.emit(riscv.Binary{Op: riscv.BSlt, Dst: i.Dst, Lhs: i.Lhs, Rhs: i.Rhs})
		s.emit(riscv.Unary{Op: riscv.USeqz, Dst: i.Dst, Src: i.Dst})
	case tac.And:
		// Operands may hold any non-zero value, not just 1, so each is
		// normalized to a boolean before the bitwise AND. The normalized
		// values go into fresh scratch temps rather than overwriting
		// i.Lhs/i.Rhs in place: those may be a live variable's own temp
		// (buildExpr returns a symbol's temp directly for a bare
		// identifier), and clobbering it here would corrupt that
		// variable for every later read.
		lhsNorm, rhsNorm := s.freshTemp(), s.freshTemp()
		s.emit(riscv.Unary{Op: riscv.USnez, Dst: lhsNorm, Src: i.Lhs})
		s.emit(riscv.Unary{Op: riscv.USnez, Dst: rhsNorm, Src: i.Rhs})
		s.emit(riscv.Binary{Op: riscv.BAnd, Dst: i.Dst, Lhs: lhsNorm, Rhs: rhsNorm})
	case tac.Or:
		s.emit(riscv.Binary{Op: riscv.BOr, Dst: i.Dst, Lhs: i.Lhs, Rhs: i.Rhs})
		s.emit(riscv.Unary{Op: riscv.USnez, Dst: i.Dst, Src: i.Dst})
	default:
		compilerr.Fail(compilerr.ErrInvariant, fmt.Sprintf("unhandled binary op %v", i.Op))
	}
}
