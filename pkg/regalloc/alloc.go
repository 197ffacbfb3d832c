package regalloc

import (
	"fmt"

	"github.com/minic32/rv32cc/pkg/cfg"
	"github.com/minic32/rv32cc/pkg/compilerr"
	"github.com/minic32/rv32cc/pkg/riscv"
	"github.com/minic32/rv32cc/pkg/tac"
)

// Result is what one function's allocation pass hands the assembly
// printer: the fully register-allocated body, plus everything the
// prologue/epilogue needs to know about this function's frame.
type Result struct {
	Body       []*riscv.NativeInstr
	FrameSize  int
	UsedCallee []*riscv.Reg
}

// allocator is one per function: the register pool is a private copy
// so a register's Used/Occupied bookkeeping never leaks between
// functions.
type allocator struct {
	regs     []*riscv.Reg
	bindings map[tac.Temp]*riscv.Reg
	regIndex int
	frame    *Frame
	out      []*riscv.NativeInstr
}

func freshRegPool() []*riscv.Reg {
	out := make([]*riscv.Reg, len(riscv.AllocatableRegs))
	for i, r := range riscv.AllocatableRegs {
		out[i] = &riscv.Reg{Name: r.Name}
	}
	return out
}

// Allocate walks fn's selected instructions one basic block at a time,
// binding temps to physical registers and spilling to the frame
// whenever a block needs more live values than registers exist.
func Allocate(fn *tac.Function, selected []riscv.Instr, arrays []ArraySlot) *Result {
	flow := BuildFlow(selected)
	live := Analyze(flow)
	frame := NewFrame(len(riscv.CalleeSaved), fn.Params, arrays)

	a := &allocator{regs: freshRegPool(), frame: frame}

	for i, b := range flow.Blocks {
		if !b.Reachable {
			continue
		}
		a.bindings = make(map[tac.Temp]*riscv.Reg)
		for _, r := range a.regs {
			r.Occupied = false
		}
		if i == 0 {
			for j, p := range fn.Params {
				if j >= 8 {
					break
				}
				a.bind(p, a.regByName(riscv.ArgRegs[j].Name))
			}
		}
		// Block 0's label is the function's own entry label; the
		// assembly printer already emits that as the function header
		// immediately before the prologue, so it is not repeated here.
		if b.LabelName != "" && i != 0 {
			a.out = append(a.out, riscv.RenderLabel(b.LabelName))
		}
		a.localAlloc(i, b, live)
	}

	var used []*riscv.Reg
	for _, r := range a.regs {
		if r.Used && isCalleeSaved(r.Name) {
			used = append(used, r)
		}
	}

	return &Result{Body: a.out, FrameSize: frame.NextLocalOffset, UsedCallee: used}
}

func isCalleeSaved(name riscv.MReg) bool {
	for _, r := range riscv.CalleeSaved {
		if r.Name == name {
			return true
		}
	}
	return false
}

func (a *allocator) regByName(name riscv.MReg) *riscv.Reg {
	for _, r := range a.regs {
		if r.Name == name {
			return r
		}
	}
	compilerr.Fail(compilerr.ErrInvariant, fmt.Sprintf("unknown register %v", name))
	return nil
}

// localAlloc allocates one block's instructions in order, matching
// bruteregalloc.py's localAlloc: the block body runs first, then any
// temp still live past the block's end is spilled to the stack, and
// only then is the block's own branch/jump/return emitted — so a
// spill can never be skipped by the control transfer it precedes.
func (a *allocator) localAlloc(blockIdx int, b *Block, live *Liveness) {
	n := len(b.Instrs)
	hasTerminator := b.Kind != Continuous && n > 0
	bodyEnd := n
	if hasTerminator {
		bodyEnd = n - 1
	}
	start := 0
	if b.LabelName != "" {
		start = 1 // already rendered by Allocate
	}

	for k := start; k < bodyEnd; k++ {
		a.allocForInstr(blockIdx, k, b.Instrs[k], live)
	}

	for t := range live.BlockLiveOut[blockIdx] {
		if reg, ok := a.bindings[t]; ok {
			a.emitStoreToStack(reg)
		}
	}

	if hasTerminator {
		a.allocForInstr(blockIdx, n-1, b.Instrs[n-1], live)
	}
}

func (a *allocator) allocForInstr(blockIdx, k int, instr riscv.Instr, live *Liveness) {
	if call, ok := instr.(riscv.Call); ok {
		a.allocForCall(blockIdx, k, call, live)
		return
	}
	if alloc, ok := instr.(riscv.Alloc); ok {
		a.allocForArray(blockIdx, k, alloc, live)
		return
	}

	liveSet := live.InstrLiveIn[blockIdx][k]
	var srcRegs []*riscv.Reg
	for _, t := range instr.Srcs() {
		srcRegs = append(srcRegs, a.allocRegFor(t, true, liveSet))
	}
	var dstRegs []*riscv.Reg
	for _, t := range instr.Dsts() {
		dstRegs = append(dstRegs, a.allocRegFor(t, false, liveSet))
	}
	a.out = append(a.out, instr.ToNative(dstRegs, srcRegs))
}

func (a *allocator) allocForArray(blockIdx, k int, alloc riscv.Alloc, live *Liveness) {
	liveSet := live.InstrLiveIn[blockIdx][k]
	reg := a.allocRegFor(alloc.Dst, false, liveSet)
	off := a.frame.ArraySPOffsets[alloc.Dst]
	a.out = append(a.out, riscv.RenderAddi(reg, riscv.SPReg, off))
}

// allocForCall mirrors bruteregalloc.py's allocForCall: push every
// argument to the stack in reverse order, spill whichever caller-save
// registers are still live past the call, pop the first eight
// arguments back into a0-a7, call, reclaim any stack-passed argument
// space, then bind the return value into a0.
//
// Unlike the original, a spilled caller-save register is not reloaded
// immediately after the call: it is simply marked free, so the next
// ordinary read of that temp reloads it through the normal
// allocRegFor path. This needs no extra bookkeeping to track which
// physical register a temp was evicted from, at the cost of one
// redundant reload if the same register would have been picked again.
func (a *allocator) allocForCall(blockIdx, k int, call riscv.Call, live *Liveness) {
	liveSet := live.InstrLiveIn[blockIdx][k]
	liveOut := live.InstrLiveOut[blockIdx][k]

	for i := len(call.Args) - 1; i >= 0; i-- {
		reg := a.allocRegFor(call.Args[i], true, liveSet)
		a.out = append(a.out, riscv.RenderAddi(riscv.SPReg, riscv.SPReg, -4))
		a.out = append(a.out, riscv.RenderStoreWord(reg, riscv.SPReg, 0))
		a.frame.ChangeOffset(4)
		// The argument's binding deliberately survives the push: if it is
		// also live past the call, the caller-save loop below needs to
		// see it still Occupied so it gets spilled to its own frame slot
		// rather than only to this transient call-stack slot.
	}

	for _, cr := range riscv.CallerSaveRegs {
		reg := a.regByName(cr.Name)
		if reg.Occupied && liveOut.Contains(reg.Temp) {
			a.emitStoreToStack(reg)
			a.unbind(reg.Temp)
		}
	}

	argCount := len(call.Args)
	if argCount > 8 {
		argCount = 8
	}
	for i := 0; i < argCount; i++ {
		argReg := a.regByName(riscv.ArgRegs[i].Name)
		if argReg.Occupied {
			a.unbind(argReg.Temp)
		}
		a.out = append(a.out, riscv.RenderLoadWord(argReg, riscv.SPReg, 0))
		a.out = append(a.out, riscv.RenderAddi(riscv.SPReg, riscv.SPReg, 4))
		a.frame.ChangeOffset(-4)
	}

	a.out = append(a.out, riscv.RenderCall(call.Target))

	if len(call.Args) > 8 {
		size := 4 * (len(call.Args) - 8)
		a.out = append(a.out, riscv.RenderAddi(riscv.SPReg, riscv.SPReg, size))
		a.frame.ChangeOffset(-size)
	}

	if call.HasDst {
		a0 := a.regByName(riscv.A0Reg.Name)
		if a0.Occupied {
			a.unbind(a0.Temp)
		}
		a.bind(call.Dst, a0)
	}
}

func (a *allocator) bind(t tac.Temp, reg *riscv.Reg) {
	reg.Used = true
	reg.Occupied = true
	reg.Temp = t
	a.bindings[t] = reg
}

func (a *allocator) unbind(t tac.Temp) {
	if reg, ok := a.bindings[t]; ok {
		reg.Occupied = false
		delete(a.bindings, t)
	}
}

func (a *allocator) emitStoreToStack(reg *riscv.Reg) {
	off := a.frame.OffsetFor(reg.Temp)
	a.out = append(a.out, riscv.RenderStoreWord(reg, riscv.SPReg, off))
}

func (a *allocator) emitLoadFromStack(reg *riscv.Reg, t tac.Temp) {
	if off, ok := a.frame.Offsets[t]; ok {
		a.out = append(a.out, riscv.RenderLoadWord(reg, riscv.SPReg, off))
		return
	}
	if off, ok := a.frame.ParamFPOffsets[t]; ok {
		a.out = append(a.out, riscv.RenderLoadWord(reg, riscv.FPReg, off))
		return
	}
	compilerr.Fail(compilerr.ErrMissingSpillSlot, fmt.Sprintf("temp t%d", t))
}

// allocRegFor returns the register bound to t, allocating one if
// necessary: first any register that is free or holds a temp not in
// live, else the next register in round-robin order (spilling its
// current occupant).
func (a *allocator) allocRegFor(t tac.Temp, isRead bool, live cfg.RegSet) *riscv.Reg {
	if reg, ok := a.bindings[t]; ok {
		return reg
	}
	for _, reg := range a.regs {
		if !reg.Occupied || !live.Contains(reg.Temp) {
			if isRead {
				a.emitLoadFromStack(reg, t)
			}
			if reg.Occupied {
				a.unbind(reg.Temp)
			}
			a.bind(t, reg)
			return reg
		}
	}
	reg := a.regs[a.regIndex]
	a.regIndex = (a.regIndex + 1) % len(a.regs)
	a.emitStoreToStack(reg)
	a.unbind(reg.Temp)
	a.bind(t, reg)
	if isRead {
		a.emitLoadFromStack(reg, t)
	}
	return reg
}
