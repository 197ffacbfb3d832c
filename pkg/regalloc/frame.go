package regalloc

import "github.com/minic32/rv32cc/pkg/tac"

// ArraySlot is a local array that needs a fixed region of stack space,
// gathered from the function's Alloc instructions before allocation
// begins. Dst is the temp that Alloc computes the array's base address
// into; Size is the array's size in bytes.
type ArraySlot struct {
	Dst  tac.Temp
	Size int
}

// Frame tracks where each spilled temp and local array lives relative
// to sp, and where each stack-passed parameter lives relative to the
// frame pointer, the way RiscvSubroutineEmitter's
// offsets/arraySPOffsets/paramFPOffsets do.
type Frame struct {
	// NextLocalOffset is the sp-relative offset of the next free slot;
	// it grows as spills and array slots are carved out, and
	// ChangeOffset shifts it along with sp around a call.
	NextLocalOffset int

	// Offsets maps a spilled temp to its signed offset from sp.
	Offsets map[tac.Temp]int
	// ArraySPOffsets maps an array's base-address temp to its offset
	// from sp.
	ArraySPOffsets map[tac.Temp]int
	// ParamFPOffsets maps a stack-passed parameter (the 9th argument
	// and beyond) to its offset from fp, where the caller placed it.
	ParamFPOffsets map[tac.Temp]int
}

// NewFrame reserves room for the callee-saved registers plus the
// saved ra/fp pair, then lays out local arrays directly above that,
// and records where any parameters beyond the first eight (passed on
// the stack by the caller) can be found relative to fp.
func NewFrame(calleeSavedCount int, params []tac.Temp, arrays []ArraySlot) *Frame {
	f := &Frame{
		NextLocalOffset: 4*calleeSavedCount + 8,
		Offsets:         make(map[tac.Temp]int),
		ArraySPOffsets:  make(map[tac.Temp]int),
		ParamFPOffsets:  make(map[tac.Temp]int),
	}
	for _, a := range arrays {
		f.ArraySPOffsets[a.Dst] = f.NextLocalOffset
		f.NextLocalOffset += a.Size
	}
	if len(params) > 8 {
		for i, p := range params[8:] {
			f.ParamFPOffsets[p] = 4 * i
		}
	}
	return f
}

// ChangeOffset shifts every sp-relative offset by delta, used whenever
// the allocator pushes or pops outgoing call arguments and so moves sp
// out from under every temp already spilled relative to it.
func (f *Frame) ChangeOffset(delta int) {
	f.NextLocalOffset += delta
	for t := range f.Offsets {
		f.Offsets[t] += delta
	}
	for t := range f.ArraySPOffsets {
		f.ArraySPOffsets[t] += delta
	}
}

// OffsetFor returns the sp-relative offset reserved for a spilled
// temp, reserving a fresh one on first use.
func (f *Frame) OffsetFor(t tac.Temp) int {
	if off, ok := f.Offsets[t]; ok {
		return off
	}
	off := f.NextLocalOffset
	f.Offsets[t] = off
	f.NextLocalOffset += 4
	return off
}
