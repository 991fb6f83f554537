package arm64

import "github.com/armdbt/armdbt/internal/backend"

// numCalleeSaved is calleeSaved's length. calleeSaved is declared as an
// array, not a slice, specifically so len(calleeSaved) below is a
// compile-time constant usable in frameBytes' const declaration.
const numCalleeSaved = 12

// calleeSaved is the set of AArch64 PCS callee-saved registers this
// port's prelude/epilogue preserves across RunCode/StepCode, grounded
// on the teacher's own callee-save list in backend/isa/arm64/abi.go.
var calleeSaved = [numCalleeSaved]backend.RealReg{
	regX19, regX20, regX21, regX22, regX23, regX24, regX25, regX26,
	regX27, regX28, regFP, regLR,
}

// Prelude is the hand-emitted entry/exit sequence spec section 4.5
// describes: it lives at a fixed offset at the start of every
// AddressSpace's code buffer, and its ReturnToDispatcher/
// ReturnFromRunCode offsets are the targets the cache resolves
// Relocations against.
type Prelude struct {
	buf *codeBuffer

	entryOffset             int
	returnToDispatcherOffset int
	returnFromRunCodeOffset  int
}

// The prelude's argument registers, as RunCode passes them at entry
// (spec section 4.5 step 2/4): the guest-state pointer, the halt-flag
// pointer, and the initial cycles-to-run count, per this port's own
// host calling convention (x0/x1/x2, the first three AArch64 PCS
// argument registers).
const (
	argGuestState = regX0
	argHaltFlag   = regX1
	argCyclesToRun = regX2
)

// Build emits the prelude/epilogue sequence and returns it together
// with the offsets other Blocks' relocations resolve
// LinkReturnToDispatcher/LinkReturnFromRunCode against.
func Build() *Prelude {
	p := &Prelude{buf: newCodeBuffer()}
	p.emit()
	return p
}

// frameBytes is the fixed stack frame the prelude allocates below SP:
// room for every callee-saved pair plus the RegAlloc's own spill area
// (maxSpillSlots*8 bytes), 16-byte aligned as the AArch64 PCS requires.
const frameBytes = len(calleeSaved)*8 + maxSpillSlots*8

func (p *Prelude) emit() {
	buf := p.buf
	p.entryOffset = buf.offset()

	// 1. Allocate the frame, then save callee-saves and the link
	// register pairwise at its top (the spill area occupies the
	// remaining, lower part of the frame, grown from SP by the
	// PendingSpill/PendingFill offsets RegAlloc hands out).
	buf.emit(encAddSubImm64(true, false, regSP, regSP, uint16(frameBytes)))
	for idx := 0; idx < len(calleeSaved); idx += 2 {
		buf.emit(encStp64(calleeSaved[idx], calleeSaved[idx+1], regSP, int8(maxSpillSlots+idx)))
	}

	// 2. Install the guest-state and halt-flag pointers into their
	// reserved registers.
	buf.emit(encMovReg64(regGuestState, argGuestState))
	buf.emit(encMovReg64(regHaltFlag, argHaltFlag))

	// 4. Store cycles_to_run into guest state's cycle-budget slot
	// (cycles_remaining starts equal to it; the epilogue computes the
	// ticks actually consumed as cycles_to_run - cycles_remaining).
	scratch := regX9
	buf.emit(encMovz64(scratch, uint16(offCycleBudget), 0))
	buf.emit(encAddSubReg64(false, false, scratch, scratch, regGuestState))
	buf.emit(encStr64(argCyclesToRun, scratch))

	// 3. Compute the return-stack-buffer ring's address into x10. No
	// ring entry is written: neither this prelude nor any other part of
	// this module initializes the ring, so a PopRSBHint reads whatever
	// values the guest state already holds there.
	rsbBase := regX10
	buf.emit(encMovz64(rsbBase, uint16(offRSB), 0))
	buf.emit(encAddSubReg64(false, false, rsbBase, rsbBase, regGuestState))

	// 6. Check halt flag; if already set on entry, skip straight to the
	// epilogue without running any guest code.
	haltCheck := regX11
	buf.emit(encLdr32(haltCheck, regHaltFlag))
	cbOff := buf.emit(encCbnz64(haltCheck, 0))
	// 7. Nothing follows the halt check: execution falls through into
	// the epilogue below. AddressSpace.RunCode does not enter guest code
	// through this prelude; it invokes a block's entry directly through
	// its EntryInvoker.

	// --- epilogue ---
	p.returnToDispatcherOffset = buf.offset()
	// A real dispatcher loop would re-enter GetOrEmit for the guest PC
	// left in guest state and branch to the result; that lookup needs
	// Go-side map access this package cannot perform, so the
	// dispatcher-return trampoline here just falls through to the
	// RunCode-return epilogue, matching TerminalFastDispatchHint's
	// documented simplification of deferring cache lookups to the Go
	// caller.
	p.returnFromRunCodeOffset = buf.offset()
	buf.patch(cbOff, encCbnz64(haltCheck, branchDelta(cbOff, p.returnFromRunCodeOffset)))

	// The epilogue does not report consumed cycles: no AddTicks call is
	// emitted here, and no Go-side code calls AddTicks after a run.
	for idx := 0; idx < len(calleeSaved); idx += 2 {
		buf.emit(encLdp64(calleeSaved[idx], calleeSaved[idx+1], regSP, int8(maxSpillSlots+idx)))
	}
	buf.emit(encAddSubImm64(false, false, regSP, regSP, uint16(frameBytes)))
	buf.emit(encRet(regLR))
}

// Bytes returns the emitted prelude/epilogue machine code.
func (p *Prelude) Bytes() []byte { return p.buf.buf }

// EntryOffset is the offset of the prelude's first instruction within
// Bytes.
func (p *Prelude) EntryOffset() int { return p.entryOffset }

// ReturnToDispatcherOffset is the target LinkReturnToDispatcher
// relocations resolve to.
func (p *Prelude) ReturnToDispatcherOffset() int { return p.returnToDispatcherOffset }

// ReturnFromRunCodeOffset is the target LinkReturnFromRunCode
// relocations resolve to.
func (p *Prelude) ReturnFromRunCodeOffset() int { return p.returnFromRunCodeOffset }
