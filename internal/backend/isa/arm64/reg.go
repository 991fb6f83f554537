// Package arm64 is the one fully-implemented Host Code Emitter backend
// (SPEC_FULL.md Open Question #2): real bit-level AArch64 instruction
// encoding, a Machine implementation lowering this module's IR opcodes,
// and the dispatcher prelude/epilogue.
package arm64

import "github.com/armdbt/armdbt/internal/backend"

// RealReg constants name AArch64 physical registers within the shared
// backend.RealReg numeric space. Naming and numbering is grounded
// verbatim on the teacher's backend/isa/arm64/reg.go (w0..w30/x0..x30
// share one physical id per pair since they are 32/64-bit views of the
// same register file; wzr/xzr, sp and lr are named aliases of that same
// space).
const (
	regX0 backend.RealReg = iota
	regX1
	regX2
	regX3
	regX4
	regX5
	regX6
	regX7
	regX8
	regX9
	regX10
	regX11
	regX12
	regX13
	regX14
	regX15
	regX16
	regX17
	regX18
	regX19
	regX20
	regX21
	regX22
	regX23
	regX24
	regX25
	regX26
	regX27
	regX28
	regX29
	regX30
	regXZR // also SP's encoding slot in most instruction fields (31)
	numRegisters
)

const (
	regFP = regX29 // frame pointer, by AArch64 PCS convention
	regLR = regX30
	regSP = regXZR // SP uses encoding 31 like XZR; context-dependent, never both at once
)

var regNames = [numRegisters]string{
	regX0: "x0", regX1: "x1", regX2: "x2", regX3: "x3", regX4: "x4",
	regX5: "x5", regX6: "x6", regX7: "x7", regX8: "x8", regX9: "x9",
	regX10: "x10", regX11: "x11", regX12: "x12", regX13: "x13", regX14: "x14",
	regX15: "x15", regX16: "x16", regX17: "x17", regX18: "x18", regX19: "x19",
	regX20: "x20", regX21: "x21", regX22: "x22", regX23: "x23", regX24: "x24",
	regX25: "x25", regX26: "x26", regX27: "x27", regX28: "x28", regX29: "x29",
	regX30: "x30", regXZR: "xzr",
}

func regName(r backend.RealReg) string {
	if int(r) < len(regNames) {
		return regNames[r]
	}
	return "reg?"
}

// encNum returns the 5-bit register-field encoding for r (0..31); XZR
// and SP share encoding 31, disambiguated by the instruction field that
// uses it, exactly as the architecture itself overloads that encoding.
func encNum(r backend.RealReg) uint32 { return uint32(r) & 0x1f }

// allocatableGPRs is the set of registers the RegAlloc may hand out for
// general-purpose values. x28 holds the guest-context pointer and x27
// the halt-flag pointer for the lifetime of RunCode (installed by the
// prelude), matching spec section 4.5's "load guest state pointer into
// a fixed host register"; x29/x30/xzr are reserved by the AArch64 PCS
// and by this package's RET/CSET lowering.
var allocatableGPRs = []backend.RealReg{
	regX0, regX1, regX2, regX3, regX4, regX5, regX6, regX7,
	regX8, regX9, regX10, regX11, regX12, regX13, regX14, regX15,
	regX19, regX20, regX21, regX22, regX23, regX24, regX25, regX26,
}

// regGuestState and regHaltFlag are the fixed registers the prelude
// installs per spec section 4.5 step 2.
const (
	regGuestState = regX28
	regHaltFlag   = regX27
)

// AllocatableRegisters returns a copy of the registers the register
// allocator may hand out, for callers outside this package (the
// cache's AddressSpace) that construct a CompilationContext directly.
func AllocatableRegisters() []backend.RealReg {
	out := make([]backend.RealReg, len(allocatableGPRs))
	copy(out, allocatableGPRs)
	return out
}
