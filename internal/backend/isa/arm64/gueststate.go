package arm64

import "github.com/armdbt/armdbt/internal/ir"

// Guest-state layout: the fixed-offset struct regGuestState (x28) points
// at for the lifetime of RunCode/StepCode. Every GetRegister/SetRegister/
// GetNZCV/SetNZCV/GetCFlag lowering resolves to a load or store against
// this base, mirroring spec section 4.5's "load guest state pointer into
// a fixed host register" design note; the concrete field order is this
// port's own choice (the source system's layout is not part of the
// spec's data model), chosen for natural 8-byte alignment throughout.
const (
	offA32Core     = 0                 // r0..r15, 8 bytes each (low 32 bits live)
	offA32Ext      = offA32Core + 16*8 // s0..s31 as 4-byte slots packed into d0..d15 64-bit slots
	offA64Core     = offA32Ext + 32*8  // x0..x30, sp folded into x31 slot
	offA64Vector   = offA64Core + 32*8 // v0..v31, 16 bytes each (only low 8 used by this port)
	offSysRegs     = offA64Vector + 32*16
	numSysRegSlots = 16
	offNZCV        = offSysRegs + numSysRegSlots*8
	offHaltFlag    = offNZCV + 8
	offCycleBudget = offHaltFlag + 8

	// offRSB/rsbDepth/offRSBIndex back TerminalPopRSBHint's return-stack
	// buffer (spec section 4.1's indirect-return prediction cache): a
	// small ring of previously-pushed return addresses, plus a running
	// index the pop decrements.
	offRSB      = offCycleBudget + 8
	rsbDepth    = 16
	offRSBIndex = offRSB + rsbDepth*8

	guestStateSize = offRSBIndex + 8
)

// Exported mirrors of the layout constants above, for callers outside
// this package (the cache's guest-state wrapper, debug/test helpers)
// that need to lay out or inspect guest state without duplicating this
// package's private offset arithmetic.
const (
	GuestStateSize    = guestStateSize
	HaltFlagOffset    = offHaltFlag
	CycleBudgetOffset = offCycleBudget
	NZCVOffset        = offNZCV
)

// RegisterOffset is the exported form of regOffset.
func RegisterOffset(ref ir.RegRef) (offset, size int) { return regOffset(ref) }

// regOffset returns the byte offset of ref within the guest-state
// struct, and its natural access size in bytes.
func regOffset(ref ir.RegRef) (offset int, size int) {
	switch ref.Class {
	case ir.RegA32Core:
		return offA32Core + int(ref.Index)*8, 4
	case ir.RegA32Ext:
		return offA32Ext + int(ref.Index)*4, 4
	case ir.RegA64Core:
		return offA64Core + int(ref.Index)*8, 8
	case ir.RegA64Vector:
		return offA64Vector + int(ref.Index)*16, 8
	case ir.RegSpecial:
		return offSysRegs + int(ref.Index)*8, 8
	default:
		panic("BUG: regOffset of an invalid RegRef")
	}
}
