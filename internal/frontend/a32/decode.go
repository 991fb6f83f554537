// Package a32 is the A32 (ARMv7-A, 32-bit ARM-state) half of the
// Translator/Decoder module. Thumb/Thumb-2 encoding and the IT-state
// predication byte are not implemented by this port (see DESIGN.md);
// every guest word this package decodes is assumed to already be in
// ARM state, matching loc.Descriptor.Thumb() == false.
package a32

// kind identifies the instruction class a 32-bit A32 word decoded to.
// The caller (translate.go) passes classify the full word, condition
// field included: ARM-state predication is per-instruction, not
// per-class, so every row except the barrier rows leaves bits[31:28]
// out of its mask.
type kind uint8

const (
	kindUnknown kind = iota
	kindNop
	kindBarrier
	kindDataProcImm
	kindDataProcReg
	kindMul
	kindBranch
	kindBranchExchange
	kindLoadStoreImm
)

// pattern is one row of the instruction-class table: word&mask==fixed
// identifies this kind. Cond bits[31:28] are part of mask only in the
// three barrier rows, which match unconditional-space words in full.
// Every row below is derived from the ARM-state base instruction set
// field layout (Arm Architecture Reference Manual, "ARM instruction
// set encoding"): word = field1<<shift1 | field2<<shift2 | ... with
// every field that varies within the class left out of mask.
var patterns = []pattern{
	{mask: 0xffffffff, fixed: 0xf57ff05f, kind: kindBarrier}, // DMB SY
	{mask: 0xffffffff, fixed: 0xf57ff04f, kind: kindBarrier}, // DSB SY
	{mask: 0xffffffff, fixed: 0xf57ff06f, kind: kindBarrier}, // ISB SY
	{mask: 0x0fffffff, fixed: 0x0320f000, kind: kindNop},
	{mask: 0x0fc000f0, fixed: 0x00000090, kind: kindMul},
	{mask: 0x0f600000, fixed: 0x05000000, kind: kindLoadStoreImm},
	{mask: 0x0e000000, fixed: 0x0a000000, kind: kindBranch},
	{mask: 0x0ffffff0, fixed: 0x012fff10, kind: kindBranchExchange}, // BX
	{mask: 0x0ffffff0, fixed: 0x012fff30, kind: kindBranchExchange}, // BLX (register)
	{mask: 0x0e000000, fixed: 0x02000000, kind: kindDataProcImm},
	{mask: 0x0e000010, fixed: 0x00000000, kind: kindDataProcReg},
}

type pattern struct {
	mask, fixed uint32
	kind        kind
}

// classify matches word against patterns in order, first match wins.
func classify(word uint32) kind {
	for _, p := range patterns {
		if word&p.mask == p.fixed {
			return p.kind
		}
	}
	return kindUnknown
}

func bit(word uint32, n uint) uint32 { return (word >> n) & 1 }

// field extracts the inclusive bit range [lo, hi] of word.
func field(word uint32, hi, lo uint) uint32 {
	return (word >> lo) & ((1 << (hi - lo + 1)) - 1)
}

func signExtend(v uint32, bits int) int32 {
	shift := uint(32 - bits)
	return int32(v<<shift) >> shift
}

// rotateRightImm implements the data-processing-immediate operand 2
// rotation: an 8-bit immediate rotated right by twice the 4-bit
// rotate field.
func rotateRightImm(imm8 uint32, rotate uint32) uint32 {
	amount := (rotate * 2) & 31
	if amount == 0 {
		return imm8
	}
	return (imm8 >> amount) | (imm8 << (32 - amount))
}
