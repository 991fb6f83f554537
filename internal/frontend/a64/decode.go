package a64

// kind identifies the instruction class a 32-bit A64 word decoded to.
// The decode step is deliberately two-level, per spec section 4.1: a
// pattern table keyed by (mask, fixed) first narrows the word to a
// kind, then a dedicated field extractor for that kind fills in a
// decoded struct the translator's visitor methods consume.
type kind uint8

const (
	kindUnknown kind = iota
	kindNop
	kindBarrier
	kindMoveWideImm
	kindAddSubImm
	kindAddSubReg
	kindLogicalImm
	kindLogicalReg
	kindBranchCond
	kindBranchUncond
	kindBranchReg
	kindCompareAndBranch
	kindLoadStoreImm
	kindDataProc2Src
	kindDataProc1Src
	kindDataProc3Src
)

// pattern is one row of the instruction-class table: word&mask==fixed
// identifies this kind. Rows are checked in order; the first match
// wins. Every fixed/mask pair below is derived directly from the
// architectural field layout (Arm Architecture Reference Manual,
// "A64 base instruction set encoding"), not guessed: each is the
// formula word = field1<<shift1 | field2<<shift2 | ... with every
// field that varies within the class left out of mask.
var patterns = []pattern{
	{mask: 0xffffffff, fixed: 0xd503201f, kind: kindNop},
	{mask: 0xffffffff, fixed: 0xd5033bbf, kind: kindBarrier}, // DMB ISH
	{mask: 0xffffffff, fixed: 0xd5033f9f, kind: kindBarrier}, // DSB SY
	{mask: 0xffffffff, fixed: 0xd5033fdf, kind: kindBarrier}, // ISB SY
	{mask: 0x7f800000, fixed: 0x12800000, kind: kindMoveWideImm}, // MOVN
	{mask: 0x7f800000, fixed: 0x52800000, kind: kindMoveWideImm}, // MOVZ
	{mask: 0x7f800000, fixed: 0x72800000, kind: kindMoveWideImm}, // MOVK
	{mask: 0x1f800000, fixed: 0x11000000, kind: kindAddSubImm},
	{mask: 0x1f200000, fixed: 0x0b000000, kind: kindAddSubReg},
	{mask: 0x1f800000, fixed: 0x12000000, kind: kindLogicalImm},
	{mask: 0x1f000000, fixed: 0x0a000000, kind: kindLogicalReg},
	{mask: 0xff000000, fixed: 0x54000000, kind: kindBranchCond},
	{mask: 0x7c000000, fixed: 0x14000000, kind: kindBranchUncond},
	{mask: 0xfffffc1f, fixed: 0xd61f0000, kind: kindBranchReg}, // BR
	{mask: 0xfffffc1f, fixed: 0xd63f0000, kind: kindBranchReg}, // BLR
	{mask: 0xfffffc1f, fixed: 0xd65f0000, kind: kindBranchReg}, // RET
	{mask: 0x7e000000, fixed: 0x34000000, kind: kindCompareAndBranch},
	{mask: 0x3f000000, fixed: 0x39000000, kind: kindLoadStoreImm},
	{mask: 0x7fe00000, fixed: 0x1b000000, kind: kindDataProc3Src},
	{mask: 0x7fe00000, fixed: 0x1ac00000, kind: kindDataProc2Src},
	{mask: 0x7fff0000, fixed: 0x5ac00000, kind: kindDataProc1Src},
}

type pattern struct {
	mask, fixed uint32
	kind        kind
}

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
