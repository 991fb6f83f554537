package arm64

import "github.com/armdbt/armdbt/internal/backend"

// This file hand-encodes the subset of the AArch64 instruction set this
// backend's Machine lowers to, following the teacher's own structural
// choice (backend/isa/arm64/instr.go models host instructions as a
// small struct with a kind discriminant, not via an external assembler
// package) generalized per SPEC_FULL.md's domain-stack entry to emit
// real instruction words instead of the teacher's panic("TODO") stubs.
//
// Bit layouts are transcribed directly from the Arm Architecture
// Reference Manual's A64 encoding tables; each function encodes exactly
// one instruction form.

func r(reg backend.RealReg) uint32 { return encNum(reg) }

// EncodeBranch returns the raw B instruction word branching from
// fromOffset to toOffset within the same code region, for callers
// outside this package (the cache's relocation linker) patching a
// Relocation once the target's real offset is known.
func EncodeBranch(fromOffset, toOffset int) uint32 {
	return encB(branchDelta(fromOffset, toOffset))
}

// movz/movn/movk Rd, #imm16, LSL #(hw*16)  -- 64-bit (sf=1)
func encMovz64(rd backend.RealReg, imm16 uint16, hw uint8) uint32 {
	return 0xD2800000 | uint32(hw&3)<<21 | uint32(imm16)<<5 | r(rd)
}
func encMovn64(rd backend.RealReg, imm16 uint16, hw uint8) uint32 {
	return 0x92800000 | uint32(hw&3)<<21 | uint32(imm16)<<5 | r(rd)
}
func encMovk64(rd backend.RealReg, imm16 uint16, hw uint8) uint32 {
	return 0xF2800000 | uint32(hw&3)<<21 | uint32(imm16)<<5 | r(rd)
}

// addReg/subReg Rd, Rn, Rm  -- 64-bit; s selects the flag-setting (S)
// variant (ADDS/SUBS).
func encAddSubReg64(sub, s bool, rd, rn, rm backend.RealReg) uint32 {
	var op uint32
	if sub {
		op = 1
	}
	var setFlags uint32
	if s {
		setFlags = 1
	}
	return 0x8B000000 | op<<30 | setFlags<<29 | r(rm)<<16 | r(rn)<<5 | r(rd)
}

// addImm/subImm Rd, Rn, #imm12
func encAddSubImm64(sub, s bool, rd, rn backend.RealReg, imm12 uint16) uint32 {
	var op uint32
	if sub {
		op = 1
	}
	var setFlags uint32
	if s {
		setFlags = 1
	}
	return 0x91000000 | op<<30 | setFlags<<29 | uint32(imm12&0xfff)<<10 | r(rn)<<5 | r(rd)
}

// Logical register forms (AND/ORR/EOR/ANDS), 64-bit, no shift.
func encLogicalReg64(kind logicalKind, rd, rn, rm backend.RealReg) uint32 {
	var opcAndN uint32
	switch kind {
	case logicalAnd:
		opcAndN = 0x0
	case logicalOrr:
		opcAndN = 0x1
	case logicalEor:
		opcAndN = 0x2
	case logicalAnds:
		opcAndN = 0x3
	}
	return 0x8A000000 | opcAndN<<29 | r(rm)<<16 | r(rn)<<5 | r(rd)
}

type logicalKind uint8

const (
	logicalAnd logicalKind = iota
	logicalOrr
	logicalEor
	logicalAnds
)

// Shift-by-register forms, 64-bit.
func encLslv64(rd, rn, rm backend.RealReg) uint32 {
	return 0x9AC02000 | r(rm)<<16 | r(rn)<<5 | r(rd)
}
func encLsrv64(rd, rn, rm backend.RealReg) uint32 {
	return 0x9AC02400 | r(rm)<<16 | r(rn)<<5 | r(rd)
}
func encAsrv64(rd, rn, rm backend.RealReg) uint32 {
	return 0x9AC02800 | r(rm)<<16 | r(rn)<<5 | r(rd)
}
func encRorv64(rd, rn, rm backend.RealReg) uint32 {
	return 0x9AC02C00 | r(rm)<<16 | r(rn)<<5 | r(rd)
}

// MUL Rd, Rn, Rm (alias of MADD with Ra = XZR), 64-bit.
func encMul64(rd, rn, rm backend.RealReg) uint32 {
	return 0x9B007C00 | r(rm)<<16 | r(rn)<<5 | r(rd)
}

func encSdiv64(rd, rn, rm backend.RealReg) uint32 {
	return 0x9AC00C00 | r(rm)<<16 | r(rn)<<5 | r(rd)
}
func encUdiv64(rd, rn, rm backend.RealReg) uint32 {
	return 0x9AC00800 | r(rm)<<16 | r(rn)<<5 | r(rd)
}

// CLZ/RBIT/REV64, 64-bit.
func encClz64(rd, rn backend.RealReg) uint32  { return 0xDAC01000 | r(rn)<<5 | r(rd) }
func encRbit64(rd, rn backend.RealReg) uint32 { return 0xDAC00000 | r(rn)<<5 | r(rd) }
func encRev64(rd, rn backend.RealReg) uint32  { return 0xDAC00C00 | r(rn)<<5 | r(rd) }

// CSINC Rd, Rn, Rm, cond (CSET Rd, cond is CSINC Rd, XZR, XZR,
// invert(cond)), 64-bit.
func encCsinc64(rd, rn, rm backend.RealReg, c cond) uint32 {
	return 0x9A800400 | r(rm)<<16 | uint32(c)<<12 | r(rn)<<5 | r(rd)
}

func encCset64(rd backend.RealReg, c cond) uint32 {
	return encCsinc64(rd, regXZR, regXZR, c.invert())
}

// Load/store, unsigned immediate offset #0 with rm as the base register,
// so the address operand itself is the absolute host pointer (a
// simplification: this port has no fastmem page-table indirection;
// addresses reaching the emitter are already host pointers).
func encLdr64(rt, rm backend.RealReg) uint32  { return 0xF9400000 | r(rm)<<5 | r(rt) }
func encLdr32(rt, rm backend.RealReg) uint32  { return 0xB9400000 | r(rm)<<5 | r(rt) }
func encLdrh(rt, rm backend.RealReg) uint32   { return 0x79400000 | r(rm)<<5 | r(rt) }
func encLdrb(rt, rm backend.RealReg) uint32   { return 0x39400000 | r(rm)<<5 | r(rt) }
func encStr64(rt, rm backend.RealReg) uint32  { return 0xF9000000 | r(rm)<<5 | r(rt) }
func encStr32(rt, rm backend.RealReg) uint32  { return 0xB9000000 | r(rm)<<5 | r(rt) }
func encStrh(rt, rm backend.RealReg) uint32   { return 0x79000000 | r(rm)<<5 | r(rt) }
func encStrb(rt, rm backend.RealReg) uint32   { return 0x39000000 | r(rm)<<5 | r(rt) }

// Exclusive load/store (LDXR/STXR), 64-bit, no offset: base register
// only, matching the architectural encoding (exclusive forms carry no
// immediate offset).
func encLdxr64(rt, rn backend.RealReg) uint32 { return 0xC85F7C00 | r(rn)<<5 | r(rt) }
func encStxr64(rs, rt, rn backend.RealReg) uint32 {
	return 0xC8007C00 | r(rs)<<16 | r(rn)<<5 | r(rt)
}

// Branches.
func encB(imm26 int32) uint32     { return 0x14000000 | uint32(imm26)&0x3ffffff }
func encBl(imm26 int32) uint32    { return 0x94000000 | uint32(imm26)&0x3ffffff }
func encBCond(imm19 int32, c cond) uint32 {
	return 0x54000000 | (uint32(imm19)&0x7ffff)<<5 | uint32(c)
}
func encBr(rn backend.RealReg) uint32  { return 0xD61F0000 | r(rn)<<5 }
func encBlr(rn backend.RealReg) uint32 { return 0xD63F0000 | r(rn)<<5 }
func encRet(rn backend.RealReg) uint32 { return 0xD65F0000 | r(rn)<<5 }

// AND Rd, Rn, #1 (immediate bitmask N=1,immr=0,imms=0: a single bit at
// position 0) -- used to isolate a flag bit after positioning it there
// with a shift.
func encAndImm1_64(rd, rn backend.RealReg) uint32 {
	return 0x92400000 | r(rn)<<5 | r(rd)
}

// AND Rd, Rn, #(2^bits-1) (immediate bitmask N=1,immr=0,imms=bits-1: the
// low `bits` bits) -- used for the power-of-two RSB-depth wraparound.
func encAndImmLowBits64(rd, rn backend.RealReg, bits uint8) uint32 {
	return 0x92400000 | uint32(bits-1)<<10 | r(rn)<<5 | r(rd)
}

// LSR Rd, Rn, #shift (immediate) is the UBFM Xd,Xn,#shift,#63 alias.
func encLsrImm64(rd, rn backend.RealReg, shift uint8) uint32 {
	return 0xD340FC00 | uint32(shift&0x3f)<<16 | r(rn)<<5 | r(rd)
}

// MOV Rd, Rn (register) is the ORR Rd, XZR, Rn alias.
func encMovReg64(rd, rn backend.RealReg) uint32 {
	return encLogicalReg64(logicalOrr, rd, regXZR, rn)
}

// MSR NZCV, Xt -- installs bits [31:28] of Xt (the same layout the
// guest-state NZCV word uses) into the host condition
// flags ahead of a B.cond, so guest-guard evaluation can reuse the
// hardware condition encoding directly instead of emulating per-flag
// comparisons.
func encMsrNzcv(rt backend.RealReg) uint32 { return 0xD51B4200 | r(rt) }

// CBZ/CBNZ Xt, label (64-bit, PC-relative imm19).
func encCbz64(rt backend.RealReg, imm19 int32) uint32 {
	return 0xB4000000 | (uint32(imm19)&0x7ffff)<<5 | r(rt)
}
func encCbnz64(rt backend.RealReg, imm19 int32) uint32 {
	return 0xB5000000 | (uint32(imm19)&0x7ffff)<<5 | r(rt)
}

const (
	encNop  = 0xD503201F
	encBrk0 = 0xD4200000
	encDmb  = 0xD5033BBF // DMB ISH
	encDsb  = 0xD5033F9F // DSB SY
	encIsb  = 0xD5033FDF // ISB SY
)

// STR/LDR Xt, [Xn|SP, #imm12*8] unsigned offset -- used for spill slots,
// addressed relative to the frame SP reserved by the prelude.
func encStrSpImm64(rt backend.RealReg, imm12 uint16) uint32 {
	return 0xF9000000 | uint32(imm12&0xfff)<<10 | r(regSP)<<5 | r(rt)
}
func encLdrSpImm64(rt backend.RealReg, imm12 uint16) uint32 {
	return 0xF9400000 | uint32(imm12&0xfff)<<10 | r(regSP)<<5 | r(rt)
}

// STP/LDP X(n), X(n+1), [Xn|SP, #imm7*8] -- signed offset, no
// writeback; used by the prelude/epilogue to save/restore callee-saved
// pairs within a frame the prelude itself allocates with a single
// SUB/ADD on SP.
func encStp64(rt1, rt2, rn backend.RealReg, imm7 int8) uint32 {
	return 0xA9000000 | (uint32(imm7)&0x7f)<<15 | r(rt2)<<10 | r(rn)<<5 | r(rt1)
}
func encLdp64(rt1, rt2, rn backend.RealReg, imm7 int8) uint32 {
	return 0xA9400000 | (uint32(imm7)&0x7f)<<15 | r(rt2)<<10 | r(rn)<<5 | r(rt1)
}
