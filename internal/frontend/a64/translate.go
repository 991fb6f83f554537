// Package a64 is the A64 (AArch64, 64-bit) half of the Translator/Decoder
// module: it turns a run of guest instruction words starting at a
// loc.Descriptor into a single *ir.Block, stopping at the first
// instruction that ends a block (any branch, any barrier, an
// exception-raising encoding, or the block-length cap), per spec
// section 4.1. Decoding is two-level throughout: classify narrows a
// 32-bit word to an instruction class via the pattern table in
// decode.go, then a dedicated case here extracts the class's named bit
// fields and emits IR for them.
package a64

import (
	"github.com/armdbt/armdbt/internal/cache"
	"github.com/armdbt/armdbt/internal/callbacks"
	"github.com/armdbt/armdbt/internal/ir"
	"github.com/armdbt/armdbt/internal/loc"
)

// maxBlockInstructions caps how long a single translated Block can run
// before it is forced to end with a LinkBlock back to the dispatcher,
// per spec section 4.1's "reaching a max block length" ending
// condition.
const maxBlockInstructions = 64

// Translator implements cache.Translator for the A64 instruction set.
type Translator struct{}

// New returns an A64 Translator.
func New() Translator { return Translator{} }

var _ cache.Translator = Translator{}

// Translate decodes guest words starting at l until the block ends,
// emitting IR for each into a fresh *ir.Block.
func (Translator) Translate(l loc.Descriptor, cb callbacks.Callbacks, opts cache.TranslateOptions) (*ir.Block, error) {
	pc := l.PC()
	b := ir.NewBlock(l, loc.New(pc))
	e := ir.NewEmitter(b)

	finish := func(cycles uint32, endPC uint32, term *ir.Terminal) (*ir.Block, error) {
		b.Cycles = cycles
		b.End = loc.New(endPC)
		b.SetTerminal(term)
		return b, nil
	}

	var cycles uint32
	for n := 0; n < maxBlockInstructions; n++ {
		word := uint32(cb.Read(32, ir.AccessNormal, uint64(pc)))
		cycles++

		switch classify(word) {
		case kindNop:
			e.Nop()

		case kindBarrier:
			emitBarrier(e, word)
			return finish(cycles, pc+4, ir.LinkBlock(loc.New(pc+4)))

		case kindMoveWideImm:
			if !translateMoveWideImm(e, word) {
				e.ExceptionRaised(ir.ExceptionReservedValue, word)
				return finish(cycles, pc+4, ir.ReturnToDispatch())
			}

		case kindAddSubImm:
			translateAddSubImm(e, word)

		case kindAddSubReg:
			if !translateAddSubReg(e, word) {
				e.ExceptionRaised(ir.ExceptionReservedValue, word)
				return finish(cycles, pc+4, ir.ReturnToDispatch())
			}

		case kindLogicalImm:
			if !translateLogicalImm(e, word) {
				e.ExceptionRaised(ir.ExceptionReservedValue, word)
				return finish(cycles, pc+4, ir.ReturnToDispatch())
			}

		case kindLogicalReg:
			if !translateLogicalReg(e, word) {
				e.ExceptionRaised(ir.ExceptionUnallocatedEncoding, word)
				return finish(cycles, pc+4, ir.ReturnToDispatch())
			}

		case kindDataProc1Src:
			if !translateDataProc1Src(e, word) {
				e.ExceptionRaised(ir.ExceptionUnallocatedEncoding, word)
				return finish(cycles, pc+4, ir.ReturnToDispatch())
			}

		case kindDataProc2Src:
			if !translateDataProc2Src(e, word) {
				e.ExceptionRaised(ir.ExceptionUnallocatedEncoding, word)
				return finish(cycles, pc+4, ir.ReturnToDispatch())
			}

		case kindDataProc3Src:
			translateDataProc3Src(e, word)

		case kindLoadStoreImm:
			if !translateLoadStoreImm(e, word) {
				e.ExceptionRaised(ir.ExceptionUnallocatedEncoding, word)
				return finish(cycles, pc+4, ir.ReturnToDispatch())
			}

		case kindBranchCond:
			cond, taken, notTaken := decodeBranchCond(word, pc)
			return finish(cycles, pc+4, ir.If(cond, ir.LinkBlock(taken), ir.LinkBlock(notTaken)))

		case kindBranchUncond:
			link, target := decodeBranchUncond(word, pc)
			if link {
				e.SetRegister(xreg(30), ir.ImmU64(uint64(pc+4)))
			}
			return finish(cycles, pc+4, ir.LinkBlock(loc.New(target)))

		case kindBranchReg:
			term, ok := translateBranchReg(e, word, pc)
			if !ok {
				e.ExceptionRaised(ir.ExceptionUnallocatedEncoding, word)
				return finish(cycles, pc+4, ir.ReturnToDispatch())
			}
			return finish(cycles, pc+4, term)

		case kindCompareAndBranch:
			term := translateCompareAndBranch(e, word, pc)
			return finish(cycles, pc+4, term)

		default:
			e.ExceptionRaised(ir.ExceptionDecodeError, word)
			return finish(cycles, pc+4, ir.ReturnToDispatch())
		}

		pc += 4
	}

	return finish(cycles, pc, ir.LinkBlock(loc.New(pc)))
}

// xreg names an A64 core register by index, 0-30; index 31 must be
// resolved to either the zero register or SP by the caller, since which
// one it means is a property of the instruction class, not the index.
func xreg(idx uint32) ir.RegRef { return ir.RegRef{Class: ir.RegA64Core, Index: uint8(idx)} }

// getZR reads register idx, treating 31 as the zero register.
func getZR(e ir.Emitter, idx uint32) ir.Value {
	if idx == 31 {
		return ir.ImmU64(0)
	}
	return e.GetRegister(xreg(idx))
}

// setZR writes v to register idx, discarding writes to 31 (the zero
// register ignores writes).
func setZR(e ir.Emitter, idx uint32, v ir.Value) {
	if idx == 31 {
		return
	}
	e.SetRegister(xreg(idx), v)
}

// getSP reads register idx, treating 31 as the stack pointer (folded
// into the x31 guest-state slot per the backend's register layout).
func getSP(e ir.Emitter, idx uint32) ir.Value { return e.GetRegister(xreg(idx)) }

func setSP(e ir.Emitter, idx uint32, v ir.Value) { e.SetRegister(xreg(idx), v) }

// narrow applies W-register write semantics when sf selects the 32-bit
// form: the result is reduced to its low 32 bits and the register's
// upper 32 bits are zeroed, matching every W-form in the architecture.
func narrow(e ir.Emitter, sf uint32, v ir.Value) ir.Value {
	if sf == 1 {
		return v
	}
	return e.ZeroExtend(ir.TypeU64, e.Truncate(ir.TypeU32, v))
}

func setFlagsFromResult(e ir.Emitter, result ir.Value) {
	e.SetNZCV(e.GetNZCVFromOp(result))
}

func setNZFromResult(e ir.Emitter, result ir.Value) {
	e.SetNZCV(e.GetNZFromOp(result))
}

func emitBarrier(e ir.Emitter, word uint32) {
	switch word {
	case 0xd5033bbf:
		e.DataMemoryBarrier()
	case 0xd5033f9f:
		e.DataSyncBarrier()
	case 0xd5033fdf:
		e.InstrSyncBarrier()
	}
}

// translateMoveWideImm handles MOVN/MOVZ/MOVK. Reports false for the
// reserved opc==01 encoding.
func translateMoveWideImm(e ir.Emitter, word uint32) bool {
	sf := bit(word, 31)
	opc := field(word, 30, 29)
	hw := field(word, 22, 21)
	imm16 := field(word, 20, 5)
	rd := field(word, 4, 0)

	shifted := uint64(imm16) << (16 * hw)

	var result ir.Value
	switch opc {
	case 0: // MOVN
		result = ir.ImmU64(^shifted)
	case 1:
		return false
	case 2: // MOVZ
		result = ir.ImmU64(shifted)
	case 3: // MOVK: merge into the existing register value.
		cur := getZR(e, rd)
		mask := ir.ImmU64(^(uint64(0xffff) << (16 * hw)))
		cleared := e.And(cur, mask)
		result = e.Or(cleared, ir.ImmU64(shifted))
	}
	setZR(e, rd, narrow(e, sf, result))
	return true
}

func translateAddSubImm(e ir.Emitter, word uint32) {
	sf := bit(word, 31)
	sub := bit(word, 30) == 1
	setFlags := bit(word, 29) == 1
	shift := field(word, 23, 22)
	imm12 := field(word, 21, 10)
	rn := field(word, 9, 5)
	rd := field(word, 4, 0)

	imm := uint64(imm12)
	if shift == 1 {
		imm <<= 12
	}

	a := getSP(e, rn)
	result := addOrSub(e, sub, a, ir.ImmU64(imm))
	if setFlags {
		setFlagsFromResult(e, result)
	}
	setSP(e, rd, narrow(e, sf, result))
}

// translateAddSubReg handles the shifted-register (no extend) form.
// Reports false for the reserved shift==3 encoding.
func translateAddSubReg(e ir.Emitter, word uint32) bool {
	sf := bit(word, 31)
	sub := bit(word, 30) == 1
	setFlags := bit(word, 29) == 1
	shiftKind := field(word, 23, 22)
	rm := field(word, 20, 16)
	amount := field(word, 15, 10)
	rn := field(word, 9, 5)
	rd := field(word, 4, 0)

	a := getZR(e, rn)
	m := getZR(e, rm)
	if amount != 0 {
		cnt := ir.ImmU64(uint64(amount))
		switch shiftKind {
		case 0:
			m = e.Shl(m, cnt)
		case 1:
			m = e.Lshr(m, cnt)
		case 2:
			m = e.Ashr(m, cnt)
		default:
			return false
		}
	}
	result := addOrSub(e, sub, a, m)
	if setFlags {
		setFlagsFromResult(e, result)
	}
	setZR(e, rd, narrow(e, sf, result))
	return true
}

func addOrSub(e ir.Emitter, sub bool, a, b ir.Value) ir.Value {
	if sub {
		return e.Sub(a, b)
	}
	return e.Add(a, b)
}

// translateLogicalImm handles AND/ORR/EOR/ANDS (immediate). Reports
// false when DecodeBitMasks rejects the N:immr:imms triple.
func translateLogicalImm(e ir.Emitter, word uint32) bool {
	sf := bit(word, 31)
	opc := field(word, 30, 29)
	n := uint8(bit(word, 22))
	immr := uint8(field(word, 21, 16))
	imms := uint8(field(word, 15, 10))
	rn := field(word, 9, 5)
	rd := field(word, 4, 0)

	wmask, _, ok := DecodeBitMasks(n, imms, immr, true)
	if !ok {
		return false
	}

	a := getZR(e, rn)
	imm := ir.ImmU64(wmask)
	var result ir.Value
	switch opc {
	case 0:
		result = e.And(a, imm)
	case 1:
		result = e.Or(a, imm)
	case 2:
		result = e.Xor(a, imm)
	case 3:
		result = e.And(a, imm)
		setNZFromResult(e, result)
	}
	setZR(e, rd, narrow(e, sf, result))
	return true
}

// translateLogicalReg handles AND/ORR/EOR/ANDS (shifted register, no
// shift). N==1 selects the bitwise-NOT variants (BIC/ORN/EON/BICS),
// which this port does not implement; reports false for those so the
// caller raises an unallocated-encoding exception.
func translateLogicalReg(e ir.Emitter, word uint32) bool {
	if bit(word, 21) == 1 {
		return false
	}
	sf := bit(word, 31)
	opc := field(word, 30, 29)
	shiftKind := field(word, 23, 22)
	rm := field(word, 20, 16)
	amount := field(word, 15, 10)
	rn := field(word, 9, 5)
	rd := field(word, 4, 0)

	a := getZR(e, rn)
	m := getZR(e, rm)
	if amount != 0 {
		cnt := ir.ImmU64(uint64(amount))
		switch shiftKind {
		case 0:
			m = e.Shl(m, cnt)
		case 1:
			m = e.Lshr(m, cnt)
		case 2:
			m = e.Ashr(m, cnt)
		case 3:
			m = e.Rotr(m, cnt)
		}
	}

	var result ir.Value
	switch opc {
	case 0:
		result = e.And(a, m)
	case 1:
		result = e.Or(a, m)
	case 2:
		result = e.Xor(a, m)
	case 3:
		result = e.And(a, m)
		setNZFromResult(e, result)
	}
	setZR(e, rd, narrow(e, sf, result))
	return true
}

// translateDataProc1Src handles RBIT, REV with opcode 0b000011 (the
// 64-bit form, a full bswap), CLZ and CLS. REV16, REV32 and the 32-bit
// REV (opcode 0b000010) report false, as does any other opcode in this
// class.
func translateDataProc1Src(e ir.Emitter, word uint32) bool {
	sf := bit(word, 31)
	op := field(word, 15, 10)
	rn := field(word, 9, 5)
	rd := field(word, 4, 0)

	a := getZR(e, rn)
	var result ir.Value
	switch op {
	case 0b000000:
		result = e.BitReverse(a)
	case 0b000011:
		result = e.Bswap(a)
	case 0b000100:
		result = e.Clz(a)
	case 0b000101:
		result = e.Cls(a)
	default:
		return false
	}
	setZR(e, rd, narrow(e, sf, result))
	return true
}

// translateDataProc2Src handles UDIV, SDIV, LSLV, LSRV, ASRV and RORV.
func translateDataProc2Src(e ir.Emitter, word uint32) bool {
	sf := bit(word, 31)
	rm := field(word, 20, 16)
	op := field(word, 15, 10)
	rn := field(word, 9, 5)
	rd := field(word, 4, 0)

	a := getZR(e, rn)
	m := getZR(e, rm)
	var result ir.Value
	switch op {
	case 0b000010:
		result = e.UDiv(a, m)
	case 0b000011:
		result = e.SDiv(a, m)
	case 0b001000:
		result = e.Shl(a, m)
	case 0b001001:
		result = e.Lshr(a, m)
	case 0b001010:
		result = e.Ashr(a, m)
	case 0b001011:
		result = e.Rotr(a, m)
	default:
		return false
	}
	setZR(e, rd, narrow(e, sf, result))
	return true
}

// translateDataProc3Src handles MADD/MSUB (MUL/MNEG aliases included,
// Ra == XZR).
func translateDataProc3Src(e ir.Emitter, word uint32) {
	sf := bit(word, 31)
	rm := field(word, 20, 16)
	o0 := bit(word, 15)
	ra := field(word, 14, 10)
	rn := field(word, 9, 5)
	rd := field(word, 4, 0)

	mul := e.Mul(getZR(e, rn), getZR(e, rm))
	addend := getZR(e, ra)
	result := addOrSub(e, o0 == 1, addend, mul)
	setZR(e, rd, narrow(e, sf, result))
}

// translateLoadStoreImm handles the unsigned-immediate-offset LDR/STR
// forms (byte/halfword/word/doubleword, zero-extending loads only).
// The sign-extending loads (LDRSB/LDRSH/LDRSW) are a deliberate scope
// cut; reports false for them. Register-offset addressing never reaches
// this function: no decode pattern matches it.
func translateLoadStoreImm(e ir.Emitter, word uint32) bool {
	size := field(word, 31, 30)
	opc := field(word, 23, 22)
	imm12 := field(word, 21, 10)
	rn := field(word, 9, 5)
	rt := field(word, 4, 0)

	if opc >= 2 {
		return false
	}

	width := [4]int{8, 16, 32, 64}[size]
	scale := uint64(1) << size
	base := getSP(e, rn)
	addr := e.Add(base, ir.ImmU64(uint64(imm12)*scale))

	if opc == 0 {
		e.WriteMemory(width, ir.AccessNormal, addr, getZR(e, rt))
		return true
	}
	v := e.ReadMemory(width, ir.AccessNormal, addr)
	if width < 64 {
		v = e.ZeroExtend(ir.TypeU64, v)
	}
	setZR(e, rt, v)
	return true
}

func decodeBranchCond(word uint32, pc uint32) (cond ir.Cond, taken, notTaken loc.Descriptor) {
	imm19 := field(word, 23, 5)
	c := field(word, 3, 0)
	offset := signExtend(imm19, 19) * 4
	return ir.Cond(c), loc.New(uint32(int64(pc) + int64(offset))), loc.New(pc + 4)
}

// decodeBranchUncond returns whether this is BL (vs plain B) and the
// absolute target PC.
func decodeBranchUncond(word uint32, pc uint32) (link bool, target uint32) {
	imm26 := field(word, 25, 0)
	offset := signExtend(imm26, 26) * 4
	return bit(word, 31) == 1, uint32(int64(pc) + int64(offset))
}

// translateBranchReg handles BR, BLR and RET. Reports false for any
// other opc value in this class (the reserved ERET/DRPS/pointer-auth
// forms this port does not implement).
//
// None of the three read Rn's value here: resolving an indirect target
// to a cached block is the dispatcher's job (FastDispatchHint/
// PopRSBHint both carry no target of their own, matching how the arm64
// backend already lowers them), not something the IR threads through.
func translateBranchReg(e ir.Emitter, word uint32, pc uint32) (*ir.Terminal, bool) {
	opc := field(word, 23, 21)

	switch opc {
	case 0: // BR
		return ir.FastDispatchHint(), true
	case 1: // BLR
		e.SetRegister(xreg(30), ir.ImmU64(uint64(pc+4)))
		return ir.FastDispatchHint(), true
	case 2: // RET
		return ir.PopRSBHint(), true
	default:
		return nil, false
	}
}

func translateCompareAndBranch(e ir.Emitter, word uint32, pc uint32) *ir.Terminal {
	sf := bit(word, 31)
	op := bit(word, 24)
	imm19 := field(word, 23, 5)
	rt := field(word, 4, 0)

	offset := signExtend(imm19, 19) * 4
	target := loc.New(uint32(int64(pc) + int64(offset)))
	notTaken := loc.New(pc + 4)

	v := narrow(e, sf, getZR(e, rt))
	isZero := e.EvalCond(ir.CondEQ, e.GetNZFromOp(e.Sub(v, ir.ImmU64(0))))

	if op == 0 { // CBZ: branch when zero
		return ir.CheckBit(isZero, ir.LinkBlock(target), ir.LinkBlock(notTaken))
	}
	// CBNZ: branch when not zero, so invert the sense of the checked bit.
	isNotZero := e.Not(isZero)
	return ir.CheckBit(isNotZero, ir.LinkBlock(target), ir.LinkBlock(notTaken))
}
