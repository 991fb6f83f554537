package ir

// Emitter builds Instructions into a single Block, one method per
// opcode family, following the teacher's frontend.Compiler "one
// emitter method per opcode" style (see frontend/frontend.go's
// declareWasmLocals and its AsIconst32/AsF32const siblings) generalized
// from a wasm-bytecode emitter to this IR's fixed opcode set.
//
// Every method here funnels through checkOperands so a malformed
// sequence panics at construction time rather than surfacing as a
// miscompile three passes later.
type Emitter struct {
	b *Block
}

// NewEmitter returns an Emitter that appends to b.
func NewEmitter(b *Block) Emitter { return Emitter{b: b} }

func (e Emitter) emit(op Opcode, args ...Value) Value {
	result, ok := checkOperands(op, args)
	if !ok {
		panic("BUG: malformed operands for opcode " + op.String())
	}
	inst := e.b.emit(op, result, args...)
	if result == TypeVoid {
		return Value{}
	}
	return FromInst(inst)
}

// emitTyped is for opcodes whose result type checkOperands cannot infer
// from its operands alone (conversions, FP-to-fixed casts): the caller
// supplies the target type explicitly and it overrides checkOperands'
// placeholder return.
func (e Emitter) emitTyped(op Opcode, result Type, args ...Value) Value {
	if _, ok := checkOperands(op, args); !ok {
		panic("BUG: malformed operands for opcode " + op.String())
	}
	inst := e.b.emit(op, result, args...)
	return FromInst(inst)
}

// --- Integer arithmetic ------------------------------------------------------

func (e Emitter) Add(a, b Value) Value    { return e.emit(OpcodeAdd, a, b) }
func (e Emitter) Sub(a, b Value) Value    { return e.emit(OpcodeSub, a, b) }
func (e Emitter) Neg(a Value) Value       { return e.emit(OpcodeNeg, a) }
func (e Emitter) Mul(a, b Value) Value    { return e.emit(OpcodeMul, a, b) }
func (e Emitter) UMulHi(a, b Value) Value { return e.emit(OpcodeUMulHi, a, b) }
func (e Emitter) SMulHi(a, b Value) Value { return e.emit(OpcodeSMulHi, a, b) }
func (e Emitter) UDiv(a, b Value) Value   { return e.emit(OpcodeUDiv, a, b) }
func (e Emitter) SDiv(a, b Value) Value   { return e.emit(OpcodeSDiv, a, b) }
func (e Emitter) URem(a, b Value) Value   { return e.emit(OpcodeURem, a, b) }
func (e Emitter) SRem(a, b Value) Value   { return e.emit(OpcodeSRem, a, b) }

// --- Bitwise / shift ----------------------------------------------------------

func (e Emitter) And(a, b Value) Value       { return e.emit(OpcodeAnd, a, b) }
func (e Emitter) Or(a, b Value) Value        { return e.emit(OpcodeOr, a, b) }
func (e Emitter) Xor(a, b Value) Value       { return e.emit(OpcodeXor, a, b) }
func (e Emitter) Not(a Value) Value          { return e.emit(OpcodeNot, a) }
func (e Emitter) AndNot(a, b Value) Value    { return e.emit(OpcodeAndNot, a, b) }
func (e Emitter) Shl(a, n Value) Value       { return e.emit(OpcodeShl, a, n) }
func (e Emitter) Lshr(a, n Value) Value      { return e.emit(OpcodeLshr, a, n) }
func (e Emitter) Ashr(a, n Value) Value      { return e.emit(OpcodeAshr, a, n) }
func (e Emitter) Rotl(a, n Value) Value      { return e.emit(OpcodeRotl, a, n) }
func (e Emitter) Rotr(a, n Value) Value      { return e.emit(OpcodeRotr, a, n) }
func (e Emitter) Clz(a Value) Value          { return e.emit(OpcodeClz, a) }
func (e Emitter) Cls(a Value) Value          { return e.emit(OpcodeCls, a) }
func (e Emitter) Ctz(a Value) Value          { return e.emit(OpcodeCtz, a) }
func (e Emitter) Bswap(a Value) Value        { return e.emit(OpcodeBswap, a) }
func (e Emitter) Popcnt(a Value) Value       { return e.emit(OpcodePopcnt, a) }
func (e Emitter) BitReverse(a Value) Value   { return e.emit(OpcodeBitReverse, a) }

// --- Flag pseudo-ops ----------------------------------------------------------
//
// Each takes the primary arithmetic Inst as its operand and is recorded in
// the owning Block's pseudoUsers side table rather than stored as a
// back-pointer on the parent (spec section 9: avoids mutual/cyclic Inst
// pointers). The pseudo produces no host code of its own; the arm64
// backend realizes it by inspecting condition flags set as a side effect
// of lowering the parent.

func (e Emitter) flagPseudo(op Opcode, parent Value) Value {
	if !parent.IsInst() {
		panic("BUG: flag pseudo-op operand must reference an Instruction")
	}
	v := e.emit(op, parent)
	e.b.addPseudoUser(parent.Inst(), v.Inst())
	return v
}

func (e Emitter) GetNZFromOp(parent Value) Value       { return e.flagPseudo(OpcodeGetNZFromOp, parent) }
func (e Emitter) GetCarryFromOp(parent Value) Value    { return e.flagPseudo(OpcodeGetCarryFromOp, parent) }
func (e Emitter) GetOverflowFromOp(parent Value) Value { return e.flagPseudo(OpcodeGetOverflowFromOp, parent) }
func (e Emitter) GetNZCVFromOp(parent Value) Value     { return e.flagPseudo(OpcodeGetNZCVFromOp, parent) }

// --- Condition evaluation ------------------------------------------------------

// EvalCond emits a U1 test of cond against an NZCV value produced
// earlier in the block (by GetNZCV or a GetNZCVFromOp pseudo).
func (e Emitter) EvalCond(cond Cond, nzcv Value) Value {
	return e.emit(OpcodeEvalCond, ImmU8(uint8(cond)), nzcv)
}

// --- Guest register / flag access ----------------------------------------------

func (e Emitter) GetRegister(ref RegRef) Value { return e.emit(OpcodeGetRegister, Reg(ref)) }
func (e Emitter) SetRegister(ref RegRef, v Value) {
	e.emit(OpcodeSetRegister, Reg(ref), v)
}
func (e Emitter) GetNZCV() Value     { return e.emit(OpcodeGetNZCV) }
func (e Emitter) SetNZCV(v Value)    { e.emit(OpcodeSetNZCV, v) }
func (e Emitter) GetCFlag() Value    { return e.emit(OpcodeGetCFlag) }

// --- Memory --------------------------------------------------------------------

var readMemoryOps = map[int]Opcode{
	8: OpcodeReadMemory8, 16: OpcodeReadMemory16, 32: OpcodeReadMemory32,
	64: OpcodeReadMemory64, 128: OpcodeReadMemory128,
}
var writeMemoryOps = map[int]Opcode{
	8: OpcodeWriteMemory8, 16: OpcodeWriteMemory16, 32: OpcodeWriteMemory32,
	64: OpcodeWriteMemory64, 128: OpcodeWriteMemory128,
}
var readMemoryExclOps = map[int]Opcode{
	8: OpcodeReadMemoryExclusive8, 16: OpcodeReadMemoryExclusive16, 32: OpcodeReadMemoryExclusive32,
	64: OpcodeReadMemoryExclusive64, 128: OpcodeReadMemoryExclusive128,
}
var writeMemoryExclOps = map[int]Opcode{
	8: OpcodeWriteMemoryExclusive8, 16: OpcodeWriteMemoryExclusive16, 32: OpcodeWriteMemoryExclusive32,
	64: OpcodeWriteMemoryExclusive64, 128: OpcodeWriteMemoryExclusive128,
}

// ReadMemory emits a width-bit memory load qualified by at.
func (e Emitter) ReadMemory(width int, at AccessType, addr Value) Value {
	op, ok := readMemoryOps[width]
	if !ok {
		panic("BUG: unsupported ReadMemory width")
	}
	return e.emit(op, ImmU8(uint8(at)), addr)
}

// WriteMemory emits a width-bit memory store qualified by at.
func (e Emitter) WriteMemory(width int, at AccessType, addr, val Value) {
	op, ok := writeMemoryOps[width]
	if !ok {
		panic("BUG: unsupported WriteMemory width")
	}
	e.emit(op, ImmU8(uint8(at)), addr, val)
}

// ReadMemoryExclusive emits a width-bit exclusive-monitor-tagging load.
func (e Emitter) ReadMemoryExclusive(width int, at AccessType, addr Value) Value {
	op, ok := readMemoryExclOps[width]
	if !ok {
		panic("BUG: unsupported ReadMemoryExclusive width")
	}
	return e.emit(op, ImmU8(uint8(at)), addr)
}

// WriteMemoryExclusive emits a width-bit exclusive-monitor-checking
// store; the result is U1, true on success, per LDXR/STXR pairing
// semantics.
func (e Emitter) WriteMemoryExclusive(width int, at AccessType, addr, val Value) Value {
	op, ok := writeMemoryExclOps[width]
	if !ok {
		panic("BUG: unsupported WriteMemoryExclusive width")
	}
	return e.emit(op, ImmU8(uint8(at)), addr, val)
}

// --- Conversions -----------------------------------------------------------------

func (e Emitter) ZeroExtend(to Type, v Value) Value { return e.emitTyped(OpcodeZeroExtend, to, v) }
func (e Emitter) SignExtend(to Type, v Value) Value { return e.emitTyped(OpcodeSignExtend, to, v) }
func (e Emitter) Truncate(to Type, v Value) Value   { return e.emitTyped(OpcodeTruncate, to, v) }
func (e Emitter) Bitcast(to Type, v Value) Value    { return e.emitTyped(OpcodeBitcast, to, v) }

// --- Floating point ----------------------------------------------------------------

func (e Emitter) FPAdd(a, b Value) Value  { return e.emit(OpcodeFPAdd, a, b) }
func (e Emitter) FPSub(a, b Value) Value  { return e.emit(OpcodeFPSub, a, b) }
func (e Emitter) FPMul(a, b Value) Value  { return e.emit(OpcodeFPMul, a, b) }
func (e Emitter) FPDiv(a, b Value) Value  { return e.emit(OpcodeFPDiv, a, b) }
func (e Emitter) FPNeg(a Value) Value     { return e.emit(OpcodeFPNeg, a) }
func (e Emitter) FPAbs(a Value) Value     { return e.emit(OpcodeFPAbs, a) }
func (e Emitter) FPSqrt(a Value) Value    { return e.emit(OpcodeFPSqrt, a) }
func (e Emitter) FPCompare(a, b Value) Value { return e.emit(OpcodeFPCompare, a, b) }
func (e Emitter) FPToFixed(to Type, v Value) Value { return e.emitTyped(OpcodeFPToFixed, to, v) }
func (e Emitter) FixedToFP(to Type, v Value) Value { return e.emitTyped(OpcodeFixedToFP, to, v) }

// --- Minimal SIMD surface ----------------------------------------------------------

func (e Emitter) VectorSplat(v Value) Value { return e.emit(OpcodeVectorSplat, v) }
func (e Emitter) VectorExtractLane(v Value, lane uint8) Value {
	return e.emit(OpcodeVectorExtractLane, v, ImmU8(lane))
}
func (e Emitter) VectorInsertLane(v Value, lane uint8, elem Value) Value {
	return e.emit(OpcodeVectorInsertLane, v, ImmU8(lane), elem)
}

// --- System / exceptions -----------------------------------------------------------

// ExceptionRaised ends the block's instruction stream with an exception
// record; the caller is responsible for pairing it with a
// ReturnToDispatch terminal.
func (e Emitter) ExceptionRaised(kind ExceptionKind, info uint32) {
	e.emit(OpcodeExceptionRaised, ImmU8(uint8(kind)), ImmU32(info))
}

func (e Emitter) CallSVC(imm uint32)       { e.emit(OpcodeCallSVC, ImmU32(imm)) }
func (e Emitter) DataMemoryBarrier()       { e.emit(OpcodeDataMemoryBarrier) }
func (e Emitter) DataSyncBarrier()         { e.emit(OpcodeDataSyncBarrier) }
func (e Emitter) InstrSyncBarrier()        { e.emit(OpcodeInstrSyncBarrier) }
func (e Emitter) Nop()                     { e.emit(OpcodeNop) }
