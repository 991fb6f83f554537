package a32

import (
	"github.com/armdbt/armdbt/internal/cache"
	"github.com/armdbt/armdbt/internal/callbacks"
	"github.com/armdbt/armdbt/internal/ir"
	"github.com/armdbt/armdbt/internal/loc"
)

const maxBlockInstructions = 64

// pcBias is the ARM-state "PC reads as current instruction address + 8"
// pipeline convention used when computing a branch's absolute target.
const pcBias = 8

type Translator struct{}

func New() Translator { return Translator{} }

var _ cache.Translator = Translator{}

// Translate walks guest ARM-state words starting at l into a single
// Block. ARM-state predicates every instruction individually via its
// own 4-bit condition field rather than batching predication the way
// Thumb-2's IT block does, so a conditional non-branch instruction
// that isn't the block's very first gets its own single-instruction
// Block instead: Block.Guard can only hold one condition, so this
// port ends the current run right before such an instruction and lets
// the next GetOrEmit call re-enter at n==0 to pick it up guarded.
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
		cond := ir.Cond(field(word, 31, 28))
		k := classify(word)

		if k == kindBranch || k == kindBranchExchange {
			return translateBranchLike(e, k, word, pc, cond, cycles+1, finish)
		}

		if cond != ir.CondAL && cond != ir.CondNV {
			if n != 0 {
				// End the unconditional run here; re-decode this same
				// word as the sole content of a fresh guarded Block.
				return finish(cycles, pc, ir.LinkBlock(loc.New(pc)))
			}
			b.Guard = cond
			b.FallbackNext = loc.New(pc + 4)
			b.FallbackCycles = 1
			ok := translateOne(e, k, word)
			cycles++
			if !ok {
				e.ExceptionRaised(ir.ExceptionUnallocatedEncoding, word)
				return finish(cycles, pc+4, ir.ReturnToDispatch())
			}
			return finish(cycles, pc+4, ir.LinkBlock(loc.New(pc+4)))
		}

		if k == kindBarrier {
			emitBarrier(e, word)
			cycles++
			return finish(cycles, pc+4, ir.LinkBlock(loc.New(pc+4)))
		}

		ok := translateOne(e, k, word)
		cycles++
		if !ok {
			e.ExceptionRaised(ir.ExceptionUnallocatedEncoding, word)
			return finish(cycles, pc+4, ir.ReturnToDispatch())
		}
		pc += 4
	}
	return finish(cycles, pc, ir.LinkBlock(loc.New(pc)))
}

func translateBranchLike(e ir.Emitter, k kind, word uint32, pc uint32, cond ir.Cond, cycles uint32, finish func(uint32, uint32, *ir.Terminal) (*ir.Block, error)) (*ir.Block, error) {
	switch k {
	case kindBranch:
		link := bit(word, 24) == 1
		imm24 := field(word, 23, 0)
		offset := signExtend(imm24, 24) * 4
		target := loc.New(uint32(int64(pc) + int64(pcBias) + int64(offset)))
		if link {
			e.SetRegister(reg(14), ir.ImmU64(uint64(pc+4)))
		}
		if cond == ir.CondAL || cond == ir.CondNV {
			return finish(cycles, pc+4, ir.LinkBlock(target))
		}
		return finish(cycles, pc+4, ir.If(cond, ir.LinkBlock(target), ir.LinkBlock(loc.New(pc+4))))
	case kindBranchExchange:
		blx := bit(word, 5) == 1
		rm := field(word, 3, 0)
		if rm == 15 {
			e.ExceptionRaised(ir.ExceptionUnallocatedEncoding, word)
			return finish(cycles, pc+4, ir.ReturnToDispatch())
		}
		if blx {
			e.SetRegister(reg(14), ir.ImmU64(uint64(pc+4)))
		}
		if cond == ir.CondAL || cond == ir.CondNV {
			return finish(cycles, pc+4, ir.FastDispatchHint())
		}
		return finish(cycles, pc+4, ir.If(cond, ir.FastDispatchHint(), ir.LinkBlock(loc.New(pc+4))))
	}
	panic("BUG: translateBranchLike called with a non-branch kind")
}

func reg(idx uint32) ir.RegRef { return ir.RegRef{Class: ir.RegA32Core, Index: uint8(idx)} }

func getReg(e ir.Emitter, idx uint32) ir.Value { return e.GetRegister(reg(idx)) }

func setReg(e ir.Emitter, idx uint32, v ir.Value) { e.SetRegister(reg(idx), v) }

// narrow32 masks a 64-bit-carried register Value down to its
// architectural 32-bit range; every A32 core register is 32 bits wide
// regardless of the U64 type regValueType assigns GetRegister/
// SetRegister results (see ir/schema.go), mirroring the A64 frontend's
// own narrow() for the W-register (32-bit) form.
func narrow32(e ir.Emitter, v ir.Value) ir.Value {
	return e.ZeroExtend(ir.TypeU64, e.Truncate(ir.TypeU32, v))
}

func emitBarrier(e ir.Emitter, word uint32) {
	switch word {
	case 0xf57ff05f:
		e.DataMemoryBarrier()
	case 0xf57ff04f:
		e.DataSyncBarrier()
	case 0xf57ff06f:
		e.InstrSyncBarrier()
	}
}

// translateOne emits IR for a single non-branch, non-barrier
// instruction word. Reports false for any encoding this port does not
// implement, in which case the caller raises ExceptionUnallocatedEncoding
// rather than translating it wrong.
func translateOne(e ir.Emitter, k kind, word uint32) bool {
	switch k {
	case kindNop:
		e.Nop()
		return true
	case kindDataProcImm:
		return translateDataProc(e, word, true)
	case kindDataProcReg:
		return translateDataProc(e, word, false)
	case kindMul:
		return translateMul(e, word)
	case kindLoadStoreImm:
		return translateLoadStoreImm(e, word)
	default:
		return false
	}
}

// translateDataProc handles the data-processing opcode subset this
// port supports (AND, EOR, SUB, ADD, ORR, MOV, MVN, and CMP as a
// flags-only SUB) across both the immediate and register-with-
// immediate-shift addressing forms. Rd/Rn/Rm == r15 (reading or
// writing PC as a general operand) and register-specified shift
// amounts are scope cuts: both report false.
func translateDataProc(e ir.Emitter, word uint32, immediate bool) bool {
	opcode := field(word, 24, 21)
	setFlags := bit(word, 20) == 1
	rn := field(word, 19, 16)
	rd := field(word, 15, 12)
	if rd == 15 || rn == 15 {
		return false
	}
	switch opcode {
	case 0b0000, 0b0001, 0b0010, 0b0100, 0b1010, 0b1100, 0b1101, 0b1111:
		// supported below; CMP (0b1010) additionally requires S=1,
		// checked once the real emission starts.
	default:
		return false
	}
	if opcode == 0b1010 && !setFlags {
		// S=0 in this opcode slot is the MRS/MSR/misc-instruction
		// space, not CMP; not decoded as data processing at all.
		return false
	}

	var op2 ir.Value
	if immediate {
		imm8 := field(word, 7, 0)
		rotate := field(word, 11, 8)
		op2 = ir.ImmU64(uint64(rotateRightImm(imm8, rotate)))
	} else {
		rm := field(word, 3, 0)
		if rm == 15 || bit(word, 4) == 1 {
			return false
		}
		shiftAmt := field(word, 11, 7)
		shiftType := field(word, 6, 5)
		m := narrow32(e, getReg(e, rm))
		if shiftAmt != 0 {
			cnt := ir.ImmU64(uint64(shiftAmt))
			switch shiftType {
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
		op2 = m
	}

	var a ir.Value
	if opcode != 0b1101 && opcode != 0b1111 { // MOV/MVN ignore Rn
		a = narrow32(e, getReg(e, rn))
	}

	var result ir.Value
	switch opcode {
	case 0b0000: // AND
		result = e.And(a, op2)
	case 0b0001: // EOR
		result = e.Xor(a, op2)
	case 0b0010: // SUB
		result = e.Sub(a, op2)
	case 0b0100: // ADD
		result = e.Add(a, op2)
	case 0b1010: // CMP
		result = e.Sub(a, op2)
		e.SetNZCV(e.GetNZCVFromOp(result))
		return true
	case 0b1100: // ORR
		result = e.Or(a, op2)
	case 0b1101: // MOV
		result = op2
	case 0b1111: // MVN
		result = e.Not(op2)
	default:
		return false
	}
	if setFlags {
		e.SetNZCV(e.GetNZCVFromOp(result))
	}
	setReg(e, rd, narrow32(e, result))
	return true
}

func translateMul(e ir.Emitter, word uint32) bool {
	accumulate := bit(word, 21) == 1
	setFlags := bit(word, 20) == 1
	rd := field(word, 19, 16)
	ra := field(word, 15, 12)
	rs := field(word, 11, 8)
	rm := field(word, 3, 0)
	if rd == 15 || rm == 15 || rs == 15 || (accumulate && ra == 15) {
		return false
	}
	result := e.Mul(narrow32(e, getReg(e, rm)), narrow32(e, getReg(e, rs)))
	if accumulate {
		result = e.Add(result, narrow32(e, getReg(e, ra)))
	}
	result = narrow32(e, result)
	if setFlags {
		e.SetNZCV(e.GetNZFromOp(result))
	}
	setReg(e, rd, result)
	return true
}

// translateLoadStoreImm handles LDR/STR (immediate offset, word size,
// pre-indexed without writeback; P=1, W=0 per the decode.go pattern).
// Byte/halfword accesses, post-indexed and writeback addressing, and
// Rt/Rn == r15 (PC-relative literal loads, storing PC) are scope cuts.
func translateLoadStoreImm(e ir.Emitter, word uint32) bool {
	up := bit(word, 23) == 1
	load := bit(word, 20) == 1
	rn := field(word, 19, 16)
	rt := field(word, 15, 12)
	imm12 := field(word, 11, 0)
	if rn == 15 || rt == 15 {
		return false
	}
	base := narrow32(e, getReg(e, rn))
	var addr ir.Value
	if up {
		addr = narrow32(e, e.Add(base, ir.ImmU64(uint64(imm12))))
	} else {
		addr = narrow32(e, e.Sub(base, ir.ImmU64(uint64(imm12))))
	}
	if load {
		v := e.ReadMemory(32, ir.AccessNormal, addr)
		setReg(e, rt, narrow32(e, v))
		return true
	}
	e.WriteMemory(32, ir.AccessNormal, addr, narrow32(e, getReg(e, rt)))
	return true
}
