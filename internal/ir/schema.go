package ir

// checkOperands validates args against the fixed arity/type schema for
// op and returns the opcode's result type (TypeVoid for opcodes with no
// result) and whether the operands are well-formed.
//
// This single function backs both the Emitter (which asserts on
// mismatch — spec section 4.2: "type-checks ... assertion, not runtime
// branch") and the verifier pass (which reports failure as an invariant
// violation — spec section 4.3 step 8 / section 8).
func checkOperands(op Opcode, args []Value) (result Type, ok bool) {
	isInt := func(t Type) bool {
		switch t {
		case TypeU1, TypeU8, TypeU16, TypeU32, TypeU64, TypeU128:
			return true
		default:
			return false
		}
	}
	binarySameType := func() (Type, bool) {
		if len(args) != 2 {
			return TypeInvalid, false
		}
		t := args[0].Type()
		if !isInt(t) || !t.Compatible(args[1].Type()) {
			return TypeInvalid, false
		}
		return t, true
	}
	unarySameType := func() (Type, bool) {
		if len(args) != 1 {
			return TypeInvalid, false
		}
		t := args[0].Type()
		if !isInt(t) {
			return TypeInvalid, false
		}
		return t, true
	}

	switch op {
	case OpcodeAdd, OpcodeSub, OpcodeMul, OpcodeUMulHi, OpcodeSMulHi,
		OpcodeUDiv, OpcodeSDiv, OpcodeURem, OpcodeSRem,
		OpcodeAnd, OpcodeOr, OpcodeXor, OpcodeAndNot,
		OpcodeShl, OpcodeLshr, OpcodeAshr, OpcodeRotl, OpcodeRotr:
		return binarySameType()

	case OpcodeNeg, OpcodeNot, OpcodeClz, OpcodeCls, OpcodeCtz,
		OpcodeBswap, OpcodePopcnt, OpcodeBitReverse:
		return unarySameType()

	case OpcodeGetNZFromOp, OpcodeGetNZCVFromOp:
		if len(args) != 1 || args[0].Type() == TypeInvalid {
			return TypeInvalid, false
		}
		return TypeNZCV, true

	case OpcodeGetCarryFromOp, OpcodeGetOverflowFromOp:
		if len(args) != 1 || args[0].Type() == TypeInvalid {
			return TypeInvalid, false
		}
		return TypeU1, true

	case OpcodeEvalCond:
		if len(args) != 2 || args[0].Type() != TypeU8 || args[1].Type() != TypeNZCV {
			return TypeInvalid, false
		}
		return TypeU1, true

	case OpcodeGetRegister:
		if len(args) != 1 || !args[0].IsReg() {
			return TypeInvalid, false
		}
		return regValueType(args[0].Reg()), true

	case OpcodeSetRegister:
		if len(args) != 2 || !args[0].IsReg() {
			return TypeInvalid, false
		}
		return TypeVoid, true

	case OpcodeGetNZCV:
		if len(args) != 0 {
			return TypeInvalid, false
		}
		return TypeNZCV, true

	case OpcodeSetNZCV:
		if len(args) != 1 || args[0].Type() != TypeNZCV {
			return TypeInvalid, false
		}
		return TypeVoid, true

	case OpcodeGetCFlag:
		if len(args) != 0 {
			return TypeInvalid, false
		}
		return TypeU1, true

	case OpcodeReadMemory8, OpcodeReadMemory16, OpcodeReadMemory32,
		OpcodeReadMemory64, OpcodeReadMemory128,
		OpcodeReadMemoryExclusive8, OpcodeReadMemoryExclusive16,
		OpcodeReadMemoryExclusive32, OpcodeReadMemoryExclusive64,
		OpcodeReadMemoryExclusive128:
		if len(args) != 2 || args[0].Type() != TypeU8 || !isAddr(args[1].Type()) {
			return TypeInvalid, false
		}
		return memReadResultType(op), true

	case OpcodeWriteMemory8, OpcodeWriteMemory16, OpcodeWriteMemory32,
		OpcodeWriteMemory64, OpcodeWriteMemory128:
		if len(args) != 3 || args[0].Type() != TypeU8 || !isAddr(args[1].Type()) {
			return TypeInvalid, false
		}
		return TypeVoid, true

	case OpcodeWriteMemoryExclusive8, OpcodeWriteMemoryExclusive16,
		OpcodeWriteMemoryExclusive32, OpcodeWriteMemoryExclusive64,
		OpcodeWriteMemoryExclusive128:
		if len(args) != 3 || args[0].Type() != TypeU8 || !isAddr(args[1].Type()) {
			return TypeInvalid, false
		}
		return TypeU1, true

	case OpcodeZeroExtend, OpcodeSignExtend, OpcodeTruncate, OpcodeBitcast, OpcodeIdentity:
		if len(args) != 1 {
			return TypeInvalid, false
		}
		return args[0].Type(), true // overridden by the Inst's own declared result type at construction

	case OpcodeFPAdd, OpcodeFPSub, OpcodeFPMul, OpcodeFPDiv:
		if len(args) != 2 || (args[0].Type() != TypeU32 && args[0].Type() != TypeU64) {
			return TypeInvalid, false
		}
		return args[0].Type(), true

	case OpcodeFPNeg, OpcodeFPAbs, OpcodeFPSqrt:
		if len(args) != 1 {
			return TypeInvalid, false
		}
		return args[0].Type(), true

	case OpcodeFPCompare:
		if len(args) != 2 {
			return TypeInvalid, false
		}
		return TypeU8, true

	case OpcodeFPToFixed, OpcodeFixedToFP:
		if len(args) != 1 {
			return TypeInvalid, false
		}
		return args[0].Type(), true // concrete width fixed up by the builder

	case OpcodeVectorSplat:
		if len(args) != 1 {
			return TypeInvalid, false
		}
		return TypeU128, true

	case OpcodeVectorExtractLane:
		if len(args) != 2 || args[0].Type() != TypeU128 {
			return TypeInvalid, false
		}
		return TypeU32, true

	case OpcodeVectorInsertLane:
		if len(args) != 3 || args[0].Type() != TypeU128 {
			return TypeInvalid, false
		}
		return TypeU128, true

	case OpcodeExceptionRaised:
		if len(args) != 2 || args[0].Type() != TypeU8 || args[1].Type() != TypeU32 {
			return TypeInvalid, false
		}
		return TypeVoid, true

	case OpcodeCallSVC:
		if len(args) != 1 || args[0].Type() != TypeU32 {
			return TypeInvalid, false
		}
		return TypeVoid, true

	case OpcodeDataMemoryBarrier, OpcodeDataSyncBarrier, OpcodeInstrSyncBarrier, OpcodeNop:
		if len(args) != 0 {
			return TypeInvalid, false
		}
		return TypeVoid, true

	case OpcodeVoid:
		return TypeVoid, true

	default:
		return TypeInvalid, false
	}
}

func isAddr(t Type) bool { return t == TypeU32 || t == TypeU64 }

func memReadResultType(op Opcode) Type {
	switch op {
	case OpcodeReadMemory8, OpcodeReadMemoryExclusive8:
		return TypeU8
	case OpcodeReadMemory16, OpcodeReadMemoryExclusive16:
		return TypeU16
	case OpcodeReadMemory32, OpcodeReadMemoryExclusive32:
		return TypeU32
	case OpcodeReadMemory64, OpcodeReadMemoryExclusive64:
		return TypeU64
	case OpcodeReadMemory128, OpcodeReadMemoryExclusive128:
		return TypeU128
	default:
		return TypeInvalid
	}
}

func regValueType(r RegRef) Type {
	switch r.Class {
	case RegA32Core, RegA64Core:
		return TypeU64
	case RegA32Ext, RegA64Vector:
		return TypeU128
	case RegSpecial:
		return TypeU32
	default:
		return TypeInvalid
	}
}
