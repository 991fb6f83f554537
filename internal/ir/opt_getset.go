package ir

// passGetSetElimination forwards a SetRegister's stored value directly
// to a later GetRegister of the same guest register when no
// intervening Instruction could have redefined it, turning the Get
// into an Identity alias. This is the A32-targeted "redundant
// get/set elimination" named in spec section 4.3 step 5: ARM32
// translation emits a GetRegister/SetRegister pair per operand/result
// far more often than A64 does, since A32 has no notion of an SSA
// register file of its own.
//
// Block bodies are already straight-line (no internal control-flow
// merges), so a single forward scan with a "last known value per
// register" table is sound: nothing downstream of a Set can observe a
// different value for that register until the next Set.
func passGetSetElimination(b *Block) {
	type key struct {
		class RegClass
		index uint8
	}
	last := make(map[key]Value)

	for i := b.head; i != nil; i = i.next {
		if i.removed {
			continue
		}
		switch i.opcode {
		case OpcodeGetRegister:
			ref := i.args[0].Reg()
			k := key{ref.Class, ref.Index}
			if v, ok := last[k]; ok {
				i.opcode = OpcodeIdentity
				i.nargs = 1
				i.args[0] = v
				i.args[1] = Value{}
			}
		case OpcodeSetRegister:
			ref := i.args[0].Reg()
			k := key{ref.Class, ref.Index}
			last[k] = i.args[1]
		}
	}
}

// passConvertNZCToNZ rewrites GetNZCVFromOp pseudo-results to the
// cheaper GetNZFromOp form wherever every consumer only ever extracts
// the N and Z bits from the result (tested via EvalCond with one of
// the conditions that read only N/Z or no flag at all: eq, ne, mi, pl,
// al, nv), since
// GetNZFromOp needs not compute carry/overflow on host ISAs where that
// is a separate, costlier instruction sequence (spec section 4.1).
func passConvertNZCToNZ(b *Block) {
	for i := b.head; i != nil; i = i.next {
		if i.removed || i.opcode != OpcodeGetNZCVFromOp {
			continue
		}
		if i.useCount > 0 && onlyNZConsumers(b, i) {
			i.opcode = OpcodeGetNZFromOp
		}
	}
}

// onlyNZConsumers scans the whole block for every Instruction that
// consumes nzcv's result and reports whether each such consumer only
// ever needs the N/Z bits of the NZCV nibble.
func onlyNZConsumers(b *Block, nzcv *Instruction) bool {
	found := 0
	for c := b.head; c != nil; c = c.next {
		for n := 0; n < c.Arity(); n++ {
			a := c.args[n]
			if !a.IsInst() || a.Inst() != nzcv {
				continue
			}
			found++
			if c.opcode != OpcodeEvalCond || n != 1 {
				return false
			}
			switch Cond(c.args[0].Imm()) {
			case CondEQ, CondNE, CondMI, CondPL, CondAL, CondNV:
			default:
				return false
			}
		}
	}
	return found == nzcv.useCount
}
