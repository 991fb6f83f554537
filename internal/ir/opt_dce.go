package ir

// passDeadCodeElimination removes every Instruction whose result is
// unused and which has no block-visible side effect (memory/register
// writes, barriers, exceptions and SVC calls are never eliminated).
// Grounded on the teacher's ssa/opt.go dead-code-elimination pass,
// generalized from SSA-value liveness to this IR's explicit use-count
// field.
//
// Runs to a fixpoint within one Block: removing a dead Instruction can
// drop its operands' use counts to zero, making them dead in turn.
//
// useCount alone undercounts liveness: a Block's Terminal can reference
// an Instruction directly (TerminalCheckBit.Bit, the CBZ/CBNZ case)
// without that reference ever incrementing useCount, since Terminal is
// not itself an Instruction operand slot (see terminal.go/verify.go,
// which likewise never counts it). terminalRoots below seeds the set
// of such Instructions so this pass never tombstones the producer of a
// value the terminal still reads.
func passDeadCodeElimination(b *Block) {
	roots := terminalRoots(b.term)
	for {
		changed := false
		for i := b.tail; i != nil; {
			prev := i.prev
			if !i.removed && i.useCount == 0 && !roots[i] && !hasSideEffect(i.opcode) {
				b.remove(i)
				changed = true
			}
			i = prev
		}
		if !changed {
			return
		}
	}
}

// terminalRoots collects every Instruction a Terminal tree references
// directly, walking Then/Else so a guarded CheckBit nested under an If
// (or vice versa) is still found.
func terminalRoots(t *Terminal) map[*Instruction]bool {
	roots := make(map[*Instruction]bool)
	var walk func(*Terminal)
	walk = func(t *Terminal) {
		if t == nil {
			return
		}
		if t.Kind == TerminalCheckBit && t.Bit.IsInst() {
			roots[t.Bit.Inst()] = true
		}
		walk(t.Then)
		walk(t.Else)
	}
	walk(t)
	return roots
}

func hasSideEffect(op Opcode) bool {
	switch op {
	case OpcodeSetRegister, OpcodeSetNZCV,
		OpcodeWriteMemory8, OpcodeWriteMemory16, OpcodeWriteMemory32, OpcodeWriteMemory64, OpcodeWriteMemory128,
		OpcodeWriteMemoryExclusive8, OpcodeWriteMemoryExclusive16, OpcodeWriteMemoryExclusive32,
		OpcodeWriteMemoryExclusive64, OpcodeWriteMemoryExclusive128,
		OpcodeExceptionRaised, OpcodeCallSVC,
		OpcodeDataMemoryBarrier, OpcodeDataSyncBarrier, OpcodeInstrSyncBarrier:
		return true
	// ReadMemoryExclusive* establishes the exclusive monitor even if its
	// result is discarded; treat it as effectful rather than prune the
	// monitor-arming side effect.
	case OpcodeReadMemoryExclusive8, OpcodeReadMemoryExclusive16, OpcodeReadMemoryExclusive32,
		OpcodeReadMemoryExclusive64, OpcodeReadMemoryExclusive128:
		return true
	default:
		return false
	}
}
