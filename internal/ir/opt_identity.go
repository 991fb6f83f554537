package ir

// passIdentityRemoval replaces every use of an OpcodeIdentity result
// with the aliased value directly, transitively resolving chains of
// identities produced by earlier passes (constant propagation and
// getset-elimination both alias rather than delete in place). The
// Identity Instructions themselves are left for passDeadCodeElimination
// to sweep once their use count reaches zero.
//
// Grounded on the teacher's ssa/opt.go alias-resolution technique in
// its redundant-PHI-elimination pass (blk.alias), adapted here to a
// single explicit Identity opcode instead of block-level aliasing.
func passIdentityRemoval(b *Block) {
	resolve := func(v Value) Value {
		for v.IsInst() && v.Inst().opcode == OpcodeIdentity {
			v = v.Inst().args[0]
		}
		return v
	}

	for i := b.head; i != nil; i = i.next {
		if i.removed || i.opcode == OpcodeIdentity {
			continue
		}
		for n := 0; n < i.Arity(); n++ {
			if resolved := resolve(i.args[n]); resolved != i.args[n] {
				i.replaceArg(n, resolved)
			}
		}
	}

	resolveTerminal(b.term, resolve)
}

func resolveTerminal(t *Terminal, resolve func(Value) Value) {
	if t == nil {
		return
	}
	if t.Kind == TerminalCheckBit {
		t.Bit = resolve(t.Bit)
	}
	resolveTerminal(t.Then, resolve)
	resolveTerminal(t.Else, resolve)
}
