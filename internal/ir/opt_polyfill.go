package ir

// passPolyfill expands opcodes that have no direct host encoding on the
// only fully-implemented backend (arm64, per SPEC_FULL.md's Open
// Question decision) into an equivalent sequence the backend can lower
// directly.
//
// arm64 has no rotate-left instruction, only ROR (EOR/EXTR-based RORs
// lower ROR immediate or register); every OpcodeRotl, whatever its
// amount, is rewritten here into Sub/Rotr so isa/arm64 only ever has to
// lower OpcodeRotr.
func passPolyfill(b *Block) {
	for i := b.head; i != nil; i = i.next {
		if i.removed || i.opcode != OpcodeRotl {
			continue
		}
		x, n := i.args[0], i.args[1]
		width := ImmOfType(n.Type(), uint64(x.Type().Bits()))
		neg := b.insertBefore(i, OpcodeSub, n.Type(), width, n)
		i.opcode = OpcodeRotr
		i.replaceArg(1, FromInst(neg))
	}
}
