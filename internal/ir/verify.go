package ir

import "fmt"

// Verify checks a translated Block against the invariants of spec
// section 8: exactly one terminal, every operand referencing an
// Instruction ref must name an earlier Instruction in the same Block
// (operand locality: no forward references, no cross-block refs), every
// Instruction's recorded use count must match the number of live
// operand slots that actually reference it, and every live
// Instruction's operands must still satisfy its opcode's schema.
//
// This mirrors the teacher's decision to make verification a distinct
// optimizer-pipeline step (ssa/pass.go's RunPasses runs a dedicated
// verify-shaped pass after DCE) rather than inline assertions scattered
// through the builder.
func Verify(b *Block) error {
	if b.term == nil || b.term.Kind == TerminalInvalid {
		return fmt.Errorf("ir: block %s has no terminal", b.FormatHeader())
	}

	seen := make(map[*Instruction]bool)
	uses := make(map[*Instruction]int)

	for i := b.head; i != nil; i = i.next {
		if i.removed {
			return fmt.Errorf("ir: block %s: removed instruction %s still linked", b.FormatHeader(), i)
		}
		seen[i] = true

		if _, ok := checkOperands(i.opcode, i.Args()); !ok {
			return fmt.Errorf("ir: block %s: instruction %s fails schema check", b.FormatHeader(), i)
		}

		for n := 0; n < i.Arity(); n++ {
			a := i.args[n]
			if !a.IsInst() {
				continue
			}
			ref := a.Inst()
			if !seen[ref] {
				return fmt.Errorf("ir: block %s: instruction %s references %s out of program order", b.FormatHeader(), i, ref)
			}
			uses[ref]++
		}
	}

	for i := b.head; i != nil; i = i.next {
		if i.useCount != uses[i] {
			return fmt.Errorf("ir: block %s: instruction %s has stale use count %d, want %d", b.FormatHeader(), i, i.useCount, uses[i])
		}
	}

	if err := verifyTerminal(b, b.term, seen); err != nil {
		return err
	}

	return nil
}

func verifyTerminal(b *Block, t *Terminal, seen map[*Instruction]bool) error {
	if t == nil {
		return nil
	}
	switch t.Kind {
	case TerminalIf, TerminalCheckBit, TerminalCheckHalt:
		if t.Kind == TerminalCheckBit {
			if t.Bit.IsInst() && !seen[t.Bit.Inst()] {
				return fmt.Errorf("ir: block %s: terminal references an instruction outside the block", b.FormatHeader())
			}
		}
		if err := verifyTerminal(b, t.Then, seen); err != nil {
			return err
		}
		if err := verifyTerminal(b, t.Else, seen); err != nil {
			return err
		}
	}
	return nil
}
