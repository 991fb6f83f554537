package backend

import "github.com/armdbt/armdbt/internal/ir"

// CompilationContext carries the state shared across one Block's
// lowering: the VReg assigned to each value-producing Instruction and
// the RegAlloc that hands those VRegs real registers. Grounded on the
// teacher's backend.compiler (backend/compiler.go: ssaValuesToVRegs,
// nextVRegID, AllocateVReg), narrowed to a single Block instead of a
// reverse-postorder walk over an SSA function's block graph — this
// IR's Block is already the unit of straight-line code the teacher's
// multi-block functions are built from.
type CompilationContext struct {
	Regs *RegAlloc

	valueVRegs map[*ir.Instruction]VReg
	nextVReg   VRegID
}

// NewCompilationContext returns a CompilationContext whose RegAlloc
// allocates only from allocatable.
func NewCompilationContext(allocatable []RealReg) *CompilationContext {
	return &CompilationContext{
		Regs:       NewRegAlloc(allocatable),
		valueVRegs: make(map[*ir.Instruction]VReg),
	}
}

// assignVRegs walks b once, assigning a dense VReg to every live,
// result-producing, non-pseudo Instruction and declaring its use count
// (operand uses plus CheckBit terminal reads) to the RegAlloc. This is the liveness pre-pass spec section 4.4
// requires ("liveness is pre-computed by the naming pass").
func (cc *CompilationContext) assignVRegs(b *ir.Block) {
	cc.valueVRegs = make(map[*ir.Instruction]VReg)
	cc.nextVReg = 0
	cc.Regs.Reset()

	termUses := make(map[*ir.Instruction]int) // CheckBit reads, not part of UseCount
	var walk func(t *ir.Terminal)
	walk = func(t *ir.Terminal) {
		if t != nil {
			if t.Kind == ir.TerminalCheckBit && t.Bit.IsInst() {
				termUses[t.Bit.Inst()]++
			}
			walk(t.Then)
			walk(t.Else)
		}
	}
	walk(b.Terminal())

	b.Instructions(func(i *ir.Instruction) {
		if i.Type() == ir.TypeVoid || isPseudoOp(i.Opcode()) {
			return
		}
		id := cc.nextVReg
		cc.nextVReg++
		cc.valueVRegs[i] = NewVReg(id)
		if i.Opcode() == ir.OpcodeIdentity && i.Arg(0).IsImm() {
			cc.Regs.DeclareImmediate(id, i.Arg(0).Imm(), i.UseCount()+termUses[i])
		} else {
			cc.Regs.DeclareValue(id, i.UseCount()+termUses[i])
		}
	})
}

// VRegOf returns the VReg assigned to i's result, and whether one
// exists (false for Void-result or pseudo-op Instructions).
func (cc *CompilationContext) VRegOf(i *ir.Instruction) (VReg, bool) {
	v, ok := cc.valueVRegs[i]
	return v, ok
}

// Compile drives m through one full Block lowering: Reset, liveness
// assignment, StartBlock, one LowerInstr per live non-pseudo
// Instruction in program order, LowerTerminal, EndBlock.
func Compile(m Machine, allocatable []RealReg, b *ir.Block) (EmittedBlockInfo, error) {
	m.Reset()
	cc := NewCompilationContext(allocatable)
	cc.assignVRegs(b)
	m.StartBlock(cc, b)

	var firstErr error
	b.Instructions(func(i *ir.Instruction) {
		if firstErr != nil || i.Removed() || isPseudoOp(i.Opcode()) {
			return
		}
		if err := m.LowerInstr(cc, i); err != nil && firstErr == nil {
			firstErr = err
		}
	})
	if firstErr != nil {
		return EmittedBlockInfo{}, firstErr
	}
	if err := m.LowerTerminal(cc, b.Terminal()); err != nil {
		return EmittedBlockInfo{}, err
	}
	return m.EndBlock(), nil
}
