package ir

import "fmt"

// Instruction is one node of the IR: a microinstruction. It implements
// the "back-reference" payload of Value (via FromInst) because some
// instructions produce a value consumable by later instructions in the
// same Block.
//
// Instruction is grounded on the teacher's ssa.Instruction shape
// (Opcode field + intrusive list hooks), generalized per spec section 3
// to carry a fixed-arity operand array, a use count, and an optional
// debug name.
type Instruction struct {
	opcode Opcode
	args   [3]Value // fixed-size; spec's opcodes all have arity <= 3
	nargs  uint8

	result Type

	// useCount is the number of operand slots, anywhere in the owning
	// Block, that reference this Instruction.
	useCount int

	// name is a dense integer identifier assigned by the naming pass
	// for debug dumps; zero until assigned.
	name uint32

	// prev/next make Instruction a node of the Block's intrusive
	// doubly-linked instruction list.
	prev, next *Instruction

	// removed marks an Instruction invalidated by DCE/identity-removal;
	// such nodes are unlinked from the list but their backing memory is
	// not reclaimed until the owning Block's arena is reset.
	removed bool
}

// Opcode returns the instruction's opcode.
func (i *Instruction) Opcode() Opcode { return i.opcode }

// Type returns the type of the instruction's primary result, or
// TypeVoid if it has none.
func (i *Instruction) Type() Type { return i.result }

// Arity returns the number of operand slots in use.
func (i *Instruction) Arity() int { return int(i.nargs) }

// Arg returns the n-th operand.
func (i *Instruction) Arg(n int) Value { return i.args[n] }

// Args returns a slice view of the operands currently in use. The slice
// aliases the Instruction's backing array and must not be retained
// past the next mutation of this Instruction.
func (i *Instruction) Args() []Value { return i.args[:i.nargs] }

// UseCount returns the number of operand slots that reference this
// Instruction's result.
func (i *Instruction) UseCount() int { return i.useCount }

// Name returns the dense debug name assigned by the naming pass (0 if
// not yet named).
func (i *Instruction) Name() uint32 { return i.name }

// Removed reports whether this Instruction has been invalidated by an
// optimizer pass.
func (i *Instruction) Removed() bool { return i.removed }

// Next returns the next instruction in the owning Block's list, or nil
// at the tail.
func (i *Instruction) Next() *Instruction { return i.next }

// Prev returns the previous instruction in the owning Block's list, or
// nil at the head.
func (i *Instruction) Prev() *Instruction { return i.prev }

// init sets the opcode/args/result of a freshly-allocated Instruction
// and links use counts for any operand that is itself an Inst
// reference. Called only by Block/Emitter at construction time.
func (i *Instruction) init(op Opcode, result Type, args ...Value) {
	if len(args) > len(i.args) {
		panic(fmt.Sprintf("BUG: opcode %s has arity %d > max %d", op, len(args), len(i.args)))
	}
	i.opcode = op
	i.result = result
	i.nargs = uint8(len(args))
	for n, a := range args {
		i.args[n] = a
		if a.IsInst() {
			a.Inst().useCount++
		}
	}
}

// replaceArg overwrites operand slot n, adjusting use counts of the old
// and new operands if they are Inst references.
func (i *Instruction) replaceArg(n int, v Value) {
	old := i.args[n]
	if old.IsInst() {
		old.Inst().useCount--
	}
	if v.IsInst() {
		v.Inst().useCount++
	}
	i.args[n] = v
}

// String implements fmt.Stringer for debug dumps.
func (i *Instruction) String() string {
	args := make([]interface{}, 0, i.nargs+2)
	args = append(args, i.opcode.String())
	for n := 0; n < int(i.nargs); n++ {
		args = append(args, i.args[n].String())
	}
	return fmt.Sprint(args...)
}
