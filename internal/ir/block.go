package ir

import (
	"fmt"
	"strings"

	"github.com/armdbt/armdbt/internal/loc"
	"github.com/armdbt/armdbt/internal/mempool"
)

// Block is one translated basic block: a straight-line run of
// Instructions guarded by an (optional) ARM condition, ending in exactly
// one Terminal. It owns the arena its Instructions are allocated from,
// mirroring the teacher's basicBlock-owns-its-storage pattern (see
// ssa/basic_block.go) generalized with the reusable mempool.Pool arena
// instead of a bespoke per-field allocator.
type Block struct {
	arena mempool.Pool[Instruction]

	head, tail *Instruction

	// Start/End bound the guest address range this Block translates.
	Start, End loc.Descriptor

	// Guard is the condition under which this Block's body executes at
	// all; CondAL (the zero value after NewBlock) means unconditional.
	// A32 translation of a conditional non-branch instruction lowers to
	// this rather than to a per-instruction predicate, per spec section
	// 4.1; conditional branches use an If terminal instead, and IT blocks
	// are not translated.
	Guard Cond

	// FallbackNext, when Guard != CondAL, is the guest location to
	// resume at when Guard evaluates false at translation-discovery
	// time of a conditionally-skipped instruction sequence.
	FallbackNext loc.Descriptor
	// FallbackCycles is the cycle cost attributed to the guard-false
	// path, charged independently of Cycles.
	FallbackCycles uint32

	// Cycles is the cycle cost of executing this Block's body when the
	// guard is taken.
	Cycles uint32

	term *Terminal

	// pseudoUsers maps a flag-producing parent Instruction to the
	// GetNZFromOp/GetCarryFromOp/GetOverflowFromOp/GetNZCVFromOp pseudo
	// Instructions that reference it, per the side-table design note in
	// spec section 9 (avoids mutual/cyclic Instruction pointers).
	pseudoUsers map[*Instruction][]*Instruction

	nextName uint32
}

// NewBlock allocates an empty Block spanning [start, end) with an
// unconditional guard and no terminal set.
func NewBlock(start, end loc.Descriptor) *Block {
	return &Block{
		arena: mempool.New[Instruction](),
		Start: start,
		End:   end,
		Guard: CondAL,
	}
}

// Terminal returns the Block's terminal, or nil if it has not been set.
func (b *Block) Terminal() *Terminal { return b.term }

// SetTerminal installs the Block's single terminal. Calling this more
// than once per Block is a programmer error: spec section 4.3 invariant
// "each translated Block has exactly one terminal".
func (b *Block) SetTerminal(t *Terminal) {
	if b.term != nil {
		panic("BUG: Block already has a terminal")
	}
	b.term = t
}

// Head returns the first Instruction in the Block, or nil if empty.
func (b *Block) Head() *Instruction { return b.head }

// Tail returns the last Instruction in the Block, or nil if empty.
func (b *Block) Tail() *Instruction { return b.tail }

// emit allocates a new Instruction from the Block's arena, appends it to
// the tail of the instruction list, and returns it. Unexported: callers
// go through Emitter so that checkOperands always runs first.
func (b *Block) emit(op Opcode, result Type, args ...Value) *Instruction {
	inst := b.arena.Allocate()
	inst.init(op, result, args...)
	if b.tail == nil {
		b.head, b.tail = inst, inst
	} else {
		inst.prev = b.tail
		b.tail.next = inst
		b.tail = inst
	}
	return inst
}

// insertBefore allocates a new Instruction and splices it into the
// list immediately before at; used by optimizer passes (polyfill) that
// must introduce helper Instructions ahead of the one they are
// rewriting.
func (b *Block) insertBefore(at *Instruction, op Opcode, result Type, args ...Value) *Instruction {
	inst := b.arena.Allocate()
	inst.init(op, result, args...)
	inst.prev = at.prev
	inst.next = at
	if at.prev != nil {
		at.prev.next = inst
	} else {
		b.head = inst
	}
	at.prev = inst
	return inst
}

// remove unlinks inst from the instruction list and tombstones it; used
// by the dead-code-elimination and identity-removal passes. inst's own
// operand use-counts are decremented so transitively-dead producers are
// discoverable in the same pass.
func (b *Block) remove(inst *Instruction) {
	if inst.removed {
		return
	}
	if inst.useCount != 0 {
		panic("BUG: removing an Instruction that is still referenced")
	}
	for n := 0; n < inst.Arity(); n++ {
		if a := inst.args[n]; a.IsInst() {
			a.Inst().useCount--
		}
	}
	if inst.prev != nil {
		inst.prev.next = inst.next
	} else {
		b.head = inst.next
	}
	if inst.next != nil {
		inst.next.prev = inst.prev
	} else {
		b.tail = inst.prev
	}
	inst.removed = true
	inst.opcode = OpcodeVoid
}

// addPseudoUser records that pseudo references parent in the side
// table, rather than storing a back-pointer on parent itself.
func (b *Block) addPseudoUser(parent, pseudo *Instruction) {
	if b.pseudoUsers == nil {
		b.pseudoUsers = make(map[*Instruction][]*Instruction)
	}
	b.pseudoUsers[parent] = append(b.pseudoUsers[parent], pseudo)
}

// PseudoUsers returns the flag-pseudo Instructions (GetNZFromOp and
// friends) registered against parent, if any.
func (b *Block) PseudoUsers(parent *Instruction) []*Instruction {
	return b.pseudoUsers[parent]
}

// Instructions calls fn for every live Instruction in program order.
func (b *Block) Instructions(fn func(*Instruction)) {
	for i := b.head; i != nil; i = i.next {
		fn(i)
	}
}

// assignNames walks the Block in program order and assigns each live,
// result-producing Instruction a dense debug name; used by the naming
// optimizer pass and by Format.
func (b *Block) assignNames() {
	b.nextName = 1
	for i := b.head; i != nil; i = i.next {
		if i.result != TypeVoid {
			i.name = b.nextName
			b.nextName++
		}
	}
}

// FormatHeader renders the Block's address range and guard, mirroring
// the teacher's basicBlock.FormatHeader debug style.
func (b *Block) FormatHeader() string {
	if b.Guard == CondAL {
		return fmt.Sprintf("block[%s:%s]", b.Start, b.End)
	}
	return fmt.Sprintf("block[%s:%s, guard=%s, fallback=%s]", b.Start, b.End, b.Guard, b.FallbackNext)
}

// Format renders the full Block body and terminal for debug dumps.
func (b *Block) Format() string {
	var sb strings.Builder
	sb.WriteString(b.FormatHeader())
	sb.WriteByte('\n')
	b.Instructions(func(i *Instruction) {
		if i.name != 0 {
			fmt.Fprintf(&sb, "    v%d = %s\n", i.name, i.String())
		} else {
			fmt.Fprintf(&sb, "    %s\n", i.String())
		}
	})
	sb.WriteString("    ")
	sb.WriteString(formatTerminal(b.term))
	sb.WriteByte('\n')
	return sb.String()
}

func formatTerminal(t *Terminal) string {
	if t == nil {
		return "<no terminal>"
	}
	switch t.Kind {
	case TerminalInvalid:
		return "<invalid terminal>"
	case TerminalInterpret:
		return fmt.Sprintf("interpret %s", t.Next)
	case TerminalReturnToDispatch:
		return "return_to_dispatch"
	case TerminalLinkBlock:
		return fmt.Sprintf("link_block %s", t.Next)
	case TerminalLinkBlockFast:
		return fmt.Sprintf("link_block_fast %s", t.Next)
	case TerminalPopRSBHint:
		return "pop_rsb_hint"
	case TerminalFastDispatchHint:
		return "fast_dispatch_hint"
	case TerminalIf:
		return fmt.Sprintf("if %s then {%s} else {%s}", t.Cond, formatTerminal(t.Then), formatTerminal(t.Else))
	case TerminalCheckBit:
		return fmt.Sprintf("check_bit %s then {%s} else {%s}", t.Bit, formatTerminal(t.Then), formatTerminal(t.Else))
	case TerminalCheckHalt:
		return fmt.Sprintf("check_halt else {%s}", formatTerminal(t.Else))
	default:
		return "<unknown terminal>"
	}
}
