package backend

import (
	"errors"

	"github.com/armdbt/armdbt/internal/ir"
)

// ErrUnimplementedOpcode is returned by a Machine's LowerInstr/
// LowerTerminal when the target ISA has no lowering for the given
// opcode. Spec section 7 classifies this as an invariant failure in a
// complete backend ("the emitter asserts and aborts the process"); the
// amd64 and riscv64 stub backends instead return it as an ordinary
// error so a caller that only needs arm64 support can detect the gap
// without a panic (SPEC_FULL.md Open Question #2).
var ErrUnimplementedOpcode = errors.New("backend: unimplemented opcode")

// Machine is the per-ISA half of the Host Code Emitter (spec section
// 4.4). A CompilationContext drives one Machine through a Block:
// Reset, StartBlock, one LowerInstr call per live Instruction in
// program order, one LowerTerminal call, then EndBlock.
//
// Grounded on the teacher's backend.Machine interface
// (backend/machine.go: SetCompilationContext/StartBlock/LowerInstr/
// EndBlock/Reset), narrowed from "lower an SSA function's basic
// blocks" to "lower one straight-line DBT Block", and with Terminal
// lowering split out since this IR's Terminal has no teacher
// equivalent (see DESIGN.md).
type Machine interface {
	// Name identifies the target ISA, for logging and diagnostics.
	Name() string
	// Reset clears all per-block state, ready for the next Block.
	Reset()
	// StartBlock is called once, before any LowerInstr, with the Block
	// about to be lowered.
	StartBlock(cc *CompilationContext, b *ir.Block)
	// LowerInstr lowers one live, non-pseudo Instruction. Pseudo-ops
	// (GetNZFromOp and friends) are never passed here; they are
	// realized as a side effect of lowering their parent.
	LowerInstr(cc *CompilationContext, i *ir.Instruction) error
	// LowerTerminal lowers the Block's single Terminal.
	LowerTerminal(cc *CompilationContext, t *ir.Terminal) error
	// EndBlock finalizes the code buffer for this Block and returns its
	// EmittedBlockInfo.
	EndBlock() EmittedBlockInfo
}

// isPseudoOp reports whether op is one of the flag pseudo-operations
// that produce no host code of their own (spec section 4.1/4.4).
func isPseudoOp(op ir.Opcode) bool {
	switch op {
	case ir.OpcodeGetNZFromOp, ir.OpcodeGetCarryFromOp, ir.OpcodeGetOverflowFromOp, ir.OpcodeGetNZCVFromOp:
		return true
	default:
		return false
	}
}
