// Package riscv64 is the RISC-V 64 host backend's placeholder Machine.
//
// See the amd64 sibling package's doc comment: this target shares the
// same rationale for staying an unimplemented stub while arm64 carries
// the full Host Code Emitter.
package riscv64

import (
	"github.com/armdbt/armdbt/internal/backend"
	"github.com/armdbt/armdbt/internal/ir"
)

// Machine is an unimplemented backend.Machine for the riscv64 target.
type Machine struct {
	size int
}

// New returns a fresh riscv64 Machine.
func New() *Machine { return &Machine{} }

func (m *Machine) Name() string { return "riscv64" }

func (m *Machine) Reset() { m.size = 0 }

func (m *Machine) StartBlock(cc *backend.CompilationContext, b *ir.Block) {}

func (m *Machine) LowerInstr(cc *backend.CompilationContext, i *ir.Instruction) error {
	return backend.ErrUnimplementedOpcode
}

func (m *Machine) LowerTerminal(cc *backend.CompilationContext, t *ir.Terminal) error {
	return backend.ErrUnimplementedOpcode
}

func (m *Machine) EndBlock() backend.EmittedBlockInfo {
	return backend.EmittedBlockInfo{}
}
