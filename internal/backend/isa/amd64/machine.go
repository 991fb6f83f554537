// Package amd64 is the x86-64 host backend's placeholder Machine.
//
// SPEC_FULL.md's domain stack targets x86-64 as a host ISA alongside
// arm64 and riscv64, but this port's Host Code Emitter work went into
// the arm64 encoder (internal/backend/isa/arm64); this package keeps
// the same per-ISA package shape the teacher uses
// (backend/isa/arm64, backend/isa/amd64) so a real encoder can be
// dropped in here later without touching CompilationContext or any
// caller, and so callers that only need arm64 coverage can still
// reference backend.Machine for every target uniformly.
package amd64

import (
	"github.com/armdbt/armdbt/internal/backend"
	"github.com/armdbt/armdbt/internal/ir"
)

// Machine is an unimplemented backend.Machine for the x86-64 target.
// Every lowering call returns backend.ErrUnimplementedOpcode rather
// than panicking, per SPEC_FULL.md's Open Question on how incomplete
// backends should fail.
type Machine struct {
	size int
}

// New returns a fresh amd64 Machine.
func New() *Machine { return &Machine{} }

func (m *Machine) Name() string { return "amd64" }

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
