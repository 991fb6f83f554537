// Package backend hosts the host-independent half of the Host Code
// Emitter and Register Allocator described in spec section 4.4: the
// CompilationContext that walks a translated Block and the VReg/RealReg
// model the allocator and every ISA-specific Machine share. Each
// concrete ISA (internal/backend/isa/arm64 and its amd64/riscv64 stubs)
// implements the Machine interface declared here.
//
// Grounded on the teacher's backend.Compiler/backend.VReg split
// (backend/compiler.go, backend/vreg.go), adapted from "compile a
// multi-block SSA function" to "compile one straight-line DBT Block".
package backend

// VRegID is the dense identifier assigned to a virtual register; one
// per live-across-instruction value the compiler tracks.
type VRegID uint32

// RealReg identifies a host physical register. Each ISA package defines
// its own constants in this numeric space (mirrors the teacher's
// backend/isa/arm64/reg.go RealReg enum).
type RealReg uint16

// RealRegInvalid marks a VReg that has not yet been assigned a physical
// register (or a spill slot instead).
const RealRegInvalid RealReg = 0xffff

// VReg packs a RealReg assignment (high 32 bits) and a VRegID (low 32
// bits), exactly as the teacher's backend/vreg.go packs VReg = RealReg
// <<32 | ID.
type VReg uint64

// NewVReg constructs an unassigned VReg for id.
func NewVReg(id VRegID) VReg {
	return VReg(uint64(id) | uint64(RealRegInvalid)<<32)
}

// ID returns the dense virtual register id.
func (v VReg) ID() VRegID { return VRegID(v) }

// RealReg returns the currently assigned physical register, or
// RealRegInvalid if v is still unassigned (e.g. spilled).
func (v VReg) RealReg() RealReg { return RealReg(v >> 32) }

// WithRealReg returns v with its physical-register assignment replaced.
func (v VReg) WithRealReg(r RealReg) VReg {
	return VReg(uint64(v.ID()) | uint64(r)<<32)
}

// VRegInvalid is the "no value" sentinel: ID 0 with no RealReg assigned
// (RealRegInvalid), so it is not the zero VReg.
const VRegInvalid VReg = VReg(uint64(RealRegInvalid) << 32)
