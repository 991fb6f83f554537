// Package callbacks defines the System -> Host contract every
// embedding program must implement: guest memory access, the
// read-only-memory oracle the constant-memory-read optimization
// queries, and the exception/tick/barrier notification methods.
// Grounded directly on spec
// section 6's callback list; kept as its own package (rather than
// living in internal/cache or internal/frontend) so both can depend on
// the contract without depending on each other.
package callbacks

import "github.com/armdbt/armdbt/internal/ir"

// Memory is the guest-memory half of the contract: width-bit reads and
// writes qualified by an AccessType, exclusive-monitor-checked writes,
// and the read-only-region oracle passConstantMemoryReads consults.
//
// width is one of 8, 16, 32, 64, 128; 128-bit accesses carry only their
// low 64 bits through Value's uint64 payload (the same cut
// opt_constmem.go documents for constant folding — a guest OP that
// truly needs the high 64 bits does not yet fold or bridge through this
// interface and must be polyfilled to a pair of 64-bit accesses ahead
// of lowering).
type Memory interface {
	Read(width int, at ir.AccessType, vaddr uint64) uint64
	Write(width int, at ir.AccessType, vaddr uint64, value uint64)
	// ReadExclusive tags vaddr for the calling processor as a side
	// effect, mirroring an LDXR.
	ReadExclusive(width int, at ir.AccessType, processor uint32, vaddr uint64) uint64
	// WriteExclusive succeeds (returns true) only if the exclusive
	// monitor still holds processor's tag on vaddr, mirroring STXR.
	WriteExclusive(width int, at ir.AccessType, processor uint32, vaddr uint64, value uint64) bool
	// IsReadOnlyMemory reports whether vaddr falls within a region the
	// embedder guarantees is immutable for the life of the current
	// translation (spec section 4.3 step 4).
	IsReadOnlyMemory(vaddr uint64) bool
}

// System is the remaining host callback surface: privileged/system
// instruction effects and tick-budget accounting. No code in this
// module calls these methods.
type System interface {
	CallSVC(swiNumber uint32)
	ExceptionRaised(pc uint64, kind ir.ExceptionKind)
	InstructionSynchronizationBarrierRaised(pc uint64)
	// AddTicks takes a number of consumed cycles. RunCode and StepCode
	// do not call it, so consumed cycles are not reported to the host.
	AddTicks(n uint64)
	GetTicksRemaining() uint64
}

// Callbacks bundles both halves; an embedder supplies one
// implementation per guest core.
type Callbacks interface {
	Memory
	System
}
