package backend

import "github.com/armdbt/armdbt/internal/loc"

// LinkTargetKind discriminates a Relocation's target.
type LinkTargetKind uint8

const (
	LinkReturnFromRunCode LinkTargetKind = iota
	LinkReturnToDispatcher
	LinkBlockEntry
)

// LinkTarget names what a Relocation should ultimately be patched to
// point at, per spec section 3's EmittedBlockInfo data model.
type LinkTarget struct {
	Kind LinkTargetKind
	// Block is valid only when Kind == LinkBlockEntry.
	Block loc.Descriptor
}

// Relocation is one deferred patch site in emitted host code.
type Relocation struct {
	Offset int
	Target LinkTarget
}

// EmittedBlockInfo is the result of lowering one Block to host code:
// its entry pointer (an offset into Code; the cache resolves it to an
// absolute address from where it places Code in its buffer), its size, and
// the relocations the cache must patch before the block is runnable.
type EmittedBlockInfo struct {
	EntryOffset int
	Size        int
	Relocations []Relocation
	// Code is the raw emitted instruction bytes for this Block, owned
	// by the caller (a copy out of the Machine's internal code buffer,
	// mirroring the teacher's own copy-out-then-reset pattern in
	// wazevo.go's CompileModule loop).
	Code []byte
}
