package a32

import (
	"testing"

	"github.com/armdbt/armdbt/internal/cache"
	"github.com/armdbt/armdbt/internal/ir"
	"github.com/armdbt/armdbt/internal/loc"
)

type fakeCallbacks struct {
	words map[uint64]uint32
}

func (f fakeCallbacks) Read(width int, at ir.AccessType, vaddr uint64) uint64 {
	return uint64(f.words[vaddr])
}
func (f fakeCallbacks) Write(width int, at ir.AccessType, vaddr uint64, value uint64) {}
func (f fakeCallbacks) ReadExclusive(width int, at ir.AccessType, processor uint32, vaddr uint64) uint64 {
	return 0
}
func (f fakeCallbacks) WriteExclusive(width int, at ir.AccessType, processor uint32, vaddr, value uint64) bool {
	return true
}
func (f fakeCallbacks) IsReadOnlyMemory(vaddr uint64) bool               { return false }
func (f fakeCallbacks) CallSVC(swiNumber uint32)                        {}
func (f fakeCallbacks) ExceptionRaised(pc uint64, kind ir.ExceptionKind) {}
func (f fakeCallbacks) InstructionSynchronizationBarrierRaised(pc uint64) {}
func (f fakeCallbacks) AddTicks(n uint64)                                 {}
func (f fakeCallbacks) GetTicksRemaining() uint64                         { return 0 }

func countInstructions(b *ir.Block) int {
	n := 0
	b.Instructions(func(*ir.Instruction) { n++ })
	return n
}

func TestTranslate_StraightLineEndsAtBranchExchange(t *testing.T) {
	cb := fakeCallbacks{words: map[uint64]uint32{
		0x1000: 0xe3a00005, // mov r0, #5
		0x1004: 0xe2800001, // add r0, r0, #1
		0x1008: 0xe12fff1e, // bx lr
	}}
	tr := New()
	b, err := tr.Translate(loc.New(0x1000), cb, cache.TranslateOptions{})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if b.Cycles != 3 {
		t.Fatalf("Cycles = %d, want 3", b.Cycles)
	}
	if b.End.PC() != 0x100c {
		t.Fatalf("End.PC() = %#x, want 0x100c", b.End.PC())
	}
	if b.Guard != ir.CondAL {
		t.Fatalf("Guard = %v, want CondAL (unconditional run)", b.Guard)
	}
	term := b.Terminal()
	if term == nil || term.Kind != ir.TerminalFastDispatchHint {
		t.Fatalf("Terminal = %+v, want TerminalFastDispatchHint", term)
	}
	if n := countInstructions(b); n == 0 {
		t.Fatalf("expected at least one emitted instruction, got 0")
	}
}

func TestTranslate_UnconditionalBranchEndsBlock(t *testing.T) {
	cb := fakeCallbacks{words: map[uint64]uint32{
		0x2000: 0xea000000, // b #8 (target = pc+8+0)
	}}
	tr := New()
	b, err := tr.Translate(loc.New(0x2000), cb, cache.TranslateOptions{})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	term := b.Terminal()
	if term == nil || term.Kind != ir.TerminalLinkBlock || term.Next.PC() != 0x2008 {
		t.Fatalf("Terminal = %+v, want link_block 0x2008", term)
	}
}

func TestTranslate_LeadingConditionalInstructionSetsGuard(t *testing.T) {
	cb := fakeCallbacks{words: map[uint64]uint32{
		0x3000: 0x12800001, // addne r0, r0, #1
	}}
	tr := New()
	b, err := tr.Translate(loc.New(0x3000), cb, cache.TranslateOptions{})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if b.Guard != ir.CondNE {
		t.Fatalf("Guard = %v, want CondNE", b.Guard)
	}
	if b.FallbackNext.PC() != 0x3004 {
		t.Fatalf("FallbackNext.PC() = %#x, want 0x3004", b.FallbackNext.PC())
	}
	if b.Cycles != 1 {
		t.Fatalf("Cycles = %d, want 1", b.Cycles)
	}
	term := b.Terminal()
	if term == nil || term.Kind != ir.TerminalLinkBlock || term.Next.PC() != 0x3004 {
		t.Fatalf("Terminal = %+v, want link_block 0x3004", term)
	}
}

func TestTranslate_TrailingConditionalInstructionEndsRunFirst(t *testing.T) {
	cb := fakeCallbacks{words: map[uint64]uint32{
		0x4000: 0xe3a00005, // mov r0, #5 (unconditional)
		0x4004: 0x12800001, // addne r0, r0, #1 (conditional, not first)
	}}
	tr := New()
	b, err := tr.Translate(loc.New(0x4000), cb, cache.TranslateOptions{})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if b.Cycles != 1 {
		t.Fatalf("Cycles = %d, want 1 (conditional instruction not yet consumed)", b.Cycles)
	}
	if b.End.PC() != 0x4004 {
		t.Fatalf("End.PC() = %#x, want 0x4004", b.End.PC())
	}
	term := b.Terminal()
	if term == nil || term.Kind != ir.TerminalLinkBlock || term.Next.PC() != 0x4004 {
		t.Fatalf("Terminal = %+v, want link_block 0x4004 (re-decode as a fresh guarded block)", term)
	}

	// Re-entering at 0x4004 picks up the conditional instruction as the
	// sole content of its own guarded block.
	b2, err := tr.Translate(loc.New(0x4004), cb, cache.TranslateOptions{})
	if err != nil {
		t.Fatalf("Translate (re-entry): %v", err)
	}
	if b2.Guard != ir.CondNE {
		t.Fatalf("Guard = %v, want CondNE", b2.Guard)
	}
}

func TestTranslate_BarrierEndsBlockAndLinksNext(t *testing.T) {
	cb := fakeCallbacks{words: map[uint64]uint32{
		0x5000: 0xf57ff05f, // dmb sy
	}}
	tr := New()
	b, err := tr.Translate(loc.New(0x5000), cb, cache.TranslateOptions{})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	term := b.Terminal()
	if term == nil || term.Kind != ir.TerminalLinkBlock || term.Next.PC() != 0x5004 {
		t.Fatalf("Terminal = %+v, want link_block 0x5004", term)
	}
}

func TestTranslate_UnknownWordRaisesUnallocatedEncoding(t *testing.T) {
	cb := fakeCallbacks{words: map[uint64]uint32{
		0x6000: 0xe6000000, // media/extension-space encoding, unclassified by this port
	}}
	tr := New()
	b, err := tr.Translate(loc.New(0x6000), cb, cache.TranslateOptions{})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if n := countInstructions(b); n != 1 {
		t.Fatalf("expected exactly one ExceptionRaised instruction, got %d", n)
	}
	if term := b.Terminal(); term == nil || term.Kind != ir.TerminalReturnToDispatch {
		t.Fatalf("Terminal = %+v, want TerminalReturnToDispatch", term)
	}
}
