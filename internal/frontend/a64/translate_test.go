package a64

import (
	"testing"

	"github.com/armdbt/armdbt/internal/cache"
	"github.com/armdbt/armdbt/internal/ir"
	"github.com/armdbt/armdbt/internal/loc"
)

// fakeCallbacks serves instruction words out of a fixed map, keyed by
// guest address, and otherwise no-ops every other callback the
// translator never exercises directly (memory reads/writes only
// matter here as instruction fetch).
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

func TestTranslate_StraightLineEndsInPopRSBHint(t *testing.T) {
	cb := fakeCallbacks{words: map[uint64]uint32{
		0x1000: 0xd28000a0, // movz x0, #5
		0x1004: 0x91001020, // add x0, x1, #4
		0x1008: 0xd65f03c0, // ret x30
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
	term := b.Terminal()
	if term == nil || term.Kind != ir.TerminalPopRSBHint {
		t.Fatalf("Terminal = %+v, want TerminalPopRSBHint", term)
	}
	if n := countInstructions(b); n == 0 {
		t.Fatalf("expected at least one emitted instruction, got 0")
	}
}

func TestTranslate_CondBranchEmitsIfTerminal(t *testing.T) {
	cb := fakeCallbacks{words: map[uint64]uint32{
		0x2000: 0xeb01001f, // subs xzr, x0, x1 (cmp x0, x1)
		0x2004: 0x54000040, // b.eq +8
	}}
	tr := New()
	b, err := tr.Translate(loc.New(0x2000), cb, cache.TranslateOptions{})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if b.Cycles != 2 {
		t.Fatalf("Cycles = %d, want 2", b.Cycles)
	}
	term := b.Terminal()
	if term == nil || term.Kind != ir.TerminalIf {
		t.Fatalf("Terminal = %+v, want TerminalIf", term)
	}
	if term.Cond != ir.CondEQ {
		t.Fatalf("Cond = %v, want CondEQ", term.Cond)
	}
	if term.Then.Kind != ir.TerminalLinkBlock || term.Then.Next.PC() != 0x200c {
		t.Fatalf("Then = %+v, want link_block 0x200c", term.Then)
	}
	if term.Else.Kind != ir.TerminalLinkBlock || term.Else.Next.PC() != 0x2008 {
		t.Fatalf("Else = %+v, want link_block 0x2008", term.Else)
	}
}

func TestTranslate_BarrierEndsBlockAndLinksNext(t *testing.T) {
	cb := fakeCallbacks{words: map[uint64]uint32{
		0x3000: 0xd5033bbf, // dmb ish
	}}
	tr := New()
	b, err := tr.Translate(loc.New(0x3000), cb, cache.TranslateOptions{})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if b.Cycles != 1 {
		t.Fatalf("Cycles = %d, want 1", b.Cycles)
	}
	term := b.Terminal()
	if term == nil || term.Kind != ir.TerminalLinkBlock || term.Next.PC() != 0x3004 {
		t.Fatalf("Terminal = %+v, want link_block 0x3004", term)
	}
}

func TestTranslate_CompareAndBranchEmitsCheckBitTerminal(t *testing.T) {
	cb := fakeCallbacks{words: map[uint64]uint32{
		0x4000: 0xb4000040, // cbz x0, +8
	}}
	tr := New()
	b, err := tr.Translate(loc.New(0x4000), cb, cache.TranslateOptions{})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	term := b.Terminal()
	if term == nil || term.Kind != ir.TerminalCheckBit {
		t.Fatalf("Terminal = %+v, want TerminalCheckBit", term)
	}
	if term.Bit.Type() != ir.TypeU1 {
		t.Fatalf("Bit.Type() = %v, want TypeU1", term.Bit.Type())
	}
	if term.Then.Kind != ir.TerminalLinkBlock || term.Then.Next.PC() != 0x4008 {
		t.Fatalf("Then = %+v, want link_block 0x4008", term.Then)
	}
	if term.Else.Kind != ir.TerminalLinkBlock || term.Else.Next.PC() != 0x4004 {
		t.Fatalf("Else = %+v, want link_block 0x4004", term.Else)
	}
}

func TestTranslate_RetOmitsDeadRegisterRead(t *testing.T) {
	cb := fakeCallbacks{words: map[uint64]uint32{
		0x5000: 0xd65f03c0, // ret x30
	}}
	tr := New()
	b, err := tr.Translate(loc.New(0x5000), cb, cache.TranslateOptions{})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if n := countInstructions(b); n != 0 {
		t.Fatalf("RET should emit no instructions (target resolution is the dispatcher's job), got %d", n)
	}
	if term := b.Terminal(); term == nil || term.Kind != ir.TerminalPopRSBHint {
		t.Fatalf("Terminal = %+v, want TerminalPopRSBHint", term)
	}
}

func TestTranslate_UnknownWordRaisesDecodeError(t *testing.T) {
	cb := fakeCallbacks{words: map[uint64]uint32{
		0x6000: 0x00000000,
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
