package cache

import (
	"testing"

	"github.com/armdbt/armdbt/internal/callbacks"
	"github.com/armdbt/armdbt/internal/ir"
	"github.com/armdbt/armdbt/internal/loc"
)

// stubTranslator hands out a single empty, unconditional Block per
// requested location that does nothing but return to the dispatcher, so
// GetOrEmit has something real to lower without depending on
// internal/frontend.
type stubTranslator struct{ calls int }

func (s *stubTranslator) Translate(l loc.Descriptor, cb callbacks.Callbacks, opts TranslateOptions) (*ir.Block, error) {
	s.calls++
	b := ir.NewBlock(l, loc.New(l.PC()+4))
	b.SetTerminal(ir.ReturnToDispatch())
	return b, nil
}

// stubCallbacks implements callbacks.Callbacks with no guest memory and
// no side effects, enough to exercise GetOrEmit's ConstantMemory bridge.
type stubCallbacks struct{}

func (stubCallbacks) Read(width int, at ir.AccessType, vaddr uint64) uint64        { return 0 }
func (stubCallbacks) Write(width int, at ir.AccessType, vaddr uint64, value uint64) {}
func (stubCallbacks) ReadExclusive(width int, at ir.AccessType, processor uint32, vaddr uint64) uint64 {
	return 0
}
func (stubCallbacks) WriteExclusive(width int, at ir.AccessType, processor uint32, vaddr, value uint64) bool {
	return true
}
func (stubCallbacks) IsReadOnlyMemory(vaddr uint64) bool               { return false }
func (stubCallbacks) CallSVC(swiNumber uint32)                        {}
func (stubCallbacks) ExceptionRaised(pc uint64, kind ir.ExceptionKind) {}
func (stubCallbacks) InstructionSynchronizationBarrierRaised(pc uint64) {}
func (stubCallbacks) AddTicks(n uint64)                                 {}
func (stubCallbacks) GetTicksRemaining() uint64                         { return 0 }

func newTestAddressSpace(t *testing.T) (*AddressSpace, *stubTranslator) {
	t.Helper()
	tr := &stubTranslator{}
	as, err := NewAddressSpace(Config{
		CodeCacheSizeBytes: 64 * 1024,
		SafetyMarginBytes:  256,
		Translator:         tr,
		Callbacks:          stubCallbacks{},
	})
	if err != nil {
		t.Fatalf("NewAddressSpace: %v", err)
	}
	return as, tr
}

func TestNewAddressSpace_RejectsBadConfig(t *testing.T) {
	if _, err := NewAddressSpace(Config{}); err == nil {
		t.Fatal("expected error for zero CodeCacheSizeBytes")
	}
	if _, err := NewAddressSpace(Config{CodeCacheSizeBytes: 4096}); err == nil {
		t.Fatal("expected error for missing Translator")
	}
}

func TestAddressSpace_GetOrEmitCachesByLocation(t *testing.T) {
	as, tr := newTestAddressSpace(t)

	l := loc.New(0x1000)
	off1, err := as.GetOrEmit(l)
	if err != nil {
		t.Fatalf("GetOrEmit: %v", err)
	}
	off2, err := as.GetOrEmit(l)
	if err != nil {
		t.Fatalf("GetOrEmit (cached): %v", err)
	}
	if off1 != off2 {
		t.Fatalf("GetOrEmit returned different offsets for the same location: %d != %d", off1, off2)
	}
	if tr.calls != 1 {
		t.Fatalf("Translate called %d times, want 1 (second GetOrEmit should hit the cache)", tr.calls)
	}
}

func TestAddressSpace_ClearCacheForcesRetranslation(t *testing.T) {
	as, tr := newTestAddressSpace(t)

	l := loc.New(0x2000)
	if _, err := as.GetOrEmit(l); err != nil {
		t.Fatalf("GetOrEmit: %v", err)
	}
	as.ClearCache()
	if _, err := as.GetOrEmit(l); err != nil {
		t.Fatalf("GetOrEmit after ClearCache: %v", err)
	}
	if tr.calls != 2 {
		t.Fatalf("Translate called %d times, want 2 (ClearCache should force a miss)", tr.calls)
	}
}

func TestAddressSpace_InvalidateCacheRangesDropsOverlapping(t *testing.T) {
	as, tr := newTestAddressSpace(t)

	l := loc.New(0x3000)
	if _, err := as.GetOrEmit(l); err != nil {
		t.Fatalf("GetOrEmit: %v", err)
	}
	as.InvalidateCacheRanges([][2]uint32{{0x3000, 0x3004}})
	if _, err := as.GetOrEmit(l); err != nil {
		t.Fatalf("GetOrEmit after InvalidateCacheRanges: %v", err)
	}
	if tr.calls != 2 {
		t.Fatalf("Translate called %d times, want 2 (overlapping invalidation should force a miss)", tr.calls)
	}

	// An invalidation over a disjoint range must not evict anything.
	if _, err := as.GetOrEmit(l); err != nil {
		t.Fatalf("GetOrEmit: %v", err)
	}
	as.InvalidateCacheRanges([][2]uint32{{0x9000, 0x9004}})
	if _, err := as.GetOrEmit(l); err != nil {
		t.Fatalf("GetOrEmit after disjoint InvalidateCacheRanges: %v", err)
	}
	if tr.calls != 2 {
		t.Fatalf("Translate called %d times, want 2 (disjoint invalidation must not evict)", tr.calls)
	}
}

func TestAddressSpace_RunCodeWithoutInvokerPanics(t *testing.T) {
	as, _ := newTestAddressSpace(t)
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("RunCode with no Config.Invoker should panic via DefaultEntryInvoker")
		}
	}()
	var guestState, haltFlag byte
	_, _ = as.RunCode(loc.New(0x4000), &guestState, &haltFlag, 1)
}
