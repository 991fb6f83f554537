package backend

import "testing"

func newTestRegAlloc(n int) (*RegAlloc, []RealReg) {
	regs := make([]RealReg, n)
	for i := range regs {
		regs[i] = RealReg(i + 1)
	}
	return NewRegAlloc(regs), regs
}

func TestRegAlloc_ReadXMaterializesImmediateOnce(t *testing.T) {
	ra, _ := newTestRegAlloc(2)
	ra.DeclareImmediate(1, 0xcafe, 2)

	r1 := ra.ReadX(1)
	ops := ra.Realize()
	if len(ops) != 1 || ops[0].Kind != PendingImmediate || ops[0].Imm != 0xcafe || ops[0].Reg != r1 {
		t.Fatalf("Realize() after first ReadX = %+v, want a single PendingImmediate for %#x into %v", ops, 0xcafe, r1)
	}

	r2 := ra.ReadX(1)
	if r2 != r1 {
		t.Fatalf("second ReadX of a still-resident value returned a different register: %v vs %v", r2, r1)
	}
	if ops := ra.Realize(); len(ops) != 0 {
		t.Fatalf("Realize() after a resident ReadX = %+v, want no new pending ops", ops)
	}
}

func TestRegAlloc_ReadXPanicsPastDeclaredUses(t *testing.T) {
	ra, _ := newTestRegAlloc(1)
	ra.DeclareValue(1, 1)
	ra.ReadX(1)
	ra.Realize()

	defer func() {
		if recover() == nil {
			t.Fatalf("ReadX beyond declared uses did not panic")
		}
	}()
	ra.ReadX(1)
}

func TestRegAlloc_ReadXPanicsOnUndeclaredValue(t *testing.T) {
	ra, _ := newTestRegAlloc(1)
	defer func() {
		if recover() == nil {
			t.Fatalf("ReadX of an undeclared value did not panic")
		}
	}()
	ra.ReadX(99)
}

func TestRegAlloc_WriteXReusesLastUseOperandRegister(t *testing.T) {
	ra, _ := newTestRegAlloc(2)
	ra.DeclareValue(1, 1)
	src := ra.ReadX(1) // remaining drops to 0
	ra.Realize()

	dst := ra.WriteX(2, 1, true)
	if dst != src {
		t.Fatalf("WriteX did not reuse the exhausted operand's register: dst=%v src=%v", dst, src)
	}
}

func TestRegAlloc_WriteXDoesNotReuseOperandWithRemainingUses(t *testing.T) {
	ra, _ := newTestRegAlloc(2)
	ra.DeclareValue(1, 2)
	src := ra.ReadX(1) // remaining drops to 1, still live
	ra.Realize()

	dst := ra.WriteX(2, 1, true)
	if dst == src {
		t.Fatalf("WriteX reused a register whose value still has remaining uses")
	}
}

func TestRegAlloc_EvictsAndSpillsDirtyValueWhenNoFreeRegister(t *testing.T) {
	ra, regs := newTestRegAlloc(1)
	ra.DeclareValue(1, 1)
	first := ra.WriteX(1, 0, false)
	if first != regs[0] {
		t.Fatalf("WriteX allocated %v, want the only allocatable register %v", first, regs[0])
	}
	ra.Realize() // unlocks reg into Bound state, making it evictable

	ra.DeclareValue(2, 1)
	second := ra.WriteX(2, 0, false)
	if second != regs[0] {
		t.Fatalf("WriteX for the second value did not reuse the only register via eviction: got %v", second)
	}
	ops := ra.Realize()
	if len(ops) != 1 || ops[0].Kind != PendingSpill || ops[0].Reg != regs[0] {
		t.Fatalf("Realize() after eviction = %+v, want a single PendingSpill for %v", ops, regs[0])
	}
}

func TestRegAlloc_ScratchIsFreedByRealize(t *testing.T) {
	ra, regs := newTestRegAlloc(1)
	s := ra.Scratch()
	if s != regs[0] {
		t.Fatalf("Scratch() = %v, want %v", s, regs[0])
	}
	ra.Realize()

	ra.DeclareValue(1, 1)
	got := ra.WriteX(1, 0, false)
	if got != regs[0] {
		t.Fatalf("WriteX after Realize did not see the scratch register freed: got %v, want %v", got, regs[0])
	}
}

func TestRegAlloc_ResetClearsAllocatorState(t *testing.T) {
	ra, regs := newTestRegAlloc(1)
	ra.DeclareValue(1, 1)
	ra.WriteX(1, 0, false)
	ra.Realize()

	ra.Reset()

	ra.DeclareValue(2, 1)
	got := ra.WriteX(2, 0, false)
	if got != regs[0] {
		t.Fatalf("WriteX after Reset = %v, want a clean allocation of %v", got, regs[0])
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("ReadX of a value declared before Reset should be undeclared after Reset")
		}
	}()
	ra.ReadX(1)
}
