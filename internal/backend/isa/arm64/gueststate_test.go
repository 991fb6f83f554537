package arm64

import (
	"testing"

	"github.com/armdbt/armdbt/internal/ir"
)

func TestRegisterOffset_A32CoreIsEightBytesApart(t *testing.T) {
	off0, size0 := RegisterOffset(ir.RegRef{Class: ir.RegA32Core, Index: 0})
	off1, _ := RegisterOffset(ir.RegRef{Class: ir.RegA32Core, Index: 1})
	if off0 != 0 {
		t.Fatalf("offset of r0 = %d, want 0", off0)
	}
	if size0 != 4 {
		t.Fatalf("size of an A32 core register = %d, want 4", size0)
	}
	if off1-off0 != 8 {
		t.Fatalf("r1 offset - r0 offset = %d, want 8", off1-off0)
	}
}

func TestRegisterOffset_A64CoreIsEightBytesApart(t *testing.T) {
	off0, size0 := RegisterOffset(ir.RegRef{Class: ir.RegA64Core, Index: 0})
	off1, _ := RegisterOffset(ir.RegRef{Class: ir.RegA64Core, Index: 1})
	if size0 != 8 {
		t.Fatalf("size of an A64 core register = %d, want 8", size0)
	}
	if off1-off0 != 8 {
		t.Fatalf("x1 offset - x0 offset = %d, want 8", off1-off0)
	}
}

func TestRegisterOffset_A64VectorIsSixteenBytesApart(t *testing.T) {
	off0, _ := RegisterOffset(ir.RegRef{Class: ir.RegA64Vector, Index: 0})
	off1, _ := RegisterOffset(ir.RegRef{Class: ir.RegA64Vector, Index: 1})
	if off1-off0 != 16 {
		t.Fatalf("v1 offset - v0 offset = %d, want 16", off1-off0)
	}
}

func TestRegisterOffset_DistinctRegClassesDoNotOverlap(t *testing.T) {
	classes := []ir.RegClass{ir.RegA32Core, ir.RegA32Ext, ir.RegA64Core, ir.RegA64Vector, ir.RegSpecial}
	type span struct {
		lo, hi int
		class  ir.RegClass
	}
	var spans []span
	counts := map[ir.RegClass]int{
		ir.RegA32Core: 16, ir.RegA32Ext: 32, ir.RegA64Core: 31, ir.RegA64Vector: 32, ir.RegSpecial: 16,
	}
	for _, c := range classes {
		lo, hi := -1, -1
		for i := 0; i < counts[c]; i++ {
			off, size := RegisterOffset(ir.RegRef{Class: c, Index: uint8(i)})
			if lo == -1 || off < lo {
				lo = off
			}
			if off+size > hi {
				hi = off + size
			}
		}
		spans = append(spans, span{lo, hi, c})
	}
	for i := range spans {
		for j := range spans {
			if i == j {
				continue
			}
			a, b := spans[i], spans[j]
			if a.lo < b.hi && b.lo < a.hi {
				t.Fatalf("register class %v span [%d,%d) overlaps class %v span [%d,%d)",
					a.class, a.lo, a.hi, b.class, b.lo, b.hi)
			}
		}
	}
}

func TestRegisterOffset_PanicsOnInvalidRegClass(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("RegisterOffset did not panic on RegClassInvalid")
		}
	}()
	RegisterOffset(ir.RegRef{Class: ir.RegClassInvalid, Index: 0})
}

func TestGuestStateSize_CoversEveryFixedField(t *testing.T) {
	if GuestStateSize <= NZCVOffset {
		t.Fatalf("GuestStateSize %d does not extend past NZCVOffset %d", GuestStateSize, NZCVOffset)
	}
	if GuestStateSize <= HaltFlagOffset {
		t.Fatalf("GuestStateSize %d does not extend past HaltFlagOffset %d", GuestStateSize, HaltFlagOffset)
	}
	if GuestStateSize <= CycleBudgetOffset {
		t.Fatalf("GuestStateSize %d does not extend past CycleBudgetOffset %d", GuestStateSize, CycleBudgetOffset)
	}
}
