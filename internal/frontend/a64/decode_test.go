package a64

import "testing"

func TestClassify(t *testing.T) {
	for _, tc := range []struct {
		name string
		word uint32
		want kind
	}{
		{"nop", 0xd503201f, kindNop},
		{"dmb ish", 0xd5033bbf, kindBarrier},
		{"dsb sy", 0xd5033f9f, kindBarrier},
		{"isb sy", 0xd5033fdf, kindBarrier},
		{"movz x0, #5", 0xd28000a0, kindMoveWideImm},
		{"add x0, x1, #4", 0x91001020, kindAddSubImm},
		{"subs xzr, x0, x1 (cmp x0, x1)", 0xeb01001f, kindAddSubReg},
		{"ret x30", 0xd65f03c0, kindBranchReg},
		{"br x0", 0xd61f0000, kindBranchReg},
		{"blr x1", 0xd63f0020, kindBranchReg},
		{"b.eq +8", 0x54000040, kindBranchCond},
		{"cbz x0, +8", 0xb4000040, kindCompareAndBranch},
		{"cbnz x0, +8", 0xb5000040, kindCompareAndBranch},
		{"unknown", 0x00000000, kindUnknown},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := classify(tc.word); got != tc.want {
				t.Fatalf("classify(%#x) = %v, want %v", tc.word, got, tc.want)
			}
		})
	}
}

func TestField(t *testing.T) {
	if got := field(0xFFFFFFFF, 31, 0); got != 0xFFFFFFFF {
		t.Fatalf("field full word = %#x, want 0xFFFFFFFF", got)
	}
	if got := field(0x000000F0, 7, 4); got != 0xF {
		t.Fatalf("field(0xf0,7,4) = %#x, want 0xf", got)
	}
	if got := bit(0x80000000, 31); got != 1 {
		t.Fatalf("bit(0x80000000,31) = %d, want 1", got)
	}
}

func TestSignExtend(t *testing.T) {
	if got := signExtend(0x7FFFF, 19); got != 0x7FFFF {
		t.Fatalf("signExtend positive = %d, want %d", got, 0x7FFFF)
	}
	if got := signExtend(0x40000, 19); got != -0x40000 {
		t.Fatalf("signExtend negative = %d, want %d", got, -0x40000)
	}
}
