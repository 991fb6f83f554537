package arm64

import (
	"testing"

	"github.com/armdbt/armdbt/internal/ir"
)

func TestCond_InvertFlipsLowBit(t *testing.T) {
	pairs := []struct{ c, inv cond }{
		{condEQ, condNE}, {condNE, condEQ},
		{condHS, condLO}, {condLO, condHS},
		{condMI, condPL}, {condPL, condMI},
		{condVS, condVC}, {condVC, condVS},
		{condHI, condLS}, {condLS, condHI},
		{condGE, condLT}, {condLT, condGE},
		{condGT, condLE}, {condLE, condGT},
	}
	for _, p := range pairs {
		if got := p.c.invert(); got != p.inv {
			t.Fatalf("%#x.invert() = %#x, want %#x", p.c, got, p.inv)
		}
	}
}

func TestCond_InvertLeavesALAndNVUnchanged(t *testing.T) {
	if condAL.invert() != condAL {
		t.Fatalf("condAL.invert() = %#x, want condAL unchanged", condAL.invert())
	}
	if condNV.invert() != condNV {
		t.Fatalf("condNV.invert() = %#x, want condNV unchanged", condNV.invert())
	}
}

func TestCond_InvertIsInvolution(t *testing.T) {
	all := []cond{condEQ, condNE, condHS, condLO, condMI, condPL, condVS, condVC,
		condHI, condLS, condGE, condLT, condGT, condLE, condAL, condNV}
	for _, c := range all {
		if got := c.invert().invert(); got != c {
			t.Fatalf("%#x.invert().invert() = %#x, want %#x", c, got, c)
		}
	}
}

func TestFromIR_CoversEveryIRCondition(t *testing.T) {
	cases := []struct {
		in   ir.Cond
		want cond
	}{
		{ir.CondEQ, condEQ}, {ir.CondNE, condNE},
		{ir.CondCS, condHS}, {ir.CondCC, condLO},
		{ir.CondMI, condMI}, {ir.CondPL, condPL},
		{ir.CondVS, condVS}, {ir.CondVC, condVC},
		{ir.CondHI, condHI}, {ir.CondLS, condLS},
		{ir.CondGE, condGE}, {ir.CondLT, condLT},
		{ir.CondGT, condGT}, {ir.CondLE, condLE},
		{ir.CondAL, condAL}, {ir.CondNV, condNV},
	}
	for _, c := range cases {
		if got := fromIR(c.in); got != c.want {
			t.Fatalf("fromIR(%v) = %#x, want %#x", c.in, got, c.want)
		}
	}
}

func TestFromIR_PanicsOnInvalidCondition(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("fromIR did not panic on an out-of-range ir.Cond")
		}
	}()
	fromIR(ir.Cond(0xff))
}
