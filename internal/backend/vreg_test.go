package backend

import "testing"

func TestNewVReg_IsUnassigned(t *testing.T) {
	v := NewVReg(7)
	if v.ID() != 7 {
		t.Fatalf("ID() = %d, want 7", v.ID())
	}
	if v.RealReg() != RealRegInvalid {
		t.Fatalf("RealReg() = %v, want RealRegInvalid", v.RealReg())
	}
}

func TestVReg_WithRealRegPreservesID(t *testing.T) {
	v := NewVReg(42).WithRealReg(RealReg(3))
	if v.ID() != 42 {
		t.Fatalf("ID() after WithRealReg = %d, want 42", v.ID())
	}
	if v.RealReg() != RealReg(3) {
		t.Fatalf("RealReg() after WithRealReg = %v, want 3", v.RealReg())
	}
}

func TestVRegInvalid_IsUnassignedZeroID(t *testing.T) {
	if VRegInvalid.ID() != 0 {
		t.Fatalf("VRegInvalid.ID() = %d, want 0", VRegInvalid.ID())
	}
	if VRegInvalid.RealReg() != RealRegInvalid {
		t.Fatalf("VRegInvalid.RealReg() = %v, want RealRegInvalid", VRegInvalid.RealReg())
	}
}

func TestVReg_WithRealRegDoesNotDisturbOtherIDs(t *testing.T) {
	a := NewVReg(1).WithRealReg(RealReg(5))
	b := NewVReg(2).WithRealReg(RealReg(5))
	if a == b {
		t.Fatalf("distinct VRegIDs with the same RealReg compared equal: %v == %v", a, b)
	}
}
