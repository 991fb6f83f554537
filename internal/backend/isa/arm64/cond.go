package arm64

import "github.com/armdbt/armdbt/internal/ir"

// cond is the 4-bit AArch64 condition-code encoding used directly in
// B.cond/CSET/CSINC instruction words. Naming and invert() are
// grounded verbatim on the teacher's backend/isa/arm64/cond.go.
type cond uint8

const (
	condEQ cond = 0x0
	condNE cond = 0x1
	condHS cond = 0x2
	condLO cond = 0x3
	condMI cond = 0x4
	condPL cond = 0x5
	condVS cond = 0x6
	condVC cond = 0x7
	condHI cond = 0x8
	condLS cond = 0x9
	condGE cond = 0xa
	condLT cond = 0xb
	condGT cond = 0xc
	condLE cond = 0xd
	condAL cond = 0xe
	condNV cond = 0xf
)

func (c cond) invert() cond {
	// AArch64 condition encodings invert by flipping the low bit, except
	// AL/NV which have no complementary pair.
	if c == condAL || c == condNV {
		return c
	}
	return c ^ 1
}

// fromIR converts this module's guest-neutral ir.Cond into the
// host-specific AArch64 encoding. The two enumerations share the same
// ordering (both ultimately describe the same ARM architectural
// condition codes) so this is a direct mapping, not a semantic
// translation.
func fromIR(c ir.Cond) cond {
	switch c {
	case ir.CondEQ:
		return condEQ
	case ir.CondNE:
		return condNE
	case ir.CondCS:
		return condHS
	case ir.CondCC:
		return condLO
	case ir.CondMI:
		return condMI
	case ir.CondPL:
		return condPL
	case ir.CondVS:
		return condVS
	case ir.CondVC:
		return condVC
	case ir.CondHI:
		return condHI
	case ir.CondLS:
		return condLS
	case ir.CondGE:
		return condGE
	case ir.CondLT:
		return condLT
	case ir.CondGT:
		return condGT
	case ir.CondLE:
		return condLE
	case ir.CondAL:
		return condAL
	case ir.CondNV:
		return condNV
	default:
		panic("BUG: invalid ir.Cond")
	}
}
