package arm64

import (
	"encoding/binary"

	"github.com/armdbt/armdbt/internal/backend"
)

// codeBuffer accumulates the host instruction words for one Block and
// the relocations that must be patched once the cache knows this
// Block's real host address, grounded on the teacher's assembler
// buffer (backend/isa/arm64/assembler.go: Buf()/Finalize()) but
// specialized to this package's direct word-at-a-time encoding instead
// of the teacher's separate instruction-node/encode passes, since this
// backend never needs to re-order or peephole its own output.
type codeBuffer struct {
	buf  []byte
	relo []backend.Relocation

	// pendingCondBranch, when >= 0, is the byte offset of the most
	// recently emitted B.cond whose target is a pc-relative forward
	// branch within this same Block (used by LowerTerminal's
	// TerminalIf/TerminalCheckBit/TerminalCheckHalt lowering to patch
	// the short in-block skip once the skipped region's length is
	// known).
	pendingCondBranch int
}

func newCodeBuffer() *codeBuffer {
	return &codeBuffer{pendingCondBranch: -1}
}

func (c *codeBuffer) reset() {
	c.buf = c.buf[:0]
	c.relo = c.relo[:0]
	c.pendingCondBranch = -1
}

// offset returns the current write position, i.e. the byte offset the
// next emitted word will land at.
func (c *codeBuffer) offset() int { return len(c.buf) }

func (c *codeBuffer) emit(word uint32) int {
	off := len(c.buf)
	var w [4]byte
	binary.LittleEndian.PutUint32(w[:], word)
	c.buf = append(c.buf, w[:]...)
	return off
}

// patch overwrites the word at off (previously returned by emit) with
// word, used to fix up a branch once its target offset is known.
func (c *codeBuffer) patch(off int, word uint32) {
	binary.LittleEndian.PutUint32(c.buf[off:off+4], word)
}

// reloc records a Relocation to be resolved by the cache once the
// real host address of target is known; offset is the byte offset of
// the instruction word that encodes the reference.
func (c *codeBuffer) reloc(offset int, target backend.LinkTarget) {
	c.relo = append(c.relo, backend.Relocation{Offset: offset, Target: target})
}

// branchDelta computes the signed word-count displacement between two
// byte offsets in this buffer, as required by B/BL/B.cond's PC-relative
// immediate encodings.
func branchDelta(fromOffset, toOffset int) int32 {
	return int32((toOffset - fromOffset) / 4)
}
