package ir

// passNaming assigns dense debug names to every live, result-producing
// Instruction. Runs last in the pipeline so names reflect the
// post-optimization instruction set, matching the teacher's practice of
// naming/dumping only after its optimizer pipeline has settled.
func passNaming(b *Block) {
	b.assignNames()
}
