package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fpgrars/fpgrars/instr"
)

func assembleSrc(t *testing.T, src string) *Program {
	t.Helper()
	toks, lerr := NewLexer("t.s", []byte(src)).TokenizeAll()
	require.Nil(t, lerr)
	toks, merr := NewMacroExpander().Expand(toks)
	require.Nil(t, merr)
	prog, errs := AssembleTokens(toks)
	if errs != nil && errs.HasErrors() {
		t.Fatalf("unexpected assembly errors: %s", errs.Error())
	}
	return prog
}

func TestAssembleRTypeInstruction(t *testing.T) {
	prog := assembleSrc(t, "add a0, a1, a2\n")
	require.Len(t, prog.Code, 1)
	in := prog.Code[0]
	require.Equal(t, instr.OpAdd, in.Op)
	require.Equal(t, 10, in.Rd)
	require.Equal(t, 11, in.Rs1)
	require.Equal(t, 12, in.Rs2)
}

func TestAssembleLoadStoreMemoryOperand(t *testing.T) {
	prog := assembleSrc(t, "lw a0, 8(sp)\nsw a0, -4(sp)\n")
	require.Len(t, prog.Code, 2)
	require.Equal(t, instr.OpLw, prog.Code[0].Op)
	require.Equal(t, int32(8), prog.Code[0].Imm)
	require.Equal(t, 2, prog.Code[0].Rs1)
	require.Equal(t, instr.OpSw, prog.Code[1].Op)
	require.Equal(t, int32(-4), prog.Code[1].Imm)
}

func TestAssembleBranchToForwardLabelIsPreLabel(t *testing.T) {
	prog := assembleSrc(t, "beq a0, a1, done\nnop\ndone:\nnop\n")
	require.Len(t, prog.Code, 3)
	br := prog.Code[0]
	require.Equal(t, instr.OpBeq, br.Op)
	require.True(t, br.PreLabel)
	require.Equal(t, "done", br.Label)
	require.Len(t, prog.CodeRelocs, 1)
	require.Equal(t, 0, prog.CodeRelocs[0].CodeIndex)

	off, ok := prog.Symtab.Lookup("done")
	require.True(t, ok)
	require.Equal(t, uint32(8), off)
}

func TestAssembleDataWordsAndAlign(t *testing.T) {
	prog := assembleSrc(t, ".data\nbuf: .word 1, 2, 3\n.align 4\nflag: .byte 1\n")
	require.Equal(t, uint32(0), mustOffset(t, prog, "buf"))
	require.Equal(t, uint32(16), mustOffset(t, prog, "flag"))
	require.Len(t, prog.Data, 17)
}

func TestAssembleAlignRejectsLabelOperand(t *testing.T) {
	toks, lerr := NewLexer("t.s", []byte(".data\n.align buf\n")).TokenizeAll()
	require.Nil(t, lerr)
	_, errs := AssembleTokens(toks)
	require.NotNil(t, errs)
	require.True(t, errs.HasErrors())
	require.Contains(t, errs.Error(), ".align LABEL")
}

func TestAssembleDataLabelReloc(t *testing.T) {
	prog := assembleSrc(t, ".data\nptr: .word target\ntarget: .word 7\n")
	require.Len(t, prog.DataRelocs, 1)
	require.Equal(t, "target", prog.DataRelocs[0].Name)
	require.Equal(t, uint32(0), prog.DataRelocs[0].Position)
	require.Equal(t, WidthWord, prog.DataRelocs[0].Width)
}

func TestAssemblePseudoLiSmallAndLarge(t *testing.T) {
	prog := assembleSrc(t, "li a0, 5\nli a1, 100000\n")
	require.Len(t, prog.Code, 2)
	require.Equal(t, instr.OpAddi, prog.Code[0].Op)
	require.Equal(t, int32(5), prog.Code[0].Imm)
	require.Equal(t, instr.OpLoadImm, prog.Code[1].Op)
	require.Equal(t, int32(100000), prog.Code[1].Imm)
}

func TestAssemblePseudoLaProducesRelocation(t *testing.T) {
	prog := assembleSrc(t, "la a0, buf\nbuf:\n")
	require.Len(t, prog.Code, 1)
	require.Equal(t, instr.OpLoadImm, prog.Code[0].Op)
	require.True(t, prog.Code[0].PreLabel)
	require.Len(t, prog.CodeRelocs, 1)
}

func TestAssemblePseudoBranches(t *testing.T) {
	prog := assembleSrc(t, "beqz a0, l\nbgtz a0, l\nl:\n")
	require.Equal(t, instr.OpBeq, prog.Code[0].Op)
	require.Equal(t, 10, prog.Code[0].Rs1)
	require.Equal(t, 0, prog.Code[0].Rs2)

	require.Equal(t, instr.OpBlt, prog.Code[1].Op)
	require.Equal(t, 0, prog.Code[1].Rs1)
	require.Equal(t, 10, prog.Code[1].Rs2)
}

func TestAssembleCsrInstruction(t *testing.T) {
	prog := assembleSrc(t, "csrrs a0, cycle, zero\n")
	require.Len(t, prog.Code, 1)
	require.Equal(t, instr.OpCsrrs, prog.Code[0].Op)
	require.Equal(t, uint32(instr.CsrCycle), prog.Code[0].Csr)
}

func TestAssembleUnknownInstructionFails(t *testing.T) {
	toks, lerr := NewLexer("t.s", []byte("frobnicate a0\n")).TokenizeAll()
	require.Nil(t, lerr)
	_, errs := AssembleTokens(toks)
	require.NotNil(t, errs)
	require.True(t, errs.HasErrors())
}

func TestAssembleStoreToLabelPseudo(t *testing.T) {
	prog := assembleSrc(t, "sw a0, counter, t0\n.data\ncounter: .word 0\n")
	require.Len(t, prog.Code, 2)
	require.Equal(t, instr.OpLoadImm, prog.Code[0].Op)
	require.Equal(t, 5, prog.Code[0].Rd) // t0
	require.True(t, prog.Code[0].PreLabel)
	require.Equal(t, "counter", prog.Code[0].Label)

	require.Equal(t, instr.OpSw, prog.Code[1].Op)
	require.Equal(t, 10, prog.Code[1].Rs2) // a0
	require.Equal(t, 5, prog.Code[1].Rs1)  // t0
	require.Equal(t, int32(0), prog.Code[1].Imm)
}

func TestAssembleRealStoreImmOffsetStillParsesNormally(t *testing.T) {
	prog := assembleSrc(t, "sw a0, 8(sp)\n")
	require.Len(t, prog.Code, 1)
	require.Equal(t, instr.OpSw, prog.Code[0].Op)
	require.Equal(t, int32(8), prog.Code[0].Imm)
}

func TestAssembleStickyDataType(t *testing.T) {
	prog := assembleSrc(t, ".data\n.word\n1\n2\n3\n")
	require.Len(t, prog.Data, 12)
	require.Equal(t, uint32(1), leWord(prog.Data[0:4]))
	require.Equal(t, uint32(2), leWord(prog.Data[4:8]))
	require.Equal(t, uint32(3), leWord(prog.Data[8:12]))
}

func leWord(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func mustOffset(t *testing.T, prog *Program, name string) uint32 {
	t.Helper()
	off, ok := prog.Symtab.Lookup(name)
	require.True(t, ok, "label %q not defined", name)
	return off
}
