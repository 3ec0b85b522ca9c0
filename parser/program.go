package parser

import "github.com/fpgrars/fpgrars/instr"

// Program is everything the assembler produces for one source file: the
// instruction stream, the data image, the label table, and the two
// relocation lists the linker pass consumes.
type Program struct {
	Code []instr.Instruction
	Data []byte

	Symtab *SymbolTable

	CodeRelocs []CodeRelocation
	DataRelocs []DataRelocation

	Globals []string // names declared via .globl/.global, advisory only

	// NumericLabels holds every address bound to a numeric local label
	// ("1:"), in definition order, keyed by the bare digit string. A
	// "1f"/"1b" reference resolves against this list relative to the
	// referencing instruction's own address.
	NumericLabels map[string][]uint32
}

func NewProgram() *Program {
	return &Program{Symtab: NewSymbolTable()}
}
