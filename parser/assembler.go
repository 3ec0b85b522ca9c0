package parser

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/fpgrars/fpgrars/instr"
)

// section names which data buffer/label base a line affects.
type section int

const (
	sectionText section = iota
	sectionData
)

// dataType is the current `.word`/`.half`/... default for bare values in a
// `.data` section, set by the directive that named it and sticky until the
// next one.
type dataType int

const (
	dataWord dataType = iota
	dataHalf
	dataByte
	dataFloat
)

// Assembler is a two-pass assembler: it is fed an already include-flattened,
// macro-expanded token stream and produces a Program.
type Assembler struct {
	prog    *Program
	errs    ErrorList
	sect    section
	dtype   dataType
	lines   [][]Token
	numeric *numericLabels
}

// Assemble is the package entry point: lex+preprocess+macro-expand+assemble
// a single entry file, returning the resulting (still unlinked) Program.
func Assemble(filename string, reader FileReader) (*Program, *ErrorList) {
	pp := NewPreprocessor(reader)
	toks, err := pp.ExpandFile(filename)
	if err != nil {
		el := &ErrorList{}
		el.AddError(err)
		return nil, el
	}

	exp := NewMacroExpander()
	toks, err = exp.Expand(toks)
	if err != nil {
		el := &ErrorList{}
		el.AddError(err)
		return nil, el
	}

	return AssembleTokens(toks)
}

// AssembleTokens assembles an already-expanded token stream directly; used
// by tests and by Assemble.
func AssembleTokens(toks []Token) (*Program, *ErrorList) {
	a := &Assembler{
		prog:    NewProgram(),
		sect:    sectionText,
		dtype:   dataWord,
		numeric: newNumericLabels(),
	}
	a.lines = splitLines(toks)

	for _, line := range a.lines {
		if len(line) == 0 {
			continue
		}
		a.assembleLine(line)
		if a.errs.HasErrors() {
			// Keep scanning so the caller sees every error in one pass,
			// matching the front end's "one fatal report per run" model.
		}
	}

	a.prog.NumericLabels = a.numeric.defs

	if a.errs.HasErrors() {
		return nil, &a.errs
	}
	return a.prog, nil
}

// splitLines groups tokens by TokenNewline, dropping comments (an empty line
// yields an empty group, which the caller skips), and terminates at EOF.
func splitLines(toks []Token) [][]Token {
	var lines [][]Token
	var cur []Token
	for _, t := range toks {
		switch t.Type {
		case TokenComment:
			continue
		case TokenNewline:
			lines = append(lines, cur)
			cur = nil
		case TokenEOF:
			if len(cur) > 0 {
				lines = append(lines, cur)
			}
			return lines
		default:
			cur = append(cur, t)
		}
	}
	if len(cur) > 0 {
		lines = append(lines, cur)
	}
	return lines
}

func (a *Assembler) fail(pos Position, msg string) {
	a.errs.AddError(&Error{Kind: KindParser, Pos: pos, Message: msg})
}

func (a *Assembler) textAddr() uint32 { return uint32(len(a.prog.Code)) * 4 }
func (a *Assembler) dataAddr() uint32 { return uint32(len(a.prog.Data)) }

func (a *Assembler) assembleLine(line []Token) {
	i := 0

	// A label may prefix a directive or instruction on the same line.
	for i < len(line) && line[i].Type == TokenLabel {
		a.bindLabel(line[i])
		i++
	}
	if i >= len(line) {
		return
	}

	tok := line[i]
	switch tok.Type {
	case TokenDirective:
		a.assembleDirective(line, i)
	case TokenIdentifier:
		a.assembleInstruction(line, i)
	case TokenInteger, TokenFloat, TokenCharLit:
		// A bare data value line in a .data section: no directive repeats
		// the type, so it takes the last one named (the "sticky" a.dtype).
		if a.sect != sectionData {
			a.fail(tok.Pos, "data value outside a .data section")
			return
		}
		a.emitDataItems(line[i:], a.dtype)
	default:
		a.fail(tok.Pos, "expected a label, directive, or instruction")
	}
}

func (a *Assembler) bindLabel(tok Token) {
	name := tok.Literal
	if isNumericLabel(name) {
		if a.sect == sectionText {
			a.numeric.bind(name, a.textAddr())
		} else {
			a.numeric.bind(name, a.dataAddr())
		}
		return
	}
	var off uint32
	var sect Section
	if a.sect == sectionText {
		off, sect = a.textAddr(), SectionText
	} else {
		off, sect = a.dataAddr(), SectionData
	}
	if err := a.prog.Symtab.Define(name, off, sect); err != nil {
		a.fail(tok.Pos, err.Error())
	}
}

func isNumericLabel(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// numericLabels supports MIPS/RISC-V-assembler-style "1:", "1f", "1b" local
// labels: each numeric name may be (re)defined many times; "f" references
// resolve to the next definition forward, "b" to the most recent behind.
type numericLabels struct {
	defs map[string][]uint32
}

func newNumericLabels() *numericLabels { return &numericLabels{defs: map[string][]uint32{}} }

func (n *numericLabels) bind(name string, addr uint32) {
	n.defs[name] = append(n.defs[name], addr)
}

func (a *Assembler) emitDataBytes(b []byte) {
	a.prog.Data = append(a.prog.Data, b...)
}

func (a *Assembler) assembleDirective(line []Token, i int) {
	dir := line[i]
	args := line[i+1:]

	switch dir.Literal {
	case "text":
		a.sect = sectionText
	case "data":
		a.sect = sectionData
	case "global", "globl":
		if len(args) > 0 && args[0].Type == TokenIdentifier {
			a.prog.Globals = append(a.prog.Globals, args[0].Literal)
		}
	case "word":
		a.dtype = dataWord
		a.emitDataItems(args, dataWord)
	case "half":
		a.dtype = dataHalf
		a.emitDataItems(args, dataHalf)
	case "byte":
		a.dtype = dataByte
		a.emitDataItems(args, dataByte)
	case "float":
		a.dtype = dataFloat
		a.emitDataItems(args, dataFloat)
	case "ascii":
		a.emitAscii(args, false)
	case "asciz", "string":
		a.emitAscii(args, true)
	case "align":
		a.emitAlign(dir, args)
	case "space", "skip":
		a.emitSpace(dir, args)
	default:
		a.fail(dir.Pos, "unknown directive '."+dir.Literal+"'")
	}
}

func (a *Assembler) emitDataItems(args []Token, dt dataType) {
	for idx := 0; idx < len(args); idx++ {
		tok := args[idx]
		if tok.Type == TokenComma {
			continue
		}
		switch tok.Type {
		case TokenInteger:
			a.emitDataScalar(dt, tok)
		case TokenFloat:
			if dt != dataFloat {
				a.fail(tok.Pos, "floating literal in non-float data item")
				continue
			}
			var buf [4]byte
			binary.LittleEndian.PutUint32(buf[:], math.Float32bits(float32(tok.FltVal)))
			a.emitDataBytes(buf[:])
		case TokenCharLit:
			a.emitDataScalar(dt, tok)
		case TokenIdentifier:
			a.queueDataReloc(tok, dt)
		default:
			a.fail(tok.Pos, "expected a data value")
		}
	}
}

func (a *Assembler) emitDataScalar(dt dataType, tok Token) {
	v := tok.IntVal
	switch dt {
	case dataWord:
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], uint32(v))
		a.emitDataBytes(buf[:])
	case dataHalf:
		var buf [2]byte
		binary.LittleEndian.PutUint16(buf[:], uint16(v))
		a.emitDataBytes(buf[:])
	case dataByte:
		a.emitDataBytes([]byte{byte(v)})
	case dataFloat:
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(float32(v)))
		a.emitDataBytes(buf[:])
	}
}

func (a *Assembler) queueDataReloc(tok Token, dt dataType) {
	var width Width
	switch dt {
	case dataWord, dataFloat:
		width = WidthWord
	case dataHalf:
		width = WidthHalf
	case dataByte:
		width = WidthByte
	}
	a.prog.DataRelocs = append(a.prog.DataRelocs, DataRelocation{
		Position: a.dataAddr(), Width: width, Name: tok.Literal, Pos: tok.Pos,
	})
	a.emitDataBytes(make([]byte, width))
}

func (a *Assembler) emitAscii(args []Token, nulTerminate bool) {
	for _, tok := range args {
		if tok.Type != TokenStringLit {
			continue
		}
		a.emitDataBytes([]byte(tok.Literal))
		if nulTerminate {
			a.emitDataBytes([]byte{0})
		}
	}
}

func (a *Assembler) emitAlign(dir Token, args []Token) {
	if len(args) == 0 {
		a.fail(dir.Pos, "expected alignment count after .align")
		return
	}
	if args[0].Type != TokenInteger {
		a.fail(args[0].Pos, ".align LABEL is not permitted; alignment must be a constant")
		return
	}
	n := int(args[0].IntVal)
	a.emitDataBytes(make([]byte, n))
}

func (a *Assembler) emitSpace(dir Token, args []Token) {
	if len(args) == 0 || args[0].Type != TokenInteger {
		a.fail(dir.Pos, "expected byte count after .space/.skip")
		return
	}
	a.emitDataBytes(make([]byte, int(args[0].IntVal)))
}

// --- instruction assembly -------------------------------------------------

func (a *Assembler) assembleInstruction(line []Token, i int) {
	mnemonic := strings.ToLower(line[i].Literal)
	rest := line[i+1:]
	pos := line[i].Pos

	if isStoreToLabelForm(mnemonic, rest) {
		ins, err := a.expandStoreToLabel(mnemonic, rest, pos)
		if err != nil {
			a.errs.AddError(err)
			return
		}
		for _, in := range ins {
			a.appendInstruction(in)
		}
		return
	}

	if entry, ok := instr.Mnemonics[mnemonic]; ok {
		in, err := a.parseRealInstruction(entry, rest, pos)
		if err != nil {
			a.errs.AddError(err)
			return
		}
		a.appendInstruction(in)
		return
	}

	if instr.PseudoMnemonics[mnemonic] {
		ins, err := a.expandPseudo(mnemonic, rest, pos)
		if err != nil {
			a.errs.AddError(err)
			return
		}
		for _, in := range ins {
			a.appendInstruction(in)
		}
		return
	}

	a.fail(pos, "unknown instruction '"+mnemonic+"'")
}

func (a *Assembler) appendInstruction(in instr.Instruction) {
	in.Addr = a.textAddr()
	if in.PreLabel {
		a.prog.CodeRelocs = append(a.prog.CodeRelocs, CodeRelocation{
			CodeIndex: len(a.prog.Code), Name: in.Label,
		})
	} else if in.Op.IsBranch() || in.Op == instr.OpJal {
		// A literal (non-symbolic) branch/jal immediate is a PC-relative byte
		// offset in source form; normalize it to the same absolute
		// text-byte address a resolved label target ends up with, so the
		// executor never has to know which form produced it.
		in.Imm = int32(in.Addr) + in.Imm
	}
	a.prog.Code = append(a.prog.Code, in)
}
