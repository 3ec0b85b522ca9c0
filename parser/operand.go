package parser

import (
	"strconv"

	"github.com/fpgrars/fpgrars/instr"
)

// opCursor walks one instruction's operand tokens, skipping comma
// separators, the way the assembler reads operands positionally rather than
// by comma-splitting.
type opCursor struct {
	toks []Token
	pos  int
}

func newCursor(toks []Token) *opCursor { return &opCursor{toks: toks} }

func (c *opCursor) skipComma() {
	for c.pos < len(c.toks) && c.toks[c.pos].Type == TokenComma {
		c.pos++
	}
}

func (c *opCursor) next() (Token, bool) {
	c.skipComma()
	if c.pos >= len(c.toks) {
		return Token{}, false
	}
	t := c.toks[c.pos]
	c.pos++
	return t, true
}

func (c *opCursor) peek() (Token, bool) {
	c.skipComma()
	if c.pos >= len(c.toks) {
		return Token{}, false
	}
	return c.toks[c.pos], true
}

func (c *opCursor) expectRegister(lastPos Position) (int, *Error) {
	tok, ok := c.next()
	if !ok {
		return 0, &Error{Kind: KindParser, Pos: lastPos, Message: "expected a register operand"}
	}
	if tok.Type != TokenIdentifier {
		return 0, &Error{Kind: KindParser, Pos: tok.Pos, Message: "expected a register name, found '" + tok.Literal + "'"}
	}
	if reg, ok := instr.ResolveGPR(tok.Literal); ok {
		return reg, nil
	}
	return 0, &Error{Kind: KindParser, Pos: tok.Pos, Message: "'" + tok.Literal + "' is not a valid register name"}
}

func (c *opCursor) expectFPRegister(lastPos Position) (int, *Error) {
	tok, ok := c.next()
	if !ok {
		return 0, &Error{Kind: KindParser, Pos: lastPos, Message: "expected a floating-point register operand"}
	}
	if tok.Type != TokenIdentifier {
		return 0, &Error{Kind: KindParser, Pos: tok.Pos, Message: "expected a float register name, found '" + tok.Literal + "'"}
	}
	if reg, ok := instr.ResolveFPR(tok.Literal); ok {
		return reg, nil
	}
	return 0, &Error{Kind: KindParser, Pos: tok.Pos, Message: "'" + tok.Literal + "' is not a valid float register name"}
}

func (c *opCursor) expectCSR(lastPos Position) (uint32, *Error) {
	tok, ok := c.next()
	if !ok {
		return 0, &Error{Kind: KindParser, Pos: lastPos, Message: "expected a CSR operand"}
	}
	name := tok.Literal
	if tok.Type == TokenInteger {
		name = strconv.FormatInt(tok.IntVal, 10)
	}
	if csr, ok := instr.ResolveCSR(name); ok {
		return uint32(csr), nil
	}
	return 0, &Error{Kind: KindParser, Pos: tok.Pos, Message: "'" + name + "' is not a recognized CSR"}
}

// expectImmediate reads a plain numeric/char immediate (not a label).
func (c *opCursor) expectImmediate(lastPos Position) (int32, *Error) {
	tok, ok := c.next()
	if !ok {
		return 0, &Error{Kind: KindParser, Pos: lastPos, Message: "expected an immediate value"}
	}
	switch tok.Type {
	case TokenInteger, TokenCharLit:
		return int32(tok.IntVal), nil
	default:
		return 0, &Error{Kind: KindParser, Pos: tok.Pos, Message: "expected an immediate value, found '" + tok.Literal + "'"}
	}
}

// expectLabelOrImm reads either a numeric immediate or a symbolic target,
// used by jal/branch/la operands. When the token is an identifier it yields
// (0, name, true); an immediate yields (value, "", false).
func (c *opCursor) expectLabelOrImm(lastPos Position) (int32, string, bool, *Error) {
	tok, ok := c.next()
	if !ok {
		return 0, "", false, &Error{Kind: KindParser, Pos: lastPos, Message: "expected a label or immediate"}
	}
	switch tok.Type {
	case TokenInteger:
		return int32(tok.IntVal), "", false, nil
	case TokenIdentifier:
		return 0, resolveNumericRef(tok.Literal), true, nil
	default:
		return 0, "", false, &Error{Kind: KindParser, Pos: tok.Pos, Message: "expected a label or immediate, found '" + tok.Literal + "'"}
	}
}

// resolveNumericRef passes through ordinary labels unchanged; numeric
// f/b-suffixed references ("1f", "1b") are left for the assembler's label
// binder to interpret (kept as their literal spelling here; full numeric
// label forward/backward disambiguation happens in bindLabel/numericLabels
// and the linker pass, which picks the nearest of any number of definitions).
func resolveNumericRef(name string) string { return name }

// expectMemOperand parses the canonical `imm(reg)` load/store addressing
// form; imm defaults to 0 when omitted (a bare `(reg)`).
func (c *opCursor) expectMemOperand(lastPos Position) (imm int32, reg int, err *Error) {
	tok, ok := c.peek()
	if !ok {
		return 0, 0, &Error{Kind: KindParser, Pos: lastPos, Message: "expected a memory operand"}
	}

	if tok.Type == TokenInteger || tok.Type == TokenCharLit {
		c.next()
		imm = int32(tok.IntVal)
	}

	lp, ok := c.next()
	if !ok || lp.Type != TokenLParen {
		return 0, 0, &Error{Kind: KindParser, Pos: tok.Pos, Message: "expected '(' in memory operand"}
	}
	reg, rerr := c.expectRegister(lp.Pos)
	if rerr != nil {
		return 0, 0, rerr
	}
	rp, ok := c.next()
	if !ok || rp.Type != TokenRParen {
		return 0, 0, &Error{Kind: KindParser, Pos: lp.Pos, Message: "expected ')' to close memory operand"}
	}
	return imm, reg, nil
}

// parseRealInstruction builds an Instruction for a non-pseudo mnemonic
// according to its Format schema.
func (a *Assembler) parseRealInstruction(entry instr.MnemonicEntry, toks []Token, pos Position) (instr.Instruction, *Error) {
	c := newCursor(toks)
	in := instr.Instruction{Op: entry.Op}

	switch entry.Format {
	case instr.FmtR:
		rd, err := c.expectRegister(pos)
		if err != nil {
			return in, err
		}
		rs1, err := c.expectRegister(pos)
		if err != nil {
			return in, err
		}
		rs2, err := c.expectRegister(pos)
		if err != nil {
			return in, err
		}
		in.Rd, in.Rs1, in.Rs2 = rd, rs1, rs2

	case instr.FmtI:
		rd, err := c.expectRegister(pos)
		if err != nil {
			return in, err
		}
		rs1, err := c.expectRegister(pos)
		if err != nil {
			return in, err
		}
		imm, err := c.expectImmediate(pos)
		if err != nil {
			return in, err
		}
		in.Rd, in.Rs1, in.Imm = rd, rs1, imm

	case instr.FmtShift:
		rd, err := c.expectRegister(pos)
		if err != nil {
			return in, err
		}
		rs1, err := c.expectRegister(pos)
		if err != nil {
			return in, err
		}
		imm, err := c.expectImmediate(pos)
		if err != nil {
			return in, err
		}
		in.Rd, in.Rs1, in.Imm = rd, rs1, imm&0x1f

	case instr.FmtU:
		rd, err := c.expectRegister(pos)
		if err != nil {
			return in, err
		}
		imm, err := c.expectImmediate(pos)
		if err != nil {
			return in, err
		}
		in.Rd, in.Imm = rd, imm

	case instr.FmtLoad:
		rd, err := c.expectRegister(pos)
		if err != nil {
			return in, err
		}
		imm, rs1, err := c.expectMemOperand(pos)
		if err != nil {
			return in, err
		}
		in.Rd, in.Rs1, in.Imm = rd, rs1, imm

	case instr.FmtStore:
		rs2, err := c.expectRegister(pos)
		if err != nil {
			return in, err
		}
		imm, rs1, err := c.expectMemOperand(pos)
		if err != nil {
			return in, err
		}
		in.Rs2, in.Rs1, in.Imm = rs2, rs1, imm

	case instr.FmtBranch:
		rs1, err := c.expectRegister(pos)
		if err != nil {
			return in, err
		}
		rs2, err := c.expectRegister(pos)
		if err != nil {
			return in, err
		}
		imm, label, isLabel, err := c.expectLabelOrImm(pos)
		if err != nil {
			return in, err
		}
		in.Rs1, in.Rs2 = rs1, rs2
		if isLabel {
			in.Label, in.PreLabel = label, true
		} else {
			in.Imm = imm
		}

	case instr.FmtJal:
		rd, err := c.expectRegister(pos)
		if err != nil {
			return in, err
		}
		imm, label, isLabel, err := c.expectLabelOrImm(pos)
		if err != nil {
			return in, err
		}
		in.Rd = rd
		if isLabel {
			in.Label, in.PreLabel = label, true
		} else {
			in.Imm = imm
		}

	case instr.FmtJalr:
		rd, err := c.expectRegister(pos)
		if err != nil {
			return in, err
		}
		rs1, err := c.expectRegister(pos)
		if err != nil {
			return in, err
		}
		imm, err := c.expectImmediate(pos)
		if err != nil {
			return in, err
		}
		in.Rd, in.Rs1, in.Imm = rd, rs1, imm

	case instr.FmtSystem:
		// no operands

	case instr.FmtCsrReg:
		rd, err := c.expectRegister(pos)
		if err != nil {
			return in, err
		}
		csr, err := c.expectCSR(pos)
		if err != nil {
			return in, err
		}
		rs1, err := c.expectRegister(pos)
		if err != nil {
			return in, err
		}
		in.Rd, in.Csr, in.Rs1 = rd, csr, rs1

	case instr.FmtCsrImm:
		rd, err := c.expectRegister(pos)
		if err != nil {
			return in, err
		}
		csr, err := c.expectCSR(pos)
		if err != nil {
			return in, err
		}
		imm, err := c.expectImmediate(pos)
		if err != nil {
			return in, err
		}
		in.Rd, in.Csr, in.Imm = rd, csr, imm&0x1f

	case instr.FmtFR:
		fd, err := c.expectFPRegister(pos)
		if err != nil {
			return in, err
		}
		fs1, err := c.expectFPRegister(pos)
		if err != nil {
			return in, err
		}
		fs2, err := c.expectFPRegister(pos)
		if err != nil {
			return in, err
		}
		in.Rd, in.Rs1, in.Rs2 = fd, fs1, fs2

	case instr.FmtFR2:
		fd, err := c.expectFPRegister(pos)
		if err != nil {
			return in, err
		}
		fs1, err := c.expectFPRegister(pos)
		if err != nil {
			return in, err
		}
		in.Rd, in.Rs1 = fd, fs1

	case instr.FmtFCmp:
		rd, err := c.expectRegister(pos)
		if err != nil {
			return in, err
		}
		fs1, err := c.expectFPRegister(pos)
		if err != nil {
			return in, err
		}
		fs2, err := c.expectFPRegister(pos)
		if err != nil {
			return in, err
		}
		in.Rd, in.Rs1, in.Rs2 = rd, fs1, fs2

	case instr.FmtFClass:
		rd, err := c.expectRegister(pos)
		if err != nil {
			return in, err
		}
		fs1, err := c.expectFPRegister(pos)
		if err != nil {
			return in, err
		}
		in.Rd, in.Rs1 = rd, fs1

	case instr.FmtFCvtToInt:
		rd, err := c.expectRegister(pos)
		if err != nil {
			return in, err
		}
		fs1, err := c.expectFPRegister(pos)
		if err != nil {
			return in, err
		}
		in.Rd, in.Rs1 = rd, fs1

	case instr.FmtFCvtToFlt:
		fd, err := c.expectFPRegister(pos)
		if err != nil {
			return in, err
		}
		rs1, err := c.expectRegister(pos)
		if err != nil {
			return in, err
		}
		in.Rd, in.Rs1 = fd, rs1

	case instr.FmtFLoad:
		fd, err := c.expectFPRegister(pos)
		if err != nil {
			return in, err
		}
		imm, rs1, err := c.expectMemOperand(pos)
		if err != nil {
			return in, err
		}
		in.Rd, in.Rs1, in.Imm = fd, rs1, imm

	case instr.FmtFStore:
		fs2, err := c.expectFPRegister(pos)
		if err != nil {
			return in, err
		}
		imm, rs1, err := c.expectMemOperand(pos)
		if err != nil {
			return in, err
		}
		in.Rs2, in.Rs1, in.Imm = fs2, rs1, imm
	}

	return in, nil
}

// fitsSigned12 reports whether v fits in a 12-bit signed immediate, the
// threshold `li`'s expansion uses to decide between addi and a single
// OpLoadImm.
func fitsSigned12(v int32) bool { return v >= -2048 && v <= 2047 }
