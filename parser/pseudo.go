package parser

import "github.com/fpgrars/fpgrars/instr"

const zeroReg = 0
const raReg = 1

// expandPseudo lowers one pseudo-mnemonic into the sequence of real/abstract
// instructions it stands for. Most expand to exactly one instruction; `li`
// with an out-of-range immediate expands to a single OpLoadImm (the
// instruction model is not constrained to the real ISA's 12-bit immediate
// window, so no lui+addi split is needed at this layer — see instr.Instruction).
func (a *Assembler) expandPseudo(mnemonic string, toks []Token, pos Position) ([]instr.Instruction, *Error) {
	c := newCursor(toks)

	switch mnemonic {
	case "li":
		rd, err := c.expectRegister(pos)
		if err != nil {
			return nil, err
		}
		imm, err := c.expectImmediate(pos)
		if err != nil {
			return nil, err
		}
		if fitsSigned12(imm) {
			return one(instr.Instruction{Op: instr.OpAddi, Rd: rd, Rs1: zeroReg, Imm: imm}), nil
		}
		return one(instr.Instruction{Op: instr.OpLoadImm, Rd: rd, Imm: imm}), nil

	case "la":
		rd, err := c.expectRegister(pos)
		if err != nil {
			return nil, err
		}
		label, lerr := c.expectIdentifier(pos, "a label")
		if lerr != nil {
			return nil, lerr
		}
		return one(instr.Instruction{Op: instr.OpLoadImm, Rd: rd, Label: label, PreLabel: true}), nil

	case "mv":
		rd, err := c.expectRegister(pos)
		if err != nil {
			return nil, err
		}
		rs, err := c.expectRegister(pos)
		if err != nil {
			return nil, err
		}
		return one(instr.Instruction{Op: instr.OpMoveReg, Rd: rd, Rs1: rs}), nil

	case "ret":
		return one(instr.Instruction{Op: instr.OpJalr, Rd: zeroReg, Rs1: raReg, Imm: 0}), nil

	case "nop":
		return one(instr.Instruction{Op: instr.OpAddi, Rd: zeroReg, Rs1: zeroReg, Imm: 0}), nil

	case "j":
		imm, label, isLabel, err := c.expectLabelOrImm(pos)
		if err != nil {
			return nil, err
		}
		in := instr.Instruction{Op: instr.OpJal, Rd: zeroReg}
		setTarget(&in, imm, label, isLabel)
		return one(in), nil

	case "jr":
		rs, err := c.expectRegister(pos)
		if err != nil {
			return nil, err
		}
		return one(instr.Instruction{Op: instr.OpJalr, Rd: zeroReg, Rs1: rs, Imm: 0}), nil

	case "call":
		label, err := c.expectIdentifier(pos, "a call target")
		if err != nil {
			return nil, err
		}
		return one(instr.Instruction{Op: instr.OpJal, Rd: raReg, Label: label, PreLabel: true}), nil

	case "tail":
		label, err := c.expectIdentifier(pos, "a tail-call target")
		if err != nil {
			return nil, err
		}
		return one(instr.Instruction{Op: instr.OpJal, Rd: zeroReg, Label: label, PreLabel: true}), nil

	case "neg":
		rd, rs, err := c.rdRs(pos)
		if err != nil {
			return nil, err
		}
		return one(instr.Instruction{Op: instr.OpSub, Rd: rd, Rs1: zeroReg, Rs2: rs}), nil

	case "not":
		rd, rs, err := c.rdRs(pos)
		if err != nil {
			return nil, err
		}
		return one(instr.Instruction{Op: instr.OpXori, Rd: rd, Rs1: rs, Imm: -1}), nil

	case "seqz":
		rd, rs, err := c.rdRs(pos)
		if err != nil {
			return nil, err
		}
		return one(instr.Instruction{Op: instr.OpSltiu, Rd: rd, Rs1: rs, Imm: 1}), nil

	case "snez":
		rd, rs, err := c.rdRs(pos)
		if err != nil {
			return nil, err
		}
		return one(instr.Instruction{Op: instr.OpSltu, Rd: rd, Rs1: zeroReg, Rs2: rs}), nil

	case "sltz":
		rd, rs, err := c.rdRs(pos)
		if err != nil {
			return nil, err
		}
		return one(instr.Instruction{Op: instr.OpSlt, Rd: rd, Rs1: rs, Rs2: zeroReg}), nil

	case "sgtz":
		rd, rs, err := c.rdRs(pos)
		if err != nil {
			return nil, err
		}
		return one(instr.Instruction{Op: instr.OpSlt, Rd: rd, Rs1: zeroReg, Rs2: rs}), nil

	case "beqz", "bnez", "blez", "bgez", "bltz", "bgtz":
		rs, err := c.expectRegister(pos)
		if err != nil {
			return nil, err
		}
		imm, label, isLabel, err := c.expectLabelOrImm(pos)
		if err != nil {
			return nil, err
		}
		in := branchPseudoOp(mnemonic, rs)
		setTarget(&in, imm, label, isLabel)
		return one(in), nil

	case "fmv.s":
		fd, err := c.expectFPRegister(pos)
		if err != nil {
			return nil, err
		}
		fs, err := c.expectFPRegister(pos)
		if err != nil {
			return nil, err
		}
		return one(instr.Instruction{Op: instr.OpFsgnjS, Rd: fd, Rs1: fs, Rs2: fs}), nil
	}

	return nil, &Error{Kind: KindParser, Pos: pos, Message: "unhandled pseudo-instruction '" + mnemonic + "'"}
}

func one(in instr.Instruction) []instr.Instruction { return []instr.Instruction{in} }

// storeToLabelOps maps the three store mnemonics to their real Op, for the
// `sw rs, label, tmp` pseudo form (expandStoreToLabel): store to a symbolic
// address via a scratch register instead of an already-computed base.
var storeToLabelOps = map[string]instr.Op{
	"sw": instr.OpSw, "sh": instr.OpSh, "sb": instr.OpSb,
}

// isStoreToLabelForm reports whether a store mnemonic's operand tokens are
// the three-operand `rs, label, tmp` pseudo form rather than the real
// `rs, imm(rs1)` addressing form. The real form always opens a base-register
// group with '('; the pseudo form never does.
func isStoreToLabelForm(mnemonic string, rest []Token) bool {
	if _, ok := storeToLabelOps[mnemonic]; !ok {
		return false
	}
	n := 0
	for _, t := range rest {
		if t.Type == TokenLParen {
			return false
		}
		if t.Type != TokenComma {
			n++
		}
	}
	return n == 3
}

// expandStoreToLabel lowers `sw rs, label, tmp` into `la tmp, label` followed
// by the real store through tmp, the standard two-instruction sequence for
// storing to a symbolic address with no base register already pointing at it.
func (a *Assembler) expandStoreToLabel(mnemonic string, toks []Token, pos Position) ([]instr.Instruction, *Error) {
	c := newCursor(toks)
	rs2, err := c.expectRegister(pos)
	if err != nil {
		return nil, err
	}
	label, err := c.expectIdentifier(pos, "a label")
	if err != nil {
		return nil, err
	}
	tmp, err := c.expectRegister(pos)
	if err != nil {
		return nil, err
	}
	return []instr.Instruction{
		{Op: instr.OpLoadImm, Rd: tmp, Label: label, PreLabel: true},
		{Op: storeToLabelOps[mnemonic], Rs2: rs2, Rs1: tmp, Imm: 0},
	}, nil
}

func setTarget(in *instr.Instruction, imm int32, label string, isLabel bool) {
	if isLabel {
		in.Label, in.PreLabel = label, true
	} else {
		in.Imm = imm
	}
}

// branchPseudoOp returns the real two-register branch this single-register
// pseudo-branch lowers to, with the constant zero register plugged into
// whichever side the comparison needs (e.g. "bgtz rs" is "0 < rs").
func branchPseudoOp(mnemonic string, rs int) instr.Instruction {
	switch mnemonic {
	case "beqz":
		return instr.Instruction{Op: instr.OpBeq, Rs1: rs, Rs2: zeroReg}
	case "bnez":
		return instr.Instruction{Op: instr.OpBne, Rs1: rs, Rs2: zeroReg}
	case "blez":
		return instr.Instruction{Op: instr.OpBge, Rs1: zeroReg, Rs2: rs}
	case "bgez":
		return instr.Instruction{Op: instr.OpBge, Rs1: rs, Rs2: zeroReg}
	case "bltz":
		return instr.Instruction{Op: instr.OpBlt, Rs1: rs, Rs2: zeroReg}
	default: // "bgtz"
		return instr.Instruction{Op: instr.OpBlt, Rs1: zeroReg, Rs2: rs}
	}
}

func (c *opCursor) rdRs(lastPos Position) (rd, rs int, err *Error) {
	rd, err = c.expectRegister(lastPos)
	if err != nil {
		return 0, 0, err
	}
	rs, err = c.expectRegister(lastPos)
	return rd, rs, err
}

func (c *opCursor) expectIdentifier(lastPos Position, what string) (string, *Error) {
	tok, ok := c.next()
	if !ok {
		return "", &Error{Kind: KindParser, Pos: lastPos, Message: "expected " + what}
	}
	if tok.Type != TokenIdentifier {
		return "", &Error{Kind: KindParser, Pos: tok.Pos, Message: "expected " + what + ", found '" + tok.Literal + "'"}
	}
	return tok.Literal, nil
}
