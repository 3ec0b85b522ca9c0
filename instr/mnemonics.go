package instr

// Format identifies an instruction's operand schema, used by the assembler
// to know how many and what kind of operands to parse for a given mnemonic.
type Format int

const (
	FmtR       Format = iota // rd, rs1, rs2
	FmtI                     // rd, rs1, imm
	FmtShift                 // rd, rs1, shamt (5-bit)
	FmtLoad                  // rd, imm(rs1)
	FmtStore                 // rs2, imm(rs1)
	FmtBranch                // rs1, rs2, label
	FmtJal                   // rd, label
	FmtJalr                  // rd, rs1, imm
	FmtU                     // rd, imm
	FmtCsrReg                // rd, csr, rs1
	FmtCsrImm                // rd, csr, uimm(5 bits)
	FmtSystem                // (no operands)
	FmtFR                    // fd, fs1, fs2 (float register-register)
	FmtFR2                   // fd, fs1     (unary float op, e.g. fsqrt.s)
	FmtFCmp                  // rd, fs1, fs2 (feq/flt/fle -> integer rd)
	FmtFClass                // rd, fs1      (-> integer rd)
	FmtFCvtToInt             // rd, fs1      (fcvt.w.s / fcvt.wu.s, fmv.x.w)
	FmtFCvtToFlt             // fd, rs1      (fcvt.s.w / fcvt.s.wu, fmv.w.x)
	FmtFLoad                 // fd, imm(rs1)
	FmtFStore                // fs2, imm(rs1)
)

// MnemonicEntry is one row of the mnemonic table.
type MnemonicEntry struct {
	Op     Op
	Format Format
}

// Mnemonics maps every real (non-pseudo) instruction mnemonic to its Op and
// operand schema.
var Mnemonics = map[string]MnemonicEntry{
	"add": {OpAdd, FmtR}, "sub": {OpSub, FmtR}, "sll": {OpSll, FmtR},
	"slt": {OpSlt, FmtR}, "sltu": {OpSltu, FmtR}, "xor": {OpXor, FmtR},
	"srl": {OpSrl, FmtR}, "sra": {OpSra, FmtR}, "or": {OpOr, FmtR}, "and": {OpAnd, FmtR},

	"addi": {OpAddi, FmtI}, "slti": {OpSlti, FmtI}, "sltiu": {OpSltiu, FmtI},
	"xori": {OpXori, FmtI}, "ori": {OpOri, FmtI}, "andi": {OpAndi, FmtI},
	"slli": {OpSlli, FmtShift}, "srli": {OpSrli, FmtShift}, "srai": {OpSrai, FmtShift},

	"lui": {OpLui, FmtU}, "auipc": {OpAuipc, FmtU},

	"lb": {OpLb, FmtLoad}, "lh": {OpLh, FmtLoad}, "lw": {OpLw, FmtLoad},
	"lbu": {OpLbu, FmtLoad}, "lhu": {OpLhu, FmtLoad},
	"sb": {OpSb, FmtStore}, "sh": {OpSh, FmtStore}, "sw": {OpSw, FmtStore},

	"beq": {OpBeq, FmtBranch}, "bne": {OpBne, FmtBranch},
	"blt": {OpBlt, FmtBranch}, "bge": {OpBge, FmtBranch},
	"bltu": {OpBltu, FmtBranch}, "bgeu": {OpBgeu, FmtBranch},

	"jal": {OpJal, FmtJal}, "jalr": {OpJalr, FmtJalr},

	"ecall": {OpEcall, FmtSystem}, "ebreak": {OpEbreak, FmtSystem},

	"csrrw": {OpCsrrw, FmtCsrReg}, "csrrs": {OpCsrrs, FmtCsrReg}, "csrrc": {OpCsrrc, FmtCsrReg},
	"csrrwi": {OpCsrrwi, FmtCsrImm}, "csrrsi": {OpCsrrsi, FmtCsrImm}, "csrrci": {OpCsrrci, FmtCsrImm},

	"mul": {OpMul, FmtR}, "mulh": {OpMulh, FmtR}, "mulhsu": {OpMulhsu, FmtR}, "mulhu": {OpMulhu, FmtR},
	"div": {OpDiv, FmtR}, "divu": {OpDivu, FmtR}, "rem": {OpRem, FmtR}, "remu": {OpRemu, FmtR},

	"flw": {OpFlw, FmtFLoad}, "fsw": {OpFsw, FmtFStore},
	"fadd.s": {OpFaddS, FmtFR}, "fsub.s": {OpFsubS, FmtFR},
	"fmul.s": {OpFmulS, FmtFR}, "fdiv.s": {OpFdivS, FmtFR},
	"fsqrt.s": {OpFsqrtS, FmtFR2},
	"fmin.s":  {OpFminS, FmtFR}, "fmax.s": {OpFmaxS, FmtFR},
	"fsgnj.s": {OpFsgnjS, FmtFR}, "fsgnjn.s": {OpFsgnjnS, FmtFR}, "fsgnjx.s": {OpFsgnjxS, FmtFR},
	"feq.s": {OpFeqS, FmtFCmp}, "flt.s": {OpFltS, FmtFCmp}, "fle.s": {OpFleS, FmtFCmp},
	"fclass.s": {OpFclassS, FmtFClass},
	"fcvt.w.s":  {OpFcvtWS, FmtFCvtToInt}, "fcvt.wu.s": {OpFcvtWuS, FmtFCvtToInt},
	"fmv.x.w": {OpFmvXW, FmtFCvtToInt},
	"fcvt.s.w":  {OpFcvtSW, FmtFCvtToFlt}, "fcvt.s.wu": {OpFcvtSWu, FmtFCvtToFlt},
	"fmv.w.x": {OpFmvWX, FmtFCvtToFlt},
}

// IsRealMnemonic reports whether name names a non-pseudo instruction.
func IsRealMnemonic(name string) bool {
	_, ok := Mnemonics[name]
	return ok
}

// PseudoMnemonics lists every pseudo-op name the assembler recognizes, for
// diagnostics ("did you mean...") and --print-instructions annotation.
var PseudoMnemonics = map[string]bool{
	"li": true, "mv": true, "la": true, "ret": true, "nop": true,
	"j": true, "jr": true, "call": true, "tail": true,
	"neg": true, "not": true,
	"seqz": true, "snez": true, "sltz": true, "sgtz": true,
	"beqz": true, "bnez": true, "blez": true, "bgez": true, "bltz": true, "bgtz": true,
	"fmv.s": true,
}
