package instr

import "strconv"

// gprABINames maps the canonical RISC-V calling-convention names to register
// indices 0-31, grounded on original_source's register_names.rs tables.
var gprABINames = map[string]int{
	"zero": 0, "ra": 1, "sp": 2, "gp": 3, "tp": 4,
	"t0": 5, "t1": 6, "t2": 7,
	"s0": 8, "fp": 8, "s1": 9,
	"a0": 10, "a1": 11, "a2": 12, "a3": 13, "a4": 14, "a5": 15, "a6": 16, "a7": 17,
	"s2": 18, "s3": 19, "s4": 20, "s5": 21, "s6": 22, "s7": 23, "s8": 24, "s9": 25, "s10": 26, "s11": 27,
	"t3": 28, "t4": 29, "t5": 30, "t6": 31,
}

var fprABINames = map[string]int{
	"ft0": 0, "ft1": 1, "ft2": 2, "ft3": 3, "ft4": 4, "ft5": 5, "ft6": 6, "ft7": 7,
	"fs0": 8, "fs1": 9,
	"fa0": 10, "fa1": 11, "fa2": 12, "fa3": 13, "fa4": 14, "fa5": 15, "fa6": 16, "fa7": 17,
	"fs2": 18, "fs3": 19, "fs4": 20, "fs5": 21, "fs6": 22, "fs7": 23, "fs8": 24, "fs9": 25, "fs10": 26, "fs11": 27,
	"ft8": 28, "ft9": 29, "ft10": 30, "ft11": 31,
}

// ResolveGPR accepts either a numeric "xN" name or an ABI alias and returns
// the register index 0-31.
func ResolveGPR(name string) (int, bool) {
	if idx, ok := gprABINames[name]; ok {
		return idx, true
	}
	if len(name) >= 2 && name[0] == 'x' {
		if n, err := strconv.Atoi(name[1:]); err == nil && n >= 0 && n < 32 {
			return n, true
		}
	}
	return 0, false
}

// ResolveFPR accepts either a numeric "fN" name or an ABI alias and returns
// the float register index 0-31.
func ResolveFPR(name string) (int, bool) {
	if idx, ok := fprABINames[name]; ok {
		return idx, true
	}
	if len(name) >= 2 && name[0] == 'f' {
		if n, err := strconv.Atoi(name[1:]); err == nil && n >= 0 && n < 32 {
			return n, true
		}
	}
	return 0, false
}

// CSR identifies one of the fixed, enumerated control/status registers the
// simulator implements.
type CSR int

const (
	CsrUstatus CSR = iota
	CsrUtvec
	CsrUscratch
	CsrUepc
	CsrUcause
	CsrUtval
	CsrCycle
	CsrTime
	CsrInstret
	CsrTimeh
	CsrInstreth
	CsrMisa
)

// csrAliasEntry pairs one (name or numeric alias) with the CSR it names.
// Numeric aliases follow the RISC-V user-mode CSR address map; the table is
// walked in order so later duplicate entries win on insertion, preserving
// the upstream behavior noted as an open question in the design notes (a
// duplicate numeric alias of 0 exists upstream and is intentionally kept
// ambiguous here too).
var csrAliasTable = []struct {
	Key string
	Reg CSR
}{
	{"ustatus", CsrUstatus}, {"0", CsrUstatus},
	{"utvec", CsrUtvec}, {"5", CsrUtvec},
	{"uscratch", CsrUscratch}, {"64", CsrUscratch},
	{"uepc", CsrUepc}, {"65", CsrUepc},
	{"ucause", CsrUcause}, {"66", CsrUcause},
	{"utval", CsrUtval}, {"67", CsrUtval},
	{"cycle", CsrCycle}, {"3072", CsrCycle},
	{"time", CsrTime}, {"3073", CsrTime},
	{"instret", CsrInstret}, {"3074", CsrInstret},
	{"cycleh", CsrCycle}, {"3200", CsrCycle},
	{"timeh", CsrTimeh}, {"3201", CsrTimeh},
	{"instreth", CsrInstreth}, {"3202", CsrInstreth},
	{"misa", CsrMisa}, {"769", CsrMisa},
	// Intentional duplicate of numeric alias "0", matching the upstream
	// table this is ported from: the last entry inserted wins.
	{"0", CsrMisa},
}

var csrByName map[string]CSR

func init() {
	csrByName = make(map[string]CSR, len(csrAliasTable))
	for _, e := range csrAliasTable {
		csrByName[e.Key] = e.Reg
	}
}

// ResolveCSR accepts a symbolic CSR name or its numeric alias.
func ResolveCSR(name string) (CSR, bool) {
	c, ok := csrByName[name]
	return c, ok
}

const NumCSRs = int(CsrMisa) + 1
