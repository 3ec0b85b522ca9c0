package vm

import "github.com/fpgrars/fpgrars/instr"

// Registers holds the general-purpose, single-precision float, and CSR
// register files. Register x0 always reads 0; writes to it are discarded.
type Registers struct {
	gpr [32]uint32
	fpr [32]float32
	csr [instr.NumCSRs]uint32
}

func (r *Registers) GPR(i int) uint32 {
	if i == 0 {
		return 0
	}
	return r.gpr[i]
}

func (r *Registers) SetGPR(i int, v uint32) {
	if i == 0 {
		return
	}
	r.gpr[i] = v
}

func (r *Registers) FPR(i int) float32 { return r.fpr[i] }

func (r *Registers) SetFPR(i int, v float32) { r.fpr[i] = v }

func (r *Registers) CSR(c instr.CSR) uint32 { return r.csr[c] }

func (r *Registers) SetCSR(c instr.CSR, v uint32) { r.csr[c] = v }
