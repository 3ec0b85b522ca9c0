package vm

import (
	"math"

	"github.com/fpgrars/fpgrars/instr"
)

// execute performs the effect of one decoded instruction. *nextPC arrives
// holding the address of the following instruction; execute overwrites it
// only when the instruction redirects control flow (branch taken, jump, jalr).
func (m *VM) execute(in instr.Instruction, nextPC *uint32) error {
	r := &m.Regs

	switch in.Op {
	// --- register-register arithmetic/logical ---------------------------
	case instr.OpAdd:
		r.SetGPR(in.Rd, r.GPR(in.Rs1)+r.GPR(in.Rs2))
	case instr.OpSub:
		r.SetGPR(in.Rd, r.GPR(in.Rs1)-r.GPR(in.Rs2))
	case instr.OpSll:
		r.SetGPR(in.Rd, r.GPR(in.Rs1)<<(r.GPR(in.Rs2)&0x1f))
	case instr.OpSlt:
		r.SetGPR(in.Rd, boolU32(int32(r.GPR(in.Rs1)) < int32(r.GPR(in.Rs2))))
	case instr.OpSltu:
		r.SetGPR(in.Rd, boolU32(r.GPR(in.Rs1) < r.GPR(in.Rs2)))
	case instr.OpXor:
		r.SetGPR(in.Rd, r.GPR(in.Rs1)^r.GPR(in.Rs2))
	case instr.OpSrl:
		r.SetGPR(in.Rd, r.GPR(in.Rs1)>>(r.GPR(in.Rs2)&0x1f))
	case instr.OpSra:
		r.SetGPR(in.Rd, uint32(int32(r.GPR(in.Rs1))>>(r.GPR(in.Rs2)&0x1f)))
	case instr.OpOr:
		r.SetGPR(in.Rd, r.GPR(in.Rs1)|r.GPR(in.Rs2))
	case instr.OpAnd:
		r.SetGPR(in.Rd, r.GPR(in.Rs1)&r.GPR(in.Rs2))

	// --- register-immediate -----------------------------------------------
	case instr.OpAddi:
		r.SetGPR(in.Rd, r.GPR(in.Rs1)+uint32(in.Imm))
	case instr.OpSlti:
		r.SetGPR(in.Rd, boolU32(int32(r.GPR(in.Rs1)) < in.Imm))
	case instr.OpSltiu:
		r.SetGPR(in.Rd, boolU32(r.GPR(in.Rs1) < uint32(in.Imm)))
	case instr.OpXori:
		r.SetGPR(in.Rd, r.GPR(in.Rs1)^uint32(in.Imm))
	case instr.OpOri:
		r.SetGPR(in.Rd, r.GPR(in.Rs1)|uint32(in.Imm))
	case instr.OpAndi:
		r.SetGPR(in.Rd, r.GPR(in.Rs1)&uint32(in.Imm))
	case instr.OpSlli:
		r.SetGPR(in.Rd, r.GPR(in.Rs1)<<uint32(in.Imm&0x1f))
	case instr.OpSrli:
		r.SetGPR(in.Rd, r.GPR(in.Rs1)>>uint32(in.Imm&0x1f))
	case instr.OpSrai:
		r.SetGPR(in.Rd, uint32(int32(r.GPR(in.Rs1))>>uint32(in.Imm&0x1f)))

	// --- upper immediate ----------------------------------------------------
	case instr.OpLui:
		r.SetGPR(in.Rd, uint32(in.Imm)<<12)
	case instr.OpAuipc:
		r.SetGPR(in.Rd, in.Addr+uint32(uint32(in.Imm)<<12))

	// --- loads/stores -------------------------------------------------------
	case instr.OpLb:
		addr := r.GPR(in.Rs1) + uint32(in.Imm)
		r.SetGPR(in.Rd, uint32(int32(int8(m.Memory.ReadByte(addr)))))
	case instr.OpLbu:
		addr := r.GPR(in.Rs1) + uint32(in.Imm)
		r.SetGPR(in.Rd, uint32(m.Memory.ReadByte(addr)))
	case instr.OpLh:
		addr := r.GPR(in.Rs1) + uint32(in.Imm)
		r.SetGPR(in.Rd, uint32(int32(int16(m.Memory.ReadHalf(addr)))))
	case instr.OpLhu:
		addr := r.GPR(in.Rs1) + uint32(in.Imm)
		r.SetGPR(in.Rd, uint32(m.Memory.ReadHalf(addr)))
	case instr.OpLw:
		addr := r.GPR(in.Rs1) + uint32(in.Imm)
		r.SetGPR(in.Rd, m.Memory.ReadWord(addr))
	case instr.OpSb:
		addr := r.GPR(in.Rs1) + uint32(in.Imm)
		m.Memory.WriteByte(addr, byte(r.GPR(in.Rs2)))
	case instr.OpSh:
		addr := r.GPR(in.Rs1) + uint32(in.Imm)
		m.Memory.WriteHalf(addr, uint16(r.GPR(in.Rs2)))
	case instr.OpSw:
		addr := r.GPR(in.Rs1) + uint32(in.Imm)
		m.Memory.WriteWord(addr, r.GPR(in.Rs2))

	// --- control flow ---------------------------------------------------
	case instr.OpBeq:
		if r.GPR(in.Rs1) == r.GPR(in.Rs2) {
			*nextPC = uint32(in.Imm)
		}
	case instr.OpBne:
		if r.GPR(in.Rs1) != r.GPR(in.Rs2) {
			*nextPC = uint32(in.Imm)
		}
	case instr.OpBlt:
		if int32(r.GPR(in.Rs1)) < int32(r.GPR(in.Rs2)) {
			*nextPC = uint32(in.Imm)
		}
	case instr.OpBge:
		if int32(r.GPR(in.Rs1)) >= int32(r.GPR(in.Rs2)) {
			*nextPC = uint32(in.Imm)
		}
	case instr.OpBltu:
		if r.GPR(in.Rs1) < r.GPR(in.Rs2) {
			*nextPC = uint32(in.Imm)
		}
	case instr.OpBgeu:
		if r.GPR(in.Rs1) >= r.GPR(in.Rs2) {
			*nextPC = uint32(in.Imm)
		}
	case instr.OpJal:
		r.SetGPR(in.Rd, in.Addr+4)
		*nextPC = uint32(in.Imm)
	case instr.OpJalr:
		target := (r.GPR(in.Rs1) + uint32(in.Imm)) &^ 1
		r.SetGPR(in.Rd, in.Addr+4)
		*nextPC = target

	// --- system --------------------------------------------------------
	case instr.OpEcall:
		if err := m.ecall(); err != nil {
			return err
		}
	case instr.OpEbreak:
		// No debugger is attached in this execution mode; treated as a no-op.

	// --- Zicsr -----------------------------------------------------------
	case instr.OpCsrrw:
		old := r.CSR(instr.CSR(in.Csr))
		r.SetCSR(instr.CSR(in.Csr), r.GPR(in.Rs1))
		r.SetGPR(in.Rd, old)
	case instr.OpCsrrs:
		old := r.CSR(instr.CSR(in.Csr))
		if in.Rs1 != 0 {
			r.SetCSR(instr.CSR(in.Csr), old|r.GPR(in.Rs1))
		}
		r.SetGPR(in.Rd, old)
	case instr.OpCsrrc:
		old := r.CSR(instr.CSR(in.Csr))
		if in.Rs1 != 0 {
			r.SetCSR(instr.CSR(in.Csr), old&^r.GPR(in.Rs1))
		}
		r.SetGPR(in.Rd, old)
	case instr.OpCsrrwi:
		old := r.CSR(instr.CSR(in.Csr))
		r.SetCSR(instr.CSR(in.Csr), uint32(in.Imm))
		r.SetGPR(in.Rd, old)
	case instr.OpCsrrsi:
		old := r.CSR(instr.CSR(in.Csr))
		if in.Imm != 0 {
			r.SetCSR(instr.CSR(in.Csr), old|uint32(in.Imm))
		}
		r.SetGPR(in.Rd, old)
	case instr.OpCsrrci:
		old := r.CSR(instr.CSR(in.Csr))
		if in.Imm != 0 {
			r.SetCSR(instr.CSR(in.Csr), old&^uint32(in.Imm))
		}
		r.SetGPR(in.Rd, old)

	// --- M extension -----------------------------------------------------
	case instr.OpMul:
		r.SetGPR(in.Rd, r.GPR(in.Rs1)*r.GPR(in.Rs2))
	case instr.OpMulh:
		r.SetGPR(in.Rd, uint32(mulh(int32(r.GPR(in.Rs1)), int32(r.GPR(in.Rs2)))))
	case instr.OpMulhsu:
		r.SetGPR(in.Rd, uint32(mulhsu(int32(r.GPR(in.Rs1)), r.GPR(in.Rs2))))
	case instr.OpMulhu:
		r.SetGPR(in.Rd, uint32(mulhu(r.GPR(in.Rs1), r.GPR(in.Rs2))))
	case instr.OpDiv:
		r.SetGPR(in.Rd, uint32(sdiv(int32(r.GPR(in.Rs1)), int32(r.GPR(in.Rs2)))))
	case instr.OpDivu:
		r.SetGPR(in.Rd, udiv(r.GPR(in.Rs1), r.GPR(in.Rs2)))
	case instr.OpRem:
		r.SetGPR(in.Rd, uint32(srem(int32(r.GPR(in.Rs1)), int32(r.GPR(in.Rs2)))))
	case instr.OpRemu:
		r.SetGPR(in.Rd, urem(r.GPR(in.Rs1), r.GPR(in.Rs2)))

	// --- pseudo-ops retained into the executed program --------------------
	case instr.OpLoadImm:
		r.SetGPR(in.Rd, uint32(in.Imm))
	case instr.OpMoveReg:
		r.SetGPR(in.Rd, r.GPR(in.Rs1))

	// --- F extension -------------------------------------------------------
	case instr.OpFlw:
		addr := r.GPR(in.Rs1) + uint32(in.Imm)
		r.SetFPR(in.Rd, m.Memory.ReadFloat(addr))
	case instr.OpFsw:
		addr := r.GPR(in.Rs1) + uint32(in.Imm)
		m.Memory.WriteFloat(addr, r.FPR(in.Rs2))
	case instr.OpFaddS:
		r.SetFPR(in.Rd, r.FPR(in.Rs1)+r.FPR(in.Rs2))
	case instr.OpFsubS:
		r.SetFPR(in.Rd, r.FPR(in.Rs1)-r.FPR(in.Rs2))
	case instr.OpFmulS:
		r.SetFPR(in.Rd, r.FPR(in.Rs1)*r.FPR(in.Rs2))
	case instr.OpFdivS:
		r.SetFPR(in.Rd, r.FPR(in.Rs1)/r.FPR(in.Rs2))
	case instr.OpFsqrtS:
		r.SetFPR(in.Rd, float32(math.Sqrt(float64(r.FPR(in.Rs1)))))
	case instr.OpFminS:
		r.SetFPR(in.Rd, fmin(r.FPR(in.Rs1), r.FPR(in.Rs2)))
	case instr.OpFmaxS:
		r.SetFPR(in.Rd, fmax(r.FPR(in.Rs1), r.FPR(in.Rs2)))
	case instr.OpFsgnjS:
		r.SetFPR(in.Rd, withSign(r.FPR(in.Rs1), sign(r.FPR(in.Rs2))))
	case instr.OpFsgnjnS:
		r.SetFPR(in.Rd, withSign(r.FPR(in.Rs1), !sign(r.FPR(in.Rs2))))
	case instr.OpFsgnjxS:
		r.SetFPR(in.Rd, withSign(r.FPR(in.Rs1), sign(r.FPR(in.Rs1)) != sign(r.FPR(in.Rs2))))
	case instr.OpFeqS:
		r.SetGPR(in.Rd, boolU32(r.FPR(in.Rs1) == r.FPR(in.Rs2)))
	case instr.OpFltS:
		r.SetGPR(in.Rd, boolU32(r.FPR(in.Rs1) < r.FPR(in.Rs2)))
	case instr.OpFleS:
		r.SetGPR(in.Rd, boolU32(r.FPR(in.Rs1) <= r.FPR(in.Rs2)))
	case instr.OpFclassS:
		r.SetGPR(in.Rd, classifyFloat(r.FPR(in.Rs1)))
	case instr.OpFcvtWS:
		r.SetGPR(in.Rd, uint32(floatToInt32(r.FPR(in.Rs1))))
	case instr.OpFcvtWuS:
		r.SetGPR(in.Rd, floatToUint32(r.FPR(in.Rs1)))
	case instr.OpFcvtSW:
		r.SetFPR(in.Rd, float32(int32(r.GPR(in.Rs1))))
	case instr.OpFcvtSWu:
		r.SetFPR(in.Rd, float32(r.GPR(in.Rs1)))
	case instr.OpFmvXW:
		r.SetGPR(in.Rd, math.Float32bits(r.FPR(in.Rs1)))
	case instr.OpFmvWX:
		r.SetFPR(in.Rd, math.Float32frombits(r.GPR(in.Rs1)))

	case instr.OpHaltSentinel:
		m.Exit(0)

	default:
		return m.fatalf("unimplemented opcode %d at 0x%08X", in.Op, in.Addr)
	}
	return nil
}

func boolU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func sign(f float32) bool { return math.Signbit(float64(f)) }

func withSign(f float32, neg bool) float32 {
	mag := float32(math.Abs(float64(f)))
	if neg {
		return -mag
	}
	return mag
}

func fmin(a, b float32) float32 {
	if math.IsNaN(float64(a)) {
		return b
	}
	if math.IsNaN(float64(b)) {
		return a
	}
	if a < b {
		return a
	}
	return b
}

func fmax(a, b float32) float32 {
	if math.IsNaN(float64(a)) {
		return b
	}
	if math.IsNaN(float64(b)) {
		return a
	}
	if a > b {
		return a
	}
	return b
}

// floatToInt32 saturates out-of-range and NaN conversions to the
// representable extremes, matching the RISC-V fcvt.w.s invalid-result rule.
func floatToInt32(f float32) int32 {
	if math.IsNaN(float64(f)) {
		return math.MaxInt32
	}
	v := float64(f)
	if v >= math.MaxInt32 {
		return math.MaxInt32
	}
	if v <= math.MinInt32 {
		return math.MinInt32
	}
	return int32(v)
}

func floatToUint32(f float32) uint32 {
	if math.IsNaN(float64(f)) {
		return math.MaxUint32
	}
	v := float64(f)
	if v <= 0 {
		return 0
	}
	if v >= math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}

func mulh(a, b int32) int64  { return int64(int64(a) * int64(b) >> 32) }
func mulhu(a, b uint32) uint64 {
	return uint64((uint64(a) * uint64(b)) >> 32)
}
func mulhsu(a int32, b uint32) int64 {
	return int64((int64(a) * int64(b)) >> 32)
}

func sdiv(a, b int32) int32 {
	if b == 0 {
		return -1
	}
	if a == math.MinInt32 && b == -1 {
		return math.MinInt32
	}
	return a / b
}

func udiv(a, b uint32) uint32 {
	if b == 0 {
		return 0xFFFFFFFF
	}
	return a / b
}

func srem(a, b int32) int32 {
	if b == 0 {
		return a
	}
	if a == math.MinInt32 && b == -1 {
		return 0
	}
	return a % b
}

func urem(a, b uint32) uint32 {
	if b == 0 {
		return a
	}
	return a % b
}
