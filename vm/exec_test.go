package vm

import (
	"bytes"
	"math"
	"testing"

	"github.com/fpgrars/fpgrars/instr"
)

func newTestVM() *VM {
	v := NewVM(4096)
	v.Stdout = &bytes.Buffer{}
	return v
}

func step(t *testing.T, m *VM, in instr.Instruction) {
	t.Helper()
	nextPC := m.PC + 4
	if err := m.execute(in, &nextPC); err != nil {
		t.Fatalf("execute: %v", err)
	}
	m.PC = nextPC
}

func TestAddWritesSum(t *testing.T) {
	m := newTestVM()
	m.Regs.SetGPR(1, 7)
	m.Regs.SetGPR(2, 35)
	step(t, m, instr.Instruction{Op: instr.OpAdd, Rd: 3, Rs1: 1, Rs2: 2})
	if got := m.Regs.GPR(3); got != 42 {
		t.Fatalf("x3 = %d, want 42", got)
	}
}

func TestWriteToX0IsDiscarded(t *testing.T) {
	m := newTestVM()
	m.Regs.SetGPR(1, 1)
	step(t, m, instr.Instruction{Op: instr.OpAddi, Rd: 0, Rs1: 1, Imm: 1})
	if got := m.Regs.GPR(0); got != 0 {
		t.Fatalf("x0 = %d, want 0", got)
	}
}

func TestSltSignedComparison(t *testing.T) {
	m := newTestVM()
	m.Regs.SetGPR(1, 0xFFFFFFFF) // -1
	m.Regs.SetGPR(2, 1)
	step(t, m, instr.Instruction{Op: instr.OpSlt, Rd: 3, Rs1: 1, Rs2: 2})
	if m.Regs.GPR(3) != 1 {
		t.Fatal("slt: -1 < 1 should be true")
	}
	step(t, m, instr.Instruction{Op: instr.OpSltu, Rd: 4, Rs1: 1, Rs2: 2})
	if m.Regs.GPR(4) != 0 {
		t.Fatal("sltu: 0xFFFFFFFF < 1 should be false")
	}
}

func TestShiftAmountIsMaskedTo5Bits(t *testing.T) {
	m := newTestVM()
	m.Regs.SetGPR(1, 1)
	m.Regs.SetGPR(2, 33) // masked to 1
	step(t, m, instr.Instruction{Op: instr.OpSll, Rd: 3, Rs1: 1, Rs2: 2})
	if got := m.Regs.GPR(3); got != 2 {
		t.Fatalf("x3 = %d, want 2 (shift amount should mask to 5 bits)", got)
	}
}

func TestLoadStoreWordRoundTrip(t *testing.T) {
	m := newTestVM()
	m.Regs.SetGPR(1, 0) // base
	m.Regs.SetGPR(2, 0xCAFEBABE)
	step(t, m, instr.Instruction{Op: instr.OpSw, Rs1: 1, Rs2: 2, Imm: 8})
	step(t, m, instr.Instruction{Op: instr.OpLw, Rd: 3, Rs1: 1, Imm: 8})
	if got := m.Regs.GPR(3); got != 0xCAFEBABE {
		t.Fatalf("x3 = 0x%08X, want 0xCAFEBABE", got)
	}
}

func TestLoadByteSignExtends(t *testing.T) {
	m := newTestVM()
	m.Memory.WriteByte(0, 0xFF)
	step(t, m, instr.Instruction{Op: instr.OpLb, Rd: 1, Rs1: 0, Imm: 0})
	if got := int32(m.Regs.GPR(1)); got != -1 {
		t.Fatalf("lb sign extension: got %d, want -1", got)
	}
	step(t, m, instr.Instruction{Op: instr.OpLbu, Rd: 2, Rs1: 0, Imm: 0})
	if got := m.Regs.GPR(2); got != 0xFF {
		t.Fatalf("lbu zero extension: got 0x%X, want 0xFF", got)
	}
}

func TestBranchTargetIsAbsoluteAddress(t *testing.T) {
	m := newTestVM()
	m.PC = 0x100
	m.Regs.SetGPR(1, 5)
	m.Regs.SetGPR(2, 5)
	nextPC := m.PC + 4
	in := instr.Instruction{Op: instr.OpBeq, Addr: m.PC, Rs1: 1, Rs2: 2, Imm: 0x200}
	if err := m.execute(in, &nextPC); err != nil {
		t.Fatal(err)
	}
	if nextPC != 0x200 {
		t.Fatalf("branch target = 0x%X, want 0x200", nextPC)
	}
}

func TestJalSetsLinkRegisterAndJumps(t *testing.T) {
	m := newTestVM()
	m.PC = 0x40
	nextPC := m.PC + 4
	in := instr.Instruction{Op: instr.OpJal, Addr: m.PC, Rd: 1, Imm: 0x80}
	if err := m.execute(in, &nextPC); err != nil {
		t.Fatal(err)
	}
	if m.Regs.GPR(1) != 0x44 {
		t.Fatalf("ra = 0x%X, want 0x44", m.Regs.GPR(1))
	}
	if nextPC != 0x80 {
		t.Fatalf("jal target = 0x%X, want 0x80", nextPC)
	}
}

func TestJalrMasksLowBitOfTarget(t *testing.T) {
	m := newTestVM()
	m.Regs.SetGPR(1, 0x101)
	nextPC := uint32(0)
	in := instr.Instruction{Op: instr.OpJalr, Addr: 0, Rd: 0, Rs1: 1, Imm: 0}
	if err := m.execute(in, &nextPC); err != nil {
		t.Fatal(err)
	}
	if nextPC != 0x100 {
		t.Fatalf("jalr target = 0x%X, want 0x100 (low bit cleared)", nextPC)
	}
}

func TestCsrrwSwapsOldAndNewValues(t *testing.T) {
	m := newTestVM()
	m.Regs.SetCSR(instr.CsrUscratch, 11)
	m.Regs.SetGPR(1, 22)
	step(t, m, instr.Instruction{Op: instr.OpCsrrw, Rd: 2, Rs1: 1, Csr: uint32(instr.CsrUscratch)})
	if m.Regs.GPR(2) != 11 {
		t.Fatalf("csrrw old value = %d, want 11", m.Regs.GPR(2))
	}
	if m.Regs.CSR(instr.CsrUscratch) != 22 {
		t.Fatalf("csrrw new CSR value = %d, want 22", m.Regs.CSR(instr.CsrUscratch))
	}
}

func TestDivByZeroReturnsAllOnes(t *testing.T) {
	m := newTestVM()
	m.Regs.SetGPR(1, 10)
	m.Regs.SetGPR(2, 0)
	step(t, m, instr.Instruction{Op: instr.OpDivu, Rd: 3, Rs1: 1, Rs2: 2})
	if m.Regs.GPR(3) != 0xFFFFFFFF {
		t.Fatalf("divu by zero = 0x%X, want 0xFFFFFFFF", m.Regs.GPR(3))
	}
}

func TestFclassDetectsNegativeZero(t *testing.T) {
	m := newTestVM()
	m.Regs.SetFPR(1, float32(math.Copysign(0, -1)))
	step(t, m, instr.Instruction{Op: instr.OpFclassS, Rd: 2, Rs1: 1})
	if m.Regs.GPR(2) != fclassNegZero {
		t.Fatalf("fclass.s(-0.0) = 0x%X, want 0x%X", m.Regs.GPR(2), fclassNegZero)
	}
}

func TestEcallExitSetsStateAndCode(t *testing.T) {
	m := newTestVM()
	m.Regs.SetGPR(17, EcallExit2)
	m.Regs.SetGPR(10, 42)
	step(t, m, instr.Instruction{Op: instr.OpEcall})
	if m.State != StateExited {
		t.Fatal("expected StateExited after exit ecall")
	}
	if m.ExitCode != 42 {
		t.Fatalf("exit code = %d, want 42", m.ExitCode)
	}
}

func TestEcallPrintIntWritesDecimal(t *testing.T) {
	m := newTestVM()
	m.Regs.SetGPR(17, EcallPrintInt)
	m.Regs.SetGPR(10, 0xFFFFFFFB) // -5
	step(t, m, instr.Instruction{Op: instr.OpEcall})
	if got := m.Stdout.(*bytes.Buffer).String(); got != "-5" {
		t.Fatalf("stdout = %q, want \"-5\"", got)
	}
}
