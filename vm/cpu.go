package vm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fpgrars/fpgrars/audio"
	"github.com/fpgrars/fpgrars/instr"
)

// State is the executor's run-level state machine.
type State int

const (
	StateRunning State = iota
	StateExited
	StateFatal
)

const DefaultMaxCycles = 50_000_000

// VM is the complete execution context: registers, memory, the linked
// program, the file-descriptor table, and everything an ecall can touch.
type VM struct {
	Regs   Registers
	Memory *Memory
	Code   []instr.Instruction
	PC     uint32 // byte offset into Code; instruction index is PC/4

	State    State
	ExitCode int32
	LastErr  error

	MaxCycles uint64
	Cycles    uint64

	StartedAt time.Time

	Stdout io.Writer
	Stdin  *bufio.Reader

	MIDI audio.Player

	rng *randSource

	files *fileTable
	fdMu  sync.Mutex
}

// NewVM constructs a VM ready to have a program loaded into it.
func NewVM(dataSize uint32) *VM {
	return &VM{
		Memory:    NewMemory(dataSize),
		MaxCycles: DefaultMaxCycles,
		StartedAt: time.Now(),
		Stdout:    os.Stdout,
		Stdin:     bufio.NewReader(os.Stdin),
		MIDI:      audio.NoOpPlayer{},
		rng:       newRandSource(),
		files:     newFileTable(),
	}
}

// LoadCode installs the linked instruction stream (including its trailing
// halt sentinel) and resets PC to entryAddr.
func (m *VM) LoadCode(code []instr.Instruction, entryAddr uint32) {
	m.Code = code
	m.PC = entryAddr
}

// InitializeStack sets the stack pointer (x2) to the top of the data
// segment, matching the convention that the stack grows down from there.
func (m *VM) InitializeStack() {
	m.Regs.SetGPR(2, m.Memory.DataSize())
}

// fetch returns the instruction at the current PC, or ok=false if PC is out
// of range (a fatal condition the caller turns into a diagnostic).
func (m *VM) fetch() (instr.Instruction, bool) {
	idx := m.PC / 4
	if int(idx) >= len(m.Code) {
		return instr.Instruction{}, false
	}
	return m.Code[idx], true
}

// Run executes until the program exits, faults, or MaxCycles is exceeded.
func (m *VM) Run() error {
	for m.State == StateRunning {
		if err := m.Step(); err != nil {
			return err
		}
	}
	return m.LastErr
}

// Step executes exactly one instruction.
func (m *VM) Step() error {
	if m.State != StateRunning {
		return m.LastErr
	}
	if m.MaxCycles > 0 && m.Cycles >= m.MaxCycles {
		return m.fatalf("cycle limit exceeded (%d cycles)", m.MaxCycles)
	}

	in, ok := m.fetch()
	if !ok {
		return m.fatalf("program counter 0x%08X out of range (code length %d bytes)", m.PC, len(m.Code)*4)
	}

	nextPC := m.PC + 4

	if err := m.execute(in, &nextPC); err != nil {
		return err
	}

	if fault := m.Memory.Fault(); fault != nil {
		return m.fatalf("memory fault: %s", fault.String())
	}

	m.PC = nextPC
	m.Cycles++
	return nil
}

func (m *VM) fatalf(format string, args ...any) error {
	m.State = StateFatal
	m.LastErr = fmt.Errorf(format, args...)
	return m.LastErr
}

// Exit transitions the run to StateExited with the given process exit code.
func (m *VM) Exit(code int32) {
	m.State = StateExited
	m.ExitCode = code
}
