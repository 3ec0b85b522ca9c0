package vm

import (
	"bufio"
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/fpgrars/fpgrars/instr"
)

func TestOpenWriteCloseReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := newTestVM()
	m.SetFilesystemRoot(dir)

	name := "greeting.txt"
	m.Memory.WriteBulk(0, append([]byte(name), 0))

	// open(name, CreateWrite)
	m.Regs.SetGPR(17, EcallOpen)
	m.Regs.SetGPR(10, 0)
	m.Regs.SetGPR(11, OpenCreateWrite)
	step(t, m, instr.Instruction{Op: instr.OpEcall})
	fd := m.Regs.GPR(10)
	if int32(fd) < 0 {
		t.Fatalf("open failed, a0 = 0x%X", fd)
	}

	payload := "hello"
	m.Memory.WriteBulk(64, []byte(payload))
	m.Regs.SetGPR(17, EcallWrite)
	m.Regs.SetGPR(10, fd)
	m.Regs.SetGPR(11, 64)
	m.Regs.SetGPR(12, uint32(len(payload)))
	step(t, m, instr.Instruction{Op: instr.OpEcall})
	if n := m.Regs.GPR(10); n != uint32(len(payload)) {
		t.Fatalf("write returned %d, want %d", n, len(payload))
	}

	m.Regs.SetGPR(17, EcallClose)
	m.Regs.SetGPR(10, fd)
	step(t, m, instr.Instruction{Op: instr.OpEcall})

	data, err := os.ReadFile(dir + "/" + name)
	if err != nil {
		t.Fatalf("reading back file: %v", err)
	}
	if string(data) != payload {
		t.Fatalf("file contents = %q, want %q", data, payload)
	}
}

func TestOpenRejectsPathEscape(t *testing.T) {
	dir := t.TempDir()
	m := newTestVM()
	m.SetFilesystemRoot(dir)

	m.Memory.WriteBulk(0, append([]byte("../escape.txt"), 0))
	m.Regs.SetGPR(17, EcallOpen)
	m.Regs.SetGPR(10, 0)
	m.Regs.SetGPR(11, OpenCreateWrite)
	step(t, m, instr.Instruction{Op: instr.OpEcall})
	if int32(m.Regs.GPR(10)) >= 0 {
		t.Fatal("expected open to fail for a path escaping the sandbox root")
	}
}

func TestReadStringStopsAtNewlineAndTerminates(t *testing.T) {
	m := newTestVM()
	m.Stdin = bufio.NewReader(strings.NewReader("hi\n"))

	m.Regs.SetGPR(17, EcallReadString)
	m.Regs.SetGPR(10, 0)
	m.Regs.SetGPR(11, 16)
	step(t, m, instr.Instruction{Op: instr.OpEcall})

	got := m.readCString(0)
	if got != "hi" {
		t.Fatalf("read string = %q, want %q", got, "hi")
	}
}

func TestPrintStringReadsUntilNUL(t *testing.T) {
	m := newTestVM()
	m.Memory.WriteBulk(0, append([]byte("abc"), 0, 'z'))
	m.Regs.SetGPR(17, EcallPrintString)
	m.Regs.SetGPR(10, 0)
	step(t, m, instr.Instruction{Op: instr.OpEcall})
	if got := m.Stdout.(*bytes.Buffer).String(); got != "abc" {
		t.Fatalf("stdout = %q, want %q", got, "abc")
	}
}
