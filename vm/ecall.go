package vm

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fpgrars/fpgrars/audio"
)

// Environment-call codes, selected by a7 at an ecall instruction.
const (
	EcallPrintInt     = 1
	EcallPrintFloat   = 2
	EcallPrintString  = 4
	EcallReadInt      = 5
	EcallReadString   = 8
	EcallSbrk         = 9
	EcallExit         = 10
	EcallPrintChar    = 11
	EcallReadChar     = 12
	EcallTime         = 30
	EcallMIDIOutAsync = 31
	EcallSleep        = 32
	EcallMIDIOutSync  = 33
	EcallPrintIntHex  = 34
	EcallRandomInt    = 41
	EcallExit2        = 93
	EcallOpen         = 1024
	EcallClose        = 57
	EcallLseek        = 62
	EcallRead         = 63
	EcallWrite        = 64
)

// ecall dispatches on a7 and performs the selected host operation, reading
// arguments from a0-a3/fa0 and writing results back the same way. Errors
// returned here are only ever VM-integrity failures (a fatal memory fault is
// surfaced separately); ordinary operation failures (a bad file descriptor, a
// short read) are reported through the return-register convention the ecall
// table documents, not a Go error.
func (m *VM) ecall() error {
	code := m.Regs.GPR(17) // a7

	switch code {
	case EcallPrintInt:
		fmt.Fprintf(m.Stdout, "%d", int32(m.Regs.GPR(10)))

	case EcallPrintFloat:
		fmt.Fprintf(m.Stdout, "%g", m.Regs.FPR(10))

	case EcallPrintString:
		fmt.Fprint(m.Stdout, m.readCString(m.Regs.GPR(10)))

	case EcallReadInt:
		v, err := m.readDecimal()
		if err != nil {
			return m.fatalf("read int: %v", err)
		}
		m.Regs.SetGPR(10, uint32(v))

	case EcallReadString:
		m.doReadString(m.Regs.GPR(10), m.Regs.GPR(11))

	case EcallSbrk:
		old := m.Memory.Sbrk(int32(m.Regs.GPR(10)))
		m.Regs.SetGPR(10, old)

	case EcallExit:
		m.Exit(0)

	case EcallExit2:
		m.Exit(int32(m.Regs.GPR(10)))

	case EcallPrintChar:
		fmt.Fprintf(m.Stdout, "%c", byte(m.Regs.GPR(10)))

	case EcallReadChar:
		b, err := m.Stdin.ReadByte()
		if err != nil {
			m.Regs.SetGPR(10, 0xFFFFFFFF)
		} else {
			m.Regs.SetGPR(10, uint32(b))
		}

	case EcallTime:
		ms := time.Since(m.StartedAt).Milliseconds()
		m.Regs.SetGPR(10, uint32(ms))
		m.Regs.SetGPR(11, uint32(ms>>32))

	case EcallMIDIOutAsync, EcallMIDIOutSync:
		m.doMIDI(code == EcallMIDIOutSync)

	case EcallSleep:
		time.Sleep(time.Duration(m.Regs.GPR(10)) * time.Millisecond)

	case EcallPrintIntHex:
		fmt.Fprintf(m.Stdout, "%X", m.Regs.GPR(10))

	case EcallRandomInt:
		m.Regs.SetGPR(10, m.rng.Uint32())

	case EcallOpen:
		m.doOpen()
	case EcallClose:
		m.doClose()
	case EcallLseek:
		m.doLseek()
	case EcallRead:
		m.doRead()
	case EcallWrite:
		m.doWrite()

	default:
		return m.fatalf("unsupported ecall code %d (a7)", code)
	}
	return nil
}

// readCString reads a NUL-terminated byte string starting at addr.
func (m *VM) readCString(addr uint32) string {
	var b strings.Builder
	for i := uint32(0); i < 1<<20; i++ {
		c := m.Memory.ReadByte(addr + i)
		if c == 0 {
			break
		}
		b.WriteByte(c)
	}
	return b.String()
}

// writeCString stores s followed by a NUL terminator starting at addr,
// writing at most max bytes including the terminator.
func (m *VM) writeCString(addr uint32, s string, max uint32) {
	if max == 0 {
		return
	}
	n := uint32(len(s))
	if n > max-1 {
		n = max - 1
	}
	m.Memory.WriteBulk(addr, []byte(s[:n]))
	m.Memory.WriteByte(addr+n, 0)
}

func (m *VM) readDecimal() (int32, error) {
	line, err := m.Stdin.ReadString('\n')
	if err != nil && line == "" {
		return 0, err
	}
	v, perr := strconv.ParseInt(strings.TrimSpace(line), 10, 64)
	if perr != nil {
		return 0, perr
	}
	return int32(v), nil
}

func (m *VM) doReadString(addr, max uint32) {
	line, _ := m.Stdin.ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	m.writeCString(addr, line, max)
}

func (m *VM) doMIDI(sync bool) {
	pitch := int(int32(m.Regs.GPR(10)))
	durMs := int(int32(m.Regs.GPR(11)))
	instrument := int(int32(m.Regs.GPR(12)))
	velocity := int(int32(m.Regs.GPR(13)))

	dur := audio.NoteDuration(durMs)
	vel := audio.ClampVelocity(velocity)

	if sync {
		m.MIDI.PlaySync(pitch, instrument, vel, dur)
	} else {
		go m.MIDI.PlayAsync(pitch, instrument, vel, dur)
	}
}

// --- file I/O ecalls ---------------------------------------------------

func (m *VM) doOpen() {
	m.fdMu.Lock()
	defer m.fdMu.Unlock()

	path := m.readCString(m.Regs.GPR(10))
	flags := int32(m.Regs.GPR(11))

	full, err := m.files.validatePath(path)
	if err != nil {
		m.Regs.SetGPR(10, 0xFFFFFFFF)
		return
	}

	var f *os.File
	switch flags {
	case OpenRead:
		f, err = os.Open(full)
	case OpenCreateWrite:
		f, err = os.OpenFile(full, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	case OpenAppend:
		f, err = os.OpenFile(full, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	default:
		m.Regs.SetGPR(10, 0xFFFFFFFF)
		return
	}
	if err != nil {
		m.Regs.SetGPR(10, 0xFFFFFFFF)
		return
	}
	fd := m.files.alloc(f)
	if fd < 0 {
		f.Close()
		m.Regs.SetGPR(10, 0xFFFFFFFF)
		return
	}
	m.Regs.SetGPR(10, uint32(fd))
}

func (m *VM) doClose() {
	m.fdMu.Lock()
	defer m.fdMu.Unlock()

	fd := int32(m.Regs.GPR(10))
	if err := m.files.close(fd); err != nil {
		m.Regs.SetGPR(10, 0xFFFFFFFF)
		return
	}
	m.Regs.SetGPR(10, 0)
}

func (m *VM) doLseek() {
	m.fdMu.Lock()
	defer m.fdMu.Unlock()

	fd := int32(m.Regs.GPR(10))
	offset := int64(int32(m.Regs.GPR(11)))
	whence := int32(m.Regs.GPR(12))

	f, err := m.files.get(fd)
	if err != nil {
		m.Regs.SetGPR(10, 0xFFFFFFFF)
		return
	}

	var osWhence int
	switch whence {
	case SeekStart:
		osWhence = os.SEEK_SET
	case SeekCurrent:
		osWhence = os.SEEK_CUR
	case SeekEnd:
		osWhence = os.SEEK_END
	default:
		m.Regs.SetGPR(10, 0xFFFFFFFF)
		return
	}

	pos, err := f.Seek(offset, osWhence)
	if err != nil {
		m.Regs.SetGPR(10, 0xFFFFFFFF)
		return
	}
	m.Regs.SetGPR(10, uint32(pos))
}

func (m *VM) doRead() {
	m.fdMu.Lock()
	defer m.fdMu.Unlock()

	fd := int32(m.Regs.GPR(10))
	addr := m.Regs.GPR(11)
	count := m.Regs.GPR(12)

	f, err := m.files.get(fd)
	if err != nil {
		m.Regs.SetGPR(10, 0xFFFFFFFF)
		return
	}

	buf := make([]byte, count)
	var n int
	if fd == fdStdin {
		n, err = m.Stdin.Read(buf)
	} else {
		n, err = f.Read(buf)
	}
	if err != nil && n == 0 {
		m.Regs.SetGPR(10, 0xFFFFFFFF)
		return
	}
	m.Memory.WriteBulk(addr, buf[:n])
	m.Regs.SetGPR(10, uint32(n))
}

func (m *VM) doWrite() {
	m.fdMu.Lock()
	defer m.fdMu.Unlock()

	fd := int32(m.Regs.GPR(10))
	addr := m.Regs.GPR(11)
	count := m.Regs.GPR(12)

	f, err := m.files.get(fd)
	if err != nil {
		m.Regs.SetGPR(10, 0xFFFFFFFF)
		return
	}

	buf := m.Memory.ReadBulk(addr, int(count))
	n, err := f.Write(buf)
	if err != nil {
		m.Regs.SetGPR(10, 0xFFFFFFFF)
		return
	}
	m.Regs.SetGPR(10, uint32(n))
}
