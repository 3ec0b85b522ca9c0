package vm

import "testing"

func TestWordReadWriteRoundTrip(t *testing.T) {
	m := NewMemory(1024)
	m.WriteWord(16, 0xDEADBEEF)
	if got := m.ReadWord(16); got != 0xDEADBEEF {
		t.Fatalf("ReadWord: got 0x%08X, want 0xDEADBEEF", got)
	}
}

func TestByteOutOfBoundsRecordsFault(t *testing.T) {
	m := NewMemory(16)
	m.ReadByte(100)
	if m.Fault() == nil {
		t.Fatal("expected a fault for an out-of-bounds read")
	}
}

func TestSbrkGrowsHeapAndReturnsOldBreak(t *testing.T) {
	m := NewMemory(16)
	first := m.Sbrk(64)
	if first != HeapBase {
		t.Fatalf("first Sbrk should return HeapBase, got 0x%08X", first)
	}
	second := m.Sbrk(0)
	if second != HeapBase+64 {
		t.Fatalf("break after growth: got 0x%08X, want 0x%08X", second, HeapBase+64)
	}
}

func TestFramebufferWriteHonorsTransparentByte(t *testing.T) {
	m := NewMemory(16)
	m.WriteByte(MMIOBase+Frame0Off, 0x42)
	m.WriteByte(MMIOBase+Frame0Off, TransparentByte)

	dst := make([]byte, 1)
	m.Bus().ReadFrame(dst)
	if dst[0] != 0x42 {
		t.Fatalf("transparent byte should not overwrite framebuffer; got 0x%02X, want 0x42", dst[0])
	}
}

func TestWriteBulkAppliesTransparencyOnlyOverVideo(t *testing.T) {
	m := NewMemory(16)
	buf := []byte{TransparentByte, 0x01, 0x02}
	m.WriteBulk(MMIOBase+Frame0Off, buf)

	dst := make([]byte, 3)
	m.Bus().ReadFrame(dst)
	if dst[0] != 0 || dst[1] != 0x01 || dst[2] != 0x02 {
		t.Fatalf("unexpected framebuffer contents: %v", dst)
	}
}

func TestReadWordClearsKeyboardControlByte(t *testing.T) {
	m := NewMemory(16)
	m.Bus().WriteScancode(0x1E)
	if m.ReadByte(MMIOBase+KeyboardControlOff) == 0 {
		t.Fatal("control byte should be set after WriteScancode")
	}
	m.ReadWord(MMIOBase + KeyboardDataOff)
	if m.ReadByte(MMIOBase+KeyboardControlOff) != 0 {
		t.Fatal("control byte should clear after reading the keyboard data word")
	}
}

func TestSetKeyBitTogglesBitmap(t *testing.T) {
	m := NewMemory(16)
	b := m.Bus()
	b.SetKeyBit(9, true)
	if m.ReadByte(MMIOBase+KeyBitmapOff+1) == 0 {
		t.Fatal("expected bit 9 (byte 1, bit 1) set")
	}
	b.SetKeyBit(9, false)
	if m.ReadByte(MMIOBase+KeyBitmapOff+1) != 0 {
		t.Fatal("expected bit 9 cleared")
	}
}
