package brainfuck

import (
	"bytes"
	"testing"
)

func TestCodeBufferWriteAndLen(t *testing.T) {
	var buf CodeBuffer
	buf.WriteByte(0x90)
	buf.Write([]byte{0x0f, 0x05})
	buf.Code("\xc3")
	if buf.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", buf.Len())
	}
	if !bytes.Equal(buf.Bytes(), []byte{0x90, 0x0f, 0x05, 0xc3}) {
		t.Fatalf("Bytes() = %x", buf.Bytes())
	}
}

func TestCodeBufferU32Roundtrip(t *testing.T) {
	var buf CodeBuffer
	buf.U32(0xdeadbeef)
	if !bytes.Equal(buf.Bytes(), []byte{0xef, 0xbe, 0xad, 0xde}) {
		t.Fatalf("U32 wrote %x, want little-endian 0xdeadbeef", buf.Bytes())
	}
}

func TestCodeBufferPatchU32At(t *testing.T) {
	var buf CodeBuffer
	buf.WriteByte(0xe9)
	buf.U32(0) // placeholder
	buf.PatchU32At(1, 0x12345678)
	if !bytes.Equal(buf.Bytes(), []byte{0xe9, 0x78, 0x56, 0x34, 0x12}) {
		t.Fatalf("PatchU32At produced %x", buf.Bytes())
	}
}

func TestCodeBufferPatchStack(t *testing.T) {
	var buf CodeBuffer
	buf.WriteByte(1)
	buf.PushPatch()
	buf.WriteByte(2)
	buf.PushPatch()
	buf.WriteByte(3)
	if got := buf.PopPatch(); got != 2 {
		t.Fatalf("PopPatch() = %d, want 2 (LIFO)", got)
	}
	if got := buf.PopPatch(); got != 1 {
		t.Fatalf("PopPatch() = %d, want 1", got)
	}
}
