package brainfuck

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func buildSmokeProgram(t *testing.T) *Program {
	t.Helper()
	prog, err := Build("+++[>+++<-]>.,[-]#")
	if err != nil {
		t.Fatal(err)
	}
	return prog
}

func TestEmitELFx86HasELFMagicAndMachine(t *testing.T) {
	data, err := EmitELFx86(buildSmokeProgram(t), 4096)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte{0x7F, 'E', 'L', 'F', 1}) {
		t.Fatalf("missing 32-bit ELF magic: %x", data[:16])
	}
	if machine := binary.LittleEndian.Uint16(data[18:20]); machine != 3 {
		t.Fatalf("e_machine = %d, want 3 (EM_386)", machine)
	}
}

func TestEmitELFx64HasELFMagicAndMachine(t *testing.T) {
	data, err := EmitELFx64(buildSmokeProgram(t), 4096)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte{0x7F, 'E', 'L', 'F', 2}) {
		t.Fatalf("missing 64-bit ELF magic: %x", data[:16])
	}
	if machine := binary.LittleEndian.Uint16(data[18:20]); machine != 62 {
		t.Fatalf("e_machine = %d, want 62 (EM_X86_64)", machine)
	}
}

func TestEmitELFArmEABIHasELFMagicAndMachine(t *testing.T) {
	data, err := EmitELFArmEABI(buildSmokeProgram(t), 4096)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte{0x7F, 'E', 'L', 'F', 1}) {
		t.Fatalf("missing 32-bit ELF magic: %x", data[:16])
	}
	if machine := binary.LittleEndian.Uint16(data[18:20]); machine != 40 {
		t.Fatalf("e_machine = %d, want 40 (EM_ARM)", machine)
	}
}

func TestEmitPEx86HasDOSAndPEMagic(t *testing.T) {
	data, err := EmitPEx86(buildSmokeProgram(t), 4096)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte{'M', 'Z'}) {
		t.Fatalf("missing MZ magic: %x", data[:8])
	}
	peOff := binary.LittleEndian.Uint32(data[60:64])
	if !bytes.Equal(data[peOff:peOff+4], []byte{'P', 'E', 0, 0}) {
		t.Fatalf("missing PE signature at offset %d: %x", peOff, data[peOff:peOff+4])
	}
	machine := binary.LittleEndian.Uint16(data[peOff+4 : peOff+6])
	if machine != 0x014C {
		t.Fatalf("COFF machine = %x, want 0x014C (x86)", machine)
	}
}

func TestEmitPEx64HasDOSAndPEMagic(t *testing.T) {
	data, err := EmitPEx64(buildSmokeProgram(t), 4096)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte{'M', 'Z'}) {
		t.Fatalf("missing MZ magic: %x", data[:8])
	}
	peOff := binary.LittleEndian.Uint32(data[60:64])
	machine := binary.LittleEndian.Uint16(data[peOff+4 : peOff+6])
	if machine != 0x8664 {
		t.Fatalf("COFF machine = %x, want 0x8664 (x86-64)", machine)
	}
}
