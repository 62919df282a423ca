package brainfuck

import "encoding/binary"

// elfX86Backend emits flat 32-bit x86 machine code addressing the tape
// through ESI, fixed at ElfBssAddr32 by the prologue. Syscalls go through
// int 0x80 per the Linux x86 ABI: eax = syscall number, ebx/ecx/edx = args.
type elfX86Backend struct {
	buf CodeBuffer
}

func newElfX86Backend() *elfX86Backend {
	b := &elfX86Backend{}
	b.buf.Code("\xBE")
	b.buf.U32(ElfBssAddr32) // mov esi, ElfBssAddr32
	return b
}

func le32(v int32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(v))
	return tmp[:]
}

func (b *elfX86Backend) MovePointer(n int) error {
	if n >= 0 {
		b.buf.Code("\x81\xC6") // add esi, imm32
	} else {
		b.buf.Code("\x81\xEE") // sub esi, imm32
		n = -n
	}
	b.buf.U32(uint32(n))
	return nil
}

func (b *elfX86Backend) Add(n int) error {
	if n >= 0 {
		b.buf.Code("\x80\x06") // add byte [esi], imm8
	} else {
		b.buf.Code("\x80\x2E") // sub byte [esi], imm8
		n = -n
	}
	b.buf.WriteByte(byte(n))
	return nil
}

func (b *elfX86Backend) Assign(v int) error {
	b.buf.Code("\xC6\x06") // mov byte [esi], imm8
	b.buf.WriteByte(byte(v))
	return nil
}

func (b *elfX86Backend) Putchar() error {
	b.buf.Code("\xB8\x04\x00\x00\x00") // mov eax, 4 (sys_write)
	b.buf.Code("\xBB\x01\x00\x00\x00") // mov ebx, 1 (stdout)
	b.buf.Code("\x89\xF1")             // mov ecx, esi
	b.buf.Code("\xBA\x01\x00\x00\x00") // mov edx, 1
	b.buf.Code("\xCD\x80")             // int 0x80
	return nil
}

func (b *elfX86Backend) Getchar() error {
	b.buf.Code("\xB8\x03\x00\x00\x00") // mov eax, 3 (sys_read)
	b.buf.Code("\xBB\x00\x00\x00\x00") // mov ebx, 0 (stdin)
	b.buf.Code("\x89\xF1")             // mov ecx, esi
	b.buf.Code("\xBA\x01\x00\x00\x00") // mov edx, 1
	b.buf.Code("\xCD\x80")             // int 0x80
	return nil
}

// emitTestJcc emits "cmp byte [esi], 0" followed by a near conditional
// jump with a 4-byte placeholder, returning the offset of that
// placeholder for later patching.
func (b *elfX86Backend) emitTestJcc(jccOpcode string) int {
	b.buf.Code("\x80\x3E\x00") // cmp byte [esi], 0
	b.buf.Code(jccOpcode)
	patch := b.buf.Len()
	b.buf.U32(0)
	return patch
}

func (b *elfX86Backend) patchRel32(patchOffset int) {
	target := b.buf.Len()
	rel := int32(target - (patchOffset + 4))
	b.buf.PatchU32At(patchOffset, uint32(rel))
}

func (b *elfX86Backend) LoopStart() (int, error) {
	return b.emitTestJcc("\x0F\x84"), nil // jz
}

func (b *elfX86Backend) LoopEnd(startPatch int) error {
	b.buf.Code("\x80\x3E\x00")       // cmp byte [esi], 0
	b.buf.Code("\x0F\x85")           // jnz
	rel := int32((startPatch + 4) - (b.buf.Len() + 4))
	b.buf.U32(uint32(rel))
	b.patchRel32(startPatch)
	return nil
}

func (b *elfX86Backend) If() (int, error) {
	return b.emitTestJcc("\x0F\x84"), nil // jz
}

func (b *elfX86Backend) EndIf(ifPatch int) error {
	b.patchRel32(ifPatch)
	return nil
}

func (b *elfX86Backend) SearchZero(step int) error {
	loopPos := b.buf.Len()
	jzPatch := b.emitTestJcc("\x0F\x84")
	if err := b.MovePointer(step); err != nil {
		return err
	}
	b.buf.Code("\xE9") // jmp rel32
	rel := int32(loopPos - (b.buf.Len() + 4))
	b.buf.U32(uint32(rel))
	b.patchRel32(jzPatch)
	return nil
}

func (b *elfX86Backend) AddVar(offset int) error {
	b.buf.Code("\x8A\x06")    // mov al, [esi]
	b.buf.Code("\x00\x86")    // add byte [esi+disp32], al
	b.buf.U32(uint32(int32(offset)))
	return nil
}

func (b *elfX86Backend) SubVar(offset int) error {
	b.buf.Code("\x8A\x06") // mov al, [esi]
	b.buf.Code("\x28\x86") // sub byte [esi+disp32], al
	b.buf.U32(uint32(int32(offset)))
	return nil
}

func (b *elfX86Backend) AddCMulVar(offset, k int) error {
	b.buf.Code("\x0F\xB6\x06")      // movzx eax, byte [esi]
	b.buf.Code("\xB9")              // mov ecx, imm32
	b.buf.U32(uint32(int32(k)))
	b.buf.Code("\x0F\xAF\xC1")      // imul eax, ecx
	b.buf.Code("\x00\x86")          // add byte [esi+disp32], al
	b.buf.U32(uint32(int32(offset)))
	return nil
}

func (b *elfX86Backend) InfLoop() error {
	jzPatch := b.emitTestJcc("\x0F\x84")
	spin := b.buf.Len()
	b.buf.Code("\xE9") // jmp spin
	rel := int32(spin - (b.buf.Len() + 4))
	b.buf.U32(uint32(rel))
	b.patchRel32(jzPatch)
	return nil
}

func (b *elfX86Backend) BreakPoint() error {
	b.buf.Code("\xCC") // int3
	return nil
}

func (b *elfX86Backend) finish() []byte {
	b.buf.Code("\xB8\x01\x00\x00\x00") // mov eax, 1 (sys_exit)
	b.buf.Code("\x31\xDB")             // xor ebx, ebx
	b.buf.Code("\xCD\x80")             // int 0x80
	return b.buf.Bytes()
}

// EmitELFx86 assembles prog into a complete 32-bit ELF executable for
// Linux/x86, with the tape allocated as a zero-initialized BSS segment of
// heapSize bytes at ElfBssAddr32.
func EmitELFx86(prog *Program, heapSize int) ([]byte, error) {
	if heapSize <= 0 {
		heapSize = DefaultTapeSize
	}
	gen := newElfX86Backend()
	if err := Emit(gen, prog); err != nil {
		return nil, err
	}
	code := gen.finish()
	const emMachine386 = 3 // EM_386
	return elfImage32(code, emMachine386, ElfTextAddr32, ElfBssAddr32, uint32(heapSize)), nil
}
