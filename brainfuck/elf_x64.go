package brainfuck

// elfX64Backend emits flat x86-64 machine code addressing the tape
// through r13, fixed at ElfBssAddr64 by the prologue. Syscalls use the
// `syscall` instruction per the Linux x86-64 ABI: rax = syscall number,
// rdi/rsi/rdx = args. Grounded on the mmap-and-invoke JIT pattern from the
// m-shaka reference implementation, adapted here to produce a standalone
// ELF image rather than an in-process callable.
type elfX64Backend struct {
	buf CodeBuffer
}

func newElfX64Backend() *elfX64Backend {
	b := &elfX64Backend{}
	b.buf.Code("\x49\xBD") // mov r13, imm64
	b.buf.U64(ElfBssAddr64)
	return b
}

func (b *elfX64Backend) MovePointer(n int) error {
	if n >= 0 {
		b.buf.Code("\x49\x81\xC5") // add r13, imm32
	} else {
		b.buf.Code("\x49\x81\xED") // sub r13, imm32
		n = -n
	}
	b.buf.U32(uint32(int32(n)))
	return nil
}

func (b *elfX64Backend) Add(n int) error {
	if n >= 0 {
		b.buf.Code("\x41\x80\x45\x00") // add byte [r13+0], imm8
	} else {
		b.buf.Code("\x41\x80\x6D\x00") // sub byte [r13+0], imm8
		n = -n
	}
	b.buf.WriteByte(byte(n))
	return nil
}

func (b *elfX64Backend) Assign(v int) error {
	b.buf.Code("\x41\xC6\x45\x00") // mov byte [r13+0], imm8
	b.buf.WriteByte(byte(v))
	return nil
}

func (b *elfX64Backend) Putchar() error {
	b.buf.Code("\xB8\x01\x00\x00\x00") // mov eax, 1 (sys_write)
	b.buf.Code("\xBF\x01\x00\x00\x00") // mov edi, 1 (stdout)
	b.buf.Code("\x4C\x89\xEE")         // mov rsi, r13
	b.buf.Code("\xBA\x01\x00\x00\x00") // mov edx, 1
	b.buf.Code("\x0F\x05")             // syscall
	return nil
}

func (b *elfX64Backend) Getchar() error {
	b.buf.Code("\xB8\x00\x00\x00\x00") // mov eax, 0 (sys_read)
	b.buf.Code("\xBF\x00\x00\x00\x00") // mov edi, 0 (stdin)
	b.buf.Code("\x4C\x89\xEE")         // mov rsi, r13
	b.buf.Code("\xBA\x01\x00\x00\x00") // mov edx, 1
	b.buf.Code("\x0F\x05")             // syscall
	return nil
}

func (b *elfX64Backend) emitTestJcc(jccOpcode string) int {
	b.buf.Code("\x41\x80\x7D\x00\x00") // cmp byte [r13+0], 0
	b.buf.Code(jccOpcode)
	patch := b.buf.Len()
	b.buf.U32(0)
	return patch
}

func (b *elfX64Backend) patchRel32(patchOffset int) {
	target := b.buf.Len()
	rel := int32(target - (patchOffset + 4))
	b.buf.PatchU32At(patchOffset, uint32(rel))
}

func (b *elfX64Backend) LoopStart() (int, error) {
	return b.emitTestJcc("\x0F\x84"), nil
}

func (b *elfX64Backend) LoopEnd(startPatch int) error {
	b.buf.Code("\x41\x80\x7D\x00\x00") // cmp byte [r13+0], 0
	b.buf.Code("\x0F\x85")             // jnz
	rel := int32((startPatch + 4) - (b.buf.Len() + 4))
	b.buf.U32(uint32(rel))
	b.patchRel32(startPatch)
	return nil
}

func (b *elfX64Backend) If() (int, error) {
	return b.emitTestJcc("\x0F\x84"), nil
}

func (b *elfX64Backend) EndIf(ifPatch int) error {
	b.patchRel32(ifPatch)
	return nil
}

func (b *elfX64Backend) SearchZero(step int) error {
	loopPos := b.buf.Len()
	jzPatch := b.emitTestJcc("\x0F\x84")
	if err := b.MovePointer(step); err != nil {
		return err
	}
	b.buf.Code("\xE9")
	rel := int32(loopPos - (b.buf.Len() + 4))
	b.buf.U32(uint32(rel))
	b.patchRel32(jzPatch)
	return nil
}

func (b *elfX64Backend) AddVar(offset int) error {
	b.buf.Code("\x41\x8A\x45\x00") // mov al, [r13+0]
	b.buf.Code("\x41\x00\x85")     // add byte [r13+disp32], al
	b.buf.U32(uint32(int32(offset)))
	return nil
}

func (b *elfX64Backend) SubVar(offset int) error {
	b.buf.Code("\x41\x8A\x45\x00")
	b.buf.Code("\x41\x28\x85") // sub byte [r13+disp32], al
	b.buf.U32(uint32(int32(offset)))
	return nil
}

func (b *elfX64Backend) AddCMulVar(offset, k int) error {
	b.buf.Code("\x41\x0F\xB6\x45\x00") // movzx eax, byte [r13+0]
	b.buf.Code("\xB9")                 // mov ecx, imm32
	b.buf.U32(uint32(int32(k)))
	b.buf.Code("\x0F\xAF\xC1") // imul eax, ecx
	b.buf.Code("\x41\x00\x85") // add byte [r13+disp32], al
	b.buf.U32(uint32(int32(offset)))
	return nil
}

func (b *elfX64Backend) InfLoop() error {
	jzPatch := b.emitTestJcc("\x0F\x84")
	spin := b.buf.Len()
	b.buf.Code("\xE9")
	rel := int32(spin - (b.buf.Len() + 4))
	b.buf.U32(uint32(rel))
	b.patchRel32(jzPatch)
	return nil
}

func (b *elfX64Backend) BreakPoint() error {
	b.buf.Code("\xCC")
	return nil
}

func (b *elfX64Backend) finish() []byte {
	b.buf.Code("\xB8\x3C\x00\x00\x00") // mov eax, 60 (sys_exit)
	b.buf.Code("\x31\xFF")             // xor edi, edi
	b.buf.Code("\x0F\x05")             // syscall
	return b.buf.Bytes()
}

// EmitELFx64 assembles prog into a complete 64-bit ELF executable for
// Linux/x86-64.
func EmitELFx64(prog *Program, heapSize int) ([]byte, error) {
	if heapSize <= 0 {
		heapSize = DefaultTapeSize
	}
	gen := newElfX64Backend()
	if err := Emit(gen, prog); err != nil {
		return nil, err
	}
	code := gen.finish()
	const emMachineX8664 = 62 // EM_X86_64
	return elfImage64(code, emMachineX8664, ElfTextAddr64, ElfBssAddr64, uint64(heapSize)), nil
}
