package brainfuck

import "encoding/binary"

// elfArmBackend emits little-endian ARM (A32) instructions addressing the
// tape through r4, fixed at ElfBssAddr32 by the prologue. Immediates wider
// than the ARM data-processing rotated-8-bit form are loaded through an
// inline literal pool: "LDR rd, [pc, #0]; B #0; .word value" — the classic
// load-immediate idiom for hand-written ARM assemblers that skip a real
// assembler's constant pool. Syscalls go through svc #0 with the number in
// r7, per the ARM EABI.
type elfArmBackend struct {
	buf CodeBuffer
}

func newElfArmBackend() *elfArmBackend {
	b := &elfArmBackend{}
	b.word32(0xE59F0000 | (4 << 12)) // ldr r4, [pc, #0]
	b.word32(0xEA000000)             // b #0 (skip literal)
	b.word32(ElfBssAddr32)
	return b
}

func (b *elfArmBackend) word32(w uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], w)
	b.buf.Write(tmp[:])
}

// loadImm32 emits the literal-pool sequence that leaves value in rd.
func (b *elfArmBackend) loadImm32(rd uint32, value int32) {
	b.word32(0xE59F0000 | (rd << 12))
	b.word32(0xEA000000)
	b.word32(uint32(value))
}

const (
	armR4 = 4 // tape pointer
	armR5 = 5 // scratch
	armR6 = 6 // scratch
	armR7 = 7 // syscall number (EABI convention)
)

func (b *elfArmBackend) ldrb(rd, rn uint32) {
	b.word32(0xE5D00000 | (rn << 16) | (rd << 12))
}

func (b *elfArmBackend) strb(rd, rn uint32) {
	b.word32(0xE5C00000 | (rn << 16) | (rd << 12))
}

func (b *elfArmBackend) addReg(rd, rn, rm uint32) {
	b.word32(0xE0800000 | (rn << 16) | (rd << 12) | rm)
}

func (b *elfArmBackend) subReg(rd, rn, rm uint32) {
	b.word32(0xE0400000 | (rn << 16) | (rd << 12) | rm)
}

func (b *elfArmBackend) mulReg(rd, rm, rs uint32) {
	// MUL rd, rm, rs
	b.word32(0xE0000090 | (rd << 16) | (rs << 8) | rm)
}

func (b *elfArmBackend) cmpImm0(rn uint32) {
	b.word32(0xE3500000 | (rn << 16)) // cmp rn, #0
}

// bcc emits a conditional branch with a placeholder offset, returning the
// instruction's own offset for later patching. cond is the 4-bit condition
// field (0x0 = EQ, 0x1 = NE, 0xE = AL).
func (b *elfArmBackend) bcc(cond uint32) int {
	patch := b.buf.Len()
	b.word32((cond << 28) | 0x0A000000)
	return patch
}

func (b *elfArmBackend) patchBranch(patchOffset int) {
	target := b.buf.Len()
	rel := int32(target-patchOffset-8) / 4
	instr := binary.LittleEndian.Uint32(b.buf.Bytes()[patchOffset : patchOffset+4])
	instr = (instr &^ 0x00FFFFFF) | (uint32(rel) & 0x00FFFFFF)
	b.buf.PatchU32At(patchOffset, instr)
}

func (b *elfArmBackend) MovePointer(n int) error {
	b.loadImm32(armR5, int32(n))
	b.addReg(armR4, armR4, armR5)
	return nil
}

func (b *elfArmBackend) Add(n int) error {
	b.ldrb(armR5, armR4)
	b.loadImm32(armR6, int32(n))
	b.addReg(armR5, armR5, armR6)
	b.strb(armR5, armR4)
	return nil
}

func (b *elfArmBackend) Assign(v int) error {
	b.loadImm32(armR5, int32(v))
	b.strb(armR5, armR4)
	return nil
}

func (b *elfArmBackend) syscall(number, a0, a1, a2 int32) {
	b.loadImm32(armR7, number)
	b.loadImm32(0, a0)
	b.loadImm32(1, a1)
	b.loadImm32(2, a2)
	b.word32(0xEF000000) // svc #0
}

// Putchar and Getchar pass the tape pointer itself as the syscall buffer
// argument, so they set up r0/r1/r2/r7 by hand rather than through
// syscall above, which only knows how to load immediate arguments.
func (b *elfArmBackend) Putchar() error {
	b.loadImm32(armR7, 4) // sys_write
	b.loadImm32(0, 1)     // stdout
	b.word32(0xE1A00000 | (1 << 12) | armR4) // mov r1, r4
	b.loadImm32(2, 1)
	b.word32(0xEF000000)
	return nil
}

func (b *elfArmBackend) Getchar() error {
	b.loadImm32(armR7, 3) // sys_read
	b.loadImm32(0, 0)     // stdin
	b.word32(0xE1A00000 | (1 << 12) | armR4) // mov r1, r4
	b.loadImm32(2, 1)
	b.word32(0xEF000000)
	return nil
}

func (b *elfArmBackend) LoopStart() (int, error) {
	b.ldrb(armR5, armR4)
	b.cmpImm0(armR5)
	return b.bcc(0x0), nil // beq
}

func (b *elfArmBackend) LoopEnd(startPatch int) error {
	b.ldrb(armR5, armR4)
	b.cmpImm0(armR5)
	backPatch := b.bcc(0x1) // bne
	target := startPatch + 4
	rel := int32(target-backPatch-8) / 4
	instr := (uint32(0x1) << 28) | 0x0A000000 | (uint32(rel) & 0x00FFFFFF)
	b.buf.PatchU32At(backPatch, instr)
	b.patchBranch(startPatch)
	return nil
}

func (b *elfArmBackend) If() (int, error) {
	b.ldrb(armR5, armR4)
	b.cmpImm0(armR5)
	return b.bcc(0x0), nil
}

func (b *elfArmBackend) EndIf(ifPatch int) error {
	b.patchBranch(ifPatch)
	return nil
}

func (b *elfArmBackend) SearchZero(step int) error {
	loopPos := b.buf.Len()
	b.ldrb(armR5, armR4)
	b.cmpImm0(armR5)
	jzPatch := b.bcc(0x0)
	if err := b.MovePointer(step); err != nil {
		return err
	}
	backPatch := b.bcc(0xE) // always
	rel := int32(loopPos-backPatch-8) / 4
	instr := (uint32(0xE) << 28) | 0x0A000000 | (uint32(rel) & 0x00FFFFFF)
	b.buf.PatchU32At(backPatch, instr)
	b.patchBranch(jzPatch)
	return nil
}

func (b *elfArmBackend) AddVar(offset int) error {
	b.ldrb(armR5, armR4)
	b.loadImm32(armR6, int32(offset))
	b.addReg(armR6, armR4, armR6)
	b.ldrb(0, armR6)
	b.addReg(0, 0, armR5)
	b.strb(0, armR6)
	return nil
}

func (b *elfArmBackend) SubVar(offset int) error {
	b.ldrb(armR5, armR4)
	b.loadImm32(armR6, int32(offset))
	b.addReg(armR6, armR4, armR6)
	b.ldrb(0, armR6)
	b.subReg(0, 0, armR5)
	b.strb(0, armR6)
	return nil
}

func (b *elfArmBackend) AddCMulVar(offset, k int) error {
	b.ldrb(armR5, armR4)
	b.loadImm32(armR6, int32(k))
	b.mulReg(armR5, armR5, armR6)
	b.loadImm32(armR6, int32(offset))
	b.addReg(armR6, armR4, armR6)
	b.ldrb(0, armR6)
	b.addReg(0, 0, armR5)
	b.strb(0, armR6)
	return nil
}

func (b *elfArmBackend) InfLoop() error {
	b.ldrb(armR5, armR4)
	b.cmpImm0(armR5)
	jzPatch := b.bcc(0x0)
	spin := b.buf.Len()
	backPatch := b.bcc(0xE)
	rel := int32(spin-backPatch-8) / 4
	instr := (uint32(0xE) << 28) | 0x0A000000 | (uint32(rel) & 0x00FFFFFF)
	b.buf.PatchU32At(backPatch, instr)
	b.patchBranch(jzPatch)
	return nil
}

func (b *elfArmBackend) BreakPoint() error {
	b.word32(0xE1200070) // bkpt #0
	return nil
}

func (b *elfArmBackend) finish() []byte {
	b.syscall(1, 0, 0, 0) // sys_exit(0)
	return b.buf.Bytes()
}

// EmitELFArmEABI assembles prog into a complete 32-bit ARM EABI ELF
// executable for Linux/ARM.
func EmitELFArmEABI(prog *Program, heapSize int) ([]byte, error) {
	if heapSize <= 0 {
		heapSize = DefaultTapeSize
	}
	gen := newElfArmBackend()
	if err := Emit(gen, prog); err != nil {
		return nil, err
	}
	code := gen.finish()
	const emMachineARM = 40 // EM_ARM
	return elfImage32(code, emMachineARM, ElfTextAddr32, ElfBssAddr32, uint32(heapSize)), nil
}
