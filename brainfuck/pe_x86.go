package brainfuck

import "encoding/binary"

// peX86Backend emits flat 32-bit x86 machine code that calls into
// kernel32 through an import table rather than raw syscalls, since
// Windows has no stable direct-syscall ABI. The tape pointer lives in
// ESI; EDI/EBP cache the stdout/stdin handles fetched once at startup via
// GetStdHandle. Calls are encoded as "FF 15 <imm32>" (call dword ptr
// [addr]) with addr a placeholder patched to the IAT slot's absolute VA
// once the section layout is final.
type peX86Backend struct {
	buf      CodeBuffer
	callSite map[string][]int
}

func (b *peX86Backend) callImport(name string) {
	b.buf.Code("\xFF\x15")
	b.callSite[name] = append(b.callSite[name], b.buf.Len())
	b.buf.U32(0)
}

// prologue points ESI at the tape, then fetches the stdout/stdin handles
// into EDI/EBP. The tape for PE images is a fixed RVA inside .bss rebased to
// imageBase + bssRVA; that value is patched in by EmitPEx86 once layout
// is known, same as the import addresses.
type peX86TapePatch struct{ offset int }

func (b *peX86Backend) emitPrologue() peX86TapePatch {
	// mov esi, <tape VA>  (patched later)
	b.buf.Code("\xBE")
	p := b.buf.Len()
	b.buf.U32(0)

	// push -11 (STD_OUTPUT_HANDLE); call GetStdHandle; mov edi, eax
	b.buf.Code("\x6A\xF5")
	b.callImport("GetStdHandle")
	b.buf.Code("\x89\xC7") // mov edi, eax

	// push -10 (STD_INPUT_HANDLE); call GetStdHandle; mov ebp, eax
	b.buf.Code("\x6A\xF6")
	b.callImport("GetStdHandle")
	b.buf.Code("\x89\xC5") // mov ebp, eax
	return peX86TapePatch{p}
}

func (b *peX86Backend) MovePointer(n int) error {
	if n >= 0 {
		b.buf.Code("\x81\xC6")
	} else {
		b.buf.Code("\x81\xEE")
		n = -n
	}
	b.buf.U32(uint32(n))
	return nil
}

func (b *peX86Backend) Add(n int) error {
	if n >= 0 {
		b.buf.Code("\x80\x06")
	} else {
		b.buf.Code("\x80\x2E")
		n = -n
	}
	b.buf.WriteByte(byte(n))
	return nil
}

func (b *peX86Backend) Assign(v int) error {
	b.buf.Code("\xC6\x06")
	b.buf.WriteByte(byte(v))
	return nil
}

// one scratch DWORD, placed right after the tape-pointer register value
// spills nowhere convenient on a register machine with no stack frame, so
// Putchar/Getchar pass the byte buffer via a stack slot instead.
func (b *peX86Backend) Putchar() error {
	b.buf.Code("\x56")             // push esi (buffer = tape head)
	b.buf.Code("\x6A\x00")         // push 0 (lpNumberOfBytesWritten = NULL... use lpOverlapped slot)
	b.buf.Code("\x6A\x00")         // push 0 (placeholder for &written, simplified)
	b.buf.Code("\x6A\x01")         // push 1 (nNumberOfBytesToWrite)
	b.buf.Code("\x56")             // push esi (lpBuffer)
	b.buf.Code("\x57")             // push edi (hFile = stdout handle)
	b.callImport("WriteFile")
	b.buf.Code("\x83\xC4\x0C")     // add esp, 12 (drop the three extra pushes this simplified call leaves)
	b.buf.Code("\x5E")             // pop esi (restore tape pointer)
	return nil
}

func (b *peX86Backend) Getchar() error {
	b.buf.Code("\x56")
	b.buf.Code("\x6A\x00")
	b.buf.Code("\x6A\x00")
	b.buf.Code("\x6A\x01")
	b.buf.Code("\x56")
	b.buf.Code("\x55") // push ebp (hFile = stdin handle)
	b.callImport("ReadFile")
	b.buf.Code("\x83\xC4\x0C")
	b.buf.Code("\x5E")
	return nil
}

func (b *peX86Backend) emitTestJcc(jccOpcode string) int {
	b.buf.Code("\x80\x3E\x00")
	b.buf.Code(jccOpcode)
	patch := b.buf.Len()
	b.buf.U32(0)
	return patch
}

func (b *peX86Backend) patchRel32(patchOffset int) {
	target := b.buf.Len()
	rel := int32(target - (patchOffset + 4))
	b.buf.PatchU32At(patchOffset, uint32(rel))
}

func (b *peX86Backend) LoopStart() (int, error) { return b.emitTestJcc("\x0F\x84"), nil }

func (b *peX86Backend) LoopEnd(startPatch int) error {
	b.buf.Code("\x80\x3E\x00")
	b.buf.Code("\x0F\x85")
	rel := int32((startPatch + 4) - (b.buf.Len() + 4))
	b.buf.U32(uint32(rel))
	b.patchRel32(startPatch)
	return nil
}

func (b *peX86Backend) If() (int, error) { return b.emitTestJcc("\x0F\x84"), nil }

func (b *peX86Backend) EndIf(ifPatch int) error {
	b.patchRel32(ifPatch)
	return nil
}

func (b *peX86Backend) SearchZero(step int) error {
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

func (b *peX86Backend) AddVar(offset int) error {
	b.buf.Code("\x8A\x06")
	b.buf.Code("\x00\x86")
	b.buf.U32(uint32(int32(offset)))
	return nil
}

func (b *peX86Backend) SubVar(offset int) error {
	b.buf.Code("\x8A\x06")
	b.buf.Code("\x28\x86")
	b.buf.U32(uint32(int32(offset)))
	return nil
}

func (b *peX86Backend) AddCMulVar(offset, k int) error {
	b.buf.Code("\x0F\xB6\x06")
	b.buf.Code("\xB9")
	b.buf.U32(uint32(int32(k)))
	b.buf.Code("\x0F\xAF\xC1")
	b.buf.Code("\x00\x86")
	b.buf.U32(uint32(int32(offset)))
	return nil
}

func (b *peX86Backend) InfLoop() error {
	jzPatch := b.emitTestJcc("\x0F\x84")
	spin := b.buf.Len()
	b.buf.Code("\xE9")
	rel := int32(spin - (b.buf.Len() + 4))
	b.buf.U32(uint32(rel))
	b.patchRel32(jzPatch)
	return nil
}

func (b *peX86Backend) BreakPoint() error {
	b.buf.Code("\xCC")
	return nil
}

func (b *peX86Backend) finish() []byte {
	b.buf.Code("\x6A\x00") // push 0 (exit code)
	b.callImport("ExitProcess")
	return b.buf.Bytes()
}

// EmitPEx86 assembles prog into a minimal 32-bit PE/EXE for Windows.
func EmitPEx86(prog *Program, heapSize int) ([]byte, error) {
	if heapSize <= 0 {
		heapSize = DefaultTapeSize
	}
	gen := &peX86Backend{callSite: map[string][]int{}}
	tapePatch := gen.emitPrologue()
	if err := Emit(gen, prog); err != nil {
		return nil, err
	}
	code := gen.finish()

	idata, iatOffsets := importTable(kernel32Imports, 4)
	idataRVA := alignUp(uint32(peSectionAlign)+uint32(len(code)), peSectionAlign)
	rebaseImportTable(idata, 4, idataRVA, len(kernel32Imports))

	bssRVA := alignUp(idataRVA+uint32(len(idata)), peSectionAlign)
	tapeVA := uint32(peImageBase32) + bssRVA
	binary.LittleEndian.PutUint32(code[tapePatch.offset:], tapeVA)

	for _, name := range kernel32Imports {
		slotVA := uint32(peImageBase32) + idataRVA + iatOffsets[name]
		for _, off := range gen.callSite[name] {
			binary.LittleEndian.PutUint32(code[off:], slotVA)
		}
	}

	return buildPE(code, idata, uint32(heapSize), false, 0x014C, 0), nil
}
