package brainfuck

import "encoding/binary"

// peX64Backend emits x86-64 machine code following the Microsoft x64
// calling convention (args in RCX/RDX/R8/R9, 32-byte shadow space, 16-byte
// stack alignment at call sites) to call into kernel32. The tape pointer
// lives in R13; R14/R15 cache the stdout/stdin handles. Calls are
// RIP-relative ("FF 15 rel32") since the image carries no relocations.
type peX64Backend struct {
	buf      CodeBuffer
	callSite map[string][]int
}

type peX64TapePatch struct{ offset int }

func (b *peX64Backend) callImport(name string) {
	b.buf.Code("\xFF\x15")
	b.callSite[name] = append(b.callSite[name], b.buf.Len())
	b.buf.U32(0)
}

func (b *peX64Backend) emitPrologue() peX64TapePatch {
	b.buf.Code("\x49\xBD") // mov r13, imm64 (tape base, patched later)
	p := b.buf.Len()
	b.buf.U64(0)

	b.buf.Code("\x48\x83\xEC\x28") // sub rsp, 0x28 (shadow space + alignment)

	b.buf.Code("\xB9\xF5\xFF\xFF\xFF") // mov ecx, -11 (STD_OUTPUT_HANDLE)
	b.callImport("GetStdHandle")
	b.buf.Code("\x49\x89\xC6") // mov r14, rax

	b.buf.Code("\xB9\xF6\xFF\xFF\xFF") // mov ecx, -10 (STD_INPUT_HANDLE)
	b.callImport("GetStdHandle")
	b.buf.Code("\x49\x89\xC7") // mov r15, rax
	return peX64TapePatch{p}
}

func (b *peX64Backend) MovePointer(n int) error {
	if n >= 0 {
		b.buf.Code("\x49\x81\xC5")
	} else {
		b.buf.Code("\x49\x81\xED")
		n = -n
	}
	b.buf.U32(uint32(int32(n)))
	return nil
}

func (b *peX64Backend) Add(n int) error {
	if n >= 0 {
		b.buf.Code("\x41\x80\x45\x00")
	} else {
		b.buf.Code("\x41\x80\x6D\x00")
		n = -n
	}
	b.buf.WriteByte(byte(n))
	return nil
}

func (b *peX64Backend) Assign(v int) error {
	b.buf.Code("\x41\xC6\x45\x00")
	b.buf.WriteByte(byte(v))
	return nil
}

func (b *peX64Backend) Putchar() error {
	// WriteFile(handle, buffer, count, &written, NULL)
	b.buf.Code("\x4C\x89\xF1")             // mov rcx, r14 (hFile = stdout)
	b.buf.Code("\x4C\x89\xEA")             // mov rdx, r13 (lpBuffer = tape head)
	b.buf.Code("\x41\xB8\x01\x00\x00\x00") // mov r8d, 1 (nNumberOfBytesToWrite)
	b.buf.Code("\x4D\x89\xE9")             // mov r9, r13 (lpNumberOfBytesWritten, reuses tape addr as scratch)
	b.callImport("WriteFile")
	return nil
}

func (b *peX64Backend) Getchar() error {
	b.buf.Code("\x4C\x89\xF9") // mov rcx, r15 (hFile = stdin)
	b.buf.Code("\x4C\x89\xEA") // mov rdx, r13 (lpBuffer)
	b.buf.Code("\x41\xB8\x01\x00\x00\x00")
	b.buf.Code("\x4D\x89\xE9")
	b.callImport("ReadFile")
	return nil
}

func (b *peX64Backend) emitTestJcc(jccOpcode string) int {
	b.buf.Code("\x41\x80\x7D\x00\x00")
	b.buf.Code(jccOpcode)
	patch := b.buf.Len()
	b.buf.U32(0)
	return patch
}

func (b *peX64Backend) patchRel32(patchOffset int) {
	target := b.buf.Len()
	rel := int32(target - (patchOffset + 4))
	b.buf.PatchU32At(patchOffset, uint32(rel))
}

func (b *peX64Backend) LoopStart() (int, error) { return b.emitTestJcc("\x0F\x84"), nil }

func (b *peX64Backend) LoopEnd(startPatch int) error {
	b.buf.Code("\x41\x80\x7D\x00\x00")
	b.buf.Code("\x0F\x85")
	rel := int32((startPatch + 4) - (b.buf.Len() + 4))
	b.buf.U32(uint32(rel))
	b.patchRel32(startPatch)
	return nil
}

func (b *peX64Backend) If() (int, error) { return b.emitTestJcc("\x0F\x84"), nil }

func (b *peX64Backend) EndIf(ifPatch int) error {
	b.patchRel32(ifPatch)
	return nil
}

func (b *peX64Backend) SearchZero(step int) error {
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

func (b *peX64Backend) AddVar(offset int) error {
	b.buf.Code("\x41\x8A\x45\x00")
	b.buf.Code("\x41\x00\x85")
	b.buf.U32(uint32(int32(offset)))
	return nil
}

func (b *peX64Backend) SubVar(offset int) error {
	b.buf.Code("\x41\x8A\x45\x00")
	b.buf.Code("\x41\x28\x85")
	b.buf.U32(uint32(int32(offset)))
	return nil
}

func (b *peX64Backend) AddCMulVar(offset, k int) error {
	b.buf.Code("\x41\x0F\xB6\x45\x00")
	b.buf.Code("\xB9")
	b.buf.U32(uint32(int32(k)))
	b.buf.Code("\x0F\xAF\xC1")
	b.buf.Code("\x41\x00\x85")
	b.buf.U32(uint32(int32(offset)))
	return nil
}

func (b *peX64Backend) InfLoop() error {
	jzPatch := b.emitTestJcc("\x0F\x84")
	spin := b.buf.Len()
	b.buf.Code("\xE9")
	rel := int32(spin - (b.buf.Len() + 4))
	b.buf.U32(uint32(rel))
	b.patchRel32(jzPatch)
	return nil
}

func (b *peX64Backend) BreakPoint() error {
	b.buf.Code("\xCC")
	return nil
}

func (b *peX64Backend) finish() []byte {
	b.buf.Code("\x33\xC9") // xor ecx, ecx (exit code)
	b.callImport("ExitProcess")
	return b.buf.Bytes()
}

// EmitPEx64 assembles prog into a minimal 64-bit PE/EXE for Windows.
func EmitPEx64(prog *Program, heapSize int) ([]byte, error) {
	if heapSize <= 0 {
		heapSize = DefaultTapeSize
	}
	gen := &peX64Backend{callSite: map[string][]int{}}
	tapePatch := gen.emitPrologue()
	if err := Emit(gen, prog); err != nil {
		return nil, err
	}
	code := gen.finish()

	idata, iatOffsets := importTable(kernel32Imports, 8)
	idataRVA := alignUp(uint32(peSectionAlign)+uint32(len(code)), peSectionAlign)
	rebaseImportTable(idata, 8, idataRVA, len(kernel32Imports))

	bssRVA := alignUp(idataRVA+uint32(len(idata)), peSectionAlign)
	tapeVA := peImageBase64 + uint64(bssRVA)
	binary.LittleEndian.PutUint64(code[tapePatch.offset:], tapeVA)

	textVA := peImageBase64 + uint64(peSectionAlign)
	idataVA := peImageBase64 + uint64(idataRVA)
	for _, name := range kernel32Imports {
		slotVA := idataVA + uint64(iatOffsets[name])
		for _, off := range gen.callSite[name] {
			callAfter := textVA + uint64(off) + 4
			rel := int32(int64(slotVA) - int64(callAfter))
			binary.LittleEndian.PutUint32(code[off:], uint32(rel))
		}
	}

	return buildPE(code, idata, uint32(heapSize), true, 0x8664, 0), nil
}
