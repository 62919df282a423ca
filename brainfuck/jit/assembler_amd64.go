package jit

import (
	"fmt"
	"unsafe"

	bf "nickandperla.net/brainfuck"
)

// amd64Backend implements bf.CodeGenerator by emitting position-dependent
// x86-64 machine code. The tape pointer is kept in r13, a callee-saved
// register per the System V AMD64 ABI. The code is invoked through a Go
// func value (entryFunc), so the tape pointer arrives in rax, the first
// integer argument register of Go's internal register-based calling
// convention, and the int64 result is returned in rax. I/O goes through direct Linux
// syscalls (read=0, write=1) rather than a libc trampoline, following the
// m-shaka reference JIT this backend is grounded on.
type amd64Backend struct {
	buf bf.CodeBuffer
}

func newAMD64Backend() *amd64Backend {
	b := &amd64Backend{}
	b.buf.Code("\x41\x55")     // push r13
	b.buf.Code("\x49\x89\xC5") // mov r13, rax
	return b
}

func (b *amd64Backend) MovePointer(n int) error {
	if n >= 0 {
		b.buf.Code("\x49\x81\xC5")
	} else {
		b.buf.Code("\x49\x81\xED")
		n = -n
	}
	b.buf.U32(uint32(int32(n)))
	return nil
}

func (b *amd64Backend) Add(n int) error {
	if n >= 0 {
		b.buf.Code("\x41\x80\x45\x00")
	} else {
		b.buf.Code("\x41\x80\x6D\x00")
		n = -n
	}
	b.buf.WriteByte(byte(n))
	return nil
}

func (b *amd64Backend) Assign(v int) error {
	b.buf.Code("\x41\xC6\x45\x00")
	b.buf.WriteByte(byte(v))
	return nil
}

func (b *amd64Backend) Putchar() error {
	b.buf.Code("\xB8\x01\x00\x00\x00") // mov eax, 1 (sys_write)
	b.buf.Code("\xBF\x01\x00\x00\x00") // mov edi, 1 (stdout)
	b.buf.Code("\x4C\x89\xEE")         // mov rsi, r13
	b.buf.Code("\xBA\x01\x00\x00\x00") // mov edx, 1
	b.buf.Code("\x0F\x05")             // syscall
	return nil
}

func (b *amd64Backend) Getchar() error {
	b.buf.Code("\xB8\x00\x00\x00\x00") // mov eax, 0 (sys_read)
	b.buf.Code("\xBF\x00\x00\x00\x00") // mov edi, 0 (stdin)
	b.buf.Code("\x4C\x89\xEE")         // mov rsi, r13
	b.buf.Code("\xBA\x01\x00\x00\x00") // mov edx, 1
	b.buf.Code("\x0F\x05")             // syscall
	return nil
}

func (b *amd64Backend) emitTestJcc(jccOpcode string) int {
	b.buf.Code("\x41\x80\x7D\x00\x00")
	b.buf.Code(jccOpcode)
	patch := b.buf.Len()
	b.buf.U32(0)
	return patch
}

func (b *amd64Backend) patchRel32(patchOffset int) {
	target := b.buf.Len()
	rel := int32(target - (patchOffset + 4))
	b.buf.PatchU32At(patchOffset, uint32(rel))
}

func (b *amd64Backend) LoopStart() (int, error) { return b.emitTestJcc("\x0F\x84"), nil }

func (b *amd64Backend) LoopEnd(startPatch int) error {
	b.buf.Code("\x41\x80\x7D\x00\x00")
	b.buf.Code("\x0F\x85")
	rel := int32((startPatch + 4) - (b.buf.Len() + 4))
	b.buf.U32(uint32(rel))
	b.patchRel32(startPatch)
	return nil
}

func (b *amd64Backend) If() (int, error) { return b.emitTestJcc("\x0F\x84"), nil }

func (b *amd64Backend) EndIf(ifPatch int) error {
	b.patchRel32(ifPatch)
	return nil
}

func (b *amd64Backend) SearchZero(step int) error {
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

func (b *amd64Backend) AddVar(offset int) error {
	b.buf.Code("\x41\x8A\x45\x00")
	b.buf.Code("\x41\x00\x85")
	b.buf.U32(uint32(int32(offset)))
	return nil
}

func (b *amd64Backend) SubVar(offset int) error {
	b.buf.Code("\x41\x8A\x45\x00")
	b.buf.Code("\x41\x28\x85")
	b.buf.U32(uint32(int32(offset)))
	return nil
}

func (b *amd64Backend) AddCMulVar(offset, k int) error {
	b.buf.Code("\x41\x0F\xB6\x45\x00")
	b.buf.Code("\xB9")
	b.buf.U32(uint32(int32(k)))
	b.buf.Code("\x0F\xAF\xC1")
	b.buf.Code("\x41\x00\x85")
	b.buf.U32(uint32(int32(offset)))
	return nil
}

func (b *amd64Backend) InfLoop() error {
	jzPatch := b.emitTestJcc("\x0F\x84")
	spin := b.buf.Len()
	b.buf.Code("\xE9")
	rel := int32(spin - (b.buf.Len() + 4))
	b.buf.U32(uint32(rel))
	b.patchRel32(jzPatch)
	return nil
}

func (b *amd64Backend) BreakPoint() error {
	b.buf.Code("\xCC")
	return nil
}

func (b *amd64Backend) finish() []byte {
	b.buf.Code("\x31\xC0")     // xor eax, eax
	b.buf.Code("\x41\x5D")     // pop r13
	b.buf.Code("\xC3")         // ret
	return b.buf.Bytes()
}

// entryFunc mirrors the machine code's signature: one pointer argument,
// an int64 return. Go can invoke arbitrary machine code through a function
// value only by first converting an unsafe.Pointer to a matching func
// type — the same cast the m-shaka reference JIT uses to call its
// assembled code.
type entryFunc func(tape unsafe.Pointer) int64

// Session owns one assembled program's executable region for the
// duration of a single run.
type Session struct {
	region *ExecutableRegion
	entry  entryFunc
}

// Compile assembles prog into executable memory and returns a Session
// ready to Run against a tape. regionSize bounds how much code the
// program may generate.
func Compile(prog *bf.Program, regionSize int) (*Session, error) {
	gen := newAMD64Backend()
	if err := bf.Emit(gen, prog); err != nil {
		return nil, fmt.Errorf("jit: emit failed: %w", err)
	}
	code := gen.finish()

	region, err := Reserve(regionSize)
	if err != nil {
		return nil, err
	}
	if err := region.Write(code); err != nil {
		region.Drop()
		return nil, err
	}
	if err := region.Finalize(); err != nil {
		region.Drop()
		return nil, err
	}

	// A Go func value is a pointer to a structure whose first word is the
	// code address. codePtr points at a heap word holding that address, so
	// reinterpreting codePtr itself as a func value yields a funcval whose
	// first word is the code address. The func value keeps the heap word
	// alive for as long as the Session holds it.
	codePtr := new(uintptr)
	*codePtr = uintptr(unsafe.Pointer(&region.mem[0]))
	entry := *(*entryFunc)(unsafe.Pointer(&codePtr))
	return &Session{region: region, entry: entry}, nil
}

// Run invokes the assembled program against tape, which must be at least
// as large as every offset the program touches. It returns once the
// program falls off the end of its generated code.
func (s *Session) Run(tape []byte) error {
	if len(tape) == 0 {
		return fmt.Errorf("jit: empty tape")
	}
	s.entry(unsafe.Pointer(&tape[0]))
	return nil
}

// Close releases the session's executable region.
func (s *Session) Close() error {
	return s.region.Drop()
}
