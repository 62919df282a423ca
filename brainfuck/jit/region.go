// Package jit assembles Brainfuck programs into x86-64 machine code and
// runs them in-process against a mmap'd executable region.
package jit

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// ExecutableRegion is a writable-then-executable memory window: allocate
// writable, write the emitted bytes, transition to read-execute (W^X:
// never both writable and executable at once), invoke, then drop. Grounded
// on the mmap/mprotect dance the m-shaka reference JIT performs directly
// with syscall.Mmap; this wraps the same idea behind Reserve/Write/
// Finalize/Drop so every backend gets identical region lifecycle
// handling. Invoking the code is left to the caller (Session.Run).
type ExecutableRegion struct {
	mem      []byte
	written  int
	finalized bool
}

// Reserve allocates n bytes of anonymous, private, read-write memory.
func Reserve(n int) (*ExecutableRegion, error) {
	mem, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("jit: mmap failed: %w", err)
	}
	return &ExecutableRegion{mem: mem}, nil
}

// Write appends code to the region. It is an error to call Write after
// Finalize.
func (r *ExecutableRegion) Write(code []byte) error {
	if r.finalized {
		return fmt.Errorf("jit: write after finalize")
	}
	if r.written+len(code) > len(r.mem) {
		return &AssemblerCapacityError{Wanted: r.written + len(code), Capacity: len(r.mem)}
	}
	copy(r.mem[r.written:], code)
	r.written += len(code)
	return nil
}

// Finalize transitions the region from writable to read-execute. No
// further Write calls are permitted afterward.
func (r *ExecutableRegion) Finalize() error {
	if err := unix.Mprotect(r.mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return fmt.Errorf("jit: mprotect failed: %w", err)
	}
	r.finalized = true
	return nil
}

// Drop releases the region's pages. The region must not be used again.
func (r *ExecutableRegion) Drop() error {
	if r.mem == nil {
		return nil
	}
	err := unix.Munmap(r.mem)
	r.mem = nil
	return err
}

// AssemblerCapacityError reports that emitted code would not fit in the
// reserved region.
type AssemblerCapacityError struct {
	Wanted, Capacity int
}

func (e *AssemblerCapacityError) Error() string {
	return fmt.Sprintf("jit: assembler capacity exceeded: wanted %d bytes, region holds %d", e.Wanted, e.Capacity)
}
