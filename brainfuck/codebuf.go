package brainfuck

import "encoding/binary"

// CodeBuffer is an output byte sink with back-patching support: tell()
// for the current offset and a patch stack of positions that need their
// placeholder contents overwritten once a jump target is known. Shared
// by every binary backend (ELF, PE, JIT).
type CodeBuffer struct {
	buf     []byte
	patches []int
}

// Len returns the number of bytes written so far (tell()).
func (c *CodeBuffer) Len() int { return len(c.buf) }

// Bytes returns the buffer's contents.
func (c *CodeBuffer) Bytes() []byte { return c.buf }

// Write appends raw bytes.
func (c *CodeBuffer) Write(p []byte) { c.buf = append(c.buf, p...) }

// WriteByte appends a single byte.
func (c *CodeBuffer) WriteByte(b byte) { c.buf = append(c.buf, b) }

// Code appends the raw bytes of a Go string literal, the usual way to
// splice in opcode sequences written as \x escapes.
func (c *CodeBuffer) Code(s string) { c.buf = append(c.buf, []byte(s)...) }

// U16, U32, U64 append little-endian fixed-width integers.
func (c *CodeBuffer) U16(v uint16) { c.buf = append(c.buf, byte(v), byte(v>>8)) }
func (c *CodeBuffer) U32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	c.buf = append(c.buf, tmp[:]...)
}
func (c *CodeBuffer) U64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	c.buf = append(c.buf, tmp[:]...)
}

// PatchU32At overwrites the 4 bytes at offset with v, for back-patching
// a previously emitted placeholder once the real value is known.
func (c *CodeBuffer) PatchU32At(offset int, v uint32) {
	binary.LittleEndian.PutUint32(c.buf[offset:offset+4], v)
}

// PatchU64At overwrites the 8 bytes at offset with v.
func (c *CodeBuffer) PatchU64At(offset int, v uint64) {
	binary.LittleEndian.PutUint64(c.buf[offset:offset+8], v)
}

// PushPatch records the current offset on the patch stack, used to match
// an open '[' with its ']'.
func (c *CodeBuffer) PushPatch() { c.patches = append(c.patches, c.Len()) }

// PopPatch pops and returns the most recently pushed offset.
func (c *CodeBuffer) PopPatch() int {
	n := len(c.patches) - 1
	off := c.patches[n]
	c.patches = c.patches[:n]
	return off
}
