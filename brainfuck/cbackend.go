package brainfuck

import (
	"fmt"
	"io"
	"strings"
)

const cPreamble = `/* generated by brainfuck compiler: do not edit by hand */
#include <stdio.h>
#include <string.h>

#if defined(_MSC_VER)
#  define debugbreak() __debugbreak()
#elif defined(__GNUC__) && (defined(__i386__) || defined(__x86_64__))
#  define debugbreak() __asm__ volatile("int3")
#elif defined(__GNUC__) && defined(__arm__)
#  define debugbreak() __asm__ volatile(".inst 0xe7f001f0")
#else
#  define debugbreak() ((void)0)
#endif

`

// cBackend implements CodeGenerator by emitting ISO C99 text. Unlike the
// binary backends, loop bodies nest naturally as C block statements, so
// LoopStart/If never need their patch value — the matching LoopEnd/EndIf
// just closes a brace.
type cBackend struct {
	body     strings.Builder
	indent   int
	heapSize int
}

func newCBackend(heapSize int) *cBackend {
	return &cBackend{heapSize: heapSize}
}

func (c *cBackend) line(format string, args ...interface{}) {
	c.body.WriteString(strings.Repeat("  ", c.indent))
	fmt.Fprintf(&c.body, format, args...)
	c.body.WriteByte('\n')
}

func (c *cBackend) MovePointer(n int) error {
	if n >= 0 {
		c.line("p += %d;", n)
	} else {
		c.line("p -= %d;", -n)
	}
	return nil
}

func (c *cBackend) Add(n int) error {
	switch n {
	case 1:
		c.line("++*p;")
	case -1:
		c.line("--*p;")
	default:
		if n >= 0 {
			c.line("*p += %d;", n)
		} else {
			c.line("*p -= %d;", -n)
		}
	}
	return nil
}

func (c *cBackend) Assign(v int) error {
	c.line("*p = %d;", v&0xFF)
	return nil
}

func (c *cBackend) Putchar() error {
	c.line("putchar(*p);")
	return nil
}

func (c *cBackend) Getchar() error {
	c.line("{ int c = getchar(); if (c != EOF) *p = (unsigned char)c; }")
	return nil
}

func (c *cBackend) LoopStart() (int, error) {
	c.line("while (*p) {")
	c.indent++
	return 0, nil
}

func (c *cBackend) LoopEnd(int) error {
	c.indent--
	c.line("}")
	return nil
}

func (c *cBackend) If() (int, error) {
	c.line("if (*p) {")
	c.indent++
	return 0, nil
}

func (c *cBackend) EndIf(int) error {
	c.indent--
	c.line("}")
	return nil
}

func (c *cBackend) SearchZero(step int) error {
	if step == 1 {
		c.line("p = memchr(p, 0, (size_t)(memory + %d - p));", c.heapSize)
		return nil
	}
	if step == -1 {
		c.line("while (*p) --p;")
		return nil
	}
	if step > 0 {
		c.line("while (*p) p += %d;", step)
	} else {
		c.line("while (*p) p -= %d;", -step)
	}
	return nil
}

func (c *cBackend) AddVar(offset int) error {
	if offset >= 0 {
		c.line("p[%d] += *p;", offset)
	} else {
		c.line("p[-%d] += *p;", -offset)
	}
	return nil
}

func (c *cBackend) SubVar(offset int) error {
	if offset >= 0 {
		c.line("p[%d] -= *p;", offset)
	} else {
		c.line("p[-%d] -= *p;", -offset)
	}
	return nil
}

func (c *cBackend) AddCMulVar(offset, k int) error {
	idx := fmt.Sprintf("%d", offset)
	if offset < 0 {
		idx = fmt.Sprintf("-%d", -offset)
	}
	if k >= 0 {
		c.line("p[%s] += (unsigned char)(*p * %d);", idx, k)
	} else {
		c.line("p[%s] -= (unsigned char)(*p * %d);", idx, -k)
	}
	return nil
}

func (c *cBackend) InfLoop() error {
	c.line("while (*p) {}")
	return nil
}

func (c *cBackend) BreakPoint() error {
	c.line("debugbreak();")
	return nil
}

// EmitC renders prog as a standalone ISO C99 program into out.
func EmitC(out io.Writer, prog *Program, heapSize int) error {
	if heapSize <= 0 {
		heapSize = DefaultTapeSize
	}
	gen := newCBackend(heapSize)
	gen.indent = 1
	if err := Emit(gen, prog); err != nil {
		return err
	}

	if _, err := io.WriteString(out, cPreamble); err != nil {
		return err
	}
	fmt.Fprintf(out, "static unsigned char memory[%d];\n\n", heapSize)
	if _, err := io.WriteString(out, "int main(void) {\n  unsigned char *p = memory;\n"); err != nil {
		return err
	}
	if _, err := io.WriteString(out, gen.body.String()); err != nil {
		return err
	}
	_, err := io.WriteString(out, "  return 0;\n}\n")
	return err
}
