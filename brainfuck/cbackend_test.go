package brainfuck

import (
	"strings"
	"testing"
)

func TestEmitCProducesCompilableShape(t *testing.T) {
	prog, err := Build("+++.")
	if err != nil {
		t.Fatal(err)
	}
	var out strings.Builder
	if err := EmitC(&out, prog, 1024); err != nil {
		t.Fatal(err)
	}
	src := out.String()
	for _, want := range []string{
		"#include <stdio.h>",
		"static unsigned char memory[1024];",
		"int main(void)",
		"*p += 3;",
		"putchar(*p);",
		"return 0;",
	} {
		if !strings.Contains(src, want) {
			t.Fatalf("generated C source missing %q:\n%s", want, src)
		}
	}
}

func TestEmitCSearchZeroUsesMemchrForUnitStep(t *testing.T) {
	prog, err := Build("+>+>+>[>]<.")
	if err != nil {
		t.Fatal(err)
	}
	var out strings.Builder
	if err := EmitC(&out, prog, 4096); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "memchr(p, 0,") {
		t.Fatalf("a step-1 SearchZero should lower to memchr, got:\n%s", out.String())
	}
}

func TestEmitCBreakPointEmitsDebugbreak(t *testing.T) {
	prog, err := Build("+#+")
	if err != nil {
		t.Fatal(err)
	}
	var out strings.Builder
	if err := EmitC(&out, prog, 1024); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "debugbreak();") {
		t.Fatalf("breakpoint should emit debugbreak(), got:\n%s", out.String())
	}
}
