package brainfuck

import (
	"strings"
	"testing"
)

func TestDumpIndentsLoopBodies(t *testing.T) {
	prog, err := Build("+[>-]")
	if err != nil {
		t.Fatal(err)
	}
	var out strings.Builder
	if err := prog.Dump(&out); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5: %q", len(lines), lines)
	}
	if strings.HasPrefix(lines[0], " ") || strings.HasPrefix(lines[1], " ") {
		t.Fatalf("Add and LoopStart should not be indented: %q", lines[:2])
	}
	if !strings.HasPrefix(lines[2], "  ") || !strings.HasPrefix(lines[3], "  ") {
		t.Fatalf("instructions inside the loop should be indented: %q", lines[2:4])
	}
	if strings.HasPrefix(lines[4], " ") {
		t.Fatalf("LoopEnd should close back to the outer indent: %q", lines[4])
	}
}

func TestDumpFormatsJumpTargets(t *testing.T) {
	prog, err := Build("+[>-]")
	if err != nil {
		t.Fatal(err)
	}
	var out strings.Builder
	if err := prog.Dump(&out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "->") {
		t.Fatalf("loop instructions should print their jump target, got %q", out.String())
	}
}
