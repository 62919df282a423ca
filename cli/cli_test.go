package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	bf "nickandperla.net/brainfuck"
)

func TestParseShortAndLongFlagsAgree(t *testing.T) {
	short, err := Parse([]string{"-t", "elfx64", "-O", "2", "-o", "out.bin", "prog.bf"})
	if err != nil {
		t.Fatal(err)
	}
	long, err := Parse([]string{"--target", "elfx64", "--optimize", "2", "--output", "out.bin", "prog.bf"})
	if err != nil {
		t.Fatal(err)
	}
	if short.Target != long.Target || short.Optimize != long.Optimize || short.Output != long.Output {
		t.Fatalf("short and long flags disagree: %+v vs %+v", short, long)
	}
	if len(short.Args) != 1 || short.Args[0] != "prog.bf" {
		t.Fatalf("Args = %v, want [prog.bf]", short.Args)
	}
}

func TestParseDefaults(t *testing.T) {
	opt, err := Parse([]string{"prog.bf"})
	if err != nil {
		t.Fatal(err)
	}
	if opt.Optimize != 1 {
		t.Fatalf("default Optimize = %d, want 1", opt.Optimize)
	}
	if opt.HeapSize != bf.DefaultTapeSize {
		t.Fatalf("default HeapSize = %d, want %d", opt.HeapSize, bf.DefaultTapeSize)
	}
}

func TestValidateTargetAcceptsKnownTargets(t *testing.T) {
	for _, target := range targets {
		if err := ValidateTarget(target); err != nil {
			t.Fatalf("ValidateTarget(%q): %v", target, err)
		}
	}
}

func TestValidateTargetSuggestsCloseTypo(t *testing.T) {
	err := ValidateTarget("elfarmeab")
	if err == nil {
		t.Fatal("expected an error for an unknown target")
	}
	ite, ok := err.(*InvalidTargetError)
	if !ok {
		t.Fatalf("got %T, want *InvalidTargetError", err)
	}
	if ite.Suggestion != "elfarmeabi" {
		t.Fatalf("Suggestion = %q, want %q", ite.Suggestion, "elfarmeabi")
	}
}

func TestValidateTargetNoSuggestionWhenFar(t *testing.T) {
	err := ValidateTarget("totally-unrelated")
	ite, ok := err.(*InvalidTargetError)
	if !ok {
		t.Fatalf("got %T, want *InvalidTargetError", err)
	}
	if ite.Suggestion != "" {
		t.Fatalf("Suggestion = %q, want empty for a distant typo", ite.Suggestion)
	}
}

func TestDefaultOutputPathSuffixByTarget(t *testing.T) {
	cases := map[string]string{
		"c":          "prog.c",
		"xbyakc":     "prog.c",
		"winx86":     "prog.exe",
		"winx64":     "prog.exe",
		"elfx86":     "prog.out",
		"elfx64":     "prog.out",
		"elfarmeabi": "prog.out",
	}
	for target, want := range cases {
		if got := DefaultOutputPath("dir/prog.bf", target); got != want {
			t.Errorf("DefaultOutputPath(%q) = %q, want %q", target, got, want)
		}
	}
}

func TestEmitDispatchesToCTarget(t *testing.T) {
	prog, err := bf.Build("+++.")
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := Emit(&out, prog, "c", 4096); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "#include <stdio.h>") {
		t.Fatalf("Emit(c) should produce C source, got:\n%s", out.String())
	}
}

func TestExecuteRunsIRInterpreter(t *testing.T) {
	prog, err := bf.Build(",+.")
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := Execute(prog, bf.DefaultTapeSize, 1, strings.NewReader("A"), &out); err != nil {
		t.Fatal(err)
	}
	if out.String() != "B" {
		t.Fatalf("got %q, want %q", out.String(), "B")
	}
}

func TestExecuteRejectsOptimizeZero(t *testing.T) {
	prog, err := bf.Build("+.")
	if err != nil {
		t.Fatal(err)
	}
	if err := Execute(prog, bf.DefaultTapeSize, 0, strings.NewReader(""), &bytes.Buffer{}); err == nil {
		t.Fatal("Execute with optimize=0 should direct callers to RunDirect")
	}
}

func TestRunDirectExecutesTrimmedSource(t *testing.T) {
	var out bytes.Buffer
	if err := RunDirect(bf.Trim(",+."), bf.DefaultTapeSize, strings.NewReader("A"), &out); err != nil {
		t.Fatal(err)
	}
	if out.String() != "B" {
		t.Fatalf("got %q, want %q", out.String(), "B")
	}
}

func TestCompileBatchBuildsEveryInput(t *testing.T) {
	dir := t.TempDir()
	paths := make([]string, 0, 4)
	for i, src := range []string{"+++.", ",+.", "+[-]", "[unterminated"} {
		path := filepath.Join(dir, string(rune('a'+i))+".bf")
		if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, path)
	}

	results := CompileBatch(paths)
	if len(results) != len(paths) {
		t.Fatalf("got %d results, want %d", len(results), len(paths))
	}
	for i := 0; i < 3; i++ {
		if results[i].Err != nil {
			t.Fatalf("result[%d] (%s): unexpected error %v", i, results[i].Path, results[i].Err)
		}
		if results[i].Program == nil {
			t.Fatalf("result[%d] (%s): Program is nil", i, results[i].Path)
		}
	}
	if results[3].Err == nil {
		t.Fatalf("result[3] should fail: source has an unmatched '['")
	}
}
