package jit

import (
	"testing"

	bf "nickandperla.net/brainfuck"
)

func TestCompileAndRunMultiplyLoop(t *testing.T) {
	prog, err := bf.Build("+++[>+++<-]>")
	if err != nil {
		t.Fatal(err)
	}
	session, err := Compile(prog, 1<<16)
	if err != nil {
		t.Fatal(err)
	}
	defer session.Close()

	tape := make([]byte, 64)
	if err := session.Run(tape); err != nil {
		t.Fatal(err)
	}
	if tape[1] != 9 {
		t.Fatalf("tape[1] = %d, want 9 (3*3)", tape[1])
	}
	if tape[0] != 0 {
		t.Fatalf("tape[0] = %d, want 0 (decremented to zero by the loop)", tape[0])
	}
}

func TestCompileAndRunAssignAndMove(t *testing.T) {
	prog, err := bf.Build("+++++[-]+++>+++++++")
	if err != nil {
		t.Fatal(err)
	}
	session, err := Compile(prog, 1<<16)
	if err != nil {
		t.Fatal(err)
	}
	defer session.Close()

	tape := make([]byte, 64)
	if err := session.Run(tape); err != nil {
		t.Fatal(err)
	}
	if tape[0] != 3 {
		t.Fatalf("tape[0] = %d, want 3 (cleared then incremented)", tape[0])
	}
	if tape[1] != 7 {
		t.Fatalf("tape[1] = %d, want 7", tape[1])
	}
}
