package brainfuck

import "testing"

// recordingGenerator implements CodeGenerator and just records the call
// order and patch arguments it received, so tests can assert Emit's
// patch-stack bookkeeping without any real instruction encoding.
type recordingGenerator struct {
	calls      []string
	nextPatch  int
	loopEndArg []int
	endIfArg   []int
}

func (r *recordingGenerator) record(name string) {
	r.calls = append(r.calls, name)
}

func (r *recordingGenerator) MovePointer(int) error { r.record("MovePointer"); return nil }
func (r *recordingGenerator) Add(int) error         { r.record("Add"); return nil }
func (r *recordingGenerator) Assign(int) error      { r.record("Assign"); return nil }
func (r *recordingGenerator) Putchar() error        { r.record("Putchar"); return nil }
func (r *recordingGenerator) Getchar() error        { r.record("Getchar"); return nil }
func (r *recordingGenerator) LoopStart() (int, error) {
	r.record("LoopStart")
	r.nextPatch++
	return r.nextPatch, nil
}
func (r *recordingGenerator) LoopEnd(start int) error {
	r.record("LoopEnd")
	r.loopEndArg = append(r.loopEndArg, start)
	return nil
}
func (r *recordingGenerator) If() (int, error) {
	r.record("If")
	r.nextPatch++
	return r.nextPatch, nil
}
func (r *recordingGenerator) EndIf(start int) error {
	r.record("EndIf")
	r.endIfArg = append(r.endIfArg, start)
	return nil
}
func (r *recordingGenerator) SearchZero(int) error   { r.record("SearchZero"); return nil }
func (r *recordingGenerator) AddVar(int) error        { r.record("AddVar"); return nil }
func (r *recordingGenerator) SubVar(int) error        { r.record("SubVar"); return nil }
func (r *recordingGenerator) AddCMulVar(int, int) error { r.record("AddCMulVar"); return nil }
func (r *recordingGenerator) InfLoop() error          { r.record("InfLoop"); return nil }
func (r *recordingGenerator) BreakPoint() error       { r.record("BreakPoint"); return nil }

func TestEmitDrivesOneCallPerInstruction(t *testing.T) {
	prog := &Program{Insts: []Inst{
		{Op: OpAdd, A: 3},
		{Op: OpPutchar},
		{Op: OpMovePointer, A: -1},
	}}
	gen := &recordingGenerator{}
	if err := Emit(gen, prog); err != nil {
		t.Fatal(err)
	}
	want := []string{"Add", "Putchar", "MovePointer"}
	if len(gen.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", gen.calls, want)
	}
	for i, name := range want {
		if gen.calls[i] != name {
			t.Fatalf("calls[%d] = %s, want %s", i, gen.calls[i], name)
		}
	}
}

func TestEmitMatchesNestedLoopsLIFO(t *testing.T) {
	// [ [ ] ] : two nested loops, the inner LoopEnd must receive the
	// inner LoopStart's patch value, not the outer one's.
	prog := &Program{Insts: []Inst{
		{Op: OpLoopStart},
		{Op: OpLoopStart},
		{Op: OpLoopEnd},
		{Op: OpLoopEnd},
	}}
	gen := &recordingGenerator{}
	if err := Emit(gen, prog); err != nil {
		t.Fatal(err)
	}
	if len(gen.loopEndArg) != 2 {
		t.Fatalf("got %d LoopEnd calls, want 2", len(gen.loopEndArg))
	}
	if gen.loopEndArg[0] != 2 || gen.loopEndArg[1] != 1 {
		t.Fatalf("loopEndArg = %v, want [2 1] (inner start patched first)", gen.loopEndArg)
	}
}

func TestEmitMatchesIfEndIfLIFO(t *testing.T) {
	prog := &Program{Insts: []Inst{
		{Op: OpIf},
		{Op: OpAddVar, A: 1},
		{Op: OpEndIf},
	}}
	gen := &recordingGenerator{}
	if err := Emit(gen, prog); err != nil {
		t.Fatal(err)
	}
	if len(gen.endIfArg) != 1 || gen.endIfArg[0] != 1 {
		t.Fatalf("endIfArg = %v, want [1]", gen.endIfArg)
	}
}
