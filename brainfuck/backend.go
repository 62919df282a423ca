package brainfuck

// CodeGenerator receives one call per IR instruction, in program order.
// Each binary/text backend implements this interface; Emit walks a
// Program and drives whichever implementation is supplied. This is the
// Go replacement for the curiously-recurring-template dispatch the
// original compiler used: a trait with one method per IR op, chosen over
// a single sum-type switch because each backend's emission logic for a
// given op is large enough (ELF/PE instruction encoding, C statement
// synthesis) to want its own named method rather than a shared switch
// mixing seven backends together.
type CodeGenerator interface {
	MovePointer(n int) error
	Add(n int) error
	Assign(v int) error
	Putchar() error
	Getchar() error
	LoopStart() (patch int, err error)
	LoopEnd(startPatch int) error
	If() (patch int, err error)
	EndIf(ifPatch int) error
	SearchZero(step int) error
	AddVar(offset int) error
	SubVar(offset int) error
	AddCMulVar(offset, k int) error
	InfLoop() error
	BreakPoint() error
}

// Emit drives gen with every instruction in prog, in order, handling the
// LIFO patch-stack bookkeeping for LoopStart/LoopEnd and If/EndIf so
// individual backends only need to know how to patch one slot at a time.
func Emit(gen CodeGenerator, prog *Program) error {
	var patchStack []int
	for _, inst := range prog.Insts {
		var err error
		switch inst.Op {
		case OpMovePointer:
			err = gen.MovePointer(inst.A)
		case OpAdd:
			err = gen.Add(inst.A)
		case OpAssign:
			err = gen.Assign(inst.A)
		case OpPutchar:
			err = gen.Putchar()
		case OpGetchar:
			err = gen.Getchar()
		case OpLoopStart:
			var patch int
			patch, err = gen.LoopStart()
			patchStack = append(patchStack, patch)
		case OpLoopEnd:
			start := patchStack[len(patchStack)-1]
			patchStack = patchStack[:len(patchStack)-1]
			err = gen.LoopEnd(start)
		case OpIf:
			var patch int
			patch, err = gen.If()
			patchStack = append(patchStack, patch)
		case OpEndIf:
			start := patchStack[len(patchStack)-1]
			patchStack = patchStack[:len(patchStack)-1]
			err = gen.EndIf(start)
		case OpSearchZero:
			err = gen.SearchZero(inst.A)
		case OpAddVar:
			err = gen.AddVar(inst.A)
		case OpSubVar:
			err = gen.SubVar(inst.A)
		case OpAddCMulVar:
			err = gen.AddCMulVar(inst.A, inst.B)
		case OpInfLoop:
			err = gen.InfLoop()
		case OpBreakPoint:
			err = gen.BreakPoint()
		}
		if err != nil {
			return err
		}
	}
	return nil
}
