package brainfuck

import "io"

// IRInterpreter walks an optimized Program. Jump operands on
// LoopStart/LoopEnd/If/EndIf are absolute IR indices, computed once at
// build time, so no scanning is needed at run time.
type IRInterpreter struct {
	Program *Program
	Tape    *Tape
	In      io.Reader
	Out     io.Writer
}

// NewIRInterpreter builds an interpreter over an already-optimized program.
func NewIRInterpreter(program *Program, tape *Tape, in io.Reader, out io.Writer) *IRInterpreter {
	return &IRInterpreter{Program: program, Tape: tape, In: in, Out: out}
}

// Run executes the program to completion (or to the first error).
func (m *IRInterpreter) Run() error {
	var buf [1]byte
	insts := m.Program.Insts
	for ip := 0; ip < len(insts); {
		inst := insts[ip]
		switch inst.Op {
		case OpMovePointer:
			if err := m.Tape.Move(inst.A); err != nil {
				return err
			}
			ip++

		case OpAdd:
			if err := m.Tape.Add(0, inst.A); err != nil {
				return err
			}
			ip++

		case OpAssign:
			if err := m.Tape.Set(0, byte(inst.A)); err != nil {
				return err
			}
			ip++

		case OpPutchar:
			v, err := m.Tape.At(0)
			if err != nil {
				return err
			}
			buf[0] = v
			if _, err := m.Out.Write(buf[:]); err != nil {
				return err
			}
			ip++

		case OpGetchar:
			n, err := m.In.Read(buf[:])
			if err == nil && n == 1 {
				if err := m.Tape.Set(0, buf[0]); err != nil {
					return err
				}
			}
			ip++

		case OpLoopStart:
			v, err := m.Tape.At(0)
			if err != nil {
				return err
			}
			if v == 0 {
				ip = inst.A + 1
			} else {
				ip++
			}

		case OpLoopEnd:
			v, err := m.Tape.At(0)
			if err != nil {
				return err
			}
			if v != 0 {
				ip = inst.A + 1
			} else {
				ip++
			}

		case OpIf:
			v, err := m.Tape.At(0)
			if err != nil {
				return err
			}
			if v == 0 {
				ip = inst.A + 1
			} else {
				ip++
			}

		case OpEndIf:
			ip++

		case OpSearchZero:
			for {
				v, err := m.Tape.At(0)
				if err != nil {
					return err
				}
				if v == 0 {
					break
				}
				if err := m.Tape.Move(inst.A); err != nil {
					return err
				}
			}
			ip++

		case OpAddVar:
			v, err := m.Tape.At(0)
			if err != nil {
				return err
			}
			if err := m.Tape.Add(inst.A, int(v)); err != nil {
				return err
			}
			ip++

		case OpSubVar:
			v, err := m.Tape.At(0)
			if err != nil {
				return err
			}
			if err := m.Tape.Add(inst.A, -int(v)); err != nil {
				return err
			}
			ip++

		case OpAddCMulVar:
			v, err := m.Tape.At(0)
			if err != nil {
				return err
			}
			if err := m.Tape.Add(inst.A, int(v)*inst.B); err != nil {
				return err
			}
			ip++

		case OpInfLoop:
			v, err := m.Tape.At(0)
			if err != nil {
				return err
			}
			if v != 0 {
				for {
					if v, err = m.Tape.At(0); err != nil {
						return err
					}
					if v == 0 {
						break
					}
				}
			}
			ip++

		case OpBreakPoint:
			// No debugger attached; treated as a no-op trap.
			ip++

		default:
			ip++
		}
	}
	return nil
}
