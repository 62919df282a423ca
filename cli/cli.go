// Package cli implements the compiler's flag-based front end: the same
// contract the C++ original's richer ArgumentParser surface exposed
// (-h/-v/-e/-m/-o/-t/-O/--dump-ir/--heap-size/--top-break-point/
// --enable-synchronize-with-stdio), rebuilt on the standard flag package
// (a flag.FlagSet in Parse) with no cobra/pflag indirection. As with the
// flag package generally, parsing stops at the first non-flag argument, so
// flags go before the input files.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/xrash/smetrics"

	bf "nickandperla.net/brainfuck"
	"nickandperla.net/brainfuck/jit"
)

// Version is printed by -v/--version.
const Version = "bfc 1.0 (Go rewrite)"

var targets = []string{"c", "xbyakc", "winx86", "winx64", "elfx86", "elfx64", "elfarmeabi"}

// Options holds every flag's parsed value.
type Options struct {
	Help                     bool
	Version                  bool
	Eval                     string
	Minify                   bool
	Output                   string
	Target                   string
	Optimize                 int
	DumpIR                   bool
	HeapSize                 int
	TopBreakPoint            bool
	SynchronizeWithStdio     bool
	Args                     []string
}

// Parse builds an Options from argv (excluding the program name), matching
// the CLI surface contract exactly.
func Parse(argv []string) (*Options, error) {
	fs := flag.NewFlagSet("bfc", flag.ContinueOnError)
	opt := &Options{}

	fs.BoolVar(&opt.Help, "help", false, "show usage and exit")
	fs.BoolVar(&opt.Help, "h", false, "show usage and exit")
	fs.BoolVar(&opt.Version, "version", false, "show version and exit")
	fs.BoolVar(&opt.Version, "v", false, "show version and exit")
	fs.StringVar(&opt.Eval, "eval", "", "treat the argument as source text")
	fs.StringVar(&opt.Eval, "e", "", "treat the argument as source text")
	fs.BoolVar(&opt.Minify, "minify", false, "print trimmed source and exit")
	fs.BoolVar(&opt.Minify, "m", false, "print trimmed source and exit")
	fs.StringVar(&opt.Output, "output", "", "output file for -t")
	fs.StringVar(&opt.Output, "o", "", "output file for -t")
	fs.StringVar(&opt.Target, "target", "", "emit target: "+strings.Join(targets, "|"))
	fs.StringVar(&opt.Target, "t", "", "emit target: "+strings.Join(targets, "|"))
	fs.IntVar(&opt.Optimize, "optimize", 1, "0=direct, 1=IR, 2=JIT")
	fs.IntVar(&opt.Optimize, "O", 1, "0=direct, 1=IR, 2=JIT")
	fs.BoolVar(&opt.DumpIR, "dump-ir", false, "print IR listing and exit")
	fs.IntVar(&opt.HeapSize, "heap-size", bf.DefaultTapeSize, "tape length")
	fs.BoolVar(&opt.TopBreakPoint, "top-break-point", false, "insert a breakpoint before the program")
	fs.BoolVar(&opt.SynchronizeWithStdio, "enable-synchronize-with-stdio", false, "no-op, kept for CLI compatibility")

	if err := fs.Parse(argv); err != nil {
		return nil, err
	}
	opt.Args = fs.Args()
	return opt, nil
}

// InvalidTargetError reports an unrecognized -t value, with a suggestion
// when one target is a close edit-distance match.
type InvalidTargetError struct {
	Given      string
	Suggestion string
}

func (e *InvalidTargetError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("invalid target %q; did you mean %q?", e.Given, e.Suggestion)
	}
	return fmt.Sprintf("invalid target %q", e.Given)
}

// ValidateTarget checks target against the known target list, returning an
// InvalidTargetError with an edit-distance suggestion when it's close to a
// valid one but misspelled.
func ValidateTarget(target string) error {
	for _, t := range targets {
		if t == target {
			return nil
		}
	}
	best, bestDist := "", -1
	for _, t := range targets {
		d := smetrics.WagnerFischer(target, t, 1, 1, 2)
		if bestDist == -1 || d < bestDist {
			bestDist, best = d, t
		}
	}
	suggestion := ""
	if bestDist >= 0 && bestDist <= 2 {
		suggestion = best
	}
	return &InvalidTargetError{Given: target, Suggestion: suggestion}
}

// outputSuffix mirrors the original front end's default-filename logic.
func outputSuffix(target string) string {
	switch target {
	case "c", "xbyakc":
		return ".c"
	case "winx86", "winx64":
		return ".exe"
	default:
		return ".out"
	}
}

// DefaultOutputPath mirrors the original front end's default-filename
// logic: basename of the input with a target-appropriate suffix.
func DefaultOutputPath(inputPath, target string) string {
	base := filepath.Base(inputPath)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base + outputSuffix(target)
}

// readSource loads one input: "-" means stdin, anything else is a file
// path. It has no access to the -e eval string.
func readSource(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Emit produces the requested standalone artifact for one program.
func Emit(out io.Writer, prog *bf.Program, target string, heapSize int) error {
	switch target {
	case "c", "xbyakc":
		return bf.EmitC(out, prog, heapSize)
	case "elfx86":
		data, err := bf.EmitELFx86(prog, heapSize)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	case "elfx64":
		data, err := bf.EmitELFx64(prog, heapSize)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	case "elfarmeabi":
		data, err := bf.EmitELFArmEABI(prog, heapSize)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	case "winx86":
		data, err := bf.EmitPEx86(prog, heapSize)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	case "winx64":
		data, err := bf.EmitPEx64(prog, heapSize)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	default:
		return fmt.Errorf("cli: unreachable target %q", target)
	}
}

// Execute interprets or JITs prog against a fresh tape of the requested
// size, honoring the optimize level.
func Execute(prog *bf.Program, heapSize, optimize int, in io.Reader, out io.Writer) error {
	switch {
	case optimize <= 0:
		return errors.New("cli: direct execution requires the untranslated source; use RunDirect")
	case optimize == 1:
		tape := bf.NewTape(heapSize)
		return bf.NewIRInterpreter(prog, tape, in, out).Run()
	default:
		session, err := jit.Compile(prog, 1<<20)
		if err != nil {
			return err
		}
		defer session.Close()
		tape := make([]byte, heapSize)
		return session.Run(tape)
	}
}

// RunDirect executes trimmed source without building an IR program at all
// (optimize level 0).
func RunDirect(source string, heapSize int, in io.Reader, out io.Writer) error {
	tape := bf.NewTape(heapSize)
	return bf.NewDirectInterpreter(source, tape, in, out).Run()
}

// CompileBatch builds an IR Program for every input concurrently, using
// at most one goroutine per available CPU, each handling a pre-split,
// contiguous range of the inputs.
func CompileBatch(paths []string) []struct {
	Path    string
	Program *bf.Program
	Err     error
} {
	results := make([]struct {
		Path    string
		Program *bf.Program
		Err     error
	}, len(paths))

	cpus := runtime.NumCPU()
	if cpus > len(paths) {
		cpus = len(paths)
	}
	if cpus == 0 {
		return results
	}

	var wg sync.WaitGroup
	splitSize := (len(paths) + cpus - 1) / cpus
	for w := 0; w < cpus; w++ {
		lo := w * splitSize
		hi := lo + splitSize
		if lo >= len(paths) {
			break
		}
		if hi > len(paths) {
			hi = len(paths)
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				source, err := readSource(paths[i])
				results[i].Path = paths[i]
				if err != nil {
					results[i].Err = err
					continue
				}
				prog, err := bf.Build(bf.Trim(source))
				results[i].Program = prog
				results[i].Err = err
			}
		}(lo, hi)
	}
	wg.Wait()
	return results
}
