package main

import (
	"fmt"
	"log"
	"os"

	bf "nickandperla.net/brainfuck"

	"nickandperla.net/bfc/cli"
)

func init() {
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ltime)
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	opt, err := cli.Parse(argv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if opt.Help {
		fmt.Println("usage: bfc [options] [file|-]")
		return 0
	}
	if opt.Version {
		fmt.Println(cli.Version)
		return 0
	}

	inputs := opt.Args
	if opt.Eval != "" {
		inputs = []string{""}
	}
	if len(inputs) == 0 {
		fmt.Fprintln(os.Stderr, "please specify one or more brainfuck source files")
		return 1
	}

	source, err := loadOne(opt, inputs[0])
	if err != nil {
		log.Printf("failed to read source: %v", err)
		return 1
	}
	trimmed := bf.Trim(source)

	if opt.Minify {
		fmt.Println(trimmed)
		return 0
	}

	prog, err := bf.Build(trimmed)
	if err != nil {
		log.Printf("compile error: %v", err)
		return 1
	}
	if opt.TopBreakPoint {
		prog.Insts = append([]bf.Inst{{Op: bf.OpBreakPoint}}, prog.Insts...)
	}

	if opt.DumpIR {
		if err := prog.Dump(os.Stdout); err != nil {
			log.Printf("dump failed: %v", err)
			return 1
		}
		return 0
	}

	if len(inputs) > 1 && opt.Target != "" {
		return emitTargetBatch(opt, inputs)
	}

	if opt.Target != "" {
		return emitTarget(opt, inputs, prog)
	}

	if len(inputs) > 1 {
		return runBatch(opt, inputs)
	}

	if opt.Optimize <= 0 {
		if err := cli.RunDirect(trimmed, opt.HeapSize, os.Stdin, os.Stdout); err != nil {
			log.Printf("execution failed: %v", err)
			return 1
		}
		return 0
	}
	if err := cli.Execute(prog, opt.HeapSize, opt.Optimize, os.Stdin, os.Stdout); err != nil {
		log.Printf("execution failed: %v", err)
		return 1
	}
	return 0
}

func loadOne(opt *cli.Options, path string) (string, error) {
	if opt.Eval != "" {
		return opt.Eval, nil
	}
	if path == "-" {
		data := make([]byte, 0, 4096)
		buf := make([]byte, 4096)
		for {
			n, err := os.Stdin.Read(buf)
			data = append(data, buf[:n]...)
			if err != nil {
				break
			}
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func emitTarget(opt *cli.Options, inputs []string, prog *bf.Program) int {
	if err := cli.ValidateTarget(opt.Target); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	outPath := opt.Output
	if outPath == "" {
		outPath = cli.DefaultOutputPath(inputs[0], opt.Target)
	}

	f, err := os.Create(outPath)
	if err != nil {
		log.Printf("failed to open %s: %v", outPath, err)
		return 1
	}
	defer f.Close()

	if err := cli.Emit(f, prog, opt.Target, opt.HeapSize); err != nil {
		log.Printf("emit failed: %v", err)
		return 1
	}
	return 0
}

// emitTargetBatch builds every input concurrently via cli.CompileBatch and
// emits each one to its own default-named output file, the batch
// counterpart to emitTarget for invocations like "bfc -t elfx64 a.bf b.bf".
func emitTargetBatch(opt *cli.Options, inputs []string) int {
	if err := cli.ValidateTarget(opt.Target); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	results := cli.CompileBatch(inputs)
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			log.Printf("%s: %v", r.Path, r.Err)
			failed++
			continue
		}
		outPath := cli.DefaultOutputPath(r.Path, opt.Target)
		f, err := os.Create(outPath)
		if err != nil {
			log.Printf("failed to open %s: %v", outPath, err)
			failed++
			continue
		}
		err = cli.Emit(f, r.Program, opt.Target, opt.HeapSize)
		f.Close()
		if err != nil {
			log.Printf("%s: emit failed: %v", r.Path, err)
			failed++
		}
	}
	if failed > 0 {
		return 1
	}
	return 0
}

func runBatch(opt *cli.Options, inputs []string) int {
	results := cli.CompileBatch(inputs)
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			log.Printf("%s: %v", r.Path, r.Err)
			failed++
			continue
		}
		if err := cli.Execute(r.Program, opt.HeapSize, opt.Optimize, os.Stdin, os.Stdout); err != nil {
			log.Printf("%s: %v", r.Path, err)
			failed++
		}
	}
	if failed > 0 {
		return 1
	}
	return 0
}

