// Package main provides the CLI entry point for the Intcode VM.
//
// Usage:
//
//	intcode run input.txt                    # Run a program, print cell 0
//	intcode run -noun 12 -verb 2 input.txt   # Patch cells 1 and 2 first
//	intcode search -target 19690720 input.txt
//	intcode asm -o prog.icbc prog.asm        # Assemble mnemonics
//	intcode disasm input.txt                 # Disassemble a memory image
//	intcode snapshot -o mem.parquet input.txt
//	intcode repl input.txt                   # Interactive debugger
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/akhildatla/intcode/pkg/asm"
	"github.com/akhildatla/intcode/pkg/embed"
	"github.com/akhildatla/intcode/pkg/export"
	"github.com/akhildatla/intcode/pkg/loader"
	"github.com/akhildatla/intcode/pkg/repl"
	"github.com/akhildatla/intcode/pkg/vm"
)

// Version info set by GoReleaser via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		return printUsage(stdout)
	}

	cmd := args[0]

	switch cmd {
	case "run":
		return runCommand(args[1:], stdout, stderr)
	case "search":
		return searchCommand(args[1:], stdout, stderr)
	case "asm":
		return asmCommand(args[1:], stdout, stderr)
	case "disasm":
		return disasmCommand(args[1:], stdout, stderr)
	case "snapshot":
		return snapshotCommand(args[1:], stdout, stderr)
	case "repl":
		return replCommand(args[1:], stdin, stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "intcode version %s\n", version)
		if commit != "none" {
			fmt.Fprintf(stdout, "  commit: %s\n", commit)
		}
		if date != "unknown" {
			fmt.Fprintf(stdout, "  built:  %s\n", date)
		}
		return nil
	case "help", "-h", "--help":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

// patchList collects repeated -set addr=value flags.
type patchList []embed.Patch

func (p *patchList) String() string {
	parts := make([]string, len(*p))
	for i, patch := range *p {
		parts[i] = fmt.Sprintf("%d=%d", patch.Addr, patch.Value)
	}
	return strings.Join(parts, ",")
}

func (p *patchList) Set(s string) error {
	addr, value, ok := strings.Cut(s, "=")
	if !ok {
		return fmt.Errorf("expected addr=value, got %q", s)
	}
	a, err := strconv.ParseInt(strings.TrimSpace(addr), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid address %q", addr)
	}
	v, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid value %q", value)
	}
	*p = append(*p, embed.Patch{Addr: a, Value: v})
	return nil
}

// execFlags are shared by the subcommands that execute a program.
type execFlags struct {
	debug      int
	patches    patchList
	noun       int64
	verb       int64
	maxSteps   int64
	timeout    time.Duration
	noCoreDump bool
}

func (f *execFlags) register(fs *flag.FlagSet) {
	fs.IntVar(&f.debug, "debug", 0, "diagnostic level (1 = state per tick, 2 = also instructions)")
	fs.Var(&f.patches, "set", "set memory cell before running, addr=value (repeatable)")
	fs.Int64Var(&f.noun, "noun", 0, "value written to cell 1")
	fs.Int64Var(&f.verb, "verb", 0, "value written to cell 2")
	fs.Int64Var(&f.maxSteps, "max-steps", 0, "fault after this many instructions (0 = unlimited)")
	fs.DurationVar(&f.timeout, "timeout", 0, "fault after this much wall time (0 = none)")
	fs.BoolVar(&f.noCoreDump, "no-core-dump", false, "omit the memory dump from fault reports")
}

func (f *execFlags) options(fs *flag.FlagSet, out io.Writer) []embed.Option {
	opts := []embed.Option{
		embed.WithOutput(out),
		embed.WithDebugLevel(f.debug),
		embed.WithCoreDump(!f.noCoreDump),
		embed.WithMaxSteps(f.maxSteps),
		embed.WithTimeout(f.timeout),
	}
	for _, p := range f.patches {
		opts = append(opts, embed.WithPatch(p.Addr, p.Value))
	}
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "noun":
			opts = append(opts, embed.WithPatch(embed.NounAddr, f.noun))
		case "verb":
			opts = append(opts, embed.WithPatch(embed.VerbAddr, f.verb))
		}
	})
	return opts
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func runCommand(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("run", stderr)
	var ef execFlags
	ef.register(fs)
	read := fs.Int64("read", embed.OutputAddr, "memory cell to print after halting")
	stats := fs.Bool("stats", false, "print execution statistics")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: intcode run [flags] <file>")
	}

	program, err := loader.LoadImage(fs.Arg(0))
	if err != nil {
		return err
	}

	opts := ef.options(fs, stdout)
	if *stats {
		opts = append(opts, embed.WithStats())
	}

	res, err := embed.Run(program, opts...)
	if err != nil {
		return err
	}

	v, err := res.VM.Read(*read)
	if err != nil {
		return fmt.Errorf("reading result: %w", err)
	}
	fmt.Fprintf(stdout, "%d\n", v)

	if *stats {
		printStats(stdout, res.Stats)
	}
	return nil
}

func printStats(w io.Writer, s *vm.ExecutionStats) {
	fmt.Fprintf(w, "steps: %d\n", s.StepsExecuted)
	fmt.Fprintf(w, "time:  %s\n", time.Duration(s.ExecutionTimeNs))
	names := make([]string, 0, len(s.OpCounts))
	for name := range s.OpCounts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-5s %d\n", name, s.OpCounts[name])
	}
}

func searchCommand(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("search", stderr)
	target := fs.Int64("target", 19690720, "value cell 0 must hold after halting")
	rng := fs.Int64("range", 100, "exclusive upper bound for noun and verb")
	workers := fs.Int("workers", 0, "parallel runs (0 = GOMAXPROCS)")
	verbose := fs.Bool("v", false, "verbose output")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: intcode search [flags] <file>")
	}

	program, err := loader.LoadImage(fs.Arg(0))
	if err != nil {
		return err
	}

	opts := []embed.Option{embed.WithSearchRange(*rng)}
	if *workers > 0 {
		opts = append(opts, embed.WithWorkers(*workers))
	}

	noun, verb, err := embed.Search(context.Background(), program, *target, opts...)
	if err != nil {
		return err
	}

	if *verbose {
		fmt.Fprintf(stdout, "noun = %d, verb = %d\n", noun, verb)
	}
	fmt.Fprintf(stdout, "%d\n", embed.Answer(noun, verb))
	return nil
}

func asmCommand(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("asm", stderr)
	output := fs.String("o", "", "output file, .icbc for binary (default: program text on stdout)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: intcode asm [-o output] <file.asm>")
	}

	inputPath := fs.Arg(0)
	source, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("reading source: %w", err)
	}

	file, err := asm.Parse(inputPath, string(source))
	if err != nil {
		return err
	}
	cells, err := file.Assemble(vm.DefaultRegistry)
	if err != nil {
		return fmt.Errorf("assembling: %w", err)
	}

	if *output == "" {
		fmt.Fprint(stdout, loader.FormatProgram(cells))
		return nil
	}

	var data []byte
	if strings.EqualFold(filepath.Ext(*output), ".icbc") {
		data, err = vm.SerializeImage(cells)
		if err != nil {
			return fmt.Errorf("serializing: %w", err)
		}
	} else {
		data = []byte(loader.FormatProgram(cells))
	}

	if err := os.WriteFile(*output, data, 0644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	fmt.Fprintf(stdout, "Assembled %d cells: %s\n", len(cells), *output)
	return nil
}

func disasmCommand(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("disasm", stderr)
	output := fs.String("o", "", "output file (default: stdout)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: intcode disasm [-o output.asm] <file>")
	}

	cells, err := loader.LoadImage(fs.Arg(0))
	if err != nil {
		return err
	}

	src := vm.Disassemble(cells, vm.DefaultRegistry)

	if *output != "" {
		if err := os.WriteFile(*output, []byte(src), 0644); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		fmt.Fprintf(stdout, "Disassembled to: %s\n", *output)
	} else {
		fmt.Fprint(stdout, src)
	}

	return nil
}

func snapshotCommand(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("snapshot", stderr)
	var ef execFlags
	ef.register(fs)
	output := fs.String("o", "", "output file (.csv, .json or .parquet)")
	trace := fs.Bool("trace", false, "write the execution trace instead of final memory")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 || *output == "" {
		return fmt.Errorf("usage: intcode snapshot -o <out.{csv,json,parquet}> [flags] <file>")
	}

	program, err := loader.LoadImage(fs.Arg(0))
	if err != nil {
		return err
	}

	opts := ef.options(fs, stdout)
	if *trace {
		opts = append(opts, embed.WithTrace())
	}

	// A faulted run is still written out, then reported.
	res, runErr := embed.Run(program, opts...)
	if res == nil {
		return runErr
	}

	df := res.VM.Memory().Frame()
	if *trace {
		df = res.VM.TraceFrame()
	}

	if err := export.WriteFile(context.Background(), *output, df); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	fmt.Fprintf(stdout, "Wrote %s (%d rows)\n", *output, df.NRows())
	return runErr
}

func replCommand(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := newFlagSet("repl", stderr)

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: intcode repl <file>")
	}

	program, err := loader.LoadImage(fs.Arg(0))
	if err != nil {
		return err
	}

	repl.New(program).Start(stdin, stdout)
	return nil
}

func printUsage(w io.Writer) error {
	fmt.Fprintln(w, `Intcode - a virtual machine for Intcode programs

Usage:
  intcode <command> [flags] <file>

Commands:
  run <file>            Run a program and print a memory cell
  search <file>         Find the noun and verb that produce a target output
  asm <file.asm>        Assemble mnemonics into a memory image
  disasm <file>         Disassemble a memory image
  snapshot <file>       Run and export memory or trace as CSV, JSON or Parquet
  repl <file>           Start the interactive debugger
  version               Print version information
  help                  Show this help message

Input files are program text (comma separated integers), .icbc binary
images, or .csv/.json/.parquet memory snapshots.

Run Options:
  -debug <n>            Diagnostic level (1 = state per tick, 2 = also instructions)
  -set addr=value       Set a memory cell before running (repeatable)
  -noun <n>, -verb <n>  Set cells 1 and 2 before running
  -read <addr>          Cell to print after halting (default 0)
  -max-steps <n>        Fault after n instructions
  -timeout <d>          Fault after duration d
  -no-core-dump         Omit the memory dump from fault reports
  -stats                Print execution statistics

Search Options:
  -target <n>           Required value of cell 0 (default 19690720)
  -range <n>            Exclusive bound for noun and verb (default 100)
  -workers <n>          Parallel runs (default GOMAXPROCS)
  -v                    Print noun and verb

Asm / Disasm Options:
  -o <file>             Output file (asm: .icbc for binary)

Snapshot Options:
  -o <file>             Output file (.csv, .json or .parquet)
  -trace                Export the execution trace instead of memory
  (plus the run options above)

Examples:
  intcode run -noun 12 -verb 2 input.txt
  intcode search input.txt
  intcode asm -o prog.icbc prog.asm
  intcode snapshot -trace -o trace.json input.txt
  intcode repl input.txt`)
	return nil
}
