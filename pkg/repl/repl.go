// Package repl implements an interactive debugger for Intcode programs.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/akhildatla/intcode/pkg/vm"
)

const prompt = "intcode> "

// REPL drives a VM one command at a time.
type REPL struct {
	vm       *vm.VM
	program  []int64
	registry *vm.Registry
	history  []string
	level    int
	done     bool
}

// New creates a debugger over a copy of program.
func New(program []int64) *REPL {
	r := &REPL{
		vm:       vm.NewVM(),
		program:  append([]int64(nil), program...),
		registry: vm.DefaultRegistry,
	}
	r.vm.SetCoreDump(false)
	r.vm.Load(r.program)
	return r
}

// SetRegistry sets the instruction set used for execution and disassembly.
func (r *REPL) SetRegistry(reg *vm.Registry) {
	r.registry = reg
	r.vm.SetRegistry(reg)
}

// VM returns the machine under the debugger.
func (r *REPL) VM() *vm.VM {
	return r.vm
}

// Start reads commands from in until quit or end of input.
func (r *REPL) Start(in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	r.vm.SetOutput(out)

	fmt.Fprintln(out, "Intcode debugger")
	fmt.Fprintf(out, "%d cells loaded. Type 'help' for available commands, 'quit' to exit\n", len(r.program))
	fmt.Fprintln(out)

	for !r.done {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		r.history = append(r.history, line)
		if !r.handleCommand(line, out) {
			fmt.Fprintf(out, "Unknown command: %s. Type 'help' for available commands\n", strings.Fields(line)[0])
		}
	}
}

func (r *REPL) handleCommand(line string, out io.Writer) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}

	switch parts[0] {
	case "quit", "exit", "q":
		fmt.Fprintln(out, "Goodbye!")
		r.done = true

	case "help", "h", "?":
		printHelp(out)

	case "step", "s":
		n := int64(1)
		if len(parts) > 1 {
			v, err := strconv.ParseInt(parts[1], 10, 64)
			if err != nil || v < 1 {
				fmt.Fprintln(out, "Usage: step [n]")
				return true
			}
			n = v
		}
		r.step(n, out)

	case "run", "r":
		state := r.vm.Run()
		fmt.Fprintf(out, "%s after %d steps\n", state, r.vm.Steps())

	case "pc":
		fmt.Fprintf(out, "pc = %d\n", r.vm.PC())

	case "state":
		fmt.Fprintf(out, "state = %s; steps = %d\n", r.vm.State(), r.vm.Steps())
		if err := r.vm.Fault(); err != nil {
			fmt.Fprintf(out, "fault: %v\n", err)
		}

	case "peek", "p":
		if len(parts) != 2 {
			fmt.Fprintln(out, "Usage: peek <addr>")
			return true
		}
		addr, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			fmt.Fprintf(out, "Error: invalid address %q\n", parts[1])
			return true
		}
		v, err := r.vm.Read(addr)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return true
		}
		fmt.Fprintf(out, "mem[%d] = %d\n", addr, v)

	case "poke":
		if len(parts) != 3 {
			fmt.Fprintln(out, "Usage: poke <addr> <value>")
			return true
		}
		addr, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			fmt.Fprintf(out, "Error: invalid address %q\n", parts[1])
			return true
		}
		value, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			fmt.Fprintf(out, "Error: invalid value %q\n", parts[2])
			return true
		}
		if err := r.vm.Write(addr, value); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return true
		}
		fmt.Fprintf(out, "mem[%d] = %d\n", addr, value)

	case "dump", "d":
		r.vm.Dump(out)

	case "disasm":
		fmt.Fprint(out, vm.Disassemble(r.vm.Memory().Snapshot(), r.registry))

	case "level":
		if len(parts) != 2 {
			fmt.Fprintln(out, "Usage: level <n>")
			return true
		}
		level, err := strconv.Atoi(parts[1])
		if err != nil || level < 0 {
			fmt.Fprintln(out, "Usage: level <n>")
			return true
		}
		r.level = level
		r.vm.SetDebugLevel(level)
		fmt.Fprintf(out, "Debug level %d\n", level)

	case "reset":
		r.vm.Load(r.program)
		fmt.Fprintln(out, "Program reloaded")

	case "history":
		for i, cmd := range r.history {
			fmt.Fprintf(out, "%3d: %s\n", i+1, cmd)
		}

	default:
		return false
	}

	return true
}

func (r *REPL) step(n int64, out io.Writer) {
	for i := int64(0); i < n; i++ {
		if r.vm.Halted() {
			fmt.Fprintf(out, "Program is %s\n", r.vm.State())
			return
		}
		// At level 2 the VM prints the instruction itself.
		if inst, err := vm.Decode(r.vm.Memory(), r.vm.PC(), r.registry); err == nil && r.level < 2 {
			fmt.Fprintf(out, "%04d: %s\n", inst.PC, inst)
		}
		if err := r.vm.Tick(); err != nil {
			fmt.Fprintf(out, "fault: %v\n", err)
			return
		}
	}
}

func printHelp(out io.Writer) {
	help := `
Intcode Debugger Commands:
  help, h, ?          Show this help message
  quit, exit, q       Exit the debugger
  step, s [n]         Execute n instructions (default 1)
  run, r              Run until halt or fault
  pc                  Show the program counter
  state               Show the execution state
  peek, p <addr>      Show one memory cell
  poke <addr> <val>   Set one memory cell
  dump, d             Dump VM state and memory
  disasm              Disassemble current memory
  level <n>           Set diagnostic level (0-2)
  reset               Reload the initial memory image
  history             Show command history
`
	fmt.Fprint(out, help)
}
