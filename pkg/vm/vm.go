// Package vm implements the Intcode virtual machine.
//
// The VM is a register-less interpreter over a flat integer memory:
//   - the program counter addresses the next opcode cell
//   - the low two decimal digits of a cell select the opcode
//   - higher digits select positional or immediate mode per operand
//
// Basic usage:
//
//	v := vm.NewVM()
//	v.Load(program)
//	v.Write(1, 12)
//	v.Run()
//	answer, err := v.Read(0)
//
// Faults (out-of-bounds access, unknown opcodes) never escape Run; they
// leave the VM in StateFaulted with the cause available from Fault.
package vm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Error definitions
var (
	ErrOutOfBounds       = errors.New("address out of bounds")
	ErrInvalidOpcode     = errors.New("invalid opcode")
	ErrNotRunning        = errors.New("vm is not running")
	ErrStepLimitExceeded = errors.New("step limit exceeded")

	// Registry construction errors
	ErrDuplicateOpcode   = errors.New("duplicate opcode")
	ErrInvalidDefinition = errors.New("invalid opcode definition")
)

// State is the execution state of a VM.
type State int

const (
	StateRunning State = iota
	StateHalted        // Stopped by HALT
	StateFaulted       // Stopped by a runtime error
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateHalted:
		return "halted"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// ExecutionStats contains metrics about VM execution for observability.
type ExecutionStats struct {
	StepsExecuted   int64          // Total instructions executed
	ExecutionTimeNs int64          // Wall time spent in Run
	OpCounts        map[string]int // Count of each opcode executed
}

// TraceEntry records one decoded instruction as it was about to execute.
type TraceEntry struct {
	Step   int64
	PC     int64
	Raw    int64
	Opcode string
	Params []int64
	Modes  []Mode
}

// VM represents the virtual machine.
type VM struct {
	mem      *Memory
	registry *Registry
	pc       int64
	state    State
	steps    int64
	fault    error
	jumped   bool

	// Diagnostics
	debugLevel int
	coreDump   bool
	out        io.Writer

	// Safety valves, checked between ticks
	maxSteps int64
	ctx      context.Context

	stats        ExecutionStats
	statsEnabled bool
	trace        []TraceEntry
	traceEnabled bool
}

// NewVM creates a VM with an empty memory and the default instruction set.
func NewVM() *VM {
	return &VM{
		mem:      NewMemory(nil),
		registry: DefaultRegistry,
		coreDump: true,
		out:      os.Stdout,
	}
}

// New creates a VM and loads program into it.
func New(program []int64) *VM {
	vm := NewVM()
	vm.Load(program)
	return vm
}

// Load copies program into a fresh memory and resets execution state.
func (vm *VM) Load(program []int64) {
	vm.mem = NewMemory(program)
	vm.pc = 0
	vm.state = StateRunning
	vm.steps = 0
	vm.fault = nil
	vm.trace = nil
	if vm.statsEnabled {
		vm.EnableStats()
	}
}

// SetRegistry replaces the instruction set used for decoding.
func (vm *VM) SetRegistry(r *Registry) {
	vm.registry = r
}

// SetDebugLevel sets diagnostic verbosity: 1 dumps state after every tick,
// 2 also prints each instruction before it executes.
func (vm *VM) SetDebugLevel(level int) {
	vm.debugLevel = level
}

// SetCoreDump controls whether a fault report includes the memory dump.
func (vm *VM) SetCoreDump(enabled bool) {
	vm.coreDump = enabled
}

// SetOutput sets where diagnostics are written.
func (vm *VM) SetOutput(w io.Writer) {
	vm.out = w
}

// SetMaxSteps faults the VM once n instructions have executed. Zero
// disables the limit.
func (vm *VM) SetMaxSteps(n int64) {
	vm.maxSteps = n
}

// SetContext sets a context checked between ticks by Run.
func (vm *VM) SetContext(ctx context.Context) {
	vm.ctx = ctx
}

// EnableStats enables execution statistics collection.
func (vm *VM) EnableStats() {
	vm.statsEnabled = true
	vm.stats = ExecutionStats{
		OpCounts: make(map[string]int),
	}
}

// Stats returns the collected statistics, or nil if not enabled.
func (vm *VM) Stats() *ExecutionStats {
	if !vm.statsEnabled {
		return nil
	}
	return &vm.stats
}

// EnableTrace records every executed instruction.
func (vm *VM) EnableTrace() {
	vm.traceEnabled = true
}

// Trace returns the recorded instructions.
func (vm *VM) Trace() []TraceEntry {
	return vm.trace
}

// Memory returns the VM's memory.
func (vm *VM) Memory() *Memory {
	return vm.mem
}

// Read reads a memory cell; drivers use it to fetch results.
func (vm *VM) Read(addr int64) (int64, error) {
	return vm.mem.Read(addr)
}

// Write writes a memory cell; drivers use it to patch inputs before Run.
func (vm *VM) Write(addr, value int64) error {
	return vm.mem.Write(addr, value)
}

// PC returns the program counter.
func (vm *VM) PC() int64 { return vm.pc }

// Steps returns the number of ticks attempted.
func (vm *VM) Steps() int64 { return vm.steps }

// State returns the execution state.
func (vm *VM) State() State { return vm.state }

// Halted reports whether the VM reached a terminal state.
func (vm *VM) Halted() bool { return vm.state != StateRunning }

// Fault returns the error that stopped the VM, if any.
func (vm *VM) Fault() error { return vm.fault }

// Jump sets the program counter. Called from an Operation it suppresses the
// automatic advance past the current instruction.
func (vm *VM) Jump(addr int64) {
	vm.pc = addr
	vm.jumped = true
}

func (vm *VM) halt() {
	vm.state = StateHalted
}

func (vm *VM) fail(err error) error {
	vm.state = StateFaulted
	vm.fault = err
	return err
}

// Tick performs one fetch-decode-execute cycle.
func (vm *VM) Tick() error {
	if vm.state != StateRunning {
		return ErrNotRunning
	}
	vm.steps++

	inst, err := Decode(vm.mem, vm.pc, vm.registry)
	if err != nil {
		return vm.fail(err)
	}

	if vm.debugLevel >= 2 {
		fmt.Fprintf(vm.out, "%04d: %s\n", inst.PC, inst)
	}
	if vm.traceEnabled {
		vm.trace = append(vm.trace, TraceEntry{
			Step:   vm.steps,
			PC:     inst.PC,
			Raw:    inst.Raw,
			Opcode: inst.Op.Name,
			Params: inst.Params,
			Modes:  inst.Modes,
		})
	}

	args, err := inst.Resolve(vm.mem)
	if err != nil {
		return vm.fail(err)
	}

	vm.jumped = false
	if err := inst.Op.Exec(vm, args); err != nil {
		return vm.fail(err)
	}

	if vm.statsEnabled {
		vm.stats.StepsExecuted++
		vm.stats.OpCounts[inst.Op.Name]++
	}

	if !vm.jumped && vm.state == StateRunning {
		vm.pc += inst.Width()
	}
	return nil
}

// Run ticks until the VM halts or faults. A fault is reported to the
// diagnostic output and recorded; it is not returned.
func (vm *VM) Run() State {
	var start time.Time
	if vm.statsEnabled {
		start = time.Now()
	}

	for vm.state == StateRunning {
		if err := vm.step(); err != nil {
			break
		}
		if vm.debugLevel >= 1 {
			vm.Dump(vm.out)
		}
	}

	if vm.state == StateFaulted {
		vm.report()
	} else if vm.debugLevel >= 1 {
		fmt.Fprintln(vm.out, "program halted")
	}

	if vm.statsEnabled {
		vm.stats.ExecutionTimeNs += time.Since(start).Nanoseconds()
	}
	return vm.state
}

func (vm *VM) step() error {
	if vm.ctx != nil {
		select {
		case <-vm.ctx.Done():
			return vm.fail(vm.ctx.Err())
		default:
		}
	}
	if vm.maxSteps > 0 && vm.steps >= vm.maxSteps {
		return vm.fail(fmt.Errorf("%w: %d", ErrStepLimitExceeded, vm.maxSteps))
	}
	return vm.Tick()
}

func (vm *VM) report() {
	fmt.Fprintf(vm.out, "intcode: fault at pc=%d step=%d: %v\n", vm.pc, vm.steps, vm.fault)
	if vm.coreDump {
		vm.Dump(vm.out)
	}
}

// Dump writes the VM state and the full memory, four cells per row.
func (vm *VM) Dump(w io.Writer) {
	fmt.Fprintf(w, "tick %d\n", vm.steps)
	fmt.Fprintf(w, "pc = %d; halted = %t; state = %s;\n", vm.pc, vm.Halted(), vm.state)
	fmt.Fprintln(w, "memory:")

	cells := vm.mem.cells
	var row strings.Builder
	for i := 0; i < len(cells); i += 4 {
		row.Reset()
		for j := i; j < i+4 && j < len(cells); j++ {
			fmt.Fprintf(&row, "%d,", cells[j])
		}
		fmt.Fprintln(w, row.String())
	}
	fmt.Fprintln(w)
}

// String returns the Dump output.
func (vm *VM) String() string {
	var b strings.Builder
	vm.Dump(&b)
	return b.String()
}
