// Package embed provides the Go embedding API for the Intcode VM.
//
// Pass a program, get the final memory:
//
//	res, err := embed.RunSource("1,9,10,3,2,3,11,0,99,30,40,50")
//	fmt.Println(res.Memory[0]) // 3500
//
// Patch inputs before the run, the way the puzzle drivers do:
//
//	res, err := embed.RunFile("input.txt", embed.WithNounVerb(12, 2))
//
// Search for the inputs that produce a given output:
//
//	noun, verb, err := embed.Search(ctx, program, 19690720)
//	fmt.Println(embed.Answer(noun, verb))
package embed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/akhildatla/intcode/pkg/loader"
	"github.com/akhildatla/intcode/pkg/vm"
)

// Common errors
var (
	ErrFaulted  = errors.New("program faulted")
	ErrTimeout  = errors.New("execution timeout exceeded")
	ErrNotFound = errors.New("no noun and verb produce the target")

	ErrInvalidRange = errors.New("search range must be positive")
)

// Driver cells conventionally patched before a run.
const (
	NounAddr   int64 = 1
	VerbAddr   int64 = 2
	OutputAddr int64 = 0
)

// Patch sets one memory cell before execution.
type Patch struct {
	Addr  int64
	Value int64
}

// Options configures execution behavior.
type Options struct {
	// Patches are applied in order after loading.
	Patches []Patch

	// DebugLevel is passed to vm.VM.SetDebugLevel.
	DebugLevel int

	// Output receives diagnostics. Defaults to os.Stdout.
	Output io.Writer

	// CoreDump includes the memory dump in fault reports.
	CoreDump bool

	// MaxSteps faults the run after this many ticks. Zero means
	// unlimited.
	MaxSteps int64

	// Timeout sets maximum execution time. Zero means no timeout.
	Timeout time.Duration

	// Context for cancellation. If nil, context.Background() is used.
	Context context.Context

	// Registry overrides the instruction set.
	Registry *vm.Registry

	// Stats and Trace enable the VM's observability hooks.
	Stats bool
	Trace bool

	// Workers bounds parallel runs in Search. Defaults to GOMAXPROCS.
	Workers int

	// SearchRange is the exclusive upper bound for nouns and verbs.
	SearchRange int64
}

// Option is a functional option for configuring execution.
type Option func(*Options)

// WithPatch sets mem[addr] = value before the run.
func WithPatch(addr, value int64) Option {
	return func(o *Options) {
		o.Patches = append(o.Patches, Patch{Addr: addr, Value: value})
	}
}

// WithNounVerb patches cells 1 and 2.
func WithNounVerb(noun, verb int64) Option {
	return func(o *Options) {
		o.Patches = append(o.Patches,
			Patch{Addr: NounAddr, Value: noun},
			Patch{Addr: VerbAddr, Value: verb})
	}
}

// WithDebugLevel sets diagnostic verbosity.
func WithDebugLevel(level int) Option {
	return func(o *Options) {
		o.DebugLevel = level
	}
}

// WithOutput sets the diagnostic writer.
func WithOutput(w io.Writer) Option {
	return func(o *Options) {
		o.Output = w
	}
}

// WithCoreDump toggles memory dumps in fault reports.
func WithCoreDump(enabled bool) Option {
	return func(o *Options) {
		o.CoreDump = enabled
	}
}

// WithMaxSteps sets the instruction limit.
func WithMaxSteps(n int64) Option {
	return func(o *Options) {
		o.MaxSteps = n
	}
}

// WithTimeout sets execution timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

// WithContext sets the context for cancellation.
func WithContext(ctx context.Context) Option {
	return func(o *Options) {
		o.Context = ctx
	}
}

// WithRegistry sets the instruction set.
func WithRegistry(r *vm.Registry) Option {
	return func(o *Options) {
		o.Registry = r
	}
}

// WithStats collects execution statistics.
func WithStats() Option {
	return func(o *Options) {
		o.Stats = true
	}
}

// WithTrace records every executed instruction.
func WithTrace() Option {
	return func(o *Options) {
		o.Trace = true
	}
}

// WithWorkers bounds Search parallelism.
func WithWorkers(n int) Option {
	return func(o *Options) {
		o.Workers = n
	}
}

// WithSearchRange sets the exclusive bound for nouns and verbs.
func WithSearchRange(n int64) Option {
	return func(o *Options) {
		o.SearchRange = n
	}
}

func newOptions(opts []Option) *Options {
	o := &Options{
		Output:      os.Stdout,
		CoreDump:    true,
		Context:     context.Background(),
		Registry:    vm.DefaultRegistry,
		Workers:     runtime.GOMAXPROCS(0),
		SearchRange: 100,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	return o
}

// Result is the observable outcome of a run.
type Result struct {
	Memory []int64
	State  vm.State
	PC     int64
	Steps  int64
	Fault  error
	Stats  *vm.ExecutionStats
	Trace  []vm.TraceEntry

	// VM is the machine after the run, for snapshots and trace frames.
	VM *vm.VM
}

// Output returns the conventional answer cell, or 0 if memory is empty.
func (r *Result) Output() int64 {
	if len(r.Memory) == 0 {
		return 0
	}
	return r.Memory[OutputAddr]
}

// Run executes program with the given options. The program slice is not
// modified. A fault yields both the Result and an error wrapping ErrFaulted
// (or ErrTimeout) and the cause.
func Run(program []int64, opts ...Option) (*Result, error) {
	o := newOptions(opts)
	return o.run(program, o.Patches...)
}

// RunSource parses program text and runs it.
func RunSource(src string, opts ...Option) (*Result, error) {
	program, err := loader.ParseString(src)
	if err != nil {
		return nil, err
	}
	return Run(program, opts...)
}

// RunFile loads a program or memory image and runs it.
func RunFile(path string, opts ...Option) (*Result, error) {
	program, err := loader.LoadImage(path)
	if err != nil {
		return nil, err
	}
	return Run(program, opts...)
}

func (o *Options) run(program []int64, patches ...Patch) (*Result, error) {
	machine := vm.NewVM()
	machine.SetRegistry(o.Registry)
	machine.SetDebugLevel(o.DebugLevel)
	machine.SetCoreDump(o.CoreDump)
	machine.SetOutput(o.Output)
	machine.SetMaxSteps(o.MaxSteps)
	if o.Stats {
		machine.EnableStats()
	}
	if o.Trace {
		machine.EnableTrace()
	}
	machine.Load(program)

	for _, p := range patches {
		if err := machine.Write(p.Addr, p.Value); err != nil {
			return nil, fmt.Errorf("patching cell %d: %w", p.Addr, err)
		}
	}

	ctx := o.Context
	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}
	machine.SetContext(ctx)

	machine.Run()

	res := &Result{
		Memory: machine.Memory().Snapshot(),
		State:  machine.State(),
		PC:     machine.PC(),
		Steps:  machine.Steps(),
		Fault:  machine.Fault(),
		Stats:  machine.Stats(),
		Trace:  machine.Trace(),
		VM:     machine,
	}

	if res.State == vm.StateFaulted {
		if errors.Is(res.Fault, context.DeadlineExceeded) {
			return res, fmt.Errorf("%w: %w", ErrTimeout, res.Fault)
		}
		return res, fmt.Errorf("%w: %w", ErrFaulted, res.Fault)
	}
	return res, nil
}

// Answer combines a noun and verb into the puzzle answer.
func Answer(noun, verb int64) int64 {
	return 100*noun + verb
}

// Search finds the first noun and verb, in (noun, verb) order, for which
// the program halts with target in cell 0. Each candidate runs on its own
// VM; candidates that fault are skipped. Configured patches are applied
// before the noun and verb.
func Search(ctx context.Context, program []int64, target int64, opts ...Option) (noun, verb int64, err error) {
	o := newOptions(opts)
	o.CoreDump = false
	o.Trace = false
	o.Stats = false
	if o.DebugLevel == 0 {
		o.Output = io.Discard
	} else {
		o.Output = &lockedWriter{w: o.Output}
	}

	n := o.SearchRange
	if n < 1 {
		return 0, 0, fmt.Errorf("%w: %d", ErrInvalidRange, n)
	}
	found := make([]int64, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.Workers)

	for noun := int64(0); noun < n; noun++ {
		noun := noun
		found[noun] = -1
		g.Go(func() error {
			runOpts := *o
			runOpts.Context = gctx
			for verb := int64(0); verb < n; verb++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				patches := append(append([]Patch(nil), o.Patches...),
					Patch{Addr: NounAddr, Value: noun},
					Patch{Addr: VerbAddr, Value: verb})
				res, err := runOpts.run(program, patches...)
				if err != nil {
					if res == nil {
						return err
					}
					continue
				}
				if res.Output() == target {
					found[noun] = verb
					return nil
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, 0, err
	}
	for noun, verb := range found {
		if verb >= 0 {
			return int64(noun), verb, nil
		}
	}
	return 0, 0, ErrNotFound
}

// lockedWriter serialises diagnostics from concurrent search workers.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
