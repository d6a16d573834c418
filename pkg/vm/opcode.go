package vm

import (
	"fmt"
	"sort"
	"strings"
)

// Numeric codes of the built-in instruction set.
const (
	CodeAdd  int64 = 1  // mem[c] = a + b
	CodeMul  int64 = 2  // mem[c] = a * b
	CodeHalt int64 = 99 // stop execution
)

// MaxCode is the largest code an opcode cell can select (low two digits).
const MaxCode = 99

// Operation performs an instruction against the VM. args holds the
// resolved operand values: read operands are already dereferenced according
// to their mode, destination operands carry the raw target address.
type Operation func(vm *VM, args []int64) error

// Opcode describes one instruction kind.
type Opcode struct {
	Name      string    // Mnemonic, e.g. "ADD"
	Code      int64     // Numeric code selected by the low two digits of the cell
	Operands  int       // Operand cells following the opcode cell
	Indirects int       // Leading operands whose mode is taken from the cell
	Exec      Operation // Behaviour
}

// Width returns the number of memory cells the instruction occupies.
func (op *Opcode) Width() int {
	return op.Operands + 1
}

// String returns the mnemonic.
func (op *Opcode) String() string {
	return op.Name
}

// Registry maps numeric codes to opcode definitions.
type Registry struct {
	byCode map[int64]*Opcode
	byName map[string]*Opcode
}

// NewRegistry builds a registry from the given definitions.
func NewRegistry(ops ...Opcode) (*Registry, error) {
	r := &Registry{
		byCode: make(map[int64]*Opcode),
		byName: make(map[string]*Opcode),
	}
	for _, op := range ops {
		if err := r.Register(op); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// MustRegistry is like NewRegistry but panics on an invalid table.
func MustRegistry(ops ...Opcode) *Registry {
	r, err := NewRegistry(ops...)
	if err != nil {
		panic(err)
	}
	return r
}

// Register adds an opcode definition. Codes and mnemonics must be unique.
func (r *Registry) Register(op Opcode) error {
	switch {
	case op.Code < 0 || op.Code > MaxCode:
		return fmt.Errorf("%w: code %d outside 0-%d", ErrInvalidDefinition, op.Code, MaxCode)
	case op.Operands < 0 || op.Indirects < 0 || op.Indirects > op.Operands:
		return fmt.Errorf("%w: %s has %d operands, %d indirect", ErrInvalidDefinition, op.Name, op.Operands, op.Indirects)
	case op.Name == "" || op.Exec == nil:
		return fmt.Errorf("%w: code %d needs a name and an operation", ErrInvalidDefinition, op.Code)
	}

	name := strings.ToUpper(op.Name)
	if prev, ok := r.byCode[op.Code]; ok {
		return fmt.Errorf("%w: code %d already used by %s", ErrDuplicateOpcode, op.Code, prev.Name)
	}
	if _, ok := r.byName[name]; ok {
		return fmt.Errorf("%w: mnemonic %s", ErrDuplicateOpcode, name)
	}

	def := op
	def.Name = name
	r.byCode[op.Code] = &def
	r.byName[name] = &def
	return nil
}

// Lookup returns the definition for code.
func (r *Registry) Lookup(code int64) (*Opcode, error) {
	op, ok := r.byCode[code]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrInvalidOpcode, code)
	}
	return op, nil
}

// ByName returns the definition for a mnemonic, ignoring case.
func (r *Registry) ByName(name string) (*Opcode, bool) {
	op, ok := r.byName[strings.ToUpper(name)]
	return op, ok
}

// Codes returns the registered codes in ascending order.
func (r *Registry) Codes() []int64 {
	codes := make([]int64, 0, len(r.byCode))
	for code := range r.byCode {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// Built-in instruction set.
var (
	Add = Opcode{
		Name: "ADD", Code: CodeAdd, Operands: 3, Indirects: 2,
		Exec: func(vm *VM, args []int64) error {
			return vm.mem.Write(args[2], args[0]+args[1])
		},
	}

	Mul = Opcode{
		Name: "MUL", Code: CodeMul, Operands: 3, Indirects: 2,
		Exec: func(vm *VM, args []int64) error {
			return vm.mem.Write(args[2], args[0]*args[1])
		},
	}

	Halt = Opcode{
		Name: "HALT", Code: CodeHalt, Operands: 0, Indirects: 0,
		Exec: func(vm *VM, _ []int64) error {
			vm.halt()
			return nil
		},
	}
)

// DefaultRegistry holds the built-in instruction set. It is built once at
// package initialisation and never modified afterwards.
var DefaultRegistry = MustRegistry(Add, Mul, Halt)
