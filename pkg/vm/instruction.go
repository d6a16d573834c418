package vm

import (
	"fmt"
	"strings"
)

// Mode selects how an operand's raw value is interpreted.
type Mode uint8

const (
	ModeAddress   Mode = iota // Value is an address to read through
	ModeImmediate             // Value is used literally
)

// String returns the mode name.
func (m Mode) String() string {
	if m == ModeImmediate {
		return "immediate"
	}
	return "address"
}

// Instruction is one decoded, not yet executed step.
//
// Opcode cell layout (decimal):
//
//	... D  C  B  A  A
//	    │  │  │  └──┴── opcode (low two digits)
//	    │  │  └──────── mode of operand 0
//	    │  └─────────── mode of operand 1
//	    └────────────── mode of operand 2, ...
//
// Only the first Op.Indirects operands read a mode digit. The rest are
// destinations and always use ModeAddress.
type Instruction struct {
	Op     *Opcode
	PC     int64   // Address of the opcode cell
	Raw    int64   // Full opcode cell value
	Params []int64 // Raw operand cells
	Modes  []Mode  // Per-operand mode
}

// Decode reads the instruction at pc. Memory is not modified.
func Decode(mem *Memory, pc int64, reg *Registry) (*Instruction, error) {
	full, err := mem.Read(pc)
	if err != nil {
		return nil, err
	}
	if full < 0 {
		return nil, fmt.Errorf("%w: cell %d at %d", ErrInvalidOpcode, full, pc)
	}

	op, err := reg.Lookup(full % 100)
	if err != nil {
		return nil, fmt.Errorf("%w (cell %d at %d)", err, full, pc)
	}

	inst := &Instruction{
		Op:     op,
		PC:     pc,
		Raw:    full,
		Params: make([]int64, op.Operands),
		Modes:  make([]Mode, op.Operands),
	}

	digits := full / 100
	for i := 0; i < op.Operands; i++ {
		if inst.Params[i], err = mem.Read(pc + 1 + int64(i)); err != nil {
			return nil, fmt.Errorf("%s operand %d: %w", op.Name, i, err)
		}
		if i < op.Indirects {
			if digits%10 != 0 {
				inst.Modes[i] = ModeImmediate
			}
			digits /= 10
		}
	}

	return inst, nil
}

// Resolve returns the effective operand values. Read operands in address
// mode are dereferenced through mem now, not at decode time.
func (inst *Instruction) Resolve(mem *Memory) ([]int64, error) {
	args := make([]int64, len(inst.Params))
	for i, p := range inst.Params {
		if i >= inst.Op.Indirects || inst.Modes[i] == ModeImmediate {
			args[i] = p
			continue
		}
		v, err := mem.Read(p)
		if err != nil {
			return nil, fmt.Errorf("%s operand %d: %w", inst.Op.Name, i, err)
		}
		args[i] = v
	}
	return args, nil
}

// Width returns the number of cells the instruction occupies.
func (inst *Instruction) Width() int64 {
	return int64(inst.Op.Width())
}

// Encode builds an opcode cell from a code and the modes of its leading
// operands.
func Encode(code int64, modes ...Mode) int64 {
	cell := code
	scale := int64(100)
	for _, m := range modes {
		if m == ModeImmediate {
			cell += scale
		}
		scale *= 10
	}
	return cell
}

// String renders the instruction in assembler syntax: immediates are
// prefixed with '#', addresses are bare.
func (inst *Instruction) String() string {
	if len(inst.Params) == 0 {
		return inst.Op.Name
	}
	parts := make([]string, len(inst.Params))
	for i, p := range inst.Params {
		if inst.Modes[i] == ModeImmediate {
			parts[i] = fmt.Sprintf("#%d", p)
		} else {
			parts[i] = fmt.Sprintf("%d", p)
		}
	}
	return fmt.Sprintf("%-5s %s", inst.Op.Name, strings.Join(parts, ", "))
}
