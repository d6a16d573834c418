// Package asm assembles Intcode mnemonics into memory images.
//
// Source is line oriented:
//
//	start:  ADD   a, #3, total   ; total = mem[a] + 3
//	        MUL   total, #2, total
//	        HALT
//	a:      DATA  39
//	total:  DATA  0
//
// Operands are addresses unless prefixed with '#'. Identifiers refer to
// labels and evaluate to the label's address. DATA emits raw cells.
// Mnemonics come from a vm.Registry, so added opcodes assemble without
// changes here.
package asm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/akhildatla/intcode/pkg/vm"
)

// Error definitions
var (
	ErrUnknownMnemonic      = errors.New("unknown mnemonic")
	ErrOperandCount         = errors.New("wrong number of operands")
	ErrImmediateDestination = errors.New("destination operand cannot be immediate")
	ErrUndefinedLabel       = errors.New("undefined label")
	ErrDuplicateLabel       = errors.New("duplicate label")
	ErrInvalidNumber        = errors.New("invalid number")
)

// File is the parsed source.
type File struct {
	Lines []*Line `parser:"@@*"`
}

// Line holds an optional label and an optional statement.
type Line struct {
	Pos      lexer.Position
	Label    *string    `parser:"@Label?"`
	Mnemonic *string    `parser:"( @Ident"`
	Operands []*Operand `parser:"  ( @@ ( \",\" @@ )* )? )? EOL"`
}

// Operand is a number or a label reference, optionally immediate.
type Operand struct {
	Pos       lexer.Position
	Immediate bool    `parser:"@\"#\"?"`
	Number    *string `parser:"( @Int"`
	Ref       *string `parser:"| @Ident )"`
}

var asmLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `;[^\n]*`},
	{Name: "Whitespace", Pattern: `[ \t\r]+`},
	{Name: "EOL", Pattern: `\n`},
	{Name: "Label", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*:`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Int", Pattern: `[-+]?[0-9]+`},
	{Name: "Punct", Pattern: `[#,]`},
})

var parser = participle.MustBuild[File](
	participle.Lexer(asmLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(2),
)

// Parse parses assembler source.
func Parse(filename, source string) (*File, error) {
	if !strings.HasSuffix(source, "\n") {
		source += "\n"
	}
	return parser.ParseString(filename, source)
}

// Assemble parses and assembles source using the opcodes in reg.
func Assemble(source string, reg *vm.Registry) ([]int64, error) {
	file, err := Parse("", source)
	if err != nil {
		return nil, err
	}
	return file.Assemble(reg)
}

// Assemble lays out the parsed lines and resolves labels.
func (f *File) Assemble(reg *vm.Registry) ([]int64, error) {
	labels := make(map[string]int64)
	var addr int64

	// First pass: sizes and label addresses.
	for _, line := range f.Lines {
		if line.Label != nil {
			name := strings.TrimSuffix(*line.Label, ":")
			if _, ok := labels[name]; ok {
				return nil, fmt.Errorf("%s: %w: %s", line.Pos, ErrDuplicateLabel, name)
			}
			labels[name] = addr
		}
		if line.Mnemonic == nil {
			continue
		}
		if isData(*line.Mnemonic) {
			addr += int64(len(line.Operands))
			continue
		}
		op, ok := reg.ByName(*line.Mnemonic)
		if !ok {
			return nil, fmt.Errorf("%s: %w: %s", line.Pos, ErrUnknownMnemonic, *line.Mnemonic)
		}
		addr += int64(op.Width())
	}

	// Second pass: emit cells.
	cells := make([]int64, 0, addr)
	for _, line := range f.Lines {
		if line.Mnemonic == nil {
			continue
		}
		emitted, err := emitLine(line, reg, labels)
		if err != nil {
			return nil, err
		}
		cells = append(cells, emitted...)
	}

	return cells, nil
}

func emitLine(line *Line, reg *vm.Registry, labels map[string]int64) ([]int64, error) {
	if isData(*line.Mnemonic) {
		cells := make([]int64, len(line.Operands))
		for i, o := range line.Operands {
			if o.Immediate {
				return nil, fmt.Errorf("%s: DATA values take no '#'", o.Pos)
			}
			v, err := o.value(labels)
			if err != nil {
				return nil, err
			}
			cells[i] = v
		}
		return cells, nil
	}

	op, _ := reg.ByName(*line.Mnemonic)
	if len(line.Operands) != op.Operands {
		return nil, fmt.Errorf("%s: %w: %s takes %d, got %d",
			line.Pos, ErrOperandCount, op.Name, op.Operands, len(line.Operands))
	}

	cells := make([]int64, 1, op.Width())
	modes := make([]vm.Mode, op.Indirects)
	for i, o := range line.Operands {
		if o.Immediate {
			if i >= op.Indirects {
				return nil, fmt.Errorf("%s: %w: %s operand %d", o.Pos, ErrImmediateDestination, op.Name, i)
			}
			modes[i] = vm.ModeImmediate
		}
		v, err := o.value(labels)
		if err != nil {
			return nil, err
		}
		cells = append(cells, v)
	}
	cells[0] = vm.Encode(op.Code, modes...)
	return cells, nil
}

func (o *Operand) value(labels map[string]int64) (int64, error) {
	if o.Ref != nil {
		v, ok := labels[*o.Ref]
		if !ok {
			return 0, fmt.Errorf("%s: %w: %s", o.Pos, ErrUndefinedLabel, *o.Ref)
		}
		return v, nil
	}
	v, err := strconv.ParseInt(*o.Number, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w: %s", o.Pos, ErrInvalidNumber, *o.Number)
	}
	return v, nil
}

func isData(mnemonic string) bool {
	return strings.EqualFold(mnemonic, "DATA")
}
