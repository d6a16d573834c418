package vm

import (
	"bytes"
	"fmt"
)

// Disassemble converts a memory image back to assembler source. Cells that
// do not decode to an instruction, or whose mode digits are not in the form
// the assembler emits, are emitted as DATA.
func Disassemble(cells []int64, reg *Registry) string {
	var buf bytes.Buffer

	buf.WriteString("; Disassembled from Intcode\n")
	buf.WriteString(fmt.Sprintf("; %d cells\n\n", len(cells)))

	mem := NewMemory(cells)
	for pc := int64(0); pc < int64(len(cells)); {
		inst, err := Decode(mem, pc, reg)
		if err != nil || !canonical(inst) {
			buf.WriteString(fmt.Sprintf("%-24s ; %04d\n", fmt.Sprintf("DATA %d", cells[pc]), pc))
			pc++
			continue
		}
		buf.WriteString(fmt.Sprintf("%-24s ; %04d\n", inst, pc))
		pc += inst.Width()
	}

	return buf.String()
}

// canonical reports whether assembling inst reproduces its opcode cell.
func canonical(inst *Instruction) bool {
	return Encode(inst.Op.Code, inst.Modes[:inst.Op.Indirects]...) == inst.Raw
}
