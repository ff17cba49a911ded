// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.


// Package disassembler renders LC-3 instruction words as assembly text that
// pkg/assembler accepts back.
package disassembler

import (
	"fmt"
	"strings"

	"github.com/lassandro/lc3kit/pkg/encoding"
)

// Line is one annotated row of a listing.
type Line struct {
	Addr uint16
	Word uint16
	Text string
}

func (line Line) String() string {
	return fmt.Sprintf("x%04X  x%04X  %s", line.Addr, line.Word, line.Text)
}

func reg(word uint16, start uint16) string {
	return fmt.Sprintf("R%d", encoding.Bits(word, start, 3))
}

func imm(word uint16, width uint16) string {
	return fmt.Sprintf("#%d", encoding.SignedBits(word, 0, width))
}

// Disassemble renders a single instruction word. Every word decodes to
// something; opcode 1101 renders as "Reserved".
func Disassemble(word uint16) string {
	op := encoding.OpcodeOf(word)

	switch op {
	// ADD  |0001    |DR   |SR1  |0|00 |SR2   | Register  addition
	// ADD  |0001    |DR   |SR1  |1|imm5      | Immediate addition
	// AND  |0101    |DR   |SR1  |0|00 |SR2   | Register  bitwise
	// AND  |0101    |DR   |SR1  |1|imm5      | Immediate bitwise
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case encoding.OP_ADD, encoding.OP_AND:
		if encoding.Bits(word, 5, 1) == 1 {
			return fmt.Sprintf(
				"%s %s, %s, %s", op, reg(word, 9), reg(word, 6), imm(word, 5),
			)
		}

		return fmt.Sprintf(
			"%s %s, %s, %s", op, reg(word, 9), reg(word, 6), reg(word, 0),
		)

	// BR   |0000    |N|Z|P|PCoffset9         | Conditional branch
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case encoding.OP_BR:
		var flags strings.Builder

		flags.WriteString("BR")

		if word&(encoding.COND_N<<9) != 0 {
			flags.WriteByte('n')
		}

		if word&(encoding.COND_Z<<9) != 0 {
			flags.WriteByte('z')
		}

		if word&(encoding.COND_P<<9) != 0 {
			flags.WriteByte('p')
		}

		return fmt.Sprintf("%s %s", flags.String(), imm(word, 9))

	// JMP  |1100    |000  |BaseR|000000      | Jump
	// RET  |1100    |000  |111  |000000      | Return
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case encoding.OP_JMP:
		if encoding.Bits(word, 6, 3) == 7 {
			return "RET"
		}

		return fmt.Sprintf("JMP %s", reg(word, 6))

	// JSR  |0100    |1|PCoffset11            | Jump to subroutine
	// JSRR |0100    |0|00 |BaseR|000000      | Jump to subroutine register
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case encoding.OP_JSR:
		if encoding.Bits(word, 11, 1) == 1 {
			return fmt.Sprintf("JSR %s", imm(word, 11))
		}

		return fmt.Sprintf("JSRR %s", reg(word, 6))

	// LD   |0010    |DR   |PCoffset9         | Load
	// LDI  |1010    |DR   |PCoffset9         | Load indirect
	// LEA  |1110    |DR   |PCoffset9         | Load effective address
	// ST   |0011    |SR   |PCoffset9         | Store
	// STI  |1011    |SR   |PCoffset9         | Store indirect
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case encoding.OP_LD, encoding.OP_LDI, encoding.OP_LEA,
		encoding.OP_ST, encoding.OP_STI:
		return fmt.Sprintf("%s %s, %s", op, reg(word, 9), imm(word, 9))

	// LDR  |0110    |DR   |BaseR|offset6     | Load base+offset
	// STR  |0111    |SR   |BaseR|offset6     | Store base+offset
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case encoding.OP_LDR, encoding.OP_STR:
		return fmt.Sprintf(
			"%s %s, %s, %s", op, reg(word, 9), reg(word, 6), imm(word, 6),
		)

	// NOT  |1001    |DR   |SR   |1|11111     | Bitwise complement
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case encoding.OP_NOT:
		return fmt.Sprintf("NOT %s, %s", reg(word, 9), reg(word, 6))

	// RTI  |1000    |000000000000            | Return from interrupt
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case encoding.OP_RTI:
		return "RTI"

	// TRAP |1111    |0000   |trapvect8       | System call
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case encoding.OP_TRAP:
		vector := encoding.Bits(word, 0, 8)

		if name, ok := encoding.TrapName(vector); ok {
			return name
		}

		return fmt.Sprintf("TRAP x%02X", vector)

	case encoding.OP_RES:
		return "Reserved"
	}

	panic(fmt.Sprintf("Unhandled opcode %d", op))
}

// DisassembleImage renders every non-zero word, treating zero words as
// padding.
func DisassembleImage(words []uint16) []string {
	result := make([]string, 0, len(words))

	for _, word := range words {
		if word == 0 {
			continue
		}

		result = append(result, Disassemble(word))
	}

	return result
}

// Listing renders words placed at origin, one Line per word including
// padding, stopping at the end of the address space.
func Listing(words []uint16, origin uint16) []Line {
	count := len(words)
	if limit := 1<<16 - int(origin); count > limit {
		count = limit
	}

	lines := make([]Line, 0, count)

	for index := 0; index < count; index++ {
		lines = append(lines, Line{
			Addr: origin + uint16(index),
			Word: words[index],
			Text: Disassemble(words[index]),
		})
	}

	return lines
}
