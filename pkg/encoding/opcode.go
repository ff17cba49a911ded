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


package encoding

// Opcode is the instruction selector held in bits 15-12 of every word.
type Opcode uint16

const (
	OP_BR   Opcode = 0b0000
	OP_ADD  Opcode = 0b0001
	OP_LD   Opcode = 0b0010
	OP_ST   Opcode = 0b0011
	OP_JSR  Opcode = 0b0100
	OP_AND  Opcode = 0b0101
	OP_LDR  Opcode = 0b0110
	OP_STR  Opcode = 0b0111
	OP_RTI  Opcode = 0b1000
	OP_NOT  Opcode = 0b1001
	OP_LDI  Opcode = 0b1010
	OP_STI  Opcode = 0b1011
	OP_JMP  Opcode = 0b1100
	OP_RES  Opcode = 0b1101 // Reserved (illegal)
	OP_LEA  Opcode = 0b1110
	OP_TRAP Opcode = 0b1111
)

const (
	TRAP_GETC  uint16 = 0x20
	TRAP_OUT   uint16 = 0x21
	TRAP_PUTS  uint16 = 0x22
	TRAP_IN    uint16 = 0x23
	TRAP_PUTSP uint16 = 0x24
	TRAP_HALT  uint16 = 0x25
)

// Condition code bits of the BR mask and the processor status word.
const (
	COND_P uint16 = 1 << 0
	COND_Z uint16 = 1 << 1
	COND_N uint16 = 1 << 2
)

var opcodeNames = [16]string{
	"BR", "ADD", "LD", "ST", "JSR", "AND", "LDR", "STR",
	"RTI", "NOT", "LDI", "STI", "JMP", "RES", "LEA", "TRAP",
}

var trapNames = map[uint16]string{
	TRAP_GETC:  "GETC",
	TRAP_OUT:   "OUT",
	TRAP_PUTS:  "PUTS",
	TRAP_IN:    "IN",
	TRAP_PUTSP: "PUTSP",
	TRAP_HALT:  "HALT",
}

// OpcodeOf returns the opcode of an instruction word.
func OpcodeOf(instruction uint16) Opcode {
	return Opcode(instruction >> 12)
}

// Encode places the opcode in bits 15-12 of an otherwise empty word.
func (op Opcode) Encode() uint16 {
	return uint16(op&0xF) << 12
}

func (op Opcode) String() string {
	return opcodeNames[op&0xF]
}

// TrapName returns the service routine alias of a trap vector, if it has one.
func TrapName(vector uint16) (string, bool) {
	name, ok := trapNames[vector]
	return name, ok
}
