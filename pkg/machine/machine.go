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


package machine

import (
	"context"

	"github.com/lassandro/lc3kit/pkg/disassembler"
	"github.com/lassandro/lc3kit/pkg/encoding"
)

// Load copies an image into memory. Registers and devices are untouched.
func (mc *Machine) Load(img *encoding.Image) {
	mc.State.Memory = *img
}

// Reset prepares the machine to execute from entry: registers and the
// processor status are zeroed and the device registers get their power-on
// values. Memory other than the device registers is preserved.
func (mc *Machine) Reset(entry uint16) {
	for i := range mc.State.Registers {
		mc.State.Registers[i] = 0x0000
	}

	mc.State.Program = entry
	mc.State.Procstat = 0x0000

	mc.State.Memory[DEV_KBSR] = 0
	mc.State.Memory[DEV_KBDR] = 0
	mc.State.Memory[DEV_DSR] = DEV_READY
	mc.State.Memory[DEV_DDR] = 0
	mc.State.Memory[DEV_MCR] = MCR_RUNNING

	mc.keyboard = keyboardState{}
}

// Halted reports whether the clock enable bit of MCR has been cleared.
func (mc *Machine) Halted() bool {
	return mc.State.Memory[DEV_MCR]&MCR_RUNNING == 0
}

// Run resets the machine to entry and steps until it halts, an instruction
// faults, or ctx is cancelled.
func (mc *Machine) Run(ctx context.Context, entry uint16) error {
	mc.Reset(entry)

	for !mc.Halted() {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := mc.Step(); err != nil {
			return err
		}
	}

	return nil
}

func (mc *Machine) pop() uint16 {
	result := mc.read(mc.State.Registers[6])
	mc.State.Registers[6]++
	return result
}

func (mc *Machine) read(addr uint16) uint16 {
	if addr == DEV_KBDR && mc.keyboard.held {
		mc.keyboard.consumed = true
	}

	if mc.Debugger != nil {
		mc.Debugger.Read(addr, mc)
	}

	return mc.State.Memory[addr]
}

func (mc *Machine) write(addr uint16, value uint16) {
	mc.State.Memory[addr] = value

	if mc.Debugger != nil {
		mc.Debugger.Write(addr, mc)
	}
}

func (mc *Machine) setFlags(value uint16) {
	// Reset condition flags, but preserve the privilege bit
	mc.State.Procstat &= ^uint16(0x7)

	if value == 0 {
		mc.State.Procstat |= FLAG_ZERO
	} else if value>>15 == 1 {
		mc.State.Procstat |= FLAG_NEG
	} else {
		mc.State.Procstat |= FLAG_POS
	}
}

// Emits the pending display character, if any. Each character costs one
// cycle during which DSR reads as busy.
func (mc *Machine) stepDisplay() error {
	memory := &mc.State.Memory

	if memory[DEV_DSR]&DEV_READY == 0 || memory[DEV_DDR] == 0 {
		memory[DEV_DSR] = DEV_READY
		return nil
	}

	char := byte(memory[DEV_DDR] & 0xFF)

	memory[DEV_DSR] = 0
	memory[DEV_DDR] = 0

	if mc.Devices == nil || mc.Devices.Display == nil {
		return nil
	}

	if err := mc.Devices.Display.WriteByte(char); err != nil {
		return &DeviceError{DEV_DDR, err}
	}

	if err := mc.Devices.Display.Flush(); err != nil {
		return &DeviceError{DEV_DDR, err}
	}

	return nil
}

// Makes at most one buffered keystroke visible. Reading KBDR retires the
// keystroke and lets the next one in. A keystroke nobody reads times out
// after KEYBOARD_HOLD_CYCLES, leaving KBSR clear for a cycle, and is then
// offered again, so typed-ahead input is never dropped.
func (mc *Machine) stepKeyboard() {
	kb := &mc.keyboard
	memory := &mc.State.Memory

	kb.idle++

	if kb.held && kb.consumed {
		kb.held = false
		kb.visible = false
		memory[DEV_KBSR] &^= DEV_READY
	} else if kb.visible && kb.idle > KEYBOARD_HOLD_CYCLES {
		kb.visible = false
		memory[DEV_KBSR] &^= DEV_READY
		return
	}

	if kb.visible {
		return
	}

	if !kb.held {
		if mc.Devices == nil || mc.Devices.Keyboard == nil {
			return
		}

		key, ok := mc.Devices.Keyboard.Poll()

		if !ok {
			return
		}

		kb.held = true
		kb.consumed = false
		kb.key = uint16(key)
	}

	memory[DEV_KBSR] |= DEV_READY
	memory[DEV_KBDR] = kb.key

	kb.visible = true
	kb.idle = 0
}

// Step runs one full cycle: display service, fetch, execute and keyboard
// service.
func (mc *Machine) Step() error {
	if err := mc.stepDisplay(); err != nil {
		return err
	}

	pc := mc.State.Program
	instruction := mc.read(pc)
	opcode := encoding.OpcodeOf(instruction)

	mc.State.Program++

	if mc.Trace != nil {
		mc.Trace.Printf(
			"x%04X  x%04X  %s", pc, instruction,
			disassembler.Disassemble(instruction),
		)
	}

	switch opcode {
	// ADD  |0001    |DR   |SR1  |0|00 |SR2   | Register  addition
	// ADD  |0001    |DR   |SR1  |1|imm5      | Immediate addition
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case encoding.OP_ADD:
		dest := encoding.Bits(instruction, 9, 3)
		src1 := encoding.Bits(instruction, 6, 3)

		// Immediate value addition
		if encoding.Bits(instruction, 5, 1) == 1 {
			imm5 := encoding.SignExtend(instruction&0x1F, 5)

			mc.State.Registers[dest] = mc.State.Registers[src1] + imm5
		} else {
			src2 := encoding.Bits(instruction, 0, 3)

			mc.State.Registers[dest] = mc.State.Registers[src1] +
				mc.State.Registers[src2]
		}

		mc.setFlags(mc.State.Registers[dest])

	// AND  |0101    |DR   |SR1  |0|00 |SR2   | Register  bitwise
	// AND  |0101    |DR   |SR1  |1|imm5      | Immediate bitwise
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case encoding.OP_AND:
		dest := encoding.Bits(instruction, 9, 3)
		src1 := encoding.Bits(instruction, 6, 3)

		// Immediate value bitwise
		if encoding.Bits(instruction, 5, 1) == 1 {
			imm5 := encoding.SignExtend(instruction&0x1F, 5)

			mc.State.Registers[dest] = mc.State.Registers[src1] & imm5
		} else {
			src2 := encoding.Bits(instruction, 0, 3)

			mc.State.Registers[dest] = mc.State.Registers[src1] &
				mc.State.Registers[src2]
		}

		mc.setFlags(mc.State.Registers[dest])

	// BR   |0000    |N|Z|P|PCoffset9         | Conditional branch
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case encoding.OP_BR:
		flags := encoding.Bits(instruction, 9, 3)

		if flags&(mc.State.Procstat&0x7) != 0 {
			mc.State.Program += encoding.SignExtend(instruction&0x1FF, 9)
		}

	// JMP  |1100    |000  |BaseR|000000      | Jump
	// RET  |1100    |000  |111  |000000      | Return
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case encoding.OP_JMP:
		src := encoding.Bits(instruction, 6, 3)

		mc.State.Program = mc.State.Registers[src]

	// JSR  |0100    |1|PCoffset11            | Jump to subroutine
	// JSRR |0100    |0|00 |BaseR|000000      | Jump to subroutine register
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case encoding.OP_JSR:
		// Read BaseR first, JSRR R7 jumps to the old R7
		target := mc.State.Registers[encoding.Bits(instruction, 6, 3)]

		mc.State.Registers[7] = mc.State.Program

		if encoding.Bits(instruction, 11, 1) == 1 {
			mc.State.Program += encoding.SignExtend(instruction&0x7FF, 11)
		} else {
			mc.State.Program = target
		}

	// LD   |0010    |DR   |PCoffset9         | Load
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case encoding.OP_LD:
		dest := encoding.Bits(instruction, 9, 3)
		addr := mc.State.Program + encoding.SignExtend(instruction&0x1FF, 9)

		mc.State.Registers[dest] = mc.read(addr)

		mc.setFlags(mc.State.Registers[dest])

	// LDI  |1010    |DR   |PCoffset9         | Load indirect
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case encoding.OP_LDI:
		dest := encoding.Bits(instruction, 9, 3)
		addr := mc.State.Program + encoding.SignExtend(instruction&0x1FF, 9)

		mc.State.Registers[dest] = mc.read(mc.read(addr))

		mc.setFlags(mc.State.Registers[dest])

	// LDR  |0110    |DR   |BaseR|offset6     | Load base+offset
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case encoding.OP_LDR:
		dest := encoding.Bits(instruction, 9, 3)
		src := encoding.Bits(instruction, 6, 3)
		addr := mc.State.Registers[src] +
			encoding.SignExtend(instruction&0x3F, 6)

		mc.State.Registers[dest] = mc.read(addr)

		mc.setFlags(mc.State.Registers[dest])

	// LEA  |1110    |DR   |PCoffset9         | Load effective address
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case encoding.OP_LEA:
		dest := encoding.Bits(instruction, 9, 3)
		addr := mc.State.Program + encoding.SignExtend(instruction&0x1FF, 9)

		mc.State.Registers[dest] = addr

		mc.setFlags(mc.State.Registers[dest])

	// NOT  |1001    |DR   |SR   |1|11111     | Bitwise complement
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case encoding.OP_NOT:
		dest := encoding.Bits(instruction, 9, 3)
		src := encoding.Bits(instruction, 6, 3)

		mc.State.Registers[dest] = ^mc.State.Registers[src]

		mc.setFlags(mc.State.Registers[dest])

	// RTI  |1000    |000000000000            | Return from interrupt
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case encoding.OP_RTI:
		if mc.State.Procstat&FLAG_USER != 0 {
			return &PrivilegeViolationError{pc}
		}

		mc.State.Program = mc.pop()
		mc.State.Procstat = mc.pop()

	// ST   |0011    |SR   |PCoffset9         | Store
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case encoding.OP_ST:
		src := encoding.Bits(instruction, 9, 3)
		addr := mc.State.Program + encoding.SignExtend(instruction&0x1FF, 9)

		mc.write(addr, mc.State.Registers[src])

	// STI  |1011    |SR   |PCoffset9         | Store indirect
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case encoding.OP_STI:
		src := encoding.Bits(instruction, 9, 3)
		addr := mc.State.Program + encoding.SignExtend(instruction&0x1FF, 9)

		mc.write(mc.read(addr), mc.State.Registers[src])

	// STR  |0111    |SR   |BaseR|offset6     | Store base+offset
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case encoding.OP_STR:
		src := encoding.Bits(instruction, 9, 3)
		base := encoding.Bits(instruction, 6, 3)
		addr := mc.State.Registers[base] +
			encoding.SignExtend(instruction&0x3F, 6)

		mc.write(addr, mc.State.Registers[src])

	// TRAP |1111    |0000   |trapvect8       | System call
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case encoding.OP_TRAP:
		vector := encoding.Bits(instruction, 0, 8)

		mc.State.Registers[7] = mc.State.Program
		mc.State.Program = mc.read(MEMSPACE_TRAP_TABLE | vector)

	// RES  |1101    |                        | Reserved (illegal)
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case encoding.OP_RES:
		return &IllegalOpcodeError{pc, instruction}
	}

	mc.stepKeyboard()

	if mc.Debugger != nil {
		mc.Debugger.Step(mc)
	}

	return nil
}
