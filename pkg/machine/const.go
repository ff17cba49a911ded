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

const (
	FLAG_POS  uint16 = 1 << 0
	FLAG_ZERO uint16 = 1 << 1
	FLAG_NEG  uint16 = 1 << 2
)

// Privilege bit of the processor status register; clear is supervisor.
const FLAG_USER uint16 = 1 << 15

const (
	MEMSPACE_TRAP_TABLE uint16 = 0x0000
	MEMSPACE_SYSTEM            = 0x0200
	MEMSPACE_USER              = 0x3000
	MEMSPACE_DEVICES           = 0xFE00
)

const (
	DEV_KBSR uint16 = 0xFE00
	DEV_KBDR        = 0xFE02
	DEV_DSR         = 0xFE04
	DEV_DDR         = 0xFE06
	DEV_MCR         = 0xFFFE
)

const (
	// Status register bit signalling a pending keystroke or a ready display
	DEV_READY uint16 = 1 << 15

	// Machine control register bit that keeps the clock running
	MCR_RUNNING uint16 = 1 << 15
)

// An unread keystroke stays visible in KBSR for more cycles than this before
// KBSR is cleared for a cycle.
const KEYBOARD_HOLD_CYCLES = 2
