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
	"bufio"
	"log"

	"github.com/lassandro/lc3kit/pkg/encoding"
)

// KeySource hands out buffered keystrokes without blocking.
type KeySource interface {
	Poll() (byte, bool)
}

type DeviceHandler struct {
	Keyboard KeySource
	Display  *bufio.Writer
}

type MachineState struct {
	Registers [8]uint16
	Program   uint16
	Procstat  uint16
	Memory    encoding.Image
}

type MachineDebugger interface {
	Step(mc *Machine)
	Read(addr uint16, mc *Machine)
	Write(addr uint16, mc *Machine)
}

type keyboardState struct {
	key      uint16
	held     bool
	visible  bool
	consumed bool
	idle     int
}

type Machine struct {
	Devices  *DeviceHandler
	State    MachineState
	Debugger MachineDebugger

	// Trace, when set, receives one line per executed instruction
	Trace *log.Logger

	keyboard keyboardState
}
