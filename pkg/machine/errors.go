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
	"github.com/lassandro/lc3kit/pkg/translate"
)

// IllegalOpcodeError is raised by the reserved opcode 1101.
type IllegalOpcodeError struct {
	PC          uint16
	Instruction uint16
}

func (err *IllegalOpcodeError) Error() string {
	return translate.From(
		"x%04X: Illegal opcode in instruction x%04X", err.PC, err.Instruction,
	)
}

// PrivilegeViolationError is raised by RTI outside of supervisor mode.
type PrivilegeViolationError struct {
	PC uint16
}

func (err *PrivilegeViolationError) Error() string {
	return translate.From(
		"x%04X: Privilege violation: RTI requires supervisor mode", err.PC,
	)
}

// DeviceError wraps a failure of the host side of a memory-mapped device.
type DeviceError struct {
	Addr uint16
	Err  error
}

func (err *DeviceError) Error() string {
	return translate.From("x%04X: Device error: %v", err.Addr, err.Err)
}

func (err *DeviceError) Unwrap() error {
	return err.Err
}
