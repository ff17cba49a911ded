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


// Package sysrom provides the trap service routines that programs reach
// through TRAP x20-x25.
package sysrom

import (
	_ "embed"
	"errors"
	"strings"
	"sync"

	"github.com/lassandro/lc3kit/pkg/assembler"
	"github.com/lassandro/lc3kit/pkg/encoding"
	"github.com/lassandro/lc3kit/pkg/translate"
)

//go:embed os.asm
var Source string

var ErrOccupied = errors.New(
	translate.From("System ROM region already holds program data"),
)

var (
	once    sync.Once
	rom     *assembler.Program
	romErr  error
	romLow  uint16
	romHigh uint16
)

// Program returns the assembled ROM. It is assembled once and shared, so
// callers must not modify it.
func Program() (*assembler.Program, error) {
	once.Do(func() {
		rom, romErr = assembler.Assemble(strings.Split(Source, "\n"))

		if romErr == nil {
			romLow, _ = rom.Symbols.Lookup("OS_START")
			romHigh, _ = rom.Symbols.Lookup("OS_END")
		}
	})

	return rom, romErr
}

// Install overlays the service routines onto img. Trap vectors the image
// already sets are kept; the routines themselves need their region of
// system memory to be empty.
func Install(img *encoding.Image) error {
	program, err := Program()

	if err != nil {
		return err
	}

	for addr := romLow; addr < romHigh; addr++ {
		if img[addr] != 0 && img[addr] != program.Image[addr] {
			return ErrOccupied
		}
	}

	for vector := encoding.TRAP_GETC; vector <= encoding.TRAP_HALT; vector++ {
		if img[vector] == 0 {
			img[vector] = program.Image[vector]
		}
	}

	copy(img[romLow:romHigh], program.Image[romLow:romHigh])

	return nil
}
