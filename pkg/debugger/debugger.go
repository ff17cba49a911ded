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


// Package debugger stops a running machine at breakpoints and watchpoints
// and prints its state.
package debugger

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/lassandro/lc3kit/pkg/disassembler"
	"github.com/lassandro/lc3kit/pkg/encoding"
	"github.com/lassandro/lc3kit/pkg/machine"
	"github.com/lassandro/lc3kit/pkg/translate"
)

func (dbg *Debugger) out() io.Writer {
	if dbg.Output == nil {
		return os.Stdout
	}

	return dbg.Output
}

// Interrupt requests a break before the next instruction. It is safe to call
// from any goroutine, such as a signal handler.
func (dbg *Debugger) Interrupt() {
	dbg.interrupt.Store(true)
}

func (dbg *Debugger) Step(mc *machine.Machine) {
	if dbg.HandleBreak == nil {
		return
	}

	if dbg.interrupt.Swap(false) {
		dbg.Break = true
	}

	if dbg.Break {
		dbg.HandleBreak(dbg, mc)
		return
	}

	for _, breakpoint := range dbg.Breakpoints {
		if mc.State.Program == breakpoint.Addr {
			dbg.HandleBreak(dbg, mc)
			break
		}
	}
}

func (dbg *Debugger) Read(addr uint16, mc *machine.Machine) {
	if dbg.HandleRead == nil {
		return
	}

	for _, watchpoint := range dbg.Watchpoints {
		if watchpoint.Type == WriteWatch {
			continue
		}

		if addr == watchpoint.Addr {
			dbg.HandleRead(addr, dbg, mc)
			break
		}
	}
}

func (dbg *Debugger) Write(addr uint16, mc *machine.Machine) {
	if dbg.HandleWrite == nil {
		return
	}

	for _, watchpoint := range dbg.Watchpoints {
		if watchpoint.Type == ReadWatch {
			continue
		}

		if addr == watchpoint.Addr {
			dbg.HandleWrite(addr, dbg, mc)
			break
		}
	}
}

// AddBreakpoint reports false if addr already has a breakpoint.
func (dbg *Debugger) AddBreakpoint(addr uint16) bool {
	for _, breakpoint := range dbg.Breakpoints {
		if breakpoint.Addr == addr {
			return false
		}
	}

	dbg.Breakpoints = append(dbg.Breakpoints, Breakpoint{addr})

	return true
}

func (dbg *Debugger) RemoveBreakpoint(index int) bool {
	if index < 0 || index >= len(dbg.Breakpoints) {
		return false
	}

	dbg.Breakpoints = append(dbg.Breakpoints[:index], dbg.Breakpoints[index+1:]...)

	return true
}

// AddWatchpoint reports false if an identical watchpoint exists.
func (dbg *Debugger) AddWatchpoint(addr uint16, wtype WatchpointType) bool {
	for _, watchpoint := range dbg.Watchpoints {
		if watchpoint.Addr == addr && watchpoint.Type == wtype {
			return false
		}
	}

	dbg.Watchpoints = append(dbg.Watchpoints, Watchpoint{addr, wtype})

	return true
}

func (dbg *Debugger) RemoveWatchpoint(index int) bool {
	if index < 0 || index >= len(dbg.Watchpoints) {
		return false
	}

	dbg.Watchpoints = append(dbg.Watchpoints[:index], dbg.Watchpoints[index+1:]...)

	return true
}

// LoadSource reads the assembly text used by PrintSource.
func (dbg *Debugger) LoadSource(r io.Reader) error {
	var lines []string

	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return err
	}

	dbg.Source = lines

	return nil
}

// Resolve turns a label or hex address into an address.
func (dbg *Debugger) Resolve(ident string) (uint16, bool) {
	if dbg.SymTable != nil {
		if addr, ok := dbg.SymTable.Lookup(ident); ok {
			return addr, true
		}
	}

	addr, err := encoding.DecodeHex(ident)

	return addr, err == nil
}

func (dbg *Debugger) PrintSource(addr uint16, count uint16) {
	out := dbg.out()

	if dbg.Source == nil {
		fmt.Fprintln(out, translate.From("No source file loaded"))
		return
	}

	if dbg.SymTable == nil {
		fmt.Fprintln(out, translate.From("No symbol table loaded"))
		return
	}

	start, exists := dbg.SymTable.Lines[addr]

	if !exists {
		fmt.Fprintln(out, translate.From("No instruction found at x%04X", addr))
		return
	}

	lineAddrs := make(map[int]uint16, len(dbg.SymTable.Lines))
	for lineAddr, line := range dbg.SymTable.Lines {
		lineAddrs[line] = lineAddr
	}

	for line := start; line < start+int(count) && line <= len(dbg.Source); line++ {
		if lineAddr, ok := lineAddrs[line]; ok {
			fmt.Fprintf(out, "\033[1m[x%04X]\033[0m ", lineAddr)
		} else {
			fmt.Fprint(out, "\033[1;30m~~~~~~~\033[0m ")
		}

		fmt.Fprintln(out, dbg.Source[line-1])
	}
}

func (dbg *Debugger) PrintMem(mc *machine.MachineState, addr, count uint16) {
	out := dbg.out()

	for i := uint16(0); i < count; i++ {
		current := addr + i

		if i == 0 {
			fmt.Fprintf(out, "\033[1m[x%04X]\033[0m ", current)
		} else if i%4 == 0 {
			fmt.Fprintln(out)
			fmt.Fprintf(out, "\033[1m[x%04X]\033[0m ", current)
		}

		result := mc.Memory[current]

		if result == 0 {
			fmt.Fprintf(out, "\033[1;30mx%04X\033[0m ", result)
		} else {
			fmt.Fprintf(out, "x%04X ", result)
		}
	}

	fmt.Fprintln(out)
}

// PrintDisassembly lists count decoded words from addr, marking the program
// counter and any labels.
func (dbg *Debugger) PrintDisassembly(mc *machine.MachineState, addr, count uint16) {
	out := dbg.out()

	end := int(addr) + int(count)
	if end > len(mc.Memory) {
		end = len(mc.Memory)
	}

	for _, line := range disassembler.Listing(mc.Memory[addr:end], addr) {
		marker := "  "
		if line.Addr == mc.Program {
			marker = "=>"
		}

		if dbg.SymTable != nil {
			if label, ok := dbg.SymTable.LabelAt(line.Addr); ok {
				fmt.Fprintf(out, "%s:\n", label)
			}
		}

		fmt.Fprintf(out, "%s %s\n", marker, line)
	}
}

func (dbg *Debugger) PrintRegisters(mc *machine.MachineState) {
	out := dbg.out()

	for i, register := range mc.Registers {
		fmt.Fprintf(out, "\033[1mR%d:\033[0m x%04X\t", i, register)

		if i == (len(mc.Registers)-1)/2 {
			fmt.Fprintln(out)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintf(
		out,
		"\033[1mPC:\033[0m x%04X\t\033[1mPS:\033[0m x%04X\n",
		mc.Program,
		mc.Procstat,
	)
}

func (dbg *Debugger) PrintLabels() {
	out := dbg.out()

	if dbg.SymTable == nil {
		fmt.Fprintln(out, translate.From("No symbol table loaded"))
		return
	}

	labels := make([]string, 0, len(dbg.SymTable.Labels))
	for label := range dbg.SymTable.Labels {
		labels = append(labels, label)
	}

	sort.Slice(labels, func(i, j int) bool {
		left := dbg.SymTable.Labels[labels[i]]
		right := dbg.SymTable.Labels[labels[j]]

		if left == right {
			return labels[i] < labels[j]
		}

		return left < right
	})

	for _, label := range labels {
		fmt.Fprintf(
			out, "\033[1m[x%04X]\033[0m %s\n", dbg.SymTable.Labels[label], label,
		)
	}
}
