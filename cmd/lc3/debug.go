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


package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/lassandro/lc3kit/pkg/assembler"
	"github.com/lassandro/lc3kit/pkg/console"
	"github.com/lassandro/lc3kit/pkg/debugger"
	"github.com/lassandro/lc3kit/pkg/encoding"
	"github.com/lassandro/lc3kit/pkg/machine"
)

// session owns the debug prompt. Stdin carries both debugger commands and
// keyboard input, so a single reader routes each line to whichever side is
// currently waiting for it.
type session struct {
	mc    *machine.Machine
	dbg   *debugger.Debugger
	kb    *console.Keyboard
	image *encoding.Image
	entry uint16

	commands  chan string
	prompting atomic.Bool
	lastcmd   []string
}

func loadSymbols(dbg *debugger.Debugger, filename string) {
	symfile := strings.TrimSuffix(filename, filepath.Ext(filename)) + ".lc3db"

	file, err := os.Open(symfile)

	if err != nil {
		log.Println("Error loading symbol file")
		log.Println(err)
		return
	}

	defer file.Close()

	if dbg.SymTable, err = assembler.ReadSymbols(file); err != nil {
		log.Println("Error loading symbol file")
		log.Println(err)
		return
	}

	if dbg.SymTable.Source == "" {
		return
	}

	source, err := os.Open(dbg.SymTable.Source)

	if err != nil {
		log.Println("Error loading source file")
		log.Println(err)
		return
	}

	defer source.Close()

	if err := dbg.LoadSource(source); err != nil {
		log.Println("Error loading source file")
		log.Println(err)
	}
}

func debug(mc *machine.Machine, kb *console.Keyboard, img *encoding.Image, entry uint16, filename string) error {
	s := &session{
		mc:       mc,
		kb:       kb,
		image:    img,
		entry:    entry,
		commands: make(chan string),
	}

	s.dbg = &debugger.Debugger{
		HandleBreak: s.handleBreak,
		HandleRead:  s.handleRead,
		HandleWrite: s.handleWrite,
	}

	loadSymbols(s.dbg, filename)
	mc.Debugger = s.dbg

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt)
	defer signal.Stop(signals)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		for {
			select {
			case <-signals:
				fmt.Println()
				s.dbg.Interrupt()
			case <-groupCtx.Done():
				return nil
			}
		}
	})

	group.Go(func() error {
		err := s.route(groupCtx)

		if errors.Is(err, context.Canceled) {
			return nil
		}

		return err
	})

	group.Go(func() error {
		defer cancel()
		return s.run(groupCtx)
	})

	return group.Wait()
}

// route reads stdin line by line until EOF, handing lines to the prompt
// while it is active and to the keyboard otherwise.
func (s *session) route(ctx context.Context) error {
	defer close(s.commands)

	scanner := bufio.NewScanner(console.NewPollReader(ctx, os.Stdin))

	for scanner.Scan() {
		line := scanner.Text()

		if s.prompting.Load() {
			select {
			case s.commands <- line:
			case <-ctx.Done():
				return ctx.Err()
			}
		} else if err := s.kb.PushContext(ctx, []byte(line)...); err != nil {
			return err
		}
	}

	return scanner.Err()
}

func (s *session) run(ctx context.Context) error {
	s.mc.Reset(s.entry)
	s.repl()

	for !s.mc.Halted() {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.mc.Step(); err != nil {
			return err
		}
	}

	return nil
}

func (s *session) quit() {
	s.mc.State.Memory[machine.DEV_MCR] &^= machine.MCR_RUNNING
}

func parseCount(arg string) (uint16, error) {
	value, err := strconv.ParseUint(arg, 10, 16)
	return uint16(value), err
}

func (s *session) debugBreak(args []string) {
	dbg := s.dbg

	if len(args) == 0 {
		args = append(args, "l")
	}

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "a", "add":
		const usage = "break add [x####|label]"

		if len(args) != 1 {
			log.Println(usage)
			return
		}

		addr, ok := dbg.Resolve(args[0])

		if !ok {
			log.Printf("Unable to find '%s'\n", args[0])
			return
		}

		if dbg.AddBreakpoint(addr) {
			fmt.Printf("Breakpoint added [x%04X]\n", addr)
		}

	case "l", "ls", "list":
		for i, breakpoint := range dbg.Breakpoints {
			fmt.Printf("#%d: x%04X\n", i, breakpoint.Addr)
		}

	case "r", "rm", "remove":
		const usage = "break remove [#]"

		if len(args) != 1 {
			log.Println(usage)
			return
		}

		i, err := strconv.Atoi(args[0])

		if err != nil {
			log.Println(err)
			return
		}

		if !dbg.RemoveBreakpoint(i) {
			log.Println("Invalid breakpoint number")
			return
		}

		fmt.Printf("Breakpoint removed [%d]\n", i)

	case "clear":
		dbg.Breakpoints = nil
		fmt.Println("Breakpoints reset")

	default:
		log.Printf("break: '%s' is not a valid command\n", cmd)
	}
}

func (s *session) debugWatch(args []string) {
	dbg := s.dbg

	if len(args) == 0 {
		args = append(args, "l")
	}

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "a", "add":
		const usage = "watch add [x####|label] [read|write|readwrite]"

		if len(args) != 2 {
			log.Println(usage)
			return
		}

		addr, ok := dbg.Resolve(args[0])

		if !ok {
			log.Printf("Unable to find '%s'\n", args[0])
			return
		}

		var wtype debugger.WatchpointType

		switch args[1] {
		case "r", "read":
			wtype = debugger.ReadWatch
		case "w", "write":
			wtype = debugger.WriteWatch
		case "rw", "readwrite":
			wtype = debugger.ReadWriteWatch
		default:
			log.Println(usage)
			return
		}

		if dbg.AddWatchpoint(addr, wtype) {
			fmt.Printf("Watchpoint added [x%04X] (%s)\n", addr, wtype)
		}

	case "l", "ls", "list":
		for i, watchpoint := range dbg.Watchpoints {
			fmt.Printf("#%d: x%04X %s\n", i, watchpoint.Addr, watchpoint.Type)
		}

	case "r", "rm", "remove":
		const usage = "watch remove [#]"

		if len(args) != 1 {
			log.Println(usage)
			return
		}

		i, err := strconv.Atoi(args[0])

		if err != nil {
			log.Println(err)
			return
		}

		if !dbg.RemoveWatchpoint(i) {
			log.Println("Invalid watchpoint number")
			return
		}

		fmt.Printf("Watchpoint removed [%d]\n", i)

	case "clear":
		dbg.Watchpoints = nil
		fmt.Println("Watchpoints reset")

	default:
		log.Printf("watch: '%s' is not a valid command\n", cmd)
	}
}

func (s *session) debugReg(args []string) {
	const usage = "register [R#|PC|PS] [x####]"

	state := &s.mc.State

	if len(args) == 0 {
		s.dbg.PrintRegisters(state)
		return
	}

	if len(args) != 2 {
		log.Println(usage)
		return
	}

	value, err := encoding.DecodeHex(args[1])

	if err != nil {
		log.Println(err)
		return
	}

	name := strings.ToUpper(args[0])

	switch {
	case name == "PC":
		state.Program = value
	case name == "PS":
		state.Procstat = value
	case len(name) == 2 && name[0] == 'R' && name[1] >= '0' && name[1] <= '7':
		state.Registers[name[1]-'0'] = value
	default:
		log.Println("Invalid register")
		return
	}

	fmt.Printf("\033[1m%s:\033[0m x%04X\n", name, value)
}

// addrAndCount parses the "[x####|label|#] [#]" form shared by the listing
// commands. A lone decimal argument is a count from the program counter.
func (s *session) addrAndCount(args []string, count uint16) (uint16, uint16, bool) {
	addr := s.mc.State.Program

	if len(args) > 2 {
		return 0, 0, false
	}

	if len(args) > 0 {
		if resolved, ok := s.dbg.Resolve(args[0]); ok {
			addr = resolved
		} else if value, err := parseCount(args[0]); err == nil {
			count = value
		} else {
			log.Printf("Unable to find '%s'\n", args[0])
			return 0, 0, false
		}
	}

	if len(args) > 1 {
		value, err := parseCount(args[1])

		if err != nil {
			log.Println(err)
			return 0, 0, false
		}

		count = value
	}

	return addr, count, true
}

func (s *session) debugJump(args []string) {
	const usage = "jump [x####|label]"

	if len(args) != 1 {
		log.Println(usage)
		return
	}

	addr, ok := s.dbg.Resolve(args[0])

	if !ok {
		log.Printf("Unable to find '%s'\n", args[0])
		return
	}

	s.mc.State.Program = addr
	fmt.Printf("\033[1mPC:\033[0m x%04X\n", addr)
}

func (s *session) debugSet(args []string) {
	const usage = "set [x####|label] [x####]"

	if len(args) != 2 {
		log.Println(usage)
		return
	}

	addr, ok := s.dbg.Resolve(args[0])

	if !ok {
		log.Printf("Unable to find '%s'\n", args[0])
		return
	}

	value, err := encoding.DecodeHex(args[1])

	if err != nil {
		log.Println(err)
		return
	}

	s.mc.State.Memory[addr] = value
	s.dbg.PrintMem(&s.mc.State, addr, 1)
}

func (s *session) repl() {
	s.prompting.Store(true)
	defer s.prompting.Store(false)

	for {
		fmt.Print("\033[1;30m(dbg)\033[0m ")

		line, ok := <-s.commands

		if !ok {
			fmt.Println()
			s.quit()
			return
		}

		args := strings.Fields(line)

		if len(args) == 0 {
			if len(s.lastcmd) == 0 {
				continue
			}
			args = s.lastcmd
		} else {
			s.lastcmd = args
		}

		cmd := args[0]
		args = args[1:]

		switch cmd {
		case "b", "bp", "break", "breakpoint":
			s.debugBreak(args)

		case "w", "wp", "watch", "watchpoint":
			s.debugWatch(args)

		case "r", "reg", "register", "registers":
			s.debugReg(args)

		case "s", "src", "source":
			if addr, count, ok := s.addrAndCount(args, 3); ok {
				s.dbg.PrintSource(addr, count)
			} else {
				log.Println("source [x####|label] [#]")
			}

		case "d", "dis", "disassemble":
			if addr, count, ok := s.addrAndCount(args, 5); ok {
				s.dbg.PrintDisassembly(&s.mc.State, addr, count)
			} else {
				log.Println("disassemble [x####|label] [#]")
			}

		case "m", "mem", "memory":
			if addr, count, ok := s.addrAndCount(args, 1); ok {
				s.dbg.PrintMem(&s.mc.State, addr, count)
			} else {
				log.Println("memory [x####|label] [#]")
			}

		case "l", "label", "labels":
			s.dbg.PrintLabels()

		case "j", "jmp", "jump":
			s.debugJump(args)

		case "set":
			s.debugSet(args)

		case "c", "continue":
			s.dbg.Break = false
			return

		case "n", "next":
			s.dbg.Break = true
			return

		case "q", "quit", "exit":
			s.quit()
			return

		case "clear":
			fmt.Print("\033[H\033[2J")

		case "reset":
			s.mc.Load(s.image)
			s.mc.Reset(s.entry)
			fmt.Printf("\033[1mPC:\033[0m x%04X\n", s.entry)

		default:
			log.Printf("error: '%s' is not a valid command\n", cmd)
		}
	}
}

func (s *session) stopped() {
	fmt.Println()
	fmt.Println("Program stopped")
}

func (s *session) handleBreak(dbg *debugger.Debugger, mc *machine.Machine) {
	if !dbg.Break {
		s.stopped()
	}

	if dbg.Source != nil && dbg.SymTable != nil {
		if _, ok := dbg.SymTable.Lines[mc.State.Program]; ok {
			dbg.PrintSource(mc.State.Program, 1)
			s.repl()
			return
		}
	}

	dbg.PrintDisassembly(&mc.State, mc.State.Program, 1)
	s.repl()
}

func (s *session) handleRead(addr uint16, dbg *debugger.Debugger, mc *machine.Machine) {
	s.stopped()
	dbg.PrintMem(&mc.State, addr, 1)
	s.repl()
}

func (s *session) handleWrite(addr uint16, dbg *debugger.Debugger, mc *machine.Machine) {
	s.stopped()
	dbg.PrintMem(&mc.State, addr, 1)
	s.repl()
}
