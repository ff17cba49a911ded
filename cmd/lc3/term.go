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
	"os"

	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

var termRestore *unix.Termios

// enterRawTerm switches stdin to character-at-a-time input without echo so
// keystrokes reach the machine as soon as they are typed.
func enterRawTerm() error {
	fd := os.Stdin.Fd()

	if !term.IsTerminal(int(fd)) {
		return nil
	}

	var termstate unix.Termios

	if err := termios.Tcgetattr(fd, &termstate); err != nil {
		return err
	}

	restore := termstate
	termRestore = &restore

	termstate.Lflag &^= unix.ICANON | unix.ECHO
	termstate.Cc[unix.VMIN] = 1
	termstate.Cc[unix.VTIME] = 0

	return termios.Tcsetattr(fd, termios.TCSANOW, &termstate)
}

func exitRawTerm() error {
	if termRestore == nil {
		return nil
	}

	err := termios.Tcsetattr(os.Stdin.Fd(), termios.TCSANOW, termRestore)
	termRestore = nil

	return err
}
