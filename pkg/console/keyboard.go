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


// Package console connects host terminal input to the machine keyboard.
package console

import (
	"bufio"
	"context"
	"io"
)

const DefaultBufferSize = 256

// Keyboard is a bounded queue of keystrokes. One goroutine fills it through
// Listen or Push while the machine drains it with Poll.
type Keyboard struct {
	keys chan byte
}

func NewKeyboard(size int) *Keyboard {
	if size <= 0 {
		size = DefaultBufferSize
	}

	return &Keyboard{keys: make(chan byte, size)}
}

// Push queues keys, blocking while the buffer is full.
func (kb *Keyboard) Push(keys ...byte) {
	for _, key := range keys {
		kb.keys <- key
	}
}

// PushContext queues keys like Push but gives up once ctx is done.
func (kb *Keyboard) PushContext(ctx context.Context, keys ...byte) error {
	for _, key := range keys {
		select {
		case kb.keys <- key:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// Poll takes the oldest queued key without blocking.
func (kb *Keyboard) Poll() (byte, bool) {
	select {
	case key := <-kb.keys:
		return key, true
	default:
		return 0, false
	}
}

// Buffered returns the number of keys waiting to be polled.
func (kb *Keyboard) Buffered() int {
	return len(kb.keys)
}

// Listen feeds tokens from r into the queue until EOF, a read error or ctx is
// done. A nil split reads whole lines and queues them without the line
// terminator.
func (kb *Keyboard) Listen(ctx context.Context, r io.Reader, split bufio.SplitFunc) error {
	scanner := bufio.NewScanner(r)

	if split != nil {
		scanner.Split(split)
	}

	for scanner.Scan() {
		if err := kb.PushContext(ctx, scanner.Bytes()...); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return scanner.Err()
}
