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


package console

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// How long a single poll(2) waits before rechecking the context
const PollInterval = 100 * time.Millisecond

type pollReader struct {
	ctx  context.Context
	file *os.File
	fds  []unix.PollFd
}

// NewPollReader wraps f so that a blocked Read returns ctx.Err() once ctx is
// done instead of waiting for input that may never come.
func NewPollReader(ctx context.Context, f *os.File) io.Reader {
	return &pollReader{
		ctx:  ctx,
		file: f,
		fds:  []unix.PollFd{{Fd: int32(f.Fd()), Events: unix.POLLIN}},
	}
}

func (pr *pollReader) Read(p []byte) (int, error) {
	for {
		if err := pr.ctx.Err(); err != nil {
			return 0, err
		}

		pr.fds[0].Revents = 0

		n, err := unix.Poll(pr.fds, int(PollInterval/time.Millisecond))

		if errors.Is(err, unix.EINTR) {
			continue
		} else if err != nil {
			return 0, err
		}

		if n > 0 {
			return pr.file.Read(p)
		}
	}
}
