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
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/lassandro/lc3kit/pkg/console"
	"github.com/lassandro/lc3kit/pkg/encoding"
	"github.com/lassandro/lc3kit/pkg/machine"
	"github.com/lassandro/lc3kit/pkg/sysrom"
)

var helpvar bool
var debugvar bool
var tracevar bool
var rawvar bool
var osvar bool
var entryvar string

const usage = "lc3 [-debug|-raw] [-trace] [-os=false] [-entry x####] filename"

const defaultEntry = 0x3000

func init() {
	exe, _ := os.Executable()
	log.SetFlags(0)
	log.SetPrefix(fmt.Sprintf("%s: ", filepath.Base(exe)))
	log.SetOutput(os.Stderr)
}

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.BoolVar(&debugvar, "debug", false, "Runs the machine in a debug CLI")
	flag.BoolVar(
		&tracevar, "trace", false,
		"Logs every executed instruction to stderr",
	)
	flag.BoolVar(
		&rawvar, "raw", false,
		"Delivers keystrokes to the machine as they are typed instead of "+
			"line by line",
	)
	flag.BoolVar(
		&osvar, "os", true,
		"Installs the built-in trap service routines before running",
	)
	flag.StringVar(
		&entryvar, "entry", "",
		"Address execution starts at. Defaults to the origin of an object "+
			"file, otherwise x3000",
	)
}

// loadImage reads an object file (.obj) or a full memory image. The second
// result is the object origin and is only meaningful when ok is true.
func loadImage(filename string) (img *encoding.Image, origin uint16, ok bool, err error) {
	file, err := os.Open(filename)

	if err != nil {
		return nil, 0, false, err
	}

	defer file.Close()

	img = new(encoding.Image)

	if strings.EqualFold(filepath.Ext(filename), ".obj") {
		origin, err = encoding.ReadObject(bufio.NewReader(file), img)
		return img, origin, err == nil, err
	}

	_, err = img.ReadFrom(bufio.NewReader(file))

	return img, 0, false, err
}

func run(mc *machine.Machine, kb *console.Keyboard, entry uint16) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var split bufio.SplitFunc

	if rawvar {
		if err := enterRawTerm(); err != nil {
			return err
		}

		defer exitRawTerm()

		split = bufio.ScanRunes
	}

	return execute(ctx, mc, entry, func(ctx context.Context) error {
		return kb.Listen(ctx, console.NewPollReader(ctx, os.Stdin), split)
	})
}

// execute runs the machine from entry alongside listen. The listener is
// cancelled once the machine stops, and a listener failure stops the
// machine.
func execute(ctx context.Context, mc *machine.Machine, entry uint16, listen func(context.Context) error) error {
	listenCtx, cancelListen := context.WithCancel(ctx)
	defer cancelListen()

	group, groupCtx := errgroup.WithContext(listenCtx)

	group.Go(func() error {
		defer cancelListen()
		return mc.Run(groupCtx, entry)
	})

	group.Go(func() error {
		err := listen(groupCtx)

		if errors.Is(err, context.Canceled) {
			return nil
		}

		return err
	})

	return group.Wait()
}

func lc3() int {
	if helpvar {
		fmt.Println(usage)
		flag.PrintDefaults()
		return 0
	}

	args := flag.Args()

	if len(args) != 1 {
		log.Println(usage)
		return 1
	}

	if debugvar && rawvar {
		log.Println("-debug and -raw cannot be combined")
		return 1
	}

	img, origin, isObject, err := loadImage(args[0])

	if err != nil {
		log.Println(err)
		return 1
	}

	var entry uint16 = defaultEntry

	if isObject {
		entry = origin
	}

	if entryvar != "" {
		if entry, err = encoding.DecodeHex(entryvar); err != nil {
			log.Println(err)
			return 1
		}
	}

	if osvar {
		if err := sysrom.Install(img); err != nil {
			log.Println(err)
			return 1
		}
	}

	kb := console.NewKeyboard(console.DefaultBufferSize)
	display := bufio.NewWriter(os.Stdout)
	defer display.Flush()

	var mc machine.Machine
	mc.Devices = &machine.DeviceHandler{Keyboard: kb, Display: display}
	mc.Load(img)

	if tracevar {
		mc.Trace = log.New(os.Stderr, "", 0)
	}

	if debugvar {
		err = debug(&mc, kb, img, entry, args[0])
	} else {
		err = run(&mc, kb, entry)
	}

	if errors.Is(err, context.Canceled) {
		fmt.Println()
		log.Println("Interrupted")
		return 130
	}

	if err != nil {
		display.Flush()
		fmt.Println()
		log.Println(err)
		return 1
	}

	return 0
}

func main() {
	flag.Parse()
	os.Exit(lc3())
}
