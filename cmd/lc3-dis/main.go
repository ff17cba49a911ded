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
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/lassandro/lc3kit/pkg/assembler"
	"github.com/lassandro/lc3kit/pkg/disassembler"
	"github.com/lassandro/lc3kit/pkg/encoding"
)

var helpvar bool
var allvar bool
var symbolsvar string

const usage = "lc3-dis [-all] [-symbols file.lc3db] filename"

func init() {
	exe, _ := os.Executable()
	log.SetFlags(0)
	log.SetPrefix(fmt.Sprintf("%s: ", filepath.Base(exe)))
	log.SetOutput(os.Stderr)
}

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.BoolVar(
		&allvar, "all", false,
		"Lists zero words too instead of skipping them as padding",
	)
	flag.StringVar(
		&symbolsvar, "symbols", "",
		"Symbol table used to label the listing",
	)
}

// readListing returns the lines of an object file from its origin, or of
// a full memory image from x0000.
func readListing(filename string) ([]disassembler.Line, error) {
	file, err := os.Open(filename)

	if err != nil {
		return nil, err
	}

	defer file.Close()

	stat, err := file.Stat()

	if err != nil {
		return nil, err
	}

	img := new(encoding.Image)

	if strings.EqualFold(filepath.Ext(filename), ".obj") {
		origin, err := encoding.ReadObject(bufio.NewReader(file), img)

		if err != nil {
			return nil, err
		}

		end := int(origin) + int(stat.Size()-2)/2

		return disassembler.Listing(img[origin:end], origin), nil
	}

	if _, err := img.ReadFrom(bufio.NewReader(file)); err != nil {
		return nil, err
	}

	return disassembler.Listing(img[:], 0), nil
}

func lc3dis() int {
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

	lines, err := readListing(args[0])

	if err != nil {
		log.Println(err)
		return 1
	}

	var symbols *assembler.SymTable

	if symbolsvar != "" {
		file, err := os.Open(symbolsvar)

		if err != nil {
			log.Println(err)
			return 1
		}

		symbols, err = assembler.ReadSymbols(file)
		file.Close()

		if err != nil {
			log.Println("Error loading symbol file")
			log.Println(err)
			return 1
		}
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	for _, line := range lines {
		if line.Word == 0 && !allvar {
			continue
		}

		if symbols != nil {
			if label, ok := symbols.LabelAt(line.Addr); ok {
				fmt.Fprintf(out, "%s:\n", label)
			}
		}

		fmt.Fprintln(out, line)
	}

	return 0
}

func main() {
	flag.Parse()
	os.Exit(lc3dis())
}
