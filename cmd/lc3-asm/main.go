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
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"github.com/lassandro/lc3kit/pkg/assembler"
	"github.com/lassandro/lc3kit/pkg/encoding"
)

var helpvar bool
var debugvar bool
var objvar bool
var outvar string

const usage = "lc3-asm [-debug] [-obj] [-out outfile] filename"

func init() {
	log.SetFlags(0)
	log.SetOutput(os.Stderr)
}

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.BoolVar(
		&debugvar, "debug", false,
		"Specifies whether to generate debugging information as a symbol "+
			"table. The table will use the output filename with extension "+
			"'.lc3db'",
	)
	flag.BoolVar(
		&objvar, "obj", false,
		"Writes an object file (origin word followed by the program) "+
			"instead of a full memory image",
	)
	flag.StringVar(
		&outvar, "out", "",
		"Specifies a precise name for the output file, "+
			"overriding the default means of determining it",
	)
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string

	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	return lines, scanner.Err()
}

// underline points at the offending token, keeping tabs so the marker lines
// up with the echoed source line.
func underline(line string, cursor assembler.Cursor) string {
	var builder strings.Builder

	for i := 0; i < cursor.Column-1 && i < len(line); i++ {
		if line[i] == '\t' {
			builder.WriteByte('\t')
		} else {
			builder.WriteByte(' ')
		}
	}

	builder.WriteByte('^')

	if cursor.Size > 1 {
		builder.WriteString(strings.Repeat("~", cursor.Size-1))
	}

	return builder.String()
}

func reportErrors(err error, lines []string) {
	errs := []error{err}

	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	}

	for _, err := range errs {
		var tokenErr assembler.TokenError

		if !errors.As(err, &tokenErr) {
			log.Println(err)
			continue
		}

		cursor := tokenErr.GetPosition()

		if cursor.Line < 1 || cursor.Line > len(lines) {
			log.Println(err)
			continue
		}

		line := lines[cursor.Line-1]

		log.Printf(
			"%s\n%s\n\033[31m%s\033[0m",
			err,
			line,
			underline(line, cursor),
		)
	}
}

// objectWords returns the words from the origin up to the last non-zero
// word, which is what an object file carries.
func objectWords(program *assembler.Program) []uint16 {
	img := program.Image
	end := len(img)

	for end > int(program.Origin) && img[end-1] == 0 {
		end--
	}

	for addr := 0; addr < int(program.Origin); addr++ {
		if img[addr] != 0 {
			log.Printf(
				"warning: x%04X lies below the origin x%04X and is not "+
					"written to the object file",
				addr, program.Origin,
			)
			break
		}
	}

	return img[program.Origin:end]
}

func replaceExt(filename, ext string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename)) + ext
}

func lc3asm() int {
	if helpvar {
		fmt.Println(usage)
		flag.PrintDefaults()
		return 0
	}

	args := flag.Args()

	var input io.Reader
	var infile string

	ext := ".bin"
	if objvar {
		ext = ".obj"
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) && len(args) == 0 {
		input = os.Stdin
		log.SetPrefix("\033[1m<stdin>:\033[0m")

		if outvar == "" {
			outvar = "out" + ext
		}
	} else {
		if len(args) != 1 {
			log.Println(usage)
			return 1
		}

		file, err := os.Open(args[0])

		if err != nil {
			log.Println(err)
			return 1
		}

		defer file.Close()

		filename := filepath.Base(file.Name())

		if stat, err := file.Stat(); err != nil {
			log.Println(err)
			return 1
		} else if stat.IsDir() {
			log.Printf("%s is not a valid LC3 assembly file", filename)
			return 1
		}

		input = file
		infile = file.Name()
		log.SetPrefix(fmt.Sprintf("\033[1m%s:\033[0m", filename))

		if outvar == "" {
			outvar = replaceExt(filename, ext)
		}
	}

	lines, err := readLines(input)

	if err != nil {
		log.Println(err)
		return 1
	}

	program, err := assembler.Assemble(lines)

	if err != nil {
		reportErrors(err, lines)
		return 1
	}

	{
		buffer := new(bytes.Buffer)

		if objvar {
			err = encoding.WriteObject(buffer, program.Origin, objectWords(program))
		} else {
			_, err = program.Image.WriteTo(buffer)
		}

		if err != nil {
			log.Println("Error writing output file")
			log.Println(err)
			return 1
		}

		if err := os.WriteFile(outvar, buffer.Bytes(), 0666); err != nil {
			log.Println("Error writing output file")
			log.Println(err)
			return 1
		}
	}

	if debugvar {
		if infile != "" {
			if program.Symbols.Source, err = filepath.Abs(infile); err != nil {
				log.Println(err)
				program.Symbols.Source = ""
			}
		}

		filename := replaceExt(outvar, ".lc3db")

		file, err := os.Create(filename)

		if err != nil {
			log.Println("Error creating symbol table")
			log.Println(err)
			return 1
		}

		defer file.Close()

		if err := assembler.WriteSymbols(file, program.Symbols); err != nil {
			log.Println("Error writing symbol table")
			log.Println(err)
			return 1
		}
	}

	return 0
}

func main() {
	flag.Parse()
	os.Exit(lc3asm())
}
