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


package assembler_test

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lassandro/lc3kit/pkg/assembler"
)

type testCase struct {
	Name   string
	Input  string
	Output map[uint16]uint16
	Labels map[string]uint16
}

type failCase struct {
	Name  string
	Input string
	Error error
}

// program wraps statements in a user space .ORIG/.END block.
func program(lines ...string) string {
	return ".ORIG x3000\n" + strings.Join(lines, "\n") + "\n.END"
}

func unwrapAll(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}

	return []error{err}
}

func testAssemblerSuccess(t *testing.T, test *testCase) {
	result, err := assembler.Assemble(strings.Split(test.Input, "\n"))
	require.NoError(t, err)
	require.NotNil(t, result)

	for addr := 0; addr < len(result.Image); addr++ {
		have := result.Image[addr]
		want, exists := test.Output[uint16(addr)]

		if exists {
			require.Equalf(
				t, want, have,
				"Instruction encoding mismatch at %#04x\nwant:%#04x\nhave:%#04x",
				addr, want, have,
			)
		} else {
			require.Zerof(
				t, have, "Unexpected instruction %#04x at %#04x", have, addr,
			)
		}
	}

	if test.Labels != nil {
		assert.Equal(t, test.Labels, result.Symbols.Labels)
	}
}

func testAssemblerFail(t *testing.T, test *failCase) {
	if test.Error == nil {
		panic("Fail case missing error value")
	}

	result, err := assembler.Assemble(strings.Split(test.Input, "\n"))
	require.Error(t, err)
	assert.Nil(t, result)

	errs := unwrapAll(err)

	errTypes := make([]reflect.Type, 0, len(errs))
	for _, err := range errs {
		errTypes = append(errTypes, reflect.TypeOf(err))
	}

	require.Lenf(
		t, errs, 1, "want:%T (test.Error)\nhave:%v", test.Error, errTypes,
	)
	require.Equal(t, reflect.TypeOf(test.Error), errTypes[0], errs[0].Error())

	_, ok := errs[0].(assembler.TokenError)
	assert.True(t, ok, "error carries no position")
}

func testSuccess(t *testing.T, tests []testCase) {
	t.Run("Success", func(t *testing.T) {
		for _, test := range tests {
			t.Run(test.Name, func(t *testing.T) {
				testAssemblerSuccess(t, &test)
			})
		}
	})
}

func testFail(t *testing.T, tests []failCase) {
	t.Run("Fail", func(t *testing.T) {
		for _, test := range tests {
			t.Run(test.Name, func(t *testing.T) {
				testAssemblerFail(t, &test)
			})
		}
	})
}

// ADD  |0001    |DR   |SR1  |0|00 |SR2   | Register  addition
// ADD  |0001    |DR   |SR1  |1|imm5      | Immediate addition
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func TestAdd(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name:   "ADD",
			Input:  program(`ADD R0, R1, R2`),
			Output: map[uint16]uint16{0x3000: 0b0001_000_001_0_00_010},
		},
		{
			Name:   "ADD imm5",
			Input:  program(`ADD R1, R2, #15`),
			Output: map[uint16]uint16{0x3000: 0x12AF},
		},
		{
			Name:   "ADD imm5 Min",
			Input:  program(`ADD R0, R1, #-16`),
			Output: map[uint16]uint16{0x3000: 0b0001_000_001_1_10000},
		},
		{
			Name:   "ADD imm5 Hex",
			Input:  program(`ADD R0, R1, x10`),
			Output: map[uint16]uint16{0x3000: 0b0001_000_001_1_10000},
		},
		{
			Name:   "ADD imm5 Bare Decimal",
			Input:  program(`add r7, r7, -1`),
			Output: map[uint16]uint16{0x3000: 0b0001_111_111_1_11111},
		},
	})

	testFail(t, []failCase{
		{
			Name:  "ADD Oversized imm5",
			Input: program(`ADD R1, R2, #31`),
			Error: &assembler.RangeError{},
		},
		{
			Name:  "ADD Undersized imm5",
			Input: program(`ADD R1, R2, #-17`),
			Error: &assembler.RangeError{},
		},
		{
			Name:  "ADD Oversized Hex imm5",
			Input: program(`ADD R1, R2, x20`),
			Error: &assembler.RangeError{},
		},
		{
			Name:  "ADD Bad SR2",
			Input: program(`ADD R0, R1, R9`),
			Error: &assembler.SyntaxError{},
		},
		{
			Name:  "ADD Label SR1",
			Input: program(`ADD R0, LABEL, R2`),
			Error: &assembler.SyntaxError{},
		},
		{
			Name:  "ADD String imm5",
			Input: program(`ADD R0, R1, "foo"`),
			Error: &assembler.SyntaxError{},
		},
		{
			Name:  "ADD Literal DR",
			Input: program(`ADD #1, R1, R2`),
			Error: &assembler.SyntaxError{},
		},
		{
			Name:  "ADD Bad Argc",
			Input: program(`ADD R0, R1`),
			Error: &assembler.SyntaxError{},
		},
		{
			Name:  "ADD Bad Argc",
			Input: program(`ADD R0, R1, R2, R3`),
			Error: &assembler.SyntaxError{},
		},
	})
}

// AND  |0101    |DR   |SR1  |0|00 |SR2   | Register  bitwise
// AND  |0101    |DR   |SR1  |1|imm5      | Immediate bitwise
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func TestAnd(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name:   "AND",
			Input:  program(`AND R3, R4, R5`),
			Output: map[uint16]uint16{0x3000: 0b0101_011_100_0_00_101},
		},
		{
			Name:   "AND imm5",
			Input:  program(`AND R0, R0, #0`),
			Output: map[uint16]uint16{0x3000: 0b0101_000_000_1_00000},
		},
		{
			Name:   "AND imm5 Hex Pattern",
			Input:  program(`AND R0, R0, x1F`),
			Output: map[uint16]uint16{0x3000: 0b0101_000_000_1_11111},
		},
	})

	testFail(t, []failCase{
		{
			Name:  "AND Oversized imm5",
			Input: program(`AND R0, R0, #16`),
			Error: &assembler.RangeError{},
		},
		{
			Name:  "AND Label SR2",
			Input: program(`AND R0, R1, LABEL`),
			Error: &assembler.SyntaxError{},
		},
	})
}

// BR   |0000    |N|Z|P|PCoffset9         | Conditional branch
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func TestBranch(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name:   "BR",
			Input:  program(`BR LABEL`, `LABEL ADD R0, R0, R0`),
			Output: map[uint16]uint16{0x3000: 0b0000_111_000000000, 0x3001: 0x1000},
		},
		{
			Name:   "BRn",
			Input:  program(`BRn LABEL`, `LABEL ADD R0, R0, R0`),
			Output: map[uint16]uint16{0x3000: 0b0000_100_000000000, 0x3001: 0x1000},
		},
		{
			Name:   "BRz",
			Input:  program(`BRz LABEL`, `LABEL ADD R0, R0, R0`),
			Output: map[uint16]uint16{0x3000: 0b0000_010_000000000, 0x3001: 0x1000},
		},
		{
			Name:   "BRp",
			Input:  program(`BRp LABEL`, `LABEL ADD R0, R0, R0`),
			Output: map[uint16]uint16{0x3000: 0b0000_001_000000000, 0x3001: 0x1000},
		},
		{
			Name:   "BRnz",
			Input:  program(`BRnz LABEL`, `LABEL ADD R0, R0, R0`),
			Output: map[uint16]uint16{0x3000: 0b0000_110_000000000, 0x3001: 0x1000},
		},
		{
			Name:   "BRzp",
			Input:  program(`BRzp LABEL`, `LABEL ADD R0, R0, R0`),
			Output: map[uint16]uint16{0x3000: 0b0000_011_000000000, 0x3001: 0x1000},
		},
		{
			Name:   "BRnp",
			Input:  program(`BRnp LABEL`, `LABEL ADD R0, R0, R0`),
			Output: map[uint16]uint16{0x3000: 0b0000_101_000000000, 0x3001: 0x1000},
		},
		{
			Name:   "BRnzp",
			Input:  program(`BRnzp LABEL`, `LABEL ADD R0, R0, R0`),
			Output: map[uint16]uint16{0x3000: 0b0000_111_000000000, 0x3001: 0x1000},
		},
		{
			Name:  "BRp Self Loop",
			Input: ".ORIG x3000\nLOOP ADD R0,R0,#1\nBRp LOOP\n.END",
			Output: map[uint16]uint16{
				0x3000: 0x1021,
				0x3001: 0b0000_001_111111110,
			},
			Labels: map[string]uint16{"LOOP": 0x3000},
		},
		{
			Name:   "BR Literal Offset",
			Input:  program(`BRz #-256`, `BRn #255`),
			Output: map[uint16]uint16{0x3000: 0x0500, 0x3001: 0x08FF},
		},
	})

	testFail(t, []failCase{
		{
			Name:  "BR Unknown Label",
			Input: program(`BRz NOWHERE`),
			Error: &assembler.UndefinedSymbolError{},
		},
		{
			Name:  "BR Oversized Literal",
			Input: program(`BRz #256`),
			Error: &assembler.RangeError{},
		},
		{
			Name:  "BR Distant Label",
			Input: program(`BRz FAR`, `.BLKW 256`, `FAR ADD R0, R0, R0`),
			Error: &assembler.RangeError{},
		},
		{
			Name:  "BR Register",
			Input: program(`BRz R1`),
			Error: &assembler.SyntaxError{},
		},
		{
			Name:  "BR Bad Argc",
			Input: program(`BRz`),
			Error: &assembler.SyntaxError{},
		},
	})
}

func TestLabelDirection(t *testing.T) {
	forward, err := assembler.Assemble([]string{
		".ORIG x3000",
		"LD R0, DATA",
		"DATA .FILL #7",
		".END",
	})
	require.NoError(t, err)

	backward, err := assembler.Assemble([]string{
		".ORIG x3000",
		"DATA .FILL #7",
		"LD R0, DATA",
		".END",
	})
	require.NoError(t, err)

	// Both reference a label one word away in opposite directions.
	assert.Equal(t, uint16(0b0010_000_000000000), forward.Image[0x3000])
	assert.Equal(t, uint16(0b0010_000_111111110), backward.Image[0x3001])

	near, err := assembler.Assemble([]string{
		".ORIG x3000",
		"BRnzp TARGET",
		"ADD R0, R0, #1",
		"TARGET BRnzp TARGET",
		".END",
	})
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0E01), near.Image[0x3000])
	assert.Equal(t, uint16(0x0FFF), near.Image[0x3002])
}

// JMP  |1100    |000  |BaseR|000000      | Jump
// RET  |1100    |000  |111  |000000      | Return
// JSR  |0100    |1|PCoffset11            | Jump to subroutine
// JSRR |0100    |0|00 |BaseR|000000      | Jump to subroutine register
// RTI  |1000    |000000000000            | Return from interrupt
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func TestJump(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name:   "JMP",
			Input:  program(`JMP R2`),
			Output: map[uint16]uint16{0x3000: 0b1100_000_010_000000},
		},
		{
			Name:   "RET",
			Input:  program(`RET`),
			Output: map[uint16]uint16{0x3000: 0b1100_000_111_000000},
		},
		{
			Name:   "JSR",
			Input:  program(`JSR SUB`, `SUB RET`),
			Output: map[uint16]uint16{0x3000: 0b0100_1_00000000000, 0x3001: 0xC1C0},
		},
		{
			Name:   "JSR Literal Bounds",
			Input:  program(`JSR #-1024`, `JSR #1023`),
			Output: map[uint16]uint16{0x3000: 0x4C00, 0x3001: 0x4BFF},
		},
		{
			Name:   "JSRR",
			Input:  program(`JSRR R5`),
			Output: map[uint16]uint16{0x3000: 0b0100_0_00_101_000000},
		},
		{
			Name:   "RTI",
			Input:  program(`RTI`),
			Output: map[uint16]uint16{0x3000: 0x8000},
		},
	})

	testFail(t, []failCase{
		{
			Name:  "JMP Literal BaseR",
			Input: program(`JMP #1`),
			Error: &assembler.SyntaxError{},
		},
		{
			Name:  "JMP Bad Argc",
			Input: program(`JMP`),
			Error: &assembler.SyntaxError{},
		},
		{
			Name:  "RET Bad Argc",
			Input: program(`RET R7`),
			Error: &assembler.SyntaxError{},
		},
		{
			Name:  "JSR Unknown PCOffset11",
			Input: program(`JSR NOWHERE`),
			Error: &assembler.UndefinedSymbolError{},
		},
		{
			Name:  "JSR Oversized PCOffset11",
			Input: program(`JSR #1024`),
			Error: &assembler.RangeError{},
		},
		{
			Name:  "JSRR Label BaseR",
			Input: program(`JSRR SUB`, `SUB RET`),
			Error: &assembler.SyntaxError{},
		},
		{
			Name:  "RTI Bad Argc",
			Input: program(`RTI R0`),
			Error: &assembler.SyntaxError{},
		},
	})
}

// LD   |0010    |DR   |PCoffset9         | Load
// LDI  |1010    |DR   |PCoffset9         | Load indirect
// LDR  |0110    |DR   |BaseR|offset6     | Load base+offset
// LEA  |1110    |DR   |PCoffset9         | Load effective address
// ST   |0011    |SR   |PCoffset9         | Store
// STI  |1011    |SR   |PCoffset9         | Store indirect
// STR  |0111    |SR   |BaseR|offset6     | Store base+offset
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func TestLoadStore(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name:  "LD LDI LEA ST STI",
			Input: program(
				`LD R1, DATA`,
				`LDI R2, DATA`,
				`LEA R3, DATA`,
				`ST R4, DATA`,
				`STI R5, DATA`,
				`DATA .FILL xBEEF`,
			),
			Output: map[uint16]uint16{
				0x3000: 0b0010_001_000000100,
				0x3001: 0b1010_010_000000011,
				0x3002: 0b1110_011_000000010,
				0x3003: 0b0011_100_000000001,
				0x3004: 0b1011_101_000000000,
				0x3005: 0xBEEF,
			},
		},
		{
			Name:   "LD Literal Offset",
			Input:  program(`LD R0, #-256`, `ST R0, #255`),
			Output: map[uint16]uint16{0x3000: 0x2100, 0x3001: 0x30FF},
		},
		{
			Name:  "LDR STR",
			Input: program(`LDR R0, R6, #-32`, `STR R7, R1, #31`),
			Output: map[uint16]uint16{
				0x3000: 0b0110_000_110_100000,
				0x3001: 0b0111_111_001_011111,
			},
		},
	})

	testFail(t, []failCase{
		{
			Name:  "LD Unknown Label",
			Input: program(`LD R0, NOWHERE`),
			Error: &assembler.UndefinedSymbolError{},
		},
		{
			Name:  "LD Register Offset",
			Input: program(`LD R0, R1`),
			Error: &assembler.SyntaxError{},
		},
		{
			Name:  "LEA Bad Argc",
			Input: program(`LEA R0`),
			Error: &assembler.SyntaxError{},
		},
		{
			Name:  "LDR Oversized offset6",
			Input: program(`LDR R0, R6, #32`),
			Error: &assembler.RangeError{},
		},
		{
			Name:  "STR Label offset6",
			Input: program(`STR R0, R6, DATA`, `DATA .FILL #0`),
			Error: &assembler.SyntaxError{},
		},
	})
}

// NOT  |1001    |DR   |SR   |1|11111     | Bitwise complement
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func TestNot(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name:   "NOT",
			Input:  program(`NOT R1, R2`),
			Output: map[uint16]uint16{0x3000: 0b1001_001_010_111111},
		},
	})

	testFail(t, []failCase{
		{
			Name:  "NOT Literal SR",
			Input: program(`NOT R1, #2`),
			Error: &assembler.SyntaxError{},
		},
		{
			Name:  "NOT Bad Argc",
			Input: program(`NOT R1, R2, R3`),
			Error: &assembler.SyntaxError{},
		},
	})
}

// TRAP |1111    |0000   |trapvect8       | System call
// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
func TestTrap(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name:   "TRAP",
			Input:  program(`TRAP x25`, `TRAP #255`, `TRAP 0`),
			Output: map[uint16]uint16{0x3000: 0xF025, 0x3001: 0xF0FF, 0x3002: 0xF000},
		},
		{
			Name:  "TRAP Aliases",
			Input: program(`GETC`, `OUT`, `PUTS`, `IN`, `PUTSP`, `HALT`),
			Output: map[uint16]uint16{
				0x3000: 0xF020,
				0x3001: 0xF021,
				0x3002: 0xF022,
				0x3003: 0xF023,
				0x3004: 0xF024,
				0x3005: 0xF025,
			},
		},
	})

	testFail(t, []failCase{
		{
			Name:  "TRAP Oversized trapvect8",
			Input: program(`TRAP x100`),
			Error: &assembler.RangeError{},
		},
		{
			Name:  "TRAP Negative trapvect8",
			Input: program(`TRAP #-1`),
			Error: &assembler.RangeError{},
		},
		{
			Name:  "TRAP Label",
			Input: program(`TRAP LABEL`),
			Error: &assembler.SyntaxError{},
		},
		{
			Name:  "HALT Bad Argc",
			Input: program(`HALT x25`),
			Error: &assembler.SyntaxError{},
		},
	})
}

func TestOrig(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name:   "ORIG",
			Input:  ".ORIG x4000\nHALT\n.END",
			Output: map[uint16]uint16{0x4000: 0xF025},
		},
		{
			Name: "ORIG Sections",
			Input: ".ORIG x0025\n.FILL HALTER\n.END\n" +
				".ORIG x1000\nHALTER RTI\n.END",
			Output: map[uint16]uint16{0x0025: 0x1000, 0x1000: 0x8000},
			Labels: map[string]uint16{"HALTER": 0x1000},
		},
		{
			Name:   "ORIG Last Word",
			Input:  ".ORIG xFFFF\nHALT\n.END",
			Output: map[uint16]uint16{0xFFFF: 0xF025},
		},
	})

	testFail(t, []failCase{
		{
			Name:  "Missing ORIG",
			Input: "HALT",
			Error: &assembler.SyntaxError{},
		},
		{
			Name:  "After END",
			Input: ".ORIG x3000\n.END\nHALT",
			Error: &assembler.SyntaxError{},
		},
		{
			Name:  "ORIG Label",
			Input: ".ORIG START",
			Error: &assembler.SyntaxError{},
		},
		{
			Name:  "ORIG Oversized",
			Input: ".ORIG x10000",
			Error: &assembler.RangeError{},
		},
		{
			Name:  "ORIG Bad Argc",
			Input: ".ORIG",
			Error: &assembler.SyntaxError{},
		},
		{
			Name:  "Unknown Directive",
			Input: program(`.WORD #1`),
			Error: &assembler.SyntaxError{},
		},
	})
}

func TestFill(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name:  "FILL",
			Input: program(`.FILL #-1`, `.FILL xCAFE`, `.FILL 65535`, `.FILL #-32768`),
			Output: map[uint16]uint16{
				0x3000: 0xFFFF,
				0x3001: 0xCAFE,
				0x3002: 0xFFFF,
				0x3003: 0x8000,
			},
		},
		{
			Name:   "FILL Forward Label",
			Input:  program(`.FILL TARGET`, `TARGET .FILL TARGET`),
			Output: map[uint16]uint16{0x3000: 0x3001, 0x3001: 0x3001},
		},
	})

	testFail(t, []failCase{
		{
			Name:  "FILL Oversized",
			Input: program(`.FILL x10000`),
			Error: &assembler.RangeError{},
		},
		{
			Name:  "FILL Unknown Label",
			Input: program(`.FILL NOWHERE`),
			Error: &assembler.UndefinedSymbolError{},
		},
		{
			Name:  "FILL String",
			Input: program(`.FILL "a"`),
			Error: &assembler.SyntaxError{},
		},
	})
}

func TestBlkw(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name:   "BLKW",
			Input:  program(`.BLKW 3`, `END .FILL END`),
			Output: map[uint16]uint16{0x3003: 0x3003},
			Labels: map[string]uint16{"END": 0x3003},
		},
	})

	testFail(t, []failCase{
		{
			Name:  "BLKW Label",
			Input: program(`.BLKW COUNT`),
			Error: &assembler.SyntaxError{},
		},
		{
			Name:  "BLKW Negative",
			Input: program(`.BLKW #-1`),
			Error: &assembler.RangeError{},
		},
	})
}

func TestStringz(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name:  "STRINGZ",
			Input: program(`.STRINGZ "Hi, there"`, `NEXT .FILL #1`),
			Output: map[uint16]uint16{
				0x3000: 'H',
				0x3001: 'i',
				0x3002: ',',
				0x3003: ' ',
				0x3004: 't',
				0x3005: 'h',
				0x3006: 'e',
				0x3007: 'r',
				0x3008: 'e',
				0x300A: 1,
			},
			Labels: map[string]uint16{"NEXT": 0x300A},
		},
		{
			Name:   "STRINGZ Escapes",
			Input:  program(`.STRINGZ "a\n\"; b"`),
			Output: map[uint16]uint16{0x3000: 'a', 0x3001: '\n', 0x3002: '"', 0x3003: ';', 0x3004: ' ', 0x3005: 'b'},
		},
		{
			Name:   "STRINGZ Empty",
			Input:  program(`.STRINGZ ""`, `.FILL #2`),
			Output: map[uint16]uint16{0x3001: 2},
		},
	})

	testFail(t, []failCase{
		{
			Name:  "STRINGZ Unterminated",
			Input: program(`.STRINGZ "abc`),
			Error: &assembler.SyntaxError{},
		},
		{
			Name:  "STRINGZ Unquoted",
			Input: program(`.STRINGZ abc`),
			Error: &assembler.SyntaxError{},
		},
		{
			Name:  "STRINGZ Bad Escape",
			Input: program(`.STRINGZ "\q"`),
			Error: &assembler.SyntaxError{},
		},
	})
}

func TestComment(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name: "Comment",
			Input: "; header\n.ORIG x3000 ; start\n" +
				"    ; indented\nHALT;trailing\n.END ; done",
			Output: map[uint16]uint16{0x3000: 0xF025},
		},
	})
}

func TestLabel(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name:   "Label Only Line",
			Input:  program(`START`, `HALT`),
			Output: map[uint16]uint16{0x3000: 0xF025},
			Labels: map[string]uint16{"START": 0x3000},
		},
		{
			Name:   "Label Case Insensitive",
			Input:  program(`loop BRnzp LOOP`),
			Output: map[uint16]uint16{0x3000: 0x0FFF},
			Labels: map[string]uint16{"LOOP": 0x3000},
		},
		{
			Name:   "Stacked Labels",
			Input:  program(`ONE TWO HALT`),
			Output: map[uint16]uint16{0x3000: 0xF025},
			Labels: map[string]uint16{"ONE": 0x3000, "TWO": 0x3000},
		},
		{
			Name:   "Label Underscore Digits",
			Input:  program(`_loop_2 .FILL _LOOP_2`),
			Output: map[uint16]uint16{0x3000: 0x3000},
		},
	})

	testFail(t, []failCase{
		{
			Name:  "Duplicate Instruction Label",
			Input: program(`A HALT`, `A HALT`),
			Error: &assembler.DuplicateSymbolError{},
		},
		{
			Name:  "Duplicate Fill Label",
			Input: program(`A .FILL #1`, `a .FILL #2`),
			Error: &assembler.DuplicateSymbolError{},
		},
		{
			Name:  "Duplicate Same Line",
			Input: program(`A A HALT`),
			Error: &assembler.DuplicateSymbolError{},
		},
		{
			Name:  "Bad Label",
			Input: program(`1ABC HALT`),
			Error: &assembler.SyntaxError{},
		},
		{
			Name:  "Non-ASCII",
			Input: program(`LÖÖP HALT`),
			Error: &assembler.SyntaxError{},
		},
	})
}

func TestProgramSize(t *testing.T) {
	testFail(t, []failCase{
		{
			Name:  "Oversized Program",
			Input: ".ORIG xFFFF\nHALT\nHALT\n.END",
			Error: &assembler.RangeError{},
		},
		{
			Name:  "Oversized BLKW",
			Input: ".ORIG xFFF0\n.BLKW x11\n.END",
			Error: &assembler.RangeError{},
		},
	})
}

func TestSymtable(t *testing.T) {
	result, err := assembler.Assemble([]string{
		"; program",
		".ORIG x3000",
		"START LEA R0, MSG",
		"      PUTS",
		"      HALT",
		"MSG   .STRINGZ \"hi\"",
		".END",
	})
	require.NoError(t, err)

	assert.Equal(t, uint16(0x3000), result.Origin)
	assert.Equal(
		t, map[string]uint16{"START": 0x3000, "MSG": 0x3003},
		result.Symbols.Labels,
	)
	assert.Equal(
		t, map[uint16]int{0x3000: 3, 0x3001: 4, 0x3002: 5, 0x3003: 6},
		result.Symbols.Lines,
	)

	addr, ok := result.Symbols.Lookup("msg")
	assert.True(t, ok)
	assert.Equal(t, uint16(0x3003), addr)

	label, ok := result.Symbols.LabelAt(0x3000)
	assert.True(t, ok)
	assert.Equal(t, "START", label)

	_, ok = result.Symbols.LabelAt(0x3001)
	assert.False(t, ok)
}

func TestLabelAtStacked(t *testing.T) {
	result, err := assembler.AssembleReader(strings.NewReader(program(`TWO ONE THREE HALT`)))
	require.NoError(t, err)

	for i := 0; i < 16; i++ {
		label, ok := result.Symbols.LabelAt(0x3000)
		require.True(t, ok)
		assert.Equal(t, "ONE", label)
	}
}

func TestMultipleErrors(t *testing.T) {
	_, err := assembler.Assemble([]string{
		".ORIG x3000",
		"ADD R1, R2, #31",
		"BRz NOWHERE",
		"A HALT",
		"A HALT",
		".END",
	})
	require.Error(t, err)
	assert.Len(t, unwrapAll(err), 3)

	var rangeErr *assembler.RangeError
	require.True(t, errors.As(err, &rangeErr))
	assert.Equal(t, 2, rangeErr.Position.Line)
	assert.Equal(t, 13, rangeErr.Position.Column)
	assert.Equal(t, int64(31), rangeErr.Received)

	var undefinedErr *assembler.UndefinedSymbolError
	require.True(t, errors.As(err, &undefinedErr))
	assert.Equal(t, "NOWHERE", undefinedErr.Label)

	var duplicateErr *assembler.DuplicateSymbolError
	require.True(t, errors.As(err, &duplicateErr))
	assert.Equal(t, 5, duplicateErr.Position.Line)
	assert.Equal(t, 4, duplicateErr.Previous.Line)
}

func TestAssembleReader(t *testing.T) {
	result, err := assembler.AssembleReader(
		strings.NewReader(".ORIG x3000\r\nHALT\r\n.END\r\n"),
	)
	require.NoError(t, err)
	assert.Equal(t, uint16(0xF025), result.Image[0x3000])
}

func TestConcurrentAssemble(t *testing.T) {
	var wg sync.WaitGroup

	results := make([]uint16, 8)
	errs := make([]error, 8)

	for i := range results {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			origin := fmt.Sprintf(".ORIG x%04X", 0x3000+i*0x100)
			prog, err := assembler.Assemble([]string{
				origin, "L BRnzp L", ".END",
			})

			errs[i] = err
			if err == nil {
				addr, _ := prog.Symbols.Lookup("L")
				results[i] = addr
			}
		}(i)
	}

	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, uint16(0x3000+i*0x100), results[i])
	}
}

func TestSymbolFile(t *testing.T) {
	result, err := assembler.Assemble([]string{
		".ORIG x3000",
		"MAIN  LD R0, DATA",
		"      HALT",
		"DATA  .FILL #42",
		".END",
	})
	require.NoError(t, err)

	result.Symbols.Source = "/tmp/main.asm"

	var buffer bytes.Buffer
	require.NoError(t, assembler.WriteSymbols(&buffer, result.Symbols))

	symbols, err := assembler.ReadSymbols(&buffer)
	require.NoError(t, err)
	assert.Equal(t, result.Symbols, symbols)

	_, err = assembler.ReadSymbols(strings.NewReader("garbage"))
	assert.Error(t, err)
}
