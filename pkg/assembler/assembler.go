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


package assembler

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/lassandro/lc3kit/pkg/encoding"
	"github.com/lassandro/lc3kit/pkg/translate"
)

var instructions = map[string]InstructionType{
	"ADD":   INSTRUCTION_ADD,
	"AND":   INSTRUCTION_AND,
	"BR":    INSTRUCTION_BR,
	"BRN":   INSTRUCTION_BRn,
	"BRZ":   INSTRUCTION_BRz,
	"BRP":   INSTRUCTION_BRp,
	"BRNZ":  INSTRUCTION_BRnz,
	"BRZP":  INSTRUCTION_BRzp,
	"BRNP":  INSTRUCTION_BRnp,
	"BRNZP": INSTRUCTION_BRnzp,
	"JMP":   INSTRUCTION_JMP,
	"JSR":   INSTRUCTION_JSR,
	"JSRR":  INSTRUCTION_JSRR,
	"LD":    INSTRUCTION_LD,
	"LDI":   INSTRUCTION_LDI,
	"LDR":   INSTRUCTION_LDR,
	"LEA":   INSTRUCTION_LEA,
	"NOT":   INSTRUCTION_NOT,
	"RET":   INSTRUCTION_RET,
	"RTI":   INSTRUCTION_RTI,
	"ST":    INSTRUCTION_ST,
	"STI":   INSTRUCTION_STI,
	"STR":   INSTRUCTION_STR,
	"TRAP":  INSTRUCTION_TRAP,
	"GETC":  INSTRUCTION_GETC,
	"OUT":   INSTRUCTION_OUT,
	"PUTS":  INSTRUCTION_PUTS,
	"IN":    INSTRUCTION_IN,
	"PUTSP": INSTRUCTION_PUTSP,
	"HALT":  INSTRUCTION_HALT,
}

var directives = map[string]DirectiveType{
	".ORIG":    DIRECTIVE_ORIG,
	".FILL":    DIRECTIVE_FILL,
	".BLKW":    DIRECTIVE_BLKW,
	".STRINGZ": DIRECTIVE_STRINGZ,
	".END":     DIRECTIVE_END,
}

var branchFlags = map[InstructionType]uint16{
	INSTRUCTION_BR:    encoding.COND_N | encoding.COND_Z | encoding.COND_P,
	INSTRUCTION_BRn:   encoding.COND_N,
	INSTRUCTION_BRz:   encoding.COND_Z,
	INSTRUCTION_BRp:   encoding.COND_P,
	INSTRUCTION_BRnz:  encoding.COND_N | encoding.COND_Z,
	INSTRUCTION_BRzp:  encoding.COND_Z | encoding.COND_P,
	INSTRUCTION_BRnp:  encoding.COND_N | encoding.COND_P,
	INSTRUCTION_BRnzp: encoding.COND_N | encoding.COND_Z | encoding.COND_P,
}

var trapVectors = map[InstructionType]uint16{
	INSTRUCTION_GETC:  encoding.TRAP_GETC,
	INSTRUCTION_OUT:   encoding.TRAP_OUT,
	INSTRUCTION_PUTS:  encoding.TRAP_PUTS,
	INSTRUCTION_IN:    encoding.TRAP_IN,
	INSTRUCTION_PUTSP: encoding.TRAP_PUTSP,
	INSTRUCTION_HALT:  encoding.TRAP_HALT,
}

func parseInstruction(ident string) InstructionType {
	return instructions[strings.ToUpper(ident)]
}

func parseDirective(ident string) DirectiveType {
	return directives[strings.ToUpper(ident)]
}

// statement is an instruction or .FILL deferred to the second pass.
type statement struct {
	Addr        uint16
	Keyword     Token
	Instruction InstructionType
	Operands    []Token
}

// assembly is the state threaded through both passes of one Assemble call.
type assembly struct {
	origin  int
	defined bool
	started bool

	program  *Program
	declared map[string]Cursor
	deferred []statement
	errs     []error
}

// Assemble translates LC-3 assembly source lines into a memory image. All
// errors found are returned joined; no image is returned when any occurred.
func Assemble(lines []string) (*Program, error) {
	asm := &assembly{
		program: &Program{
			Image:   new(encoding.Image),
			Origin:  DefaultOrigin,
			Symbols: NewSymTable(),
		},
		declared: make(map[string]Cursor),
	}

	// Pass 1: layout, labels, and the pseudo-ops that need no symbols
	for index, line := range lines {
		tokens, err := tokenize(index+1, line)

		if err != nil {
			asm.errs = append(asm.errs, err)
			continue
		}

		asm.layout(tokens)
	}

	// Pass 2: encode instructions and .FILL now that every label is known
	for i := range asm.deferred {
		asm.encode(&asm.deferred[i])
	}

	if len(asm.errs) > 0 {
		return nil, errors.Join(asm.errs...)
	}

	return asm.program, nil
}

// AssembleReader reads source lines from r and assembles them.
func AssembleReader(r io.Reader) (*Program, error) {
	var lines []string

	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return Assemble(lines)
}

func (asm *assembly) fail(err error) {
	asm.errs = append(asm.errs, err)
}

func (asm *assembly) requireOrigin(token *Token) bool {
	if !asm.defined {
		asm.fail(&SyntaxError{
			token.Position,
			translate.From(
				"'%s' appears outside of an .ORIG/.END block", token.Value,
			),
		})
	}

	return asm.defined
}

func (asm *assembly) advance(count int, token *Token) bool {
	if asm.origin+count > 1<<16 {
		asm.fail(&RangeError{
			token.Position, 0, 0xFFFF, int64(asm.origin + count - 1),
		})
		asm.defined = false

		return false
	}

	asm.origin += count

	return true
}

func (asm *assembly) layout(tokens []Token) {
	for i := 0; i < len(tokens); i++ {
		token := &tokens[i]
		operands := tokens[i+1:]

		switch token.Type {
		case TOKEN_DIRECTIVE:
			asm.directive(token, operands)
			return

		case TOKEN_IDENT:
			if instruction := parseInstruction(token.Value); instruction != INSTRUCTION_INVALID {
				if !asm.requireOrigin(token) {
					return
				}

				asm.emit(token, instruction, operands)

				return
			}

			if !asm.requireOrigin(token) {
				return
			}

			asm.label(token)

		default:
			asm.fail(invalidOperand(token, TOKEN_IDENT, TOKEN_DIRECTIVE))
			return
		}
	}
}

// emit defers an instruction or .FILL to the second pass at the current
// origin.
func (asm *assembly) emit(keyword *Token, instruction InstructionType, operands []Token) {
	addr := asm.origin

	if !asm.advance(1, keyword) {
		return
	}

	asm.program.Symbols.Lines[uint16(addr)] = keyword.Position.Line
	asm.deferred = append(asm.deferred, statement{
		uint16(addr), *keyword, instruction, operands,
	})
}

func (asm *assembly) label(token *Token) {
	name := strings.ToUpper(token.Value)

	if asm.origin > 0xFFFF {
		asm.fail(&RangeError{token.Position, 0, 0xFFFF, int64(asm.origin)})
		return
	}

	if previous, exists := asm.declared[name]; exists {
		asm.fail(&DuplicateSymbolError{token.Position, token.Value, previous})
		return
	}

	asm.declared[name] = token.Position
	asm.program.Symbols.Labels[name] = uint16(asm.origin)
}

func (asm *assembly) directive(keyword *Token, operands []Token) {
	directive := parseDirective(keyword.Value)

	if directive == DIRECTIVE_INVALID {
		asm.fail(&SyntaxError{
			keyword.Position,
			translate.From("Unknown directive '%s'", keyword.Value),
		})

		return
	}

	want := 1
	if directive == DIRECTIVE_END {
		want = 0
	}

	if count := len(operands); count != want {
		asm.fail(invalidNumArguments(keyword, want, count))
		return
	}

	if directive != DIRECTIVE_ORIG && directive != DIRECTIVE_END {
		if !asm.requireOrigin(keyword) {
			return
		}
	}

	switch directive {
	// .ORIG x3000
	case DIRECTIVE_ORIG:
		value, ok := asm.unsigned(&operands[0], LITERAL_WORD)

		if !ok {
			return
		}

		if !asm.started {
			asm.program.Origin = value
			asm.started = true
		}

		asm.origin = int(value)
		asm.defined = true

	// .END
	case DIRECTIVE_END:
		asm.defined = false

	// .FILL #value|label
	case DIRECTIVE_FILL:
		asm.emit(keyword, INSTRUCTION_INVALID, operands)

	// .BLKW #count
	case DIRECTIVE_BLKW:
		count, ok := asm.unsigned(&operands[0], LITERAL_WORD)

		if ok && asm.origin <= 0xFFFF {
			asm.program.Symbols.Lines[uint16(asm.origin)] = keyword.Position.Line
			asm.advance(int(count), &operands[0])
		}

	// .STRINGZ "..."
	case DIRECTIVE_STRINGZ:
		if operands[0].Type != TOKEN_STRING {
			asm.fail(invalidOperand(&operands[0], TOKEN_STRING))
			return
		}

		text, err := strconv.Unquote(operands[0].Value)

		if err != nil {
			asm.fail(&SyntaxError{
				operands[0].Position,
				translate.From("Invalid string literal"),
			})

			return
		}

		chars := []rune(text)

		if asm.origin+len(chars)+1 > 1<<16 {
			asm.advance(len(chars)+1, &operands[0])
			return
		}

		asm.program.Symbols.Lines[uint16(asm.origin)] = keyword.Position.Line

		for _, char := range chars {
			if char > 0xFFFF {
				asm.fail(&RangeError{
					operands[0].Position, 0, 0xFFFF, int64(char),
				})
			}

			asm.program.Image[asm.origin] = uint16(char)
			asm.origin++
		}

		asm.program.Image[asm.origin] = 0
		asm.origin++
	}
}

// signed decodes a numeric token and checks it against a signed field of
// the given width. Hex literals may also spell the raw bit pattern.
func (asm *assembly) literal(token *Token) (int32, bool, bool) {
	value, hex, err := encoding.DecodeLiteral(token.Value)

	if err != nil {
		asm.fail(&SyntaxError{
			token.Position, translate.From("Invalid numeric literal"),
		})

		return 0, false, false
	}

	return value, hex, true
}

func (asm *assembly) signed(token *Token, bits LiteralType) (uint16, bool) {
	if token.Type != TOKEN_LITERAL {
		asm.fail(invalidOperand(token, TOKEN_LITERAL))
		return 0, false
	}

	value, hex, ok := asm.literal(token)

	if !ok {
		return 0, false
	}

	low := -(int64(1) << (bits - 1))
	high := (int64(1) << (bits - 1)) - 1

	if hex && value >= 0 {
		low = 0
		high = (int64(1) << bits) - 1
	}

	if int64(value) < low || int64(value) > high {
		asm.fail(&RangeError{token.Position, low, high, int64(value)})
		return 0, false
	}

	return uint16(value) & uint16((1<<bits)-1), true
}

func (asm *assembly) unsigned(token *Token, bits LiteralType) (uint16, bool) {
	if token.Type != TOKEN_LITERAL {
		asm.fail(invalidOperand(token, TOKEN_LITERAL))
		return 0, false
	}

	value, _, ok := asm.literal(token)

	if !ok {
		return 0, false
	}

	high := (int64(1) << bits) - 1

	if value < 0 || int64(value) > high {
		asm.fail(&RangeError{token.Position, 0, high, int64(value)})
		return 0, false
	}

	return uint16(value), true
}

func (asm *assembly) register(token *Token) uint16 {
	reg, ok := parseRegister(token.Value)

	if token.Type != TOKEN_REGISTER || !ok {
		asm.fail(invalidOperand(token, TOKEN_REGISTER))
		return 0
	}

	return reg
}

// offset resolves a PC-relative operand, either a label or a literal
// displacement, relative to the already incremented program counter.
func (asm *assembly) offset(token *Token, addr uint16, bits LiteralType) uint16 {
	switch token.Type {
	case TOKEN_LITERAL:
		value, _ := asm.signed(token, bits)
		return value

	case TOKEN_IDENT:
		target, exists := asm.program.Symbols.Lookup(token.Value)

		if !exists {
			asm.fail(&UndefinedSymbolError{token.Position, token.Value})
			return 0
		}

		limit := int64(1) << (bits - 1)
		offset := int64(target) - (int64(addr) + 1)

		if offset < -limit || offset >= limit {
			asm.fail(&RangeError{token.Position, -limit, limit - 1, offset})
			return 0
		}

		return uint16(offset) & uint16((1<<bits)-1)
	}

	asm.fail(invalidOperand(token, TOKEN_IDENT, TOKEN_LITERAL))

	return 0
}

func (asm *assembly) encode(stmt *statement) {
	var scratch uint16

	keyword := &stmt.Keyword
	operands := stmt.Operands

	want := 0
	switch stmt.Instruction {
	case INSTRUCTION_ADD, INSTRUCTION_AND, INSTRUCTION_LDR, INSTRUCTION_STR:
		want = 3
	case INSTRUCTION_LD, INSTRUCTION_LDI, INSTRUCTION_LEA,
		INSTRUCTION_ST, INSTRUCTION_STI, INSTRUCTION_NOT:
		want = 2
	case INSTRUCTION_INVALID, INSTRUCTION_JMP, INSTRUCTION_JSR,
		INSTRUCTION_JSRR, INSTRUCTION_TRAP:
		want = 1
	default:
		if _, isBranch := branchFlags[stmt.Instruction]; isBranch {
			want = 1
		}
	}

	if count := len(operands); count != want {
		asm.fail(invalidNumArguments(keyword, want, count))
		return
	}

	switch stmt.Instruction {
	// .FILL #
	case INSTRUCTION_INVALID:
		switch operands[0].Type {
		case TOKEN_LITERAL:
			value, _, ok := asm.literal(&operands[0])

			if !ok {
				return
			}

			if value < -0x8000 || value > 0xFFFF {
				asm.fail(&RangeError{
					operands[0].Position, -0x8000, 0xFFFF, int64(value),
				})
			}

			scratch = uint16(value)
		case TOKEN_IDENT:
			target, exists := asm.program.Symbols.Lookup(operands[0].Value)

			if !exists {
				asm.fail(&UndefinedSymbolError{
					operands[0].Position, operands[0].Value,
				})
			}

			scratch = target
		default:
			asm.fail(invalidOperand(&operands[0], TOKEN_LITERAL, TOKEN_IDENT))
		}

	// ADD  |0001    |DR   |SR1  |0|00 |SR2   | Register  addition
	// ADD  |0001    |DR   |SR1  |1|imm5      | Immediate addition
	// AND  |0101    |DR   |SR1  |0|00 |SR2   | Register  bitwise
	// AND  |0101    |DR   |SR1  |1|imm5      | Immediate bitwise
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_ADD, INSTRUCTION_AND:
		if stmt.Instruction == INSTRUCTION_ADD {
			scratch = encoding.OP_ADD.Encode()
		} else {
			scratch = encoding.OP_AND.Encode()
		}

		scratch |= asm.register(&operands[0]) << 9
		scratch |= asm.register(&operands[1]) << 6

		switch operands[2].Type {
		case TOKEN_REGISTER:
			scratch |= asm.register(&operands[2])
		case TOKEN_LITERAL:
			imm5, _ := asm.signed(&operands[2], LITERAL_IMM5)
			scratch |= 1<<5 | imm5
		default:
			asm.fail(invalidOperand(&operands[2], TOKEN_REGISTER, TOKEN_LITERAL))
		}

	// BR   |0000    |N|Z|P|PCoffset9         | Conditional branch
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_BR,
		INSTRUCTION_BRn,
		INSTRUCTION_BRz,
		INSTRUCTION_BRp,
		INSTRUCTION_BRnz,
		INSTRUCTION_BRzp,
		INSTRUCTION_BRnp,
		INSTRUCTION_BRnzp:
		scratch = encoding.OP_BR.Encode()
		scratch |= branchFlags[stmt.Instruction] << 9
		scratch |= asm.offset(&operands[0], stmt.Addr, LITERAL_PCOFFSET9)

	// JMP  |1100    |000  |BaseR|000000      | Jump
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_JMP:
		scratch = encoding.OP_JMP.Encode()
		scratch |= asm.register(&operands[0]) << 6

	// RET  |1100    |000  |111  |000000      | Return
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_RET:
		scratch = encoding.OP_JMP.Encode() | 7<<6

	// JSR  |0100    |1|PCoffset11            | Jump to subroutine
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_JSR:
		scratch = encoding.OP_JSR.Encode() | 1<<11
		scratch |= asm.offset(&operands[0], stmt.Addr, LITERAL_PCOFFSET11)

	// JSRR |0100    |0|00 |BaseR|000000      | Jump to subroutine register
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_JSRR:
		scratch = encoding.OP_JSR.Encode()
		scratch |= asm.register(&operands[0]) << 6

	// LD   |0010    |DR   |PCoffset9         | Load
	// LDI  |1010    |DR   |PCoffset9         | Load indirect
	// ST   |0011    |SR   |PCoffset9         | Store
	// STI  |1011    |SR   |PCoffset9         | Store indirect
	// LEA  |1110    |DR   |PCoffset9         | Load effective address
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_LD,
		INSTRUCTION_LDI,
		INSTRUCTION_LEA,
		INSTRUCTION_ST,
		INSTRUCTION_STI:
		switch stmt.Instruction {
		case INSTRUCTION_LD:
			scratch = encoding.OP_LD.Encode()
		case INSTRUCTION_LDI:
			scratch = encoding.OP_LDI.Encode()
		case INSTRUCTION_LEA:
			scratch = encoding.OP_LEA.Encode()
		case INSTRUCTION_ST:
			scratch = encoding.OP_ST.Encode()
		case INSTRUCTION_STI:
			scratch = encoding.OP_STI.Encode()
		}

		scratch |= asm.register(&operands[0]) << 9
		scratch |= asm.offset(&operands[1], stmt.Addr, LITERAL_PCOFFSET9)

	// LDR  |0110    |DR   |BaseR|offset6     | Load base+offset
	// STR  |0111    |SR   |BaseR|offset6     | Store base+offset
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_LDR, INSTRUCTION_STR:
		if stmt.Instruction == INSTRUCTION_LDR {
			scratch = encoding.OP_LDR.Encode()
		} else {
			scratch = encoding.OP_STR.Encode()
		}

		scratch |= asm.register(&operands[0]) << 9
		scratch |= asm.register(&operands[1]) << 6

		offset6, _ := asm.signed(&operands[2], LITERAL_OFFSET6)
		scratch |= offset6

	// NOT  |1001    |DR   |SR   |1|11111     | Bitwise complement
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_NOT:
		scratch = encoding.OP_NOT.Encode()
		scratch |= asm.register(&operands[0]) << 9
		scratch |= asm.register(&operands[1]) << 6
		scratch |= 0x3F

	// RTI  |1000    |000000000000            | Return from interrupt
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_RTI:
		scratch = encoding.OP_RTI.Encode()

	// TRAP |1111    |0000   |trapvect8       | System call
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_TRAP:
		vector, _ := asm.unsigned(&operands[0], LITERAL_TRAPVEC8)
		scratch = encoding.OP_TRAP.Encode() | vector

	// GETC, OUT, PUTS, IN, PUTSP, HALT -> TRAP x20..x25
	default:
		scratch = encoding.OP_TRAP.Encode() | trapVectors[stmt.Instruction]
	}

	asm.program.Image[stmt.Addr] = scratch
}
