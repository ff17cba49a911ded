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
	"strings"

	"github.com/lassandro/lc3kit/pkg/encoding"
	"github.com/lassandro/lc3kit/pkg/translate"
)

type LiteralType uint
type TokenType uint
type InstructionType uint
type DirectiveType uint

type Cursor struct {
	Line   int
	Column int
	Size   int
}

type Token struct {
	Type     TokenType
	Position Cursor
	Value    string
}

// SymTable maps labels to the addresses they were defined at. Lines and
// Source are debugging information consumed by the debugger.
type SymTable struct {
	Source string
	Labels map[string]uint16
	Lines  map[uint16]int
}

func NewSymTable() *SymTable {
	return &SymTable{
		Labels: make(map[string]uint16),
		Lines:  make(map[uint16]int),
	}
}

// Lookup resolves a label regardless of case.
func (st *SymTable) Lookup(label string) (uint16, bool) {
	addr, ok := st.Labels[strings.ToUpper(label)]
	return addr, ok
}

// LabelAt returns the label defined at addr, if any. When several labels
// share the address the lexically smallest is returned.
func (st *SymTable) LabelAt(addr uint16) (string, bool) {
	found := ""

	for label, labelAddr := range st.Labels {
		if labelAddr == addr && (found == "" || label < found) {
			found = label
		}
	}

	return found, found != ""
}

type Program struct {
	Image   *encoding.Image
	Origin  uint16
	Symbols *SymTable
}

type TokenError interface {
	GetPosition() Cursor
}

func tokenTypeName(tokenType TokenType) string {
	switch tokenType {
	case TOKEN_IDENT:
		return translate.From("Identifier")
	case TOKEN_DIRECTIVE:
		return translate.From("Directive")
	case TOKEN_STRING:
		return translate.From("String")
	case TOKEN_LITERAL:
		return translate.From("Literal")
	case TOKEN_REGISTER:
		return translate.From("Register")
	default:
		return "<invalid>"
	}
}

func joinTokenTypes(types []TokenType) string {
	names := make([]string, 0, len(types))

	for _, tokenType := range types {
		names = append(names, tokenTypeName(tokenType))
	}

	if count := len(names); count == 1 {
		return names[0]
	} else if count == 2 {
		return names[0] + translate.From(" or ") + names[1]
	} else if count > 2 {
		return strings.Join(names[:count-1], ", ") +
			translate.From(", or ") + names[count-1]
	}

	return ""
}

// SyntaxError reports a token that does not fit the operand pattern of its
// mnemonic or directive.
type SyntaxError struct {
	Position Cursor
	Message  string
}

func (err *SyntaxError) GetPosition() Cursor {
	return err.Position
}

func (err *SyntaxError) Error() string {
	return translate.From(
		"%02d:%02d: Syntax error: %s",
		err.Position.Line,
		err.Position.Column,
		err.Message,
	)
}

func invalidOperand(token *Token, want ...TokenType) *SyntaxError {
	return &SyntaxError{
		token.Position,
		translate.From(
			"Invalid operand '%s'\n\twant:%s\n\thave:%s",
			token.Value,
			joinTokenTypes(want),
			tokenTypeName(token.Type),
		),
	}
}

func invalidNumArguments(keyword *Token, want, have int) *SyntaxError {
	return &SyntaxError{
		keyword.Position,
		translate.From(
			"Invalid number of arguments to %s\n\twant:%d\n\thave:%d",
			strings.ToUpper(keyword.Value),
			want,
			have,
		),
	}
}

// RangeError reports a numeric field or address outside its bit width.
type RangeError struct {
	Position Cursor
	Min      int64
	Max      int64
	Received int64
}

func (err *RangeError) GetPosition() Cursor {
	return err.Position
}

func (err *RangeError) Error() string {
	return translate.From(
		"%02d:%02d: Value exceeds allowed range\n\twant:[%d, %d]\n\thave:%d",
		err.Position.Line,
		err.Position.Column,
		err.Min,
		err.Max,
		err.Received,
	)
}

type DuplicateSymbolError struct {
	Position Cursor
	Label    string
	Previous Cursor
}

func (err *DuplicateSymbolError) GetPosition() Cursor {
	return err.Position
}

func (err *DuplicateSymbolError) Error() string {
	return translate.From(
		"%02d:%02d: Redeclaration of label '%s' (first declared on line %d)",
		err.Position.Line,
		err.Position.Column,
		err.Label,
		err.Previous.Line,
	)
}

type UndefinedSymbolError struct {
	Position Cursor
	Label    string
}

func (err *UndefinedSymbolError) GetPosition() Cursor {
	return err.Position
}

func (err *UndefinedSymbolError) Error() string {
	return translate.From(
		"%02d:%02d: Unknown label '%s'",
		err.Position.Line,
		err.Position.Column,
		err.Label,
	)
}
