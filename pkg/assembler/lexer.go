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
	"unicode"

	"github.com/lassandro/lc3kit/pkg/encoding"
	"github.com/lassandro/lc3kit/pkg/translate"
)

func parseRegister(ident string) (uint16, bool) {
	if len(ident) != 2 || (ident[0] != 'R' && ident[0] != 'r') {
		return 0, false
	}

	if ident[1] < '0' || ident[1] > '7' {
		return 0, false
	}

	return uint16(ident[1] - '0'), true
}

func isIdentifier(ident string) bool {
	for i, char := range ident {
		switch {
		case char == '_', char <= unicode.MaxASCII && unicode.IsLetter(char):
		case i > 0 && char <= unicode.MaxASCII && unicode.IsDigit(char):
		default:
			return false
		}
	}

	return len(ident) > 0
}

// Tokens are classified by their lexical shape alone, so operand parsing
// never has to guess between a register and an immediate.
func classify(value string) TokenType {
	switch {
	case strings.HasPrefix(value, `"`):
		return TOKEN_STRING
	case strings.HasPrefix(value, "."):
		return TOKEN_DIRECTIVE
	}

	if _, ok := parseRegister(value); ok {
		return TOKEN_REGISTER
	}

	if encoding.IsLiteral(value) {
		return TOKEN_LITERAL
	}

	if isIdentifier(value) {
		return TOKEN_IDENT
	}

	return TOKEN_NONE
}

// tokenize splits one source line on whitespace and commas, dropping any
// trailing comment. Quoted strings are kept whole, quotes included.
func tokenize(line int, text string) ([]Token, error) {
	var tokens []Token
	var builder strings.Builder
	var tokenStart int

	var inString bool
	var escaped bool

	flush := func() {
		if builder.Len() == 0 {
			return
		}

		value := builder.String()
		tokens = append(tokens, Token{
			Type:     classify(value),
			Position: Cursor{line, tokenStart, len(value)},
			Value:    value,
		})
		builder.Reset()
	}

	for index, char := range text {
		column := index + 1

		if inString {
			builder.WriteRune(char)

			switch {
			case escaped:
				escaped = false
			case char == '\\':
				escaped = true
			case char == '"':
				inString = false
				flush()
			}

			continue
		}

		switch {
		// Comments
		case char == ';':
			flush()
			return tokens, nil

		// Whitespace and operand separators
		case unicode.IsSpace(char), char == ',':
			flush()

		// String Literal
		case char == '"':
			flush()
			tokenStart = column
			inString = true
			builder.WriteRune(char)

		case char > unicode.MaxASCII:
			return nil, &SyntaxError{
				Cursor{line, column, 1},
				translate.From("Character exceeds ASCII limit"),
			}

		default:
			if builder.Len() == 0 {
				tokenStart = column
			}

			builder.WriteRune(char)
		}
	}

	if inString {
		return nil, &SyntaxError{
			Cursor{line, tokenStart, builder.Len()},
			translate.From("Unterminated string literal"),
		}
	}

	flush()

	for i := range tokens {
		if tokens[i].Type == TOKEN_NONE {
			return nil, &SyntaxError{
				tokens[i].Position,
				translate.From("Unexpected token '%s'", tokens[i].Value),
			}
		}
	}

	return tokens, nil
}
