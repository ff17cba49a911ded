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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lassandro/lc3kit/pkg/encoding"
)

// Statements normally only reach encode with literals the tokenizer has
// already validated, so a malformed one has to be injected directly.
func TestEncodeMalformedLiteral(t *testing.T) {
	tests := []struct {
		Name        string
		Keyword     string
		Instruction InstructionType
		Operands    []Token
	}{
		{
			Name:        "FILL Bare Prefix",
			Keyword:     ".FILL",
			Instruction: INSTRUCTION_INVALID,
			Operands: []Token{
				{TOKEN_LITERAL, Cursor{1, 7, 1}, "x"},
			},
		},
		{
			Name:        "FILL Hash Hex",
			Keyword:     ".FILL",
			Instruction: INSTRUCTION_INVALID,
			Operands: []Token{
				{TOKEN_LITERAL, Cursor{1, 7, 4}, "#x10"},
			},
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			asm := &assembly{
				program: &Program{
					Image:   new(encoding.Image),
					Symbols: NewSymTable(),
				},
			}

			asm.encode(&statement{
				Addr:        0x3000,
				Keyword:     Token{TOKEN_DIRECTIVE, Cursor{1, 1, len(test.Keyword)}, test.Keyword},
				Instruction: test.Instruction,
				Operands:    test.Operands,
			})

			require.Len(t, asm.errs, 1)

			var syntaxErr *SyntaxError
			require.ErrorAs(t, asm.errs[0], &syntaxErr)

			assert.Equal(t, test.Operands[0].Position, syntaxErr.GetPosition())
			assert.Zero(t, asm.program.Image[0x3000])
		})
	}
}
