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
	"encoding/gob"
	"io"
)

// WriteSymbols stores a symbol table for a later debugging session.
func WriteSymbols(w io.Writer, st *SymTable) error {
	return gob.NewEncoder(w).Encode(st)
}

func ReadSymbols(r io.Reader) (*SymTable, error) {
	st := NewSymTable()

	if err := gob.NewDecoder(r).Decode(st); err != nil {
		return nil, err
	}

	return st, nil
}
