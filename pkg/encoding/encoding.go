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


package encoding

import (
	"errors"
	"strconv"
	"strings"
)

var errInvalidHex = errors.New("Invalid hex string")
var errInvalidLiteral = errors.New("Invalid numeric literal")

// Decodes a hexidecimal string in the formats: 0xFFFF, xFFFF, 0xFF, xFF
func DecodeHex(s string) (uint16, error) {
	if i := strings.IndexAny(s, "xX"); i == 0 {
		s = "0" + s
	} else if i == -1 || i != 1 {
		return 0, errInvalidHex
	}

	result, err := strconv.ParseUint(s, 0, 16)

	if err != nil {
		return 0, err
	}

	return uint16(result), nil
}

// Decodes a base-10 string in the formats: #123, 123
func DecodeInt(s string) (int16, error) {
	if i := strings.Index(s, "#"); i == 0 {
		s = s[1:]
	}

	result, err := strconv.ParseInt(s, 10, 16)

	if err != nil {
		return 0, err
	}

	return int16(result), nil
}

// DecodeLiteral decodes an assembly numeric literal. Accepted formats are
// #123, 123, #-123, -123, x1F, X1F, 0x1F, -x1F and x-1F. The hex result
// reports whether the literal was written in base 16.
func DecodeLiteral(s string) (value int32, hex bool, err error) {
	negative := false
	body := strings.TrimPrefix(s, "#")

	if strings.HasPrefix(body, "-") {
		negative = true
		body = body[1:]
	}

	switch {
	case strings.HasPrefix(body, "0x"), strings.HasPrefix(body, "0X"):
		body = body[2:]
		hex = true
	case strings.HasPrefix(body, "x"), strings.HasPrefix(body, "X"):
		body = body[1:]
		hex = true
	}

	if hex && strings.HasPrefix(s, "#") {
		return 0, false, errInvalidLiteral
	}

	if hex && strings.HasPrefix(body, "-") && !negative {
		negative = true
		body = body[1:]
	}

	if len(body) == 0 || body[0] == '+' || body[0] == '-' {
		return 0, false, errInvalidLiteral
	}

	base := 10
	if hex {
		base = 16
	}

	result, err := strconv.ParseInt(body, base, 32)

	if err != nil {
		return 0, false, errInvalidLiteral
	}

	if negative {
		result = -result
	}

	return int32(result), hex, nil
}

// IsLiteral reports whether s has the lexical shape of a numeric literal.
func IsLiteral(s string) bool {
	_, _, err := DecodeLiteral(s)
	return err == nil
}

// Bits extracts the unsigned field of the given width starting at bit start.
func Bits(value uint16, start uint16, width uint16) uint16 {
	return (value >> start) & ((1 << width) - 1)
}

// SignedBits extracts the field like Bits and sign-extends it.
func SignedBits(value uint16, start uint16, width uint16) int16 {
	return int16(SignExtend(Bits(value, start, width), width))
}

func SignExtend(value uint16, bitcount uint16) uint16 {
	if (value>>(bitcount-1))&0x1 == 1 {
		value |= (0xFFFF << bitcount)
	}

	return value
}
