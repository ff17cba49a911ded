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
	"encoding/binary"
	"errors"
	"io"
)

// Image is the full 16-bit address space of the machine.
type Image [1 << 16]uint16

var ErrShortImage = errors.New("Error reading binary")
var ErrOversizedObject = errors.New("Object exceeds address space")
var ErrOversizedImage = errors.New("Image exceeds address space")

// WriteTo writes every word of the image big-endian.
func (img *Image) WriteTo(w io.Writer) (int64, error) {
	if err := binary.Write(w, binary.BigEndian, img[:]); err != nil {
		return 0, err
	}

	return int64(len(img) * 2), nil
}

// ReadFrom fills the image from a dense big-endian dump produced by WriteTo.
// A shorter stream leaves the remaining words zeroed; an odd trailing byte or
// data past the last word is an error.
func (img *Image) ReadFrom(r io.Reader) (int64, error) {
	*img = Image{}

	scratch := make([]byte, 2)
	var total int64

	for index := 0; index < len(img); index++ {
		n, err := io.ReadFull(r, scratch)
		total += int64(n)

		if err == io.EOF {
			return total, nil
		} else if err == io.ErrUnexpectedEOF {
			return total, ErrShortImage
		} else if err != nil {
			return total, err
		}

		img[index] = binary.BigEndian.Uint16(scratch)
	}

	n, err := io.ReadFull(r, scratch[:1])
	total += int64(n)

	if n > 0 {
		return total, ErrOversizedImage
	}

	if err != nil && err != io.EOF {
		return total, err
	}

	return total, nil
}

// ReadObject loads an object file (origin word followed by the program words)
// into img and returns the origin.
func ReadObject(r io.Reader, img *Image) (uint16, error) {
	data, err := io.ReadAll(r)

	if err != nil {
		return 0, err
	}

	if len(data) < 2 || len(data)%2 != 0 {
		return 0, ErrShortImage
	}

	origin := binary.BigEndian.Uint16(data)
	words := data[2:]

	if int(origin)+len(words)/2 > len(img) {
		return 0, ErrOversizedObject
	}

	for i := 0; i < len(words); i += 2 {
		img[int(origin)+i/2] = binary.BigEndian.Uint16(words[i:])
	}

	return origin, nil
}

// WriteObject writes words as an object file placed at origin.
func WriteObject(w io.Writer, origin uint16, words []uint16) error {
	if int(origin)+len(words) > 1<<16 {
		return ErrOversizedObject
	}

	if err := binary.Write(w, binary.BigEndian, origin); err != nil {
		return err
	}

	return binary.Write(w, binary.BigEndian, words)
}
