/*
 * fixed.go, part of gocg.
 *
 * Copyright 2024 Raul Mera <rmeraa{at}academicos(dot)uta(dot)cl>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package gro

import (
	"fmt"
	"strconv"
	"strings"
)

type fixedField struct {
	kind  byte //I, A, F or X
	width int
}

// FixedFormat decodes lines with fixed-width columns, described
// with a Fortran-like format string such as "I5,2A5,5X,3F8".
type FixedFormat struct {
	fields []fixedField
	width  int
}

// NewFixedFormat parses the format string spec. Each comma-separated item is an optional
// repeat count, a kind (I for integers, A for strings, F for floats and X for
// skipped columns) and a width. For X the count, not the width, goes before the letter.
func NewFixedFormat(spec string) (*FixedFormat, error) {
	ret := new(FixedFormat)
	for _, item := range strings.Split(spec, ",") {
		item = strings.ToUpper(strings.TrimSpace(item))
		pos := strings.IndexAny(item, "IAFX")
		if pos < 0 {
			return nil, fmt.Errorf("format item %q has no type", item)
		}
		kind := item[pos]
		count, width := 1, 0
		var err error
		if kind == 'X' {
			if pos > 0 {
				width, err = strconv.Atoi(item[:pos])
			} else {
				width = 1
			}
			if err != nil || width <= 0 || pos != len(item)-1 {
				return nil, fmt.Errorf("bad format item %q", item)
			}
		} else {
			if pos > 0 {
				count, err = strconv.Atoi(item[:pos])
				if err != nil || count <= 0 {
					return nil, fmt.Errorf("bad repeat count in format item %q", item)
				}
			}
			w := item[pos+1:]
			if dot := strings.Index(w, "."); dot >= 0 {
				w = w[:dot] //decimals are implied by the data
			}
			width, err = strconv.Atoi(w)
			if err != nil || width <= 0 {
				return nil, fmt.Errorf("bad width in format item %q", item)
			}
		}
		for i := 0; i < count; i++ {
			ret.fields = append(ret.fields, fixedField{kind, width})
			ret.width += width
		}
	}
	return ret, nil
}

// Width returns the number of columns that a line must have.
func (F *FixedFormat) Width() int {
	return F.width
}

// Parse decodes line, returning one value per non-X field: an int for I
// fields, a float64 for F fields and a string, with blanks trimmed, for A fields.
// Anything beyond the last field is ignored.
func (F *FixedFormat) Parse(line string) ([]any, error) {
	line = strings.TrimRight(line, "\r\n")
	if len(line) < F.width {
		return nil, fmt.Errorf("line has %d columns, expected at least %d: %q", len(line), F.width, line)
	}
	ret := make([]any, 0, len(F.fields))
	pos := 0
	for i, f := range F.fields {
		chunk := line[pos : pos+f.width]
		pos += f.width
		switch f.kind {
		case 'X':
			continue
		case 'A':
			ret = append(ret, strings.TrimSpace(chunk))
		case 'I':
			v, err := strconv.Atoi(strings.TrimSpace(chunk))
			if err != nil {
				return nil, fmt.Errorf("field %d: can't parse integer %q", i+1, chunk)
			}
			ret = append(ret, v)
		case 'F':
			v, err := strconv.ParseFloat(strings.TrimSpace(chunk), 64)
			if err != nil {
				return nil, fmt.Errorf("field %d: can't parse float %q", i+1, chunk)
			}
			ret = append(ret, v)
		}
	}
	return ret, nil
}
