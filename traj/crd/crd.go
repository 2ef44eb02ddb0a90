/*
 * crd.go, part of gocg.
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

// Package crd reads old-style Amber ASCII trajectories (mdcrd). The files
// carry no atom count, so it must be given. Coordinates and box lengths are
// converted from Å to nm.
package crd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	v3 "github.com/rmera/gocg/v3"
)

// A2nm converts Å to nm.
const A2nm = 0.1

// width of each number in the 10F8.3 layout.
const width = 8

// CrdR is an old Amber/pDynamo trajectory file open for reading. It implements cg.Traj.
type CrdR struct {
	f        *os.File
	r        *bufio.Reader
	natoms   int
	filename string
	readable bool
	pending  string //a line read ahead, looking for a box
	held     bool
	frames   int
}

// New opens filename, a trajectory of natoms atoms, and skips its title line.
func New(filename string, natoms int) (*CrdR, error) {
	if natoms <= 0 {
		return nil, Error{fmt.Sprintf("invalid number of atoms %d", natoms), filename, []string{"New"}, true}
	}
	C := &CrdR{filename: filename, natoms: natoms}
	var err error
	C.f, err = os.Open(filename)
	if err != nil {
		return nil, Error{UnableToOpen + ": " + err.Error(), filename, []string{"New"}, true}
	}
	C.r = bufio.NewReader(C.f)
	if _, err := C.r.ReadString('\n'); err != nil {
		C.f.Close()
		return nil, Error{WrongFormat + ": no title line", filename, []string{"New"}, true}
	}
	//the first line of data must decode, or this is not a crd file.
	line, err := C.line()
	if err != nil {
		C.f.Close()
		return nil, Error{WrongFormat + ": no coordinates", filename, []string{"New"}, true}
	}
	if _, err := numbers(line); err != nil {
		C.f.Close()
		return nil, Error{WrongFormat + ": " + err.Error(), filename, []string{"New"}, true}
	}
	C.unread(line)
	C.readable = true
	return C, nil
}

// numbers decodes a line of 8-column numbers.
func numbers(line string) ([]float64, error) {
	line = strings.TrimRight(line, " \r\n")
	ret := make([]float64, 0, 10)
	for pos := 0; pos < len(line); pos += width {
		end := pos + width
		if end > len(line) {
			end = len(line)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(line[pos:end]), 64)
		if err != nil {
			return nil, fmt.Errorf("can't parse number %q", line[pos:end])
		}
		ret = append(ret, v)
	}
	return ret, nil
}

func (C *CrdR) line() (string, error) {
	if C.held {
		C.held = false
		return C.pending, nil
	}
	s, err := C.r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(s) > 0 {
			return s, nil
		}
		return "", err
	}
	return s, nil
}

func (C *CrdR) unread(line string) {
	C.pending = line
	C.held = true
}

// Readable returns true if the object is ready to be read from.
func (C *CrdR) Readable() bool {
	return C.readable
}

// Len returns the number of atoms per frame.
func (C *CrdR) Len() int {
	return C.natoms
}

// Next reads the next frame into coords, if not nil. Each frame starts on a
// new line. If the frame is followed by a line with the 3 box lengths, they
// go to the diagonal of the first element of box, if given.
func (C *CrdR) Next(coords *v3.Matrix, box ...[]float64) error {
	if !C.readable {
		return Error{TrajUnIniRead, C.filename, []string{"Next"}, true}
	}
	need := 3 * C.natoms
	read := 0
	for read < need {
		line, err := C.line()
		if errors.Is(err, io.EOF) {
			if read == 0 {
				C.Close()
				return newlastFrameError(C.filename, "Next")
			}
			return Error{fmt.Sprintf("%s: frame %d truncated after %d values", ReadError, C.frames+1, read), C.filename, []string{"Next"}, true}
		}
		if err != nil {
			return Error{ReadError + ": " + err.Error(), C.filename, []string{"Next"}, true}
		}
		if read == 0 && strings.TrimSpace(line) == "" {
			continue
		}
		vals, err := numbers(line)
		if err != nil {
			return Error{fmt.Sprintf("frame %d: %s", C.frames+1, err), C.filename, []string{"Next"}, true}
		}
		if read+len(vals) > need {
			return Error{fmt.Sprintf("frame %d: %d values, expected %d", C.frames+1, read+len(vals), need), C.filename, []string{"Next"}, true}
		}
		if coords != nil {
			for i, v := range vals {
				coords.Set((read+i)/3, (read+i)%3, v*A2nm)
			}
		}
		read += len(vals)
	}
	//a box line has 3 values, where the next frame would start with more.
	line, err := C.line()
	if err == nil {
		vals, nerr := numbers(line)
		if nerr == nil && len(vals) == 3 && need > 3 {
			if len(box) > 0 && len(box[0]) >= 9 {
				box[0][0], box[0][4], box[0][8] = vals[0]*A2nm, vals[1]*A2nm, vals[2]*A2nm
			}
		} else {
			C.unread(line)
		}
	}
	C.frames++
	return nil
}

// Close closes the file. The object can't be used after this call.
func (C *CrdR) Close() {
	if !C.readable {
		return
	}
	C.f.Close()
	C.readable = false
}

//Errors

// Error is the general structure for Crd trajectory errors. It fullfills cg.Error and cg.TrajError
type Error struct {
	message  string
	filename string
	deco     []string
	critical bool
}

func (err Error) Error() string {
	return fmt.Sprintf("Old Amber trajectory file %s error: %s", err.filename, err.message)
}

// Decorate Adds new information to the error
func (E Error) Decorate(deco string) []string {
	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

func (err Error) FileName() string { return err.filename }

func (err Error) Format() string { return "Old Amber" }

func (err Error) Critical() bool { return err.critical }

const (
	TrajUnIniRead = "Traj object uninitialized to read"
	ReadError     = "Error reading frame"
	UnableToOpen  = "Unable to open file"
	WrongFormat   = "Wrong format in the trajectory file"
)

// lastFrameError implements cg.LastFrameError
type lastFrameError struct {
	deco     []string
	fileName string
}

func (E lastFrameError) NormalLastFrameTermination() {}

func (E lastFrameError) FileName() string { return E.fileName }

func (E lastFrameError) Error() string { return "EOF" }

func (E lastFrameError) Critical() bool { return false }

func (E lastFrameError) Format() string { return "Old Amber" }

func (E lastFrameError) Decorate(deco string) []string {
	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

func newlastFrameError(filename string, caller string) *lastFrameError {
	e := new(lastFrameError)
	e.fileName = filename
	e.deco = []string{caller}
	return e
}
