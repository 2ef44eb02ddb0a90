/*
 * gro.go, part of gocg.
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

// Package gro reads and writes GROMACS GRO files, both as topologies (the
// residues and atoms of the first frame) and as multi-frame trajectories.
// Coordinates and boxes are in nm, as in the files.
package gro

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	cg "github.com/rmera/gocg"
	v3 "github.com/rmera/gocg/v3"
)

// atomFormat is the layout of a GRO atom line, without velocities.
const atomFormat = "I5,2A5,5X,3F8"

var atomDecoder *FixedFormat

func init() {
	var err error
	atomDecoder, err = NewFixedFormat(atomFormat)
	if err != nil {
		panic(err.Error())
	}
}

// atomLine is the decoded content of a GRO atom line.
type atomLine struct {
	resnum  int
	resname string
	name    string
	x, y, z float64
}

func parseAtom(line string) (atomLine, error) {
	var ret atomLine
	fields, err := atomDecoder.Parse(line)
	if err != nil {
		return ret, err
	}
	ret.resnum = fields[0].(int)
	ret.resname = fields[1].(string)
	ret.name = fields[2].(string)
	ret.x = fields[3].(float64)
	ret.y = fields[4].(float64)
	ret.z = fields[5].(float64)
	return ret, nil
}

// parseBox reads a GRO box line into box, a 9-element slice with the
// box vectors, row by row. Only the first 3 numbers are required.
func parseBox(line string, box []float64) error {
	f := strings.Fields(line)
	if len(f) < 3 {
		return fmt.Errorf("box line with %d fields: %q", len(f), line)
	}
	if len(f) > 9 {
		f = f[:9]
	}
	vals := make([]float64, 9)
	for i, v := range f {
		var err error
		vals[i], err = strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("can't parse box value %q", v)
		}
	}
	//GRO order: v1(x) v2(y) v3(z) v1(y) v1(z) v2(x) v2(z) v3(x) v3(y)
	order := []int{0, 4, 8, 1, 2, 3, 5, 6, 7}
	for i, j := range order {
		box[j] = vals[i]
	}
	return nil
}

// parseTime obtains the time from a GRO title line, such as the ones
// written by GROMACS ("... t= 10.00000 step= 5000").
func parseTime(title string) (float64, bool) {
	i := strings.Index(title, "t=")
	if i < 0 {
		return 0, false
	}
	f := strings.Fields(title[i+2:])
	if len(f) == 0 {
		return 0, false
	}
	t, err := strconv.ParseFloat(f[0], 64)
	if err != nil {
		return 0, false
	}
	return t, true
}

// readLine returns the next line of r without the trailing newline. A last line without a newline is
// returned normally.
func readLine(r *bufio.Reader) (string, error) {
	s, err := r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(s) > 0 {
			return strings.TrimRight(s, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(s, "\r\n"), nil
}

// frameHeader reads the title and atom count of a frame. io.EOF is returned
// unchanged if there are no more frames, or only blank lines are left.
func frameHeader(r *bufio.Reader) (string, int, error) {
	title, err := readLine(r)
	if err != nil {
		return "", 0, err
	}
	nat, err := readLine(r)
	if err != nil {
		return "", 0, fmt.Errorf("missing atom count: %w", err)
	}
	if strings.TrimSpace(title) == "" && strings.TrimSpace(nat) == "" {
		return "", 0, blankTail(r)
	}
	natoms, err := strconv.Atoi(strings.TrimSpace(nat))
	if err != nil || natoms < 0 {
		return "", 0, fmt.Errorf("can't read the number of atoms from %q", nat)
	}
	return title, natoms, nil
}

// blankTail consumes the rest of r and returns io.EOF if it holds only
// blank lines.
func blankTail(r *bufio.Reader) error {
	for {
		line, err := readLine(r)
		if err != nil {
			return err
		}
		if strings.TrimSpace(line) != "" {
			return fmt.Errorf("unexpected data after blank lines: %q", line)
		}
	}
}

// ReadFrame reads the first frame of a GRO file, with its residues and atoms.
// A new residue starts each time the residue number changes.
func ReadFrame(filename string) (*cg.Frame, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, Error{UnableToOpen + ": " + err.Error(), filename, []string{"ReadFrame"}, true}
	}
	defer f.Close()
	F, err := DecodeFrame(bufio.NewReader(f))
	if err != nil {
		return nil, Error{err.Error(), filename, []string{"ReadFrame"}, true}
	}
	return F, nil
}

// DecodeFrame reads one GRO frame from r, with its residues and atoms.
func DecodeFrame(r *bufio.Reader) (*cg.Frame, error) {
	title, natoms, err := frameHeader(r)
	if err != nil {
		return nil, err
	}
	F := cg.NewFrame(strings.TrimSpace(title), natoms)
	if t, ok := parseTime(title); ok {
		F.Time = t
	}
	for i := 0; i < natoms; i++ {
		line, err := readLine(r)
		if err != nil {
			return nil, fmt.Errorf("atom %d: %w", i+1, err)
		}
		a, err := parseAtom(line)
		if err != nil {
			return nil, fmt.Errorf("atom %d: %w", i+1, err)
		}
		at := &cg.Atom{Name: a.name}
		if err := F.AppendAtom(at, a.resname, a.resnum); err != nil {
			return nil, err
		}
		F.Coords.Set(i, 0, a.x)
		F.Coords.Set(i, 1, a.y)
		F.Coords.Set(i, 2, a.z)
	}
	boxline, err := readLine(r)
	if err != nil {
		return nil, fmt.Errorf("missing box line: %w", err)
	}
	box := make([]float64, 9)
	if err := parseBox(boxline, box); err != nil {
		return nil, err
	}
	F.Box = [3]float64{box[0], box[4], box[8]}
	return F, F.Complete()
}

// GroR reads the frames of a, possibly multi-frame, GRO file. It implements cg.Traj.
type GroR struct {
	f        *os.File
	r        *bufio.Reader
	natoms   int
	filename string
	readable bool
	time     float64
	frames   int
}

// New opens the GRO file filename for reading frames. The number of atoms
// of the first frame is the one expected for every frame.
func New(filename string) (*GroR, error) {
	G := &GroR{filename: filename}
	var err error
	G.f, err = os.Open(filename)
	if err != nil {
		return nil, Error{UnableToOpen + ": " + err.Error(), filename, []string{"New"}, true}
	}
	G.r = bufio.NewReader(G.f)
	//peek the atom count without consuming the frame.
	first, err := G.r.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) {
		G.f.Close()
		return nil, Error{err.Error(), filename, []string{"New"}, true}
	}
	lines := strings.SplitN(string(first), "\n", 3)
	if len(lines) < 3 {
		G.f.Close()
		return nil, Error{WrongFormat + ": no atom count", filename, []string{"New"}, true}
	}
	G.natoms, err = strconv.Atoi(strings.TrimSpace(lines[1]))
	if err != nil || G.natoms <= 0 {
		G.f.Close()
		return nil, Error{WrongFormat + ": bad atom count " + lines[1], filename, []string{"New"}, true}
	}
	//the first atom line must decode, or this is not a GRO file.
	if _, err := parseAtom(strings.SplitN(lines[2], "\n", 2)[0]); err != nil {
		G.f.Close()
		return nil, Error{WrongFormat + ": " + err.Error(), filename, []string{"New"}, true}
	}
	G.readable = true
	return G, nil
}

// Readable returns true if frames can be read from the object.
func (G *GroR) Readable() bool {
	return G.readable
}

// Len returns the number of atoms per frame.
func (G *GroR) Len() int {
	return G.natoms
}

// Time returns the time, in ps, of the last frame read, taken from the title of the frame.
func (G *GroR) Time() float64 {
	return G.time
}

// Next reads the next frame into coords, if not nil, and the box into
// the first element of box, if given, with at least 9 elements.
func (G *GroR) Next(coords *v3.Matrix, box ...[]float64) error {
	if !G.readable {
		return Error{TrajUnIniRead, G.filename, []string{"Next"}, true}
	}
	title, natoms, err := frameHeader(G.r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			G.Close()
			return newlastFrameError(G.filename, "Next")
		}
		return Error{err.Error(), G.filename, []string{"Next"}, true}
	}
	if natoms != G.natoms {
		return Error{fmt.Sprintf("frame %d has %d atoms, expected %d", G.frames+1, natoms, G.natoms), G.filename, []string{"Next"}, true}
	}
	if t, ok := parseTime(title); ok {
		G.time = t
	}
	for i := 0; i < natoms; i++ {
		line, err := readLine(G.r)
		if err != nil {
			return Error{fmt.Sprintf("%s: atom %d: %s", ReadError, i+1, err), G.filename, []string{"Next"}, true}
		}
		if coords == nil {
			continue
		}
		a, err := parseAtom(line)
		if err != nil {
			return Error{fmt.Sprintf("atom %d: %s", i+1, err), G.filename, []string{"Next"}, true}
		}
		coords.Set(i, 0, a.x)
		coords.Set(i, 1, a.y)
		coords.Set(i, 2, a.z)
	}
	boxline, err := readLine(G.r)
	if err != nil {
		return Error{ReadError + ": missing box line", G.filename, []string{"Next"}, true}
	}
	if len(box) > 0 && len(box[0]) >= 9 {
		if err := parseBox(boxline, box[0]); err != nil {
			return Error{err.Error(), G.filename, []string{"Next"}, true}
		}
	}
	G.frames++
	return nil
}

// Close closes the file. The object can't be used after this call.
func (G *GroR) Close() {
	if !G.readable {
		return
	}
	G.f.Close()
	G.readable = false
}

//Errors

// Error is the general structure for GRO errors. It fullfills  cg.Error and cg.TrajError
type Error struct {
	message  string
	filename string
	deco     []string
	critical bool
}

func (err Error) Error() string {
	return fmt.Sprintf("gro file %s error: %s", err.filename, err.message)
}

// Decorate Adds new information to the error
func (E Error) Decorate(deco string) []string {
	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

// FileName returns the file to which the failing trajectory was associated
func (err Error) FileName() string { return err.filename }

// Format returns the format of the file (always "gro") associated to the error
func (err Error) Format() string { return "gro" }

// Critical returns true if the error is critical, false otherwise
func (err Error) Critical() bool { return err.critical }

const (
	TrajUnIniRead  = "Traj object uninitialized to read"
	TrajUnIniWrite = "Traj object uninitialized to write"
	ReadError      = "Error reading frame"
	UnableToOpen   = "Unable to open file"
	WrongFormat    = "Wrong format in the GRO file"
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

func (E lastFrameError) Format() string { return "gro" }

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
