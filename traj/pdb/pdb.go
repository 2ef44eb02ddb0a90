/*
 * pdb.go, part of gocg.
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

// Package pdb reads PDB files, as topologies and as multi-model
// trajectories. Coordinates and box lengths are converted from Å to nm.
package pdb

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	cg "github.com/rmera/gocg"
	"github.com/rmera/gocg/traj/gro"
	v3 "github.com/rmera/gocg/v3"
)

// A2nm converts Å to nm.
const A2nm = 0.1

// atomFormat covers an ATOM/HETATM record up to the z coordinate. The
// residue name takes 4 columns, as some force fields write them.
const atomFormat = "12X,A4,1X,A4,1X,I4,4X,3F8"

var atomDecoder *gro.FixedFormat

func init() {
	var err error
	atomDecoder, err = gro.NewFixedFormat(atomFormat)
	if err != nil {
		panic(err.Error())
	}
}

type atomLine struct {
	name    string
	resname string
	resnum  int
	x, y, z float64
	element string
}

func isAtom(line string) bool {
	return strings.HasPrefix(line, "ATOM  ") || strings.HasPrefix(line, "HETATM")
}

// isEnd returns true for the records that close a model.
func isEnd(line string) bool {
	rec := strings.TrimSpace(line)
	return strings.HasPrefix(rec, "ENDMDL") || rec == "END"
}

func parseAtom(line string) (atomLine, error) {
	var ret atomLine
	fields, err := atomDecoder.Parse(line)
	if err != nil {
		return ret, err
	}
	ret.name = fields[0].(string)
	ret.resname = fields[1].(string)
	ret.resnum = fields[2].(int)
	ret.x = fields[3].(float64) * A2nm
	ret.y = fields[4].(float64) * A2nm
	ret.z = fields[5].(float64) * A2nm
	if len(line) >= 78 {
		ret.element = strings.TrimSpace(line[76:78])
	}
	return ret, nil
}

// parseCryst reads the cell lengths of a CRYST1 record, in nm.
func parseCryst(line string) ([3]float64, error) {
	var ret [3]float64
	if len(line) < 33 {
		return ret, fmt.Errorf("short CRYST1 record %q", line)
	}
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(line[6+9*i:15+9*i]), 64)
		if err != nil {
			return ret, fmt.Errorf("can't parse cell length in %q", line)
		}
		ret[i] = v * A2nm
	}
	return ret, nil
}

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

// ReadFrame reads the first model of a PDB file, with its residues and atoms.
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
	F.Name = filename
	return F, nil
}

// DecodeFrame reads the first model in r.
func DecodeFrame(r *bufio.Reader) (*cg.Frame, error) {
	var atoms []atomLine
	var box [3]float64
	for {
		line, err := readLine(r)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(line, "CRYST1") {
			if box, err = parseCryst(line); err != nil {
				return nil, err
			}
			continue
		}
		if isEnd(line) && len(atoms) > 0 {
			break
		}
		if !isAtom(line) {
			continue
		}
		a, err := parseAtom(line)
		if err != nil {
			return nil, fmt.Errorf("atom %d: %w", len(atoms)+1, err)
		}
		atoms = append(atoms, a)
	}
	if len(atoms) == 0 {
		return nil, fmt.Errorf("%s: no ATOM or HETATM records", WrongFormat)
	}
	F := cg.NewFrame("", len(atoms))
	F.Box = box
	for i, a := range atoms {
		at := &cg.Atom{Name: a.name}
		guess := a.element
		if guess == "" {
			guess = a.name
		}
		if sym, err := cg.SymbolFromName(guess); err == nil {
			at.Symbol = sym
			at.Mass, _ = cg.MassFromName(sym)
		}
		if err := F.AppendAtom(at, a.resname, a.resnum); err != nil {
			return nil, err
		}
		F.Coords.Set(i, 0, a.x)
		F.Coords.Set(i, 1, a.y)
		F.Coords.Set(i, 2, a.z)
	}
	return F, F.Complete()
}

// PDBR reads the models of a PDB file as trajectory frames. It implements cg.Traj.
type PDBR struct {
	f        *os.File
	r        *bufio.Reader
	natoms   int
	filename string
	readable bool
	box      [3]float64
	frames   int
}

// New opens filename and counts the atoms in its first model.
func New(filename string) (*PDBR, error) {
	F, err := ReadFrame(filename)
	if err != nil {
		return nil, err
	}
	P := &PDBR{filename: filename, natoms: F.Len()}
	P.f, err = os.Open(filename)
	if err != nil {
		return nil, Error{UnableToOpen + ": " + err.Error(), filename, []string{"New"}, true}
	}
	P.r = bufio.NewReader(P.f)
	P.readable = true
	return P, nil
}

// Readable returns true if the object is ready to be read from.
func (P *PDBR) Readable() bool {
	return P.readable
}

// Len returns the number of atoms per model.
func (P *PDBR) Len() int {
	return P.natoms
}

// Next reads the next model into coords, if not nil. The last CRYST1 cell
// seen is put in the diagonal of the first element of box, if given.
func (P *PDBR) Next(coords *v3.Matrix, box ...[]float64) error {
	if !P.readable {
		return Error{TrajUnIniRead, P.filename, []string{"Next"}, true}
	}
	n := 0
	for {
		line, err := readLine(P.r)
		if errors.Is(err, io.EOF) {
			if n == 0 {
				P.Close()
				return newlastFrameError(P.filename, "Next")
			}
			break
		}
		if err != nil {
			return Error{ReadError + ": " + err.Error(), P.filename, []string{"Next"}, true}
		}
		if strings.HasPrefix(line, "CRYST1") {
			if P.box, err = parseCryst(line); err != nil {
				return Error{err.Error(), P.filename, []string{"Next"}, true}
			}
			continue
		}
		if isEnd(line) {
			if n > 0 {
				break
			}
			continue
		}
		if !isAtom(line) {
			continue
		}
		if n >= P.natoms {
			return Error{fmt.Sprintf("model %d has more than %d atoms", P.frames+1, P.natoms), P.filename, []string{"Next"}, true}
		}
		if coords != nil {
			a, err := parseAtom(line)
			if err != nil {
				return Error{fmt.Sprintf("model %d, atom %d: %s", P.frames+1, n+1, err), P.filename, []string{"Next"}, true}
			}
			coords.Set(n, 0, a.x)
			coords.Set(n, 1, a.y)
			coords.Set(n, 2, a.z)
		}
		n++
	}
	if n != P.natoms {
		return Error{fmt.Sprintf("model %d has %d atoms, expected %d", P.frames+1, n, P.natoms), P.filename, []string{"Next"}, true}
	}
	if len(box) > 0 && len(box[0]) >= 9 {
		box[0][0], box[0][4], box[0][8] = P.box[0], P.box[1], P.box[2]
	}
	P.frames++
	return nil
}

// Close closes the file. The object can't be used after this call.
func (P *PDBR) Close() {
	if !P.readable {
		return
	}
	P.f.Close()
	P.readable = false
}

//Errors

// Error is the general structure for PDB errors. It fullfills cg.Error and cg.TrajError
type Error struct {
	message  string
	filename string
	deco     []string
	critical bool
}

func (err Error) Error() string {
	return fmt.Sprintf("pdb file %s error: %s", err.filename, err.message)
}

// Decorate Adds new information to the error
func (E Error) Decorate(deco string) []string {
	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

func (err Error) FileName() string { return err.filename }

func (err Error) Format() string { return "pdb" }

func (err Error) Critical() bool { return err.critical }

const (
	TrajUnIniRead = "Traj object uninitialized to read"
	ReadError     = "Error reading model"
	UnableToOpen  = "Unable to open file"
	WrongFormat   = "Wrong format in the PDB file"
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

func (E lastFrameError) Format() string { return "pdb" }

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
