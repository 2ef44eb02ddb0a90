/*
 * frame.go, part of gocg.
 *
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
 *
 */

package cg

import (
	"fmt"
	"strconv"

	v3 "github.com/rmera/gocg/v3"
)

// Atom contains the identity of an atom (or a bead, in a CG frame).
// Coordinates are not stored in the atom but in the Frame that owns it.
type Atom struct {
	Name   string
	Num    int //index within the residue
	Index  int //index in the coordinates of the frame
	Type   string
	Symbol string
	Mass   float64
	Charge float64
}

// Copy returns a copy of the atom.
func (A *Atom) Copy() *Atom {
	ret := *A
	return &ret
}

// Residue is an ordered set of atoms. The order of the atoms is
// the authoritative one, and it is the same for all frames in a trajectory.
type Residue struct {
	Name  string
	Num   int
	atoms []*Atom
	names map[string]int
}

// NewResidue returns an empty residue with the given name and number.
func NewResidue(name string, num int) *Residue {
	return &Residue{Name: name, Num: num, names: make(map[string]int)}
}

// Add appends at to the residue, setting its Num, and updates the name lookup.
func (R *Residue) Add(at *Atom) {
	if R.names == nil {
		R.names = make(map[string]int)
	}
	at.Num = len(R.atoms)
	R.atoms = append(R.atoms, at)
	R.names[at.Name] = at.Num
}

// Len returns the number of atoms in the residue.
func (R *Residue) Len() int {
	return len(R.atoms)
}

// AtomN returns the ith atom of the residue, or nil if i is out of range.
func (R *Residue) AtomN(i int) *Atom {
	if i < 0 || i >= len(R.atoms) {
		return nil
	}
	return R.atoms[i]
}

// Atom returns the atom with the given name. If no such atom exists and key
// is an integer, the atom at that position is returned instead.
func (R *Residue) Atom(key string) (*Atom, bool) {
	if i, ok := R.names[key]; ok {
		return R.atoms[i], true
	}
	if i, err := strconv.Atoi(key); err == nil {
		if at := R.AtomN(i); at != nil {
			return at, true
		}
	}
	return nil, false
}

// Atoms returns the slice of atoms of the residue. It should not be modified.
func (R *Residue) Atoms() []*Atom {
	return R.atoms
}

func (R *Residue) String() string {
	return fmt.Sprintf("<Residue %s %d with %d atoms>", R.Name, R.Num, len(R.atoms))
}

// Frame is a snapshot of a system: its residues, the coordinates of all its atoms
// (in nm), the box and the simulation time.
type Frame struct {
	Name     string
	Number   int
	Time     float64
	Box      [3]float64
	Coords   *v3.Matrix
	residues []*Residue
	atoms    []*Atom
	natoms   int
}

// NewFrame returns an empty frame with room for natoms atoms.
func NewFrame(name string, natoms int) *Frame {
	F := new(Frame)
	F.Name = name
	F.natoms = natoms
	if natoms > 0 {
		F.Coords = v3.Zeros(natoms)
	}
	F.atoms = make([]*Atom, 0, natoms)
	return F
}

// Len returns the number of atoms that the frame holds.
func (F *Frame) Len() int {
	return F.natoms
}

// Atom returns the ith atom in the frame, counting over all residues.
func (F *Frame) Atom(i int) *Atom {
	return F.atoms[i]
}

// Complete returns an error if fewer atoms than the frame size have been added.
func (F *Frame) Complete() error {
	if len(F.atoms) != F.natoms {
		return fmt.Errorf("frame %s declares %d atoms but %d were read", F.Name, F.natoms, len(F.atoms))
	}
	return nil
}

// AppendAtom adds an atom to the frame. A new residue is started when resnum
// differs from the number of the last residue.
func (F *Frame) AppendAtom(at *Atom, resname string, resnum int) error {
	if len(F.atoms) >= F.natoms {
		return fmt.Errorf("frame %s can't hold more than %d atoms", F.Name, F.natoms)
	}
	var last *Residue
	if len(F.residues) > 0 {
		last = F.residues[len(F.residues)-1]
	}
	if last == nil || last.Num != resnum {
		last = NewResidue(resname, resnum)
		F.residues = append(F.residues, last)
	}
	at.Index = len(F.atoms)
	last.Add(at)
	F.atoms = append(F.atoms, at)
	return nil
}

// AddResidue appends a whole residue to the frame, assigning coordinate
// indexes to its atoms.
func (F *Frame) AddResidue(R *Residue) error {
	if len(F.atoms)+R.Len() > F.natoms {
		return fmt.Errorf("frame %s can't hold more than %d atoms", F.Name, F.natoms)
	}
	for _, at := range R.atoms {
		at.Index = len(F.atoms)
		F.atoms = append(F.atoms, at)
	}
	F.residues = append(F.residues, R)
	return nil
}

// NResidues returns the number of residues in the frame.
func (F *Frame) NResidues() int {
	return len(F.residues)
}

// Residue returns the ith residue of the frame.
func (F *Frame) Residue(i int) *Residue {
	return F.residues[i]
}

// Residues returns the residues of the frame. The slice should not be modified.
func (F *Frame) Residues() []*Residue {
	return F.residues
}

// Coord returns a view of the coordinates of at. Changes to the view
// change the frame.
func (F *Frame) Coord(at *Atom) *v3.Matrix {
	return F.Coords.VecView(at.Index)
}

// CopyStructure returns a new frame with copies of the residues and atoms
// of the receiver, and a copy of its coordinates, box and time.
func (F *Frame) CopyStructure() *Frame {
	ret := NewFrame(F.Name, F.natoms)
	ret.Number = F.Number
	ret.Time = F.Time
	ret.Box = F.Box
	for _, r := range F.residues {
		nr := NewResidue(r.Name, r.Num)
		for _, at := range r.atoms {
			nr.Add(at.Copy())
		}
		ret.AddResidue(nr)
	}
	if F.Coords != nil {
		ret.Coords.Copy(F.Coords)
	}
	return ret
}

// SetCoords overwrites the coordinates of the frame with those in coords,
// which must have the same number of vectors.
func (F *Frame) SetCoords(coords *v3.Matrix) error {
	if coords.NVecs() != F.natoms {
		return fmt.Errorf("frame %s has %d atoms, got %d coordinates", F.Name, F.natoms, coords.NVecs())
	}
	F.Coords.Copy(coords)
	return nil
}

// Window holds a residue with its previous and next neighbors. Either
// neighbor can be nil at the ends of the residue sequence.
type Window struct {
	Prev *Residue
	Cur  *Residue
	Next *Residue
}

// Sliding returns, for each residue in res, a Window with the residue
// and its neighbors. Only the first Prev and the last Next are nil.
func Sliding(res []*Residue) []Window {
	ret := make([]Window, len(res))
	for i, r := range res {
		ret[i].Cur = r
		if i > 0 {
			ret[i].Prev = res[i-1]
		}
		if i < len(res)-1 {
			ret[i].Next = res[i+1]
		}
	}
	return ret
}

// Windows returns the sliding residue windows of the frame.
func (F *Frame) Windows() []Window {
	return Sliding(F.residues)
}
