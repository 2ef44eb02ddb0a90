/*
 * mapping.go, part of gocg.
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
	"strings"

	v3 "github.com/rmera/gocg/v3"
)

// BeadSpec defines a CG bead as a set of atoms of a residue.
type BeadSpec struct {
	Name   string
	Type   string
	Atoms  []string
	Charge float64
	Mass   float64 //if 0, the sum of the masses of the atoms is used.
}

// Mapping is an ordered map from molecule (residue) names to the beads
// that represent them.
type Mapping struct {
	order []string
	beads map[string][]*BeadSpec
}

// NewMapping returns an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{beads: make(map[string][]*BeadSpec)}
}

// Add appends beads to the molecule mol.
func (M *Mapping) Add(mol string, beads ...*BeadSpec) {
	if _, ok := M.beads[mol]; !ok {
		M.order = append(M.order, mol)
	}
	M.beads[mol] = append(M.beads[mol], beads...)
}

// Molecules returns the molecule names in definition order.
func (M *Mapping) Molecules() []string {
	return M.order
}

// Beads returns the beads of mol.
func (M *Mapping) Beads(mol string) []*BeadSpec {
	return M.beads[mol]
}

// Has returns whether mol is in the mapping.
func (M *Mapping) Has(mol string) bool {
	_, ok := M.beads[mol]
	return ok
}

// Center selects how the position of a bead is obtained from its atoms.
type Center int

const (
	GeomCenter Center = iota
	MassCenter
)

// ParseCenter returns the Center corresponding to "geom" or "mass".
func ParseCenter(s string) (Center, error) {
	switch strings.ToLower(s) {
	case "geom", "":
		return GeomCenter, nil
	case "mass":
		return MassCenter, nil
	}
	return GeomCenter, fmt.Errorf("unknown bead center %q, use geom or mass", s)
}

func (c Center) String() string {
	if c == MassCenter {
		return "mass"
	}
	return "geom"
}

type mappedBead struct {
	indexes []int
	masses  []float64
	temp    *v3.Matrix
}

// Mapper transforms atomistic frames into CG frames, using a Mapping.
type Mapper struct {
	center Center
	cg     *Frame
	beads  []*mappedBead
}

// NewMapper builds a Mapper for the residues of the atomistic frame aa.
// Each atom name of each bead is looked up once in every residue of a mapped
// molecule. Residues not in the mapping are not included in the CG frame.
func NewMapper(m *Mapping, aa *Frame, center Center) (*Mapper, error) {
	ret := &Mapper{center: center}
	var residues []*Residue
	for _, res := range aa.Residues() {
		specs := m.Beads(res.Name)
		if specs == nil {
			continue
		}
		cgres := NewResidue(res.Name, res.Num)
		for _, spec := range specs {
			mb := &mappedBead{indexes: make([]int, 0, len(spec.Atoms))}
			totalmass := 0.0
			for _, name := range spec.Atoms {
				at, ok := res.Atom(name)
				if !ok {
					return nil, &UnknownAtomNameError{Molecule: res.Name, Name: name}
				}
				mass := at.Mass
				if mass == 0 {
					//MassFromName returns 0 on failure, which only matters for mass centers.
					mass, _ = MassFromName(at.Name)
				}
				totalmass += mass
				mb.indexes = append(mb.indexes, at.Index)
				mb.masses = append(mb.masses, mass)
			}
			if len(mb.indexes) == 0 {
				return nil, fmt.Errorf("bead %s of molecule %s has no atoms", spec.Name, res.Name)
			}
			if center == MassCenter && totalmass == 0 {
				return nil, fmt.Errorf("bead %s of molecule %s has zero mass", spec.Name, res.Name)
			}
			mb.temp = v3.Zeros(len(mb.indexes))
			beadmass := spec.Mass
			if beadmass == 0 {
				beadmass = totalmass
			}
			cgres.Add(&Atom{Name: spec.Name, Type: spec.Type, Charge: spec.Charge, Mass: beadmass})
			ret.beads = append(ret.beads, mb)
		}
		residues = append(residues, cgres)
	}
	ret.cg = NewFrame(aa.Name, len(ret.beads))
	for _, r := range residues {
		if err := ret.cg.AddResidue(r); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

// Frame returns the CG frame that the mapper fills. Apply must be called
// before its coordinates are meaningful.
func (M *Mapper) Frame() *Frame {
	return M.cg
}

// Len returns the number of beads.
func (M *Mapper) Len() int {
	return len(M.beads)
}

// Apply puts in cgf the bead positions for the atomistic frame aa,
// and copies its box, time and number. cgf is usually the frame returned by
// the Frame method.
func (M *Mapper) Apply(aa, cgf *Frame) error {
	if cgf.Len() != len(M.beads) {
		return fmt.Errorf("CG frame has %d beads, mapper has %d", cgf.Len(), len(M.beads))
	}
	for i, b := range M.beads {
		if err := b.temp.SomeVecsSafe(aa.Coords, b.indexes); err != nil {
			return fmt.Errorf("bead %d: %w", i, err)
		}
		var pos *v3.Matrix
		var err error
		if M.center == MassCenter {
			pos, err = CenterOfMass(b.temp, b.masses)
		} else {
			pos, err = Centroid(b.temp)
		}
		if err != nil {
			return fmt.Errorf("bead %d: %w", i, err)
		}
		cgf.Coords.VecView(i).Copy(pos)
	}
	cgf.Box = aa.Box
	cgf.Time = aa.Time
	cgf.Number = aa.Number
	return nil
}

// IdentityMapping returns a mapping where every atom of each residue of f is
// its own bead, for runs that measure an atomistic frame directly.
// Only the first residue of each name is considered.
func IdentityMapping(f *Frame) *Mapping {
	m := NewMapping()
	for _, res := range f.Residues() {
		if m.Has(res.Name) {
			continue
		}
		for _, at := range res.Atoms() {
			m.Add(res.Name, &BeadSpec{Name: at.Name, Type: at.Type, Atoms: []string{at.Name}, Charge: at.Charge, Mass: at.Mass})
		}
	}
	return m
}
