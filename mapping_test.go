/*
 * mapping_test.go, part of gocg.
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

package cg

import (
	"errors"
	"testing"

	v3 "github.com/rmera/gocg/v3"
	"gonum.org/v1/gonum/floats/scalar"
)

func waterFrame(Te *testing.T) *Frame {
	F := NewFrame("water and ion", 4)
	for _, n := range []string{"OW", "HW1", "HW2"} {
		if err := F.AppendAtom(&Atom{Name: n}, "SOL", 1); err != nil {
			Te.Fatal(err)
		}
	}
	F.AppendAtom(&Atom{Name: "NA"}, "NA", 2)
	c, _ := v3.NewMatrix([]float64{
		0, 0, 0,
		0.1, 0, 0,
		0, 0.1, 0,
		1, 1, 1,
	})
	F.SetCoords(c)
	F.Box = [3]float64{3, 3, 3}
	F.Time = 12.5
	return F
}

func TestMapper(Te *testing.T) {
	aa := waterFrame(Te)
	m := NewMapping()
	m.Add("SOL", &BeadSpec{Name: "W", Type: "P4", Atoms: []string{"OW", "HW1", "HW2"}})
	for _, center := range []Center{GeomCenter, MassCenter} {
		mp, err := NewMapper(m, aa, center)
		if err != nil {
			Te.Fatal(err)
		}
		cgf := mp.Frame()
		if cgf.Len() != 1 || cgf.NResidues() != 1 {
			Te.Fatalf("the NA residue should be dropped, got %d beads", cgf.Len())
		}
		if err := mp.Apply(aa, cgf); err != nil {
			Te.Fatal(err)
		}
		x := cgf.Coords.At(0, 0)
		switch center {
		case GeomCenter:
			if !scalar.EqualWithinAbs(x, 0.1/3, 1e-12) {
				Te.Errorf("wrong geometric center x %f", x)
			}
		case MassCenter:
			want := 0.1 * 1.008 / (16 + 2*1.008)
			if !scalar.EqualWithinAbs(x, want, 1e-12) {
				Te.Errorf("wrong center of mass x %f, expected %f", x, want)
			}
		}
		if cgf.Box != aa.Box || cgf.Time != aa.Time {
			Te.Error("box and time should be copied to the CG frame")
		}
		bead := cgf.Atom(0)
		if bead.Type != "P4" || !scalar.EqualWithinAbs(bead.Mass, 18.016, 1e-9) {
			Te.Errorf("wrong bead %+v", bead)
		}
	}
}

func TestMapperUnknownAtom(Te *testing.T) {
	m := NewMapping()
	m.Add("SOL", &BeadSpec{Name: "W", Type: "P4", Atoms: []string{"OW", "HW3"}})
	_, err := NewMapper(m, waterFrame(Te), GeomCenter)
	var uerr *UnknownAtomNameError
	if !errors.As(err, &uerr) || uerr.Name != "HW3" {
		Te.Errorf("expected an unknown atom name error for HW3, got %v", err)
	}
}

func TestParseCenter(Te *testing.T) {
	if c, err := ParseCenter("mass"); err != nil || c != MassCenter {
		Te.Error("mass should parse to MassCenter")
	}
	if _, err := ParseCenter("weird"); err == nil {
		Te.Error("unknown centers should be rejected")
	}
}

func TestIdentityMapping(Te *testing.T) {
	aa := waterFrame(Te)
	aa.Atom(0).Mass = 16
	m := IdentityMapping(aa)
	if mols := m.Molecules(); len(mols) != 2 || mols[0] != "SOL" || mols[1] != "NA" {
		Te.Fatalf("wrong molecules %v", mols)
	}
	beads := m.Beads("SOL")
	if len(beads) != 3 || beads[1].Name != "HW1" || beads[0].Mass != 16 {
		Te.Errorf("wrong beads for SOL: %v", beads)
	}
	bs, err := NewBondSet(func() *BondSpecs {
		s := NewBondSpecs()
		s.Add("SOL", "OW", "HW1")
		return s
	}())
	if err != nil {
		Te.Fatal(err)
	}
	if err := bs.Resolve(m); err != nil {
		Te.Fatal(err)
	}
	bs.Apply(aa)
	if v := bs.Bonds("SOL")[0].Values(); len(v) != 1 || !scalar.EqualWithinAbs(v[0], 0.1, 1e-9) {
		Te.Errorf("wrong OW-HW1 length %v", v)
	}
}
