/*
 * frame_test.go, part of gocg.
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
	"testing"

	v3 "github.com/rmera/gocg/v3"
)

// testFrame returns a frame with nres residues named resname, each with the
// atoms in names. Coordinates are all zero.
func testFrame(Te *testing.T, resname string, nres int, names ...string) *Frame {
	F := NewFrame("test", nres*len(names))
	for i := 0; i < nres; i++ {
		for _, n := range names {
			if err := F.AppendAtom(&Atom{Name: n}, resname, i+1); err != nil {
				Te.Fatal(err)
			}
		}
	}
	if err := F.Complete(); err != nil {
		Te.Fatal(err)
	}
	return F
}

func TestAppendAtom(Te *testing.T) {
	F := testFrame(Te, "SOL", 3, "OW", "HW1", "HW2")
	if F.NResidues() != 3 {
		Te.Fatalf("expected 3 residues, got %d", F.NResidues())
	}
	if F.Len() != 9 {
		Te.Errorf("expected 9 atoms, got %d", F.Len())
	}
	at := F.Residue(2).AtomN(1)
	if at.Index != 7 || at.Num != 1 {
		Te.Errorf("wrong indexes for atom %s: Index %d, Num %d", at.Name, at.Index, at.Num)
	}
	if err := F.AppendAtom(&Atom{Name: "X"}, "SOL", 5); err == nil {
		Te.Error("frame should not accept more atoms than declared")
	}
}

func TestResidueLookup(Te *testing.T) {
	R := NewResidue("ALA", 1)
	R.Add(&Atom{Name: "N"})
	R.Add(&Atom{Name: "CA"})
	R.Add(&Atom{Name: "1"}) //a name that looks like an index.
	if at, ok := R.Atom("CA"); !ok || at.Num != 1 {
		Te.Errorf("name lookup failed: %v %v", at, ok)
	}
	//names take precedence over positions
	if at, ok := R.Atom("1"); !ok || at.Name != "1" {
		Te.Errorf("name should win over position: %v", at)
	}
	if at, ok := R.Atom("0"); !ok || at.Name != "N" {
		Te.Errorf("positional lookup failed: %v", at)
	}
	if _, ok := R.Atom("CB"); ok {
		Te.Error("CB should not be found")
	}
	if _, ok := R.Atom("7"); ok {
		Te.Error("out of range position should not be found")
	}
}

func TestSliding(Te *testing.T) {
	F := testFrame(Te, "RES", 5, "A")
	w := F.Windows()
	if len(w) != 5 {
		Te.Fatalf("expected 5 windows, got %d", len(w))
	}
	for i, v := range w {
		if v.Cur != F.Residue(i) {
			Te.Errorf("window %d has the wrong residue", i)
		}
		if (v.Prev == nil) != (i == 0) {
			Te.Errorf("window %d: Prev should be nil only for the first residue", i)
		}
		if (v.Next == nil) != (i == 4) {
			Te.Errorf("window %d: Next should be nil only for the last residue", i)
		}
		if i > 0 && v.Prev != F.Residue(i-1) {
			Te.Errorf("window %d: wrong previous residue", i)
		}
	}
	if len(Sliding(nil)) != 0 {
		Te.Error("no residues should give no windows")
	}
	single := Sliding(F.Residues()[:1])
	if single[0].Prev != nil || single[0].Next != nil {
		Te.Error("a single residue has no neighbors")
	}
}

func TestCoordAndCopy(Te *testing.T) {
	F := testFrame(Te, "SOL", 2, "OW", "HW1")
	c, _ := v3.NewMatrix([]float64{0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 1})
	if err := F.SetCoords(c); err != nil {
		Te.Fatal(err)
	}
	F.Box = [3]float64{2, 2, 2}
	at := F.Residue(1).AtomN(1)
	if F.Coord(at).At(0, 2) != 1 {
		Te.Errorf("wrong coordinates for atom %d: %v", at.Index, F.Coord(at))
	}
	cp := F.CopyStructure()
	cp.Coords.Set(3, 2, 10)
	cp.Residue(0).AtomN(0).Name = "CHANGED"
	if F.Coords.At(3, 2) != 1 || F.Residue(0).AtomN(0).Name != "OW" {
		Te.Error("the copy should not share data with the original")
	}
	if cp.Box != F.Box || cp.NResidues() != 2 {
		Te.Errorf("bad copy: %v %d", cp.Box, cp.NResidues())
	}
	wrong := v3.Zeros(3)
	if err := F.SetCoords(wrong); err == nil {
		Te.Error("SetCoords should fail with the wrong number of vectors")
	}
}
