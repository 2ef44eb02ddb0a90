/*
 * source_test.go, part of gocg.
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

package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"path/filepath"
	"testing"

	cg "github.com/rmera/gocg"
	"github.com/rmera/gocg/traj/dcd"
	"github.com/rmera/gocg/traj/gro"
	"github.com/rmera/gocg/traj/pdb"
	"github.com/rmera/gocg/traj/stf"
	v3 "github.com/rmera/gocg/v3"
)

const (
	nres    = 221
	nframes = 11
)

// waterBox builds a frame with nres waters, 663 atoms.
func waterBox(Te *testing.T) *cg.Frame {
	Te.Helper()
	F := cg.NewFrame("water box", nres*3)
	for r := 0; r < nres; r++ {
		for j, name := range []string{"OW", "HW1", "HW2"} {
			if err := F.AppendAtom(&cg.Atom{Name: name}, "SOL", r+1); err != nil {
				Te.Fatal(err)
			}
			F.Coords.Set(r*3+j, 0, 0.01*float64(r))
			F.Coords.Set(r*3+j, 1, 0.1*float64(j))
			F.Coords.Set(r*3+j, 2, 1)
		}
	}
	F.Box = [3]float64{1.89868, 1.89868, 1.89868}
	if err := F.Complete(); err != nil {
		Te.Fatal(err)
	}
	return F
}

func shifted(F *cg.Frame, frame int) *v3.Matrix {
	c := v3.Zeros(F.Len())
	c.Copy(F.Coords)
	for i := 0; i < F.Len(); i++ {
		c.Set(i, 2, 1+0.1*float64(frame))
	}
	return c
}

// writeSystem writes a GRO topology, and 11-frame GRO, STF and DCD
// trajectories for it. It returns the file names.
func writeSystem(Te *testing.T) (top, grotraj, stftraj, dcdtraj string) {
	Te.Helper()
	dir := Te.TempDir()
	F := waterBox(Te)
	top = filepath.Join(dir, "water.gro")
	if err := gro.WriteFrame(top, F); err != nil {
		Te.Fatal(err)
	}
	grotraj = filepath.Join(dir, "traj.gro")
	stftraj = filepath.Join(dir, "traj.stf")
	dcdtraj = filepath.Join(dir, "traj.dcd")
	gw, err := gro.NewWriter(grotraj, F.Len())
	if err != nil {
		Te.Fatal(err)
	}
	sw, err := stf.NewWriter(stftraj, F.Len(), map[string]string{"dt": "1"})
	if err != nil {
		Te.Fatal(err)
	}
	dw, err := dcd.NewWriter(dcdtraj, F.Len())
	if err != nil {
		Te.Fatal(err)
	}
	box := []float64{F.Box[0], 0, 0, 0, F.Box[1], 0, 0, 0, F.Box[2]}
	for i := 0; i < nframes; i++ {
		c := shifted(F, i)
		F.SetCoords(c)
		F.Time = float64(i)
		if err := gw.WFrame(F); err != nil {
			Te.Fatal(err)
		}
		if err := sw.WNext(c, box); err != nil {
			Te.Fatal(err)
		}
		if err := dw.WNext(c, box); err != nil {
			Te.Fatal(err)
		}
	}
	gw.Close()
	sw.Close()
	dw.Close()
	return
}

func readAll(Te *testing.T, r Reader) int {
	Te.Helper()
	f, err := r.InitialStructure()
	if err != nil {
		Te.Fatal(err)
	}
	if f.Len() != 663 || f.NResidues() != 221 {
		Te.Fatalf("%d atoms and %d residues", f.Len(), f.NResidues())
	}
	read := 0
	for {
		err := r.Next(f)
		if err != nil {
			if !cg.IsLastFrame(err) {
				Te.Fatal(err)
			}
			break
		}
		z := f.Coords.At(100, 2)
		if d := z - (1 + 0.1*float64(read)); d > 1e-3 || d < -1e-3 {
			Te.Errorf("frame %d: z is %v", read, z)
		}
		if f.Number != read {
			Te.Errorf("frame %d numbered %d", read, f.Number)
		}
		read++
	}
	return read
}

func TestOpenBackends(Te *testing.T) {
	top, grotraj, stftraj, dcdtraj := writeSystem(Te)
	for _, c := range []struct {
		traj    string
		backend string
	}{{grotraj, "gro"}, {stftraj, "stf"}, {dcdtraj, "dcd"}} {
		r, err := Open(top, c.traj, "")
		if err != nil {
			Te.Fatalf("%s: %v", c.backend, err)
		}
		if r.NAtoms() != 663 {
			Te.Errorf("%s: %d atoms", c.backend, r.NAtoms())
		}
		if n := readAll(Te, r); n != nframes {
			Te.Errorf("%s: read %d frames, expected %d", c.backend, n, nframes)
		}
		//a second pass gives the same frames
		if err := r.Rewind(); err != nil {
			Te.Fatal(err)
		}
		if n := readAll(Te, r); n != nframes {
			Te.Errorf("%s: read %d frames after rewinding", c.backend, n)
		}
		r.Close()
	}
}

func TestTopologyOnly(Te *testing.T) {
	top, _, _, _ := writeSystem(Te)
	r, err := Open(top, "", "")
	if err != nil {
		Te.Fatal(err)
	}
	defer r.Close()
	f, _ := r.InitialStructure()
	if err := r.Next(f); err != nil {
		Te.Fatal(err)
	}
	if f.Box[0] < 1.8986 || f.Box[0] > 1.8987 {
		Te.Errorf("box %v", f.Box)
	}
	if err := r.Next(f); !cg.IsLastFrame(err) {
		Te.Errorf("expected the end of the trajectory, got %v", err)
	}
}

func TestNonMatching(Te *testing.T) {
	top, _, _, _ := writeSystem(Te)
	small := filepath.Join(Te.TempDir(), "small.stf")
	sw, err := stf.NewWriter(small, 660, nil)
	if err != nil {
		Te.Fatal(err)
	}
	if err := sw.WNext(v3.Zeros(660)); err != nil {
		Te.Fatal(err)
	}
	sw.Close()
	_, err = Open(top, small, "")
	var nm *cg.NonMatchingSystemError
	if !errors.As(err, &nm) {
		Te.Fatalf("expected a NonMatchingSystemError, got %v", err)
	}
	if nm.TopologyAtoms != 663 || nm.TrajectoryAtoms != 660 {
		Te.Errorf("wrong counts in %v", nm)
	}
}

func TestUnsupported(Te *testing.T) {
	top, _, _, _ := writeSystem(Te)
	junk := filepath.Join(Te.TempDir(), "traj.xyz")
	if err := os.WriteFile(junk, []byte("3\n\nO 0 0 0\n"), 0o644); err != nil {
		Te.Fatal(err)
	}
	_, err := Open(top, junk, "")
	if !errors.Is(err, cg.ErrUnsupportedFormat) {
		Te.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
	//right extension, wrong content
	fake := filepath.Join(Te.TempDir(), "traj.dcd")
	if err := os.WriteFile(fake, []byte("not a dcd file at all"), 0o644); err != nil {
		Te.Fatal(err)
	}
	_, err = Open(top, fake, "")
	if !errors.Is(err, cg.ErrUnsupportedFormat) {
		Te.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
	if _, err := Open(top, "", "xtc"); err == nil {
		Te.Error("unknown backend name should fail")
	}
}

func TestFrameReaderRange(Te *testing.T) {
	top, grotraj, _, _ := writeSystem(Te)
	r, err := Open(top, grotraj, "gro")
	if err != nil {
		Te.Fatal(err)
	}
	defer r.Close()
	fr, err := NewFrameReader(r, 2, 5)
	if err != nil {
		Te.Fatal(err)
	}
	var zs []float64
	for {
		ok, err := fr.Next()
		if err != nil {
			Te.Fatal(err)
		}
		if !ok {
			break
		}
		zs = append(zs, fr.Frame().Coords.At(0, 2))
	}
	if len(zs) != 3 || fr.Count() != 3 || !fr.Exhausted() {
		Te.Fatalf("got %d frames (%d counted): %v", len(zs), fr.Count(), zs)
	}
	if zs[0] < 1.199 || zs[0] > 1.201 {
		Te.Errorf("first frame in range has z %v, expected 1.2", zs[0])
	}
	if _, err := NewFrameReader(r, 5, 2); err == nil {
		Te.Error("end before begin should fail")
	}
}

// writeAmber writes the water box as a multi-model PDB and as an old
// Amber trajectory with box lines, both in Å.
func writeAmber(Te *testing.T) (pdbtraj, crdtraj string) {
	Te.Helper()
	dir := Te.TempDir()
	F := waterBox(Te)
	var p, c strings.Builder
	fmt.Fprintf(&p, "CRYST1%9.3f%9.3f%9.3f  90.00  90.00  90.00 P 1           1\n", F.Box[0]*10, F.Box[1]*10, F.Box[2]*10)
	c.WriteString("water box\n")
	for i := 0; i < nframes; i++ {
		coords := shifted(F, i)
		fmt.Fprintf(&p, "MODEL     %4d\n", i+1)
		n := 0
		for _, r := range F.Residues() {
			for _, at := range r.Atoms() {
				v := coords.VecView(at.Index)
				fmt.Fprintf(&p, "ATOM  %5d %-4s %-4s %4d    %8.3f%8.3f%8.3f  1.00  0.00           %s\n", at.Index+1, at.Name, r.Name, r.Num, v.At(0, 0)*10, v.At(0, 1)*10, v.At(0, 2)*10, at.Name[:1])
				for j := 0; j < 3; j++ {
					fmt.Fprintf(&c, "%8.3f", v.At(0, j)*10)
					n++
					if n%10 == 0 {
						c.WriteString("\n")
					}
				}
			}
		}
		if n%10 != 0 {
			c.WriteString("\n")
		}
		fmt.Fprintf(&c, "%8.3f%8.3f%8.3f\n", F.Box[0]*10, F.Box[1]*10, F.Box[2]*10)
		p.WriteString("ENDMDL\n")
	}
	p.WriteString("END\n")
	pdbtraj = filepath.Join(dir, "traj.pdb")
	crdtraj = filepath.Join(dir, "traj.crd")
	if err := os.WriteFile(pdbtraj, []byte(p.String()), 0o644); err != nil {
		Te.Fatal(err)
	}
	if err := os.WriteFile(crdtraj, []byte(c.String()), 0o644); err != nil {
		Te.Fatal(err)
	}
	return
}

func TestAmberFormats(Te *testing.T) {
	top, _, _, _ := writeSystem(Te)
	pdbtraj, crdtraj := writeAmber(Te)
	for _, c := range []struct {
		top, traj, backend string
	}{{top, pdbtraj, "pdb"}, {top, crdtraj, "crd"}, {pdbtraj, "", "pdb"}, {pdbtraj, crdtraj, "crd"}} {
		r, err := Open(c.top, c.traj, "")
		if err != nil {
			Te.Fatalf("%s %s: %v", c.top, c.traj, err)
		}
		if n := readAll(Te, r); n != nframes {
			Te.Errorf("%s %s: read %d frames, expected %d", c.top, c.traj, n, nframes)
		}
		if err := r.Rewind(); err != nil {
			Te.Fatal(err)
		}
		f, _ := r.InitialStructure()
		if err := r.Next(f); err != nil {
			Te.Fatal(err)
		}
		if f.Box[2] < 1.898 || f.Box[2] > 1.899 {
			Te.Errorf("%s %s: box %v", c.top, c.traj, f.Box)
		}
		r.Close()
	}
	F, err := pdb.ReadFrame(pdbtraj)
	if err != nil {
		Te.Fatal(err)
	}
	at := F.Residue(0).AtomN(0)
	if at.Symbol != "O" || at.Mass < 15.99 || at.Mass > 16.0 {
		Te.Errorf("first atom %+v", at)
	}
}

func TestMissingFiles(Te *testing.T) {
	top, grotraj, _, _ := writeSystem(Te)
	missing := filepath.Join(Te.TempDir(), "missing.dcd")
	for _, c := range [][2]string{{top, missing}, {filepath.Join(Te.TempDir(), "missing.gro"), grotraj}} {
		_, err := Open(c[0], c[1], "")
		if !errors.Is(err, fs.ErrNotExist) {
			Te.Errorf("%v: expected a file not found error, got %v", c, err)
		}
		if errors.Is(err, cg.ErrUnsupportedFormat) {
			Te.Errorf("%v: a missing file is not an unsupported format: %v", c, err)
		}
	}
	if _, err := Open(top, missing, "dcd"); !errors.Is(err, fs.ErrNotExist) {
		Te.Errorf("expected a file not found error from the named reader, got %v", err)
	}
}
