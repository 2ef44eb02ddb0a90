/*
 * dcd_test.go, part of gocg.
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

package dcd

import (
	"compress/flate"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	cg "github.com/rmera/gocg"
	v3 "github.com/rmera/gocg/v3"
	"gonum.org/v1/gonum/mat"
)

func testCoords(natoms, frame int) *v3.Matrix {
	c := v3.Zeros(natoms)
	for i := 0; i < natoms; i++ {
		c.Set(i, 0, 0.1*float64(i))
		c.Set(i, 1, 1.5-0.05*float64(frame))
		c.Set(i, 2, -0.3*float64(i+frame))
	}
	return c
}

func writeTest(Te *testing.T, fname string, natoms, nframes int, opts WriterOptions) {
	w, err := NewWriter(fname, natoms, opts)
	if err != nil {
		Te.Fatal(err)
	}
	defer w.Close()
	box := []float64{4, 0, 0, 0, 5, 0, 0, 0, 6}
	for i := 0; i < nframes; i++ {
		if err := w.WNext(testCoords(natoms, i), box); err != nil {
			Te.Fatal(err)
		}
	}
}

func readTest(Te *testing.T, fname string, natoms, nframes int, cell bool) {
	r, err := New(fname)
	if err != nil {
		Te.Fatal(err)
	}
	defer r.Close()
	if r.Len() != natoms {
		Te.Fatalf("expected %d atoms, got %d", natoms, r.Len())
	}
	c := v3.Zeros(natoms)
	box := make([]float64, 9)
	read := 0
	for ; ; read++ {
		err := r.Next(c, box)
		if err != nil {
			if !cg.IsLastFrame(err) {
				Te.Fatal(err)
			}
			break
		}
		//float32 precision
		if !mat.EqualApprox(c, testCoords(natoms, read), 1e-5) {
			Te.Errorf("frame %d differs: %v", read, c)
		}
		if cell && (math.Abs(box[0]-4) > 1e-9 || math.Abs(box[8]-6) > 1e-9) {
			Te.Errorf("wrong box %v", box)
		}
		if !cell && box[0] != 0 {
			Te.Errorf("the box should be zero without unit cell, got %v", box)
		}
	}
	if read != nframes {
		Te.Errorf("expected %d frames, got %d", nframes, read)
	}
}

func TestDCDRoundTrip(Te *testing.T) {
	dir := Te.TempDir()
	fname := filepath.Join(dir, "plain.dcd")
	writeTest(Te, fname, 7, 5, WriterOptions{})
	readTest(Te, fname, 7, 5, false)
	r, _ := New(fname)
	if r.NFrames() != 5 {
		Te.Errorf("the header should declare 5 frames, got %d", r.NFrames())
	}
	r.Close()
}

func TestDCDUnitCell(Te *testing.T) {
	dir := Te.TempDir()
	//12 atoms make the coordinate blocks as large as the unit cell block.
	for _, natoms := range []int{3, 12} {
		fname := filepath.Join(dir, "cell.dcd")
		writeTest(Te, fname, natoms, 3, WriterOptions{UnitCell: true, TimeStep: 2})
		readTest(Te, fname, natoms, 3, true)
	}
	fname := filepath.Join(dir, "cell.dcd")
	r, err := New(fname)
	if err != nil {
		Te.Fatal(err)
	}
	defer r.Close()
	r.Next(nil)
	r.Next(nil)
	if r.Time() != 2 {
		Te.Errorf("second frame should be at 2 ps, got %f", r.Time())
	}
}

func TestDCDCompressed(Te *testing.T) {
	dir := Te.TempDir()
	plain := filepath.Join(dir, "plain.dcd")
	writeTest(Te, plain, 4, 3, WriterOptions{})
	in, err := os.Open(plain)
	if err != nil {
		Te.Fatal(err)
	}
	defer in.Close()
	gzname := filepath.Join(dir, "compressed.dcd.gz")
	out, err := os.Create(gzname)
	if err != nil {
		Te.Fatal(err)
	}
	fw, _ := flate.NewWriter(out, flate.DefaultCompression)
	io.Copy(fw, in)
	fw.Close()
	out.Close()
	if !IsCompressed(gzname) {
		Te.Errorf("%s should be recognized as compressed", gzname)
	}
	readTest(Te, gzname, 4, 3, false)
}

func TestDCDNotDCD(Te *testing.T) {
	fname := filepath.Join(Te.TempDir(), "bad.dcd")
	os.WriteFile(fname, []byte("Definitely not a DCD file, just text"), 0644)
	if _, err := New(fname); err == nil {
		Te.Error("a text file should not be read as DCD")
	}
	if _, err := NewWriter(filepath.Join(Te.TempDir(), "zero.dcd"), 0); err == nil {
		Te.Error("a writer for zero atoms should fail")
	}
}
