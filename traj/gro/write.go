/*
 * write.go, part of gocg.
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
	"bufio"
	"fmt"
	"io"
	"os"

	cg "github.com/rmera/gocg"
)

func trunc(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// Encode writes the frame f to w in GRO format. Residue and atom numbers
// wrap at 100000, as GROMACS does.
func Encode(w io.Writer, f *cg.Frame) error {
	if f.Coords == nil || f.Coords.NVecs() != f.Len() {
		return fmt.Errorf("frame %q has %d atoms but coordinates don't match", f.Name, f.Len())
	}
	bw := bufio.NewWriter(w)
	title := f.Name
	if title == "" {
		title = "Generated by gocg"
	}
	fmt.Fprintf(bw, "%s t= %.5f\n", trunc(title, 60), f.Time)
	fmt.Fprintf(bw, "%5d\n", f.Len())
	atom := 1
	for _, r := range f.Residues() {
		for _, at := range r.Atoms() {
			c := f.Coords.VecView(at.Index)
			fmt.Fprintf(bw, "%5d%-5s%5s%5d%8.3f%8.3f%8.3f\n", r.Num%100000, trunc(r.Name, 5), trunc(at.Name, 5), atom%100000, c.At(0, 0), c.At(0, 1), c.At(0, 2))
			atom++
		}
	}
	fmt.Fprintf(bw, "%10.5f%10.5f%10.5f\n", f.Box[0], f.Box[1], f.Box[2])
	return bw.Flush()
}

// WriteFrame writes f to the file filename, overwriting it if it exists.
func WriteFrame(filename string, f *cg.Frame) error {
	out, err := os.Create(filename)
	if err != nil {
		return Error{UnableToOpen + ": " + err.Error(), filename, []string{"WriteFrame"}, true}
	}
	if err := Encode(out, f); err != nil {
		out.Close()
		return Error{err.Error(), filename, []string{"WriteFrame"}, true}
	}
	return out.Close()
}

// GroW writes multi-frame GRO trajectories.
type GroW struct {
	f        *os.File
	natoms   int
	filename string
	writable bool
	frames   int
}

// NewWriter creates the file filename for writing frames with natoms atoms.
func NewWriter(filename string, natoms int) (*GroW, error) {
	out, err := os.Create(filename)
	if err != nil {
		return nil, Error{UnableToOpen + ": " + err.Error(), filename, []string{"NewWriter"}, true}
	}
	return &GroW{f: out, natoms: natoms, filename: filename, writable: true}, nil
}

// WFrame appends the frame f to the trajectory.
func (G *GroW) WFrame(f *cg.Frame) error {
	if !G.writable {
		return Error{TrajUnIniWrite, G.filename, []string{"WFrame"}, true}
	}
	if f.Len() != G.natoms {
		return Error{fmt.Sprintf("frame has %d atoms, expected %d", f.Len(), G.natoms), G.filename, []string{"WFrame"}, true}
	}
	if err := Encode(G.f, f); err != nil {
		return Error{err.Error(), G.filename, []string{"WFrame"}, true}
	}
	G.frames++
	return nil
}

// Len returns the number of atoms per frame.
func (G *GroW) Len() int {
	return G.natoms
}

// Frames returns the number of frames written so far.
func (G *GroW) Frames() int {
	return G.frames
}

// Close closes the file. Further writes fail.
func (G *GroW) Close() error {
	if !G.writable {
		return nil
	}
	G.writable = false
	return G.f.Close()
}
