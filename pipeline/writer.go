/*
 * writer.go, part of gocg.
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

package pipeline

import (
	"fmt"

	cg "github.com/rmera/gocg"
	"github.com/rmera/gocg/traj/dcd"
	"github.com/rmera/gocg/traj/gro"
	"github.com/rmera/gocg/traj/stf"
)

// FrameWriter writes CG frames to a trajectory file.
type FrameWriter interface {
	WNext(f *cg.Frame) error
	Close() error
}

// Extension returns the file extension, with the dot, used for the
// output format given.
func Extension(format string) string {
	switch format {
	case "stf":
		return ".stf"
	case "dcd":
		return ".dcd"
	}
	return ".gro"
}

type groWriter struct {
	w *gro.GroW
}

func (G groWriter) WNext(f *cg.Frame) error { return G.w.WFrame(f) }
func (G groWriter) Close() error            { return G.w.Close() }

// coordWriter adapts the writers that take only coordinates and box.
type coordWriter struct {
	w cg.TrajWriter
}

func (C coordWriter) WNext(f *cg.Frame) error {
	return C.w.WNext(f.Coords, boxVectors(f.Box))
}

func (C coordWriter) Close() error {
	C.w.Close()
	return nil
}

// boxVectors returns the 9 components of the rectangular box b.
func boxVectors(b [3]float64) []float64 {
	return []float64{b[0], 0, 0, 0, b[1], 0, 0, 0, b[2]}
}

// NewFrameWriter opens filename to write frames of natoms atoms in the
// given format: gro, stf or dcd.
func NewFrameWriter(format, filename string, natoms int) (FrameWriter, error) {
	switch format {
	case "", "gro":
		w, err := gro.NewWriter(filename, natoms)
		if err != nil {
			return nil, err
		}
		return groWriter{w}, nil
	case "stf":
		w, err := stf.NewWriter(filename, natoms, nil)
		if err != nil {
			return nil, err
		}
		return coordWriter{w}, nil
	case "dcd":
		w, err := dcd.NewWriter(filename, natoms, dcd.WriterOptions{UnitCell: true})
		if err != nil {
			return nil, err
		}
		return coordWriter{w}, nil
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}
