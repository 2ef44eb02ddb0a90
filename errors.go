/*
 * errors.go, part of gocg.
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
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is wrapped by every error produced when a reader
// doesn't recognize the extension or content of a file.
var ErrUnsupportedFormat = errors.New("topology/trajectory format not supported by this reader")

// ErrMissingNeighbor signals that a residue window has no previous or next
// residue for a prefixed atom reference. The sample is skipped.
var ErrMissingNeighbor = errors.New("missing neighbor residue")

// ErrDegenerateVariance signals that the Boltzmann inversion divisor underflowed.
// The force constant is set to 0.
var ErrDegenerateVariance = errors.New("degenerate variance in Boltzmann inversion")

// NonMatchingSystemError is returned when the topology and trajectory atom counts disagree.
type NonMatchingSystemError struct {
	Topology        string
	Trajectory      string
	TopologyAtoms   int
	TrajectoryAtoms int
}

func (e *NonMatchingSystemError) Error() string {
	return fmt.Sprintf("number of atoms does not match between topology %s (%d) and trajectory %s (%d)", e.Topology, e.TopologyAtoms, e.Trajectory, e.TrajectoryAtoms)
}

// UnknownAtomNameError is returned when a bond, angle or dihedral, or a bead,
// references a name that is not defined for its molecule.
type UnknownAtomNameError struct {
	Molecule string
	Name     string
}

func (e *UnknownAtomNameError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("molecule %s is not present in the mapping", e.Molecule)
	}
	return fmt.Sprintf("name %s not found in molecule %s", e.Name, e.Molecule)
}

// DuplicateBeadError is returned when a molecule defines two beads with the same name.
type DuplicateBeadError struct {
	Molecule string
	Name     string
}

func (e *DuplicateBeadError) Error() string {
	return fmt.Sprintf("bead %s defined more than once in molecule %s", e.Name, e.Molecule)
}

// IsLastFrame returns true if err signals the normal end of a trajectory.
func IsLastFrame(err error) bool {
	var lf LastFrameError
	return errors.As(err, &lf)
}
