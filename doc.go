/*
 * doc.go, part of gocg.
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

/*
Package cg is the main package of the goCG library. It obtains coarse-grained
force field parameters from atomistic molecular dynamics trajectories.

	**goCG Capabilities**

    Atom, Residue and Frame structures, with the coordinates of each frame
	kept in a v3.Matrix, in nm.

    Maps atomistic frames to CG frames, placing each bead at the geometric
	center or the center of mass of its atoms.

    Measures bond lengths, angles and signed dihedrals between beads of the same
	or of neighboring residues, for every frame of a trajectory.

    Obtains equilibrium values and force constants by Boltzmann inversion of the
	measured distributions. Moments can be accumulated in a streaming fashion
	and merged, so they can be obtained concurrently.

    Generates missing angles and dihedrals from the bond graph of each molecule.

The trajectory readers (GRO, STF and DCD) are in the traj subpackages, and the
source package chooses among them. The top package reads and writes GROMACS
ITP files, and the cfg package reads the mapping and bond definition files.
*/
package cg
