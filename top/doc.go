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
Top reads and writes GROMACS force-field topologies (itp files).

ReadITP obtains the molecule types and their atoms, with charges and masses,
following #include directives and honoring #ifdef/#ifndef/#else/#endif blocks.
ApplyITP uses that data to fill the masses and charges of the residues in
a frame. WriteITP writes the parameters obtained for a coarse-grained model.
Bonded terms are read only to be skipped.
*/
package top
