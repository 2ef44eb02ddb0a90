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

package top

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	cg "github.com/rmera/gocg"
)

// ITPOptions control WriteITP.
type ITPOptions struct {
	//Bonds with force constants above this are written as constraints.
	//0 or less means no constraints.
	ConstraintThreshold float64
	//Written in the header, gocg if empty.
	Program string
}

// WriteITP writes the molecule types of the molecules in bs, with the beads
// of m as atoms and the bonded terms with the parameters in bs.
// Indices are 1-based. Terms that span several residues can't be written in a
// single-residue molecule type, so they are listed as comments at the end of it.
func WriteITP(w io.Writer, bs *cg.BondSet, m *cg.Mapping, opts ITPOptions) error {
	if !bs.Resolved() {
		return fmt.Errorf("bonds must be resolved against the mapping before writing them")
	}
	prog := opts.Program
	if prog == "" {
		prog = "gocg"
	}
	out := bufio.NewWriter(w)
	fmt.Fprintf(out, "; \n; Topology prepared automatically using %s \n; \n", prog)
	for _, mol := range bs.Molecules() {
		beads := m.Beads(mol)
		if beads == nil {
			return &cg.UnknownAtomNameError{Molecule: mol}
		}
		fmt.Fprintf(out, "\n[ moleculetype ]\n%-4s %4d\n", mol, 1)
		fmt.Fprint(out, "\n[ atoms ]\n")
		for i, b := range beads {
			fmt.Fprintf(out, "%4d %-4s %4d %-4s %-4s %4d %8.3f", i+1, b.Type, 1, mol, b.Name, i+1, b.Charge)
			if b.Mass > 0 {
				fmt.Fprintf(out, " %8.3f", b.Mass)
			}
			fmt.Fprint(out, "\n")
		}
		var bonds, constraints, angles, dihedrals, inter []*cg.Bond
		for _, b := range bs.Bonds(mol) {
			switch {
			case b.InterResidue():
				inter = append(inter, b)
			case b.Arity() == 2 && opts.ConstraintThreshold > 0 && b.K > opts.ConstraintThreshold:
				constraints = append(constraints, b)
			case b.Arity() == 2:
				bonds = append(bonds, b)
			case b.Arity() == 3:
				angles = append(angles, b)
			case b.Arity() == 4:
				dihedrals = append(dihedrals, b)
			}
		}
		if len(bonds) > 0 {
			fmt.Fprint(out, "\n[ bonds ]\n")
		}
		for _, b := range bonds {
			i := b.Indices()
			fmt.Fprintf(out, "%4d %4d %4d %12.5f %12.5f\n", i[0]+1, i[1]+1, 1, b.Eqm, b.K)
		}
		if len(constraints) > 0 {
			fmt.Fprint(out, "\n[ constraints ]\n")
		}
		for _, b := range constraints {
			i := b.Indices()
			fmt.Fprintf(out, "%4d %4d %4d %12.5f\n", i[0]+1, i[1]+1, 1, b.Eqm)
		}
		if len(angles) > 0 {
			fmt.Fprint(out, "\n[ angles ]\n")
		}
		for _, b := range angles {
			i := b.Indices()
			fmt.Fprintf(out, "%4d %4d %4d %4d %12.5f %12.5f\n", i[0]+1, i[1]+1, i[2]+1, 2, b.Eqm, b.K)
		}
		if len(dihedrals) > 0 {
			fmt.Fprint(out, "\n[ dihedrals ]\n")
		}
		for _, b := range dihedrals {
			i := b.Indices()
			fmt.Fprintf(out, "%4d %4d %4d %4d %4d %12.5f %12.5f %4d\n", i[0]+1, i[1]+1, i[2]+1, i[3]+1, 1, b.Eqm, b.K, 1)
		}
		if len(inter) > 0 {
			fmt.Fprint(out, "\n; Terms between consecutive residues (- previous, + next)\n")
		}
		for _, b := range inter {
			fmt.Fprintf(out, "; %-8s %-20s %12.5f %12.5f\n", b.Kind(), strings.Join(b.Atoms, " "), b.Eqm, b.K)
		}
	}
	return out.Flush()
}
