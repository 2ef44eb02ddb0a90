/*
 * forcefield.go, part of gocg.
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
	"os"
	"path/filepath"
	"strings"

	cg "github.com/rmera/gocg"
)

// BeadMass is the mass given to bead types without one, as in MARTINI.
const BeadMass = 72.0

// WriteRTP writes a residue topology database with one entry per molecule in
// bs, for pdb2gmx. Unlike molecule types, entries can hold terms with atoms of
// the previous (-) and next (+) residues.
func WriteRTP(w io.Writer, bs *cg.BondSet, m *cg.Mapping) error {
	out := bufio.NewWriter(w)
	fmt.Fprint(out, "[ bondedtypes ]\n; bonds  angles  dihedrals  impropers all_dihedrals nrexcl HH14 RemoveDih\n")
	fmt.Fprintf(out, "%6d %7d %10d %10d %13d %6d %4d %9d\n", 1, 2, 1, 2, 1, 1, 0, 0)
	sections := map[int]string{2: "bonds", 3: "angles", 4: "dihedrals"}
	for _, mol := range bs.Molecules() {
		beads := m.Beads(mol)
		if beads == nil {
			return &cg.UnknownAtomNameError{Molecule: mol}
		}
		fmt.Fprintf(out, "\n[ %s ]\n [ atoms ]\n", mol)
		for i, b := range beads {
			fmt.Fprintf(out, "  %-5s %-5s %8.3f %4d\n", b.Name, b.Type, b.Charge, i)
		}
		for arity := 2; arity <= 4; arity++ {
			terms := bs.ByArity(mol, arity)
			if len(terms) == 0 {
				continue
			}
			fmt.Fprintf(out, " [ %s ]\n", sections[arity])
			for _, b := range terms {
				fmt.Fprint(out, " ")
				for _, a := range b.Atoms {
					fmt.Fprintf(out, " %-5s", a)
				}
				fmt.Fprintf(out, " %12.5f %12.5f", b.Eqm, b.K)
				if arity == 4 {
					fmt.Fprintf(out, " %4d", 1)
				}
				fmt.Fprint(out, "\n")
			}
		}
	}
	return out.Flush()
}

// writeFFITP writes the defaults and the atom types, one per bead type.
func writeFFITP(w io.Writer, name string, m *cg.Mapping) error {
	out := bufio.NewWriter(w)
	fmt.Fprintf(out, "#define _FF_%s\n\n[ defaults ]\n; nbfunc comb-rule\n%4d %4d\n", strings.ToUpper(name), 1, 1)
	fmt.Fprint(out, "\n[ atomtypes ]\n; name mass charge ptype c6 c12\n")
	seen := make(map[string]bool)
	for _, mol := range m.Molecules() {
		for _, b := range m.Beads(mol) {
			if seen[b.Type] {
				continue
			}
			seen[b.Type] = true
			mass := b.Mass
			if mass <= 0 {
				mass = BeadMass
			}
			fmt.Fprintf(out, "%-5s %8.3f %8.3f %2s %12.5e %12.5e\n", b.Type, mass, 0.0, "A", 0.0, 0.0)
		}
	}
	return out.Flush()
}

// WriteForceField creates the GROMACS force field directory dir/name.ff, with
// forcefield.doc, forcefield.itp (defaults and atom types), the residue
// database name.rtp and the molecule types in name.itp. It returns the
// files written.
func WriteForceField(dir, name string, bs *cg.BondSet, m *cg.Mapping, opts ITPOptions) ([]string, error) {
	if !bs.Resolved() {
		return nil, fmt.Errorf("bonds must be resolved against the mapping before writing them")
	}
	ffdir := filepath.Join(dir, name+".ff")
	if err := os.MkdirAll(ffdir, 0o755); err != nil {
		return nil, err
	}
	prog := opts.Program
	if prog == "" {
		prog = "gocg"
	}
	writers := []struct {
		file  string
		write func(io.Writer) error
	}{
		{"forcefield.doc", func(w io.Writer) error {
			_, err := fmt.Fprintf(w, "%s coarse-grained force field, prepared using %s\n", name, prog)
			return err
		}},
		{"forcefield.itp", func(w io.Writer) error { return writeFFITP(w, name, m) }},
		{name + ".rtp", func(w io.Writer) error { return WriteRTP(w, bs, m) }},
		{name + ".itp", func(w io.Writer) error { return WriteITP(w, bs, m, opts) }},
	}
	files := make([]string, 0, len(writers))
	for _, v := range writers {
		fname := filepath.Join(ffdir, v.file)
		f, err := os.Create(fname)
		if err != nil {
			return files, err
		}
		err = v.write(f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return files, fmt.Errorf("%s: %w", fname, err)
		}
		files = append(files, fname)
	}
	return files, nil
}
