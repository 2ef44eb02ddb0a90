/*
 * dump.go, part of gocg.
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
	"bufio"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	cg "github.com/rmera/gocg"
	"github.com/rmera/gocg/cgplot"
	"github.com/rmera/gocg/histo"
	"github.com/rmera/gocg/store"
)

const histoBins = 50

// sample returns at most n values of values, evenly spaced and in order.
func sample(values []float64, n int) []float64 {
	if n <= 0 || len(values) <= n {
		return values
	}
	ret := make([]float64, n)
	step := float64(len(values)) / float64(n)
	for i := range ret {
		ret[i] = values[int(float64(i)*step)]
	}
	return ret
}

func bondLabel(b *cg.Bond) string {
	return strings.Join(b.Atoms, "-")
}

// WriteDumps writes, in dir, one file per molecule and kind of bond,
// named <molecule>_<kind>.dat, with one column per bond and at most n rows.
// It returns the names of the files written.
func WriteDumps(dir string, bs *cg.BondSet, n int) ([]string, error) {
	var files []string
	for _, mol := range bs.Molecules() {
		for arity := 2; arity <= 4; arity++ {
			bonds := bs.ByArity(mol, arity)
			if len(bonds) == 0 {
				continue
			}
			name := filepath.Join(dir, fmt.Sprintf("%s_%s.dat", mol, bonds[0].Kind()))
			if err := writeColumns(name, bonds, n); err != nil {
				return files, err
			}
			files = append(files, name)
		}
	}
	return files, nil
}

func writeColumns(name string, bonds []*cg.Bond, n int) error {
	fout, err := os.Create(name)
	if err != nil {
		return err
	}
	defer fout.Close()
	out := bufio.NewWriter(fout)
	cols := make([][]float64, len(bonds))
	rows := 0
	labels := make([]string, len(bonds))
	for i, b := range bonds {
		cols[i] = sample(b.Values(), n)
		rows = max(rows, len(cols[i]))
		labels[i] = bondLabel(b)
	}
	fmt.Fprintf(out, "# %s\n", strings.Join(labels, " "))
	for r := 0; r < rows; r++ {
		for c, col := range cols {
			if c > 0 {
				out.WriteString(" ")
			}
			if r < len(col) {
				fmt.Fprintf(out, "%12.5f", col[r])
			} else {
				fmt.Fprintf(out, "%12s", "nan")
			}
		}
		out.WriteString("\n")
	}
	if err := out.Flush(); err != nil {
		return err
	}
	return fout.Close()
}

// histograms returns, for each molecule, the distribution of each of its bonds.
// Bonds without values get a nil entry.
func histograms(bs *cg.BondSet) map[string][]*histo.Entry {
	ret := make(map[string][]*histo.Entry)
	for _, mol := range bs.Molecules() {
		for _, b := range bs.Bonds(mol) {
			ret[mol] = append(ret[mol], histo.FromValues(bondLabel(b), b.Values(), histoBins))
		}
	}
	return ret
}

// WriteHistograms writes the distributions of all bonds in bs as JSON to filename.
func WriteHistograms(filename string, bs *cg.BondSet) error {
	data, err := json.MarshalIndent(histograms(bs), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0o644)
}

// Plot draws in dir one PNG per bond, <molecule>_<kind>_<i>.png, and one
// with all the bonds of each kind in a molecule, <molecule>_<kind>.png.
func Plot(dir string, bs *cg.BondSet) ([]string, error) {
	var files []string
	for _, mol := range bs.Molecules() {
		for arity := 2; arity <= 4; arity++ {
			bonds := bs.ByArity(mol, arity)
			var entries []*histo.Entry
			for i, b := range bonds {
				e := histo.FromValues(bondLabel(b), b.Values(), histoBins)
				if e == nil {
					continue
				}
				name := filepath.Join(dir, fmt.Sprintf("%s_%s_%d.png", mol, b.Kind(), i))
				if err := cgplot.Distribution(e, b.Kind(), b.Eqm, name); err != nil {
					return files, err
				}
				files = append(files, name)
				entries = append(entries, e)
			}
			if len(entries) < 2 {
				continue
			}
			kind := bonds[0].Kind()
			name := filepath.Join(dir, fmt.Sprintf("%s_%s.png", mol, kind))
			if err := cgplot.Overlay(entries, mol+" "+kind+"s", kind, name); err != nil {
				return files, err
			}
			files = append(files, name)
		}
	}
	return files, nil
}

// records turns the bonds of bs into store records, with at most n samples each.
func records(bs *cg.BondSet, n int) []store.BondRecord {
	var ret []store.BondRecord
	for _, mol := range bs.Molecules() {
		for _, b := range bs.Bonds(mol) {
			m := cg.ParallelMoments(b.Values(), 4)
			r := store.BondRecord{
				Molecule: mol,
				Atoms:    append([]string(nil), b.Atoms...),
				Eqm:      b.Eqm,
				K:        b.K,
				N:        m.N,
				Mean:     m.Mean,
				StdDev:   math.Sqrt(m.Variance()),
				Samples:  append([]float64(nil), sample(b.Values(), n)...),
			}
			ret = append(ret, r)
		}
	}
	return ret
}
