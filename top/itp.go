/*
 * itp.go, part of gocg.
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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	cg "github.com/rmera/gocg"
)

// ErrIncludeCycle is wrapped by the error returned when a file includes
// itself, directly or through other files.
var ErrIncludeCycle = errors.New("cyclic #include")

// Atom is an entry of the [ atoms ] section of a molecule type.
type Atom struct {
	ID      int
	Type    string
	ResID   int
	ResName string
	Name    string
	CGNr    int
	Charge  float64
	Mass    float64 //0 if not given
}

// MolType is a [ moleculetype ] with its atoms.
type MolType struct {
	Name   string
	NrExcl int
	Atoms  []*Atom
}

// ITP contains the molecule types read from a topology file and
// the files it includes.
type ITP struct {
	order []string
	mols  map[string]*MolType
}

// Molecules returns the names of the molecule types in reading order.
func (I *ITP) Molecules() []string {
	return I.order
}

// Molecule returns the molecule type called name, or nil.
func (I *ITP) Molecule(name string) *MolType {
	return I.mols[name]
}

type itpReader struct {
	itp     *ITP
	header  *topHeader
	cond    *cond
	stack   []string //files being read
	section string
	current *MolType
}

// ReadITP reads the molecule types and atoms in the topology file
// filename. Included files are searched relative to the including file.
// defines are the symbols considered defined for #ifdef blocks.
func ReadITP(filename string, defines ...string) (*ITP, error) {
	r := &itpReader{
		itp:    &ITP{mols: make(map[string]*MolType)},
		header: newTopHeader(),
		cond:   newCond(defines),
	}
	if err := r.readFile(filename); err != nil {
		return nil, err
	}
	return r.itp, nil
}

func (R *itpReader) readFile(filename string) error {
	abs, err := filepath.Abs(filename)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	for _, v := range R.stack {
		if v == abs {
			return fmt.Errorf("%s: %w", strings.Join(append(R.stack, abs), " -> "), ErrIncludeCycle)
		}
	}
	R.stack = append(R.stack, abs)
	defer func() { R.stack = R.stack[:len(R.stack)-1] }()
	f, err := os.Open(abs)
	if err != nil {
		return err
	}
	defer f.Close()
	s := bufio.NewScanner(f)
	nline := 0
	for s.Scan() {
		nline++
		line := cleanString(s.Text())
		if !R.cond.read(line) {
			continue
		}
		if strings.HasPrefix(line, "#include") {
			fields := fi(line)
			if len(fields) < 2 {
				return fmt.Errorf("%s:%d: #include without a file", filename, nline)
			}
			inc := strings.Trim(fields[len(fields)-1], "\"'<>")
			if !filepath.IsAbs(inc) {
				inc = filepath.Join(filepath.Dir(abs), inc)
			}
			if err := R.readFile(inc); err != nil {
				return fmt.Errorf("%s:%d: %w", filename, nline, err)
			}
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		if R.header.Is(line) {
			R.section = R.header.Which(line)
			continue
		}
		if err := R.data(line); err != nil {
			return fmt.Errorf("%s:%d: %w", filename, nline, err)
		}
	}
	return s.Err()
}

func (R *itpReader) data(line string) error {
	f := fi(line)
	switch R.section {
	case "moleculetype":
		m := &MolType{Name: f[0]}
		if len(f) > 1 {
			n, err := parseints(f[1])
			if err != nil {
				return fmt.Errorf("bad nrexcl %q", f[1])
			}
			m.NrExcl = n[0]
		}
		if _, ok := R.itp.mols[m.Name]; !ok {
			R.itp.order = append(R.itp.order, m.Name)
		}
		R.itp.mols[m.Name] = m
		R.current = m
	case "atoms":
		if R.current == nil {
			return fmt.Errorf("[ atoms ] outside a moleculetype")
		}
		if len(f) < 7 {
			return fmt.Errorf("atom line with %d fields, at least 7 needed", len(f))
		}
		ints, err := parseints(f[0], f[2], f[5])
		if err != nil {
			return fmt.Errorf("bad atom line %q: %w", line, err)
		}
		at := &Atom{ID: ints[0], Type: f[1], ResID: ints[1], ResName: f[3], Name: f[4], CGNr: ints[2]}
		nums := f[6:]
		if len(nums) > 2 {
			nums = nums[:2]
		}
		vals, err := parsefloats(nums...)
		if err != nil {
			return fmt.Errorf("bad atom line %q: %w", line, err)
		}
		at.Charge = vals[0]
		if len(vals) > 1 {
			at.Mass = vals[1]
		}
		R.current.Atoms = append(R.current.Atoms, at)
	}
	return nil
}

// ApplyITP fills the missing type, charge and mass of the atoms of each residue of f
// that is named as a molecule type in itp. Atoms are paired by their order
// in the residue and the molecule type. It returns the number of residues
// modified.
func ApplyITP(f *cg.Frame, itp *ITP) int {
	n := 0
	for _, r := range f.Residues() {
		m := itp.Molecule(r.Name)
		if m == nil {
			continue
		}
		for i, at := range r.Atoms() {
			if i >= len(m.Atoms) {
				break
			}
			ia := m.Atoms[i]
			if at.Type == "" {
				at.Type = ia.Type
			}
			if at.Charge == 0 {
				at.Charge = ia.Charge
			}
			if at.Mass == 0 {
				at.Mass = ia.Mass
			}
		}
		n++
	}
	return n
}
