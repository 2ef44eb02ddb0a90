/*
 * bondset.go, part of gocg.
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
	"runtime"
	"strings"
	"sync"

	v3 "github.com/rmera/gocg/v3"
)

// BondSpecs is an ordered set of bond definitions, per molecule. Each definition
// is a list of 2 to 4 atom references. A reference is a bead name, optionally
// prefixed with "-" (previous residue) or "+" (next residue).
type BondSpecs struct {
	order []string
	specs map[string][][]string
}

// NewBondSpecs returns an empty BondSpecs.
func NewBondSpecs() *BondSpecs {
	return &BondSpecs{specs: make(map[string][][]string)}
}

// Add appends a bond definition to molecule mol.
func (B *BondSpecs) Add(mol string, tokens ...string) {
	if _, ok := B.specs[mol]; !ok {
		B.order = append(B.order, mol)
	}
	B.specs[mol] = append(B.specs[mol], tokens)
}

// AddMolecule registers mol, with no bonds, if not already present.
func (B *BondSpecs) AddMolecule(mol string) {
	if _, ok := B.specs[mol]; !ok {
		B.order = append(B.order, mol)
		B.specs[mol] = nil
	}
}

// Has returns whether mol has a section in the specs.
func (B *BondSpecs) Has(mol string) bool {
	_, ok := B.specs[mol]
	return ok
}

// Molecules returns the molecule names in definition order.
func (B *BondSpecs) Molecules() []string {
	return B.order
}

// Specs returns the definitions for mol.
func (B *BondSpecs) Specs(mol string) [][]string {
	return B.specs[mol]
}

// Bond is an internal coordinate (a length, angle or dihedral) of a molecule,
// together with the values measured for it and, once finalized, its
// equilibrium value and force constant.
type Bond struct {
	Atoms     []string
	indices   []int
	values    []float64
	Eqm       float64
	K         float64
	finalized bool
}

// Arity returns the number of atoms in the bond.
func (B *Bond) Arity() int {
	return len(B.Atoms)
}

// Kind returns "length", "angle" or "dihedral".
func (B *Bond) Kind() string {
	return kindName(len(B.Atoms))
}

func kindName(arity int) string {
	switch arity {
	case 2:
		return "length"
	case 3:
		return "angle"
	case 4:
		return "dihedral"
	}
	return "unknown"
}

// Indices returns the 0-based positions of the bond atoms in the bead
// list of the molecule. It is nil until the BondSet is resolved.
func (B *Bond) Indices() []int {
	return B.indices
}

// Values returns the measurements of the bond. The slice should not be modified.
func (B *Bond) Values() []float64 {
	return B.values
}

// Finalized returns true if the bond has already been Boltzmann-inverted.
func (B *Bond) Finalized() bool {
	return B.finalized
}

// InterResidue returns true if any atom reference of the bond points to
// a neighbor residue.
func (B *Bond) InterResidue() bool {
	for _, v := range B.Atoms {
		if strings.HasPrefix(v, "-") || strings.HasPrefix(v, "+") {
			return true
		}
	}
	return false
}

func (B *Bond) String() string {
	if B.finalized {
		return fmt.Sprintf("<Bond containing atoms %s with r_0 %.3f and force constant %.3e>", strings.Join(B.Atoms, ", "), B.Eqm, B.K)
	}
	return fmt.Sprintf("<Bond containing atoms %s>", strings.Join(B.Atoms, ", "))
}

func splitRef(ref string) (prefix byte, name string) {
	if len(ref) > 1 && (ref[0] == '-' || ref[0] == '+') {
		return ref[0], ref[1:]
	}
	return 0, ref
}

// BondSet holds, for each molecule, the bonds to be measured.
type BondSet struct {
	order    []string
	bonds    map[string][]*Bond
	resolved bool
}

// NewBondSet builds a BondSet from specs. Definitions with less than
// 2 or more than 4 atoms are an error.
func NewBondSet(specs *BondSpecs) (*BondSet, error) {
	ret := &BondSet{bonds: make(map[string][]*Bond)}
	for _, mol := range specs.Molecules() {
		ret.order = append(ret.order, mol)
		bonds := make([]*Bond, 0, len(specs.Specs(mol)))
		for i, tokens := range specs.Specs(mol) {
			if len(tokens) < 2 || len(tokens) > 4 {
				return nil, fmt.Errorf("molecule %s, bond %d (%s): %d atoms, only 2, 3 or 4 are allowed", mol, i+1, strings.Join(tokens, " "), len(tokens))
			}
			atoms := make([]string, len(tokens))
			copy(atoms, tokens)
			bonds = append(bonds, &Bond{Atoms: atoms})
		}
		ret.bonds[mol] = bonds
	}
	return ret, nil
}

// Molecules returns the molecule names in definition order.
func (S *BondSet) Molecules() []string {
	return S.order
}

// Has returns whether there are bonds defined for mol.
func (S *BondSet) Has(mol string) bool {
	_, ok := S.bonds[mol]
	return ok
}

// Bonds returns all the bonds of mol.
func (S *BondSet) Bonds(mol string) []*Bond {
	return S.bonds[mol]
}

// ByArity returns the bonds of mol with n atoms.
func (S *BondSet) ByArity(mol string, n int) []*Bond {
	ret := make([]*Bond, 0)
	for _, b := range S.bonds[mol] {
		if len(b.Atoms) == n {
			ret = append(ret, b)
		}
	}
	return ret
}

// Len returns the total number of bonds in the set.
func (S *BondSet) Len() int {
	n := 0
	for _, v := range S.bonds {
		n += len(v)
	}
	return n
}

// Resolve obtains, for every bond, the index of each of its atoms in the
// bead list of its molecule in m. Bead names must be unique within a molecule.
func (S *BondSet) Resolve(m *Mapping) error {
	for _, mol := range S.order {
		if !m.Has(mol) {
			return &UnknownAtomNameError{Molecule: mol}
		}
		beads := m.Beads(mol)
		seen := make(map[string]bool, len(beads))
		for _, bead := range beads {
			if seen[bead.Name] {
				return &DuplicateBeadError{Molecule: mol, Name: bead.Name}
			}
			seen[bead.Name] = true
		}
		for _, b := range S.bonds[mol] {
			b.indices = make([]int, len(b.Atoms))
			for i, ref := range b.Atoms {
				_, name := splitRef(ref)
				idx := -1
				for j, bead := range beads {
					if bead.Name == name {
						idx = j
						break
					}
				}
				if idx < 0 {
					return &UnknownAtomNameError{Molecule: mol, Name: name}
				}
				b.indices[i] = idx
			}
		}
	}
	S.resolved = true
	return nil
}

// Resolved returns true if Resolve has been successfully called.
func (S *BondSet) Resolved() bool {
	return S.resolved
}

// windowAtom returns the atom ref of the window w. idx is the position of
// the atom in its residue, as obtained by Resolve, or -1 if unknown. The
// name is used when idx does not point to an atom called like ref.
func windowAtom(w Window, ref string, idx int) (*Atom, error) {
	prefix, name := splitRef(ref)
	res := w.Cur
	switch prefix {
	case '-':
		res = w.Prev
	case '+':
		res = w.Next
	}
	if res == nil {
		return nil, ErrMissingNeighbor
	}
	if at := res.AtomN(idx); at != nil && at.Name == name {
		return at, nil
	}
	at, ok := res.Atom(name)
	if !ok {
		return nil, &UnknownAtomNameError{Molecule: res.Name, Name: name}
	}
	return at, nil
}

// measure computes the value of b in the window w of frame f.
func measure(f *Frame, w Window, b *Bond) (float64, error) {
	p := make([]*v3.Matrix, len(b.Atoms))
	for i, ref := range b.Atoms {
		idx := -1
		if len(b.indices) == len(b.Atoms) {
			idx = b.indices[i]
		}
		at, err := windowAtom(w, ref, idx)
		if err != nil {
			return 0, err
		}
		if at.Index < 0 || at.Index >= f.Coords.NVecs() {
			return 0, fmt.Errorf("atom %s index %d out of range", at.Name, at.Index)
		}
		p[i] = f.Coord(at)
	}
	switch len(p) {
	case 2:
		return Length(p[0], p[1]), nil
	case 3:
		return Angle(p[0], p[1], p[2]), nil
	case 4:
		return Dihedral(p[0], p[1], p[2], p[3]), nil
	}
	return 0, fmt.Errorf("invalid bond arity %d", len(p))
}

func (S *BondSet) applyWindows(f *Frame, windows []Window) {
	for _, w := range windows {
		bonds, ok := S.bonds[w.Cur.Name]
		if !ok {
			continue
		}
		for _, b := range bonds {
			val, err := measure(f, w, b)
			if err != nil {
				//missing neighbors at the chain ends, and atoms absent
				//from a residue, just mean no sample for this window.
				continue
			}
			b.values = append(b.values, val)
		}
	}
}

// Apply measures every bond in every residue of the frame f, and stores
// the values. Residues whose molecule has no bonds are ignored.
func (S *BondSet) Apply(f *Frame) {
	S.applyWindows(f, f.Windows())
}

// ApplyConcurrent is like Apply, but the residues of each molecule are
// processed in a different goroutine, using at most workers goroutines at a time.
// The values obtained are the same, in the same order, as with Apply.
func (S *BondSet) ApplyConcurrent(f *Frame, workers int) {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	permol := make(map[string][]Window)
	for _, w := range f.Windows() {
		if _, ok := S.bonds[w.Cur.Name]; ok {
			permol[w.Cur.Name] = append(permol[w.Cur.Name], w)
		}
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for _, windows := range permol {
		wg.Add(1)
		sem <- struct{}{}
		go func(windows []Window) {
			defer func() {
				<-sem
				wg.Done()
			}()
			S.applyWindows(f, windows)
		}(windows)
	}
	wg.Wait()
}

// Finalize Boltzmann-inverts every bond at the given temperature,
// concurrently. Bonds already finalized are not processed again.
// Bonds with degenerate variance get a force constant of 0, which is not
// an error. Other errors are joined and returned.
func (S *BondSet) Finalize(temperature float64) error {
	if temperature <= 0 {
		temperature = DefaultTemperature
	}
	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error
	for _, mol := range S.order {
		for _, b := range S.bonds[mol] {
			if b.finalized {
				continue
			}
			wg.Add(1)
			go func(mol string, b *Bond) {
				defer wg.Done()
				eqm, k, err := BoltzmannInvert(b.values, len(b.Atoms), temperature)
				b.Eqm, b.K = eqm, k
				b.finalized = true
				if err != nil && !errors.Is(err, ErrDegenerateVariance) {
					mu.Lock()
					errs = append(errs, fmt.Errorf("molecule %s, %v: %w", mol, b.Atoms, err))
					mu.Unlock()
				}
			}(mol, b)
		}
	}
	wg.Wait()
	return errors.Join(errs...)
}

// MartiniConstants are the standard MARTINI force constants, by number of
// atoms: kJ/mol/nm^2 for bonds and kJ/mol for angles and dihedrals.
var MartiniConstants = map[int]float64{2: 1250, 3: 25, 4: 50}

// SetConstants replaces the force constant of every finalized bond with the
// one in fc for its number of atoms. The equilibrium values are kept.
// It returns the number of bonds changed.
func (S *BondSet) SetConstants(fc map[int]float64) int {
	n := 0
	for _, mol := range S.order {
		for _, b := range S.bonds[mol] {
			k, ok := fc[len(b.Atoms)]
			if !b.finalized || !ok {
				continue
			}
			b.K = k
			n++
		}
	}
	return n
}

func sameRefs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (S *BondSet) hasBond(mol string, refs []string) bool {
	rev := make([]string, len(refs))
	for i, v := range refs {
		rev[len(refs)-1-i] = v
	}
	for _, b := range S.bonds[mol] {
		if sameRefs(b.Atoms, refs) || sameRefs(b.Atoms, rev) {
			return true
		}
	}
	return false
}

// neighbors returns the bond graph of mol, using only the intra-residue length bonds.
func (S *BondSet) neighbors(mol string) (map[string][]string, []string) {
	graph := make(map[string][]string)
	order := make([]string, 0)
	add := func(a, b string) {
		if _, ok := graph[a]; !ok {
			order = append(order, a)
		}
		graph[a] = append(graph[a], b)
	}
	for _, b := range S.bonds[mol] {
		if len(b.Atoms) != 2 || b.InterResidue() {
			continue
		}
		add(b.Atoms[0], b.Atoms[1])
		add(b.Atoms[1], b.Atoms[0])
	}
	return graph, order
}

// GenerateAngles adds, for every molecule, the angles a-b-c for each pair
// of length bonds a-b, b-c that is not already present. Only intra-residue
// bonds are considered. It must be called before Resolve. It returns
// the number of angles added.
func (S *BondSet) GenerateAngles() int {
	added := 0
	for _, mol := range S.order {
		graph, order := S.neighbors(mol)
		for _, center := range order {
			nb := graph[center]
			for i := 0; i < len(nb); i++ {
				for j := i + 1; j < len(nb); j++ {
					refs := []string{nb[i], center, nb[j]}
					if nb[i] == nb[j] || S.hasBond(mol, refs) {
						continue
					}
					S.bonds[mol] = append(S.bonds[mol], &Bond{Atoms: refs})
					added++
				}
			}
		}
	}
	return added
}

// GenerateDihedrals adds, for every molecule, the dihedrals a-b-c-d for each
// chain of length bonds a-b, b-c, c-d that is not already present. Only
// intra-residue bonds are considered. It must be called before Resolve.
// It returns the number of dihedrals added.
func (S *BondSet) GenerateDihedrals() int {
	added := 0
	for _, mol := range S.order {
		graph, order := S.neighbors(mol)
		for _, b := range order {
			for _, c := range graph[b] {
				if b >= c {
					//each central bond only once
					continue
				}
				for _, a := range graph[b] {
					if a == c {
						continue
					}
					for _, d := range graph[c] {
						if d == b || d == a {
							continue
						}
						refs := []string{a, b, c, d}
						if S.hasBond(mol, refs) {
							continue
						}
						S.bonds[mol] = append(S.bonds[mol], &Bond{Atoms: refs})
						added++
					}
				}
			}
		}
	}
	return added
}
