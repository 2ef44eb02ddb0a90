/*
 * cfg.go, part of gocg.
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

// Package cfg reads the files that define a coarse-grained model: the mapping
// of atoms to beads and the bonded terms between beads. Both use the same
// formats: a sectioned text format, with one [ MOLECULE ] section per
// molecule, and JSON, YAML or TOML documents. Any file can include others.
package cfg

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	cg "github.com/rmera/gocg"
)

// Version is the version of the document format understood by this package.
// Documents without a version are taken to be of this version.
const Version = 1

// Bead is a bead definition in a document.
type Bead struct {
	Name   string   `json:"name" yaml:"name" toml:"name"`
	Type   string   `json:"type" yaml:"type" toml:"type"`
	Charge float64  `json:"charge,omitempty" yaml:"charge,omitempty" toml:"charge"`
	Mass   float64  `json:"mass,omitempty" yaml:"mass,omitempty" toml:"mass"`
	Atoms  []string `json:"atoms" yaml:"atoms" toml:"atoms"`
}

// Molecule is the definition of the beads and bonds of one molecule.
type Molecule struct {
	Name  string     `json:"name" yaml:"name" toml:"name"`
	Beads []Bead     `json:"beads,omitempty" yaml:"beads,omitempty" toml:"beads"`
	Bonds [][]string `json:"bonds,omitempty" yaml:"bonds,omitempty" toml:"bonds"`
}

// Document is the structure of the JSON, YAML and TOML files.
type Document struct {
	Version   int        `json:"version" yaml:"version" toml:"version"`
	Include   []string   `json:"include,omitempty" yaml:"include,omitempty" toml:"include"`
	Molecules []Molecule `json:"molecules" yaml:"molecules" toml:"molecules"`
}

// IncludeCycleError is returned when a file includes itself, directly or
// through other files. Chain is the sequence of files, ending with the repeated one.
type IncludeCycleError struct {
	Chain []string
}

func (e *IncludeCycleError) Error() string {
	return "include cycle: " + strings.Join(e.Chain, " -> ")
}

// DuplicateSectionError is returned when a molecule is defined twice.
type DuplicateSectionError struct {
	Section string
	File    string
}

func (e *DuplicateSectionError) Error() string {
	return fmt.Sprintf("section %s appears twice, the second time in file %s", e.Section, e.File)
}

// section is a molecule as read from any of the formats. Sectioned files
// give lines, which are interpreted as beads or bonds only when needed.
type section struct {
	name  string
	file  string
	lines [][]string
	beads []Bead
	bonds [][]string
}

type loader struct {
	stack    []string
	order    []string
	sections map[string]*section
}

// parser reads one file. It returns the sections of the file and the
// files it includes, relative to its directory.
type parser func(path string) ([]*section, []string, error)

func parserFor(path string) parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return parseJSON
	case ".yaml", ".yml":
		return parseYAML
	case ".toml":
		return parseTOML
	}
	return parseNative
}

func (L *loader) load(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	for _, v := range L.stack {
		if v == abs {
			return &IncludeCycleError{Chain: append(append([]string{}, L.stack...), abs)}
		}
	}
	L.stack = append(L.stack, abs)
	defer func() { L.stack = L.stack[:len(L.stack)-1] }()
	sections, includes, err := parserFor(abs)(abs)
	if err != nil {
		return err
	}
	for _, inc := range includes {
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(filepath.Dir(abs), inc)
		}
		if err := L.load(inc); err != nil {
			return err
		}
	}
	for _, s := range sections {
		if _, ok := L.sections[s.name]; ok {
			return &DuplicateSectionError{Section: s.name, File: abs}
		}
		L.sections[s.name] = s
		L.order = append(L.order, s.name)
	}
	return nil
}

func loadSections(path string) (*loader, error) {
	L := &loader{sections: make(map[string]*section)}
	if err := L.load(path); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return L, nil
}

func checkVersion(v int, path string) error {
	if v != 0 && v != Version {
		return fmt.Errorf("%s: document version %d, only version %d is supported", path, v, Version)
	}
	return nil
}

// beadFromLine reads a line of the form BEAD TYPE [CHARGE] ATOM...
func beadFromLine(l []string) (Bead, error) {
	if len(l) < 3 {
		return Bead{}, fmt.Errorf("bead line %q needs a name, a type and at least one atom", strings.Join(l, " "))
	}
	b := Bead{Name: l[0], Type: l[1]}
	atoms := l[2:]
	if q, err := strconv.ParseFloat(l[2], 64); err == nil {
		b.Charge = q
		atoms = l[3:]
	}
	if len(atoms) == 0 {
		return Bead{}, fmt.Errorf("bead %s has no atoms", b.Name)
	}
	b.Atoms = append([]string{}, atoms...)
	return b, nil
}

// LoadMapping reads the bead definitions in path and the files it includes.
func LoadMapping(path string) (*cg.Mapping, error) {
	L, err := loadSections(path)
	if err != nil {
		return nil, err
	}
	m := cg.NewMapping()
	for _, name := range L.order {
		s := L.sections[name]
		beads := append([]Bead{}, s.beads...)
		for _, l := range s.lines {
			b, err := beadFromLine(l)
			if err != nil {
				return nil, fmt.Errorf("%s, molecule %s: %w", s.file, name, err)
			}
			beads = append(beads, b)
		}
		specs := make([]*cg.BeadSpec, 0, len(beads))
		seen := make(map[string]bool, len(beads))
		for _, b := range beads {
			if b.Name == "" || len(b.Atoms) == 0 {
				return nil, fmt.Errorf("%s, molecule %s: bead %q without a name or atoms", s.file, name, b.Name)
			}
			if seen[b.Name] {
				return nil, fmt.Errorf("%s: %w", s.file, &cg.DuplicateBeadError{Molecule: name, Name: b.Name})
			}
			seen[b.Name] = true
			specs = append(specs, &cg.BeadSpec{Name: b.Name, Type: b.Type, Atoms: b.Atoms, Charge: b.Charge, Mass: b.Mass})
		}
		m.Add(name, specs...)
	}
	return m, nil
}

// ErrBondArity is wrapped by the errors for bonds without 2 to 4 atoms.
var ErrBondArity = errors.New("bonded terms need 2, 3 or 4 atoms")

// LoadBonds reads the bond definitions in path and the files it includes.
// Molecules with no bonds are kept, so they are known to the bond set.
func LoadBonds(path string) (*cg.BondSpecs, error) {
	L, err := loadSections(path)
	if err != nil {
		return nil, err
	}
	b := cg.NewBondSpecs()
	for _, name := range L.order {
		s := L.sections[name]
		b.AddMolecule(name)
		for _, l := range append(append([][]string{}, s.bonds...), s.lines...) {
			if len(l) < 2 || len(l) > 4 {
				return nil, fmt.Errorf("%s, molecule %s, bond %v: %w", s.file, name, l, ErrBondArity)
			}
			b.Add(name, l...)
		}
	}
	return b, nil
}
