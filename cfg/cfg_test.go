/*
 * cfg_test.go, part of gocg.
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

package cfg

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	cg "github.com/rmera/gocg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}

const sugarMap = `; sugar
[ALLA]
C1 P3 C1 O1
C2 P3 C2 O2
C3 P3 C3 O3
C4 P3 C4 O4
C5 P2 C5 C6 O6
O5 P4 O5

[ SOL ]
W P4 OW HW1 HW2 # water
`

const sugarBnd = `[ ALLA ]
C1 C2
C2 C3
C3 C4
C4 C5
C5 O5
O5 C1
C1 C2 C3
-C1 C1

[ SOL ]
`

func TestNativeMapping(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, map[string]string{"sugar.map": sugarMap})
	m, err := LoadMapping(filepath.Join(dir, "sugar.map"))
	require.NoError(t, err)
	assert.Equal(t, []string{"ALLA", "SOL"}, m.Molecules())
	beads := m.Beads("ALLA")
	require.Len(t, beads, 6)
	assert.Equal(t, "C5", beads[4].Name)
	assert.Equal(t, "P2", beads[4].Type)
	assert.Equal(t, []string{"C5", "C6", "O6"}, beads[4].Atoms)
	assert.Equal(t, []string{"OW", "HW1", "HW2"}, m.Beads("SOL")[0].Atoms)
}

func TestNativeCharge(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, map[string]string{"ion.map": "[ NA ]\nNA Qd 1.0 NA\n"})
	m, err := LoadMapping(filepath.Join(dir, "ion.map"))
	require.NoError(t, err)
	b := m.Beads("NA")[0]
	assert.Equal(t, 1.0, b.Charge)
	assert.Equal(t, []string{"NA"}, b.Atoms)
}

func TestNativeBonds(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, map[string]string{"sugar.bnd": sugarBnd})
	b, err := LoadBonds(filepath.Join(dir, "sugar.bnd"))
	require.NoError(t, err)
	assert.Equal(t, []string{"ALLA", "SOL"}, b.Molecules())
	specs := b.Specs("ALLA")
	require.Len(t, specs, 8)
	assert.Equal(t, []string{"O5", "C1"}, specs[5])
	assert.Equal(t, []string{"-C1", "C1"}, specs[7])
	assert.True(t, b.Has("SOL"))
	assert.Empty(t, b.Specs("SOL"))

	write(t, dir, map[string]string{"bad.bnd": "[ X ]\nA B C D E\n"})
	_, err = LoadBonds(filepath.Join(dir, "bad.bnd"))
	assert.ErrorIs(t, err, ErrBondArity)
}

// The same model in every structured format gives the same mapping and bonds.
func TestStructuredFormats(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, map[string]string{
		"water.json": `{"version": 1, "molecules": [{"name": "SOL",
			"beads": [{"name": "W", "type": "P4", "atoms": ["OW", "HW1", "HW2"]}], "bonds": []},
			{"name": "DIM", "beads": [{"name": "A", "type": "C1", "charge": -1, "mass": 72, "atoms": ["C1", "C2"]},
			{"name": "B", "type": "C1", "atoms": ["C3"]}], "bonds": [["A", "B"]]}]}`,
		"water.yaml": `version: 1
molecules:
  - name: SOL
    beads:
      - {name: W, type: P4, atoms: [OW, HW1, HW2]}
  - name: DIM
    beads:
      - {name: A, type: C1, charge: -1, mass: 72, atoms: [C1, C2]}
      - {name: B, type: C1, atoms: [C3]}
    bonds:
      - [A, B]
`,
		"water.toml": `version = 1

[[molecules]]
name = "SOL"

  [[molecules.beads]]
  name = "W"
  type = "P4"
  atoms = ["OW", "HW1", "HW2"]

[[molecules]]
name = "DIM"
bonds = [["A", "B"]]

  [[molecules.beads]]
  name = "A"
  type = "C1"
  charge = -1.0
  mass = 72.0
  atoms = ["C1", "C2"]

  [[molecules.beads]]
  name = "B"
  type = "C1"
  atoms = ["C3"]
`,
	})
	for _, name := range []string{"water.json", "water.yaml", "water.toml"} {
		path := filepath.Join(dir, name)
		m, err := LoadMapping(path)
		require.NoError(t, err, name)
		assert.Equal(t, []string{"SOL", "DIM"}, m.Molecules(), name)
		a := m.Beads("DIM")[0]
		assert.Equal(t, &cg.BeadSpec{Name: "A", Type: "C1", Charge: -1, Mass: 72, Atoms: []string{"C1", "C2"}}, a, name)
		b, err := LoadBonds(path)
		require.NoError(t, err, name)
		assert.Equal(t, [][]string{{"A", "B"}}, b.Specs("DIM"), name)
		assert.True(t, b.Has("SOL"), name)
	}
}

func TestVersion(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, map[string]string{"v2.json": `{"version": 2, "molecules": []}`})
	_, err := LoadMapping(filepath.Join(dir, "v2.json"))
	assert.Error(t, err)
}

func TestIncludes(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "ff"), 0o755))
	write(t, dir, map[string]string{
		"martini.map":    "#include \"ff/lipids.map\"\n#include ff/water.yaml\n[ GLY ]\nBB P5 N CA C O\n",
		"ff/lipids.map":  "[ DOPC ]\nNC3 Q0 N C12 C13 C14 C15\n",
		"ff/water.yaml":  "molecules:\n  - name: SOL\n    beads:\n      - {name: W, type: P4, atoms: [OW]}\n",
		"cycle_a.map":    "#include cycle_b.map\n[ A ]\nA P1 A\n",
		"cycle_b.map":    "#include \"cycle_a.map\"\n",
		"duplicate.map":  "#include ff/lipids.map\n[ DOPC ]\nX P1 X\n",
		"duplicate2.map": "[ A ]\nA P1 A\n[ A ]\nB P1 B\n",
	})
	m, err := LoadMapping(filepath.Join(dir, "martini.map"))
	require.NoError(t, err)
	assert.Equal(t, []string{"DOPC", "SOL", "GLY"}, m.Molecules())

	_, err = LoadMapping(filepath.Join(dir, "cycle_a.map"))
	var cycle *IncludeCycleError
	require.True(t, errors.As(err, &cycle), "got %v", err)
	assert.Len(t, cycle.Chain, 3)

	for _, name := range []string{"duplicate.map", "duplicate2.map"} {
		_, err = LoadMapping(filepath.Join(dir, name))
		var dup *DuplicateSectionError
		require.True(t, errors.As(err, &dup), "%s: got %v", name, err)
	}
}

func TestBadNative(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, map[string]string{
		"orphan.map": "W P4 OW\n",
		"short.map":  "[ SOL ]\nW P4\n",
	})
	for _, name := range []string{"orphan.map", "short.map"} {
		_, err := LoadMapping(filepath.Join(dir, name))
		assert.Error(t, err, name)
	}
}

func TestDuplicateBead(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, map[string]string{"dup.map": "[ POL ]\nA P1 C1\nB P2 C2\nA P3 C3\n"})
	_, err := LoadMapping(filepath.Join(dir, "dup.map"))
	var dup *cg.DuplicateBeadError
	require.True(t, errors.As(err, &dup), "got %v", err)
	assert.Equal(t, "POL", dup.Molecule)
	assert.Equal(t, "A", dup.Name)
}
