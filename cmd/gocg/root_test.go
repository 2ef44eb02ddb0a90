/*
 * root_test.go, part of gocg.
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

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cg "github.com/rmera/gocg"
	"github.com/rmera/gocg/config"
	"github.com/rmera/gocg/traj/gro"
)

// waters writes a GRO topology and a 4-frame GRO trajectory of 3 waters,
// and a bonds file for them, in dir.
func waters(t *testing.T, dir string) (topology, traj, bonds string) {
	t.Helper()
	frame := func(n int) *cg.Frame {
		f := cg.NewFrame("waters", 9)
		for r := 0; r < 3; r++ {
			for j, name := range []string{"OW", "HW1", "HW2"} {
				require.NoError(t, f.AppendAtom(&cg.Atom{Name: name}, "SOL", r+1))
				f.Coords.Set(r*3+j, 0, float64(r)+0.1*float64(j)+0.001*float64(n))
				f.Coords.Set(r*3+j, 1, 0.08*float64(j%2)+0.002*float64(n*j))
				f.Coords.Set(r*3+j, 2, 1)
			}
		}
		f.Box = [3]float64{4, 4, 4}
		return f
	}
	topology = filepath.Join(dir, "w.gro")
	traj = filepath.Join(dir, "w_md.gro")
	bonds = filepath.Join(dir, "w.bnd")
	require.NoError(t, gro.WriteFrame(topology, frame(0)))
	w, err := gro.NewWriter(traj, 9)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		require.NoError(t, w.WFrame(frame(i)))
	}
	require.NoError(t, w.Close())
	require.NoError(t, os.WriteFile(bonds, []byte("[ SOL ]\nOW HW1\nHW1 OW HW2\n"), 0o644))
	return
}

func TestRootFlags(t *testing.T) {
	cmd := newRootCommand()
	assert.Equal(t, "gocg", cmd.Use)
	for short, long := range map[string]string{"g": "gro", "m": "map", "x": "xtc", "b": "bnd", "i": "itp"} {
		f := cmd.Flags().Lookup(long)
		require.NotNil(t, f, long)
		assert.Equal(t, short, f.Shorthand)
	}
	for _, name := range []string{"begin", "end", "output-name", "output", "outputxtc", "map-only", "map-center",
		"constr-threshold", "dump-measurements", "dump-n-values", "temperature", "generate-angles",
		"generate-dihedrals", "backend", "store", "store-path", "plot", "config", "log-level", "log-format",
		"default-fc", "output-forcefield", "quiet", "workers"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "out", cmd.Flags().Lookup("output-name").DefValue)
	assert.Equal(t, "100000", cmd.Flags().Lookup("constr-threshold").DefValue)
}

func TestOptionsPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gocg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gro: file.gro\nbnd: file.bnd\ntemperature: 300\noutput_name: fromfile\n"), 0o644))
	t.Setenv("GOCG_DUMP_N_VALUES", "50")

	cl := &cliOptions{o: *config.Default()}
	cmd := rootCommand(cl)
	require.NoError(t, cmd.ParseFlags([]string{"--config", path, "--temperature", "280", "-g", "flag.gro", "--dump-measurements=false"}))
	opts, err := cl.options(cmd)
	require.NoError(t, err)
	assert.Equal(t, "flag.gro", opts.Gro)
	assert.Equal(t, "file.bnd", opts.Bnd)
	assert.Equal(t, 280.0, opts.Temperature)
	assert.Equal(t, "fromfile", opts.OutputName)
	assert.Equal(t, 50, opts.DumpNValues)
	assert.False(t, opts.IsMapOnly())
	//the bonds file without a mapping would turn the dump on, but the flag was given.
	assert.False(t, opts.Dump())
}

func TestOptionsInvalid(t *testing.T) {
	cl := &cliOptions{o: *config.Default()}
	cmd := rootCommand(cl)
	require.NoError(t, cmd.ParseFlags([]string{"-g", "a.gro"}))
	_, err := cl.options(cmd)
	assert.Error(t, err)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errout bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errout)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	top, traj, bnd := waters(t, dir)
	db := filepath.Join(dir, "runs.db")
	out, err := execute(t, "-g", top, "-x", traj, "-b", bnd, "--output-name", filepath.Join(dir, "out"),
		"--store", "sqlite", "--store-path", db, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "4 frames, 9 beads, 2 bonds")
	assert.Contains(t, out, filepath.Join(dir, "out.itp"))
	assert.FileExists(t, filepath.Join(dir, "SOL_length.dat"))

	var id string
	for _, l := range strings.Split(out, "\n") {
		if strings.HasPrefix(l, "run ") {
			id = strings.TrimPrefix(l, "run ")
		}
	}
	require.NotEmpty(t, id)
	list, err := execute(t, "runs", "--store-path", db)
	require.NoError(t, err)
	assert.Contains(t, list, id)
	assert.Contains(t, list, top)
}

func TestRunCommandErrors(t *testing.T) {
	_, err := execute(t, "-b", "x.bnd")
	assert.Error(t, err)
	dir := t.TempDir()
	top, _, _ := waters(t, dir)
	_, err = execute(t, "-g", top, "-m", filepath.Join(dir, "missing.map"), "--log-level", "error")
	assert.Error(t, err)
	_, err = execute(t, "extra")
	assert.Error(t, err)
}

func TestRunQuietForceField(t *testing.T) {
	dir := t.TempDir()
	top, traj, bnd := waters(t, dir)
	out, err := execute(t, "-g", top, "-x", traj, "-b", bnd, "--output-name", filepath.Join(dir, "out"),
		"--quiet", "--default-fc", "--output-forcefield")
	require.NoError(t, err)
	assert.Empty(t, out)
	itp, err := os.ReadFile(filepath.Join(dir, "out.itp"))
	require.NoError(t, err)
	assert.Contains(t, string(itp), "1250.00000")
	assert.Contains(t, string(itp), "25.00000")
	for _, f := range []string{"forcefield.itp", "forcefield.doc", "out.rtp", "out.itp"} {
		assert.FileExists(t, filepath.Join(dir, "out.ff", f))
	}

	cl := &cliOptions{o: *config.Default()}
	cmd := rootCommand(cl)
	require.NoError(t, cmd.ParseFlags([]string{"-g", "a.gro", "-b", "a.bnd", "--quiet", "--log-level", "debug"}))
	opts, err := cl.options(cmd)
	require.NoError(t, err)
	assert.Equal(t, "error", opts.LogLevel)
}
