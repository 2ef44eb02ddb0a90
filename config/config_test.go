/*
 * config_test.go, part of gocg.
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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	o, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), o)
	assert.Nil(t, o.MapOnly)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gocg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`gro: water.gro
map: water.map
temperature: 298.15
map_only: true
map_center: mass
`), 0o644))
	t.Setenv("GOCG_DUMP_N_VALUES", "50")
	t.Setenv("GOCG_BND", "water.bnd")
	o, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "water.gro", o.Gro)
	assert.Equal(t, "water.bnd", o.Bnd)
	assert.Equal(t, 298.15, o.Temperature)
	assert.Equal(t, 50, o.DumpNValues)
	assert.Equal(t, "mass", o.MapCenter)
	require.NotNil(t, o.MapOnly)
	assert.True(t, *o.MapOnly)
	assert.Equal(t, "out", o.OutputName)
	assert.NoError(t, o.Validate())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	yes, no := true, false
	cases := []struct {
		name    string
		opts    Options
		mapOnly bool
		dump    bool
	}{
		{"map only", Options{Map: "a.map"}, true, false},
		{"bonds only", Options{Bnd: "a.bnd"}, false, true},
		{"both", Options{Map: "a.map", Bnd: "a.bnd"}, false, false},
		{"explicit", Options{Map: "a.map", Bnd: "a.bnd", MapOnly: &yes, DumpMeasurements: &yes}, true, true},
		{"explicit false", Options{Bnd: "a.bnd", DumpMeasurements: &no}, false, false},
	}
	for _, c := range cases {
		o := c.opts
		o.Resolve()
		assert.Equal(t, c.mapOnly, o.IsMapOnly(), c.name)
		assert.Equal(t, c.dump, o.Dump(), c.name)
	}
	q := Options{Map: "a.map", LogLevel: "debug", Quiet: true}
	q.Resolve()
	assert.Equal(t, "error", q.LogLevel)
}

func TestValidate(t *testing.T) {
	o := Default()
	err := o.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GRO file is required")
	assert.Contains(t, err.Error(), "mapping and bond files")

	o = Default()
	o.Gro, o.Map = "a.gro", "a.map"
	o.Output = "xtc"
	o.Store = "sqlite"
	o.Begin, o.End = 5, 2
	err = o.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output must be one of")
	assert.Contains(t, err.Error(), "store_path")
	assert.Contains(t, err.Error(), "before begin")
}
