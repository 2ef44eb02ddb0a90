/*
 * config.go, part of gocg.
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

// Package config holds the options of a gocg run. They are read from an
// optional YAML file and GOCG_ environment variables, and the command
// line overrides them.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "GOCG"

// Options are the settings of a run. MapOnly and DumpMeasurements are
// nil when not given, and Resolve decides them from the files given.
type Options struct {
	Gro  string `mapstructure:"gro" yaml:"gro"`
	Map  string `mapstructure:"map" yaml:"map"`
	Traj string `mapstructure:"traj" yaml:"traj"`
	Bnd  string `mapstructure:"bnd" yaml:"bnd"`
	ITP  string `mapstructure:"itp" yaml:"itp"`

	Begin int `mapstructure:"begin" yaml:"begin"`
	End   int `mapstructure:"end" yaml:"end"` //-1 reads until the last frame

	OutputName string `mapstructure:"output_name" yaml:"output_name"`
	Output     string `mapstructure:"output" yaml:"output"`
	OutputTraj bool   `mapstructure:"output_traj" yaml:"output_traj"`

	MapOnly           *bool   `mapstructure:"map_only" yaml:"map_only"`
	MapCenter         string  `mapstructure:"map_center" yaml:"map_center"`
	ConstrThreshold   float64 `mapstructure:"constr_threshold" yaml:"constr_threshold"`
	DumpMeasurements  *bool   `mapstructure:"dump_measurements" yaml:"dump_measurements"`
	DumpNValues       int     `mapstructure:"dump_n_values" yaml:"dump_n_values"`
	Temperature       float64 `mapstructure:"temperature" yaml:"temperature"`
	GenerateAngles    bool    `mapstructure:"generate_angles" yaml:"generate_angles"`
	GenerateDihedrals bool    `mapstructure:"generate_dihedrals" yaml:"generate_dihedrals"`
	Workers           int     `mapstructure:"workers" yaml:"workers"`
	DefaultFC         bool    `mapstructure:"default_fc" yaml:"default_fc"`
	OutputForceField  bool    `mapstructure:"output_forcefield" yaml:"output_forcefield"`

	Backend   string `mapstructure:"backend" yaml:"backend"`
	Store     string `mapstructure:"store" yaml:"store"`
	StorePath string `mapstructure:"store_path" yaml:"store_path"`
	Plot      bool   `mapstructure:"plot" yaml:"plot"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
	Quiet     bool   `mapstructure:"quiet" yaml:"quiet"`
}

// Default returns the options with their default values.
func Default() *Options {
	return &Options{
		End:             -1,
		OutputName:      "out",
		Output:          "gro",
		MapCenter:       "geom",
		ConstrThreshold: 100000,
		DumpNValues:     10000,
		Temperature:     310,
		Workers:         1,
		LogLevel:        "info",
		LogFormat:       "console",
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	for k, val := range map[string]any{
		"gro": d.Gro, "map": d.Map, "traj": d.Traj, "bnd": d.Bnd, "itp": d.ITP,
		"begin": d.Begin, "end": d.End,
		"output_name": d.OutputName, "output": d.Output, "output_traj": d.OutputTraj,
		"map_center": d.MapCenter, "constr_threshold": d.ConstrThreshold,
		"dump_n_values": d.DumpNValues, "temperature": d.Temperature,
		"generate_angles": d.GenerateAngles, "generate_dihedrals": d.GenerateDihedrals,
		"workers": d.Workers, "default_fc": d.DefaultFC, "output_forcefield": d.OutputForceField,
		"backend": d.Backend, "store": d.Store, "store_path": d.StorePath,
		"plot": d.Plot, "log_level": d.LogLevel, "log_format": d.LogFormat, "quiet": d.Quiet,
	} {
		v.SetDefault(k, val)
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	//no defaults, so they stay nil unless set.
	v.BindEnv("map_only")
	v.BindEnv("dump_measurements")
	return v
}

// Load reads the YAML file path, if not empty, and the GOCG_ environment
// variables (for instance GOCG_TEMPERATURE) on top of the defaults.
// The options are not validated.
func Load(path string) (*Options, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %q: %w", path, err)
		}
	}
	o := &Options{}
	if err := v.Unmarshal(o); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}
	return o, nil
}

// Resolve decides the options left undecided. A run is map-only when not
// set and no bond file is given. Measurements are dumped when not set, a bond file is
// given, and no mapping file is given. Quiet runs only log errors.
func (o *Options) Resolve() {
	if o.Quiet {
		o.LogLevel = "error"
	}
	if o.MapOnly == nil {
		m := o.Bnd == ""
		o.MapOnly = &m
	}
	if o.DumpMeasurements == nil {
		d := o.Bnd != "" && o.Map == ""
		o.DumpMeasurements = &d
	}
}

// IsMapOnly returns the resolved map-only setting.
func (o *Options) IsMapOnly() bool {
	return o.MapOnly != nil && *o.MapOnly
}

// Dump returns the resolved setting for dumping measurements.
func (o *Options) Dump() bool {
	return o.DumpMeasurements != nil && *o.DumpMeasurements
}

func oneOf(name, val string, allowed ...string) error {
	for _, a := range allowed {
		if val == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, not %q", name, strings.Join(allowed, ", "), val)
}

// Validate checks the options and returns all the problems found.
func (o *Options) Validate() error {
	var errs []error
	if o.Gro == "" {
		errs = append(errs, errors.New("a GRO file is required"))
	}
	if o.Map == "" && o.Bnd == "" {
		errs = append(errs, errors.New("one or both of the mapping and bond files are required"))
	}
	if o.Begin < 0 {
		errs = append(errs, fmt.Errorf("begin must not be negative, got %d", o.Begin))
	}
	if o.End >= 0 && o.End < o.Begin {
		errs = append(errs, fmt.Errorf("end (%d) is before begin (%d)", o.End, o.Begin))
	}
	if o.Temperature <= 0 {
		errs = append(errs, fmt.Errorf("temperature must be positive, got %g", o.Temperature))
	}
	if o.DumpNValues <= 0 {
		errs = append(errs, fmt.Errorf("dump_n_values must be positive, got %d", o.DumpNValues))
	}
	if o.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", o.Workers))
	}
	if o.OutputName == "" {
		errs = append(errs, errors.New("output_name can't be empty"))
	}
	for _, e := range []error{
		oneOf("map_center", o.MapCenter, "geom", "mass"),
		oneOf("output", o.Output, "gro", "stf", "dcd"),
		oneOf("backend", o.Backend, "", "gro", "pdb", "stf", "dcd", "crd"),
		oneOf("store", o.Store, "", "memory", "sqlite"),
		oneOf("log_level", strings.ToLower(o.LogLevel), "debug", "info", "warn", "error"),
		oneOf("log_format", o.LogFormat, "json", "console"),
	} {
		if e != nil {
			errs = append(errs, e)
		}
	}
	if o.Store == "sqlite" && o.StorePath == "" {
		errs = append(errs, errors.New("the sqlite store needs store_path"))
	}
	return errors.Join(errs...)
}
