/*
 * root.go, part of gocg.
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
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rmera/gocg/config"
	"github.com/rmera/gocg/logging"
	"github.com/rmera/gocg/pipeline"
	"github.com/rmera/gocg/store"
)

// cliOptions holds the values of the flags. They only replace the
// values from the configuration file when given explicitly.
type cliOptions struct {
	configPath string
	o          config.Options
	mapOnly    bool
	dump       bool
}

func newRootCommand() *cobra.Command {
	return rootCommand(&cliOptions{o: *config.Default()})
}

func rootCommand(cl *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gocg",
		Short: "Coarse-grained force-field parameters from atomistic trajectories",
		Long: "gocg maps an atomistic trajectory to coarse-grained beads, measures the\n" +
			"bonds, angles and dihedrals between them and obtains equilibrium values\n" +
			"and force constants by Boltzmann inversion.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := cl.options(cmd)
			if err != nil {
				return err
			}
			log, err := logging.New(logging.Config{Level: opts.LogLevel, Format: opts.LogFormat, Output: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			defer log.Sync()
			return run(cmd.Context(), cmd, opts, log)
		},
	}
	f := cmd.Flags()
	o := &cl.o
	f.StringVar(&cl.configPath, "config", "", "YAML file with the options (flags take precedence)")
	f.StringVarP(&o.Gro, "gro", "g", o.Gro, "GROMACS GRO file")
	f.StringVarP(&o.Map, "map", "m", o.Map, "mapping file")
	f.StringVarP(&o.Traj, "xtc", "x", o.Traj, "trajectory file (GRO, STF or DCD)")
	f.StringVarP(&o.Bnd, "bnd", "b", o.Bnd, "bonds file")
	f.StringVarP(&o.ITP, "itp", "i", o.ITP, "GROMACS ITP file with masses and charges")
	f.IntVar(&o.Begin, "begin", o.Begin, "frame number to begin")
	f.IntVar(&o.End, "end", o.End, "frame number to end, -1 for the last one")
	f.StringVar(&o.OutputName, "output-name", o.OutputName, "base name of the output files")
	f.StringVar(&o.Output, "output", o.Output, "coordinate output format (gro, stf, dcd)")
	f.BoolVar(&o.OutputTraj, "outputxtc", o.OutputTraj, "write the CG trajectory")
	f.BoolVar(&cl.mapOnly, "map-only", false, "only map the trajectory (default: when no bonds file is given)")
	f.StringVar(&o.MapCenter, "map-center", o.MapCenter, "bead position: geom or mass")
	f.Float64Var(&o.ConstrThreshold, "constr-threshold", o.ConstrThreshold, "write bonds stiffer than this as constraints")
	f.BoolVar(&cl.dump, "dump-measurements", false, "write the measured values (default: bonds file but no mapping)")
	f.IntVar(&o.DumpNValues, "dump-n-values", o.DumpNValues, "maximum number of values written per bond")
	f.Float64Var(&o.Temperature, "temperature", o.Temperature, "temperature of the reference simulation, K")
	f.BoolVar(&o.GenerateAngles, "generate-angles", o.GenerateAngles, "generate angles from the bonds")
	f.BoolVar(&o.GenerateDihedrals, "generate-dihedrals", o.GenerateDihedrals, "generate dihedrals from the bonds")
	f.IntVar(&o.Workers, "workers", o.Workers, "goroutines used to measure each frame")
	f.BoolVar(&o.DefaultFC, "default-fc", o.DefaultFC, "use the default MARTINI force constants")
	f.BoolVar(&o.OutputForceField, "output-forcefield", o.OutputForceField, "also write a GROMACS force field directory")
	f.StringVar(&o.Backend, "backend", o.Backend, "trajectory reader to use (gro, pdb, stf, dcd, crd); all are tried if empty")
	f.StringVar(&o.Store, "store", o.Store, "keep the results in a store: memory or sqlite")
	f.StringVar(&o.StorePath, "store-path", o.StorePath, "database file for the sqlite store")
	f.BoolVar(&o.Plot, "plot", o.Plot, "plot the distributions as PNG files")
	f.StringVar(&o.LogLevel, "log-level", o.LogLevel, "log level (debug, info, warn, error)")
	f.StringVar(&o.LogFormat, "log-format", o.LogFormat, "log format (console, json)")
	f.BoolVar(&o.Quiet, "quiet", o.Quiet, "only log errors, and don't print the summary")
	cmd.AddCommand(newRunsCommand())
	return cmd
}

// options loads the configuration file and the environment, and applies
// on top the flags set in the command line.
func (cl *cliOptions) options(cmd *cobra.Command) (*config.Options, error) {
	opts, err := config.Load(cl.configPath)
	if err != nil {
		return nil, err
	}
	o := &cl.o
	setters := map[string]func(){
		"gro":                func() { opts.Gro = o.Gro },
		"map":                func() { opts.Map = o.Map },
		"xtc":                func() { opts.Traj = o.Traj },
		"bnd":                func() { opts.Bnd = o.Bnd },
		"itp":                func() { opts.ITP = o.ITP },
		"begin":              func() { opts.Begin = o.Begin },
		"end":                func() { opts.End = o.End },
		"output-name":        func() { opts.OutputName = o.OutputName },
		"output":             func() { opts.Output = o.Output },
		"outputxtc":          func() { opts.OutputTraj = o.OutputTraj },
		"map-only":           func() { v := cl.mapOnly; opts.MapOnly = &v },
		"map-center":         func() { opts.MapCenter = o.MapCenter },
		"constr-threshold":   func() { opts.ConstrThreshold = o.ConstrThreshold },
		"dump-measurements":  func() { v := cl.dump; opts.DumpMeasurements = &v },
		"dump-n-values":      func() { opts.DumpNValues = o.DumpNValues },
		"temperature":        func() { opts.Temperature = o.Temperature },
		"generate-angles":    func() { opts.GenerateAngles = o.GenerateAngles },
		"generate-dihedrals": func() { opts.GenerateDihedrals = o.GenerateDihedrals },
		"workers":            func() { opts.Workers = o.Workers },
		"default-fc":         func() { opts.DefaultFC = o.DefaultFC },
		"output-forcefield":  func() { opts.OutputForceField = o.OutputForceField },
		"quiet":              func() { opts.Quiet = o.Quiet },
		"backend":            func() { opts.Backend = o.Backend },
		"store":              func() { opts.Store = o.Store },
		"store-path":         func() { opts.StorePath = o.StorePath },
		"plot":               func() { opts.Plot = o.Plot },
		"log-level":          func() { opts.LogLevel = o.LogLevel },
		"log-format":         func() { opts.LogFormat = o.LogFormat },
	}
	for name, set := range setters {
		if cmd.Flags().Changed(name) {
			set()
		}
	}
	opts.Resolve()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

func run(ctx context.Context, cmd *cobra.Command, opts *config.Options, log logging.Logger) error {
	log.Info("starting", logging.String("gro", opts.Gro), logging.String("trajectory", opts.Traj))
	res, err := pipeline.Run(ctx, opts, log)
	if err != nil {
		return err
	}
	if opts.Quiet {
		return nil
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s frames, %d beads, %d bonds\n", humanize.Comma(int64(res.Frames)), res.Beads, res.Bonds)
	if res.RunID != "" {
		fmt.Fprintf(out, "run %s\n", res.RunID)
	}
	for _, f := range res.Files {
		fmt.Fprintln(out, f)
	}
	return nil
}

func newRunsCommand() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List the runs kept in an sqlite store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.New("sqlite", path)
			if err != nil {
				return err
			}
			if err := s.Init(cmd.Context()); err != nil {
				return err
			}
			defer s.Close()
			runs, err := s.ListRuns(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTARTED\tFRAMES\tTEMPERATURE\tTOPOLOGY\tTRAJECTORY")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f\t%s\t%s\n", r.ID, humanize.Time(r.Started), humanize.Comma(int64(r.Frames)), r.Temperature, r.Topology, r.Trajectory)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&path, "store-path", "gocg.db", "database file")
	return cmd
}
