/*
 * pipeline.go, part of gocg.
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

// Package pipeline runs a complete parameterization: it reads an atomistic
// trajectory, maps it to CG beads, measures the bonds and writes the
// resulting topology and the requested side outputs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	cg "github.com/rmera/gocg"
	"github.com/rmera/gocg/cfg"
	"github.com/rmera/gocg/config"
	"github.com/rmera/gocg/logging"
	"github.com/rmera/gocg/source"
	"github.com/rmera/gocg/store"
	"github.com/rmera/gocg/top"
	"github.com/rmera/gocg/traj/gro"
)

// Result summarizes a run.
type Result struct {
	RunID  string
	Frames int
	Beads  int
	Bonds  int
	Files  []string //output files, in the order they were written
}

type run struct {
	opts    *config.Options
	log     logging.Logger
	mapping *cg.Mapping
	specs   *cg.BondSpecs
	bonds   *cg.BondSet
	mapper  *cg.Mapper
	writer  FrameWriter
	res     *Result
}

func (r *run) output(suffix string) string {
	return r.opts.OutputName + suffix
}

func (r *run) wrote(name string) {
	r.res.Files = append(r.res.Files, name)
	if st, err := os.Stat(name); err == nil {
		r.log.Debug("wrote file", logging.String("file", name), logging.String("size", humanize.Bytes(uint64(st.Size()))))
	}
}

// Run performs the run described by opts. Unset map_only and dump options are
// resolved first. The context is checked before each frame is read.
func Run(ctx context.Context, opts *config.Options, log logging.Logger) (*Result, error) {
	if log == nil {
		log = logging.NewNop()
	}
	opts.Resolve()
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	r := &run{opts: opts, log: log.Named("pipeline"), res: &Result{}}
	if err := r.loadDefinitions(); err != nil {
		return nil, err
	}
	rd, err := source.Open(opts.Gro, opts.Traj, opts.Backend, source.WithLogger(log))
	if err != nil {
		return nil, err
	}
	defer rd.Close()
	fr, err := source.NewFrameReader(rd, opts.Begin, opts.End)
	if err != nil {
		return nil, err
	}
	if err := r.setup(fr.Frame()); err != nil {
		return nil, err
	}
	defer func() {
		if r.writer != nil {
			r.writer.Close()
		}
	}()
	start := time.Now()
	if err := r.scan(ctx, fr); err != nil {
		return nil, err
	}
	r.log.Info("trajectory read", logging.String("frames", humanize.Comma(int64(r.res.Frames))), logging.Duration("elapsed", time.Since(start)))
	if r.writer != nil {
		err := r.writer.Close()
		r.writer = nil
		if err != nil {
			return nil, fmt.Errorf("closing output trajectory: %w", err)
		}
		r.wrote(r.output("_traj" + Extension(opts.Output)))
	}
	if r.bonds == nil {
		return r.res, nil
	}
	if err := r.bonds.Finalize(opts.Temperature); err != nil {
		return nil, err
	}
	if opts.DefaultFC {
		n := r.bonds.SetConstants(cg.MartiniConstants)
		log.Info("using default force constants", logging.Int("bonds", n))
	}
	if err := r.writeResults(ctx); err != nil {
		return nil, err
	}
	return r.res, nil
}

func (r *run) loadDefinitions() error {
	var err error
	if r.opts.Map != "" {
		if r.mapping, err = cfg.LoadMapping(r.opts.Map); err != nil {
			return fmt.Errorf("reading mapping: %w", err)
		}
	} else if r.opts.IsMapOnly() {
		return errors.New("a map-only run requires a mapping file")
	}
	if !r.opts.IsMapOnly() {
		if r.specs, err = cfg.LoadBonds(r.opts.Bnd); err != nil {
			return fmt.Errorf("reading bonds: %w", err)
		}
	}
	return nil
}

// setup prepares the mapper, the bonds and the output trajectory for the
// atomistic frame aa, which has the structure but not yet the coordinates.
func (r *run) setup(aa *cg.Frame) error {
	if r.opts.ITP != "" {
		itp, err := top.ReadITP(r.opts.ITP)
		if err != nil {
			return fmt.Errorf("reading ITP: %w", err)
		}
		n := top.ApplyITP(aa, itp)
		r.log.Debug("applied ITP data", logging.String("file", r.opts.ITP), logging.Int("atoms", n))
	}
	mapping := r.mapping
	natoms := aa.Len()
	if mapping != nil {
		center, err := cg.ParseCenter(r.opts.MapCenter)
		if err != nil {
			return err
		}
		if r.mapper, err = cg.NewMapper(mapping, aa, center); err != nil {
			return err
		}
		natoms = r.mapper.Len()
	} else {
		mapping = cg.IdentityMapping(aa)
	}
	r.res.Beads = natoms
	if r.specs != nil {
		bs, err := cg.NewBondSet(r.specs)
		if err != nil {
			return err
		}
		if r.opts.GenerateAngles {
			r.log.Info("generated angles", logging.Int("count", bs.GenerateAngles()))
		}
		if r.opts.GenerateDihedrals {
			r.log.Info("generated dihedrals", logging.Int("count", bs.GenerateDihedrals()))
		}
		if err := bs.Resolve(mapping); err != nil {
			return err
		}
		r.bonds = bs
		r.mapping = mapping
		r.res.Bonds = bs.Len()
	}
	if r.opts.OutputTraj || (r.opts.IsMapOnly() && r.opts.Traj != "") {
		w, err := NewFrameWriter(r.opts.Output, r.output("_traj"+Extension(r.opts.Output)), natoms)
		if err != nil {
			return err
		}
		r.writer = w
	}
	r.log.Info("run prepared", logging.Int("atoms", aa.Len()), logging.Int("beads", natoms), logging.Int("bonds", r.res.Bonds), logging.Bool("map_only", r.opts.IsMapOnly()))
	return nil
}

func (r *run) scan(ctx context.Context, fr *source.FrameReader) error {
	aa := fr.Frame()
	cgf := aa
	if r.mapper != nil {
		cgf = r.mapper.Frame()
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := fr.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if r.mapper != nil {
			if err := r.mapper.Apply(aa, cgf); err != nil {
				return fmt.Errorf("mapping frame %d: %w", aa.Number, err)
			}
		}
		if r.res.Frames == 0 {
			name := r.output(".gro")
			if err := gro.WriteFrame(name, cgf); err != nil {
				return err
			}
			r.wrote(name)
		}
		if r.bonds != nil {
			if r.opts.Workers > 1 {
				r.bonds.ApplyConcurrent(cgf, r.opts.Workers)
			} else {
				r.bonds.Apply(cgf)
			}
		}
		if r.writer != nil {
			if err := r.writer.WNext(cgf); err != nil {
				return err
			}
		}
		r.res.Frames++
	}
	if r.res.Frames == 0 {
		return fmt.Errorf("no frames read from %s %s between %d and %d", r.opts.Gro, r.opts.Traj, r.opts.Begin, r.opts.End)
	}
	return nil
}

func (r *run) writeResults(ctx context.Context) error {
	name := r.output(".itp")
	fout, err := os.Create(name)
	if err != nil {
		return err
	}
	err = top.WriteITP(fout, r.bonds, r.mapping, top.ITPOptions{ConstraintThreshold: r.opts.ConstrThreshold})
	if cerr := fout.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing ITP: %w", err)
	}
	r.wrote(name)
	dir := filepath.Dir(r.opts.OutputName)
	if r.opts.OutputForceField {
		files, err := top.WriteForceField(dir, filepath.Base(r.opts.OutputName), r.bonds, r.mapping, top.ITPOptions{ConstraintThreshold: r.opts.ConstrThreshold})
		if err != nil {
			return fmt.Errorf("writing force field: %w", err)
		}
		for _, f := range files {
			r.wrote(f)
		}
	}
	if r.opts.Dump() {
		files, err := WriteDumps(dir, r.bonds, r.opts.DumpNValues)
		if err != nil {
			return fmt.Errorf("writing measurements: %w", err)
		}
		for _, f := range files {
			r.wrote(f)
		}
		name := r.output("_histograms.json")
		if err := WriteHistograms(name, r.bonds); err != nil {
			return fmt.Errorf("writing histograms: %w", err)
		}
		r.wrote(name)
	}
	if r.opts.Plot {
		files, err := Plot(dir, r.bonds)
		if err != nil {
			return fmt.Errorf("plotting: %w", err)
		}
		for _, f := range files {
			r.wrote(f)
		}
	}
	if r.opts.Store != "" {
		if err := r.save(ctx); err != nil {
			return fmt.Errorf("storing run: %w", err)
		}
	}
	r.log.Info("parameters written", logging.String("itp", name), logging.Int("files", len(r.res.Files)))
	return nil
}

func (r *run) save(ctx context.Context) error {
	s, err := store.New(r.opts.Store, r.opts.StorePath)
	if err != nil {
		return err
	}
	if err := s.Init(ctx); err != nil {
		return err
	}
	defer s.Close()
	rec := store.NewRun(r.opts.Gro, r.opts.Traj, r.opts.Temperature)
	rec.Frames = r.res.Frames
	if err := s.SaveRun(ctx, rec); err != nil {
		return err
	}
	if err := s.SaveBonds(ctx, rec.ID, records(r.bonds, r.opts.DumpNValues)); err != nil {
		return err
	}
	r.res.RunID = rec.ID
	r.log.Info("run stored", logging.String("id", rec.ID), logging.String("store", r.opts.Store))
	return nil
}
