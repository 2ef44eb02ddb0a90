/*
 * source.go, part of gocg.
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

// Package source opens a topology and an optional trajectory with the first
// backend that accepts them, and delivers the trajectory as a sequence of
// cg.Frame snapshots.
package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	cg "github.com/rmera/gocg"
	"github.com/rmera/gocg/logging"
	"github.com/rmera/gocg/traj/crd"
	"github.com/rmera/gocg/traj/dcd"
	"github.com/rmera/gocg/traj/gro"
	"github.com/rmera/gocg/traj/pdb"
	"github.com/rmera/gocg/traj/stf"
)

// Reader delivers the frames of a topology/trajectory pair.
type Reader interface {
	//InitialStructure returns a new frame with the residues and atoms
	//of the topology and its coordinates.
	InitialStructure() (*cg.Frame, error)

	//Next overwrites the coordinates, box and time of f with those
	//of the next trajectory frame. It returns a cg.LastFrameError
	//when there are no frames left.
	Next(f *cg.Frame) error

	//Rewind restarts the reading from the first trajectory frame.
	Rewind() error

	NAtoms() int
	Close() error
}

// Backend is a trajectory format that can be tried on a pair of files.
type Backend interface {
	Name() string
	Try(topology, trajectory string) (Reader, error)
}

// trajHandle is what every traj/ reader offers.
type trajHandle interface {
	cg.Traj
	Close()
}

// opener opens a trajectory of natoms atoms.
type opener func(name string, natoms int) (trajHandle, error)

// topologies are the readers for the topology files, by extension.
var topologies = map[string]func(string) (*cg.Frame, error){
	".gro": gro.ReadFrame,
	".pdb": pdb.ReadFrame,
}

// trajBackend uses a GRO or PDB topology and a trajectory reader from the traj packages.
type trajBackend struct {
	name     string
	exts     []string
	optional bool //the trajectory can be omitted, and the topology is used instead
	open     opener
}

func (B *trajBackend) Name() string {
	return B.name
}

func ext(name string) string {
	base := strings.ToLower(filepath.Base(name))
	if strings.HasSuffix(base, ".dcd.gz") || strings.HasSuffix(base, ".dcd.lzw") {
		return ".dcd"
	}
	return filepath.Ext(base)
}

func (B *trajBackend) accepts(trajectory string) bool {
	e := ext(trajectory)
	for _, v := range B.exts {
		if e == v {
			return true
		}
	}
	return false
}

// Try checks that the topology is a GRO or PDB file and that the trajectory
// has an extension the backend handles, then opens both and compares their
// atom counts. Missing files give an error wrapping fs.ErrNotExist.
func (B *trajBackend) Try(topology, trajectory string) (Reader, error) {
	for _, name := range []string{topology, trajectory} {
		if name == "" {
			continue
		}
		if _, err := os.Stat(name); err != nil {
			return nil, err
		}
	}
	readTopology, ok := topologies[ext(topology)]
	if !ok {
		return nil, fmt.Errorf("%s: topology %s: %w", B.name, topology, cg.ErrUnsupportedFormat)
	}
	if trajectory == "" {
		if !B.optional {
			return nil, fmt.Errorf("%s: a trajectory is required: %w", B.name, cg.ErrUnsupportedFormat)
		}
		trajectory = topology
	}
	if !B.accepts(trajectory) {
		return nil, fmt.Errorf("%s: trajectory %s: %w", B.name, trajectory, cg.ErrUnsupportedFormat)
	}
	initial, err := readTopology(topology)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", B.name, cg.ErrUnsupportedFormat, err)
	}
	natoms := initial.Len()
	open := func(s string) (trajHandle, error) { return B.open(s, natoms) }
	t, err := open(trajectory)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", B.name, cg.ErrUnsupportedFormat, err)
	}
	if t.Len() != initial.Len() {
		t.Close()
		return nil, &cg.NonMatchingSystemError{Topology: topology, Trajectory: trajectory, TopologyAtoms: initial.Len(), TrajectoryAtoms: t.Len()}
	}
	return &reader{trajectory: trajectory, initial: initial, open: open, t: t, box: make([]float64, 9)}, nil
}

type reader struct {
	trajectory string
	initial    *cg.Frame
	open       func(string) (trajHandle, error)
	t          trajHandle
	box        []float64
	frames     int
}

func (R *reader) InitialStructure() (*cg.Frame, error) {
	return R.initial.CopyStructure(), nil
}

func (R *reader) NAtoms() int {
	return R.initial.Len()
}

func (R *reader) Next(f *cg.Frame) error {
	if f.Coords == nil || f.Coords.NVecs() != R.initial.Len() {
		return &cg.NonMatchingSystemError{Topology: f.Name, Trajectory: R.trajectory, TopologyAtoms: f.Len(), TrajectoryAtoms: R.initial.Len()}
	}
	if R.t == nil || !R.t.Readable() {
		return lastFrame{R.trajectory}
	}
	for i := range R.box {
		R.box[i] = 0
	}
	if err := R.t.Next(f.Coords, R.box); err != nil {
		return err
	}
	f.Box = [3]float64{R.box[0], R.box[4], R.box[8]}
	if ti, ok := R.t.(cg.Timer); ok {
		f.Time = ti.Time()
	}
	f.Number = R.frames
	R.frames++
	return nil
}

func (R *reader) Rewind() error {
	if R.t != nil {
		R.t.Close()
	}
	t, err := R.open(R.trajectory)
	if err != nil {
		R.t = nil
		return err
	}
	R.t = t
	R.frames = 0
	return nil
}

func (R *reader) Close() error {
	if R.t != nil {
		R.t.Close()
		R.t = nil
	}
	return nil
}

// lastFrame is returned when Next is called on a closed reader.
type lastFrame struct {
	filename string
}

func (E lastFrame) NormalLastFrameTermination() {}
func (E lastFrame) FileName() string           { return E.filename }
func (E lastFrame) Error() string              { return "EOF" }
func (E lastFrame) Critical() bool             { return false }
func (E lastFrame) Format() string             { return "source" }
func (E lastFrame) Decorate(string) []string   { return nil }

// Backends returns the available backends, in the order in which they are tried.
func Backends() []Backend {
	return []Backend{
		&trajBackend{name: "gro", exts: []string{".gro"}, optional: true, open: func(s string, _ int) (trajHandle, error) { return gro.New(s) }},
		&trajBackend{name: "pdb", exts: []string{".pdb"}, optional: true, open: func(s string, _ int) (trajHandle, error) { return pdb.New(s) }},
		&trajBackend{name: "stf", exts: []string{".stf", ".stz", ".stl", ".str"}, open: func(s string, _ int) (trajHandle, error) {
			r, _, err := stf.New(s)
			return r, err
		}},
		&trajBackend{name: "dcd", exts: []string{".dcd"}, open: func(s string, _ int) (trajHandle, error) { return dcd.New(s) }},
		&trajBackend{name: "crd", exts: []string{".crd", ".mdcrd"}, open: func(s string, n int) (trajHandle, error) { return crd.New(s, n) }},
	}
}

// Option configures Open.
type Option func(*options)

type options struct {
	log      logging.Logger
	backends []Backend
}

// WithLogger sets the logger that reports which backend is used.
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithBackends replaces the list of backends to try.
func WithBackends(b ...Backend) Option {
	return func(o *options) { o.backends = b }
}

// Open returns a Reader for topology and trajectory (which can be empty).
// If name is not empty only that backend is tried. Otherwise the backends
// are tried in order and the first one that succeeds is used. If all fail and
// any of them found a different number of atoms in the topology and the
// trajectory, the *cg.NonMatchingSystemError is returned. Otherwise the returned error wraps
// cg.ErrUnsupportedFormat and each backend error. A missing file is reported
// as is, with an error wrapping fs.ErrNotExist.
func Open(topology, trajectory, name string, opts ...Option) (Reader, error) {
	o := &options{log: logging.NewNop(), backends: Backends()}
	for _, opt := range opts {
		opt(o)
	}
	log := o.log.Named("source")
	if name != "" {
		for _, b := range o.backends {
			if b.Name() == name {
				return b.Try(topology, trajectory)
			}
		}
		return nil, fmt.Errorf("trajectory reader %q is not a valid option", name)
	}
	var nonmatching *cg.NonMatchingSystemError
	errs := []error{fmt.Errorf("no reader supports %s %s: %w", topology, trajectory, cg.ErrUnsupportedFormat)}
	for _, b := range o.backends {
		r, err := b.Try(topology, trajectory)
		if err == nil {
			log.Info("using trajectory reader", logging.String("backend", b.Name()), logging.String("topology", topology), logging.String("trajectory", trajectory))
			return r, nil
		}
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		log.Debug("trajectory reader failed", logging.String("backend", b.Name()), logging.Err(err))
		var nm *cg.NonMatchingSystemError
		if errors.As(err, &nm) {
			if nonmatching == nil {
				nonmatching = nm
			}
			continue
		}
		errs = append(errs, err)
	}
	if nonmatching != nil {
		return nil, nonmatching
	}
	return nil, errors.Join(errs...)
}

// FrameReader reads the frames of a Reader within a range, into a single
// frame that is overwritten each time.
type FrameReader struct {
	r         Reader
	frame     *cg.Frame
	begin     int
	end       int //negative means up to the last frame
	read      int //frames read from the trajectory
	exhausted bool
}

// NewFrameReader wraps r so Next yields frames begin to end (0-based, end excluded).
// A negative end reads until the last frame.
func NewFrameReader(r Reader, begin, end int) (*FrameReader, error) {
	if begin < 0 {
		return nil, fmt.Errorf("negative first frame %d", begin)
	}
	if end >= 0 && end < begin {
		return nil, fmt.Errorf("last frame %d is before the first, %d", end, begin)
	}
	f, err := r.InitialStructure()
	if err != nil {
		return nil, err
	}
	return &FrameReader{r: r, frame: f, begin: begin, end: end}, nil
}

// Frame returns the frame that Next fills.
func (F *FrameReader) Frame() *cg.Frame {
	return F.frame
}

// Next reads the next frame in the range. It returns false at the end of
// the range or of the trajectory, and an error only if reading failed.
func (F *FrameReader) Next() (bool, error) {
	if F.exhausted {
		return false, nil
	}
	for {
		if F.end >= 0 && F.read >= F.end {
			F.exhausted = true
			return false, nil
		}
		err := F.r.Next(F.frame)
		if err != nil {
			F.exhausted = true
			if cg.IsLastFrame(err) {
				return false, nil
			}
			return false, err
		}
		F.read++
		if F.read > F.begin {
			return true, nil
		}
	}
}

// Count returns the number of frames delivered so far.
func (F *FrameReader) Count() int {
	n := F.read - F.begin
	if n < 0 {
		return 0
	}
	return n
}

// Exhausted returns true when no more frames will be delivered.
func (F *FrameReader) Exhausted() bool {
	return F.exhausted
}

// Rewind restarts the reading from the first frame of the range.
func (F *FrameReader) Rewind() error {
	if err := F.r.Rewind(); err != nil {
		return err
	}
	F.read = 0
	F.exhausted = false
	return nil
}
