/*
 * store.go, part of gocg.
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

// Package store persists the statistics and the samples of the bonds
// measured in a run, so runs can be compared without re-reading the trajectories.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

// SchemaVersion is the version of the stored records.
const SchemaVersion = 1

var ErrVersionMismatch = errors.New("record version mismatch")

// Run describes one execution of the pipeline.
type Run struct {
	ID          string    `json:"id"`
	Version     int       `json:"version"`
	Started     time.Time `json:"started"`
	Topology    string    `json:"topology"`
	Trajectory  string    `json:"trajectory"`
	Frames      int       `json:"frames"`
	Temperature float64   `json:"temperature"`
}

// NewRun returns a Run with a fresh identifier.
func NewRun(topology, trajectory string, temperature float64) Run {
	return Run{
		ID:          uuid.NewString(),
		Version:     SchemaVersion,
		Started:     time.Now().UTC(),
		Topology:    topology,
		Trajectory:  trajectory,
		Temperature: temperature,
	}
}

// BondRecord holds the result for one bond of one molecule.
type BondRecord struct {
	Molecule string    `json:"molecule"`
	Atoms    []string  `json:"atoms"`
	Eqm      float64   `json:"eqm"`
	K        float64   `json:"k"`
	N        int       `json:"n"`
	Mean     float64   `json:"mean"`
	StdDev   float64   `json:"stddev"`
	Samples  []float64 `json:"samples,omitempty"`
}

// Kind returns "length", "angle" or "dihedral" depending on the number of atoms.
func (B BondRecord) Kind() string {
	switch len(B.Atoms) {
	case 2:
		return "length"
	case 3:
		return "angle"
	case 4:
		return "dihedral"
	}
	return "unknown"
}

// Store is implemented by the backends that can keep runs.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, id string) (Run, bool, error)
	ListRuns(ctx context.Context) ([]Run, error)
	SaveBonds(ctx context.Context, runID string, bonds []BondRecord) error
	GetBonds(ctx context.Context, runID string) ([]BondRecord, bool, error)
	Close() error
}

// New returns an uninitialized store of the given kind, "memory" (the default)
// or "sqlite", in which case path is the database file.
func New(kind, path string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		if path == "" {
			return nil, errors.New("sqlite store requires a path")
		}
		return NewSQLiteStore(path), nil
	}
	return nil, fmt.Errorf("unsupported store backend: %s", kind)
}

func checkVersion(v int) error {
	if v != SchemaVersion {
		return fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, v, SchemaVersion)
	}
	return nil
}

// the decoder and encoder are safe for concurrent use with EncodeAll/DecodeAll.
var (
	encoder, _ = zstd.NewWriter(nil)
	decoder, _ = zstd.NewReader(nil)
)

type bondsPayload struct {
	Version int          `json:"version"`
	Bonds   []BondRecord `json:"bonds"`
}

// encodeBonds serializes bonds as zstd-compressed JSON.
func encodeBonds(bonds []BondRecord) ([]byte, error) {
	raw, err := json.Marshal(bondsPayload{Version: SchemaVersion, Bonds: bonds})
	if err != nil {
		return nil, err
	}
	return encoder.EncodeAll(raw, nil), nil
}

func decodeBonds(data []byte) ([]BondRecord, error) {
	raw, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress bonds: %w", err)
	}
	var p bondsPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	if err := checkVersion(p.Version); err != nil {
		return nil, err
	}
	return p.Bonds, nil
}
