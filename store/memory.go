/*
 * memory.go, part of gocg.
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

package store

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// MemoryStore keeps runs in memory. It is mostly useful for tests and
// for runs where only the dump files matter.
type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]Run
	bonds       map[string][]BondRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}
	s.initialized = true
	s.runs = make(map[string]Run)
	s.bonds = make(map[string][]BondRecord)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return errors.New("store is not initialized")
	}
	if err := checkVersion(run.Version); err != nil {
		return err
	}
	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (Run, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	return run, ok, nil
}

// ListRuns returns the runs sorted by start time.
func (s *MemoryStore) ListRuns(_ context.Context) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ret := make([]Run, 0, len(s.runs))
	for _, r := range s.runs {
		ret = append(ret, r)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Started.Before(ret[j].Started) })
	return ret, nil
}

func (s *MemoryStore) SaveBonds(_ context.Context, runID string, bonds []BondRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return errors.New("store is not initialized")
	}
	cp := make([]BondRecord, len(bonds))
	for i, b := range bonds {
		b.Atoms = append([]string(nil), b.Atoms...)
		b.Samples = append([]float64(nil), b.Samples...)
		cp[i] = b
	}
	s.bonds[runID] = cp
	return nil
}

func (s *MemoryStore) GetBonds(_ context.Context, runID string) ([]BondRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bonds[runID]
	return b, ok, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
