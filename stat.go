/*
 * stat.go, part of gocg.
 *
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
 *
 */

package cg

import (
	"fmt"
	"math"
	"sync"
)

// DefaultTemperature is the temperature, in K, used for Boltzmann inversion
// when none is given.
const DefaultTemperature = 310.0

// GasConstant in J/(K mol).
const GasConstant = 8.314

// smallest normal float64. Divisors below it are subnormal or zero.
const minNormal = 0x1p-1022

// Moments accumulates the count, mean and sum of squared deviations
// of a stream of values, with Welford's algorithm.
type Moments struct {
	N    int
	Mean float64
	M2   float64
}

// Add includes x in the moments.
func (M *Moments) Add(x float64) {
	M.N++
	delta := x - M.Mean
	M.Mean += delta / float64(M.N)
	M.M2 += delta * (x - M.Mean)
}

// Variance returns the population variance of the values added so far.
func (M *Moments) Variance() float64 {
	if M.N == 0 {
		return 0
	}
	return M.M2 / float64(M.N)
}

// Merge combines o into the receiver, so the result is the same as if
// all the values added to o had been added to the receiver.
func (M *Moments) Merge(o Moments) {
	if o.N == 0 {
		return
	}
	if M.N == 0 {
		*M = o
		return
	}
	n := M.N + o.N
	delta := o.Mean - M.Mean
	M.Mean += delta * float64(o.N) / float64(n)
	M.M2 += o.M2 + delta*delta*float64(M.N)*float64(o.N)/float64(n)
	M.N = n
}

// StatMoments returns the mean and population variance of values.
func StatMoments(values []float64) (mean, variance float64) {
	var m Moments
	for _, v := range values {
		m.Add(v)
	}
	return m.Mean, m.Variance()
}

// ParallelMoments obtains the moments of values by splitting them in chunks
// that are processed concurrently and merged afterwards.
func ParallelMoments(values []float64, chunks int) Moments {
	if chunks < 1 {
		chunks = 1
	}
	if chunks > len(values) {
		chunks = len(values)
	}
	if chunks <= 1 {
		var m Moments
		for _, v := range values {
			m.Add(v)
		}
		return m
	}
	partial := make([]Moments, chunks)
	size := (len(values) + chunks - 1) / chunks
	var wg sync.WaitGroup
	for i := 0; i < chunks; i++ {
		beg := i * size
		end := beg + size
		if beg >= len(values) {
			break
		}
		if end > len(values) {
			end = len(values)
		}
		wg.Add(1)
		go func(i int, vals []float64) {
			defer wg.Done()
			for _, v := range vals {
				partial[i].Add(v)
			}
		}(i, values[beg:end])
	}
	wg.Wait()
	var ret Moments
	for _, p := range partial {
		ret.Merge(p)
	}
	return ret
}

// BoltzmannInvert obtains the equilibrium value and harmonic force constant
// for a set of measurements of an internal coordinate with the given arity
// (2 for lengths in nm, 3 for angles and 4 for dihedrals, in degrees).
// If the divisor of the inversion is degenerate, k is 0 and ErrDegenerateVariance is
// returned, wrapped, together with the equilibrium value.
func BoltzmannInvert(values []float64, arity int, temperature float64) (eqm, k float64, err error) {
	if len(values) == 0 {
		return 0, 0, fmt.Errorf("no values to invert: %w", ErrDegenerateVariance)
	}
	mean, variance := StatMoments(values)
	rt := GasConstant * temperature / 1000.0
	var divisor float64
	switch arity {
	case 2:
		divisor = variance
	case 3:
		s := math.Sin(mean * Deg2Rad)
		divisor = s * s * variance * Deg2Rad * Deg2Rad
	case 4:
		divisor = variance * Deg2Rad * Deg2Rad
	default:
		return mean, 0, fmt.Errorf("invalid arity %d for Boltzmann inversion", arity)
	}
	if divisor < minNormal || math.IsInf(divisor, 0) || math.IsNaN(divisor) {
		return mean, 0, fmt.Errorf("arity %d, variance %g: %w", arity, variance, ErrDegenerateVariance)
	}
	k = rt / divisor
	if math.IsInf(k, 0) || math.IsNaN(k) {
		return mean, 0, fmt.Errorf("arity %d, variance %g: %w", arity, variance, ErrDegenerateVariance)
	}
	return mean, k, nil
}
