/*
 * stat_test.go, part of gocg.
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

package cg

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/stat"
)

func TestStatMoments(Te *testing.T) {
	mean, variance := StatMoments([]float64{1, 2, 3, 4, 5})
	if mean != 3 || !scalar.EqualWithinAbs(variance, 2, 1e-12) {
		Te.Errorf("expected (3, 2), got (%f, %f)", mean, variance)
	}
	mean, variance = StatMoments([]float64{3, 3, 3, 3, 3})
	if mean != 3 || variance != 0 {
		Te.Errorf("expected (3, 0), got (%f, %f)", mean, variance)
	}
}

func TestMomentsMerge(Te *testing.T) {
	r := rand.New(rand.NewSource(42))
	vals := make([]float64, 1001)
	for i := range vals {
		vals[i] = r.NormFloat64()*3 + 7
	}
	var seq Moments
	for _, v := range vals {
		seq.Add(v)
	}
	for _, chunks := range []int{1, 2, 7, 64} {
		par := ParallelMoments(vals, chunks)
		if par.N != seq.N || !scalar.EqualWithinRel(par.Mean, seq.Mean, 1e-10) || !scalar.EqualWithinRel(par.Variance(), seq.Variance(), 1e-10) {
			Te.Errorf("%d chunks: merged %+v differs from sequential %+v", chunks, par, seq)
		}
	}
	//independent reference
	refmean, refstd := stat.PopMeanStdDev(vals, nil)
	if !scalar.EqualWithinRel(seq.Mean, refmean, 1e-10) || !scalar.EqualWithinRel(seq.Variance(), refstd*refstd, 1e-10) {
		Te.Errorf("moments %+v differ from the reference %f %f", seq, refmean, refstd*refstd)
	}
	var empty Moments
	empty.Merge(seq)
	if empty != seq {
		Te.Error("merging into empty moments should copy them")
	}
}

func TestBoltzmannConstant(Te *testing.T) {
	for arity := 2; arity <= 4; arity++ {
		eqm, k, err := BoltzmannInvert([]float64{1.5, 1.5, 1.5}, arity, DefaultTemperature)
		if k != 0 || eqm != 1.5 {
			Te.Errorf("arity %d: constant samples should give k=0 and eqm 1.5, got %f %f", arity, k, eqm)
		}
		if !errors.Is(err, ErrDegenerateVariance) {
			Te.Errorf("arity %d: expected a degenerate variance error, got %v", arity, err)
		}
	}
	//an angle of 180 degrees has sin=0
	_, k, err := BoltzmannInvert([]float64{179.9, 180, 180.1}, 3, DefaultTemperature)
	if k == 0 && err == nil {
		Te.Error("a zero force constant should come with ErrDegenerateVariance")
	}
}

func TestBoltzmannGaussian(Te *testing.T) {
	r := rand.New(rand.NewSource(7))
	const mu, sigma = 0.47, 0.02
	vals := make([]float64, 200000)
	for i := range vals {
		vals[i] = r.NormFloat64()*sigma + mu
	}
	eqm, k, err := BoltzmannInvert(vals, 2, 300)
	if err != nil {
		Te.Fatal(err)
	}
	rt := GasConstant * 300 / 1000
	if !scalar.EqualWithinAbs(eqm, mu, 1e-3) {
		Te.Errorf("expected eqm %f, got %f", mu, eqm)
	}
	if !scalar.EqualWithinRel(k, rt/(sigma*sigma), 0.02) {
		Te.Errorf("expected k %f, got %f", rt/(sigma*sigma), k)
	}
	//dihedrals, in degrees
	for i := range vals {
		vals[i] = r.NormFloat64()*10 + 60
	}
	_, k, err = BoltzmannInvert(vals, 4, 300)
	if err != nil {
		Te.Fatal(err)
	}
	want := rt / (100 * Deg2Rad * Deg2Rad)
	if !scalar.EqualWithinRel(k, want, 0.02) {
		Te.Errorf("expected dihedral k %f, got %f", want, k)
	}
	//angles
	for i := range vals {
		vals[i] = r.NormFloat64()*5 + 120
	}
	_, k, _ = BoltzmannInvert(vals, 3, 300)
	s := math.Sin(120 * Deg2Rad)
	want = rt / (s * s * 25 * Deg2Rad * Deg2Rad)
	if !scalar.EqualWithinRel(k, want, 0.03) {
		Te.Errorf("expected angle k %f, got %f", want, k)
	}
}

// The bond force constant approaches RT/sigma^2 as the number of samples
// grows, with a relative error of about sqrt(2/L).
func TestBoltzmannConvergence(Te *testing.T) {
	r := rand.New(rand.NewSource(11))
	const mu, sigma = 0.35, 0.015
	want := GasConstant * 300 / 1000 / (sigma * sigma)
	for _, L := range []int{100, 1000, 10000, 100000, 1000000} {
		vals := make([]float64, L)
		for i := range vals {
			vals[i] = r.NormFloat64()*sigma + mu
		}
		_, k, err := BoltzmannInvert(vals, 2, 300)
		if err != nil {
			Te.Fatal(err)
		}
		rel := math.Abs(k-want) / want
		if bound := 4 * math.Sqrt(2/float64(L)); rel > bound {
			Te.Errorf("%d samples: relative error %.4f above %.4f", L, rel, bound)
		}
	}
}
