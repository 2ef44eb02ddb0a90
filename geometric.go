/*
 * geometric.go, part of gocg.
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

	v3 "github.com/rmera/gocg/v3"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Deg2Rad and Rad2Deg are the conversion factors between degrees and radians.
const (
	Deg2Rad = math.Pi / 180.0
	Rad2Deg = 180.0 / math.Pi
)

func checkPoints(points ...*v3.Matrix) {
	for number, point := range points {
		if point == nil {
			panic(fmt.Sprintf("Vector %d is nil", number))
		}
		if pr, pc := point.Dims(); pr != 1 || pc != 3 {
			panic(fmt.Sprintf("Vector %d has invalid shape", number))
		}
	}
}

// Length returns the distance between the points a and b.
func Length(a, b *v3.Matrix) float64 {
	checkPoints(a, b)
	bma := v3.Zeros(1)
	bma.Sub(b, a)
	return bma.Norm()
}

// Angle returns the angle, in degrees, at b between the points a, b, c.
// Collinear points with b between a and c give 180.
func Angle(a, b, c *v3.Matrix) float64 {
	checkPoints(a, b, c)
	u := v3.Zeros(1)
	v := v3.Zeros(1)
	u.Sub(b, a)
	v.Sub(c, b)
	cr := v3.Zeros(1)
	cr.Cross(u, v)
	return 180.0 - Rad2Deg*math.Atan2(cr.Norm(), u.Dot(v))
}

// Dihedral returns the signed dihedral, in degrees, between the plane defined by a, b, c
// and the one defined by b, c, d. The result is in (-180, 180].
func Dihedral(a, b, c, d *v3.Matrix) float64 {
	checkPoints(a, b, c, d)
	//bma=b minus a
	bma := v3.Zeros(1)
	cmb := v3.Zeros(1)
	dmc := v3.Zeros(1)
	bma.Sub(b, a)
	cmb.Sub(c, b)
	dmc.Sub(d, c)
	n1 := v3.Zeros(1)
	n2 := v3.Zeros(1)
	n1.Cross(bma, cmb)
	n2.Cross(cmb, dmc)
	n1n2 := v3.Zeros(1)
	n1n2.Cross(n1, n2)
	dihedral := Rad2Deg * math.Atan2(n1n2.Norm(), n1.Dot(n2))
	if cmb.Dot(n1n2) > 0 {
		return dihedral
	}
	if dihedral == 0 {
		return 0
	}
	if dihedral == 180 {
		return dihedral
	}
	return -dihedral
}

// CenterOfMass returns the center of mass of the points in geometry, with
// the masses in mass. If mass is nil, it returns the geometric center.
func CenterOfMass(geometry *v3.Matrix, mass []float64) (*v3.Matrix, error) {
	if geometry == nil {
		return nil, fmt.Errorf("nil matrix to get the center of mass")
	}
	gr := geometry.NVecs()
	if mass == nil {
		return Centroid(geometry)
	}
	if len(mass) != gr {
		return nil, fmt.Errorf("%d masses for %d points", len(mass), gr)
	}
	total := floats.Sum(mass)
	if total == 0 {
		return nil, fmt.Errorf("total mass is zero")
	}
	massrow := mat.NewDense(1, gr, mass)
	ret := v3.Zeros(1)
	ret.Mul(massrow, geometry)
	ret.Scale(1.0/total, ret)
	return ret, nil
}

// Centroid returns the geometric center of the points in geometry.
func Centroid(geometry *v3.Matrix) (*v3.Matrix, error) {
	if geometry == nil {
		return nil, fmt.Errorf("nil matrix to get the centroid")
	}
	gr := geometry.NVecs()
	if gr == 0 {
		return nil, fmt.Errorf("no points to get the centroid")
	}
	ret := v3.Zeros(1)
	col := make([]float64, gr)
	for j := 0; j < 3; j++ {
		mat.Col(col, j, geometry)
		ret.Set(0, j, floats.Sum(col)/float64(gr))
	}
	return ret, nil
}
