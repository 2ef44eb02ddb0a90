/*
 * plot_test.go, part of gocg.
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

package cgplot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rmera/gocg/histo"
)

func TestDistribution(Te *testing.T) {
	values := []float64{0.30, 0.31, 0.31, 0.32, 0.32, 0.32, 0.33, 0.33, 0.34}
	e := histo.FromValues("ALLA C1-C2", values, 5)
	fname := filepath.Join(Te.TempDir(), "ALLA_length_0.png")
	if err := Distribution(e, "length", e.Mean, fname); err != nil {
		Te.Fatal(err)
	}
	if st, err := os.Stat(fname); err != nil || st.Size() == 0 {
		Te.Errorf("no plot written: %v", err)
	}
	if err := Distribution(nil, "length", 0, fname); err == nil {
		Te.Error("nil entry should fail")
	}
}

func TestOverlay(Te *testing.T) {
	a := histo.FromValues("C1 C2 C3", []float64{100, 110, 120, 115}, 4)
	b := histo.FromValues("C2 C3 C4", []float64{150, 160, 170}, 4)
	fname := filepath.Join(Te.TempDir(), "ALLA_angle.png")
	if err := Overlay([]*histo.Entry{a, b}, "ALLA angles", "angle", fname); err != nil {
		Te.Fatal(err)
	}
	if _, err := os.Stat(fname); err != nil {
		Te.Error(err)
	}
}

func TestColors(Te *testing.T) {
	seen := make(map[[3]uint8]bool)
	for i := 0; i < 6; i++ {
		r, g, b := colors(i, 6)
		seen[[3]uint8{r, g, b}] = true
	}
	if len(seen) != 6 {
		Te.Errorf("only %d different colors for 6 steps", len(seen))
	}
	if r, g, b := iHVS2RGB(0, 1, 0); r != 255 || g != 255 || b != 255 {
		Te.Errorf("white is %d %d %d", r, g, b)
	}
}
