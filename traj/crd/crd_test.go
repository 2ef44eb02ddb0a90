/*
 * crd_test.go, part of gocg.
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

package crd

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	cg "github.com/rmera/gocg"
	v3 "github.com/rmera/gocg/v3"
)

// 4 atoms, 12 values per frame: a full line of 10 and one of 2.
const withBox = `title line
   1.000   2.000   3.000   4.000   5.000   6.000   7.000   8.000   9.000  10.000
  11.000  12.000
  30.000  40.000  50.000
 -11.000-112.000   3.000   4.000   5.000   6.000   7.000   8.000   9.000  10.000
  11.000  12.000
  31.000  41.000  51.000
`

const noBox = `title line
   1.000   2.000   3.000   4.000   5.000   6.000   7.000   8.000   9.000  10.000
  11.000  12.000
   2.000   2.000   3.000   4.000   5.000   6.000   7.000   8.000   9.000  10.000
  11.000  12.000
   3.000   2.000   3.000   4.000   5.000   6.000   7.000   8.000   9.000  10.000
  11.000  12.000
`

func writeFixture(Te *testing.T, name, content string) string {
	Te.Helper()
	fname := filepath.Join(Te.TempDir(), name)
	if err := os.WriteFile(fname, []byte(content), 0o644); err != nil {
		Te.Fatal(err)
	}
	return fname
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func readAll(Te *testing.T, C *CrdR) (xs, boxes []float64) {
	Te.Helper()
	coords := v3.Zeros(C.Len())
	box := make([]float64, 9)
	for {
		box[0] = 0
		err := C.Next(coords, box)
		if err != nil {
			if !cg.IsLastFrame(err) {
				Te.Fatal(err)
			}
			break
		}
		xs = append(xs, coords.At(0, 0))
		boxes = append(boxes, box[0])
		if !near(coords.At(3, 2), 1.2) {
			Te.Errorf("last value %v, expected 1.2", coords.At(3, 2))
		}
	}
	return xs, boxes
}

func TestBox(Te *testing.T) {
	C, err := New(writeFixture(Te, "box.crd", withBox), 4)
	if err != nil {
		Te.Fatal(err)
	}
	xs, boxes := readAll(Te, C)
	if len(xs) != 2 || !near(xs[0], 0.1) || !near(xs[1], -1.1) {
		Te.Errorf("x values %v", xs)
	}
	if len(boxes) != 2 || !near(boxes[0], 3) || !near(boxes[1], 3.1) {
		Te.Errorf("box lengths %v", boxes)
	}
	if C.Readable() {
		Te.Error("reader should be closed after the last frame")
	}
}

func TestNoBox(Te *testing.T) {
	C, err := New(writeFixture(Te, "nobox.crd", noBox), 4)
	if err != nil {
		Te.Fatal(err)
	}
	xs, boxes := readAll(Te, C)
	if len(xs) != 3 || !near(xs[2], 0.3) {
		Te.Errorf("x values %v", xs)
	}
	for _, b := range boxes {
		if b != 0 {
			Te.Errorf("no box expected, got %v", boxes)
		}
	}
}

func TestBadCrd(Te *testing.T) {
	if _, err := New(writeFixture(Te, "bad.crd", noBox), 0); err == nil {
		Te.Error("0 atoms should fail")
	}
	if _, err := New(writeFixture(Te, "text.crd", "title\nnot numbers at all\n"), 4); err == nil {
		Te.Error("a file without numbers should fail")
	}
	//5 atoms need 15 values, the file has 12 per frame
	C, err := New(writeFixture(Te, "short.crd", noBox), 5)
	if err != nil {
		Te.Fatal(err)
	}
	if err := C.Next(nil); err == nil || cg.IsLastFrame(err) {
		Te.Errorf("frames of the wrong size should fail, got %v", err)
	}
}
