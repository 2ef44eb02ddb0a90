/*
 * plot.go, part of gocg.
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

// Package cgplot draws the distributions of measured internal coordinates
// as PNG files.
package cgplot

import (
	"fmt"
	"image/color"
	"math"

	"github.com/rmera/gocg/histo"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// axisLabel returns the label for the x axis given the kind of coordinate.
func axisLabel(kind string) string {
	switch kind {
	case "length":
		return "Length (nm)"
	case "angle":
		return "Angle (deg)"
	case "dihedral":
		return "Dihedral (deg)"
	}
	return kind
}

func basicPlot(title, kind string) *plot.Plot {
	p := plot.New()
	p.Title.Padding = 3 * vg.Millimeter
	p.Title.Text = title
	p.X.Label.Text = axisLabel(kind)
	p.Y.Label.Text = "Probability"
	p.Add(plotter.NewGrid())
	return p
}

// Distribution saves to filename a histogram plot of e, with a vertical line at eqm.
func Distribution(e *histo.Entry, kind string, eqm float64, filename string) error {
	if e == nil || e.Data == nil {
		return fmt.Errorf("no data to plot in %s", filename)
	}
	p := basicPlot(e.Label, kind)
	d := e.Data.CopyDividers()
	bins := make([]plotter.HistogramBin, 0, len(d)-1)
	for i, w := range e.Data.View() {
		bins = append(bins, plotter.HistogramBin{Min: d[i], Max: d[i+1], Weight: w})
	}
	h := &plotter.Histogram{
		Bins:      bins,
		Width:     d[len(d)-1] - d[0],
		FillColor: color.RGBA{R: 90, G: 140, B: 220, A: 255},
		LineStyle: plotter.DefaultLineStyle,
	}
	p.Add(h)
	ymax := 0.0
	for _, b := range bins {
		ymax = math.Max(ymax, b.Weight)
	}
	l, err := plotter.NewLine(plotter.XYs{{X: eqm, Y: 0}, {X: eqm, Y: ymax}})
	if err != nil {
		return err
	}
	l.LineStyle.Color = color.RGBA{R: 220, A: 255}
	l.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(l)
	p.Legend.Add(fmt.Sprintf("eqm %.3f", eqm), l)
	return p.Save(4*vg.Inch, 4*vg.Inch, filename)
}

// Overlay saves to filename the distributions in entries as lines, each
// with its own color, so the terms of one kind in a molecule can be compared.
func Overlay(entries []*histo.Entry, title, kind, filename string) error {
	if len(entries) == 0 {
		return fmt.Errorf("no data to plot in %s", filename)
	}
	p := basicPlot(title, kind)
	for key, e := range entries {
		if e == nil {
			continue
		}
		d := e.Data.CopyDividers()
		pts := make(plotter.XYs, 0, len(d)-1)
		for i, w := range e.Data.View() {
			pts = append(pts, plotter.XY{X: (d[i] + d[i+1]) / 2, Y: w})
		}
		l, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		r, g, b := colors(key, len(entries))
		l.LineStyle.Color = color.RGBA{R: r, G: g, B: b, A: 255}
		l.LineStyle.Width = vg.Points(1.5)
		p.Add(l)
		p.Legend.Add(e.Label, l)
	}
	return p.Save(5*vg.Inch, 4*vg.Inch, filename)
}

// takes hue (0-360), v and s (0-1), returns r,g,b (0-255)
func iHVS2RGB(h, v, s float64) (uint8, uint8, uint8) {
	var r, g, b float64
	conversion := 255.0 * v
	if s == 0.0 {
		return uint8(conversion), uint8(conversion), uint8(conversion)
	}
	h = h / 60
	i := math.Floor(h)
	f := h - i
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))
	switch int(i) {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default: //case 5
		r, g, b = v, p, q
	}
	return uint8(r * conversion), uint8(g * conversion), uint8(b * conversion)
}

// colors spreads steps colors over the hue circle, skipping the yellows
// which are hard to see on white.
func colors(key, steps int) (r, g, b uint8) {
	norm := 260.0 / float64(steps)
	hp := float64(key)*norm + 20.0
	var h float64
	if hp < 55 {
		h = hp - 20.0
	} else {
		h = hp + 20.0
	}
	return iHVS2RGB(h, 1, 1)
}
