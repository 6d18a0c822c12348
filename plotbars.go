// Copyright (C) The StrandLabs Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package strandlabs

import (
	"fmt"
	"image/color"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// plotTopMarkers renders three side-by-side horizontal bar charts
// (one per raw score type) for the top ranked markers into a single
// png.
func plotTopMarkers(fnm string, top []markerScore) error {
	if len(top) == 0 {
		return fmt.Errorf("no markers to plot")
	}
	// Reverse so rank 1 lands at the top of each chart.
	names := make([]string, len(top))
	fvals := make(plotter.Values, len(top))
	rfvals := make(plotter.Values, len(top))
	lrvals := make(plotter.Values, len(top))
	for i, s := range top {
		j := len(top) - 1 - i
		names[j] = s.Marker
		fvals[j] = s.FScore
		rfvals[j] = s.RFImportance
		lrvals[j] = s.LRCoefficient
	}

	panels := []struct {
		title  string
		xlabel string
		vals   plotter.Values
		color  color.Color
	}{
		{"ANOVA F-Test", "F-Score", fvals, color.RGBA{R: 70, G: 130, B: 180, A: 255}},
		{"Random Forest", "Importance", rfvals, color.RGBA{R: 34, G: 139, B: 34, A: 255}},
		{"Logistic Regression", "|Coefficient|", lrvals, color.RGBA{R: 255, G: 127, B: 80, A: 255}},
	}

	plots := make([][]*plot.Plot, 1)
	plots[0] = make([]*plot.Plot, len(panels))
	for i, panel := range panels {
		p, err := plot.New()
		if err != nil {
			return err
		}
		p.Title.Text = panel.title
		p.X.Label.Text = panel.xlabel
		bars, err := plotter.NewBarChart(panel.vals, vg.Points(8))
		if err != nil {
			return err
		}
		bars.Horizontal = true
		bars.Color = panel.color
		bars.LineStyle.Width = 0
		p.Add(bars)
		p.NominalY(names...)
		plots[0][i] = p
	}

	img := vgimg.New(vg.Points(1300), vg.Points(450))
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: 1, Cols: len(panels),
		PadX: vg.Millimeter * 4, PadY: vg.Millimeter * 2,
		PadTop: vg.Millimeter * 2, PadBottom: vg.Millimeter * 2,
		PadLeft: vg.Millimeter * 2, PadRight: vg.Millimeter * 2,
	}
	canvases := plot.Align(plots, tiles, dc)
	for i := range panels {
		plots[0][i].Draw(canvases[0][i])
	}

	if err := ensureDir(fnm); err != nil {
		return err
	}
	f, err := os.Create(fnm)
	if err != nil {
		return err
	}
	defer f.Close()
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		return err
	}
	return f.Close()
}
