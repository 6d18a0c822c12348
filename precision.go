// Copyright (C) The StrandLabs Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package strandlabs

import (
	"flag"
	"fmt"
	"image/color"
	"io"
	"math"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// precisionProfile renders the %CV vs mean signal diagnostic: one
// scatter plot per variant, points colored by donor, each point one
// group level (e.g. copy number) within a donor, with a power-law
// curve fitted per donor.
type precisionProfile struct{}

func (cmd *precisionProfile) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	inputFilename := flags.String("i", "-", "input `file` (per-observation counts csv)")
	outputDir := flags.String("output-dir", ".", "output `directory`")
	sdmcCol := flags.String("sdmc-col", "super_duplex_mutant_count", "column `name` for the quantitative signal")
	mutidCol := flags.String("mutid-col", "mutid", "column `name` for the variant ID")
	donorCol := flags.String("donor-col", "Donor ID", "column `name` for the donor ID")
	groupCol := flags.String("group-col", "Copy number", "column `name` for the grouping variable")
	donorList := flags.String("donors", "", "comma-separated `list` of donors to include (required)")
	prefix := flags.String("prefix", "precision", "output file `prefix`")
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	} else if flags.NArg() > 0 {
		err = fmt.Errorf("errant command line arguments after parsed flags: %v", flags.Args())
		return 2
	}
	if *donorList == "" {
		err = fmt.Errorf("must provide -donors")
		return 2
	}
	donors := strings.Split(*donorList, ",")
	for i := range donors {
		donors[i] = strings.TrimSpace(donors[i])
	}

	t, err := loadTable(*inputFilename, stdin)
	if err != nil {
		return 1
	}
	var stats []precisionStat
	stats, err = precisionStats(t, *sdmcCol, *mutidCol, *donorCol, *groupCol, donors)
	if err != nil {
		return 1
	}
	log.Infof("computed stats for %d donor-variant-group combinations", len(stats))

	// Plot only variants observed in two or more donors.
	donorsPerVariant := map[string]map[string]bool{}
	var variantOrder []string
	for _, s := range stats {
		if donorsPerVariant[s.variant] == nil {
			donorsPerVariant[s.variant] = map[string]bool{}
			variantOrder = append(variantOrder, s.variant)
		}
		donorsPerVariant[s.variant][s.donor] = true
	}
	plotted := 0
	plotsDir := filepath.Join(*outputDir, "plots")
	for _, variant := range variantOrder {
		if len(donorsPerVariant[variant]) < 2 {
			continue
		}
		fnm := filepath.Join(plotsDir, *prefix+"_"+sanitizeFilename(variant)+".png")
		if perr := plotPrecisionVariant(fnm, variant, stats, donors, *sdmcCol); perr != nil {
			log.Warnf("skipping plot for variant %q: %s", variant, perr)
			continue
		}
		plotted++
	}
	log.Infof("saved %d plots to %s", plotted, plotsDir)

	statsFile := filepath.Join(*outputDir, *prefix+"_stats.csv")
	err = saveTable(statsFile, precisionStatsTable(stats))
	if err != nil {
		return 1
	}
	log.Infof("saved %s", statsFile)
	return 0
}

type precisionStat struct {
	donor   string
	variant string
	group   string
	mean    float64
	std     float64
	n       int
	cv      float64
}

// precisionStats filters rows to the named donors (dropping rows with
// empty variant IDs), groups by (donor, variant, group level), and
// computes mean, sample stddev, and %CV of the signal. Groups with
// zero mean, zero stddev, or a single observation carry no precision
// information and are dropped.
func precisionStats(t *table, sdmcCol, mutidCol, donorCol, groupCol string, donors []string) ([]precisionStat, error) {
	if err := t.requireColumns(sdmcCol, mutidCol, donorCol, groupCol); err != nil {
		return nil, err
	}
	vi := t.colIndex(sdmcCol)
	mi := t.colIndex(mutidCol)
	di := t.colIndex(donorCol)
	gi := t.colIndex(groupCol)
	wanted := map[string]bool{}
	for _, d := range donors {
		wanted[d] = true
	}

	type groupKey [3]string
	values := map[groupKey][]float64{}
	var order []groupKey
	kept := 0
	for rowIdx, row := range t.rows {
		if !wanted[row[di]] {
			continue
		}
		if strings.TrimSpace(row[mi]) == "" {
			continue
		}
		v, err := parseCell(row[vi])
		if err != nil {
			return nil, fmt.Errorf("row %d: bad %s value: %w", rowIdx+2, sdmcCol, err)
		}
		if math.IsNaN(v) {
			continue
		}
		kept++
		key := groupKey{row[di], row[mi], row[gi]}
		if _, ok := values[key]; !ok {
			order = append(order, key)
		}
		values[key] = append(values[key], v)
	}
	if kept == 0 {
		return nil, &EmptyInputError{Reason: "no rows left after donor and variant filters"}
	}
	log.Infof("after donor filter: %d rows", kept)

	var out []precisionStat
	for _, key := range order {
		vals := values[key]
		if len(vals) < 2 {
			continue
		}
		mean, std := stat.MeanStdDev(vals, nil)
		if mean <= 0 || std <= 0 {
			continue
		}
		out = append(out, precisionStat{
			donor:   key[0],
			variant: key[1],
			group:   key[2],
			mean:    mean,
			std:     std,
			n:       len(vals),
			cv:      std / mean * 100,
		})
	}
	return out, nil
}

func precisionStatsTable(stats []precisionStat) *table {
	t := &table{cols: []string{"donor", "mutid", "group", "mean_value", "std_value", "n_obs", "cv_percent"}}
	for _, s := range stats {
		t.rows = append(t.rows, []string{
			s.donor, s.variant, s.group,
			formatCell(s.mean), formatCell(s.std),
			fmt.Sprintf("%d", s.n), formatCell(s.cv),
		})
	}
	return t
}

// powerFit fits y = a*x^b by least squares in log-log space,
// requiring at least three positive (x, y) points.
func powerFit(xs, ys []float64) (a, b float64, err error) {
	var logx, logy []float64
	for i := range xs {
		if xs[i] > 0 && ys[i] > 0 {
			logx = append(logx, math.Log(xs[i]))
			logy = append(logy, math.Log(ys[i]))
		}
	}
	if len(logx) < 3 {
		return 0, 0, fmt.Errorf("need at least 3 positive points, have %d", len(logx))
	}
	alpha, beta := stat.LinearRegression(logx, logy, nil, false)
	if math.IsNaN(alpha) || math.IsNaN(beta) || math.IsInf(alpha, 0) || math.IsInf(beta, 0) {
		return 0, 0, fmt.Errorf("degenerate power-law fit")
	}
	return math.Exp(alpha), beta, nil
}

var donorColors = map[string]color.Color{
	"417-1005":     color.RGBA{B: 255, A: 255},
	"191-1055":     color.RGBA{G: 128, A: 255},
	"Accugenomics": color.RGBA{R: 255, A: 255},
}

func plotPrecisionVariant(fnm, variant string, stats []precisionStat, donors []string, sdmcCol string) error {
	p, err := plot.New()
	if err != nil {
		return err
	}
	p.Title.Text = "Precision Profile: " + variant
	p.X.Label.Text = "Mean " + strings.Title(strings.ReplaceAll(sdmcCol, "_", " "))
	p.Y.Label.Text = "Coefficient of Variation (%)"

	plottedAny := false
	for i, donor := range donors {
		var xs, ys []float64
		for _, s := range stats {
			if s.variant == variant && s.donor == donor {
				xs = append(xs, s.mean)
				ys = append(ys, s.cv)
			}
		}
		if len(xs) == 0 {
			continue
		}
		col, ok := donorColors[donor]
		if !ok {
			col = plotutil.Color(i)
		}

		pts := make(plotter.XYs, len(xs))
		for k := range xs {
			pts[k].X, pts[k].Y = xs[k], ys[k]
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return err
		}
		s.GlyphStyle.Color = col
		s.GlyphStyle.Radius = vg.Points(2.5)
		p.Add(s)
		p.Legend.Add(fmt.Sprintf("%s (n=%d)", donor, len(xs)), s)
		plottedAny = true

		a, b, ferr := powerFit(xs, ys)
		if ferr != nil {
			// Not enough points or a degenerate fit; the
			// scatter stands on its own.
			log.Warnf("variant %q donor %q: no power-law curve: %s", variant, donor, ferr)
			continue
		}
		xmin, xmax := xs[0], xs[0]
		for _, x := range xs[1:] {
			xmin = math.Min(xmin, x)
			xmax = math.Max(xmax, x)
		}
		curve := make(plotter.XYs, 100)
		for k := range curve {
			x := xmin + (xmax-xmin)*float64(k)/float64(len(curve)-1)
			curve[k].X = x
			curve[k].Y = a * math.Pow(x, b)
		}
		l, err := plotter.NewLine(curve)
		if err != nil {
			return err
		}
		l.LineStyle.Color = col
		l.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		p.Add(l)
	}
	if !plottedAny {
		return fmt.Errorf("no data points for any requested donor")
	}
	p.Legend.Top = true

	if err := ensureDir(fnm); err != nil {
		return err
	}
	return p.Save(8*vg.Inch, 6*vg.Inch, fnm)
}

func sanitizeFilename(s string) string {
	return strings.NewReplacer(":", "_", "/", "_", " ", "_").Replace(s)
}
