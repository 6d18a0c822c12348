// Copyright (C) The StrandLabs Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package strandlabs

import (
	"flag"
	"fmt"
	"io"
	"math"

	"github.com/james-bowman/nlp"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// markerPCA projects patients onto the principal components of the
// marker matrix, a quick structure diagnostic for the wide table.
type markerPCA struct{}

func (cmd *markerPCA) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	inputFilename := flags.String("i", "-", "input `file` (wide-format csv)")
	outputFilename := flags.String("o", "pca.csv", "output `file` (per-sample component scores csv)")
	components := flags.Int("components", 4, "number of components")
	markerSuffix := flags.String("marker-suffix", defaultMarkerSuffix, "treat columns with this `suffix` as markers")
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

	t, err := loadTable(*inputFilename, stdin)
	if err != nil {
		return 1
	}
	samples, markers, data, err := extractMarkerColumns(t, *markerSuffix)
	if err != nil {
		return 1
	}
	rows, cols := len(samples), len(markers)
	imputeColumnMeans(data, rows, cols)

	log.Infof("fitting %d components on %d samples x %d markers", *components, rows, cols)
	// nlp's PCA treats matrix columns as observations, so the
	// sample-by-marker matrix goes in transposed and the scores
	// come back out transposed.
	mtx := mat.NewDense(rows, cols, data).T()
	transformer := nlp.NewPCA(*components)
	transformer.Fit(mtx)
	var scores mat.Matrix
	scores, err = transformer.Transform(mtx)
	if err != nil {
		return 1
	}
	scores = scores.T()

	nr, nc := scores.Dims()
	out := &table{cols: []string{"Study_Subject_ID"}}
	for c := 1; c <= nc; c++ {
		out.cols = append(out.cols, fmt.Sprintf("pc%d", c))
	}
	for i := 0; i < nr; i++ {
		row := []string{samples[i]}
		for j := 0; j < nc; j++ {
			row = append(row, formatCell(scores.At(i, j)))
		}
		out.rows = append(out.rows, row)
	}
	err = saveTable(*outputFilename, out)
	if err != nil {
		return 1
	}
	log.Infof("saved %s", *outputFilename)
	return 0
}

// imputeColumnMeans replaces NaN cells of a row-major rows x cols
// array with their column means in place.
func imputeColumnMeans(data []float64, rows, cols int) {
	for j := 0; j < cols; j++ {
		sum, n := 0.0, 0
		for i := 0; i < rows; i++ {
			if v := data[i*cols+j]; !math.IsNaN(v) {
				sum += v
				n++
			}
		}
		mean := 0.0
		if n > 0 {
			mean = sum / float64(n)
		}
		for i := 0; i < rows; i++ {
			if math.IsNaN(data[i*cols+j]) {
				data[i*cols+j] = mean
			}
		}
	}
}
