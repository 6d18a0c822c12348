// Copyright (C) The StrandLabs Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package strandlabs

import (
	"flag"
	"fmt"
	"io"
	"math"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

// condenser collapses technical replicates: one output row per
// (patient, marker) with mean, standard deviation, and %CV of the log
// signal across replicates.
type condenser struct{}

var condenseMetadataColumns = []string{"CANCER_TYPE", "cancer_yn", "stage", "AGE", "SEX_D"}

func (cmd *condenser) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	inputFilename := flags.String("i", "-", "input `file` (merged long-format csv)")
	outputDir := flags.String("output-dir", "data", "output `directory`")
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
	var condensed *table
	condensed, err = condenseReplicates(t)
	if err != nil {
		return 1
	}
	outFile := filepath.Join(*outputDir, "methyl_data_trim_condensed.csv")
	err = saveTable(outFile, condensed)
	if err != nil {
		return 1
	}
	log.Infof("saved %d patient-marker rows to %s", len(condensed.rows), outFile)
	return 0
}

type replicateGroup struct {
	subject  string
	marker   string
	values   []float64
	metadata []string // first-observed (lowest original row index)
}

func condenseReplicates(t *table) (*table, error) {
	required := append([]string{"Study_Subject_ID", "Study", "mdm", "log"}, condenseMetadataColumns...)
	if err := t.requireColumns(required...); err != nil {
		return nil, err
	}
	if len(t.rows) == 0 {
		return nil, &EmptyInputError{Reason: "no replicate rows to condense"}
	}

	idCol := t.colIndex("Study_Subject_ID")
	mdmCol := t.colIndex("mdm")
	logCol := t.colIndex("log")
	metaCols := make([]int, len(condenseMetadataColumns))
	for i, c := range condenseMetadataColumns {
		metaCols[i] = t.colIndex(c)
	}

	// Group output order is first appearance of the (patient,
	// marker) pair; metadata comes from the lowest original row
	// index so reruns are deterministic regardless of how the
	// grouping is implemented.
	groups := map[[2]string]*replicateGroup{}
	var order []*replicateGroup
	for rowIdx, row := range t.rows {
		key := [2]string{row[idCol], row[mdmCol]}
		g, ok := groups[key]
		if !ok {
			meta := make([]string, len(metaCols))
			for i, mc := range metaCols {
				meta[i] = row[mc]
			}
			g = &replicateGroup{subject: key[0], marker: key[1], metadata: meta}
			groups[key] = g
			order = append(order, g)
		}
		v, err := parseCell(row[logCol])
		if err != nil {
			return nil, fmt.Errorf("row %d: bad log value: %w", rowIdx+2, err)
		}
		if !math.IsNaN(v) {
			g.values = append(g.values, v)
		}
	}

	out := &table{cols: append(append([]string{"Study_Subject_ID", "mdm", "log_mean", "log_sd"}, condenseMetadataColumns...), "log_cv")}
	for _, g := range order {
		mean, sd := replicateStats(g.values)
		cv := sd / mean * 100
		row := []string{g.subject, g.marker, formatCell(mean), formatCell(sd)}
		row = append(row, g.metadata...)
		row = append(row, formatCell(cv))
		out.rows = append(out.rows, row)
	}
	return out, nil
}

// replicateStats returns the mean and sample standard deviation of
// vals. A single replicate has no dispersion estimate, so sd is NaN
// (written as an empty cell), and an all-missing group is NaN/NaN.
func replicateStats(vals []float64) (mean, sd float64) {
	if len(vals) == 0 {
		return math.NaN(), math.NaN()
	}
	if len(vals) == 1 {
		return vals[0], math.NaN()
	}
	return stat.MeanStdDev(vals, nil)
}
