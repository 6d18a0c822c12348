// Copyright (C) The StrandLabs Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package strandlabs

import (
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	log "github.com/sirupsen/logrus"
)

// pivoter reshapes the condensed long-format table (one row per
// patient x marker) into wide format (one row per patient, one
// `<marker>_log` column per marker).
type pivoter struct{}

// missingCategory labels patients with no recorded cancer type or
// stage; these are the non-cancer arm of the study.
const missingCategory = "non-cancer"

func (cmd *pivoter) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	inputFilename := flags.String("i", "-", "input `file` (condensed csv)")
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
	var wide *table
	wide, err = pivotWide(t)
	if err != nil {
		return 1
	}
	outFile := filepath.Join(*outputDir, "methyl_data_wide.csv")
	err = saveTable(outFile, wide)
	if err != nil {
		return 1
	}
	log.Infof("saved %d patients x %d columns to %s", len(wide.rows), len(wide.cols), outFile)
	return 0
}

func pivotWide(t *table) (*table, error) {
	required := append([]string{"Study_Subject_ID", "mdm", "log_mean"}, condenseMetadataColumns...)
	if err := t.requireColumns(required...); err != nil {
		return nil, err
	}
	if len(t.rows) == 0 {
		return nil, &EmptyInputError{Reason: "no condensed rows to pivot"}
	}

	idCol := t.colIndex("Study_Subject_ID")
	mdmCol := t.colIndex("mdm")
	meanCol := t.colIndex("log_mean")
	metaCols := make([]int, len(condenseMetadataColumns))
	for i, c := range condenseMetadataColumns {
		metaCols[i] = t.colIndex(c)
	}

	type patient struct {
		id      string
		meta    []string
		markers map[string]string
	}
	patients := map[string]*patient{}
	var order []*patient
	markerSet := map[string]bool{}
	for _, row := range t.rows {
		p, ok := patients[row[idCol]]
		if !ok {
			meta := make([]string, len(metaCols))
			for i, mc := range metaCols {
				meta[i] = row[mc]
			}
			p = &patient{id: row[idCol], meta: meta, markers: map[string]string{}}
			patients[p.id] = p
			order = append(order, p)
		}
		marker := row[mdmCol]
		markerSet[marker] = true
		// First value wins on duplicate (patient, marker) pairs.
		if _, dup := p.markers[marker]; !dup {
			p.markers[marker] = row[meanCol]
		}
	}

	markers := make([]string, 0, len(markerSet))
	for m := range markerSet {
		markers = append(markers, m)
	}
	sort.Strings(markers)

	out := &table{cols: append([]string{"Study_Subject_ID"}, condenseMetadataColumns...)}
	for _, m := range markers {
		out.cols = append(out.cols, m+"_log")
	}
	cancerTypeCol := out.colIndex("CANCER_TYPE")
	stageCol := out.colIndex("stage")
	for _, p := range order {
		row := append([]string{p.id}, p.meta...)
		if row[cancerTypeCol] == "" {
			row[cancerTypeCol] = missingCategory
		}
		if row[stageCol] == "" {
			row[stageCol] = missingCategory
		}
		for _, m := range markers {
			row = append(row, p.markers[m])
		}
		out.rows = append(out.rows, row)
	}
	return out, nil
}
