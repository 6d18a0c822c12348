// Copyright (C) The StrandLabs Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package strandlabs

import (
	"flag"
	"fmt"
	"io"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// merger joins per-patient clinical metadata to per-replicate
// methylation rows on a normalized subject identifier.
type merger struct{}

var coreColumns = []string{
	"Study_Subject_ID", "Study", "mdm", "log",
	"CANCER_TYPE", "cancer_yn", "stage", "AGE", "SEX_D",
}

func (cmd *merger) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	clinicalFilename := flags.String("clinical", "", "clinical metadata csv `file`")
	methylationFilename := flags.String("methylation", "", "long-format methylation csv `file`")
	outputDir := flags.String("output-dir", "data", "output `directory`")
	trim := flags.Bool("trim", true, "trim output to core columns")
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
	if *clinicalFilename == "" || *methylationFilename == "" {
		err = fmt.Errorf("must provide both -clinical and -methylation")
		return 2
	}

	clinical, err := loadTable(*clinicalFilename, stdin)
	if err != nil {
		return 1
	}
	methylation, err := loadTable(*methylationFilename, stdin)
	if err != nil {
		return 1
	}

	var merged *table
	merged, err = mergeClinical(methylation, clinical, *trim)
	if err != nil {
		return 1
	}

	outName := "methyl_data.csv"
	if *trim {
		outName = "methyl_data_trim.csv"
	}
	outFile := filepath.Join(*outputDir, outName)
	err = saveTable(outFile, merged)
	if err != nil {
		return 1
	}
	log.Infof("saved %d rows to %s", len(merged.rows), outFile)
	return 0
}

// mergeClinical left-joins methylation rows to clinical rows on
// normalized subject ID, drops methylation rows with no clinical
// match, and optionally trims the result to the core column set.
func mergeClinical(methylation, clinical *table, trim bool) (*table, error) {
	if err := methylation.requireColumns("Study_Subject_ID"); err != nil {
		return nil, err
	}
	if err := clinical.requireColumns("subjid"); err != nil {
		return nil, err
	}

	// The clinical table may carry its own Study column; the
	// methylation side wins, so it is dropped before joining.
	clinCols := []string{}
	clinColIdx := []int{}
	for i, c := range clinical.cols {
		if c == "Study" {
			continue
		}
		clinCols = append(clinCols, c)
		clinColIdx = append(clinColIdx, i)
	}

	subjidCol := clinical.colIndex("subjid")
	bySubject := map[string][]string{}
	for _, row := range clinical.rows {
		key := normalizeSubjectID(row[subjidCol])
		if _, ok := bySubject[key]; !ok {
			bySubject[key] = row
		}
	}

	out := &table{cols: append(append([]string{}, methylation.cols...), clinCols...)}
	idCol := methylation.colIndex("Study_Subject_ID")
	dropped := 0
	for _, row := range methylation.rows {
		key := normalizeSubjectID(row[idCol])
		clinRow, ok := bySubject[key]
		if !ok {
			dropped++
			continue
		}
		merged := append([]string{}, row...)
		merged[idCol] = key
		for _, ci := range clinColIdx {
			merged = append(merged, clinRow[ci])
		}
		out.rows = append(out.rows, merged)
	}
	log.Infof("dropped %d methylation records with no clinical match", dropped)

	if !trim {
		return out, nil
	}
	keep := []int{}
	trimmed := &table{}
	for _, c := range coreColumns {
		if i := out.colIndex(c); i >= 0 {
			keep = append(keep, i)
			trimmed.cols = append(trimmed.cols, c)
		}
	}
	for _, row := range out.rows {
		tr := make([]string, len(keep))
		for j, i := range keep {
			tr[j] = row[i]
		}
		trimmed.rows = append(trimmed.rows, tr)
	}
	return trimmed, nil
}
