// Copyright (C) The StrandLabs Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package strandlabs

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/kshedden/gonpy"
	log "github.com/sirupsen/logrus"
)

// exportNumpy writes the wide table's marker matrix as a float64
// .npy file for downstream analysis in Python, with optional sidecar
// lists of sample IDs and marker names. Missing cells are exported as
// NaN.
type exportNumpy struct{}

func (cmd *exportNumpy) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	inputFilename := flags.String("i", "-", "input `file` (wide-format csv)")
	outputFilename := flags.String("o", "-", "output `file` (.npy)")
	samplesFilename := flags.String("samples-out", "", "also write sample IDs, one per line, to `file`")
	markersFilename := flags.String("markers-out", "", "also write marker column names, one per line, to `file`")
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

	var samples, markers []string
	var data []float64
	samples, markers, data, err = extractMarkerColumns(t, *markerSuffix)
	if err != nil {
		return 1
	}
	rows, cols := len(samples), len(markers)

	var output io.WriteCloser
	if *outputFilename == "-" {
		output = nopCloser{stdout}
	} else {
		output, err = os.OpenFile(*outputFilename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
		if err != nil {
			return 1
		}
		defer output.Close()
	}
	bufw := bufio.NewWriter(output)
	npw, err := gonpy.NewWriter(nopCloser{bufw})
	if err != nil {
		return 1
	}
	npw.Shape = []int{rows, cols}
	err = npw.WriteFloat64(data)
	if err != nil {
		return 1
	}
	err = bufw.Flush()
	if err != nil {
		return 1
	}
	err = output.Close()
	if err != nil {
		return 1
	}
	log.Infof("exported %d x %d marker matrix", rows, cols)

	if *samplesFilename != "" {
		err = writeLines(*samplesFilename, samples)
		if err != nil {
			return 1
		}
	}
	if *markersFilename != "" {
		err = writeLines(*markersFilename, markers)
		if err != nil {
			return 1
		}
	}
	return 0
}

func writeLines(fnm string, lines []string) error {
	if err := ensureDir(fnm); err != nil {
		return err
	}
	f, err := os.OpenFile(fnm, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}
