// Copyright (C) The StrandLabs Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package strandlabs

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/pgzip"
)

// MissingColumnError indicates a required column is absent from an
// input table. It is fatal for the stage that raises it.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing required column %q", e.Column)
}

// EmptyInputError indicates an input table had zero usable rows after
// filtering.
type EmptyInputError struct {
	Reason string
}

func (e *EmptyInputError) Error() string {
	return "empty input: " + e.Reason
}

// table is an in-memory delimited text table: a header row plus data
// rows, all cells as strings. Row and column order are preserved
// exactly as read.
type table struct {
	cols []string
	rows [][]string
}

func (t *table) colIndex(name string) int {
	for i, c := range t.cols {
		if c == name {
			return i
		}
	}
	return -1
}

// requireColumns returns a MissingColumnError naming the first absent
// column, if any.
func (t *table) requireColumns(names ...string) error {
	for _, name := range names {
		if t.colIndex(name) < 0 {
			return &MissingColumnError{Column: name}
		}
	}
	return nil
}

func open(fnm string) (io.ReadCloser, error) {
	f, err := os.Open(fnm)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(fnm, ".gz") {
		return f, nil
	}
	zr, err := pgzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &zipReadCloser{zr: zr, f: f}, nil
}

type zipReadCloser struct {
	zr *pgzip.Reader
	f  *os.File
}

func (z *zipReadCloser) Read(p []byte) (int, error) { return z.zr.Read(p) }

func (z *zipReadCloser) Close() error {
	err := z.zr.Close()
	if err2 := z.f.Close(); err == nil {
		err = err2
	}
	return err
}

func loadTable(fnm string, stdin io.Reader) (*table, error) {
	var input io.ReadCloser
	if fnm == "-" {
		input = io.NopCloser(stdin)
	} else {
		var err error
		input, err = open(fnm)
		if err != nil {
			return nil, err
		}
	}
	defer input.Close()
	rdr := csv.NewReader(input)
	rdr.FieldsPerRecord = -1
	records, err := rdr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fnm, err)
	}
	if len(records) == 0 {
		return nil, &EmptyInputError{Reason: fnm + " has no header row"}
	}
	t := &table{cols: records[0]}
	for _, rec := range records[1:] {
		for len(rec) < len(t.cols) {
			rec = append(rec, "")
		}
		t.rows = append(t.rows, rec)
	}
	return t, nil
}

// saveTable writes t as CSV, creating parent directories as needed.
// A ".gz" suffix selects pgzip compression.
func saveTable(fnm string, t *table) error {
	err := ensureDir(fnm)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(fnm, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		return err
	}
	defer f.Close()
	var out io.Writer = f
	var zw *pgzip.Writer
	if strings.HasSuffix(fnm, ".gz") {
		zw = pgzip.NewWriter(f)
		out = zw
	}
	if err := writeTable(out, t); err != nil {
		return err
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return err
		}
	}
	return f.Close()
}

func writeTable(out io.Writer, t *table) error {
	w := csv.NewWriter(out)
	if err := w.Write(t.cols); err != nil {
		return err
	}
	if err := w.WriteAll(t.rows); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func ensureDir(fnm string) error {
	return os.MkdirAll(filepath.Dir(fnm), 0777)
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// parseCell interprets an empty cell (or the usual NA spellings) as
// NaN rather than an error.
func parseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "", "NA", "NaN", "nan", "null":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// formatCell renders NaN as an empty cell, matching the way the rest
// of the pipeline reads missing values back in.
func formatCell(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func parseLabel(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y":
		return true, nil
	case "0", "false", "no", "n":
		return false, nil
	}
	return false, fmt.Errorf("unparseable label value %q", s)
}

// normalizeSubjectID makes join keys comparable across the clinical
// and methylation tables.
func normalizeSubjectID(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
