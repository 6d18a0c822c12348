// Copyright (C) The StrandLabs Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package strandlabs

import (
	"fmt"
	"math"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	defaultLabelColumn  = "cancer_yn"
	defaultMarkerSuffix = "_log"
)

// markerMatrix is the numeric view of a wide-format table: one row
// per patient, one column per methylation marker, NaN for missing
// cells, plus the binary outcome label aligned with the rows.
type markerMatrix struct {
	samples []string    // patient IDs, row order
	markers []string    // full marker column names (suffix included)
	data    [][]float64 // len(samples) rows x len(markers) cols
	label   []bool      // outcome per row
}

// loadMarkerMatrix extracts marker columns (by name suffix) and the
// label column from a wide table. Rows with unparseable labels are
// dropped with a warning; marker columns with no observed values at
// all are excluded with a warning so they cannot distort the other
// markers' normalized scores downstream.
func loadMarkerMatrix(t *table, labelColumn, markerSuffix string) (*markerMatrix, error) {
	labelCol := t.colIndex(labelColumn)
	if labelCol < 0 {
		return nil, &MissingColumnError{Column: labelColumn}
	}
	var markerCols []int
	var markers []string
	for i, c := range t.cols {
		if strings.HasSuffix(c, markerSuffix) {
			markerCols = append(markerCols, i)
			markers = append(markers, c)
		}
	}
	if len(markerCols) == 0 {
		return nil, &EmptyInputError{Reason: fmt.Sprintf("no marker columns with suffix %q", markerSuffix)}
	}
	idCol := t.colIndex("Study_Subject_ID")

	m := &markerMatrix{markers: markers}
	for rowIdx, row := range t.rows {
		y, err := parseLabel(row[labelCol])
		if err != nil {
			log.Warnf("dropping row %d: %s", rowIdx+2, err)
			continue
		}
		vals := make([]float64, len(markerCols))
		for j, mc := range markerCols {
			v, err := parseCell(row[mc])
			if err != nil {
				return nil, fmt.Errorf("row %d, column %q: %w", rowIdx+2, t.cols[mc], err)
			}
			vals[j] = v
		}
		id := ""
		if idCol >= 0 {
			id = row[idCol]
		}
		m.samples = append(m.samples, id)
		m.data = append(m.data, vals)
		m.label = append(m.label, y)
	}
	if len(m.data) == 0 {
		return nil, &EmptyInputError{Reason: "no rows with usable labels"}
	}
	m.dropEmptyMarkers()
	return m, nil
}

func (m *markerMatrix) dropEmptyMarkers() {
	keep := make([]bool, len(m.markers))
	kept := 0
	for j := range m.markers {
		for i := range m.data {
			if !math.IsNaN(m.data[i][j]) {
				keep[j] = true
				kept++
				break
			}
		}
		if !keep[j] {
			log.Warnf("excluding marker %q: no observed values", m.markers[j])
		}
	}
	if kept == len(m.markers) {
		return
	}
	var markers []string
	for j, k := range keep {
		if k {
			markers = append(markers, m.markers[j])
		}
	}
	for i, row := range m.data {
		vals := make([]float64, 0, len(markers))
		for j, k := range keep {
			if k {
				vals = append(vals, row[j])
			}
		}
		m.data[i] = vals
	}
	m.markers = markers
}

// column returns the complete cases (non-NaN values) of marker j,
// with the matching label subset.
func (m *markerMatrix) column(j int) (vals []float64, label []bool) {
	for i, row := range m.data {
		if !math.IsNaN(row[j]) {
			vals = append(vals, row[j])
			label = append(label, m.label[i])
		}
	}
	return
}

// imputed returns a copy of the matrix with each NaN replaced by its
// column mean. The model-based scorers need a dense matrix; this is
// the documented missing-value policy for them.
func (m *markerMatrix) imputed() [][]float64 {
	means := make([]float64, len(m.markers))
	for j := range m.markers {
		sum, n := 0.0, 0
		for i := range m.data {
			if v := m.data[i][j]; !math.IsNaN(v) {
				sum += v
				n++
			}
		}
		if n > 0 {
			means[j] = sum / float64(n)
		}
	}
	out := make([][]float64, len(m.data))
	for i, row := range m.data {
		vals := make([]float64, len(row))
		for j, v := range row {
			if math.IsNaN(v) {
				vals[j] = means[j]
			} else {
				vals[j] = v
			}
		}
		out[i] = vals
	}
	return out
}

// extractMarkerColumns pulls the marker columns out of a wide table
// as a row-major float64 array, without requiring a label column.
// Missing cells come back as NaN.
func extractMarkerColumns(t *table, markerSuffix string) (samples, markers []string, data []float64, err error) {
	var markerCols []int
	for i, c := range t.cols {
		if strings.HasSuffix(c, markerSuffix) {
			markerCols = append(markerCols, i)
			markers = append(markers, c)
		}
	}
	if len(markerCols) == 0 {
		return nil, nil, nil, &EmptyInputError{Reason: fmt.Sprintf("no marker columns with suffix %q", markerSuffix)}
	}
	idCol := t.colIndex("Study_Subject_ID")
	cols := len(markerCols)
	data = make([]float64, len(t.rows)*cols)
	samples = make([]string, len(t.rows))
	for i, row := range t.rows {
		if idCol >= 0 {
			samples[i] = row[idCol]
		}
		for j, mc := range markerCols {
			v, perr := parseCell(row[mc])
			if perr != nil {
				return nil, nil, nil, fmt.Errorf("row %d, column %q: %w", i+2, t.cols[mc], perr)
			}
			data[i*cols+j] = v
		}
	}
	return samples, markers, data, nil
}

// labelInts maps the boolean outcome to 0/1 for classifiers that
// want integer classes.
func (m *markerMatrix) labelInts() []int {
	y := make([]int, len(m.label))
	for i, b := range m.label {
		if b {
			y[i] = 1
		}
	}
	return y
}
