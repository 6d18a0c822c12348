// Copyright (C) The StrandLabs Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package strandlabs

import (
	"math"

	"gopkg.in/check.v1"
)

type wideSuite struct{}

var _ = check.Suite(&wideSuite{})

func wideFixture() *table {
	return &table{
		cols: []string{"Study_Subject_ID", "cancer_yn", "AGE", "M1_log", "M2_log", "M3_log"},
		rows: [][]string{
			{"P1", "1", "60", "2.0", "", ""},
			{"P2", "0", "50", "1.0", "3.5", ""},
			{"P3", "maybe", "55", "9.9", "9.9", "9.9"}, // unusable label
			{"P4", "1", "62", "4.0", "NA", ""},
		},
	}
}

func (s *wideSuite) TestLoadMarkerMatrix(c *check.C) {
	m, err := loadMarkerMatrix(wideFixture(), "cancer_yn", "_log")
	c.Assert(err, check.IsNil)
	// The bad-label row is dropped; M3_log has no observed values in
	// the remaining rows and is excluded.
	c.Check(m.samples, check.DeepEquals, []string{"P1", "P2", "P4"})
	c.Check(m.markers, check.DeepEquals, []string{"M1_log", "M2_log"})
	c.Check(m.label, check.DeepEquals, []bool{true, false, true})
	c.Assert(len(m.data), check.Equals, 3)
	c.Check(m.data[0][0], check.Equals, 2.0)
	c.Check(math.IsNaN(m.data[0][1]), check.Equals, true)
	c.Check(m.data[1][1], check.Equals, 3.5)
}

func (s *wideSuite) TestLoadMarkerMatrixMissingLabel(c *check.C) {
	_, err := loadMarkerMatrix(wideFixture(), "outcome", "_log")
	c.Assert(err, check.NotNil)
	mc, ok := err.(*MissingColumnError)
	c.Assert(ok, check.Equals, true)
	c.Check(mc.Column, check.Equals, "outcome")
}

func (s *wideSuite) TestLoadMarkerMatrixNoMarkers(c *check.C) {
	_, err := loadMarkerMatrix(wideFixture(), "cancer_yn", "_beta")
	c.Assert(err, check.NotNil)
	_, ok := err.(*EmptyInputError)
	c.Check(ok, check.Equals, true)
}

func (s *wideSuite) TestColumnCompleteCases(c *check.C) {
	m, err := loadMarkerMatrix(wideFixture(), "cancer_yn", "_log")
	c.Assert(err, check.IsNil)
	vals, label := m.column(1) // M2_log observed only for P2
	c.Check(vals, check.DeepEquals, []float64{3.5})
	c.Check(label, check.DeepEquals, []bool{false})
}

func (s *wideSuite) TestImputedFillsColumnMeans(c *check.C) {
	m, err := loadMarkerMatrix(wideFixture(), "cancer_yn", "_log")
	c.Assert(err, check.IsNil)
	dense := m.imputed()
	for _, row := range dense {
		for _, v := range row {
			c.Check(math.IsNaN(v), check.Equals, false)
		}
	}
	// M2_log has one observation (3.5), so every missing cell in that
	// column becomes 3.5. The original matrix is untouched.
	c.Check(dense[0][1], check.Equals, 3.5)
	c.Check(dense[2][1], check.Equals, 3.5)
	c.Check(math.IsNaN(m.data[0][1]), check.Equals, true)
}

func (s *wideSuite) TestExtractMarkerColumns(c *check.C) {
	samples, markers, data, err := extractMarkerColumns(wideFixture(), "_log")
	c.Assert(err, check.IsNil)
	// No label column involved: all rows are kept, including the one
	// with the unusable label.
	c.Check(samples, check.DeepEquals, []string{"P1", "P2", "P3", "P4"})
	c.Check(markers, check.DeepEquals, []string{"M1_log", "M2_log", "M3_log"})
	c.Assert(len(data), check.Equals, 12)
	c.Check(data[0], check.Equals, 2.0)
	c.Check(math.IsNaN(data[1]), check.Equals, true)
	c.Check(data[6], check.Equals, 9.9)
}

func (s *wideSuite) TestLabelInts(c *check.C) {
	m := &markerMatrix{label: []bool{true, false, true}}
	c.Check(m.labelInts(), check.DeepEquals, []int{1, 0, 1})
}
