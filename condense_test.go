// Copyright (C) The StrandLabs Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package strandlabs

import (
	"gopkg.in/check.v1"
)

type condenseSuite struct{}

var _ = check.Suite(&condenseSuite{})

func condensedInput() *table {
	return &table{
		cols: []string{"Study_Subject_ID", "Study", "mdm", "log", "CANCER_TYPE", "cancer_yn", "stage", "AGE", "SEX_D"},
		rows: [][]string{
			{"P1", "S", "M1", "2", "Lung", "1", "III", "64", "M"},
			{"P1", "S", "M1", "4", "LungX", "1", "III", "64", "M"}, // later replicate, metadata ignored
			{"P1", "S", "M1", "6", "Lung", "1", "III", "64", "M"},
			{"P1", "S", "M2", "10", "Lung", "1", "III", "64", "M"},
			{"P2", "S", "M1", "5", "", "0", "", "50", "F"},
		},
	}
}

func (s *condenseSuite) TestCondenseReplicates(c *check.C) {
	out, err := condenseReplicates(condensedInput())
	c.Assert(err, check.IsNil)
	c.Check(out.cols, check.DeepEquals, []string{
		"Study_Subject_ID", "mdm", "log_mean", "log_sd",
		"CANCER_TYPE", "cancer_yn", "stage", "AGE", "SEX_D", "log_cv",
	})
	c.Assert(len(out.rows), check.Equals, 3)

	// P1/M1: mean 4, sample sd 2, %CV 50.
	c.Check(out.rows[0][0], check.Equals, "P1")
	c.Check(out.rows[0][1], check.Equals, "M1")
	c.Check(out.rows[0][2], check.Equals, "4")
	c.Check(out.rows[0][3], check.Equals, "2")
	c.Check(out.rows[0][9], check.Equals, "50")
	// Metadata from the first-observed row, not a later replicate.
	c.Check(out.rows[0][4], check.Equals, "Lung")

	// Single replicate: no sd, no %CV.
	c.Check(out.rows[1][1], check.Equals, "M2")
	c.Check(out.rows[1][2], check.Equals, "10")
	c.Check(out.rows[1][3], check.Equals, "")
	c.Check(out.rows[1][9], check.Equals, "")
}

func (s *condenseSuite) TestCondenseMissingColumn(c *check.C) {
	t := condensedInput()
	t.cols[3] = "signal" // rename "log" away
	_, err := condenseReplicates(t)
	c.Assert(err, check.NotNil)
	mc, ok := err.(*MissingColumnError)
	c.Assert(ok, check.Equals, true)
	c.Check(mc.Column, check.Equals, "log")
}

func (s *condenseSuite) TestCondenseEmptyInput(c *check.C) {
	t := condensedInput()
	t.rows = nil
	_, err := condenseReplicates(t)
	c.Assert(err, check.NotNil)
	_, ok := err.(*EmptyInputError)
	c.Check(ok, check.Equals, true)
}

type pivotSuite struct{}

var _ = check.Suite(&pivotSuite{})

func (s *pivotSuite) TestPivotWide(c *check.C) {
	t := &table{
		cols: []string{"Study_Subject_ID", "mdm", "log_mean", "log_sd", "CANCER_TYPE", "cancer_yn", "stage", "AGE", "SEX_D", "log_cv"},
		rows: [][]string{
			{"P1", "M2", "2.5", "0.1", "Lung", "1", "III", "64", "M", "4"},
			{"P1", "M1", "1.5", "0.2", "Lung", "1", "III", "64", "M", "13"},
			{"P2", "M1", "3.5", "0.3", "", "0", "", "50", "F", "8"},
		},
	}
	out, err := pivotWide(t)
	c.Assert(err, check.IsNil)
	c.Check(out.cols, check.DeepEquals, []string{
		"Study_Subject_ID", "CANCER_TYPE", "cancer_yn", "stage", "AGE", "SEX_D",
		"M1_log", "M2_log",
	})
	// Exactly one row per patient, markers populated from log_mean.
	c.Assert(len(out.rows), check.Equals, 2)
	c.Check(out.rows[0], check.DeepEquals, []string{"P1", "Lung", "1", "III", "64", "M", "1.5", "2.5"})
	// Missing categorical fields get the sentinel; the absent
	// marker cell stays empty.
	c.Check(out.rows[1], check.DeepEquals, []string{"P2", "non-cancer", "0", "non-cancer", "50", "F", "3.5", ""})
}

func (s *pivotSuite) TestPivotDuplicateFirstWins(c *check.C) {
	t := &table{
		cols: []string{"Study_Subject_ID", "mdm", "log_mean", "CANCER_TYPE", "cancer_yn", "stage", "AGE", "SEX_D"},
		rows: [][]string{
			{"P1", "M1", "1.1", "Lung", "1", "I", "60", "M"},
			{"P1", "M1", "9.9", "Lung", "1", "I", "60", "M"},
		},
	}
	out, err := pivotWide(t)
	c.Assert(err, check.IsNil)
	c.Assert(len(out.rows), check.Equals, 1)
	c.Check(out.rows[0][out.colIndex("M1_log")], check.Equals, "1.1")
}

type mergeSuite struct{}

var _ = check.Suite(&mergeSuite{})

func (s *mergeSuite) TestMergeClinical(c *check.C) {
	clinical := &table{
		cols: []string{"subjid", "Study", "CANCER_TYPE", "cancer_yn", "stage", "AGE", "SEX_D"},
		rows: [][]string{
			{" p1 ", "OLD", "Lung", "1", "II", "61", "M"},
			{"P2", "OLD", "", "0", "", "52", "F"},
		},
	}
	methylation := &table{
		cols: []string{"Study_Subject_ID", "Study", "mdm", "log"},
		rows: [][]string{
			{"P1", "METHYL1", "M1", "2.2"},
			{"P2", "METHYL1", "M1", "1.1"},
			{"P9", "METHYL1", "M1", "3.3"}, // no clinical match
		},
	}
	out, err := mergeClinical(methylation, clinical, true)
	c.Assert(err, check.IsNil)
	c.Check(out.cols, check.DeepEquals, coreColumns)
	c.Assert(len(out.rows), check.Equals, 2)
	// The join key is normalized (upper-cased, trimmed) and the
	// methylation table's Study column wins.
	c.Check(out.rows[0][out.colIndex("Study_Subject_ID")], check.Equals, "P1")
	c.Check(out.rows[0][out.colIndex("Study")], check.Equals, "METHYL1")
	c.Check(out.rows[0][out.colIndex("CANCER_TYPE")], check.Equals, "Lung")
}

func (s *mergeSuite) TestMergeUntrimmedKeepsAllColumns(c *check.C) {
	clinical := &table{
		cols: []string{"subjid", "CANCER_TYPE", "cancer_yn", "stage", "AGE", "SEX_D", "extra"},
		rows: [][]string{{"P1", "Lung", "1", "II", "61", "M", "keepme"}},
	}
	methylation := &table{
		cols: []string{"Study_Subject_ID", "Study", "mdm", "log"},
		rows: [][]string{{"P1", "METHYL1", "M1", "2.2"}},
	}
	out, err := mergeClinical(methylation, clinical, false)
	c.Assert(err, check.IsNil)
	c.Check(out.colIndex("extra") >= 0, check.Equals, true)
	c.Check(out.rows[0][out.colIndex("extra")], check.Equals, "keepme")
}
