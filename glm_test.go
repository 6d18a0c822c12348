// Copyright (C) The StrandLabs Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package strandlabs

import (
	"math"

	"gopkg.in/check.v1"
)

type glmSuite struct{}

var _ = check.Suite(&glmSuite{})

// Overlapping groups so the likelihood has a finite maximum.
func glmFixture() *markerMatrix {
	return &markerMatrix{
		markers: []string{"sig_log", "noise_log"},
		data: [][]float64{
			{1.0, 2.3}, {1.4, 1.8}, {2.0, 2.1}, {1.1, 1.7}, {2.6, 2.4},
			{1.9, 2.0}, {2.4, 1.9}, {3.0, 2.2}, {2.2, 1.6}, {3.3, 2.5},
			{2.8, 2.35}, {3.6, 1.85},
		},
		label: []bool{false, false, false, false, false, false, true, true, true, true, true, true},
	}
}

func (s *glmSuite) TestLogisticScores(c *check.C) {
	m := glmFixture()
	scores := logisticScores(m)
	c.Assert(len(scores), check.Equals, 2)
	for _, v := range scores {
		c.Check(v >= 0, check.Equals, true)
		c.Check(math.IsNaN(v), check.Equals, false)
	}
	c.Check(scores[0] > scores[1], check.Equals, true)
}

func (s *glmSuite) TestLogisticScoresDeterministic(c *check.C) {
	a := logisticScores(glmFixture())
	b := logisticScores(glmFixture())
	c.Check(a, check.DeepEquals, b)
}

func (s *glmSuite) TestLogisticFitPredict(c *check.C) {
	m := glmFixture()
	columns := make([][]float64, len(m.markers))
	for j := range m.markers {
		col := make([]float64, len(m.data))
		for i := range m.data {
			col[i] = m.data[i][j]
		}
		standardize(col)
		columns[j] = col
	}
	params, ok := logisticFit(columns, m.markers, m.label)
	c.Assert(ok, check.Equals, true)
	c.Assert(len(params), check.Equals, 3) // intercept + 2 coefficients

	// Higher signal value, higher predicted probability.
	lo := logisticPredict(params, []float64{-1, 0})
	hi := logisticPredict(params, []float64{1, 0})
	c.Check(hi > lo, check.Equals, true)
	c.Check(lo > 0 && hi < 1, check.Equals, true)
}

func (s *glmSuite) TestStandardize(c *check.C) {
	a := []float64{2, 4, 6, 8}
	standardize(a)
	sum := 0.0
	for _, v := range a {
		sum += v
	}
	c.Check(math.Abs(sum) < 1e-12, check.Equals, true)

	b := []float64{5, 5, 5}
	standardize(b)
	c.Check(b, check.DeepEquals, []float64{0, 0, 0})
}
