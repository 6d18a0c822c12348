// Copyright (C) The StrandLabs Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package strandlabs

import (
	"math"

	"gopkg.in/check.v1"
)

type fscoreSuite struct{}

var _ = check.Suite(&fscoreSuite{})

func (s *fscoreSuite) TestFOneway(c *check.C) {
	vals := []float64{1, 2, 3, 2, 3, 4}
	label := []bool{false, false, false, true, true, true}
	f, p := fOneway(vals, label)
	// Between: 3*(2-2.5)^2 + 3*(3-2.5)^2 = 1.5, within: 4/(6-2) = 1.
	c.Check(f, check.Equals, 1.5)
	c.Check(p > 0 && p < 1, check.Equals, true)

	// Stronger separation, same dispersion: larger F, smaller p.
	f2, p2 := fOneway([]float64{1, 2, 3, 8, 9, 10}, label)
	c.Check(f2 > f, check.Equals, true)
	c.Check(p2 < p, check.Equals, true)
}

func (s *fscoreSuite) TestFOnewayDegenerate(c *check.C) {
	// One group only: no between-group contrast.
	f, p := fOneway([]float64{1, 2, 3}, []bool{true, true, true})
	c.Check(math.IsNaN(f), check.Equals, true)
	c.Check(math.IsNaN(p), check.Equals, true)

	// Point-mass groups at distinct means.
	f, p = fOneway([]float64{1, 1, 5, 5}, []bool{false, false, true, true})
	c.Check(math.IsInf(f, 1), check.Equals, true)
	c.Check(p, check.Equals, 0.0)

	// Constant marker.
	f, p = fOneway([]float64{2, 2, 2, 2}, []bool{false, false, true, true})
	c.Check(math.IsNaN(f), check.Equals, true)
	c.Check(math.IsNaN(p), check.Equals, true)
}

func (s *fscoreSuite) TestFScoresShapeAndRanges(c *check.C) {
	m := &markerMatrix{
		markers: []string{"a_log", "b_log", "c_log"},
		data: [][]float64{
			{1.0, 5.0, 2.2},
			{1.2, 4.0, math.NaN()},
			{0.9, 6.0, 2.0},
			{3.1, 5.5, 2.4},
			{3.0, 4.5, 2.1},
			{2.9, 5.0, 2.3},
		},
		label: []bool{false, false, false, true, true, true},
	}
	f, p := fScores(m)
	c.Assert(len(f), check.Equals, 3)
	c.Assert(len(p), check.Equals, 3)
	for j := range f {
		if !math.IsNaN(f[j]) {
			c.Check(f[j] >= 0, check.Equals, true)
			c.Check(p[j] >= 0 && p[j] <= 1, check.Equals, true)
		}
	}
}
