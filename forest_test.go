// Copyright (C) The StrandLabs Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package strandlabs

import (
	"gopkg.in/check.v1"
)

type forestSuite struct{}

var _ = check.Suite(&forestSuite{})

func forestFixture() ([][]float64, []int) {
	// Feature 0 separates the classes; feature 1 is noise.
	X := [][]float64{
		{1.0, 2.3}, {1.1, 1.8}, {1.2, 2.1}, {1.3, 1.7}, {1.4, 2.4},
		{5.0, 2.0}, {5.1, 1.9}, {5.2, 2.2}, {5.3, 1.6}, {5.4, 2.5},
	}
	y := []int{0, 0, 0, 0, 0, 1, 1, 1, 1, 1}
	return X, y
}

func (s *forestSuite) TestImportanceFavorsInformativeFeature(c *check.C) {
	X, y := forestFixture()
	fc := &forestClassifier{NTrees: 50, MaxDepth: 5, Seed: 999}
	fc.fit(X, y)
	c.Assert(len(fc.importance), check.Equals, 2)
	c.Check(fc.importance[0] > fc.importance[1], check.Equals, true)

	// Importances are normalized to sum to 1.
	sum := fc.importance[0] + fc.importance[1]
	c.Check(sum > 0.999 && sum < 1.001, check.Equals, true)
}

func (s *forestSuite) TestSeedReproducibility(c *check.C) {
	X, y := forestFixture()
	a := &forestClassifier{NTrees: 30, MaxDepth: 5, Seed: 999}
	a.fit(X, y)
	b := &forestClassifier{NTrees: 30, MaxDepth: 5, Seed: 999}
	b.fit(X, y)
	c.Check(a.importance, check.DeepEquals, b.importance)

	other := &forestClassifier{NTrees: 30, MaxDepth: 5, Seed: 1000}
	other.fit(X, y)
	// A different seed bootstraps different samples; byte-identical
	// importances would mean the seed is being ignored.
	same := true
	for j := range a.importance {
		if a.importance[j] != other.importance[j] {
			same = false
		}
	}
	c.Check(same, check.Equals, false)
}

func (s *forestSuite) TestPredictProba(c *check.C) {
	X, y := forestFixture()
	fc := &forestClassifier{NTrees: 50, MaxDepth: 5, Seed: 999}
	fc.fit(X, y)
	pLow := fc.predictProba([]float64{1.2, 2.0})
	pHigh := fc.predictProba([]float64{5.2, 2.0})
	c.Check(pLow >= 0 && pLow <= 1, check.Equals, true)
	c.Check(pHigh >= 0 && pHigh <= 1, check.Equals, true)
	c.Check(pHigh > pLow, check.Equals, true)
}

func (s *forestSuite) TestSingleClassLeaf(c *check.C) {
	X := [][]float64{{1, 0}, {2, 0}, {3, 0}}
	y := []int{1, 1, 1}
	fc := &forestClassifier{NTrees: 5, MaxDepth: 3, Seed: 1}
	fc.fit(X, y)
	c.Check(fc.predictProba([]float64{2, 0}), check.Equals, 1.0)
}
