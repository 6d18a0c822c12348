// Copyright (C) The StrandLabs Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package strandlabs

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// fOneway computes the one-way ANOVA F statistic and p-value for one
// marker split into case/control groups. This assumes marker values
// conditioned on label are approximately normal with equal variance
// across groups; like the rest of the field's tooling we document the
// approximation rather than validate it.
//
// Deterministic: no randomness, fixed input order.
func fOneway(vals []float64, label []bool) (f, p float64) {
	var sum, sumCase, sumCtrl float64
	var nCase, nCtrl int
	for i, v := range vals {
		sum += v
		if label[i] {
			sumCase += v
			nCase++
		} else {
			sumCtrl += v
			nCtrl++
		}
	}
	n := len(vals)
	if nCase == 0 || nCtrl == 0 || n < 3 {
		return math.NaN(), math.NaN()
	}
	grand := sum / float64(n)
	meanCase := sumCase / float64(nCase)
	meanCtrl := sumCtrl / float64(nCtrl)

	var ssWithin float64
	for i, v := range vals {
		if label[i] {
			ssWithin += (v - meanCase) * (v - meanCase)
		} else {
			ssWithin += (v - meanCtrl) * (v - meanCtrl)
		}
	}
	ssBetween := float64(nCase)*(meanCase-grand)*(meanCase-grand) +
		float64(nCtrl)*(meanCtrl-grand)*(meanCtrl-grand)

	dfBetween := 1.0
	dfWithin := float64(n - 2)
	msBetween := ssBetween / dfBetween
	msWithin := ssWithin / dfWithin
	if msWithin == 0 {
		if msBetween == 0 {
			return math.NaN(), math.NaN()
		}
		// Zero within-group variance: the groups are point
		// masses at different means.
		return math.Inf(1), 0
	}
	f = msBetween / msWithin
	dist := distuv.F{D1: dfBetween, D2: dfWithin}
	p = dist.Survival(f)
	return f, p
}

// fScores runs the univariate scorer over every marker, using the
// complete cases of each column independently.
func fScores(m *markerMatrix) (f, p []float64) {
	f = make([]float64, len(m.markers))
	p = make([]float64, len(m.markers))
	for j := range m.markers {
		vals, label := m.column(j)
		f[j], p[j] = fOneway(vals, label)
	}
	return f, p
}
