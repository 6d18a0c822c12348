// Copyright (C) The StrandLabs Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package strandlabs

import (
	"io"
	"log"
	"math"

	"github.com/kshedden/statmodel/glm"
	"github.com/kshedden/statmodel/statmodel"
	logrus "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

var glmConfig = &glm.Config{
	Family:         glm.NewFamily(glm.BinomialFamily),
	FitMethod:      "IRLS",
	ConcurrentIRLS: 1000,
	Log:            log.New(io.Discard, "", 0),
}

// standardize rescales a to zero mean and unit variance in place. A
// constant column is left at all zeros instead of dividing by zero.
func standardize(a []float64) {
	mean, std := stat.MeanStdDev(a, nil)
	for i, x := range a {
		if std == 0 {
			a[i] = 0
		} else {
			a[i] = (x - mean) / std
		}
	}
}

// logisticFit fits a binomial GLM (logit link, IRLS) of outcome on
// the given feature columns plus an intercept. It returns the fitted
// parameters: params[0] is the intercept, params[1+j] the coefficient
// of column j. ok is false when the fit errored out or the IRLS
// solver blew up (typically a singular design matrix); callers treat
// that as a convergence warning, not a fatal error.
func logisticFit(columns [][]float64, names []string, outcome []bool) (params []float64, ok bool) {
	defer func() {
		if recover() != nil {
			// typically "matrix singular or near-singular with condition number +Inf"
			params, ok = nil, false
		}
	}()

	n := len(outcome)
	data := make([][]statmodel.Dtype, 0, len(columns)+2)
	y := make([]statmodel.Dtype, n)
	constants := make([]statmodel.Dtype, n)
	for i, b := range outcome {
		if b {
			y[i] = 1
		}
		constants[i] = 1
	}
	data = append(data, y, constants)
	varNames := append([]string{"outcome", "constants"}, names...)
	for _, col := range columns {
		series := make([]statmodel.Dtype, len(col))
		for i, v := range col {
			series[i] = v
		}
		data = append(data, series)
	}
	dataset := statmodel.NewDataset(data, varNames)

	model, err := glm.NewGLM(dataset, "outcome", varNames[1:], glmConfig)
	if err != nil {
		return nil, false
	}
	result := model.Fit()
	params = result.Params()
	for _, v := range params {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, false
		}
	}
	return params, true
}

// logisticScores is the linear-model importance scorer: markers are
// standardized on the full dataset, a joint logistic regression is
// fitted, and each marker's importance is the absolute value of its
// coefficient. A failed or non-converged fit degrades to all-zero
// scores with a warning; the consensus ranking continues on the other
// two scorers.
func logisticScores(m *markerMatrix) []float64 {
	X := m.imputed()
	columns := make([][]float64, len(m.markers))
	for j := range m.markers {
		col := make([]float64, len(X))
		for i := range X {
			col[i] = X[i][j]
		}
		standardize(col)
		columns[j] = col
	}

	scores := make([]float64, len(m.markers))
	params, ok := logisticFit(columns, m.markers, m.label)
	if !ok {
		logrus.Warn("logistic regression did not converge; using zero coefficients for consensus")
		return scores
	}
	for j := range m.markers {
		scores[j] = math.Abs(params[1+j])
	}
	return scores
}
