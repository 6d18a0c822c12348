// Copyright (C) The StrandLabs Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package strandlabs

import (
	"flag"
	"fmt"
	"io"
	"math"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
)

// modeler fits baseline classifiers (logistic regression, random
// forest) on the wide feature table as a diagnostic. Nothing else in
// the pipeline consumes its output.
type modeler struct{}

type modelReport struct {
	NTrain, NTest  int
	LRAccuracy     float64
	LRAUC          float64
	CVAUCMean      float64
	CVAUCStd       float64
	RFAUC          float64
	TP, FP, TN, FN int
}

func (cmd *modeler) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	inputFilename := flags.String("i", "-", "input `file` (wide-format csv)")
	outputFilename := flags.String("o", "-", "metrics csv output `file`")
	testFraction := flags.Float64("test-fraction", 0.2, "fraction of samples held out for testing")
	seed := flags.Uint64("seed", 42, "PRNG seed for the split and the forest")
	trees := flags.Int("trees", 100, "number of random forest trees")
	labelColumn := flags.String("label-column", defaultLabelColumn, "outcome column `name`")
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
	m, err := loadMarkerMatrix(t, *labelColumn, *markerSuffix)
	if err != nil {
		return 1
	}

	var report *modelReport
	report, err = evaluateModels(m, *testFraction, *seed, *trees)
	if err != nil {
		return 1
	}

	fmt.Fprintf(stdout, "samples: %d train, %d test\n", report.NTrain, report.NTest)
	fmt.Fprintf(stdout, "logistic regression: accuracy %.3f, ROC-AUC %.3f\n", report.LRAccuracy, report.LRAUC)
	fmt.Fprintf(stdout, "confusion: tp=%d fp=%d tn=%d fn=%d\n", report.TP, report.FP, report.TN, report.FN)
	fmt.Fprintf(stdout, "cv AUC: %.3f (+/- %.3f)\n", report.CVAUCMean, report.CVAUCStd)
	fmt.Fprintf(stdout, "random forest AUC: %.3f\n", report.RFAUC)

	out := &table{cols: []string{"metric", "value"}}
	for _, kv := range [][2]string{
		{"n_train", fmt.Sprintf("%d", report.NTrain)},
		{"n_test", fmt.Sprintf("%d", report.NTest)},
		{"lr_accuracy", formatCell(report.LRAccuracy)},
		{"lr_auc", formatCell(report.LRAUC)},
		{"cv_auc_mean", formatCell(report.CVAUCMean)},
		{"cv_auc_std", formatCell(report.CVAUCStd)},
		{"rf_auc", formatCell(report.RFAUC)},
		{"tp", fmt.Sprintf("%d", report.TP)},
		{"fp", fmt.Sprintf("%d", report.FP)},
		{"tn", fmt.Sprintf("%d", report.TN)},
		{"fn", fmt.Sprintf("%d", report.FN)},
	} {
		out.rows = append(out.rows, []string{kv[0], kv[1]})
	}
	if *outputFilename == "-" {
		err = writeTable(stdout, out)
	} else {
		err = saveTable(*outputFilename, out)
	}
	if err != nil {
		return 1
	}
	return 0
}

// evaluateModels is the whole modeling stage as one composable
// function: explicit inputs, explicit report, no package-level state.
func evaluateModels(m *markerMatrix, testFraction float64, seed uint64, trees int) (*modelReport, error) {
	trainIdx, testIdx := stratifiedSplit(m.label, testFraction, seed)
	if len(trainIdx) == 0 || len(testIdx) == 0 {
		return nil, &EmptyInputError{Reason: "not enough samples for a train/test split"}
	}

	X := m.imputed()
	Xs := scaleOnTrain(X, trainIdx)

	report := &modelReport{NTrain: len(trainIdx), NTest: len(testIdx)}

	// Logistic regression on the training split.
	params, ok := fitLogisticOn(Xs, m.label, trainIdx, m.markers)
	if !ok {
		log.Warn("logistic regression did not converge; metrics reflect a 0.5 constant predictor")
	}
	probs := make([]float64, len(testIdx))
	for k, i := range testIdx {
		probs[k] = logisticPredict(params, Xs[i])
	}
	correct := 0
	for k, i := range testIdx {
		pred := probs[k] >= 0.5
		switch {
		case pred && m.label[i]:
			report.TP++
		case pred && !m.label[i]:
			report.FP++
		case !pred && !m.label[i]:
			report.TN++
		default:
			report.FN++
		}
		if pred == m.label[i] {
			correct++
		}
	}
	report.LRAccuracy = float64(correct) / float64(len(testIdx))
	report.LRAUC = rocAUC(probs, labelsAt(m.label, testIdx))

	// 5-fold cross-validated AUC on the training split. Fold
	// assignment is positional after the seeded stratified
	// shuffle, so reruns match.
	var cvAUCs []float64
	for fold := 0; fold < 5; fold++ {
		var cvTrain, cvTest []int
		for k, i := range trainIdx {
			if k%5 == fold {
				cvTest = append(cvTest, i)
			} else {
				cvTrain = append(cvTrain, i)
			}
		}
		if len(cvTest) == 0 {
			continue
		}
		params, _ := fitLogisticOn(Xs, m.label, cvTrain, m.markers)
		foldProbs := make([]float64, len(cvTest))
		for k, i := range cvTest {
			foldProbs[k] = logisticPredict(params, Xs[i])
		}
		auc := rocAUC(foldProbs, labelsAt(m.label, cvTest))
		if !math.IsNaN(auc) {
			cvAUCs = append(cvAUCs, auc)
		}
	}
	if len(cvAUCs) > 0 {
		report.CVAUCMean, report.CVAUCStd = stat.MeanStdDev(cvAUCs, nil)
		if len(cvAUCs) == 1 {
			report.CVAUCStd = 0
		}
	} else {
		report.CVAUCMean, report.CVAUCStd = math.NaN(), math.NaN()
	}

	// Random forest on the same split.
	forest := &forestClassifier{NTrees: trees, MaxDepth: selectForestDepth, Seed: seed}
	trainX := make([][]float64, len(trainIdx))
	trainY := make([]int, len(trainIdx))
	for k, i := range trainIdx {
		trainX[k] = Xs[i]
		if m.label[i] {
			trainY[k] = 1
		}
	}
	forest.fit(trainX, trainY)
	rfProbs := make([]float64, len(testIdx))
	for k, i := range testIdx {
		rfProbs[k] = forest.predictProba(Xs[i])
	}
	report.RFAUC = rocAUC(rfProbs, labelsAt(m.label, testIdx))

	return report, nil
}

// stratifiedSplit shuffles cases and controls separately with a
// seeded PRNG and holds out the requested fraction of each.
func stratifiedSplit(label []bool, testFraction float64, seed uint64) (train, test []int) {
	var cases, controls []int
	for i, b := range label {
		if b {
			cases = append(cases, i)
		} else {
			controls = append(controls, i)
		}
	}
	rng := rand.New(rand.NewSource(seed))
	for _, group := range [][]int{cases, controls} {
		rng.Shuffle(len(group), func(i, j int) { group[i], group[j] = group[j], group[i] })
		nTest := int(math.Round(testFraction * float64(len(group))))
		if nTest >= len(group) && len(group) > 0 {
			nTest = len(group) - 1
		}
		test = append(test, group[:nTest]...)
		train = append(train, group[nTest:]...)
	}
	return
}

// scaleOnTrain standardizes every column using mean and stddev fitted
// on the training rows only.
func scaleOnTrain(X [][]float64, trainIdx []int) [][]float64 {
	p := len(X[0])
	out := make([][]float64, len(X))
	col := make([]float64, len(trainIdx))
	means := make([]float64, p)
	stds := make([]float64, p)
	for j := 0; j < p; j++ {
		for k, i := range trainIdx {
			col[k] = X[i][j]
		}
		means[j], stds[j] = stat.MeanStdDev(col, nil)
		if stds[j] == 0 || math.IsNaN(stds[j]) {
			stds[j] = 1
		}
	}
	for i := range X {
		row := make([]float64, p)
		for j := range row {
			row[j] = (X[i][j] - means[j]) / stds[j]
		}
		out[i] = row
	}
	return out
}

func fitLogisticOn(X [][]float64, label []bool, idx []int, names []string) ([]float64, bool) {
	columns := make([][]float64, len(names))
	for j := range names {
		col := make([]float64, len(idx))
		for k, i := range idx {
			col[k] = X[i][j]
		}
		columns[j] = col
	}
	outcome := make([]bool, len(idx))
	for k, i := range idx {
		outcome[k] = label[i]
	}
	return logisticFit(columns, names, outcome)
}

// logisticPredict applies fitted parameters (intercept first) to one
// standardized sample. Nil params degrade to a 0.5 constant.
func logisticPredict(params []float64, x []float64) float64 {
	if params == nil {
		return 0.5
	}
	z := params[0]
	for j, v := range x {
		z += params[1+j] * v
	}
	return 1 / (1 + math.Exp(-z))
}

func labelsAt(label []bool, idx []int) []bool {
	out := make([]bool, len(idx))
	for k, i := range idx {
		out[k] = label[i]
	}
	return out
}

// rocAUC computes the area under the ROC curve as the Mann-Whitney
// probability that a random case scores above a random control (ties
// count half).
func rocAUC(scores []float64, label []bool) float64 {
	var wins, ties float64
	var nPos, nNeg int
	for i, si := range scores {
		if !label[i] {
			continue
		}
		nPos++
		for j, sj := range scores {
			if label[j] {
				continue
			}
			switch {
			case si > sj:
				wins++
			case si == sj:
				ties++
			}
		}
	}
	for _, b := range label {
		if !b {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		return math.NaN()
	}
	return (wins + ties/2) / float64(nPos*nNeg)
}
