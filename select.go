// Copyright (C) The StrandLabs Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package strandlabs

import (
	"flag"
	"fmt"
	"io"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// selector ranks methylation markers by a consensus of three
// importance scores: a one-way ANOVA F-test, random forest impurity
// importance, and standardized logistic regression coefficients.
type selector struct{}

// Fixed forest hyperparameters and seed: identical input must
// produce byte-identical score columns across runs.
const (
	selectForestTrees = 200
	selectForestDepth = 10
	selectForestSeed  = 999
)

func (cmd *selector) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	inputFilename := flags.String("i", "-", "input `file` (wide-format csv)")
	outputDir := flags.String("output-dir", "output", "output `directory`")
	nTop := flags.Int("n-top", 20, "number of top markers to report")
	plot := flags.Bool("plot", false, "also save a bar-chart png of the top markers")
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
	log.Infof("loaded %d samples with %d methylation markers", len(m.samples), len(m.markers))

	scores := rankMarkers(m, *markerSuffix)

	outFile := filepath.Join(*outputDir, "feature_importance_scores.csv")
	err = saveTable(outFile, scoresTable(scores))
	if err != nil {
		return 1
	}
	log.Infof("feature importance scores saved to %s", outFile)

	top := scores
	if *nTop < len(top) {
		top = top[:*nTop]
	}
	printTopMarkers(stdout, top)

	if *plot {
		plotFile := filepath.Join(*outputDir, "top_markers_plot.png")
		// Rendering is a diagnostic; a failure here must never
		// take the ranking output with it.
		if perr := plotTopMarkers(plotFile, top); perr != nil {
			log.Warnf("skipping marker plot: %s", perr)
		} else {
			log.Infof("visualization saved to %s", plotFile)
		}
	}
	return 0
}

// rankMarkers runs the three scorers and combines them into the
// consensus ranking.
func rankMarkers(m *markerMatrix, suffix string) []markerScore {
	f, p := fScores(m)

	forest := &forestClassifier{
		NTrees:   selectForestTrees,
		MaxDepth: selectForestDepth,
		Seed:     selectForestSeed,
	}
	forest.fit(m.imputed(), m.labelInts())

	lr := logisticScores(m)

	return consensusRank(m.markers, suffix, f, p, forest.importance, lr)
}

func printTopMarkers(w io.Writer, top []markerScore) {
	fmt.Fprintf(w, "%4s  %-24s  %12s  %10s  %13s  %14s  %15s\n",
		"rank", "marker", "f_score", "p_value", "rf_importance", "lr_coefficient", "consensus_score")
	for _, s := range top {
		fmt.Fprintf(w, "%4d  %-24s  %12.4f  %10.3g  %13.5f  %14.5f  %15.5f\n",
			s.Rank, s.Marker, s.FScore, s.PValue, s.RFImportance, s.LRCoefficient, s.Consensus)
	}
}
