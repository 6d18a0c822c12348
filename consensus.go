// Copyright (C) The StrandLabs Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package strandlabs

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// markerScore is the fully populated per-marker record: the three raw
// importance statistics, their [0,1] normalizations, the consensus
// score, and the final rank.
type markerScore struct {
	Rank          int
	Marker        string // marker name with the signal suffix stripped
	MarkerFull    string
	FScore        float64
	PValue        float64
	RFImportance  float64
	LRCoefficient float64
	FNorm         float64
	RFNorm        float64
	LRNorm        float64
	Consensus     float64
}

// minmaxNormalize maps a raw score vector onto [0,1]. A constant
// vector maps to all zeros (the divide-by-zero policy). NaN entries
// map to 0 and +Inf entries to 1, without influencing the observed
// min/max of the finite entries.
func minmaxNormalize(a []float64) []float64 {
	min, max := math.Inf(1), math.Inf(-1)
	for _, v := range a {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	out := make([]float64, len(a))
	for i, v := range a {
		switch {
		case math.IsNaN(v):
			out[i] = 0
		case math.IsInf(v, 1):
			out[i] = 1
		case math.IsInf(v, -1):
			out[i] = 0
		case min == max || min > max:
			out[i] = 0
		default:
			out[i] = (v - min) / (max - min)
		}
	}
	return out
}

// consensusRank combines the three raw score vectors into ranked
// marker records. The sort is stable and descending by consensus
// score, so ties keep the input column order and the ranking is a
// deterministic total order.
func consensusRank(markers []string, suffix string, f, p, rf, lr []float64) []markerScore {
	fNorm := minmaxNormalize(f)
	rfNorm := minmaxNormalize(rf)
	lrNorm := minmaxNormalize(lr)

	scores := make([]markerScore, len(markers))
	for j, name := range markers {
		scores[j] = markerScore{
			Marker:        strings.TrimSuffix(name, suffix),
			MarkerFull:    name,
			FScore:        f[j],
			PValue:        p[j],
			RFImportance:  rf[j],
			LRCoefficient: lr[j],
			FNorm:         fNorm[j],
			RFNorm:        rfNorm[j],
			LRNorm:        lrNorm[j],
			Consensus:     (fNorm[j] + rfNorm[j] + lrNorm[j]) / 3,
		}
	}
	sort.SliceStable(scores, func(a, b int) bool {
		return scores[a].Consensus > scores[b].Consensus
	})
	for i := range scores {
		scores[i].Rank = i + 1
	}
	return scores
}

var scoreColumns = []string{
	"rank", "marker", "marker_full",
	"f_score", "p_value", "rf_importance", "lr_coefficient",
	"f_score_norm", "rf_norm", "lr_norm", "consensus_score",
}

func scoresTable(scores []markerScore) *table {
	t := &table{cols: scoreColumns}
	for _, s := range scores {
		t.rows = append(t.rows, []string{
			strconv.Itoa(s.Rank), s.Marker, s.MarkerFull,
			formatCell(s.FScore), formatCell(s.PValue),
			formatCell(s.RFImportance), formatCell(s.LRCoefficient),
			formatCell(s.FNorm), formatCell(s.RFNorm), formatCell(s.LRNorm),
			formatCell(s.Consensus),
		})
	}
	return t
}
