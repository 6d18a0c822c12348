// Copyright (C) The StrandLabs Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package strandlabs

import (
	"math"
	"sort"
	"sync"

	"golang.org/x/exp/rand"
)

// forestClassifier is a bagged ensemble of CART trees for a binary
// outcome, with gini impurity and per-split feature subsampling.
// Trees are built concurrently but each tree derives its own PRNG
// from Seed and writes into a fixed slot, so the fitted forest (and
// its importances) are identical regardless of GOMAXPROCS.
type forestClassifier struct {
	NTrees          int
	MaxDepth        int
	MinSamplesSplit int
	MaxFeatures     int // 0 means floor(sqrt(p))
	Seed            uint64

	trees      []*cartNode
	importance []float64
}

type cartNode struct {
	feature   int
	threshold float64
	left      *cartNode
	right     *cartNode
	leaf      bool
	prob      float64 // P(label==1) among training samples at this leaf
}

func (fc *forestClassifier) fit(X [][]float64, y []int) {
	n := len(X)
	p := len(X[0])
	maxFeatures := fc.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = int(math.Sqrt(float64(p)))
		if maxFeatures < 1 {
			maxFeatures = 1
		}
	}
	if maxFeatures > p {
		maxFeatures = p
	}
	minSplit := fc.MinSamplesSplit
	if minSplit < 2 {
		minSplit = 2
	}

	fc.trees = make([]*cartNode, fc.NTrees)
	perTree := make([][]float64, fc.NTrees)
	var wg sync.WaitGroup
	for t := 0; t < fc.NTrees; t++ {
		wg.Add(1)
		go func(t int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(fc.Seed + uint64(t)))
			idx := make([]int, n)
			for i := range idx {
				idx[i] = rng.Intn(n)
			}
			imp := make([]float64, p)
			b := &treeBuilder{
				X: X, y: y, rng: rng,
				maxDepth: fc.MaxDepth, minSplit: minSplit,
				maxFeatures: maxFeatures, nTotal: len(idx),
				importance: imp,
			}
			fc.trees[t] = b.build(idx, 0)
			normalizeSum(imp)
			perTree[t] = imp
		}(t)
	}
	wg.Wait()

	fc.importance = make([]float64, p)
	for _, imp := range perTree {
		for j, v := range imp {
			fc.importance[j] += v
		}
	}
	for j := range fc.importance {
		fc.importance[j] /= float64(fc.NTrees)
	}
	normalizeSum(fc.importance)
}

// normalizeSum scales a nonnegative vector to sum to 1, leaving an
// all-zero vector untouched.
func normalizeSum(a []float64) {
	sum := 0.0
	for _, v := range a {
		sum += v
	}
	if sum == 0 {
		return
	}
	for i := range a {
		a[i] /= sum
	}
}

// predictProba returns the forest-averaged probability of the
// positive class for one sample.
func (fc *forestClassifier) predictProba(x []float64) float64 {
	sum := 0.0
	for _, root := range fc.trees {
		node := root
		for !node.leaf {
			if x[node.feature] <= node.threshold {
				node = node.left
			} else {
				node = node.right
			}
		}
		sum += node.prob
	}
	return sum / float64(len(fc.trees))
}

type treeBuilder struct {
	X           [][]float64
	y           []int
	rng         *rand.Rand
	maxDepth    int
	minSplit    int
	maxFeatures int
	nTotal      int
	importance  []float64
}

func (b *treeBuilder) build(idx []int, depth int) *cartNode {
	nPos := 0
	for _, i := range idx {
		nPos += b.y[i]
	}
	n := len(idx)
	leaf := &cartNode{leaf: true, prob: float64(nPos) / float64(n)}
	if nPos == 0 || nPos == n || n < b.minSplit || (b.maxDepth > 0 && depth >= b.maxDepth) {
		return leaf
	}

	imp := gini(nPos, n)
	feature, threshold, decrease := b.bestSplit(idx, imp)
	if feature < 0 || decrease <= 0 {
		return leaf
	}

	var leftIdx, rightIdx []int
	for _, i := range idx {
		if b.X[i][feature] <= threshold {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}
	if len(leftIdx) == 0 || len(rightIdx) == 0 {
		return leaf
	}

	b.importance[feature] += float64(n) / float64(b.nTotal) * decrease
	return &cartNode{
		feature:   feature,
		threshold: threshold,
		left:      b.build(leftIdx, depth+1),
		right:     b.build(rightIdx, depth+1),
	}
}

// bestSplit scans a random subset of features (sampled without
// replacement, in sampled order so ties resolve deterministically)
// for the threshold with the largest gini decrease.
func (b *treeBuilder) bestSplit(idx []int, parentImp float64) (feature int, threshold, decrease float64) {
	p := len(b.importance)
	perm := b.rng.Perm(p)[:b.maxFeatures]

	n := len(idx)
	feature = -1
	vals := make([]float64, n)
	order := make([]int, n)
	for _, f := range perm {
		for k, i := range idx {
			vals[k] = b.X[i][f]
			order[k] = k
		}
		sort.Slice(order, func(a, c int) bool { return vals[order[a]] < vals[order[c]] })

		nPos := 0
		for _, i := range idx {
			nPos += b.y[i]
		}
		leftN, leftPos := 0, 0
		for k := 0; k < n-1; k++ {
			i := idx[order[k]]
			leftN++
			leftPos += b.y[i]
			v, next := vals[order[k]], vals[order[k+1]]
			if v == next {
				continue
			}
			rightN := n - leftN
			rightPos := nPos - leftPos
			childImp := float64(leftN)/float64(n)*gini(leftPos, leftN) +
				float64(rightN)/float64(n)*gini(rightPos, rightN)
			if d := parentImp - childImp; d > decrease {
				decrease = d
				feature = f
				threshold = v + (next-v)/2
			}
		}
	}
	return
}

func gini(nPos, n int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(nPos) / float64(n)
	return 2 * p * (1 - p)
}
