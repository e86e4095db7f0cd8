package ml

import (
	"math"
	"math/rand"
)

// isolationTree is a single randomized binary partition tree.
type isolationTree struct {
	splitValue float64
	left       *isolationTree
	right      *isolationTree
	size       int
	isLeaf     bool
}

// IsolationForest scores points of a one-dimensional series by how quickly
// random binary splits isolate them. Higher scores mean fewer splits were
// needed, i.e. the point sits apart from the bulk of the data.
//
// The forest is seeded explicitly so that identical input yields identical
// scores across runs; analysis results must be reproducible.
type IsolationForest struct {
	trees         []*isolationTree
	numTrees      int
	subSampleSize int
	maxDepth      int
	rng           *rand.Rand
}

// NewIsolationForest creates a forest with the given ensemble size,
// per-tree subsample size and split seed.
func NewIsolationForest(numTrees, subSampleSize int, seed int64) *IsolationForest {
	if numTrees <= 0 {
		numTrees = 100
	}
	if subSampleSize <= 0 {
		subSampleSize = 256
	}
	// Trees deeper than log2(subsample) add no isolation information.
	maxDepth := int(math.Ceil(math.Log2(float64(subSampleSize)))) + 1

	return &IsolationForest{
		trees:         make([]*isolationTree, 0, numTrees),
		numTrees:      numTrees,
		subSampleSize: subSampleSize,
		maxDepth:      maxDepth,
		rng:           rand.New(rand.NewSource(seed)),
	}
}

// Fit builds the ensemble over the given values.
func (f *IsolationForest) Fit(values []float64) {
	if len(values) == 0 {
		return
	}
	f.trees = f.trees[:0]
	for i := 0; i < f.numTrees; i++ {
		sample := f.subSample(values)
		f.trees = append(f.trees, f.buildTree(sample, 0))
	}
}

// Score returns the isolation score for one value: 2^(-E[h]/c(n)) where E[h]
// is the average path length over all trees and c(n) the expected path length
// of an unsuccessful binary search over the subsample. Scores near 1 indicate
// isolation; scores near 0.5 or below indicate the bulk of the distribution.
func (f *IsolationForest) Score(value float64) float64 {
	if len(f.trees) == 0 {
		return 0.5
	}

	total := 0.0
	for _, tree := range f.trees {
		total += f.pathLength(tree, value, 0)
	}
	avg := total / float64(len(f.trees))

	c := averagePathLength(f.subSampleSize)
	if c <= 0 {
		return 0.5
	}
	return math.Pow(2, -avg/c)
}

// Scores computes isolation scores for every value in input order.
func (f *IsolationForest) Scores(values []float64) []float64 {
	scores := make([]float64, len(values))
	for i, v := range values {
		scores[i] = f.Score(v)
	}
	return scores
}

// subSample draws a random subset via Fisher-Yates shuffle.
func (f *IsolationForest) subSample(values []float64) []float64 {
	size := f.subSampleSize
	if size > len(values) {
		size = len(values)
	}

	shuffled := make([]float64, len(values))
	copy(shuffled, values)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := f.rng.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled[:size]
}

// buildTree recursively partitions the sample at random split points.
func (f *IsolationForest) buildTree(values []float64, depth int) *isolationTree {
	if len(values) <= 1 || depth >= f.maxDepth || allIdentical(values) {
		return &isolationTree{size: len(values), isLeaf: true}
	}

	minVal, maxVal := valueRange(values)
	split := minVal + f.rng.Float64()*(maxVal-minVal)

	var left, right []float64
	for _, v := range values {
		if v < split {
			left = append(left, v)
		} else {
			right = append(right, v)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &isolationTree{size: len(values), isLeaf: true}
	}

	return &isolationTree{
		splitValue: split,
		left:       f.buildTree(left, depth+1),
		right:      f.buildTree(right, depth+1),
		size:       len(values),
	}
}

// pathLength walks the tree for a value, adding the expected remaining depth
// at the reached leaf.
func (f *IsolationForest) pathLength(tree *isolationTree, value float64, depth int) float64 {
	if tree.isLeaf {
		return float64(depth) + averagePathLength(tree.size)
	}
	if value < tree.splitValue {
		return f.pathLength(tree.left, value, depth+1)
	}
	return f.pathLength(tree.right, value, depth+1)
}

// averagePathLength is c(n) = 2H(n-1) - 2(n-1)/n, the expected path length of
// an unsuccessful BST search over n points.
func averagePathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	if n == 2 {
		return 1
	}
	return 2*harmonicNumber(n-1) - 2*float64(n-1)/float64(n)
}

// harmonicNumber approximates H(n) with the Euler-Mascheroni constant.
func harmonicNumber(n int) float64 {
	return math.Log(float64(n)) + 0.5772156649
}

func allIdentical(values []float64) bool {
	for i := 1; i < len(values); i++ {
		if math.Abs(values[i]-values[0]) > 1e-10 {
			return false
		}
	}
	return true
}

func valueRange(values []float64) (float64, float64) {
	minVal, maxVal := values[0], values[0]
	for _, v := range values {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	return minVal, maxVal
}
