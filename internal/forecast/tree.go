package forecast

import (
	"math/rand/v2"
	"slices"
)

// regressionTree is a CART tree split on variance reduction. Leaves hold the
// mean label of the samples that reached them.
type regressionTree struct {
	root *treeNode
}

type treeNode struct {
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	value     float64
	leaf      bool
}

type treeBuilder struct {
	xs          [][]float64
	ys          []float64
	maxDepth    int
	maxFeatures int
	rng         *rand.Rand
}

func (b *treeBuilder) build(idx []int) *regressionTree {
	return &regressionTree{root: b.grow(idx, 0)}
}

func (b *treeBuilder) grow(idx []int, depth int) *treeNode {
	mean, sse := b.stats(idx)
	if depth >= b.maxDepth || len(idx) < 2 || sse == 0 {
		return &treeNode{leaf: true, value: mean}
	}

	feature, threshold, ok := b.bestSplit(idx, sse)
	if !ok {
		return &treeNode{leaf: true, value: mean}
	}

	var left, right []int
	for _, i := range idx {
		if b.xs[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      b.grow(left, depth+1),
		right:     b.grow(right, depth+1),
	}
}

// bestSplit scans a random subset of features and returns the threshold with
// the lowest combined squared error, if any beats the parent.
func (b *treeBuilder) bestSplit(idx []int, parentSSE float64) (feature int, threshold float64, ok bool) {
	nf := len(b.xs[idx[0]])
	candidates := b.rng.Perm(nf)[:min(b.maxFeatures, nf)]

	best := parentSSE
	sorted := slices.Clone(idx)
	for _, f := range candidates {
		slices.SortFunc(sorted, func(a, c int) int {
			switch va, vc := b.xs[a][f], b.xs[c][f]; {
			case va < vc:
				return -1
			case va > vc:
				return 1
			}
			return a - c
		})

		var totalSum, totalSq float64
		for _, i := range sorted {
			totalSum += b.ys[i]
			totalSq += b.ys[i] * b.ys[i]
		}

		var leftSum, leftSq float64
		for k := 0; k < len(sorted)-1; k++ {
			y := b.ys[sorted[k]]
			leftSum += y
			leftSq += y * y
			lo, hi := b.xs[sorted[k]][f], b.xs[sorted[k+1]][f]
			if lo == hi {
				continue
			}
			nl, nr := float64(k+1), float64(len(sorted)-k-1)
			rightSum, rightSq := totalSum-leftSum, totalSq-leftSq
			sse := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
			if sse < best {
				best, feature, threshold, ok = sse, f, (lo+hi)/2, true
			}
		}
	}
	return feature, threshold, ok
}

func (b *treeBuilder) stats(idx []int) (mean, sse float64) {
	for _, i := range idx {
		mean += b.ys[i]
	}
	mean /= float64(len(idx))
	for _, i := range idx {
		d := b.ys[i] - mean
		sse += d * d
	}
	return mean, sse
}

func (t *regressionTree) predict(x []float64) float64 {
	n := t.root
	for !n.leaf {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}
