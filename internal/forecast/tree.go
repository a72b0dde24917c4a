package forecast

import "sort"

// treeNode is a single node in a fitted regression tree. Leaves have
// feature == -1 and carry the prediction in value.
type treeNode struct {
	feature   int
	threshold float64
	left      int
	right     int
	value     float64
}

// regressionTree is a binary regression tree fit with exact greedy splits
// minimizing squared error.
type regressionTree struct {
	nodes    []treeNode
	maxDepth int
	minLeaf  int
}

// fitTree fits a regression tree to the samples in X with targets y.
func fitTree(X [][]float64, y []float64, maxDepth, minLeaf int) *regressionTree {
	t := &regressionTree{maxDepth: maxDepth, minLeaf: minLeaf}
	idx := make([]int, len(y))
	for i := range idx {
		idx[i] = i
	}
	t.build(X, y, idx, 0)
	return t
}

// build grows a node over the samples in idx and returns its index in nodes.
func (t *regressionTree) build(X [][]float64, y []float64, idx []int, depth int) int {
	pos := len(t.nodes)
	t.nodes = append(t.nodes, treeNode{
		feature: -1,
		left:    -1,
		right:   -1,
		value:   meanAt(y, idx),
	})

	if depth >= t.maxDepth || len(idx) < 2*t.minLeaf {
		return pos
	}

	feature, threshold, ok := t.bestSplit(X, y, idx)
	if !ok {
		return pos
	}

	var left, right []int
	for _, i := range idx {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < t.minLeaf || len(right) < t.minLeaf {
		return pos
	}

	t.nodes[pos].feature = feature
	t.nodes[pos].threshold = threshold
	t.nodes[pos].left = t.build(X, y, left, depth+1)
	t.nodes[pos].right = t.build(X, y, right, depth+1)
	return pos
}

// bestSplit searches every feature for the threshold that maximizes the
// squared-error reduction. Returns ok=false when no valid split exists
// (all feature values tied, or minLeaf cannot be honored).
func (t *regressionTree) bestSplit(X [][]float64, y []float64, idx []int) (int, float64, bool) {
	n := len(idx)
	if n < 2*t.minLeaf {
		return 0, 0, false
	}

	var total float64
	for _, i := range idx {
		total += y[i]
	}

	bestGain := 0.0
	bestFeature := -1
	bestThreshold := 0.0
	baseScore := total * total / float64(n)

	order := make([]int, n)
	for f := 0; f < len(X[idx[0]]); f++ {
		copy(order, idx)
		sort.Slice(order, func(a, b int) bool { return X[order[a]][f] < X[order[b]][f] })

		var leftSum float64
		for k := 0; k < n-1; k++ {
			leftSum += y[order[k]]
			if X[order[k]][f] == X[order[k+1]][f] {
				continue // no boundary between tied values
			}
			nl := k + 1
			nr := n - nl
			if nl < t.minLeaf || nr < t.minLeaf {
				continue
			}
			rightSum := total - leftSum
			gain := leftSum*leftSum/float64(nl) + rightSum*rightSum/float64(nr) - baseScore
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = (X[order[k]][f] + X[order[k+1]][f]) / 2
			}
		}
	}

	if bestFeature < 0 {
		return 0, 0, false
	}
	return bestFeature, bestThreshold, true
}

// predict walks the tree for a single feature vector.
func (t *regressionTree) predict(x []float64) float64 {
	pos := 0
	for t.nodes[pos].feature >= 0 {
		if x[t.nodes[pos].feature] <= t.nodes[pos].threshold {
			pos = t.nodes[pos].left
		} else {
			pos = t.nodes[pos].right
		}
	}
	return t.nodes[pos].value
}

func meanAt(y []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	var sum float64
	for _, i := range idx {
		sum += y[i]
	}
	return sum / float64(len(idx))
}
