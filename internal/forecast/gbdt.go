package forecast

import "math"

// boostingConfig holds the hyperparameters of the boosted ensemble.
type boostingConfig struct {
	Estimators   int
	LearningRate float64
	MaxDepth     int
	MinLeaf      int
}

// boostedTrees is a gradient-boosted tree ensemble for squared loss:
// each tree is fit to the residuals of the running prediction and added
// with shrinkage. Training is fully deterministic (no subsampling), so
// identical input yields identical models.
type boostedTrees struct {
	base      float64
	shrinkage float64
	trees     []*regressionTree
}

// convergedResidual stops boosting once residuals are numerically flat.
const convergedResidual = 1e-9

// fitBoosted trains a boosted ensemble on X, y.
func fitBoosted(X [][]float64, y []float64, cfg boostingConfig) *boostedTrees {
	n := len(y)
	b := &boostedTrees{shrinkage: cfg.LearningRate}

	var sum float64
	for _, v := range y {
		sum += v
	}
	b.base = sum / float64(n)

	pred := make([]float64, n)
	for i := range pred {
		pred[i] = b.base
	}

	resid := make([]float64, n)
	for m := 0; m < cfg.Estimators; m++ {
		maxResid := 0.0
		for i := range y {
			resid[i] = y[i] - pred[i]
			if r := math.Abs(resid[i]); r > maxResid {
				maxResid = r
			}
		}
		if maxResid < convergedResidual {
			break
		}

		tree := fitTree(X, resid, cfg.MaxDepth, cfg.MinLeaf)
		b.trees = append(b.trees, tree)
		for i := range pred {
			pred[i] += b.shrinkage * tree.predict(X[i])
		}
	}
	return b
}

// predict returns the ensemble prediction for a single feature vector.
func (b *boostedTrees) predict(x []float64) float64 {
	out := b.base
	for _, tree := range b.trees {
		out += b.shrinkage * tree.predict(x)
	}
	return out
}

// multiOutput wraps one boosted ensemble per forecast horizon step so a
// single call predicts the full horizon jointly.
type multiOutput struct {
	outputs []*boostedTrees
}

// fitMultiOutput trains one ensemble per target column of Y.
func fitMultiOutput(X [][]float64, Y [][]float64, cfg boostingConfig) *multiOutput {
	horizon := len(Y[0])
	m := &multiOutput{outputs: make([]*boostedTrees, horizon)}
	y := make([]float64, len(Y))
	for h := 0; h < horizon; h++ {
		for i := range Y {
			y[i] = Y[i][h]
		}
		m.outputs[h] = fitBoosted(X, y, cfg)
	}
	return m
}

// predict returns one value per horizon step for a single feature vector.
func (m *multiOutput) predict(x []float64) []float64 {
	out := make([]float64, len(m.outputs))
	for h, b := range m.outputs {
		out[h] = b.predict(x)
	}
	return out
}
