package forecast

import (
	"errors"
	"math"
	"math/rand/v2"
	"runtime"

	"StockForecaster/internal/calendar"
	"StockForecaster/internal/model"

	"golang.org/x/sync/errgroup"
)

// randomForest is a bagged ensemble of regression trees.
type randomForest struct {
	trees []*regressionTree
}

// trainForest fits the given number of trees on bootstrap samples of (xs, ys). Tree i
// draws from its own PCG stream keyed by (seed, i), so the result does not
// depend on goroutine scheduling.
func trainForest(xs [][]float64, ys []float64, trees, maxDepth int, seed uint64) (*randomForest, error) {
	if len(xs) == 0 {
		return nil, errors.New("empty training set")
	}
	maxFeatures := max(1, int(math.Floor(math.Sqrt(float64(len(xs[0]))))))

	forest := &randomForest{trees: make([]*regressionTree, trees)}
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range trees {
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(seed, uint64(i)))
			sample := make([]int, len(xs))
			for j := range sample {
				sample[j] = rng.IntN(len(xs))
			}
			b := &treeBuilder{xs: xs, ys: ys, maxDepth: maxDepth, maxFeatures: maxFeatures, rng: rng}
			forest.trees[i] = b.build(sample)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return forest, nil
}

func (f *randomForest) predict(x []float64) float64 {
	var sum float64
	for _, t := range f.trees {
		sum += t.predict(x)
	}
	return sum / float64(len(f.trees))
}

// EnsembleRegressor trains a random forest on lagged closes, prior volume and
// prior range, then forecasts autoregressively: each prediction becomes the
// newest close for the next step.
func (e *Engine) EnsembleRegressor(bars []model.Bar, horizon int) (Result, error) {
	if err := e.checkHorizon(horizon); err != nil {
		return Result{}, err
	}
	if err := checkBars(RandomForest, bars, minForestBars); err != nil {
		return Result{}, err
	}

	n := len(bars)
	xs, ys := trainingSet(bars)
	forest, err := trainForest(xs, ys, e.opts.Trees, e.opts.MaxDepth, e.opts.Seed)
	if err != nil {
		return Result{}, &ComputationError{Model: RandomForest, Bars: n, Err: err}
	}

	feats := newRollingFeatures(bars)
	steps := calendar.TradingSteps(bars[n-1].Date, horizon)
	preds := make([]PredictionPoint, 0, len(steps))
	for _, s := range steps {
		v := forest.predict(feats.vector())
		if !finite(v) {
			return Result{}, &ComputationError{Model: RandomForest, Bars: n, Err: errNotFinite}
		}
		feats.push(v)
		preds = append(preds, PredictionPoint{Date: s.Date, Predicted: v})
	}
	return Result{Predictions: preds, Model: forestLabel}, nil
}
