package forecast

import (
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrainingSet_Features(t *testing.T) {
	bars := barsEnding("2024-01-10", 1, 2, 3, 4, 5, 6, 7)
	xs, ys := trainingSet(bars)
	require.Len(t, xs, 2)
	assert.Equal(t, []float64{6, 7}, ys)

	prev := bars[4]
	assert.Equal(t, []float64{5, 4, 3, 2, 1, float64(prev.Volume), 3}, xs[0])
	assert.Equal(t, []float64{6, 5, 4, 3, 2, float64(bars[5].Volume), 3}, xs[1])
}

func TestEnsembleRegressor_MinimumBars(t *testing.T) {
	e := newEngine(t, DefaultOptions())

	bars := barsEnding("2024-01-08", 10, 11, 12, 13, 14, 15)
	xs, _ := trainingSet(bars)
	assert.Len(t, xs, 1)

	res, err := e.EnsembleRegressor(bars, 3)
	require.NoError(t, err)
	require.Len(t, res.Predictions, 3)
	// a single example means every tree is one leaf holding its label
	for _, p := range res.Predictions {
		assert.Equal(t, 15.0, p.Predicted)
	}
	assert.Equal(t, "Random Forest", res.Model)
	assert.Nil(t, res.R2)

	_, err = e.EnsembleRegressor(bars[:5], 3)
	var ide *InsufficientDataError
	require.ErrorAs(t, err, &ide)
	assert.Equal(t, RandomForest, ide.Model)
	assert.Equal(t, 6, ide.Need)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestEnsembleRegressor_DeterministicForSeed(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	closes := make([]float64, 120)
	p := 100.0
	for i := range closes {
		p += rng.NormFloat64()
		closes[i] = p
	}
	bars := barsEnding("2024-06-14", closes...)

	e := newEngine(t, Options{Trees: 30, Seed: 42})
	a, err := e.EnsembleRegressor(bars, 30)
	require.NoError(t, err)
	b, err := e.EnsembleRegressor(bars, 30)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEnsembleRegressor_PredictionsStayWithinLabelRange(t *testing.T) {
	closes := linearCloses(60, 50, 1)
	bars := barsEnding("2024-03-29", closes...)
	e := newEngine(t, Options{Trees: 20})

	res, err := e.EnsembleRegressor(bars, 15)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(res.Predictions), 15)
	lo, hi := slices.Min(closes[5:]), slices.Max(closes[5:])
	for _, p := range res.Predictions {
		assert.GreaterOrEqual(t, p.Predicted, lo)
		assert.LessOrEqual(t, p.Predicted, hi)
		assert.NotEqual(t, time.Saturday, p.Date.Weekday())
		assert.NotEqual(t, time.Sunday, p.Date.Weekday())
	}
}

func TestRollingFeatures_FreezesVolumeAndRange(t *testing.T) {
	bars := barsEnding("2024-01-10", 1, 2, 3, 4, 5, 6)
	f := newRollingFeatures(bars)
	last := bars[len(bars)-1]
	assert.Equal(t, []float64{6, 5, 4, 3, 2, float64(last.Volume), 3}, f.vector())

	f.push(9)
	f.push(10)
	assert.Equal(t, []float64{10, 9, 6, 5, 4, float64(last.Volume), 3}, f.vector())
}

func TestRegressionTree_SplitsOnStep(t *testing.T) {
	b := &treeBuilder{
		xs:          [][]float64{{1}, {2}, {3}, {4}},
		ys:          []float64{0, 0, 10, 10},
		maxDepth:    6,
		maxFeatures: 1,
		rng:         rand.New(rand.NewPCG(1, 1)),
	}
	tree := b.build([]int{0, 1, 2, 3})
	require.False(t, tree.root.leaf)
	assert.Equal(t, 2.5, tree.root.threshold)
	assert.Equal(t, 0.0, tree.predict([]float64{1.5}))
	assert.Equal(t, 10.0, tree.predict([]float64{3.5}))
}

func TestRegressionTree_DepthLimit(t *testing.T) {
	b := &treeBuilder{
		xs:          [][]float64{{1}, {2}, {3}, {4}},
		ys:          []float64{1, 2, 3, 4},
		maxDepth:    0,
		maxFeatures: 1,
		rng:         rand.New(rand.NewPCG(1, 1)),
	}
	tree := b.build([]int{0, 1, 2, 3})
	assert.True(t, tree.root.leaf)
	assert.Equal(t, 2.5, tree.predict([]float64{100}))
}
