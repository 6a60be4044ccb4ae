package ftl

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byu9/fuzzy-forecast/golang/fuzzy_tree/btree"
)

func TestFitStep(t *testing.T) {
	model := fitted(t, stepData(t), 5)
	tree, err := model.Tree()
	require.NoError(t, err)

	root := tree.Root()
	gate, ok := tree.Payload(root).Gate.(*CrispGate)
	require.True(t, ok)
	assert.Equal(t, 0, gate.FeatureNumber)
	assert.Equal(t, 4.5, gate.Threshold)

	assert.Equal(t, 3, tree.Len())
	assert.Equal(t, 0.0, tree.Payload(tree.Left(root)).Prediction)
	assert.Equal(t, 10.0, tree.Payload(tree.Right(root)).Prediction)
	assert.Equal(t, 5, tree.Payload(tree.Left(root)).NumberOfObjects)
	assert.False(t, model.IsFuzzy())
	assert.Equal(t, 1, model.Width())
	assert.Equal(t, []string{"x"}, model.FeatureNames)
}

func checkStructure(t *testing.T, tree *btree.Tree[TreeNode]) {
	internal := 0
	for id := range tree.Traversal() {
		node := tree.Payload(id)
		assert.Nil(t, node.samples, "node %d keeps its rows", id)
		if tree.IsLeaf(id) {
			assert.Nil(t, node.Gate, "leaf %d", id)
			continue
		}
		internal++
		require.NotNil(t, node.Gate, "node %d", id)
		left, right := tree.Left(id), tree.Right(id)
		require.NotEqual(t, btree.None, left)
		require.NotEqual(t, btree.None, right)
		assert.Equal(t, node.NumberOfObjects, tree.Payload(left).NumberOfObjects+tree.Payload(right).NumberOfObjects)
		assert.Less(t, tree.Payload(left).Impurity+tree.Payload(right).Impurity, node.Impurity)
	}
	assert.Len(t, tree.Leaves(), internal+1)
}

func TestFitStructure(t *testing.T) {
	for _, minSamples := range []int{1, 3, 10} {
		model := fitted(t, lorentzianData(t, 101), minSamples)
		tree, err := model.Tree()
		require.NoError(t, err)
		checkStructure(t, tree)
		for _, id := range tree.Leaves() {
			assert.GreaterOrEqual(t, tree.Payload(id).NumberOfObjects, minSamples)
		}
	}
}

func TestFitUsesEveryFeature(t *testing.T) {
	model := fitted(t, twoFeatureData(t), 4)
	tree, err := model.Tree()
	require.NoError(t, err)
	checkStructure(t, tree)

	used := map[int]bool{}
	for id := range tree.Traversal() {
		if gate := tree.Payload(id).Gate; gate != nil {
			used[gate.Feature()] = true
		}
	}
	assert.Equal(t, map[int]bool{0: true, 1: true}, used)
}

func TestFitMinImpurityDecrease(t *testing.T) {
	model := NewRegressor(GrowParams{MinSamples: 1, MinImpurityDecrease: 1e6})
	require.NoError(t, model.Fit(stepData(t)))
	tree, err := model.Tree()
	require.NoError(t, err)
	assert.Equal(t, 1, tree.Len())
	assert.Equal(t, 5.0, tree.Payload(tree.Root()).Prediction)
}

func TestFitConstantTarget(t *testing.T) {
	fm, err := NewFMatrix([][]float64{{0}, {1}, {2}, {3}}, []float64{2, 2, 2, 2})
	require.NoError(t, err)
	model := fitted(t, fm, 1)
	tree, err := model.Tree()
	require.NoError(t, err)
	assert.Equal(t, 1, tree.Len())
}

func TestFitThreadsInvariant(t *testing.T) {
	fm := twoFeatureData(t)
	serial := NewRegressor(GrowParams{MinSamples: 2, ThreadsNum: 1})
	parallel := NewRegressor(GrowParams{MinSamples: 2, ThreadsNum: 4})
	require.NoError(t, serial.Fit(fm))
	require.NoError(t, parallel.Fit(fm))

	expected, err := serial.Describe()
	require.NoError(t, err)
	actual, err := parallel.Describe()
	require.NoError(t, err)
	assert.Equal(t, expected, actual)
}

func TestFitInvalid(t *testing.T) {
	assert.ErrorIs(t, NewRegressor(GrowParams{MinSamples: 0}).Fit(stepData(t)), ErrInvalidParameter)
	assert.ErrorIs(t, NewRegressor(GrowParams{MinSamples: 1, MinImpurityDecrease: -1}).Fit(stepData(t)), ErrInvalidParameter)

	fm := stepData(t)
	fm.Target = nil
	assert.ErrorIs(t, NewRegressor(GrowParams{MinSamples: 1}).Fit(fm), ErrDimensionMismatch)

	_, err := NewRegressor(GrowParams{MinSamples: 1}).Tree()
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestFitNonFinite(t *testing.T) {
	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		fm, err := NewFMatrix([][]float64{{0}, {1}, {bad}, {3}, {4}, {5}}, []float64{0, 0, 0, 1, 1, 1})
		require.NoError(t, err)
		model := NewRegressor(GrowParams{MinSamples: 1})
		assert.ErrorIs(t, model.Fit(fm), ErrInvalidParameter, "feature %g", bad)
		assert.False(t, model.IsFitted())

		fm, err = NewFMatrix([][]float64{{0}, {1}, {2}, {3}}, []float64{0, bad, 1, 1})
		require.NoError(t, err)
		assert.ErrorIs(t, model.Fit(fm), ErrInvalidParameter, "target %g", bad)
		assert.False(t, model.IsFitted())
	}

	// a fitted model keeps its tree when refitting fails
	model := fitted(t, stepData(t), 1)
	before, err := model.Predict(stepData(t).Features)
	require.NoError(t, err)
	broken := stepData(t)
	broken.Features.Set(2, 0, math.NaN())
	assert.ErrorIs(t, model.Fit(broken), ErrInvalidParameter)
	after, err := model.Predict(stepData(t).Features)
	require.NoError(t, err)
	assert.Equal(t, before.RawVector().Data, after.RawVector().Data)
}
