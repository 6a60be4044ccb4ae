package ftl

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/byu9/fuzzy-forecast/golang/fuzzy_tree/btree"
)

// weightedSum is L = sum_p w_p * prediction_p, so dL/dprediction = w.
func weightedSum(t *testing.T, model *Regressor, features mat.Matrix, w []float64) float64 {
	prediction, err := model.Predict(features)
	require.NoError(t, err)
	return mat.Dot(prediction, mat.NewVecDense(len(w), w))
}

func parameter(node *TreeNode, param Param) *float64 {
	switch param {
	case ParamValue:
		return &node.Prediction
	case ParamGain:
		return &node.Gate.(*FuzzyGate).Gain
	default:
		return &node.Gate.(*FuzzyGate).Threshold
	}
}

func TestBackwardMatchesFiniteDifferences(t *testing.T) {
	fm := twoFeatureData(t)
	model := fitted(t, fm, 8)
	require.NoError(t, model.Fuzzify(FuzzifyParams{InitialGain: 1.5}))
	checkFiniteDifferences(t, model, fm)
}

func TestBackwardSingleGate(t *testing.T) {
	fm := stepData(t)
	model := fitted(t, fm, 5)
	require.NoError(t, model.Fuzzify(FuzzifyParams{InitialGain: 0.8}))
	tree, err := model.Tree()
	require.NoError(t, err)
	require.Equal(t, 3, tree.Len())
	checkFiniteDifferences(t, model, fm)
}

func checkFiniteDifferences(t *testing.T, model *Regressor, fm FMatrix) {
	tree, err := model.Tree()
	require.NoError(t, err)

	h := Height(fm.Features)
	w := make([]float64, h)
	for p := range w {
		w[p] = math.Sin(float64(p))
	}

	pass, err := model.Forward(fm.Features)
	require.NoError(t, err)
	grads, err := model.Backward(pass, mat.NewVecDense(h, w))
	require.NoError(t, err)

	const eps = 1e-6
	checked := 0
	for id := range tree.Traversal() {
		params := []Param{ParamValue}
		if !tree.IsLeaf(id) {
			params = []Param{ParamGain, ParamThreshold}
		}
		for _, param := range params {
			value := parameter(tree.Payload(id), param)
			original := *value
			*value = original + eps
			up := weightedSum(t, model, fm.Features, w)
			*value = original - eps
			down := weightedSum(t, model, fm.Features, w)
			*value = original
			numeric := (up - down) / (2 * eps)

			mean, err := grads.Mean(id, param)
			require.NoError(t, err)
			analytic := mean * float64(h)
			assert.InDelta(t, numeric, analytic, 1e-4*math.Max(1, math.Abs(numeric)), "node %d %s", id, param)
			checked++
		}
	}
	assert.Equal(t, tree.Len()+len(tree.Leaves())-1, checked)
}

func TestBackwardCrisp(t *testing.T) {
	fm := stepData(t)
	model := fitted(t, fm, 5)
	tree, err := model.Tree()
	require.NoError(t, err)

	pass, err := model.Forward(fm.Features)
	require.NoError(t, err)
	dPrediction := ones(10)
	grads, err := model.Backward(pass, dPrediction)
	require.NoError(t, err)

	root := tree.Root()
	for _, param := range []Param{ParamGain, ParamThreshold} {
		values, err := grads.Vector(root, param)
		require.NoError(t, err)
		assert.Equal(t, make([]float64, 10), values)
	}

	// each leaf collects the rows routed to it
	left, err := grads.Vector(tree.Left(root), ParamValue)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1, 1, 1, 0, 0, 0, 0, 0}, left)
	mean, err := grads.Mean(tree.Right(root), ParamValue)
	require.NoError(t, err)
	assert.Equal(t, 0.5, mean)
}

func TestBackwardStaleState(t *testing.T) {
	fm := stepData(t)
	model := fitted(t, fm, 5)
	other := fitted(t, fm, 5)
	dPrediction := ones(10)

	_, err := model.Backward(nil, dPrediction)
	assert.ErrorIs(t, err, ErrStaleState)

	pass, err := other.Forward(fm.Features)
	require.NoError(t, err)
	_, err = model.Backward(pass, dPrediction)
	assert.ErrorIs(t, err, ErrStaleState)

	pass, err = model.Forward(fm.Features)
	require.NoError(t, err)
	_, err = model.Backward(pass, ones(3))
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	require.NoError(t, model.Fuzzify(DefaultFuzzifyParams()))
	_, err = model.Backward(pass, dPrediction)
	assert.ErrorIs(t, err, ErrStaleState)

	pass, err = model.Forward(fm.Features)
	require.NoError(t, err)
	_, err = model.Tune(fm, DefaultTuneParams(1, 1e-3))
	require.NoError(t, err)
	_, err = model.Backward(pass, dPrediction)
	assert.ErrorIs(t, err, ErrStaleState)
}

func TestGradientsAccessors(t *testing.T) {
	grads := newGradients(2, 3)
	require.NoError(t, grads.set(btree.NodeID(1), ParamThreshold, mat.NewVecDense(3, []float64{1, 2, 6})))

	v, err := grads.At(1, ParamThreshold, 2)
	require.NoError(t, err)
	assert.Equal(t, 6.0, v)
	mean, err := grads.Mean(1, ParamThreshold)
	require.NoError(t, err)
	assert.Equal(t, 3.0, mean)
	mean, err = grads.Mean(0, ParamGain)
	require.NoError(t, err)
	assert.Equal(t, 0.0, mean)

	_, err = grads.At(2, ParamGain, 0)
	assert.Error(t, err)
}
