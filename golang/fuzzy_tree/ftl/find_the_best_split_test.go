package ftl

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/byu9/fuzzy-forecast/golang/fuzzy_tree/metrics"
)

func TestCandidateSplits(t *testing.T) {
	values := []float64{4, 1, 2, 3, 1, 2}
	assert.Equal(t, []float64{1.5, 2.5}, CandidateSplits(values, 2))
	assert.Equal(t, []float64{1.5, 2.5, 3.5}, CandidateSplits(values, 1))
	assert.Empty(t, CandidateSplits(values, 4))
	assert.Empty(t, CandidateSplits([]float64{7, 7, 7}, 1))
}

func TestTheBestSplitStep(t *testing.T) {
	split, err := TheBestSplit(stepData(t), 1, metrics.SumOfSquaredError, 1)
	require.NoError(t, err)
	require.NotNil(t, split)

	assert.Equal(t, 0, split.featureIndex)
	assert.Equal(t, 4.5, split.threshold)
	assert.Equal(t, 5, split.orderIndex)
	assert.Equal(t, 0.0, split.bestValue)
	assert.Equal(t, 0.0, split.leftPrediction)
	assert.Equal(t, 10.0, split.rightPrediction)
	assert.Equal(t, 0.5, split.gap)
	assert.Equal(t, 4.5, split.reach)
}

func TestTheBestSplitPrefersFirstMinimum(t *testing.T) {
	// both columns separate the target perfectly, the first one wins
	fm, err := NewFMatrix([][]float64{{0, 5}, {1, 6}, {2, 7}, {3, 8}}, []float64{1, 1, 2, 2})
	require.NoError(t, err)

	for _, threads := range []int{1, 2} {
		split, err := TheBestSplit(fm, 1, metrics.SumOfSquaredError, threads)
		require.NoError(t, err)
		require.NotNil(t, split)
		assert.Equal(t, 0, split.featureIndex)
		assert.Equal(t, 1.5, split.threshold)
	}
}

func TestTheBestSplitNoCandidates(t *testing.T) {
	fm, err := NewFMatrix([][]float64{{1}, {1}, {1}}, []float64{0, 1, 2})
	require.NoError(t, err)
	split, err := TheBestSplit(fm, 1, metrics.SumOfSquaredError, 1)
	require.NoError(t, err)
	assert.Nil(t, split)
}

func TestTheBestSplitThreadsInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	features := make([][]float64, 200)
	target := make([]float64, 200)
	for p := range features {
		features[p] = []float64{rng.Float64(), rng.Float64(), float64(rng.Intn(5)), rng.NormFloat64()}
		target[p] = features[p][1]*3 + features[p][2] + rng.Float64()
	}
	fm, err := NewFMatrix(features, target)
	require.NoError(t, err)

	expected, err := TheBestSplit(fm, 3, metrics.SumOfSquaredError, 1)
	require.NoError(t, err)
	for _, threads := range []int{2, 3, 8} {
		actual, err := TheBestSplit(fm, 3, metrics.SumOfSquaredError, threads)
		require.NoError(t, err)
		assert.Equal(t, *expected, *actual, "threads %d", threads)
	}
}

//naiveBestSplit partitions the rows with a crisp gate for every candidate threshold.
func naiveBestSplit(fm FMatrix, minSamples int, impurity metrics.Impurity) (feature int, threshold, value float64, found bool) {
	_, w := fm.Features.Dims()
	for q := 0; q < w; q++ {
		for _, thr := range CandidateSplits(vecData(fm.Features.ColView(q)), minSamples) {
			left, right := fm.Split(NewCrispGate(q, thr))
			leftTarget, rightTarget := vecData(left.Target), vecData(right.Target)
			current := impurity(stat.Mean(leftTarget, nil), leftTarget) + impurity(stat.Mean(rightTarget, nil), rightTarget)
			if !found || current < value {
				feature, threshold, value, found = q, thr, current, true
			}
		}
	}
	return feature, threshold, value, found
}

func TestTheBestSplitMatchesNaiveSearch(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	levels := []float64{0.1, 0.2, 0.3, 0.7}
	for trial := 0; trial < 1000; trial++ {
		h := 4 + rng.Intn(12)
		features := make([][]float64, h)
		target := make([]float64, h)
		for p := range features {
			features[p] = []float64{float64(rng.Intn(4)), float64(rng.Intn(4)), float64(rng.Intn(4))}
			target[p] = levels[rng.Intn(len(levels))]
		}
		fm, err := NewFMatrix(features, target)
		require.NoError(t, err)
		minSamples := 1 + rng.Intn(2)

		feature, threshold, value, found := naiveBestSplit(fm, minSamples, metrics.SumOfSquaredError)
		for _, threads := range []int{1, 3} {
			split, err := TheBestSplit(fm, minSamples, metrics.SumOfSquaredError, threads)
			require.NoError(t, err)
			if !found {
				assert.Nil(t, split, "trial %d", trial)
				continue
			}
			require.NotNil(t, split, "trial %d", trial)
			assert.Equal(t, feature, split.featureIndex, "trial %d", trial)
			assert.Equal(t, threshold, split.threshold, "trial %d", trial)
			assert.Equal(t, value, split.bestValue, "trial %d", trial)
		}
	}
}
