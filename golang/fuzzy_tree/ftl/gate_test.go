package ftl

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestGateDegreeOfTruth(t *testing.T) {
	const threshold = 0.3
	features := mat.NewDense(3, 1, []float64{threshold, math.Inf(1), math.Inf(-1)})

	crisp := NewCrispGate(0, threshold)
	assert.Equal(t, []float64{1, 0, 1}, vecData(crisp.DegreeOfTruth(features)))

	fuzzy, err := crisp.Fuzzify(1)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.5, 0, 1}, vecData(fuzzy.DegreeOfTruth(features)), 1e-12)
}

func TestFuzzyGateConvergesToCrisp(t *testing.T) {
	features := mat.NewDense(4, 2, []float64{
		0, -1,
		0, 0.9,
		0, 1.1,
		0, 5,
	})
	crisp := NewCrispGate(1, 1)
	fuzzy, err := NewFuzzyGate(1, 1, 1e4)
	require.NoError(t, err)
	assert.InDeltaSlice(t, vecData(crisp.DegreeOfTruth(features)), vecData(fuzzy.DegreeOfTruth(features)), 1e-12)
}

func TestFuzzyGateRejectsBadGain(t *testing.T) {
	for _, gain := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := NewFuzzyGate(0, 0, gain)
		assert.ErrorIs(t, err, ErrInvalidParameter, "gain %g", gain)
	}
}

func TestGateDescribe(t *testing.T) {
	crisp := NewCrispGate(1, 2.5)
	assert.Equal(t, "{b <= 2.5}", crisp.Describe([]string{"a", "b"}))
	assert.Equal(t, "{column[1] <= 2.5}", crisp.Describe(nil))
	assert.Equal(t, "{b > 2.5}", crisp.DescribeComplement([]string{"a", "b"}))

	fuzzy, err := crisp.Fuzzify(3)
	require.NoError(t, err)
	assert.Equal(t, "{b <= 2.5 ~ gain 3}", fuzzy.Describe([]string{"a", "b"}))
	assert.Equal(t, "{b > 2.5 ~ gain 3}", fuzzy.DescribeComplement([]string{"a", "b"}))
}
