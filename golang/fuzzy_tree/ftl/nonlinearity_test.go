package ftl

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSigmoid(t *testing.T) {
	assert.InDelta(t, 0.26894142137, Sigmoid(-1), 1e-10)
	assert.Equal(t, 0.5, Sigmoid(0))
	assert.InDelta(t, 0.73105857863, Sigmoid(1), 1e-10)

	assert.Equal(t, 1.0, Sigmoid(math.Inf(1)))
	assert.InDelta(t, 0, Sigmoid(math.Inf(-1)), 1e-200)
	assert.False(t, math.IsNaN(Sigmoid(-1e6)))
}

func TestSigmoidDerivative(t *testing.T) {
	assert.Equal(t, 0.25, SigmoidDerivative(0))
	const eps = 1e-6
	for _, x := range []float64{-3, -0.5, 0.7, 2} {
		numeric := (Sigmoid(x+eps) - Sigmoid(x-eps)) / (2 * eps)
		assert.InDelta(t, numeric, SigmoidDerivative(x), 1e-8)
	}
}

func TestLogitInvertsSigmoid(t *testing.T) {
	for _, p := range []float64{0.01, 0.3, 0.5, 0.99} {
		assert.InDelta(t, p, Sigmoid(Logit(p)), 1e-12)
	}
}
