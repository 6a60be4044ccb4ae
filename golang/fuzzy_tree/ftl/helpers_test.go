package ftl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// stepData is x = 0..9 with target 0 below 5 and 10 from 5 on.
func stepData(t *testing.T) FMatrix {
	features := make([][]float64, 10)
	target := make([]float64, 10)
	for p := range features {
		features[p] = []float64{float64(p)}
		if p >= 5 {
			target[p] = 10
		}
	}
	fm, err := NewFMatrix(features, target)
	require.NoError(t, err)
	fm.FeatureNames = []string{"x"}
	return fm
}

// lorentzianData samples 1/(1+(x/0.1)^2) on an even grid over [-1, 1].
func lorentzianData(t *testing.T, n int) FMatrix {
	features := make([][]float64, n)
	target := make([]float64, n)
	for p := range features {
		x := -1 + 2*float64(p)/float64(n-1)
		features[p] = []float64{x}
		target[p] = 1 / (1 + (x/0.1)*(x/0.1))
	}
	fm, err := NewFMatrix(features, target)
	require.NoError(t, err)
	return fm
}

// twoFeatureData depends on both columns so the tree uses both of them.
func twoFeatureData(t *testing.T) FMatrix {
	var features [][]float64
	var target []float64
	for a := 0; a < 8; a++ {
		for b := 0; b < 8; b++ {
			features = append(features, []float64{float64(a), float64(b) / 2})
			target = append(target, float64(a%4)+3*float64(b/4))
		}
	}
	fm, err := NewFMatrix(features, target)
	require.NoError(t, err)
	fm.FeatureNames = []string{"a", "b"}
	return fm
}

func fitted(t *testing.T, fm FMatrix, minSamples int) *Regressor {
	model := NewRegressor(GrowParams{MinSamples: minSamples})
	require.NoError(t, model.Fit(fm))
	return model
}
