package ftl

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

//Gate routes samples of a tree node to its left (true) or right (false) child.
//DegreeOfTruth is the share of every sample routed to the left child and lies in [0, 1].
type Gate interface {
	Feature() int
	Cut() float64
	DegreeOfTruth(features mat.Matrix) *mat.VecDense
	Describe(featureNames []string) string
	DescribeComplement(featureNames []string) string
}

func featureName(index int, featureNames []string) string {
	if index >= 0 && index < len(featureNames) && featureNames[index] != "" {
		return featureNames[index]
	}
	return fmt.Sprintf("column[%d]", index)
}

//CrispGate is a hard split: 1 when features[FeatureNumber] <= Threshold, else 0.
type CrispGate struct {
	FeatureNumber int
	Threshold     float64
}

func NewCrispGate(featureNumber int, threshold float64) *CrispGate {
	return &CrispGate{FeatureNumber: featureNumber, Threshold: threshold}
}

func (g *CrispGate) Feature() int { return g.FeatureNumber }
func (g *CrispGate) Cut() float64 { return g.Threshold }

//Test is the gate predicate for a single value.
func (g *CrispGate) Test(value float64) bool {
	return value <= g.Threshold
}

func (g *CrispGate) DegreeOfTruth(features mat.Matrix) *mat.VecDense {
	h, _ := features.Dims()
	mu := mat.NewVecDense(h, nil)
	for p := 0; p < h; p++ {
		if g.Test(features.At(p, g.FeatureNumber)) {
			mu.SetVec(p, 1)
		}
	}
	return mu
}

func (g *CrispGate) Describe(featureNames []string) string {
	return fmt.Sprintf("{%s <= %g}", featureName(g.FeatureNumber, featureNames), g.Threshold)
}

//DescribeComplement describes the condition of the right child.
func (g *CrispGate) DescribeComplement(featureNames []string) string {
	return fmt.Sprintf("{%s > %g}", featureName(g.FeatureNumber, featureNames), g.Threshold)
}

//FuzzyGate is a sigmoid split: sigmoid(Gain * (Threshold - features[FeatureNumber])).
//Large feature values are routed to the right child, as with the crisp gate it replaces.
type FuzzyGate struct {
	FeatureNumber int
	Threshold     float64
	Gain          float64
}

//NewFuzzyGate rejects gains that are not positive.
func NewFuzzyGate(featureNumber int, threshold, gain float64) (*FuzzyGate, error) {
	if !(gain > 0) || math.IsInf(gain, 1) {
		return nil, errors.Wrapf(ErrInvalidParameter, "gain %g must be positive and finite", gain)
	}
	return &FuzzyGate{FeatureNumber: featureNumber, Threshold: threshold, Gain: gain}, nil
}

//Fuzzify turns a crisp gate into a fuzzy gate with the same feature and threshold.
func (g *CrispGate) Fuzzify(gain float64) (*FuzzyGate, error) {
	return NewFuzzyGate(g.FeatureNumber, g.Threshold, gain)
}

func (g *FuzzyGate) Feature() int { return g.FeatureNumber }
func (g *FuzzyGate) Cut() float64 { return g.Threshold }

//Activation is the sigmoid input Gain * (Threshold - x) for every row.
func (g *FuzzyGate) Activation(features mat.Matrix) *mat.VecDense {
	h, _ := features.Dims()
	a := mat.NewVecDense(h, nil)
	for p := 0; p < h; p++ {
		a.SetVec(p, g.Gain*(g.Threshold-features.At(p, g.FeatureNumber)))
	}
	return a
}

func (g *FuzzyGate) DegreeOfTruth(features mat.Matrix) *mat.VecDense {
	return sigmoidVec(g.Activation(features))
}

func (g *FuzzyGate) Describe(featureNames []string) string {
	return fmt.Sprintf("{%s <= %g ~ gain %g}", featureName(g.FeatureNumber, featureNames), g.Threshold, g.Gain)
}

func (g *FuzzyGate) DescribeComplement(featureNames []string) string {
	return fmt.Sprintf("{%s > %g ~ gain %g}", featureName(g.FeatureNumber, featureNames), g.Threshold, g.Gain)
}

func sigmoidVec(a *mat.VecDense) *mat.VecDense {
	n := a.Len()
	mu := mat.NewVecDense(n, nil)
	for p := 0; p < n; p++ {
		mu.SetVec(p, Sigmoid(a.AtVec(p)))
	}
	return mu
}
