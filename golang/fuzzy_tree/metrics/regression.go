// Package metrics holds the impurity functions used by the split search and the
// loss and report metrics used around training.
package metrics

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

//Impurity scores a set of target values under a single prediction. Lower is better.
type Impurity func(prediction float64, target []float64) float64

//SumOfSquaredError is the default impurity of the split search.
func SumOfSquaredError(prediction float64, target []float64) float64 {
	s := 0.0
	for _, v := range target {
		d := v - prediction
		s += d * d
	}
	return s
}

//MeanSquaredErrorImpurity is SumOfSquaredError normalised by the number of values.
func MeanSquaredErrorImpurity(prediction float64, target []float64) float64 {
	if len(target) == 0 {
		return 0
	}
	return SumOfSquaredError(prediction, target) / float64(len(target))
}

//Loss is a differentiable loss between a prediction vector and the actual values.
type Loss interface {
	Value(prediction, actual []float64) float64
	// Gradient returns dL/dprediction per sample.
	Gradient(prediction, actual []float64) []float64
}

//MSE is the mean squared error loss. Its per-sample gradient is -2*(actual-prediction).
type MSE struct{}

func (MSE) Value(prediction, actual []float64) float64 {
	return MeanSquaredError(prediction, actual)
}

func (MSE) Gradient(prediction, actual []float64) []float64 {
	grad := make([]float64, len(prediction))
	floats.SubTo(grad, actual, prediction)
	floats.Scale(-2, grad)
	return grad
}

func MeanSquaredError(prediction, actual []float64) float64 {
	diff := make([]float64, len(prediction))
	floats.SubTo(diff, actual, prediction)
	floats.Mul(diff, diff)
	return stat.Mean(diff, nil)
}

func RootMeanSquaredError(prediction, actual []float64) float64 {
	return math.Sqrt(MeanSquaredError(prediction, actual))
}

func MeanAbsoluteError(prediction, actual []float64) float64 {
	return floats.Distance(prediction, actual, 1) / float64(len(prediction))
}

//MeanAbsolutePercentError is expressed in percent of each actual value.
func MeanAbsolutePercentError(prediction, actual []float64) float64 {
	s := 0.0
	for i := range prediction {
		s += math.Abs((actual[i] - prediction[i]) / actual[i])
	}
	return 100 * s / float64(len(prediction))
}

//MeanAbsolutePercentFullScaleError is the mean absolute error in percent of the actual range.
func MeanAbsolutePercentFullScaleError(prediction, actual []float64) float64 {
	span := floats.Max(actual) - floats.Min(actual)
	return 100 * MeanAbsoluteError(prediction, actual) / span
}

//MeanBiasError is positive when the prediction overshoots on average.
func MeanBiasError(prediction, actual []float64) float64 {
	diff := make([]float64, len(prediction))
	floats.SubTo(diff, prediction, actual)
	return stat.Mean(diff, nil)
}

func CoefficientOfDetermination(prediction, actual []float64) float64 {
	return stat.RSquaredFrom(prediction, actual, nil)
}

//Metric is a named report metric.
type Metric struct {
	Name string
	Func func(prediction, actual []float64) float64
}

//ReportMetrics is the set printed by Report, in order.
var ReportMetrics = []Metric{
	{"mean_absolute_error", MeanAbsoluteError},
	{"mean_squared_error", MeanSquaredError},
	{"root_mean_squared_error", RootMeanSquaredError},
	{"mean_absolute_percent_error", MeanAbsolutePercentError},
	{"mean_absolute_percent_full_scale_error", MeanAbsolutePercentFullScaleError},
	{"mean_bias_error", MeanBiasError},
	{"coefficient_of_determination", CoefficientOfDetermination},
}

//Report formats every report metric, one per line, with the given prefix.
func Report(prefix string, prediction, actual []float64) string {
	var sb strings.Builder
	for _, m := range ReportMetrics {
		sb.WriteString(fmt.Sprintf("%s %s=%.12f\n", prefix, m.Name, m.Func(prediction, actual)))
	}
	return sb.String()
}
