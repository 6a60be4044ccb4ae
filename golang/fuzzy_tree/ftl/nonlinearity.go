package ftl

import "math"

// sigmoidLimit bounds the sigmoid input so exp never overflows.
const sigmoidLimit = 500.0

//Sigmoid is 1/(1+e^-x) with x clamped to [-500, 500].
func Sigmoid(x float64) float64 {
	x = math.Max(-sigmoidLimit, math.Min(sigmoidLimit, x))
	return 1 / (1 + math.Exp(-x))
}

//SigmoidDerivative is sigmoid(x)*(1-sigmoid(x)).
func SigmoidDerivative(x float64) float64 {
	s := Sigmoid(x)
	return s * (1 - s)
}

//Logit is the inverse of the sigmoid on (0, 1).
func Logit(p float64) float64 {
	return math.Log(p / (1 - p))
}
