package optim

import (
	"math"

	"github.com/pkg/errors"
)

//ErrInvalidParameter is returned when an optimizer is configured with values outside their domain.
var ErrInvalidParameter = errors.New("invalid parameter")

//Optimizer turns the gradient of one scalar parameter into the delta that is added to it.
//Stateful implementations must be bound to exactly one parameter.
type Optimizer interface {
	// Step returns the delta to add to the parameter.
	Step(gradient float64) float64

	// Reset clears accumulated state.
	Reset()

	// Name returns the optimizer name
	Name() string
}

func checkLearningRate(learningRate float64) error {
	if !(learningRate > 0) || math.IsInf(learningRate, 1) {
		return errors.Wrapf(ErrInvalidParameter, "learning rate %g must be positive", learningRate)
	}
	return nil
}

func checkRate(name string, rate float64, closed bool) error {
	if rate < 0 || rate > 1 || (!closed && rate == 1) || math.IsNaN(rate) {
		return errors.Wrapf(ErrInvalidParameter, "%s %g is out of range", name, rate)
	}
	return nil
}

//ConstantStep is plain gradient descent: delta = -epsilon * gradient.
type ConstantStep struct {
	epsilon float64
}

func NewConstantStep(learningRate float64) (*ConstantStep, error) {
	if err := checkLearningRate(learningRate); err != nil {
		return nil, err
	}
	return &ConstantStep{epsilon: learningRate}, nil
}

func (opt *ConstantStep) Step(gradient float64) float64 {
	return -opt.epsilon * gradient
}

func (opt *ConstantStep) Reset() {}

func (opt *ConstantStep) Name() string { return "constant" }

// rmsPropDelta keeps the denominator away from zero.
const rmsPropDelta = 1e-6

//RMSProp scales the step by a moving average of squared gradients:
//r = rho*r + (1-rho)*g^2, delta = -epsilon / sqrt(r + delta) * g.
type RMSProp struct {
	epsilon float64
	rho     float64
	r       float64
}

func NewRMSProp(learningRate, decayRate float64) (*RMSProp, error) {
	if err := checkLearningRate(learningRate); err != nil {
		return nil, err
	}
	if err := checkRate("decay rate", decayRate, true); err != nil {
		return nil, err
	}
	return &RMSProp{epsilon: learningRate, rho: decayRate}, nil
}

func (opt *RMSProp) Step(gradient float64) float64 {
	opt.r = opt.rho*opt.r + (1-opt.rho)*gradient*gradient
	return -opt.epsilon / math.Sqrt(rmsPropDelta+opt.r) * gradient
}

func (opt *RMSProp) Reset() { opt.r = 0 }

func (opt *RMSProp) Name() string { return "rmsprop" }

const adamEpsilon = 1e-8

//Adam keeps bias-corrected first and second moment estimates of the gradient.
type Adam struct {
	epsilon      float64
	beta1, beta2 float64
	step         int
	m, v         float64
}

func NewAdam(learningRate, beta1, beta2 float64) (*Adam, error) {
	if err := checkLearningRate(learningRate); err != nil {
		return nil, err
	}
	if err := checkRate("beta1", beta1, false); err != nil {
		return nil, err
	}
	if err := checkRate("beta2", beta2, false); err != nil {
		return nil, err
	}
	return &Adam{epsilon: learningRate, beta1: beta1, beta2: beta2}, nil
}

func (opt *Adam) Step(gradient float64) float64 {
	opt.step++
	opt.m = opt.beta1*opt.m + (1-opt.beta1)*gradient
	opt.v = opt.beta2*opt.v + (1-opt.beta2)*gradient*gradient

	mHat := opt.m / (1 - math.Pow(opt.beta1, float64(opt.step)))
	vHat := opt.v / (1 - math.Pow(opt.beta2, float64(opt.step)))
	return -opt.epsilon * mHat / (math.Sqrt(vHat) + adamEpsilon)
}

func (opt *Adam) Reset() {
	opt.step = 0
	opt.m, opt.v = 0, 0
}

func (opt *Adam) Name() string { return "adam" }
