package ftl

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"

	"github.com/byu9/fuzzy-forecast/golang/fuzzy_tree/btree"
	"github.com/byu9/fuzzy-forecast/golang/fuzzy_tree/metrics"
	"github.com/byu9/fuzzy-forecast/golang/fuzzy_tree/optim"
)

//MinGain is the smallest gain a fuzzy gate keeps after an update.
const MinGain = 1e-6

//TuneParams collect arguments of the gradient descent loop.
type TuneParams struct {
	Iterations int
	Loss       metrics.Loss // MSE when nil
	Optimizers optim.Configs
	Fuzzify    FuzzifyParams // used when the model is still crisp

	// Progress is called after the loss of every iteration is known.
	Progress func(iteration int, loss float64)
}

//DefaultTuneParams uses Adam for every parameter.
func DefaultTuneParams(iterations int, learningRate float64) TuneParams {
	return TuneParams{
		Iterations: iterations,
		Loss:       metrics.MSE{},
		Optimizers: optim.Uniform(optim.Config{Kind: optim.KindAdam, LearningRate: learningRate}),
		Fuzzify:    DefaultFuzzifyParams(),
	}
}

type boundParam struct {
	id        btree.NodeID
	param     Param
	optimizer optim.Optimizer
}

//bindOptimizers creates one optimizer per trainable parameter: gain and threshold of
//every fuzzy gate and the value of every leaf.
func (r *Regressor) bindOptimizers(configs optim.Configs) ([]boundParam, error) {
	var bound []boundParam
	add := func(id btree.NodeID, param Param, config optim.Config) error {
		optimizer, err := config.New()
		if err != nil {
			return errors.Wrapf(err, "%s optimizer", param)
		}
		bound = append(bound, boundParam{id: id, param: param, optimizer: optimizer})
		return nil
	}
	for id := range r.tree.Traversal() {
		if r.tree.IsLeaf(id) {
			if err := add(id, ParamValue, configs.Value); err != nil {
				return nil, err
			}
			continue
		}
		if _, ok := r.tree.Payload(id).Gate.(*FuzzyGate); !ok {
			continue
		}
		if err := add(id, ParamGain, configs.Gain); err != nil {
			return nil, err
		}
		if err := add(id, ParamThreshold, configs.Threshold); err != nil {
			return nil, err
		}
	}
	return bound, nil
}

//Tune fuzzifies the model if needed and runs gradient descent on gains, thresholds and
//leaf values. It returns the loss before every update.
func (r *Regressor) Tune(fm FMatrix, params TuneParams) ([]float64, error) {
	if !r.IsFitted() {
		return nil, ErrNotFitted
	}
	if err := fm.validatedDimensions(true); err != nil {
		return nil, err
	}
	if err := fm.validatedFinite(); err != nil {
		return nil, err
	}
	if params.Iterations < 0 {
		return nil, errors.Wrapf(ErrInvalidParameter, "iterations %d", params.Iterations)
	}
	loss := params.Loss
	if loss == nil {
		loss = metrics.MSE{}
	}

	if err := multierr.Combine(
		errors.Wrap(params.Optimizers.Gain.Validate(), "gain optimizer"),
		errors.Wrap(params.Optimizers.Threshold.Validate(), "threshold optimizer"),
		errors.Wrap(params.Optimizers.Value.Validate(), "value optimizer"),
	); err != nil {
		return nil, err
	}
	if _, w := fm.Features.Dims(); w != r.width {
		return nil, errors.Wrapf(ErrDimensionMismatch, "%d feature columns, the model expects %d", w, r.width)
	}
	if err := r.Fuzzify(params.Fuzzify); err != nil {
		return nil, err
	}
	bound, err := r.bindOptimizers(params.Optimizers)
	if err != nil {
		return nil, err
	}

	actual := vecData(fm.Target)
	history := make([]float64, 0, params.Iterations)
	for iteration := 0; iteration < params.Iterations; iteration++ {
		pass, err := r.Forward(fm.Features)
		if err != nil {
			return history, err
		}
		prediction := vecData(pass.Prediction)
		value := loss.Value(prediction, actual)
		if math.IsNaN(value) {
			return history, errors.Errorf("loss is NaN at iteration %d", iteration)
		}
		history = append(history, value)
		log.Debugf("iteration %d: loss %g", iteration, value)
		if params.Progress != nil {
			params.Progress(iteration, value)
		}

		gradient := loss.Gradient(prediction, actual)
		grads, err := r.Backward(pass, mat.NewVecDense(len(gradient), gradient))
		if err != nil {
			return history, err
		}
		if err := r.apply(grads, bound); err != nil {
			return history, err
		}
	}
	return history, nil
}

func (r *Regressor) apply(grads *Gradients, bound []boundParam) error {
	for _, b := range bound {
		g, err := grads.Mean(b.id, b.param)
		if err != nil {
			return err
		}
		delta := b.optimizer.Step(g)
		node := r.tree.Payload(b.id)
		switch b.param {
		case ParamValue:
			node.Prediction += delta
		case ParamGain:
			gate := node.Gate.(*FuzzyGate)
			gate.Gain = math.Max(MinGain, gate.Gain+delta)
		case ParamThreshold:
			gate := node.Gate.(*FuzzyGate)
			gate.Threshold += delta
		}
	}
	r.generation++
	return nil
}
