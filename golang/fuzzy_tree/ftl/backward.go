package ftl

import (
	"slices"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"

	"github.com/byu9/fuzzy-forecast/golang/fuzzy_tree/btree"
)

//Param names a trainable parameter of a node.
type Param int

const (
	ParamGain Param = iota
	ParamThreshold
	ParamValue
	numParams
)

func (p Param) String() string {
	switch p {
	case ParamGain:
		return "gain"
	case ParamThreshold:
		return "threshold"
	case ParamValue:
		return "value"
	}
	return "unknown"
}

//Gradients keeps per row derivatives of the loss with respect to node parameters in a
//nodes x params x rows tensor. Entries of parameters a node does not have are zero.
type Gradients struct {
	rows   int
	values *tensor.Dense
}

func newGradients(nodes, rows int) *Gradients {
	return &Gradients{
		rows:   rows,
		values: tensor.New(tensor.WithShape(nodes, int(numParams), rows), tensor.Of(tensor.Float64)),
	}
}

func (g *Gradients) set(id btree.NodeID, param Param, v *mat.VecDense) error {
	for p := 0; p < g.rows; p++ {
		if err := g.values.SetAt(v.AtVec(p), int(id), int(param), p); err != nil {
			return err
		}
	}
	return nil
}

//At returns the derivative for one row.
func (g *Gradients) At(id btree.NodeID, param Param, row int) (float64, error) {
	v, err := g.values.At(int(id), int(param), row)
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

//Vector returns the derivatives for every row.
func (g *Gradients) Vector(id btree.NodeID, param Param) ([]float64, error) {
	result := make([]float64, g.rows)
	for p := range result {
		v, err := g.At(id, param, p)
		if err != nil {
			return nil, err
		}
		result[p] = v
	}
	return result, nil
}

//Mean reduces the per row derivatives to a single update direction.
func (g *Gradients) Mean(id btree.NodeID, param Param) (float64, error) {
	values, err := g.Vector(id, param)
	if err != nil {
		return 0, err
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(g.rows), nil
}

//Backward propagates dL/dPrediction through the tree in reverse level order. The pass
//must come from Forward on this model with no parameter change in between.
func (r *Regressor) Backward(pass *Pass, dPrediction mat.Vector) (*Gradients, error) {
	if !r.IsFitted() {
		return nil, ErrNotFitted
	}
	if pass == nil || pass.model != r || pass.generation != r.generation {
		return nil, ErrStaleState
	}
	if dPrediction.Len() != pass.rows {
		return nil, errors.Wrapf(ErrDimensionMismatch, "%d gradient values for %d rows", dPrediction.Len(), pass.rows)
	}

	h := pass.rows
	grads := newGradients(r.tree.Cap(), h)
	dStrength := make([]*mat.VecDense, r.tree.Cap())

	order := slices.Collect(r.tree.Traversal())
	slices.Reverse(order)
	for _, id := range order {
		node := r.tree.Payload(id)
		s := pass.scratch[id]
		dr := mat.NewVecDense(h, nil)

		if r.tree.IsLeaf(id) {
			dr.ScaleVec(node.Prediction, dPrediction)
			dValue := mat.NewVecDense(h, nil)
			dValue.MulElemVec(dPrediction, s.strength)
			if err := grads.set(id, ParamValue, dValue); err != nil {
				return nil, err
			}
			dStrength[id] = dr
			continue
		}

		dLeft, dRight := dStrength[r.tree.Left(id)], dStrength[r.tree.Right(id)]

		// dL/dr = dL/dr_left * mu + dL/dr_right * (1 - mu)
		tmp := mat.NewVecDense(h, nil)
		tmp.SubVec(dLeft, dRight)
		dr.MulElemVec(tmp, s.truth)
		dr.AddVec(dr, dRight)
		dStrength[id] = dr

		gate, ok := node.Gate.(*FuzzyGate)
		if !ok {
			continue
		}

		// dL/da = (dL/dr_left - dL/dr_right) * r * sigmoid'(a)
		dActivation := mat.NewVecDense(h, nil)
		dActivation.MulElemVec(tmp, s.strength)
		for p := 0; p < h; p++ {
			dActivation.SetVec(p, dActivation.AtVec(p)*SigmoidDerivative(s.activation.AtVec(p)))
		}

		dGain := mat.NewVecDense(h, nil)
		for p := 0; p < h; p++ {
			dGain.SetVec(p, dActivation.AtVec(p)*(gate.Threshold-s.column.AtVec(p)))
		}
		dThreshold := mat.NewVecDense(h, nil)
		dThreshold.ScaleVec(gate.Gain, dActivation)

		if err := grads.set(id, ParamGain, dGain); err != nil {
			return nil, err
		}
		if err := grads.set(id, ParamThreshold, dThreshold); err != nil {
			return nil, err
		}
	}
	return grads, nil
}
