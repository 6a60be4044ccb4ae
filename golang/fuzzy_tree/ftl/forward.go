package ftl

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/byu9/fuzzy-forecast/golang/fuzzy_tree/btree"
)

type nodeScratch struct {
	strength   *mat.VecDense // firing strength of the node
	truth      *mat.VecDense // degree of truth of the gate, internal nodes only
	activation *mat.VecDense // sigmoid input, fuzzy gates only
	column     *mat.VecDense // gate feature column, fuzzy gates only
}

//Pass holds the intermediate values of a forward evaluation. Backward accepts it only
//while the parameters of the model are unchanged.
type Pass struct {
	model      *Regressor
	generation uint64
	rows       int
	scratch    []nodeScratch

	Prediction *mat.VecDense
}

//Rows returns the number of evaluated rows.
func (p *Pass) Rows() int {
	return p.rows
}

//Strength returns the firing strength of a node for every row.
func (p *Pass) Strength(id btree.NodeID) *mat.VecDense {
	return p.scratch[id].strength
}

//Forward evaluates the tree on every row. The root fires with strength 1, a gate sends
//strength*mu to its left child and the rest to its right child, and the prediction is
//the strength weighted sum of the leaf values.
func (r *Regressor) Forward(features mat.Matrix) (*Pass, error) {
	if !r.IsFitted() {
		return nil, ErrNotFitted
	}
	h, w := features.Dims()
	if h == 0 || w != r.width {
		return nil, errors.Wrapf(ErrDimensionMismatch, "features %dx%d, the model expects %d columns", h, w, r.width)
	}

	pass := &Pass{
		model:      r,
		generation: r.generation,
		rows:       h,
		scratch:    make([]nodeScratch, r.tree.Cap()),
		Prediction: mat.NewVecDense(h, nil),
	}
	pass.scratch[r.tree.Root()].strength = ones(h)

	for id := range r.tree.Traversal() {
		if r.tree.IsLeaf(id) {
			continue
		}
		s := &pass.scratch[id]
		switch gate := r.tree.Payload(id).Gate.(type) {
		case *FuzzyGate:
			s.column = mat.NewVecDense(h, mat.Col(nil, gate.FeatureNumber, features))
			s.activation = gate.Activation(features)
			s.truth = sigmoidVec(s.activation)
		default:
			s.truth = gate.DegreeOfTruth(features)
		}

		left := mat.NewVecDense(h, nil)
		left.MulElemVec(s.strength, s.truth)
		right := mat.NewVecDense(h, nil)
		right.SubVec(s.strength, left)
		pass.scratch[r.tree.Left(id)].strength = left
		pass.scratch[r.tree.Right(id)].strength = right
	}

	for _, id := range r.tree.Leaves() {
		pass.Prediction.AddScaledVec(pass.Prediction, r.tree.Payload(id).Prediction, pass.scratch[id].strength)
	}
	return pass, nil
}

//Predict returns the model output for every row.
func (r *Regressor) Predict(features mat.Matrix) (*mat.VecDense, error) {
	pass, err := r.Forward(features)
	if err != nil {
		return nil, err
	}
	return pass.Prediction, nil
}
