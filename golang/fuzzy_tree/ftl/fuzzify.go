package ftl

import (
	"math"

	"github.com/pkg/errors"

	"github.com/byu9/fuzzy-forecast/golang/fuzzy_tree/btree"
)

//GainHeuristic selects how the initial gain of a fuzzified gate is chosen.
type GainHeuristic int

const (
	//GainFromMargin makes the sigmoid reach Confidence at the closest training value.
	GainFromMargin GainHeuristic = iota
	//GainFromImpurityRatio scales the gain by how much the split decreased the impurity.
	GainFromImpurityRatio
)

// maxInitialGain caps gains derived from tiny split margins.
const maxInitialGain = 1e6

func (h GainHeuristic) String() string {
	switch h {
	case GainFromMargin:
		return "margin"
	case GainFromImpurityRatio:
		return "impurity-ratio"
	}
	return "unknown"
}

//ParseGainHeuristic is the inverse of GainHeuristic.String.
func ParseGainHeuristic(name string) (GainHeuristic, error) {
	switch name {
	case "", "margin":
		return GainFromMargin, nil
	case "impurity-ratio":
		return GainFromImpurityRatio, nil
	}
	return 0, errors.Wrapf(ErrInvalidParameter, "unknown gain heuristic %q", name)
}

//FuzzifyParams controls the initial gains. A positive InitialGain is used for every gate.
type FuzzifyParams struct {
	Heuristic   GainHeuristic
	Confidence  float64
	InitialGain float64
}

//DefaultFuzzifyParams returns the margin heuristic with 0.99 confidence.
func DefaultFuzzifyParams() FuzzifyParams {
	return FuzzifyParams{Heuristic: GainFromMargin, Confidence: 0.99}
}

func (p FuzzifyParams) validate() error {
	if p.InitialGain < 0 || math.IsNaN(p.InitialGain) || math.IsInf(p.InitialGain, 0) {
		return errors.Wrapf(ErrInvalidParameter, "initial gain %g", p.InitialGain)
	}
	if p.InitialGain == 0 && !(p.Confidence > 0.5 && p.Confidence < 1) {
		return errors.Wrapf(ErrInvalidParameter, "confidence %g must be in (0.5, 1)", p.Confidence)
	}
	if p.Heuristic != GainFromMargin && p.Heuristic != GainFromImpurityRatio {
		return errors.Wrapf(ErrInvalidParameter, "gain heuristic %d", p.Heuristic)
	}
	return nil
}

//Fuzzify replaces every crisp gate by a fuzzy gate with the same feature and threshold.
//Calling it on a fuzzy model does nothing.
func (r *Regressor) Fuzzify(params FuzzifyParams) error {
	if !r.IsFitted() {
		return ErrNotFitted
	}
	if r.fuzzy {
		return nil
	}
	if err := params.validate(); err != nil {
		return err
	}

	gates := make(map[btree.NodeID]*FuzzyGate)
	for id := range r.tree.Traversal() {
		node := r.tree.Payload(id)
		crisp, ok := node.Gate.(*CrispGate)
		if !ok {
			continue
		}
		gain := r.initialGain(id, params)
		fuzzy, err := crisp.Fuzzify(gain)
		if err != nil {
			return errors.Wrapf(err, "node %d", id)
		}
		gates[id] = fuzzy
	}

	for id, gate := range gates {
		r.tree.Payload(id).Gate = gate
		log.Debugf("node %d: gain %g", id, gate.Gain)
	}
	r.fuzzy = true
	r.generation++
	return nil
}

func (r *Regressor) initialGain(id btree.NodeID, params FuzzifyParams) float64 {
	if params.InitialGain > 0 {
		return params.InitialGain
	}

	node := r.tree.Payload(id)
	marginGain := maxInitialGain
	if node.Gap > 0 {
		marginGain = math.Min(maxInitialGain, Logit(params.Confidence)/node.Gap)
	}
	if params.Heuristic == GainFromMargin {
		return marginGain
	}

	left, right := r.tree.Payload(r.tree.Left(id)), r.tree.Payload(r.tree.Right(id))
	gain := (math.Sqrt(node.Impurity/(left.Impurity+right.Impurity)) - 1) / (2 * node.Reach)
	if !(gain > 0) || math.IsInf(gain, 0) {
		return marginGain
	}
	return math.Min(maxInitialGain, gain)
}
