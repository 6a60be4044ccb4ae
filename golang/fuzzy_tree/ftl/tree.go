package ftl

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/stat"

	"github.com/byu9/fuzzy-forecast/golang/fuzzy_tree/btree"
	"github.com/byu9/fuzzy-forecast/golang/fuzzy_tree/metrics"
)

//TreeNode is the payload of a tree node. Gate is nil for leaves. Prediction is the mean
//target of the training rows of the node and, for leaves, the trainable leaf value.
//Gap and Reach describe the split margin of internal nodes: the distance from the
//threshold to the closest training value and the smaller one-sided extent of the data.
type TreeNode struct {
	Gate            Gate
	Prediction      float64
	Impurity        float64
	NumberOfObjects int
	Gap, Reach      float64

	samples *FMatrix // only while growing
}

//GrowParams collect arguments required to grow a tree.
type GrowParams struct {
	MinSamples          int
	MinImpurityDecrease float64
	Impurity            metrics.Impurity // SumOfSquaredError when nil
	ThreadsNum          int
}

func (p GrowParams) validate() (err error) {
	if p.MinSamples < 1 {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidParameter, "min samples %d must be at least 1", p.MinSamples))
	}
	if !(p.MinImpurityDecrease >= 0) {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidParameter, "min impurity decrease %g must not be negative", p.MinImpurityDecrease))
	}
	return err
}

//Regressor is a regression tree that is grown with crisp gates and can be turned into a
//differentiable fuzzy tree and tuned by gradient descent.
type Regressor struct {
	Params       GrowParams
	FeatureNames []string

	tree       *btree.Tree[TreeNode]
	width      int
	fuzzy      bool
	generation uint64
}

//NewRegressor creates an unfitted model.
func NewRegressor(params GrowParams) *Regressor {
	return &Regressor{Params: params}
}

//IsFitted reports whether a tree was grown or loaded.
func (r *Regressor) IsFitted() bool {
	return r.tree != nil && r.tree.Root() != btree.None
}

//IsFuzzy reports whether the gates were fuzzified.
func (r *Regressor) IsFuzzy() bool {
	return r.fuzzy
}

//Width returns the number of feature columns the model expects.
func (r *Regressor) Width() int {
	return r.width
}

//Tree gives read access to the grown tree.
func (r *Regressor) Tree() (*btree.Tree[TreeNode], error) {
	if !r.IsFitted() {
		return nil, ErrNotFitted
	}
	return r.tree, nil
}

func (r *Regressor) impurity() metrics.Impurity {
	if r.Params.Impurity == nil {
		return metrics.SumOfSquaredError
	}
	return r.Params.Impurity
}

//Fit grows a crisp tree top-down. Nodes are split in breadth-first order; each split
//takes the candidate with the smallest summed child impurity.
func (r *Regressor) Fit(fm FMatrix) error {
	if err := fm.validatedDimensions(true); err != nil {
		return err
	}
	if err := fm.validatedFinite(); err != nil {
		return err
	}
	if err := r.Params.validate(); err != nil {
		return err
	}

	impurity := r.impurity()
	tree := btree.New[TreeNode]()

	target := vecData(fm.Target)
	rootPrediction := stat.Mean(target, nil)
	root := tree.NewNode(TreeNode{
		Prediction:      rootPrediction,
		Impurity:        impurity(rootPrediction, target),
		NumberOfObjects: len(target),
		samples:         &fm,
	})
	if err := tree.Add(root, btree.None, btree.Left); err != nil {
		return err
	}

	queue := []btree.NodeID{root}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		children, err := r.splitNode(tree, id, impurity)
		if err != nil {
			return err
		}
		queue = append(queue, children...)
	}

	for id := range tree.Traversal() {
		tree.Payload(id).samples = nil
	}

	_, r.width = fm.Features.Dims()
	r.tree = tree
	r.fuzzy = false
	r.generation++
	if len(fm.FeatureNames) != 0 {
		r.FeatureNames = fm.FeatureNames
	}

	log.Infof("grown tree with %d nodes and %d leaves", tree.Len(), len(tree.Leaves()))
	return nil
}

//splitNode splits a leaf in two when the best split decreases the impurity enough and
//returns the new children.
func (r *Regressor) splitNode(tree *btree.Tree[TreeNode], id btree.NodeID, impurity metrics.Impurity) ([]btree.NodeID, error) {
	node := *tree.Payload(id)
	if node.NumberOfObjects < r.Params.MinSamples {
		return nil, nil
	}

	bestSplit, err := TheBestSplit(*node.samples, r.Params.MinSamples, impurity, r.Params.ThreadsNum)
	if err != nil || bestSplit == nil {
		return nil, err
	}

	decrease := node.Impurity - bestSplit.bestValue
	if !(decrease > 0) || decrease < r.Params.MinImpurityDecrease {
		return nil, nil
	}

	gate := NewCrispGate(bestSplit.featureIndex, bestSplit.threshold)
	leftSamples, rightSamples := node.samples.Split(gate)

	leftId := tree.NewNode(TreeNode{
		Prediction:      bestSplit.leftPrediction,
		Impurity:        bestSplit.leftImpurity,
		NumberOfObjects: Height(leftSamples.Features),
		samples:         &leftSamples,
	})
	rightId := tree.NewNode(TreeNode{
		Prediction:      bestSplit.rightPrediction,
		Impurity:        bestSplit.rightImpurity,
		NumberOfObjects: Height(rightSamples.Features),
		samples:         &rightSamples,
	})
	if err := tree.Add(leftId, id, btree.Left); err != nil {
		return nil, err
	}
	if err := tree.Add(rightId, id, btree.Right); err != nil {
		return nil, err
	}

	current := tree.Payload(id)
	current.Gate = gate
	current.Gap = bestSplit.gap
	current.Reach = bestSplit.reach

	log.Debugf("node %d: f_%d <= %g, impurity %g -> %g (%d | %d)", id, gate.FeatureNumber, gate.Threshold,
		node.Impurity, bestSplit.bestValue, bestSplit.orderIndex, node.NumberOfObjects-bestSplit.orderIndex)

	return []btree.NodeID{leftId, rightId}, nil
}
