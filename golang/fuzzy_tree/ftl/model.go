package ftl

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/byu9/fuzzy-forecast/golang/fuzzy_tree/btree"
)

const (
	kindLeaf  = "leaf"
	kindCrisp = "crisp"
	kindFuzzy = "fuzzy"
)

//NodeRecord is the stored form of a tree node. Parent is the index of the parent record
//and is -1 for the root.
type NodeRecord struct {
	Parent          int     `json:"parent"`
	Side            string  `json:"side,omitempty"`
	Kind            string  `json:"kind"`
	FeatureNumber   int     `json:"feature,omitempty"`
	Threshold       float64 `json:"threshold,omitempty"`
	Gain            float64 `json:"gain,omitempty"`
	Prediction      float64 `json:"prediction"`
	Impurity        float64 `json:"impurity"`
	NumberOfObjects int     `json:"objects"`
	Gap             float64 `json:"gap,omitempty"`
	Reach           float64 `json:"reach,omitempty"`
}

//ModelRecord is the stored form of a Regressor. Nodes are kept in level order.
type ModelRecord struct {
	MinSamples          int          `json:"min_samples"`
	MinImpurityDecrease float64      `json:"min_impurity_decrease"`
	FeatureNames        []string     `json:"feature_names,omitempty"`
	Width               int          `json:"width"`
	Fuzzy               bool         `json:"fuzzy"`
	Nodes               []NodeRecord `json:"nodes"`
}

func (r *Regressor) record() (ModelRecord, error) {
	if !r.IsFitted() {
		return ModelRecord{}, ErrNotFitted
	}
	record := ModelRecord{
		MinSamples:          r.Params.MinSamples,
		MinImpurityDecrease: r.Params.MinImpurityDecrease,
		FeatureNames:        r.FeatureNames,
		Width:               r.width,
		Fuzzy:               r.fuzzy,
	}
	position := make(map[btree.NodeID]int)
	for id := range r.tree.Traversal() {
		node := r.tree.Payload(id)
		nodeRecord := NodeRecord{
			Parent:          -1,
			Kind:            kindLeaf,
			Prediction:      node.Prediction,
			Impurity:        node.Impurity,
			NumberOfObjects: node.NumberOfObjects,
			Gap:             node.Gap,
			Reach:           node.Reach,
		}
		if parent := r.tree.Parent(id); parent != btree.None {
			nodeRecord.Parent = position[parent]
			nodeRecord.Side = r.tree.SideOf(id).String()
		}
		switch gate := node.Gate.(type) {
		case *CrispGate:
			nodeRecord.Kind = kindCrisp
			nodeRecord.FeatureNumber, nodeRecord.Threshold = gate.FeatureNumber, gate.Threshold
		case *FuzzyGate:
			nodeRecord.Kind = kindFuzzy
			nodeRecord.FeatureNumber, nodeRecord.Threshold, nodeRecord.Gain = gate.FeatureNumber, gate.Threshold, gate.Gain
		}
		position[id] = len(record.Nodes)
		record.Nodes = append(record.Nodes, nodeRecord)
	}
	return record, nil
}

func parseSide(name string) (btree.Side, error) {
	switch name {
	case btree.Left.String():
		return btree.Left, nil
	case btree.Right.String():
		return btree.Right, nil
	}
	return 0, errors.Wrapf(btree.ErrInvalidTreeOperation, "unknown side %q", name)
}

//restore rebuilds a tree from records, checking that gates and children agree.
func (r *Regressor) restore(record ModelRecord) error {
	if len(record.Nodes) == 0 {
		return ErrNotFitted
	}
	if record.Width < 1 || (len(record.FeatureNames) != 0 && len(record.FeatureNames) != record.Width) {
		return errors.Wrapf(ErrDimensionMismatch, "width %d with %d feature names", record.Width, len(record.FeatureNames))
	}

	tree := btree.New[TreeNode]()
	ids := make([]btree.NodeID, len(record.Nodes))
	for ind, nodeRecord := range record.Nodes {
		node := TreeNode{
			Prediction:      nodeRecord.Prediction,
			Impurity:        nodeRecord.Impurity,
			NumberOfObjects: nodeRecord.NumberOfObjects,
			Gap:             nodeRecord.Gap,
			Reach:           nodeRecord.Reach,
		}
		if nodeRecord.Kind != kindLeaf && (nodeRecord.FeatureNumber < 0 || nodeRecord.FeatureNumber >= record.Width) {
			return errors.Wrapf(ErrDimensionMismatch, "node %d uses feature %d of %d", ind, nodeRecord.FeatureNumber, record.Width)
		}
		switch nodeRecord.Kind {
		case kindLeaf:
		case kindCrisp:
			node.Gate = NewCrispGate(nodeRecord.FeatureNumber, nodeRecord.Threshold)
		case kindFuzzy:
			gate, err := NewFuzzyGate(nodeRecord.FeatureNumber, nodeRecord.Threshold, nodeRecord.Gain)
			if err != nil {
				return errors.Wrapf(err, "node %d", ind)
			}
			node.Gate = gate
		default:
			return errors.Wrapf(ErrInvalidParameter, "node %d has unknown kind %q", ind, nodeRecord.Kind)
		}

		ids[ind] = tree.NewNode(node)
		parent, side := btree.None, btree.Left
		if nodeRecord.Parent != -1 {
			if nodeRecord.Parent < 0 || nodeRecord.Parent >= ind {
				return errors.Wrapf(btree.ErrInvalidTreeOperation, "node %d refers to parent %d", ind, nodeRecord.Parent)
			}
			if record.Nodes[nodeRecord.Parent].Kind == kindLeaf {
				return errors.Wrapf(btree.ErrInvalidTreeOperation, "node %d is a child of leaf %d", ind, nodeRecord.Parent)
			}
			var err error
			if side, err = parseSide(nodeRecord.Side); err != nil {
				return err
			}
			parent = ids[nodeRecord.Parent]
		}
		if err := tree.Add(ids[ind], parent, side); err != nil {
			return errors.Wrapf(err, "node %d", ind)
		}
	}

	var err error
	crisp, fuzzy := false, false
	for id := range tree.Traversal() {
		gate := tree.Payload(id).Gate
		if gate != nil && tree.IsLeaf(id) {
			err = multierr.Append(err, errors.Wrapf(btree.ErrInvalidTreeOperation, "gate node %d has no children", id))
		}
		if tree.IsLeaf(id) {
			continue
		}
		if tree.Left(id) == btree.None || tree.Right(id) == btree.None {
			err = multierr.Append(err, errors.Wrapf(btree.ErrInvalidTreeOperation, "node %d has one child", id))
		}
		switch gate.(type) {
		case *FuzzyGate:
			fuzzy = true
		case *CrispGate:
			crisp = true
		}
	}
	if err != nil {
		return err
	}
	if crisp && fuzzy {
		return errors.Wrap(ErrInvalidParameter, "crisp and fuzzy gates are mixed")
	}
	if fuzzy != record.Fuzzy {
		return errors.Wrapf(ErrInvalidParameter, "fuzzy flag %v does not match the gates", record.Fuzzy)
	}

	r.Params.MinSamples = record.MinSamples
	r.Params.MinImpurityDecrease = record.MinImpurityDecrease
	r.FeatureNames = record.FeatureNames
	r.width = record.Width
	r.tree = tree
	r.fuzzy = fuzzy
	r.generation++
	return nil
}

func (r *Regressor) MarshalJSON() ([]byte, error) {
	record, err := r.record()
	if err != nil {
		return nil, err
	}
	return json.Marshal(record)
}

func (r *Regressor) UnmarshalJSON(data []byte) error {
	var record ModelRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return err
	}
	return r.restore(record)
}

//Save writes the model as indented JSON.
func (r *Regressor) Save(fileName string) (err error) {
	record, err := r.record()
	if err != nil {
		return err
	}
	modelByteRepr, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}

	dest, err := os.Create(fileName)
	if err != nil {
		return errors.Wrapf(err, "can't open file %s to write", fileName)
	}
	defer func() { err = multierr.Append(err, dest.Close()) }()

	_, err = dest.Write(modelByteRepr)
	return err
}

//LoadModel reads a model written by Save.
func LoadModel(fileName string) (model *Regressor, err error) {
	source, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer func() { err = multierr.Append(err, source.Close()) }()

	model = &Regressor{}
	if err := json.NewDecoder(source).Decode(model); err != nil {
		return nil, errors.Wrapf(err, "can't load model from %s", fileName)
	}
	return model, nil
}

//LearningCurvesDump holds loss histories, one column per title.
type LearningCurvesDump struct {
	Titles []string
	Values [][]float64
}

//NewLearningCurvesDump zips histories of equal length into rows.
func NewLearningCurvesDump(titles []string, histories ...[]float64) (LearningCurvesDump, error) {
	if len(titles) != len(histories) {
		return LearningCurvesDump{}, errors.Wrapf(ErrDimensionMismatch, "%d titles for %d curves", len(titles), len(histories))
	}
	dump := LearningCurvesDump{Titles: titles, Values: make([][]float64, 0)}
	if len(histories) == 0 {
		return dump, nil
	}
	for ind, history := range histories {
		if len(history) != len(histories[0]) {
			return LearningCurvesDump{}, errors.Wrapf(ErrDimensionMismatch, "curve %q has %d points, expected %d", titles[ind], len(history), len(histories[0]))
		}
	}
	for p := range histories[0] {
		row := make([]float64, len(histories))
		for q, history := range histories {
			row[q] = history[p]
		}
		dump.Values = append(dump.Values, row)
	}
	return dump, nil
}

//Save writes the learning curves as indented JSON.
func (dump LearningCurvesDump) Save(fileName string) (err error) {
	bytesResult, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return err
	}
	destination, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, destination.Close()) }()
	_, err = destination.Write(bytesResult)
	return err
}
