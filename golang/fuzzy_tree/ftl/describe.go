package ftl

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/pkg/errors"

	"github.com/byu9/fuzzy-forecast/golang/fuzzy_tree/btree"
)

//Rule is the region of one leaf: the gate conditions from the root down and the leaf value.
type Rule struct {
	Leaf       btree.NodeID
	Conditions []string
	Prediction float64
}

func (rule Rule) String() string {
	if len(rule.Conditions) == 0 {
		return fmt.Sprintf("always then %g", rule.Prediction)
	}
	return fmt.Sprintf("if %s then %g", strings.Join(rule.Conditions, " and "), rule.Prediction)
}

//Rules lists one rule per leaf in the order of the leaf set.
func (r *Regressor) Rules() ([]Rule, error) {
	if !r.IsFitted() {
		return nil, ErrNotFitted
	}
	leaves := r.tree.Leaves()
	rules := make([]Rule, 0, len(leaves))
	for _, leaf := range leaves {
		var conditions []string
		child := leaf
		for ancestor := range r.tree.Ancestors(leaf) {
			gate := r.tree.Payload(ancestor).Gate
			if r.tree.SideOf(child) == btree.Left {
				conditions = append(conditions, gate.Describe(r.FeatureNames))
			} else {
				conditions = append(conditions, gate.DescribeComplement(r.FeatureNames))
			}
			child = ancestor
		}
		slices.Reverse(conditions)
		rules = append(rules, Rule{Leaf: leaf, Conditions: conditions, Prediction: r.tree.Payload(leaf).Prediction})
	}
	return rules, nil
}

//Describe renders the rules, one per line.
func (r *Regressor) Describe() (string, error) {
	rules, err := r.Rules()
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, rule := range rules {
		sb.WriteString(rule.String())
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

//GraphDescription returns the label of a node for tree rendering as a graph.
func (node TreeNode) GraphDescription(id btree.NodeID, featureNames []string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintln("#", node.NumberOfObjects))
	sb.WriteString(fmt.Sprintln("id: ", id))
	sb.WriteString(fmt.Sprintf("impurity: %6.5g\n", node.Impurity))
	if node.Gate == nil {
		sb.WriteString(fmt.Sprintf("value: %6.5g", node.Prediction))
	} else {
		sb.WriteString(node.Gate.Describe(featureNames))
	}
	return sb.String()
}

//GraphFormat maps a file extension to a graphviz output format.
func GraphFormat(name string) (graphviz.Format, error) {
	format, ok := map[string]graphviz.Format{
		"png": graphviz.PNG,
		"svg": graphviz.SVG,
		"jpg": graphviz.JPG,
		"dot": graphviz.XDOT,
	}[name]
	if !ok {
		return "", errors.Wrapf(ErrInvalidParameter, "unknown figure type %q", name)
	}
	return format, nil
}

func (r *Regressor) recurrentDraw(g *cgraph.Graph, id btree.NodeID, parentNode *cgraph.Node, label string) error {
	currentNode, err := g.CreateNode(fmt.Sprint(id))
	if err != nil {
		return err
	}

	if parentNode != nil {
		edge, err := g.CreateEdge(fmt.Sprintf("%d-%d", r.tree.Parent(id), id), parentNode, currentNode)
		if err != nil {
			return err
		}
		edge.SetLabel(label)
	}

	node := r.tree.Payload(id)
	currentNode.SetLabel(node.GraphDescription(id, r.FeatureNames))
	if r.tree.IsLeaf(id) {
		currentNode.SetShape(cgraph.BoxShape)
		return nil
	}
	if err := r.recurrentDraw(g, r.tree.Left(id), currentNode, "yes"); err != nil {
		return err
	}
	return r.recurrentDraw(g, r.tree.Right(id), currentNode, "no")
}

//DrawGraph builds a graphviz graph of the tree. The caller closes both returned objects.
func (r *Regressor) DrawGraph() (*graphviz.Graphviz, *cgraph.Graph, error) {
	if !r.IsFitted() {
		return nil, nil, ErrNotFitted
	}
	graphViz := graphviz.New()
	graph, err := graphViz.Graph()
	if err != nil {
		return nil, nil, err
	}
	if err := r.recurrentDraw(graph, r.tree.Root(), nil, ""); err != nil {
		_ = graph.Close()
		_ = graphViz.Close()
		return nil, nil, err
	}
	return graphViz, graph, nil
}

//RenderGraph writes the tree picture to w.
func (r *Regressor) RenderGraph(w io.Writer, format graphviz.Format) error {
	graphViz, graph, err := r.DrawGraph()
	if err != nil {
		return err
	}
	defer func() {
		_ = graph.Close()
		_ = graphViz.Close()
	}()
	return graphViz.Render(graph, format, w)
}

//RenderFile writes the tree picture to a file.
func (r *Regressor) RenderFile(fileName string, format graphviz.Format) error {
	graphViz, graph, err := r.DrawGraph()
	if err != nil {
		return err
	}
	defer func() {
		_ = graph.Close()
		_ = graphViz.Close()
	}()
	return graphViz.RenderFilename(graph, format, fileName)
}
