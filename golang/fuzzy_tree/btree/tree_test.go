package btree

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFour(t *testing.T) (tree *Tree[string], root, lChild, rChild, lGrandchild NodeID) {
	tree = New[string]()
	root = tree.NewNode("root")
	lChild = tree.NewNode("l_child")
	rChild = tree.NewNode("r_child")
	lGrandchild = tree.NewNode("l_grandchild")

	require.NoError(t, tree.Add(root, None, Left))
	require.NoError(t, tree.Add(lChild, root, Left))
	require.NoError(t, tree.Add(rChild, root, Right))
	require.NoError(t, tree.Add(lGrandchild, lChild, Left))
	return
}

func TestBasic(t *testing.T) {
	tree, root, lChild, rChild, lGrandchild := buildFour(t)

	for _, id := range []NodeID{root, lChild, rChild, lGrandchild} {
		assert.True(t, tree.Contains(id))
	}
	assert.Equal(t, 4, tree.Len())
	assert.Equal(t, root, tree.Root())
	assert.ElementsMatch(t, []NodeID{rChild, lGrandchild}, tree.Leaves())

	assert.Equal(t, None, tree.Parent(root))
	assert.Equal(t, lChild, tree.Left(root))
	assert.Equal(t, rChild, tree.Right(root))

	assert.Equal(t, root, tree.Parent(lChild))
	assert.Equal(t, lGrandchild, tree.Left(lChild))
	assert.Equal(t, None, tree.Right(lChild))

	assert.True(t, tree.IsLeaf(rChild))
	assert.Equal(t, lChild, tree.Parent(lGrandchild))
	assert.Equal(t, Right, tree.SideOf(rChild))
	assert.Equal(t, Left, tree.SideOf(lGrandchild))
	assert.Equal(t, "l_grandchild", *tree.Payload(lGrandchild))
}

func TestTraversalIsLevelOrderAndRestartable(t *testing.T) {
	tree, root, lChild, rChild, lGrandchild := buildFour(t)

	want := []NodeID{root, lChild, rChild, lGrandchild}
	assert.Equal(t, want, slices.Collect(tree.Traversal()))
	assert.Equal(t, want, slices.Collect(tree.Traversal()))

	var firstTwo []NodeID
	for id := range tree.Traversal() {
		firstTwo = append(firstTwo, id)
		if len(firstTwo) == 2 {
			break
		}
	}
	assert.Equal(t, want[:2], firstTwo)

	assert.Empty(t, slices.Collect(New[int]().Traversal()))
}

func TestAncestors(t *testing.T) {
	tree, root, lChild, _, lGrandchild := buildFour(t)

	assert.Equal(t, []NodeID{lChild, root}, slices.Collect(tree.Ancestors(lGrandchild)))
	assert.Empty(t, slices.Collect(tree.Ancestors(root)))
}

func TestInvalidOperations(t *testing.T) {
	tree, root, lChild, _, lGrandchild := buildFour(t)
	stray := tree.NewNode("stray")
	detached := tree.NewNode("detached")

	tests := []struct {
		name   string
		node   NodeID
		parent NodeID
		side   Side
	}{
		{"existing node", lGrandchild, None, Left},
		{"existing root", stray, None, Left},
		{"existing l_child", stray, root, Left},
		{"existing r_child", stray, root, Right},
		{"unrecognized parent", stray, detached, Left},
		{"unknown node", NodeID(100), lChild, Right},
		{"unknown side", stray, lChild, Side(7)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			leaves := tree.Leaves()
			err := tree.Add(tt.node, tt.parent, tt.side)
			assert.ErrorIs(t, err, ErrInvalidTreeOperation)
			assert.Equal(t, leaves, tree.Leaves(), "a rejected add must not touch the leaf set")
			assert.Equal(t, 4, tree.Len())
		})
	}
	assert.Equal(t, None, tree.Right(lChild))
}

func TestParentRequiredBeforeRoot(t *testing.T) {
	tree := New[int]()
	a := tree.NewNode(1)
	b := tree.NewNode(2)
	assert.ErrorIs(t, tree.Add(b, a, Left), ErrInvalidTreeOperation)
	assert.Equal(t, None, tree.Root())
}

func TestLeafSetFollowsSplits(t *testing.T) {
	tree := New[int]()
	root := tree.NewNode(0)
	require.NoError(t, tree.Add(root, None, Left))
	assert.Equal(t, []NodeID{root}, tree.Leaves())

	left := tree.NewNode(1)
	require.NoError(t, tree.Add(left, root, Left))
	assert.Equal(t, []NodeID{left}, tree.Leaves())

	right := tree.NewNode(2)
	require.NoError(t, tree.Add(right, root, Right))
	assert.Equal(t, []NodeID{left, right}, tree.Leaves())
	assert.False(t, tree.IsLeaf(root))
}
