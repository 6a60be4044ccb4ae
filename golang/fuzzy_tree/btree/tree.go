package btree

import (
	"iter"

	"github.com/pkg/errors"
)

//ErrInvalidTreeOperation is returned for every structural misuse of a Tree.
var ErrInvalidTreeOperation = errors.New("invalid tree operation")

//NodeID identifies a node inside the flat node store of a Tree.
type NodeID int

//None marks an absent node: the parent of the root or a missing child.
const None NodeID = -1

//Side selects the child slot of a parent.
type Side int

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

type node[T any] struct {
	payload             T
	parent, left, right NodeID
	attached            bool
}

//Tree is a binary tree stored in an array. Nodes are allocated by NewNode and
//linked into the tree by Add. Links are indices, so the structure never holds
//back-pointers.
type Tree[T any] struct {
	nodes  []node[T]
	root   NodeID
	leaves []NodeID
	size   int
}

//New creates an empty tree.
func New[T any]() *Tree[T] {
	return &Tree[T]{root: None}
}

//NewNode allocates a detached node carrying payload.
func (t *Tree[T]) NewNode(payload T) NodeID {
	t.nodes = append(t.nodes, node[T]{payload: payload, parent: None, left: None, right: None})
	return NodeID(len(t.nodes) - 1)
}

func (t *Tree[T]) known(id NodeID) bool {
	return id >= 0 && int(id) < len(t.nodes)
}

//Contains reports whether id is attached to the tree.
func (t *Tree[T]) Contains(id NodeID) bool {
	return t.known(id) && t.nodes[id].attached
}

//Add inserts the node id as the side child of parent or as the root when parent is None.
//Nothing is modified when an error is returned.
func (t *Tree[T]) Add(id NodeID, parent NodeID, side Side) error {
	if !t.known(id) {
		return errors.Wrapf(ErrInvalidTreeOperation, "unknown node %d", id)
	}
	if t.nodes[id].attached {
		return errors.Wrapf(ErrInvalidTreeOperation, "node %d already in tree", id)
	}

	if parent == None {
		if t.root != None {
			return errors.Wrapf(ErrInvalidTreeOperation, "tree already has root %d", t.root)
		}
		t.root = id
		t.attach(id, None)
		return nil
	}

	if t.root == None {
		return errors.Wrapf(ErrInvalidTreeOperation, "root node %d shall not have parent", id)
	}
	if !t.Contains(parent) {
		return errors.Wrapf(ErrInvalidTreeOperation, "unrecognized parent %d", parent)
	}

	p := &t.nodes[parent]
	switch side {
	case Left:
		if p.left != None {
			return errors.Wrapf(ErrInvalidTreeOperation, "node %d has left child %d", parent, p.left)
		}
		p.left = id
	case Right:
		if p.right != None {
			return errors.Wrapf(ErrInvalidTreeOperation, "node %d has right child %d", parent, p.right)
		}
		p.right = id
	default:
		return errors.Wrapf(ErrInvalidTreeOperation, "unknown side %d", side)
	}

	t.removeLeaf(parent)
	t.attach(id, parent)
	return nil
}

func (t *Tree[T]) attach(id, parent NodeID) {
	n := &t.nodes[id]
	n.attached = true
	n.parent = parent
	n.left, n.right = None, None
	t.leaves = append(t.leaves, id)
	t.size++
}

func (t *Tree[T]) removeLeaf(id NodeID) {
	for i, leaf := range t.leaves {
		if leaf == id {
			t.leaves = append(t.leaves[:i], t.leaves[i+1:]...)
			return
		}
	}
}

//Root returns the root or None for an empty tree.
func (t *Tree[T]) Root() NodeID {
	return t.root
}

//Len returns the number of attached nodes.
func (t *Tree[T]) Len() int {
	return t.size
}

//Cap returns the size of the node store, attached or not. Every NodeID is below Cap.
func (t *Tree[T]) Cap() int {
	return len(t.nodes)
}

//Payload gives access to the payload of a node for in-place updates.
func (t *Tree[T]) Payload(id NodeID) *T {
	return &t.nodes[id].payload
}

func (t *Tree[T]) Parent(id NodeID) NodeID { return t.nodes[id].parent }
func (t *Tree[T]) Left(id NodeID) NodeID   { return t.nodes[id].left }
func (t *Tree[T]) Right(id NodeID) NodeID  { return t.nodes[id].right }

//Child returns the child on the given side.
func (t *Tree[T]) Child(id NodeID, side Side) NodeID {
	if side == Left {
		return t.nodes[id].left
	}
	return t.nodes[id].right
}

//IsLeaf returns whether the node has no children.
func (t *Tree[T]) IsLeaf(id NodeID) bool {
	n := t.nodes[id]
	return n.left == None && n.right == None
}

//SideOf returns the side under which id hangs from its parent.
func (t *Tree[T]) SideOf(id NodeID) Side {
	if p := t.nodes[id].parent; p != None && t.nodes[p].right == id {
		return Right
	}
	return Left
}

//Leaves returns a copy of the leaf set in insertion order.
func (t *Tree[T]) Leaves() []NodeID {
	return append([]NodeID(nil), t.leaves...)
}

//Traversal yields the nodes in level order: the root, then every level from left to right.
//Every call starts a new traversal.
func (t *Tree[T]) Traversal() iter.Seq[NodeID] {
	return func(yield func(NodeID) bool) {
		if t.root == None {
			return
		}
		queue := make([]NodeID, 0, t.size)
		queue = append(queue, t.root)
		for head := 0; head < len(queue); head++ {
			id := queue[head]
			if !yield(id) {
				return
			}
			if l := t.nodes[id].left; l != None {
				queue = append(queue, l)
			}
			if r := t.nodes[id].right; r != None {
				queue = append(queue, r)
			}
		}
	}
}

//Ancestors yields the ancestors of id from its direct parent up to the root.
func (t *Tree[T]) Ancestors(id NodeID) iter.Seq[NodeID] {
	return func(yield func(NodeID) bool) {
		for p := t.nodes[id].parent; p != None; p = t.nodes[p].parent {
			if !yield(p) {
				return
			}
		}
	}
}
