// Package spantree holds the forest of span nodes for one session: the
// parent/child relationships used to render path names and the tree.txt
// summary dump (spec.md §4.5). Like spanstate, it is owned by a single
// session goroutine and needs no locking.
package spantree

import (
	"fmt"
	"io"
)

// Node is one span in the forest, identified by its span id (not
// instance) and carrying the human-readable name used to build paths.
type Node struct {
	ID       uint32
	Name     string
	Children []*Node
}

// Tree is a forest of root-level nodes, plus an id index for O(1) lookup.
type Tree struct {
	roots []*Node
	byID  map[uint32]*Node
}

// New returns an empty forest.
func New() *Tree {
	return &Tree{byID: make(map[uint32]*Node)}
}

// AddNode appends a new root-level node for id/name. If id already has a
// node, its name is updated in place rather than creating a duplicate —
// callers normally call this once per SpanAlloc.
func (t *Tree) AddNode(id uint32, name string) *Node {
	if n, ok := t.byID[id]; ok {
		n.Name = name
		return n
	}
	n := &Node{ID: id, Name: name}
	t.roots = append(t.roots, n)
	t.byID[id] = n
	return n
}

// FindParent performs a DFS over the forest and returns the node whose
// Children contains id, or nil if id is a root or unknown.
func (t *Tree) FindParent(id uint32) *Node {
	for _, root := range t.roots {
		if p := findParentIn(root, id); p != nil {
			return p
		}
	}
	return nil
}

func findParentIn(n *Node, id uint32) *Node {
	for _, child := range n.Children {
		if child.ID == id {
			return n
		}
		if p := findParentIn(child, id); p != nil {
			return p
		}
	}
	return nil
}

// RelocateNode removes the subtree rooted at id and re-inserts it under
// newParent. It returns true iff both steps succeeded — newParent is looked
// up before anything is detached, so if it cannot be found the tree is left
// exactly as it was (an all-or-nothing operation, per spec.md §4.5).
func (t *Tree) RelocateNode(id, newParent uint32) bool {
	node, ok := t.byID[id]
	if !ok {
		return false
	}
	target, ok := t.byID[newParent]
	if !ok {
		return false
	}
	if node == target || isAncestor(node, newParent) {
		return false
	}

	oldParent := t.FindParent(id)
	if !t.detach(node, oldParent) {
		return false
	}

	target.Children = append(target.Children, node)
	return true
}

// isAncestor reports whether candidateID appears anywhere in node's
// subtree — relocating a node under its own descendant would create a
// cycle.
func isAncestor(node *Node, candidateID uint32) bool {
	for _, child := range node.Children {
		if child.ID == candidateID {
			return true
		}
		if isAncestor(child, candidateID) {
			return true
		}
	}
	return false
}

// detach removes node from its current location (root list or parent's
// children), leaving the tree otherwise unchanged.
func (t *Tree) detach(node, parent *Node) bool {
	if parent == nil {
		for i, r := range t.roots {
			if r == node {
				t.roots = append(t.roots[:i], t.roots[i+1:]...)
				return true
			}
		}
		return false
	}
	for i, c := range parent.Children {
		if c == node {
			parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
			return true
		}
	}
	return false
}

// PathToRoot returns the slash-joined sequence of node names from the
// forest root down to id, e.g. "app/render/frame".
func (t *Tree) PathToRoot(id uint32) string {
	node, ok := t.byID[id]
	if !ok {
		return ""
	}
	names := []string{node.Name}
	cur := id
	for {
		parent := t.FindParent(cur)
		if parent == nil {
			break
		}
		names = append([]string{parent.Name}, names...)
		cur = parent.ID
	}
	path := names[0]
	for _, n := range names[1:] {
		path += "/" + n
	}
	return path
}

// Write performs a breadth-first traversal of the forest, emitting one
// line per node: "<path> <id>\n".
func (t *Tree) Write(w io.Writer) error {
	queue := make([]*Node, 0, len(t.roots))
	queue = append(queue, t.roots...)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if _, err := fmt.Fprintf(w, "%s %d\n", t.PathToRoot(n.ID), n.ID); err != nil {
			return err
		}
		queue = append(queue, n.Children...)
	}
	return nil
}
