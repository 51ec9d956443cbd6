// Package pipeline is the composition layer: cascades of flows of branching
// assemblies, built stage by stage against a planner-resolved schema scope.
// Construction is synchronous and fails at the first structural violation;
// nothing here ever touches row data.
package pipeline

import (
	"strings"

	"github.com/sluicedata/sluice/sluice"
)

// Node is one named vertex of the pipeline tree. Cascades hold flows, flows
// hold assemblies, assemblies hold branch assemblies. Direct children are
// unique by name; deeper duplicates are tolerated until a lookup would have
// to disambiguate them.
type Node struct {
	name     string
	parent   *Node
	children []*Node
	byName   map[string]*Node

	// owner is the Cascade, Flow or Assembly built on this node.
	owner interface{}
}

func newNode(name string, owner interface{}) *Node {
	return &Node{
		name:   name,
		byName: map[string]*Node{},
		owner:  owner,
	}
}

func (n *Node) Name() string { return n.name }

func (n *Node) Parent() *Node { return n.parent }

// Children returns the direct children in insertion order.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// QualifiedName is the dot-joined path from the tree root down to this node,
// used in error messages and describe output.
func (n *Node) QualifiedName() string {
	if n.parent == nil {
		return n.name
	}
	return n.parent.QualifiedName() + "." + n.name
}

func (n *Node) addChild(child *Node) error {
	if _, ok := n.byName[child.name]; ok {
		return sluice.Errorf(sluice.ErrorKindAmbiguousNodeName, "node %q already has a child named %q", n.QualifiedName(), child.name)
	}
	child.parent = n
	n.byName[child.name] = child
	n.children = append(n.children, child)
	return nil
}

// Find searches the whole subtree below n for a node with the given name.
// Absence is not an error; the caller decides. More than one match anywhere
// below is.
func (n *Node) Find(name string) (*Node, error) {
	var matches []*Node
	n.walkDescendants(func(descendant *Node) {
		if descendant.name == name {
			matches = append(matches, descendant)
		}
	})
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	}
	paths := make([]string, len(matches))
	for i, match := range matches {
		paths[i] = match.QualifiedName()
	}
	return nil, sluice.Errorf(sluice.ErrorKindAmbiguousNodeName, "name %q is ambiguous below %q: matches %s", name, n.QualifiedName(), strings.Join(paths, ", "))
}

func (n *Node) walkDescendants(f func(*Node)) {
	for _, child := range n.children {
		f(child)
		child.walkDescendants(f)
	}
}
