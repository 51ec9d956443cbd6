package graph

import (
	"fmt"
	"log"
	"strings"

	"github.com/awalterschulze/gographviz"
)

// Field is a single name: value attribute displayed inside a node.
type Field struct {
	Name, Value string
}

// Child is a named edge to an upstream node.
type Child struct {
	Name string
	Node *Node
}

// Node is one element of a describe tree. Fields carry stage attributes,
// Children point at the inputs the stage consumes.
type Node struct {
	Name     string
	Fields   []Field
	Children []Child
}

func NewNode(name string) *Node {
	return &Node{
		Name: name,
	}
}

func (n *Node) AddField(name, value string) {
	n.Fields = append(n.Fields, Field{
		Name:  name,
		Value: value,
	})
}

func (n *Node) AddChild(name string, node *Node) {
	n.Children = append(n.Children, Child{
		Name: name,
		Node: node,
	})
}

// Visualizer is implemented by everything that can describe itself as a node
// tree.
type Visualizer interface {
	Visualize() *Node
}

// Show lays the node tree out as a graphviz graph with record-shaped nodes,
// one port per field and child edge.
func Show(node *Node) *gographviz.Graph {
	graph := gographviz.NewGraph()
	graph.Directed = true
	if err := graph.AddAttr("", "rankdir", "LR"); err != nil {
		log.Fatal(err)
	}
	builder := &dotBuilder{
		graph:        graph,
		nameCounters: make(map[string]int),
	}

	builder.addNode(node)

	return graph
}

type dotBuilder struct {
	graph        *gographviz.Graph
	nameCounters map[string]int
}

// getID disambiguates repeated node names; pipelines reuse stage kinds a lot.
func (b *dotBuilder) getID(name string) string {
	count := b.nameCounters[name]
	b.nameCounters[name]++
	return fmt.Sprintf("%s_%d", strings.Replace(name, " ", "_", -1), count)
}

func (b *dotBuilder) addNode(node *Node) string {
	labelParts := []string{fmt.Sprintf("<f0> %s", node.Name)}

	if len(node.Fields) > 0 {
		fields := make([]string, len(node.Fields))
		for i, field := range node.Fields {
			fields[i] = fmt.Sprintf("<%s> %s: %s", field.Name, field.Name, field.Value)
		}
		labelParts = append(labelParts, strings.Join(fields, "|"))
	}
	if len(node.Children) > 0 {
		childPorts := make([]string, len(node.Children))
		for i, child := range node.Children {
			childPorts[i] = fmt.Sprintf("<%s> %s", child.Name, child.Name)
		}
		labelParts = append(labelParts, strings.Join(childPorts, "|"))
	}

	label := fmt.Sprintf(
		"\"{{%s}}\"",
		strings.Join(labelParts, "}|{"),
	)

	id := b.getID(node.Name)
	err := b.graph.AddNode("", id, map[string]string{
		"shape": "record",
		"label": label,
	})
	if err != nil {
		log.Fatal(err)
	}

	for _, child := range node.Children {
		childID := b.addNode(child.Node)
		if err := b.graph.AddPortEdge(id, child.Name, childID, "", true, map[string]string{}); err != nil {
			log.Fatal(err)
		}
	}
	return id
}
