package pipeline

import (
	"github.com/sluicedata/sluice/graph"
)

// Cascade is a named group of flows built together. It owns the root of the
// node tree its flows and their assemblies hang off.
type Cascade struct {
	node     *Node
	registry *Registry
	flows    []*Flow
}

func (c *Cascade) Name() string { return c.node.Name() }

func (c *Cascade) Node() *Node { return c.node }

// NewFlow opens a flow under the cascade.
func (c *Cascade) NewFlow(name string, options ...FlowOption) (*Flow, error) {
	flow, err := newFlow(name, options)
	if err != nil {
		return nil, err
	}
	if err := c.node.addChild(flow.node); err != nil {
		return nil, err
	}
	c.flows = append(c.flows, flow)
	return flow, nil
}

func (c *Cascade) Flows() []*Flow {
	out := make([]*Flow, len(c.flows))
	copy(out, c.flows)
	return out
}

func (c *Cascade) Visualize() *graph.Node {
	node := graph.NewNode("cascade " + c.node.Name())
	for _, flow := range c.flows {
		node.AddChild(flow.node.Name(), flow.Visualize())
	}
	return node
}
