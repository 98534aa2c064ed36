package models

// NodeType is the kind of a graph node as persisted by the visual editor.
type NodeType string

const (
	NodeTypeTrigger   NodeType = "trigger"
	NodeTypeCondition NodeType = "condition"
	NodeTypeAction    NodeType = "action"
)

// Branch handles on the outgoing edges of a condition node.
const (
	HandleTrue  = "true"
	HandleFalse = "false"
)

// Graph is the editor's representation of a workflow: nodes connected by
// directed edges. Condition nodes carry exactly two outgoing edges
// distinguished by source handle; action nodes are terminal or chain to
// further actions.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// GraphNode is a single node in the editor graph. Data carries the
// node-type specific payload: a condition node holds field/operator/value,
// an action node holds action_type and config.
type GraphNode struct {
	ID   string         `json:"id"   validate:"required"`
	Type NodeType       `json:"type" validate:"required"`
	Data map[string]any `json:"data,omitempty"`
}

// GraphEdge is a directed edge between two nodes. SourceHandle
// distinguishes the true/false branches out of a condition node.
type GraphEdge struct {
	ID           string `json:"id"     validate:"required"`
	Source       string `json:"source" validate:"required"`
	Target       string `json:"target" validate:"required"`
	SourceHandle string `json:"source_handle,omitempty"`
	TargetHandle string `json:"target_handle,omitempty"`
}

// NodeByID returns the node with the given ID.
func (g *Graph) NodeByID(id string) (*GraphNode, bool) {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i], true
		}
	}

	return nil, false
}

// OutgoingEdges returns the edges leaving the given node, in declaration
// order. Declaration order is load-bearing: the compiler derives its
// deterministic branch ordering from it.
func (g *Graph) OutgoingEdges(nodeID string) []GraphEdge {
	var edges []GraphEdge

	for _, edge := range g.Edges {
		if edge.Source == nodeID {
			edges = append(edges, edge)
		}
	}

	return edges
}

// TriggerNodes returns every node of type trigger.
func (g *Graph) TriggerNodes() []GraphNode {
	var nodes []GraphNode

	for _, node := range g.Nodes {
		if node.Type == NodeTypeTrigger {
			nodes = append(nodes, node)
		}
	}

	return nodes
}
