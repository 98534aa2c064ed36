package compiler

import (
	"fmt"

	"github.com/coinflux/ruleflow/pkg/models"
)

// validate runs every structural check on the graph and returns the full
// list of failures so the editor can surface them all at once.
func validate(graph *models.Graph) []CompileError {
	var errs []CompileError

	triggers := graph.TriggerNodes()

	switch {
	case len(triggers) == 0:
		errs = append(errs, CompileError{
			Code:    CodeNoTrigger,
			Message: "graph has no trigger node",
		})
	case len(triggers) > 1:
		errs = append(errs, CompileError{
			Code:    CodeMultipleTriggers,
			Message: fmt.Sprintf("graph has %d trigger nodes, expected exactly one", len(triggers)),
		})
	}

	for _, node := range graph.Nodes {
		switch node.Type {
		case models.NodeTypeTrigger:
		case models.NodeTypeCondition:
			errs = append(errs, validateConditionNode(graph, node)...)
		case models.NodeTypeAction:
			errs = append(errs, validateActionNode(graph, node)...)
		default:
			errs = append(errs, CompileError{
				Code:    CodeUnknownNodeType,
				NodeID:  node.ID,
				Message: fmt.Sprintf("unknown node type %q", node.Type),
			})
		}
	}

	if len(triggers) == 1 {
		errs = append(errs, detectCycles(graph)...)
		errs = append(errs, detectOrphans(graph, triggers[0].ID)...)
	}

	return errs
}

func validateConditionNode(graph *models.Graph, node models.GraphNode) []CompileError {
	var errs []CompileError

	if _, err := conditionFromNode(node); err != nil {
		errs = append(errs, CompileError{
			Code:    CodeInvalidCondition,
			NodeID:  node.ID,
			Message: err.Error(),
		})
	}

	// Exactly one true and one false edge: a duplicate handle would make
	// the compiled branch depend on edge declaration order, and an
	// unlabeled edge would be dropped silently.
	trueEdges, falseEdges := 0, 0

	for _, edge := range graph.OutgoingEdges(node.ID) {
		switch edge.SourceHandle {
		case models.HandleTrue:
			trueEdges++
		case models.HandleFalse:
			falseEdges++
		default:
			errs = append(errs, CompileError{
				Code:    CodeAmbiguousBranch,
				NodeID:  node.ID,
				Message: fmt.Sprintf("edge %q leaves the condition without a true/false handle", edge.ID),
			})
		}
	}

	if trueEdges == 0 {
		errs = append(errs, CompileError{
			Code:    CodeMissingBranch,
			NodeID:  node.ID,
			Message: "condition node has no true branch",
		})
	} else if trueEdges > 1 {
		errs = append(errs, CompileError{
			Code:    CodeAmbiguousBranch,
			NodeID:  node.ID,
			Message: fmt.Sprintf("condition node has %d true branches, expected exactly one", trueEdges),
		})
	}

	if falseEdges == 0 {
		errs = append(errs, CompileError{
			Code:    CodeMissingBranch,
			NodeID:  node.ID,
			Message: "condition node has no false branch",
		})
	} else if falseEdges > 1 {
		errs = append(errs, CompileError{
			Code:    CodeAmbiguousBranch,
			NodeID:  node.ID,
			Message: fmt.Sprintf("condition node has %d false branches, expected exactly one", falseEdges),
		})
	}

	return errs
}

func validateActionNode(graph *models.Graph, node models.GraphNode) []CompileError {
	var errs []CompileError

	if _, err := actionFromNode(node); err != nil {
		errs = append(errs, CompileError{
			Code:    CodeUnknownActionType,
			NodeID:  node.ID,
			Message: err.Error(),
		})
	}

	// Action nodes are terminal or chain to exactly one further action.
	edges := graph.OutgoingEdges(node.ID)
	if len(edges) > 1 {
		errs = append(errs, CompileError{
			Code:    CodeInvalidChain,
			NodeID:  node.ID,
			Message: fmt.Sprintf("action node has %d outgoing edges, at most one allowed", len(edges)),
		})
	}

	if len(edges) == 1 {
		if target, ok := graph.NodeByID(edges[0].Target); ok && target.Type != models.NodeTypeAction {
			errs = append(errs, CompileError{
				Code:    CodeInvalidChain,
				NodeID:  node.ID,
				Message: fmt.Sprintf("action node chains to %s node %q, actions may only chain to actions", target.Type, target.ID),
			})
		}
	}

	return errs
}

// detectCycles runs a coloring DFS over every node. Edges with a missing
// target are no-ops and do not participate.
func detectCycles(graph *models.Graph) []CompileError {
	const (
		white = iota // unvisited
		gray         // on the current DFS path
		black        // fully explored
	)

	colors := make(map[string]int, len(graph.Nodes))

	var errs []CompileError

	var visit func(id string) bool

	visit = func(id string) bool {
		colors[id] = gray

		for _, edge := range graph.OutgoingEdges(id) {
			if _, ok := graph.NodeByID(edge.Target); !ok {
				continue
			}

			switch colors[edge.Target] {
			case gray:
				errs = append(errs, CompileError{
					Code:    CodeCycle,
					NodeID:  edge.Target,
					Message: fmt.Sprintf("edge %q closes a cycle through node %q", edge.ID, edge.Target),
				})

				return true
			case white:
				if visit(edge.Target) {
					return true
				}
			}
		}

		colors[id] = black

		return false
	}

	for _, node := range graph.Nodes {
		if colors[node.ID] == white {
			if visit(node.ID) {
				// One cycle report is enough; further traversal would
				// re-report the same back edge from other roots.
				break
			}
		}
	}

	return errs
}

// detectOrphans reports every node unreachable from the trigger.
func detectOrphans(graph *models.Graph, triggerID string) []CompileError {
	reachable := map[string]bool{triggerID: true}
	queue := []string{triggerID}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, edge := range graph.OutgoingEdges(current) {
			if _, ok := graph.NodeByID(edge.Target); !ok {
				continue
			}

			if !reachable[edge.Target] {
				reachable[edge.Target] = true
				queue = append(queue, edge.Target)
			}
		}
	}

	var errs []CompileError

	for _, node := range graph.Nodes {
		if !reachable[node.ID] {
			errs = append(errs, CompileError{
				Code:    CodeOrphanNode,
				NodeID:  node.ID,
				Message: "node is unreachable from the trigger",
			})
		}
	}

	return errs
}
