package compiler

import (
	"errors"
	"fmt"

	"github.com/coinflux/ruleflow/pkg/models"
)

// Compile transforms an editor graph into an executable expression tree
// stamped with the given workflow version.
//
// A condition node compiles to OR(AND(guard, trueSubtree),
// AND(negated guard, falseSubtree)); the two arms are mutually exclusive, so
// the evaluator's OR short-circuit selects exactly the satisfied path. When
// both branches converge on the same downstream node (diamond merge) the
// shared subtree is compiled once and reused in both arms. Branch ordering
// follows edge declaration order, which makes compilation deterministic.
//
// A non-empty error list means the graph is rejected and no expression is
// produced.
func Compile(graph *models.Graph, version int) (*models.Expression, []CompileError) {
	if graph == nil {
		return nil, []CompileError{{Code: CodeNoTrigger, Message: "graph is empty"}}
	}

	if errs := validate(graph); len(errs) > 0 {
		return nil, errs
	}

	c := &compilation{graph: graph, compiled: make(map[string]*models.ExprNode)}

	trigger := graph.TriggerNodes()[0]

	root := &models.ExprNode{Kind: models.ExprBranch}

	edges := graph.OutgoingEdges(trigger.ID)
	if len(edges) > 0 {
		// Validation guarantees the graph is acyclic; the entry edge may
		// still dangle, which compiles to a no-op branch.
		root = c.compileTarget(edges[0].Target)
	}

	return &models.Expression{Version: version, Root: root}, nil
}

type compilation struct {
	graph    *models.Graph
	compiled map[string]*models.ExprNode
}

// compileTarget compiles the subtree rooted at the given node ID, memoizing
// per node so diamond merges share one compiled subtree.
func (c *compilation) compileTarget(nodeID string) *models.ExprNode {
	if cached, ok := c.compiled[nodeID]; ok {
		return cached
	}

	node, ok := c.graph.NodeByID(nodeID)
	if !ok {
		// Dangling edge target: that branch is a no-op.
		return &models.ExprNode{Kind: models.ExprBranch}
	}

	var result *models.ExprNode

	switch node.Type {
	case models.NodeTypeCondition:
		result = c.compileCondition(node)
	case models.NodeTypeAction:
		result = c.compileActionChain(node)
	default:
		result = &models.ExprNode{Kind: models.ExprBranch}
	}

	c.compiled[nodeID] = result

	return result
}

func (c *compilation) compileCondition(node *models.GraphNode) *models.ExprNode {
	cond, _ := conditionFromNode(*node)

	trueEdge, falseEdge := branchEdges(c.graph, node.ID)

	negated := cond
	negated.Negate = !cond.Negate

	trueArm := &models.ExprNode{
		Kind: models.ExprAnd,
		Children: []*models.ExprNode{
			{Kind: models.ExprCondition, Condition: &cond},
			c.compileTarget(trueEdge.Target),
		},
	}

	falseArm := &models.ExprNode{
		Kind: models.ExprAnd,
		Children: []*models.ExprNode{
			{Kind: models.ExprCondition, Condition: &negated},
			c.compileTarget(falseEdge.Target),
		},
	}

	return &models.ExprNode{
		Kind:     models.ExprOr,
		Children: []*models.ExprNode{trueArm, falseArm},
	}
}

// compileActionChain collects the action node and everything it chains to
// into a single BRANCH carrying the ordered action list.
func (c *compilation) compileActionChain(node *models.GraphNode) *models.ExprNode {
	var actions []models.Action

	current := node
	for current != nil {
		action, _ := actionFromNode(*current)
		actions = append(actions, action)

		edges := c.graph.OutgoingEdges(current.ID)
		if len(edges) == 0 {
			break
		}

		next, ok := c.graph.NodeByID(edges[0].Target)
		if !ok {
			break
		}

		current = next
	}

	return &models.ExprNode{Kind: models.ExprBranch, Actions: actions}
}

// branchEdges returns the true and false edges of a condition node.
// Validation guarantees both handles are present.
func branchEdges(graph *models.Graph, nodeID string) (trueEdge, falseEdge models.GraphEdge) {
	for _, edge := range graph.OutgoingEdges(nodeID) {
		switch edge.SourceHandle {
		case models.HandleTrue:
			trueEdge = edge
		case models.HandleFalse:
			falseEdge = edge
		}
	}

	return trueEdge, falseEdge
}

// conditionFromNode extracts the predicate from a condition node's data.
func conditionFromNode(node models.GraphNode) (models.Condition, error) {
	field, _ := node.Data["field"].(string)
	if field == "" {
		return models.Condition{}, errors.New("condition node has no field")
	}

	operatorRaw, _ := node.Data["operator"].(string)

	operator := models.Operator(operatorRaw)
	if !operator.IsValid() {
		return models.Condition{}, fmt.Errorf("unsupported operator %q", operatorRaw)
	}

	return models.Condition{
		Field:    field,
		Operator: operator,
		Value:    node.Data["value"],
	}, nil
}

// actionFromNode extracts the action spec from an action node's data.
func actionFromNode(node models.GraphNode) (models.Action, error) {
	actionTypeRaw, _ := node.Data["action_type"].(string)

	actionType := models.ActionType(actionTypeRaw)
	if !actionType.IsValid() {
		return models.Action{}, fmt.Errorf("unresolvable action type %q", actionTypeRaw)
	}

	config, _ := node.Data["config"].(map[string]any)

	return models.Action{Type: actionType, Config: config}, nil
}
