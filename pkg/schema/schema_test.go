package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coinflux/ruleflow/pkg/models"
)

func TestValidateGraph_WellFormed(t *testing.T) {
	graph := &models.Graph{
		Nodes: []models.GraphNode{
			{ID: "t1", Type: models.NodeTypeTrigger},
			{ID: "a1", Type: models.NodeTypeAction, Data: map[string]any{"action_type": "FREEZE_ORDER"}},
		},
		Edges: []models.GraphEdge{
			{ID: "e1", Source: "t1", Target: "a1"},
		},
	}

	assert.NoError(t, ValidateGraph(graph))
}

func TestValidateGraph_NilGraph(t *testing.T) {
	assert.Error(t, ValidateGraph(nil))
}

func TestValidateGraph_UnknownNodeType(t *testing.T) {
	graph := &models.Graph{
		Nodes: []models.GraphNode{{ID: "n1", Type: "widget"}},
		Edges: []models.GraphEdge{},
	}

	err := ValidateGraph(graph)
	assert.Error(t, err)
}

func TestValidateGraph_EmptyIdentifiers(t *testing.T) {
	graph := &models.Graph{
		Nodes: []models.GraphNode{{ID: "", Type: models.NodeTypeTrigger}},
		Edges: []models.GraphEdge{{ID: "e1", Source: "", Target: "a1"}},
	}

	assert.Error(t, ValidateGraph(graph))
}

func TestValidateGraph_StructuralProblemsPassSchema(t *testing.T) {
	// Cycles and missing branches are the compiler's concern; the schema
	// only rejects documents that are not well-formed graphs.
	graph := &models.Graph{
		Nodes: []models.GraphNode{
			{ID: "a1", Type: models.NodeTypeAction, Data: map[string]any{"action_type": "FREEZE_ORDER"}},
			{ID: "a2", Type: models.NodeTypeAction, Data: map[string]any{"action_type": "AUTO_APPROVE"}},
		},
		Edges: []models.GraphEdge{
			{ID: "e1", Source: "a1", Target: "a2"},
			{ID: "e2", Source: "a2", Target: "a1"},
		},
	}

	assert.NoError(t, ValidateGraph(graph))
}
