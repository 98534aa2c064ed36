// Package schema validates editor graph documents before they are stored.
// Structural validation (cycles, branches, reachability) belongs to the
// compiler; this layer only rejects documents that are not well-formed
// graphs at all.
package schema

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/coinflux/ruleflow/pkg/models"
)

var graphSchema = map[string]any{
	"type":     "object",
	"required": []any{"nodes", "edges"},
	"properties": map[string]any{
		"nodes": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []any{"id", "type"},
				"properties": map[string]any{
					"id":   map[string]any{"type": "string", "minLength": 1},
					"type": map[string]any{"enum": []any{"trigger", "condition", "action"}},
					"data": map[string]any{"type": "object"},
				},
			},
		},
		"edges": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []any{"id", "source", "target"},
				"properties": map[string]any{
					"id":            map[string]any{"type": "string", "minLength": 1},
					"source":        map[string]any{"type": "string", "minLength": 1},
					"target":        map[string]any{"type": "string", "minLength": 1},
					"source_handle": map[string]any{"type": "string"},
					"target_handle": map[string]any{"type": "string"},
				},
			},
		},
	},
}

// ValidateGraph checks the graph document against the JSON schema.
func ValidateGraph(graph *models.Graph) error {
	if graph == nil {
		return fmt.Errorf("graph document is required")
	}

	schemaLoader := gojsonschema.NewGoLoader(graphSchema)
	documentLoader := gojsonschema.NewGoLoader(graph)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("graph schema validation failed: %w", err)
	}

	if !result.Valid() {
		var details []string
		for _, resultErr := range result.Errors() {
			details = append(details, resultErr.String())
		}

		return fmt.Errorf("graph document is invalid: %s", strings.Join(details, "; "))
	}

	return nil
}
