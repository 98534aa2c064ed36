package models

import "strings"

// FieldResolver resolves a dotted field name to a context value. Resolution
// is total: a missing field reports ok=false, never an error. The evaluator
// depends only on this interface so resolution can be instrumented in tests.
type FieldResolver interface {
	Resolve(field string) (any, bool)
}

// ExecutionContext is the flat map of event facts supplied with one
// dispatch, keyed by dotted field names such as "order.totalFiat" or
// "user.country". The engine never mutates it.
type ExecutionContext map[string]any

// Resolve looks the field up as a flat dotted key first, then falls back to
// traversing nested maps, so both flattened and structured event payloads
// resolve the same way.
func (c ExecutionContext) Resolve(field string) (any, bool) {
	if value, ok := c[field]; ok {
		return value, true
	}

	parts := strings.Split(field, ".")
	if len(parts) < 2 {
		return nil, false
	}

	var current any = map[string]any(c)

	for _, part := range parts {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = node[part]
		if !ok {
			return nil, false
		}
	}

	return current, true
}
