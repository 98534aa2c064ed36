package evaluator

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/coinflux/ruleflow/pkg/models"
)

// applyOperator compares a resolved context value against a rule value.
// Any malformed combination (non-numeric ordering operands, non-array rule
// for in/not_in, invalid regex pattern) resolves to false.
func applyOperator(op models.Operator, contextValue, ruleValue any) bool {
	switch op {
	case models.OpEqual:
		return looseEqual(contextValue, ruleValue)
	case models.OpNotEqual:
		return !looseEqual(contextValue, ruleValue)
	case models.OpGreater:
		return compareNumeric(contextValue, ruleValue, func(a, b float64) bool { return a > b })
	case models.OpLess:
		return compareNumeric(contextValue, ruleValue, func(a, b float64) bool { return a < b })
	case models.OpGreaterEqual:
		return compareNumeric(contextValue, ruleValue, func(a, b float64) bool { return a >= b })
	case models.OpLessEqual:
		return compareNumeric(contextValue, ruleValue, func(a, b float64) bool { return a <= b })
	case models.OpIn:
		return valueInList(contextValue, ruleValue)
	case models.OpNotIn:
		return isList(ruleValue) && !valueInList(contextValue, ruleValue)
	case models.OpContains:
		return contains(contextValue, ruleValue)
	case models.OpMatches:
		return matches(contextValue, ruleValue)
	default:
		return false
	}
}

// looseEqual applies structural equality with numeric-vs-string
// normalization: if both sides coerce to numbers they are compared
// numerically, otherwise as strings.
func looseEqual(a, b any) bool {
	na, aOK := toFloat(a)
	nb, bOK := toFloat(b)

	if aOK && bOK {
		return na == nb
	}

	return stringify(a) == stringify(b)
}

func compareNumeric(a, b any, cmp func(a, b float64) bool) bool {
	na, aOK := toFloat(a)
	nb, bOK := toFloat(b)

	if !aOK || !bOK {
		return false
	}

	return cmp(na, nb)
}

// valueInList reports whether the scalar context value equals any element
// of the rule array.
func valueInList(contextValue, ruleValue any) bool {
	for _, item := range toList(ruleValue) {
		if looseEqual(contextValue, item) {
			return true
		}
	}

	return false
}

// contains expects the context value to be an array or string.
func contains(contextValue, ruleValue any) bool {
	if list := toList(contextValue); list != nil {
		for _, item := range list {
			if looseEqual(item, ruleValue) {
				return true
			}
		}

		return false
	}

	if s, ok := contextValue.(string); ok {
		return strings.Contains(s, stringify(ruleValue))
	}

	return false
}

// matches treats the rule value as a regular expression applied to the
// string form of the context value. An invalid pattern fails closed.
func matches(contextValue, ruleValue any) bool {
	pattern, ok := ruleValue.(string)
	if !ok {
		return false
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}

	s, ok := contextValue.(string)
	if !ok {
		return false
	}

	return re.MatchString(s)
}

func isList(v any) bool {
	return toList(v) != nil
}

// toList normalizes the slice shapes that survive JSON round-trips.
func toList(v any) []any {
	switch list := v.(type) {
	case []any:
		return list
	case []string:
		result := make([]any, len(list))
		for i, item := range list {
			result[i] = item
		}

		return result
	case []float64:
		result := make([]any, len(list))
		for i, item := range list {
			result[i] = item
		}

		return result
	default:
		return nil
	}
}

// toFloat attempts numeric coercion of the value shapes that appear in
// event payloads and stored rule values.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()

		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)

		return f, err == nil
	case bool:
		if n {
			return 1, true
		}

		return 0, true
	default:
		return 0, false
	}
}

func stringify(v any) string {
	if v == nil {
		return ""
	}

	if s, ok := v.(string); ok {
		return s
	}

	return fmt.Sprintf("%v", v)
}
