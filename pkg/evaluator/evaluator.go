// Package evaluator resolves compiled expression trees against the fact map
// of a single business event. Evaluation is total: missing fields and
// type-incompatible comparisons resolve the owning condition to false, so
// partial event payloads fail closed instead of crashing the engine.
package evaluator

import "github.com/coinflux/ruleflow/pkg/models"

// Evaluate resolves the expression against the given field resolver and
// returns the ordered actions of every branch whose guarding path evaluated
// true. An empty result is a valid, non-error outcome.
func Evaluate(expr *models.Expression, resolver models.FieldResolver) []models.Action {
	if expr == nil || expr.Root == nil {
		return nil
	}

	_, actions := evalNode(expr.Root, resolver)

	return actions
}

// evalNode returns whether the node is satisfied and the actions collected
// along satisfied paths beneath it.
//
// AND stops at its first false child and OR at its first true child:
// condition evaluation can be relatively expensive when fields need
// coercion, and the compiler emits mutually exclusive OR arms, so the first
// satisfied arm is the only satisfied arm.
func evalNode(node *models.ExprNode, resolver models.FieldResolver) (bool, []models.Action) {
	switch node.Kind {
	case models.ExprCondition:
		if node.Condition == nil {
			return false, nil
		}

		return evalCondition(*node.Condition, resolver), nil

	case models.ExprBranch:
		// Reaching a branch means every guard above it held.
		return true, node.Actions

	case models.ExprAnd:
		var actions []models.Action

		for _, child := range node.Children {
			ok, childActions := evalNode(child, resolver)
			if !ok {
				return false, nil
			}

			actions = append(actions, childActions...)
		}

		return true, actions

	case models.ExprOr:
		for _, child := range node.Children {
			if ok, childActions := evalNode(child, resolver); ok {
				return true, childActions
			}
		}

		return false, nil

	default:
		return false, nil
	}
}

// evalCondition resolves one predicate. The Negate flag inverts the result
// after the fail-closed rules have applied, which is what routes an
// unsatisfied (or unresolvable) condition down the false branch.
func evalCondition(cond models.Condition, resolver models.FieldResolver) bool {
	value, ok := resolver.Resolve(cond.Field)
	if !ok {
		return cond.Negate
	}

	result := applyOperator(cond.Operator, value, cond.Value)
	if cond.Negate {
		return !result
	}

	return result
}
