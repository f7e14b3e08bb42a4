package governance

import "fmt"

// ConstraintOp is a single ODRL-like leaf constraint comparing a named
// fact against a value.
type ConstraintOp string

const (
	OpEquals      ConstraintOp = "eq"
	OpNotEquals   ConstraintOp = "neq"
	OpGreaterThan ConstraintOp = "gt"
	OpLessThan    ConstraintOp = "lt"
	OpIn          ConstraintOp = "in"
)

// Constraint is either a leaf comparison or an AND/OR composite of
// child Constraints, mirroring ODRL's constraint/logicalConstraint
// split.
type Constraint struct {
	// Leaf fields.
	LeftOperand string
	Operator    ConstraintOp
	RightValue  interface{}

	// Composite fields — exactly one of And/Or is set for a composite
	// constraint, leaving LeftOperand empty.
	And []Constraint
	Or  []Constraint
}

// RuleKind distinguishes ODRL's permission/prohibition/duty rule types.
type RuleKind string

const (
	RulePermission RuleKind = "permission"
	RuleProhibition RuleKind = "prohibition"
	RuleObligation  RuleKind = "obligation"
)

// Rule is a single governance rule: an action gated by a constraint,
// classified as a permission, prohibition, or obligation.
type Rule struct {
	Kind       RuleKind
	Action     string
	Constraint Constraint
}

// Policy is an ordered set of rules evaluated against a fact context.
type Policy struct {
	Rules []Rule
}

// Evaluate checks whether action is allowed under p given facts.
// Prohibitions are checked first and short-circuit with a denial;
// permissions must then explicitly allow the action; obligations that
// fail are reported but do not themselves deny the action (the caller
// decides whether to enforce them synchronously).
func (p *Policy) Evaluate(action string, facts map[string]interface{}) (allowed bool, unmetObligations []string, err error) {
	permissionFound := false

	for _, rule := range p.Rules {
		if rule.Action != action {
			continue
		}

		satisfied, err := evalConstraint(rule.Constraint, facts)
		if err != nil {
			return false, nil, fmt.Errorf("governance: evaluate rule for %s: %w", action, err)
		}

		switch rule.Kind {
		case RuleProhibition:
			if satisfied {
				return false, unmetObligations, nil
			}
		case RulePermission:
			if satisfied {
				permissionFound = true
			}
		case RuleObligation:
			if !satisfied {
				unmetObligations = append(unmetObligations, rule.Action)
			}
		}
	}

	return permissionFound, unmetObligations, nil
}

func evalConstraint(c Constraint, facts map[string]interface{}) (bool, error) {
	if len(c.And) > 0 {
		for _, child := range c.And {
			ok, err := evalConstraint(child, facts)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
	if len(c.Or) > 0 {
		for _, child := range c.Or {
			ok, err := evalConstraint(child, facts)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}

	actual, present := facts[c.LeftOperand]
	if !present {
		return false, nil
	}

	switch c.Operator {
	case OpEquals:
		return actual == c.RightValue, nil
	case OpNotEquals:
		return actual != c.RightValue, nil
	case OpGreaterThan, OpLessThan:
		af, aok := toFloat(actual)
		bf, bok := toFloat(c.RightValue)
		if !aok || !bok {
			return false, fmt.Errorf("governance: non-numeric comparison on %s", c.LeftOperand)
		}
		if c.Operator == OpGreaterThan {
			return af > bf, nil
		}
		return af < bf, nil
	case OpIn:
		values, ok := c.RightValue.([]interface{})
		if !ok {
			return false, fmt.Errorf("governance: %s operator requires a list value", OpIn)
		}
		for _, v := range values {
			if v == actual {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("governance: unknown operator %q", c.Operator)
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
