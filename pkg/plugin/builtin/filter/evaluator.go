package filter

import (
	"fmt"
	"strconv"

	"github.com/logflow-dev/logflow/pkg/logevent"
)

// Evaluate runs the parsed expression against evt's fields. A comparison
// against a missing field is never an error: the field compares unequal
// to everything, so != is true while ==, <, <=, >, >= and `in` are false,
// matching the dotted-path miss contract in the data model.
func Evaluate(expr Expr, evt *logevent.LogEvent) (bool, error) {
	switch e := expr.(type) {
	case LogicalOp:
		left, err := Evaluate(e.Left, evt)
		if err != nil {
			return false, err
		}
		if e.Op == TokenAnd && !left {
			return false, nil // short-circuit
		}
		if e.Op == TokenOr && left {
			return true, nil // short-circuit
		}
		return Evaluate(e.Right, evt)
	case NotOp:
		v, err := Evaluate(e.Operand, evt)
		if err != nil {
			return false, err
		}
		return !v, nil
	case BinaryOp:
		return evaluateBinary(e, evt)
	case Ident:
		// A bare identifier used as a whole condition is truthy iff the
		// field resolves to something other than false, "", an int64 or
		// float64 zero, or nil; any other value is truthy.
		v, missing := resolveOperand(evt, e, true)
		if missing {
			return false, nil
		}
		return truthy(v), nil
	case Literal:
		if b, ok := e.Value.(bool); ok {
			return b, nil
		}
		return true, nil
	default:
		return false, fmt.Errorf("filter: unsupported expression node %T", expr)
	}
}

func truthy(v any) bool {
	switch vv := v.(type) {
	case bool:
		return vv
	case string:
		return vv != ""
	case int64:
		return vv != 0
	case float64:
		return vv != 0
	case nil:
		return false
	default:
		return true
	}
}

func evaluateBinary(e BinaryOp, evt *logevent.LogEvent) (bool, error) {
	left, leftMissing := resolveOperand(evt, e.Left, true)

	if e.Op == TokenIn {
		if leftMissing {
			return false, nil
		}
		list, ok := e.Right.(ListLiteral)
		if !ok {
			return false, fmt.Errorf("filter: right-hand side of 'in' must be a list literal")
		}
		for _, item := range list.Items {
			itemVal, _ := resolveOperand(evt, item, false)
			if equalValues(left, itemVal) {
				return true, nil
			}
		}
		return false, nil
	}

	right, rightMissing := resolveOperand(evt, e.Right, false)
	if leftMissing || rightMissing {
		// A missing field compares unequal to any literal; != against a
		// missing field is therefore true, matching "unequal" semantics.
		return e.Op == TokenNeq, nil
	}

	switch e.Op {
	case TokenEq:
		return equalValues(left, right), nil
	case TokenNeq:
		return !equalValues(left, right), nil
	case TokenLt, TokenLte, TokenGt, TokenGte:
		lf, lok := toNumber(left)
		rf, rok := toNumber(right)
		if !lok || !rok {
			return false, nil // numeric comparison only valid for int/float operands
		}
		switch e.Op {
		case TokenLt:
			return lf < rf, nil
		case TokenLte:
			return lf <= rf, nil
		case TokenGt:
			return lf > rf, nil
		default:
			return lf >= rf, nil
		}
	default:
		return false, fmt.Errorf("filter: unsupported operator %v", e.Op)
	}
}

// resolveOperand resolves an expression node to a runtime value.
// isLHS distinguishes a field-path identifier (always looked up, missing
// is reported) from a bare-word symbol literal appearing elsewhere (an
// unresolved identifier there is treated as its own literal text, e.g.
// `level == ERROR`).
func resolveOperand(evt *logevent.LogEvent, expr Expr, isLHS bool) (any, bool) {
	switch e := expr.(type) {
	case Ident:
		if v, ok := evt.Get(e.Path); ok {
			return v, false
		}
		if isLHS {
			return nil, true
		}
		return e.Path, false
	case Literal:
		return e.Value, false
	default:
		return nil, true
	}
}

func equalValues(a, b any) bool {
	af, aok := toNumber(a)
	bf, bok := toNumber(b)
	if aok && bok {
		return af == bf
	}
	// string/symbol comparisons compare literal text.
	return toComparableString(a) == toComparableString(b)
}

// toNumber accepts only int/float operands, matching "numeric comparison
// between int/float only" — a string never participates in numeric
// comparison, even a numeric-looking one.
func toNumber(v any) (float64, bool) {
	switch vv := v.(type) {
	case int64:
		return float64(vv), true
	case int:
		return float64(vv), true
	case float64:
		return vv, true
	case float32:
		return float64(vv), true
	default:
		return 0, false
	}
}

func toComparableString(v any) string {
	switch vv := v.(type) {
	case string:
		return vv
	case bool:
		return strconv.FormatBool(vv)
	case int64:
		return strconv.FormatInt(vv, 10)
	case float64:
		return strconv.FormatFloat(vv, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", vv)
	}
}
