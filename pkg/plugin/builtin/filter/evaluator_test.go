package filter

import (
	"testing"

	"github.com/logflow-dev/logflow/pkg/logevent"
)

func eval(t *testing.T, src string, evt *logevent.LogEvent) bool {
	t.Helper()
	expr, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	result, err := Evaluate(expr, evt)
	if err != nil {
		t.Fatalf("Evaluate(%q): %v", src, err)
	}
	return result
}

func TestLiteralTrueFalse(t *testing.T) {
	evt := logevent.New("t", "")
	if !eval(t, "true", evt) {
		t.Fatalf("'true' should evaluate true")
	}
	if eval(t, "false", evt) {
		t.Fatalf("'false' should evaluate false")
	}
}

func TestComparisonOperators(t *testing.T) {
	evt := logevent.New("t", "")
	evt.Set("level", "INFO")
	evt.Set("count", int64(5))

	if !eval(t, "level == 'INFO'", evt) {
		t.Fatalf("expected level == 'INFO' to match")
	}
	if !eval(t, "level != 'DEBUG'", evt) {
		t.Fatalf("expected level != 'DEBUG' to match")
	}
	if !eval(t, "count > 3", evt) {
		t.Fatalf("expected count > 3 to match")
	}
	if !eval(t, "count <= 5", evt) {
		t.Fatalf("expected count <= 5 to match")
	}
}

func TestSymbolLiteralComparison(t *testing.T) {
	evt := logevent.New("t", "")
	evt.Set("level", "ERROR")
	if !eval(t, "level == ERROR", evt) {
		t.Fatalf("expected bare-word symbol literal ERROR to compare equal to field value")
	}
}

func TestMissingFieldComparesUnequal(t *testing.T) {
	evt := logevent.New("t", "")
	if eval(t, "level == 'INFO'", evt) {
		t.Fatalf("missing field must never equal a literal")
	}
	if !eval(t, "level != 'INFO'", evt) {
		t.Fatalf("missing field must compare unequal (!=) to any literal")
	}
}

func TestInOperator(t *testing.T) {
	evt := logevent.New("t", "")
	evt.Set("level", "WARNING")
	if !eval(t, "level in [DEBUG, WARNING, ERROR]", evt) {
		t.Fatalf("expected level in [...] to match")
	}
	if eval(t, "level in [DEBUG, ERROR]", evt) {
		t.Fatalf("expected level in [...] to not match")
	}
}

func TestLogicalPrecedence(t *testing.T) {
	evt := logevent.New("t", "")
	evt.Set("a", int64(1))
	evt.Set("b", int64(2))
	evt.Set("c", int64(3))

	// not > and > or: "not a == 2 and b == 2 or c == 3" parses as
	// ((not (a == 2)) and (b == 2)) or (c == 3)
	if !eval(t, "not a == 2 and b == 2 or c == 3", evt) {
		t.Fatalf("expected precedence-correct expression to match via the (not a == 2) and b == 2 branch")
	}
}

func TestParentheses(t *testing.T) {
	evt := logevent.New("t", "")
	evt.Set("a", int64(1))
	evt.Set("b", int64(0))
	if eval(t, "a == 1 and (b == 1 or b == 2)", evt) {
		t.Fatalf("parenthesised or-group should prevent the match")
	}
}

func TestDottedPathIdentifier(t *testing.T) {
	evt := logevent.New("t", "")
	evt.Set("user.role", "admin")
	if !eval(t, "user.role == 'admin'", evt) {
		t.Fatalf("expected dotted path identifier to resolve")
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	if _, err := Parse("level ==="); err == nil {
		t.Fatalf("expected parse error for malformed condition")
	}
	if _, err := Parse("(level == 'INFO'"); err == nil {
		t.Fatalf("expected parse error for unbalanced parens")
	}
}
