// Package expr implements the sandboxed comparison language used by condition
// nodes, conditional triggers, event filters, and wait-condition actions.
//
// An expression is one or more comparisons joined by && or || (evaluated left
// to right, no parentheses):
//
//	project.budget > 10000
//	status == "open" && amount >= 50
//	tags contains "urgent"
//	customer.active
//
// The left side is always a dot path into the variable context; the right side
// is a string, number, boolean, or null literal. A bare path evaluates to the
// truthiness of the referenced value. There is no function call, assignment,
// or any other way to run code, which keeps workflow definitions from
// executing anything beyond comparisons.
package expr

import (
	"fmt"
	"strconv"
	"strings"
)

type operator string

const (
	opEq       operator = "=="
	opNeq      operator = "!="
	opGte      operator = ">="
	opLte      operator = "<="
	opGt       operator = ">"
	opLt       operator = "<"
	opContains operator = "contains"
)

// Evaluate runs the expression against the variable context. The result is
// deterministic: the same context always yields the same decision.
func Evaluate(expression string, vars map[string]any) (bool, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return false, fmt.Errorf("empty expression")
	}

	result := false
	first := true

	for _, orTerm := range splitOutsideQuotes(expression, "||") {
		andResult := true

		for _, andTerm := range splitOutsideQuotes(orTerm, "&&") {
			value, err := evaluateComparison(strings.TrimSpace(andTerm), vars)
			if err != nil {
				return false, err
			}

			andResult = andResult && value
		}

		if first {
			result = andResult
			first = false

			continue
		}

		result = result || andResult
	}

	return result, nil
}

func evaluateComparison(term string, vars map[string]any) (bool, error) {
	if term == "" {
		return false, fmt.Errorf("empty comparison term")
	}

	// Two-character operators are matched before their one-character
	// prefixes. Operators inside quoted literals are plain text, not syntax.
	for _, op := range []operator{opEq, opNeq, opGte, opLte, opGt, opLt} {
		left, right, found := cutOutsideQuotes(term, string(op))
		if !found {
			continue
		}

		return compare(op, left, right, vars)
	}

	if left, right, found := cutOutsideQuotes(term, " "+string(opContains)+" "); found {
		return compare(opContains, left, right, vars)
	}

	// Bare path: truthiness of the referenced value.
	value, _ := Lookup(strings.TrimSpace(term), vars)

	return truthy(value), nil
}

// indexOutsideQuotes returns the position of the first occurrence of sep that
// is not inside a single- or double-quoted section, or -1.
func indexOutsideQuotes(s, sep string) int {
	var quote byte

	for i := 0; i < len(s); i++ {
		c := s[i]

		if quote != 0 {
			if c == quote {
				quote = 0
			}

			continue
		}

		if c == '"' || c == '\'' {
			quote = c

			continue
		}

		if strings.HasPrefix(s[i:], sep) {
			return i
		}
	}

	return -1
}

func cutOutsideQuotes(s, sep string) (string, string, bool) {
	if i := indexOutsideQuotes(s, sep); i >= 0 {
		return s[:i], s[i+len(sep):], true
	}

	return s, "", false
}

func splitOutsideQuotes(s, sep string) []string {
	var parts []string

	for {
		left, right, found := cutOutsideQuotes(s, sep)
		parts = append(parts, left)

		if !found {
			return parts
		}

		s = right
	}
}

func compare(op operator, leftExpr, rightExpr string, vars map[string]any) (bool, error) {
	path := strings.TrimSpace(leftExpr)
	if path == "" {
		return false, fmt.Errorf("comparison is missing a field path before %q", op)
	}

	literal, err := parseLiteral(strings.TrimSpace(rightExpr))
	if err != nil {
		return false, err
	}

	value, _ := Lookup(path, vars)

	switch op {
	case opEq:
		return equal(value, literal), nil
	case opNeq:
		return !equal(value, literal), nil
	case opContains:
		return contains(value, literal)
	default:
		return ordered(op, value, literal)
	}
}

// Lookup resolves a dot path against nested string-keyed maps. The second
// return reports whether every path segment resolved.
func Lookup(path string, vars map[string]any) (any, bool) {
	current := any(vars)

	for _, segment := range strings.Split(path, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = node[segment]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

func parseLiteral(text string) (any, error) {
	if text == "" {
		return nil, fmt.Errorf("comparison is missing a literal value")
	}

	if len(text) >= 2 {
		quoted := (text[0] == '"' && text[len(text)-1] == '"') ||
			(text[0] == '\'' && text[len(text)-1] == '\'')
		if quoted {
			return text[1 : len(text)-1], nil
		}
	}

	switch text {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "null":
		return nil, nil
	}

	number, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid literal %q: expected a quoted string, number, boolean, or null", text)
	}

	return number, nil
}

func equal(value, literal any) bool {
	if leftNum, ok := asFloat(value); ok {
		rightNum, rightOK := asFloat(literal)

		return rightOK && leftNum == rightNum
	}

	return value == literal
}

func ordered(op operator, value, literal any) (bool, error) {
	leftNum, leftOK := asFloat(value)
	rightNum, rightOK := asFloat(literal)

	if leftOK && rightOK {
		switch op {
		case opGt:
			return leftNum > rightNum, nil
		case opGte:
			return leftNum >= rightNum, nil
		case opLt:
			return leftNum < rightNum, nil
		case opLte:
			return leftNum <= rightNum, nil
		}
	}

	leftStr, leftOK := value.(string)
	rightStr, rightOK := literal.(string)

	if leftOK && rightOK {
		switch op {
		case opGt:
			return leftStr > rightStr, nil
		case opGte:
			return leftStr >= rightStr, nil
		case opLt:
			return leftStr < rightStr, nil
		case opLte:
			return leftStr <= rightStr, nil
		}
	}

	return false, fmt.Errorf("cannot order %T against %T with %q", value, literal, op)
}

func contains(value, literal any) (bool, error) {
	switch v := value.(type) {
	case string:
		needle, ok := literal.(string)
		if !ok {
			return false, fmt.Errorf("contains on a string requires a string literal, got %T", literal)
		}

		return strings.Contains(v, needle), nil
	case []any:
		for _, item := range v {
			if equal(item, literal) {
				return true, nil
			}
		}

		return false, nil
	default:
		return false, fmt.Errorf("contains requires a string or list value, got %T", value)
	}
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		if number, ok := asFloat(value); ok {
			return number != 0
		}

		return true
	}
}
