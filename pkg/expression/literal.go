package expression

import "fmt"

// NewLiteralExpression creates a terminal expression from a scalar.
func NewLiteralExpression(v any) (Expression, error) {
	op := ""
	switch v.(type) {
	case bool:
		op = "@bool"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32:
		iv, err := AsInt(v)
		if err != nil {
			return Expression{}, err
		}
		return Expression{Op: "@int", Literal: iv}, nil
	case string:
		op = "@string"
	case float32, float64:
		fv, err := AsFloat(v)
		if err != nil {
			return Expression{}, err
		}
		return Expression{Op: "@float", Literal: fv}, nil
	default:
		return Expression{}, fmt.Errorf("cannot create a literal expression from an "+
			"argument %#v", v)
	}

	return Expression{Op: op, Literal: v}, nil
}

// NewJSONPathGetExpression creates an expression that, when evaluated on an object, will return
// the value at the given JSONPath.
func NewJSONPathGetExpression(path string) Expression {
	return Expression{Op: "@string", Literal: path}
}

// NewFieldEqualsExpression creates a predicate that holds when the field at the JSONPath equals
// the literal.
func NewFieldEqualsExpression(path string, v any) (Expression, error) {
	lit, err := NewLiteralExpression(v)
	if err != nil {
		return Expression{}, err
	}
	args := Expression{Op: "@list", Literal: []Expression{NewJSONPathGetExpression(path), lit}}
	return Expression{Op: "@eq", Arg: &args}, nil
}
