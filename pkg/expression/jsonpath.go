package expression

import (
	"github.com/ohler55/ojg/jp"
)

// GetJSONPath dereferences a JSONPath key. Keys starting with "$" are evaluated on the object,
// keys starting with "$$" on the current subject. Any other string is returned as is.
func (e *Expression) GetJSONPath(ctx EvalCtx, key string) (any, error) {
	if len(key) == 0 || key[0] != '$' {
		return key, nil
	}

	// root refs "$." and "$$." are not accepted by ojg/jp
	if key == "$." {
		key = "$"
	} else if key == "$$." {
		key = "$$"
	}

	subject := ctx.Object
	if len(key) >= 2 && key[1] == '$' {
		key = key[1:]
		subject = ctx.Subject
	}

	ret, err := GetJSONPathExp(key, subject)
	if err != nil {
		return nil, NewExpressionError(e, err)
	}
	return ret, nil
}

// GetJSONPathExp evaluates a JSONPath expression on the specified object and returns the first
// result. A query that matches nothing returns nil.
func GetJSONPathExp(query string, object any) (any, error) {
	je, err := jp.ParseString(query)
	if err != nil {
		return nil, err
	}

	values := je.Get(object)
	if len(values) == 0 {
		return nil, nil
	}

	return values[0], nil
}
