package expression

import (
	"fmt"

	"k8s.io/apimachinery/pkg/util/json"
)

// UnmarshalJSON parses an expression. Scalars become terminal expressions, lists become @list
// and maps become @dict, except single-key maps whose key starts with "@", which are operators.
func (e *Expression) UnmarshalJSON(b []byte) error {
	bv := false
	if err := json.Unmarshal(b, &bv); err == nil {
		*e = Expression{Op: "@bool", Literal: bv}
		return nil
	}

	var iv int64 = 0
	if err := json.Unmarshal(b, &iv); err == nil {
		*e = Expression{Op: "@int", Literal: iv}
		return nil
	}

	fv := 0.0
	if err := json.Unmarshal(b, &fv); err == nil {
		*e = Expression{Op: "@float", Literal: fv}
		return nil
	}

	sv := ""
	if err := json.Unmarshal(b, &sv); err == nil {
		*e = Expression{Op: "@string", Literal: sv}
		return nil
	}

	mv := []Expression{}
	if err := json.Unmarshal(b, &mv); err == nil {
		*e = Expression{Op: "@list", Literal: mv}
		return nil
	}

	cv := map[string]Expression{}
	if err := json.Unmarshal(b, &cv); err == nil {
		if len(cv) == 1 {
			for op, exp := range cv {
				if len(op) > 0 && op[0] == '@' {
					*e = Expression{Op: op, Arg: &exp}
					return nil
				}
			}
		}

		*e = Expression{Op: "@dict", Literal: cv}
		return nil
	}

	return NewUnmarshalError("expression", string(b))
}

func (e *Expression) MarshalJSON() ([]byte, error) {
	switch e.Op {
	case "@bool", "@int", "@float", "@string":
		if e.Arg != nil {
			// keep the op for a correct round-trip
			return json.Marshal(map[string]*Expression{e.Op: e.Arg})
		}
		return marshalLiteral(e)

	case "@list":
		if e.Arg != nil {
			return json.Marshal(map[string]*Expression{e.Op: e.Arg})
		}
		es, ok := e.Literal.([]Expression)
		if !ok {
			return nil, fmt.Errorf("invalid expression list: %#v", e)
		}
		return json.Marshal(es)

	case "@dict":
		if e.Arg != nil {
			return json.Marshal(map[string]*Expression{e.Op: e.Arg})
		}
		es, ok := e.Literal.(map[string]Expression)
		if !ok {
			return nil, fmt.Errorf("invalid expression map: %#v", e)
		}
		em := make(map[string]*Expression, len(es))
		for k := range es {
			v := es[k]
			em[k] = &v
		}
		return json.Marshal(em)

	default:
		if len(e.Op) == 0 || e.Op[0] != '@' {
			return nil, fmt.Errorf("expected an op starting with @, got %#v", e)
		}
		return json.Marshal(map[string]*Expression{e.Op: e.Arg})
	}
}

func marshalLiteral(e *Expression) ([]byte, error) {
	var (
		v   any
		err error
	)
	switch e.Op {
	case "@bool":
		v, err = AsBool(e.Literal)
	case "@int":
		v, err = AsInt(e.Literal)
	case "@float":
		v, err = AsFloat(e.Literal)
	default:
		v, err = AsString(e.Literal)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func (e *Expression) String() string {
	b, err := json.Marshal(e)
	if err != nil {
		return ""
	}
	return string(b)
}

// DeepCopyInto copies an expression tree by a JSON round-trip.
func (e *Expression) DeepCopyInto(out *Expression) {
	if e == nil || out == nil {
		return
	}
	*out = *e

	j, err := json.Marshal(e)
	if err != nil {
		return
	}

	_ = json.Unmarshal(j, out)
}

// DeepCopy returns a copy of the expression.
func (e *Expression) DeepCopy() *Expression {
	if e == nil {
		return nil
	}
	out := new(Expression)
	e.DeepCopyInto(out)
	return out
}
