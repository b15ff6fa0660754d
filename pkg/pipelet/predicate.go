package pipelet

import (
	"errors"

	"github.com/l7mp/pipelet/pkg/expression"
	"github.com/l7mp/pipelet/pkg/value"
)

type predicateKind int

const (
	predicateFunc predicateKind = iota + 1
	predicateExpression
)

// Predicate decides whether a value belongs to a filtered subset. It is either a Go function or
// a boolean expression evaluated with the candidate value as the JSONPath root "$". Predicates
// must be pure.
type Predicate struct {
	kind predicateKind
	fn   func(value.Value) bool
	exp  *expression.Expression
}

// PredicateFunc creates a predicate from a Go function.
func PredicateFunc(fn func(value.Value) bool) Predicate {
	return Predicate{kind: predicateFunc, fn: fn}
}

// PredicateExpression creates a predicate from a boolean expression.
func PredicateExpression(exp expression.Expression) Predicate {
	return Predicate{kind: predicateExpression, exp: exp.DeepCopy()}
}

func (p Predicate) String() string {
	switch p.kind {
	case predicateFunc:
		return "<func>"
	case predicateExpression:
		return p.exp.String()
	default:
		return "<invalid>"
	}
}

// compile selects the evaluation path of the predicate.
func (p Predicate) compile(f *Filter) (func(value.Value) (bool, error), error) {
	switch p.kind {
	case predicateFunc:
		if p.fn == nil {
			return nil, errors.New("nil predicate function")
		}
		fn := p.fn
		return func(v value.Value) (bool, error) { return fn(v), nil }, nil

	case predicateExpression:
		if p.exp == nil {
			return nil, errors.New("nil predicate expression")
		}
		exp := p.exp
		return func(v value.Value) (bool, error) {
			ok, err := exp.EvaluateBool(expression.EvalCtx{Object: v, Log: f.log})
			if err != nil {
				return false, NewPredicateError(f.name, err)
			}
			return ok, nil
		}, nil

	default:
		return nil, errors.New("uninitialized predicate")
	}
}
