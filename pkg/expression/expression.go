// Package expression implements a small JSON/YAML encoded expression language used to supply
// filter predicates as a boolean expression body that is evaluated against a candidate value.
//
// An expression is either a literal (bool, int, float, string, list or map) or an operator, which
// is encoded as a single-key map whose key starts with "@", e.g., `{"@eq": ["$.country", "USA"]}`.
// Strings starting with "$" are JSONPath references into the evaluated value, "$$" refers to the
// current element inside list operators (@filter, @map, @any, @all, @none).
package expression

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/l7mp/pipelet/pkg/value"
)

// Unstructured is the map type produced and consumed by expressions.
type Unstructured = map[string]any

// EvalCtx is the evaluation context of an expression.
type EvalCtx struct {
	// Object is the value the expression is evaluated on ("$").
	Object any
	// Subject is the current list element inside list operators ("$$").
	Subject any
	Log     logr.Logger
}

// Expression is a node in an expression tree.
type Expression struct {
	Op      string
	Arg     *Expression
	Literal any
}

// Evaluate evaluates the expression in the given context.
func (e *Expression) Evaluate(ctx EvalCtx) (any, error) {
	if len(e.Op) == 0 {
		return nil, NewInvalidArgumentsError(fmt.Sprintf("empty operator in expession %q", e.String()))
	}

	switch e.Op {
	case "@bool":
		lit, err := e.literalOrArg(ctx)
		if err != nil {
			return nil, err
		}

		v, err := AsBool(lit)
		if err != nil {
			return nil, NewExpressionError(e, err)
		}

		ctx.Log.V(8).Info("eval ready", "expression", e.String(), "result", v)
		return v, nil

	case "@int":
		lit, err := e.literalOrArg(ctx)
		if err != nil {
			return nil, err
		}

		v, err := AsInt(lit)
		if err != nil {
			return nil, NewExpressionError(e, err)
		}

		ctx.Log.V(8).Info("eval ready", "expression", e.String(), "result", v)
		return v, nil

	case "@float":
		lit, err := e.literalOrArg(ctx)
		if err != nil {
			return nil, err
		}

		v, err := AsFloat(lit)
		if err != nil {
			return nil, NewExpressionError(e, err)
		}

		ctx.Log.V(8).Info("eval ready", "expression", e.String(), "result", v)
		return v, nil

	case "@string":
		lit, err := e.literalOrArg(ctx)
		if err != nil {
			return nil, err
		}

		str, err := AsString(lit)
		if err != nil {
			return nil, NewExpressionError(e, err)
		}

		// only literal strings are dereferenced, computed strings are returned as is
		ret := any(str)
		if e.Arg == nil {
			ret, err = e.GetJSONPath(ctx, str)
			if err != nil {
				return nil, err
			}
		}

		ctx.Log.V(8).Info("eval ready", "expression", e.String(), "result", ret)
		return ret, nil

	case "@list":
		ret := []any{}
		if e.Arg != nil {
			// eval stacked expressions stored in e.Arg
			v, err := e.Arg.Evaluate(ctx)
			if err != nil {
				return nil, err
			}

			vs, ok := v.([]any)
			if !ok {
				return nil, NewExpressionError(e, errors.New("argument must be a list"))
			}
			ret = vs
		} else {
			// literal lists stored in Literal
			vs, ok := e.Literal.([]Expression)
			if !ok {
				return nil, NewExpressionError(e, errors.New("argument must be an expression list"))
			}

			for _, exp := range vs {
				res, err := exp.Evaluate(ctx)
				if err != nil {
					return nil, err
				}
				ret = append(ret, res)
			}
		}

		ctx.Log.V(8).Info("eval ready", "expression", e.String(), "result", ret)
		return ret, nil

	case "@dict":
		ret := Unstructured{}
		if e.Arg != nil {
			v, err := e.Arg.Evaluate(ctx)
			if err != nil {
				return nil, err
			}

			vs, err := AsMap(v)
			if err != nil {
				return nil, NewExpressionError(e, err)
			}
			ret = vs
		} else {
			vm, ok := e.Literal.(map[string]Expression)
			if !ok {
				return nil, NewExpressionError(e, errors.New("argument must be a string->expression map"))
			}

			for k, exp := range vm {
				res, err := exp.Evaluate(ctx)
				if err != nil {
					return nil, err
				}
				ret[k] = res
			}
		}

		ctx.Log.V(8).Info("eval ready", "expression", e.String(), "result", ret)
		return ret, nil

	// list commands: must eval the arg themselves
	case "@filter", "@map", "@any", "@all", "@none":
		return e.evalListOp(ctx)
	}

	if e.Op[0] != '@' {
		return nil, NewExpressionError(e, errors.New("unknown op"))
	}

	// operators: evaluate the argument first
	if e.Arg == nil {
		return nil, NewExpressionError(e, errors.New("empty argument list"))
	}

	arg, err := e.Arg.Evaluate(ctx)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	// unary bool
	case "@isnil":
		v := arg == nil
		ctx.Log.V(8).Info("eval ready", "expression", e.String(), "args", arg, "result", v)
		return v, nil

	case "@exists":
		v := arg != nil
		ctx.Log.V(8).Info("eval ready", "expression", e.String(), "args", arg, "result", v)
		return v, nil

	case "@not":
		b, err := AsBool(arg)
		if err != nil {
			return nil, NewExpressionError(e, err)
		}

		v := !b
		ctx.Log.V(8).Info("eval ready", "expression", e.String(), "args", b, "result", v)
		return v, nil

	// binary bool
	case "@eq":
		args, err := AsBinaryList(arg)
		if err != nil {
			return nil, NewExpressionError(e, err)
		}

		v := value.DeepEqual(args[0], args[1])
		ctx.Log.V(8).Info("eval ready", "expression", e.String(), "args", args, "result", v)
		return v, nil

	// list bool
	case "@and":
		args, err := AsBoolList(arg)
		if err != nil {
			return nil, NewExpressionError(e, err)
		}

		v := true
		for i := range args {
			v = v && args[i]
		}

		ctx.Log.V(8).Info("eval ready", "expression", e.String(), "args", args, "result", v)
		return v, nil

	case "@or":
		args, err := AsBoolList(arg)
		if err != nil {
			return nil, NewExpressionError(e, err)
		}

		v := false
		for i := range args {
			v = v || args[i]
		}

		ctx.Log.V(8).Info("eval ready", "expression", e.String(), "args", args, "result", v)
		return v, nil

	// binary numeric comparisons
	case "@lt", "@lte", "@gt", "@gte":
		fs, err := AsBinaryFloatList(arg)
		if err != nil {
			return nil, NewExpressionError(e, err)
		}

		var v bool
		switch e.Op {
		case "@lt":
			v = fs[0] < fs[1]
		case "@lte":
			v = fs[0] <= fs[1]
		case "@gt":
			v = fs[0] > fs[1]
		default:
			v = fs[0] >= fs[1]
		}

		ctx.Log.V(8).Info("eval ready", "expression", e.String(), "args", fs, "result", v)
		return v, nil

	// list ops
	case "@len":
		switch a := arg.(type) {
		case string:
			v := int64(len(a))
			ctx.Log.V(8).Info("eval ready", "expression", e.String(), "arg", a, "result", v)
			return v, nil
		case Unstructured:
			v := int64(len(a))
			ctx.Log.V(8).Info("eval ready", "expression", e.String(), "arg", a, "result", v)
			return v, nil
		}

		args, err := AsList(arg)
		if err != nil {
			return nil, NewExpressionError(e, err)
		}

		v := int64(len(args))
		ctx.Log.V(8).Info("eval ready", "expression", e.String(), "arg", args, "result", v)
		return v, nil

	case "@in": // @in: [elem, list]
		args, err := AsBinaryList(arg)
		if err != nil {
			return nil, NewExpressionError(e, err)
		}

		list, err := AsList(args[1])
		if err != nil {
			return nil, NewExpressionError(e, err)
		}

		v := false
		for i := range list {
			if value.DeepEqual(list[i], args[0]) {
				v = true
				break
			}
		}

		ctx.Log.V(8).Info("eval ready", "expression", e.String(), "arg", args, "result", v)
		return v, nil

	case "@concat":
		args, err := AsStringList(arg)
		if err != nil {
			return nil, NewExpressionError(e, err)
		}

		v := ""
		for i := range args {
			v += args[i]
		}

		ctx.Log.V(8).Info("eval ready", "expression", e.String(), "arg", args, "result", v)
		return v, nil
	}

	return nil, NewExpressionError(e, errors.New("unknown op"))
}

// EvaluateBool evaluates the expression and requires the result to be a boolean.
func (e *Expression) EvaluateBool(ctx EvalCtx) (bool, error) {
	res, err := e.Evaluate(ctx)
	if err != nil {
		return false, err
	}

	b, err := AsBool(res)
	if err != nil {
		return false, NewExpressionError(e, fmt.Errorf("expected expression to "+
			"evaluate to boolean: %w", err))
	}

	return b, nil
}

// literalOrArg returns the literal of a terminal expression or evaluates stacked expressions
// stored in e.Arg.
func (e *Expression) literalOrArg(ctx EvalCtx) (any, error) {
	if e.Arg == nil {
		return e.Literal, nil
	}
	return e.Arg.Evaluate(ctx)
}

// evalListOp evaluates the list operators that take an expression and a list as arguments and
// evaluate the expression on each list element as the subject.
func (e *Expression) evalListOp(ctx EvalCtx) (any, error) {
	args, err := AsExpOrExpList(e.Arg)
	if err != nil {
		return nil, NewExpressionError(e, err)
	}

	if len(args) != 2 {
		return nil, NewExpressionError(e, errors.New("invalid arguments: expected 2 arguments"))
	}

	exp := args[0]

	rawArg, err := args[1].Evaluate(ctx)
	if err != nil {
		return nil, NewExpressionError(e, fmt.Errorf("failed to evaluate arguments: %w", err))
	}

	list, err := AsList(rawArg)
	if err != nil {
		return nil, NewExpressionError(e, errors.New("invalid arguments: expected a list"))
	}

	var vs []any
	someTrue, allTrue := false, true
	for _, input := range list {
		res, err := exp.Evaluate(EvalCtx{Object: ctx.Object, Subject: input, Log: ctx.Log})
		if err != nil {
			return nil, err
		}

		if e.Op == "@map" {
			vs = append(vs, res)
			continue
		}

		b, err := AsBool(res)
		if err != nil {
			return nil, NewExpressionError(e, fmt.Errorf("expected conditional expression to "+
				"evaluate to boolean: %w", err))
		}

		if b {
			someTrue = true
			if e.Op == "@filter" {
				vs = append(vs, input)
			}
		} else {
			allTrue = false
		}
	}

	var ret any
	switch e.Op {
	case "@filter", "@map":
		if vs == nil {
			vs = []any{}
		}
		ret = vs
	case "@any":
		ret = someTrue
	case "@all":
		ret = allTrue
	default: // @none
		ret = !someTrue
	}

	ctx.Log.V(8).Info("eval ready", "expression", e.String(), "result", ret)
	return ret, nil
}
