package expression

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/l7mp/pipelet/pkg/value"
)

func IsList(d any) bool {
	dv := reflect.ValueOf(d)
	return dv.Kind() == reflect.Slice || dv.Kind() == reflect.Array
}

func AsList(d any) ([]any, error) {
	if !IsList(d) {
		return nil, fmt.Errorf("argument is not a list: %s", value.Stringify(d))
	}

	ret, ok := d.([]any)
	if !ok {
		return nil, fmt.Errorf("failed to convert argument into a list: %s", value.Stringify(d))
	}

	return ret, nil
}

func AsBinaryList(d any) ([]any, error) {
	vs, err := AsList(d)
	if err != nil {
		return nil, err
	}

	if len(vs) != 2 {
		return nil, fmt.Errorf("invalid number of arguments for a binary operator: %d", len(vs))
	}

	return vs, nil
}

func AsBool(d any) (bool, error) {
	if d == nil {
		return false, errors.New("argument is nil")
	}

	if b, ok := d.(bool); ok {
		return b, nil
	}
	return false, fmt.Errorf("argument is not a boolean: %s", value.Stringify(d))
}

func AsBoolList(d any) ([]bool, error) {
	vs, err := AsList(d)
	if err != nil {
		return nil, err
	}

	ret := make([]bool, 0, len(vs))
	for _, v := range vs {
		arg, err := AsBool(v)
		if err != nil {
			return nil, err
		}
		ret = append(ret, arg)
	}
	return ret, nil
}

// AsString converts strings and numbers to a string. Numbers take the same string form as key
// fields.
func AsString(d any) (string, error) {
	if d == nil {
		return "", errors.New("argument is nil")
	}

	switch reflect.ValueOf(d).Kind() { //nolint:exhaustive
	case reflect.String:
		return reflect.ValueOf(d).String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Uint,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Float32, reflect.Float64:
		return value.String(d), nil
	}

	return "", fmt.Errorf("argument is not a string: %s", value.Stringify(d))
}

func AsStringList(d any) ([]string, error) {
	vs, err := AsList(d)
	if err != nil {
		return nil, err
	}

	ret := make([]string, 0, len(vs))
	for _, v := range vs {
		arg, err := AsString(v)
		if err != nil {
			return nil, err
		}
		ret = append(ret, arg)
	}
	return ret, nil
}

// AsInt converts integers, whole floats and numeric strings to an int64.
func AsInt(d any) (int64, error) {
	if d == nil {
		return int64(0), errors.New("argument is nil")
	}

	rv := reflect.ValueOf(d)
	switch rv.Kind() { //nolint:exhaustive
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return int64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		if f := rv.Float(); f == math.Trunc(f) {
			return int64(f), nil
		}
	case reflect.String:
		if i, err := strconv.ParseInt(rv.String(), 10, 64); err == nil {
			return i, nil
		}
	}

	return 0, fmt.Errorf("argument is not an int: %s", value.Stringify(d))
}

func AsFloat(d any) (float64, error) {
	if d == nil {
		return 0.0, errors.New("argument is nil")
	}

	rv := reflect.ValueOf(d)
	if rv.Kind() == reflect.String {
		if f, err := strconv.ParseFloat(rv.String(), 64); err == nil {
			return f, nil
		}
		return 0.0, fmt.Errorf("argument is not a float: %s", value.Stringify(d))
	}

	if rv.Kind() != reflect.Bool && rv.CanConvert(reflect.TypeOf(0.0)) {
		return rv.Convert(reflect.TypeOf(0.0)).Float(), nil
	}

	return 0.0, fmt.Errorf("argument is not a float: %s", value.Stringify(d))
}

func AsFloatList(d any) ([]float64, error) {
	vs, err := AsList(d)
	if err != nil {
		return nil, err
	}

	ret := make([]float64, 0, len(vs))
	for _, v := range vs {
		arg, err := AsFloat(v)
		if err != nil {
			return nil, err
		}
		ret = append(ret, arg)
	}
	return ret, nil
}

func AsBinaryFloatList(d any) ([]float64, error) {
	vs, err := AsFloatList(d)
	if err != nil {
		return nil, err
	}

	if len(vs) != 2 {
		return nil, fmt.Errorf("invalid number (%d) of arguments for a binary operator: %s",
			len(vs), value.Stringify(d))
	}

	return vs, nil
}

// AsMap returns the argument as a map.
func AsMap(d any) (map[string]any, error) {
	ret, ok := d.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("failed to convert argument into a map: %s", value.Stringify(d))
	}

	return ret, nil
}

// AsExpOrExpList returns the elements of a literal expression list, or the expression itself
// wrapped into a list.
func AsExpOrExpList(d any) ([]Expression, error) {
	var exp Expression
	switch e := d.(type) {
	case Expression:
		exp = e
	case *Expression:
		if e == nil {
			return nil, errors.New("argument is nil")
		}
		exp = *e
	default:
		return nil, fmt.Errorf("argument is not an expression: %s", value.Stringify(d))
	}

	if exp.Op == "@list" && exp.Arg == nil { //nolint:goconst
		ret, ok := exp.Literal.([]Expression)
		if !ok {
			return nil, fmt.Errorf("internal error: list expression should contain a literal list: %s",
				exp.String())
		}
		return ret, nil
	}

	return []Expression{exp}, nil
}
