// Package value implements the untyped records that flow through a pipelet graph.
//
// A Value is an unstructured map that can contain embedded maps, slices and primitives (int64,
// float64, string, bool). The engine never interprets a Value except for the fields that make up
// its key, so this package only provides copying, equality and the scalar comparison and string
// form used to compute identities.
package value

import (
	"fmt"
	"math"
	"reflect"
	"strconv"

	"k8s.io/apimachinery/pkg/util/json"
)

// Value represents an unstructured record as map[string]any.
type Value = map[string]any

// New creates an empty value.
func New() Value { return make(Value) }

// FromPairs creates a new value from key-value pairs.
func FromPairs(pairs ...any) (Value, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("FromPairs requires an even number of arguments (key-value pairs)")
	}

	v := make(Value, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		k, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("key at position %d must be a string", i)
		}
		v[k] = pairs[i+1]
	}

	return v, nil
}

// DeepCopy creates a deep copy of a value.
func DeepCopy(v Value) Value {
	if v == nil {
		return nil
	}
	c, _ := deepCopy(v).(Value)
	return c
}

func deepCopy(val any) any {
	switch v := val.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for k, subVal := range v {
			result[k] = deepCopy(subVal)
		}
		return result

	case []any:
		result := make([]any, len(v))
		for i, subVal := range v {
			result[i] = deepCopy(subVal)
		}
		return result

	default:
		// primitives can be copied directly
		return v
	}
}

// DeepEqual checks if two arbitrary values are equal. Maps and lists are compared recursively,
// numeric scalars by numeric value so that int, int64 and float64 representations of the same
// number compare equal.
func DeepEqual(a, b any) bool {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, x := range av {
			y, ok := bv[k]
			if !ok || !DeepEqual(x, y) {
				return false
			}
		}
		return true

	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !DeepEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	}

	return ScalarEqual(a, b)
}

// ScalarEqual compares two field values. Strings, bools and numbers take a fast path; numbers
// are compared by value across Go numeric types. Anything else falls back to reflect.DeepEqual.
func ScalarEqual(a, b any) bool {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case int64:
		if bv, ok := b.(int64); ok {
			return av == bv
		}
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	}

	if af, ok := asFloat(a); ok {
		bf, ok := asFloat(b)
		return ok && af == bf
	}

	return reflect.DeepEqual(a, b)
}

// String returns the string form of a scalar field value as used in keys. Whole floats are
// rendered without a fractional part so that 1, int64(1) and 1.0 all become "1". Missing values
// render as the empty string.
func String(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	}

	if f, ok := asFloat(v); ok {
		return String(f)
	}

	return Stringify(v)
}

// Stringify returns a JSON representation of an arbitrary value for logging and debugging.
func Stringify(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%#v", v)
	}
	return string(b)
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}
